package main

import (
	"bufio"
	"encoding/json"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// send marshals v as a JSON text frame.
func send(c *websocket.Conn, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.WriteMessage(websocket.TextMessage, data)
}

func main() {
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	u := url.URL{Scheme: "ws", Host: "localhost:8080", Path: "/ws"}
	log.Printf("Connecting to %s", u.String())

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	done := make(chan struct{})

	// Read loop
	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				log.Println("Read error:", err)
				return
			}
			log.Printf("<- RECV: %s", string(message))
		}
	}()

	log.Println("Commands: register <user> <pass> | login <user> <pass> | auth <token> |")
	log.Println("          select <cardId> | confirm | claim | balance | deposit <amount> | tx | history")

	// Write loop
	reader := bufio.NewReader(os.Stdin)
	for {
		select {
		case <-done:
			return
		case <-interrupt:
			log.Println("Interrupt received, closing connection.")
			err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				log.Println("Write close error:", err)
			}
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return
		default:
			text, _ := reader.ReadString('\n')
			fields := strings.Fields(text)
			if len(fields) == 0 {
				continue
			}

			var msg map[string]interface{}
			switch fields[0] {
			case "register", "login":
				if len(fields) != 3 {
					log.Printf("Usage: %s <user> <pass>", fields[0])
					continue
				}
				msg = map[string]interface{}{"type": fields[0], "username": fields[1], "password": fields[2]}
			case "auth":
				if len(fields) != 2 {
					log.Println("Usage: auth <token>")
					continue
				}
				msg = map[string]interface{}{"type": "auth", "token": fields[1]}
			case "select":
				if len(fields) != 2 {
					log.Println("Usage: select <cardId>")
					continue
				}
				cardID, err := strconv.Atoi(fields[1])
				if err != nil {
					log.Println("Card id must be a number")
					continue
				}
				msg = map[string]interface{}{"type": "select_card", "cardId": cardID}
			case "confirm":
				msg = map[string]interface{}{"type": "confirm_card"}
			case "claim":
				msg = map[string]interface{}{"type": "claim_bingo", "isValid": true}
			case "balance":
				msg = map[string]interface{}{"type": "get_balance"}
			case "deposit":
				if len(fields) != 2 {
					log.Println("Usage: deposit <amount>")
					continue
				}
				amount, err := strconv.ParseFloat(fields[1], 64)
				if err != nil {
					log.Println("Amount must be a number")
					continue
				}
				msg = map[string]interface{}{"type": "deposit", "amount": amount}
			case "tx":
				msg = map[string]interface{}{"type": "get_transactions"}
			case "history":
				msg = map[string]interface{}{"type": "get_game_history"}
			default:
				log.Printf("Unknown command: %s", fields[0])
				continue
			}

			if err := send(c, msg); err != nil {
				log.Println("Write error:", err)
				return
			}
			log.Printf("-> SENT: %s", fields[0])
		}
	}
}
