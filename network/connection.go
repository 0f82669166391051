// network/connection.go
package network

import (
	"encoding/json"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrMalformedMessage marks an inbound frame that is not a valid protocol
// message. The connection stays usable after it.
var ErrMalformedMessage = errors.New("malformed message")

// Envelope is one inbound client message: the type discriminator plus the
// raw frame for the handler to decode its own payload from.
type Envelope struct {
	Type string
	Data json.RawMessage
}

type Connection interface {
	Send(v interface{}) error
	ReadEnvelope() (*Envelope, error)
	Close() error
	RemoteAddr() net.Addr
	SetHeartbeat(interval time.Duration)
}

type WSConnection struct {
	conn      *websocket.Conn
	sendMutex sync.Mutex
	heartbeat time.Duration
}

func NewWSConnection(conn *websocket.Conn) *WSConnection {
	return &WSConnection{conn: conn}
}

// Send marshals v and writes it as a single text frame.
func (c *WSConnection) Send(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	c.sendMutex.Lock()
	defer c.sendMutex.Unlock()

	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *WSConnection) ReadEnvelope() (*Envelope, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return nil, err
	}

	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil || head.Type == "" {
		return nil, ErrMalformedMessage
	}

	return &Envelope{Type: head.Type, Data: data}, nil
}

func (c *WSConnection) SetHeartbeat(interval time.Duration) {
	c.heartbeat = interval
	c.conn.SetReadDeadline(time.Now().Add(interval * 2))
}

func (c *WSConnection) Close() error {
	return c.conn.Close()
}

func (c *WSConnection) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}
