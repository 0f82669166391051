package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/rpc"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/abel198523/Edel-bingo-30/broadcast"
	"github.com/abel198523/Edel-bingo-30/config"
	"github.com/abel198523/Edel-bingo-30/game"
	"github.com/abel198523/Edel-bingo-30/logger"
	"github.com/abel198523/Edel-bingo-30/monitor"
	"github.com/abel198523/Edel-bingo-30/network"
	"github.com/abel198523/Edel-bingo-30/persistence"
	bingorpc "github.com/abel198523/Edel-bingo-30/rpc"
	"github.com/abel198523/Edel-bingo-30/services"
	"github.com/abel198523/Edel-bingo-30/session"
	"github.com/abel198523/Edel-bingo-30/timer"
)

type GameServer struct {
	addr           string
	upgrader       websocket.Upgrader
	sessionManager *session.Manager
	broadcaster    broadcast.Broadcaster
	controller     *game.Controller
	scheduler      *timer.TimerManager
	db             persistence.Database
	playerService  *services.PlayerService
	rpcServer      *bingorpc.Server
	mon            *monitor.Monitor
	shutdownChan   chan struct{}
}

func NewGameServer(cfg *config.Config, db persistence.Database, mon *monitor.Monitor) *GameServer {
	sessionManager := session.NewManager()
	broadcaster := broadcast.NewSessionBroadcaster(sessionManager)
	scheduler := timer.NewTimerManager(clockwork.NewRealClock())

	controller := game.NewController(game.Config{
		SelectionTime:     cfg.Game.SelectionTime,
		WinnerDisplayTime: cfg.Game.WinnerDisplayTime,
		StakeAmount:       cfg.Game.StakeAmount,
		CallInterval:      time.Duration(cfg.Game.CallInterval) * time.Second,
		RestartDelay:      time.Duration(cfg.Game.RestartDelay) * time.Second,
	}, sessionManager, broadcaster, db, db, scheduler, mon)

	s := &GameServer{
		addr:           cfg.Server.HTTPAddress,
		sessionManager: sessionManager,
		broadcaster:    broadcaster,
		controller:     controller,
		scheduler:      scheduler,
		db:             db,
		playerService:  services.NewPlayerService(db),
		mon:            mon,
		shutdownChan:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有跨域请求
			},
		},
	}

	rpcServer, err := bingorpc.NewServer(cfg.Server.RPCAddress)
	if err != nil {
		logger.Log.Fatalf("Failed to create RPC server: %v", err)
	}
	s.rpcServer = rpcServer
	rpc.Register(bingorpc.NewBingoService(s.playerService))

	return s
}

func (s *GameServer) Start() error {
	s.scheduler.Start()
	s.controller.Start()
	go s.rpcServer.Start()

	http.HandleFunc("/ws", s.handleWebSocket)
	logger.Log.Infof("Bingo server listening on %s", s.addr)
	return http.ListenAndServe(s.addr, nil)
}

func (s *GameServer) Shutdown() {
	close(s.shutdownChan)
	s.controller.Stop()
	s.scheduler.Stop()
	s.rpcServer.Stop()
}

func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.handleConnection(conn)
}

func (s *GameServer) handleConnection(conn *websocket.Conn) {
	wsConn := network.NewWSConnection(conn)
	sess := s.sessionManager.Create(wsConn)
	s.mon.IncOnlinePlayers()

	logger.Log.Infof("New connection from %s, session %d", wsConn.RemoteAddr(), sess.ID)

	// tell the new client where the round stands right now
	snap := s.controller.Snapshot()
	sess.Send(network.InitEvent{
		Type:          network.EventInit,
		PlayerID:      sess.ID,
		Phase:         snap.Phase,
		TimeLeft:      snap.TimeLeft,
		CalledNumbers: snap.CalledNumbers,
		Winner:        snap.Winner,
		RoundID:       snap.RoundID,
	})

	defer func() {
		logger.Log.Infof("Connection closed from %s, session %d", wsConn.RemoteAddr(), sess.ID)
		s.sessionManager.Remove(sess.ID)
		s.mon.DecOnlinePlayers()
		wsConn.Close()
	}()

	for {
		select {
		case <-s.shutdownChan:
			return
		default:
			envelope, err := wsConn.ReadEnvelope()
			if err != nil {
				if errors.Is(err, network.ErrMalformedMessage) {
					// protocol failure: drop the frame, keep the connection
					logger.Log.Warnf("Malformed message from session %d", sess.ID)
					continue
				}
				return
			}
			start := time.Now()
			s.handleMessage(sess, envelope)
			s.mon.IncMessagesReceived()
			s.mon.ObserveMessageLatency(time.Since(start))
		}
	}
}

func (s *GameServer) handleMessage(sess *session.Session, envelope *network.Envelope) {
	switch envelope.Type {
	case network.MsgTypeAuth:
		s.handleAuth(sess, envelope)
	case network.MsgTypeRegister:
		s.handleRegister(sess, envelope)
	case network.MsgTypeLogin:
		s.handleLogin(sess, envelope)
	case network.MsgTypeSelectCard:
		s.handleSelectCard(sess, envelope)
	case network.MsgTypeConfirmCard:
		s.handleConfirmCard(sess)
	case network.MsgTypeClaimBingo:
		s.handleClaimBingo(sess, envelope)
	case network.MsgTypeGetBalance:
		s.handleGetBalance(sess)
	case network.MsgTypeDeposit:
		s.handleDeposit(sess, envelope)
	case network.MsgTypeGetTransactions:
		s.handleGetTransactions(sess)
	case network.MsgTypeGetGameHistory:
		s.handleGetGameHistory(sess)
	default:
		logger.Log.Infof("Unknown message type: %s", envelope.Type)
	}
}

func (s *GameServer) handleAuth(sess *session.Session, envelope *network.Envelope) {
	var req struct {
		Token string `json:"token"`
	}
	if err := decode(envelope, &req); err != nil {
		return
	}

	user, err := s.db.ResolveToken(req.Token)
	if err != nil {
		sess.Send(map[string]interface{}{"type": "auth_error", "error": "Invalid token"})
		return
	}

	sess.Authenticate(user.ID, user.Username, user.Balance)
	sess.Send(map[string]interface{}{"type": "auth_success", "user": user})
}

func (s *GameServer) handleRegister(sess *session.Session, envelope *network.Envelope) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decode(envelope, &req); err != nil {
		return
	}

	user, token, err := s.db.Register(req.Username, req.Password)
	if err != nil {
		reason := "Registration failed"
		if errors.Is(err, persistence.ErrUsernameTaken) {
			reason = "Username taken"
		}
		logger.Log.Warnf("Registration for %q failed: %v", req.Username, err)
		sess.Send(map[string]interface{}{"type": "register_error", "error": reason})
		return
	}

	sess.Authenticate(user.ID, user.Username, user.Balance)
	sess.Send(map[string]interface{}{"type": "register_success", "token": token, "user": user})
}

func (s *GameServer) handleLogin(sess *session.Session, envelope *network.Envelope) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decode(envelope, &req); err != nil {
		return
	}

	user, token, err := s.db.Login(req.Username, req.Password)
	if err != nil {
		reason := "Login failed"
		if errors.Is(err, persistence.ErrInvalidCredentials) {
			reason = "Invalid credentials"
		}
		sess.Send(map[string]interface{}{"type": "login_error", "error": reason})
		return
	}

	sess.Authenticate(user.ID, user.Username, user.Balance)
	sess.Send(map[string]interface{}{"type": "login_success", "token": token, "user": user})
}

func (s *GameServer) handleSelectCard(sess *session.Session, envelope *network.Envelope) {
	var req struct {
		CardID int `json:"cardId"`
	}
	if err := decode(envelope, &req); err != nil {
		return
	}

	if err := s.controller.SelectCard(sess, req.CardID); err != nil {
		sess.Send(network.ErrorEvent{Type: network.EventError, Error: err.Error()})
	}
}

func (s *GameServer) handleConfirmCard(sess *session.Session) {
	balance, err := s.controller.ConfirmCard(sess)
	if err != nil {
		sess.Send(network.ErrorEvent{Type: network.EventError, Error: err.Error()})
		return
	}

	sess.Send(network.CardConfirmedEvent{
		Type:    network.EventCardConfirmed,
		CardID:  sess.CardID(),
		Balance: balance,
	})
}

func (s *GameServer) handleClaimBingo(sess *session.Session, envelope *network.Envelope) {
	var req struct {
		IsValid bool `json:"isValid"`
	}
	if err := decode(envelope, &req); err != nil {
		return
	}

	s.controller.ClaimBingo(sess, req.IsValid)
}

func (s *GameServer) handleGetBalance(sess *session.Session) {
	if !sess.IsAuthenticated() {
		return
	}

	balance, err := s.db.GetBalance(sess.UserID())
	if err != nil {
		logger.Log.Errorf("Balance lookup for user %d failed: %v", sess.UserID(), err)
		return
	}

	sess.SetBalance(balance)
	sess.Send(network.BalanceUpdateEvent{Type: network.EventBalanceUpdate, Balance: balance})
}

func (s *GameServer) handleDeposit(sess *session.Session, envelope *network.Envelope) {
	var req struct {
		Amount float64 `json:"amount"`
	}
	if err := decode(envelope, &req); err != nil {
		return
	}
	if !sess.IsAuthenticated() || req.Amount <= 0 {
		return
	}

	balance, err := s.db.Deposit(sess.UserID(), req.Amount)
	if err != nil {
		sess.Send(map[string]interface{}{"type": "deposit_error", "error": "Deposit failed"})
		return
	}

	// every session authenticated as this user sees the new balance
	for _, other := range s.sessionManager.GetByUserID(sess.UserID()) {
		other.SetBalance(balance)
	}
	sess.Send(map[string]interface{}{"type": "deposit_success", "balance": balance})
}

func (s *GameServer) handleGetTransactions(sess *session.Session) {
	if !sess.IsAuthenticated() {
		return
	}

	transactions, err := s.playerService.TransactionHistory(sess.UserID())
	if err != nil {
		logger.Log.Errorf("Transaction history for user %d failed: %v", sess.UserID(), err)
		return
	}

	sess.Send(map[string]interface{}{"type": "transactions", "transactions": transactions})
}

func (s *GameServer) handleGetGameHistory(sess *session.Session) {
	if !sess.IsAuthenticated() {
		return
	}

	history, stats, err := s.playerService.GameHistory(sess.UserID())
	if err != nil {
		logger.Log.Errorf("Game history for user %d failed: %v", sess.UserID(), err)
		return
	}

	sess.Send(map[string]interface{}{"type": "game_history", "history": history, "stats": stats})
}

func decode(envelope *network.Envelope, v interface{}) error {
	if err := json.Unmarshal(envelope.Data, v); err != nil {
		logger.Log.Warnf("Bad %s payload: %v", envelope.Type, err)
		return err
	}
	return nil
}
