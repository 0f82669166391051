package rpc

import (
	"net"
	"net/rpc"

	"github.com/abel198523/Edel-bingo-30/logger"
	"github.com/abel198523/Edel-bingo-30/models"
	"github.com/abel198523/Edel-bingo-30/services"
)

// Server manages the admin RPC listener.
type Server struct {
	listener net.Listener
	address  string
}

// NewServer creates a new RPC server. Services are registered by the caller
// before Start.
func NewServer(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  addr,
	}, nil
}

// Start begins listening for RPC requests.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if _, ok := err.(*net.OpError); ok {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// BingoService exposes admin RPC methods over the player service.
type BingoService struct {
	playerService *services.PlayerService
}

func NewBingoService(ps *services.PlayerService) *BingoService {
	return &BingoService{playerService: ps}
}

type GetPlayerArgs struct {
	UserID int64
}

type GetPlayerReply struct {
	Data map[string]interface{}
}

// GetPlayerWithStats follows the net/rpc signature: exported method,
// exported arguments, second argument a pointer, error return.
func (bs *BingoService) GetPlayerWithStats(args *GetPlayerArgs, reply *GetPlayerReply) error {
	data, err := bs.playerService.GetPlayerWithStats(args.UserID)
	if err != nil {
		return err
	}
	reply.Data = data
	return nil
}

type GetGameHistoryReply struct {
	History []models.RoundHistoryEntry
	Stats   *models.PlayerStats
}

// GetGameHistory returns the rounds a user staked in and their aggregate
// win/stake totals.
func (bs *BingoService) GetGameHistory(args *GetPlayerArgs, reply *GetGameHistoryReply) error {
	history, stats, err := bs.playerService.GameHistory(args.UserID)
	if err != nil {
		return err
	}
	reply.History = history
	reply.Stats = stats
	return nil
}
