// services/player_service.go
package services

import (
	"github.com/abel198523/Edel-bingo-30/models"
	"github.com/abel198523/Edel-bingo-30/persistence"
)

const historyLimit = 50

type PlayerService struct {
	wallet persistence.WalletGateway
	rounds persistence.RoundStore
}

func NewPlayerService(db persistence.Database) *PlayerService {
	return &PlayerService{wallet: db, rounds: db}
}

// GetPlayerWithStats 获取玩家余额和统计
func (s *PlayerService) GetPlayerWithStats(userID int64) (map[string]interface{}, error) {
	balance, err := s.wallet.GetBalance(userID)
	if err != nil {
		return nil, err
	}

	stats, err := s.rounds.UserStats(userID)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"balance": balance,
		"stats":   stats,
	}, nil
}

func (s *PlayerService) TransactionHistory(userID int64) ([]models.TransactionRecord, error) {
	return s.wallet.TransactionHistory(userID, historyLimit)
}

func (s *PlayerService) GameHistory(userID int64) ([]models.RoundHistoryEntry, *models.PlayerStats, error) {
	history, err := s.rounds.UserHistory(userID, historyLimit)
	if err != nil {
		return nil, nil, err
	}

	stats, err := s.rounds.UserStats(userID)
	if err != nil {
		return nil, nil, err
	}

	return history, stats, nil
}
