// persistence/interface.go
package persistence

import (
	"errors"

	"github.com/abel198523/Edel-bingo-30/models"
)

// 错误定义
var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrUsernameTaken       = errors.New("username taken")
	ErrInvalidToken        = errors.New("invalid or expired token")
	ErrRecordNotFound      = errors.New("record not found")
)

// WalletGateway is the atomic money-movement boundary. Debit must be
// serialized per user by the implementation: two debits racing for the same
// user must never both succeed past the balance. The engine's in-memory
// staked flag is only a local fast reject, never the correctness guarantee.
type WalletGateway interface {
	Debit(userID int64, amount float64, roundID int64) (float64, error)
	Credit(userID int64, amount float64, roundID int64) (float64, error)
	Deposit(userID int64, amount float64) (float64, error)
	GetBalance(userID int64) (float64, error)
	TransactionHistory(userID int64, limit int) ([]models.TransactionRecord, error)
}

// RoundStore keeps the durable round / participant / winner records.
type RoundStore interface {
	OpenRound(stake float64) (int64, error)
	AddParticipant(roundID, userID int64, cardID int, stake float64) error
	// CloseRound records the winner and returns the round's collected pot.
	CloseRound(roundID, winnerUserID int64, cardID int, calledNumbers []int) (float64, error)
	UserHistory(userID int64, limit int) ([]models.RoundHistoryEntry, error)
	UserStats(userID int64) (*models.PlayerStats, error)
}

// IdentityGateway authenticates users and issues bearer tokens.
type IdentityGateway interface {
	Register(username, password string) (*models.UserInfo, string, error)
	Login(username, password string) (*models.UserInfo, string, error)
	ResolveToken(token string) (*models.UserInfo, error)
}

// Database bundles the gateways one backend provides.
type Database interface {
	WalletGateway
	RoundStore
	IdentityGateway
	Close() error
}
