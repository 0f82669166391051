// models/models.go
package models

import (
	"time"
)

// Transaction types recorded by the wallet.
const (
	TxStake   = "stake"
	TxWin     = "win"
	TxDeposit = "deposit"
)

// Round statuses.
const (
	RoundOpen   = "open"
	RoundClosed = "closed"
)

// UserInfo is the identity payload handed to sessions after authentication.
type UserInfo struct {
	ID       int64   `json:"id"`
	Username string  `json:"username"`
	Balance  float64 `json:"balance"`
}

// TransactionRecord is one wallet movement as reported to clients.
type TransactionRecord struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Amount    float64   `json:"amount"`
	RoundID   int64     `json:"roundId"`
	CreatedAt time.Time `json:"createdAt"`
}

// RoundHistoryEntry is one round a user staked in.
type RoundHistoryEntry struct {
	RoundID  int64     `json:"roundId"`
	CardID   int       `json:"cardId"`
	Stake    float64   `json:"stake"`
	Won      bool      `json:"won"`
	Prize    float64   `json:"prize"`
	PlayedAt time.Time `json:"playedAt"`
}

// PlayerStats aggregates a user's round history.
type PlayerStats struct {
	TotalGames  int     `json:"totalGames"`
	Wins        int     `json:"wins"`
	TotalStaked float64 `json:"totalStaked"`
	TotalWon    float64 `json:"totalWon"`
}
