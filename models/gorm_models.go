// models/gorm_models.go
package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// GormUser 用户模型
type GormUser struct {
	gorm.Model
	Username     string  `gorm:"uniqueIndex;not null"`
	PasswordHash string  `gorm:"not null"`
	Balance      float64 `gorm:"not null;default:0"`
	LastLoginAt  *time.Time
}

func (GormUser) TableName() string { return "users" }

// GormTransaction 钱包流水模型
type GormTransaction struct {
	gorm.Model
	UserID  int64   `gorm:"index;not null"`
	RoundID int64   `gorm:"index"`
	Type    string  `gorm:"not null"` // stake / win / deposit
	Amount  float64 `gorm:"not null"`
}

func (GormTransaction) TableName() string { return "transactions" }

// GormRound 游戏轮次模型
type GormRound struct {
	gorm.Model
	Stake         float64       `gorm:"not null"`
	Status        string        `gorm:"not null;default:'open'"`
	TotalPot      float64       `gorm:"not null;default:0"`
	WinnerUserID  *int64        `gorm:"index"`
	WinnerCardID  *int
	CalledNumbers pq.Int64Array `gorm:"type:integer[]"`
}

func (GormRound) TableName() string { return "rounds" }

// GormParticipant 轮次参与者模型
type GormParticipant struct {
	gorm.Model
	RoundID int64   `gorm:"index;not null"`
	UserID  int64   `gorm:"index;not null"`
	CardID  int     `gorm:"not null"`
	Stake   float64 `gorm:"not null"`
}

func (GormParticipant) TableName() string { return "participants" }

// GormAuthToken 登录令牌模型
type GormAuthToken struct {
	gorm.Model
	Token     string    `gorm:"uniqueIndex;not null"`
	UserID    int64     `gorm:"index;not null"`
	ExpiresAt time.Time `gorm:"not null"`
}

func (GormAuthToken) TableName() string { return "auth_tokens" }
