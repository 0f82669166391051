// persistence/gorm_postgresql.go
package persistence

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/abel198523/Edel-bingo-30/models"
)

const tokenTTL = 7 * 24 * time.Hour

// GormPostgreSQL 使用GORM的PostgreSQL实现
type GormPostgreSQL struct {
	db *gorm.DB
}

// NewGormPostgreSQL 创建GORM PostgreSQL数据库连接
func NewGormPostgreSQL(host string, port int, user, password, dbname string) (*GormPostgreSQL, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold: time.Second,
			LogLevel:      logger.Silent,
			Colorful:      false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// 设置连接池
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := autoMigrate(db); err != nil {
		return nil, err
	}

	return &GormPostgreSQL{db: db}, nil
}

func autoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.GormUser{},
		&models.GormTransaction{},
		&models.GormRound{},
		&models.GormParticipant{},
		&models.GormAuthToken{},
	)
}

// --- WalletGateway ---

// Debit takes amount from the user's balance for a round stake. The single
// conditional UPDATE is the per-user serialization point: of two concurrent
// debits only one can pass the balance guard.
func (p *GormPostgreSQL) Debit(userID int64, amount float64, roundID int64) (float64, error) {
	var balance float64
	err := p.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.GormUser{}).
			Where("id = ? AND balance >= ?", userID, amount).
			Update("balance", gorm.Expr("balance - ?", amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInsufficientBalance
		}

		record := models.GormTransaction{
			UserID:  userID,
			RoundID: roundID,
			Type:    models.TxStake,
			Amount:  -amount,
		}
		if err := tx.Create(&record).Error; err != nil {
			return err
		}

		return tx.Raw(`SELECT balance FROM users WHERE id = ?`, userID).Scan(&balance).Error
	})
	return balance, err
}

// Credit pays amount into the user's balance (the round pot payout).
func (p *GormPostgreSQL) Credit(userID int64, amount float64, roundID int64) (float64, error) {
	return p.credit(userID, amount, roundID, models.TxWin)
}

func (p *GormPostgreSQL) Deposit(userID int64, amount float64) (float64, error) {
	return p.credit(userID, amount, 0, models.TxDeposit)
}

func (p *GormPostgreSQL) credit(userID int64, amount float64, roundID int64, txType string) (float64, error) {
	var balance float64
	err := p.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.GormUser{}).
			Where("id = ?", userID).
			Update("balance", gorm.Expr("balance + ?", amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrRecordNotFound
		}

		record := models.GormTransaction{
			UserID:  userID,
			RoundID: roundID,
			Type:    txType,
			Amount:  amount,
		}
		if err := tx.Create(&record).Error; err != nil {
			return err
		}

		return tx.Raw(`SELECT balance FROM users WHERE id = ?`, userID).Scan(&balance).Error
	})
	return balance, err
}

func (p *GormPostgreSQL) GetBalance(userID int64) (float64, error) {
	var user models.GormUser
	if err := p.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrRecordNotFound
		}
		return 0, err
	}
	return user.Balance, nil
}

func (p *GormPostgreSQL) TransactionHistory(userID int64, limit int) ([]models.TransactionRecord, error) {
	var rows []models.GormTransaction
	err := p.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	records := make([]models.TransactionRecord, 0, len(rows))
	for _, r := range rows {
		records = append(records, models.TransactionRecord{
			ID:        int64(r.ID),
			Type:      r.Type,
			Amount:    r.Amount,
			RoundID:   r.RoundID,
			CreatedAt: r.CreatedAt,
		})
	}
	return records, nil
}

// --- RoundStore ---

func (p *GormPostgreSQL) OpenRound(stake float64) (int64, error) {
	round := models.GormRound{
		Stake:  stake,
		Status: models.RoundOpen,
	}
	if err := p.db.Create(&round).Error; err != nil {
		return 0, err
	}
	return int64(round.ID), nil
}

// AddParticipant records a staked entry and grows the round's pot.
func (p *GormPostgreSQL) AddParticipant(roundID, userID int64, cardID int, stake float64) error {
	return p.db.Transaction(func(tx *gorm.DB) error {
		participant := models.GormParticipant{
			RoundID: roundID,
			UserID:  userID,
			CardID:  cardID,
			Stake:   stake,
		}
		if err := tx.Create(&participant).Error; err != nil {
			return err
		}

		return tx.Model(&models.GormRound{}).
			Where("id = ?", roundID).
			Update("total_pot", gorm.Expr("total_pot + ?", stake)).Error
	})
}

func (p *GormPostgreSQL) CloseRound(roundID, winnerUserID int64, cardID int, calledNumbers []int) (float64, error) {
	var pot float64
	err := p.db.Transaction(func(tx *gorm.DB) error {
		var round models.GormRound
		if err := tx.First(&round, roundID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRecordNotFound
			}
			return err
		}

		numbers := make(pq.Int64Array, 0, len(calledNumbers))
		for _, n := range calledNumbers {
			numbers = append(numbers, int64(n))
		}

		updates := map[string]interface{}{
			"status":         models.RoundClosed,
			"winner_user_id": winnerUserID,
			"winner_card_id": cardID,
			"called_numbers": numbers,
		}
		if err := tx.Model(&round).Updates(updates).Error; err != nil {
			return err
		}

		pot = round.TotalPot
		return nil
	})
	return pot, err
}

func (p *GormPostgreSQL) UserHistory(userID int64, limit int) ([]models.RoundHistoryEntry, error) {
	var entries []models.RoundHistoryEntry
	err := p.db.Raw(`
        SELECT
            p.round_id,
            p.card_id,
            p.stake,
            COALESCE(r.winner_user_id = p.user_id, false) AS won,
            CASE WHEN r.winner_user_id = p.user_id THEN r.total_pot ELSE 0 END AS prize,
            p.created_at AS played_at
        FROM participants p
        JOIN rounds r ON r.id = p.round_id
        WHERE p.user_id = ?
        ORDER BY p.created_at DESC
        LIMIT ?`,
		userID, limit,
	).Scan(&entries).Error
	return entries, err
}

func (p *GormPostgreSQL) UserStats(userID int64) (*models.PlayerStats, error) {
	var stats models.PlayerStats
	err := p.db.Raw(`
        SELECT
            COUNT(*) AS total_games,
            COALESCE(SUM(CASE WHEN r.winner_user_id = p.user_id THEN 1 ELSE 0 END), 0) AS wins,
            COALESCE(SUM(p.stake), 0) AS total_staked,
            COALESCE(SUM(CASE WHEN r.winner_user_id = p.user_id THEN r.total_pot ELSE 0 END), 0) AS total_won
        FROM participants p
        JOIN rounds r ON r.id = p.round_id
        WHERE p.user_id = ?`,
		userID,
	).Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// --- IdentityGateway ---

func (p *GormPostgreSQL) Register(username, password string) (*models.UserInfo, string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", err
	}

	var user models.GormUser
	err = p.db.Transaction(func(tx *gorm.DB) error {
		var existing models.GormUser
		err := tx.Where("username = ?", username).First(&existing).Error
		if err == nil {
			return ErrUsernameTaken
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		user = models.GormUser{
			Username:     username,
			PasswordHash: string(hash),
		}
		return tx.Create(&user).Error
	})
	if err != nil {
		return nil, "", err
	}

	token, err := p.issueToken(int64(user.ID))
	if err != nil {
		return nil, "", err
	}
	return &models.UserInfo{ID: int64(user.ID), Username: user.Username, Balance: user.Balance}, token, nil
}

func (p *GormPostgreSQL) Login(username, password string) (*models.UserInfo, string, error) {
	var user models.GormUser
	if err := p.db.Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	now := time.Now()
	if err := p.db.Model(&user).Update("last_login_at", &now).Error; err != nil {
		return nil, "", err
	}

	token, err := p.issueToken(int64(user.ID))
	if err != nil {
		return nil, "", err
	}
	return &models.UserInfo{ID: int64(user.ID), Username: user.Username, Balance: user.Balance}, token, nil
}

func (p *GormPostgreSQL) ResolveToken(token string) (*models.UserInfo, error) {
	var row models.GormAuthToken
	err := p.db.Where("token = ? AND expires_at > ?", token, time.Now()).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	var user models.GormUser
	if err := p.db.First(&user, row.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	return &models.UserInfo{ID: int64(user.ID), Username: user.Username, Balance: user.Balance}, nil
}

func (p *GormPostgreSQL) issueToken(userID int64) (string, error) {
	row := models.GormAuthToken{
		Token:     uuid.New().String(),
		UserID:    userID,
		ExpiresAt: time.Now().Add(tokenTTL),
	}
	if err := p.db.Create(&row).Error; err != nil {
		return "", err
	}
	return row.Token, nil
}

// Close 关闭数据库连接
func (p *GormPostgreSQL) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
