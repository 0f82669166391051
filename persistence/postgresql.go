// persistence/postgresql.go
package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"

	"github.com/abel198523/Edel-bingo-30/models"
)

// PostgreSQL 数据库实现 (database/sql)
type PostgreSQL struct {
	db *sql.DB
}

// NewPostgreSQL 创建 PostgreSQL 数据库连接
func NewPostgreSQL(host string, port int, user, password, dbname string) (*PostgreSQL, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	// 设置连接池参数
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := initTables(db); err != nil {
		return nil, err
	}

	return &PostgreSQL{db: db}, nil
}

// initTables 初始化数据库表结构
func initTables(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
            id SERIAL PRIMARY KEY,
            username VARCHAR(255) UNIQUE NOT NULL,
            password_hash VARCHAR(255) NOT NULL,
            balance NUMERIC(18,2) NOT NULL DEFAULT 0,
            last_login_at TIMESTAMP,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS transactions (
            id SERIAL PRIMARY KEY,
            user_id BIGINT NOT NULL,
            round_id BIGINT,
            type VARCHAR(32) NOT NULL,
            amount NUMERIC(18,2) NOT NULL,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS rounds (
            id SERIAL PRIMARY KEY,
            stake NUMERIC(18,2) NOT NULL,
            status VARCHAR(32) NOT NULL DEFAULT 'open',
            total_pot NUMERIC(18,2) NOT NULL DEFAULT 0,
            winner_user_id BIGINT,
            winner_card_id INT,
            called_numbers INTEGER[],
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS participants (
            id SERIAL PRIMARY KEY,
            round_id BIGINT NOT NULL,
            user_id BIGINT NOT NULL,
            card_id INT NOT NULL,
            stake NUMERIC(18,2) NOT NULL,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS auth_tokens (
            id SERIAL PRIMARY KEY,
            token VARCHAR(255) UNIQUE NOT NULL,
            user_id BIGINT NOT NULL,
            expires_at TIMESTAMP NOT NULL,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// --- WalletGateway ---

func (p *PostgreSQL) Debit(userID int64, amount float64, roundID int64) (float64, error) {
	tx, err := p.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	// 条件更新是按用户串行化的关键: 两个并发扣款只有一个能通过余额判断
	var balance float64
	err = tx.QueryRow(
		`UPDATE users SET balance = balance - $1 WHERE id = $2 AND balance >= $1 RETURNING balance`,
		amount, userID,
	).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrInsufficientBalance
	}
	if err != nil {
		return 0, err
	}

	if _, err := tx.Exec(
		`INSERT INTO transactions (user_id, round_id, type, amount) VALUES ($1, $2, $3, $4)`,
		userID, roundID, models.TxStake, -amount,
	); err != nil {
		return 0, err
	}

	return balance, tx.Commit()
}

func (p *PostgreSQL) Credit(userID int64, amount float64, roundID int64) (float64, error) {
	return p.credit(userID, amount, roundID, models.TxWin)
}

func (p *PostgreSQL) Deposit(userID int64, amount float64) (float64, error) {
	return p.credit(userID, amount, 0, models.TxDeposit)
}

func (p *PostgreSQL) credit(userID int64, amount float64, roundID int64, txType string) (float64, error) {
	tx, err := p.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var balance float64
	err = tx.QueryRow(
		`UPDATE users SET balance = balance + $1 WHERE id = $2 RETURNING balance`,
		amount, userID,
	).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrRecordNotFound
	}
	if err != nil {
		return 0, err
	}

	if _, err := tx.Exec(
		`INSERT INTO transactions (user_id, round_id, type, amount) VALUES ($1, $2, $3, $4)`,
		userID, roundID, txType, amount,
	); err != nil {
		return 0, err
	}

	return balance, tx.Commit()
}

func (p *PostgreSQL) GetBalance(userID int64) (float64, error) {
	var balance float64
	err := p.db.QueryRow(`SELECT balance FROM users WHERE id = $1`, userID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrRecordNotFound
	}
	return balance, err
}

func (p *PostgreSQL) TransactionHistory(userID int64, limit int) ([]models.TransactionRecord, error) {
	rows, err := p.db.Query(
		`SELECT id, type, amount, COALESCE(round_id, 0), created_at
         FROM transactions WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.TransactionRecord
	for rows.Next() {
		var r models.TransactionRecord
		if err := rows.Scan(&r.ID, &r.Type, &r.Amount, &r.RoundID, &r.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// --- RoundStore ---

func (p *PostgreSQL) OpenRound(stake float64) (int64, error) {
	var id int64
	err := p.db.QueryRow(
		`INSERT INTO rounds (stake, status) VALUES ($1, $2) RETURNING id`,
		stake, models.RoundOpen,
	).Scan(&id)
	return id, err
}

func (p *PostgreSQL) AddParticipant(roundID, userID int64, cardID int, stake float64) error {
	tx, err := p.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO participants (round_id, user_id, card_id, stake) VALUES ($1, $2, $3, $4)`,
		roundID, userID, cardID, stake,
	); err != nil {
		return err
	}

	if _, err := tx.Exec(
		`UPDATE rounds SET total_pot = total_pot + $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`,
		stake, roundID,
	); err != nil {
		return err
	}

	return tx.Commit()
}

func (p *PostgreSQL) CloseRound(roundID, winnerUserID int64, cardID int, calledNumbers []int) (float64, error) {
	numbers := make([]int64, 0, len(calledNumbers))
	for _, n := range calledNumbers {
		numbers = append(numbers, int64(n))
	}

	var pot float64
	err := p.db.QueryRow(
		`UPDATE rounds
         SET status = $1, winner_user_id = $2, winner_card_id = $3,
             called_numbers = $4, updated_at = CURRENT_TIMESTAMP
         WHERE id = $5
         RETURNING total_pot`,
		models.RoundClosed, winnerUserID, cardID, pq.Array(numbers), roundID,
	).Scan(&pot)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrRecordNotFound
	}
	return pot, err
}

func (p *PostgreSQL) UserHistory(userID int64, limit int) ([]models.RoundHistoryEntry, error) {
	rows, err := p.db.Query(
		`SELECT
            p.round_id,
            p.card_id,
            p.stake,
            COALESCE(r.winner_user_id = p.user_id, false) AS won,
            CASE WHEN r.winner_user_id = p.user_id THEN r.total_pot ELSE 0 END AS prize,
            p.created_at
         FROM participants p
         JOIN rounds r ON r.id = p.round_id
         WHERE p.user_id = $1
         ORDER BY p.created_at DESC
         LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.RoundHistoryEntry
	for rows.Next() {
		var e models.RoundHistoryEntry
		if err := rows.Scan(&e.RoundID, &e.CardID, &e.Stake, &e.Won, &e.Prize, &e.PlayedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (p *PostgreSQL) UserStats(userID int64) (*models.PlayerStats, error) {
	var stats models.PlayerStats
	err := p.db.QueryRow(
		`SELECT
            COUNT(*),
            COALESCE(SUM(CASE WHEN r.winner_user_id = p.user_id THEN 1 ELSE 0 END), 0),
            COALESCE(SUM(p.stake), 0),
            COALESCE(SUM(CASE WHEN r.winner_user_id = p.user_id THEN r.total_pot ELSE 0 END), 0)
         FROM participants p
         JOIN rounds r ON r.id = p.round_id
         WHERE p.user_id = $1`,
		userID,
	).Scan(&stats.TotalGames, &stats.Wins, &stats.TotalStaked, &stats.TotalWon)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// --- IdentityGateway ---

func (p *PostgreSQL) Register(username, password string) (*models.UserInfo, string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", err
	}

	var id int64
	err = p.db.QueryRow(
		`INSERT INTO users (username, password_hash) VALUES ($1, $2)
         ON CONFLICT (username) DO NOTHING RETURNING id`,
		username, string(hash),
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", ErrUsernameTaken
	}
	if err != nil {
		return nil, "", err
	}

	token, err := p.issueToken(id)
	if err != nil {
		return nil, "", err
	}
	return &models.UserInfo{ID: id, Username: username, Balance: 0}, token, nil
}

func (p *PostgreSQL) Login(username, password string) (*models.UserInfo, string, error) {
	var (
		id      int64
		hash    string
		balance float64
	)
	err := p.db.QueryRow(
		`SELECT id, password_hash, balance FROM users WHERE username = $1`,
		username,
	).Scan(&id, &hash, &balance)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	if _, err := p.db.Exec(
		`UPDATE users SET last_login_at = CURRENT_TIMESTAMP WHERE id = $1`, id,
	); err != nil {
		return nil, "", err
	}

	token, err := p.issueToken(id)
	if err != nil {
		return nil, "", err
	}
	return &models.UserInfo{ID: id, Username: username, Balance: balance}, token, nil
}

func (p *PostgreSQL) ResolveToken(token string) (*models.UserInfo, error) {
	var user models.UserInfo
	err := p.db.QueryRow(
		`SELECT u.id, u.username, u.balance
         FROM auth_tokens t
         JOIN users u ON u.id = t.user_id
         WHERE t.token = $1 AND t.expires_at > CURRENT_TIMESTAMP`,
		token,
	).Scan(&user.ID, &user.Username, &user.Balance)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (p *PostgreSQL) issueToken(userID int64) (string, error) {
	token := uuid.New().String()
	_, err := p.db.Exec(
		`INSERT INTO auth_tokens (token, user_id, expires_at) VALUES ($1, $2, $3)`,
		token, userID, time.Now().Add(tokenTTL),
	)
	if err != nil {
		return "", err
	}
	return token, nil
}

// Close 关闭数据库连接
func (p *PostgreSQL) Close() error {
	return p.db.Close()
}
