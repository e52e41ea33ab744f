// Package store persists per-user credentials: the remote API key and
// the last payout account used for a successful withdrawal.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/rajeshboy669/linxbot/core/logger"
	"github.com/rajeshboy669/linxbot/core/telegram/format"
	"log/slog"
)

// ErrNotFound is returned when no record exists for the user.
var ErrNotFound = errors.New("store: user not found")

// User is one credential record, keyed by Telegram user ID.
type User struct {
	TelegramID    int64     `db:"telegram_id"`
	APIKey        string    `db:"api_key"`
	PayoutAccount *string   `db:"payout_account"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

// Users provides single-record lookups and upserts over the users table.
type Users struct {
	db *sqlx.DB
}

// NewUsers wraps the given connection pool.
func NewUsers(db *sqlx.DB) *Users {
	return &Users{db: db}
}

// GetByTelegramID loads the record for a user, or ErrNotFound.
func (s *Users) GetByTelegramID(ctx context.Context, telegramID int64) (*User, error) {
	var u User
	err := s.db.GetContext(ctx, &u,
		`SELECT telegram_id, api_key, payout_account, created_at, updated_at
		   FROM users WHERE telegram_id = $1`, telegramID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		logger.Error(ctx, "service.store", "user.get",
			slog.String("status", "fail"),
			slog.Int64("user_id", telegramID),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("store: get user: %w", err)
	}
	return &u, nil
}

// UpsertAPIKey registers or replaces the user's API credential.
func (s *Users) UpsertAPIKey(ctx context.Context, telegramID int64, apiKey string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (telegram_id, api_key)
		 VALUES ($1, $2)
		 ON CONFLICT (telegram_id)
		 DO UPDATE SET api_key = EXCLUDED.api_key, updated_at = now()`,
		telegramID, apiKey)
	if err != nil {
		logger.Error(ctx, "service.store", "user.upsert_key",
			slog.String("status", "fail"),
			slog.Int64("user_id", telegramID),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("store: upsert api key: %w", err)
	}
	logger.Info(ctx, "service.store", "user.upsert_key",
		slog.String("status", "ok"),
		slog.Int64("user_id", telegramID),
	)
	return nil
}

// SavePayoutAccount remembers the account descriptor used for a
// successful withdrawal so later withdrawals can reuse it. Idempotent.
func (s *Users) SavePayoutAccount(ctx context.Context, telegramID int64, account string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET payout_account = $2, updated_at = now()
		  WHERE telegram_id = $1`,
		telegramID, account)
	if err != nil {
		logger.Error(ctx, "service.store", "user.save_account",
			slog.String("status", "fail"),
			slog.Int64("user_id", telegramID),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("store: save payout account: %w", err)
	}
	return nil
}

// SavedPayoutAccount returns the remembered account descriptor for the
// user, when one exists.
func (s *Users) SavedPayoutAccount(ctx context.Context, telegramID int64) (string, bool, error) {
	u, err := s.GetByTelegramID(ctx, telegramID)
	if errors.Is(err, ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	account := format.DerefString(u.PayoutAccount, "")
	return account, account != "", nil
}

// Delete removes the record entirely (logout).
func (s *Users) Delete(ctx context.Context, telegramID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE telegram_id = $1`, telegramID)
	if err != nil {
		logger.Error(ctx, "service.store", "user.delete",
			slog.String("status", "fail"),
			slog.Int64("user_id", telegramID),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("store: delete user: %w", err)
	}
	logger.Info(ctx, "service.store", "user.delete",
		slog.String("status", "ok"),
		slog.Int64("user_id", telegramID),
	)
	return nil
}
