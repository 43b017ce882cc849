package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/AP5B/backend/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// pq unique_violation
const uniqueViolation = "23505"

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

func isUniqueViolation(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return string(pqErr.Code) == uniqueViolation
	}
	return false
}

// GetUserByID retrieves a user by ID. Returns (nil, nil) when no row exists.
func (s *Store) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, "SELECT * FROM users WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetMercadopagoInfo retrieves the linked payment credential for a user.
// Returns (nil, nil) when the user has never linked an account.
func (s *Store) GetMercadopagoInfo(ctx context.Context, userID int64) (*models.MercadopagoInfo, error) {
	var info models.MercadopagoInfo
	err := s.db.GetContext(ctx, &info,
		"SELECT * FROM mercadopago_info WHERE user_id = $1", userID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// UpsertMercadopagoInfo creates or replaces the credential row for a user.
// First-time link inserts, relinking and refresh overwrite in place.
func (s *Store) UpsertMercadopagoInfo(ctx context.Context, info *models.MercadopagoInfo) error {
	query := `
		INSERT INTO mercadopago_info
			(user_id, access_token, access_token_expiration, refresh_token, refresh_token_expiration)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			access_token_expiration = EXCLUDED.access_token_expiration,
			refresh_token = EXCLUDED.refresh_token,
			refresh_token_expiration = EXCLUDED.refresh_token_expiration`

	_, err := s.db.ExecContext(ctx, query,
		info.UserID, info.AccessToken, info.AccessTokenExpiration,
		info.RefreshToken, info.RefreshTokenExpiration)
	return err
}

// SoftDeleteUserCascade marks the user deleted and soft-deletes every class
// offer they authored, in one transaction.
func (s *Store) SoftDeleteUserCascade(ctx context.Context, userID int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"UPDATE users SET is_deleted = TRUE WHERE id = $1", userID); err != nil {
		return fmt.Errorf("failed to soft delete user: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE class_offers SET is_deleted = TRUE WHERE author_id = $1", userID); err != nil {
		return fmt.Errorf("failed to soft delete user offers: %w", err)
	}

	return tx.Commit()
}

// IsEventProcessed checks if an event has been processed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	return exists, err
}

// MarkEventProcessed marks an event as processed
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return err
}
