package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/AP5B/backend/internal/models"

	"github.com/lib/pq"
)

// ErrDuplicateBooking is returned when the (class_offer_id, user_id, day,
// slot) unique constraint rejects an insert.
var ErrDuplicateBooking = fmt.Errorf("duplicate booking for slot")

// CreateClassRequest inserts a booking in state Created. The partial unique
// index on the booking tuple catches the duplicate-insert race that a
// check-then-insert alone would leave open.
func (s *Store) CreateClassRequest(ctx context.Context, req *models.ClassRequest) error {
	query := `
		INSERT INTO class_requests (class_offer_id, user_id, day, slot, state, price_created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := s.db.GetContext(ctx, req, query,
		req.ClassOfferID, req.UserID, req.Day, req.Slot, req.State, req.PriceCreatedAt)
	if err != nil && isUniqueViolation(err) {
		return ErrDuplicateBooking
	}
	return err
}

// GetClassRequestByID retrieves a booking. Returns (nil, nil) when missing.
func (s *Store) GetClassRequestByID(ctx context.Context, id int64) (*models.ClassRequest, error) {
	var req models.ClassRequest
	err := s.db.GetContext(ctx, &req, "SELECT * FROM class_requests WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// FindClassRequestBySlot looks up an existing booking for the same
// (offer, student, day, slot) tuple. Returns (nil, nil) when none exists.
func (s *Store) FindClassRequestBySlot(ctx context.Context, classOfferID, userID int64, day, slot int) (*models.ClassRequest, error) {
	var req models.ClassRequest
	err := s.db.GetContext(ctx, &req,
		"SELECT * FROM class_requests WHERE class_offer_id = $1 AND user_id = $2 AND day = $3 AND slot = $4",
		classOfferID, userID, day, slot)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// ListClassRequestsByUser returns a student's bookings, newest first.
func (s *Store) ListClassRequestsByUser(ctx context.Context, userID int64, limit, offset int) ([]models.ClassRequest, int64, error) {
	var total int64
	if err := s.db.GetContext(ctx, &total,
		"SELECT COUNT(*) FROM class_requests WHERE user_id = $1", userID); err != nil {
		return nil, 0, err
	}

	var reqs []models.ClassRequest
	err := s.db.SelectContext(ctx, &reqs,
		"SELECT * FROM class_requests WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3",
		userID, limit, offset)
	return reqs, total, err
}

// ListClassRequestsByTutor returns bookings received across all of a
// tutor's non-deleted offers, newest first.
func (s *Store) ListClassRequestsByTutor(ctx context.Context, tutorID int64, limit, offset int) ([]models.ClassRequest, int64, error) {
	var total int64
	if err := s.db.GetContext(ctx, &total, `
		SELECT COUNT(*) FROM class_requests cr
		JOIN class_offers co ON co.id = cr.class_offer_id
		WHERE co.author_id = $1 AND co.is_deleted = FALSE`, tutorID); err != nil {
		return nil, 0, err
	}

	var reqs []models.ClassRequest
	err := s.db.SelectContext(ctx, &reqs, `
		SELECT cr.* FROM class_requests cr
		JOIN class_offers co ON co.id = cr.class_offer_id
		WHERE co.author_id = $1 AND co.is_deleted = FALSE
		ORDER BY cr.created_at DESC LIMIT $2 OFFSET $3`,
		tutorID, limit, offset)
	return reqs, total, err
}

// ListClassRequestsByOffer returns all bookings on a single offer.
func (s *Store) ListClassRequestsByOffer(ctx context.Context, classOfferID int64, limit, offset int) ([]models.ClassRequest, int64, error) {
	var total int64
	if err := s.db.GetContext(ctx, &total,
		"SELECT COUNT(*) FROM class_requests WHERE class_offer_id = $1", classOfferID); err != nil {
		return nil, 0, err
	}

	var reqs []models.ClassRequest
	err := s.db.SelectContext(ctx, &reqs,
		"SELECT * FROM class_requests WHERE class_offer_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3",
		classOfferID, limit, offset)
	return reqs, total, err
}

// ListUserRequestsInOffer returns a student's bookings inside one offer.
func (s *Store) ListUserRequestsInOffer(ctx context.Context, userID, classOfferID int64) ([]models.ClassRequest, error) {
	var reqs []models.ClassRequest
	err := s.db.SelectContext(ctx, &reqs,
		"SELECT * FROM class_requests WHERE user_id = $1 AND class_offer_id = $2 ORDER BY created_at DESC",
		userID, classOfferID)
	return reqs, err
}

// DeleteClassRequest removes a booking
func (s *Store) DeleteClassRequest(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM class_requests WHERE id = $1", id)
	return err
}

// UpdateRequestState sets a booking's state unconditionally.
func (s *Store) UpdateRequestState(ctx context.Context, id int64, state string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE class_requests SET state = $1 WHERE id = $2", state, id)
	return err
}

// TransitionRequestState moves a booking to a new state only if its current
// state is one of from, holding a row lock for the read-decide-write.
// Returns false when the booking was not in an allowed state.
func (s *Store) TransitionRequestState(ctx context.Context, id int64, from []string, to string) (bool, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	var current string
	err = tx.GetContext(ctx, &current,
		"SELECT state FROM class_requests WHERE id = $1 FOR UPDATE", id)
	if err != nil {
		return false, fmt.Errorf("failed to lock class request: %w", err)
	}

	allowed := false
	for _, st := range from {
		if current == st {
			allowed = true
			break
		}
	}
	if !allowed {
		return false, nil
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE class_requests SET state = $1 WHERE id = $2", to, id); err != nil {
		return false, fmt.Errorf("failed to update class request state: %w", err)
	}

	return true, tx.Commit()
}

// CreateTransaction records a freshly created payment preference.
func (s *Store) CreateTransaction(ctx context.Context, txn *models.Transaction) error {
	query := `
		INSERT INTO transactions (class_request_id, preference_id, status)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	return s.db.GetContext(ctx, txn, query,
		txn.ClassRequestID, txn.PreferenceID, txn.Status)
}

// LatestTransaction returns the most recent transaction of a booking.
// Returns (nil, nil) when the booking has none.
func (s *Store) LatestTransaction(ctx context.Context, classRequestID int64) (*models.Transaction, error) {
	var txn models.Transaction
	err := s.db.GetContext(ctx, &txn,
		"SELECT * FROM transactions WHERE class_request_id = $1 ORDER BY created_at DESC LIMIT 1",
		classRequestID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// LatestTransactionWithStatus returns the most recent transaction of a
// booking among the given statuses. Returns (nil, nil) when none match.
func (s *Store) LatestTransactionWithStatus(ctx context.Context, classRequestID int64, statuses []string) (*models.Transaction, error) {
	var txn models.Transaction
	err := s.db.GetContext(ctx, &txn,
		"SELECT * FROM transactions WHERE class_request_id = $1 AND status = ANY($2) ORDER BY created_at DESC LIMIT 1",
		classRequestID, pq.Array(statuses))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// UpdateTransactionStatus updates the provider-reported status of a transaction.
func (s *Store) UpdateTransactionStatus(ctx context.Context, id int64, status string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE transactions SET status = $1 WHERE id = $2", status, id)
	return err
}

// MarkRequestPaid applies the webhook outcome atomically: the transaction
// gets the provider payment id, status and confirmation code, and the
// booking moves to Paid, all under one row lock.
func (s *Store) MarkRequestPaid(ctx context.Context, classRequestID, transactionID int64, paymentID, status, confirmCode string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var current string
	if err := tx.GetContext(ctx, &current,
		"SELECT state FROM class_requests WHERE id = $1 FOR UPDATE", classRequestID); err != nil {
		return fmt.Errorf("failed to lock class request: %w", err)
	}
	// A late or replayed callback must not pull a booking back from a
	// terminal or confirmed state.
	if current != models.StatePaymentPending && current != models.StatePaid {
		return nil
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE transactions SET payment_id = $1, status = $2, confirm_code = $3 WHERE id = $4",
		paymentID, status, confirmCode, transactionID); err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE class_requests SET state = $1 WHERE id = $2",
		models.StatePaid, classRequestID); err != nil {
		return fmt.Errorf("failed to update class request state: %w", err)
	}

	return tx.Commit()
}
