package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/AP5B/backend/internal/models"
)

// ErrSlotTaken is returned when an availability cell is already assigned.
var ErrSlotTaken = fmt.Errorf("availability slot already assigned")

// OfferFilter narrows a class-offer listing.
type OfferFilter struct {
	Category string
	MinPrice int64
	MaxPrice int64
	Limit    int
	Offset   int
}

// GetClassOfferByID retrieves a non-deleted offer. Returns (nil, nil) when
// the offer is missing or soft-deleted.
func (s *Store) GetClassOfferByID(ctx context.Context, id int64) (*models.ClassOffer, error) {
	var offer models.ClassOffer
	err := s.db.GetContext(ctx, &offer,
		"SELECT * FROM class_offers WHERE id = $1 AND is_deleted = FALSE", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &offer, nil
}

// ListClassOffers returns a filtered page of offers plus the total count.
func (s *Store) ListClassOffers(ctx context.Context, filter OfferFilter) ([]models.ClassOffer, int64, error) {
	where := []string{"is_deleted = FALSE"}
	args := []interface{}{}

	if filter.Category != "" {
		args = append(args, filter.Category)
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.MinPrice > 0 {
		args = append(args, filter.MinPrice)
		where = append(where, fmt.Sprintf("price >= $%d", len(args)))
	}
	if filter.MaxPrice > 0 {
		args = append(args, filter.MaxPrice)
		where = append(where, fmt.Sprintf("price <= $%d", len(args)))
	}

	cond := strings.Join(where, " AND ")

	var total int64
	countQuery := "SELECT COUNT(*) FROM class_offers WHERE " + cond
	if err := s.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, err
	}

	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(
		"SELECT * FROM class_offers WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		cond, len(args)-1, len(args))

	var offers []models.ClassOffer
	if err := s.db.SelectContext(ctx, &offers, query, args...); err != nil {
		return nil, 0, err
	}
	return offers, total, nil
}

// ListClassOffersByAuthor returns a teacher's own offers, deleted ones included.
func (s *Store) ListClassOffersByAuthor(ctx context.Context, authorID int64) ([]models.ClassOffer, error) {
	var offers []models.ClassOffer
	err := s.db.SelectContext(ctx, &offers,
		"SELECT * FROM class_offers WHERE author_id = $1 ORDER BY created_at DESC", authorID)
	return offers, err
}

// CreateClassOffer creates a new class offer
func (s *Store) CreateClassOffer(ctx context.Context, offer *models.ClassOffer) error {
	query := `
		INSERT INTO class_offers (author_id, title, description, category, price)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, is_deleted, created_at`

	return s.db.GetContext(ctx, offer, query,
		offer.AuthorID, offer.Title, offer.Description, offer.Category, offer.Price)
}

// UpdateClassOffer updates the editable fields of an offer
func (s *Store) UpdateClassOffer(ctx context.Context, offer *models.ClassOffer) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE class_offers SET title = $1, description = $2, category = $3, price = $4 WHERE id = $5",
		offer.Title, offer.Description, offer.Category, offer.Price, offer.ID)
	return err
}

// SoftDeleteClassOffer marks an offer as deleted
func (s *Store) SoftDeleteClassOffer(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE class_offers SET is_deleted = TRUE WHERE id = $1", id)
	return err
}

// SaveAvailabilities inserts a batch of schedule cells for a teacher.
// The (teacher_id, day, slot) unique constraint turns duplicates into
// ErrSlotTaken; the whole batch rolls back on the first conflict.
func (s *Store) SaveAvailabilities(ctx context.Context, teacherID int64, cells []models.Availability) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, cell := range cells {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO availabilities (teacher_id, day, slot) VALUES ($1, $2, $3)",
			teacherID, cell.Day, cell.Slot)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrSlotTaken
			}
			return fmt.Errorf("failed to save availability: %w", err)
		}
	}

	return tx.Commit()
}

// ListAvailabilities returns a teacher's schedule grid ordered by day, slot.
func (s *Store) ListAvailabilities(ctx context.Context, teacherID int64) ([]models.Availability, error) {
	var cells []models.Availability
	err := s.db.SelectContext(ctx, &cells,
		"SELECT * FROM availabilities WHERE teacher_id = $1 ORDER BY day, slot", teacherID)
	return cells, err
}

// DeleteAvailabilities removes the given schedule cells for a teacher.
func (s *Store) DeleteAvailabilities(ctx context.Context, teacherID int64, cells []models.Availability) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, cell := range cells {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM availabilities WHERE teacher_id = $1 AND day = $2 AND slot = $3",
			teacherID, cell.Day, cell.Slot); err != nil {
			return fmt.Errorf("failed to delete availability: %w", err)
		}
	}

	return tx.Commit()
}

// CreateReview creates a review of a teacher
func (s *Store) CreateReview(ctx context.Context, review *models.Review) error {
	query := `
		INSERT INTO reviews (author_id, teacher_id, rating, content)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	return s.db.GetContext(ctx, review, query,
		review.AuthorID, review.TeacherID, review.Rating, review.Content)
}

// GetReviewByID retrieves a review. Returns (nil, nil) when missing.
func (s *Store) GetReviewByID(ctx context.Context, id int64) (*models.Review, error) {
	var review models.Review
	err := s.db.GetContext(ctx, &review, "SELECT * FROM reviews WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &review, nil
}

// GetReviewByAuthorAndTeacher finds an existing review of a teacher by an
// author. Returns (nil, nil) when none exists.
func (s *Store) GetReviewByAuthorAndTeacher(ctx context.Context, authorID, teacherID int64) (*models.Review, error) {
	var review models.Review
	err := s.db.GetContext(ctx, &review,
		"SELECT * FROM reviews WHERE author_id = $1 AND teacher_id = $2", authorID, teacherID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &review, nil
}

// ListTeacherReviews returns all reviews received by a teacher.
func (s *Store) ListTeacherReviews(ctx context.Context, teacherID int64) ([]models.Review, error) {
	var reviews []models.Review
	err := s.db.SelectContext(ctx, &reviews,
		"SELECT * FROM reviews WHERE teacher_id = $1 ORDER BY created_at DESC", teacherID)
	return reviews, err
}

// ListUserReviews returns all reviews written by a user.
func (s *Store) ListUserReviews(ctx context.Context, authorID int64) ([]models.Review, error) {
	var reviews []models.Review
	err := s.db.SelectContext(ctx, &reviews,
		"SELECT * FROM reviews WHERE author_id = $1 ORDER BY created_at DESC", authorID)
	return reviews, err
}

// UpdateReview updates rating and content of a review
func (s *Store) UpdateReview(ctx context.Context, review *models.Review) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE reviews SET rating = $1, content = $2 WHERE id = $3",
		review.Rating, review.Content, review.ID)
	return err
}

// DeleteReview removes a review
func (s *Store) DeleteReview(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM reviews WHERE id = $1", id)
	return err
}
