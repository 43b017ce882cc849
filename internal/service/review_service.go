package service

import (
	"context"

	"github.com/AP5B/backend/internal/models"
	"github.com/AP5B/backend/internal/util"

	"go.uber.org/zap"
)

// ReviewService manages student reviews of teachers. Each (student, teacher)
// pair carries at most one review.
type ReviewService struct {
	reviews ReviewStore
	users   UserStore
	logger  *zap.Logger
}

// NewReviewService creates a new review service
func NewReviewService(reviews ReviewStore, users UserStore) *ReviewService {
	return &ReviewService{reviews: reviews, users: users, logger: util.GetLogger()}
}

// ReviewBody is the create/update payload for a review.
type ReviewBody struct {
	TeacherID int64  `json:"teacher_id" binding:"required"`
	Rating    int    `json:"rating" binding:"required,min=1,max=5"`
	Content   string `json:"content"`
}

// Create adds a student's review of a teacher.
func (s *ReviewService) Create(ctx context.Context, authorID int64, body *ReviewBody) (*models.Review, error) {
	if body.Rating < 1 || body.Rating > 5 {
		return nil, NewInvalidInputError("rating must be between 1 and 5")
	}
	if body.TeacherID == authorID {
		return nil, NewForbiddenError("cannot review yourself")
	}

	teacher, err := s.users.GetUserByID(ctx, body.TeacherID)
	if err != nil {
		return nil, NewInternalError(err)
	}
	if teacher == nil || teacher.Role != models.RoleTeacher {
		return nil, NewNotFoundError("teacher not found")
	}

	existing, err := s.reviews.GetReviewByAuthorAndTeacher(ctx, authorID, body.TeacherID)
	if err != nil {
		return nil, NewInternalError(err)
	}
	if existing != nil {
		return nil, NewConflictError("you have already reviewed this teacher")
	}

	review := &models.Review{
		AuthorID:  authorID,
		TeacherID: body.TeacherID,
		Rating:    body.Rating,
		Content:   body.Content,
	}
	if err := s.reviews.CreateReview(ctx, review); err != nil {
		return nil, NewInternalError(err)
	}

	s.logger.Info("Review created",
		zap.Int64("review_id", review.ID),
		zap.Int64("teacher_id", body.TeacherID))
	return review, nil
}

// ListForTeacher returns all reviews left on a teacher.
func (s *ReviewService) ListForTeacher(ctx context.Context, teacherID int64) ([]models.Review, error) {
	reviews, err := s.reviews.ListTeacherReviews(ctx, teacherID)
	if err != nil {
		return nil, NewInternalError(err)
	}
	return reviews, nil
}

// ListOwn returns the reviews the student has written.
func (s *ReviewService) ListOwn(ctx context.Context, authorID int64) ([]models.Review, error) {
	reviews, err := s.reviews.ListUserReviews(ctx, authorID)
	if err != nil {
		return nil, NewInternalError(err)
	}
	return reviews, nil
}

// Update edits the student's own review.
func (s *ReviewService) Update(ctx context.Context, authorID, reviewID int64, rating int, content string) (*models.Review, error) {
	if rating < 1 || rating > 5 {
		return nil, NewInvalidInputError("rating must be between 1 and 5")
	}

	review, err := s.ownedReview(ctx, authorID, reviewID)
	if err != nil {
		return nil, err
	}

	review.Rating = rating
	review.Content = content
	if err := s.reviews.UpdateReview(ctx, review); err != nil {
		return nil, NewInternalError(err)
	}
	return review, nil
}

// Delete removes the student's own review.
func (s *ReviewService) Delete(ctx context.Context, authorID, reviewID int64) error {
	if _, err := s.ownedReview(ctx, authorID, reviewID); err != nil {
		return err
	}
	if err := s.reviews.DeleteReview(ctx, reviewID); err != nil {
		return NewInternalError(err)
	}
	return nil
}

func (s *ReviewService) ownedReview(ctx context.Context, authorID, reviewID int64) (*models.Review, error) {
	review, err := s.reviews.GetReviewByID(ctx, reviewID)
	if err != nil {
		return nil, NewInternalError(err)
	}
	if review == nil {
		return nil, NewNotFoundError("review not found")
	}
	if review.AuthorID != authorID {
		return nil, NewForbiddenError("review does not belong to the current user")
	}
	return review, nil
}
