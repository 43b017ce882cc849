package service

import (
	"context"

	"github.com/AP5B/backend/internal/models"
	"github.com/AP5B/backend/internal/store"
	"github.com/AP5B/backend/internal/util"

	"go.uber.org/zap"
)

// Categories a class offer may be published under.
var offerCategories = map[string]bool{
	"Mathematics": true,
	"Physics":     true,
	"Chemistry":   true,
	"Biology":     true,
	"Languages":   true,
	"Programming": true,
	"Music":       true,
	"Other":       true,
}

// OfferService handles class-offer CRUD with owner checks.
type OfferService struct {
	offers OfferStore
	logger *zap.Logger
}

// NewOfferService creates a new class-offer service
func NewOfferService(offers OfferStore) *OfferService {
	return &OfferService{offers: offers, logger: util.GetLogger()}
}

// OfferBody is the create/update payload for a class offer.
type OfferBody struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Category    string `json:"category" binding:"required"`
	Price       int64  `json:"price" binding:"required,min=1"`
}

// List returns published offers matching the filter, with the total count
// for pagination.
func (s *OfferService) List(ctx context.Context, filter store.OfferFilter) ([]models.ClassOffer, int64, error) {
	offers, total, err := s.offers.ListClassOffers(ctx, filter)
	if err != nil {
		return nil, 0, NewInternalError(err)
	}
	return offers, total, nil
}

// ListByAuthor returns a teacher's own offers.
func (s *OfferService) ListByAuthor(ctx context.Context, authorID int64) ([]models.ClassOffer, error) {
	offers, err := s.offers.ListClassOffersByAuthor(ctx, authorID)
	if err != nil {
		return nil, NewInternalError(err)
	}
	return offers, nil
}

// GetByID returns one published offer.
func (s *OfferService) GetByID(ctx context.Context, id int64) (*models.ClassOffer, error) {
	offer, err := s.offers.GetClassOfferByID(ctx, id)
	if err != nil {
		return nil, NewInternalError(err)
	}
	if offer == nil {
		return nil, NewNotFoundError("class offer not found")
	}
	return offer, nil
}

// Create publishes a new offer under the teacher's account.
func (s *OfferService) Create(ctx context.Context, authorID int64, body *OfferBody) (*models.ClassOffer, error) {
	if !offerCategories[body.Category] {
		return nil, NewInvalidInputError("unknown class category")
	}

	offer := &models.ClassOffer{
		AuthorID:    authorID,
		Title:       body.Title,
		Description: body.Description,
		Category:    body.Category,
		Price:       body.Price,
	}
	if err := s.offers.CreateClassOffer(ctx, offer); err != nil {
		return nil, NewInternalError(err)
	}

	s.logger.Info("Class offer created",
		zap.Int64("class_offer_id", offer.ID),
		zap.Int64("author_id", authorID))
	return offer, nil
}

// Update edits an offer's fields. Price edits never touch existing bookings,
// which carry their own snapshot.
func (s *OfferService) Update(ctx context.Context, authorID, offerID int64, body *OfferBody) (*models.ClassOffer, error) {
	offer, err := s.ownedOffer(ctx, authorID, offerID)
	if err != nil {
		return nil, err
	}
	if !offerCategories[body.Category] {
		return nil, NewInvalidInputError("unknown class category")
	}

	offer.Title = body.Title
	offer.Description = body.Description
	offer.Category = body.Category
	offer.Price = body.Price

	if err := s.offers.UpdateClassOffer(ctx, offer); err != nil {
		return nil, NewInternalError(err)
	}
	return offer, nil
}

// Delete soft-deletes an offer.
func (s *OfferService) Delete(ctx context.Context, authorID, offerID int64) error {
	if _, err := s.ownedOffer(ctx, authorID, offerID); err != nil {
		return err
	}
	if err := s.offers.SoftDeleteClassOffer(ctx, offerID); err != nil {
		return NewInternalError(err)
	}
	return nil
}

func (s *OfferService) ownedOffer(ctx context.Context, authorID, offerID int64) (*models.ClassOffer, error) {
	offer, err := s.offers.GetClassOfferByID(ctx, offerID)
	if err != nil {
		return nil, NewInternalError(err)
	}
	if offer == nil {
		return nil, NewNotFoundError("class offer not found")
	}
	if offer.AuthorID != authorID {
		return nil, NewForbiddenError("class offer does not belong to the current user")
	}
	return offer, nil
}
