package service

import (
	"context"
	"errors"
	"time"

	"github.com/AP5B/backend/internal/broker"
	"github.com/AP5B/backend/internal/models"
	"github.com/AP5B/backend/internal/store"
	"github.com/AP5B/backend/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestService enforces the booking lifecycle and its ownership rules.
//
//	Created → PaymentPending → Paid → Approved
//	               ↓             ↓
//	            Rejected   PaymentRefunded
type RequestService struct {
	requests       RequestStore
	offers         OfferStore
	transactions   *TransactionService
	eventPublisher *broker.EventPublisher
	logger         *zap.Logger
}

// NewRequestService creates a new class-request service
func NewRequestService(
	requests RequestStore,
	offers OfferStore,
	transactions *TransactionService,
	eventPublisher *broker.EventPublisher,
) *RequestService {
	return &RequestService{
		requests:       requests,
		offers:         offers,
		transactions:   transactions,
		eventPublisher: eventPublisher,
		logger:         util.GetLogger(),
	}
}

// CreateClassRequestBody is the booking creation payload.
type CreateClassRequestBody struct {
	ClassOfferID int64 `json:"class_offer_id" binding:"required"`
	Day          int   `json:"day" binding:"min=0,max=6"`
	Slot         int   `json:"slot" binding:"min=0"`
}

// ClassRequestView is a booking together with its authoritative transaction
// and, while payment is pending, the provider preference the student pays
// through.
type ClassRequestView struct {
	models.ClassRequest
	Transaction *models.Transaction `json:"transaction,omitempty"`
	Preference  *PreferenceView     `json:"preference,omitempty"`
	ConfirmCode string              `json:"confirm_code,omitempty"`
}

// Create books a class for a student. The offer's price is snapshotted so
// later edits to the offer never change what this booking owes.
func (s *RequestService) Create(ctx context.Context, userID int64, body *CreateClassRequestBody) (*models.ClassRequest, error) {
	ctx, span := util.StartSpan(ctx, "RequestService.Create")
	defer span.End()

	offer, err := s.offers.GetClassOfferByID(ctx, body.ClassOfferID)
	if err != nil {
		return nil, NewInternalError(err)
	}
	if offer == nil {
		util.BookingsFailedTotal.WithLabelValues("offer_not_found").Inc()
		return nil, NewNotFoundError("class offer not found")
	}

	if offer.AuthorID == userID {
		util.BookingsFailedTotal.WithLabelValues("self_booking").Inc()
		return nil, NewForbiddenError("cannot book your own class")
	}

	existing, err := s.requests.FindClassRequestBySlot(ctx, body.ClassOfferID, userID, body.Day, body.Slot)
	if err != nil {
		return nil, NewInternalError(err)
	}
	if existing != nil {
		util.BookingsFailedTotal.WithLabelValues("duplicate_slot").Inc()
		return nil, NewConflictError("a booking for this class and slot already exists")
	}

	req := &models.ClassRequest{
		ClassOfferID:   body.ClassOfferID,
		UserID:         userID,
		Day:            body.Day,
		Slot:           body.Slot,
		State:          models.StateCreated,
		PriceCreatedAt: offer.Price,
	}

	if err := s.requests.CreateClassRequest(ctx, req); err != nil {
		if errors.Is(err, store.ErrDuplicateBooking) {
			util.BookingsFailedTotal.WithLabelValues("duplicate_slot").Inc()
			return nil, NewConflictError("a booking for this class and slot already exists")
		}
		return nil, NewInternalError(err)
	}

	util.BookingsCreatedTotal.Inc()
	s.logger.Info("Class request created",
		zap.Int64("class_request_id", req.ID),
		zap.Int64("class_offer_id", req.ClassOfferID),
		zap.Int64("user_id", userID))

	event := &models.BookingCreatedEvent{
		BaseEvent:      newBaseEvent(models.EventTypeBookingCreated),
		ClassRequestID: req.ID,
		ClassOfferID:   req.ClassOfferID,
		UserID:         userID,
		Day:            req.Day,
		Slot:           req.Slot,
		Price:          req.PriceCreatedAt,
	}
	if err := s.eventPublisher.PublishBookingCreated(ctx, event); err != nil {
		s.logger.Error("Failed to publish BookingCreated event", zap.Error(err))
	}

	return req, nil
}

// AcceptOrReject applies the tutor's decision on a Created booking:
// PaymentPending when accepted, Rejected when declined.
func (s *RequestService) AcceptOrReject(ctx context.Context, tutorID, classRequestID int64, accept bool) (*models.ClassRequest, error) {
	ctx, span := util.StartSpan(ctx, "RequestService.AcceptOrReject")
	defer span.End()

	req, _, err := s.loadOwnedRequest(ctx, tutorID, classRequestID)
	if err != nil {
		return nil, err
	}

	target := models.StateRejected
	if accept {
		target = models.StatePaymentPending
	}

	ok, err := s.requests.TransitionRequestState(ctx, classRequestID,
		[]string{models.StateCreated}, target)
	if err != nil {
		return nil, NewInternalError(err)
	}
	if !ok {
		return nil, NewInvalidStateError("class request has already been decided")
	}

	req.State = target

	if accept {
		util.BookingsAcceptedTotal.Inc()
		event := &models.BookingAcceptedEvent{
			BaseEvent:      newBaseEvent(models.EventTypeBookingAccepted),
			ClassRequestID: req.ID,
			ClassOfferID:   req.ClassOfferID,
			UserID:         req.UserID,
		}
		if err := s.eventPublisher.PublishBookingAccepted(ctx, event); err != nil {
			s.logger.Error("Failed to publish BookingAccepted event", zap.Error(err))
		}
	} else {
		util.BookingsRejectedTotal.Inc()
		event := &models.BookingRejectedEvent{
			BaseEvent:      newBaseEvent(models.EventTypeBookingRejected),
			ClassRequestID: req.ID,
			ClassOfferID:   req.ClassOfferID,
			UserID:         req.UserID,
		}
		if err := s.eventPublisher.PublishBookingRejected(ctx, event); err != nil {
			s.logger.Error("Failed to publish BookingRejected event", zap.Error(err))
		}
	}

	return req, nil
}

// UpdateState is the tutor-initiated free transition within the canonical
// state set, used by moderation flows.
func (s *RequestService) UpdateState(ctx context.Context, tutorID, classRequestID int64, newState string) (*models.ClassRequest, error) {
	ctx, span := util.StartSpan(ctx, "RequestService.UpdateState")
	defer span.End()

	if !models.ValidState(newState) {
		return nil, NewInvalidInputError("unknown class request state")
	}

	req, _, err := s.loadOwnedRequest(ctx, tutorID, classRequestID)
	if err != nil {
		return nil, err
	}

	if err := s.requests.UpdateRequestState(ctx, classRequestID, newState); err != nil {
		return nil, NewInternalError(err)
	}

	req.State = newState
	return req, nil
}

// Confirm matches the supplied handshake code against the booking's most
// recent transaction and locks the booking against refunds.
func (s *RequestService) Confirm(ctx context.Context, classRequestID int64, code string) (*models.ClassRequest, error) {
	ctx, span := util.StartSpan(ctx, "RequestService.Confirm")
	defer span.End()

	txn, err := s.requests.LatestTransaction(ctx, classRequestID)
	if err != nil {
		return nil, NewInternalError(err)
	}
	if txn == nil {
		return nil, NewNotFoundError("no transaction found for class request")
	}

	if txn.ConfirmCode == nil || *txn.ConfirmCode != code {
		return nil, NewInvalidInputError("invalid confirmation code")
	}

	ok, err := s.requests.TransitionRequestState(ctx, classRequestID,
		[]string{models.StatePaid}, models.StateApproved)
	if err != nil {
		return nil, NewInternalError(err)
	}
	if !ok {
		return nil, NewInvalidStateError("class request is not in a confirmable state")
	}

	util.BookingsConfirmedTotal.Inc()
	s.logger.Info("Class request confirmed", zap.Int64("class_request_id", classRequestID))

	event := &models.BookingConfirmedEvent{
		BaseEvent:      newBaseEvent(models.EventTypeBookingConfirmed),
		ClassRequestID: classRequestID,
	}
	if err := s.eventPublisher.PublishBookingConfirmed(ctx, event); err != nil {
		s.logger.Error("Failed to publish BookingConfirmed event", zap.Error(err))
	}

	return s.getByID(ctx, classRequestID)
}

// GetByID retrieves one booking.
func (s *RequestService) GetByID(ctx context.Context, classRequestID int64) (*models.ClassRequest, error) {
	return s.getByID(ctx, classRequestID)
}

func (s *RequestService) getByID(ctx context.Context, classRequestID int64) (*models.ClassRequest, error) {
	req, err := s.requests.GetClassRequestByID(ctx, classRequestID)
	if err != nil {
		return nil, NewInternalError(err)
	}
	if req == nil {
		return nil, NewNotFoundError("class request not found")
	}
	return req, nil
}

// ListUserRequests returns a student's bookings. PaymentPending rows are
// enriched with the provider preference, creating one when none exists yet.
func (s *RequestService) ListUserRequests(ctx context.Context, userID int64, page, limit int) ([]ClassRequestView, int64, error) {
	ctx, span := util.StartSpan(ctx, "RequestService.ListUserRequests")
	defer span.End()

	offset := (page - 1) * limit
	reqs, total, err := s.requests.ListClassRequestsByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, NewInternalError(err)
	}

	views := make([]ClassRequestView, 0, len(reqs))
	for i := range reqs {
		views = append(views, s.buildStudentView(ctx, userID, &reqs[i]))
	}
	return views, total, nil
}

// ListUserRequestsInOffer returns a student's bookings within one offer,
// enriched the same way as ListUserRequests.
func (s *RequestService) ListUserRequestsInOffer(ctx context.Context, userID, classOfferID int64) ([]ClassRequestView, error) {
	reqs, err := s.requests.ListUserRequestsInOffer(ctx, userID, classOfferID)
	if err != nil {
		return nil, NewInternalError(err)
	}

	views := make([]ClassRequestView, 0, len(reqs))
	for i := range reqs {
		views = append(views, s.buildStudentView(ctx, userID, &reqs[i]))
	}
	return views, nil
}

// buildStudentView attaches the authoritative transaction and, for bookings
// awaiting payment, the preference to pay through. Preference failures only
// degrade the view; the listing itself still succeeds.
func (s *RequestService) buildStudentView(ctx context.Context, userID int64, req *models.ClassRequest) ClassRequestView {
	view := ClassRequestView{ClassRequest: *req}

	txn, err := s.requests.LatestTransactionWithStatus(ctx, req.ID,
		[]string{models.TxStatusPending, models.TxStatusApproved})
	if err != nil {
		s.logger.Error("Failed to load transaction for class request",
			zap.Int64("class_request_id", req.ID), zap.Error(err))
		return view
	}
	view.Transaction = txn

	if req.State != models.StatePaymentPending {
		return view
	}

	result, err := s.transactions.GetPreference(ctx, req.ID, userID)
	if err != nil {
		s.logger.Warn("Failed to resolve preference for pending booking",
			zap.Int64("class_request_id", req.ID), zap.Error(err))
		return view
	}
	view.Transaction = result.Transaction
	view.Preference = result.Preference
	return view
}

// ListTutorRequests returns the bookings received across a tutor's offers.
func (s *RequestService) ListTutorRequests(ctx context.Context, tutorID int64, page, limit int) ([]models.ClassRequest, int64, error) {
	offset := (page - 1) * limit
	reqs, total, err := s.requests.ListClassRequestsByTutor(ctx, tutorID, limit, offset)
	if err != nil {
		return nil, 0, NewInternalError(err)
	}
	return reqs, total, nil
}

// ListRequestsByOffer returns the bookings on one of the tutor's offers,
// including the confirmation code the tutor reads back during the
// in-person handshake.
func (s *RequestService) ListRequestsByOffer(ctx context.Context, tutorID, classOfferID int64, page, limit int) ([]ClassRequestView, int64, error) {
	offer, err := s.offers.GetClassOfferByID(ctx, classOfferID)
	if err != nil {
		return nil, 0, NewInternalError(err)
	}
	if offer == nil {
		return nil, 0, NewNotFoundError("class offer not found")
	}
	if offer.AuthorID != tutorID {
		return nil, 0, NewForbiddenError("you are not the tutor of this class")
	}

	offset := (page - 1) * limit
	reqs, total, err := s.requests.ListClassRequestsByOffer(ctx, classOfferID, limit, offset)
	if err != nil {
		return nil, 0, NewInternalError(err)
	}

	views := make([]ClassRequestView, 0, len(reqs))
	for i := range reqs {
		view := ClassRequestView{ClassRequest: reqs[i]}
		txn, err := s.requests.LatestTransaction(ctx, reqs[i].ID)
		if err == nil && txn != nil && txn.ConfirmCode != nil {
			view.ConfirmCode = *txn.ConfirmCode
		}
		views = append(views, view)
	}
	return views, total, nil
}

// Delete removes a student's own booking.
func (s *RequestService) Delete(ctx context.Context, userID, classRequestID int64) error {
	req, err := s.requests.GetClassRequestByID(ctx, classRequestID)
	if err != nil {
		return NewInternalError(err)
	}
	if req == nil {
		return NewNotFoundError("class request not found")
	}
	if req.UserID != userID {
		return NewForbiddenError("class request does not belong to the current user")
	}

	if err := s.requests.DeleteClassRequest(ctx, classRequestID); err != nil {
		return NewInternalError(err)
	}
	return nil
}

// loadOwnedRequest loads a booking and verifies the tutor authored its offer.
func (s *RequestService) loadOwnedRequest(ctx context.Context, tutorID, classRequestID int64) (*models.ClassRequest, *models.ClassOffer, error) {
	req, err := s.requests.GetClassRequestByID(ctx, classRequestID)
	if err != nil {
		return nil, nil, NewInternalError(err)
	}
	if req == nil {
		return nil, nil, NewNotFoundError("class request not found")
	}

	offer, err := s.offers.GetClassOfferByID(ctx, req.ClassOfferID)
	if err != nil {
		return nil, nil, NewInternalError(err)
	}
	if offer == nil {
		return nil, nil, NewNotFoundError("class offer not found")
	}
	if offer.AuthorID != tutorID {
		return nil, nil, NewForbiddenError("you do not have permission to modify this request")
	}

	return req, offer, nil
}

func newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}
