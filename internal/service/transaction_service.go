package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/AP5B/backend/internal/broker"
	"github.com/AP5B/backend/internal/mercadopago"
	"github.com/AP5B/backend/internal/models"
	"github.com/AP5B/backend/internal/util"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const (
	preferenceCacheTTL = 5 * time.Minute
	bookingLockTTL     = 10 * time.Second
	webhookDedupTTL    = 24 * time.Hour
)

// TransactionService owns the payment side of a booking: issuing provider
// preferences against the teacher's linked account, recording Transactions,
// applying provider callbacks, and refunds through the platform credential.
type TransactionService struct {
	requests       RequestStore
	offers         OfferStore
	oauth          *OAuthService
	provider       PaymentProvider
	cache          Cache
	eventPublisher *broker.EventPublisher
	publicBaseURL  string
	logger         *zap.Logger
}

// NewTransactionService creates a new transaction service
func NewTransactionService(
	requests RequestStore,
	offers OfferStore,
	oauth *OAuthService,
	provider PaymentProvider,
	cache Cache,
	eventPublisher *broker.EventPublisher,
	publicBaseURL string,
) *TransactionService {
	return &TransactionService{
		requests:       requests,
		offers:         offers,
		oauth:          oauth,
		provider:       provider,
		cache:          cache,
		eventPublisher: eventPublisher,
		publicBaseURL:  publicBaseURL,
		logger:         util.GetLogger(),
	}
}

// PreferenceView is the subset of the provider preference a payer needs.
type PreferenceView struct {
	ID        string `json:"id"`
	InitPoint string `json:"init_point"`
}

// PreferenceResult pairs the local transaction with the provider preference
// and the transaction's current status.
type PreferenceResult struct {
	Transaction *models.Transaction `json:"transaction"`
	Preference  *PreferenceView     `json:"preference"`
	Status      string              `json:"status"`
}

// GetPreference returns the payable preference for a booking, creating one
// if none exists yet. Repeated views of a pending booking reuse the same
// preference instead of minting a new one each time.
func (s *TransactionService) GetPreference(ctx context.Context, classRequestID, userID int64) (*PreferenceResult, error) {
	ctx, span := util.StartSpan(ctx, "TransactionService.GetPreference")
	defer span.End()

	req, err := s.authorizeStudent(ctx, classRequestID, userID)
	if err != nil {
		return nil, err
	}

	txn, err := s.requests.LatestTransactionWithStatus(ctx, classRequestID,
		[]string{models.TxStatusPending, models.TxStatusApproved})
	if err != nil {
		return nil, NewInternalError(err)
	}
	if txn == nil {
		if req.State != models.StatePaymentPending {
			return nil, NewInvalidStateError("class request is not awaiting payment")
		}
		return s.createPreference(ctx, req, userID)
	}

	_, token, err := s.teacherCredential(ctx, req, userID)
	if err != nil {
		return nil, err
	}

	pref, err := s.fetchPreference(ctx, token, txn.PreferenceID)
	if err != nil {
		return nil, err
	}

	return &PreferenceResult{
		Transaction: txn,
		Preference:  &PreferenceView{ID: pref.ID, InitPoint: pref.InitPoint},
		Status:      txn.Status,
	}, nil
}

// createPreference mints a provider preference scoped to the teacher's own
// access token, so funds settle into the teacher's account, and records the
// Transaction pointing at it.
func (s *TransactionService) createPreference(ctx context.Context, req *models.ClassRequest, userID int64) (*PreferenceResult, error) {
	offer, token, err := s.teacherCredential(ctx, req, userID)
	if err != nil {
		return nil, err
	}

	prefReq := &mercadopago.PreferenceRequest{
		Items: []mercadopago.PreferenceItem{{
			ID:          strconv.FormatInt(req.ID, 10),
			Title:       offer.Title,
			Description: offer.Description,
			Quantity:    1,
			UnitPrice:   req.PriceCreatedAt,
		}},
		BackURLs: mercadopago.BackURLs{
			Success: s.webhookURL("success", req.ID),
			Failure: s.webhookURL("failure", req.ID),
			Pending: s.webhookURL("pending", req.ID),
		},
		AutoReturn:     "approved",
		MarketplaceFee: 0,
	}

	timer := prometheus.NewTimer(util.ProviderCallLatency.WithLabelValues("create_preference"))
	pref, err := s.provider.CreatePreference(ctx, token, prefReq)
	timer.ObserveDuration()
	if err != nil {
		return nil, NewExternalServiceError("failed to create payment preference", err)
	}
	if pref.ID == "" {
		return nil, NewExternalServiceError("payment provider returned a preference without an id", nil)
	}

	txn := &models.Transaction{
		ClassRequestID: req.ID,
		PreferenceID:   pref.ID,
		Status:         models.TxStatusPending,
	}
	if err := s.requests.CreateTransaction(ctx, txn); err != nil {
		return nil, NewInternalError(err)
	}

	if err := s.cache.CachePreference(ctx, pref, preferenceCacheTTL); err != nil {
		s.logger.Warn("Failed to cache preference", zap.String("preference_id", pref.ID), zap.Error(err))
	}

	util.PreferencesCreatedTotal.Inc()
	s.logger.Info("Payment preference created",
		zap.Int64("class_request_id", req.ID),
		zap.String("preference_id", pref.ID))

	return &PreferenceResult{
		Transaction: txn,
		Preference:  &PreferenceView{ID: pref.ID, InitPoint: pref.InitPoint},
		Status:      txn.Status,
	}, nil
}

// UpdateTransaction records the provider-reported status on the booking's
// most recent transaction.
func (s *TransactionService) UpdateTransaction(ctx context.Context, classRequestID, userID int64, status string) (*models.Transaction, error) {
	ctx, span := util.StartSpan(ctx, "TransactionService.UpdateTransaction")
	defer span.End()

	if status == "" {
		return nil, NewInvalidInputError("status is required")
	}

	if _, err := s.authorizeStudent(ctx, classRequestID, userID); err != nil {
		return nil, err
	}

	txn, err := s.requests.LatestTransaction(ctx, classRequestID)
	if err != nil {
		return nil, NewInternalError(err)
	}
	if txn == nil {
		return nil, NewNotFoundError("no transaction found for class request")
	}

	if err := s.requests.UpdateTransactionStatus(ctx, txn.ID, status); err != nil {
		return nil, NewInternalError(err)
	}

	txn.Status = status
	return txn, nil
}

// HandleRedirect applies the provider's payment callback: stamps the payment
// onto the booking's latest transaction, generates the confirmation code for
// the in-person handshake, and moves the booking to Paid. Duplicate
// deliveries of the same payment are absorbed.
func (s *TransactionService) HandleRedirect(ctx context.Context, classRequestID int64, paymentID, status string) (*models.ClassRequest, error) {
	ctx, span := util.StartSpan(ctx, "TransactionService.HandleRedirect")
	defer span.End()

	if paymentID == "" {
		return nil, NewInvalidInputError("payment_id is required")
	}

	dedupKey := fmt.Sprintf("webhook:%d:%s", classRequestID, paymentID)
	seen, err := s.cache.CheckIdempotencyKey(ctx, dedupKey)
	if err != nil {
		s.logger.Warn("Idempotency check failed, proceeding", zap.Error(err))
	}
	if seen {
		return s.loadRequest(ctx, classRequestID)
	}

	lockKey := fmt.Sprintf("class-request:%d", classRequestID)
	locked, err := s.cache.AcquireLock(ctx, lockKey, bookingLockTTL)
	if err != nil {
		s.logger.Warn("Lock acquisition failed, relying on row lock", zap.Error(err))
	} else if !locked {
		return nil, NewConflictError("payment notification already being processed")
	} else {
		defer func() {
			if err := s.cache.ReleaseLock(ctx, lockKey); err != nil {
				s.logger.Warn("Failed to release lock", zap.String("lock_key", lockKey), zap.Error(err))
			}
		}()
	}

	txn, err := s.requests.LatestTransaction(ctx, classRequestID)
	if err != nil {
		return nil, NewInternalError(err)
	}
	if txn == nil {
		return nil, NewNotFoundError("no transaction found for class request")
	}

	code, err := generateConfirmCode()
	if err != nil {
		return nil, NewInternalError(err)
	}

	if err := s.requests.MarkRequestPaid(ctx, classRequestID, txn.ID, paymentID, status, code); err != nil {
		return nil, NewInternalError(err)
	}

	if err := s.cache.SetIdempotencyKey(ctx, dedupKey, status, webhookDedupTTL); err != nil {
		s.logger.Warn("Failed to record idempotency key", zap.Error(err))
	}

	util.BookingsPaidTotal.Inc()
	s.logger.Info("Class request paid",
		zap.Int64("class_request_id", classRequestID),
		zap.String("payment_id", paymentID),
		zap.String("status", status))

	event := &models.BookingPaidEvent{
		BaseEvent:      newBaseEvent(models.EventTypeBookingPaid),
		ClassRequestID: classRequestID,
		PaymentID:      paymentID,
		Status:         status,
	}
	if err := s.eventPublisher.PublishBookingPaid(ctx, event); err != nil {
		s.logger.Error("Failed to publish BookingPaid event", zap.Error(err))
	}

	return s.loadRequest(ctx, classRequestID)
}

// Refund reverses a paid-but-unconfirmed booking through the platform's own
// provider credential. Once the handshake has confirmed the class there is
// no refund path.
func (s *TransactionService) Refund(ctx context.Context, classRequestID, userID int64) (*mercadopago.Refund, error) {
	ctx, span := util.StartSpan(ctx, "TransactionService.Refund")
	defer span.End()

	req, err := s.authorizeStudent(ctx, classRequestID, userID)
	if err != nil {
		return nil, err
	}

	switch req.State {
	case models.StatePaid:
	case models.StateCreated, models.StatePaymentPending:
		return nil, NewInvalidStateError("nothing has been paid for this class request")
	case models.StateApproved:
		return nil, NewInvalidStateError("class request has already been confirmed and can no longer be refunded")
	case models.StatePaymentRefunded:
		return nil, NewInvalidStateError("class request has already been refunded")
	default:
		return nil, NewInvalidStateError("class request is not in a refundable state")
	}

	txn, err := s.requests.LatestTransaction(ctx, classRequestID)
	if err != nil {
		return nil, NewInternalError(err)
	}
	if txn == nil || txn.PaymentID == nil {
		return nil, NewNotFoundError("no payment recorded for class request")
	}

	lockKey := fmt.Sprintf("class-request:%d", classRequestID)
	locked, err := s.cache.AcquireLock(ctx, lockKey, bookingLockTTL)
	if err != nil {
		s.logger.Warn("Lock acquisition failed, relying on row lock", zap.Error(err))
	} else if !locked {
		return nil, NewConflictError("class request is being processed")
	} else {
		defer func() {
			if err := s.cache.ReleaseLock(ctx, lockKey); err != nil {
				s.logger.Warn("Failed to release lock", zap.String("lock_key", lockKey), zap.Error(err))
			}
		}()
	}

	timer := prometheus.NewTimer(util.ProviderCallLatency.WithLabelValues("refund_payment"))
	refund, err := s.provider.RefundPayment(ctx, *txn.PaymentID)
	timer.ObserveDuration()
	if err != nil {
		return nil, NewExternalServiceError("failed to refund payment", err)
	}

	ok, err := s.requests.TransitionRequestState(ctx, classRequestID,
		[]string{models.StatePaid}, models.StatePaymentRefunded)
	if err != nil {
		return nil, NewInternalError(err)
	}
	if !ok {
		// The refund went through at the provider but the booking moved
		// state underneath us. Surface it loudly for manual reconciliation.
		s.logger.Error("Refund succeeded but state transition lost a race",
			zap.Int64("class_request_id", classRequestID),
			zap.String("payment_id", *txn.PaymentID))
		return nil, NewInvalidStateError("class request is no longer refundable")
	}

	if err := s.requests.UpdateTransactionStatus(ctx, txn.ID, "refunded"); err != nil {
		s.logger.Error("Failed to record refunded transaction status",
			zap.Int64("transaction_id", txn.ID), zap.Error(err))
	}

	util.RefundsTotal.Inc()
	s.logger.Info("Payment refunded",
		zap.Int64("class_request_id", classRequestID),
		zap.String("payment_id", *txn.PaymentID))

	event := &models.PaymentRefundedEvent{
		BaseEvent:      newBaseEvent(models.EventTypePaymentRefunded),
		ClassRequestID: classRequestID,
		PaymentID:      *txn.PaymentID,
		Amount:         req.PriceCreatedAt,
	}
	if err := s.eventPublisher.PublishPaymentRefunded(ctx, event); err != nil {
		s.logger.Error("Failed to publish PaymentRefunded event", zap.Error(err))
	}

	return refund, nil
}

// teacherCredential resolves the offer's author and a currently valid access
// token for them, refreshing lazily when the stored one has lapsed.
func (s *TransactionService) teacherCredential(ctx context.Context, req *models.ClassRequest, userID int64) (*models.ClassOffer, string, error) {
	offer, err := s.offers.GetClassOfferByID(ctx, req.ClassOfferID)
	if err != nil {
		return nil, "", NewInternalError(err)
	}
	if offer == nil {
		return nil, "", NewNotFoundError("class offer not found")
	}
	if offer.AuthorID == userID {
		return nil, "", NewInvalidStateError("cannot pay for your own class")
	}

	token, err := s.oauth.EnsureAccessToken(ctx, offer.AuthorID)
	if err != nil {
		if domainErr, ok := AsError(err); ok && domainErr.Code == ErrCodeNotFound {
			return nil, "", NewInvalidStateError("the teacher has not linked a mercadopago account")
		}
		return nil, "", err
	}
	return offer, token, nil
}

// fetchPreference reads a preference through the redis cache, falling back
// to the provider.
func (s *TransactionService) fetchPreference(ctx context.Context, accessToken, preferenceID string) (*mercadopago.Preference, error) {
	cached, err := s.cache.GetCachedPreference(ctx, preferenceID)
	if err != nil {
		s.logger.Warn("Preference cache read failed", zap.String("preference_id", preferenceID), zap.Error(err))
	}
	if cached != nil {
		return cached, nil
	}

	timer := prometheus.NewTimer(util.ProviderCallLatency.WithLabelValues("get_preference"))
	pref, err := s.provider.GetPreference(ctx, accessToken, preferenceID)
	timer.ObserveDuration()
	if err != nil {
		return nil, NewExternalServiceError("failed to fetch payment preference", err)
	}

	if err := s.cache.CachePreference(ctx, pref, preferenceCacheTTL); err != nil {
		s.logger.Warn("Failed to cache preference", zap.String("preference_id", preferenceID), zap.Error(err))
	}
	return pref, nil
}

func (s *TransactionService) authorizeStudent(ctx context.Context, classRequestID, userID int64) (*models.ClassRequest, error) {
	req, err := s.loadRequest(ctx, classRequestID)
	if err != nil {
		return nil, err
	}
	if req.UserID != userID {
		return nil, NewForbiddenError("class request does not belong to the current user")
	}
	return req, nil
}

func (s *TransactionService) loadRequest(ctx context.Context, classRequestID int64) (*models.ClassRequest, error) {
	req, err := s.requests.GetClassRequestByID(ctx, classRequestID)
	if err != nil {
		return nil, NewInternalError(err)
	}
	if req == nil {
		return nil, NewNotFoundError("class request not found")
	}
	return req, nil
}

func (s *TransactionService) webhookURL(status string, classRequestID int64) string {
	return fmt.Sprintf("%s/api/v1/transactions/wh/%s/%d", s.publicBaseURL, status, classRequestID)
}

// generateConfirmCode produces the 4-digit handshake code stored on a paid
// transaction.
func generateConfirmCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", fmt.Errorf("failed to generate confirmation code: %w", err)
	}
	return fmt.Sprintf("%04d", n.Int64()), nil
}
