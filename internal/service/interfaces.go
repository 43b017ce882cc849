package service

import (
	"context"
	"time"

	"github.com/AP5B/backend/internal/mercadopago"
	"github.com/AP5B/backend/internal/models"
	"github.com/AP5B/backend/internal/store"
)

// The services consume narrow gateway interfaces instead of the concrete
// sqlx store so the lifecycle logic stays testable with in-memory fakes.
// *store.Store satisfies all of them.

// UserStore reads accounts and payment credentials.
type UserStore interface {
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetMercadopagoInfo(ctx context.Context, userID int64) (*models.MercadopagoInfo, error)
	UpsertMercadopagoInfo(ctx context.Context, info *models.MercadopagoInfo) error
	SoftDeleteUserCascade(ctx context.Context, userID int64) error
}

// OfferStore is the class-offer persistence gateway.
type OfferStore interface {
	GetClassOfferByID(ctx context.Context, id int64) (*models.ClassOffer, error)
	ListClassOffers(ctx context.Context, filter store.OfferFilter) ([]models.ClassOffer, int64, error)
	ListClassOffersByAuthor(ctx context.Context, authorID int64) ([]models.ClassOffer, error)
	CreateClassOffer(ctx context.Context, offer *models.ClassOffer) error
	UpdateClassOffer(ctx context.Context, offer *models.ClassOffer) error
	SoftDeleteClassOffer(ctx context.Context, id int64) error
}

// RequestStore is the booking/transaction persistence gateway.
type RequestStore interface {
	CreateClassRequest(ctx context.Context, req *models.ClassRequest) error
	GetClassRequestByID(ctx context.Context, id int64) (*models.ClassRequest, error)
	FindClassRequestBySlot(ctx context.Context, classOfferID, userID int64, day, slot int) (*models.ClassRequest, error)
	ListClassRequestsByUser(ctx context.Context, userID int64, limit, offset int) ([]models.ClassRequest, int64, error)
	ListClassRequestsByTutor(ctx context.Context, tutorID int64, limit, offset int) ([]models.ClassRequest, int64, error)
	ListClassRequestsByOffer(ctx context.Context, classOfferID int64, limit, offset int) ([]models.ClassRequest, int64, error)
	ListUserRequestsInOffer(ctx context.Context, userID, classOfferID int64) ([]models.ClassRequest, error)
	DeleteClassRequest(ctx context.Context, id int64) error
	UpdateRequestState(ctx context.Context, id int64, state string) error
	TransitionRequestState(ctx context.Context, id int64, from []string, to string) (bool, error)
	CreateTransaction(ctx context.Context, txn *models.Transaction) error
	LatestTransaction(ctx context.Context, classRequestID int64) (*models.Transaction, error)
	LatestTransactionWithStatus(ctx context.Context, classRequestID int64, statuses []string) (*models.Transaction, error)
	UpdateTransactionStatus(ctx context.Context, id int64, status string) error
	MarkRequestPaid(ctx context.Context, classRequestID, transactionID int64, paymentID, status, confirmCode string) error
}

// AvailabilityStore is the weekly-schedule persistence gateway.
type AvailabilityStore interface {
	SaveAvailabilities(ctx context.Context, teacherID int64, cells []models.Availability) error
	ListAvailabilities(ctx context.Context, teacherID int64) ([]models.Availability, error)
	DeleteAvailabilities(ctx context.Context, teacherID int64, cells []models.Availability) error
}

// ReviewStore is the review persistence gateway.
type ReviewStore interface {
	CreateReview(ctx context.Context, review *models.Review) error
	GetReviewByID(ctx context.Context, id int64) (*models.Review, error)
	GetReviewByAuthorAndTeacher(ctx context.Context, authorID, teacherID int64) (*models.Review, error)
	ListTeacherReviews(ctx context.Context, teacherID int64) ([]models.Review, error)
	ListUserReviews(ctx context.Context, authorID int64) ([]models.Review, error)
	UpdateReview(ctx context.Context, review *models.Review) error
	DeleteReview(ctx context.Context, id int64) error
}

// PaymentProvider is the typed boundary to the payment provider's API.
// Incomplete or failed responses are translated into the domain error
// taxonomy by the caller, never leaked upward raw.
type PaymentProvider interface {
	CreateOAuthToken(ctx context.Context, code string) (*mercadopago.OAuthTokens, error)
	RefreshOAuthToken(ctx context.Context, refreshToken string) (*mercadopago.OAuthTokens, error)
	CreatePreference(ctx context.Context, accessToken string, req *mercadopago.PreferenceRequest) (*mercadopago.Preference, error)
	GetPreference(ctx context.Context, accessToken, preferenceID string) (*mercadopago.Preference, error)
	RefundPayment(ctx context.Context, paymentID string) (*mercadopago.Refund, error)
}

// Cache provides the cross-process coordination primitives backed by redis:
// short-lived locks around webhook/refund races and a read cache for
// provider preference objects.
type Cache interface {
	AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, lockKey string) error
	SetIdempotencyKey(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	CheckIdempotencyKey(ctx context.Context, key string) (bool, error)
	CachePreference(ctx context.Context, pref *mercadopago.Preference, ttl time.Duration) error
	GetCachedPreference(ctx context.Context, preferenceID string) (*mercadopago.Preference, error)
}
