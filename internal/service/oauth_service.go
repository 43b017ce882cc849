package service

import (
	"context"
	"time"

	"github.com/AP5B/backend/internal/mercadopago"
	"github.com/AP5B/backend/internal/models"
	"github.com/AP5B/backend/internal/util"

	"go.uber.org/zap"
)

// Provider refresh tokens stay redeemable this long after issuance. The
// provider does not report it alongside the token, so the window is pinned
// here and recomputed on every exchange.
const refreshTokenTTL = 180 * 24 * time.Hour

// OAuthService manages the per-teacher provider credentials that let the
// platform emit payment preferences on a teacher's behalf.
type OAuthService struct {
	users    UserStore
	provider PaymentProvider
	logger   *zap.Logger
	now      func() time.Time
}

// NewOAuthService creates a new OAuth credential service
func NewOAuthService(users UserStore, provider PaymentProvider) *OAuthService {
	return &OAuthService{
		users:    users,
		provider: provider,
		logger:   util.GetLogger(),
		now:      time.Now,
	}
}

// CreateOAuthToken redeems the authorization code a teacher obtained from the
// provider's consent screen and stores the resulting credential pair. Linking
// again simply replaces the previous pair.
func (s *OAuthService) CreateOAuthToken(ctx context.Context, userID int64, code string) (*models.MercadopagoInfo, error) {
	ctx, span := util.StartSpan(ctx, "OAuthService.CreateOAuthToken")
	defer span.End()

	if code == "" {
		return nil, NewInvalidInputError("authorization code is required")
	}

	tokens, err := s.provider.CreateOAuthToken(ctx, code)
	if err != nil {
		return nil, NewExternalServiceError("failed to exchange authorization code", err)
	}
	if !tokens.Complete() {
		return nil, NewExternalServiceError("payment provider returned an incomplete token response", nil)
	}

	info, err := s.storeTokens(ctx, userID, tokens)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Mercadopago account linked", zap.Int64("user_id", userID))
	return info, nil
}

// RefreshOAuthToken rotates a teacher's credential pair using the stored
// refresh token.
func (s *OAuthService) RefreshOAuthToken(ctx context.Context, userID int64) (*models.MercadopagoInfo, error) {
	ctx, span := util.StartSpan(ctx, "OAuthService.RefreshOAuthToken")
	defer span.End()

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, NewInternalError(err)
	}
	if user == nil {
		return nil, NewNotFoundError("user not found")
	}

	info, err := s.users.GetMercadopagoInfo(ctx, userID)
	if err != nil {
		return nil, NewInternalError(err)
	}
	if info == nil {
		return nil, NewInvalidStateError("no mercadopago account linked for user")
	}
	if info.RefreshTokenExpired(s.now()) {
		return nil, NewInvalidStateError("refresh token has expired, the account must be linked again")
	}

	return s.refresh(ctx, userID, info)
}

// CheckOAuthStatus reports whether a teacher currently holds a usable access
// token. An expired access token with a live refresh token is refreshed
// transparently; any failure along the way reads as not linked rather than
// an error.
func (s *OAuthService) CheckOAuthStatus(ctx context.Context, userID int64) bool {
	ctx, span := util.StartSpan(ctx, "OAuthService.CheckOAuthStatus")
	defer span.End()

	_, err := s.EnsureAccessToken(ctx, userID)
	return err == nil
}

// EnsureAccessToken returns a currently valid access token for the teacher,
// refreshing the stored pair first when the access token has lapsed.
func (s *OAuthService) EnsureAccessToken(ctx context.Context, userID int64) (string, error) {
	info, err := s.users.GetMercadopagoInfo(ctx, userID)
	if err != nil {
		return "", NewInternalError(err)
	}
	if info == nil {
		return "", NewNotFoundError("no mercadopago credentials found for user")
	}

	now := s.now()
	if !info.AccessTokenExpired(now) {
		return info.AccessToken, nil
	}
	if info.RefreshTokenExpired(now) {
		return "", NewInvalidStateError("refresh token has expired, the account must be linked again")
	}

	refreshed, err := s.refresh(ctx, userID, info)
	if err != nil {
		return "", err
	}
	return refreshed.AccessToken, nil
}

func (s *OAuthService) refresh(ctx context.Context, userID int64, info *models.MercadopagoInfo) (*models.MercadopagoInfo, error) {
	tokens, err := s.provider.RefreshOAuthToken(ctx, info.RefreshToken)
	if err != nil {
		util.OAuthRefreshTotal.WithLabelValues("error").Inc()
		return nil, NewExternalServiceError("failed to refresh mercadopago token", err)
	}
	if !tokens.Complete() {
		util.OAuthRefreshTotal.WithLabelValues("error").Inc()
		return nil, NewExternalServiceError("payment provider returned an incomplete token response", nil)
	}

	refreshed, err := s.storeTokens(ctx, userID, tokens)
	if err != nil {
		util.OAuthRefreshTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	util.OAuthRefreshTotal.WithLabelValues("success").Inc()
	s.logger.Info("Mercadopago token refreshed", zap.Int64("user_id", userID))
	return refreshed, nil
}

func (s *OAuthService) storeTokens(ctx context.Context, userID int64, tokens *mercadopago.OAuthTokens) (*models.MercadopagoInfo, error) {
	now := s.now()
	info := &models.MercadopagoInfo{
		UserID:                 userID,
		AccessToken:            tokens.AccessToken,
		AccessTokenExpiration:  now.Add(time.Duration(tokens.ExpiresIn) * time.Second),
		RefreshToken:           tokens.RefreshToken,
		RefreshTokenExpiration: now.Add(refreshTokenTTL),
	}
	if err := s.users.UpsertMercadopagoInfo(ctx, info); err != nil {
		return nil, NewInternalError(err)
	}
	return info, nil
}
