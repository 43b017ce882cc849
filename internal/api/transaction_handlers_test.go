package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/AP5B/backend/internal/mercadopago"
	"github.com/AP5B/backend/internal/models"
	"github.com/AP5B/backend/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubUserStore struct {
	creds map[int64]*models.MercadopagoInfo
}

func (s *stubUserStore) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	return &models.User{ID: id, Role: models.RoleTeacher}, nil
}

func (s *stubUserStore) GetMercadopagoInfo(_ context.Context, userID int64) (*models.MercadopagoInfo, error) {
	return s.creds[userID], nil
}

func (s *stubUserStore) UpsertMercadopagoInfo(_ context.Context, info *models.MercadopagoInfo) error {
	s.creds[info.UserID] = info
	return nil
}

func (s *stubUserStore) SoftDeleteUserCascade(context.Context, int64) error { return nil }

type stubProvider struct{}

func (stubProvider) CreateOAuthToken(context.Context, string) (*mercadopago.OAuthTokens, error) {
	return nil, nil
}

func (stubProvider) RefreshOAuthToken(context.Context, string) (*mercadopago.OAuthTokens, error) {
	return nil, nil
}

func (stubProvider) CreatePreference(context.Context, string, *mercadopago.PreferenceRequest) (*mercadopago.Preference, error) {
	return nil, nil
}

func (stubProvider) GetPreference(context.Context, string, string) (*mercadopago.Preference, error) {
	return nil, nil
}

func (stubProvider) RefundPayment(context.Context, string) (*mercadopago.Refund, error) {
	return nil, nil
}

func oauthStatusRequest(t *testing.T, users *stubUserStore, userID int64) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)

	h := &Handler{oauth: service.NewOAuthService(users, stubProvider{})}
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/oauth/status", nil)
	c.Set(ctxUserID, userID)

	h.checkOAuthStatus(c)
	return rec
}

func TestCheckOAuthStatusLinkedResponse(t *testing.T) {
	users := &stubUserStore{creds: map[int64]*models.MercadopagoInfo{
		9: {
			UserID:                 9,
			AccessToken:            "token",
			AccessTokenExpiration:  time.Now().Add(time.Hour),
			RefreshToken:           "refresh",
			RefreshTokenExpiration: time.Now().Add(24 * time.Hour),
		},
	}}

	rec := oauthStatusRequest(t, users, 9)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["linked"])
	assert.NotContains(t, body, "message")
}

func TestCheckOAuthStatusUnlinkedResponse(t *testing.T) {
	users := &stubUserStore{creds: map[int64]*models.MercadopagoInfo{}}

	rec := oauthStatusRequest(t, users, 9)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["linked"])
	assert.Contains(t, body["message"], "link your mercadopago account")
}
