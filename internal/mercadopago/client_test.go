package mercadopago

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	client := NewClient(Config{
		BaseURL:             srv.URL,
		ClientID:            "client-id",
		ClientSecret:        "client-secret",
		RedirectURI:         "https://app.example.com/oauth",
		PlatformAccessToken: "platform-token",
	})
	return client, srv
}

func TestCreateOAuthToken(t *testing.T) {
	var got oauthTokenRequest
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/oauth/token", r.URL.Path)
		assert.Equal(t, "Bearer platform-token", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(OAuthTokens{
			AccessToken:  "at-1",
			RefreshToken: "rt-1",
			ExpiresIn:    21600,
		})
	})
	defer srv.Close()

	tokens, err := client.CreateOAuthToken(context.Background(), "auth-code")
	require.NoError(t, err)
	assert.Equal(t, "authorization_code", got.GrantType)
	assert.Equal(t, "auth-code", got.Code)
	assert.Equal(t, "https://app.example.com/oauth", got.RedirectURI)
	assert.True(t, tokens.Complete())
}

func TestRefreshOAuthToken(t *testing.T) {
	var got oauthTokenRequest
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(OAuthTokens{AccessToken: "at-2", RefreshToken: "rt-2", ExpiresIn: 21600})
	})
	defer srv.Close()

	tokens, err := client.RefreshOAuthToken(context.Background(), "rt-1")
	require.NoError(t, err)
	assert.Equal(t, "refresh_token", got.GrantType)
	assert.Equal(t, "rt-1", got.RefreshToken)
	assert.Equal(t, "at-2", tokens.AccessToken)
}

func TestCreatePreferenceUsesCallerToken(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/checkout/preferences", r.URL.Path)
		assert.Equal(t, "Bearer teacher-token", r.Header.Get("Authorization"))

		var req PreferenceRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(Preference{
			ID:        "pref-1",
			InitPoint: "https://pay.example.com/pref-1",
			Items:     req.Items,
		})
	})
	defer srv.Close()

	pref, err := client.CreatePreference(context.Background(), "teacher-token", &PreferenceRequest{
		Items: []PreferenceItem{{ID: "7", Title: "Algebra", Quantity: 1, UnitPrice: 2500}},
	})
	require.NoError(t, err)
	assert.Equal(t, "pref-1", pref.ID)
	assert.Equal(t, int64(2500), pref.Items[0].UnitPrice)
}

func TestRefundPaymentUsesPlatformToken(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payments/PAY1/refunds", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer platform-token", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(Refund{ID: 9, PaymentID: 1, Status: "approved"})
	})
	defer srv.Close()

	refund, err := client.RefundPayment(context.Background(), "PAY1")
	require.NoError(t, err)
	assert.Equal(t, "approved", refund.Status)
}

func TestAPIErrorDecoding(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(APIError{Message: "invalid_grant", ErrorCode: "bad_request"})
	})
	defer srv.Close()

	_, err := client.CreateOAuthToken(context.Background(), "stale-code")
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, "invalid_grant", apiErr.Message)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
}

func TestNonJSONErrorBody(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream unavailable"))
	})
	defer srv.Close()

	_, err := client.RefundPayment(context.Background(), "PAY1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}
