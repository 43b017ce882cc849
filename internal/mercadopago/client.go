package mercadopago

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client talks to the Mercadopago REST API. Marketplace model: most calls
// are made with a per-teacher access token so funds land in the teacher's
// own account; OAuth and refunds use the platform credential.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	redirectURI  string
	platformTok  string
	httpClient   *http.Client
}

// Config carries the provider settings for NewClient.
type Config struct {
	BaseURL             string
	ClientID            string
	ClientSecret        string
	RedirectURI         string
	PlatformAccessToken string
	Timeout             time.Duration
}

// NewClient creates a Mercadopago API client
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL:      cfg.BaseURL,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		redirectURI:  cfg.RedirectURI,
		platformTok:  cfg.PlatformAccessToken,
		httpClient:   &http.Client{Timeout: timeout},
	}
}

// CreateOAuthToken exchanges an authorization code for a token pair.
func (c *Client) CreateOAuthToken(ctx context.Context, code string) (*OAuthTokens, error) {
	body := oauthTokenRequest{
		ClientID:     c.clientID,
		ClientSecret: c.clientSecret,
		GrantType:    "authorization_code",
		Code:         code,
		RedirectURI:  c.redirectURI,
	}
	return sendRequest[oauthTokenRequest, OAuthTokens](c, ctx, http.MethodPost,
		c.baseURL+"/oauth/token", &body, c.platformTok)
}

// RefreshOAuthToken trades a refresh token for a fresh token pair.
func (c *Client) RefreshOAuthToken(ctx context.Context, refreshToken string) (*OAuthTokens, error) {
	body := oauthTokenRequest{
		ClientID:     c.clientID,
		ClientSecret: c.clientSecret,
		GrantType:    "refresh_token",
		RefreshToken: refreshToken,
	}
	return sendRequest[oauthTokenRequest, OAuthTokens](c, ctx, http.MethodPost,
		c.baseURL+"/oauth/token", &body, c.platformTok)
}

// CreatePreference creates a payment preference on the account that owns
// accessToken.
func (c *Client) CreatePreference(ctx context.Context, accessToken string, req *PreferenceRequest) (*Preference, error) {
	return sendRequest[PreferenceRequest, Preference](c, ctx, http.MethodPost,
		c.baseURL+"/checkout/preferences", req, accessToken)
}

// GetPreference re-fetches an existing preference with the owner's token.
func (c *Client) GetPreference(ctx context.Context, accessToken, preferenceID string) (*Preference, error) {
	url := fmt.Sprintf("%s/checkout/preferences/%s", c.baseURL, preferenceID)
	return sendRequest[struct{}, Preference](c, ctx, http.MethodGet, url, nil, accessToken)
}

// RefundPayment refunds a payment in full using the platform credential.
func (c *Client) RefundPayment(ctx context.Context, paymentID string) (*Refund, error) {
	url := fmt.Sprintf("%s/v1/payments/%s/refunds", c.baseURL, paymentID)
	return sendRequest[struct{}, Refund](c, ctx, http.MethodPost, url, nil, c.platformTok)
}

func sendRequest[Req any, Resp any](c *Client, ctx context.Context, method, url string, reqBody *Req, accessToken string) (*Resp, error) {
	var bodyReader io.Reader
	if reqBody != nil {
		jsonData, err := json.Marshal(reqBody)
		if err != nil {
			return nil, fmt.Errorf("error marshalling json: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	if reqBody != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		var apiErr APIError
		if err := json.Unmarshal(body, &apiErr); err != nil || apiErr.Message == "" {
			return nil, fmt.Errorf("mercadopago returned status %d: %s", resp.StatusCode, string(body))
		}
		apiErr.StatusCode = resp.StatusCode
		return nil, &apiErr
	}

	var decoded Resp
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("error decoding json response: %w", err)
	}

	return &decoded, nil
}
