package mercadopago

import "fmt"

type oauthTokenRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	GrantType    string `json:"grant_type"`
	Code         string `json:"code,omitempty"`
	RedirectURI  string `json:"redirect_uri,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// OAuthTokens is the provider's token-exchange response. Any of the three
// fields may be missing on a partial response; callers must treat that as a
// failed exchange.
type OAuthTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
	UserID       int64  `json:"user_id"`
}

// Complete reports whether the provider returned everything a credential
// rotation needs.
func (t *OAuthTokens) Complete() bool {
	return t.AccessToken != "" && t.RefreshToken != "" && t.ExpiresIn > 0
}

// PreferenceItem is the single line item of a booking preference.
type PreferenceItem struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Quantity    int    `json:"quantity"`
	UnitPrice   int64  `json:"unit_price"`
}

// BackURLs are the redirect targets the provider sends the payer to.
type BackURLs struct {
	Success string `json:"success"`
	Failure string `json:"failure"`
	Pending string `json:"pending"`
}

// PreferenceRequest is the create-preference payload.
type PreferenceRequest struct {
	Items          []PreferenceItem `json:"items"`
	BackURLs       BackURLs         `json:"back_urls"`
	AutoReturn     string           `json:"auto_return,omitempty"`
	MarketplaceFee int64            `json:"marketplace_fee"`
}

// Preference is the provider's payment-preference object.
type Preference struct {
	ID          string           `json:"id"`
	InitPoint   string           `json:"init_point"`
	Items       []PreferenceItem `json:"items"`
	BackURLs    BackURLs         `json:"back_urls"`
	AutoReturn  string           `json:"auto_return"`
	ClientID    string           `json:"client_id"`
	DateCreated string           `json:"date_created"`
}

// Refund is the provider's refund response.
type Refund struct {
	ID        int64   `json:"id"`
	PaymentID int64   `json:"payment_id"`
	Amount    float64 `json:"amount"`
	Status    string  `json:"status"`
}

// APIError is a non-2xx provider response body.
type APIError struct {
	Message    string `json:"message"`
	ErrorCode  string `json:"error"`
	StatusCode int    `json:"-"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("mercadopago: %s (%s, status %d)", e.Message, e.ErrorCode, e.StatusCode)
}
