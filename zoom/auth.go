package zoom

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	json "github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"

	"github.com/BostonDSA/members/config"
)

// TokenSource mints bearer tokens for the Zoom API.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// NewTokenSource builds a TokenSource for the configured auth mode.
func NewTokenSource(cfg config.ZoomConfig) (TokenSource, error) {
	switch cfg.AuthMode {
	case "jwt":
		if cfg.APIKey == "" || cfg.APISecret == "" {
			return nil, fmt.Errorf("zoom: jwt auth mode requires api_key and api_secret")
		}
		return &JWTSource{apiKey: cfg.APIKey, apiSecret: cfg.APISecret, ttl: jwtTokenTTL, now: time.Now}, nil
	case "oauth":
		if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.AccountID == "" {
			return nil, fmt.Errorf("zoom: oauth auth mode requires client_id, client_secret, and account_id")
		}
		return NewOAuthSource(cfg), nil
	default:
		return nil, fmt.Errorf("zoom: unknown auth mode %q", cfg.AuthMode)
	}
}

const jwtTokenTTL = 5 * time.Second

// JWTSource signs a short-lived assertion with the shared API secret
// (the legacy marketplace JWT-app scheme).
type JWTSource struct {
	apiKey    string
	apiSecret string
	ttl       time.Duration
	now       func() time.Time
}

// Token returns a freshly signed HS256 assertion with the API key as issuer.
func (s *JWTSource) Token(_ context.Context) (string, error) {
	claims := jwt.RegisteredClaims{
		Issuer:    s.apiKey,
		ExpiresAt: jwt.NewNumericDate(s.now().Add(s.ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.apiSecret))
	if err != nil {
		return "", fmt.Errorf("zoom: signing token: %w", err)
	}
	return signed, nil
}

// OAuthSource performs the server-to-server account-credentials grant and
// caches the resulting access token until shortly before it expires.
type OAuthSource struct {
	http         *resty.Client
	clientID     string
	clientSecret string
	accountID    string

	mu      sync.Mutex
	token   string
	expires time.Time
	now     func() time.Time
}

// NewOAuthSource creates an OAuthSource against cfg.OAuthURL.
func NewOAuthSource(cfg config.ZoomConfig) *OAuthSource {
	return &OAuthSource{
		http:         resty.New().SetBaseURL(cfg.OAuthURL).SetTimeout(30 * time.Second),
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		accountID:    cfg.AccountID,
		now:          time.Now,
	}
}

type oauthTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// Token returns the cached access token, refreshing it when less than a
// minute of validity remains.
func (s *OAuthSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && s.now().Before(s.expires.Add(-time.Minute)) {
		return s.token, nil
	}

	resp, err := s.http.R().
		SetContext(ctx).
		SetBasicAuth(s.clientID, s.clientSecret).
		SetQueryParam("grant_type", "account_credentials").
		SetQueryParam("account_id", s.accountID).
		Post("/oauth/token")
	if err != nil {
		return "", fmt.Errorf("zoom: token exchange: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("zoom: token exchange returned status %d", resp.StatusCode())
	}

	var tr oauthTokenResponse
	if err := json.Unmarshal(resp.Body(), &tr); err != nil {
		return "", fmt.Errorf("zoom: decoding token response: %w", err)
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("zoom: token response missing access_token")
	}

	s.token = tr.AccessToken
	s.expires = s.now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	return s.token, nil
}
