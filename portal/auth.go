package portal

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	json "github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"
)

const (
	sessionCookie = "members_session"
	stateCookie   = "members_state"
	sessionIssuer = "members-portal"
)

// SessionClaims are the claims carried in the portal session token.
type SessionClaims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// SessionManager issues and verifies portal session tokens.
type SessionManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionManager creates a SessionManager signing with secret, with
// sessions valid for ttl.
func NewSessionManager(secret string, ttl time.Duration) *SessionManager {
	return &SessionManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue returns a signed session token for the authenticated member.
func (m *SessionManager) Issue(email, name string) (string, error) {
	now := m.now()
	claims := SessionClaims{
		Email: email,
		Name:  name,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    sessionIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("portal: signing session token: %w", err)
	}
	return token, nil
}

// Verify parses and validates a session token.
func (m *SessionManager) Verify(token string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithIssuer(sessionIssuer), jwt.WithTimeFunc(func() time.Time { return m.now() }))
	if err != nil {
		return nil, fmt.Errorf("portal: verifying session token: %w", err)
	}
	if !parsed.Valid {
		return nil, fmt.Errorf("portal: session token invalid")
	}
	return claims, nil
}

// Identity is the member identity returned by the identity provider.
type Identity struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// IdentityProvider exchanges an authorization code for a member identity.
type IdentityProvider interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*Identity, error)
}

// OIDCClient talks to a Keycloak realm using the authorization code flow.
type OIDCClient struct {
	http         *resty.Client
	issuerURL    string
	clientID     string
	clientSecret string
	redirectURL  string
}

// NewOIDCClient creates an OIDCClient for the given realm issuer URL.
func NewOIDCClient(issuerURL, clientID, clientSecret, redirectURL string) *OIDCClient {
	return &OIDCClient{
		http:         resty.New().SetTimeout(10 * time.Second),
		issuerURL:    issuerURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		redirectURL:  redirectURL,
	}
}

// AuthURL returns the authorization endpoint URL to redirect the member to.
func (c *OIDCClient) AuthURL(state string) string {
	q := url.Values{}
	q.Set("client_id", c.clientID)
	q.Set("redirect_uri", c.redirectURL)
	q.Set("response_type", "code")
	q.Set("scope", "openid email profile")
	q.Set("state", state)
	return c.issuerURL + "/protocol/openid-connect/auth?" + q.Encode()
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

// Exchange trades an authorization code for the member's identity via the
// token and userinfo endpoints.
func (c *OIDCClient) Exchange(ctx context.Context, code string) (*Identity, error) {
	var tok tokenResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"grant_type":    "authorization_code",
			"code":          code,
			"redirect_uri":  c.redirectURL,
			"client_id":     c.clientID,
			"client_secret": c.clientSecret,
		}).
		SetResult(&tok).
		Post(c.issuerURL + "/protocol/openid-connect/token")
	if err != nil {
		return nil, fmt.Errorf("portal: exchanging authorization code: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("portal: token endpoint returned status %d", resp.StatusCode())
	}

	resp, err = c.http.R().
		SetContext(ctx).
		SetAuthToken(tok.AccessToken).
		Get(c.issuerURL + "/protocol/openid-connect/userinfo")
	if err != nil {
		return nil, fmt.Errorf("portal: fetching userinfo: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("portal: userinfo endpoint returned status %d", resp.StatusCode())
	}

	var id Identity
	if err := json.Unmarshal(resp.Body(), &id); err != nil {
		return nil, fmt.Errorf("portal: decoding userinfo: %w", err)
	}
	if id.Email == "" {
		return nil, fmt.Errorf("portal: userinfo response missing email")
	}
	return &id, nil
}

type contextKey string

const claimsKey contextKey = "session-claims"

// claimsFrom returns the session claims stored on the request context.
func claimsFrom(ctx context.Context) (*SessionClaims, bool) {
	claims, ok := ctx.Value(claimsKey).(*SessionClaims)
	return claims, ok
}

// RequireSession redirects to the login flow unless the request carries a
// valid session cookie. Valid claims are stored on the request context.
func (s *Server) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookie)
		if err != nil {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}

		claims, err := s.sessions.Verify(cookie.Value)
		if err != nil {
			s.log.Debug().Err(err).Msg("rejecting session")
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
	})
}
