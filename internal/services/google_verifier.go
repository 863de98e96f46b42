package services

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
)

var ErrGoogleNotConfigured = errors.New("google sign-in is not configured")

var googleIssuers = map[string]bool{
	"accounts.google.com":         true,
	"https://accounts.google.com": true,
}

// GoogleClaims are the ID token claims used to identify a Google account.
type GoogleClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	jwt.RegisteredClaims
}

// IDTokenVerifier checks a third-party identity token and returns its claims.
type IDTokenVerifier interface {
	Verify(idToken string) (*GoogleClaims, error)
}

// GoogleVerifier validates Google ID tokens against Google's published keys.
// Keys are fetched on first use and refreshed in the background.
type GoogleVerifier struct {
	clientID string
	jwksURL  string

	mu   sync.Mutex
	jwks *keyfunc.JWKS
}

func NewGoogleVerifier(clientID, jwksURL string) *GoogleVerifier {
	return &GoogleVerifier{clientID: clientID, jwksURL: jwksURL}
}

func newGoogleVerifierWithKeys(clientID string, jwks *keyfunc.JWKS) *GoogleVerifier {
	return &GoogleVerifier{clientID: clientID, jwks: jwks}
}

func (v *GoogleVerifier) keys() (*keyfunc.JWKS, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.jwks != nil {
		return v.jwks, nil
	}

	jwks, err := keyfunc.Get(v.jwksURL, keyfunc.Options{
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  5 * time.Minute,
		RefreshTimeout:    10 * time.Second,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			slog.Warn("google JWKS refresh failed", "error", err)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch google JWKS: %w", err)
	}
	v.jwks = jwks
	return jwks, nil
}

func (v *GoogleVerifier) Verify(idToken string) (*GoogleClaims, error) {
	if v.clientID == "" {
		return nil, ErrGoogleNotConfigured
	}

	jwks, err := v.keys()
	if err != nil {
		return nil, err
	}

	var claims GoogleClaims
	_, err = jwt.ParseWithClaims(idToken, &claims, jwks.Keyfunc,
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithAudience(v.clientID),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid google id token: %w", err)
	}

	if !googleIssuers[claims.Issuer] {
		return nil, fmt.Errorf("invalid issuer: %s", claims.Issuer)
	}
	if claims.Subject == "" {
		return nil, errors.New("google id token has no subject")
	}
	return &claims, nil
}

// Close stops the background key refresh.
func (v *GoogleVerifier) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.jwks != nil {
		v.jwks.EndBackground()
	}
}
