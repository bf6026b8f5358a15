package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// CookieName is the name of the admin session cookie.
const CookieName = "naeap_session"

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidSession     = errors.New("invalid or expired session")
)

// Session is an authenticated admin session.
type Session struct {
	ID        string
	Username  string
	ExpiresAt time.Time
}

// Authenticator checks the operator credentials and issues signed session
// tokens. There is a single operator account.
type Authenticator struct {
	username string
	hash     []byte
	secret   []byte
	ttl      time.Duration
	now      func() time.Time
}

// New creates an Authenticator. passwordHash is a bcrypt hash.
func New(username, passwordHash, secret string, ttl time.Duration) (*Authenticator, error) {
	if username == "" {
		return nil, errors.New("auth: username must be set")
	}
	if _, err := bcrypt.Cost([]byte(passwordHash)); err != nil {
		return nil, fmt.Errorf("auth: password hash: %w", err)
	}
	if len(secret) < 16 {
		return nil, errors.New("auth: session secret must be at least 16 bytes")
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Authenticator{
		username: username,
		hash:     []byte(passwordHash),
		secret:   []byte(secret),
		ttl:      ttl,
		now:      time.Now,
	}, nil
}

// Login checks the credentials and returns a new session with its token.
func (a *Authenticator) Login(username, password string) (Session, string, error) {
	// bcrypt runs even for an unknown user so both failures take as long.
	pwErr := bcrypt.CompareHashAndPassword(a.hash, []byte(password))
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.username)) == 1
	if pwErr != nil || !userOK {
		return Session{}, "", ErrInvalidCredentials
	}

	now := a.now()
	s := Session{
		ID:        uuid.NewString(),
		Username:  a.username,
		ExpiresAt: now.Add(a.ttl).Truncate(time.Second),
	}
	claims := jwt.RegisteredClaims{
		ID:        s.ID,
		Subject:   s.Username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return Session{}, "", fmt.Errorf("sign session: %w", err)
	}
	return s, token, nil
}

// Verify parses a session token.
func (a *Authenticator) Verify(token string) (Session, error) {
	if token == "" {
		return Session{}, ErrInvalidSession
	}

	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return Session{}, ErrInvalidSession
	}
	if claims.Subject != a.username || claims.ID == "" || claims.ExpiresAt == nil {
		return Session{}, ErrInvalidSession
	}

	return Session{
		ID:        claims.ID,
		Username:  claims.Subject,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// FromRequest verifies the session cookie of r.
func (a *Authenticator) FromRequest(r *http.Request) (Session, error) {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return Session{}, ErrInvalidSession
	}
	return a.Verify(c.Value)
}

// Cookie wraps a session token into the session cookie.
func Cookie(token string, expires time.Time, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/admin",
		Expires:  expires,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	}
}

// ClearCookie expires the session cookie.
func ClearCookie(secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/admin",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	}
}
