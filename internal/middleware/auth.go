package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

type sessionCtxKey int

const sessionKey sessionCtxKey = 7

// SessionHeader carries the wizard token for clients that cannot set Authorization.
const SessionHeader = "X-Session-Token"

// UserRefHeader names the operator on whose behalf a response is captured.
// It is opaque to the server and stored as the response's user_ref.
const UserRefHeader = "X-User-Ref"

// SessionClaims bind a browser session to one survey's wizard.
type SessionClaims struct {
	SessionID string `json:"sid"`
	SurveyID  string `json:"svy"`
	jwt.RegisteredClaims
}

// SessionSigner issues and verifies HS256 session tokens.
type SessionSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSessionSigner(secret string, ttl time.Duration) *SessionSigner {
	if secret == "" {
		secret = "encuesta-dev-secret"
	}
	return &SessionSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (s *SessionSigner) Sign(sessionID, surveyID string) (string, error) {
	now := s.now()
	claims := SessionClaims{
		SessionID: sessionID,
		SurveyID:  surveyID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *SessionSigner) Parse(tok string) (*SessionClaims, error) {
	t, err := jwt.ParseWithClaims(tok, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, err
	}
	if c, ok := t.Claims.(*SessionClaims); ok && t.Valid && c.SessionID != "" {
		return c, nil
	}
	return nil, errors.New("invalid session token")
}

func sessionToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return strings.TrimSpace(r.Header.Get(SessionHeader))
}

// WithSession attaches session claims to the context when a valid token is present.
func (s *SessionSigner) WithSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if tok := sessionToken(r); tok != "" {
			if c, err := s.Parse(tok); err == nil {
				next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey, c)))
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func SessionFromContext(ctx context.Context) (*SessionClaims, bool) {
	c, ok := ctx.Value(sessionKey).(*SessionClaims)
	return c, ok
}
