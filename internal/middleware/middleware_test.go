package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionSignerRoundTrip(t *testing.T) {
	s := NewSessionSigner("k1", time.Hour)
	tok, err := s.Sign("sess-1", "survey-1")
	require.NoError(t, err)

	c, err := s.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "sess-1", c.SessionID)
	assert.Equal(t, "survey-1", c.SurveyID)

	_, err = NewSessionSigner("other", time.Hour).Parse(tok)
	assert.Error(t, err)
}

func TestSessionSignerExpiry(t *testing.T) {
	s := NewSessionSigner("k1", time.Minute)
	base := time.Now()
	s.now = func() time.Time { return base }
	tok, err := s.Sign("sess-1", "survey-1")
	require.NoError(t, err)

	s.now = func() time.Time { return base.Add(2 * time.Minute) }
	_, err = s.Parse(tok)
	assert.Error(t, err)
}

func TestWithSessionReadsBothHeaders(t *testing.T) {
	s := NewSessionSigner("k1", time.Hour)
	tok, err := s.Sign("sess-1", "survey-1")
	require.NoError(t, err)

	var got *SessionClaims
	h := s.WithSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = SessionFromContext(r.Context())
	}))

	for _, set := range []func(*http.Request){
		func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+tok) },
		func(r *http.Request) { r.Header.Set(SessionHeader, tok) },
	} {
		got = nil
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		set(req)
		h.ServeHTTP(httptest.NewRecorder(), req)
		require.NotNil(t, got)
		assert.Equal(t, "sess-1", got.SessionID)
	}

	got = nil
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(SessionHeader, "garbage")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Nil(t, got)
}

func TestCORS(t *testing.T) {
	h := CORS([]string{"https://app.example"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/surveys", nil)
	req.Header.Set("Origin", "https://app.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/surveys", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestLocaleMiddleware(t *testing.T) {
	var locale string
	h := LocaleMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		locale = LocaleFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/?lang=en", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "en", locale)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Language", "fr-FR")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "es", locale)
}

func TestHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	NoStore(SecureHeaders(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Contains(t, rec.Header().Get("Cache-Control"), "no-store")
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}
