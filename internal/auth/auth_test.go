package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

func signHS256(t *testing.T, secret string, claims jwt.RegisteredClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return token
}

func TestVerifierAcceptsSubject(t *testing.T) {
	v, err := NewVerifier(Options{Secret: "s3cret", Issuer: "https://id.example"})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	token := signHS256(t, "s3cret", jwt.RegisteredClaims{
		Subject:   "user_123",
		Issuer:    "https://id.example",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	userID, err := v.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if userID != "user_123" {
		t.Fatalf("expected user_123, got %q", userID)
	}
}

func TestVerifierRejects(t *testing.T) {
	v, _ := NewVerifier(Options{Secret: "s3cret", Issuer: "https://id.example"})
	cases := map[string]string{
		"wrong secret": signHS256(t, "other", jwt.RegisteredClaims{Subject: "u", Issuer: "https://id.example"}),
		"wrong issuer": signHS256(t, "s3cret", jwt.RegisteredClaims{Subject: "u", Issuer: "https://evil.example"}),
		"no subject":   signHS256(t, "s3cret", jwt.RegisteredClaims{Issuer: "https://id.example"}),
		"expired": signHS256(t, "s3cret", jwt.RegisteredClaims{
			Subject: "u", Issuer: "https://id.example", ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		}),
		"garbage": "not-a-token",
	}
	for name, token := range cases {
		if _, err := v.Verify(token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("%s: expected invalid token, got %v", name, err)
		}
	}
}

func TestNewVerifierNeedsKey(t *testing.T) {
	if _, err := NewVerifier(Options{}); !errors.Is(err, ErrNoVerificationKey) {
		t.Fatalf("expected missing key error, got %v", err)
	}
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	v, _ := NewVerifier(Options{Secret: "s3cret"})
	r := gin.New()
	r.Use(Authenticate(v, nil))
	r.GET("/whoami", func(c *gin.Context) { c.String(http.StatusOK, UserID(c)) })
	r.GET("/private", RequireUser(), func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	token := signHS256(t, "s3cret", jwt.RegisteredClaims{Subject: "user_9"})

	cases := []struct {
		name   string
		path   string
		header string
		status int
		body   string
	}{
		{"guest", "/whoami", "", http.StatusOK, ""},
		{"bearer", "/whoami", "Bearer " + token, http.StatusOK, "user_9"},
		{"query token", "/whoami?token=" + token, "", http.StatusOK, "user_9"},
		{"bad token", "/whoami", "Bearer nope", http.StatusUnauthorized, ""},
		{"guest on private", "/private", "", http.StatusUnauthorized, ""},
		{"user on private", "/private", "Bearer " + token, http.StatusOK, "ok"},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, tc.path, nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != tc.status {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.status, rec.Code)
		}
		if tc.status == http.StatusOK && rec.Body.String() != tc.body {
			t.Fatalf("%s: expected body %q, got %q", tc.name, tc.body, rec.Body.String())
		}
	}
}
