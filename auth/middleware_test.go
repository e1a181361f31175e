// Package auth tests JWT middleware behavior against a mock JWKS.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"example/plan-api/app/config"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

func newProtectedRouter(verifier IdentityVerifier) (*gin.Engine, *int) {
	hits := 0
	router := gin.New()
	router.Use(Middleware(verifier, MiddlewareConfig{}))
	router.POST("/protected", func(c *gin.Context) {
		hits++
		claims, ok := ClaimsFromContext(c.Request.Context())
		if !ok || claims.Subject == "" {
			c.Status(http.StatusTeapot)
			return
		}
		c.String(http.StatusOK, claims.Subject)
	})
	return router, &hits
}

func errorCode(t *testing.T, resp *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", resp.Body.String(), err)
	}
	return body.Error
}

func TestMiddlewareMissingToken(t *testing.T) {
	t.Setenv("AUTH_DISABLED", "false")
	verifier, _ := newTestVerifier(t)
	router, hits := newProtectedRouter(verifier)

	req := httptest.NewRequest(http.MethodPost, "/protected", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
	if code := errorCode(t, resp); code != CodeMissingBearerToken {
		t.Fatalf("expected %s, got %s", CodeMissingBearerToken, code)
	}
	if *hits != 0 {
		t.Fatalf("handler should not run without a token")
	}
}

func TestMiddlewareMalformedHeader(t *testing.T) {
	t.Setenv("AUTH_DISABLED", "false")
	verifier, _ := newTestVerifier(t)
	router, _ := newProtectedRouter(verifier)

	req := httptest.NewRequest(http.MethodPost, "/protected", nil)
	req.Header.Set("Authorization", "Token abc")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized || errorCode(t, resp) != CodeMissingBearerToken {
		t.Fatalf("expected 401 %s, got %d %s", CodeMissingBearerToken, resp.Code, resp.Body.String())
	}
}

func TestMiddlewareInvalidToken(t *testing.T) {
	t.Setenv("AUTH_DISABLED", "false")
	verifier, _ := newTestVerifier(t)

	badKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to create key: %v", err)
	}
	tokenString := signToken(t, badKey, "test-key", verifier.issuer, verifier.audience)
	router, hits := newProtectedRouter(verifier)

	req := httptest.NewRequest(http.MethodPost, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+tokenString)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
	if code := errorCode(t, resp); code != CodeUnauthorized {
		t.Fatalf("expected %s, got %s", CodeUnauthorized, code)
	}
	if *hits != 0 {
		t.Fatalf("handler should not run with an invalid token")
	}
}

func TestMiddlewareValidToken(t *testing.T) {
	t.Setenv("AUTH_DISABLED", "false")
	verifier, key := newTestVerifier(t)
	tokenString := signToken(t, key, "test-key", verifier.issuer, verifier.audience)
	router, _ := newProtectedRouter(verifier)

	req := httptest.NewRequest(http.MethodPost, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+tokenString)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK || resp.Body.String() != "user-123" {
		t.Fatalf("expected 200 user-123, got %d %q", resp.Code, resp.Body.String())
	}
}

func TestMiddlewareNilVerifier(t *testing.T) {
	t.Setenv("AUTH_DISABLED", "false")
	router, _ := newProtectedRouter(nil)

	req := httptest.NewRequest(http.MethodPost, "/protected", nil)
	req.Header.Set("Authorization", "Bearer abc")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}
}

func TestMiddlewareDisabledInjectsLocalIdentity(t *testing.T) {
	router := gin.New()
	router.Use(Middleware(nil, MiddlewareConfig{DisableAuth: true}))
	router.GET("/me", func(c *gin.Context) {
		claims, _ := ClaimsFromContext(c.Request.Context())
		c.String(http.StatusOK, claims.Subject)
	})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/me", nil))
	if resp.Code != http.StatusOK || resp.Body.String() != "local-dev" {
		t.Fatalf("expected local-dev identity, got %d %q", resp.Code, resp.Body.String())
	}
}

func TestSecretVerifier(t *testing.T) {
	verifier, err := NewSecretVerifier("super-secret", "https://project.supabase.co/auth/v1", "authenticated")
	if err != nil {
		t.Fatalf("NewSecretVerifier error = %v", err)
	}

	sign := func(secret, aud string) string {
		t.Helper()
		now := time.Now()
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"iss":   "https://project.supabase.co/auth/v1",
			"aud":   aud,
			"sub":   "7b0c5f9e-user",
			"email": "user@example.com",
			"role":  "authenticated",
			"exp":   now.Add(10 * time.Minute).Unix(),
		})
		s, err := token.SignedString([]byte(secret))
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return s
	}

	claims, err := verifier.Verify(context.Background(), sign("super-secret", "authenticated"))
	if err != nil {
		t.Fatalf("Verify error = %v", err)
	}
	if claims.Subject != "7b0c5f9e-user" || claims.Email != "user@example.com" || claims.Role != "authenticated" {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	if _, err := verifier.Verify(context.Background(), sign("wrong-secret", "authenticated")); err == nil {
		t.Fatalf("expected error for wrong secret")
	}
	if _, err := verifier.Verify(context.Background(), sign("super-secret", "anon")); err == nil {
		t.Fatalf("expected error for wrong audience")
	}
}

func TestSecretVerifierRejectsMissingExpiry(t *testing.T) {
	verifier, err := NewSecretVerifier("super-secret", "", "")
	if err != nil {
		t.Fatalf("NewSecretVerifier error = %v", err)
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "user-1"})
	s, _ := token.SignedString([]byte("super-secret"))
	if _, err := verifier.Verify(context.Background(), s); err == nil {
		t.Fatalf("expected error for token without exp")
	}
}

func TestRemoteVerifier(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/user" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("apikey") != "anon-key" || r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"msg":"invalid JWT"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"user-42","email":"a@b.c","role":"authenticated","aud":"authenticated"}`))
	}))
	t.Cleanup(server.Close)

	verifier, err := NewRemoteVerifier(server.URL+"/", "anon-key", server.Client())
	if err != nil {
		t.Fatalf("NewRemoteVerifier error = %v", err)
	}

	claims, err := verifier.Verify(context.Background(), "good")
	if err != nil {
		t.Fatalf("Verify error = %v", err)
	}
	if claims.Subject != "user-42" || claims.Email != "a@b.c" || len(claims.Audience) != 1 {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	_, err = verifier.Verify(context.Background(), "bad")
	if err == nil || !strings.Contains(err.Error(), "401") {
		t.Fatalf("expected rejection error, got %v", err)
	}
}

func newTestVerifier(t *testing.T) (*Verifier, *rsa.PrivateKey) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to create key: %v", err)
	}

	jwks := newJWKS(key, "test-key")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(jwks)
	}))
	t.Cleanup(server.Close)

	issuer := "https://project.supabase.co/auth/v1"
	audience := "authenticated"
	verifier, err := NewVerifier(issuer, audience, server.URL)
	if err != nil {
		t.Fatalf("failed to create verifier: %v", err)
	}
	return verifier, key
}

func signToken(t *testing.T, key *rsa.PrivateKey, kid, issuer, audience string) string {
	t.Helper()
	now := time.Now()
	claims := jwt.MapClaims{
		"iss":  issuer,
		"aud":  audience,
		"sub":  "user-123",
		"role": "authenticated",
		"exp":  now.Add(10 * time.Minute).Unix(),
		"iat":  now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kid
	tokenString, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return tokenString
}

type jwksPayload struct {
	Keys []jwk `json:"keys"`
}

type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

func newJWKS(key *rsa.PrivateKey, kid string) jwksPayload {
	n := base64.RawURLEncoding.EncodeToString(key.PublicKey.N.Bytes())
	e := base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.PublicKey.E)).Bytes())
	return jwksPayload{
		Keys: []jwk{
			{
				Kty: "RSA",
				Kid: kid,
				Use: "sig",
				Alg: "RS256",
				N:   n,
				E:   e,
			},
		},
	}
}

func TestExtractBearerToken(t *testing.T) {
	token, ok := extractBearerToken("Bearer abc")
	if !ok || token != "abc" {
		t.Fatalf("expected token")
	}
	if token, ok := extractBearerToken("bearer  abc "); !ok || token != "abc" {
		t.Fatalf("expected case-insensitive scheme, got %q %v", token, ok)
	}
	if _, ok := extractBearerToken("Bearer"); ok {
		t.Fatalf("expected invalid header")
	}
	if _, ok := extractBearerToken("Token abc"); ok {
		t.Fatalf("expected invalid scheme")
	}
	if _, ok := extractBearerToken(""); ok {
		t.Fatalf("expected empty header to be invalid")
	}
}

func TestClaimsFromContext(t *testing.T) {
	claims := &Claims{Subject: "user-1"}
	ctx := WithClaims(context.Background(), claims)
	got, ok := ClaimsFromContext(ctx)
	if !ok || got.Subject != "user-1" {
		t.Fatalf("expected claims from context")
	}
}

func TestNewIdentityVerifier(t *testing.T) {
	v, err := NewIdentityVerifier(config.AuthConfig{Mode: "secret", JWTSecret: "s3cret"})
	if err != nil {
		t.Fatalf("secret mode error = %v", err)
	}
	if _, ok := v.(*Verifier); !ok {
		t.Fatalf("secret mode verifier = %T", v)
	}

	v, err = NewIdentityVerifier(config.AuthConfig{Mode: "remote", SupabaseURL: "https://project.supabase.co/", SupabaseAnonKey: "anon"})
	if err != nil {
		t.Fatalf("remote mode error = %v", err)
	}
	remote, ok := v.(*RemoteVerifier)
	if !ok || remote.BaseURL != "https://project.supabase.co" || remote.APIKey != "anon" {
		t.Fatalf("remote mode verifier = %+v", v)
	}

	if _, err := NewIdentityVerifier(config.AuthConfig{Mode: "jwks"}); err == nil {
		t.Fatalf("jwks mode without issuer should fail")
	}
	if _, err := NewIdentityVerifier(config.AuthConfig{Mode: "magic"}); err == nil {
		t.Fatalf("unknown mode should fail")
	}
}

func TestMiddlewareGuardsEveryRoute(t *testing.T) {
	t.Setenv("AUTH_DISABLED", "false")
	verifier, _ := newTestVerifier(t)
	hits := 0
	router := gin.New()
	router.Use(Middleware(verifier, MiddlewareConfig{}))
	for _, path := range []string{"/health", "/me", "/"} {
		router.GET(path, func(c *gin.Context) { hits++ })
	}

	for _, path := range []string{"/health", "/me", "/"} {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
		if resp.Code != http.StatusUnauthorized || errorCode(t, resp) != CodeMissingBearerToken {
			t.Fatalf("GET %s = %d, want 401 %s", path, resp.Code, CodeMissingBearerToken)
		}
	}
	if hits != 0 {
		t.Fatalf("handlers ran without a token: %d", hits)
	}
}
