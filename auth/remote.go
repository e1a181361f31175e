package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPDoer abstracts HTTP clients used by the remote verifier.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RemoteVerifier asks the identity provider's user endpoint
// (GET {baseURL}/auth/v1/user) to resolve a bearer token.
type RemoteVerifier struct {
	BaseURL string
	APIKey  string
	Client  HTTPDoer
}

type remoteUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
	Aud   string `json:"aud"`
}

// NewRemoteVerifier constructs a RemoteVerifier for a Supabase-style auth service.
func NewRemoteVerifier(baseURL, apiKey string, client HTTPDoer) (*RemoteVerifier, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("identity provider url must be set")
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &RemoteVerifier{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Client:  client,
	}, nil
}

// Verify resolves the caller for token. Any non-2xx answer is an invalid token.
func (v *RemoteVerifier) Verify(ctx context.Context, token string) (*Claims, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.BaseURL+"/auth/v1/user", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if v.APIKey != "" {
		req.Header.Set("apikey", v.APIKey)
	}

	resp, err := v.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("identity provider rejected token: %d %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var user remoteUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	if user.ID == "" {
		return nil, errors.New("identity provider returned no user")
	}
	claims := &Claims{
		Subject: user.ID,
		Email:   user.Email,
		Role:    user.Role,
		Raw:     map[string]any{"sub": user.ID, "email": user.Email, "role": user.Role},
	}
	if user.Aud != "" {
		claims.Audience = []string{user.Aud}
	}
	return claims, nil
}
