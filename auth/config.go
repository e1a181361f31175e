package auth

import (
	"fmt"
	"strings"

	"example/plan-api/app/config"
)

// NewIdentityVerifier builds the verifier selected by cfg.Mode. When no
// issuer is configured, the Supabase project URL supplies it.
func NewIdentityVerifier(cfg config.AuthConfig) (IdentityVerifier, error) {
	issuer := cfg.Issuer
	if issuer == "" && cfg.SupabaseURL != "" {
		issuer = strings.TrimRight(cfg.SupabaseURL, "/") + "/auth/v1"
	}
	audience := cfg.Audience

	var (
		verifier IdentityVerifier
		err      error
	)
	switch cfg.Mode {
	case "", "jwks":
		if audience == "" {
			audience = "authenticated"
		}
		verifier, err = NewVerifier(issuer, audience, cfg.JWKSURL)
	case "secret":
		verifier, err = NewSecretVerifier(cfg.JWTSecret, issuer, audience)
	case "remote":
		verifier, err = NewRemoteVerifier(cfg.SupabaseURL, cfg.SupabaseAnonKey, nil)
	default:
		err = fmt.Errorf("unknown AUTH_MODE %q", cfg.Mode)
	}
	if err != nil {
		return nil, err
	}
	return verifier, nil
}
