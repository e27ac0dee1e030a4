package auth

import (
	"context"
	"fmt"

	"ms-booking/internal/config"

	"github.com/coreos/go-oidc/v3/oidc"
)

// OIDCVerifier checks tokens against an OpenID Connect issuer's keys.
type OIDCVerifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewOIDCVerifier discovers the issuer's configuration, e.g.
// http://auth.example.com/realms/booking.
func NewOIDCVerifier(ctx context.Context, issuer string) (*OIDCVerifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("create OIDC provider for %s: %w", issuer, err)
	}
	// Access tokens carry no fixed audience, so the client id is not checked.
	return &OIDCVerifier{verifier: provider.Verifier(&oidc.Config{SkipClientIDCheck: true})}, nil
}

func (v *OIDCVerifier) Verify(ctx context.Context, rawToken string) (*Identity, error) {
	idToken, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	var claims Claims
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to parse claims: %w", err)
	}
	claims.Subject = idToken.Subject
	return claims.identity()
}

// NewVerifier picks the shared-secret verifier when JWT_SECRET is set and
// the OIDC issuer otherwise.
func NewVerifier(ctx context.Context, cfg config.AuthConfig) (Verifier, error) {
	switch {
	case cfg.JWTSecret != "":
		return NewHS256Verifier(cfg.JWTSecret), nil
	case cfg.OIDCIssuer != "":
		return NewOIDCVerifier(ctx, cfg.OIDCIssuer)
	default:
		return nil, fmt.Errorf("auth: set JWT_SECRET or OIDC_ISSUER")
	}
}
