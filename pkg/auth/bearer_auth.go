package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/saturnines/msisdn-extractor/pkg/errors"
)

// DefaultBearerScheme prefixes the token unless a scheme is configured
const DefaultBearerScheme = "Bearer"

// BearerAuth sends a static token in the Authorization header
type BearerAuth struct {
	Token  string // The token itself
	Scheme string // Authorization scheme, "Bearer" when empty
}

// NewBearerAuth creates a new bearer token authentication handler
func NewBearerAuth(token string) *BearerAuth {
	return &BearerAuth{
		Token:  token,
		Scheme: DefaultBearerScheme,
	}
}

// NewTokenAuth creates a handler for gateways that expect another scheme,
// e.g. "Token abc"
func NewTokenAuth(scheme, token string) *BearerAuth {
	b := NewBearerAuth(token)
	if s := strings.TrimSpace(scheme); s != "" {
		b.Scheme = s
	}
	return b
}

// ApplyAuth adds the token to the Authorization header
func (b *BearerAuth) ApplyAuth(req *http.Request) error {
	if b.Token == "" {
		return errors.WrapError(
			fmt.Errorf("token is empty"),
			errors.ErrAuthentication,
			"apply bearer auth",
		)
	}

	req.Header.Set("Authorization", b.schemeOrDefault()+" "+b.Token)

	return nil
}

// String hides the token
func (b *BearerAuth) String() string {
	return fmt.Sprintf("BearerAuth(scheme: %s, token: [REDACTED])", b.schemeOrDefault())
}

func (b *BearerAuth) schemeOrDefault() string {
	if b.Scheme == "" {
		return DefaultBearerScheme
	}
	return b.Scheme
}
