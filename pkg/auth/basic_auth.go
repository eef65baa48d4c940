package auth

import (
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/saturnines/msisdn-extractor/pkg/errors"
)

// BasicAuth implements the interface for HTTP basic authentication
type BasicAuth struct {
	Username string // Username for Basic auth
	Password string // Password for Basic auth

	header string // precomputed, every request of a batch sends the same value
}

// NewBasicAuth creates a new basic authentication handler
func NewBasicAuth(username, password string) *BasicAuth {
	b := &BasicAuth{
		Username: username,
		Password: password,
	}
	if username != "" {
		b.header = basicHeader(username, password)
	}
	return b
}

// ApplyAuth sets the Authorization header
func (b *BasicAuth) ApplyAuth(req *http.Request) error {
	if b.Username == "" {
		return errors.WrapError(
			fmt.Errorf("username is empty"),
			errors.ErrAuthentication,
			"apply basic auth",
		)
	}
	// an empty password is fine, some gateways only check the user

	// handlers built as struct literals skip NewBasicAuth
	header := b.header
	if header == "" {
		header = basicHeader(b.Username, b.Password)
	}
	req.Header.Set("Authorization", header)

	return nil
}

func basicHeader(username, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(username+":"+password))
}

// String never includes the password
func (b *BasicAuth) String() string {
	return fmt.Sprintf("BasicAuth(username: %s)", b.Username)
}
