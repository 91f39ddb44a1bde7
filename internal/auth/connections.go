package auth

import (
	"errors"

	"github.com/ziadkadry99/echo-agent/internal/config"
)

// ErrNotSupported is returned by lookups a Connections implementation does
// not provide.
var ErrNotSupported = errors.New("auth: lookup not supported by this connection set")

// Connections resolves the token provider used for outbound calls.
type Connections interface {
	DefaultConnection() (TokenProvider, error)
	Connection(name string) (TokenProvider, error)
	TokenProvider(identity ClaimsIdentity, serviceURL string) (TokenProvider, error)
	DefaultConnectionConfiguration() (*config.Config, error)
}

// SingleConnection trusts exactly one identity: every per-claims lookup
// resolves to the same provider. Default and named lookups are not
// supported.
type SingleConnection struct {
	provider TokenProvider
}

// NewSingleConnection wraps provider.
func NewSingleConnection(provider TokenProvider) *SingleConnection {
	return &SingleConnection{provider: provider}
}

func (c *SingleConnection) DefaultConnection() (TokenProvider, error) {
	return nil, ErrNotSupported
}

func (c *SingleConnection) Connection(name string) (TokenProvider, error) {
	return nil, ErrNotSupported
}

// TokenProvider ignores identity and serviceURL.
func (c *SingleConnection) TokenProvider(identity ClaimsIdentity, serviceURL string) (TokenProvider, error) {
	return c.provider, nil
}

func (c *SingleConnection) DefaultConnectionConfiguration() (*config.Config, error) {
	return nil, ErrNotSupported
}
