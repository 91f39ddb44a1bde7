package connector

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/ziadkadry99/echo-agent/internal/auth"
)

// BotFrameworkScope is the scope of tokens accepted by the channel service.
const BotFrameworkScope = "https://api.botframework.com/.default"

// Factory creates channel service clients authenticated through a
// connection set.
type Factory struct {
	connections auth.Connections
	scope       string
	base        http.RoundTripper
}

// NewFactory creates a Factory. A nil base uses http.DefaultTransport.
func NewFactory(connections auth.Connections, base http.RoundTripper) *Factory {
	return &Factory{
		connections: connections,
		scope:       BotFrameworkScope,
		base:        base,
	}
}

// Create resolves the token provider for identity and serviceURL and
// returns a client for serviceURL.
func (f *Factory) Create(ctx context.Context, identity auth.ClaimsIdentity, serviceURL string) (*Client, error) {
	if serviceURL == "" {
		return nil, fmt.Errorf("activity has no serviceUrl")
	}
	provider, err := f.connections.TokenProvider(identity, serviceURL)
	if err != nil {
		return nil, fmt.Errorf("resolving token provider: %w", err)
	}

	httpClient := &http.Client{
		Transport: &oauth2.Transport{
			Source: provider.TokenSource(auth.ResourceFromScope(f.scope)),
			Base:   f.base,
		},
	}
	return NewClient(serviceURL, httpClient), nil
}
