package auth

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/ziadkadry99/echo-agent/internal/config"
)

// managedIdentityAPIVersion is the instance metadata token API version.
const managedIdentityAPIVersion = "2018-02-01"

// TokenProvider supplies credentials for outbound calls to a resource.
type TokenProvider interface {
	TokenSource(resource string) oauth2.TokenSource
}

// ManagedIdentityProvider acquires tokens for a user-assigned managed
// identity from the instance metadata endpoint. Tokens are cached and
// refreshed by oauth2.ReuseTokenSource, one source per resource.
type ManagedIdentityProvider struct {
	clientID   string
	endpoint   string
	httpClient *http.Client

	mu      sync.Mutex
	sources map[string]oauth2.TokenSource
}

// NewManagedIdentityProvider creates a provider for the identity configured
// in cfg. A nil httpClient uses a client with a 30 second timeout.
func NewManagedIdentityProvider(cfg *config.Config, httpClient *http.Client) *ManagedIdentityProvider {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	endpoint := cfg.IdentityEndpoint
	if endpoint == "" {
		endpoint = config.DefaultIdentityEndpoint
	}
	return &ManagedIdentityProvider{
		clientID:   cfg.ClientID,
		endpoint:   endpoint,
		httpClient: httpClient,
		sources:    make(map[string]oauth2.TokenSource),
	}
}

// TokenSource returns the cached token source for resource.
func (p *ManagedIdentityProvider) TokenSource(resource string) oauth2.TokenSource {
	p.mu.Lock()
	defer p.mu.Unlock()

	if ts, ok := p.sources[resource]; ok {
		return ts
	}
	ts := oauth2.ReuseTokenSource(nil, &managedIdentitySource{provider: p, resource: resource})
	p.sources[resource] = ts
	return ts
}

type managedIdentitySource struct {
	provider *ManagedIdentityProvider
	resource string
}

type managedIdentityToken struct {
	AccessToken string      `json:"access_token"`
	ExpiresIn   json.Number `json:"expires_in"`
	TokenType   string      `json:"token_type"`
}

// Token requests a fresh token from the metadata endpoint.
func (s *managedIdentitySource) Token() (*oauth2.Token, error) {
	p := s.provider

	u, err := url.Parse(p.endpoint)
	if err != nil {
		return nil, fmt.Errorf("parsing identity endpoint: %w", err)
	}
	q := u.Query()
	q.Set("api-version", managedIdentityAPIVersion)
	q.Set("resource", s.resource)
	if p.clientID != "" {
		q.Set("client_id", p.clientID)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequest(http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("building token request: %w", err)
	}
	req.Header.Set("Metadata", "true")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting managed identity token: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("managed identity token request failed (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var tok managedIdentityToken
	if err := json.Unmarshal(body, &tok); err != nil {
		return nil, fmt.Errorf("parsing token response: %w", err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("managed identity token response has no access_token")
	}

	token := &oauth2.Token{
		AccessToken: tok.AccessToken,
		TokenType:   tok.TokenType,
	}
	if secs, err := strconv.ParseInt(tok.ExpiresIn.String(), 10, 64); err == nil && secs > 0 {
		token.Expiry = time.Now().Add(time.Duration(secs) * time.Second)
	}
	return token, nil
}

// ResourceFromScope converts a v2 scope ("https://api.botframework.com/.default")
// to the v1 resource the metadata endpoint expects.
func ResourceFromScope(scope string) string {
	return strings.TrimSuffix(scope, "/.default")
}
