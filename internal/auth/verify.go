package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// BotFrameworkOpenIDMetadata publishes the keys that sign channel service tokens.
	BotFrameworkOpenIDMetadata = "https://login.botframework.com/v1/.well-known/openidconfiguration"

	// BotFrameworkIssuer is the iss claim of channel service tokens.
	BotFrameworkIssuer = "https://api.botframework.com"

	keyRefreshInterval = 24 * time.Hour
	minKeyRefetch      = time.Minute
	clockSkew          = 5 * time.Minute
)

// ErrUnauthorized is returned when an inbound request carries no valid
// channel service token.
var ErrUnauthorized = errors.New("auth: request not authenticated")

// Verifier authenticates inbound activities: the bearer token must be signed
// by a key from the OpenID metadata, issued by the channel service, addressed
// to the agent's app id and bound to the activity's service URL.
type Verifier struct {
	metadataURL string
	issuer      string
	audience    string
	httpClient  *http.Client

	mu        sync.Mutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

// NewVerifier creates a Verifier for tokens addressed to audience (the
// agent's client id). A nil httpClient uses a client with a 30 second timeout.
func NewVerifier(metadataURL, audience string, httpClient *http.Client) *Verifier {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if metadataURL == "" {
		metadataURL = BotFrameworkOpenIDMetadata
	}
	return &Verifier{
		metadataURL: metadataURL,
		issuer:      BotFrameworkIssuer,
		audience:    audience,
		httpClient:  httpClient,
	}
}

// Verify checks the Authorization header of an activity posted for
// serviceURL and returns the caller's identity. Every failure wraps
// ErrUnauthorized.
func (v *Verifier) Verify(ctx context.Context, authorization, serviceURL string) (ClaimsIdentity, error) {
	raw, ok := strings.CutPrefix(authorization, "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		return ClaimsIdentity{}, fmt.Errorf("%w: missing bearer token", ErrUnauthorized)
	}

	token, err := jwt.Parse(strings.TrimSpace(raw), v.keyFunc(ctx),
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithIssuer(v.issuer),
		jwt.WithAudience(v.audience),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(clockSkew),
	)
	if err != nil {
		return ClaimsIdentity{}, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return ClaimsIdentity{}, fmt.Errorf("%w: unexpected claims type", ErrUnauthorized)
	}

	if serviceURL != "" {
		claimed, _ := claims["serviceurl"].(string)
		if !sameServiceURL(claimed, serviceURL) {
			return ClaimsIdentity{}, fmt.Errorf("%w: serviceurl claim %q does not match %q", ErrUnauthorized, claimed, serviceURL)
		}
	}

	return identityFromClaims(claims), nil
}

func sameServiceURL(a, b string) bool {
	return a != "" && strings.EqualFold(strings.TrimRight(a, "/"), strings.TrimRight(b, "/"))
}

func (v *Verifier) keyFunc(ctx context.Context) jwt.Keyfunc {
	return func(token *jwt.Token) (any, error) {
		kid, _ := token.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("token has no kid")
		}
		return v.key(ctx, kid)
	}
}

// key returns the signing key kid, refreshing the key set when it is stale
// or kid is unknown (at most once a minute).
func (v *Verifier) key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if key, ok := v.keys[kid]; ok && time.Since(v.fetchedAt) < keyRefreshInterval {
		return key, nil
	}
	if v.keys == nil || time.Since(v.fetchedAt) >= minKeyRefetch {
		keys, err := v.fetchKeys(ctx)
		if err != nil {
			return nil, err
		}
		v.keys = keys
		v.fetchedAt = time.Now()
	}
	key, ok := v.keys[kid]
	if !ok {
		return nil, fmt.Errorf("unknown signing key %q", kid)
	}
	return key, nil
}

type openIDMetadata struct {
	JWKSURI string `json:"jwks_uri"`
}

type jsonWebKey struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type jsonWebKeySet struct {
	Keys []jsonWebKey `json:"keys"`
}

func (v *Verifier) fetchKeys(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	var meta openIDMetadata
	if err := v.getJSON(ctx, v.metadataURL, &meta); err != nil {
		return nil, fmt.Errorf("fetching openid metadata: %w", err)
	}
	if meta.JWKSURI == "" {
		return nil, errors.New("openid metadata has no jwks_uri")
	}

	var set jsonWebKeySet
	if err := v.getJSON(ctx, meta.JWKSURI, &set); err != nil {
		return nil, fmt.Errorf("fetching signing keys: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, k := range set.Keys {
		if k.Kty != "RSA" || k.Kid == "" {
			continue
		}
		key, err := rsaPublicKey(k.N, k.E)
		if err != nil {
			return nil, fmt.Errorf("decoding key %s: %w", k.Kid, err)
		}
		keys[k.Kid] = key
	}
	return keys, nil
}

func (v *Verifier) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := v.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}
	return json.Unmarshal(body, out)
}

func rsaPublicKey(n, e string) (*rsa.PublicKey, error) {
	nb, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(n, "="))
	if err != nil {
		return nil, fmt.Errorf("modulus: %w", err)
	}
	eb, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(e, "="))
	if err != nil {
		return nil, fmt.Errorf("exponent: %w", err)
	}
	exp := new(big.Int).SetBytes(eb)
	if !exp.IsInt64() || exp.Int64() > 1<<31-1 || exp.Int64() < 3 {
		return nil, errors.New("invalid exponent")
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nb), E: int(exp.Int64())}, nil
}
