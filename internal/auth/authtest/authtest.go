// Package authtest provides a local OpenID issuer that signs channel service
// tokens for tests.
package authtest

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// KeyID is the kid of the issuer's signing key.
const KeyID = "test-key"

// Issuer serves OpenID metadata and a key set, and signs tokens with the
// matching private key.
type Issuer struct {
	Server *httptest.Server
	key    *rsa.PrivateKey
}

// NewIssuer starts an issuer that is closed when the test ends.
func NewIssuer(t testing.TB) *Issuer {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generating key: %v", err)
	}

	iss := &Issuer{key: key}
	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openidconfiguration", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"jwks_uri": iss.Server.URL + "/keys"})
	})
	mux.HandleFunc("/keys", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"keys": []map[string]string{{
			"kid": KeyID,
			"kty": "RSA",
			"use": "sig",
			"n":   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
		}}})
	})
	iss.Server = httptest.NewServer(mux)
	t.Cleanup(iss.Server.Close)
	return iss
}

// MetadataURL is the OpenID metadata document of the issuer.
func (i *Issuer) MetadataURL() string {
	return i.Server.URL + "/.well-known/openidconfiguration"
}

// Token signs a valid channel service token for audience bound to serviceURL.
func (i *Issuer) Token(t testing.TB, audience, serviceURL string) string {
	t.Helper()
	now := time.Now()
	return i.Sign(t, jwt.MapClaims{
		"iss":        "https://api.botframework.com",
		"aud":        audience,
		"serviceurl": serviceURL,
		"appid":      "channel-app",
		"iat":        now.Unix(),
		"nbf":        now.Add(-time.Minute).Unix(),
		"exp":        now.Add(time.Hour).Unix(),
	})
}

// Sign signs arbitrary claims with the issuer's key.
func (i *Issuer) Sign(t testing.TB, claims jwt.MapClaims) string {
	t.Helper()
	return SignWith(t, i.key, claims)
}

// SignWith signs claims with key under KeyID, which lets tests forge tokens
// with a key the issuer does not publish.
func SignWith(t testing.TB, key *rsa.PrivateKey, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = KeyID
	signed, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return signed
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
