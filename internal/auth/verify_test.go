package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ziadkadry99/echo-agent/internal/auth/authtest"
)

const (
	testAppID      = "app-1"
	testServiceURL = "https://smba.trafficmanager.net/amer/"
)

func TestVerifyValidToken(t *testing.T) {
	issuer := authtest.NewIssuer(t)
	v := NewVerifier(issuer.MetadataURL(), testAppID, issuer.Server.Client())

	header := "Bearer " + issuer.Token(t, testAppID, testServiceURL)
	id, err := v.Verify(context.Background(), header, testServiceURL)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !id.Authenticated {
		t.Error("expected authenticated identity")
	}
	if id.Claim("aud") != testAppID {
		t.Errorf("aud = %q", id.Claim("aud"))
	}
	if id.AppID() != "channel-app" {
		t.Errorf("AppID() = %q", id.AppID())
	}
}

func TestVerifyServiceURLTrailingSlash(t *testing.T) {
	issuer := authtest.NewIssuer(t)
	v := NewVerifier(issuer.MetadataURL(), testAppID, nil)

	header := "Bearer " + issuer.Token(t, testAppID, "https://smba.example/amer")
	if _, err := v.Verify(context.Background(), header, "https://smba.example/amer/"); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestVerifyRejects(t *testing.T) {
	issuer := authtest.NewIssuer(t)
	v := NewVerifier(issuer.MetadataURL(), testAppID, nil)

	foreignKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	now := time.Now()
	valid := func() jwt.MapClaims {
		return jwt.MapClaims{
			"iss":        BotFrameworkIssuer,
			"aud":        testAppID,
			"serviceurl": testServiceURL,
			"exp":        now.Add(time.Hour).Unix(),
		}
	}
	with := func(key string, value any) jwt.MapClaims {
		c := valid()
		if value == nil {
			delete(c, key)
		} else {
			c[key] = value
		}
		return c
	}

	tests := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"basic auth", "Basic dXNlcjpwYXNz"},
		{"not a jwt", "Bearer not-a-jwt"},
		{"foreign key", "Bearer " + authtest.SignWith(t, foreignKey, valid())},
		{"wrong audience", "Bearer " + issuer.Sign(t, with("aud", "someone-else"))},
		{"wrong issuer", "Bearer " + issuer.Sign(t, with("iss", "https://evil.example"))},
		{"expired", "Bearer " + issuer.Sign(t, with("exp", now.Add(-time.Hour).Unix()))},
		{"no expiry", "Bearer " + issuer.Sign(t, with("exp", nil))},
		{"other service url", "Bearer " + issuer.Sign(t, with("serviceurl", "https://attacker.example/"))},
		{"no service url", "Bearer " + issuer.Sign(t, with("serviceurl", nil))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(context.Background(), tt.header, testServiceURL)
			if !errors.Is(err, ErrUnauthorized) {
				t.Errorf("Verify err = %v, want ErrUnauthorized", err)
			}
		})
	}
}

func TestVerifyUnsignedToken(t *testing.T) {
	issuer := authtest.NewIssuer(t)
	v := NewVerifier(issuer.MetadataURL(), testAppID, nil)

	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"iss": BotFrameworkIssuer, "aud": testAppID, "serviceurl": testServiceURL,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := v.Verify(context.Background(), "Bearer "+signed, testServiceURL); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("Verify err = %v, want ErrUnauthorized", err)
	}
}

func TestVerifyMetadataUnavailable(t *testing.T) {
	issuer := authtest.NewIssuer(t)
	v := NewVerifier("http://127.0.0.1:1/missing", testAppID, nil)

	header := "Bearer " + issuer.Token(t, testAppID, testServiceURL)
	if _, err := v.Verify(context.Background(), header, testServiceURL); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("Verify err = %v, want ErrUnauthorized", err)
	}
}

func TestIdentityFromClaims(t *testing.T) {
	id := identityFromClaims(map[string]any{"azp": "v2-caller", "ver": float64(2)})
	if id.AppID() != "v2-caller" {
		t.Errorf("AppID() = %q", id.AppID())
	}
	if id.Claim("ver") != "2" {
		t.Errorf("ver = %q", id.Claim("ver"))
	}
}
