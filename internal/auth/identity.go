package auth

import "encoding/json"

// ClaimsIdentity carries the claims presented by the caller of an inbound
// request.
type ClaimsIdentity struct {
	Claims map[string]string
	// Authenticated is true when the claims come from a verified token.
	Authenticated bool
}

// Claim returns the named claim or "".
func (c ClaimsIdentity) Claim(name string) string {
	return c.Claims[name]
}

// AppID returns the calling application id (appid for v1 tokens, azp for v2).
func (c ClaimsIdentity) AppID() string {
	if id := c.Claims["appid"]; id != "" {
		return id
	}
	return c.Claims["azp"]
}

// identityFromClaims flattens verified token claims. Non-string values are
// kept in their JSON form.
func identityFromClaims(raw map[string]any) ClaimsIdentity {
	claims := make(map[string]string, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case string:
			claims[k] = val
		default:
			b, err := json.Marshal(val)
			if err != nil {
				continue
			}
			claims[k] = string(b)
		}
	}
	return ClaimsIdentity{Claims: claims, Authenticated: true}
}
