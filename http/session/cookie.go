package session

import (
	"encoding/hex"
	"fmt"

	"github.com/gorilla/securecookie"
	"github.com/xy-planning-network/relay"
)

// A CookieCodec signs session IDs travelling in cookies so a forged or
// tampered token fails verification before it ever reaches the registry.
//
// Tokens are opaque and the registry refuses unknown IDs anyway; the codec
// is defense in depth servers opt into, not a requirement.
type CookieCodec struct {
	name string
	sc   *securecookie.SecureCookie
}

// NewCookieCodec constructs a CookieCodec for the named cookie from a
// hex-encoded HMAC key, following the 32- or 64-byte recommendation of
// [securecookie.New].
func NewCookieCodec(name, hexKey string) (*CookieCodec, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("%w: cookie auth key is not valid hex", relay.ErrBadConfig)
	}
	if len(key) != 32 && len(key) != 64 {
		return nil, fmt.Errorf("%w: cookie auth key must be 32 or 64 bytes, got %d", relay.ErrBadConfig, len(key))
	}

	return &CookieCodec{name: name, sc: securecookie.New(key, nil)}, nil
}

// Encode signs id into a cookie value.
func (c *CookieCodec) Encode(id string) (string, error) {
	val, err := c.sc.Encode(c.name, id)
	if err != nil {
		return "", fmt.Errorf("encoding session cookie: %w", err)
	}
	return val, nil
}

// Decode verifies val and returns the session ID it carries.
func (c *CookieCodec) Decode(val string) (string, error) {
	var id string
	if err := c.sc.Decode(c.name, val, &id); err != nil {
		return "", fmt.Errorf("%w: session cookie failed verification", relay.ErrNotValid)
	}
	return id, nil
}
