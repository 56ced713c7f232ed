package session

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTampered is returned when a token's integrity tag does not match its payload,
	// or the token is not structurally a token at all.
	ErrTampered = errors.New("session token tampered")
	// ErrExpired is returned for a correctly signed token past its expiry.
	ErrExpired = errors.New("session token expired")
)

const tokenSeparator = "."

// Strict rejects non-zero padding bits, so a token has exactly one textual form.
var tokenEncoding = base64.RawURLEncoding.Strict()

var tagMethod = jwt.SigningMethodHS256

// Codec issues and decodes signed, expiring session tokens.
//
// A Codec is created once at startup with the process signing key and shared by all
// requests; it holds no mutable state and is safe for concurrent use.
type Codec struct {
	key  []byte
	now  func() time.Time
	rand io.Reader
}

// NewCodec returns a Codec signing with key. key must be at least [KeyLength] bytes;
// use [DeriveKey] or [NewRandomKey] to produce one.
func NewCodec(key []byte) (*Codec, error) {
	if len(key) < KeyLength {
		return nil, fmt.Errorf("session key must be at least %d bytes", KeyLength)
	}

	k := make([]byte, len(key))
	copy(k, key)
	return &Codec{key: k, now: time.Now, rand: rand.Reader}, nil
}

// Issue stamps claims with IssuedAt = now and ExpiresAt = now + maxAge, then returns
// the signed token together with the stamped claims. Every call signs a fresh random
// nonce, so two tokens with identical claims still differ.
func (c *Codec) Issue(claims Claims, maxAge time.Duration) (string, Claims, error) {
	now := c.now()
	claims.IssuedAt = now.Unix()
	claims.ExpiresAt = now.Add(maxAge).Unix()

	var nonce Nonce
	if _, err := io.ReadFull(c.rand, nonce[:]); err != nil {
		return "", Claims{}, fmt.Errorf("generate session nonce: %w", err)
	}

	payload, err := Encode(&claims, nonce)
	if err != nil {
		return "", Claims{}, err
	}

	signingString := tokenEncoding.EncodeToString(payload)
	tag, err := tagMethod.Sign(signingString, c.key)
	if err != nil {
		return "", Claims{}, fmt.Errorf("sign session token: %w", err)
	}

	return signingString + tokenSeparator + tokenEncoding.EncodeToString(tag), claims, nil
}

// Decode verifies token and returns its claims.
//
// The tag is checked in constant time before the payload is decoded; any mismatch or
// structural problem is reported as [ErrTampered] and no claims are returned. A valid
// token whose ExpiresAt is in the past yields [ErrExpired].
func (c *Codec) Decode(token string) (Claims, error) {
	claims, err := c.verify(token)
	if err != nil {
		return Claims{}, err
	}

	if c.now().Unix() > claims.ExpiresAt {
		return Claims{}, ErrExpired
	}

	return claims, nil
}

// Inspect verifies token's tag like [Codec.Decode] but does not check expiry. It is
// meant for bookkeeping on tokens that are being discarded, such as naming the user
// in a logout audit record; never use it to authenticate a request.
func (c *Codec) Inspect(token string) (Claims, error) {
	return c.verify(token)
}

func (c *Codec) verify(token string) (Claims, error) {
	signingString, encodedTag, ok := strings.Cut(token, tokenSeparator)
	if !ok || signingString == "" || encodedTag == "" {
		return Claims{}, ErrTampered
	}

	tag, err := tokenEncoding.DecodeString(encodedTag)
	if err != nil {
		return Claims{}, ErrTampered
	}
	if err := tagMethod.Verify(signingString, tag, c.key); err != nil {
		return Claims{}, ErrTampered
	}

	payload, err := tokenEncoding.DecodeString(signingString)
	if err != nil {
		return Claims{}, ErrTampered
	}
	claims, _, err := Decode(payload)
	if err != nil {
		return Claims{}, errors.Join(ErrTampered, err)
	}

	return *claims, nil
}
