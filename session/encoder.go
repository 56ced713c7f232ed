package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const claimsFormatVersionCurrent = 2

// NonceSize is the length of the random nonce carried in every payload.
const NonceSize = 16

// Nonce makes each issued token unique even when its claims repeat within one
// second. It is signed with the claims but never surfaced in [Claims].
type Nonce [NonceSize]byte

// CurrentSchemaVersion is the binary claims layout written by [Encode].
const CurrentSchemaVersion = claimsFormatVersionCurrent

// ErrMalformedClaims is returned by [Decode] for any payload it cannot parse.
var ErrMalformedClaims = errors.New("malformed session claims")

// Encode serializes c and nonce deterministically: a version byte, the nonce,
// length-prefixed UserID and Username, then IssuedAt and ExpiresAt as big-endian
// int64.
func Encode(c *Claims, nonce Nonce) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(claimsFormatVersionCurrent)
	buf.Write(nonce[:])

	if len(c.UserID) > 255 {
		return nil, errors.New("userID too long")
	}
	buf.WriteByte(byte(len(c.UserID)))
	buf.WriteString(c.UserID)

	if len(c.Username) > 255 {
		return nil, errors.New("username too long")
	}
	buf.WriteByte(byte(len(c.Username)))
	buf.WriteString(c.Username)

	if err := binary.Write(&buf, binary.BigEndian, c.IssuedAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, c.ExpiresAt); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Decode parses a payload produced by [Encode]. Trailing bytes are rejected so every
// (Claims, Nonce) pair has exactly one encoding.
func Decode(data []byte) (*Claims, Nonce, error) {
	var nonce Nonce
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, nonce, fmt.Errorf("%w: %v", ErrMalformedClaims, err)
	}
	if version != claimsFormatVersionCurrent {
		return nil, nonce, fmt.Errorf("%w: unsupported session schema version %d", ErrMalformedClaims, version)
	}

	if _, err := io.ReadFull(reader, nonce[:]); err != nil {
		return nil, Nonce{}, fmt.Errorf("%w: %v", ErrMalformedClaims, err)
	}

	c := &Claims{}

	if c.UserID, err = readString(reader); err != nil {
		return nil, Nonce{}, err
	}
	if c.Username, err = readString(reader); err != nil {
		return nil, Nonce{}, err
	}

	if err := binary.Read(reader, binary.BigEndian, &c.IssuedAt); err != nil {
		return nil, Nonce{}, fmt.Errorf("%w: %v", ErrMalformedClaims, err)
	}
	if err := binary.Read(reader, binary.BigEndian, &c.ExpiresAt); err != nil {
		return nil, Nonce{}, fmt.Errorf("%w: %v", ErrMalformedClaims, err)
	}

	if reader.Len() != 0 {
		return nil, Nonce{}, fmt.Errorf("%w: %d trailing bytes", ErrMalformedClaims, reader.Len())
	}

	return c, nonce, nil
}

func readString(reader *bytes.Reader) (string, error) {
	n, err := reader.ReadByte()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedClaims, err)
	}
	raw := make([]byte, n)
	if _, err := io.ReadFull(reader, raw); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedClaims, err)
	}
	return string(raw), nil
}
