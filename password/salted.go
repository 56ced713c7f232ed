package password

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

// SaltBytes is the number of raw random bytes in every salt.
const SaltBytes = 8

// HashLength is the length of an encoded hash (hex SHA-256).
const HashLength = sha256.Size * 2

// ErrInvalidSalt matches any [*InvalidSaltError] through errors.Is.
var ErrInvalidSalt = errors.New("invalid salt")

// InvalidSaltError reports a salt whose decoded length is not SaltBytes.
// Got is -1 when the salt is not valid base64 at all.
type InvalidSaltError struct {
	Expected int
	Got      int
}

func (e *InvalidSaltError) Error() string {
	if e.Got < 0 {
		return fmt.Sprintf("salt is not valid base64, expected %d encoded bytes", e.Expected)
	}
	return fmt.Sprintf("salt is of incorrect length. Expected %d, got: %d", e.Expected, e.Got)
}

// Is reports whether target is ErrInvalidSalt.
func (e *InvalidSaltError) Is(target error) bool {
	return target == ErrInvalidSalt
}

// Hashed is the pair a caller persists for a credential. Hash and Salt are always
// replaced together.
type Hashed struct {
	Hash string
	Salt string
}

// Salted hashes passwords as SHA-256 over the plaintext followed by the hex-encoded salt.
//
// Salted instances are immutable after construction and safe for concurrent use.
type Salted struct {
	random io.Reader
}

// NewSalted returns a hasher drawing salts from crypto/rand.
func NewSalted() *Salted {
	return &Salted{random: rand.Reader}
}

// NewSaltedWithReader returns a hasher drawing salts from r. r must be a CSPRNG outside tests.
func NewSaltedWithReader(r io.Reader) *Salted {
	if r == nil {
		r = rand.Reader
	}
	return &Salted{random: r}
}

// GenerateSalt returns SaltBytes random bytes, base64 encoded for storage as text.
func (s *Salted) GenerateSalt() (string, error) {
	raw := make([]byte, SaltBytes)
	if _, err := io.ReadFull(s.random, raw); err != nil {
		return "", fmt.Errorf("read salt: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// Hash computes the salted hash of plaintext. An empty salt generates a fresh one; a
// supplied salt must decode to exactly SaltBytes bytes or an [*InvalidSaltError] is
// returned. The returned Hashed always carries the salt that was used.
func (s *Salted) Hash(plaintext, salt string) (Hashed, error) {
	if salt == "" {
		generated, err := s.GenerateSalt()
		if err != nil {
			return Hashed{}, err
		}
		salt = generated
	}
	if err := validateSalt(salt); err != nil {
		return Hashed{}, err
	}

	return Hashed{Hash: digest(plaintext, salt), Salt: salt}, nil
}

// Verify recomputes the hash of plaintext under storedSalt and compares it with
// storedHash in constant time. A corrupted storedSalt yields an [*InvalidSaltError];
// it is never silently treated as a mismatch.
func (s *Salted) Verify(plaintext, storedHash, storedSalt string) (bool, error) {
	if err := validateSalt(storedSalt); err != nil {
		return false, err
	}

	computed := digest(plaintext, storedSalt)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(storedHash)) == 1, nil
}

func validateSalt(salt string) error {
	raw, err := base64.StdEncoding.DecodeString(salt)
	if err != nil {
		return &InvalidSaltError{Expected: SaltBytes, Got: -1}
	}
	if len(raw) != SaltBytes {
		return &InvalidSaltError{Expected: SaltBytes, Got: len(raw)}
	}
	return nil
}

func digest(plaintext, salt string) string {
	h := sha256.New()
	h.Write([]byte(plaintext))
	h.Write([]byte(hex.EncodeToString([]byte(salt))))
	return hex.EncodeToString(h.Sum(nil))
}
