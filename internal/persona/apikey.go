package persona

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"github.com/jaevor/go-nanoid"
)

const (
	keyAlphabet  = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	prefixLength = 8
	secretLength = 32
)

// KeyGenerator mints API keys of the form "<prefix>.<secret>".
type KeyGenerator struct {
	prefix func() string
	secret func() string
}

// NewKeyGenerator creates a generator for alphanumeric keys.
func NewKeyGenerator() (*KeyGenerator, error) {
	prefix, err := nanoid.CustomASCII(keyAlphabet, prefixLength)
	if err != nil {
		return nil, err
	}

	secret, err := nanoid.CustomASCII(keyAlphabet, secretLength)
	if err != nil {
		return nil, err
	}

	return &KeyGenerator{prefix: prefix, secret: secret}, nil
}

// Generate returns a new key prefix, the raw key to hand out, and its hash for storage.
func (g *KeyGenerator) Generate() (prefix, raw, hashed string) {
	prefix = g.prefix()
	raw = prefix + "." + g.secret()

	return prefix, raw, HashKey(raw)
}

// HashKey returns the hex SHA-256 of a raw key. Keys are high entropy, so no salt or stretching.
func HashKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))

	return hex.EncodeToString(sum[:])
}

// KeyPrefix extracts the lookup prefix from a raw key.
func KeyPrefix(raw string) (string, bool) {
	prefix, secret, ok := strings.Cut(raw, ".")
	if !ok || prefix == "" || secret == "" {
		return "", false
	}

	return prefix, true
}

// Matches reports whether raw is the key this record was created from.
func (k *APIKey) Matches(raw string) bool {
	return subtle.ConstantTimeCompare([]byte(k.HashedKey), []byte(HashKey(raw))) == 1
}
