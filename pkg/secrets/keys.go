package secrets

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	// KeySize is the required size of the application key.
	KeySize = 32 // 256 bits for AES-256

	// hkdfInfo separates token sealing keys from any other use of the app key.
	hkdfInfo = "dirbridge-token-seal-v1"
)

// deriveKey creates a per-tenant key from the app key using HKDF-SHA-256 with
// the tenant id as salt.
func deriveKey(appKey []byte, tenantID string) ([]byte, error) {
	r := hkdf.New(sha256.New, appKey, []byte(tenantID), []byte(hkdfInfo))

	key := make([]byte, KeySize)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, errors.Join(ErrKeyDerivationFailed, err)
	}
	return key, nil
}

func clearBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// GenerateKey creates a new random 32-byte key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	return key, nil
}

// ParseKey decodes a base64 (standard or URL alphabet) application key.
func ParseKey(encoded string) ([]byte, error) {
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.URLEncoding, base64.RawStdEncoding, base64.RawURLEncoding} {
		if key, err := enc.DecodeString(encoded); err == nil {
			if len(key) != KeySize {
				return nil, ErrInvalidAppKey
			}
			return key, nil
		}
	}
	return nil, ErrInvalidAppKey
}
