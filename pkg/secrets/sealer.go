package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"io"
)

// Sealer encrypts values with AES-256-GCM under a key derived per tenant, so
// a record copied from one tenant's key cannot be opened as another's.
type Sealer struct {
	appKey []byte
}

// NewSealer validates and copies appKey.
func NewSealer(appKey []byte) (*Sealer, error) {
	if len(appKey) != KeySize {
		return nil, ErrInvalidAppKey
	}
	k := make([]byte, KeySize)
	copy(k, appKey)
	return &Sealer{appKey: k}, nil
}

// Seal returns nonce || ciphertext || tag.
func (s *Sealer) Seal(tenantID string, plaintext []byte) ([]byte, error) {
	if tenantID == "" {
		return nil, ErrEmptyTenant
	}

	gcm, err := s.aead(tenantID)
	if err != nil {
		return nil, errors.Join(ErrEncryptionFailed, err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, errors.Join(ErrEncryptionFailed, err)
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Open reverses Seal.
func (s *Sealer) Open(tenantID string, sealed []byte) ([]byte, error) {
	if tenantID == "" {
		return nil, ErrEmptyTenant
	}

	gcm, err := s.aead(tenantID)
	if err != nil {
		return nil, errors.Join(ErrDecryptionFailed, err)
	}

	nonceSize := gcm.NonceSize()
	if len(sealed) < nonceSize+gcm.Overhead() {
		return nil, ErrInvalidCiphertext
	}

	nonce, ciphertext := sealed[:nonceSize], sealed[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, errors.Join(ErrDecryptionFailed, err)
	}
	return plaintext, nil
}

func (s *Sealer) aead(tenantID string) (cipher.AEAD, error) {
	key, err := deriveKey(s.appKey, tenantID)
	if err != nil {
		return nil, err
	}
	defer clearBytes(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
