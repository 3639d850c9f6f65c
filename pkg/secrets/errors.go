package secrets

import "errors"

var (
	ErrInvalidAppKey       = errors.New("invalid app key: must be 32 bytes")
	ErrEmptyTenant         = errors.New("tenant id is required for sealing")
	ErrEncryptionFailed    = errors.New("encryption failed")
	ErrDecryptionFailed    = errors.New("decryption failed")
	ErrInvalidCiphertext   = errors.New("invalid ciphertext format")
	ErrKeyDerivationFailed = errors.New("key derivation failed")
)
