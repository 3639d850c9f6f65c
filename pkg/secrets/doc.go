// Package secrets seals cached OAuth token sets before they reach the state
// store.
//
// A single 32-byte application key is configured for the process. For every
// tenant a separate AES-256 key is derived with HKDF-SHA-256 (golang.org/x/crypto/hkdf),
// using the tenant id as salt. Sealed values are self-contained: the GCM nonce
// is prepended to the ciphertext.
//
//	key, _ := secrets.ParseKey(os.Getenv("TOKEN_ENCRYPTION_KEY"))
//	sealer, err := secrets.NewSealer(key)
//	sealed, err := sealer.Seal("acme", payload)
//	plain, err := sealer.Open("acme", sealed)
package secrets
