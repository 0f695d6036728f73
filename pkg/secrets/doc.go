// Package secrets provides AES-256-GCM encryption with compound key
// derivation for product secrets at rest.
//
// An application key and a workspace key (both 32 bytes) are combined with
// HKDF-SHA256 into the encryption key. Ciphertexts carry a random nonce and
// the GCM tag, so tampering is detected on decryption.
//
// # Usage
//
// One-off operations:
//
//	appKey, _ := secrets.GenerateKey()
//	workspaceKey, _ := secrets.GenerateKey()
//
//	ciphertext, err := secrets.EncryptString(appKey, workspaceKey, "payhip-secret")
//	plaintext, err := secrets.DecryptString(appKey, workspaceKey, ciphertext)
//
// Long-lived codec configured from the environment (ENCRYPTION_KEY and
// ENCRYPTION_CONTEXT_KEY, hex encoded):
//
//	var cfg secrets.Config
//	config.MustLoad(&cfg)
//
//	codec, err := secrets.NewCodecFromConfig(cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//	stored, err := codec.Encrypt(secret)
//
// # Error Handling
//
//   - ErrInvalidAppKey / ErrInvalidWorkspaceKey: key is not 32 bytes
//   - ErrInvalidKeyEncoding: configured key is not valid hex
//   - ErrKeyDerivationFailed: HKDF or cipher construction failed
//   - ErrEncryptionFailed: nonce generation failed
//   - ErrDecryptionFailed: wrong key or tampered ciphertext
//   - ErrInvalidCiphertext: input is not base64 or is too short
//
// Decryption failures are never transient. They mean the key was lost or
// the stored value is corrupt, so they must be reported, not retried.
package secrets
