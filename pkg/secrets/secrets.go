package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

// KeySize is the required length of both the app and the workspace key.
const KeySize = 32

// hkdfInfo binds derived keys to this package so the same key pair used
// elsewhere never yields the same AES key.
var hkdfInfo = []byte("keyverify/secrets/v1")

// GenerateKey returns a new random 32-byte key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, err
	}
	return key, nil
}

// EncryptString encrypts plaintext and returns it base64 encoded.
func EncryptString(appKey, workspaceKey []byte, plaintext string) (string, error) {
	data, err := EncryptBytes(appKey, workspaceKey, []byte(plaintext))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// DecryptString reverses EncryptString.
func DecryptString(appKey, workspaceKey []byte, ciphertext string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", errors.Join(ErrInvalidCiphertext, err)
	}
	plaintext, err := DecryptBytes(appKey, workspaceKey, data)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// EncryptBytes encrypts data with AES-256-GCM under a key derived from
// appKey and workspaceKey. Output layout: nonce || ciphertext || tag.
func EncryptBytes(appKey, workspaceKey, data []byte) ([]byte, error) {
	aead, err := newAEAD(appKey, workspaceKey)
	if err != nil {
		return nil, err
	}
	return seal(aead, data)
}

// DecryptBytes reverses EncryptBytes. Tampered input fails with
// ErrDecryptionFailed.
func DecryptBytes(appKey, workspaceKey, data []byte) ([]byte, error) {
	aead, err := newAEAD(appKey, workspaceKey)
	if err != nil {
		return nil, err
	}
	return open(aead, data)
}

func newAEAD(appKey, workspaceKey []byte) (cipher.AEAD, error) {
	if len(appKey) != KeySize {
		return nil, ErrInvalidAppKey
	}
	if len(workspaceKey) != KeySize {
		return nil, ErrInvalidWorkspaceKey
	}

	key, err := deriveKey(appKey, workspaceKey)
	if err != nil {
		return nil, err
	}
	defer clear(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Join(ErrKeyDerivationFailed, err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errors.Join(ErrKeyDerivationFailed, err)
	}
	return aead, nil
}

func deriveKey(appKey, workspaceKey []byte) ([]byte, error) {
	key := make([]byte, KeySize)
	r := hkdf.New(sha256.New, appKey, workspaceKey, hkdfInfo)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, errors.Join(ErrKeyDerivationFailed, err)
	}
	return key, nil
}

func seal(aead cipher.AEAD, data []byte) ([]byte, error) {
	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, errors.Join(ErrEncryptionFailed, err)
	}
	return aead.Seal(nonce, nonce, data, nil), nil
}

func open(aead cipher.AEAD, data []byte) ([]byte, error) {
	ns := aead.NonceSize()
	if len(data) < ns+aead.Overhead() {
		return nil, ErrInvalidCiphertext
	}
	plaintext, err := aead.Open(nil, data[:ns], data[ns:], nil)
	if err != nil {
		return nil, errors.Join(ErrDecryptionFailed, err)
	}
	return plaintext, nil
}
