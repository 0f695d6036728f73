package secrets

import (
	"crypto/cipher"
	"encoding/base64"
	"encoding/hex"
	"errors"
)

// Config holds the hex-encoded key pair used by Codec.
type Config struct {
	AppKey       string `env:"ENCRYPTION_KEY,required"`
	WorkspaceKey string `env:"ENCRYPTION_CONTEXT_KEY,required"`
}

// Codec encrypts and decrypts stored product secrets with a fixed key pair.
// The derived key is computed once; a Codec is safe for concurrent use.
type Codec struct {
	aead cipher.AEAD
}

// NewCodec builds a Codec from raw 32-byte keys.
func NewCodec(appKey, workspaceKey []byte) (*Codec, error) {
	aead, err := newAEAD(appKey, workspaceKey)
	if err != nil {
		return nil, err
	}
	return &Codec{aead: aead}, nil
}

// NewCodecFromConfig decodes the hex keys in cfg and builds a Codec.
func NewCodecFromConfig(cfg Config) (*Codec, error) {
	appKey, err := hex.DecodeString(cfg.AppKey)
	if err != nil {
		return nil, errors.Join(ErrInvalidKeyEncoding, ErrInvalidAppKey, err)
	}
	workspaceKey, err := hex.DecodeString(cfg.WorkspaceKey)
	if err != nil {
		return nil, errors.Join(ErrInvalidKeyEncoding, ErrInvalidWorkspaceKey, err)
	}
	defer clear(appKey)
	defer clear(workspaceKey)
	return NewCodec(appKey, workspaceKey)
}

// Encrypt returns the base64 ciphertext of plaintext. Each call uses a
// fresh nonce, so equal inputs produce different outputs.
func (c *Codec) Encrypt(plaintext string) (string, error) {
	data, err := seal(c.aead, []byte(plaintext))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// Decrypt reverses Encrypt. A failure means the key changed or the stored
// value is corrupt; callers must surface it.
func (c *Codec) Decrypt(ciphertext string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", errors.Join(ErrInvalidCiphertext, err)
	}
	plaintext, err := open(c.aead, data)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
