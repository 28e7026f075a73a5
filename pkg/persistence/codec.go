package persistence

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/storyline/pkg/domain"
)

// KeySize is the AES-256 key length in bytes.
const KeySize = 32

// encryptedMagic marks a sealed payload.
var encryptedMagic = []byte("slenc1:")

var (
	ErrInvalidKey       = errors.New("encryption key must be 32 bytes (AES-256)")
	ErrNotEncrypted     = errors.New("state is missing the encrypted envelope")
	ErrDecryptionFailed = errors.New("decryption failed with all available keys")
)

// Codec converts session states to and from stored bytes.
type Codec interface {
	Marshal(state *domain.State) ([]byte, error)
	Unmarshal(data []byte) (*domain.State, error)
}

// JSONCodec stores states as plain JSON.
type JSONCodec struct{}

func (JSONCodec) Marshal(state *domain.State) ([]byte, error) {
	data, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal state: %w", err)
	}
	return data, nil
}

func (JSONCodec) Unmarshal(data []byte) (*domain.State, error) {
	var state domain.State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	return &state, nil
}

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey encrypts new data.
	ActiveKey []byte

	// FallbackKeys are tried in order when the active key cannot open a payload.
	FallbackKeys [][]byte
}

// EncryptedCodec seals JSON states with AES-GCM.
type EncryptedCodec struct {
	plain    JSONCodec
	active   cipher.AEAD
	fallback []cipher.AEAD
}

// NewEncryptedCodec validates the keys and prepares the ciphers.
func NewEncryptedCodec(cfg EncryptionConfig) (*EncryptedCodec, error) {
	active, err := newAEAD(cfg.ActiveKey)
	if err != nil {
		return nil, fmt.Errorf("active key: %w", err)
	}
	c := &EncryptedCodec{active: active}
	for i, key := range cfg.FallbackKeys {
		aead, err := newAEAD(key)
		if err != nil {
			return nil, fmt.Errorf("fallback key %d: %w", i, err)
		}
		c.fallback = append(c.fallback, aead)
	}
	return c, nil
}

func (c *EncryptedCodec) Marshal(state *domain.State) ([]byte, error) {
	plain, err := c.plain.Marshal(state)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, c.active.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to read nonce: %w", err)
	}

	out := make([]byte, 0, len(encryptedMagic)+len(nonce)+len(plain)+c.active.Overhead())
	out = append(out, encryptedMagic...)
	out = append(out, nonce...)
	return c.active.Seal(out, nonce, plain, nil), nil
}

func (c *EncryptedCodec) Unmarshal(data []byte) (*domain.State, error) {
	// Plain states are refused once encryption is on.
	sealed, ok := bytes.CutPrefix(data, encryptedMagic)
	if !ok {
		return nil, ErrNotEncrypted
	}

	plain, err := open(c.active, sealed)
	if err != nil {
		for _, aead := range c.fallback {
			if plain, err = open(aead, sealed); err == nil {
				break
			}
		}
	}
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return c.plain.Unmarshal(plain)
}

// ParseKey decodes a base64 key and checks its length.
func ParseKey(encoded string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode key: %w", err)
	}
	if len(key) != KeySize {
		return nil, ErrInvalidKey
	}
	return key, nil
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKey
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func open(aead cipher.AEAD, sealed []byte) ([]byte, error) {
	if len(sealed) < aead.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}
	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	return aead.Open(nil, nonce, ciphertext, nil)
}
