package persistence_test

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"io"
	"testing"

	"github.com/aretw0/storyline/pkg/domain"
	"github.com/aretw0/storyline/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateKey(t *testing.T) []byte {
	t.Helper()
	k := make([]byte, persistence.KeySize)
	_, err := io.ReadFull(rand.Reader, k)
	require.NoError(t, err)
	return k
}

func sampleState() *domain.State {
	s := domain.NewState("42")
	s.Cursor = 1
	s.Choices = []domain.Choice{{StepIndex: 0, Label: domain.LabelB, Text: "Hide the sandwich"}}
	return s
}

func TestJSONCodec_Roundtrip(t *testing.T) {
	var c persistence.JSONCodec
	data, err := c.Marshal(sampleState())
	require.NoError(t, err)
	assert.Contains(t, string(data), "Hide the sandwich")

	got, err := c.Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, sampleState().Choices, got.Choices)
}

func TestEncryptedCodec_Roundtrip(t *testing.T) {
	c, err := persistence.NewEncryptedCodec(persistence.EncryptionConfig{ActiveKey: generateKey(t)})
	require.NoError(t, err)

	data, err := c.Marshal(sampleState())
	require.NoError(t, err)
	assert.False(t, bytes.Contains(data, []byte("Hide the sandwich")), "choice text must not be stored in clear")

	got, err := c.Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, "42", got.SessionID)
	assert.Equal(t, 1, got.Cursor)
	assert.Equal(t, sampleState().Choices, got.Choices)
}

func TestEncryptedCodec_KeyRotation(t *testing.T) {
	oldKey, newKey := generateKey(t), generateKey(t)

	oldCodec, err := persistence.NewEncryptedCodec(persistence.EncryptionConfig{ActiveKey: oldKey})
	require.NoError(t, err)
	sealedOld, err := oldCodec.Marshal(sampleState())
	require.NoError(t, err)

	rotated, err := persistence.NewEncryptedCodec(persistence.EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	})
	require.NoError(t, err)

	got, err := rotated.Unmarshal(sealedOld)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Cursor)

	sealedNew, err := rotated.Marshal(got)
	require.NoError(t, err)
	_, err = oldCodec.Unmarshal(sealedNew)
	assert.ErrorIs(t, err, persistence.ErrDecryptionFailed)
}

func TestEncryptedCodec_RejectsPlainState(t *testing.T) {
	c, err := persistence.NewEncryptedCodec(persistence.EncryptionConfig{ActiveKey: generateKey(t)})
	require.NoError(t, err)

	plain, err := persistence.JSONCodec{}.Marshal(sampleState())
	require.NoError(t, err)

	_, err = c.Unmarshal(plain)
	assert.ErrorIs(t, err, persistence.ErrNotEncrypted)
}

func TestEncryptedCodec_InvalidKeys(t *testing.T) {
	_, err := persistence.NewEncryptedCodec(persistence.EncryptionConfig{ActiveKey: []byte("short-key")})
	assert.ErrorIs(t, err, persistence.ErrInvalidKey)

	_, err = persistence.NewEncryptedCodec(persistence.EncryptionConfig{
		ActiveKey:    generateKey(t),
		FallbackKeys: [][]byte{[]byte("bad")},
	})
	assert.ErrorIs(t, err, persistence.ErrInvalidKey)
}

func TestParseKey(t *testing.T) {
	key := generateKey(t)
	got, err := persistence.ParseKey(base64.StdEncoding.EncodeToString(key))
	require.NoError(t, err)
	assert.Equal(t, key, got)

	_, err = persistence.ParseKey(base64.StdEncoding.EncodeToString([]byte("short")))
	assert.ErrorIs(t, err, persistence.ErrInvalidKey)

	_, err = persistence.ParseKey("not base64!")
	assert.Error(t, err)
}
