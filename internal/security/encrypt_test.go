package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncryptRoundTrip(t *testing.T) {
	e, err := NewEncryptor([]byte("any-length secret works"))
	assert.NoError(t, err)

	sealed, err := e.Encrypt("hello world")
	assert.NoError(t, err)
	assert.NotEqual(t, "hello world", sealed)

	plain, err := e.Decrypt(sealed)
	assert.NoError(t, err)
	assert.Equal(t, "hello world", plain)
}

func TestEncryptEmptyPassesThrough(t *testing.T) {
	e, _ := NewEncryptor([]byte("k"))

	sealed, err := e.Encrypt("")
	assert.NoError(t, err)
	assert.Empty(t, sealed)

	plain, err := e.Decrypt("")
	assert.NoError(t, err)
	assert.Empty(t, plain)
}

func TestDecryptGarbageFails(t *testing.T) {
	e, _ := NewEncryptor([]byte("k"))

	_, err := e.Decrypt("not-base64!!!")
	assert.Error(t, err)

	_, err = e.Decrypt("aGVsbG8=") // valid base64, too short for a nonce
	assert.Error(t, err)
}
