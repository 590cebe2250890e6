package settings

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	sealedPrefix = "sealed:"
	saltSize     = 16
	nonceSize    = 24
)

var errUnseal = errors.New("cannot unseal token")

// sealToken encrypts the token with a key derived from secret.
func sealToken(secret []byte, token string) (string, error) {
	var salt [saltSize]byte
	if _, err := rand.Read(salt[:]); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	key := deriveKey(secret, salt[:])

	out := make([]byte, 0, saltSize+nonceSize+len(token)+secretbox.Overhead)
	out = append(out, salt[:]...)
	out = append(out, nonce[:]...)
	out = secretbox.Seal(out, []byte(token), &nonce, &key)
	return sealedPrefix + base64.RawURLEncoding.EncodeToString(out), nil
}

// unsealToken reverses sealToken. Unsealed values pass through unchanged.
func unsealToken(secret []byte, value string) (string, error) {
	if !strings.HasPrefix(value, sealedPrefix) {
		return value, nil
	}
	if len(secret) == 0 {
		return "", fmt.Errorf("%w: no secret configured", errUnseal)
	}
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(value, sealedPrefix))
	if err != nil || len(raw) < saltSize+nonceSize+secretbox.Overhead {
		return "", fmt.Errorf("%w: malformed value", errUnseal)
	}

	var nonce [nonceSize]byte
	copy(nonce[:], raw[saltSize:saltSize+nonceSize])
	key := deriveKey(secret, raw[:saltSize])

	plain, ok := secretbox.Open(nil, raw[saltSize+nonceSize:], &nonce, &key)
	if !ok {
		return "", fmt.Errorf("%w: wrong secret", errUnseal)
	}
	return string(plain), nil
}

func deriveKey(secret, salt []byte) [32]byte {
	var key [32]byte
	copy(key[:], argon2.IDKey(secret, salt, 1, 64*1024, 4, 32))
	return key
}
