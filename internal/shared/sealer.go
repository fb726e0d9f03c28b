package shared

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const sealedVersion byte = 0x01

var hkdfInfoToken = []byte("portal.session.token.v1")

// ErrSealedTokenInvalid is returned when a sealed value cannot be opened.
var ErrSealedTokenInvalid = errors.New("sealed token invalid")

// TokenSealer encrypts bearer tokens before they are written to the session store.
//
// Sealed form: base64url([version][24-byte nonce][ciphertext+tag]). The version
// byte is authenticated as additional data.
type TokenSealer struct {
	key [chacha20poly1305.KeySize]byte
}

// NewTokenSealer derives the sealing key from secret with HKDF-SHA256.
func NewTokenSealer(secret string) (*TokenSealer, error) {
	if secret == "" {
		return nil, errors.New("token sealer: empty secret")
	}
	s := &TokenSealer{}
	reader := hkdf.New(sha256.New, []byte(secret), nil, hkdfInfoToken)
	if _, err := io.ReadFull(reader, s.key[:]); err != nil {
		return nil, fmt.Errorf("token sealer: derive key: %w", err)
	}
	return s, nil
}

// Seal encrypts plaintext.
func (s *TokenSealer) Seal(plaintext string) (string, error) {
	aead, err := chacha20poly1305.NewX(s.key[:])
	if err != nil {
		return "", fmt.Errorf("token sealer: cipher: %w", err)
	}
	var nonce [chacha20poly1305.NonceSizeX]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("token sealer: nonce: %w", err)
	}
	out := make([]byte, 1+len(nonce), 1+len(nonce)+len(plaintext)+aead.Overhead())
	out[0] = sealedVersion
	copy(out[1:], nonce[:])
	out = aead.Seal(out, nonce[:], []byte(plaintext), []byte{sealedVersion})
	return base64.RawURLEncoding.EncodeToString(out), nil
}

// Open decrypts a value produced by Seal.
func (s *TokenSealer) Open(sealed string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(sealed)
	if err != nil {
		return "", ErrSealedTokenInvalid
	}
	if len(raw) < 1+chacha20poly1305.NonceSizeX+chacha20poly1305.Overhead || raw[0] != sealedVersion {
		return "", ErrSealedTokenInvalid
	}
	aead, err := chacha20poly1305.NewX(s.key[:])
	if err != nil {
		return "", fmt.Errorf("token sealer: cipher: %w", err)
	}
	nonce := raw[1 : 1+chacha20poly1305.NonceSizeX]
	plain, err := aead.Open(nil, nonce, raw[1+chacha20poly1305.NonceSizeX:], raw[:1])
	if err != nil {
		return "", ErrSealedTokenInvalid
	}
	return string(plain), nil
}
