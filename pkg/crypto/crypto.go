// Package crypto seals short-lived login data with AES-256-GCM.
//
// Sealed values are base64(iv[12] | tag[16] | ciphertext), which is the layout
// the dashboard frontend already understands.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"
)

const (
	ivSize  = 12
	tagSize = 16
)

var (
	ErrInvalidKey      = errors.New("encryption key must be 64 hex characters")
	ErrDecrypt         = errors.New("decryption failed")
	ErrInvalidPayload  = errors.New("data provided is invalid")
	ErrExpired         = errors.New("token expired")
	ErrMissingToken    = errors.New("no access token provided")
	ErrMissingCipher   = errors.New("no encrypted data provided")
	errMalformedLength = errors.New("ciphertext too short")
)

// LoginData is the sealed payload handed to the assistant as a tool token.
type LoginData struct {
	AccessToken string `json:"access_token"`
	ExpiredAt   int64  `json:"expired_at,omitempty"` // unix millis
	Nonce       string `json:"nonce,omitempty"`
}

// Sealer encrypts with a fixed AES-256 key.
type Sealer struct {
	aead cipher.AEAD
	now  func() time.Time
}

// NewSealer parses a 64-character hex key.
func NewSealer(hexKey string) (*Sealer, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil || len(key) != 32 {
		return nil, ErrInvalidKey
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Sealer{aead: aead, now: time.Now}, nil
}

// Seal encrypts plaintext.
func (s *Sealer) Seal(plaintext []byte) (string, error) {
	iv := make([]byte, ivSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", err
	}

	// Go appends the tag after the ciphertext; move it in front.
	sealed := s.aead.Seal(nil, iv, plaintext, nil)
	ct, tag := sealed[:len(sealed)-tagSize], sealed[len(sealed)-tagSize:]

	out := make([]byte, 0, ivSize+tagSize+len(ct))
	out = append(out, iv...)
	out = append(out, tag...)
	out = append(out, ct...)
	return base64.StdEncoding.EncodeToString(out), nil
}

// Open reverses Seal.
func (s *Sealer) Open(encoded string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrDecrypt
	}
	if len(raw) < ivSize+tagSize {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, errMalformedLength)
	}

	iv := raw[:ivSize]
	tag := raw[ivSize : ivSize+tagSize]
	ct := raw[ivSize+tagSize:]

	buf := make([]byte, 0, len(ct)+tagSize)
	buf = append(buf, ct...)
	buf = append(buf, tag...)

	plain, err := s.aead.Open(nil, iv, buf, nil)
	if err != nil {
		return nil, ErrDecrypt
	}
	return plain, nil
}

// SealLoginData seals accessToken bound to nonce for ttl. An empty nonce
// produces a payload without expiry, which OpenLoginData rejects.
func (s *Sealer) SealLoginData(accessToken, nonce string, ttl time.Duration) (string, error) {
	if accessToken == "" {
		return "", ErrMissingToken
	}

	data := LoginData{AccessToken: accessToken}
	if nonce != "" {
		data.Nonce = nonce
		data.ExpiredAt = s.now().Add(ttl).UnixMilli()
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	return s.Seal(payload)
}

// OpenLoginData decrypts and validates a sealed login payload.
func (s *Sealer) OpenLoginData(encoded string) (LoginData, error) {
	if encoded == "" {
		return LoginData{}, ErrMissingCipher
	}

	plain, err := s.Open(encoded)
	if err != nil {
		return LoginData{}, err
	}

	var data LoginData
	if err := json.Unmarshal(plain, &data); err != nil {
		return LoginData{}, ErrInvalidPayload
	}
	if data.AccessToken == "" {
		return LoginData{}, ErrInvalidPayload
	}
	if data.ExpiredAt == 0 || data.ExpiredAt < s.now().UnixMilli() {
		return LoginData{}, ErrExpired
	}
	return data, nil
}
