// Package crypt is the optional encryption boundary. When configured,
// binary content, metadata blobs and titles are transformed on write and
// inverse-transformed on read; a nil adapter passes values through
// unchanged.
package crypt

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/scrypt"
)

const (
	saltSize  = 16
	keySize   = 32
	scryptN   = 1 << 15
	scryptR   = 8
	scryptP   = 1
)

// ErrDecrypt reports a payload that could not be authenticated or decoded,
// usually a wrong passphrase or foreign data.
var ErrDecrypt = errors.New("decryption failed")

// Crypt encrypts with AES-256-GCM under a scrypt-derived key. The salt is
// prepended to every payload so payloads remain self-contained.
type Crypt struct {
	passphrase []byte
}

func New(passphrase string) (*Crypt, error) {
	if passphrase == "" {
		return nil, errors.New("empty passphrase")
	}
	return &Crypt{passphrase: []byte(passphrase)}, nil
}

func (c *Crypt) seal(plain []byte) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	gcm, err := c.aead(salt)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	out := make([]byte, 0, saltSize+len(nonce)+len(plain)+gcm.Overhead())
	out = append(out, salt...)
	out = append(out, nonce...)
	return gcm.Seal(out, nonce, plain, nil), nil
}

func (c *Crypt) open(payload []byte) ([]byte, error) {
	if len(payload) < saltSize {
		return nil, ErrDecrypt
	}
	gcm, err := c.aead(payload[:saltSize])
	if err != nil {
		return nil, err
	}
	rest := payload[saltSize:]
	if len(rest) < gcm.NonceSize() {
		return nil, ErrDecrypt
	}
	plain, err := gcm.Open(nil, rest[:gcm.NonceSize()], rest[gcm.NonceSize():], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	return plain, nil
}

func (c *Crypt) aead(salt []byte) (cipher.AEAD, error) {
	key, err := scrypt.Key(c.passphrase, salt, scryptN, scryptR, scryptP, keySize)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// EncryptText transforms a title or metadata blob into a remote-safe token.
// Pass-through on a nil adapter.
func (c *Crypt) EncryptText(text string) (string, error) {
	if c == nil {
		return text, nil
	}
	sealed, err := c.seal([]byte(text))
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// DecryptText is the inverse of EncryptText.
func (c *Crypt) DecryptText(text string) (string, error) {
	if c == nil {
		return text, nil
	}
	payload, err := base64.RawURLEncoding.DecodeString(text)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	plain, err := c.open(payload)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// EncryptStream consumes and closes the plain stream and returns the sealed
// content with its processed length. Pass-through on a nil adapter.
func (c *Crypt) EncryptStream(plain io.ReadCloser, size int64) (io.ReadCloser, int64, error) {
	if c == nil {
		return plain, size, nil
	}
	defer plain.Close()
	data, err := io.ReadAll(plain)
	if err != nil {
		return nil, 0, err
	}
	sealed, err := c.seal(data)
	if err != nil {
		return nil, 0, err
	}
	return io.NopCloser(bytes.NewReader(sealed)), int64(len(sealed)), nil
}

// DecryptStream consumes and closes the sealed stream and returns the plain
// content. The input stream is closed even when decryption fails, so a
// partially opened remote stream never leaks.
func (c *Crypt) DecryptStream(sealed io.ReadCloser) (io.ReadCloser, error) {
	if c == nil {
		return sealed, nil
	}
	defer sealed.Close()
	data, err := io.ReadAll(sealed)
	if err != nil {
		return nil, err
	}
	plain, err := c.open(data)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(plain)), nil
}
