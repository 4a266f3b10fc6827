// Package bodycipher is the symmetric primitive protecting article bodies at
// rest and backup records on disk. It is AES in CBC mode with PKCS#7 padding
// and an explicit 16-byte IV supplied per call.
//
// CBC padding alone cannot tell a wrong key or IV from a right one on
// multi-block inputs, so a CRC-32 of the plaintext is carried inside the
// encrypted payload and verified on decrypt. Decryption therefore fails
// loudly instead of handing back corrupted plaintext.
//
// One Cipher instance holds the single service-wide key. The key is supplied
// through configuration at startup; nothing in this package (or anywhere
// else in the repo) embeds key material.
package bodycipher

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// IVSize is the initialization-vector length: one AES block.
const IVSize = aes.BlockSize

// bodySeparator splits the IV from the ciphertext in the stored body
// encoding base64(iv):base64(ciphertext).
const bodySeparator = ":"

// Key-derivation parameters for passphrase-supplied keys.
const (
	kdfIterations = 600_000
	kdfKeyLen     = 32
	kdfSalt       = "helphub/article-key/v1"
)

var (
	// ErrInvalidKeySize is returned by New for keys that are not a legal
	// AES key length (16, 24, or 32 bytes).
	ErrInvalidKeySize = errors.New("cipher key must be 16, 24, or 32 bytes")

	// ErrMalformedPayload marks a stored body or backup payload that does
	// not parse: wrong part count, bad base64, or a truncated ciphertext.
	ErrMalformedPayload = errors.New("malformed encrypted payload")

	// ErrDecrypt marks a ciphertext that decrypts to garbage: wrong key,
	// wrong IV, or corruption.
	ErrDecrypt = errors.New("decryption failed")

	// ErrNoKey is returned by KeyFromConfig when neither a raw key nor a
	// passphrase is configured.
	ErrNoKey = errors.New("no article key configured: set article_key or article_key_passphrase")
)

// Cipher encrypts and decrypts with one fixed AES key. It is stateless
// apart from the key and safe for concurrent use.
type Cipher struct {
	block cipher.Block
}

// New builds a Cipher from a raw AES key.
func New(key []byte) (*Cipher, error) {
	switch len(key) {
	case 16, 24, 32:
	default:
		return nil, ErrInvalidKeySize
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init AES cipher: %w", err)
	}
	return &Cipher{block: block}, nil
}

// KeyFromConfig resolves the service key from configuration values. A raw
// hex key wins; otherwise the passphrase is stretched with PBKDF2-SHA256.
func KeyFromConfig(hexKey, passphrase string) ([]byte, error) {
	if hexKey != "" {
		key, err := hex.DecodeString(hexKey)
		if err != nil {
			return nil, fmt.Errorf("article_key is not valid hex: %w", err)
		}
		switch len(key) {
		case 16, 24, 32:
			return key, nil
		}
		return nil, ErrInvalidKeySize
	}
	if passphrase != "" {
		return pbkdf2.Key([]byte(passphrase), []byte(kdfSalt), kdfIterations, kdfKeyLen, sha256.New), nil
	}
	return nil, ErrNoKey
}

// NewIV draws a fresh cryptographically random IV. IVs are never reused;
// every encryption call gets its own.
func NewIV() ([]byte, error) {
	iv := make([]byte, IVSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, fmt.Errorf("draw IV: %w", err)
	}
	return iv, nil
}

// Encrypt encrypts plaintext under the cipher key with the given IV.
// Identical inputs produce identical ciphertext; callers are responsible
// for supplying a fresh IV per call (see NewIV).
func (c *Cipher) Encrypt(plaintext, iv []byte) ([]byte, error) {
	if len(iv) != IVSize {
		return nil, fmt.Errorf("%w: iv must be %d bytes", ErrMalformedPayload, IVSize)
	}

	// crc32 || plaintext, padded to the block size.
	payload := make([]byte, 4+len(plaintext))
	binary.BigEndian.PutUint32(payload[:4], crc32.ChecksumIEEE(plaintext))
	copy(payload[4:], plaintext)
	payload = pad(payload)

	out := make([]byte, len(payload))
	cipher.NewCBCEncrypter(c.block, iv).CryptBlocks(out, payload)
	return out, nil
}

// Decrypt reverses Encrypt. It fails with ErrMalformedPayload on a
// ciphertext that is empty or not block-aligned, and with ErrDecrypt when
// padding or the embedded checksum do not verify (wrong key, wrong IV, or
// corrupted ciphertext).
func (c *Cipher) Decrypt(ciphertext, iv []byte) ([]byte, error) {
	if len(iv) != IVSize {
		return nil, fmt.Errorf("%w: iv must be %d bytes", ErrMalformedPayload, IVSize)
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: ciphertext length %d", ErrMalformedPayload, len(ciphertext))
	}

	payload := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(c.block, iv).CryptBlocks(payload, ciphertext)

	payload, err := unpad(payload)
	if err != nil {
		return nil, err
	}
	if len(payload) < 4 {
		return nil, ErrDecrypt
	}
	plaintext := payload[4:]
	if binary.BigEndian.Uint32(payload[:4]) != crc32.ChecksumIEEE(plaintext) {
		return nil, ErrDecrypt
	}
	return plaintext, nil
}

// EncryptBody encrypts an article body with a fresh IV and returns the
// stored-body encoding base64(iv):base64(ciphertext).
func (c *Cipher) EncryptBody(plaintext string) (string, error) {
	iv, err := NewIV()
	if err != nil {
		return "", err
	}
	ct, err := c.Encrypt([]byte(plaintext), iv)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(iv) + bodySeparator + base64.StdEncoding.EncodeToString(ct), nil
}

// DecryptBody reverses EncryptBody. Anything that does not split into
// exactly two base64 parts is ErrMalformedPayload.
func (c *Cipher) DecryptBody(stored string) (string, error) {
	parts := strings.Split(stored, bodySeparator)
	if len(parts) != 2 {
		return "", fmt.Errorf("%w: want iv%sciphertext, got %d parts", ErrMalformedPayload, bodySeparator, len(parts))
	}
	iv, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return "", fmt.Errorf("%w: bad iv base64: %v", ErrMalformedPayload, err)
	}
	ct, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("%w: bad ciphertext base64: %v", ErrMalformedPayload, err)
	}
	plaintext, err := c.Decrypt(ct, iv)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

func pad(b []byte) []byte {
	n := aes.BlockSize - len(b)%aes.BlockSize
	return append(b, bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(b []byte) ([]byte, error) {
	if len(b) == 0 || len(b)%aes.BlockSize != 0 {
		return nil, ErrDecrypt
	}
	n := int(b[len(b)-1])
	if n == 0 || n > aes.BlockSize || n > len(b) {
		return nil, ErrDecrypt
	}
	for _, p := range b[len(b)-n:] {
		if int(p) != n {
			return nil, ErrDecrypt
		}
	}
	return b[:len(b)-n], nil
}
