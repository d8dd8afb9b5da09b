package securestore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters for deriving the sealing key from the device passphrase.
// Derivation runs once per Open, not per value.
var (
	kdfTime      uint32 = 1
	kdfMemoryKiB uint32 = 64 * 1024
	kdfThreads   uint8  = 4
)

const (
	keyLen  = 32 // AES-256
	saltLen = 16
)

// sealer encrypts values with AES-GCM. The entry key is bound as additional
// data, so a sealed value copied under another key fails to open.
type sealer struct {
	aead cipher.AEAD
}

func newSealer(passphrase, salt []byte) (*sealer, error) {
	key := argon2.IDKey(passphrase, salt, kdfTime, kdfMemoryKiB, kdfThreads, keyLen)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("securestore: creating cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("securestore: creating GCM: %w", err)
	}
	return &sealer{aead: gcm}, nil
}

func newSalt() ([]byte, error) {
	salt := make([]byte, saltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("securestore: generating salt: %w", err)
	}
	return salt, nil
}

// seal returns nonce||ciphertext.
func (s *sealer) seal(key string, plaintext []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("securestore: generating nonce: %w", err)
	}
	return s.aead.Seal(nonce, nonce, plaintext, []byte(key)), nil
}

func (s *sealer) open(key string, sealed []byte) ([]byte, error) {
	n := s.aead.NonceSize()
	if len(sealed) < n {
		return nil, ErrUnsealed
	}
	plaintext, err := s.aead.Open(nil, sealed[:n], sealed[n:], []byte(key))
	if err != nil {
		return nil, ErrUnsealed
	}
	return plaintext, nil
}
