package sqlite

import (
	"crypto/rand"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/nacl/secretbox"

	"github.com/example/shiporbit-client/internal/persistence"
)

// Argon2idParams tunes the key derivation for at-rest sealing.
type Argon2idParams struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultArgon2idParams suit an interactive client: sealing happens once per
// login and once per startup, never per request.
var DefaultArgon2idParams = Argon2idParams{
	Memory:      64 * 1024,
	Iterations:  3,
	Parallelism: 2,
	SaltLength:  16,
	KeyLength:   32,
}

const sealNonceLength = 24

// Sealer encrypts the stored auth token at rest. The key is derived from a
// machine secret with argon2id; the salt and nonce travel with the
// ciphertext, so blobs remain openable across restarts with the same secret.
type Sealer struct {
	secret []byte
	params Argon2idParams
}

// NewSealer constructs a Sealer from the machine secret.
func NewSealer(secret string, params Argon2idParams) *Sealer {
	if params.KeyLength == 0 {
		params = DefaultArgon2idParams
	}
	return &Sealer{secret: []byte(secret), params: params}
}

func (s *Sealer) deriveKey(salt []byte) [32]byte {
	var key [32]byte
	derived := argon2.IDKey(s.secret, salt, s.params.Iterations, s.params.Memory, s.params.Parallelism, s.params.KeyLength)
	copy(key[:], derived)
	return key
}

// Seal encrypts plaintext into a self-describing blob: salt || nonce || box.
func (s *Sealer) Seal(plaintext []byte) ([]byte, error) {
	salt := make([]byte, s.params.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	var nonce [sealNonceLength]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	key := s.deriveKey(salt)
	blob := make([]byte, 0, len(salt)+sealNonceLength+len(plaintext)+secretbox.Overhead)
	blob = append(blob, salt...)
	blob = append(blob, nonce[:]...)
	return secretbox.Seal(blob, plaintext, &nonce, &key), nil
}

// Open decrypts a blob produced by Seal. Tampered or foreign blobs return
// ErrSealBroken so callers fail closed.
func (s *Sealer) Open(blob []byte) ([]byte, error) {
	minLen := int(s.params.SaltLength) + sealNonceLength + secretbox.Overhead
	if len(blob) < minLen {
		return nil, persistence.ErrSealBroken
	}

	salt := blob[:s.params.SaltLength]
	var nonce [sealNonceLength]byte
	copy(nonce[:], blob[s.params.SaltLength:])
	box := blob[int(s.params.SaltLength)+sealNonceLength:]

	key := s.deriveKey(salt)
	plaintext, ok := secretbox.Open(nil, box, &nonce, &key)
	if !ok {
		return nil, persistence.ErrSealBroken
	}
	return plaintext, nil
}
