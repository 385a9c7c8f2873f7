// Package keystore keeps a profile's detached private key encrypted at
// rest. Pack deliberately splits the private key out of the serialized
// document; this package is where that key lives between sessions: sealed
// under a passphrase with argon2id and XChaCha20-Poly1305.
package keystore

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	envelopeVersion = 1
	saltSize        = 16
	filePrefix      = "PALKEY1\n"

	argonTime    = uint32(2)
	argonMemKB   = uint32(64 * 1024)
	argonThreads = uint8(1)
)

var (
	ErrPassphraseRequired = errors.New("passphrase is required")
	ErrWrongPassphrase    = errors.New("passphrase does not open this key")
	ErrInvalidEnvelope    = errors.New("key envelope is invalid")
	ErrNoKeyMaterial      = errors.New("no key material to seal")
)

// Envelope is a sealed private key: versioned KDF parameters, salt, nonce
// and ciphertext.
type Envelope struct {
	Version     uint32 `json:"version"`
	KDF         string `json:"kdf"`
	KDFTime     uint32 `json:"kdf_time"`
	KDFMemoryKB uint32 `json:"kdf_memory_kb"`
	KDFThreads  uint8  `json:"kdf_threads"`
	Salt        []byte `json:"salt"`
	Nonce       []byte `json:"nonce"`
	Ciphertext  []byte `json:"ciphertext"`
}

// Seal encrypts a PEM private key under a passphrase.
func Seal(passphrase, privateKey string) (*Envelope, error) {
	if strings.TrimSpace(passphrase) == "" {
		return nil, ErrPassphraseRequired
	}
	if privateKey == "" {
		return nil, ErrNoKeyMaterial
	}
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	key := deriveKey(passphrase, salt)
	defer zeroBytes(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return &Envelope{
		Version:     envelopeVersion,
		KDF:         "argon2id",
		KDFTime:     argonTime,
		KDFMemoryKB: argonMemKB,
		KDFThreads:  argonThreads,
		Salt:        salt,
		Nonce:       nonce,
		Ciphertext:  aead.Seal(nil, nonce, []byte(privateKey), nil),
	}, nil
}

// Open decrypts a sealed private key.
func Open(passphrase string, env *Envelope) (string, error) {
	if strings.TrimSpace(passphrase) == "" {
		return "", ErrPassphraseRequired
	}
	if env == nil || env.Version != envelopeVersion || env.KDF != "argon2id" {
		return "", ErrInvalidEnvelope
	}
	key := argon2.IDKey([]byte(passphrase), env.Salt, env.KDFTime, env.KDFMemoryKB, env.KDFThreads, chacha20poly1305.KeySize)
	defer zeroBytes(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return "", err
	}
	plaintext, err := aead.Open(nil, env.Nonce, env.Ciphertext, nil)
	if err != nil {
		return "", ErrWrongPassphrase
	}
	return string(plaintext), nil
}

// WriteFile seals a private key and writes it with a recognizable prefix
// and owner-only permissions.
func WriteFile(path, passphrase, privateKey string) error {
	env, err := Seal(passphrase, privateKey)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, append([]byte(filePrefix), raw...), 0o600)
}

// ReadFile reads and opens a sealed private key file.
func ReadFile(path, passphrase string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(string(raw), filePrefix) {
		return "", ErrInvalidEnvelope
	}
	var env Envelope
	if err := json.Unmarshal(raw[len(filePrefix):], &env); err != nil {
		return "", ErrInvalidEnvelope
	}
	return Open(passphrase, &env)
}

func deriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, argonTime, argonMemKB, argonThreads, chacha20poly1305.KeySize)
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
