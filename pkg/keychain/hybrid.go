package keychain

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"github.com/paladin-privacy/go-profiles/pkg/models"
)

// AlgorithmAES256CBC is the symmetric algorithm recorded in envelopes.
const AlgorithmAES256CBC = "aes-256-cbc"

const (
	symmetricKeySize = 32
	ivSize           = aes.BlockSize
)

// Encrypt produces a hybrid envelope for the recipient: data is encrypted
// with a fresh AES-256-CBC key and IV, and the key is wrapped with the
// recipient's public key (RSA-OAEP, SHA-256). Every call generates new
// symmetric material, so envelopes for different recipients share nothing.
func (k *Keychain) Encrypt(recipient *Keychain, data []byte) (models.Encryption, error) {
	if recipient == nil || !recipient.creds.HasPublic() || recipient.pub == nil {
		return models.Encryption{}, ErrNotRecipient
	}

	key := make([]byte, symmetricKeySize)
	if _, err := rand.Read(key); err != nil {
		return models.Encryption{}, fmt.Errorf("generate symmetric key: %w", err)
	}
	iv := make([]byte, ivSize)
	if _, err := rand.Read(iv); err != nil {
		return models.Encryption{}, fmt.Errorf("generate iv: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return models.Encryption{}, err
	}
	padded := padPKCS7(data, aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	wrappedKey, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, recipient.pub, key, nil)
	if err != nil {
		return models.Encryption{}, fmt.Errorf("wrap symmetric key: %w", err)
	}
	zeroBytes(key)

	env := models.Encryption{
		Algorithm:     AlgorithmAES256CBC,
		IV:            base64.StdEncoding.EncodeToString(iv),
		EncryptedKey:  base64.StdEncoding.EncodeToString(wrappedKey),
		EncryptedData: base64.StdEncoding.EncodeToString(ciphertext),
	}
	if fp, err := Fingerprint(recipient.creds); err == nil {
		env.ForID = fp
	}
	return env, nil
}

// Decrypt opens an envelope that was encrypted toward this keychain's
// public key. The private key is required.
func (k *Keychain) Decrypt(env models.Encryption) ([]byte, error) {
	if k.priv == nil {
		return nil, ErrNoPrivateKey
	}
	if env.Algorithm != AlgorithmAES256CBC {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, env.Algorithm)
	}

	iv, err := base64.StdEncoding.DecodeString(env.IV)
	if err != nil {
		return nil, fmt.Errorf("decode iv: %w", err)
	}
	wrappedKey, err := base64.StdEncoding.DecodeString(env.EncryptedKey)
	if err != nil {
		return nil, fmt.Errorf("decode encrypted key: %w", err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(env.EncryptedData)
	if err != nil {
		return nil, fmt.Errorf("decode encrypted data: %w", err)
	}
	if len(iv) != ivSize {
		return nil, fmt.Errorf("iv must be %d bytes, got %d", ivSize, len(iv))
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("ciphertext is not block aligned")
	}

	key, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, k.priv, wrappedKey, nil)
	if err != nil {
		return nil, fmt.Errorf("unwrap symmetric key: %w", err)
	}
	defer zeroBytes(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)
	return unpadPKCS7(plaintext, aes.BlockSize)
}

func padPKCS7(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(append([]byte(nil), data...), bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpadPKCS7(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, fmt.Errorf("invalid padded length %d", len(data))
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize {
		return nil, fmt.Errorf("invalid padding")
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, fmt.Errorf("invalid padding")
		}
	}
	return data[:len(data)-n], nil
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
