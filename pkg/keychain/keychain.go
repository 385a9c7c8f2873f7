// Package keychain provides the asymmetric key operations behind a profile
// document: key pair generation, signing and verification, and hybrid
// encryption between two identities. Keys are RSA-4096 and travel as PEM
// (PKIX public, PKCS#8 private).
package keychain

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/paladin-privacy/go-profiles/pkg/models"
)

const rsaBits = 4096

var (
	ErrNoCredentials    = errors.New("credentials are required")
	ErrNoPrivateKey     = errors.New("private key is not available")
	ErrNoPublicKey      = errors.New("public key is not available")
	ErrNotRecipient     = errors.New("recipient does not expose a public key")
	ErrUnknownAlgorithm = errors.New("unknown encryption algorithm")
)

// Keychain wraps a credentials value with parsed key material. Instances
// are immutable and safe to share for read-only use.
type Keychain struct {
	creds models.Credentials
	pub   *rsa.PublicKey
	priv  *rsa.PrivateKey
}

// Create generates a fresh RSA-4096 key pair and returns a full keychain.
func Create() (*Keychain, error) {
	priv, err := rsa.GenerateKey(rand.Reader, rsaBits)
	if err != nil {
		return nil, fmt.Errorf("generate key pair: %w", err)
	}
	pubDER, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("encode public key: %w", err)
	}
	privDER, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return nil, fmt.Errorf("encode private key: %w", err)
	}
	creds := models.Credentials{
		PublicKey:  string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})),
		PrivateKey: string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER})),
	}
	return &Keychain{creds: creds, pub: &priv.PublicKey, priv: priv}, nil
}

// FromCredentials builds a keychain from PEM credentials. Either half may
// be absent; the resulting keychain is then limited to the operations that
// half permits.
func FromCredentials(creds models.Credentials) (*Keychain, error) {
	if !creds.HasPublic() && !creds.HasPrivate() {
		return nil, ErrNoCredentials
	}
	kc := &Keychain{creds: creds}
	if creds.HasPublic() {
		pub, err := parsePublicKey(creds.PublicKey)
		if err != nil {
			return nil, err
		}
		kc.pub = pub
	}
	if creds.HasPrivate() {
		priv, err := parsePrivateKey(creds.PrivateKey)
		if err != nil {
			return nil, err
		}
		kc.priv = priv
		if kc.pub == nil {
			kc.pub = &priv.PublicKey
		}
	}
	return kc, nil
}

// Sign signs data with the private key and returns a base64 RSA-SHA256
// signature.
func (k *Keychain) Sign(data []byte) (models.Signature, error) {
	if k.priv == nil {
		return models.Signature{}, ErrNoPrivateKey
	}
	digest := sha256.Sum256(data)
	sig, err := rsa.SignPKCS1v15(rand.Reader, k.priv, crypto.SHA256, digest[:])
	if err != nil {
		return models.Signature{}, fmt.Errorf("sign: %w", err)
	}
	return models.Signature{Signature: base64.StdEncoding.EncodeToString(sig)}, nil
}

// Verify checks a signature against data. A missing public key is an
// error; a mismatched or malformed signature is reported as false.
func (k *Keychain) Verify(data []byte, sig models.Signature) (bool, error) {
	if !k.creds.HasPublic() || k.pub == nil {
		return false, ErrNoPublicKey
	}
	raw, err := base64.StdEncoding.DecodeString(sig.Signature)
	if err != nil {
		return false, nil
	}
	digest := sha256.Sum256(data)
	if err := rsa.VerifyPKCS1v15(k.pub, crypto.SHA256, digest[:], raw); err != nil {
		return false, nil
	}
	return true, nil
}

// GetCredentials returns the underlying credentials.
func (k *Keychain) GetCredentials() models.Credentials {
	return k.creds
}

// GetPublic returns a keychain reduced to the public half. The result can
// verify and act as an encryption recipient but cannot sign or decrypt.
func (k *Keychain) GetPublic() *Keychain {
	return &Keychain{creds: k.creds.Public(), pub: k.pub}
}

// GetPrivate returns a keychain reduced to the private half.
func (k *Keychain) GetPrivate() *Keychain {
	if k.priv == nil {
		return &Keychain{creds: models.Credentials{}}
	}
	return &Keychain{creds: k.creds.Private(), pub: &k.priv.PublicKey, priv: k.priv}
}

func parsePublicKey(pemData string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(pemData))
	if block == nil {
		return nil, fmt.Errorf("public key is not valid PEM")
	}
	key, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	pub, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("public key is not RSA")
	}
	return pub, nil
}

func parsePrivateKey(pemData string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(pemData))
	if block == nil {
		return nil, fmt.Errorf("private key is not valid PEM")
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	priv, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("private key is not RSA")
	}
	return priv, nil
}
