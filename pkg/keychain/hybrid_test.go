package keychain

import (
	"errors"
	"strings"
	"testing"
)

func TestEncryptDecryptBetweenIdentities(t *testing.T) {
	alice, bob := testKeys(t)
	secret := []byte("meet me at the usual place")

	env, err := bob.Encrypt(alice.GetPublic(), secret)
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	if env.Algorithm != AlgorithmAES256CBC {
		t.Fatalf("unexpected algorithm %q", env.Algorithm)
	}
	if env.IV == "" || env.EncryptedKey == "" || env.EncryptedData == "" {
		t.Fatal("envelope is missing material")
	}
	if strings.Contains(env.EncryptedData, string(secret)) {
		t.Fatal("ciphertext leaks plaintext")
	}
	wantFor, err := Fingerprint(alice.GetCredentials())
	if err != nil {
		t.Fatalf("fingerprint failed: %v", err)
	}
	if env.ForID != wantFor {
		t.Fatalf("forId = %q, want recipient fingerprint", env.ForID)
	}

	got, err := alice.Decrypt(env)
	if err != nil {
		t.Fatalf("decrypt failed: %v", err)
	}
	if string(got) != string(secret) {
		t.Fatalf("decrypted %q, want %q", got, secret)
	}
}

func TestEncryptRequiresRecipientPublicKey(t *testing.T) {
	alice, bob := testKeys(t)
	privateOnly, err := FromCredentials(bob.GetCredentials().Private())
	if err != nil {
		t.Fatalf("build private-only keychain: %v", err)
	}
	if _, err := alice.Encrypt(privateOnly, []byte("x")); !errors.Is(err, ErrNotRecipient) {
		t.Fatalf("expected ErrNotRecipient, got %v", err)
	}
	if _, err := alice.Encrypt(nil, []byte("x")); !errors.Is(err, ErrNotRecipient) {
		t.Fatalf("expected ErrNotRecipient for nil recipient, got %v", err)
	}
}

func TestDecryptRequiresPrivateKey(t *testing.T) {
	alice, bob := testKeys(t)
	env, err := bob.Encrypt(alice.GetPublic(), []byte("x"))
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	if _, err := alice.GetPublic().Decrypt(env); !errors.Is(err, ErrNoPrivateKey) {
		t.Fatalf("expected ErrNoPrivateKey, got %v", err)
	}
}

func TestDecryptRejectsUnknownAlgorithm(t *testing.T) {
	alice, bob := testKeys(t)
	env, err := bob.Encrypt(alice.GetPublic(), []byte("x"))
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	env.Algorithm = "rot13"
	if _, err := alice.Decrypt(env); !errors.Is(err, ErrUnknownAlgorithm) {
		t.Fatalf("expected ErrUnknownAlgorithm, got %v", err)
	}
}

func TestDecryptRejectsWrongRecipient(t *testing.T) {
	alice, bob := testKeys(t)
	env, err := alice.Encrypt(alice.GetPublic(), []byte("owner only"))
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	if _, err := bob.Decrypt(env); err == nil {
		t.Fatal("a different private key must not open the envelope")
	}
}

func TestEnvelopesAreIndependentPerCall(t *testing.T) {
	alice, bob := testKeys(t)
	one, err := bob.Encrypt(alice.GetPublic(), []byte("same payload"))
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	two, err := bob.Encrypt(alice.GetPublic(), []byte("same payload"))
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	if one.IV == two.IV {
		t.Fatal("each envelope must use a fresh iv")
	}
	if one.EncryptedKey == two.EncryptedKey {
		t.Fatal("each envelope must wrap a fresh symmetric key")
	}
	if one.EncryptedData == two.EncryptedData {
		t.Fatal("ciphertext must not repeat across envelopes")
	}
}

func TestDecryptRejectsTornCiphertext(t *testing.T) {
	alice, bob := testKeys(t)
	env, err := bob.Encrypt(alice.GetPublic(), []byte("x"))
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	env.EncryptedData = "AAAA" // 3 bytes, not block aligned
	if _, err := alice.Decrypt(env); err == nil {
		t.Fatal("non block-aligned ciphertext must be rejected")
	}
	env.EncryptedData = ""
	if _, err := alice.Decrypt(env); err == nil {
		t.Fatal("empty ciphertext must be rejected")
	}
}

func TestPadUnpadRoundTrip(t *testing.T) {
	for _, n := range []int{0, 1, 15, 16, 17, 31, 32} {
		data := make([]byte, n)
		for i := range data {
			data[i] = byte(i)
		}
		padded := padPKCS7(data, 16)
		if len(padded)%16 != 0 {
			t.Fatalf("padded length %d not block aligned", len(padded))
		}
		got, err := unpadPKCS7(padded, 16)
		if err != nil {
			t.Fatalf("unpad failed for n=%d: %v", n, err)
		}
		if len(got) != n {
			t.Fatalf("round trip of %d bytes yielded %d", n, len(got))
		}
	}
	if _, err := unpadPKCS7([]byte{1, 2, 3}, 16); err == nil {
		t.Fatal("unaligned input must fail")
	}
	bad := make([]byte, 16)
	bad[15] = 17
	if _, err := unpadPKCS7(bad, 16); err == nil {
		t.Fatal("padding larger than block must fail")
	}
}
