package keystore

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/tyler-smith/go-bip39"
)

var (
	ErrKeyNotLoaded   = errors.New("no sealed key is loaded")
	ErrUnlockThrottle = errors.New("unlock attempts are temporarily locked")
	ErrInvalidPhrase  = errors.New("invalid recovery phrase")
)

// Keystore holds one sealed private key and guards repeated bad
// passphrases with an unlock backoff. External mutual exclusion is not
// required; the store locks internally because a CLI and a host
// application may share it.
type Keystore struct {
	mu             sync.Mutex
	envelope       *Envelope
	failedAttempts int
	lockedUntil    time.Time
	now            func() time.Time
}

// NewKeystore returns an empty keystore.
func NewKeystore() *Keystore {
	return &Keystore{now: time.Now}
}

func newKeystoreWithClock(now func() time.Time) *Keystore {
	return &Keystore{now: now}
}

// Store seals a private key under a passphrase and keeps the envelope.
func (s *Keystore) Store(privateKey, passphrase string) error {
	env, err := Seal(passphrase, privateKey)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.envelope = env
	s.resetAttemptState()
	return nil
}

// Load adopts an existing envelope, such as one read back from disk.
func (s *Keystore) Load(env *Envelope) error {
	if env == nil {
		return ErrInvalidEnvelope
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.envelope = env
	s.resetAttemptState()
	return nil
}

// Unlock opens the sealed key. Consecutive failures back off 1s, 2s, 4s…
// up to 32s before another attempt is allowed.
func (s *Keystore) Unlock(passphrase string) (string, error) {
	s.mu.Lock()
	env := s.envelope
	if err := s.ensureUnlocked(); err != nil {
		s.mu.Unlock()
		return "", err
	}
	s.mu.Unlock()
	if env == nil {
		return "", ErrKeyNotLoaded
	}

	privateKey, err := Open(passphrase, env)
	if err != nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		if errors.Is(err, ErrWrongPassphrase) {
			s.onFailedAttempt()
		}
		return "", err
	}
	s.mu.Lock()
	s.resetAttemptState()
	s.mu.Unlock()
	return privateKey, nil
}

// Rekey reseals the key under a new passphrase.
func (s *Keystore) Rekey(oldPassphrase, newPassphrase string) error {
	privateKey, err := s.Unlock(oldPassphrase)
	if err != nil {
		return err
	}
	return s.Store(privateKey, newPassphrase)
}

// Envelope returns the current sealed envelope, or nil.
func (s *Keystore) Envelope() *Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.envelope
}

func (s *Keystore) ensureUnlocked() error {
	if s.lockedUntil.IsZero() {
		return nil
	}
	if s.now().Before(s.lockedUntil) {
		return ErrUnlockThrottle
	}
	return nil
}

func (s *Keystore) onFailedAttempt() {
	s.failedAttempts++
	shift := s.failedAttempts - 1
	if shift > 5 {
		shift = 5
	}
	s.lockedUntil = s.now().Add(time.Second * time.Duration(1<<shift))
}

func (s *Keystore) resetAttemptState() {
	s.failedAttempts = 0
	s.lockedUntil = time.Time{}
}

// NewRecoveryPhrase generates a 12-word bip39 mnemonic suitable as the
// passphrase for a key backup.
func NewRecoveryPhrase() (string, error) {
	entropy, err := bip39.NewEntropy(128)
	if err != nil {
		return "", err
	}
	return bip39.NewMnemonic(entropy)
}

// ValidateRecoveryPhrase reports whether a phrase is a well-formed bip39
// mnemonic.
func ValidateRecoveryPhrase(phrase string) bool {
	return bip39.IsMnemonicValid(strings.TrimSpace(phrase))
}
