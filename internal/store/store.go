// Package store persists a profile workspace on disk: the public document
// as plain JSON, the detached private key as a passphrase-sealed envelope,
// and the status feed. Writes go through a temp file and rename so a
// crash never leaves a torn document behind.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/paladin-privacy/go-profiles/pkg/feed"
	"github.com/paladin-privacy/go-profiles/pkg/keychain"
	"github.com/paladin-privacy/go-profiles/pkg/keystore"
	"github.com/paladin-privacy/go-profiles/pkg/models"
	"github.com/paladin-privacy/go-profiles/pkg/profile"
)

const (
	profileFile = "profile.json"
	keyFile     = "key.sealed"
	feedFile    = "feed.json"
)

var ErrNoProfile = errors.New("no profile in this data directory")

type Store struct {
	dir string
}

func New(dir string) *Store {
	return &Store{dir: dir}
}

// HasProfile reports whether the data directory holds a profile.
func (s *Store) HasProfile() bool {
	_, err := os.Stat(filepath.Join(s.dir, profileFile))
	return err == nil
}

// SaveProfile writes the public document. The private key never enters
// this file.
func (s *Store) SaveProfile(p *profile.Profile) error {
	raw, err := p.Export()
	if err != nil {
		return err
	}
	return s.writeFile(profileFile, raw, 0o644)
}

// LoadProfile reconstructs the stored document. When a passphrase is
// given the sealed private key is opened and attached, yielding a
// writable profile; otherwise the profile is verify-only.
func (s *Store) LoadProfile(passphrase string) (*profile.Profile, error) {
	raw, err := os.ReadFile(filepath.Join(s.dir, profileFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoProfile
		}
		return nil, err
	}
	if passphrase == "" {
		return profile.FromData(raw)
	}
	privateKey, err := keystore.ReadFile(filepath.Join(s.dir, keyFile), passphrase)
	if err != nil {
		return nil, err
	}
	return profile.FromData(raw, profile.WithPrivateKey(privateKey))
}

// SavePrivateKey seals the detached private key under a passphrase.
func (s *Store) SavePrivateKey(privateKey, passphrase string) error {
	return keystore.WriteFile(filepath.Join(s.dir, keyFile), passphrase, privateKey)
}

// SaveFeed writes the status feed.
func (s *Store) SaveFeed(f *feed.Feed) error {
	raw, err := f.Export()
	if err != nil {
		return err
	}
	return s.writeFile(feedFile, raw, 0o644)
}

// LoadFeed reconstructs the status feed, verifying every chunk against
// the keychain. A missing feed file yields an empty feed.
func (s *Store) LoadFeed(kc *keychain.Keychain, settings models.Settings) (*feed.Feed, error) {
	raw, err := os.ReadFile(filepath.Join(s.dir, feedFile))
	if err != nil {
		if os.IsNotExist(err) {
			return feed.New(kc, settings)
		}
		return nil, err
	}
	return feed.FromData(raw, kc, settings)
}

func (s *Store) writeFile(name string, data []byte, perm os.FileMode) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return err
	}
	path := filepath.Join(s.dir, name)
	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
