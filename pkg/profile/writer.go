package profile

import (
	"encoding/json"
	"fmt"

	"github.com/paladin-privacy/go-profiles/pkg/keychain"
	"github.com/paladin-privacy/go-profiles/pkg/models"
)

// writeField stores a value according to the declared visibility.
//
// public fields keep the plaintext value. private fields hold a single
// envelope encrypted to the owner's own key, stored under the owner id.
// friends fields hold the owner's self-envelope plus one envelope per
// listed friend, each produced with its own fresh symmetric key and IV so
// no ciphertext is shared between recipients.
func (p *Profile) writeField(key string, value any, vis models.Visibility) error {
	switch vis.Mode {
	case models.VisibilityPublic:
		normalized, err := normalizeValue(value)
		if err != nil {
			return err
		}
		p.setFieldEntry(key, models.Field{Value: normalized, Visibility: vis})
		return nil

	case models.VisibilityPrivate:
		if p.kc == nil {
			return ErrNotAuthorized
		}
		id, err := p.ID()
		if err != nil {
			return err
		}
		env, err := p.encryptValue(p.kc.GetPublic(), value)
		if err != nil {
			return err
		}
		p.setFieldEntry(key, models.Field{
			Encryption: map[string]models.Encryption{id: env},
			Visibility: vis,
		})
		return nil

	case models.VisibilityFriends:
		if p.kc == nil {
			return ErrNotAuthorized
		}
		id, err := p.ID()
		if err != nil {
			return err
		}
		envelopes := make(map[string]models.Encryption, len(vis.Friends)+1)
		selfEnv, err := p.encryptValue(p.kc.GetPublic(), value)
		if err != nil {
			return err
		}
		envelopes[id] = selfEnv
		for _, friend := range vis.Friends {
			if friend.ID == "" {
				return fmt.Errorf("%w: friend without an id", ErrMalformedField)
			}
			recipient, err := keychain.FromCredentials(models.Credentials{PublicKey: friend.PublicKey})
			if err != nil {
				return fmt.Errorf("friend %s: %w", keychain.ShortID(friend.ID), err)
			}
			env, err := p.encryptValue(recipient, value)
			if err != nil {
				return fmt.Errorf("friend %s: %w", keychain.ShortID(friend.ID), err)
			}
			envelopes[friend.ID] = env
		}
		p.setFieldEntry(key, models.Field{Encryption: envelopes, Visibility: vis})
		return nil

	default:
		return fmt.Errorf("%w: %q", ErrUnknownVisibility, vis.Mode)
	}
}

func (p *Profile) setFieldEntry(key string, field models.Field) {
	if p.data.Body.Fields == nil {
		p.data.Body.Fields = map[string]models.Field{}
	}
	p.data.Body.Fields[key] = field
}

// encryptValue serializes a value to JSON and encrypts it toward one
// recipient.
func (p *Profile) encryptValue(recipient *keychain.Keychain, value any) (models.Encryption, error) {
	payload, err := json.Marshal(value)
	if err != nil {
		return models.Encryption{}, fmt.Errorf("serialize field value: %w", err)
	}
	return p.kc.Encrypt(recipient, payload)
}

// normalizeValue round-trips a plaintext value through JSON so the stored
// shape is identical before and after serialization. Without this, a
// struct value would sign as ordered struct fields but verify as a map
// after reconstruction.
func normalizeValue(value any) (any, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("serialize field value: %w", err)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
