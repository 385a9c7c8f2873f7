package profile

import (
	"encoding/json"
	"fmt"

	"github.com/paladin-privacy/go-profiles/pkg/models"
)

// readField resolves a field against its own recorded visibility. The
// caller argument identifies who is asking; nil means the profile is being
// read context-free (its own local copy).
func (p *Profile) readField(key string, caller *Profile) (any, error) {
	field, ok := p.data.Body.Fields[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrFieldNotFound, key)
	}

	switch field.Visibility.Mode {
	case models.VisibilityPublic:
		if field.Value == nil {
			return nil, fmt.Errorf("%w: public field %q has no value", ErrMalformedField, key)
		}
		return field.Value, nil

	case models.VisibilityPrivate:
		ownerID, err := p.ID()
		if err != nil {
			return nil, err
		}
		if caller != nil {
			callerID, err := caller.ID()
			if err != nil {
				return nil, err
			}
			if callerID != ownerID {
				return nil, ErrPermissionDenied
			}
		}
		if p.kc == nil {
			return nil, ErrNotAuthorized
		}
		env, ok := field.Encryption[ownerID]
		if !ok {
			return nil, fmt.Errorf("%w: private field %q has no owner envelope", ErrMalformedField, key)
		}
		return decryptValue(p, env)

	case models.VisibilityFriends:
		if caller == nil {
			return nil, ErrCallerRequired
		}
		callerID, err := caller.ID()
		if err != nil {
			return nil, err
		}
		env, ok := field.Encryption[callerID]
		if !ok {
			return nil, ErrPermissionDenied
		}
		// The envelope was encrypted to the caller's public key, so the
		// caller's own keychain opens it.
		return decryptValue(caller, env)

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownVisibility, field.Visibility.Mode)
	}
}

func decryptValue(holder *Profile, env models.Encryption) (any, error) {
	if holder.kc == nil {
		return nil, ErrNotAuthorized
	}
	payload, err := holder.kc.Decrypt(env)
	if err != nil {
		return nil, err
	}
	var value any
	if err := json.Unmarshal(payload, &value); err != nil {
		return nil, fmt.Errorf("decode field value: %w", err)
	}
	return value, nil
}
