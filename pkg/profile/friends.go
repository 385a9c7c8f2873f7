package profile

import (
	"errors"

	"github.com/paladin-privacy/go-profiles/pkg/models"
)

// FieldNickname is the conventional public field used as a display name
// when exporting a friend descriptor.
const FieldNickname = "nickname"

// AddFriend appends the other profile's descriptor to the friend list.
// Like any mutation this requires the private key and leaves the document
// dirty until the next Sign.
func (p *Profile) AddFriend(other *Profile) error {
	if !p.creds.HasPrivate() {
		return ErrNotAuthorized
	}
	descriptor, err := other.ToFriend()
	if err != nil {
		return err
	}
	p.data.Body.Friends = append(p.data.Body.Friends, descriptor)
	p.dirty = true
	return nil
}

// RemoveFriend removes the other profile from the friend list by id.
// Removal is not idempotent: removing an absent friend is an error.
func (p *Profile) RemoveFriend(other *Profile) error {
	if !p.creds.HasPrivate() {
		return ErrNotAuthorized
	}
	id, err := other.ID()
	if err != nil {
		return err
	}
	kept := p.data.Body.Friends[:0:0]
	for _, friend := range p.data.Body.Friends {
		if friend.ID != id {
			kept = append(kept, friend)
		}
	}
	if len(kept) == len(p.data.Body.Friends) {
		return ErrFriendNotFound
	}
	p.data.Body.Friends = kept
	p.dirty = true
	return nil
}

// Friends returns a copy of the friend list.
func (p *Profile) Friends() []models.Friend {
	return append([]models.Friend(nil), p.data.Body.Friends...)
}

// Servers returns a copy of the server list.
func (p *Profile) Servers() []models.Server {
	return append([]models.Server(nil), p.data.Body.Servers...)
}

// AddServer appends a server the profile can be fetched from.
func (p *Profile) AddServer(server models.Server) error {
	if !p.creds.HasPrivate() {
		return ErrNotAuthorized
	}
	p.data.Body.Servers = append(p.data.Body.Servers, server)
	p.dirty = true
	return nil
}

// ToFriend exports this profile as a friend descriptor: identity, public
// nickname, server list and public key. A profile without a public key
// cannot be described.
func (p *Profile) ToFriend() (models.Friend, error) {
	if p.data.PublicKey == "" {
		return models.Friend{}, ErrNoPublicKey
	}
	id, err := p.ID()
	if err != nil {
		return models.Friend{}, err
	}
	nickname := ""
	if value, err := p.GetField(FieldNickname); err == nil {
		if s, ok := value.(string); ok {
			nickname = s
		}
	} else if !errors.Is(err, ErrFieldNotFound) {
		return models.Friend{}, err
	}
	return models.Friend{
		ID:        id,
		Nickname:  nickname,
		Servers:   p.Servers(),
		PublicKey: p.data.PublicKey,
	}, nil
}
