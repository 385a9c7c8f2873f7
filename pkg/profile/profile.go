// Package profile implements the profile document lifecycle: construction,
// field mutation under per-field visibility, signing, validation, redacted
// export and friend management. A document can be handed to an untrusted
// party, who can verify its integrity from the embedded public key alone
// and read exactly the fields its owner chose to expose.
package profile

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/paladin-privacy/go-profiles/pkg/keychain"
	"github.com/paladin-privacy/go-profiles/pkg/models"
)

// Profile owns a versioned document body, the local credentials and the
// document signature. Credentials never enter the serialized form; the
// private key is carried out-of-band via Pack.
type Profile struct {
	data  models.Profile
	creds models.Credentials
	kc    *keychain.Keychain
	dirty bool
	now   func() time.Time
}

// New returns a fresh, unsigned document with no identity and no
// credentials. It becomes usable after Initialize.
func New() *Profile {
	return &Profile{
		data: models.Profile{
			Body: models.ProfileBody{Fields: map[string]models.Field{}},
		},
		now: time.Now,
	}
}

// Option configures reconstruction of a serialized document.
type Option func(*reconstructOptions)

type reconstructOptions struct {
	privateKey string
}

// WithPrivateKey supplies the detached PEM private key alongside the
// serialized document, restoring a fully writable profile.
func WithPrivateKey(pemKey string) Option {
	return func(o *reconstructOptions) { o.privateKey = pemKey }
}

// FromData reconstructs a document from its serialized form. Credentials
// are reassembled from the embedded public key plus the optionally
// supplied private key. The signature is verified unconditionally; a
// document that does not verify against its own body is rejected.
func FromData(raw []byte, opts ...Option) (*Profile, error) {
	var doc models.Profile
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	if doc.Body.Fields == nil {
		doc.Body.Fields = map[string]models.Field{}
	}

	var ro reconstructOptions
	for _, opt := range opts {
		opt(&ro)
	}

	p := &Profile{data: doc, now: time.Now}
	creds := models.Credentials{PublicKey: doc.PublicKey, PrivateKey: ro.privateKey}
	if creds.HasPublic() || creds.HasPrivate() {
		kc, err := keychain.FromCredentials(creds)
		if err != nil {
			return nil, err
		}
		p.creds = creds
		p.kc = kc
	}
	if !p.IsValid() {
		return nil, ErrInvalidSignature
	}
	return p, nil
}

// Initialize generates fresh credentials and establishes the document
// identity as the fingerprint of the new public key. Calling it on an
// already initialized profile regenerates the identity and orphans the
// previous one; it is a re-initialization, not a merge.
func (p *Profile) Initialize() error {
	kc, err := keychain.Create()
	if err != nil {
		return err
	}
	creds := kc.GetCredentials()
	id, err := keychain.Fingerprint(creds)
	if err != nil {
		return err
	}
	p.kc = kc
	p.creds = creds
	p.data.PublicKey = creds.PublicKey
	p.data.Body.ID = id
	p.data.Body.Fields = map[string]models.Field{}
	p.data.Body.Friends = []models.Friend{}
	p.data.Body.Servers = []models.Server{}
	p.dirty = true
	return nil
}

// SetField stores a value under the given visibility. When the visibility
// argument is omitted the field's previously recorded visibility is
// reused; a field that was never set cannot infer one. Requires the
// private key.
func (p *Profile) SetField(key string, value any, visibility ...models.Visibility) error {
	if !p.creds.HasPrivate() {
		return ErrNotAuthorized
	}
	var vis models.Visibility
	if len(visibility) > 0 {
		vis = visibility[0]
	} else {
		prev, ok := p.Visibility(key)
		if !ok {
			return ErrVisibilityRequired
		}
		vis = prev
	}
	if err := p.writeField(key, value, vis); err != nil {
		return err
	}
	p.dirty = true
	return nil
}

// GetField resolves a field according to its own recorded visibility. The
// optional me argument identifies the caller; it is required for friends
// fields and checked for private ones.
func (p *Profile) GetField(key string, me ...*Profile) (any, error) {
	var caller *Profile
	if len(me) > 0 {
		caller = me[0]
	}
	return p.readField(key, caller)
}

// Sign stamps the spec version and timestamps, advances the revision and
// signs the canonical body. The revision sequence is 1, 2, 3... across
// successive signatures of the same document.
func (p *Profile) Sign() error {
	if p.kc == nil || !p.creds.HasPrivate() {
		return ErrNotAuthorized
	}
	p.data.Spec = models.SpecVersion
	nowUnix := p.now().Unix()
	if p.data.Body.CreatedOn == 0 {
		p.data.Body.CreatedOn = nowUnix
	}
	p.data.Body.ModifiedOn = nowUnix
	p.data.Body.Revision++

	body, err := canonicalBody(p.data.Body)
	if err != nil {
		return err
	}
	sig, err := p.kc.Sign(body)
	if err != nil {
		return err
	}
	p.data.Signature = &sig
	p.dirty = false
	return nil
}

// IsValid reports whether the stored signature verifies against the
// current body. A profile without credentials or without a signature is
// simply not valid; no error is raised.
func (p *Profile) IsValid() bool {
	if p.kc == nil || p.data.Signature == nil {
		return false
	}
	body, err := canonicalBody(p.data.Body)
	if err != nil {
		return false
	}
	ok, err := p.kc.Verify(body, *p.data.Signature)
	return err == nil && ok
}

// IsDirty reports whether the document has unsigned changes.
func (p *Profile) IsDirty() bool {
	return p.dirty
}

// ID returns the document identity.
func (p *Profile) ID() (string, error) {
	if p.data.Body.ID == "" {
		return "", ErrNoIdentity
	}
	return p.data.Body.ID, nil
}

// PublicKey returns the embedded PEM public key, or "" when the identity
// was never established.
func (p *Profile) PublicKey() string {
	return p.data.PublicKey
}

// Visibility returns the recorded visibility of a field.
func (p *Profile) Visibility(key string) (models.Visibility, bool) {
	field, ok := p.data.Body.Fields[key]
	if !ok {
		return models.Visibility{}, false
	}
	return field.Visibility, true
}

// Keychain exposes the profile's keychain, or nil when no credentials are
// held.
func (p *Profile) Keychain() *keychain.Keychain {
	return p.kc
}

// Revision returns the current revision number; 0 means never signed.
func (p *Profile) Revision() int64 {
	return p.data.Body.Revision
}

// Data returns a deep copy of the serializable document.
func (p *Profile) Data() (models.Profile, error) {
	return copyData(p.data)
}

// Export serializes the document. The private key is excluded by
// construction.
func (p *Profile) Export() ([]byte, error) {
	return json.Marshal(p.data)
}

// Pack splits the document into its public serialized form and the
// detached PEM private key, so the two can be stored or transmitted
// separately. Requires the private key.
func (p *Profile) Pack() (document []byte, privateKey string, err error) {
	if !p.creds.HasPrivate() {
		return nil, "", ErrNotAuthorized
	}
	document, err = p.Export()
	if err != nil {
		return nil, "", err
	}
	return document, p.creds.PrivateKey, nil
}

// FilterFor produces an independently signed copy restricted to the given
// disclosure level: a field survives when its own mode is public or equals
// the requested mode. Any mode other than private also strips the private
// key from the copy. The reduced body is re-signed with this profile's
// keychain, so the copy verifies on its own.
func (p *Profile) FilterFor(visibility models.Visibility) (*Profile, error) {
	if p.kc == nil || !p.creds.HasPrivate() {
		return nil, ErrNotAuthorized
	}
	data, err := copyData(p.data)
	if err != nil {
		return nil, err
	}

	creds := p.creds
	if visibility.Mode != models.VisibilityPrivate {
		creds = creds.Public()
	}

	kept := map[string]models.Field{}
	for name, field := range data.Body.Fields {
		if field.Visibility.Mode == models.VisibilityPublic || field.Visibility.Mode == visibility.Mode {
			kept[name] = field
		}
	}
	data.Body.Fields = kept

	body, err := canonicalBody(data.Body)
	if err != nil {
		return nil, err
	}
	sig, err := p.kc.Sign(body)
	if err != nil {
		return nil, err
	}
	data.Signature = &sig

	kc, err := keychain.FromCredentials(creds)
	if err != nil {
		return nil, err
	}
	return &Profile{data: data, creds: creds, kc: kc, now: time.Now}, nil
}

// canonicalBody produces the deterministic byte representation a body is
// signed and verified against. encoding/json emits struct fields in
// declaration order and map keys sorted, so the output is stable.
func canonicalBody(body models.ProfileBody) ([]byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("serialize body: %w", err)
	}
	return b, nil
}

func copyData(data models.Profile) (models.Profile, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return models.Profile{}, err
	}
	var out models.Profile
	if err := json.Unmarshal(raw, &out); err != nil {
		return models.Profile{}, err
	}
	if out.Body.Fields == nil {
		out.Body.Fields = map[string]models.Field{}
	}
	return out, nil
}
