// Package models declares the wire shapes shared by the profile document,
// the keychain and the status feed. The serialized profile never carries a
// private key; credentials travel out-of-band.
package models

// Software and Version identify the document format. The spec string is
// stamped into every signed profile.
const (
	Software    = "@paladin-privacy/profiles"
	Version     = "0.0.1"
	SpecVersion = Software + ":" + Version
)

// VisibilityMode is the declared disclosure policy of a single field.
type VisibilityMode string

const (
	VisibilityPublic  VisibilityMode = "public"
	VisibilityPrivate VisibilityMode = "private"
	VisibilityFriends VisibilityMode = "friends"
)

// Visibility carries the mode and, for friends-visibility, the recipient
// list recorded at write time.
type Visibility struct {
	Mode    VisibilityMode `json:"mode"`
	Friends []Friend       `json:"friends,omitempty"`
}

// Public returns a public visibility declaration.
func Public() Visibility {
	return Visibility{Mode: VisibilityPublic}
}

// Private returns an owner-only visibility declaration.
func Private() Visibility {
	return Visibility{Mode: VisibilityPrivate}
}

// ForFriends returns a friends visibility declaration listing the
// recipients a field is shared with.
func ForFriends(friends []Friend) Visibility {
	return Visibility{Mode: VisibilityFriends, Friends: friends}
}

// Encryption is one hybrid ciphertext for one recipient: the payload is
// encrypted under a fresh symmetric key, which is itself wrapped with the
// recipient's public key. All byte values are base64 strings.
type Encryption struct {
	ForID         string `json:"forId,omitempty"`
	Algorithm     string `json:"algorithm"`
	IV            string `json:"iv"`
	EncryptedKey  string `json:"encryptedKey"`
	EncryptedData string `json:"encryptedData"`
}

// Field is a single profile entry. A public field holds Value and nothing
// else; a private or friends field holds one Encryption per recipient id
// and no plaintext. The write path enforces this shape, the read path
// rejects documents that violate it.
type Field struct {
	Value      any                   `json:"value,omitempty"`
	Encryption map[string]Encryption `json:"encryption,omitempty"`
	Visibility Visibility            `json:"visibility"`
}

// Server describes a host a profile can be fetched from.
type Server struct {
	Domain string `json:"domain"`
}

// Friend is the exportable descriptor of another profile.
type Friend struct {
	ID        string   `json:"id"`
	Nickname  string   `json:"nickname"`
	Servers   []Server `json:"servers"`
	PublicKey string   `json:"publicKey"`
}

// ProfileBody is the signed portion of a profile document.
type ProfileBody struct {
	ID         string           `json:"id,omitempty"`
	Revision   int64            `json:"revision,omitempty"`
	Fields     map[string]Field `json:"fields"`
	Friends    []Friend         `json:"friends"`
	Servers    []Server         `json:"servers"`
	CreatedOn  int64            `json:"createdOn,omitempty"`
	ModifiedOn int64            `json:"modifiedOn,omitempty"`
}

// Signature is a base64-encoded signature over a canonical body
// serialization.
type Signature struct {
	Signature string `json:"signature"`
}

// Profile is the serialized document shape. Credentials are deliberately
// absent: only the public key is embedded.
type Profile struct {
	Spec      string      `json:"spec"`
	Body      ProfileBody `json:"body"`
	Signature *Signature  `json:"signature"`
	PublicKey string      `json:"publicKey"`
}

// Credentials holds PEM-encoded asymmetric key material. Either side may
// be absent: a public-only value can verify and receive, a private-only
// value can sign and decrypt, a full value can do both.
type Credentials struct {
	PublicKey  string `json:"publicKey,omitempty"`
	PrivateKey string `json:"privateKey,omitempty"`
}

// HasPublic reports whether a public key is present.
func (c Credentials) HasPublic() bool { return c.PublicKey != "" }

// HasPrivate reports whether a private key is present.
func (c Credentials) HasPrivate() bool { return c.PrivateKey != "" }

// Public reduces the credentials to their public half.
func (c Credentials) Public() Credentials {
	return Credentials{PublicKey: c.PublicKey}
}

// Private reduces the credentials to their private half.
func (c Credentials) Private() Credentials {
	return Credentials{PrivateKey: c.PrivateKey}
}

// Status is one entry of a signed status feed.
type Status struct {
	ID         string `json:"id"`
	Message    string `json:"message"`
	CreatedOn  string `json:"createdOn"`
	ModifiedOn string `json:"modifiedOn"`
}

// FeedChunkBody is the signed portion of one feed chunk.
type FeedChunkBody struct {
	ID       string   `json:"id"`
	Contents []Status `json:"contents"`
}

// FeedChunk is a signed batch of statuses.
type FeedChunk struct {
	Body      FeedChunkBody `json:"body"`
	Signature Signature     `json:"signature"`
}

// Feed is an append-only sequence of signed chunks.
type Feed struct {
	Chunks []FeedChunk `json:"chunks"`
}

// Settings holds feed tuning values.
type Settings struct {
	ChunkSize int `json:"chunkSize"`
}

// DefaultSettings returns the stock feed settings.
func DefaultSettings() Settings {
	return Settings{ChunkSize: 10}
}
