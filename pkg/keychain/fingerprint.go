package keychain

import (
	"crypto/sha256"
	"encoding/base64"

	"github.com/mr-tron/base58/base58"

	"github.com/paladin-privacy/go-profiles/pkg/models"
)

// Fingerprint derives the stable identity of a public key: the SHA-256
// digest of the PEM public key, base64 encoded. It is used as the document
// id and as the recipient key of encryption maps.
func Fingerprint(creds models.Credentials) (string, error) {
	if !creds.HasPublic() {
		return "", ErrNoPublicKey
	}
	digest := sha256.Sum256([]byte(creds.PublicKey))
	return base64.StdEncoding.EncodeToString(digest[:]), nil
}

// ShortID renders a fingerprint as a compact base58 string for logs and
// listings. It is display-only and never used as a wire id or map key.
func ShortID(fingerprint string) string {
	digest, err := base64.StdEncoding.DecodeString(fingerprint)
	if err != nil {
		return ""
	}
	return "pal1" + base58.Encode(digest)
}
