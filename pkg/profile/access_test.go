package profile

import (
	"bytes"
	"errors"
	"testing"

	"github.com/paladin-privacy/go-profiles/pkg/models"
)

func TestPublicCopyCannotReachPrivateFields(t *testing.T) {
	alice := rebuild(t, 0)
	if err := alice.SetField("email", "alice@example.com", models.Private()); err != nil {
		t.Fatalf("set email: %v", err)
	}
	if err := alice.Sign(); err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	filtered, err := alice.FilterFor(models.Public())
	if err != nil {
		t.Fatalf("filter failed: %v", err)
	}
	exported, err := filtered.Export()
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if bytes.Contains(exported, []byte("email")) {
		t.Fatal("public copy must not carry the private field at all")
	}
	if bytes.Contains(exported, []byte("PRIVATE KEY")) {
		t.Fatal("public copy must not carry key material")
	}

	// Bob receives the public copy.
	bobsCopy, err := FromData(exported)
	if err != nil {
		t.Fatalf("the filtered copy must verify on its own: %v", err)
	}
	if got, err := bobsCopy.GetField(FieldNickname); err != nil || got != "Alice" {
		t.Fatalf("nickname = %v (%v), want Alice", got, err)
	}
	if _, err := bobsCopy.GetField("email"); !errors.Is(err, ErrFieldNotFound) {
		t.Fatalf("expected ErrFieldNotFound, got %v", err)
	}
	if err := bobsCopy.SetField("email", "bob@example.com", models.Private()); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
}

func TestPrivateFieldPermissionChecks(t *testing.T) {
	alice := rebuild(t, 0)
	bob := rebuild(t, 1)
	if err := alice.SetField("email", "alice@example.com", models.Private()); err != nil {
		t.Fatalf("set email: %v", err)
	}

	// The owner reads it, with and without naming themselves.
	if got, err := alice.GetField("email"); err != nil || got != "alice@example.com" {
		t.Fatalf("owner read = %v (%v)", got, err)
	}
	if got, err := alice.GetField("email", alice); err != nil || got != "alice@example.com" {
		t.Fatalf("owner self-read = %v (%v)", got, err)
	}

	// Another identity does not.
	if _, err := alice.GetField("email", bob); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
}

func TestFriendsFieldSharing(t *testing.T) {
	alice := rebuild(t, 0)
	bob := rebuild(t, 1)
	carol := rebuild(t, 2)

	if err := alice.AddFriend(bob); err != nil {
		t.Fatalf("add friend: %v", err)
	}
	if err := alice.SetField("phone", "+4930123456", models.ForFriends(alice.Friends())); err != nil {
		t.Fatalf("set friends field: %v", err)
	}
	if err := alice.Sign(); err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	// Bob decrypts with his own keychain.
	if got, err := alice.GetField("phone", bob); err != nil || got != "+4930123456" {
		t.Fatalf("friend read = %v (%v)", got, err)
	}
	// The owner's self-envelope still opens.
	if got, err := alice.GetField("phone", alice); err != nil || got != "+4930123456" {
		t.Fatalf("owner read = %v (%v)", got, err)
	}
	// Carol was never granted the field.
	if _, err := alice.GetField("phone", carol); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
	// Context-free reads are rejected outright.
	if _, err := alice.GetField("phone"); !errors.Is(err, ErrCallerRequired) {
		t.Fatalf("expected ErrCallerRequired, got %v", err)
	}
}

func TestFriendsEnvelopesAreIndependent(t *testing.T) {
	alice := rebuild(t, 0)
	bob := rebuild(t, 1)
	if err := alice.AddFriend(bob); err != nil {
		t.Fatalf("add friend: %v", err)
	}
	if err := alice.SetField("phone", "+4930123456", models.ForFriends(alice.Friends())); err != nil {
		t.Fatalf("set friends field: %v", err)
	}

	data, err := alice.Data()
	if err != nil {
		t.Fatalf("data failed: %v", err)
	}
	field := data.Body.Fields["phone"]
	if len(field.Encryption) != 2 {
		t.Fatalf("expected self envelope plus one friend envelope, got %d", len(field.Encryption))
	}
	seenIVs := map[string]bool{}
	seenKeys := map[string]bool{}
	for _, env := range field.Encryption {
		if seenIVs[env.IV] || seenKeys[env.EncryptedKey] {
			t.Fatal("recipient envelopes must not share symmetric material")
		}
		seenIVs[env.IV] = true
		seenKeys[env.EncryptedKey] = true
	}
}

func TestFilterForPrivateKeepsKey(t *testing.T) {
	alice := rebuild(t, 0)
	if err := alice.SetField("email", "alice@example.com", models.Private()); err != nil {
		t.Fatalf("set email: %v", err)
	}
	filtered, err := alice.FilterFor(models.Private())
	if err != nil {
		t.Fatalf("filter failed: %v", err)
	}
	if !filtered.IsValid() {
		t.Fatal("filtered copy must be signed")
	}
	// Private disclosure keeps the private key and the private fields.
	if err := filtered.SetField("email", "new@example.com"); err != nil {
		t.Fatalf("private copy must stay writable: %v", err)
	}
	if got, err := filtered.GetField("email"); err != nil || got != "new@example.com" {
		t.Fatalf("email = %v (%v)", got, err)
	}
}

func TestFilterForRequiresCredentials(t *testing.T) {
	p := rebuildPublic(t, 0)
	if _, err := p.FilterFor(models.Public()); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
}

func TestFilterKeepsMatchingModeFields(t *testing.T) {
	alice := rebuild(t, 0)
	bob := rebuild(t, 1)
	if err := alice.AddFriend(bob); err != nil {
		t.Fatalf("add friend: %v", err)
	}
	if err := alice.SetField("phone", "+4930123456", models.ForFriends(alice.Friends())); err != nil {
		t.Fatalf("set friends field: %v", err)
	}
	if err := alice.SetField("email", "alice@example.com", models.Private()); err != nil {
		t.Fatalf("set email: %v", err)
	}

	filtered, err := alice.FilterFor(models.Visibility{Mode: models.VisibilityFriends})
	if err != nil {
		t.Fatalf("filter failed: %v", err)
	}
	if _, ok := filtered.Visibility("phone"); !ok {
		t.Fatal("friends field must survive a friends filter")
	}
	if _, ok := filtered.Visibility("email"); ok {
		t.Fatal("private field must not survive a friends filter")
	}
	if _, ok := filtered.Visibility(FieldNickname); !ok {
		t.Fatal("public field must survive any filter")
	}
	// The friends copy carries no private key.
	if err := filtered.SetField("x", "y", models.Public()); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
}

func TestMalformedFieldsAreRejectedOnRead(t *testing.T) {
	p := rebuild(t, 0)

	p.data.Body.Fields["no-value"] = models.Field{Visibility: models.Public()}
	if _, err := p.GetField("no-value"); !errors.Is(err, ErrMalformedField) {
		t.Fatalf("expected ErrMalformedField, got %v", err)
	}

	p.data.Body.Fields["no-envelope"] = models.Field{
		Encryption: map[string]models.Encryption{},
		Visibility: models.Private(),
	}
	if _, err := p.GetField("no-envelope"); !errors.Is(err, ErrMalformedField) {
		t.Fatalf("expected ErrMalformedField, got %v", err)
	}

	p.data.Body.Fields["odd-mode"] = models.Field{
		Value:      "x",
		Visibility: models.Visibility{Mode: "sometimes"},
	}
	if _, err := p.GetField("odd-mode"); !errors.Is(err, ErrUnknownVisibility) {
		t.Fatalf("expected ErrUnknownVisibility, got %v", err)
	}
}

func TestGetFieldMissing(t *testing.T) {
	p := rebuildPublic(t, 0)
	if _, err := p.GetField("never-set"); !errors.Is(err, ErrFieldNotFound) {
		t.Fatalf("expected ErrFieldNotFound, got %v", err)
	}
}
