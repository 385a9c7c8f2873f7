package profile

import (
	"errors"
	"testing"

	"github.com/paladin-privacy/go-profiles/pkg/models"
)

func TestAddAndRemoveFriend(t *testing.T) {
	alice := rebuild(t, 0)
	bob := rebuild(t, 1)

	if err := alice.AddFriend(bob); err != nil {
		t.Fatalf("add friend: %v", err)
	}
	if !alice.IsDirty() {
		t.Fatal("adding a friend must dirty the document")
	}
	friends := alice.Friends()
	if len(friends) != 1 {
		t.Fatalf("friends = %d, want 1", len(friends))
	}
	bobID, err := bob.ID()
	if err != nil {
		t.Fatalf("id failed: %v", err)
	}
	if friends[0].ID != bobID {
		t.Fatalf("friend id = %q, want %q", friends[0].ID, bobID)
	}
	if friends[0].Nickname != "Bob" {
		t.Fatalf("friend nickname = %q, want Bob", friends[0].Nickname)
	}
	if friends[0].PublicKey != bob.PublicKey() {
		t.Fatal("friend descriptor must carry the friend's public key")
	}

	if err := alice.RemoveFriend(bob); err != nil {
		t.Fatalf("remove friend: %v", err)
	}
	if len(alice.Friends()) != 0 {
		t.Fatal("friend list must be empty after removal")
	}
	if err := alice.RemoveFriend(bob); !errors.Is(err, ErrFriendNotFound) {
		t.Fatalf("expected ErrFriendNotFound, got %v", err)
	}
}

func TestFriendMutationsRequireCredentials(t *testing.T) {
	alice := rebuildPublic(t, 0)
	bob := rebuild(t, 1)
	if err := alice.AddFriend(bob); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
	if err := alice.RemoveFriend(bob); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
	if err := alice.AddServer(models.Server{Domain: "profiles.example.com"}); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
}

func TestToFriendDescriptor(t *testing.T) {
	bob := rebuild(t, 1)
	if err := bob.AddServer(models.Server{Domain: "profiles.example.com"}); err != nil {
		t.Fatalf("add server: %v", err)
	}
	descriptor, err := bob.ToFriend()
	if err != nil {
		t.Fatalf("to friend: %v", err)
	}
	if descriptor.Nickname != "Bob" {
		t.Fatalf("nickname = %q, want Bob", descriptor.Nickname)
	}
	if len(descriptor.Servers) != 1 || descriptor.Servers[0].Domain != "profiles.example.com" {
		t.Fatalf("servers = %v", descriptor.Servers)
	}
}

func TestToFriendWithoutNickname(t *testing.T) {
	p := New()
	if err := p.Initialize(); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}
	descriptor, err := p.ToFriend()
	if err != nil {
		t.Fatalf("to friend: %v", err)
	}
	if descriptor.Nickname != "" {
		t.Fatalf("nickname = %q, want empty", descriptor.Nickname)
	}
}

func TestToFriendRequiresPublicKey(t *testing.T) {
	if _, err := New().ToFriend(); !errors.Is(err, ErrNoPublicKey) {
		t.Fatalf("expected ErrNoPublicKey, got %v", err)
	}
}

func TestFriendsReturnsCopy(t *testing.T) {
	alice := rebuild(t, 0)
	bob := rebuild(t, 1)
	if err := alice.AddFriend(bob); err != nil {
		t.Fatalf("add friend: %v", err)
	}
	friends := alice.Friends()
	friends[0].Nickname = "mangled"
	if alice.Friends()[0].Nickname == "mangled" {
		t.Fatal("mutating the returned slice must not reach the document")
	}
}

func TestServerListSurvivesSigning(t *testing.T) {
	alice := rebuild(t, 0)
	if err := alice.AddServer(models.Server{Domain: "a.example.com"}); err != nil {
		t.Fatalf("add server: %v", err)
	}
	if err := alice.Sign(); err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	doc, key, err := alice.Pack()
	if err != nil {
		t.Fatalf("pack failed: %v", err)
	}
	again, err := FromData(doc, WithPrivateKey(key))
	if err != nil {
		t.Fatalf("reconstruct failed: %v", err)
	}
	servers := again.Servers()
	if len(servers) != 1 || servers[0].Domain != "a.example.com" {
		t.Fatalf("servers = %v", servers)
	}
}
