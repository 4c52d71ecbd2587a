package authz

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

type fakeStore struct {
	grants  map[[2]uuid.UUID]*Grant
	devices map[string]*DeviceAccess
}

func newFakeStore() *fakeStore {
	return &fakeStore{grants: map[[2]uuid.UUID]*Grant{}, devices: map[string]*DeviceAccess{}}
}

func (s *fakeStore) GrantFor(ctx context.Context, granter, grantee uuid.UUID) (*Grant, error) {
	return s.grants[[2]uuid.UUID{granter, grantee}], nil
}

func (s *fakeStore) DeviceAccessFor(ctx context.Context, deviceID string, profileID uuid.UUID) (*DeviceAccess, error) {
	return s.devices[deviceID+"|"+profileID.String()], nil
}

func TestOwnProfileAccess(t *testing.T) {
	store := newFakeStore()
	id := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	p := Profile{ID: id, Name: "alice"}

	d, err := Check(context.Background(), store, p, p, "d-1")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !d.Allowed || d.Level != LevelFull || d.Reason != ReasonOwnProfile {
		t.Fatalf("got %+v, want Full/OwnProfile", d)
	}
}

func TestManagedProfileUnidirectional(t *testing.T) {
	store := newFakeStore()
	alice := Profile{ID: uuid.New(), Name: "alice"}
	child := Profile{ID: uuid.New(), Name: "child", ManagedBy: "alice"}

	d, err := Check(context.Background(), store, alice, child, "d-1")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !d.Allowed || d.Level != LevelFull || d.Reason != ReasonManagedProfile {
		t.Fatalf("alice->child: got %+v, want Full/ManagedProfile", d)
	}

	d2, err := Check(context.Background(), store, child, alice, "d-1")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if d2.Allowed {
		t.Fatalf("child->alice: got %+v, want Denied", d2)
	}
}

func TestExplicitGrantPriorityAndUnidirectional(t *testing.T) {
	store := newFakeStore()
	alice := Profile{ID: uuid.New(), Name: "alice"}
	bob := Profile{ID: uuid.New(), Name: "bob"}

	// Bob grants Alice read_only: granter=bob, grantee=alice.
	store.grants[[2]uuid.UUID{bob.ID, alice.ID}] = &Grant{Granter: bob.ID, Grantee: alice.ID, Level: "read_only"}

	d, err := Check(context.Background(), store, alice, bob, "d-1")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !d.Allowed || d.Level != LevelReadOnly || d.Reason != ReasonExplicitGrant {
		t.Fatalf("alice->bob: got %+v, want ReadOnly/ExplicitGrant", d)
	}

	d2, err := Check(context.Background(), store, bob, alice, "d-1")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if d2.Allowed {
		t.Fatalf("bob->alice: got %+v, want Denied", d2)
	}
}

func TestManagedBeatsExplicitGrant(t *testing.T) {
	store := newFakeStore()
	alice := Profile{ID: uuid.New(), Name: "alice"}
	child := Profile{ID: uuid.New(), Name: "child", ManagedBy: "alice"}
	// Also grant alice explicit access to child — managed must still win
	// because the cascade checks it first; this is implied by rule order,
	// not a separate branch, so this test just documents rule 2 precedence.
	store.grants[[2]uuid.UUID{child.ID, alice.ID}] = &Grant{Granter: child.ID, Grantee: alice.ID, Level: "read_only"}

	d, err := Check(context.Background(), store, alice, child, "d-1")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if d.Reason != ReasonManagedProfile || d.Level != LevelFull {
		t.Fatalf("got %+v, want ManagedProfile/Full even with a grant present", d)
	}
}

func TestRevokedGrantDenies(t *testing.T) {
	store := newFakeStore()
	alice := Profile{ID: uuid.New(), Name: "alice"}
	bob := Profile{ID: uuid.New(), Name: "bob"}
	revoked := time.Now()
	store.grants[[2]uuid.UUID{bob.ID, alice.ID}] = &Grant{Granter: bob.ID, Grantee: alice.ID, Level: "read_only", RevokedAt: &revoked}

	d, err := Check(context.Background(), store, alice, bob, "d-1")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if d.Allowed {
		t.Fatalf("got %+v, want Denied for revoked grant", d)
	}
}

func TestDeviceAccessFallback(t *testing.T) {
	store := newFakeStore()
	alice := Profile{ID: uuid.New(), Name: "alice"}
	bob := Profile{ID: uuid.New(), Name: "bob"}
	store.devices["d-9|"+bob.ID.String()] = &DeviceAccess{DeviceID: "d-9", ProfileID: bob.ID, Level: "full"}

	d, err := Check(context.Background(), store, alice, bob, "d-9")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !d.Allowed || d.Reason != ReasonDeviceAccess || d.Level != LevelFull {
		t.Fatalf("got %+v, want Full/DeviceAccess", d)
	}
}

func TestUnknownLevelStringDenies(t *testing.T) {
	store := newFakeStore()
	alice := Profile{ID: uuid.New(), Name: "alice"}
	bob := Profile{ID: uuid.New(), Name: "bob"}
	store.grants[[2]uuid.UUID{bob.ID, alice.ID}] = &Grant{Granter: bob.ID, Grantee: alice.ID, Level: "superadmin"}

	d, err := Check(context.Background(), store, alice, bob, "d-1")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if d.Allowed {
		t.Fatalf("got %+v, want Denied for unrecognized level string", d)
	}
}
