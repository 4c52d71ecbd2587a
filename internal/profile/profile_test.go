package profile

import (
	"context"
	"testing"
)

func TestCreateAndOpenProfile(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()

	sess, phrase, err := CreateProfile(ctx, root, "Alex", "correct horse battery staple", CreateOptions{})
	if err != nil {
		t.Fatalf("CreateProfile: %v", err)
	}
	if phrase == "" {
		t.Fatal("expected non-empty recovery phrase")
	}
	id := sess.ProfileID
	if err := sess.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	profiles, err := ListProfiles(root)
	if err != nil {
		t.Fatalf("ListProfiles: %v", err)
	}
	if len(profiles) != 1 || profiles[0].Name != "Alex" {
		t.Fatalf("got %+v", profiles)
	}

	reopened, err := OpenProfile(ctx, root, id, "correct horse battery staple")
	if err != nil {
		t.Fatalf("OpenProfile with correct password: %v", err)
	}
	if _, err := reopened.DB(); err != nil {
		t.Fatalf("DB: %v", err)
	}
	defer reopened.Close()
}

func TestOpenProfileWrongPassword(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()

	sess, _, err := CreateProfile(ctx, root, "Alex", "right-password", CreateOptions{})
	if err != nil {
		t.Fatalf("CreateProfile: %v", err)
	}
	id := sess.ProfileID
	sess.Close()

	wrong, err := OpenProfile(ctx, root, id, "wrong-password")
	if err == nil {
		wrong.Close()
		t.Fatal("expected error opening with wrong password")
	}
}

func TestRecoveryPhraseRoundTrip(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()

	sess, phrase, err := CreateProfile(ctx, root, "Alex", "pw", CreateOptions{})
	if err != nil {
		t.Fatalf("CreateProfile: %v", err)
	}
	want := sess.Key()
	sess.Close()

	got, err := RecoveryKey(phrase)
	if err != nil {
		t.Fatalf("RecoveryKey: %v", err)
	}
	if got != want {
		t.Fatal("recovered key does not match original")
	}
}

func TestListProfilesEmptyRoot(t *testing.T) {
	profiles, err := ListProfiles(t.TempDir())
	if err != nil {
		t.Fatalf("ListProfiles: %v", err)
	}
	if len(profiles) != 0 {
		t.Fatalf("expected empty, got %v", profiles)
	}
}
