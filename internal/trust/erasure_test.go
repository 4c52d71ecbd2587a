package trust

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ktiyab/coheara/internal/profile"
	"github.com/ktiyab/coheara/internal/repository"
)

func TestEraseProfileDataRejectsWrongConfirmationText(t *testing.T) {
	dir := t.TempDir()
	req := ErasureRequest{
		ProfileID:        uuid.New().String(),
		ConfirmationText: "delete my data",
		Password:         "password",
	}
	_, err := EraseProfileData(context.Background(), dir, nil, req)
	if err == nil {
		t.Fatal("expected an error for a lowercase confirmation phrase")
	}
}

func TestEraseProfileDataRejectsUnknownProfile(t *testing.T) {
	dir := t.TempDir()
	req := ErasureRequest{
		ProfileID:        uuid.New().String(),
		ConfirmationText: confirmationPhrase,
		Password:         "password",
	}
	_, err := EraseProfileData(context.Background(), dir, nil, req)
	if err == nil {
		t.Fatal("expected an error for a profile that was never created")
	}
}

func TestEraseProfileDataRemovesProfile(t *testing.T) {
	dir := t.TempDir()
	sess, _, err := profile.CreateProfile(context.Background(), dir, "Test Profile", "correct horse battery staple", profile.CreateOptions{})
	if err != nil {
		t.Fatalf("CreateProfile: %v", err)
	}
	id := sess.ProfileID
	if err := sess.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	req := ErasureRequest{
		ProfileID:        id.String(),
		ConfirmationText: confirmationPhrase,
		Password:         "correct horse battery staple",
	}
	result, err := EraseProfileData(context.Background(), dir, nil, req)
	if err != nil {
		t.Fatalf("EraseProfileData: %v", err)
	}
	if result.ProfileID != id.String() {
		t.Fatalf("expected result to report the erased profile id, got %q", result.ProfileID)
	}

	profiles, err := profile.ListProfiles(dir)
	if err != nil {
		t.Fatalf("ListProfiles: %v", err)
	}
	for _, p := range profiles {
		if p.ID == id {
			t.Fatalf("expected the profile to be removed from the registry, found %+v", p)
		}
	}
}

func TestEraseProfileDataRejectsWrongPassword(t *testing.T) {
	dir := t.TempDir()
	sess, _, err := profile.CreateProfile(context.Background(), dir, "Test Profile", "correct horse battery staple", profile.CreateOptions{})
	if err != nil {
		t.Fatalf("CreateProfile: %v", err)
	}
	id := sess.ProfileID
	if err := sess.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	req := ErasureRequest{
		ProfileID:        id.String(),
		ConfirmationText: confirmationPhrase,
		Password:         "wrong password",
	}
	if _, err := EraseProfileData(context.Background(), dir, nil, req); err == nil {
		t.Fatal("expected an error for the wrong password")
	}
}

func TestEraseProfileDataPurgesAppDBReferences(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	sess, _, err := profile.CreateProfile(ctx, dir, "Test Profile", "correct horse battery staple", profile.CreateOptions{})
	if err != nil {
		t.Fatalf("CreateProfile: %v", err)
	}
	id := sess.ProfileID
	if err := sess.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	appDB, err := repository.OpenAppDB(filepath.Join(dir, "app.db"))
	if err != nil {
		t.Fatalf("OpenAppDB: %v", err)
	}
	defer appDB.Close()
	app := repository.NewAppRepo(appDB)
	if err := app.RegisterDevice(ctx, repository.DeviceRegistration{ID: "dev-1", OwnerProfileID: id.String(), PairedAt: time.Now()}); err != nil {
		t.Fatalf("RegisterDevice: %v", err)
	}

	req := ErasureRequest{
		ProfileID:        id.String(),
		ConfirmationText: confirmationPhrase,
		Password:         "correct horse battery staple",
	}
	if _, err := EraseProfileData(ctx, dir, app, req); err != nil {
		t.Fatalf("EraseProfileData: %v", err)
	}

	devices, err := app.ListDevices(ctx, id.String())
	if err != nil {
		t.Fatalf("ListDevices: %v", err)
	}
	if len(devices) != 0 {
		t.Fatalf("expected the erased profile's device registrations to be purged, got %d", len(devices))
	}
}
