package trust

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/ktiyab/coheara/internal/cherr"
	"github.com/ktiyab/coheara/internal/profile"
	"github.com/ktiyab/coheara/internal/repository"
)

// confirmationPhrase is the exact, case-sensitive text a patient must type
// to erase a profile — deliberately not localized, so translation can never
// accidentally make erasure easier to trigger.
const confirmationPhrase = "DELETE MY DATA"

// ErasureRequest carries everything EraseProfileData needs to destroy a
// profile beyond recovery.
type ErasureRequest struct {
	ProfileID        string
	ConfirmationText string
	Password         string
}

// ErasureResult reports what was removed.
type ErasureResult struct {
	ProfileID     string
	FilesRemoved  int
	BytesReclaimed int64
}

// EraseProfileData permanently deletes a profile: its database, originals,
// markdown, salt, and registry entry, plus any device pairings and access
// grants referencing it in the app database. The password is verified by
// actually opening the encrypted corpus database — a wrong password and a
// nonexistent profile surface as distinct errors, but a wrong password is
// never distinguishable from a corrupted database (profile.OpenProfile's
// guarantee), so erasure cannot be used to probe for a valid password. app
// may be nil, in which case app-database cleanup is skipped — callers
// without an app database (tests, single-profile setups) still get full
// profile-directory erasure.
func EraseProfileData(ctx context.Context, root string, app *repository.AppRepo, req ErasureRequest) (ErasureResult, error) {
	if req.ConfirmationText != confirmationPhrase {
		return ErasureResult{}, cherr.New(cherr.KindValidation,
			fmt.Sprintf("trust.EraseProfileData: type %q exactly to confirm erasure", confirmationPhrase),
			"retype the confirmation phrase exactly", false)
	}

	id, err := uuid.Parse(req.ProfileID)
	if err != nil {
		return ErasureResult{}, cherr.New(cherr.KindValidation, "trust.EraseProfileData: invalid profile id", "", false)
	}

	profiles, err := profile.ListProfiles(root)
	if err != nil {
		return ErasureResult{}, fmt.Errorf("trust.EraseProfileData: %w", err)
	}
	found := false
	for _, p := range profiles {
		if p.ID == id {
			found = true
			break
		}
	}
	if !found {
		return ErasureResult{}, cherr.New(cherr.KindValidation, "trust.EraseProfileData: profile not found", "", false)
	}

	sess, err := profile.OpenProfile(ctx, root, id, req.Password)
	if err != nil {
		return ErasureResult{}, fmt.Errorf("trust.EraseProfileData: %w", err)
	}
	if err := sess.Close(); err != nil {
		return ErasureResult{}, fmt.Errorf("trust.EraseProfileData: %w", err)
	}

	dir := filepath.Join(root, id.String())
	count, size := countDirContents(dir)
	if err := os.RemoveAll(dir); err != nil {
		return ErasureResult{}, fmt.Errorf("trust.EraseProfileData: %w", err)
	}

	if _, err := profile.RemoveProfile(root, id); err != nil {
		return ErasureResult{}, fmt.Errorf("trust.EraseProfileData: %w", err)
	}

	if app != nil {
		if err := app.PurgeProfileReferences(ctx, id.String()); err != nil {
			return ErasureResult{}, fmt.Errorf("trust.EraseProfileData: %w", err)
		}
	}

	return ErasureResult{ProfileID: req.ProfileID, FilesRemoved: count, BytesReclaimed: size}, nil
}
