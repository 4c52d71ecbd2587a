// Package authz implements the multi-profile authorization cascade: a
// strictly ordered rule list deciding whether one profile may access
// another's data on a shared device.
package authz

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AccessLevel is the granted scope of cross-profile access.
type AccessLevel int

const (
	LevelDeny AccessLevel = iota
	LevelReadOnly
	LevelFull
)

func (l AccessLevel) String() string {
	switch l {
	case LevelFull:
		return "full"
	case LevelReadOnly:
		return "read_only"
	default:
		return "deny"
	}
}

// parseLevel validates a grant-level string against the closed set.
// Anything not in the set is treated as LevelDeny, per the cascade's
// "unknown values deny" rule.
func parseLevel(s string) AccessLevel {
	switch s {
	case "full":
		return LevelFull
	case "read_only":
		return LevelReadOnly
	default:
		return LevelDeny
	}
}

// Reason records which rule in the cascade produced the decision, for audit.
type Reason int

const (
	ReasonDenied Reason = iota
	ReasonOwnProfile
	ReasonManagedProfile
	ReasonExplicitGrant
	ReasonDeviceAccess
)

func (r Reason) String() string {
	switch r {
	case ReasonOwnProfile:
		return "own_profile"
	case ReasonManagedProfile:
		return "managed_profile"
	case ReasonExplicitGrant:
		return "explicit_grant"
	case ReasonDeviceAccess:
		return "device_access"
	default:
		return "denied"
	}
}

// Decision is the outcome of evaluating the cascade.
type Decision struct {
	Allowed bool
	Level   AccessLevel
	Reason  Reason
}

// Profile is the minimal shape the cascade needs; callers' richer profile
// types satisfy this via field access at the call site.
type Profile struct {
	ID         uuid.UUID
	Name       string
	ManagedBy  string // profile name of the manager, empty if unmanaged
}

// Grant is a row from profile_access_grants: target (granter) grants owner
// (grantee) a level, unidirectionally.
type Grant struct {
	Granter   uuid.UUID
	Grantee   uuid.UUID
	Level     string
	RevokedAt *time.Time
}

// DeviceAccess is a row from device_profile_access.
type DeviceAccess struct {
	DeviceID  string
	ProfileID uuid.UUID
	Level     string
	RevokedAt *time.Time
}

// Store is the minimal persistence surface the cascade reads from. Callers
// back it with the app-level (unencrypted, global) database.
type Store interface {
	GrantFor(ctx context.Context, granter, grantee uuid.UUID) (*Grant, error)
	DeviceAccessFor(ctx context.Context, deviceID string, profileID uuid.UUID) (*DeviceAccess, error)
}

// Check evaluates the four-rule-plus-deny cascade in strict order; the
// first matching rule wins. owner is the profile requesting access; target
// is the profile whose data is being accessed.
func Check(ctx context.Context, store Store, owner, target Profile, deviceID string) (Decision, error) {
	return CheckWithProfiles(ctx, store, owner, target, deviceID)
}

// CheckWithProfiles is the same cascade but takes pre-loaded profile values
// directly, avoiding a repeated profile-list read under load — mirrors the
// original's check_profile_access_with_profiles entry point.
func CheckWithProfiles(ctx context.Context, store Store, owner, target Profile, deviceID string) (Decision, error) {
	// Rule 1: owner == target.
	if owner.ID == target.ID {
		return Decision{Allowed: true, Level: LevelFull, Reason: ReasonOwnProfile}, nil
	}

	// Rule 2: target is managed by owner.
	if target.ManagedBy != "" && target.ManagedBy == owner.Name {
		return Decision{Allowed: true, Level: LevelFull, Reason: ReasonManagedProfile}, nil
	}

	// Rule 3: active explicit grant from target to owner.
	grant, err := store.GrantFor(ctx, target.ID, owner.ID)
	if err != nil {
		return Decision{}, fmt.Errorf("authz.CheckWithProfiles: %w", err)
	}
	if grant != nil && grant.RevokedAt == nil {
		level := parseLevel(grant.Level)
		if level != LevelDeny {
			return Decision{Allowed: true, Level: level, Reason: ReasonExplicitGrant}, nil
		}
	}

	// Rule 4: active device grant against the target profile.
	if deviceID != "" {
		da, err := store.DeviceAccessFor(ctx, deviceID, target.ID)
		if err != nil {
			return Decision{}, fmt.Errorf("authz.CheckWithProfiles: %w", err)
		}
		if da != nil && da.RevokedAt == nil {
			level := parseLevel(da.Level)
			if level != LevelDeny {
				return Decision{Allowed: true, Level: level, Reason: ReasonDeviceAccess}, nil
			}
		}
	}

	// Rule 5: deny.
	return Decision{Allowed: false, Level: LevelDeny, Reason: ReasonDenied}, nil
}
