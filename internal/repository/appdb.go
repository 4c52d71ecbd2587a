package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/ktiyab/coheara/internal/authz"
)

// AppRepo is the CRUD surface over the global, unencrypted app database:
// device pairing and cross-profile access grants. It implements
// authz.Store so the authorization cascade can read grants directly.
type AppRepo struct{ db *sql.DB }

func NewAppRepo(db *sql.DB) *AppRepo { return &AppRepo{db: db} }

func (r *AppRepo) RegisterDevice(ctx context.Context, d DeviceRegistration) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO device_registry (id, owner_profile_id, name, paired_at, revoked_at) VALUES (?, ?, ?, ?, NULL)`,
		d.ID, d.OwnerProfileID, d.Name, d.PairedAt)
	if err != nil {
		return wrapDBErr("repository.AppRepo.RegisterDevice", err)
	}
	return nil
}

func (r *AppRepo) RevokeDevice(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE device_registry SET revoked_at = datetime('now') WHERE id = ?`, id)
	if err != nil {
		return wrapDBErr("repository.AppRepo.RevokeDevice", err)
	}
	return nil
}

func (r *AppRepo) ListDevices(ctx context.Context, ownerProfileID string) ([]DeviceRegistration, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner_profile_id, name, paired_at, revoked_at FROM device_registry WHERE owner_profile_id = ?`,
		ownerProfileID)
	if err != nil {
		return nil, wrapDBErr("repository.AppRepo.ListDevices", err)
	}
	defer rows.Close()
	var out []DeviceRegistration
	for rows.Next() {
		var d DeviceRegistration
		if err := rows.Scan(&d.ID, &d.OwnerProfileID, &d.Name, &d.PairedAt, &d.RevokedAt); err != nil {
			return nil, fmt.Errorf("repository.AppRepo.ListDevices: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *AppRepo) GrantDeviceAccess(ctx context.Context, g DeviceProfileAccessRow) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO device_profile_access (id, device_id, profile_id, level, granted_at, revoked_at)
		VALUES (?, ?, ?, ?, ?, NULL)`,
		g.ID, g.DeviceID, g.ProfileID, g.Level, g.GrantedAt)
	if err != nil {
		return wrapDBErr("repository.AppRepo.GrantDeviceAccess", err)
	}
	return nil
}

func (r *AppRepo) RevokeDeviceAccess(ctx context.Context, deviceID, profileID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE device_profile_access SET revoked_at = datetime('now') WHERE device_id = ? AND profile_id = ?`,
		deviceID, profileID)
	if err != nil {
		return wrapDBErr("repository.AppRepo.RevokeDeviceAccess", err)
	}
	return nil
}

// DeviceAccessFor implements authz.Store, returning the most recent grant
// row for (deviceID, profileID), or nil if none exists.
func (r *AppRepo) DeviceAccessFor(ctx context.Context, deviceID string, profileID uuid.UUID) (*authz.DeviceAccess, error) {
	var level string
	var revokedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, `
		SELECT level, revoked_at FROM device_profile_access
		WHERE device_id = ? AND profile_id = ? ORDER BY granted_at DESC LIMIT 1`,
		deviceID, profileID.String()).Scan(&level, &revokedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrapDBErr("repository.AppRepo.DeviceAccessFor", err)
	}
	da := &authz.DeviceAccess{DeviceID: deviceID, ProfileID: profileID, Level: level}
	if revokedAt.Valid {
		da.RevokedAt = &revokedAt.Time
	}
	return da, nil
}

func (r *AppRepo) GrantProfileAccess(ctx context.Context, g ProfileAccessGrantRow) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO profile_access_grants (id, granter_profile_id, grantee_profile_id, level, granted_at, revoked_at)
		VALUES (?, ?, ?, ?, ?, NULL)`,
		g.ID, g.GranterProfileID, g.GranteeProfileID, g.Level, g.GrantedAt)
	if err != nil {
		return wrapDBErr("repository.AppRepo.GrantProfileAccess", err)
	}
	return nil
}

func (r *AppRepo) RevokeProfileAccess(ctx context.Context, granter, grantee string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE profile_access_grants SET revoked_at = datetime('now')
		WHERE granter_profile_id = ? AND grantee_profile_id = ?`, granter, grantee)
	if err != nil {
		return wrapDBErr("repository.AppRepo.RevokeProfileAccess", err)
	}
	return nil
}

// GrantFor implements authz.Store, returning the most recent grant from
// granter to grantee, or nil if none exists.
func (r *AppRepo) GrantFor(ctx context.Context, granter, grantee uuid.UUID) (*authz.Grant, error) {
	var level string
	var revokedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, `
		SELECT level, revoked_at FROM profile_access_grants
		WHERE granter_profile_id = ? AND grantee_profile_id = ? ORDER BY granted_at DESC LIMIT 1`,
		granter.String(), grantee.String()).Scan(&level, &revokedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrapDBErr("repository.AppRepo.GrantFor", err)
	}
	g := &authz.Grant{Granter: granter, Grantee: grantee, Level: level}
	if revokedAt.Valid {
		g.RevokedAt = &revokedAt.Time
	}
	return g, nil
}

// PurgeProfileReferences deletes every row in the app database that
// references profileID: its device pairings, device access grants, and
// cross-profile access grants in either direction. Called by cryptographic
// erasure once the profile's own directory is gone, so no dangling
// references to the destroyed profile remain in the unencrypted app DB.
func (r *AppRepo) PurgeProfileReferences(ctx context.Context, profileID string) error {
	stmts := []string{
		`DELETE FROM device_profile_access WHERE profile_id = ?`,
		`DELETE FROM device_registry WHERE owner_profile_id = ?`,
		`DELETE FROM profile_access_grants WHERE granter_profile_id = ? OR grantee_profile_id = ?`,
	}
	args := [][]any{
		{profileID},
		{profileID},
		{profileID, profileID},
	}
	for i, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt, args[i]...); err != nil {
			return wrapDBErr("repository.AppRepo.PurgeProfileReferences", err)
		}
	}
	return nil
}

var _ authz.Store = (*AppRepo)(nil)
