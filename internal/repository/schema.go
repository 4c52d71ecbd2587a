package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// profileSchema creates every table spec.md §3 lists for the per-profile
// encrypted database. Every clinical entity FKs to documents(id); deleting
// a document cascades.
var profileSchema = []string{
	`PRAGMA foreign_keys = ON;`,
	`CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		doc_type TEXT NOT NULL,
		title TEXT NOT NULL,
		document_date TEXT,
		ingestion_date TEXT NOT NULL,
		professional_id TEXT,
		source_file TEXT NOT NULL,
		markdown_file TEXT,
		ocr_confidence REAL,
		verified INTEGER NOT NULL DEFAULT 0,
		perceptual_hash TEXT,
		pipeline_status TEXT NOT NULL DEFAULT 'pending'
	);`,
	`CREATE TABLE IF NOT EXISTS professionals (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		specialty TEXT,
		phone TEXT,
		created_at TEXT NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS medications (
		id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
		generic_name TEXT NOT NULL,
		brand_name TEXT,
		dose TEXT,
		frequency TEXT,
		route TEXT,
		prescriber_id TEXT,
		status TEXT NOT NULL DEFAULT 'active',
		start_date TEXT,
		end_date TEXT,
		created_at TEXT NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS compound_ingredients (
		id TEXT PRIMARY KEY,
		medication_id TEXT NOT NULL REFERENCES medications(id) ON DELETE CASCADE,
		ingredient_name TEXT NOT NULL,
		dose TEXT
	);`,
	`CREATE TABLE IF NOT EXISTS tapering_steps (
		id TEXT PRIMARY KEY,
		medication_id TEXT NOT NULL REFERENCES medications(id) ON DELETE CASCADE,
		step_order INTEGER NOT NULL,
		dose TEXT NOT NULL,
		start_date TEXT,
		end_date TEXT
	);`,
	`CREATE TABLE IF NOT EXISTS medication_instructions (
		id TEXT PRIMARY KEY,
		medication_id TEXT NOT NULL REFERENCES medications(id) ON DELETE CASCADE,
		instruction TEXT NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS dose_changes (
		id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
		medication_id TEXT NOT NULL REFERENCES medications(id) ON DELETE CASCADE,
		old_dose TEXT,
		new_dose TEXT,
		reason TEXT,
		changed_at TEXT NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS lab_results (
		id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
		test_name TEXT NOT NULL,
		value REAL,
		value_text TEXT,
		unit TEXT,
		reference_range_low REAL,
		reference_range_high REAL,
		abnormal_flag TEXT NOT NULL DEFAULT 'normal',
		collection_date TEXT,
		lab_facility TEXT,
		ordering_physician_id TEXT
	);`,
	`CREATE TABLE IF NOT EXISTS diagnoses (
		id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		icd_code TEXT,
		status TEXT NOT NULL DEFAULT 'active',
		diagnosed_date TEXT
	);`,
	`CREATE TABLE IF NOT EXISTS allergies (
		id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
		allergen TEXT NOT NULL,
		reaction TEXT,
		severity TEXT
	);`,
	`CREATE TABLE IF NOT EXISTS procedures (
		id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		performed_date TEXT,
		performed_by TEXT
	);`,
	`CREATE TABLE IF NOT EXISTS referrals (
		id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
		to_specialty TEXT,
		to_professional_id TEXT,
		reason TEXT,
		referred_date TEXT
	);`,
	`CREATE TABLE IF NOT EXISTS symptoms (
		id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
		description TEXT NOT NULL,
		onset_date TEXT,
		resolved_date TEXT
	);`,
	`CREATE TABLE IF NOT EXISTS appointments (
		id TEXT PRIMARY KEY,
		document_id TEXT REFERENCES documents(id) ON DELETE CASCADE,
		professional_id TEXT,
		scheduled_at TEXT NOT NULL,
		reason TEXT,
		status TEXT NOT NULL DEFAULT 'scheduled'
	);`,
	`CREATE TABLE IF NOT EXISTS vital_signs (
		id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
		kind TEXT NOT NULL,
		value REAL,
		unit TEXT,
		measured_at TEXT
	);`,
	`CREATE TABLE IF NOT EXISTS conversations (
		id TEXT PRIMARY KEY,
		title TEXT,
		created_at TEXT NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		citations TEXT,
		confidence REAL,
		created_at TEXT NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS chunks (
		chunk_id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
		content TEXT NOT NULL,
		embedding BLOB NOT NULL,
		doc_type TEXT,
		doc_date TEXT,
		professional_name TEXT
	);`,
	`CREATE TABLE IF NOT EXISTS coherence_alerts (
		id TEXT PRIMARY KEY,
		document_id TEXT,
		alert_type TEXT NOT NULL,
		severity TEXT NOT NULL,
		entity_ids TEXT NOT NULL,
		natural_key TEXT NOT NULL UNIQUE,
		patient_message TEXT NOT NULL,
		detected_at TEXT NOT NULL,
		dismissed INTEGER NOT NULL DEFAULT 0,
		dismissed_by TEXT,
		two_step_confirmed INTEGER NOT NULL DEFAULT 0
	);`,
	`CREATE TABLE IF NOT EXISTS dismissed_alerts (
		id TEXT PRIMARY KEY,
		alert_id TEXT NOT NULL REFERENCES coherence_alerts(id) ON DELETE CASCADE,
		natural_key TEXT NOT NULL,
		reason TEXT,
		dismissed_at TEXT NOT NULL,
		two_step_confirmed INTEGER NOT NULL DEFAULT 0
	);`,
	`CREATE TABLE IF NOT EXISTS extraction_batches (
		id TEXT PRIMARY KEY,
		conversation_id TEXT,
		status TEXT NOT NULL DEFAULT 'pending',
		created_at TEXT NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS extraction_pending (
		id TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL,
		batch_id TEXT NOT NULL,
		domain TEXT NOT NULL,
		extracted_data TEXT NOT NULL,
		confidence REAL NOT NULL,
		grounding TEXT NOT NULL,
		duplicate_of TEXT,
		source_message_ids TEXT,
		status TEXT NOT NULL DEFAULT 'pending',
		created_at TEXT NOT NULL,
		reviewed_at TEXT
	);`,
	`CREATE TABLE IF NOT EXISTS profile_trust (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		dose_reference_version TEXT,
		last_erasure_check TEXT
	);`,
	`CREATE TABLE IF NOT EXISTS dose_references (
		generic_name TEXT PRIMARY KEY,
		typical_min_mg REAL,
		typical_max_mg REAL,
		absolute_max_mg REAL,
		unit TEXT,
		source TEXT
	);`,
	`CREATE TABLE IF NOT EXISTS user_preferences (
		key TEXT PRIMARY KEY,
		value TEXT
	);`,
	`CREATE TABLE IF NOT EXISTS model_preferences (
		category TEXT PRIMARY KEY,
		model_name TEXT NOT NULL,
		disabled INTEGER NOT NULL DEFAULT 0
	);`,
	`CREATE TABLE IF NOT EXISTS local_ca (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		cert_der BLOB NOT NULL,
		key_encrypted BLOB NOT NULL,
		fingerprint TEXT NOT NULL,
		created_at TEXT NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_medications_document ON medications(document_id);`,
	`CREATE INDEX IF NOT EXISTS idx_lab_results_document ON lab_results(document_id);`,
	`CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks(document_id);`,
	`CREATE INDEX IF NOT EXISTS idx_alerts_natural_key ON coherence_alerts(natural_key);`,
}

func (d *DB) migrate(ctx context.Context) error {
	for _, stmt := range profileSchema {
		if _, err := d.SQL.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("repository.migrate: %w", err)
		}
	}
	return nil
}

// appSchema creates the global, unencrypted app database: cross-profile
// device pairing and access grants (spec.md §3).
var appSchema = []string{
	`CREATE TABLE IF NOT EXISTS device_registry (
		id TEXT PRIMARY KEY,
		owner_profile_id TEXT NOT NULL,
		name TEXT,
		paired_at TEXT NOT NULL,
		revoked_at TEXT
	);`,
	`CREATE TABLE IF NOT EXISTS device_profile_access (
		id TEXT PRIMARY KEY,
		device_id TEXT NOT NULL,
		profile_id TEXT NOT NULL,
		level TEXT NOT NULL,
		granted_at TEXT NOT NULL,
		revoked_at TEXT
	);`,
	`CREATE TABLE IF NOT EXISTS profile_access_grants (
		id TEXT PRIMARY KEY,
		granter_profile_id TEXT NOT NULL,
		grantee_profile_id TEXT NOT NULL,
		level TEXT NOT NULL,
		granted_at TEXT NOT NULL,
		revoked_at TEXT
	);`,
	`CREATE INDEX IF NOT EXISTS idx_device_access_device ON device_profile_access(device_id, profile_id);`,
	`CREATE INDEX IF NOT EXISTS idx_grants_pair ON profile_access_grants(granter_profile_id, grantee_profile_id);`,
}

func migrateAppDB(ctx context.Context, db *sql.DB) error {
	for _, stmt := range appSchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("repository.migrateAppDB: %w", err)
		}
	}
	return nil
}
