package status

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

// PostgresPersister stores the status document as a single JSONB row, for
// deployments where hosts share a database instead of a disk. The document
// is still replaced whole on every save.
type PostgresPersister struct {
	db *sql.DB
}

// NewPostgresPersister creates a Postgres-backed persister and ensures the
// backing table exists.
func NewPostgresPersister(db *sql.DB) (*PostgresPersister, error) {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS automation_status (
			id SMALLINT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
			payload JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	if err != nil {
		return nil, fmt.Errorf("ensuring automation_status table: %w", err)
	}
	return &PostgresPersister{db: db}, nil
}

// Load reads the status row. found is false on first boot.
func (p *PostgresPersister) Load() (*AutomationStatus, bool, error) {
	var payload []byte
	err := p.db.QueryRow(`SELECT payload FROM automation_status WHERE id = 1`).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("loading status row: %w", err)
	}

	var st AutomationStatus
	if err := json.Unmarshal(payload, &st); err != nil {
		return nil, false, fmt.Errorf("parsing status payload: %w", err)
	}
	return &st, true, nil
}

// Save upserts the status row.
func (p *PostgresPersister) Save(st *AutomationStatus) error {
	payload, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encoding status: %w", err)
	}

	_, err = p.db.Exec(`
		INSERT INTO automation_status (id, payload, updated_at)
		VALUES (1, $1, NOW())
		ON CONFLICT (id) DO UPDATE SET payload = EXCLUDED.payload, updated_at = NOW()`,
		payload)
	if err != nil {
		return fmt.Errorf("saving status row: %w", err)
	}
	return nil
}

// RawFields exposes the top-level keys of the stored payload for schema
// backfill detection.
func (p *PostgresPersister) RawFields() (map[string]json.RawMessage, error) {
	var payload []byte
	if err := p.db.QueryRow(`SELECT payload FROM automation_status WHERE id = 1`).Scan(&payload); err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}
