package store

import (
	"database/sql"
	_ "embed"
	"fmt"
)

// schemaVersion increments whenever schema.sql changes shape. There is no
// migration path; a mismatch asks the user to clear the database.
const schemaVersion = 1

//go:embed schema.sql
var schemaSQL string

func initializeSchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	var current sql.NullInt64
	err := db.QueryRow(`SELECT version FROM schema_version WHERE id = 1`).Scan(&current)
	switch {
	case err == sql.ErrNoRows:
		if _, err := db.Exec(`INSERT INTO schema_version (id, version) VALUES (1, ?)`, schemaVersion); err != nil {
			return fmt.Errorf("record schema version: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("read schema version: %w", err)
	}

	if current.Int64 != schemaVersion {
		return fmt.Errorf("database schema version %d does not match expected %d; clear the data directory and retry", current.Int64, schemaVersion)
	}
	return nil
}
