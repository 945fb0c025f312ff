package migrations

import (
	"database/sql"
	"fmt"
)

// MigrateInfoDirColumn adds the info_dir column recording, for a revision
// committed with branch metadata stored as sibling files on disk rather
// than embedded in the revision row, the directory that metadata lives
// in.
func MigrateInfoDirColumn(db *sql.DB) error {
	var colName string
	err := db.QueryRow(`
		SELECT name FROM pragma_table_info('revisions')
		WHERE name = 'info_dir'
	`).Scan(&colName)

	if err == sql.ErrNoRows {
		if _, err := db.Exec(`ALTER TABLE revisions ADD COLUMN info_dir TEXT NOT NULL DEFAULT ''`); err != nil {
			return fmt.Errorf("failed to add info_dir column: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to check info_dir column: %w", err)
	}
	return nil
}
