package reposqlite

import (
	"database/sql"
	"fmt"

	"github.com/untoldecay/elembranch/internal/reposqlite/migrations"
)

// Migration is a single named, idempotent schema change applied during
// initialization.
type Migration struct {
	Name string
	Func func(*sql.DB) error
}

var migrationsList = []Migration{
	{"info_dir_column", migrations.MigrateInfoDirColumn},
}

func runMigrations(db *sql.DB) error {
	for _, m := range migrationsList {
		if err := m.Func(db); err != nil {
			return fmt.Errorf("migration %q: %w", m.Name, err)
		}
	}
	return nil
}
