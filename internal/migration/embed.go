package migration

import (
	"embed"
	"io/fs"
)

const migrationsDir = "migrations"

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// EmbeddedMigrations exposes the migration files.
func EmbeddedMigrations() fs.FS {
	return embeddedMigrations
}
