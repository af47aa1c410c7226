// Package migrations embeds the SQLite schema and registers it with the
// database package.
package migrations

import (
	"embed"

	"github.com/nerrad567/xcomfort-core/internal/infrastructure/database"
)

//go:embed *.sql
var files embed.FS

func init() {
	database.MigrationsFS = files
	database.MigrationsDir = "."
}
