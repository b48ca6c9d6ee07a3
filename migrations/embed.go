// Package migrations embeds SQL migration files into the binary, so CueGrid
// can migrate its playback history database without the SQL files being
// present on the filesystem.
package migrations

import (
	"embed"

	"github.com/cuegrid/cuegrid-core/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}
