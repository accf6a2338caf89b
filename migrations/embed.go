// Package migrations holds the SQL schema for the settings and task list
// tables. Importing it for side effects registers the files with the
// database package.
package migrations

import (
	"embed"

	"github.com/nerrad567/maa-core/internal/infrastructure/database"
)

//go:embed *.sql
var files embed.FS

func init() {
	database.MigrationsFS = files
	database.MigrationsDir = "."
}
