// Package database provides SQLite connectivity for maa-core.
//
// It backs the persisted settings store (library path and other UI keys) and
// the per-device task list repository.
//
// This package manages:
//   - Database connection with WAL mode
//   - Schema migrations loaded from an fs.FS (embedded by the migrations package)
//   - Connection lifecycle and health checks
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
package database
