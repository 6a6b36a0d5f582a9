// Package database opens the SQLite file that holds the device inventory.
//
// It manages:
//   - Connection with WAL mode and a busy timeout
//   - Versioned schema migrations read from an fs.FS (see package migrations)
//   - A single-connection pool matching SQLite's single writer
//
// Only device definitions live here; device status is never persisted.
//
// Usage:
//
//	db, err := database.Open(ctx, cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
package database
