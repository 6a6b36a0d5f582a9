package migrations

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/nerrad567/inels-core/internal/infrastructure/config"
	"github.com/nerrad567/inels-core/internal/infrastructure/database"
)

func TestEmbeddedMigrationsApply(t *testing.T) {
	ctx := context.Background()
	db, err := database.Open(ctx, config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "inels.db"), WALMode: true, BusyTimeout: 5})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close() //nolint:errcheck // test cleanup

	if err := db.Migrate(ctx, FS); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if _, err := db.ExecContext(ctx, "SELECT address_key, name, node_id, device_id, device_type FROM devices"); err != nil {
		t.Errorf("devices table not usable: %v", err)
	}
	if err := db.MigrateDown(ctx, FS); err != nil {
		t.Errorf("MigrateDown() error = %v", err)
	}
}
