package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shami987/kigali-bn/pkg/migrate"
)

func TestDistributionsMigrationContainsActiveIndex(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_distributions.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no distributions migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS distributions",
		"CREATE UNIQUE INDEX IF NOT EXISTS distributions_active_device_idx",
		"WHERE status = 'active'",
		"CHECK (status IN ('active', 'returned'))",
		"DROP TABLE IF EXISTS distributions",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestValidateMigrationsDir(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations dir: %v", err)
	}
}
