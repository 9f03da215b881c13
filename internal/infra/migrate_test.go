package infra

import (
	"strings"
	"testing"
)

func TestMigrationFilesAreOrdered(t *testing.T) {
	files, err := migrationFiles()
	if err != nil {
		t.Fatalf("list migrations: %v", err)
	}
	if len(files) == 0 {
		t.Fatal("expected embedded migrations")
	}
	for i := 1; i < len(files); i++ {
		if files[i-1] >= files[i] {
			t.Fatalf("migrations out of order: %v", files)
		}
	}
	for _, f := range files {
		if !strings.HasSuffix(f, ".sql") {
			t.Fatalf("unexpected migration file %s", f)
		}
	}
}
