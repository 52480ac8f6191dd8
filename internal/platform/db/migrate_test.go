package db

import (
	"os"
	"path/filepath"
	"testing"
)

func writeMigration(t *testing.T, dir, name, sql string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(sql), 0o644); err != nil {
		t.Fatalf("write migration file: %v", err)
	}
}

func TestLoadMigrations_SortedByVersion(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "002_users.sql", "CREATE TABLE users ()")
	writeMigration(t, dir, "001_core.sql", "CREATE TABLE hospital ()")
	writeMigration(t, dir, "010_cases.sql", "CREATE TABLE medical_case ()")

	m := NewMigrator(nil, dir)
	migrations, err := m.LoadMigrations()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(migrations) != 3 {
		t.Fatalf("expected 3 migrations, got %d", len(migrations))
	}

	want := []int{1, 2, 10}
	for i, mig := range migrations {
		if mig.Version != want[i] {
			t.Errorf("position %d: expected version %d, got %d", i, want[i], mig.Version)
		}
	}
}

func TestLoadMigrations_SkipsNonNumericAndNonSQL(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "001_core.sql", "CREATE TABLE hospital ()")
	writeMigration(t, dir, "README.md", "notes")
	writeMigration(t, dir, "notes_about.sql", "not a migration")

	m := NewMigrator(nil, dir)
	migrations, err := m.LoadMigrations()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(migrations) != 1 {
		t.Fatalf("expected 1 migration, got %d", len(migrations))
	}
	if migrations[0].Name != "001_core.sql" {
		t.Errorf("expected 001_core.sql, got %s", migrations[0].Name)
	}
}

func TestLoadMigrations_MissingDir(t *testing.T) {
	m := NewMigrator(nil, "/nonexistent/migrations")
	if _, err := m.LoadMigrations(); err == nil {
		t.Fatal("expected error for missing directory")
	}
}
