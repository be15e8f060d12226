package store

import (
	"context"
	"database/sql"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"medibilling/portal/internal/content"
)

var contentTables = []string{TableServices, TableTeams, TableJobs, TableProfiles}

func TestMigrationsRoundTripPostgres(t *testing.T) {
	dsn := strings.TrimSpace(os.Getenv("PORTAL_TEST_DATABASE_URL"))
	if dsn == "" {
		t.Skip("PORTAL_TEST_DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := Open(ctx, dsn)
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	defer db.Close()

	if err := resetPublicSchema(ctx, db); err != nil {
		t.Fatalf("reset schema: %v", err)
	}
	migrationsDir := filepath.Join("..", "..", "db", "migrations")

	if err := ApplyMigrations(ctx, db, migrationsDir); err != nil {
		t.Fatalf("up (pass 1): %v", err)
	}
	assertTables(t, ctx, db, true)

	if err := applyDownMigrations(ctx, db, os.DirFS(migrationsDir)); err != nil {
		t.Fatalf("down: %v", err)
	}
	assertTables(t, ctx, db, false)

	if _, err := db.ExecContext(ctx, `DELETE FROM schema_migrations`); err != nil {
		t.Fatalf("clear schema_migrations: %v", err)
	}
	if err := ApplyMigrations(ctx, db, migrationsDir); err != nil {
		t.Fatalf("up (pass 2): %v", err)
	}
	assertTables(t, ctx, db, true)

	// The recreated tables must accept rows through the store.
	store := NewPostgresStore(db, nil)
	job, err := store.UpsertJob(ctx, content.Job{
		Title:       "Billing Specialist",
		Department:  "Revenue",
		Type:        "Full-time",
		Location:    "Remote",
		Description: "d",
	})
	if err != nil {
		t.Fatalf("upsert job after pass 2: %v", err)
	}
	jobs, err := store.ListJobs(ctx)
	if err != nil || len(jobs) != 1 || jobs[0].ID != job.ID {
		t.Fatalf("unexpected jobs after pass 2: %+v err=%v", jobs, err)
	}
}

func assertTables(t *testing.T, ctx context.Context, db *sql.DB, want bool) {
	t.Helper()
	for _, table := range contentTables {
		var exists bool
		err := db.QueryRowContext(ctx, `SELECT to_regclass('public.' || $1) IS NOT NULL`, table).Scan(&exists)
		if err != nil {
			t.Fatalf("lookup table %s: %v", table, err)
		}
		if exists != want {
			t.Fatalf("table %s: exists=%v, want %v", table, exists, want)
		}
	}
}

func resetPublicSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `DROP SCHEMA IF EXISTS public CASCADE; CREATE SCHEMA public;`)
	return err
}

// applyDownMigrations runs every *.down.sql file, newest version first.
func applyDownMigrations(ctx context.Context, db *sql.DB, fsys fs.FS) error {
	files, err := fs.Glob(fsys, "*.down.sql")
	if err != nil {
		return err
	}
	sort.Sort(sort.Reverse(sort.StringSlice(files)))

	for _, name := range files {
		body, err := fs.ReadFile(fsys, name)
		if err != nil {
			return err
		}
		stmt := strings.TrimSpace(string(body))
		if stmt == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
