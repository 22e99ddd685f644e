package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strings"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// MigrationContent returns the SQL of the first migration whose file name
// ends with name followed by ".sql", e.g. "0001_init.up".
func MigrationContent(name string) ([]byte, error) {
	pattern, err := regexp.Compile(fmt.Sprintf(`^.*%s\.sql$`, regexp.QuoteMeta(name)))
	if err != nil {
		return nil, fmt.Errorf("invalid migration name: %w", err)
	}

	names, err := migrationNames()
	if err != nil {
		return nil, err
	}
	for _, n := range names {
		if pattern.MatchString(n) {
			return migrationFiles.ReadFile("migrations/" + n)
		}
	}
	return nil, fmt.Errorf("migration %q not found", name)
}

// ApplyUp runs every up migration in file name order.
func ApplyUp(ctx context.Context, db *sql.DB) error {
	names, err := migrationNames()
	if err != nil {
		return err
	}
	for _, n := range names {
		if !strings.HasSuffix(n, ".up.sql") {
			continue
		}
		content, err := migrationFiles.ReadFile("migrations/" + n)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", n, err)
		}
		if _, err := db.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", n, err)
		}
	}
	return nil
}

func migrationNames() ([]string, error) {
	entries, err := fs.ReadDir(migrationFiles, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
