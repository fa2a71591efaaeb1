package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"path"
	"regexp"
	"slices"
	"strconv"
)

//go:embed migrations/*.sql
var migrationsDir embed.FS

var migrationName = regexp.MustCompile(`^(\d+)[-_].*\.sql$`)

type migration struct {
	version int
	file    string
}

func migrations() ([]migration, error) {
	entries, err := migrationsDir.ReadDir("migrations")
	if err != nil {
		return nil, fmt.Errorf("read migrations directory: %w", err)
	}

	var list []migration
	for _, e := range entries {
		m := migrationName.FindStringSubmatch(e.Name())
		if e.IsDir() || m == nil {
			continue
		}
		v, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, fmt.Errorf("parse version from migration file %s: %w", e.Name(), err)
		}
		list = append(list, migration{version: v, file: e.Name()})
	}

	slices.SortFunc(list, func(a, b migration) int { return a.version - b.version })
	return list, nil
}

// migrate applies every embedded migration newer than PRAGMA user_version,
// one transaction per file.
func migrate(ctx context.Context, db *sql.DB) error {
	var currVer int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currVer); err != nil {
		return fmt.Errorf("get current version: %w", err)
	}

	list, err := migrations()
	if err != nil {
		return err
	}

	for _, m := range list {
		if m.version <= currVer {
			continue
		}
		if err := apply(ctx, db, m); err != nil {
			return err
		}
	}

	return nil
}

func apply(ctx context.Context, db *sql.DB, m migration) error {
	data, err := migrationsDir.ReadFile(path.Join("migrations", m.file))
	if err != nil {
		return fmt.Errorf("read migration file %s: %w", m.file, err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("start transaction for migration %d: %w", m.version, err)
	}

	if _, err = tx.ExecContext(ctx, string(data)); err != nil {
		return errors.Join(fmt.Errorf("apply migration %d: %w", m.version, err), tx.Rollback())
	}

	// PRAGMA does not take bind parameters
	if _, err = tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d;", m.version)); err != nil {
		return errors.Join(fmt.Errorf("update database version for migration %d: %w", m.version, err), tx.Rollback())
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %d: %w", m.version, err)
	}
	return nil
}
