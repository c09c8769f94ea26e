package streamforwarder

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/lib/pq"
)

//go:embed migrations/*
var migrationFiles embed.FS

func forEveryMigration(do func(name string, content []byte) error) error {
	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		return err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		content, err := migrationFiles.ReadFile(fmt.Sprintf("migrations/%s", entry.Name()))
		if err != nil {
			return err
		}
		if err := do(entry.Name(), content); err != nil {
			return err
		}
	}
	return nil
}

func up(db *sql.DB, schema string, idx int, migration string) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint the error is not relevant
	if _, err := tx.Exec(withSchema(migration, schema)); err != nil {
		return err
	}
	if _, err := tx.Exec(fmt.Sprintf("insert into %s.migrations (id) values ($1)", schema), idx); err != nil {
		return err
	}
	return tx.Commit()
}

func getLatestMigration(db *sql.DB, schema string) (int, error) {
	row := db.QueryRow(fmt.Sprintf("select id from %s.migrations order by id desc limit 1", schema))
	var id int
	if err := row.Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return id, nil
}

func installSchema(db *sql.DB, schema string) error {
	_, err := db.Exec(
		fmt.Sprintf(
			`
			create schema if not exists %[1]s;
			create table %[1]s.migrations (
				id int primary key,
				ts timestamptz default now() not null
			);
			`,
			schema,
		),
	)
	return err
}

// migrationIndex parses the numeric prefix of a migration file name, e.g. 000001_create_messages.sql.
func migrationIndex(name string) (int, error) {
	if len(name) < 6 {
		return 0, fmt.Errorf("migration %q has no numeric prefix", name)
	}
	return strconv.Atoi(name[:6])
}

func migrate(db *sql.DB, schema string) error {
	latestMigration, err := getLatestMigration(db, schema)
	if err != nil {
		var pqerr *pq.Error
		if !errors.As(err, &pqerr) || pqerr.Code != "42P01" {
			return err
		}
		// undefined_table: nothing has been installed yet
		if err := installSchema(db, schema); err != nil {
			return err
		}
	}
	return forEveryMigration(func(name string, content []byte) error {
		idx, err := migrationIndex(name)
		if err != nil {
			return err
		}
		if idx <= latestMigration {
			return nil
		}
		return up(db, schema, idx, string(content))
	})
}
