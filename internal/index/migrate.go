package index

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iromo/iromo/internal/topic"
)

//go:embed migrations/*.sql
var builtinMigrations embed.FS

// Migration is a named SQL script applied at most once per database.
type Migration struct {
	Name string
	SQL  string
}

// AppliedMigration is a row of the schema_migrations ledger.
type AppliedMigration struct {
	Version   string    `json:"version"`
	AppliedAt time.Time `json:"applied_at"`
}

const ledgerDDL = `CREATE TABLE IF NOT EXISTS schema_migrations (
    version TEXT PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
)`

// Migrations returns the scripts shipped with the binary, in apply order.
func Migrations() ([]Migration, error) {
	return LoadMigrations(builtinMigrations, "migrations")
}

// LoadMigrations reads every *.sql file in dir of fsys, ordered by name.
func LoadMigrations(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("reading migrations: %w", err)
	}

	var migrations []Migration
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		data, err := fs.ReadFile(fsys, path.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading migration %s: %w", e.Name(), err)
		}
		migrations = append(migrations, Migration{Name: e.Name(), SQL: string(data)})
	}

	SortMigrations(migrations)
	return migrations, nil
}

// SortMigrations orders scripts by their numeric prefix, falling back to
// lexical order, so "10_x.sql" runs after "9_y.sql".
func SortMigrations(migrations []Migration) {
	sort.SliceStable(migrations, func(i, j int) bool {
		return migrationLess(migrations[i].Name, migrations[j].Name)
	})
}

func migrationLess(a, b string) bool {
	na, okA := numericPrefix(a)
	nb, okB := numericPrefix(b)
	if okA && okB && na != nb {
		return na < nb
	}
	return a < b
}

func numericPrefix(name string) (int, bool) {
	end := 0
	for end < len(name) && name[end] >= '0' && name[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(name[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

// ApplyMigrations runs every script not yet recorded in schema_migrations.
// Each script and its ledger row commit in one transaction. The first failing
// script is rolled back and reported with ErrMigration; scripts after it are
// not attempted, so the next call retries from the failed one.
// Returns the names applied by this call.
func (d *DB) ApplyMigrations(migrations []Migration, log *zap.Logger) ([]string, error) {
	if log == nil {
		log = zap.NewNop()
	}

	if _, err := d.db.Exec(ledgerDDL); err != nil {
		return nil, topic.Errorf(topic.ErrMigration, "creating schema_migrations: %v", err)
	}

	applied, err := d.appliedSet()
	if err != nil {
		return nil, topic.Errorf(topic.ErrMigration, "reading schema_migrations: %v", err)
	}

	ordered := append([]Migration(nil), migrations...)
	SortMigrations(ordered)

	var done []string
	for _, m := range ordered {
		if applied[m.Name] {
			continue
		}

		log.Info("applying migration", zap.String("version", m.Name))
		if err := d.applyOne(m); err != nil {
			log.Error("migration failed", zap.String("version", m.Name), zap.Error(err))
			return done, topic.Errorf(topic.ErrMigration, "applying %s: %v", m.Name, err)
		}
		done = append(done, m.Name)
	}

	return done, nil
}

func (d *DB) applyOne(m Migration) error {
	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.Exec(m.SQL); err != nil {
		return err
	}
	if _, err := tx.Exec(
		`INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)`,
		m.Name, formatTime(time.Now()),
	); err != nil {
		return fmt.Errorf("recording version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

func (d *DB) appliedSet() (map[string]bool, error) {
	rows, err := d.db.Query(`SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	set := make(map[string]bool)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		set[v] = true
	}
	return set, rows.Err()
}

// AppliedMigrations returns the ledger in apply order.
func (d *DB) AppliedMigrations() ([]AppliedMigration, error) {
	rows, err := d.db.Query(`SELECT version, applied_at FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("querying schema_migrations: %w", err)
	}
	defer rows.Close()

	var out []AppliedMigration
	for rows.Next() {
		var m AppliedMigration
		var at string
		if err := rows.Scan(&m.Version, &at); err != nil {
			return nil, err
		}
		if m.AppliedAt, err = parseTime(at); err != nil {
			return nil, fmt.Errorf("parsing applied_at for %s: %w", m.Version, err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(i, j int) bool {
		return migrationLess(out[i].Version, out[j].Version)
	})
	return out, nil
}

// SchemaVersion returns the name of the latest applied migration, or "".
func (d *DB) SchemaVersion() (string, error) {
	applied, err := d.AppliedMigrations()
	if err != nil {
		return "", err
	}
	if len(applied) == 0 {
		return "", nil
	}
	return applied[len(applied)-1].Version, nil
}
