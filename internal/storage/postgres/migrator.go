package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"
)

//go:embed sql/migrations/*.sql
var migrationsFS embed.FS

const (
	migrationsDir = "sql/migrations"
	// Ключ advisory-lock, чтобы миграции не гонялись между репликами сервиса.
	migrationLockKey = int64(52061409)

	migrationJournalDDL = `
CREATE TABLE IF NOT EXISTS schema_migrations (
    version BIGINT PRIMARY KEY,
    name TEXT NOT NULL,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`
)

// migrationScript — пара up/down SQL одной версии схемы.
type migrationScript struct {
	Version int64
	Name    string
	Up      string
	Down    string
}

// MigrateUp применяет up-миграции.
// steps=0 означает "применить все доступные".
func (s *Store) MigrateUp(ctx context.Context, steps int) error {
	return s.withMigrationLock(ctx, func(conn *sql.Conn, scripts []migrationScript) error {
		applied, err := appliedVersions(ctx, conn)
		if err != nil {
			return err
		}

		done := 0
		for _, script := range scripts {
			if applied[script.Version] {
				continue
			}
			if err := runScriptTx(ctx, conn, script, true); err != nil {
				return err
			}
			done++
			if steps > 0 && done >= steps {
				break
			}
		}
		return nil
	})
}

// MigrateDown откатывает миграции.
// steps<=0 интерпретируется как 1 шаг для безопасного поведения.
func (s *Store) MigrateDown(ctx context.Context, steps int) error {
	if steps <= 0 {
		steps = 1
	}
	return s.withMigrationLock(ctx, func(conn *sql.Conn, scripts []migrationScript) error {
		byVersion := make(map[int64]migrationScript, len(scripts))
		for _, script := range scripts {
			byVersion[script.Version] = script
		}

		targets, err := rollbackTargets(ctx, conn, steps)
		if err != nil {
			return err
		}
		for _, version := range targets {
			script, ok := byVersion[version]
			if !ok {
				return fmt.Errorf("cannot rollback unknown migration version %d", version)
			}
			if err := runScriptTx(ctx, conn, script, false); err != nil {
				return err
			}
		}
		return nil
	})
}

// MigrationStatus возвращает текущую версию и количество применённых миграций.
func (s *Store) MigrationStatus(ctx context.Context) (int64, int, error) {
	if s == nil || s.db == nil {
		return 0, 0, fmt.Errorf("postgres store is not initialized")
	}

	queryCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := s.db.ExecContext(queryCtx, migrationJournalDDL); err != nil {
		return 0, 0, fmt.Errorf("ensure migration journal: %w", err)
	}

	var (
		version int64
		count   int
	)
	err := s.db.QueryRowContext(queryCtx,
		`SELECT COALESCE(MAX(version), 0), COUNT(*) FROM schema_migrations`,
	).Scan(&version, &count)
	if err != nil {
		return 0, 0, fmt.Errorf("query migration status: %w", err)
	}

	return version, count, nil
}

// withMigrationLock загружает скрипты, берёт advisory lock на выделенном
// соединении и выполняет fn. Журнал миграций создаётся до вызова fn.
func (s *Store) withMigrationLock(ctx context.Context, fn func(*sql.Conn, []migrationScript) error) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("postgres store is not initialized")
	}

	scripts, err := loadMigrations(migrationsFS)
	if err != nil {
		return err
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire db connection: %w", err)
	}
	defer conn.Close()

	lockCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := conn.ExecContext(lockCtx, "SELECT pg_advisory_lock($1)", migrationLockKey); err != nil {
		return fmt.Errorf("acquire migration lock: %w", err)
	}
	defer func() {
		_, _ = conn.ExecContext(context.Background(), "SELECT pg_advisory_unlock($1)", migrationLockKey)
	}()

	if _, err := conn.ExecContext(ctx, migrationJournalDDL); err != nil {
		return fmt.Errorf("ensure migration journal: %w", err)
	}

	return fn(conn, scripts)
}

// runScriptTx выполняет одну миграцию и правку журнала в общей транзакции.
func runScriptTx(ctx context.Context, conn *sql.Conn, script migrationScript, up bool) error {
	direction := "down"
	body := script.Down
	journal := `DELETE FROM schema_migrations WHERE version = $1`
	journalArgs := []interface{}{script.Version}
	if up {
		direction = "up"
		body = script.Up
		journal = `INSERT INTO schema_migrations (version, name, applied_at) VALUES ($1, $2, NOW())`
		journalArgs = []interface{}{script.Version, script.Name}
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s migration %d_%s: %w", direction, script.Version, script.Name, err)
	}
	if _, err := tx.ExecContext(ctx, body); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("execute %s migration %d_%s: %w", direction, script.Version, script.Name, err)
	}
	if _, err := tx.ExecContext(ctx, journal, journalArgs...); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("journal %s migration %d_%s: %w", direction, script.Version, script.Name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s migration %d_%s: %w", direction, script.Version, script.Name, err)
	}
	return nil
}

func appliedVersions(ctx context.Context, conn *sql.Conn) (map[int64]bool, error) {
	rows, err := conn.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int64]bool)
	for rows.Next() {
		var version int64
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("scan applied migration version: %w", err)
		}
		applied[version] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applied migrations: %w", err)
	}
	return applied, nil
}

// rollbackTargets возвращает до limit последних применённых версий,
// от новых к старым.
func rollbackTargets(ctx context.Context, conn *sql.Conn, limit int) ([]int64, error) {
	rows, err := conn.QueryContext(ctx,
		`SELECT version FROM schema_migrations ORDER BY version DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query rollback targets: %w", err)
	}
	defer rows.Close()

	versions := make([]int64, 0, limit)
	for rows.Next() {
		var version int64
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("scan rollback target: %w", err)
		}
		versions = append(versions, version)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rollback targets: %w", err)
	}
	return versions, nil
}

// parseMigrationFilename разбирает имя вида 0001_init.up.sql.
func parseMigrationFilename(base string) (version int64, name string, up bool, err error) {
	rest, ok := strings.CutSuffix(base, ".sql")
	if !ok {
		return 0, "", false, fmt.Errorf("invalid migration file name: %s", base)
	}
	if trimmed, cut := strings.CutSuffix(rest, ".up"); cut {
		rest, up = trimmed, true
	} else if trimmed, cut := strings.CutSuffix(rest, ".down"); cut {
		rest, up = trimmed, false
	} else {
		return 0, "", false, fmt.Errorf("migration file %s must end with .up.sql or .down.sql", base)
	}

	versionPart, namePart, ok := strings.Cut(rest, "_")
	if !ok || versionPart == "" || namePart == "" {
		return 0, "", false, fmt.Errorf("invalid migration file name: %s", base)
	}
	version, err = strconv.ParseInt(versionPart, 10, 64)
	if err != nil {
		return 0, "", false, fmt.Errorf("parse migration version from %s: %w", base, err)
	}
	return version, namePart, up, nil
}

// loadMigrations читает пары up/down из fsys и возвращает их по
// возрастанию версии. Неполная пара или пустой файл — ошибка.
func loadMigrations(fsys fs.FS) ([]migrationScript, error) {
	files, err := fs.Glob(fsys, path.Join(migrationsDir, "*.sql"))
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	if len(files) == 0 {
		return nil, errors.New("no migration files found")
	}

	scripts := make(map[int64]*migrationScript)
	for _, file := range files {
		base := path.Base(file)
		version, name, up, err := parseMigrationFilename(base)
		if err != nil {
			return nil, err
		}

		raw, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, fmt.Errorf("read migration file %s: %w", file, err)
		}
		body := strings.TrimSpace(string(raw))
		if body == "" {
			return nil, fmt.Errorf("migration file is empty: %s", base)
		}

		script, ok := scripts[version]
		if !ok {
			script = &migrationScript{Version: version, Name: name}
			scripts[version] = script
		} else if script.Name != name {
			return nil, fmt.Errorf("migration name mismatch for version %d: %s vs %s", version, script.Name, name)
		}

		if up {
			if script.Up != "" {
				return nil, fmt.Errorf("duplicate up migration for version %d", version)
			}
			script.Up = body
		} else {
			if script.Down != "" {
				return nil, fmt.Errorf("duplicate down migration for version %d", version)
			}
			script.Down = body
		}
	}

	ordered := make([]migrationScript, 0, len(scripts))
	for _, script := range scripts {
		if script.Up == "" || script.Down == "" {
			return nil, fmt.Errorf("migration %d_%s must have both up and down files", script.Version, script.Name)
		}
		ordered = append(ordered, *script)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Version < ordered[j].Version })

	return ordered, nil
}
