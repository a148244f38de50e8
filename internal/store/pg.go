/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	applog "roibridge/internal/log"

	_ "github.com/jackc/pgx/v5/stdlib"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var pgQueries = queries{
	insertROI:    `INSERT INTO rois(image_id, name) VALUES($1, $2) RETURNING id`,
	updateROI:    `UPDATE rois SET image_id=$1, name=$2 WHERE id=$3`,
	deleteShapes: `DELETE FROM shapes WHERE roi_id=$1`,
	insertShape:  `INSERT INTO shapes(roi_id, ord, payload) VALUES($1, $2, $3)`,
	selectROIs:   `SELECT id, name FROM rois WHERE image_id=$1 ORDER BY id`,
	selectShapes: `SELECT payload FROM shapes WHERE roi_id=$1 ORDER BY ord`,
	deleteROI:    `DELETE FROM rois WHERE id=$1`,
	roiExists:    `SELECT 1 FROM rois WHERE id=$1`,
}

// PostgresStore is the shared server backend.
type PostgresStore struct {
	dbStore
}

// OpenPostgres connects to the server database and applies embedded SQL
// migrations at startup.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	l := applog.WithOperation(applog.WithComponent("store"), "pg_open")
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("postgres dsn is required")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := applyMigrations(ctx, db); err != nil {
		_ = db.Close()
		l.Error("migrate failed", slog.Any("err", err))
		return nil, fmt.Errorf("migrate: %w", err)
	}

	l.Info("roi database ready")
	return &PostgresStore{
		dbStore: dbStore{db: db, q: pgQueries, l: applog.WithComponent("store")},
	}, nil
}

// applyMigrations applies embedded SQL migrations in filename order, tracked
// in schema_migrations.
func applyMigrations(ctx context.Context, db *sql.DB) error {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(strings.ToLower(e.Name()), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version BIGINT PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}

	applied := map[int64]bool{}
	rows, err := db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return fmt.Errorf("select schema_migrations: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			return err
		}
		applied[v] = true
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, fname := range files {
		ver, err := migrationVersion(fname)
		if err != nil {
			return err
		}
		if applied[ver] {
			continue
		}
		b, err := migrationsFS.ReadFile(path.Join("migrations", fname))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", fname, err)
		}
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %s: %w", fname, err)
		}
		if _, err := tx.ExecContext(ctx, string(b)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply migration %s: %w", fname, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations(version, name) VALUES($1, $2)`, ver, fname); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %s: %w", fname, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", fname, err)
		}
	}
	return nil
}

// migrationVersion parses the numeric prefix of a migration filename like
// 0001_init.sql.
func migrationVersion(name string) (int64, error) {
	base := strings.TrimSuffix(name, ".sql")
	idx := strings.IndexByte(base, '_')
	if idx > 0 {
		base = base[:idx]
	}
	v, err := strconv.ParseInt(base, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("migration %s: bad version prefix: %w", name, err)
	}
	return v, nil
}
