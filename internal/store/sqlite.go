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
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	applog "roibridge/internal/log"
	"roibridge/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

// sqliteSchemaVersion tracks the local SQLite schema. Bump when you perform
// breaking schema changes and add migrations.
const sqliteSchemaVersion = 1

var sqliteQueries = queries{
	insertROI:    `INSERT INTO rois(image_id, name) VALUES(?, ?) RETURNING id`,
	updateROI:    `UPDATE rois SET image_id=?, name=? WHERE id=?`,
	deleteShapes: `DELETE FROM shapes WHERE roi_id=?`,
	insertShape:  `INSERT INTO shapes(roi_id, ord, payload) VALUES(?, ?, ?)`,
	selectROIs:   `SELECT id, name FROM rois WHERE image_id=? ORDER BY id`,
	selectShapes: `SELECT payload FROM shapes WHERE roi_id=? ORDER BY ord`,
	deleteROI:    `DELETE FROM rois WHERE id=?`,
	roiExists:    `SELECT 1 FROM rois WHERE id=?`,
}

// SQLiteStore is the embedded local backend.
type SQLiteStore struct {
	dbStore
	path string
}

// OpenSQLite opens (creating if needed) the embedded ROI database at path,
// enables WAL mode, and ensures the meta/version and ROI tables exist.
func OpenSQLite(path string) (*SQLiteStore, error) {
	l := applog.WithOperation(applog.WithComponent("store"), "sqlite_open").With(
		slog.String("path", path),
	)
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("database path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		l.Error("create db dir failed", slog.Any("err", err))
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Embedded usage: a single connection avoids writer contention.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		l.Error("enable WAL failed", slog.Any("err", err))
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON;"); err != nil {
		l.Warn("enable foreign_keys failed", slog.Any("err", err))
	}

	if err := ensureSQLiteMeta(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure meta/version failed", slog.Any("err", err))
		return nil, err
	}
	if err := ensureSQLiteSchema(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure schema failed", slog.Any("err", err))
		return nil, err
	}

	l.Info("roi database ready")
	return &SQLiteStore{
		dbStore: dbStore{db: db, q: sqliteQueries, l: applog.WithComponent("store")},
		path:    path,
	}, nil
}

// Path returns the database file location.
func (s *SQLiteStore) Path() string { return s.path }

func ensureSQLiteMeta(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	appv := version.String()
	var curSchema int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&curSchema)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, ?, ?, ?, ?)`, sqliteSchemaVersion, appv, now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		if curSchema > sqliteSchemaVersion {
			return fmt.Errorf("database schema %d is newer than supported %d", curSchema, sqliteSchemaVersion)
		}
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, appv, now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

func ensureSQLiteSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS rois (
			id       INTEGER PRIMARY KEY,
			image_id INTEGER NOT NULL,
			name     TEXT    NOT NULL DEFAULT ''
		);`,
		`CREATE INDEX IF NOT EXISTS idx_rois_image ON rois(image_id);`,
		`CREATE TABLE IF NOT EXISTS shapes (
			id      INTEGER PRIMARY KEY,
			roi_id  INTEGER NOT NULL,
			ord     INTEGER NOT NULL,
			payload TEXT    NOT NULL,
			FOREIGN KEY(roi_id) REFERENCES rois(id) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS idx_shapes_roi ON shapes(roi_id, ord);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
