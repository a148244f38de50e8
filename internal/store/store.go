/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package store persists ROI aggregates. Two backends exist: an embedded
// SQLite database for local work and PostgreSQL for a shared server. Both
// speak through database/sql and store shape geometry as the same JSON
// payload the document format uses, so the two stay interchangeable.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"roibridge/internal/roi"
	"roibridge/internal/roidoc"
)

// ErrNotFound marks a lookup for an id the store does not hold.
var ErrNotFound = errors.New("roi not found")

// ErrEmptyROI marks an attempt to persist an ROI with no shapes.
var ErrEmptyROI = errors.New("roi has no shapes")

// Store is the persistence surface for ROI aggregates.
type Store interface {
	// SaveROIs inserts new aggregates and rewrites already-saved ones.
	// On success every ROI carries its server id and reports itself saved.
	SaveROIs(ctx context.Context, rois []*roi.ROI) error
	// ROIsByImage loads all aggregates attached to one image, in id order.
	ROIsByImage(ctx context.Context, imageID int64) ([]*roi.ROI, error)
	// DeleteROI removes one aggregate and its shapes.
	DeleteROI(ctx context.Context, id int64) error
	Close() error
}

// queries carries the per-backend SQL. The statements are identical in
// shape; only placeholder syntax differs between the dialects.
type queries struct {
	insertROI    string
	updateROI    string
	deleteShapes string
	insertShape  string
	selectROIs   string
	selectShapes string
	deleteROI    string
	roiExists    string
}

// dbStore implements Store over any database/sql backend given its queries.
type dbStore struct {
	db *sql.DB
	q  queries
	l  *slog.Logger
}

func (s *dbStore) SaveROIs(ctx context.Context, rois []*roi.ROI) error {
	for i, r := range rois {
		if r.Len() == 0 {
			return fmt.Errorf("roi %d: %w", i, ErrEmptyROI)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	ids := make([]int64, len(rois))
	for i, r := range rois {
		id, err := s.saveROI(ctx, tx, r)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("save roi %d: %w", i, err)
		}
		ids[i] = id
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	// Mark saved only after the transaction is durable.
	for i, r := range rois {
		r.MarkSaved(ids[i])
	}
	s.l.Debug("rois saved", slog.Int("count", len(rois)))
	return nil
}

// saveROI writes one aggregate inside tx. The ROI's id is assigned on first
// save; shape rows are always rewritten wholesale, which keeps ordering
// authoritative without per-shape diffing.
func (s *dbStore) saveROI(ctx context.Context, tx *sql.Tx, r *roi.ROI) (int64, error) {
	id := r.ID()
	if id == 0 {
		if err := tx.QueryRowContext(ctx, s.q.insertROI, r.ImageID(), r.Name()).Scan(&id); err != nil {
			return 0, fmt.Errorf("insert roi: %w", err)
		}
	} else {
		res, err := tx.ExecContext(ctx, s.q.updateROI, r.ImageID(), r.Name(), id)
		if err != nil {
			return 0, fmt.Errorf("update roi: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return 0, fmt.Errorf("roi %d: %w", id, ErrNotFound)
		}
		if _, err := tx.ExecContext(ctx, s.q.deleteShapes, id); err != nil {
			return 0, fmt.Errorf("clear shapes: %w", err)
		}
	}

	ins, err := tx.PrepareContext(ctx, s.q.insertShape)
	if err != nil {
		return 0, fmt.Errorf("prepare shape insert: %w", err)
	}
	defer ins.Close()
	for ord, sh := range r.Shapes() {
		payload, err := marshalShape(sh)
		if err != nil {
			return 0, err
		}
		if _, err := ins.ExecContext(ctx, id, ord, payload); err != nil {
			return 0, fmt.Errorf("insert shape %d: %w", ord, err)
		}
	}
	return id, nil
}

func (s *dbStore) ROIsByImage(ctx context.Context, imageID int64) ([]*roi.ROI, error) {
	rows, err := s.db.QueryContext(ctx, s.q.selectROIs, imageID)
	if err != nil {
		return nil, fmt.Errorf("select rois: %w", err)
	}
	defer rows.Close()

	type head struct {
		id   int64
		name string
	}
	var heads []head
	for rows.Next() {
		var h head
		if err := rows.Scan(&h.id, &h.name); err != nil {
			return nil, fmt.Errorf("scan roi: %w", err)
		}
		heads = append(heads, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rois: %w", err)
	}

	var out []*roi.ROI
	for _, h := range heads {
		r := roi.New(imageID)
		r.SetName(h.name)
		if err := s.loadShapes(ctx, h.id, r); err != nil {
			return nil, fmt.Errorf("roi %d: %w", h.id, err)
		}
		r.MarkSaved(h.id)
		out = append(out, r)
	}
	return out, nil
}

func (s *dbStore) loadShapes(ctx context.Context, roiID int64, r *roi.ROI) error {
	rows, err := s.db.QueryContext(ctx, s.q.selectShapes, roiID)
	if err != nil {
		return fmt.Errorf("select shapes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return fmt.Errorf("scan shape: %w", err)
		}
		sh, err := unmarshalShape(payload)
		if err != nil {
			return err
		}
		if err := r.Add(sh); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (s *dbStore) DeleteROI(ctx context.Context, id int64) error {
	var exists int
	if err := s.db.QueryRowContext(ctx, s.q.roiExists, id).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("roi %d: %w", id, ErrNotFound)
		}
		return fmt.Errorf("check roi: %w", err)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if _, err := tx.ExecContext(ctx, s.q.deleteShapes, id); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete shapes: %w", err)
	}
	if _, err := tx.ExecContext(ctx, s.q.deleteROI, id); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete roi: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.l.Debug("roi deleted", slog.Int64("id", id))
	return nil
}

func (s *dbStore) Close() error { return s.db.Close() }

func marshalShape(sh roi.Shape) ([]byte, error) {
	sd, err := roidoc.FromShape(sh)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(sd)
	if err != nil {
		return nil, fmt.Errorf("marshal shape: %w", err)
	}
	return data, nil
}

func unmarshalShape(payload []byte) (roi.Shape, error) {
	var sd roidoc.ShapeDoc
	if err := json.Unmarshal(payload, &sd); err != nil {
		return nil, fmt.Errorf("unmarshal shape: %w", err)
	}
	return sd.ToShape()
}
