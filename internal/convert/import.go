/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package convert maps between the server-side ROI/Shape model and the
// desktop tool's region representation. Conversions are pure, synchronous
// transforms over in-memory collections; converters hold no cross-call
// state, so callers may run independent batches in parallel.
package convert

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"roibridge/internal/imagej"
	applog "roibridge/internal/log"
	"roibridge/internal/roi"
)

// DefaultGroupKey is the well-known property name used to rebuild ROI
// membership from foreign regions.
const DefaultGroupKey = "ROI"

// ImportOptions controls a single import call.
type ImportOptions struct {
	// GroupKey overrides the property name used for grouping. Empty means
	// DefaultGroupKey.
	GroupKey string
	// Ungrouped disables grouping entirely: every foreign region becomes
	// its own ROI.
	Ungrouped bool
	// ImageID is stamped on every produced ROI.
	ImageID int64
}

// Import converts a flat, ordered list of foreign regions into ROI
// aggregates.
//
// Regions carrying the same integer-valued grouping property are merged into
// one ROI, in first-seen order; grouping values are canonicalized by parsed
// integer value, so "024" and "24" share a group. A region lacking the
// property, or carrying a value that does not parse as an integer, becomes a
// singleton ROI. Foreign kinds with no shape variant are skipped with a
// diagnostic; invalid geometry aborts the batch.
func Import(regions []imagej.Roi, opts ImportOptions) ([]*roi.ROI, error) {
	l := applog.WithOperation(applog.WithComponent("convert"), "import")

	key := opts.GroupKey
	if key == "" {
		key = DefaultGroupKey
	}

	var out []*roi.ROI
	groups := map[int64]*roi.ROI{}

	for i := range regions {
		r := &regions[i]
		shapes, err := importRegion(r)
		if err != nil {
			return nil, fmt.Errorf("region %d (%s): %w", i, r.Kind, err)
		}
		if shapes == nil {
			l.Warn("skipping unsupported region kind",
				slog.Int("index", i), slog.String("kind", r.Kind.String()))
			continue
		}

		target := (*roi.ROI)(nil)
		if !opts.Ungrouped {
			if v, ok := r.Prop(key); ok {
				if n, perr := strconv.ParseInt(strings.TrimSpace(v), 10, 64); perr == nil {
					if g, seen := groups[n]; seen {
						target = g
					} else {
						target = roi.New(opts.ImageID)
						groups[n] = target
						out = append(out, target)
					}
				}
			}
		}
		if target == nil {
			target = roi.New(opts.ImageID)
			out = append(out, target)
		}
		for _, s := range shapes {
			if err := target.Add(s); err != nil {
				return nil, fmt.Errorf("region %d (%s): %w", i, r.Kind, err)
			}
		}
	}
	return out, nil
}

// importRegion builds the shape(s) for one foreign region. A nil slice with
// nil error marks an unsupported kind the caller should skip.
func importRegion(r *imagej.Roi) ([]roi.Shape, error) {
	var shapes []roi.Shape
	switch r.Kind {
	case imagej.KindRectangle:
		// A rectangle carrying a raster payload is a re-imported mask
		// export; it deliberately degrades to a plain rectangle.
		rect, err := roi.NewRectangle(r.X, r.Y, r.W, r.H)
		if err != nil {
			return nil, err
		}
		shapes = append(shapes, rect)
	case imagej.KindOval:
		ell, err := roi.NewEllipse(r.X+r.W/2, r.Y+r.H/2, r.W/2, r.H/2)
		if err != nil {
			return nil, err
		}
		shapes = append(shapes, ell)
	case imagej.KindLine:
		shapes = append(shapes, roi.NewLine(r.X1, r.Y1, r.X2, r.Y2))
	case imagej.KindArrow:
		if r.DoubleHeaded {
			l := roi.NewLine(r.X1, r.Y1, r.X2, r.Y2)
			l.MarkerStart = roi.MarkerArrow
			l.MarkerEnd = roi.MarkerArrow
			shapes = append(shapes, l)
		} else {
			// The foreign head sits at (X2, Y2); the endpoint order is
			// swapped so the marker start faces the original arrowhead.
			l := roi.NewLine(r.X2, r.Y2, r.X1, r.Y1)
			l.MarkerStart = roi.MarkerArrow
			shapes = append(shapes, l)
		}
	case imagej.KindPolyline, imagej.KindFreeline:
		pl, err := roi.NewPolyline(r.Points)
		if err != nil {
			return nil, err
		}
		shapes = append(shapes, pl)
	case imagej.KindPolygon, imagej.KindFreehand:
		pg, err := roi.NewPolygon(r.Points)
		if err != nil {
			return nil, err
		}
		shapes = append(shapes, pg)
	case imagej.KindPoint:
		// A multi-point selection fans out into one point shape each.
		if len(r.Points) > 0 {
			for _, p := range r.Points {
				shapes = append(shapes, roi.NewPoint(p.X, p.Y))
			}
		} else {
			shapes = append(shapes, roi.NewPoint(r.X, r.Y))
		}
	case imagej.KindText:
		shapes = append(shapes, roi.NewText(r.X, r.Y, r.Text, r.FontSize))
	case imagej.KindOverlay:
		m, err := roi.NewMaskPacked(r.X, r.Y, r.RasterW, r.RasterH, r.Raster)
		if err != nil {
			return nil, err
		}
		shapes = append(shapes, m)
	default:
		return nil, nil
	}

	for _, s := range shapes {
		if err := stampCommon(s, r); err != nil {
			return nil, err
		}
	}
	return shapes, nil
}

// stampCommon copies position and label metadata onto an imported shape. The
// foreign format has no transform support, so the transform stays identity.
func stampCommon(s roi.Shape, r *imagej.Roi) error {
	p := roi.EveryPlane()
	if r.HasPosition() {
		p = roi.Plane{C: r.C, Z: r.Z, T: r.T}
	}
	if err := s.SetPlane(p); err != nil {
		return err
	}
	s.SetLabel(r.Name)
	return nil
}
