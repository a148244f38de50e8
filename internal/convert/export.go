/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package convert

import (
	"fmt"
	"log/slog"
	"strconv"

	"roibridge/internal/geom"
	"roibridge/internal/imagej"
	applog "roibridge/internal/log"
	"roibridge/internal/roi"
)

// ExportOptions controls a single export call.
type ExportOptions struct {
	// GroupKey overrides the property name stamped for grouping. Empty
	// means DefaultGroupKey.
	GroupKey string
	// EllipseSegments sets the outline resolution when an ellipse under a
	// rotated or sheared transform degrades to a polygon. Zero means
	// roi.DefaultEllipseSegments.
	EllipseSegments int
}

// Export flattens ROI aggregates into a list of foreign regions.
//
// Every produced region carries the grouping property so a later Import
// rebuilds the same membership: the value is the ROI's server id when it has
// one, otherwise its ordinal in the input slice. Shape order within an ROI
// and ROI order in the slice are both preserved.
func Export(rois []*roi.ROI, opts ExportOptions) ([]imagej.Roi, error) {
	l := applog.WithOperation(applog.WithComponent("convert"), "export")

	key := opts.GroupKey
	if key == "" {
		key = DefaultGroupKey
	}
	segments := opts.EllipseSegments
	if segments <= 0 {
		segments = roi.DefaultEllipseSegments
	}

	var out []imagej.Roi
	for i, r := range rois {
		group := strconv.FormatInt(r.ID(), 10)
		if r.ID() == 0 {
			group = strconv.Itoa(i)
		}
		for _, s := range r.Shapes() {
			fr, err := exportShape(s, segments, l)
			if err != nil {
				return nil, fmt.Errorf("roi %d: %w", i, err)
			}
			fr.SetProp(key, group)
			out = append(out, fr)
		}
	}
	return out, nil
}

// exportShape maps one shape onto the closest foreign region. A rectangle or
// ellipse under a transform the foreign bounds cannot express falls back to
// a polygon over its transformed outline.
func exportShape(s roi.Shape, segments int, l *slog.Logger) (imagej.Roi, error) {
	var fr imagej.Roi
	xf := s.Transform()

	switch v := s.(type) {
	case *roi.Point:
		fr = imagej.NewRoi(imagej.KindPoint)
		p := xf.Apply(geom.Pt{X: v.X, Y: v.Y})
		fr.X, fr.Y = p.X, p.Y
	case *roi.Text:
		fr = imagej.NewRoi(imagej.KindText)
		p := xf.Apply(geom.Pt{X: v.X, Y: v.Y})
		fr.X, fr.Y = p.X, p.Y
		fr.Text = v.Value
		fr.FontSize = v.FontSize
	case *roi.Rectangle:
		if axisAligned(xf) {
			fr = imagej.NewRoi(imagej.KindRectangle)
			min := xf.Apply(geom.Pt{X: v.X, Y: v.Y})
			fr.X, fr.Y = min.X, min.Y
			fr.W, fr.H = v.W*xf.A, v.H*xf.D
		} else {
			fr = polygonRegion(s.PolygonApprox())
		}
	case *roi.Ellipse:
		if axisAligned(xf) {
			fr = imagej.NewRoi(imagej.KindOval)
			c := xf.Apply(geom.Pt{X: v.X, Y: v.Y})
			rx, ry := v.RX*xf.A, v.RY*xf.D
			fr.X, fr.Y = c.X-rx, c.Y-ry
			fr.W, fr.H = 2*rx, 2*ry
		} else {
			fr = polygonRegion(v.PolygonApproxN(segments))
		}
	case *roi.Line:
		p1 := xf.Apply(geom.Pt{X: v.X1, Y: v.Y1})
		p2 := xf.Apply(geom.Pt{X: v.X2, Y: v.Y2})
		if v.MarkerStart == roi.MarkerArrow || v.MarkerEnd == roi.MarkerArrow {
			fr = imagej.NewRoi(imagej.KindArrow)
			fr.DoubleHeaded = v.MarkerStart == roi.MarkerArrow && v.MarkerEnd == roi.MarkerArrow
		} else {
			fr = imagej.NewRoi(imagej.KindLine)
		}
		fr.X1, fr.Y1 = p1.X, p1.Y
		fr.X2, fr.Y2 = p2.X, p2.Y
	case *roi.Polyline:
		fr = imagej.NewRoi(imagej.KindPolyline)
		fr.Points = xf.ApplyAll(v.Points)
	case *roi.Polygon:
		fr = polygonRegion(xf.ApplyAll(v.Points))
	case *roi.Mask:
		// The foreign side has no bitmap region; the mask travels as a
		// rectangle over its exact bounds with the packed bits attached.
		// Re-importing yields a plain rectangle, which is the documented
		// lossy half of the round trip.
		fr = imagej.NewRoi(imagej.KindRectangle)
		fr.X, fr.Y = v.X, v.Y
		fr.W, fr.H = float64(v.W), float64(v.H)
		if translationOnly(xf) {
			fr.X += xf.TX
			fr.Y += xf.TY
		} else if !xf.IsIdentity(1e-12) {
			l.Warn("discarding non-translation transform on mask export")
		}
		fr.Raster = v.PackedBits()
		fr.RasterW, fr.RasterH = v.W, v.H
	default:
		return imagej.Roi{}, fmt.Errorf("%w: %s", roi.ErrUnsupportedShape, s.Kind())
	}

	pl := s.Plane()
	fr.C, fr.Z, fr.T = pl.C, pl.Z, pl.T
	fr.Name = s.Label()
	return fr, nil
}

func polygonRegion(pts []geom.Pt) imagej.Roi {
	fr := imagej.NewRoi(imagej.KindPolygon)
	fr.Points = pts
	return fr
}

// axisAligned reports whether a transform maps axis-aligned bounds onto
// axis-aligned bounds without flipping.
func axisAligned(m geom.Affine) bool {
	return m.B == 0 && m.C == 0 && m.A >= 0 && m.D >= 0
}

// translationOnly reports whether a transform is a pure offset.
func translationOnly(m geom.Affine) bool {
	return m.A == 1 && m.B == 0 && m.C == 0 && m.D == 1
}
