/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package imagej models the desktop tool's region vocabulary: a flat region
// type discriminated by kind, carrying bounds, point lists, an arbitrary
// string property map and optional hyperstack position fields. It is a pure
// in-memory representation; no file format is read or written here.
package imagej

import (
	"roibridge/internal/geom"
)

// Kind is the foreign region kind.
type Kind uint8

const (
	KindRectangle Kind = iota
	KindOval
	KindLine
	KindArrow
	KindPolyline
	KindFreeline
	KindPolygon
	KindFreehand
	KindPoint
	KindText
	// KindOverlay is a raster-backed image overlay region.
	KindOverlay
	// KindComposite is a compound selection the converter cannot represent.
	KindComposite
)

func (k Kind) String() string {
	switch k {
	case KindRectangle:
		return "rectangle"
	case KindOval:
		return "oval"
	case KindLine:
		return "line"
	case KindArrow:
		return "arrow"
	case KindPolyline:
		return "polyline"
	case KindFreeline:
		return "freeline"
	case KindPolygon:
		return "polygon"
	case KindFreehand:
		return "freehand"
	case KindPoint:
		return "point"
	case KindText:
		return "text"
	case KindOverlay:
		return "overlay"
	case KindComposite:
		return "composite"
	default:
		return "unknown"
	}
}

// PositionUnset marks an absent hyperstack position field.
const PositionUnset = -1

// Roi is one foreign region. Which fields are meaningful depends on Kind:
// bounds for rectangle/oval/text/overlay, the endpoint quad for line/arrow,
// Points for the poly kinds and multi-point selections, Raster for overlay.
type Roi struct {
	Kind Kind
	Name string

	// Bounds of the region (min corner and size).
	X, Y, W, H float64

	// Line endpoints. The foreign arrow convention points the head at
	// (X2, Y2).
	X1, Y1, X2, Y2 float64
	// DoubleHeaded marks an arrow with heads at both ends.
	DoubleHeaded bool

	// Points of poly kinds, in drawing order.
	Points []geom.Pt

	// Text payload for KindText.
	Text     string
	FontSize float64

	// Hyperstack position; PositionUnset when the region is not pinned to
	// an axis.
	C, Z, T int

	// Raster is the packed bitmap payload (row-major, MSB first) carried by
	// overlay regions and by rectangles produced from mask exports.
	Raster  []byte
	RasterW int
	RasterH int

	props map[string]string
}

// NewRoi returns a region of the given kind with unset position fields.
func NewRoi(kind Kind) Roi {
	return Roi{Kind: kind, C: PositionUnset, Z: PositionUnset, T: PositionUnset}
}

// Prop returns the property value for key and whether it was present.
func (r *Roi) Prop(key string) (string, bool) {
	v, ok := r.props[key]
	return v, ok
}

// SetProp stores a property key/value pair.
func (r *Roi) SetProp(key, value string) {
	if r.props == nil {
		r.props = map[string]string{}
	}
	r.props[key] = value
}

// Props returns a copy of the property map.
func (r *Roi) Props() map[string]string {
	out := make(map[string]string, len(r.props))
	for k, v := range r.props {
		out[k] = v
	}
	return out
}

// HasPosition reports whether any hyperstack axis is pinned.
func (r *Roi) HasPosition() bool {
	return r.C != PositionUnset || r.Z != PositionUnset || r.T != PositionUnset
}

// Bounds returns the axis-aligned bounds of the region as drawn.
func (r *Roi) Bounds() geom.Rect {
	switch r.Kind {
	case KindLine, KindArrow:
		return geom.BoundingBox([]geom.Pt{{X: r.X1, Y: r.Y1}, {X: r.X2, Y: r.Y2}})
	case KindPolyline, KindFreeline, KindPolygon, KindFreehand, KindPoint:
		if len(r.Points) > 0 {
			return geom.BoundingBox(r.Points)
		}
		return geom.R(r.X, r.Y, r.W, r.H)
	default:
		return geom.R(r.X, r.Y, r.W, r.H)
	}
}
