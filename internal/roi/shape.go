/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package roi defines the server-side annotation model: a closed set of
// geometric shape variants, each tagged with a channel/plane/time position
// and an optional affine transform, aggregated into regions of interest.
//
// The shape set is a sealed union: converters dispatch on Kind exhaustively,
// so adding a variant is a compile-time exercise across the importer, the
// exporter and the transform code.
package roi

import (
	"fmt"

	"roibridge/internal/geom"
)

// AllPlanes is the sentinel position meaning "applies to every plane along
// that axis".
const AllPlanes = -1

// DefaultEllipseSegments is the polygon segment count used when an ellipse
// outline is approximated.
const DefaultEllipseSegments = 64

// Plane identifies the image plane a shape annotates. Each axis is either a
// non-negative index or AllPlanes.
type Plane struct {
	C int `json:"c"`
	Z int `json:"z"`
	T int `json:"t"`
}

// EveryPlane returns the position that applies to all channels, sections and
// time points.
func EveryPlane() Plane { return Plane{C: AllPlanes, Z: AllPlanes, T: AllPlanes} }

func (p Plane) validate() error {
	if p.C < AllPlanes || p.Z < AllPlanes || p.T < AllPlanes {
		return fmt.Errorf("%w: plane indices must be >= %d: %+v", ErrInvalidGeometry, AllPlanes, p)
	}
	return nil
}

// Marker is a decorative endpoint style on a line shape.
type Marker uint8

const (
	MarkerNone Marker = iota
	MarkerArrow
)

func (m Marker) String() string {
	if m == MarkerArrow {
		return "arrow"
	}
	return "none"
}

// Kind discriminates the shape union.
type Kind uint8

const (
	KindPoint Kind = iota
	KindText
	KindRectangle
	KindEllipse
	KindLine
	KindPolyline
	KindPolygon
	KindMask
)

func (k Kind) String() string {
	switch k {
	case KindPoint:
		return "point"
	case KindText:
		return "text"
	case KindRectangle:
		return "rectangle"
	case KindEllipse:
		return "ellipse"
	case KindLine:
		return "line"
	case KindPolyline:
		return "polyline"
	case KindPolygon:
		return "polygon"
	case KindMask:
		return "mask"
	default:
		return "unknown"
	}
}

// Shape is one geometric primitive with position and style metadata. The
// interface is sealed; the eight variants in this package are the only
// implementations.
type Shape interface {
	Kind() Kind
	// Bounds returns the axis-aligned bounding box of the shape with its
	// transform applied.
	Bounds() geom.Rect
	// PolygonApprox returns an ordered outline approximation with the
	// transform applied. It serves bounds and intersection work, not
	// lossless export.
	PolygonApprox() []geom.Pt
	Transform() geom.Affine
	SetTransform(geom.Affine)
	Plane() Plane
	SetPlane(Plane) error
	Label() string
	SetLabel(string)

	meta() *attrs
	controlPoints() []geom.Pt
}

var (
	_ Shape = (*Point)(nil)
	_ Shape = (*Text)(nil)
	_ Shape = (*Rectangle)(nil)
	_ Shape = (*Ellipse)(nil)
	_ Shape = (*Line)(nil)
	_ Shape = (*Polyline)(nil)
	_ Shape = (*Polygon)(nil)
	_ Shape = (*Mask)(nil)
)

// attrs carries the metadata common to every variant.
type attrs struct {
	plane Plane
	xform geom.Affine
	label string
	owner *ROI
}

func newAttrs() attrs {
	return attrs{plane: EveryPlane(), xform: geom.Identity()}
}

func (a *attrs) Transform() geom.Affine     { return a.xform }
func (a *attrs) SetTransform(m geom.Affine) { a.xform = m }
func (a *attrs) Plane() Plane               { return a.plane }
func (a *attrs) Label() string              { return a.label }
func (a *attrs) SetLabel(s string)          { a.label = s }

func (a *attrs) SetPlane(p Plane) error {
	if err := p.validate(); err != nil {
		return err
	}
	a.plane = p
	return nil
}

func (a *attrs) meta() *attrs { return a }

// approx applies the shape transform to the raw control points.
func approx(s Shape) []geom.Pt {
	return s.Transform().ApplyAll(s.controlPoints())
}

func boundsOf(s Shape) geom.Rect {
	return geom.BoundingBox(s.PolygonApprox())
}

// Point marks a single location.
type Point struct {
	attrs
	X, Y float64
}

func NewPoint(x, y float64) *Point {
	return &Point{attrs: newAttrs(), X: x, Y: y}
}

func (p *Point) Kind() Kind               { return KindPoint }
func (p *Point) controlPoints() []geom.Pt { return []geom.Pt{{X: p.X, Y: p.Y}} }
func (p *Point) PolygonApprox() []geom.Pt { return approx(p) }
func (p *Point) Bounds() geom.Rect        { return boundsOf(p) }

// Text anchors a string at a location. The Value here is the rendered text;
// any variant may additionally carry a Label caption.
type Text struct {
	attrs
	X, Y     float64
	Value    string
	FontSize float64
}

func NewText(x, y float64, value string, fontSize float64) *Text {
	return &Text{attrs: newAttrs(), X: x, Y: y, Value: value, FontSize: fontSize}
}

func (t *Text) Kind() Kind               { return KindText }
func (t *Text) controlPoints() []geom.Pt { return []geom.Pt{{X: t.X, Y: t.Y}} }
func (t *Text) PolygonApprox() []geom.Pt { return approx(t) }
func (t *Text) Bounds() geom.Rect        { return boundsOf(t) }

// Rectangle is an axis-aligned rectangle before transform.
type Rectangle struct {
	attrs
	X, Y, W, H float64
}

func NewRectangle(x, y, w, h float64) (*Rectangle, error) {
	if w < 0 || h < 0 {
		return nil, fmt.Errorf("%w: rectangle size %gx%g", ErrInvalidGeometry, w, h)
	}
	return &Rectangle{attrs: newAttrs(), X: x, Y: y, W: w, H: h}, nil
}

func (r *Rectangle) Kind() Kind { return KindRectangle }
func (r *Rectangle) controlPoints() []geom.Pt {
	return geom.R(r.X, r.Y, r.W, r.H).Corners()
}
func (r *Rectangle) PolygonApprox() []geom.Pt { return approx(r) }
func (r *Rectangle) Bounds() geom.Rect        { return boundsOf(r) }

// Ellipse is defined by center and radii.
type Ellipse struct {
	attrs
	X, Y   float64 // center
	RX, RY float64
}

func NewEllipse(cx, cy, rx, ry float64) (*Ellipse, error) {
	if rx < 0 || ry < 0 {
		return nil, fmt.Errorf("%w: ellipse radii %gx%g", ErrInvalidGeometry, rx, ry)
	}
	return &Ellipse{attrs: newAttrs(), X: cx, Y: cy, RX: rx, RY: ry}, nil
}

func (e *Ellipse) Kind() Kind { return KindEllipse }
func (e *Ellipse) controlPoints() []geom.Pt {
	return geom.EllipsePoints(e.X, e.Y, e.RX, e.RY, DefaultEllipseSegments)
}

// PolygonApproxN approximates the outline with n segments.
func (e *Ellipse) PolygonApproxN(n int) []geom.Pt {
	return e.Transform().ApplyAll(geom.EllipsePoints(e.X, e.Y, e.RX, e.RY, n))
}

func (e *Ellipse) PolygonApprox() []geom.Pt { return approx(e) }
func (e *Ellipse) Bounds() geom.Rect        { return boundsOf(e) }

// Line is a segment with optional endpoint markers.
type Line struct {
	attrs
	X1, Y1, X2, Y2 float64
	MarkerStart    Marker
	MarkerEnd      Marker
}

func NewLine(x1, y1, x2, y2 float64) *Line {
	return &Line{attrs: newAttrs(), X1: x1, Y1: y1, X2: x2, Y2: y2}
}

func (l *Line) Kind() Kind { return KindLine }
func (l *Line) controlPoints() []geom.Pt {
	return []geom.Pt{{X: l.X1, Y: l.Y1}, {X: l.X2, Y: l.Y2}}
}
func (l *Line) PolygonApprox() []geom.Pt { return approx(l) }
func (l *Line) Bounds() geom.Rect        { return boundsOf(l) }

// Polyline is an open, ordered chain of at least two points.
type Polyline struct {
	attrs
	Points []geom.Pt
}

func NewPolyline(points []geom.Pt) (*Polyline, error) {
	if len(points) < 2 {
		return nil, fmt.Errorf("%w: polyline needs >= 2 points, got %d", ErrInvalidGeometry, len(points))
	}
	return &Polyline{attrs: newAttrs(), Points: append([]geom.Pt(nil), points...)}, nil
}

func (p *Polyline) Kind() Kind               { return KindPolyline }
func (p *Polyline) controlPoints() []geom.Pt { return p.Points }
func (p *Polyline) PolygonApprox() []geom.Pt { return approx(p) }
func (p *Polyline) Bounds() geom.Rect        { return boundsOf(p) }

// Polygon is an implicitly closed, ordered ring of at least three distinct
// points. The closing edge is implied; the first point is never duplicated.
type Polygon struct {
	attrs
	Points []geom.Pt
}

func NewPolygon(points []geom.Pt) (*Polygon, error) {
	distinct := make(map[geom.Pt]struct{}, len(points))
	for _, p := range points {
		distinct[p] = struct{}{}
	}
	if len(distinct) < 3 {
		return nil, fmt.Errorf("%w: polygon needs >= 3 distinct points, got %d", ErrInvalidGeometry, len(distinct))
	}
	return &Polygon{attrs: newAttrs(), Points: append([]geom.Pt(nil), points...)}, nil
}

func (p *Polygon) Kind() Kind               { return KindPolygon }
func (p *Polygon) controlPoints() []geom.Pt { return p.Points }
func (p *Polygon) PolygonApprox() []geom.Pt { return approx(p) }
func (p *Polygon) Bounds() geom.Rect        { return boundsOf(p) }
