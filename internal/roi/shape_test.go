/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package roi

import (
	"errors"
	"math"
	"testing"

	"roibridge/internal/geom"
)

const tol = 1e-9

func near(a, b float64) bool { return math.Abs(a-b) <= tol }

func TestRectangleValidation(t *testing.T) {
	if _, err := NewRectangle(0, 0, -1, 5); !errors.Is(err, ErrInvalidGeometry) {
		t.Fatalf("negative width must fail with ErrInvalidGeometry, got %v", err)
	}
	if _, err := NewRectangle(0, 0, 5, -1); !errors.Is(err, ErrInvalidGeometry) {
		t.Fatalf("negative height must fail with ErrInvalidGeometry, got %v", err)
	}
	r, err := NewRectangle(1, 2, 0, 0)
	if err != nil {
		t.Fatalf("zero-size rectangle is legal: %v", err)
	}
	if r.Bounds() != geom.R(1, 2, 0, 0) {
		t.Fatalf("unexpected bounds: %+v", r.Bounds())
	}
}

func TestEllipseValidationAndBounds(t *testing.T) {
	if _, err := NewEllipse(0, 0, -2, 1); !errors.Is(err, ErrInvalidGeometry) {
		t.Fatalf("negative radius must fail, got %v", err)
	}
	e, err := NewEllipse(10, 20, 4, 3)
	if err != nil {
		t.Fatalf("NewEllipse: %v", err)
	}
	b := e.Bounds()
	if !near(b.X, 6) || !near(b.Y, 17) || !near(b.W, 8) || !near(b.H, 6) {
		t.Fatalf("unexpected ellipse bounds: %+v", b)
	}
	if n := len(e.PolygonApproxN(16)); n != 16 {
		t.Fatalf("PolygonApproxN(16) gave %d points", n)
	}
}

func TestPolylinePolygonValidation(t *testing.T) {
	if _, err := NewPolyline([]geom.Pt{{X: 1, Y: 1}}); !errors.Is(err, ErrInvalidGeometry) {
		t.Fatalf("1-point polyline must fail, got %v", err)
	}
	if _, err := NewPolygon([]geom.Pt{{X: 0, Y: 0}, {X: 1, Y: 1}}); !errors.Is(err, ErrInvalidGeometry) {
		t.Fatalf("2-point polygon must fail, got %v", err)
	}
	// three points but only two distinct
	if _, err := NewPolygon([]geom.Pt{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 0}}); !errors.Is(err, ErrInvalidGeometry) {
		t.Fatalf("degenerate polygon must fail, got %v", err)
	}
	pg, err := NewPolygon([]geom.Pt{{X: 0, Y: 0}, {X: 3, Y: 0}, {X: 3, Y: 4}})
	if err != nil {
		t.Fatalf("NewPolygon: %v", err)
	}
	if len(pg.Points) != 3 {
		t.Fatalf("polygon must keep its 3 points, has %d", len(pg.Points))
	}
}

func TestLineBounds(t *testing.T) {
	l := NewLine(10, 2, 3, 8)
	b := l.Bounds()
	if b.X != 3 || b.Y != 2 || b.W != 7 || b.H != 6 {
		t.Fatalf("unexpected line bounds: %+v", b)
	}
}

func TestPlaneValidation(t *testing.T) {
	p := NewPoint(1, 1)
	if p.Plane() != EveryPlane() {
		t.Fatalf("default plane must be the all-planes sentinel: %+v", p.Plane())
	}
	if err := p.SetPlane(Plane{C: -2, Z: 0, T: 0}); !errors.Is(err, ErrInvalidGeometry) {
		t.Fatalf("C < -1 must fail, got %v", err)
	}
	if err := p.SetPlane(Plane{C: 1, Z: AllPlanes, T: 10000}); err != nil {
		t.Fatalf("legal plane rejected: %v", err)
	}
	if p.Plane() != (Plane{C: 1, Z: -1, T: 10000}) {
		t.Fatalf("plane not stored: %+v", p.Plane())
	}
}

func TestDefaultTransformIsIdentity(t *testing.T) {
	shapes := []Shape{
		NewPoint(1, 2),
		NewText(1, 2, "cell", 12),
		NewLine(0, 0, 1, 1),
	}
	for _, s := range shapes {
		if !s.Transform().IsIdentity(0) {
			t.Fatalf("%s: default transform must be identity", s.Kind())
		}
	}
}

func TestTransformedBounds(t *testing.T) {
	r, err := NewRectangle(0, 0, 100, 50)
	if err != nil {
		t.Fatalf("NewRectangle: %v", err)
	}
	r.SetTransform(geom.Translation(10, 20))
	b := r.Bounds()
	if !near(b.X, 10) || !near(b.Y, 20) || !near(b.W, 100) || !near(b.H, 50) {
		t.Fatalf("unexpected translated bounds: %+v", b)
	}

	// quarter rotation turns a wide box into a tall one
	r.SetTransform(geom.Rotation(math.Pi / 2))
	b = r.Bounds()
	if !near(b.W, 50) || !near(b.H, 100) {
		t.Fatalf("unexpected rotated bounds: %+v", b)
	}
}

func TestKindStrings(t *testing.T) {
	cases := map[Kind]string{
		KindPoint:     "point",
		KindText:      "text",
		KindRectangle: "rectangle",
		KindEllipse:   "ellipse",
		KindLine:      "line",
		KindPolyline:  "polyline",
		KindPolygon:   "polygon",
		KindMask:      "mask",
	}
	for k, want := range cases {
		if k.String() != want {
			t.Fatalf("Kind(%d).String() = %q, want %q", k, k.String(), want)
		}
	}
}

func TestEveryVariantBehindTheInterface(t *testing.T) {
	rect, err := NewRectangle(1, 2, 3, 4)
	if err != nil {
		t.Fatalf("rectangle: %v", err)
	}
	el, err := NewEllipse(5, 5, 2, 3)
	if err != nil {
		t.Fatalf("ellipse: %v", err)
	}
	pl, err := NewPolyline([]geom.Pt{{X: 0, Y: 0}, {X: 2, Y: 2}})
	if err != nil {
		t.Fatalf("polyline: %v", err)
	}
	pg, err := NewPolygon([]geom.Pt{{X: 0, Y: 0}, {X: 3, Y: 0}, {X: 3, Y: 4}})
	if err != nil {
		t.Fatalf("polygon: %v", err)
	}
	mk, err := NewMask(0, 0, 2, 2, [][]bool{{true, false}, {false, true}})
	if err != nil {
		t.Fatalf("mask: %v", err)
	}
	shapes := []Shape{
		NewPoint(1, 1),
		NewText(2, 2, "label", 12),
		rect,
		el,
		NewLine(0, 0, 4, 4),
		pl,
		pg,
		mk,
	}
	r := New(7)
	for _, s := range shapes {
		if len(s.PolygonApprox()) == 0 {
			t.Fatalf("%s: empty outline", s.Kind())
		}
		if !s.Transform().IsIdentity(tol) {
			t.Fatalf("%s: fresh shape must carry identity", s.Kind())
		}
		if err := r.Add(s); err != nil {
			t.Fatalf("%s: add: %v", s.Kind(), err)
		}
	}
	if r.Len() != len(shapes) {
		t.Fatalf("want %d shapes, got %d", len(shapes), r.Len())
	}
	if err := r.Remove(shapes[0]); err != nil {
		t.Fatalf("remove: %v", err)
	}
	other := New(7)
	if err := other.Add(shapes[0]); err != nil {
		t.Fatalf("reparenting a removed shape: %v", err)
	}
}
