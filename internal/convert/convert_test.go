/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package convert

import (
	"math"
	"testing"

	"roibridge/internal/geom"
	"roibridge/internal/imagej"
	"roibridge/internal/roi"
)

const tol = 1e-9

func near(a, b float64) bool { return math.Abs(a-b) <= tol }

func TestImportGroupsByIntegerProperty(t *testing.T) {
	a := imagej.NewRoi(imagej.KindRectangle)
	a.X, a.Y, a.W, a.H = 0, 0, 10, 10
	a.SetProp("ROI", "24")

	b := imagej.NewRoi(imagej.KindOval)
	b.X, b.Y, b.W, b.H = 5, 5, 4, 4
	b.SetProp("ROI", "024") // same integer value, different spelling

	c := imagej.NewRoi(imagej.KindLine)
	c.X1, c.Y1, c.X2, c.Y2 = 0, 0, 1, 1
	c.SetProp("ROI", "invalid")

	rois, err := Import([]imagej.Roi{a, b, c}, ImportOptions{})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(rois) != 2 {
		t.Fatalf("roi count = %d, want 2", len(rois))
	}
	if n := len(rois[0].Shapes()); n != 2 {
		t.Fatalf("group roi has %d shapes, want 2", n)
	}
	if n := len(rois[1].Shapes()); n != 1 {
		t.Fatalf("singleton roi has %d shapes, want 1", n)
	}
}

func TestImportUngrouped(t *testing.T) {
	a := imagej.NewRoi(imagej.KindRectangle)
	a.W, a.H = 1, 1
	a.SetProp("ROI", "7")
	b := imagej.NewRoi(imagej.KindRectangle)
	b.W, b.H = 1, 1
	b.SetProp("ROI", "7")

	rois, err := Import([]imagej.Roi{a, b}, ImportOptions{Ungrouped: true})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(rois) != 2 {
		t.Fatalf("roi count = %d, want 2", len(rois))
	}
}

func TestImportPositionsAndKinds(t *testing.T) {
	rect := imagej.NewRoi(imagej.KindRectangle)
	rect.X, rect.Y, rect.W, rect.H = 1, 2, 3, 4
	rect.C, rect.Z, rect.T = 1, 2, 3
	rect.SetProp("ROI", "1")

	oval := imagej.NewRoi(imagej.KindOval)
	oval.X, oval.Y, oval.W, oval.H = 4, 5, 6, 7
	oval.C, oval.Z, oval.T = 0, 1, 3
	oval.SetProp("ROI", "1")

	rois, err := Import([]imagej.Roi{rect, oval}, ImportOptions{ImageID: 42})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(rois) != 1 {
		t.Fatalf("roi count = %d, want 1", len(rois))
	}
	shapes := rois[0].Shapes()
	if len(shapes) != 2 {
		t.Fatalf("shape count = %d, want 2", len(shapes))
	}

	r, ok := shapes[0].(*roi.Rectangle)
	if !ok {
		t.Fatalf("shape 0 is %T, want *roi.Rectangle", shapes[0])
	}
	if r.X != 1 || r.Y != 2 || r.W != 3 || r.H != 4 {
		t.Fatalf("rectangle geometry = %+v", r)
	}
	if p := r.Plane(); p.C != 1 || p.Z != 2 || p.T != 3 {
		t.Fatalf("rectangle plane = %+v", p)
	}

	e, ok := shapes[1].(*roi.Ellipse)
	if !ok {
		t.Fatalf("shape 1 is %T, want *roi.Ellipse", shapes[1])
	}
	if !near(e.X, 7) || !near(e.Y, 8.5) || !near(e.RX, 3) || !near(e.RY, 3.5) {
		t.Fatalf("ellipse geometry = %+v", e)
	}
	if p := e.Plane(); p.C != 0 || p.Z != 1 || p.T != 3 {
		t.Fatalf("ellipse plane = %+v", p)
	}
}

func TestImportMultiPointFansOut(t *testing.T) {
	mp := imagej.NewRoi(imagej.KindPoint)
	mp.Points = []geom.Pt{{X: 1, Y: 1}, {X: 2, Y: 2}, {X: 3, Y: 3}}

	rois, err := Import([]imagej.Roi{mp}, ImportOptions{})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(rois) != 1 {
		t.Fatalf("roi count = %d, want 1", len(rois))
	}
	if n := len(rois[0].Shapes()); n != 3 {
		t.Fatalf("point count = %d, want 3", n)
	}
}

func TestImportSkipsUnsupportedKinds(t *testing.T) {
	comp := imagej.NewRoi(imagej.KindComposite)
	rect := imagej.NewRoi(imagej.KindRectangle)
	rect.W, rect.H = 1, 1

	rois, err := Import([]imagej.Roi{comp, rect}, ImportOptions{})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(rois) != 1 {
		t.Fatalf("roi count = %d, want 1", len(rois))
	}
}

func TestImportInvalidGeometryFails(t *testing.T) {
	bad := imagej.NewRoi(imagej.KindPolyline)
	bad.Points = []geom.Pt{{X: 1, Y: 1}}

	if _, err := Import([]imagej.Roi{bad}, ImportOptions{}); err == nil {
		t.Fatal("import of a one-point polyline should fail")
	}
}

func TestRoundTripGeometry(t *testing.T) {
	rect := imagej.NewRoi(imagej.KindRectangle)
	rect.X, rect.Y, rect.W, rect.H = 1, 2, 3, 4
	rect.SetProp("ROI", "5")

	poly := imagej.NewRoi(imagej.KindPolygon)
	poly.Points = []geom.Pt{{X: 0, Y: 0}, {X: 4, Y: 0}, {X: 2, Y: 3}}
	poly.SetProp("ROI", "5")

	line := imagej.NewRoi(imagej.KindLine)
	line.X1, line.Y1, line.X2, line.Y2 = 0.5, 0.5, 9.5, 1.5
	line.SetProp("ROI", "6")

	in := []imagej.Roi{rect, poly, line}
	rois, err := Import(in, ImportOptions{})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	out, err := Export(rois, ExportOptions{})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("exported %d regions, want 3", len(out))
	}

	if out[0].Kind != imagej.KindRectangle || !near(out[0].X, 1) || !near(out[0].Y, 2) || !near(out[0].W, 3) || !near(out[0].H, 4) {
		t.Fatalf("rectangle round trip = %+v", out[0])
	}
	if out[1].Kind != imagej.KindPolygon {
		t.Fatalf("polygon round trip kind = %v", out[1].Kind)
	}
	// Vertex order must survive and no closing vertex may be appended.
	if len(out[1].Points) != 3 {
		t.Fatalf("polygon round trip has %d points, want 3", len(out[1].Points))
	}
	for i, p := range poly.Points {
		q := out[1].Points[i]
		if !near(p.X, q.X) || !near(p.Y, q.Y) {
			t.Fatalf("polygon vertex %d = %v, want %v", i, q, p)
		}
	}
	if out[2].Kind != imagej.KindLine || !near(out[2].X1, 0.5) || !near(out[2].Y2, 1.5) {
		t.Fatalf("line round trip = %+v", out[2])
	}

	// Grouping must survive: the first two regions share a value, the
	// third carries its own.
	g0, _ := out[0].Prop(DefaultGroupKey)
	g1, _ := out[1].Prop(DefaultGroupKey)
	g2, _ := out[2].Prop(DefaultGroupKey)
	if g0 != g1 {
		t.Fatalf("grouped regions exported with %q and %q", g0, g1)
	}
	if g2 == g0 {
		t.Fatal("independent region exported with the shared group value")
	}
}

func TestArrowEndpointSwapIsSelfInverse(t *testing.T) {
	arrow := imagej.NewRoi(imagej.KindArrow)
	arrow.X1, arrow.Y1, arrow.X2, arrow.Y2 = 0, 0, 10, 5

	rois, err := Import([]imagej.Roi{arrow}, ImportOptions{})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	l, ok := rois[0].Shapes()[0].(*roi.Line)
	if !ok {
		t.Fatalf("imported shape is %T, want *roi.Line", rois[0].Shapes()[0])
	}
	// The start marker faces the foreign arrowhead.
	if l.MarkerStart != roi.MarkerArrow || l.MarkerEnd != roi.MarkerNone {
		t.Fatalf("markers = %v/%v", l.MarkerStart, l.MarkerEnd)
	}
	if !near(l.X1, 10) || !near(l.Y1, 5) || !near(l.X2, 0) || !near(l.Y2, 0) {
		t.Fatalf("imported endpoints = (%v,%v)-(%v,%v)", l.X1, l.Y1, l.X2, l.Y2)
	}

	once, err := Export(rois, ExportOptions{})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if once[0].Kind != imagej.KindArrow || once[0].DoubleHeaded {
		t.Fatalf("first export = %+v", once[0])
	}
	// One round trip swaps the endpoints.
	if !near(once[0].X1, 10) || !near(once[0].X2, 0) {
		t.Fatalf("first export endpoints = (%v,%v)-(%v,%v)", once[0].X1, once[0].Y1, once[0].X2, once[0].Y2)
	}

	rois2, err := Import(once, ImportOptions{})
	if err != nil {
		t.Fatalf("second import: %v", err)
	}
	twice, err := Export(rois2, ExportOptions{})
	if err != nil {
		t.Fatalf("second export: %v", err)
	}
	// A second round trip restores the original.
	if !near(twice[0].X1, 0) || !near(twice[0].Y1, 0) || !near(twice[0].X2, 10) || !near(twice[0].Y2, 5) {
		t.Fatalf("second export endpoints = (%v,%v)-(%v,%v)", twice[0].X1, twice[0].Y1, twice[0].X2, twice[0].Y2)
	}
}

func TestDoubleHeadedArrowRoundTrip(t *testing.T) {
	arrow := imagej.NewRoi(imagej.KindArrow)
	arrow.DoubleHeaded = true
	arrow.X1, arrow.Y1, arrow.X2, arrow.Y2 = 1, 1, 2, 2

	rois, err := Import([]imagej.Roi{arrow}, ImportOptions{})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	l := rois[0].Shapes()[0].(*roi.Line)
	if l.MarkerStart != roi.MarkerArrow || l.MarkerEnd != roi.MarkerArrow {
		t.Fatalf("markers = %v/%v", l.MarkerStart, l.MarkerEnd)
	}
	// Symmetric arrows keep their endpoint order.
	if !near(l.X1, 1) || !near(l.X2, 2) {
		t.Fatalf("endpoints = (%v,%v)-(%v,%v)", l.X1, l.Y1, l.X2, l.Y2)
	}

	out, err := Export(rois, ExportOptions{})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if out[0].Kind != imagej.KindArrow || !out[0].DoubleHeaded {
		t.Fatalf("export = %+v", out[0])
	}
}

func TestMaskExportDegradesToRectangle(t *testing.T) {
	bitmap := make([][]bool, 10)
	for r := range bitmap {
		bitmap[r] = make([]bool, 10)
		bitmap[r][r%10] = true
	}
	m, err := roi.NewMask(3, 3, 10, 10, bitmap)
	if err != nil {
		t.Fatalf("mask: %v", err)
	}
	r := roi.New(0)
	if err := r.Add(m); err != nil {
		t.Fatalf("add: %v", err)
	}

	out, err := Export([]*roi.ROI{r}, ExportOptions{})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	fr := out[0]
	if fr.Kind != imagej.KindRectangle {
		t.Fatalf("mask exported as %v, want rectangle", fr.Kind)
	}
	if fr.X != 3 || fr.Y != 3 || fr.W != 10 || fr.H != 10 {
		t.Fatalf("mask bounds exported as (%v,%v,%v,%v)", fr.X, fr.Y, fr.W, fr.H)
	}
	if len(fr.Raster) != 13 { // ceil(100/8)
		t.Fatalf("raster payload is %d bytes, want 13", len(fr.Raster))
	}

	// Re-import yields a plain rectangle over the same bounds.
	back, err := Import(out, ImportOptions{})
	if err != nil {
		t.Fatalf("reimport: %v", err)
	}
	rect, ok := back[0].Shapes()[0].(*roi.Rectangle)
	if !ok {
		t.Fatalf("reimported shape is %T, want *roi.Rectangle", back[0].Shapes()[0])
	}
	if rect.X != 3 || rect.Y != 3 || rect.W != 10 || rect.H != 10 {
		t.Fatalf("reimported rectangle = %+v", rect)
	}
}

func TestOverlayImportsAsMask(t *testing.T) {
	ov := imagej.NewRoi(imagej.KindOverlay)
	ov.X, ov.Y = 2, 4
	ov.RasterW, ov.RasterH = 4, 2
	ov.Raster = []byte{0xF0} // first row set, second clear

	rois, err := Import([]imagej.Roi{ov}, ImportOptions{})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	m, ok := rois[0].Shapes()[0].(*roi.Mask)
	if !ok {
		t.Fatalf("imported shape is %T, want *roi.Mask", rois[0].Shapes()[0])
	}
	if !m.Get(0, 0) || !m.Get(3, 0) || m.Get(0, 1) {
		t.Fatal("mask bits do not match the packed payload")
	}
}

func TestExportRotatedRectangleFallsBackToPolygon(t *testing.T) {
	rect, err := roi.NewRectangle(0, 0, 4, 2)
	if err != nil {
		t.Fatalf("rectangle: %v", err)
	}
	roi.ApplyTransform(rect, geom.Rotation(math.Pi/4))
	r := roi.New(0)
	if err := r.Add(rect); err != nil {
		t.Fatalf("add: %v", err)
	}

	out, err := Export([]*roi.ROI{r}, ExportOptions{})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if out[0].Kind != imagej.KindPolygon {
		t.Fatalf("rotated rectangle exported as %v, want polygon", out[0].Kind)
	}
	if len(out[0].Points) != 4 {
		t.Fatalf("polygon fallback has %d points, want 4", len(out[0].Points))
	}
}

func TestExportScaledRectangleStaysRectangle(t *testing.T) {
	rect, err := roi.NewRectangle(1, 1, 2, 3)
	if err != nil {
		t.Fatalf("rectangle: %v", err)
	}
	roi.ApplyTransform(rect, geom.Scaling(2, 2))
	r := roi.New(0)
	if err := r.Add(rect); err != nil {
		t.Fatalf("add: %v", err)
	}

	out, err := Export([]*roi.ROI{r}, ExportOptions{})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	fr := out[0]
	if fr.Kind != imagej.KindRectangle {
		t.Fatalf("scaled rectangle exported as %v", fr.Kind)
	}
	if !near(fr.X, 2) || !near(fr.Y, 2) || !near(fr.W, 4) || !near(fr.H, 6) {
		t.Fatalf("scaled rectangle = (%v,%v,%v,%v)", fr.X, fr.Y, fr.W, fr.H)
	}
}

func TestExportGroupUsesSavedID(t *testing.T) {
	p := roi.NewPoint(1, 1)
	r := roi.New(0)
	if err := r.Add(p); err != nil {
		t.Fatalf("add: %v", err)
	}
	r.MarkSaved(99)

	out, err := Export([]*roi.ROI{r}, ExportOptions{})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if v, _ := out[0].Prop(DefaultGroupKey); v != "99" {
		t.Fatalf("group value = %q, want \"99\"", v)
	}
}

func TestExportTextAndLabel(t *testing.T) {
	txt := roi.NewText(5, 6, "hello", 12)
	txt.SetLabel("caption")
	r := roi.New(0)
	if err := r.Add(txt); err != nil {
		t.Fatalf("add: %v", err)
	}

	out, err := Export([]*roi.ROI{r}, ExportOptions{})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	fr := out[0]
	if fr.Kind != imagej.KindText || fr.Text != "hello" || fr.FontSize != 12 {
		t.Fatalf("text export = %+v", fr)
	}
	if fr.Name != "caption" {
		t.Fatalf("label export = %q", fr.Name)
	}
}

func TestCustomGroupKey(t *testing.T) {
	a := imagej.NewRoi(imagej.KindPoint)
	a.X, a.Y = 1, 1
	a.SetProp("cluster", "3")
	b := imagej.NewRoi(imagej.KindPoint)
	b.X, b.Y = 2, 2
	b.SetProp("cluster", "3")

	rois, err := Import([]imagej.Roi{a, b}, ImportOptions{GroupKey: "cluster"})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(rois) != 1 {
		t.Fatalf("roi count = %d, want 1", len(rois))
	}

	out, err := Export(rois, ExportOptions{GroupKey: "cluster"})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if _, ok := out[0].Prop("cluster"); !ok {
		t.Fatal("exported region lacks the custom group property")
	}
}

func TestExportEllipseSegmentsOption(t *testing.T) {
	el, err := roi.NewEllipse(5, 5, 4, 2)
	if err != nil {
		t.Fatalf("ellipse: %v", err)
	}
	roi.ApplyTransform(el, geom.Rotation(math.Pi/4))
	r := roi.New(0)
	if err := r.Add(el); err != nil {
		t.Fatalf("add: %v", err)
	}

	out, err := Export([]*roi.ROI{r}, ExportOptions{EllipseSegments: 8})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if out[0].Kind != imagej.KindPolygon {
		t.Fatalf("rotated ellipse exported as %v, want polygon", out[0].Kind)
	}
	if len(out[0].Points) != 8 {
		t.Fatalf("outline has %d points, want 8", len(out[0].Points))
	}

	out, err = Export([]*roi.ROI{r}, ExportOptions{})
	if err != nil {
		t.Fatalf("export with defaults: %v", err)
	}
	if len(out[0].Points) != roi.DefaultEllipseSegments {
		t.Fatalf("default outline has %d points, want %d", len(out[0].Points), roi.DefaultEllipseSegments)
	}
}
