/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package render

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jung-kurt/gofpdf"

	"roibridge/internal/geom"
	"roibridge/internal/roi"
)

// PDFOptions controls vector export behavior. Units are points (pt) with a
// 1:1 mapping from image pixels, page origin top-left.
type PDFOptions struct {
	Title       string
	StrokeWidth float64 // default 1pt
	// Plane restricts export the same way OverlayOptions.Plane does.
	Plane *roi.Plane
}

// ExportPDF writes one single-page vector rendering of the ROIs to outPath.
// The page spans the given image size in points.
func ExportPDF(outPath string, imageW, imageH float64, rois []*roi.ROI, opt PDFOptions) error {
	if imageW <= 0 || imageH <= 0 {
		return fmt.Errorf("page size %gx%g is not positive", imageW, imageH)
	}
	sw := opt.StrokeWidth
	if sw <= 0 {
		sw = 1
	}

	// Points give a 1:1 mapping from the model to the PDF.
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: imageW, Ht: imageH},
		OrientationStr: "",
	})
	if opt.Title != "" {
		pdf.SetTitle(opt.Title, false)
	}
	// Built-in Helvetica keeps labels vector without embedding
	pdf.SetFont("Helvetica", "", 12)
	pdf.AddPageFormat("", gofpdf.SizeType{Wd: imageW, Ht: imageH})
	pdf.SetDrawColor(255, 0, 0)
	pdf.SetLineWidth(sw)

	for _, r := range rois {
		for _, s := range r.Shapes() {
			if !onPlane(s, opt.Plane) {
				continue
			}
			drawShapePDF(pdf, s)
		}
	}

	if dir := filepath.Dir(outPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("ensure out dir: %w", err)
		}
	}
	if err := pdf.OutputFileAndClose(outPath); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func drawShapePDF(pdf *gofpdf.Fpdf, s roi.Shape) {
	xf := s.Transform()
	identity := xf.IsIdentity(0)

	switch v := s.(type) {
	case *roi.Point:
		p := xf.Apply(geom.Pt{X: v.X, Y: v.Y})
		pdf.Circle(p.X, p.Y, 2, "D")
	case *roi.Text:
		p := xf.Apply(geom.Pt{X: v.X, Y: v.Y})
		size := v.FontSize
		if size <= 0 {
			size = 12
		}
		pdf.SetFont("Helvetica", "", size)
		pdf.Text(p.X, p.Y, v.Value)
	case *roi.Rectangle:
		if identity {
			pdf.Rect(v.X, v.Y, v.W, v.H, "D")
		} else {
			drawPolygonPDF(pdf, s.PolygonApprox(), true)
		}
	case *roi.Ellipse:
		if identity {
			pdf.Ellipse(v.X, v.Y, v.RX, v.RY, 0, "D")
		} else {
			drawPolygonPDF(pdf, s.PolygonApprox(), true)
		}
	case *roi.Line:
		pts := s.PolygonApprox()
		pdf.Line(pts[0].X, pts[0].Y, pts[1].X, pts[1].Y)
	case *roi.Polyline:
		drawPolygonPDF(pdf, s.PolygonApprox(), false)
	case *roi.Polygon:
		drawPolygonPDF(pdf, s.PolygonApprox(), true)
	case *roi.Mask:
		// The bitmap itself is raster data; the PDF carries its outline.
		b := s.Bounds()
		pdf.Rect(b.X, b.Y, b.W, b.H, "D")
	}
}

func drawPolygonPDF(pdf *gofpdf.Fpdf, pts []geom.Pt, closed bool) {
	if len(pts) < 2 {
		return
	}
	pdf.MoveTo(pts[0].X, pts[0].Y)
	for _, p := range pts[1:] {
		pdf.LineTo(p.X, p.Y)
	}
	if closed {
		pdf.ClosePath()
	}
	pdf.DrawPath("D")
}
