/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package render draws ROI overlays for quick visual inspection: a raster
// PNG for screen use and a vector PDF for print. Rendering is lossy by
// nature and never feeds back into the model.
package render

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	xdraw "golang.org/x/image/draw"

	"roibridge/internal/geom"
	"roibridge/internal/roi"
)

// OverlayOptions controls raster rendering.
type OverlayOptions struct {
	// Width and Height fix the canvas size in pixels. When zero the canvas
	// is sized to the ROI bounds plus a small margin.
	Width  int
	Height int
	// Scale resamples the finished overlay. Zero or one means no scaling.
	Scale float64
	// Stroke is the outline color. Zero value means opaque red.
	Stroke color.RGBA
	// Plane restricts rendering to shapes attached to the given plane.
	// Shapes attached to every plane always render. Nil renders everything.
	Plane *roi.Plane
}

const overlayMargin = 8

// RenderOverlay rasterizes ROI outlines onto a transparent canvas.
func RenderOverlay(rois []*roi.ROI, opt OverlayOptions) (*image.RGBA, error) {
	stroke := opt.Stroke
	if stroke == (color.RGBA{}) {
		stroke = color.RGBA{R: 255, A: 255}
	}

	offX, offY := 0.0, 0.0
	w, h := opt.Width, opt.Height
	if w == 0 || h == 0 {
		b, ok := totalBounds(rois)
		if !ok {
			return nil, fmt.Errorf("no shapes to render and no canvas size given")
		}
		offX = -(b.X - overlayMargin)
		offY = -(b.Y - overlayMargin)
		w = int(math.Ceil(b.W)) + 2*overlayMargin
		h = int(math.Ceil(b.H)) + 2*overlayMargin
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for _, r := range rois {
		for _, s := range r.Shapes() {
			if !onPlane(s, opt.Plane) {
				continue
			}
			drawShape(img, s, offX, offY, stroke)
		}
	}

	if opt.Scale > 0 && opt.Scale != 1 {
		sw := int(math.Round(float64(w) * opt.Scale))
		sh := int(math.Round(float64(h) * opt.Scale))
		scaled := image.NewRGBA(image.Rect(0, 0, sw, sh))
		xdraw.CatmullRom.Scale(scaled, scaled.Bounds(), img, img.Bounds(), xdraw.Over, nil)
		img = scaled
	}
	return img, nil
}

// SaveOverlayPNG renders and writes the overlay to path. The format follows
// the file extension, so .png is the usual choice.
func SaveOverlayPNG(path string, rois []*roi.ROI, opt OverlayOptions) error {
	img, err := RenderOverlay(rois, opt)
	if err != nil {
		return err
	}
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("save overlay: %w", err)
	}
	return nil
}

func totalBounds(rois []*roi.ROI) (geom.Rect, bool) {
	var b geom.Rect
	found := false
	for _, r := range rois {
		if r.Len() == 0 {
			continue
		}
		rb := r.Bounds()
		if !found {
			b = rb
			found = true
		} else {
			b = b.Union(rb)
		}
	}
	return b, found
}

func onPlane(s roi.Shape, sel *roi.Plane) bool {
	if sel == nil {
		return true
	}
	p := s.Plane()
	match := func(have, want int) bool {
		return have == roi.AllPlanes || want == roi.AllPlanes || have == want
	}
	return match(p.C, sel.C) && match(p.Z, sel.Z) && match(p.T, sel.T)
}

func drawShape(img *image.RGBA, s roi.Shape, offX, offY float64, stroke color.RGBA) {
	switch v := s.(type) {
	case *roi.Point:
		p := s.Transform().Apply(geom.Pt{X: v.X, Y: v.Y})
		drawCross(img, p.X+offX, p.Y+offY, stroke)
	case *roi.Text:
		// Glyph rendering is out of scope; the anchor gets a marker so the
		// annotation stays visible.
		p := s.Transform().Apply(geom.Pt{X: v.X, Y: v.Y})
		drawCross(img, p.X+offX, p.Y+offY, stroke)
	case *roi.Mask:
		drawMask(img, v, offX, offY, stroke)
	case *roi.Line, *roi.Polyline:
		drawPath(img, s.PolygonApprox(), false, offX, offY, stroke)
	default:
		drawPath(img, s.PolygonApprox(), true, offX, offY, stroke)
	}
}

func drawMask(img *image.RGBA, m *roi.Mask, offX, offY float64, stroke color.RGBA) {
	xf := m.Transform()
	for row := 0; row < m.H; row++ {
		for col := 0; col < m.W; col++ {
			if !m.Get(col, row) {
				continue
			}
			p := xf.Apply(geom.Pt{X: m.X + float64(col), Y: m.Y + float64(row)})
			img.SetRGBA(int(math.Round(p.X+offX)), int(math.Round(p.Y+offY)), stroke)
		}
	}
}

func drawPath(img *image.RGBA, pts []geom.Pt, closed bool, offX, offY float64, stroke color.RGBA) {
	if len(pts) == 0 {
		return
	}
	for i := 0; i+1 < len(pts); i++ {
		drawSegment(img, pts[i].X+offX, pts[i].Y+offY, pts[i+1].X+offX, pts[i+1].Y+offY, stroke)
	}
	if closed && len(pts) > 2 {
		last := pts[len(pts)-1]
		drawSegment(img, last.X+offX, last.Y+offY, pts[0].X+offX, pts[0].Y+offY, stroke)
	}
}

func drawCross(img *image.RGBA, x, y float64, stroke color.RGBA) {
	cx, cy := int(math.Round(x)), int(math.Round(y))
	for d := -2; d <= 2; d++ {
		img.SetRGBA(cx+d, cy, stroke)
		img.SetRGBA(cx, cy+d, stroke)
	}
}

// drawSegment plots one line segment by stepping along its longer axis.
func drawSegment(img *image.RGBA, x1, y1, x2, y2 float64, stroke color.RGBA) {
	dx, dy := x2-x1, y2-y1
	steps := int(math.Max(math.Abs(dx), math.Abs(dy))) + 1
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		img.SetRGBA(int(math.Round(x1+t*dx)), int(math.Round(y1+t*dy)), stroke)
	}
}
