/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package roidoc

import (
	"encoding/base64"
	"fmt"

	"roibridge/internal/geom"
	"roibridge/internal/roi"
)

// SchemaVersion is the current document schema version. Bump on breaking
// changes to the JSON layout.
const SchemaVersion = 1

// Document is the root of the ROI JSON document.
type Document struct {
	SchemaVersion int      `json:"schemaVersion"`
	ImageID       int64    `json:"imageId"`
	ROIs          []ROIDoc `json:"rois"`
}

// ROIDoc is one ROI aggregate in document form.
type ROIDoc struct {
	ID     int64      `json:"id,omitempty"`
	Name   string     `json:"name,omitempty"`
	Shapes []ShapeDoc `json:"shapes"`
}

// ShapeDoc is the JSON form of one shape. Type selects the variant; only the
// fields of that variant are populated.
type ShapeDoc struct {
	Type  string `json:"type"`
	Label string `json:"label,omitempty"`

	C int `json:"c"`
	Z int `json:"z"`
	T int `json:"t"`

	// Row-major affine coefficients [a b tx c d ty]; omitted when identity.
	Transform []float64 `json:"transform,omitempty"`

	X      *float64  `json:"x,omitempty"`
	Y      *float64  `json:"y,omitempty"`
	W      *float64  `json:"w,omitempty"`
	H      *float64  `json:"h,omitempty"`
	RX     *float64  `json:"rx,omitempty"`
	RY     *float64  `json:"ry,omitempty"`
	X1     *float64  `json:"x1,omitempty"`
	Y1     *float64  `json:"y1,omitempty"`
	X2     *float64  `json:"x2,omitempty"`
	Y2     *float64  `json:"y2,omitempty"`
	Points []geom.Pt `json:"points,omitempty"`

	Text     string  `json:"text,omitempty"`
	FontSize float64 `json:"fontSize,omitempty"`

	MarkerStart string `json:"markerStart,omitempty"`
	MarkerEnd   string `json:"markerEnd,omitempty"`

	// Mask payload: packed row-major bits, base64 in JSON, plus pixel size.
	MaskW    int    `json:"maskW,omitempty"`
	MaskH    int    `json:"maskH,omitempty"`
	MaskBits string `json:"maskBits,omitempty"`
}

func f(v float64) *float64 { return &v }

func fv(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

// FromROIs builds a document from in-memory aggregates.
func FromROIs(imageID int64, rois []*roi.ROI) (*Document, error) {
	doc := &Document{SchemaVersion: SchemaVersion, ImageID: imageID}
	for _, r := range rois {
		rd := ROIDoc{ID: r.ID(), Name: r.Name()}
		for _, s := range r.Shapes() {
			sd, err := FromShape(s)
			if err != nil {
				return nil, err
			}
			rd.Shapes = append(rd.Shapes, *sd)
		}
		doc.ROIs = append(doc.ROIs, rd)
	}
	return doc, nil
}

// ToROIs materializes a document back into aggregates. IDs recorded in the
// document are restored, so restored ROIs report themselves as saved.
func (d *Document) ToROIs() ([]*roi.ROI, error) {
	var out []*roi.ROI
	for i, rd := range d.ROIs {
		r := roi.New(d.ImageID)
		r.SetName(rd.Name)
		for j, sd := range rd.Shapes {
			s, err := sd.ToShape()
			if err != nil {
				return nil, fmt.Errorf("roi %d shape %d: %w", i, j, err)
			}
			if err := r.Add(s); err != nil {
				return nil, fmt.Errorf("roi %d shape %d: %w", i, j, err)
			}
		}
		if rd.ID != 0 {
			r.MarkSaved(rd.ID)
		}
		out = append(out, r)
	}
	return out, nil
}

// FromShape converts one shape into document form.
func FromShape(s roi.Shape) (*ShapeDoc, error) {
	sd := &ShapeDoc{Label: s.Label()}
	pl := s.Plane()
	sd.C, sd.Z, sd.T = pl.C, pl.Z, pl.T
	if xf := s.Transform(); !xf.IsIdentity(0) {
		sd.Transform = []float64{xf.A, xf.B, xf.TX, xf.C, xf.D, xf.TY}
	}

	switch v := s.(type) {
	case *roi.Point:
		sd.Type = "point"
		sd.X, sd.Y = f(v.X), f(v.Y)
	case *roi.Text:
		sd.Type = "text"
		sd.X, sd.Y = f(v.X), f(v.Y)
		sd.Text, sd.FontSize = v.Value, v.FontSize
	case *roi.Rectangle:
		sd.Type = "rectangle"
		sd.X, sd.Y, sd.W, sd.H = f(v.X), f(v.Y), f(v.W), f(v.H)
	case *roi.Ellipse:
		sd.Type = "ellipse"
		sd.X, sd.Y, sd.RX, sd.RY = f(v.X), f(v.Y), f(v.RX), f(v.RY)
	case *roi.Line:
		sd.Type = "line"
		sd.X1, sd.Y1, sd.X2, sd.Y2 = f(v.X1), f(v.Y1), f(v.X2), f(v.Y2)
		sd.MarkerStart = markerName(v.MarkerStart)
		sd.MarkerEnd = markerName(v.MarkerEnd)
	case *roi.Polyline:
		sd.Type = "polyline"
		sd.Points = v.Points
	case *roi.Polygon:
		sd.Type = "polygon"
		sd.Points = v.Points
	case *roi.Mask:
		sd.Type = "mask"
		sd.X, sd.Y = f(v.X), f(v.Y)
		sd.MaskW, sd.MaskH = v.W, v.H
		sd.MaskBits = base64.StdEncoding.EncodeToString(v.PackedBits())
	default:
		return nil, fmt.Errorf("%w: %s", roi.ErrUnsupportedShape, s.Kind())
	}
	return sd, nil
}

// ToShape converts document form back into a shape.
func (sd *ShapeDoc) ToShape() (roi.Shape, error) {
	var (
		s   roi.Shape
		err error
	)
	switch sd.Type {
	case "point":
		s = roi.NewPoint(fv(sd.X), fv(sd.Y))
	case "text":
		s = roi.NewText(fv(sd.X), fv(sd.Y), sd.Text, sd.FontSize)
	case "rectangle":
		s, err = roi.NewRectangle(fv(sd.X), fv(sd.Y), fv(sd.W), fv(sd.H))
	case "ellipse":
		s, err = roi.NewEllipse(fv(sd.X), fv(sd.Y), fv(sd.RX), fv(sd.RY))
	case "line":
		l := roi.NewLine(fv(sd.X1), fv(sd.Y1), fv(sd.X2), fv(sd.Y2))
		if l.MarkerStart, err = markerValue(sd.MarkerStart); err != nil {
			return nil, err
		}
		if l.MarkerEnd, err = markerValue(sd.MarkerEnd); err != nil {
			return nil, err
		}
		s = l
	case "polyline":
		s, err = roi.NewPolyline(sd.Points)
	case "polygon":
		s, err = roi.NewPolygon(sd.Points)
	case "mask":
		bits, derr := base64.StdEncoding.DecodeString(sd.MaskBits)
		if derr != nil {
			return nil, fmt.Errorf("decode mask bits: %w", derr)
		}
		s, err = roi.NewMaskPacked(fv(sd.X), fv(sd.Y), sd.MaskW, sd.MaskH, bits)
	default:
		return nil, fmt.Errorf("unknown shape type %q", sd.Type)
	}
	if err != nil {
		return nil, err
	}

	if err := s.SetPlane(roi.Plane{C: sd.C, Z: sd.Z, T: sd.T}); err != nil {
		return nil, err
	}
	s.SetLabel(sd.Label)
	if sd.Transform != nil {
		if len(sd.Transform) != 6 {
			return nil, fmt.Errorf("transform has %d coefficients, want 6", len(sd.Transform))
		}
		t := sd.Transform
		s.SetTransform(geom.Affine{A: t[0], B: t[1], TX: t[2], C: t[3], D: t[4], TY: t[5]})
	}
	return s, nil
}

func markerName(m roi.Marker) string {
	if m == roi.MarkerArrow {
		return "arrow"
	}
	return ""
}

func markerValue(name string) (roi.Marker, error) {
	switch name {
	case "", "none":
		return roi.MarkerNone, nil
	case "arrow":
		return roi.MarkerArrow, nil
	default:
		return roi.MarkerNone, fmt.Errorf("unknown marker %q", name)
	}
}
