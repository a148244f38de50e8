/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package geom provides the 2-D primitives shared by the ROI model and the
// converters: points, axis-aligned rectangles and 2x3 affine transforms.
// Coordinates are float64 to match the server-side annotation model.
package geom

import (
	"errors"
	"math"
)

// ErrSingular is returned when a transform cannot be inverted.
var ErrSingular = errors.New("geom: singular transform")

// Pt is a 2-D point.
type Pt struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// P is shorthand for constructing a point.
func P(x, y float64) Pt { return Pt{X: x, Y: y} }

// Distance returns the Euclidean distance to another point.
func (p Pt) Distance(o Pt) float64 {
	dx := p.X - o.X
	dy := p.Y - o.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Rect is an axis-aligned rectangle defined by min corner and size.
type Rect struct {
	X, Y float64
	W, H float64
}

func R(x, y, w, h float64) Rect { return Rect{X: x, Y: y, W: w, H: h} }

func (r Rect) Min() Pt { return Pt{r.X, r.Y} }
func (r Rect) Max() Pt { return Pt{r.X + r.W, r.Y + r.H} }

// Center returns the center point of the rectangle.
func (r Rect) Center() Pt { return Pt{r.X + r.W/2, r.Y + r.H/2} }

func (r Rect) Contains(p Pt) bool {
	return p.X >= r.X && p.Y >= r.Y && p.X <= r.X+r.W && p.Y <= r.Y+r.H
}

// Union returns the minimal rect containing both.
func (r Rect) Union(o Rect) Rect {
	minX := math.Min(r.X, o.X)
	minY := math.Min(r.Y, o.Y)
	maxX := math.Max(r.X+r.W, o.X+o.W)
	maxY := math.Max(r.Y+r.H, o.Y+o.H)
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

// Corners returns the four corner points in clockwise order from the min
// corner.
func (r Rect) Corners() []Pt {
	return []Pt{
		{r.X, r.Y},
		{r.X + r.W, r.Y},
		{r.X + r.W, r.Y + r.H},
		{r.X, r.Y + r.H},
	}
}

// Affine represents a 2x3 affine transformation matrix
//
//	[a b tx]
//	[c d ty]
//
// applied as x' = a*x + b*y + tx, y' = c*x + d*y + ty.
type Affine struct {
	A, B, TX float64
	C, D, TY float64
}

// Identity returns the identity transform.
func Identity() Affine { return Affine{A: 1, D: 1} }

// Translation returns a translation transform.
func Translation(tx, ty float64) Affine { return Affine{A: 1, D: 1, TX: tx, TY: ty} }

// Rotation returns a rotation transform around the origin.
func Rotation(radians float64) Affine {
	cos := math.Cos(radians)
	sin := math.Sin(radians)
	return Affine{A: cos, B: -sin, C: sin, D: cos}
}

// Scaling returns a scaling transform.
func Scaling(sx, sy float64) Affine { return Affine{A: sx, D: sy} }

// IsIdentity reports whether the transform is the identity within eps.
func (t Affine) IsIdentity(eps float64) bool {
	return math.Abs(t.A-1) <= eps && math.Abs(t.B) <= eps && math.Abs(t.TX) <= eps &&
		math.Abs(t.C) <= eps && math.Abs(t.D-1) <= eps && math.Abs(t.TY) <= eps
}

// Apply applies the transform to a point.
func (t Affine) Apply(p Pt) Pt {
	return Pt{
		X: t.A*p.X + t.B*p.Y + t.TX,
		Y: t.C*p.X + t.D*p.Y + t.TY,
	}
}

// ApplyAll applies the transform to every point, returning a new slice.
func (t Affine) ApplyAll(pts []Pt) []Pt {
	out := make([]Pt, len(pts))
	for i, p := range pts {
		out[i] = t.Apply(p)
	}
	return out
}

// Compose returns this transform composed with another (this * other), so the
// other transform is applied first.
func (t Affine) Compose(other Affine) Affine {
	return Affine{
		A:  t.A*other.A + t.B*other.C,
		B:  t.A*other.B + t.B*other.D,
		TX: t.A*other.TX + t.B*other.TY + t.TX,
		C:  t.C*other.A + t.D*other.C,
		D:  t.C*other.B + t.D*other.D,
		TY: t.C*other.TX + t.D*other.TY + t.TY,
	}
}

// Inverse returns the inverse transform. A near-zero determinant yields
// ErrSingular.
func (t Affine) Inverse() (Affine, error) {
	det := t.A*t.D - t.B*t.C
	if math.Abs(det) < 1e-12 {
		return Affine{}, ErrSingular
	}
	invDet := 1.0 / det
	return Affine{
		A:  t.D * invDet,
		B:  -t.B * invDet,
		TX: (t.B*t.TY - t.D*t.TX) * invDet,
		C:  -t.C * invDet,
		D:  t.A * invDet,
		TY: (t.C*t.TX - t.A*t.TY) * invDet,
	}, nil
}

// ToMatrix returns the transform as [[a b tx],[c d ty]].
func (t Affine) ToMatrix() [2][3]float64 {
	return [2][3]float64{
		{t.A, t.B, t.TX},
		{t.C, t.D, t.TY},
	}
}

// FromMatrix creates an Affine from a [[a b tx],[c d ty]] array.
func FromMatrix(m [2][3]float64) Affine {
	return Affine{
		A: m[0][0], B: m[0][1], TX: m[0][2],
		C: m[1][0], D: m[1][1], TY: m[1][2],
	}
}

// BoundingBox computes the axis-aligned bounding box of a set of points.
func BoundingBox(points []Pt) Rect {
	if len(points) == 0 {
		return Rect{}
	}
	minX, minY := points[0].X, points[0].Y
	maxX, maxY := minX, minY
	for _, p := range points[1:] {
		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

// EllipsePoints generates n evenly-spaced points along an ellipse outline.
func EllipsePoints(cx, cy, rx, ry float64, n int) []Pt {
	if n < 3 {
		n = 3
	}
	points := make([]Pt, n)
	for i := 0; i < n; i++ {
		angle := float64(i) * 2.0 * math.Pi / float64(n)
		points[i] = Pt{
			X: cx + rx*math.Cos(angle),
			Y: cy + ry*math.Sin(angle),
		}
	}
	return points
}
