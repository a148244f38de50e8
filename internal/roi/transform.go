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
	"fmt"

	"roibridge/internal/geom"
)

// identityEps bounds the drift tolerated when deciding a transform is the
// identity.
const identityEps = 1e-12

// ApplyTransform composes m into the shape's transform. New transforms
// right-multiply: m acts on the raw geometry first, the pre-existing
// transform second.
func ApplyTransform(s Shape, m geom.Affine) {
	s.SetTransform(s.Transform().Compose(m))
}

// UndoTransform composes the inverse of m into the shape's transform.
// A singular m is surfaced as ErrShapeGeometry.
func UndoTransform(s Shape, m geom.Affine) error {
	inv, err := m.Inverse()
	if err != nil {
		if errors.Is(err, geom.ErrSingular) {
			return fmt.Errorf("%w: %v", ErrShapeGeometry, err)
		}
		return err
	}
	ApplyTransform(s, inv)
	return nil
}

// Bake folds the shape's transform into its geometry where that is exactly
// representable, leaving the transform at identity. Point-backed variants
// always bake. Rectangle and Ellipse bake for axis-aligned transforms
// (no shear or rotation, non-negative scale); Mask only for pure
// translation, since its raster dimensions are fixed. Anything else is
// reported as ErrShapeGeometry and the shape is left untouched.
func Bake(s Shape) error {
	m := s.Transform()
	if m.IsIdentity(identityEps) {
		return nil
	}
	switch v := s.(type) {
	case *Point:
		p := m.Apply(geom.Pt{X: v.X, Y: v.Y})
		v.X, v.Y = p.X, p.Y
	case *Text:
		p := m.Apply(geom.Pt{X: v.X, Y: v.Y})
		v.X, v.Y = p.X, p.Y
	case *Line:
		p1 := m.Apply(geom.Pt{X: v.X1, Y: v.Y1})
		p2 := m.Apply(geom.Pt{X: v.X2, Y: v.Y2})
		v.X1, v.Y1, v.X2, v.Y2 = p1.X, p1.Y, p2.X, p2.Y
	case *Polyline:
		v.Points = m.ApplyAll(v.Points)
	case *Polygon:
		v.Points = m.ApplyAll(v.Points)
	case *Rectangle:
		if !axisAligned(m) {
			return fmt.Errorf("%w: cannot bake rotated/sheared transform into a rectangle", ErrShapeGeometry)
		}
		p := m.Apply(geom.Pt{X: v.X, Y: v.Y})
		v.X, v.Y = p.X, p.Y
		v.W *= m.A
		v.H *= m.D
	case *Ellipse:
		if !axisAligned(m) {
			return fmt.Errorf("%w: cannot bake rotated/sheared transform into an ellipse", ErrShapeGeometry)
		}
		p := m.Apply(geom.Pt{X: v.X, Y: v.Y})
		v.X, v.Y = p.X, p.Y
		v.RX *= m.A
		v.RY *= m.D
	case *Mask:
		if !translationOnly(m) {
			return fmt.Errorf("%w: mask raster admits translation only", ErrShapeGeometry)
		}
		v.X += m.TX
		v.Y += m.TY
	default:
		return fmt.Errorf("%w: kind %s", ErrUnsupportedShape, s.Kind())
	}
	s.SetTransform(geom.Identity())
	return nil
}

// axisAligned reports a transform with no rotation or shear and
// non-negative scale.
func axisAligned(m geom.Affine) bool {
	return m.B == 0 && m.C == 0 && m.A >= 0 && m.D >= 0
}

func translationOnly(m geom.Affine) bool {
	return m.A == 1 && m.B == 0 && m.C == 0 && m.D == 1
}
