/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package roi

import (
	"fmt"

	"roibridge/internal/geom"
)

// Mask is a rectangular bitmap region. The raster is stored as an owned,
// packed bitset, row-major with the most significant bit first; the bit
// stream is continuous across rows (no per-row padding).
type Mask struct {
	attrs
	X, Y float64
	W, H int
	bits []byte
}

// maskBytes returns the packed size for w*h bits.
func maskBytes(w, h int) int { return (w*h + 7) / 8 }

// NewMask builds a mask from a 2-D bitmap. The bitmap must have exactly h
// rows of exactly w cells each; any mismatch fails, never clamps.
func NewMask(x, y float64, w, h int, bitmap [][]bool) (*Mask, error) {
	if w < 0 || h < 0 {
		return nil, fmt.Errorf("%w: mask size %dx%d", ErrInvalidGeometry, w, h)
	}
	if len(bitmap) != h {
		return nil, fmt.Errorf("%w: mask declares %d rows, bitmap has %d", ErrInvalidGeometry, h, len(bitmap))
	}
	bits := make([]byte, maskBytes(w, h))
	for row, cells := range bitmap {
		if len(cells) != w {
			return nil, fmt.Errorf("%w: mask row %d has %d cells, want %d", ErrInvalidGeometry, row, len(cells), w)
		}
		for col, set := range cells {
			if set {
				i := row*w + col
				bits[i/8] |= 1 << (7 - uint(i%8))
			}
		}
	}
	return &Mask{attrs: newAttrs(), X: x, Y: y, W: w, H: h, bits: bits}, nil
}

// NewMaskPacked builds a mask from an already packed bitset. The payload is
// copied; ownership stays with the shape.
func NewMaskPacked(x, y float64, w, h int, bits []byte) (*Mask, error) {
	if w < 0 || h < 0 {
		return nil, fmt.Errorf("%w: mask size %dx%d", ErrInvalidGeometry, w, h)
	}
	if len(bits) != maskBytes(w, h) {
		return nil, fmt.Errorf("%w: mask %dx%d wants %d packed bytes, got %d",
			ErrInvalidGeometry, w, h, maskBytes(w, h), len(bits))
	}
	return &Mask{attrs: newAttrs(), X: x, Y: y, W: w, H: h, bits: append([]byte(nil), bits...)}, nil
}

func (m *Mask) Kind() Kind { return KindMask }

// Get reports whether the cell at (col, row) is set.
func (m *Mask) Get(col, row int) bool {
	if col < 0 || col >= m.W || row < 0 || row >= m.H {
		return false
	}
	i := row*m.W + col
	return m.bits[i/8]&(1<<(7-uint(i%8))) != 0
}

// PackedBits returns a copy of the packed raster.
func (m *Mask) PackedBits() []byte { return append([]byte(nil), m.bits...) }

// Bitmap expands the raster to a 2-D bool array.
func (m *Mask) Bitmap() [][]bool {
	out := make([][]bool, m.H)
	for row := range out {
		cells := make([]bool, m.W)
		for col := range cells {
			cells[col] = m.Get(col, row)
		}
		out[row] = cells
	}
	return out
}

func (m *Mask) controlPoints() []geom.Pt {
	return geom.R(m.X, m.Y, float64(m.W), float64(m.H)).Corners()
}

func (m *Mask) PolygonApprox() []geom.Pt { return approx(m) }
func (m *Mask) Bounds() geom.Rect        { return boundsOf(m) }
