/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geom

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// FitAffine computes the least-squares affine transform mapping src points
// onto dst points. At least 3 non-collinear correspondences are required;
// with exactly 3 the system is solved directly, with more it is solved via QR.
// Callers use this to align an imported ROI set against landmarks of a second
// image.
func FitAffine(src, dst []Pt) (Affine, error) {
	if len(src) != len(dst) {
		return Affine{}, fmt.Errorf("point count mismatch: %d vs %d", len(src), len(dst))
	}
	n := len(src)
	if n < 3 {
		return Affine{}, fmt.Errorf("need at least 3 points, got %d", n)
	}

	// Build the (over)determined system: [x', y'] = [a b tx; c d ty] * [x y 1]
	A := mat.NewDense(n*2, 6, nil)
	B := mat.NewVecDense(n*2, nil)
	for i := 0; i < n; i++ {
		x, y := src[i].X, src[i].Y
		xp, yp := dst[i].X, dst[i].Y

		A.Set(i*2, 0, x)
		A.Set(i*2, 1, y)
		A.Set(i*2, 2, 1)
		B.SetVec(i*2, xp)

		A.Set(i*2+1, 3, x)
		A.Set(i*2+1, 4, y)
		A.Set(i*2+1, 5, 1)
		B.SetVec(i*2+1, yp)
	}

	var qr mat.QR
	qr.Factorize(A)

	var params mat.VecDense
	if err := qr.SolveVecTo(&params, false, B); err != nil {
		return Affine{}, fmt.Errorf("solve affine system: %w", err)
	}

	return Affine{
		A: params.AtVec(0), B: params.AtVec(1), TX: params.AtVec(2),
		C: params.AtVec(3), D: params.AtVec(4), TY: params.AtVec(5),
	}, nil
}

// FitError returns the mean distance between transformed src points and dst
// points under the given transform.
func FitError(src, dst []Pt, t Affine) float64 {
	if len(src) != len(dst) || len(src) == 0 {
		return 0
	}
	var total float64
	for i := range src {
		total += t.Apply(src[i]).Distance(dst[i])
	}
	return total / float64(len(src))
}
