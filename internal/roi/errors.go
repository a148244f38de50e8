/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package roi

import "errors"

var (
	// ErrInvalidGeometry reports a degenerate construction: too few points,
	// negative width/height, or a mask raster whose dimensions do not match
	// the declared width/height. Construction fails fast, never clamps.
	ErrInvalidGeometry = errors.New("roi: invalid geometry")

	// ErrShapeGeometry reports a failed geometric operation on an otherwise
	// valid shape, e.g. a singular matrix where inversion is requested. It is
	// surfaced to the caller and never retried locally.
	ErrShapeGeometry = errors.New("roi: shape geometry")

	// ErrUnsupportedShape reports a shape variant a converter cannot
	// represent. None of the current variants trigger it on export; it is
	// reserved for future extension.
	ErrUnsupportedShape = errors.New("roi: unsupported shape")

	// ErrShapeOwned reports an attempt to add a shape that already belongs to
	// another ROI. Ownership is exclusive; reparent by remove-then-add.
	ErrShapeOwned = errors.New("roi: shape already owned")
)
