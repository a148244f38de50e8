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

// Status tracks the ROI lifecycle against the external store.
type Status uint8

const (
	// StatusNew: constructed in memory, no id yet.
	StatusNew Status = iota
	// StatusSaved: persisted by the external collaborator, id assigned.
	StatusSaved
	// StatusModified: mutated after save; needs re-persisting.
	StatusModified
)

func (s Status) String() string {
	switch s {
	case StatusNew:
		return "new"
	case StatusSaved:
		return "saved"
	case StatusModified:
		return "modified"
	default:
		return "unknown"
	}
}

// ROI is an ordered aggregate of shapes annotating one image. Shapes within
// one ROI need not share a plane position. A shape belongs to exactly one
// ROI at a time; reparenting is remove-then-add.
type ROI struct {
	id      int64
	imageID int64
	name    string
	shapes  []Shape
	status  Status
}

// New constructs an in-memory ROI targeting the given image.
func New(imageID int64) *ROI {
	return &ROI{imageID: imageID, status: StatusNew}
}

// ID returns the persisted id, or 0 while the ROI is new.
func (r *ROI) ID() int64       { return r.id }
func (r *ROI) ImageID() int64  { return r.imageID }
func (r *ROI) Name() string    { return r.name }
func (r *ROI) Status() Status  { return r.status }
func (r *ROI) Len() int        { return len(r.shapes) }
func (r *ROI) SetName(s string) { r.name = s }

// Shapes returns the shapes in insertion order. The slice is a copy; the
// shapes are shared.
func (r *ROI) Shapes() []Shape { return append([]Shape(nil), r.shapes...) }

// Add appends a shape. A shape owned by another ROI is rejected.
func (r *ROI) Add(s Shape) error {
	if s == nil {
		return errors.New("roi: nil shape")
	}
	a := s.meta()
	if a.owner != nil && a.owner != r {
		return fmt.Errorf("%w: shape of kind %s", ErrShapeOwned, s.Kind())
	}
	if a.owner == r {
		return nil
	}
	a.owner = r
	r.shapes = append(r.shapes, s)
	r.touch()
	return nil
}

// Remove detaches a shape, releasing ownership.
func (r *ROI) Remove(s Shape) error {
	if s == nil {
		return errors.New("roi: nil shape")
	}
	for i, have := range r.shapes {
		if have == s {
			r.shapes = append(r.shapes[:i], r.shapes[i+1:]...)
			s.meta().owner = nil
			r.touch()
			return nil
		}
	}
	return fmt.Errorf("roi: shape of kind %s not in this ROI", s.Kind())
}

// Bounds returns the union of all shape bounds.
func (r *ROI) Bounds() geom.Rect {
	var b geom.Rect
	for i, s := range r.shapes {
		if i == 0 {
			b = s.Bounds()
			continue
		}
		b = b.Union(s.Bounds())
	}
	return b
}

// MarkSaved records the id assigned by the external store. Used by store
// implementations after a successful save.
func (r *ROI) MarkSaved(id int64) {
	r.id = id
	r.status = StatusSaved
}

// touch transitions a saved ROI to modified.
func (r *ROI) touch() {
	if r.status == StatusSaved {
		r.status = StatusModified
	}
}
