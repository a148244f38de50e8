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
	"testing"
)

func TestExclusiveOwnership(t *testing.T) {
	a := New(1)
	b := New(1)
	s := NewPoint(5, 5)

	if err := a.Add(s); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if err := a.Add(s); err != nil {
		t.Fatalf("re-adding to the same ROI is a no-op: %v", err)
	}
	if a.Len() != 1 {
		t.Fatalf("duplicate add changed length: %d", a.Len())
	}
	if err := b.Add(s); !errors.Is(err, ErrShapeOwned) {
		t.Fatalf("adding an owned shape must fail, got %v", err)
	}

	// reparent via remove-then-add
	if err := a.Remove(s); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := b.Add(s); err != nil {
		t.Fatalf("add after remove: %v", err)
	}
	if a.Len() != 0 || b.Len() != 1 {
		t.Fatalf("reparenting corrupted lengths: %d %d", a.Len(), b.Len())
	}
}

func TestRemoveUnownedShape(t *testing.T) {
	r := New(1)
	if err := r.Remove(NewPoint(0, 0)); err == nil {
		t.Fatalf("removing a shape the ROI does not hold must fail")
	}
}

func TestLifecycleTransitions(t *testing.T) {
	r := New(7)
	if r.Status() != StatusNew || r.ID() != 0 {
		t.Fatalf("fresh ROI must be new with no id: %v %d", r.Status(), r.ID())
	}

	s := NewPoint(1, 1)
	if err := r.Add(s); err != nil {
		t.Fatalf("add: %v", err)
	}
	if r.Status() != StatusNew {
		t.Fatalf("adding while new keeps status new, got %v", r.Status())
	}

	r.MarkSaved(42)
	if r.Status() != StatusSaved || r.ID() != 42 {
		t.Fatalf("MarkSaved: %v %d", r.Status(), r.ID())
	}

	s2 := NewPoint(2, 2)
	if err := r.Add(s2); err != nil {
		t.Fatalf("add after save: %v", err)
	}
	if r.Status() != StatusModified {
		t.Fatalf("mutation after save must mark modified, got %v", r.Status())
	}
}

func TestROIBoundsUnion(t *testing.T) {
	r := New(1)
	a, _ := NewRectangle(0, 0, 2, 2)
	b, _ := NewRectangle(5, 5, 1, 1)
	if err := r.Add(a); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := r.Add(b); err != nil {
		t.Fatalf("add: %v", err)
	}
	u := r.Bounds()
	if u.X != 0 || u.Y != 0 || u.W != 6 || u.H != 6 {
		t.Fatalf("unexpected union bounds: %+v", u)
	}
}

func TestShapesReturnsCopy(t *testing.T) {
	r := New(1)
	_ = r.Add(NewPoint(1, 1))
	shapes := r.Shapes()
	shapes[0] = nil
	if r.Shapes()[0] == nil {
		t.Fatalf("Shapes must return a defensive copy of the slice")
	}
}
