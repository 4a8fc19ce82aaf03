// Copyright 2026 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package proctable implements a fixed-size table that hands out small
// integer identifiers for kernel objects such as threads and user processes.
//
// Identifiers are allocated lowest-first, so an identifier released by
// Remove is the next one handed out by Add.
package proctable

import (
	"v.io/v23/verror"
)

// DefaultSize is the number of slots in a table created with a size of 0.
const DefaultSize = 1000

var (
	ErrTableFull = verror.NewID("TableFull")
)

// SpaceID identifies an entry in a Table.
type SpaceID int

// Table is a fixed-size table of entries of type T. The zero value of T
// marks a free slot and may not be stored. A Table is not safe for
// concurrent use; the kernel only touches it with interrupts disabled.
type Table[T comparable] struct {
	slots []T
	used  int
}

// New returns a table with room for size entries.
func New[T comparable](size int) *Table[T] {
	if size <= 0 {
		size = DefaultSize
	}
	return &Table[T]{slots: make([]T, size)}
}

// Add stores v in the lowest free slot and returns its identifier.
func (t *Table[T]) Add(v T) (SpaceID, error) {
	var zero T
	for i, s := range t.slots {
		if s == zero {
			t.slots[i] = v
			t.used++
			return SpaceID(i), nil
		}
	}
	return -1, ErrTableFull.Errorf(nil, "all %d slots are in use", len(t.slots))
}

// Remove frees the slot identified by id. Out of range or free identifiers
// are ignored.
func (t *Table[T]) Remove(id SpaceID) {
	var zero T
	if id < 0 || int(id) >= len(t.slots) || t.slots[id] == zero {
		return
	}
	t.slots[id] = zero
	t.used--
}

// Get returns the entry stored under id.
func (t *Table[T]) Get(id SpaceID) (T, bool) {
	var zero T
	if id < 0 || int(id) >= len(t.slots) {
		return zero, false
	}
	v := t.slots[id]
	return v, v != zero
}

// Len returns the number of slots in use.
func (t *Table[T]) Len() int {
	return t.used
}

// Cap returns the number of slots in the table.
func (t *Table[T]) Cap() int {
	return len(t.slots)
}

// Each calls f for every entry in increasing order of identifier.
func (t *Table[T]) Each(f func(id SpaceID, v T)) {
	var zero T
	for i, s := range t.slots {
		if s != zero {
			f(SpaceID(i), s)
		}
	}
}
