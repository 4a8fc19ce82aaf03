// Copyright 2026 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fifo implements the first-in first-out queues used for the ready
// lists and the wait queues of the kernel, using a circular array.
package fifo

const (
	initialQueueSize = 4
)

// Queue is a FIFO queue of comparable elements. The zero value is an empty
// queue ready to use.
type Queue[E comparable] struct {
	contents []E

	// Boundary cases.
	// o If full, size==len and fx==bx
	// o If empty, size==0 and fx==bx
	// o On initialization, contents=nil, size==0, fx==bx.
	size int // Number of elements in the queue.
	fx   int // Index of the first element.
	bx   int // Index one past the last element.
}

// Len returns the number of items in the queue.
func (q *Queue[E]) Len() int {
	return q.size
}

// IsEmpty returns true if the queue holds no elements.
func (q *Queue[E]) IsEmpty() bool {
	return q.size == 0
}

// Clear removes all the elements of the queue.
func (q *Queue[E]) Clear() {
	q.fx = 0
	q.bx = 0
	q.size = 0
	q.contents = nil
}

// Append adds an element to the back of the queue.
func (q *Queue[E]) Append(item E) {
	q.reserve()
	q.contents[q.bx] = item
	q.bx = (q.bx + 1) % len(q.contents)
	q.size++
}

// Front returns the first element of the queue without removing it. ok is
// false if the queue is empty.
func (q *Queue[E]) Front() (item E, ok bool) {
	if q.size == 0 {
		return item, false
	}
	return q.contents[q.fx], true
}

// Remove removes the element at the front of the queue and returns it. ok is
// false if the queue is empty.
func (q *Queue[E]) Remove() (item E, ok bool) {
	if q.size == 0 {
		return item, false
	}
	var zero E
	item = q.contents[q.fx]
	q.contents[q.fx] = zero
	q.fx = (q.fx + 1) % len(q.contents)
	q.size--
	return item, true
}

// FindAndRemove removes the first occurrence of item, preserving the order of
// the remaining elements. It returns false if item is not in the queue.
func (q *Queue[E]) FindAndRemove(item E) bool {
	n := len(q.contents)
	for i := 0; i < q.size; i++ {
		if q.contents[(q.fx+i)%n] != item {
			continue
		}
		for j := i; j < q.size-1; j++ {
			q.contents[(q.fx+j)%n] = q.contents[(q.fx+j+1)%n]
		}
		var zero E
		q.bx = (q.bx + n - 1) % n
		q.contents[q.bx] = zero
		q.size--
		return true
	}
	return false
}

// Contains returns true if item is in the queue.
func (q *Queue[E]) Contains(item E) bool {
	found := false
	q.Iter(func(e E) bool {
		found = e == item
		return !found
	})
	return found
}

// Iter iterates over the elements of the queue from front to back. f should
// return false to terminate the iteration early.
func (q *Queue[E]) Iter(f func(item E) bool) {
	for i := 0; i != q.size; i++ {
		ix := (q.fx + i) % len(q.contents)
		if !f(q.contents[ix]) {
			break
		}
	}
}

// Slice returns the elements of the queue from front to back.
func (q *Queue[E]) Slice() []E {
	r := make([]E, 0, q.size)
	q.Iter(func(e E) bool {
		r = append(r, e)
		return true
	})
	return r
}

// Reserve space for at least one additional element.
func (q *Queue[E]) reserve() {
	if q.size == len(q.contents) {
		if q.contents == nil {
			q.contents = make([]E, initialQueueSize)
			return
		}
		contents := make([]E, q.size*2)
		i := copy(contents, q.contents[q.fx:])
		copy(contents[i:], q.contents[:q.fx])
		q.contents = contents
		q.fx = 0
		q.bx = q.size
	}
}
