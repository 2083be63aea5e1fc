// Package rangebuffer implements a linear arena of elements with keyed
// inserts, free-range reuse, and dirty-range tracking, the structure the
// GPU-visible serialised image is built on top of.
package rangebuffer

import (
	"errors"
	"sort"
)

// ErrCapacityExceeded is returned by Insert on a fixed-capacity buffer that
// has no free range large enough and has no room left to grow.
var ErrCapacityExceeded = errors.New("rangebuffer: capacity exceeded")

// Range is a half-open [Start, Start+Length) span measured in elements.
type Range struct {
	Start, Length int
}

func (r Range) end() int { return r.Start + r.Length }

// RangeBuffer is a growable (or, if constructed with a fixed capacity,
// bounded) arena of T, keyed by an opaque uint64 so callers can insert,
// overwrite, and remove byte ranges by name without tracking offsets
// themselves.
type RangeBuffer[T any] struct {
	data  []T
	fixed bool

	freeRanges    []Range
	updatedRanges []Range
	keyToRange    map[uint64]Range
}

// New returns an empty, growable range buffer.
func New[T any]() *RangeBuffer[T] {
	return &RangeBuffer[T]{keyToRange: make(map[uint64]Range)}
}

// WithCapacity returns a range buffer pre-sized to n zero-valued elements,
// with a single free range spanning the whole buffer. Unlike New, this
// buffer never grows: Insert fails with ErrCapacityExceeded once no free
// range is large enough.
func WithCapacity[T any](n int) *RangeBuffer[T] {
	rb := &RangeBuffer[T]{
		data:       make([]T, n),
		fixed:      true,
		keyToRange: make(map[uint64]Range),
	}
	if n > 0 {
		rb.freeRanges = []Range{{Start: 0, Length: n}}
	}
	return rb
}

// Len returns the current buffer length in elements.
func (rb *RangeBuffer[T]) Len() int { return len(rb.data) }

// Bytes returns the backing slice. Callers must not retain it across a
// mutating call.
func (rb *RangeBuffer[T]) Bytes() []T { return rb.data }

// DirtyRanges returns the spans written since the last call to ClearDirty.
func (rb *RangeBuffer[T]) DirtyRanges() []Range { return rb.updatedRanges }

// ClearDirty drops the accumulated dirty-range list, e.g. after a flush.
func (rb *RangeBuffer[T]) ClearDirty() { rb.updatedRanges = nil }

// RangeFor returns the current (start, length) for key, if present.
func (rb *RangeBuffer[T]) RangeFor(key uint64) (Range, bool) {
	r, ok := rb.keyToRange[key]
	return r, ok
}

// Insert writes value under key, reusing the lowest-offset free range large
// enough to hold it, or appending if none fits. If key already holds a
// range, that range is freed first. Returns the offset the data was
// written at.
func (rb *RangeBuffer[T]) Insert(key uint64, value []T) (int, error) {
	if old, ok := rb.keyToRange[key]; ok {
		rb.freeRange(old)
		delete(rb.keyToRange, key)
	}

	n := len(value)
	offset, err := rb.reserve(n)
	if err != nil {
		return 0, err
	}

	copy(rb.data[offset:offset+n], value)
	rb.keyToRange[key] = Range{Start: offset, Length: n}
	rb.markDirty(Range{Start: offset, Length: n})
	return offset, nil
}

// reserve finds or creates a run of n elements and returns its offset.
func (rb *RangeBuffer[T]) reserve(n int) (int, error) {
	if n == 0 {
		return 0, nil
	}
	for i, r := range rb.freeRanges {
		if r.Length >= n {
			offset := r.Start
			remaining := Range{Start: r.Start + n, Length: r.Length - n}
			if remaining.Length == 0 {
				rb.freeRanges = append(rb.freeRanges[:i], rb.freeRanges[i+1:]...)
			} else {
				rb.freeRanges[i] = remaining
			}
			return offset, nil
		}
	}
	if rb.fixed {
		return 0, ErrCapacityExceeded
	}
	offset := len(rb.data)
	var zero T
	for i := 0; i < n; i++ {
		rb.data = append(rb.data, zero)
	}
	return offset, nil
}

// Remove frees key's range, if any, returning whether it existed.
func (rb *RangeBuffer[T]) Remove(key uint64) bool {
	r, ok := rb.keyToRange[key]
	if !ok {
		return false
	}
	delete(rb.keyToRange, key)
	rb.freeRange(r)
	return true
}

func (rb *RangeBuffer[T]) freeRange(r Range) {
	if r.Length == 0 {
		return
	}
	rb.freeRanges = append(rb.freeRanges, r)
	rb.mergeFreeRanges()
}

// mergeFreeRanges sorts free ranges by start and merges adjacent or
// overlapping spans into one, maintaining the invariant that free_ranges
// never contains two touching or overlapping entries.
func (rb *RangeBuffer[T]) mergeFreeRanges() {
	if len(rb.freeRanges) < 2 {
		return
	}
	sort.Slice(rb.freeRanges, func(i, j int) bool {
		return rb.freeRanges[i].Start < rb.freeRanges[j].Start
	})
	merged := rb.freeRanges[:1]
	for _, r := range rb.freeRanges[1:] {
		last := &merged[len(merged)-1]
		if r.Start <= last.end() {
			if r.end() > last.end() {
				last.Length = r.end() - last.Start
			}
			continue
		}
		merged = append(merged, r)
	}
	rb.freeRanges = merged
}

func (rb *RangeBuffer[T]) markDirty(r Range) {
	rb.updatedRanges = append(rb.updatedRanges, r)
	sort.Slice(rb.updatedRanges, func(i, j int) bool {
		return rb.updatedRanges[i].Start < rb.updatedRanges[j].Start
	})
	merged := rb.updatedRanges[:1]
	for _, rr := range rb.updatedRanges[1:] {
		last := &merged[len(merged)-1]
		if rr.Start <= last.end() {
			if rr.end() > last.end() {
				last.Length = rr.end() - last.Start
			}
			continue
		}
		merged = append(merged, rr)
	}
	rb.updatedRanges = merged
}

// Clear collapses the buffer back to a single free range spanning its
// current length and drops every key and dirty span.
func (rb *RangeBuffer[T]) Clear() {
	if n := len(rb.data); n > 0 {
		rb.freeRanges = []Range{{Start: 0, Length: n}}
	} else {
		rb.freeRanges = nil
	}
	rb.keyToRange = make(map[uint64]Range)
	rb.updatedRanges = nil
}

// FreeRanges returns the current free-range list, for tests and
// diagnostics.
func (rb *RangeBuffer[T]) FreeRanges() []Range {
	out := make([]Range, len(rb.freeRanges))
	copy(out, rb.freeRanges)
	return out
}
