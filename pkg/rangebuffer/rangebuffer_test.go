package rangebuffer

import (
	"reflect"
	"testing"
)

func TestInsertFillsWithNoHoles(t *testing.T) {
	rb := WithCapacity[byte](10)
	if _, err := rb.Insert(1, []byte{0, 1, 2, 3, 4}); err != nil {
		t.Fatal(err)
	}
	if _, err := rb.Insert(2, []byte{5, 6}); err != nil {
		t.Fatal(err)
	}
	if _, err := rb.Insert(3, []byte{7, 8, 9}); err != nil {
		t.Fatal(err)
	}
	if len(rb.FreeRanges()) != 0 {
		t.Fatalf("expected no free ranges, got %v", rb.FreeRanges())
	}
	want := []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	if !reflect.DeepEqual(rb.Bytes(), want) {
		t.Fatalf("bytes = %v, want %v", rb.Bytes(), want)
	}
}

func TestInsertReusesFreeRange(t *testing.T) {
	rb := WithCapacity[byte](10)
	rb.Insert(1, []byte{0, 1, 2, 3, 4})
	rb.Insert(2, []byte{5, 6})
	rb.Insert(3, []byte{7, 8, 9})

	// Overwriting key 3 with a single-byte value frees its old 3-byte span
	// and reuses its head, leaving a 2-byte hole.
	off, err := rb.Insert(3, []byte{11})
	if err != nil {
		t.Fatal(err)
	}
	if off != 7 {
		t.Fatalf("expected key 3 to reuse its own freed range at offset 7, got %d", off)
	}
	free := rb.FreeRanges()
	if len(free) != 1 || free[0] != (Range{Start: 8, Length: 2}) {
		t.Fatalf("expected a single 2-byte free range at [8,10), got %v", free)
	}

	// A key whose data is no larger than the hole reuses it instead of
	// growing the buffer.
	if _, err := rb.Insert(4, []byte{20, 21}); err != nil {
		t.Fatal(err)
	}
	if len(rb.FreeRanges()) != 0 {
		t.Fatalf("expected the 2-byte hole to be fully consumed, got %v", rb.FreeRanges())
	}
	if rb.Len() != 10 {
		t.Fatalf("buffer should not have grown, len=%d", rb.Len())
	}
}

func TestRemoveThenCoverageInvariant(t *testing.T) {
	rb := WithCapacity[byte](10)
	rb.Insert(1, []byte{0, 1, 2, 3, 4})
	rb.Insert(2, []byte{5, 6})
	rb.Insert(3, []byte{7, 8, 9})

	rb.Remove(3)
	rb.Remove(2)
	rb.Remove(1)

	free := rb.FreeRanges()
	if len(free) != 1 || free[0] != (Range{Start: 0, Length: 10}) {
		t.Fatalf("expected one free range covering the whole buffer, got %v", free)
	}
}

func TestInsertCapacityExceeded(t *testing.T) {
	rb := WithCapacity[byte](4)
	rb.Insert(1, []byte{0, 1, 2, 3})
	if _, err := rb.Insert(2, []byte{9}); err != ErrCapacityExceeded {
		t.Fatalf("expected ErrCapacityExceeded, got %v", err)
	}
}

func TestGrowableBufferAppendsWhenNoHoleFits(t *testing.T) {
	rb := New[byte]()
	rb.Insert(1, []byte{1, 2, 3})
	rb.Remove(1)
	off, err := rb.Insert(2, []byte{9, 9, 9, 9, 9})
	if err != nil {
		t.Fatal(err)
	}
	if off != 3 {
		t.Fatalf("expected the 5-element insert to be appended after the 3-element hole, got offset %d", off)
	}
	if rb.Len() != 8 {
		t.Fatalf("expected buffer to grow to 8, got %d", rb.Len())
	}
}

func TestDirtyRangesMergeAdjacent(t *testing.T) {
	rb := WithCapacity[byte](10)
	rb.Insert(1, []byte{1, 2, 3})
	rb.Insert(2, []byte{4, 5})
	dirty := rb.DirtyRanges()
	if len(dirty) != 1 || dirty[0] != (Range{Start: 0, Length: 5}) {
		t.Fatalf("expected adjacent writes to merge into one dirty range, got %v", dirty)
	}
}

func TestClearResetsToSingleFreeRange(t *testing.T) {
	rb := WithCapacity[byte](10)
	rb.Insert(1, []byte{1, 2, 3})
	rb.Clear()
	free := rb.FreeRanges()
	if len(free) != 1 || free[0] != (Range{Start: 0, Length: 10}) {
		t.Fatalf("expected Clear to reset to one free range, got %v", free)
	}
	if _, ok := rb.RangeFor(1); ok {
		t.Fatalf("expected Clear to drop all keys")
	}
	if len(rb.DirtyRanges()) != 0 {
		t.Fatalf("expected Clear to drop dirty ranges")
	}
}
