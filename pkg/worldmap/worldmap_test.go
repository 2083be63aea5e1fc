package worldmap

import (
	"reflect"
	"sort"
	"testing"

	"github.com/leterax/hvds/pkg/chunkstore"
	"github.com/leterax/hvds/pkg/hvtypes"
)

func TestWorldGetAndSetBlock(t *testing.T) {
	w := New()

	if got := w.GetBlock(1, 33, 65); got != hvtypes.NoBlock {
		t.Fatalf("GetBlock on untracked chunk = %v, want NoBlock", got)
	}

	w.SetBlock(1, 33, 65, 99)

	chunk, ok := w.GetChunk(hvtypes.ChunkPos{X: 0, Y: 1, Z: 2})
	if !ok {
		t.Fatalf("expected chunk (0, 1, 2) to be tracked after SetBlock")
	}
	if got := chunkstore.GetBlock(chunk.Storage, 1, 1, 1); got != 99 {
		t.Errorf("local block (1,1,1) = %v, want 99", got)
	}

	if got := w.GetBlock(1, 33, 65); got != 99 {
		t.Errorf("GetBlock(1, 33, 65) = %v, want 99", got)
	}
}

func TestWorldChangedChunks(t *testing.T) {
	w := New()

	for i := 0; i < 2; i++ {
		w.SetBlock(0, 0, 0, 1)
	}

	want := []hvtypes.ChunkPos{hvtypes.BlockPosToChunkPos(0, 0, 0)}
	if !reflect.DeepEqual(sortedPositions(w.changed), sortedPositions(want)) {
		t.Fatalf("changed = %v, want %v (should be deduplicated)", w.changed, want)
	}

	changed := w.DrainChangedChunks()
	if !reflect.DeepEqual(sortedPositions(changed), sortedPositions(want)) {
		t.Errorf("DrainChangedChunks = %v, want %v", changed, want)
	}

	if len(w.changed) != 0 || len(w.changedSet) != 0 {
		t.Errorf("expected empty tracking state after drain, got changed=%v changedSet=%v", w.changed, w.changedSet)
	}
}

func TestWorldSetAndRemoveChunk(t *testing.T) {
	w := New()
	pos := hvtypes.ChunkPos{X: 3, Y: 0, Z: -2}
	chunk := &chunkstore.Chunk{Pos: pos, Storage: chunkstore.NewChunkStorage()}

	w.SetChunk(chunk)
	if _, ok := w.GetChunk(pos); !ok {
		t.Fatalf("expected chunk %+v to be tracked after SetChunk", pos)
	}

	w.RemoveChunk(pos)
	if _, ok := w.GetChunk(pos); ok {
		t.Errorf("expected chunk %+v to be gone after RemoveChunk", pos)
	}

	changed := w.DrainChangedChunks()
	if len(changed) != 1 || changed[0] != pos {
		t.Errorf("DrainChangedChunks = %v, want single entry %+v (set+remove still dedups to one change)", changed, pos)
	}
}

func sortedPositions(ps []hvtypes.ChunkPos) []hvtypes.ChunkPos {
	out := append([]hvtypes.ChunkPos(nil), ps...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].X != out[j].X {
			return out[i].X < out[j].X
		}
		if out[i].Y != out[j].Y {
			return out[i].Y < out[j].Y
		}
		return out[i].Z < out[j].Z
	})
	return out
}
