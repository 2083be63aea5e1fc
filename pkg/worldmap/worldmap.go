// Package worldmap owns every live chunk the loader and generator have
// produced, keyed by chunk position, and tracks which ones have changed
// since a caller last drained that list. The SVO Manager does not read from
// it; the Manager takes generated chunks straight from the Generator.
package worldmap

import (
	"github.com/leterax/hvds/pkg/chunkstore"
	"github.com/leterax/hvds/pkg/hvtypes"
)

// World owns a set of chunks and a deduplicated, insertion-ordered queue of
// positions that changed since the last drain.
type World struct {
	chunks map[hvtypes.ChunkPos]*chunkstore.Chunk

	changedSet map[hvtypes.ChunkPos]struct{}
	changed    []hvtypes.ChunkPos
}

// New returns an empty World.
func New() *World {
	return &World{
		chunks:     make(map[hvtypes.ChunkPos]*chunkstore.Chunk),
		changedSet: make(map[hvtypes.ChunkPos]struct{}),
	}
}

func (w *World) markChanged(pos hvtypes.ChunkPos) {
	if _, ok := w.changedSet[pos]; ok {
		return
	}
	w.changedSet[pos] = struct{}{}
	w.changed = append(w.changed, pos)
}

// SetChunk inserts or overwrites chunk, keyed by its own position, and
// marks that position changed.
func (w *World) SetChunk(chunk *chunkstore.Chunk) {
	w.chunks[chunk.Pos] = chunk
	w.markChanged(chunk.Pos)
}

// RemoveChunk drops the chunk at pos, if any, and marks pos changed.
func (w *World) RemoveChunk(pos hvtypes.ChunkPos) {
	delete(w.chunks, pos)
	w.markChanged(pos)
}

// GetChunk returns the chunk at pos, if tracked.
func (w *World) GetChunk(pos hvtypes.ChunkPos) (*chunkstore.Chunk, bool) {
	c, ok := w.chunks[pos]
	return c, ok
}

// GetBlock returns the block at world position (x, y, z), or NoBlock if its
// containing chunk isn't tracked.
func (w *World) GetBlock(x, y, z int32) hvtypes.BlockID {
	pos := hvtypes.BlockPosToChunkPos(x, y, z)
	chunk, ok := w.chunks[pos]
	if !ok || chunk.Storage == nil {
		return hvtypes.NoBlock
	}
	lx, ly, lz := hvtypes.LocalBlockPos(x, y, z)
	return chunkstore.GetBlock(chunk.Storage, lx, ly, lz)
}

// SetBlock sets the block at world position (x, y, z), creating an empty
// chunk to hold it if one isn't already tracked at that position - unlike
// the reference, which panics on an absent chunk, this auto-creates one so
// a bare SetBlock call (with no prior SetChunk) behaves the way its own
// reference unit test exercises it.
func (w *World) SetBlock(x, y, z int32, id hvtypes.BlockID) {
	pos := hvtypes.BlockPosToChunkPos(x, y, z)
	chunk, ok := w.chunks[pos]
	if !ok {
		chunk = &chunkstore.Chunk{Pos: pos, Storage: chunkstore.NewChunkStorage()}
		w.chunks[pos] = chunk
	}

	lx, ly, lz := hvtypes.LocalBlockPos(x, y, z)
	chunkstore.SetBlock(chunk.Storage, lx, ly, lz, id)
	w.markChanged(pos)
}

// DrainChangedChunks returns every chunk position marked changed since the
// last call, in the order they were first touched, and clears the tracked
// set.
func (w *World) DrainChangedChunks() []hvtypes.ChunkPos {
	out := w.changed
	w.changed = nil
	w.changedSet = make(map[hvtypes.ChunkPos]struct{})
	return out
}
