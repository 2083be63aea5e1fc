// Package chunkstore defines ChunkStorage, the depth-5 octree that backs a
// single 32^3 chunk of blocks, and the Chunk type that pairs a storage with
// its position and level of detail.
package chunkstore

import (
	"github.com/leterax/hvds/pkg/hvtypes"
	"github.com/leterax/hvds/pkg/octree"
)

// ChunkStorage is an Octree[BlockID] fixed at ChunkDepth, addressing every
// cell of one 32^3 chunk.
type ChunkStorage = octree.Octree[hvtypes.BlockID]

// NewChunkStorage returns a chunk storage pre-expanded to ChunkDepth so that
// every valid local coordinate is addressable even before the first write.
func NewChunkStorage() *ChunkStorage {
	s := octree.New[hvtypes.BlockID]()
	s.ExpandTo(hvtypes.ChunkDepth)
	return s
}

// ResetChunkStorage replaces the storage *s points at with a fresh, empty
// depth-5 octree, for reuse from a pool. The pool's reset-on-allocate
// contract (pkg/pool) calls this before handing a recycled storage back
// out.
func ResetChunkStorage(s **ChunkStorage) {
	*s = NewChunkStorage()
}

// SetBlock sets the block at local coordinates (x, y, z), each in [0, 32).
func SetBlock(s *ChunkStorage, x, y, z int, id hvtypes.BlockID) {
	s.SetLeaf(octree.Position{X: uint32(x), Y: uint32(y), Z: uint32(z)}, id)
}

// GetBlock returns the block at local coordinates (x, y, z), or NoBlock if
// unset.
func GetBlock(s *ChunkStorage, x, y, z int) hvtypes.BlockID {
	v, ok := s.GetLeaf(octree.Position{X: uint32(x), Y: uint32(y), Z: uint32(z)})
	if !ok {
		return hvtypes.NoBlock
	}
	return v
}

// Chunk is the logical unit combining a chunk position, its level of
// detail (0 = full detail, otherwise the maximum serialisation depth), and
// its storage. Storage may be detached (set to nil) while a generation or
// serialisation job owns it, and reattached on completion - the
// move-out/move-in discipline described for scoped borrowing.
type Chunk struct {
	Pos     hvtypes.ChunkPos
	LOD     uint8
	Storage *ChunkStorage
}
