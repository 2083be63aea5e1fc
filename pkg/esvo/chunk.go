package esvo

import (
	"github.com/leterax/hvds/pkg/chunkstore"
	"github.com/leterax/hvds/pkg/hvtypes"
	"github.com/leterax/hvds/pkg/octree"
	"github.com/leterax/hvds/pkg/pool"
	"github.com/leterax/hvds/pkg/svo"
)

// ChunkBufferPool recycles the u32 scratch buffers a chunk is serialized
// into before its bytes are copied into a WorldSVO's RangeBuffer, applying
// the pool's reset-on-allocate discipline (pkg/pool) to the codec's hottest
// allocation: one scratch buffer per chunk generated or re-serialized.
type ChunkBufferPool = pool.Pool[[]uint32]

// NewChunkBufferPool returns a pool of scratch buffers pre-sized to
// capacity words, truncated to length zero on every allocation.
func NewChunkBufferPool(capacity int) *ChunkBufferPool {
	return pool.New(
		func() []uint32 { return make([]uint32, 0, capacity) },
		func(b *[]uint32) { *b = (*b)[:0] },
	)
}

// SerializedChunk is a chunk-level leaf for Esvo[T]: it pre-serializes one
// chunk's block octree at construction time, so the world-level octree
// never has to re-walk a chunk's voxels, only move its buffer offset
// around as the chunk loads, moves, or unloads.
type SerializedChunk struct {
	Pos     hvtypes.ChunkPos
	posHash uint64
	LOD     uint8

	buffer *pool.Allocated[[]uint32]
	result svo.SerializationResult
}

// NewSerializedChunk serializes storage's block octree at lod into a
// pooled scratch buffer borrowed from bufs. If storage is empty, the
// returned chunk carries no data and HasData reports false; its scratch
// buffer is returned to the pool immediately.
func NewSerializedChunk(pos hvtypes.ChunkPos, lod uint8, storage *chunkstore.ChunkStorage, bufs *ChunkBufferPool) *SerializedChunk {
	sc := &SerializedChunk{Pos: pos, posHash: pos.Hash(), LOD: lod, buffer: bufs.Allocate()}

	if storage.Root() != octree.NoOctant {
		sc.result = serializeOctant(storage, storage.Root(), sc.buffer.Value(), lod, encodeBlock)
	}
	if sc.result.Depth == 0 {
		sc.buffer.Release()
		sc.buffer = nil
	}
	return sc
}

// HasData reports whether the chunk produced any serialized content.
func (sc *SerializedChunk) HasData() bool { return sc.buffer != nil }

// UniqueID implements svo.Serializable, keying the chunk's RangeBuffer
// range by its position hash.
func (sc *SerializedChunk) UniqueID() uint64 { return sc.posHash }

// Serialize implements svo.Serializable: it copies the pre-computed buffer
// into dst and releases the scratch buffer back to its pool. After this
// call the chunk is addressed purely by its entry in the owning WorldSVO's
// RangeBuffer, not by its own storage.
func (sc *SerializedChunk) Serialize(dst *[]uint32, _ uint8) svo.SerializationResult {
	if sc.buffer != nil {
		*dst = append(*dst, (*sc.buffer.Value())...)
		sc.buffer.Release()
		sc.buffer = nil
	}
	return sc.result
}

// encodeBlock is the leaf encoder for a chunk's own block octree: each
// occupied slot holds a BlockID written directly as the body word, never a
// pointer, since a chunk's voxels bottom out in one level of encoding.
func encodeBlock(p childEncodeParams[hvtypes.BlockID]) {
	p.result.LeafMask |= 1 << uint(p.idx)
	p.dst[4+p.idx] = uint32(p.content)
	p.result.Depth = 1
}
