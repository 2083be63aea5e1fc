package csvo

import (
	"github.com/leterax/hvds/pkg/chunkstore"
	"github.com/leterax/hvds/pkg/hvtypes"
	"github.com/leterax/hvds/pkg/octree"
)

// SerializedChunk is a chunk-level leaf for CSVO: it pre-encodes one
// chunk's block octree at construction time into Buffer/Materials, which
// CSVO.Serialize merges into a single [lod][materials][voxel tree] record
// and drops once copied into the world buffer.
type SerializedChunk struct {
	Pos     hvtypes.ChunkPos
	posHash uint64
	Depth   uint8
	LOD     uint8

	Buffer    []byte
	Materials []hvtypes.BlockID
}

// NewSerializedChunk encodes storage's block octree into a SerializedChunk
// ready for insertion into a CSVO world. A nonzero lod below the storage's
// depth caps the encoded depth at lod.
func NewSerializedChunk(pos hvtypes.ChunkPos, lod uint8, storage *chunkstore.ChunkStorage) *SerializedChunk {
	sc := &SerializedChunk{Pos: pos, posHash: pos.Hash(), Depth: storage.Depth(), LOD: lod}

	if storage.Root() != octree.NoOctant {
		depth := sc.Depth
		if lod != 0 && lod < depth {
			depth = lod
		}
		sc.Buffer, sc.Materials = serializeBlockOctant(storage, storage.Root(), depth)
	}
	return sc
}

// HasData reports whether the chunk produced any serialized content.
func (sc *SerializedChunk) HasData() bool { return sc.Buffer != nil }

// UniqueID keys the chunk's RangeBuffer range by its position hash.
func (sc *SerializedChunk) UniqueID() uint64 { return sc.posHash }
