// Package hvtypes holds the small value types shared across the hierarchical
// voxel data store's components, so that octree, codec, loader, generator
// and manager packages don't each define their own copy of chunk coordinate
// arithmetic.
package hvtypes

import (
	"encoding/binary"
	"hash/maphash"
)

// ChunkSize is the fixed edge length of a chunk, in blocks. Every
// ChunkStorage is an octree of depth ChunkDepth addressing exactly
// ChunkSize^3 cells.
const ChunkSize = 32

// ChunkDepth is the octree depth that addresses a ChunkSize^3 volume
// (2^5 == 32).
const ChunkDepth = 5

// ChunkPos is a signed chunk coordinate, one chunk = ChunkSize^3 blocks.
type ChunkPos struct {
	X, Y, Z int32
}

// BlockPosToChunkPos converts a world block position to the chunk position
// containing it, using an arithmetic right shift so negative coordinates
// floor correctly (mirroring the teacher's explicit negative-safe modulo in
// pkg/voxel/coord.go, generalized to a fixed power-of-two chunk size via
// shift instead of div/mod-and-correct).
func BlockPosToChunkPos(x, y, z int32) ChunkPos {
	return ChunkPos{X: x >> 5, Y: y >> 5, Z: z >> 5}
}

// LocalBlockPos returns the (0..31) local coordinates of a world block
// position within its containing chunk.
func LocalBlockPos(x, y, z int32) (lx, ly, lz int) {
	return int(x & 31), int(y & 31), int(z & 31)
}

// DistSq returns the squared 3D distance between two chunk positions.
func (c ChunkPos) DistSq(o ChunkPos) int64 {
	dx := int64(c.X - o.X)
	dy := int64(c.Y - o.Y)
	dz := int64(c.Z - o.Z)
	return dx*dx + dy*dy + dz*dz
}

// Dist2DSq returns the squared distance between two chunk positions
// projected onto the XZ plane, ignoring Y.
func (c ChunkPos) Dist2DSq(o ChunkPos) int64 {
	dx := int64(c.X - o.X)
	dz := int64(c.Z - o.Z)
	return dx*dx + dz*dz
}

// Add returns the component-wise sum of two chunk positions.
func (c ChunkPos) Add(o ChunkPos) ChunkPos {
	return ChunkPos{X: c.X + o.X, Y: c.Y + o.Y, Z: c.Z + o.Z}
}

// Sub returns the component-wise difference c - o.
func (c ChunkPos) Sub(o ChunkPos) ChunkPos {
	return ChunkPos{X: c.X - o.X, Y: c.Y - o.Y, Z: c.Z - o.Z}
}

var posHashSeed = maphash.MakeSeed()

// Hash returns a stable 64-bit key for c, used to track a chunk's serialized
// range inside a codec's RangeBuffer - equivalent to hashing the position
// through a DefaultHasher.
func (c ChunkPos) Hash() uint64 {
	var buf [12]byte
	binary.LittleEndian.PutUint32(buf[0:4], uint32(c.X))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(c.Y))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(c.Z))
	return maphash.Bytes(posHashSeed, buf[:])
}

// BlockID identifies a voxel's material. Zero means air/no block.
type BlockID uint32

// NoBlock is the reserved BlockID meaning "empty".
const NoBlock BlockID = 0
