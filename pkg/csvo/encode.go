// Package csvo implements the Compact Sparse Voxel Octree codec: a
// byte-oriented, big-endian encoding that packs each octant using the
// narrowest of three node shapes for its depth (leaf, pre-leaf, or
// internal), trading the ESVO codec's fixed 48-byte-per-octant GPU layout
// for a denser representation, which the CSVO world writes into a fenced GPU
// buffer just as the ESVO world does.
// It is grounded on the same octree walk as pkg/esvo but produces a wholly
// different wire format, mirroring the teacher's pattern of keeping each
// wire codec (its own pkg/network client) self-contained.
package csvo

import (
	"encoding/binary"

	"github.com/leterax/hvds/pkg/chunkstore"
	"github.com/leterax/hvds/pkg/hvtypes"
	"github.com/leterax/hvds/pkg/octree"
	"github.com/leterax/hvds/pkg/svo"
)

// internalChild is one occupied, already-encoded child slot waiting to be
// folded into its parent's header + body.
type internalChild struct {
	idx  int
	data []byte
}

// serializeBlockOctant encodes one chunk's block octree at the given
// remaining depth, returning the encoded bytes and the flat list of
// materials referenced by any leaf mask along the way (consumed separately
// from the byte buffer, not inlined into it). depth counts down from the
// chunk storage's own depth to 1; depth==1 always produces a leaf node
// regardless of how the caller arrived there (LOD truncation or the
// natural bottom of the tree).
func serializeBlockOctant(tree *chunkstore.ChunkStorage, id octree.OctantID, depth uint8) ([]byte, []hvtypes.BlockID) {
	if depth == 1 {
		return serializeLeafMask(tree, id)
	}

	var children []internalChild
	var materials []hvtypes.BlockID

	for idx := 0; idx < 8; idx++ {
		kind, childID, _ := tree.Child(id, idx)
		if kind == octree.ChildEmpty {
			continue
		}
		if kind != octree.ChildOctant {
			panic("csvo: octree leaves must be at a uniform level")
		}
		data, mats := serializeBlockOctant(tree, childID, depth-1)
		children = append(children, internalChild{idx: idx, data: data})
		materials = append(materials, mats...)
	}

	switch depth {
	case 2:
		return encodeLeafNode(children), materials
	case 3:
		return encodePreLeafNode(children), materials
	default:
		return encodeInternalNode(children), materials
	}
}

// serializeLeafMask builds the single-byte LNode for octant id: one bit per
// occupied child, picking a representative leaf via svo.PickLeafForLOD when
// a child is itself an octant (LOD truncation stopped one level early).
func serializeLeafMask(tree *chunkstore.ChunkStorage, id octree.OctantID) ([]byte, []hvtypes.BlockID) {
	var leafMask byte
	var materials []hvtypes.BlockID

	for idx := 0; idx < 8; idx++ {
		kind, childID, leaf := tree.Child(id, idx)
		if kind == octree.ChildEmpty {
			continue
		}
		content, ok := leaf, kind == octree.ChildLeaf
		if !ok {
			content, ok = svo.PickLeafForLOD(tree, childID)
		}
		if !ok {
			continue
		}
		materials = append(materials, content)
		leafMask |= 1 << uint(idx)
	}
	return []byte{leafMask}, materials
}

// encodeLeafNode builds a depth-2 "leaf node": an 8-bit child mask
// followed by each occupied child's 1-byte LNode, back to back - no
// offsets needed since every child is exactly one byte long.
func encodeLeafNode(children []internalChild) []byte {
	buf := make([]byte, 1, 1+len(children))
	for _, c := range children {
		buf[0] |= 1 << uint(c.idx)
		buf = append(buf, c.data...)
	}
	return buf
}

// encodePreLeafNode builds a depth-3 "pre-leaf node": an 8-bit child mask,
// then one running-offset byte per occupied child (cheap since every leaf
// node below is one byte), then the children's bytes concatenated.
func encodePreLeafNode(children []internalChild) []byte {
	buf := make([]byte, 1+len(children))
	offset := byte(0)
	for i, c := range children {
		buf[0] |= 1 << uint(c.idx)
		buf[1+i] = offset
		offset += byte(len(c.data))
	}
	for _, c := range children {
		buf = append(buf, c.data...)
	}
	return buf
}

// encodeInternalNode builds a general "internal node": a 16-bit header
// packing a 2-bit width tag per child slot (1, 2, or 4 bytes, chosen by how
// large that child's running byte offset is), the offsets themselves at
// their chosen width, then the children's bytes concatenated. This shape
// is reused verbatim by the root octree-of-chunks codec for any level
// above its leaf depth.
func encodeInternalNode(children []internalChild) []byte {
	offsets := make([]uint32, len(children))
	var running uint32
	for i, c := range children {
		offsets[i] = running
		running += uint32(len(c.data))
	}

	buf := make([]byte, 2)
	var headerMask uint16
	for i, c := range children {
		tag := offsetTag(offsets[i])
		headerMask |= uint16(tag) << uint(c.idx*2)
		switch tag {
		case 1:
			buf = append(buf, byte(offsets[i]))
		case 2:
			var b [2]byte
			binary.BigEndian.PutUint16(b[:], uint16(offsets[i]))
			buf = append(buf, b[:]...)
		case 3:
			if offsets[i]&(1<<31) != 0 {
				panic("csvo: 32 bit pointers must not have the 32nd bit set")
			}
			var b [4]byte
			binary.BigEndian.PutUint32(b[:], offsets[i])
			buf = append(buf, b[:]...)
		}
	}
	for _, c := range children {
		buf = append(buf, c.data...)
	}
	binary.BigEndian.PutUint16(buf[0:2], headerMask)
	return buf
}

// offsetTag picks the 2-bit header tag (1, 2, or 4 byte width) wide enough
// to hold offset.
func offsetTag(offset uint32) int {
	m := offset
	if m < 1 {
		m = 1
	}
	return ilog2(m)/8 + 1
}

func ilog2(v uint32) int {
	n := -1
	for v > 0 {
		v >>= 1
		n++
	}
	return n
}
