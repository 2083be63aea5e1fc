// Package esvo implements the Efficient Sparse Voxel Octree codec: a
// GPU-oriented serialisation where every octant occupies a fixed 12 u32
// words (a 4-word child/leaf mask header followed by 8 body words), and
// pointers between octants are relative offsets, except that the root
// preamble and the world-level root octant point absolutely (at the root
// octant and at each chunk's first word, respectively). This mirrors the word layout and
// traversal order of the teacher's own GPU-buffer-writing code
// (pkg/render/chunkBufferManager.go), generalized from a flat voxel grid to
// a recursive octree.
package esvo

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/leterax/hvds/pkg/octree"
	"github.com/leterax/hvds/pkg/rangebuffer"
	"github.com/leterax/hvds/pkg/svo"
)

// wordsPerOctant is the fixed size of one encoded octant: 4 header words
// (child mask | leaf mask, packed two children per word) plus 8 body words
// (one per child slot, holding either a leaf value or a pointer).
const wordsPerOctant = 12

// preambleLengthU32 is the size, in u32 words, of the root preamble written
// by WriteTo/WriteChangesTo ahead of the RangeBuffer's contents. Absolute
// pointers into the buffer are offset by this so they read correctly once
// the preamble has been prepended.
const preambleLengthU32 = 5

// childEncodeParams is handed to the leaf-encoding callback serializeOctant
// invokes for each occupied child slot, giving it just enough to write that
// slot's body word(s) and accumulate into the octant's shared result.
type childEncodeParams[T any] struct {
	idx     int
	result  *svo.SerializationResult
	dst     []uint32
	content T
}

// serializeOctant recursively encodes the octant tree rooted at id into
// dst, descending at most lod levels (0 means unlimited), and calls encode
// once per occupied slot that bottoms out at a leaf value - either an
// actual leaf, or a representative leaf picked once the lod budget runs
// out. It returns the mask/depth summary for id itself.
func serializeOctant[T any](tree *octree.Octree[T], id octree.OctantID, dst *[]uint32, lod uint8, encode func(childEncodeParams[T])) svo.SerializationResult {
	startOffset := len(*dst)
	for i := 0; i < wordsPerOctant; i++ {
		*dst = append(*dst, 0)
	}

	var result svo.SerializationResult

	for idx := 0; idx < 8; idx++ {
		kind, childID, leaf := tree.Child(id, idx)
		if kind == octree.ChildEmpty {
			continue
		}
		result.ChildMask |= 1 << uint(idx)

		if kind == octree.ChildLeaf || lod == 1 {
			content := leaf
			if kind == octree.ChildOctant {
				v, ok := svo.PickLeafForLOD(tree, childID)
				if !ok {
					continue
				}
				content = v
			}
			encode(childEncodeParams[T]{idx: idx, result: &result, dst: (*dst)[startOffset:], content: content})
			continue
		}

		childLOD := lod
		if childLOD > 0 {
			childLOD--
		}
		childOffset := len(*dst) - startOffset
		childResult := serializeOctant(tree, childID, dst, childLOD, encode)

		mask := (uint32(childResult.ChildMask) << 8) | uint32(childResult.LeafMask)
		if idx%2 != 0 {
			mask <<= 16
		}
		(*dst)[startOffset+idx/2] |= mask

		relPtr := uint32(childOffset) - 4 - uint32(idx)
		if relPtr&(1<<31) != 0 {
			panic("esvo: octant too far away to address with a relative pointer")
		}
		(*dst)[startOffset+4+idx] = relPtr | (1 << 31)

		if childResult.Depth+1 > result.Depth {
			result.Depth = childResult.Depth + 1
		}
	}

	return result
}

type changeKind uint8

const (
	changeAdd changeKind = iota
	changeRemove
)

type octantChange struct {
	kind changeKind
	key  uint64
	leaf octree.LeafID
}

type leafInfo struct {
	offset int
	result svo.SerializationResult
}

// Esvo is a WorldSVO built from the ESVO codec: an octree of chunk-level
// leaves of type T, each already serialized into its own body, stitched
// together into one GPU-consumable buffer behind a root preamble.
//
// T is almost always *SerializedChunk, but stays generic so the codec
// itself doesn't know about chunks - mirroring how the teacher's render
// package keeps its buffer writers ignorant of voxel semantics.
type Esvo[T svo.Serializable] struct {
	tree   *octree.Octree[T]
	buffer *rangebuffer.RangeBuffer[byte]

	changes  map[octantChange]struct{}
	leafInfo map[uint64]leafInfo
	root     *leafInfo

	scratch []uint32

	fence svo.Fence
}

// rootKey is reserved for the root octant's own RangeBuffer entry; no
// chunk position hash ever collides with it since it is the all-ones
// 64-bit pattern, not a hash output used for anything but chunk keys.
const rootKey = ^uint64(0)

// New returns an empty, growable ESVO world.
func New[T svo.Serializable]() *Esvo[T] {
	return &Esvo[T]{
		tree:     octree.New[T](),
		buffer:   rangebuffer.New[byte](),
		changes:  make(map[octantChange]struct{}),
		leafInfo: make(map[uint64]leafInfo),
	}
}

// WithCapacity returns an ESVO world whose byte buffer is fixed at n bytes,
// for pairing with a pre-allocated GPU buffer. Insert fails with
// rangebuffer.ErrCapacityExceeded once full.
func WithCapacity[T svo.Serializable](n int) *Esvo[T] {
	return &Esvo[T]{
		tree:     octree.New[T](),
		buffer:   rangebuffer.WithCapacity[byte](n),
		changes:  make(map[octantChange]struct{}),
		leafInfo: make(map[uint64]leafInfo),
	}
}

// SetLeaf inserts or overwrites the leaf at pos. If serialize is false, the
// leaf is still queued for serialization only the first time it is seen at
// that key - matching the teacher's ChunkStorage.SetBlock behaviour where
// overwrites of already-tracked state don't force redundant work.
func (e *Esvo[T]) SetLeaf(pos octree.Position, leaf T, serialize bool) (octree.LeafID, *T) {
	uid := leaf.UniqueID()
	id, prev := e.tree.SetLeaf(pos, leaf)
	if serialize {
		e.queueAdd(uid, id)
	} else if _, tracked := e.leafInfo[uid]; !tracked {
		e.queueAdd(uid, id)
	}
	return id, prev
}

func (e *Esvo[T]) queueAdd(uid uint64, id octree.LeafID) {
	e.changes[octantChange{kind: changeAdd, key: uid, leaf: id}] = struct{}{}
}

// MoveLeaf relocates the leaf at id to pos without touching its serialized
// body - only the root octree's own structure changes, so the next
// Serialize call only needs to re-walk the root, not re-encode the leaf.
func (e *Esvo[T]) MoveLeaf(id octree.LeafID, pos octree.Position) (octree.LeafID, *T, error) {
	return e.tree.MoveLeaf(id, pos)
}

// RemoveLeaf deletes the leaf at id and queues its serialized range for
// removal from the buffer on the next Serialize call.
func (e *Esvo[T]) RemoveLeaf(id octree.LeafID) *T {
	v, ok := e.tree.RemoveLeafByID(id)
	if !ok {
		return nil
	}
	e.changes[octantChange{kind: changeRemove, key: v.UniqueID()}] = struct{}{}
	return &v
}

// GetLeaf returns the leaf at pos, if any.
func (e *Esvo[T]) GetLeaf(pos octree.Position) (*T, bool) {
	v, ok := e.tree.GetLeaf(pos)
	if !ok {
		return nil, false
	}
	return &v, true
}

// Serialize drains the pending change set into the RangeBuffer - encoding
// newly added leaves, freeing removed ones - then re-encodes the root
// octant, whose body references each leaf's buffer offset directly.
func (e *Esvo[T]) Serialize() error {
	if e.tree.Root() == octree.NoOctant {
		return nil
	}

	for change := range e.changes {
		delete(e.changes, change)
		switch change.kind {
		case changeAdd:
			value, ok := e.tree.GetLeafByID(change.leaf)
			if !ok {
				continue
			}
			e.scratch = e.scratch[:0]
			result := value.Serialize(&e.scratch, 0)
			if result.Depth == 0 {
				continue
			}
			offset, err := e.buffer.Insert(change.key, u32ToBytes(e.scratch))
			if err != nil {
				return fmt.Errorf("esvo: serializing leaf: %w", err)
			}
			e.leafInfo[change.key] = leafInfo{offset: offset / 4, result: result}
		case changeRemove:
			e.buffer.Remove(change.key)
			delete(e.leafInfo, change.key)
		}
	}

	e.scratch = e.scratch[:0]
	rootResult := e.serializeRoot(&e.scratch)
	offset, err := e.buffer.Insert(rootKey, u32ToBytes(e.scratch))
	if err != nil {
		return fmt.Errorf("esvo: serializing root: %w", err)
	}
	e.root = &leafInfo{offset: offset / 4, result: rootResult}
	return nil
}

func (e *Esvo[T]) serializeRoot(dst *[]uint32) svo.SerializationResult {
	return serializeOctant(e.tree, e.tree.Root(), dst, 0, func(p childEncodeParams[T]) {
		info, ok := e.leafInfo[p.content.UniqueID()]
		if !ok {
			return
		}
		mask := (uint32(info.result.ChildMask) << 8) | uint32(info.result.LeafMask)
		if p.idx%2 != 0 {
			mask <<= 16
		}
		p.dst[p.idx/2] |= mask
		p.dst[4+p.idx] = uint32(info.offset) + preambleLengthU32
		if info.result.Depth+1 > p.result.Depth {
			p.result.Depth = info.result.Depth + 1
		}
	})
}

// Depth returns the root octant's serialized depth, or 0 if nothing has
// been serialized yet.
func (e *Esvo[T]) Depth() uint8 {
	if e.root == nil {
		return 0
	}
	return e.root.result.Depth
}

// SizeInBytes returns the current RangeBuffer length, excluding the
// preamble that WriteTo prepends.
func (e *Esvo[T]) SizeInBytes() int { return e.buffer.Len() }

// WriteTo writes the full preamble-plus-buffer image into dst and returns
// the number of bytes written. It panics if dst is smaller than that.
func (e *Esvo[T]) WriteTo(dst []byte) int {
	if e.root == nil {
		return 0
	}
	if len(dst) < preambleLengthU32*4+e.buffer.Len() {
		panic("esvo: destination buffer too small for WriteTo")
	}
	n := writePreamble(*e.root, dst)
	n += copy(dst[n:], e.buffer.Bytes())
	return n
}

// SetFence installs the fence WriteChangesTo waits on before touching dst,
// so an incremental upload never overwrites a region the GPU is still
// reading from a previous frame's draw call.
func (e *Esvo[T]) SetFence(f svo.Fence) { e.fence = f }

// WriteChangesTo rewrites the preamble (whose depth/root pointer may have
// moved) and copies only the byte ranges touched since the last flush into
// dst at the same offsets, for an incremental GPU upload. If reset is true,
// the dirty-range list is cleared afterward.
func (e *Esvo[T]) WriteChangesTo(dst []byte, reset bool) error {
	if e.root == nil {
		return nil
	}
	if e.fence != nil {
		e.fence.Wait()
	}
	writePreamble(*e.root, dst)

	for _, r := range e.buffer.DirtyRanges() {
		end := preambleLengthU32*4 + r.Start + r.Length
		if end > len(dst) {
			return fmt.Errorf("esvo: destination buffer too small for dirty range %v", r)
		}
		copy(dst[preambleLengthU32*4+r.Start:], e.buffer.Bytes()[r.Start:r.Start+r.Length])
	}
	if reset {
		e.buffer.ClearDirty()
	}
	return nil
}

// Clear resets the world to empty, dropping every leaf, the buffer, and
// all tracking state.
func (e *Esvo[T]) Clear() {
	e.tree = octree.New[T]()
	e.buffer.Clear()
	e.changes = make(map[octantChange]struct{})
	e.leafInfo = make(map[uint64]leafInfo)
	e.root = nil
}

// writePreamble writes the 5-word root preamble: the depth encoded as
// exp2(-depth) for direct GPU shader consumption, the root's child mask
// shifted left by 8 (no leaf mask), two reserved zero words, and the
// absolute word offset of the root octant's first header word. It returns
// the number of bytes written (20).
func writePreamble(info leafInfo, dst []byte) int {
	binary.LittleEndian.PutUint32(dst[0:4], math.Float32bits(float32(math.Exp2(-float64(info.result.Depth)))))
	binary.LittleEndian.PutUint32(dst[4:8], uint32(info.result.ChildMask)<<8)
	binary.LittleEndian.PutUint32(dst[8:12], 0)
	binary.LittleEndian.PutUint32(dst[12:16], 0)
	binary.LittleEndian.PutUint32(dst[16:20], uint32(info.offset)+preambleLengthU32)
	return preambleLengthU32 * 4
}

func u32ToBytes(words []uint32) []byte {
	out := make([]byte, len(words)*4)
	for i, w := range words {
		binary.LittleEndian.PutUint32(out[i*4:], w)
	}
	return out
}
