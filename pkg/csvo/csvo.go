package csvo

import (
	"encoding/binary"
	"fmt"

	"github.com/leterax/hvds/pkg/octree"
	"github.com/leterax/hvds/pkg/rangebuffer"
	"github.com/leterax/hvds/pkg/svo"
)

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
}

// rootKey is reserved for the root octant's own RangeBuffer entry.
const rootKey = ^uint64(0)

// CSVO is a WorldSVO built from the CSVO codec: an octree of chunk-level
// *SerializedChunk leaves, each pre-encoded into its own
// [lod][materials][voxel tree] record, stitched into one byte buffer whose
// root octant addresses each record by an absolute, bit-31-flagged
// pointer.
type CSVO struct {
	tree       *octree.Octree[*SerializedChunk]
	changes    map[octantChange]struct{}
	childDepth uint8

	buffer   *rangebuffer.RangeBuffer[byte]
	leafInfo map[uint64]leafInfo
	root     *leafInfo

	fence svo.Fence
}

// New returns an empty, growable CSVO world.
func New() *CSVO {
	return &CSVO{
		tree:     octree.New[*SerializedChunk](),
		changes:  make(map[octantChange]struct{}),
		buffer:   rangebuffer.New[byte](),
		leafInfo: make(map[uint64]leafInfo),
	}
}

// WithCapacity returns a CSVO world whose byte buffer is fixed at n bytes.
func WithCapacity(n int) *CSVO {
	return &CSVO{
		tree:     octree.New[*SerializedChunk](),
		changes:  make(map[octantChange]struct{}),
		buffer:   rangebuffer.WithCapacity[byte](n),
		leafInfo: make(map[uint64]leafInfo),
	}
}

// SetLeaf inserts or overwrites the leaf at pos. If serialize is false and
// the leaf's content was already serialized under its unique id, it is not
// re-queued - useful when a chunk is only being moved, not re-generated.
func (c *CSVO) SetLeaf(pos octree.Position, leaf *SerializedChunk, serialize bool) (octree.LeafID, **SerializedChunk) {
	uid := leaf.UniqueID()
	id, prev := c.tree.SetLeaf(pos, leaf)
	if serialize {
		c.queueAdd(uid, id)
	} else if _, tracked := c.leafInfo[uid]; !tracked {
		c.queueAdd(uid, id)
	}
	return id, prev
}

func (c *CSVO) queueAdd(uid uint64, id octree.LeafID) {
	c.changes[octantChange{kind: changeAdd, key: uid, leaf: id}] = struct{}{}
}

// MoveLeaf relocates the leaf at id to pos without re-queuing its content.
func (c *CSVO) MoveLeaf(id octree.LeafID, pos octree.Position) (octree.LeafID, **SerializedChunk, error) {
	return c.tree.MoveLeaf(id, pos)
}

// RemoveLeaf deletes the leaf at id and queues its serialized range for
// removal on the next Serialize call.
func (c *CSVO) RemoveLeaf(id octree.LeafID) **SerializedChunk {
	v, ok := c.tree.RemoveLeafByID(id)
	if !ok {
		return nil
	}
	c.changes[octantChange{kind: changeRemove, key: v.UniqueID()}] = struct{}{}
	return &v
}

// GetLeaf returns the leaf at pos, if any.
func (c *CSVO) GetLeaf(pos octree.Position) (**SerializedChunk, bool) {
	v, ok := c.tree.GetLeaf(pos)
	if !ok {
		return nil, false
	}
	return &v, true
}

// Serialize drains the pending change set - merging each added chunk's
// [lod][materials][voxel tree] record into the RangeBuffer, freeing
// removed ones - then rebuilds the root octant.
func (c *CSVO) Serialize() error {
	if c.tree.Root() == octree.NoOctant {
		return nil
	}

	for change := range c.changes {
		delete(c.changes, change)
		switch change.kind {
		case changeAdd:
			value, ok := c.tree.GetLeafByID(change.leaf)
			if !ok || value.Buffer == nil {
				continue
			}
			if c.childDepth != 0 && value.Depth != c.childDepth {
				panic("csvo: all children must have the same depth")
			}
			c.childDepth = value.Depth

			lod := value.LOD
			if lod == 0 {
				lod = value.Depth
			}
			merged := make([]byte, 0, 1+4+len(value.Materials)*4+len(value.Buffer))
			merged = append(merged, lod)
			var lenBuf [4]byte
			binary.BigEndian.PutUint32(lenBuf[:], uint32(len(value.Materials)*4))
			merged = append(merged, lenBuf[:]...)
			for _, m := range value.Materials {
				var b [4]byte
				binary.BigEndian.PutUint32(b[:], uint32(m))
				merged = append(merged, b[:]...)
			}
			merged = append(merged, value.Buffer...)

			offset, err := c.buffer.Insert(change.key, merged)
			if err != nil {
				return fmt.Errorf("csvo: serializing leaf: %w", err)
			}
			value.Buffer = nil
			value.Materials = nil
			c.leafInfo[change.key] = leafInfo{offset: offset}
		case changeRemove:
			c.buffer.Remove(change.key)
			delete(c.leafInfo, change.key)
		}
	}

	buf := c.serializeRoot(c.tree.Root(), c.tree.Depth())
	offset, err := c.buffer.Insert(rootKey, buf)
	if err != nil {
		return fmt.Errorf("csvo: serializing root: %w", err)
	}
	c.root = &leafInfo{offset: offset}
	return nil
}

// serializeRoot encodes the octree-of-chunks rooted at id. At depth 1 its
// children are chunk leaves, addressed by an absolute 4-byte pointer with
// the high bit set; above that it is a plain internal node over its
// recursively encoded children.
func (c *CSVO) serializeRoot(id octree.OctantID, depth uint8) []byte {
	var children []internalChild

	for idx := 0; idx < 8; idx++ {
		kind, childID, leaf := c.tree.Child(id, idx)
		if kind == octree.ChildEmpty {
			continue
		}

		if depth == 1 {
			if kind != octree.ChildLeaf {
				continue
			}
			info, ok := c.leafInfo[leaf.UniqueID()]
			if !ok {
				continue
			}
			if uint32(info.offset)&(1<<31) != 0 {
				panic("csvo: 32 bit pointers must not have the 32nd bit set")
			}
			var b [4]byte
			binary.BigEndian.PutUint32(b[:], uint32(info.offset)|(1<<31))
			children = append(children, internalChild{idx: idx, data: b[:]})
			continue
		}

		if kind != octree.ChildOctant {
			panic("csvo: octree leaves must be at a uniform level")
		}
		children = append(children, internalChild{idx: idx, data: c.serializeRoot(childID, depth-1)})
	}

	if depth == 1 {
		buf := make([]byte, 2)
		var headerMask uint16
		for _, ch := range children {
			headerMask |= 3 << uint(ch.idx*2)
			buf = append(buf, ch.data...)
		}
		binary.BigEndian.PutUint16(buf[0:2], headerMask)
		return buf
	}

	return encodeInternalNode(children)
}

// Depth returns the combined depth of the root octree-of-chunks plus the
// uniform depth of the chunk leaves it holds.
func (c *CSVO) Depth() uint8 {
	return c.tree.Depth() + c.childDepth
}

// SizeInBytes returns the current buffer length.
func (c *CSVO) SizeInBytes() int { return c.buffer.Len() }

// WriteTo writes the full serialized buffer into dst and returns the
// number of bytes written.
func (c *CSVO) WriteTo(dst []byte) int {
	if c.root == nil {
		return 0
	}
	return copy(dst, c.buffer.Bytes())
}

// SetFence installs the fence WriteChangesTo waits on before touching dst.
func (c *CSVO) SetFence(f svo.Fence) { c.fence = f }

// WriteChangesTo copies only the byte ranges touched since the last flush
// into dst at the same offsets. If reset is true, the dirty-range list is
// cleared afterward.
func (c *CSVO) WriteChangesTo(dst []byte, reset bool) error {
	if c.root == nil {
		return nil
	}
	if c.fence != nil {
		c.fence.Wait()
	}
	for _, r := range c.buffer.DirtyRanges() {
		if r.Start+r.Length > len(dst) {
			return fmt.Errorf("csvo: destination buffer too small for dirty range %v", r)
		}
		copy(dst[r.Start:], c.buffer.Bytes()[r.Start:r.Start+r.Length])
	}
	if reset {
		c.buffer.ClearDirty()
	}
	return nil
}

// Clear resets the world to empty, dropping every leaf, the buffer, and
// all tracking state.
func (c *CSVO) Clear() {
	c.tree = octree.New[*SerializedChunk]()
	c.changes = make(map[octantChange]struct{})
	c.childDepth = 0
	c.buffer.Clear()
	c.leafInfo = make(map[uint64]leafInfo)
	c.root = nil
}
