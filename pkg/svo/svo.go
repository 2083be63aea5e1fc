// Package svo holds the pieces shared by both hierarchical serialisation
// codecs (esvo, csvo): the SerializationResult metadata struct, the
// "pick a representative leaf" LOD helper, and the WorldSVO contract both
// codecs satisfy so the rest of the pipeline (SVO Manager) can stay codec
// agnostic.
package svo

import "github.com/leterax/hvds/pkg/octree"

// SerializationResult reports, for one serialized octant, which children
// were present, which of those were encoded as direct leaves rather than
// pointers to a sub-octant, and how deep the recursion went. Depth 0 means
// nothing was serialized.
type SerializationResult struct {
	ChildMask uint8
	LeafMask  uint8
	Depth     uint8
}

// lodPickOrder is the vertical-first child visitation order used to find a
// representative leaf once a LOD budget is exhausted: y=1 children before
// y=0 children, producing a "top-biased" summary.
var lodPickOrder = [8]int{2, 3, 6, 7, 0, 1, 4, 5}

// PickLeafForLOD descends octant id looking for a representative leaf value
// to stand in for the whole subtree once the LOD recursion budget runs out.
// It first looks for a direct leaf child in lodPickOrder, then falls back to
// recursing into the first child octant in that same order.
func PickLeafForLOD[T any](tree *octree.Octree[T], id octree.OctantID) (T, bool) {
	var zero T
	for _, idx := range lodPickOrder {
		kind, _, leaf := tree.Child(id, idx)
		if kind == octree.ChildLeaf {
			return leaf, true
		}
	}
	for _, idx := range lodPickOrder {
		kind, childID, _ := tree.Child(id, idx)
		if kind != octree.ChildOctant {
			continue
		}
		if v, ok := PickLeafForLOD(tree, childID); ok {
			return v, true
		}
	}
	return zero, false
}

// Serializable is a leaf type that knows how to encode itself into the
// ESVO body-word format: a stable key for RangeBuffer storage, and a
// recursive serialisation into a u32 scratch buffer bounded by lod.
type Serializable interface {
	UniqueID() uint64
	Serialize(dst *[]uint32, lod uint8) SerializationResult
}

// Fence is a renderer-supplied synchronization token. The renderer signals
// it once the GPU has finished every command that reads the byte buffer a
// prior WriteChangesTo call filled - in particular the last draw call
// issued against it - and a WorldSVO waits on it before reusing that
// buffer for a new WriteChangesTo. Implementations wrap whatever GPU sync
// primitive the renderer has (an OpenGL fence sync object, for instance);
// the codecs in this package never construct one themselves.
type Fence interface {
	Wait()
}

// WorldSVO is the contract both the ESVO and CSVO decorators satisfy: an
// octree of chunks (leaf type L) that can be incrementally serialized into a
// GPU-consumable byte buffer and flushed either in full or as a dirty-range
// diff. The SVO Manager (pkg/svomanager) is written against this interface
// so it does not need to know which codec is in use.
type WorldSVO[L any] interface {
	SetLeaf(pos octree.Position, leaf L, serialize bool) (octree.LeafID, *L)
	MoveLeaf(id octree.LeafID, to octree.Position) (octree.LeafID, *L, error)
	RemoveLeaf(id octree.LeafID) *L
	GetLeaf(pos octree.Position) (*L, bool)

	Serialize() error
	Depth() uint8
	SizeInBytes() int
	WriteTo(dst []byte) int
	WriteChangesTo(dst []byte, reset bool) error
	// SetFence installs the fence WriteChangesTo waits on before copying
	// any dirty range into its destination buffer. A nil fence disables
	// the wait, which is the zero-value behavior.
	SetFence(f Fence)
	Clear()
}
