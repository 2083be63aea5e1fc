package csvo

import (
	"reflect"
	"testing"

	"github.com/leterax/hvds/pkg/hvtypes"
	"github.com/leterax/hvds/pkg/octree"
)

func TestSerializeBlockOctantSingleLeaf(t *testing.T) {
	tr := octree.New[hvtypes.BlockID]()
	tr.SetLeaf(octree.Position{X: 0, Y: 0, Z: 0}, 1)
	tr.ExpandTo(4)
	tr.Compact()

	got, materials := serializeBlockOctant(tr, tr.Root(), tr.Depth())

	want := []byte{
		0, 1, 0, // inode
		1, 0, // plnode
		1, 1, // lnode
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("buffer = %v, want %v", got, want)
	}
	if !reflect.DeepEqual(materials, []hvtypes.BlockID{1}) {
		t.Errorf("materials = %v, want [1]", materials)
	}
}

func TestSerializeBlockOctantMultipleLeaves(t *testing.T) {
	tr := octree.New[hvtypes.BlockID]()
	tr.SetLeaf(octree.Position{X: 0, Y: 0, Z: 0}, 1)
	tr.SetLeaf(octree.Position{X: 3, Y: 3, Z: 3}, 2)
	tr.SetLeaf(octree.Position{X: 5, Y: 4, Z: 4}, 1)
	tr.SetLeaf(octree.Position{X: 6, Y: 7, Z: 7}, 2)
	tr.ExpandTo(4)
	tr.Compact()

	got, materials := serializeBlockOctant(tr, tr.Root(), tr.Depth())

	want := []byte{
		0, 1, 0, // inode
		1 | (1 << 7), 0, 3, // plnode
		1 | (1 << 7), 1, 1 << 7, // lnode
		1 | (1 << 7), 2, 1 << 6, // lnode
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("buffer = %v, want %v", got, want)
	}
	if !reflect.DeepEqual(materials, []hvtypes.BlockID{1, 2, 1, 2}) {
		t.Errorf("materials = %v, want [1 2 1 2]", materials)
	}
}

func buildCornerChunk() *octree.Octree[hvtypes.BlockID] {
	tr := octree.New[hvtypes.BlockID]()
	tr.SetLeaf(octree.Position{X: 31, Y: 0, Z: 0}, 1)
	tr.SetLeaf(octree.Position{X: 0, Y: 31, Z: 0}, 2)
	tr.SetLeaf(octree.Position{X: 0, Y: 0, Z: 31}, 3)
	tr.Compact()
	return tr
}

func TestSerializeBlockOctantChunk(t *testing.T) {
	tr := buildCornerChunk()

	got, materials := serializeBlockOctant(tr, tr.Root(), tr.Depth())

	want := []byte{
		0b00_00_00_01, 0b00_01_01_00, 0, 7, 14,
		0, 0b00_00_01_00, 0,
		2, 0,
		2,
		2,
		0, 0b00_01_00_00, 0,
		4, 0,
		4,
		4,
		0b00_00_00_01, 0, 0,
		16, 0,
		16,
		16,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("buffer = %v, want %v", got, want)
	}
	if !reflect.DeepEqual(materials, []hvtypes.BlockID{1, 2, 3}) {
		t.Errorf("materials = %v, want [1 2 3]", materials)
	}
}

func TestSerializeBlockOctantChunkWithLOD(t *testing.T) {
	tr := buildCornerChunk()
	fullDepth := tr.Depth()

	cases := []struct {
		depth uint8
		want  []byte
	}{
		{fullDepth - 1, []byte{
			0b00_00_00_01, 0b00_01_01_00, 0, 4, 8,
			2, 0,
			2,
			2,
			4, 0,
			4,
			4,
			16, 0,
			16,
			16,
		}},
		{fullDepth - 2, []byte{
			0b00010110, 0, 2, 4,
			2,
			2,
			4,
			4,
			16,
			16,
		}},
		{fullDepth - 3, []byte{
			0b00010110, 2, 4, 16,
		}},
		{fullDepth - 4, []byte{
			22,
		}},
	}

	for _, c := range cases {
		got, materials := serializeBlockOctant(tr, tr.Root(), c.depth)
		if !reflect.DeepEqual(got, c.want) {
			t.Errorf("depth %d: buffer = %v, want %v", c.depth, got, c.want)
		}
		if !reflect.DeepEqual(materials, []hvtypes.BlockID{1, 2, 3}) {
			t.Errorf("depth %d: materials = %v, want [1 2 3]", c.depth, materials)
		}
	}
}
