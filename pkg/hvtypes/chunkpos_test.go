package hvtypes

import "testing"

func TestBlockPosToChunkPos(t *testing.T) {
	tests := []struct {
		x, y, z int32
		want    ChunkPos
	}{
		{10, 20, 30, ChunkPos{X: 0, Y: 0, Z: 0}},
		{31, 32, 0, ChunkPos{X: 0, Y: 1, Z: 0}},
		{-10, -20, -30, ChunkPos{X: -1, Y: -1, Z: -1}},
		{-32, -33, 0, ChunkPos{X: -1, Y: -2, Z: 0}},
	}

	for _, tt := range tests {
		if got := BlockPosToChunkPos(tt.x, tt.y, tt.z); got != tt.want {
			t.Errorf("BlockPosToChunkPos(%d, %d, %d) = %+v, want %+v", tt.x, tt.y, tt.z, got, tt.want)
		}
	}
}

func TestLocalBlockPos(t *testing.T) {
	lx, ly, lz := LocalBlockPos(1, 33, 65)
	if lx != 1 || ly != 1 || lz != 1 {
		t.Errorf("LocalBlockPos(1, 33, 65) = (%d, %d, %d), want (1, 1, 1)", lx, ly, lz)
	}
}
