package generator

import (
	"math"

	"github.com/leterax/hvds/pkg/chunkstore"
	"github.com/leterax/hvds/pkg/hvtypes"
)

// Config parameterizes TerrainGenerator's noise fields.
type Config struct {
	// SeaLevel is the y level up to which water would be placed. Kept for
	// parity with the reference profile; this generator does not yet place
	// water blocks.
	SeaLevel int32
	// Continentalness controls how far inland a point is: -1 is deep sea,
	// 1 is far inland.
	Continentalness Noise
	// Erosion controls how mountainous a point is: -1 is flat, 1 is
	// extreme relief.
	Erosion Noise
}

// TerrainGenerator is a ChunkGenerator that fills chunks from a cached
// Perlin heightmap, layering grass, dirt, and stone by depth below the
// surface.
type TerrainGenerator struct {
	cfg   Config
	noise *source
	cache *columnCache
}

// NewTerrainGenerator builds a terrain generator seeded deterministically
// by seed.
func NewTerrainGenerator(seed uint32, cfg Config) *TerrainGenerator {
	return &TerrainGenerator{
		cfg:   cfg,
		noise: newSource(seed),
		cache: newColumnCache(),
	}
}

func (t *TerrainGenerator) heightAt(x, z int32) int32 {
	height := t.cfg.Continentalness.Get(t.noise, float32(x), float32(z))
	height += t.cfg.Erosion.Get(t.noise, float32(x), float32(z))
	return int32(math.Floor(float64(height)))
}

func (t *TerrainGenerator) column(colX, colZ int32) *ChunkColumn {
	return t.cache.getOrGenerate(colX, colZ, func() *ChunkColumn {
		col := &ChunkColumn{MinY: math.MaxInt32, MaxY: math.MinInt32}
		for z := int32(0); z < hvtypes.ChunkSize; z++ {
			for x := int32(0); x < hvtypes.ChunkSize; x++ {
				y := t.heightAt(colX*hvtypes.ChunkSize+x, colZ*hvtypes.ChunkSize+z)
				if y < col.MinY {
					col.MinY = y
				}
				if y > col.MaxY {
					col.MaxY = y
				}
				col.HeightMap[z*hvtypes.ChunkSize+x] = int16(y)
			}
		}
		return col
	})
}

// IsInterestedIn reports whether pos falls within the generated terrain's
// vertical extent for its column. A chunk lying entirely below the column's
// lowest surface point is reported as not interesting, even though
// GenerateChunk would fill it with stone.
func (t *TerrainGenerator) IsInterestedIn(pos hvtypes.ChunkPos) bool {
	col := t.column(pos.X, pos.Z)
	return col.ContainsChunk(pos.Y)
}

// GenerateChunk fills chunk's storage with grass, dirt, and stone according
// to the cached heightmap for its column.
func (t *TerrainGenerator) GenerateChunk(chunk *chunkstore.Chunk) {
	col := t.column(chunk.Pos.X, chunk.Pos.Z)
	chunkY := chunk.Pos.Y * hvtypes.ChunkSize

	for z := 0; z < hvtypes.ChunkSize; z++ {
		for x := 0; x < hvtypes.ChunkSize; x++ {
			height := int32(col.HeightMap[z*hvtypes.ChunkSize+x]) - chunkY
			if height > hvtypes.ChunkSize-1 {
				height = hvtypes.ChunkSize - 1
			}

			for y := int32(0); y < hvtypes.ChunkSize && y <= height; y++ {
				var block hvtypes.BlockID
				switch {
				case y >= height:
					block = hvtypes.Grass
				case y >= height-3:
					block = hvtypes.Dirt
				default:
					block = hvtypes.Stone
				}
				chunkstore.SetBlock(chunk.Storage, x, int(y), z, block)
			}
		}
	}
}
