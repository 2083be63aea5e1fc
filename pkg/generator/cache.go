package generator

import (
	"sync"
	"time"

	"github.com/leterax/hvds/pkg/hvtypes"
)

// maxCachedColumns bounds the heightmap column cache; the oldest column is
// evicted whenever a newly generated column takes the count above this.
const maxCachedColumns = 500

// ChunkColumn is the cached heightmap for one (chunk_x, chunk_z) column,
// shared by every chunk stacked along that column's y-axis so the noise
// field is only ever sampled once per (x, z).
type ChunkColumn struct {
	MinY, MaxY int32
	HeightMap  [hvtypes.ChunkSize * hvtypes.ChunkSize]int16
}

// ContainsChunk reports whether the vertical span of chunk chunkY overlaps
// this column's terrain height range.
func (c *ChunkColumn) ContainsChunk(chunkY int32) bool {
	return c.MinY <= (chunkY+1)*32 && c.MaxY >= chunkY*32
}

type columnKey struct{ X, Z int32 }

// columnCache memoizes generated ChunkColumns keyed by column coordinate.
// A column is generated by exactly one caller; racing callers either
// observe the finished result once the write lock is released, or wait on
// the column's inflight marker. If a waiter ever sees neither the column
// nor its inflight marker - the generating caller finished and was evicted
// before the waiter woke up - it restarts from the top rather than treating
// that as an error.
type columnCache struct {
	mu       sync.RWMutex
	columns  map[columnKey]*ChunkColumn
	inflight map[columnKey]struct{}
	order    []columnKey
}

func newColumnCache() *columnCache {
	return &columnCache{
		columns:  make(map[columnKey]*ChunkColumn),
		inflight: make(map[columnKey]struct{}),
	}
}

func (c *columnCache) getOrGenerate(x, z int32, generate func() *ChunkColumn) *ChunkColumn {
	key := columnKey{X: x, Z: z}

	for {
		c.mu.Lock()
		if col, ok := c.columns[key]; ok {
			c.mu.Unlock()
			return col
		}
		if _, inflight := c.inflight[key]; inflight {
			c.mu.Unlock()

			regenerate := false
			for {
				c.mu.RLock()
				col, ok := c.columns[key]
				_, stillInflight := c.inflight[key]
				c.mu.RUnlock()

				if ok {
					return col
				}
				if !stillInflight {
					regenerate = true
					break
				}
				time.Sleep(5 * time.Millisecond)
			}
			if regenerate {
				continue
			}
		}

		c.inflight[key] = struct{}{}
		c.mu.Unlock()

		col := generate()

		c.mu.Lock()
		c.columns[key] = col
		delete(c.inflight, key)
		c.order = append(c.order, key)
		if len(c.order) > maxCachedColumns {
			evict := c.order[0]
			c.order = c.order[1:]
			delete(c.columns, evict)
		}
		c.mu.Unlock()

		return col
	}
}
