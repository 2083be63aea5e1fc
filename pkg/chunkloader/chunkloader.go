// Package chunkloader decides which chunks around a moving viewer should be
// loaded, unloaded, or re-leveled, independently of how those chunks are
// actually generated or serialized.
package chunkloader

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/leterax/hvds/pkg/hvtypes"
)

// EventKind distinguishes the three things that can happen to a chunk
// between two calls to Update.
type EventKind int

const (
	// Load means a chunk newly entered the loading radius.
	Load EventKind = iota
	// Unload means a chunk left the loading radius and should be dropped.
	Unload
	// LodChange means a chunk is still loaded but should be re-serialized
	// at a different level of detail.
	LodChange
)

// ChunkEvent reports one chunk's loading-state transition. LOD is
// meaningless for Unload events.
type ChunkEvent struct {
	Kind EventKind
	Pos  hvtypes.ChunkPos
	LOD  uint8
}

// Loader tracks which chunks are currently loaded around a viewer and, on
// each Update, produces the events needed to bring that set in line with
// the viewer's new position.
type Loader struct {
	radius uint32
	startY int32
	endY   int32

	lastPos *hvtypes.ChunkPos
	loaded  map[hvtypes.ChunkPos]uint8
}

// New creates a Loader that keeps chunks loaded within radius chunks
// (measured on the XZ plane) of the viewer, restricted to the vertical
// band [startY, endY).
func New(radius uint32, startY, endY int32) *Loader {
	if startY >= endY {
		panic("chunkloader: startY must be less than endY")
	}
	return &Loader{
		radius: radius,
		startY: startY,
		endY:   endY,
		loaded: make(map[hvtypes.ChunkPos]uint8),
	}
}

// Radius returns the loading radius, in chunks.
func (l *Loader) Radius() uint32 { return l.radius }

// IsLoaded reports whether pos is currently tracked as loaded.
func (l *Loader) IsLoaded(pos hvtypes.ChunkPos) bool {
	_, ok := l.loaded[pos]
	return ok
}

// AddLoadedChunk records pos as already loaded at lod without emitting an
// event, for seeding a Loader from persisted state.
func (l *Loader) AddLoadedChunk(pos hvtypes.ChunkPos, lod uint8) {
	l.loaded[pos] = lod
}

// Update recomputes the loaded set for worldPos and returns the events
// needed to reconcile it. It returns nil if worldPos still falls inside the
// chunk the loader last saw.
func (l *Loader) Update(worldPos mgl32.Vec3) []ChunkEvent {
	current := hvtypes.BlockPosToChunkPos(int32(worldPos.X()), int32(worldPos.Y()), int32(worldPos.Z()))
	if l.lastPos != nil && *l.lastPos == current {
		return nil
	}
	l.lastPos = &current

	var events []ChunkEvent

	r := int32(l.radius)
	for dx := -r; dx <= r; dx++ {
		for dz := -r; dz <= r; dz++ {
			if dx*dx+dz*dz > r*r {
				continue
			}

			pos := hvtypes.ChunkPos{X: current.X + dx, Y: 0, Z: current.Z + dz}
			lod := calculateLOD(current, pos)

			for y := l.startY; y < l.endY; y++ {
				dy := y - current.Y
				if dy < -r || dy > r {
					continue
				}
				pos.Y = y

				if oldLOD, ok := l.loaded[pos]; ok {
					if oldLOD != lod {
						events = append(events, ChunkEvent{Kind: LodChange, Pos: pos, LOD: lod})
						l.loaded[pos] = lod
					}
				} else {
					events = append(events, ChunkEvent{Kind: Load, Pos: pos, LOD: lod})
					l.loaded[pos] = lod
				}
			}
		}
	}

	var stale []hvtypes.ChunkPos
	for pos := range l.loaded {
		dx := pos.X - current.X
		dy := pos.Y - current.Y
		dz := pos.Z - current.Z
		if dy < -r || dy > r || dx*dx+dz*dz > r*r {
			stale = append(stale, pos)
			events = append(events, ChunkEvent{Kind: Unload, Pos: pos})
		}
	}
	for _, pos := range stale {
		delete(l.loaded, pos)
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Pos.DistSq(current) < events[j].Pos.DistSq(current)
	})

	return events
}

// calculateLOD picks a detail level for pos based on its 2D distance from
// center: closer chunks get a higher (more detailed) level.
func calculateLOD(center, pos hvtypes.ChunkPos) uint8 {
	d := int32(math.Sqrt(float64(pos.Dist2DSq(center))))
	switch {
	case d <= 6:
		return 5
	case d <= 12:
		return 4
	case d <= 19:
		return 3
	default:
		return 2
	}
}
