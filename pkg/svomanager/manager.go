// Package svomanager ties the chunk loader, the generator pipeline, and a
// WorldSVO codec together: it owns the mapping from world chunk positions
// to the SVO's local coordinate window around the viewer, and drives the
// shift-on-move, drain-results, serialize cycle every frame.
package svomanager

import (
	"github.com/leterax/hvds/pkg/chunkstore"
	"github.com/leterax/hvds/pkg/generator"
	"github.com/leterax/hvds/pkg/hvtypes"
	"github.com/leterax/hvds/pkg/octree"
	"github.com/leterax/hvds/pkg/svo"
)

// drainLimit bounds how many finished generation jobs Update ingests per
// call, so one slow frame of generation can't stall the render loop.
const drainLimit = 50

// BuildLeaf constructs a WorldSVO leaf from a freshly generated chunk. The
// codec packages each provide one of these: esvo.NewSerializedChunk or
// csvo.NewSerializedChunk, adapted to this signature by the caller.
type BuildLeaf[L any] func(pos hvtypes.ChunkPos, lod uint8, storage *chunkstore.ChunkStorage) L

// Manager owns a WorldSVO[L] addressed by SVO-local positions, and keeps it
// in sync with a Generator's output as the viewer moves through world
// space.
type Manager[L any] struct {
	world  svo.WorldSVO[L]
	radius int32
	gen    *generator.Generator
	build  BuildLeaf[L]

	hasViewer   bool
	viewerChunk hvtypes.ChunkPos

	tracked map[hvtypes.ChunkPos]octree.LeafID
}

// New creates a Manager addressing world's local octree within radius
// chunks of the viewer, fed by gen's completed generation jobs.
func New[L any](world svo.WorldSVO[L], radius int32, gen *generator.Generator, build BuildLeaf[L]) *Manager[L] {
	return &Manager[L]{
		world:   world,
		radius:  radius,
		gen:     gen,
		build:   build,
		tracked: make(map[hvtypes.ChunkPos]octree.LeafID),
	}
}

// localPos maps a world chunk position into the SVO's local coordinate
// space around viewerChunk, as (r+dx, y, r+dz). Positions at an XZ
// distance of r or more from the viewer, or with a negative world y, have
// no local address.
func (m *Manager[L]) localPos(viewerChunk, pos hvtypes.ChunkPos) (octree.Position, bool) {
	dx := pos.X - viewerChunk.X
	dz := pos.Z - viewerChunk.Z
	if dx*dx+dz*dz >= m.radius*m.radius {
		return octree.Position{}, false
	}

	lx := m.radius + dx
	lz := m.radius + dz
	if lx < 0 || lz < 0 || pos.Y < 0 {
		return octree.Position{}, false
	}

	return octree.Position{X: uint32(lx), Y: uint32(pos.Y), Z: uint32(lz)}, true
}

// SetChunk cancels any not-yet-started generation job for pos and submits a
// prioritised one at lod. Any previously tracked leaf at pos is left in
// place until the new generation result is ready to replace it.
func (m *Manager[L]) SetChunk(pos hvtypes.ChunkPos, lod uint8) {
	m.gen.DequeueChunk(pos)
	m.gen.EnqueueChunk(pos, lod, true)
}

// RemoveChunk cancels any in-flight generation job for pos and removes its
// leaf from the WorldSVO, if one is tracked.
func (m *Manager[L]) RemoveChunk(pos hvtypes.ChunkPos) {
	m.gen.DequeueChunk(pos)

	if id, ok := m.tracked[pos]; ok {
		m.world.RemoveLeaf(id)
		delete(m.tracked, pos)
	}
}

// Update reconciles the WorldSVO with viewerChunkPos: shifting tracked
// chunks to their new local position (or evicting them) if the viewer
// crossed into a new chunk, ingesting newly finished generation jobs, and
// finally serializing. It returns the world positions of chunks evicted by
// the shift step, whose storages have already been returned to the
// generator's pool.
func (m *Manager[L]) Update(viewerChunkPos hvtypes.ChunkPos) ([]hvtypes.ChunkPos, error) {
	var evicted []hvtypes.ChunkPos

	if !m.hasViewer || m.viewerChunk != viewerChunkPos {
		for pos, id := range m.tracked {
			local, ok := m.localPos(viewerChunkPos, pos)
			if !ok {
				m.world.RemoveLeaf(id)
				delete(m.tracked, pos)
				evicted = append(evicted, pos)
				continue
			}

			newID, _, err := m.world.MoveLeaf(id, local)
			if err != nil {
				return evicted, err
			}
			m.tracked[pos] = newID
		}

		m.hasViewer = true
		m.viewerChunk = viewerChunkPos
	}

	for _, gc := range m.gen.GetGeneratedChunks(drainLimit) {
		m.ingest(viewerChunkPos, gc)
	}

	if err := m.world.Serialize(); err != nil {
		return evicted, err
	}
	return evicted, nil
}

func (m *Manager[L]) ingest(viewerChunkPos hvtypes.ChunkPos, gc *generator.GeneratedChunk) {
	pos := gc.Chunk.Pos
	local, ok := m.localPos(viewerChunkPos, pos)
	if !ok {
		// The generation job that produced this chunk is no longer
		// relevant to the current viewer window; discard it.
		gc.Release()
		return
	}

	leaf := m.build(pos, gc.Chunk.LOD, gc.Chunk.Storage)
	gc.Release()

	if oldID, tracked := m.tracked[pos]; tracked {
		m.world.RemoveLeaf(oldID)
	}

	id, _ := m.world.SetLeaf(local, leaf, true)
	m.tracked[pos] = id
}

// IsTracked reports whether pos currently has a leaf in the WorldSVO.
func (m *Manager[L]) IsTracked(pos hvtypes.ChunkPos) bool {
	_, ok := m.tracked[pos]
	return ok
}

// TrackedCount returns the number of chunks currently tracked.
func (m *Manager[L]) TrackedCount() int {
	return len(m.tracked)
}
