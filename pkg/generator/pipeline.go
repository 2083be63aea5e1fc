// Package generator turns a noise-based terrain field into filled chunks,
// running the fill work on a small worker pool so the caller - the world's
// update loop - never blocks on generation.
package generator

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/leterax/hvds/pkg/chunkstore"
	"github.com/leterax/hvds/pkg/hvtypes"
	"github.com/leterax/hvds/pkg/pool"
)

// ChunkGenerator fills a borrowed chunk's storage with content. Implemented
// by the world's terrain field (TerrainGenerator); it is the sole
// requirement the Generator pipeline places on content generation.
type ChunkGenerator interface {
	// IsInterestedIn reports whether pos holds any content at all, so the
	// pipeline can drop chunks outside the generator's range (e.g. above
	// the terrain) without running a fill.
	IsInterestedIn(pos hvtypes.ChunkPos) bool
	// GenerateChunk fills chunk's already-allocated storage in place.
	GenerateChunk(chunk *chunkstore.Chunk)
}

// GeneratedChunk is a finished generation job's output. Release must be
// called once the caller is done with the chunk, returning its storage to
// the pool it was borrowed from.
type GeneratedChunk struct {
	Chunk   *chunkstore.Chunk
	Release func()
}

type job struct {
	pos       hvtypes.ChunkPos
	lod       uint8
	storage   *pool.Allocated[*chunkstore.ChunkStorage]
	cancelled *int32
}

// Generator runs a ChunkGenerator across a fixed worker pool draining a
// priority and a normal job queue, matching the main loop's own position
// update cadence: the loader enqueues what's newly in range at normal
// priority, and the SVO Manager can bump urgent requests to the front.
type Generator struct {
	gen ChunkGenerator

	queue     chan job
	prioQueue chan job
	stop      chan struct{}
	wg        sync.WaitGroup

	storagePool *pool.Pool[*chunkstore.ChunkStorage]
	results     chan *GeneratedChunk

	mu      sync.Mutex
	handles map[hvtypes.ChunkPos]*int32

	executing int32
}

// New starts a Generator backed by runtime.NumCPU()-1 workers (at least
// one), fed by queueCapacity-buffered priority and normal job queues.
func New(gen ChunkGenerator, queueCapacity int) *Generator {
	workers := runtime.NumCPU() - 1
	if workers < 1 {
		workers = 1
	}
	return newWithWorkers(gen, workers, queueCapacity)
}

func newWithWorkers(gen ChunkGenerator, workers, queueCapacity int) *Generator {
	g := &Generator{
		gen:         gen,
		queue:       make(chan job, queueCapacity),
		prioQueue:   make(chan job, queueCapacity),
		stop:        make(chan struct{}),
		storagePool: pool.New(chunkstore.NewChunkStorage, chunkstore.ResetChunkStorage),
		results:     make(chan *GeneratedChunk, queueCapacity),
		handles:     make(map[hvtypes.ChunkPos]*int32),
	}

	g.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go g.worker()
	}

	return g
}

// EnqueueChunk allocates a chunk storage from the pool and schedules a job
// to fill it at lod. A handle to the job is retained internally so
// DequeueChunk(pos) can cancel it before it runs. Prioritized jobs are
// drained ahead of normal ones.
func (g *Generator) EnqueueChunk(pos hvtypes.ChunkPos, lod uint8, prioritize bool) {
	alloc := g.storagePool.Allocate()
	cancelled := new(int32)

	g.mu.Lock()
	g.handles[pos] = cancelled
	g.mu.Unlock()

	j := job{pos: pos, lod: lod, storage: alloc, cancelled: cancelled}
	if prioritize {
		g.prioQueue <- j
	} else {
		g.queue <- j
	}
}

// DequeueChunk cancels pos's generation job if it has not started yet. A
// job already running completes normally; its result is simply no longer
// tracked by this handle map.
func (g *Generator) DequeueChunk(pos hvtypes.ChunkPos) {
	g.mu.Lock()
	cancelled, ok := g.handles[pos]
	delete(g.handles, pos)
	g.mu.Unlock()

	if ok {
		atomic.StoreInt32(cancelled, 1)
	}
}

func (g *Generator) clearHandle(pos hvtypes.ChunkPos) {
	g.mu.Lock()
	delete(g.handles, pos)
	g.mu.Unlock()
}

// GetGeneratedChunks returns up to limit chunks from finished generation
// jobs. Non-blocking: it may return fewer than limit, including zero.
func (g *Generator) GetGeneratedChunks(limit int) []*GeneratedChunk {
	out := make([]*GeneratedChunk, 0, limit)
	for len(out) < limit {
		select {
		case c := <-g.results:
			out = append(out, c)
		default:
			return out
		}
	}
	return out
}

// Clear drops every job still waiting in either queue without running it,
// releasing their storages back to the pool. Jobs already executing are
// unaffected.
func (g *Generator) Clear() {
	g.drainQueue(g.prioQueue)
	g.drainQueue(g.queue)
}

func (g *Generator) drainQueue(ch chan job) {
	for {
		select {
		case j := <-ch:
			j.storage.Release()
			g.clearHandle(j.pos)
		default:
			return
		}
	}
}

// WaitUntilProcessed blocks until no worker is currently executing a job.
// It does not account for jobs still sitting in a queue, only ones that
// have started - callers that need "queue is fully drained" should combine
// this with their own knowledge of how many jobs were enqueued.
func (g *Generator) WaitUntilProcessed() {
	for atomic.LoadInt32(&g.executing) != 0 {
		time.Sleep(50 * time.Millisecond)
	}
}

// Stop terminates every worker goroutine. Queued jobs are dropped; their
// storages are not released back to the pool since the pool itself goes
// out of scope with the Generator.
func (g *Generator) Stop() {
	close(g.stop)
	g.wg.Wait()
}

func (g *Generator) worker() {
	defer g.wg.Done()

	for {
		var j job
		var ok bool

		select {
		case j, ok = <-g.prioQueue:
		default:
			select {
			case j, ok = <-g.prioQueue:
			case j, ok = <-g.queue:
			case <-g.stop:
				return
			}
		}
		if !ok {
			return
		}

		if atomic.LoadInt32(j.cancelled) != 0 {
			j.storage.Release()
			continue
		}

		atomic.AddInt32(&g.executing, 1)
		g.run(j)
		atomic.AddInt32(&g.executing, -1)
	}
}

func (g *Generator) run(j job) {
	defer func() { recover() }()

	if !g.gen.IsInterestedIn(j.pos) {
		j.storage.Release()
		g.clearHandle(j.pos)
		return
	}

	storage := *j.storage.Value()
	chunk := &chunkstore.Chunk{Pos: j.pos, LOD: j.lod, Storage: storage}
	g.gen.GenerateChunk(chunk)
	g.clearHandle(j.pos)

	select {
	case g.results <- &GeneratedChunk{Chunk: chunk, Release: j.storage.Release}:
	case <-g.stop:
		j.storage.Release()
	}
}
