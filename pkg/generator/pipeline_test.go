package generator

import (
	"testing"
	"time"

	"github.com/leterax/hvds/pkg/chunkstore"
	"github.com/leterax/hvds/pkg/hvtypes"
)

// blockingGen fills a chunk with a single marker block, but only once a
// test has released its gate - used to pin jobs in flight so Clear/Dequeue
// can be observed deterministically.
type blockingGen struct {
	gate chan struct{}
}

func (b *blockingGen) IsInterestedIn(hvtypes.ChunkPos) bool { return true }

func (b *blockingGen) GenerateChunk(chunk *chunkstore.Chunk) {
	<-b.gate
	chunkstore.SetBlock(chunk.Storage, 0, 0, 0, hvtypes.Grass)
}

func TestGeneratorEnqueueAndRetrieve(t *testing.T) {
	gen := newWithWorkers(&TerrainGenerator{
		cfg:   Config{Continentalness: Noise{Frequency: 0.01, Octaves: 2, SplinePoints: []SplinePoint{{X: -1, Y: 8}, {X: 1, Y: 24}}}},
		noise: newSource(1),
		cache: newColumnCache(),
	}, 2, 16)
	defer gen.Stop()

	gen.EnqueueChunk(hvtypes.ChunkPos{X: 0, Y: 0, Z: 0}, 5, false)
	gen.WaitUntilProcessed()

	deadline := time.Now().Add(time.Second)
	var got []*GeneratedChunk
	for len(got) == 0 && time.Now().Before(deadline) {
		got = gen.GetGeneratedChunks(10)
		if len(got) == 0 {
			time.Sleep(time.Millisecond)
		}
	}
	if len(got) != 1 {
		t.Fatalf("got %d generated chunks, want 1", len(got))
	}
	if got[0].Chunk.Pos != (hvtypes.ChunkPos{}) {
		t.Errorf("chunk pos = %+v, want zero", got[0].Chunk.Pos)
	}
	got[0].Release()
}

// TestGeneratorDequeueCancelsUnstarted pins every worker on an in-flight
// job, enqueues one more job behind them, dequeues it before any worker can
// reach it, then releases the gate and confirms the dequeued job never
// produced a result.
func TestGeneratorDequeueCancelsUnstarted(t *testing.T) {
	gate := make(chan struct{})
	gen := newWithWorkers(&blockingGen{gate: gate}, 2, 16)
	defer gen.Stop()

	gen.EnqueueChunk(hvtypes.ChunkPos{X: 0}, 0, false)
	gen.EnqueueChunk(hvtypes.ChunkPos{X: 1}, 0, false)
	time.Sleep(20 * time.Millisecond) // let both workers pick up their jobs

	pending := hvtypes.ChunkPos{X: 2}
	gen.EnqueueChunk(pending, 0, false)
	gen.DequeueChunk(pending)

	close(gate)
	gen.WaitUntilProcessed()

	got := gen.GetGeneratedChunks(10)
	if len(got) != 2 {
		t.Fatalf("got %d generated chunks, want 2", len(got))
	}
	for _, c := range got {
		if c.Chunk.Pos == pending {
			t.Errorf("dequeued chunk %v should not have been generated", pending)
		}
		c.Release()
	}
}

// TestGeneratorClearStopsQueuedWork mirrors the cancellation scenario: a
// large batch of jobs is enqueued, Clear is called while most are still
// queued, and the number of completions afterward is bounded by what was
// already executing - never the full batch, and nothing new trickles in
// afterward.
func TestGeneratorClearStopsQueuedWork(t *testing.T) {
	gate := make(chan struct{})
	gen := newWithWorkers(&blockingGen{gate: gate}, 4, 2000)
	defer gen.Stop()

	const total = 1000
	for i := 0; i < total; i++ {
		gen.EnqueueChunk(hvtypes.ChunkPos{X: int32(i)}, 0, false)
	}
	time.Sleep(20 * time.Millisecond) // let the 4 workers claim their jobs

	gen.Clear()
	close(gate)
	gen.WaitUntilProcessed()

	completed := gen.GetGeneratedChunks(total)
	if len(completed) == 0 {
		t.Fatalf("expected the already-executing jobs to complete")
	}
	if len(completed) >= total {
		t.Fatalf("Clear should have dropped most of %d queued jobs, got %d completed", total, len(completed))
	}
	for _, c := range completed {
		c.Release()
	}

	time.Sleep(30 * time.Millisecond)
	more := gen.GetGeneratedChunks(total)
	if len(more) != 0 {
		t.Fatalf("expected no further completions after Clear, got %d", len(more))
	}
}
