// Package gpufence wraps an OpenGL fence sync object behind the svo.Fence
// contract, so a WorldSVO can wait for the GPU to finish reading a buffer
// region before overwriting it. It is the one GPU-touching import pulled
// into the data-store side of this repository; everything else under
// pkg/esvo, pkg/csvo, and pkg/svomanager stays free of OpenGL.
package gpufence

import (
	"sync"

	"github.com/go-gl/gl/v4.6-core/gl"
)

// Fence is signaled by the renderer right after the draw call that last
// read a WorldSVO's uploaded buffer, and waited on by the WorldSVO before
// its next incremental write into that same buffer.
type Fence struct {
	mu   sync.Mutex
	sync uintptr
}

// New returns a fence with nothing signaled yet; Wait is a no-op until the
// first Signal.
func New() *Fence {
	return &Fence{}
}

// Signal replaces any previously signaled fence with one that completes
// once every GPU command issued so far - including the last draw - has
// finished.
func (f *Fence) Signal() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sync != 0 {
		gl.DeleteSync(f.sync)
	}
	f.sync = gl.FenceSync(gl.SYNC_GPU_COMMANDS_COMPLETE, 0)
}

// Wait blocks until the most recently signaled fence completes, or up to
// 10ms before giving up - matching the teacher's own triple-buffering wait
// budget in ChunkBufferManager.waitForFence.
func (f *Fence) Wait() {
	f.mu.Lock()
	s := f.sync
	f.mu.Unlock()
	if s == 0 {
		return
	}

	status := gl.ClientWaitSync(s, gl.SYNC_FLUSH_COMMANDS_BIT, 10000000)
	if status == gl.TIMEOUT_EXPIRED {
		println("gpufence: wait timeout")
	}
}
