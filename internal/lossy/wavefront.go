package lossy

import (
	"sync"
	"sync/atomic"
	"unsafe"
)

const cacheLine = 64

// rowSync publishes per-row progress so that a macroblock row only runs
// ahead of the row above it once that row's top-right context is ready.
type rowSync struct {
	rows []rowProgress
}

type rowProgress struct {
	finished atomic.Int32 // macroblocks completed in the row
	sleepers atomic.Int32 // goroutines parked in waitFor
	mu       sync.Mutex
	wake     *sync.Cond
	_        [cacheLine - rowProgressSize%cacheLine]byte
}

// rowProgressSize is the unpadded size of rowProgress; neighbouring rows
// never share a cache line.
const rowProgressSize = 2*unsafe.Sizeof(atomic.Int32{}) + unsafe.Sizeof(sync.Mutex{}) +
	unsafe.Sizeof((*sync.Cond)(nil))

func newRowSync(mbH int) *rowSync {
	rs := &rowSync{rows: make([]rowProgress, mbH)}
	for i := range rs.rows {
		p := &rs.rows[i]
		p.wake = sync.NewCond(&p.mu)
	}
	return rs
}

// waitFor returns once row y reports at least needed finished macroblocks.
func (rs *rowSync) waitFor(y int, needed int32) {
	p := &rs.rows[y]
	if p.finished.Load() >= needed {
		return
	}
	p.sleepers.Add(1)
	defer p.sleepers.Add(-1)
	p.mu.Lock()
	defer p.mu.Unlock()
	for p.finished.Load() < needed {
		p.wake.Wait()
	}
}

// signal publishes that row y has finished n macroblocks.
func (rs *rowSync) signal(y int, n int32) {
	p := &rs.rows[y]
	p.finished.Store(n)
	if p.sleepers.Load() == 0 {
		return
	}
	// Taking the lock orders the store before a sleeper's re-check.
	p.mu.Lock()
	p.wake.Broadcast()
	p.mu.Unlock()
}

// release unblocks every waiter of row y, finished or not. Rows that stop
// early call it so the rows below can observe the cancellation.
func (rs *rowSync) release(y int) {
	rs.signal(y, 1<<30)
}
