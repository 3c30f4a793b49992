package ipcsem

import "sync/atomic"

// Guard represents one unit held on a Semaphore. It is returned by Access and
// TryAccess and must be released before the Semaphore is closed:
//
//	g := sem.Access()
//	defer g.Release()
type Guard struct {
	sem      *Semaphore
	released atomic.Bool
}

// Release gives the unit back to the semaphore. Only the first call has an
// effect, so it is safe to defer Release and also call it early.
func (g *Guard) Release() {
	if g == nil || !g.released.CompareAndSwap(false, true) {
		return
	}
	g.sem.Release()
}
