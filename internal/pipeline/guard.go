package pipeline

import "sync"

// Guard is a single-flight latest-wins scheduler keyed by lens id. At most
// one run per key is in flight; a trigger arriving while one is running is
// queued, and a newer trigger replaces the queued one, since a later trace
// supersedes the basis of the analysis a queued run would have produced.
type Guard struct {
	mu       sync.Mutex
	inflight map[string]bool
	pending  map[string]func()
}

// NewGuard creates a Guard.
func NewGuard() *Guard {
	return &Guard{
		inflight: make(map[string]bool),
		pending:  make(map[string]func()),
	}
}

// Do schedules run under key. If no run is in flight for the key, run starts
// immediately on a new goroutine. Otherwise run becomes the pending run for
// the key, dropping any previously queued one (latest wins).
func (g *Guard) Do(key string, run func()) {
	g.mu.Lock()

	if g.inflight[key] {
		g.pending[key] = run
		g.mu.Unlock()

		return
	}

	g.inflight[key] = true
	g.mu.Unlock()

	go g.execute(key, run)
}

func (g *Guard) execute(key string, run func()) {
	for {
		run()

		g.mu.Lock()

		next, ok := g.pending[key]
		if !ok {
			delete(g.inflight, key)
			g.mu.Unlock()

			return
		}

		delete(g.pending, key)
		g.mu.Unlock()

		run = next
	}
}

// Inflight reports whether a run is currently executing for key.
func (g *Guard) Inflight(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.inflight[key]
}
