package realtime

import (
	"sync"

	"github.com/google/uuid"
)

// InflightGuard allows at most one pending transition per order.
type InflightGuard struct {
	mu   sync.Mutex
	busy map[uuid.UUID]struct{}
}

func NewInflightGuard() *InflightGuard {
	return &InflightGuard{busy: map[uuid.UUID]struct{}{}}
}

// TryAcquire returns false when a request for id is already in flight.
// The returned release is safe to call more than once.
func (g *InflightGuard) TryAcquire(id uuid.UUID) (func(), bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.busy[id]; ok {
		return func() {}, false
	}
	g.busy[id] = struct{}{}
	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.busy, id)
			g.mu.Unlock()
		})
	}, true
}

func (g *InflightGuard) Busy(id uuid.UUID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.busy[id]
	return ok
}
