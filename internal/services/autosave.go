package services

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"tripmapper/internal/models"
)

// SnapshotWriter is where debounced snapshots land
type SnapshotWriter interface {
	Put(route *models.Route) (*models.Route, error)
}

// Autosave coalesces rapid route mutations into one background write per
// route. Each Queue call resets that route's timer; when the debounce
// window elapses the most recent snapshot wins and earlier ones are
// dropped.
type Autosave struct {
	writer   SnapshotWriter
	debounce time.Duration

	mu       sync.Mutex
	snapshot map[string]*models.Route
	timer    map[string]*time.Timer
	stopped  bool
}

// NewAutosave creates a debounced autosaver
func NewAutosave(writer SnapshotWriter, debounce time.Duration) *Autosave {
	return &Autosave{
		writer:   writer,
		debounce: debounce,
		snapshot: make(map[string]*models.Route),
		timer:    make(map[string]*time.Timer),
	}
}

// Queue records a snapshot of the route for background saving. The route
// is deep-copied immediately, so the caller may keep mutating it. Returns
// false once the autosaver has been stopped.
func (a *Autosave) Queue(route *models.Route) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopped {
		return false
	}

	a.snapshot[route.ID] = route.Clone()

	if t, ok := a.timer[route.ID]; ok {
		t.Reset(a.debounce)
		return true
	}
	id := route.ID
	a.timer[id] = time.AfterFunc(a.debounce, func() { a.flush(id) })
	return true
}

// Pending returns a copy of the not-yet-flushed snapshot for a route, or
// nil. Readers overlay this on stored state so edits inside the debounce
// window are never invisible.
func (a *Autosave) Pending(id string) *models.Route {
	a.mu.Lock()
	defer a.mu.Unlock()
	if snap, ok := a.snapshot[id]; ok {
		return snap.Clone()
	}
	return nil
}

// PendingAll returns copies of every not-yet-flushed snapshot
func (a *Autosave) PendingAll() []*models.Route {
	a.mu.Lock()
	defer a.mu.Unlock()
	var snaps []*models.Route
	for _, snap := range a.snapshot {
		snaps = append(snaps, snap.Clone())
	}
	return snaps
}

// Drop discards any pending snapshot for a route. Used when the route is
// deleted so a stale snapshot cannot resurrect it.
func (a *Autosave) Drop(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if t, ok := a.timer[id]; ok {
		t.Stop()
	}
	delete(a.timer, id)
	delete(a.snapshot, id)
}

// FlushAll writes every pending snapshot immediately. Export takes this
// path so the document reflects the latest edits.
func (a *Autosave) FlushAll() {
	a.mu.Lock()
	var ids []string
	for id, t := range a.timer {
		t.Stop()
		ids = append(ids, id)
	}
	a.mu.Unlock()

	for _, id := range ids {
		a.flush(id)
	}
}

func (a *Autosave) flush(id string) {
	a.mu.Lock()
	snap := a.snapshot[id]
	delete(a.snapshot, id)
	delete(a.timer, id)
	a.mu.Unlock()

	if snap == nil {
		return
	}
	if _, err := a.writer.Put(snap); err != nil {
		logrus.WithError(err).WithField("route_id", id).Error("autosave write failed")
	}
}

// Stop flushes every pending snapshot synchronously and stops accepting
// new ones. Used on shutdown so the last edits are not lost.
func (a *Autosave) Stop() {
	a.mu.Lock()
	a.stopped = true
	a.mu.Unlock()
	a.FlushAll()
}
