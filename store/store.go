// ABOUTME: In-memory authoritative lead collection
// ABOUTME: Merges search results and remote snapshots, tracks tombstones and the persistence diff
package store

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/harperreed/leadsync/models"
)

var (
	ErrLeadNotFound  = errors.New("lead not found")
	ErrDuplicateLead = errors.New("lead already exists")
	ErrMissingID     = errors.New("lead id is required")
)

// DefaultTombstoneGrace is how long a deleted id is ignored in remote snapshots.
const DefaultTombstoneGrace = 5 * time.Second

type Options struct {
	Now            func() time.Time
	TombstoneGrace time.Duration
	Log            zerolog.Logger
}

// Store holds the merged lead list. All methods are safe for concurrent use
// and copy leads in and out, so callers never alias internal state.
type Store struct {
	mu sync.Mutex

	leads map[string]models.Lead
	order []string

	tombstones map[string]time.Time
	// synced maps id to the LastUpdated value last handed out by SyncCandidates
	// or accepted from the remote side.
	synced map[string]int64
	// acked maps id to the LastUpdated value last seen in a remote snapshot
	// or restored from the cache, i.e. the version the remote side holds.
	acked map[string]int64

	remoteLoaded     bool
	suppressNextSync bool

	now   func() time.Time
	grace time.Duration
	log   zerolog.Logger
}

func New(opts Options) *Store {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.TombstoneGrace <= 0 {
		opts.TombstoneGrace = DefaultTombstoneGrace
	}
	return &Store{
		leads:      make(map[string]models.Lead),
		tombstones: make(map[string]time.Time),
		synced:     make(map[string]int64),
		acked:      make(map[string]int64),
		now:        opts.Now,
		grace:      opts.TombstoneGrace,
		log:        opts.Log,
	}
}

// Restore seeds the store from the local cache. Restored records count as
// synced so a restart does not re-push the whole collection.
func (s *Store) Restore(leads []models.Lead) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	for _, l := range leads {
		if l.ID == "" {
			continue
		}
		if _, ok := s.leads[l.ID]; ok {
			continue
		}
		s.put(l.Clone())
		s.synced[l.ID] = l.LastUpdated
		s.acked[l.ID] = l.LastUpdated
		added++
	}
	return added
}

// ApplySearchResults keeps every interacted-with lead and replaces the rest
// with candidates. Candidates colliding with a retained id are dropped, as
// are ids still under a tombstone. It returns the number of candidates added.
func (s *Store) ApplySearchResults(candidates []models.Lead) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	retained := make(map[string]bool, len(s.order))
	next := make(map[string]models.Lead, len(s.order)+len(candidates))
	order := make([]string, 0, len(s.order)+len(candidates))
	for _, id := range s.order {
		l := s.leads[id]
		if l.Interacted() {
			retained[id] = true
			next[id] = l
			order = append(order, id)
		}
	}

	added := 0
	for _, c := range candidates {
		if c.ID == "" || retained[c.ID] || s.tombstonedLocked(c.ID) {
			continue
		}
		if _, dup := next[c.ID]; dup {
			continue
		}
		next[c.ID] = c.Clone()
		order = append(order, c.ID)
		added++
	}

	for id := range s.leads {
		if _, ok := next[id]; !ok {
			delete(s.synced, id)
		}
	}
	s.leads = next
	s.order = order

	s.log.Debug().
		Int("retained", len(retained)).
		Int("added", added).
		Msg("applied search results")
	return added
}

// AppendSearchResults adds the candidates whose id is not yet present.
func (s *Store) AppendSearchResults(candidates []models.Lead) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	for _, c := range candidates {
		if c.ID == "" || s.tombstonedLocked(c.ID) {
			continue
		}
		if _, ok := s.leads[c.ID]; ok {
			continue
		}
		s.put(c.Clone())
		added++
	}
	return added
}

// ApplyRemoteSnapshot merges a full remote snapshot.
//
// Tombstoned ids are ignored and only interacted-with remote records are
// taken. Local leads that are not interacted-with survive when the snapshot
// lacks them. For an id known on both sides the remote record wins, unless
// the local copy is strictly newer and the remote side has not acknowledged
// it yet. pending reports ids queued or in flight for upload and may be nil.
func (s *Store) ApplyRemoteSnapshot(remote []models.Lead, pending func(id string) bool) {
	if pending == nil {
		pending = func(string) bool { return false }
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeTombstonesLocked()
	next := make(map[string]models.Lead, len(remote)+len(s.leads))
	order := make([]string, 0, len(remote)+len(s.leads))
	keptLocal, ignored := 0, 0

	for _, r := range remote {
		if r.ID == "" || s.tombstonedLocked(r.ID) || !r.Interacted() {
			ignored++
			continue
		}
		if _, dup := next[r.ID]; dup {
			continue
		}
		if local, ok := s.leads[r.ID]; ok && local.LastUpdated > r.LastUpdated && s.unpushedLocked(local, pending) {
			next[r.ID] = local
			keptLocal++
		} else {
			next[r.ID] = r.Clone()
			s.synced[r.ID] = r.LastUpdated
			s.acked[r.ID] = r.LastUpdated
		}
		order = append(order, r.ID)
	}

	for _, id := range s.order {
		if _, ok := next[id]; ok {
			continue
		}
		l := s.leads[id]
		// interacted leads missing remotely were deleted elsewhere, unless
		// they have not been pushed yet
		if l.Interacted() && !s.unpushedLocked(l, pending) {
			delete(s.synced, id)
			delete(s.acked, id)
			continue
		}
		next[id] = l
		order = append(order, id)
	}

	s.leads = next
	s.order = order
	s.remoteLoaded = true
	s.suppressNextSync = true

	s.log.Debug().
		Int("remote", len(remote)).
		Int("ignored", ignored).
		Int("kept_local", keptLocal).
		Int("total", len(order)).
		Msg("applied remote snapshot")
}

// unpushedLocked reports whether the remote side may still lack l. Handing a
// lead out through SyncCandidates does not count as pushed; only a snapshot
// carrying the same LastUpdated does.
func (s *Store) unpushedLocked(l models.Lead, pending func(string) bool) bool {
	if pending(l.ID) {
		return true
	}
	v, ok := s.acked[l.ID]
	if !ok {
		return l.Interacted()
	}
	return v != l.LastUpdated
}

// Mutate applies p to the lead and stamps LastUpdated. It returns the record
// before and after the change.
func (s *Store) Mutate(id string, p Patch) (Change, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.leads[id]
	if !ok {
		return Change{}, ErrLeadNotFound
	}
	next := prev.Clone()
	p.apply(&next)
	next.LastUpdated = s.stampLocked(prev.LastUpdated)
	s.leads[id] = next
	return Change{Before: prev.Clone(), After: next.Clone()}, nil
}

// Add inserts a hand-entered lead.
func (s *Store) Add(l models.Lead) (models.Lead, error) {
	if l.ID == "" {
		return models.Lead{}, ErrMissingID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.leads[l.ID]; ok {
		return models.Lead{}, ErrDuplicateLead
	}
	l = l.Clone()
	if l.Status == "" {
		l.Status = models.StatusNew
	}
	if l.CallHistory == nil {
		l.CallHistory = []models.CallLog{}
	}
	if l.AddedAt == 0 {
		l.AddedAt = s.now().UnixMilli()
	}
	l.LastUpdated = s.stampLocked(0)
	s.put(l)
	return l.Clone(), nil
}

// Remove deletes the lead and tombstones its id. The returned lead is the
// removed record; ok is false when the id was unknown, but the id is
// tombstoned either way.
func (s *Store) Remove(id string) (models.Lead, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeTombstonesLocked()
	s.tombstones[id] = s.now()
	l, ok := s.leads[id]
	if ok {
		delete(s.leads, id)
		delete(s.synced, id)
		delete(s.acked, id)
		s.order = without(s.order, id)
	}
	return l, ok
}

// Tombstone restarts the grace window for id, used once a remote delete
// has been acknowledged.
func (s *Store) Tombstone(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tombstones[id] = s.now()
}

// ClearTombstone lifts the tombstone so the id can be retried or resurface.
func (s *Store) ClearTombstone(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tombstones, id)
}

func (s *Store) IsTombstoned(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tombstonedLocked(id)
}

func (s *Store) tombstonedLocked(id string) bool {
	at, ok := s.tombstones[id]
	if !ok {
		return false
	}
	if s.now().Sub(at) >= s.grace {
		delete(s.tombstones, id)
		return false
	}
	return true
}

func (s *Store) purgeTombstonesLocked() {
	now := s.now()
	for id, at := range s.tombstones {
		if now.Sub(at) >= s.grace {
			delete(s.tombstones, id)
		}
	}
}

// Tombstones returns the number of ids currently under a tombstone.
func (s *Store) Tombstones() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeTombstonesLocked()
	return len(s.tombstones)
}

// SyncCandidates returns the leads whose state must be pushed remotely:
// interacted-with leads changed since the last call, plus previously pushed
// leads that are no longer interacted-with. Nothing is returned before the
// first remote snapshot, and the first call after each snapshot is skipped.
func (s *Store) SyncCandidates() []models.Lead {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.remoteLoaded {
		return nil
	}
	if s.suppressNextSync {
		s.suppressNextSync = false
		return nil
	}

	var out []models.Lead
	for _, id := range s.order {
		l := s.leads[id]
		v, seen := s.synced[id]
		if !l.Interacted() && !seen {
			continue
		}
		if seen && v == l.LastUpdated {
			continue
		}
		if s.tombstonedLocked(id) {
			continue
		}
		s.synced[id] = l.LastUpdated
		out = append(out, l.Clone())
	}
	return out
}

// RemoteLoaded reports whether a remote snapshot has been applied.
func (s *Store) RemoteLoaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remoteLoaded
}

func (s *Store) Get(id string) (models.Lead, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.leads[id]
	if !ok {
		return models.Lead{}, false
	}
	return l.Clone(), true
}

// All returns a copy of every lead in merge order.
func (s *Store) All() []models.Lead {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Lead, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.leads[id].Clone())
	}
	return out
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.leads)
}

// IDs returns every id in merge order.
func (s *Store) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...)
}

func (s *Store) put(l models.Lead) {
	if _, ok := s.leads[l.ID]; !ok {
		s.order = append(s.order, l.ID)
	}
	s.leads[l.ID] = l
}

// stampLocked returns now in ms, forced past prev so every mutation is
// visible to the persistence diff.
func (s *Store) stampLocked(prev int64) int64 {
	ts := s.now().UnixMilli()
	if ts <= prev {
		ts = prev + 1
	}
	return ts
}

func without(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i:i], ids[i+1:]...)
		}
	}
	return ids
}
