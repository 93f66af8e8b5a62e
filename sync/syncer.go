// ABOUTME: Bidirectional sync between the lead store, the remote collection and the local cache
// ABOUTME: Debounces outgoing upserts per lead, applies remote snapshots and runs the delete flow
package sync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/harperreed/leadsync/metrics"
	"github.com/harperreed/leadsync/models"
	"github.com/harperreed/leadsync/remote"
	"github.com/harperreed/leadsync/store"
)

// DefaultDebounce is the quiet period before pending upserts are sent.
const DefaultDebounce = 500 * time.Millisecond

// Persister receives the full lead list after every change.
type Persister interface {
	Save(leads []models.Lead) error
}

type Options struct {
	Debounce time.Duration
	Log      zerolog.Logger
	Metrics  metrics.Recorder
	// Persist may be nil.
	Persist Persister
	// OnSnapshot is called after a remote snapshot has been merged.
	OnSnapshot func()
}

// Syncer owns the pending-upload buffer. Call Changed after every local
// mutation of the store; Syncer collects the leads that need pushing and
// sends them once no change has happened for the debounce period.
type Syncer struct {
	store  *store.Store
	remote remote.Store
	opts   Options

	mu      sync.Mutex
	pending map[string]models.Lead
	// inflight holds ids whose upsert has been sent but not answered.
	inflight map[string]struct{}
	timer   *time.Timer
	ctx     context.Context
	unsub   func()
	closed  bool

	// flushMu keeps upserts for one id in submission order.
	flushMu sync.Mutex
	// saveMu makes reading the store and writing the local cache one step.
	saveMu sync.Mutex
}

func New(st *store.Store, rs remote.Store, opts Options) *Syncer {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Noop()
	}
	return &Syncer{
		store:   st,
		remote:  rs,
		opts:    opts,
		pending:  make(map[string]models.Lead),
		inflight: make(map[string]struct{}),
		ctx:      context.Background(),
	}
}

// Start subscribes to the remote collection. Background flushes run on ctx.
func (s *Syncer) Start(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	unsub, err := s.remote.Subscribe(ctx, s.applySnapshot)
	if err != nil {
		return fmt.Errorf("failed to subscribe to remote leads: %w", err)
	}

	s.mu.Lock()
	s.unsub = unsub
	s.mu.Unlock()
	return nil
}

func (s *Syncer) applySnapshot(snap []models.Lead) {
	s.store.ApplyRemoteSnapshot(snap, s.IsPending)
	s.opts.Metrics.Snapshot(len(snap))
	s.opts.Log.Debug().Int("records", len(snap)).Msg("remote snapshot")

	// consumes the post-snapshot suppression
	s.Changed()

	if s.opts.OnSnapshot != nil {
		s.opts.OnSnapshot()
	}
}

// Changed persists the store locally and queues every lead the store
// reports as needing upload.
func (s *Syncer) Changed() {
	s.persist()

	candidates := s.store.SyncCandidates()
	if len(candidates) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	for _, l := range candidates {
		s.pending[l.ID] = l
	}
	s.opts.Metrics.SetPending(len(s.pending))
	s.armLocked()
}

func (s *Syncer) persist() {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	all := s.store.All()
	s.opts.Metrics.SetLeads(len(all))
	if s.opts.Persist == nil {
		return
	}
	if err := s.opts.Persist.Save(all); err != nil {
		s.opts.Log.Warn().Err(err).Msg("failed to persist leads locally")
	}
}

func (s *Syncer) armLocked() {
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.opts.Debounce, func() {
		s.mu.Lock()
		ctx := s.ctx
		s.mu.Unlock()
		_ = s.flush(ctx)
	})
}

// IsPending reports whether id is waiting to be uploaded or its upload has
// not been answered yet.
func (s *Syncer) IsPending(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pending[id]; ok {
		return true
	}
	_, ok := s.inflight[id]
	return ok
}

// Pending returns the number of leads waiting to be uploaded.
func (s *Syncer) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Flush sends pending upserts immediately.
func (s *Syncer) Flush(ctx context.Context) error {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()
	return s.flush(ctx)
}

func (s *Syncer) flush(ctx context.Context) error {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.mu.Lock()
	batch := s.pending
	s.pending = make(map[string]models.Lead)
	for id := range batch {
		s.inflight[id] = struct{}{}
	}
	s.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	var errs []error
	for id, l := range batch {
		err := s.remote.Upsert(ctx, l)
		s.opts.Metrics.RemoteWrite("upsert", err)
		if err == nil {
			s.mu.Lock()
			delete(s.inflight, id)
			s.mu.Unlock()
			continue
		}
		s.opts.Log.Warn().Err(err).Str("lead_id", id).Msg("remote upsert failed")
		errs = append(errs, fmt.Errorf("upsert %s: %w", id, err))

		// store lock is never taken while holding s.mu
		deleted := s.store.IsTombstoned(id)
		s.mu.Lock()
		// a newer edit queued meanwhile supersedes the failed one
		if _, newer := s.pending[id]; !newer && !deleted {
			s.pending[id] = l
		}
		delete(s.inflight, id)
		s.mu.Unlock()
	}

	s.mu.Lock()
	s.opts.Metrics.SetPending(len(s.pending))
	s.mu.Unlock()

	s.opts.Log.Debug().Int("sent", len(batch)-len(errs)).Int("failed", len(errs)).Msg("flushed pending upserts")
	return errors.Join(errs...)
}

// Remove deletes a lead locally and remotely. The id is tombstoned first so
// in-flight snapshots cannot bring it back. When the remote delete fails the
// tombstone is lifted and the error returned so the caller can retry.
func (s *Syncer) Remove(ctx context.Context, id string) error {
	s.store.Remove(id)

	s.mu.Lock()
	delete(s.pending, id)
	s.opts.Metrics.SetPending(len(s.pending))
	s.mu.Unlock()

	s.Changed()

	// an upsert already in flight must land before the delete
	s.flushMu.Lock()
	err := s.remote.Delete(ctx, id)
	s.flushMu.Unlock()
	s.opts.Metrics.RemoteWrite("delete", err)
	if err != nil {
		s.store.ClearTombstone(id)
		s.opts.Log.Warn().Err(err).Str("lead_id", id).Msg("remote delete failed")
		return fmt.Errorf("failed to delete lead %s: %w", id, err)
	}

	// grace window starts once the delete is acknowledged
	s.store.Tombstone(id)
	return nil
}

// Close unsubscribes and sends whatever is still pending.
func (s *Syncer) Close(ctx context.Context) error {
	s.mu.Lock()
	unsub := s.unsub
	s.unsub = nil
	s.mu.Unlock()
	if unsub != nil {
		unsub()
	}

	err := s.Flush(ctx)

	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return err
}
