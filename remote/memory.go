// ABOUTME: In-process remote store
// ABOUTME: Backs offline sessions and tests; snapshots fan out to subscribers in order
package remote

import (
	"context"
	"sort"
	"sync"

	"github.com/harperreed/leadsync/models"
)

type subscriber struct {
	ch   chan []models.Lead
	done chan struct{}
}

type Memory struct {
	mu      sync.Mutex
	records map[string]models.Lead
	subs    map[int]*subscriber
	nextSub int
	closed  bool
}

func NewMemory() *Memory {
	return &Memory{
		records: make(map[string]models.Lead),
		subs:    make(map[int]*subscriber),
	}
}

func (m *Memory) Subscribe(ctx context.Context, onSnapshot func([]models.Lead)) (func(), error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}
	id := m.nextSub
	m.nextSub++
	sub := &subscriber{ch: make(chan []models.Lead, 1), done: make(chan struct{})}
	m.subs[id] = sub
	sub.ch <- m.snapshotLocked()
	m.mu.Unlock()

	go func() {
		for {
			select {
			case <-sub.done:
				return
			case <-ctx.Done():
				return
			case snap := <-sub.ch:
				onSnapshot(snap)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			if _, ok := m.subs[id]; ok {
				delete(m.subs, id)
				close(sub.done)
			}
		})
	}, nil
}

func (m *Memory) Upsert(ctx context.Context, lead models.Lead) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.records[lead.ID] = lead.Clone()
	m.publishLocked()
	return nil
}

func (m *Memory) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if _, ok := m.records[id]; !ok {
		return nil
	}
	delete(m.records, id)
	m.publishLocked()
	return nil
}

// Get returns a stored record, for inspection.
func (m *Memory) Get(id string) (models.Lead, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.records[id]
	return l.Clone(), ok
}

// Len returns the number of stored records.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// Close stops every subscription.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	for id, sub := range m.subs {
		close(sub.done)
		delete(m.subs, id)
	}
	return nil
}

func (m *Memory) snapshotLocked() []models.Lead {
	out := make([]models.Lead, 0, len(m.records))
	for _, l := range m.records {
		out = append(out, l.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// publishLocked hands each subscriber the latest snapshot, replacing any
// snapshot it has not consumed yet.
func (m *Memory) publishLocked() {
	for _, sub := range m.subs {
		snap := m.snapshotLocked()
		select {
		case <-sub.ch:
		default:
		}
		sub.ch <- snap
	}
}
