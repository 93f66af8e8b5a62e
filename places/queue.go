package places

import (
	"context"
	"sync"
	"time"
)

// DetailQueue drains detail lookups in the background, BatchSize at a time
// with BatchDelay between batches. Each result is handed to the callback,
// including failed lookups so the lead can be marked as enriched.
type DetailQueue struct {
	client    *Client
	onResult  func(Details)
	isFetched func(id string) bool

	mu      sync.Mutex
	ctx     context.Context
	pending []string
	queued  map[string]bool
	running bool
	wg      sync.WaitGroup
}

// NewDetailQueue binds the queue to ctx; cancelling it stops draining.
// isFetched may be nil.
func NewDetailQueue(ctx context.Context, client *Client, isFetched func(string) bool, onResult func(Details)) *DetailQueue {
	if isFetched == nil {
		isFetched = func(string) bool { return false }
	}
	return &DetailQueue{
		client:    client,
		onResult:  onResult,
		isFetched: isFetched,
		ctx:       ctx,
		queued:    make(map[string]bool),
	}
}

// Enqueue adds ids that are neither queued, in flight, nor already fetched.
// It returns how many were added.
func (q *DetailQueue) Enqueue(ids []string) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	added := 0
	for _, id := range ids {
		if id == "" || q.queued[id] || q.isFetched(id) {
			continue
		}
		q.queued[id] = true
		q.pending = append(q.pending, id)
		added++
	}

	if added > 0 && !q.running && q.ctx.Err() == nil {
		q.running = true
		q.wg.Add(1)
		go q.drain()
	}
	return added
}

// Pending returns the number of ids queued or in flight.
func (q *DetailQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.queued)
}

// Wait blocks until the queue is idle.
func (q *DetailQueue) Wait() {
	q.wg.Wait()
}

func (q *DetailQueue) drain() {
	defer q.wg.Done()
	first := true
	for {
		q.mu.Lock()
		if len(q.pending) == 0 || q.ctx.Err() != nil {
			q.running = false
			q.mu.Unlock()
			return
		}
		n := min(q.client.opts.BatchSize, len(q.pending))
		batch := append([]string(nil), q.pending[:n]...)
		q.pending = q.pending[n:]
		q.mu.Unlock()

		if !first {
			select {
			case <-q.ctx.Done():
				q.mu.Lock()
				q.running = false
				q.mu.Unlock()
				return
			case <-time.After(q.client.opts.BatchDelay):
			}
		}
		first = false

		for _, d := range q.client.fetchBatch(q.ctx, batch) {
			q.onResult(d)
			q.mu.Lock()
			delete(q.queued, d.ID)
			q.mu.Unlock()
		}
	}
}
