// ABOUTME: Charm KV remote store
// ABOUTME: Polls the synced key/value store and emits a snapshot whenever its fingerprint changes
package remote

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/harperreed/leadsync/charm"
	"github.com/harperreed/leadsync/models"
)

const charmPrefix = "leads/"

type Charm struct {
	client   *charm.Client
	interval time.Duration
	log      zerolog.Logger

	mu    sync.Mutex
	kicks []chan struct{}
}

func NewCharm(client *charm.Client, interval time.Duration, log zerolog.Logger) *Charm {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Charm{client: client, interval: interval, log: log}
}

func charmKey(id string) []byte {
	return []byte(charmPrefix + id)
}

func (c *Charm) Upsert(ctx context.Context, lead models.Lead) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if lead.ID == "" {
		return fmt.Errorf("lead id is required")
	}
	data, err := json.Marshal(lead)
	if err != nil {
		return fmt.Errorf("failed to encode lead: %w", err)
	}
	if err := c.client.Set(charmKey(lead.ID), data); err != nil {
		return fmt.Errorf("failed to write lead %s: %w", lead.ID, err)
	}
	c.kick()
	return nil
}

func (c *Charm) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.client.Delete(charmKey(id)); err != nil {
		return fmt.Errorf("failed to delete lead %s: %w", id, err)
	}
	c.kick()
	return nil
}

// kick asks every subscription to rescan now instead of waiting for the next tick.
func (c *Charm) kick() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range c.kicks {
		select {
		case k <- struct{}{}:
		default:
		}
	}
}

func (c *Charm) Subscribe(ctx context.Context, onSnapshot func([]models.Lead)) (func(), error) {
	ctx, cancel := context.WithCancel(ctx)
	kick := make(chan struct{}, 1)

	c.mu.Lock()
	c.kicks = append(c.kicks, kick)
	c.mu.Unlock()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.pollLoop(ctx, kick, onSnapshot)
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			wg.Wait()
			c.mu.Lock()
			for i, k := range c.kicks {
				if k == kick {
					c.kicks = append(c.kicks[:i], c.kicks[i+1:]...)
					break
				}
			}
			c.mu.Unlock()
		})
	}, nil
}

func (c *Charm) pollLoop(ctx context.Context, kick <-chan struct{}, onSnapshot func([]models.Lead)) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	var last uint64
	first := true
	for {
		leads, sum, err := c.scan(!first)
		if err != nil {
			c.log.Warn().Err(err).Msg("charm scan failed, retrying next tick")
		} else if first || sum != last {
			first = false
			last = sum
			onSnapshot(leads)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-kick:
		}
	}
}

// scan reads every lead record, optionally syncing with the server first.
// The fingerprint covers keys and raw values in key order.
func (c *Charm) scan(syncFirst bool) ([]models.Lead, uint64, error) {
	if syncFirst {
		if err := c.client.Sync(); err != nil {
			c.log.Debug().Err(err).Msg("charm sync failed, using local replica")
		}
	}

	keys, err := c.client.KeysWithPrefix([]byte(charmPrefix))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list keys: %w", err)
	}
	sort.Slice(keys, func(i, j int) bool { return string(keys[i]) < string(keys[j]) })

	h := xxhash.New()
	leads := make([]models.Lead, 0, len(keys))
	for _, k := range keys {
		raw, err := c.client.Get(k)
		if errors.Is(err, charm.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, 0, fmt.Errorf("failed to read %s: %w", k, err)
		}
		_, _ = h.Write(k)
		_, _ = h.Write(raw)

		var lead models.Lead
		if err := json.Unmarshal(raw, &lead); err != nil {
			c.log.Debug().Err(err).Str("key", string(k)).Msg("skipping undecodable record")
			continue
		}
		if lead.ID == "" {
			lead.ID = strings.TrimPrefix(string(k), charmPrefix)
		}
		leads = append(leads, lead)
	}
	return leads, h.Sum64(), nil
}
