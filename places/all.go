package places

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/harperreed/leadsync/models"
)

// SearchAllCategories runs one search per keyword, starting them Stagger
// apart, and returns the union deduplicated by place id. It completes only
// after every started sub-search has finished or failed.
//
// Cancelling ctx stops new sub-searches from starting. Sub-searches already
// in flight run to completion on a detached context and their results are
// discarded; the call then returns ErrSearchCanceled.
func (c *Client) SearchAllCategories(ctx context.Context, q Query, keywords []string) (Page, error) {
	if len(keywords) == 0 {
		return Page{}, ErrMissingCategory
	}
	q.PageToken = ""
	detached := context.WithoutCancel(ctx)

	var (
		mu        sync.Mutex
		wg        sync.WaitGroup
		found     = make(map[string]bool)
		leads     []models.Lead
		failures  int
		lastErr   error
		started   int
		completed int
	)

launch:
	for i, kw := range keywords {
		if i > 0 && c.opts.Stagger > 0 {
			select {
			case <-ctx.Done():
				break launch
			case <-time.After(c.opts.Stagger):
			}
		}
		if ctx.Err() != nil {
			break
		}

		started++
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, _, err := c.search(detached, q, searchText(kw, q.Text), kw, kw)

			mu.Lock()
			defer mu.Unlock()
			completed++
			if err != nil && !errors.Is(err, ErrZeroResults) {
				failures++
				lastErr = err
				c.opts.Log.Debug().Err(err).Str("keyword", kw).Msg("sub-search failed")
				return
			}
			for _, l := range got {
				if !found[l.ID] {
					found[l.ID] = true
					leads = append(leads, l)
				}
			}
			c.opts.Log.Debug().
				Str("keyword", kw).
				Int("found", len(got)).
				Int("completed", completed).
				Int("total", len(keywords)).
				Msg("sub-search done")
		}()
	}
	wg.Wait()

	if ctx.Err() != nil {
		c.opts.Metrics.Search("canceled")
		return Page{}, fmt.Errorf("%w: %w", ErrSearchCanceled, ctx.Err())
	}
	if started > 0 && failures == started {
		c.opts.Metrics.Search(outcome(lastErr))
		return Page{}, lastErr
	}
	if len(leads) == 0 {
		c.opts.Metrics.Search("zero_results")
		return Page{}, fmt.Errorf("%w in any category", ErrZeroResults)
	}

	c.opts.Metrics.Search("ok")
	c.opts.Log.Info().Int("keywords", len(keywords)).Int("unique", len(leads)).Msg("all-industries search complete")
	return Page{Leads: leads}, nil
}
