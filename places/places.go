// ABOUTME: Search provider adapter for area searches and place detail enrichment
// ABOUTME: Wraps a raw Backend with radius filtering, batching, caching and error classification
package places

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/coocood/freecache"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/harperreed/leadsync/metrics"
	"github.com/harperreed/leadsync/models"
)

var (
	ErrZeroResults     = errors.New("no results found")
	ErrQuotaExceeded   = errors.New("search quota exceeded")
	ErrRequestFailed   = errors.New("search request failed")
	ErrMissingCategory = errors.New("business category is required")
	ErrSearchCanceled  = errors.New("search canceled")
)

// LatLng is a WGS84 coordinate in degrees.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Place is a raw provider result.
type Place struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Address  string   `json:"address"`
	Location *LatLng  `json:"location,omitempty"`
	Rating   float64  `json:"rating,omitempty"`
	Reviews  int      `json:"reviews,omitempty"`
	Phone    string   `json:"phone,omitempty"`
	Website  string   `json:"website,omitempty"`
	Types    []string `json:"types,omitempty"`
}

type TextSearchRequest struct {
	Text      string
	Center    LatLng
	Radius    float64
	PageToken string
}

type TextSearchResult struct {
	Places        []Place
	NextPageToken string
}

// Backend is the raw provider API.
type Backend interface {
	TextSearch(ctx context.Context, req TextSearchRequest) (TextSearchResult, error)
	PlaceDetails(ctx context.Context, id string) (Place, error)
}

// Query describes one area search.
type Query struct {
	// Category is a provider place type such as "plumber", or CategoryAll.
	Category string
	// Text narrows the search, e.g. a neighborhood or brand.
	Text   string
	Center LatLng
	// Radius in meters.
	Radius    float64
	PageToken string
	// AddedBy is recorded on every produced lead.
	AddedBy string
}

type Page struct {
	Leads         []models.Lead
	NextPageToken string
}

// Details is the enrichment result for one id. It is produced for every
// requested id, including failed lookups.
type Details struct {
	ID      string `json:"id"`
	Phone   string `json:"phone,omitempty"`
	Website string `json:"website,omitempty"`
	Err     error  `json:"-"`
}

// Found reports whether the lookup succeeded with any contact data.
func (d Details) Found() bool {
	return d.Err == nil && (d.Phone != "" || d.Website != "")
}

type Options struct {
	BatchSize  int
	BatchDelay time.Duration
	Stagger    time.Duration
	CacheBytes int
	CacheTTL   time.Duration
	Log        zerolog.Logger
	Metrics    metrics.Recorder
	Now        func() time.Time
}

func (o *Options) withDefaults() {
	if o.BatchSize <= 0 {
		o.BatchSize = 10
	}
	if o.BatchDelay < 0 {
		o.BatchDelay = 0
	}
	if o.CacheBytes <= 0 {
		o.CacheBytes = 512 * 1024
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = 24 * time.Hour
	}
	if o.Metrics == nil {
		o.Metrics = metrics.Noop()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

type Client struct {
	backend Backend
	opts    Options
	details *freecache.Cache
}

func NewClient(backend Backend, opts Options) *Client {
	opts.withDefaults()
	return &Client{
		backend: backend,
		opts:    opts,
		details: freecache.NewCache(opts.CacheBytes),
	}
}

// BatchSize is the number of detail lookups issued together.
func (c *Client) BatchSize() int {
	return c.opts.BatchSize
}

// SearchArea runs one text search around q.Center and keeps results within q.Radius.
func (c *Client) SearchArea(ctx context.Context, q Query) (Page, error) {
	category := strings.TrimSpace(q.Category)
	if category == "" {
		return Page{}, ErrMissingCategory
	}
	if category == CategoryAll {
		return c.SearchAllCategories(ctx, q, AllKeywords)
	}

	leads, next, err := c.search(ctx, q, searchText(category, q.Text), category, "")
	if err != nil {
		c.opts.Metrics.Search(outcome(err))
		return Page{}, err
	}
	if len(leads) == 0 {
		c.opts.Metrics.Search("zero_results")
		return Page{NextPageToken: next}, fmt.Errorf("%w within %.0fm", ErrZeroResults, q.Radius)
	}
	c.opts.Metrics.Search("ok")
	return Page{Leads: leads, NextPageToken: next}, nil
}

// searchText turns a place type into query text: "general_contractor" plus
// "oak park" becomes "general contractor oak park".
func searchText(category, extra string) string {
	text := strings.ReplaceAll(category, "_", " ")
	if extra = strings.TrimSpace(extra); extra != "" {
		text += " " + extra
	}
	return text
}

// search returns in-radius candidates, possibly none. A provider that
// returns nothing at all is reported as ErrZeroResults.
func (c *Client) search(ctx context.Context, q Query, text, businessType, keyword string) ([]models.Lead, string, error) {
	res, err := c.backend.TextSearch(ctx, TextSearchRequest{
		Text:      text,
		Center:    q.Center,
		Radius:    q.Radius,
		PageToken: q.PageToken,
	})
	if err != nil {
		return nil, "", classify(err)
	}
	if len(res.Places) == 0 {
		return nil, "", ErrZeroResults
	}

	now := c.opts.Now().UnixMilli()
	addedBy := q.AddedBy
	if addedBy == "" {
		addedBy = "Unknown"
	}

	leads := make([]models.Lead, 0, len(res.Places))
	seen := make(map[string]bool, len(res.Places))
	for _, p := range res.Places {
		if p.ID == "" || p.Location == nil || seen[p.ID] {
			continue
		}
		if DistanceMeters(q.Center, *p.Location) > q.Radius {
			continue
		}
		seen[p.ID] = true
		leads = append(leads, toLead(p, businessType, keyword, addedBy, now))
	}

	c.opts.Log.Debug().
		Str("query", text).
		Int("results", len(res.Places)).
		Int("in_radius", len(leads)).
		Msg("text search")
	return leads, res.NextPageToken, nil
}

func toLead(p Place, businessType, keyword, addedBy string, now int64) models.Lead {
	lat, lng := p.Location.Lat, p.Location.Lng
	lead := models.Lead{
		ID:               p.ID,
		Name:             p.Name,
		Address:          p.Address,
		Lat:              &lat,
		Lng:              &lng,
		Status:           models.StatusNew,
		Source:           models.SourceSearch,
		CallHistory:      []models.CallLog{},
		AddedBy:          addedBy,
		DetailsFetched:   models.Ptr(false),
		UserRatingsTotal: models.Ptr(p.Reviews),
		BusinessType:     businessType,
		SearchKeyword:    keyword,
		AddedAt:          now,
		LastUpdated:      now,
	}
	if p.Rating > 0 {
		lead.Rating = models.Ptr(p.Rating)
	}
	return lead
}

func classify(err error) error {
	switch {
	case errors.Is(err, ErrQuotaExceeded), errors.Is(err, ErrRequestFailed), errors.Is(err, ErrZeroResults):
		return err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	return fmt.Errorf("%w: %v", ErrRequestFailed, err)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrZeroResults):
		return "zero_results"
	case errors.Is(err, ErrQuotaExceeded):
		return "quota"
	case errors.Is(err, ErrSearchCanceled):
		return "canceled"
	}
	return "failed"
}

// UserMessage renders a search error for people rather than logs.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingCategory):
		return "Please select a business type/industry."
	case errors.Is(err, ErrZeroResults):
		return "No results found in this area. Try expanding your radius or moving the search center."
	case errors.Is(err, ErrQuotaExceeded):
		return "Search quota exceeded. Wait a minute and try again."
	case errors.Is(err, ErrSearchCanceled):
		return "Search canceled."
	}
	return "Search failed: " + err.Error()
}

// FetchDetails looks up phone and website for ids in batches of BatchSize,
// pausing BatchDelay between batches. Every id gets a result unless ctx ends
// first, in which case the unprocessed ids are omitted.
func (c *Client) FetchDetails(ctx context.Context, ids []string) []Details {
	out := make([]Details, 0, len(ids))
	for start := 0; start < len(ids); start += c.opts.BatchSize {
		if start > 0 {
			select {
			case <-ctx.Done():
				return out
			case <-time.After(c.opts.BatchDelay):
			}
		}
		if ctx.Err() != nil {
			return out
		}
		end := min(start+c.opts.BatchSize, len(ids))
		out = append(out, c.fetchBatch(ctx, ids[start:end])...)
	}
	return out
}

// fetchBatch issues one lookup per id concurrently, results in id order.
func (c *Client) fetchBatch(ctx context.Context, ids []string) []Details {
	results := make([]Details, len(ids))
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = c.fetchOne(ctx, id)
		}()
	}
	wg.Wait()
	return results
}

func (c *Client) fetchOne(ctx context.Context, id string) Details {
	if cached, err := c.details.Get([]byte(id)); err == nil {
		var d Details
		if json.Unmarshal(cached, &d) == nil {
			return d
		}
	}

	p, err := c.backend.PlaceDetails(ctx, id)
	d := Details{ID: id, Phone: p.Phone, Website: p.Website}
	if err != nil {
		d = Details{ID: id, Err: err}
		c.opts.Log.Debug().Err(err).Str("id", id).Msg("detail lookup failed")
	}
	c.opts.Metrics.DetailFetch(d.Found())

	if err == nil {
		if data, merr := json.Marshal(d); merr == nil {
			_ = c.details.Set([]byte(id), data, int(c.opts.CacheTTL.Seconds()))
		}
	}
	return d
}
