package app

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/leadsync/cache"
	"github.com/harperreed/leadsync/config"
	"github.com/harperreed/leadsync/export"
	"github.com/harperreed/leadsync/intake"
	"github.com/harperreed/leadsync/logging"
	"github.com/harperreed/leadsync/models"
	"github.com/harperreed/leadsync/places"
	"github.com/harperreed/leadsync/remote"
	"github.com/harperreed/leadsync/store"
	"github.com/harperreed/leadsync/views"
)

var chicago = places.LatLng{Lat: 41.8781, Lng: -87.6298}

func fixtures() []places.Place {
	near := func(dLat float64) *places.LatLng {
		return &places.LatLng{Lat: chicago.Lat + dLat, Lng: chicago.Lng}
	}
	return []places.Place{
		{ID: "p1", Name: "Ace Plumbing", Address: "1 Main St", Location: near(0.001), Types: []string{"plumber"}, Phone: "312-555-0101", Website: "https://ace.example", Reviews: 3, Rating: 4.1},
		{ID: "p2", Name: "Drain Bros", Address: "2 Main St", Location: near(0.002), Types: []string{"plumber"}, Reviews: 12},
		{ID: "e1", Name: "Spark Electric", Address: "3 Main St", Location: near(0.003), Types: []string{"electrician"}, Phone: "312-555-0103"},
		{ID: "far", Name: "Faraway Plumbing", Address: "Elsewhere", Location: near(1), Types: []string{"plumber"}},
	}
}

type recordingSink struct {
	mu  sync.Mutex
	got []export.Payload
}

func (r *recordingSink) Name() string { return "recording" }

func (r *recordingSink) Send(_ context.Context, p export.Payload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, p)
	return nil
}

func (r *recordingSink) payloads() []export.Payload {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]export.Payload(nil), r.got...)
}

func testConfig(user, role string) *config.Config {
	return &config.Config{
		User:   config.UserConfig{Name: user, Role: role},
		Remote: config.RemoteConfig{Backend: "memory"},
		Places: config.PlacesConfig{Backend: "static", BatchSize: 2, DefaultRadius: 5000},
		Cache:  config.CacheConfig{Backend: "memory"},
		Sync:   config.SyncConfig{Debounce: 5 * time.Millisecond},
	}
}

type harness struct {
	app    *App
	remote *remote.Memory
	sink   *recordingSink
}

func start(t *testing.T, cfg *config.Config, opts ...Option) *harness {
	t.Helper()
	h := &harness{remote: remote.NewMemory(), sink: &recordingSink{}}
	opts = append([]Option{
		WithRemote(h.remote),
		WithPlaces(places.NewStatic(fixtures())),
		WithSinks(h.sink),
		WithLogger(logging.Nop()),
	}, opts...)
	h.app = New(cfg, opts...)
	require.NoError(t, h.app.Init(context.Background()))
	t.Cleanup(func() { _ = h.app.Dispose(context.Background()) })

	require.Eventually(t, h.app.store.RemoteLoaded, time.Second, 5*time.Millisecond)
	return h
}

func (h *harness) idle(t *testing.T) {
	t.Helper()
	require.NoError(t, h.app.WaitIdle(context.Background()))
	h.app.exports.Wait()
}

// remoteHas waits until the remote copy of id satisfies ok. Uploads are
// debounced and may be deferred by an incoming snapshot.
func (h *harness) remoteHas(t *testing.T, id string, ok func(models.Lead) bool) models.Lead {
	t.Helper()
	var got models.Lead
	require.Eventually(t, func() bool {
		_ = h.app.WaitIdle(context.Background())
		l, found := h.remote.Get(id)
		got = l
		return found && ok(l)
	}, 2*time.Second, 10*time.Millisecond)
	return got
}

func anyLead(models.Lead) bool { return true }

func admin(t *testing.T) *harness {
	return start(t, testConfig("amy", config.RoleAdmin))
}

func ids(leads []models.Lead) []string {
	out := make([]string, 0, len(leads))
	for _, l := range leads {
		out = append(out, l.ID)
	}
	return out
}

func TestSearchEnrichesInBackground(t *testing.T) {
	h := admin(t)

	res, err := h.app.Search(context.Background(), SearchRequest{Category: "plumber", Lat: chicago.Lat, Lng: chicago.Lng})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Found, "out-of-radius result is dropped")
	assert.Equal(t, 2, res.Added)
	h.idle(t)

	l, err := h.app.Lead("p1")
	require.NoError(t, err)
	assert.True(t, l.HasDetails())
	assert.Equal(t, "312-555-0101", l.Phone)
	assert.Equal(t, "amy", l.AddedBy)

	l, err = h.app.Lead("p2")
	require.NoError(t, err)
	assert.True(t, l.HasDetails(), "lookups without contact data still complete")

	assert.Zero(t, h.remote.Len(), "search results are not uploaded")
	assert.Empty(t, h.sink.payloads())
}

func TestSearchKeepsInteractedLeads(t *testing.T) {
	h := admin(t)
	ctx := context.Background()

	_, err := h.app.Search(ctx, SearchRequest{Category: "plumber", Lat: chicago.Lat, Lng: chicago.Lng})
	require.NoError(t, err)
	_, err = h.app.SetLead("p2", true)
	require.NoError(t, err)

	_, err = h.app.Search(ctx, SearchRequest{Category: "electrician", Lat: chicago.Lat, Lng: chicago.Lng})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"p2", "e1"}, ids(h.app.Leads(views.Filters{}, views.SortNewest)))
}

func TestSearchErrors(t *testing.T) {
	h := admin(t)
	ctx := context.Background()

	_, err := h.app.Search(ctx, SearchRequest{Lat: chicago.Lat, Lng: chicago.Lng})
	assert.ErrorIs(t, err, places.ErrMissingCategory)

	_, err = h.app.Search(ctx, SearchRequest{Category: "bakery", Lat: chicago.Lat, Lng: chicago.Lng})
	assert.ErrorIs(t, err, places.ErrZeroResults)

	_, err = h.app.LoadMore(ctx)
	assert.ErrorIs(t, err, ErrNoMorePages)
}

func TestLoadMoreAppends(t *testing.T) {
	var many []places.Place
	for i := range 25 {
		many = append(many, places.Place{
			ID:       "m" + string(rune('a'+i)),
			Name:     "Plumber",
			Location: &places.LatLng{Lat: chicago.Lat, Lng: chicago.Lng},
			Types:    []string{"plumber"},
		})
	}
	h := start(t, testConfig("amy", config.RoleAdmin), WithPlaces(places.NewStatic(many)))
	ctx := context.Background()

	res, err := h.app.Search(ctx, SearchRequest{Category: "plumber", Lat: chicago.Lat, Lng: chicago.Lng})
	require.NoError(t, err)
	assert.Equal(t, 20, res.Found)
	assert.True(t, res.HasMore)

	res, err = h.app.LoadMore(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, res.Added)
	assert.False(t, res.HasMore)
	assert.Equal(t, 25, h.app.Status().Leads)
}

func TestSearchUnavailableWithoutKey(t *testing.T) {
	cfg := testConfig("amy", config.RoleAdmin)
	cfg.Places.Backend = "google"
	a := New(cfg, WithRemote(remote.NewMemory()), WithSinks())
	require.NoError(t, a.Init(context.Background()))
	defer func() { _ = a.Dispose(context.Background()) }()

	assert.False(t, a.SearchEnabled())
	_, err := a.Search(context.Background(), SearchRequest{Category: "plumber"})
	assert.ErrorIs(t, err, ErrSearchUnavailable)
}

func TestMutationsSyncAndExport(t *testing.T) {
	now := time.Date(2024, 3, 15, 15, 4, 0, 0, time.Local)
	h := start(t, testConfig("amy", config.RoleAdmin), WithClock(func() time.Time { return now }))
	ctx := context.Background()

	_, err := h.app.Search(ctx, SearchRequest{Category: "plumber", Lat: chicago.Lat, Lng: chicago.Lng})
	require.NoError(t, err)

	_, err = h.app.LogCall("p1", "no answer", "")
	require.NoError(t, err)
	h.idle(t)
	assert.Empty(t, h.sink.payloads(), "a call on an unmarked lead is not exported")
	h.remoteHas(t, "p1", anyLead)

	_, err = h.app.SetLead("p1", true)
	require.NoError(t, err)
	h.app.exports.Wait()
	l, err := h.app.AddNote("p1", "owner back Monday")
	require.NoError(t, err)
	assert.Equal(t, "[3/15/2024 3:04 PM] owner back Monday", l.Notes)
	h.app.exports.Wait()

	l, err = h.app.SetStatus("p1", models.StatusCallback)
	require.NoError(t, err)
	assert.Len(t, l.CallHistory, 1)
	h.idle(t)

	got := h.sink.payloads()
	require.Len(t, got, 3)
	assert.Equal(t, export.ActionAdd, got[0].Action)
	assert.Equal(t, export.ActionUpdate, got[1].Action)
	assert.Equal(t, "CALLBACK", got[2].Status)
	assert.Equal(t, "amy", got[2].MarkedBy)
	assert.Equal(t, h.app.Session(), got[2].Session)

	stored := h.remoteHas(t, "p1", func(l models.Lead) bool { return l.Status == models.StatusCallback })
	assert.True(t, stored.IsLead)

	_, err = h.app.AddNote("p1", "   ")
	assert.Error(t, err)
	_, err = h.app.SetStatus("nope", models.StatusCalled)
	assert.ErrorIs(t, err, store.ErrLeadNotFound)
}

func TestAddManualRejectsDuplicates(t *testing.T) {
	h := admin(t)
	ctx := context.Background()

	l, err := h.app.AddManual(ctx, intake.Manual{Name: "Ace Electric", Phone: "(312) 555-0199"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(l.ID, models.ManualPrefix))

	h.remoteHas(t, l.ID, anyLead)

	existing, err := h.app.AddManual(ctx, intake.Manual{Name: "Different Name", Phone: "312.555.0199"})
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.Equal(t, l.ID, existing.ID)

	_, err = h.app.AddManual(ctx, intake.Manual{})
	assert.ErrorIs(t, err, intake.ErrMissingName)

	h.app.exports.Wait()
	require.Len(t, h.sink.payloads(), 1)
	assert.Equal(t, export.ActionAdd, h.sink.payloads()[0].Action)
}

func TestAddSocial(t *testing.T) {
	h := admin(t)
	post := intake.ParseSocialPost("Luna Bakery\nCall 312-555-0150\n12 Elm Street")
	l, err := h.app.AddSocial(context.Background(), intake.Social{SocialPost: post, Group: "Chicago Small Biz"})
	require.NoError(t, err)
	assert.Equal(t, models.SourceSocial, l.Source)
	assert.Equal(t, "12 Elm Street", l.Address)
	assert.Equal(t, "Chicago Small Biz", l.SocialGroup)
}

func TestDeleteRemovesEverywhere(t *testing.T) {
	h := admin(t)
	ctx := context.Background()

	l, err := h.app.AddManual(ctx, intake.Manual{Name: "Ace Electric"})
	require.NoError(t, err)
	h.remoteHas(t, l.ID, anyLead)

	require.NoError(t, h.app.Delete(ctx, l.ID))
	_, ok := h.remote.Get(l.ID)
	assert.False(t, ok)
	_, err = h.app.Lead(l.ID)
	assert.ErrorIs(t, err, store.ErrLeadNotFound)

	require.NoError(t, h.app.Delete(ctx, l.ID), "deleting twice is harmless")

	h.app.exports.Wait()
	got := h.sink.payloads()
	require.Len(t, got, 2)
	assert.Equal(t, export.ActionDelete, got[1].Action)
}

func TestMemberPermissions(t *testing.T) {
	shared := remote.NewMemory()
	owner := start(t, testConfig("amy", config.RoleMember), WithRemote(shared))
	ctx := context.Background()

	mine, err := owner.app.AddManual(ctx, intake.Manual{Name: "Amy's Lead"})
	require.NoError(t, err)
	_, err = owner.app.Assign(mine.ID, "amy")
	require.NoError(t, err)
	owner.remoteHas(t, mine.ID, func(l models.Lead) bool { return l.AssignedTo == "amy" })

	other := start(t, testConfig("bob", config.RoleMember), WithRemote(shared))
	require.Eventually(t, func() bool {
		_, ok := other.app.store.Get(mine.ID)
		return ok
	}, time.Second, 5*time.Millisecond)

	_, err = other.app.Lead(mine.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = other.app.SetStatus(mine.ID, models.StatusCalled)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.ErrorIs(t, other.app.Delete(ctx, mine.ID), ErrForbidden)
	assert.Empty(t, other.app.Leads(views.Filters{}, views.SortNewest))

	_, err = other.app.ClearAll(ctx)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestBulkOperations(t *testing.T) {
	h := admin(t)
	ctx := context.Background()

	_, err := h.app.Search(ctx, SearchRequest{Category: "plumber", Lat: chicago.Lat, Lng: chicago.Lng})
	require.NoError(t, err)

	n, err := h.app.BulkMark([]string{"p1", "p2", "missing"})
	assert.Equal(t, 2, n)
	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrLeadNotFound))

	n, err = h.app.BulkStatus([]string{"p1", "p2"}, models.StatusInterested)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, h.app.Leads(views.Filters{Status: models.StatusInterested}, views.SortName), 2)

	n, err = h.app.ClearAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Zero(t, h.app.Status().Leads)
	assert.Zero(t, h.remote.Len())
}

func TestExportCSV(t *testing.T) {
	h := admin(t)
	ctx := context.Background()

	_, err := h.app.AddManual(ctx, intake.Manual{Name: "Ace, Plumbing", Address: "1 Main St, Chicago"})
	require.NoError(t, err)
	_, err = h.app.Search(ctx, SearchRequest{Category: "electrician", Lat: chicago.Lat, Lng: chicago.Lng})
	require.NoError(t, err)

	var buf bytes.Buffer
	n, err := h.app.ExportCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	rows, err := export.ReadCSV(&buf)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Ace, Plumbing", rows[0].Name)
	assert.Equal(t, "1 Main St, Chicago", rows[0].Address)
}

func TestInitRestoresFromCache(t *testing.T) {
	kv := cache.NewMemory()
	c, err := cache.New(kv, logging.Nop())
	require.NoError(t, err)
	require.NoError(t, c.Save([]models.Lead{{
		ID:             "cached",
		Name:           "Cached Result",
		Status:         models.StatusNew,
		DetailsFetched: models.Ptr(false),
		CallHistory:    []models.CallLog{},
	}}))

	h := start(t, testConfig("amy", config.RoleAdmin), WithKV(kv))
	h.idle(t)

	l, err := h.app.Lead("cached")
	require.NoError(t, err)
	assert.True(t, l.HasDetails(), "unfinished enrichment resumes on start")
	assert.Equal(t, 1, h.app.Status().Leads)
}

func TestStats(t *testing.T) {
	h := admin(t)
	ctx := context.Background()
	_, err := h.app.AddManual(ctx, intake.Manual{Name: "Ace Electric"})
	require.NoError(t, err)
	_, err = h.app.Search(ctx, SearchRequest{Category: "plumber", Lat: chicago.Lat, Lng: chicago.Lng})
	require.NoError(t, err)
	_, err = h.app.LogCall("p1", "interested", "")
	require.NoError(t, err)

	st := h.app.Stats()
	assert.Equal(t, 3, st.Total)
	assert.Equal(t, 1, st.Marked)
	assert.Equal(t, 1, st.TotalCalls)
}

func TestWaitRemote(t *testing.T) {
	a := New(testConfig("amy", config.RoleAdmin))
	assert.ErrorIs(t, a.WaitRemote(context.Background()), ErrNotStarted)
	assert.ErrorIs(t, a.WaitIdle(context.Background()), ErrNotStarted)

	h := admin(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, h.app.WaitRemote(ctx))
}

func TestImportCSV(t *testing.T) {
	h := admin(t)
	ctx := context.Background()
	_, err := h.app.AddManual(ctx, intake.Manual{Name: "Luna Bakery", Phone: "312-555-0150"})
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = export.WriteCSV(&buf, []models.Lead{
		{ID: "a", Name: "Luna Bakery", Phone: "(312) 555-0150", Status: models.StatusNew},
		{ID: "b", Name: "Bright Electric", BusinessType: "electrician", Status: models.StatusCalled},
		{ID: "c", Name: "", Status: models.StatusNew},
	}, time.UTC)
	require.NoError(t, err)

	imported, skipped, err := h.app.ImportCSV(ctx, &buf)
	require.NoError(t, err)
	assert.Equal(t, 1, imported)
	assert.Equal(t, 2, skipped)

	got := h.app.Leads(views.Filters{Search: "bright"}, views.SortNewest)
	require.Len(t, got, 1)
	assert.Equal(t, "electrician", got[0].BusinessType)
	assert.Empty(t, got[0].Phone)

	_, _, err = h.app.ImportCSV(ctx, strings.NewReader("name,phone\n"))
	assert.Error(t, err)
}
