package web

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/leadsync/app"
	"github.com/harperreed/leadsync/config"
	"github.com/harperreed/leadsync/logging"
	"github.com/harperreed/leadsync/metrics"
	"github.com/harperreed/leadsync/models"
	"github.com/harperreed/leadsync/places"
	"github.com/harperreed/leadsync/remote"
)

func newTestServer(t *testing.T, opts ...app.Option) *httptest.Server {
	t.Helper()
	cfg := &config.Config{
		User:   config.UserConfig{Name: "amy", Role: config.RoleAdmin},
		Remote: config.RemoteConfig{Backend: "memory"},
		Places: config.PlacesConfig{Backend: "static", BatchSize: 5, DefaultRadius: 5000},
		Cache:  config.CacheConfig{Backend: "memory"},
		Sync:   config.SyncConfig{Debounce: 5 * time.Millisecond},
	}
	loc := &places.LatLng{Lat: 1, Lng: 1}
	opts = append([]app.Option{
		app.WithRemote(remote.NewMemory()),
		app.WithPlaces(places.NewStatic([]places.Place{
			{ID: "p1", Name: "Ace Plumbing", Location: loc, Types: []string{"plumber"}},
		})),
		app.WithSinks(),
		app.WithLogger(logging.Nop()),
	}, opts...)
	a := app.New(cfg, opts...)
	require.NoError(t, a.Init(context.Background()))
	t.Cleanup(func() { _ = a.Dispose(context.Background()) })

	s, err := NewServer(a)
	require.NoError(t, err)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestSearchAndList(t *testing.T) {
	ts := newTestServer(t)

	resp := do(t, http.MethodPost, ts.URL+"/api/search", app.SearchRequest{Category: "plumber", Lat: 1, Lng: 1})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	res := decodeBody[app.SearchResult](t, resp)
	assert.Equal(t, 1, res.Found)

	resp = do(t, http.MethodGet, ts.URL+"/api/leads?sort=name", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decodeBody[listResponse](t, resp)
	require.Equal(t, 1, list.Total)
	assert.Equal(t, "Ace Plumbing", list.Leads[0].Name)

	resp = do(t, http.MethodPost, ts.URL+"/api/search/more", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, http.MethodPost, ts.URL+"/api/search", app.SearchRequest{Category: "bakery", Lat: 1, Lng: 1})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	body := decodeBody[errorBody](t, resp)
	assert.Equal(t, places.UserMessage(places.ErrZeroResults), body.Message)

	resp = do(t, http.MethodPost, ts.URL+"/api/search", app.SearchRequest{Lat: 1, Lng: 1})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, http.MethodGet, ts.URL+"/api/leads?status=maybe", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLeadLifecycle(t *testing.T) {
	ts := newTestServer(t)

	resp := do(t, http.MethodPost, ts.URL+"/api/leads", map[string]string{"name": "Luna Bakery", "phone": "312-555-0150"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	lead := decodeBody[models.Lead](t, resp)
	assert.True(t, lead.IsLead)

	resp = do(t, http.MethodPost, ts.URL+"/api/leads", map[string]string{"name": "Luna", "phone": "(312) 555-0150"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	url := ts.URL + "/api/leads/" + lead.ID
	resp = do(t, http.MethodPatch, url, map[string]any{"status": "interested", "assignedTo": "bob"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	lead = decodeBody[models.Lead](t, resp)
	assert.Equal(t, models.StatusInterested, lead.Status)
	assert.Equal(t, "bob", lead.AssignedTo)

	resp = do(t, http.MethodPost, url+"/notes", map[string]string{"text": "wants a quote"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, decodeBody[models.Lead](t, resp).Notes, "wants a quote")

	resp = do(t, http.MethodPost, url+"/notes", map[string]string{"text": " "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, http.MethodPost, url+"/calls", map[string]string{"outcome": "voicemail"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Len(t, decodeBody[models.Lead](t, resp).CallHistory, 1)

	resp = do(t, http.MethodGet, ts.URL+"/api/export.csv", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var csv bytes.Buffer
	_, _ = csv.ReadFrom(resp.Body)
	assert.Contains(t, csv.String(), "Luna Bakery")

	resp = do(t, http.MethodDelete, url, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = do(t, http.MethodGet, url, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSocialIntake(t *testing.T) {
	ts := newTestServer(t)
	resp := do(t, http.MethodPost, ts.URL+"/api/intake/social", map[string]string{
		"post":  "Bright Electric\nLicensed and insured, call 773-555-0123",
		"group": "Chicago Small Biz",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	l := decodeBody[models.Lead](t, resp)
	assert.Equal(t, "Bright Electric", l.Name)
	assert.Equal(t, "Chicago Small Biz", l.SocialGroup)
	assert.Equal(t, models.SourceSocial, l.Source)
}

func TestDashboardAndStatus(t *testing.T) {
	ts := newTestServer(t, app.WithMetrics(metrics.New()))

	resp := do(t, http.MethodGet, ts.URL+"/", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var page bytes.Buffer
	_, _ = page.ReadFrom(resp.Body)
	assert.Contains(t, page.String(), "Signed in as amy")

	resp = do(t, http.MethodGet, ts.URL+"/api/status", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "memory", decodeBody[app.Status](t, resp).Remote)

	resp = do(t, http.MethodGet, ts.URL+"/metrics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var m bytes.Buffer
	_, _ = m.ReadFrom(resp.Body)
	assert.True(t, strings.Contains(m.String(), "leadsync_"))
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusForbidden, statusFor(app.ErrForbidden))
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(app.ErrSearchUnavailable))
	assert.Equal(t, http.StatusTooManyRequests, statusFor(places.ErrQuotaExceeded))
	assert.Equal(t, http.StatusInternalServerError, statusFor(assert.AnError))
}
