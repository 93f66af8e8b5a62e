package export

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/harperreed/leadsync/metrics"
	"github.com/harperreed/leadsync/models"
)

var at = time.Date(2024, 3, 15, 14, 5, 9, 0, time.UTC)

func marked() models.Lead {
	return models.Lead{
		ID:               "p1",
		Name:             "Joe's Plumbing",
		Address:          "12 Main St, Springfield, IL",
		Phone:            "555-0100",
		Status:           models.StatusCallback,
		IsLead:           true,
		Notes:            "said \"call after 3\",\nowner is Joe",
		AddedBy:          "amy",
		BusinessType:     "plumber",
		UserRatingsTotal: models.Ptr(42),
		Rating:           models.Ptr(4.5),
		LastUpdated:      at.UnixMilli(),
	}
}

func TestCSVRoundTrip(t *testing.T) {
	noPhone := marked()
	noPhone.ID = "p2"
	noPhone.Phone = ""
	noPhone.Rating = nil
	noPhone.UserRatingsTotal = nil
	noPhone.BusinessType = ""
	ephemeral := models.Lead{ID: "p3", Name: "Not exported"}

	var buf bytes.Buffer
	n, err := WriteCSV(&buf, []models.Lead{marked(), noPhone, ephemeral}, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.True(t, strings.HasPrefix(buf.String(), "Business Name,Phone,Address,Status,Business Type,Notes,Marked By,Date,Reviews,Rating\n"))

	rows, err := ReadCSV(&buf)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, Row{
		Name:         "Joe's Plumbing",
		Phone:        "555-0100",
		Address:      "12 Main St, Springfield, IL",
		Status:       "Callback",
		BusinessType: "Plumbers",
		Notes:        "said \"call after 3\",\nowner is Joe",
		MarkedBy:     "amy",
		Date:         "3/15/2024, 2:05:09 PM",
		Reviews:      42,
		Rating:       "4.5",
	}, rows[0])

	assert.Equal(t, "N/A", rows[1].Phone)
	assert.Equal(t, "N/A", rows[1].Rating)
	assert.Equal(t, 0, rows[1].Reviews)
	assert.Equal(t, "Unknown", rows[1].BusinessType)
}

func TestReadCSVRejectsForeignHeader(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("a,b,c,d,e,f,g,h,i,j\n"))
	assert.ErrorIs(t, err, ErrBadHeader)
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "sales-leads-2024-03-15.csv", FileName(at))
}

func TestShouldExport(t *testing.T) {
	base := marked()

	notes := base
	notes.Notes = "changed"
	assert.True(t, ShouldExport(base, notes))

	call := base
	call.CallHistory = []models.CallLog{{User: "amy"}}
	call.LastUpdated++
	assert.False(t, ShouldExport(base, call), "call log alone is not exported")

	unmarkedBefore := base
	unmarkedBefore.IsLead = false
	assert.True(t, ShouldExport(unmarkedBefore, base), "marking exports")

	unmarked := notes
	unmarked.IsLead = false
	assert.False(t, ShouldExport(base, unmarked), "unmarked leads never export")
}

func TestNewPayload(t *testing.T) {
	l := marked()
	l.Phone = ""
	p := NewPayload(ActionUpdate, l, "bob", at)
	assert.Equal(t, "N/A", p.Phone)
	assert.Equal(t, "Plumbers", p.BusinessType)
	assert.Equal(t, "CALLBACK", p.Status)
	assert.Equal(t, "bob", p.MarkedBy)
	assert.Equal(t, "2024-03-15T14:05:09Z", p.Date)
	assert.Equal(t, 42, p.Reviews)

	data, err := json.Marshal(p)
	require.NoError(t, err)
	for _, key := range []string{`"placeId":"p1"`, `"markedBy":"bob"`, `"businessType":"Plumbers"`, `"reviews":42`} {
		assert.Contains(t, string(data), key)
	}
}

func TestWebhookSend(t *testing.T) {
	var got Payload
	var reqID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID = r.Header.Get("X-Request-ID")
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	wh := NewWebhook(srv.URL, srv.Client())
	require.NoError(t, wh.Send(context.Background(), NewPayload(ActionAdd, marked(), "amy", at)))
	assert.Equal(t, ActionAdd, got.Action)
	assert.Equal(t, "p1", got.PlaceID)
	assert.NotEmpty(t, reqID)
}

func TestWebhookErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := NewWebhook(srv.URL, nil).Send(context.Background(), Payload{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestSheetsAppend(t *testing.T) {
	var path, body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"spreadsheetId":"sheet123"}`))
	}))
	defer srv.Close()

	s, err := NewSheets(context.Background(), "sheet123", "",
		option.WithEndpoint(srv.URL+"/"), option.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	require.NoError(t, s.Send(context.Background(), NewPayload(ActionUpdate, marked(), "amy", at)))

	assert.Contains(t, path, "/spreadsheets/sheet123/values/")
	assert.True(t, strings.HasSuffix(path, ":append"))
	assert.Contains(t, body, "Joe's Plumbing")

	_, err = NewSheets(context.Background(), "", "")
	assert.Error(t, err)
}

type fakeChannel struct {
	mu   sync.Mutex
	keys []string
	msgs []amqp.Publishing
	err  error
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.keys = append(f.keys, exchange+"/"+key)
	f.msgs = append(f.msgs, msg)
	return nil
}

func (f *fakeChannel) Close() error { return nil }

func TestAMQPPublish(t *testing.T) {
	ch := &fakeChannel{}
	a := &AMQP{ch: ch, exchange: DefaultExchange}

	require.NoError(t, a.Send(context.Background(), NewPayload(ActionDelete, marked(), "amy", at)))
	require.Len(t, ch.msgs, 1)
	assert.Equal(t, []string{"leadsync.leads/lead.delete"}, ch.keys)
	assert.Equal(t, "application/json", ch.msgs[0].ContentType)
	assert.Equal(t, amqp.Persistent, ch.msgs[0].DeliveryMode)
	assert.Contains(t, string(ch.msgs[0].Body), `"action":"delete"`)
	assert.NoError(t, a.Close())
}

type recordingSink struct {
	name string
	err  error
	mu   sync.Mutex
	got  []Payload
}

func (r *recordingSink) Name() string { return r.name }

func (r *recordingSink) Send(_ context.Context, p Payload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, p)
	return r.err
}

func TestDispatcherFansOutAndSwallowsErrors(t *testing.T) {
	ok := &recordingSink{name: "ok"}
	bad := &recordingSink{name: "bad", err: errors.New("down")}
	rec := metrics.New()
	d := NewDispatcher(zerolog.Nop(), rec, "session-1", ok, bad)
	require.True(t, d.Enabled())

	d.Dispatch(NewPayload(ActionUpdate, marked(), "amy", at))
	d.Wait()

	require.Len(t, ok.got, 1)
	require.Len(t, bad.got, 1)
	assert.Equal(t, "session-1", ok.got[0].Session)
}

func TestDispatcherWithoutSinks(t *testing.T) {
	d := NewDispatcher(zerolog.Nop(), nil, "")
	assert.False(t, d.Enabled())
	d.Dispatch(Payload{})
	d.Wait()

	var nilD *Dispatcher
	assert.False(t, nilD.Enabled())
	nilD.Dispatch(Payload{})
	nilD.Wait()
}
