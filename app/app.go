// ABOUTME: Application context wiring the lead store, sync, search and exports together
// ABOUTME: Built from config with Init, torn down with Dispose; every surface drives it
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"github.com/harperreed/leadsync/cache"
	"github.com/harperreed/leadsync/charm"
	"github.com/harperreed/leadsync/config"
	"github.com/harperreed/leadsync/export"
	"github.com/harperreed/leadsync/logging"
	"github.com/harperreed/leadsync/metrics"
	"github.com/harperreed/leadsync/models"
	"github.com/harperreed/leadsync/places"
	"github.com/harperreed/leadsync/remote"
	"github.com/harperreed/leadsync/store"
	lsync "github.com/harperreed/leadsync/sync"
	"github.com/harperreed/leadsync/views"
)

var (
	ErrForbidden         = errors.New("not allowed for this user")
	ErrSearchUnavailable = errors.New("search provider is not configured")
	ErrNoMorePages       = errors.New("no more results to load")
	ErrNotStarted        = errors.New("app is not initialized")
)

// Option overrides a component Init would otherwise build from config.
type Option func(*App)

func WithRemote(rs remote.Store) Option {
	return func(a *App) { a.remote = rs }
}

func WithPlaces(b places.Backend) Option {
	return func(a *App) { a.backend = b }
}

func WithKV(kv cache.KV) Option {
	return func(a *App) { a.kv = kv }
}

// WithSinks replaces the configured export sinks. No arguments disables export.
func WithSinks(sinks ...export.Sink) Option {
	return func(a *App) {
		a.sinks = sinks
		a.sinksSet = true
	}
}

func WithClock(now func() time.Time) Option {
	return func(a *App) { a.now = now }
}

func WithLogger(log zerolog.Logger) Option {
	return func(a *App) { a.log = log }
}

func WithMetrics(rec metrics.Recorder) Option {
	return func(a *App) { a.metrics = rec }
}

// WithViewer overrides the configured user, e.g. per HTTP request identity.
func WithViewer(v views.Viewer) Option {
	return func(a *App) { a.viewer = v }
}

type App struct {
	cfg     *config.Config
	log     zerolog.Logger
	metrics metrics.Recorder
	viewer  views.Viewer
	now     func() time.Time
	session string

	kv       cache.KV
	remote   remote.Store
	backend  places.Backend
	sinks    []export.Sink
	sinksSet bool

	cache   *cache.Cache
	store   *store.Store
	syncer  *lsync.Syncer
	places  *places.Client
	details *places.DetailQueue
	exports *export.Dispatcher
	closers []io.Closer

	ctx    context.Context
	cancel context.CancelFunc

	searchMu  sync.Mutex
	lastQuery *places.Query
	nextPage  string
}

func New(cfg *config.Config, opts ...Option) *App {
	a := &App{
		cfg:     cfg,
		log:     logging.Nop(),
		now:     time.Now,
		session: models.NewSessionID(),
		viewer:  views.Viewer{Name: cfg.User.Name, Role: cfg.RoleOf(cfg.User.Name)},
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.metrics == nil {
		a.metrics = metrics.Noop()
	}
	a.log = a.log.With().Str("session", a.session).Logger()
	return a
}

// Init opens every backend and starts syncing. The local cache is restored
// before the remote subscription so the first snapshot merges over it.
func (a *App) Init(ctx context.Context) error {
	a.ctx, a.cancel = context.WithCancel(ctx)

	if err := a.openCache(); err != nil {
		return err
	}

	a.store = store.New(store.Options{
		Now:            a.now,
		TombstoneGrace: a.cfg.Sync.TombstoneGrace,
		Log:            logging.Component(a.log, "store"),
	})
	restored := a.store.Restore(a.cache.Load())
	a.metrics.SetLeads(restored)

	if err := a.openRemote(ctx); err != nil {
		return err
	}
	if err := a.openPlaces(ctx); err != nil {
		return err
	}
	if err := a.openSinks(ctx); err != nil {
		return err
	}
	a.exports = export.NewDispatcher(logging.Component(a.log, "export"), a.metrics, a.session, a.sinks...)

	a.syncer = lsync.New(a.store, a.remote, lsync.Options{
		Debounce: a.cfg.Sync.Debounce,
		Log:      logging.Component(a.log, "sync"),
		Metrics:  a.metrics,
		Persist:  a.cache,
	})
	if err := a.syncer.Start(a.ctx); err != nil {
		return err
	}

	if a.places != nil {
		a.details = places.NewDetailQueue(a.ctx, a.places, a.detailsFetched, a.applyDetails)
		// leads restored before enrichment finished pick up where they left off
		a.details.Enqueue(a.unenriched(a.store.All()))
	}

	a.log.Info().
		Int("restored", restored).
		Str("remote", a.cfg.Remote.Backend).
		Bool("search", a.places != nil).
		Int("sinks", len(a.sinks)).
		Msg("leadsync ready")
	return nil
}

func (a *App) openCache() error {
	if a.kv == nil {
		kv, err := openKV(a.cfg.Cache)
		if err != nil {
			return err
		}
		a.kv = kv
	}
	c, err := cache.New(a.kv, logging.Component(a.log, "cache"))
	if err != nil {
		_ = a.kv.Close()
		return err
	}
	a.cache = c
	return nil
}

func openKV(cfg config.CacheConfig) (cache.KV, error) {
	if cfg.Backend == "memory" {
		return cache.NewMemory(), nil
	}
	path := cfg.Path
	if path == "" {
		dir, err := config.DataDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(dir, "cache")
		if cfg.Backend == "sqlite" {
			path += ".db"
		}
	}
	if cfg.Backend == "sqlite" {
		return cache.OpenSQLite(path)
	}
	return cache.OpenBadger(path)
}

func (a *App) openRemote(ctx context.Context) error {
	if a.remote != nil {
		return nil
	}
	rc := a.cfg.Remote
	switch rc.Backend {
	case "firebase":
		opts := remote.FirebaseOptions{
			URL:    rc.Firebase.URL,
			Path:   rc.Firebase.Path,
			Secret: rc.Firebase.Secret,
			Log:    logging.Component(a.log, "firebase"),
		}
		if rc.Firebase.CredentialsFile != "" {
			creds, err := os.ReadFile(rc.Firebase.CredentialsFile)
			if err != nil {
				return fmt.Errorf("failed to read firebase credentials: %w", err)
			}
			opts.CredentialsJSON = creds
		}
		fb, err := remote.NewFirebase(ctx, opts)
		if err != nil {
			return err
		}
		a.remote = fb
	case "charm":
		cc := charm.DefaultConfig()
		if rc.Charm.Host != "" {
			cc.Host = rc.Charm.Host
		}
		client, err := charm.Open(cc)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, client)
		a.remote = remote.NewCharm(client, rc.Charm.PollInterval, logging.Component(a.log, "charm"))
	default:
		a.log.Warn().Msg("using in-memory remote store; leads are not shared")
		a.remote = remote.NewMemory()
	}
	if c, ok := a.remote.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}
	return nil
}

func (a *App) openPlaces(ctx context.Context) error {
	pc := a.cfg.Places
	backend := a.backend
	if backend == nil {
		switch pc.Backend {
		case "static":
			s, err := places.LoadStatic(pc.FixtureFile)
			if err != nil {
				return err
			}
			backend = s
		default:
			if pc.APIKey == "" {
				a.log.Warn().Msg("places.apiKey not set; search disabled")
				return nil
			}
			g, err := places.NewGoogle(ctx, pc.APIKey)
			if err != nil {
				return err
			}
			backend = g
		}
	}
	a.places = places.NewClient(backend, places.Options{
		BatchSize:  pc.BatchSize,
		BatchDelay: pc.BatchDelay,
		Stagger:    pc.Stagger,
		CacheBytes: pc.DetailCache,
		CacheTTL:   pc.DetailTTL,
		Log:        logging.Component(a.log, "places"),
		Metrics:    a.metrics,
		Now:        a.now,
	})
	return nil
}

func (a *App) openSinks(ctx context.Context) error {
	if a.sinksSet {
		return nil
	}
	ec := a.cfg.Export
	if ec.WebhookURL != "" {
		a.sinks = append(a.sinks, export.NewWebhook(ec.WebhookURL, &http.Client{Timeout: 15 * time.Second}))
	}
	if ec.SheetID != "" {
		var opts []option.ClientOption
		if ec.SheetCredentials != "" {
			opts = append(opts, option.WithCredentialsFile(ec.SheetCredentials))
		}
		s, err := export.NewSheets(ctx, ec.SheetID, ec.SheetRange, opts...)
		if err != nil {
			return err
		}
		a.sinks = append(a.sinks, s)
	}
	if ec.AMQPURL != "" {
		q, err := export.DialAMQP(ec.AMQPURL, ec.AMQPExchange)
		if err != nil {
			// exports are best-effort; a broker outage must not block startup
			a.log.Warn().Err(err).Msg("amqp export disabled")
		} else {
			a.sinks = append(a.sinks, q)
			a.closers = append(a.closers, q)
		}
	}
	return nil
}

// Dispose stops background work, flushes pending uploads and closes every
// backend. It is safe to call after a failed Init.
func (a *App) Dispose(ctx context.Context) error {
	if a.cancel != nil {
		a.cancel()
	}
	if a.details != nil {
		a.details.Wait()
	}

	var errs []error
	if a.syncer != nil {
		if err := a.syncer.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.exports.Wait()

	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (a *App) Config() *config.Config { return a.cfg }
func (a *App) Viewer() views.Viewer { return a.viewer }
func (a *App) Logger() zerolog.Logger { return a.log }
func (a *App) Session() string { return a.session }
func (a *App) Metrics() metrics.Recorder { return a.metrics }
func (a *App) Now() time.Time { return a.now() }

// SearchEnabled reports whether a search provider is configured.
func (a *App) SearchEnabled() bool { return a.places != nil }

// Status is a point-in-time view of sync state.
type Status struct {
	Session        string `json:"session"`
	Remote         string `json:"remote"`
	RemoteLoaded   bool   `json:"remoteLoaded"`
	Leads          int    `json:"leads"`
	PendingUploads int    `json:"pendingUploads"`
	PendingDetails int    `json:"pendingDetails"`
	Sinks          int    `json:"sinks"`
}

func (a *App) Status() Status {
	st := Status{
		Session:        a.session,
		Remote:         a.cfg.Remote.Backend,
		RemoteLoaded:   a.store.RemoteLoaded(),
		Leads:          a.store.Len(),
		PendingUploads: a.syncer.Pending(),
		Sinks:          len(a.sinks),
	}
	if a.details != nil {
		st.PendingDetails = a.details.Pending()
	}
	return st
}

// WaitRemote blocks until the first remote snapshot has been merged, so
// one-shot commands read shared state rather than the local cache alone.
func (a *App) WaitRemote(ctx context.Context) error {
	if a.store == nil {
		return ErrNotStarted
	}
	tick := time.NewTicker(20 * time.Millisecond)
	defer tick.Stop()
	for !a.store.RemoteLoaded() {
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for remote snapshot: %w", ctx.Err())
		case <-tick.C:
		}
	}
	return nil
}

// WaitIdle blocks until queued detail lookups finish and pending uploads
// are flushed. Used by one-shot CLI commands before exit.
func (a *App) WaitIdle(ctx context.Context) error {
	if a.syncer == nil {
		return ErrNotStarted
	}
	if a.details != nil {
		a.details.Wait()
	}
	return a.syncer.Flush(ctx)
}

func (a *App) detailsFetched(id string) bool {
	l, ok := a.store.Get(id)
	return !ok || l.HasDetails()
}

func (a *App) applyDetails(d places.Details) {
	if a.store.IsTombstoned(d.ID) {
		return
	}
	_, err := a.store.Mutate(d.ID, store.Patch{Details: &store.Details{Phone: d.Phone, Website: d.Website}})
	if err != nil {
		// replaced by a newer search meanwhile
		a.log.Debug().Err(err).Str("lead_id", d.ID).Msg("dropping detail result")
		return
	}
	a.syncer.Changed()
}

func (a *App) unenriched(leads []models.Lead) []string {
	var ids []string
	for _, l := range leads {
		if !l.HasDetails() && !models.IsHandEntered(l.ID) {
			ids = append(ids, l.ID)
		}
	}
	return ids
}
