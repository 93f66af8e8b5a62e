package export

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/harperreed/leadsync/metrics"
)

// Sink is one export destination.
type Sink interface {
	Name() string
	Send(ctx context.Context, p Payload) error
}

// Dispatcher fans payloads out to every sink in the background. Failures are
// logged and counted, never retried and never returned to the caller.
type Dispatcher struct {
	sinks   []Sink
	log     zerolog.Logger
	metrics metrics.Recorder
	timeout time.Duration
	session string

	wg sync.WaitGroup
}

func NewDispatcher(log zerolog.Logger, rec metrics.Recorder, session string, sinks ...Sink) *Dispatcher {
	if rec == nil {
		rec = metrics.Noop()
	}
	return &Dispatcher{
		sinks:   sinks,
		log:     log,
		metrics: rec,
		timeout: 15 * time.Second,
		session: session,
	}
}

// Enabled reports whether any sink is configured.
func (d *Dispatcher) Enabled() bool {
	return d != nil && len(d.sinks) > 0
}

// Dispatch sends p to every sink without blocking.
func (d *Dispatcher) Dispatch(p Payload) {
	if !d.Enabled() {
		return
	}
	if p.Session == "" {
		p.Session = d.session
	}
	for _, s := range d.sinks {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
			defer cancel()

			err := s.Send(ctx, p)
			d.metrics.Export(s.Name(), err)
			if err != nil {
				d.log.Warn().Err(err).Str("sink", s.Name()).Str("lead_id", p.PlaceID).Msg("export failed")
				return
			}
			d.log.Debug().Str("sink", s.Name()).Str("lead_id", p.PlaceID).Str("action", string(p.Action)).Msg("exported")
		}()
	}
}

// Wait blocks until in-flight sends finish.
func (d *Dispatcher) Wait() {
	if d != nil {
		d.wg.Wait()
	}
}
