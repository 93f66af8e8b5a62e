// ABOUTME: Firebase Realtime Database remote store over the REST and streaming APIs
// ABOUTME: Mirrors the collection from server-sent events and re-emits full snapshots
package remote

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/harperreed/leadsync/models"
)

var firebaseScopes = []string{
	"https://www.googleapis.com/auth/firebase.database",
	"https://www.googleapis.com/auth/userinfo.email",
}

const (
	minBackoff = 500 * time.Millisecond
	maxBackoff = 30 * time.Second
)

// ErrStreamClosed means the server ended the event stream (cancel or auth_revoked).
var ErrStreamClosed = errors.New("event stream closed by server")

type FirebaseOptions struct {
	// URL is the database root, e.g. https://project-default-rtdb.firebaseio.com
	URL string
	// Path is the collection node, default "leads".
	Path string
	// CredentialsJSON is a service account key; takes precedence over Secret.
	CredentialsJSON []byte
	// Secret is a legacy database secret sent as the auth query parameter.
	Secret string
	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
	Log        zerolog.Logger
}

type Firebase struct {
	base   string
	path   string
	secret string
	client *http.Client
	log    zerolog.Logger
}

func NewFirebase(ctx context.Context, opts FirebaseOptions) (*Firebase, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("firebase url is required")
	}
	if _, err := url.Parse(opts.URL); err != nil {
		return nil, fmt.Errorf("invalid firebase url: %w", err)
	}
	path := strings.Trim(opts.Path, "/")
	if path == "" {
		path = "leads"
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	if len(opts.CredentialsJSON) > 0 {
		creds, err := google.CredentialsFromJSON(ctx, opts.CredentialsJSON, firebaseScopes...)
		if err != nil {
			return nil, fmt.Errorf("failed to parse firebase credentials: %w", err)
		}
		client = oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, client), creds.TokenSource)
	}

	return &Firebase{
		base:   strings.TrimRight(opts.URL, "/"),
		path:   path,
		secret: opts.Secret,
		client: client,
		log:    opts.Log,
	}, nil
}

func (f *Firebase) endpoint(id string) string {
	u := f.base + "/" + f.path
	if id != "" {
		u += "/" + url.PathEscape(id)
	}
	u += ".json"
	if f.secret != "" {
		u += "?auth=" + url.QueryEscape(f.secret)
	}
	return u
}

func (f *Firebase) do(ctx context.Context, method, u string, body []byte) error {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, r)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("firebase %s failed: %w", method, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("firebase %s returned %d: %s", method, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (f *Firebase) Upsert(ctx context.Context, lead models.Lead) error {
	if lead.ID == "" {
		return fmt.Errorf("lead id is required")
	}
	body, err := json.Marshal(lead)
	if err != nil {
		return fmt.Errorf("failed to encode lead: %w", err)
	}
	return f.do(ctx, http.MethodPut, f.endpoint(lead.ID), body)
}

func (f *Firebase) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("lead id is required")
	}
	return f.do(ctx, http.MethodDelete, f.endpoint(id), nil)
}

func (f *Firebase) Subscribe(ctx context.Context, onSnapshot func([]models.Lead)) (func(), error) {
	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		f.streamLoop(ctx, onSnapshot)
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			wg.Wait()
		})
	}, nil
}

func (f *Firebase) streamLoop(ctx context.Context, onSnapshot func([]models.Lead)) {
	backoff := minBackoff
	for {
		delivered, err := f.stream(ctx, onSnapshot)
		if ctx.Err() != nil {
			return
		}
		if delivered {
			backoff = minBackoff
		}
		f.log.Warn().Err(err).Dur("retry_in", backoff).Msg("firebase stream interrupted")

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// stream holds one event-stream connection open. It reports whether any
// snapshot was delivered so the caller can reset its backoff.
func (f *Firebase) stream(ctx context.Context, onSnapshot func([]models.Lead)) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.endpoint(""), nil)
	if err != nil {
		return false, fmt.Errorf("failed to build stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := f.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to open stream: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return false, fmt.Errorf("stream returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	m := newMirror()
	delivered := false
	reader := bufio.NewReader(resp.Body)
	var event string
	var data strings.Builder

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return delivered, io.ErrUnexpectedEOF
			}
			return delivered, err
		}
		line = strings.TrimRight(line, "\r\n")

		switch {
		case line == "":
			if event == "" {
				continue
			}
			changed, err := m.apply(event, data.String())
			if err != nil {
				return delivered, err
			}
			if changed {
				onSnapshot(m.leads(f.log))
				delivered = true
			}
			event = ""
			data.Reset()
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
	}
}

// mirror is the local copy of the collection node as generic JSON.
type mirror struct {
	root map[string]any
}

func newMirror() *mirror {
	return &mirror{root: map[string]any{}}
}

type streamPayload struct {
	Path string `json:"path"`
	Data any    `json:"data"`
}

// apply folds one event into the mirror and reports whether the collection changed.
func (m *mirror) apply(event, data string) (bool, error) {
	switch event {
	case "keep-alive":
		return false, nil
	case "cancel", "auth_revoked":
		return false, fmt.Errorf("%w: %s", ErrStreamClosed, event)
	case "put", "patch":
	default:
		return false, nil
	}

	var p streamPayload
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return false, fmt.Errorf("malformed %s payload: %w", event, err)
	}
	segments := splitPath(p.Path)

	if event == "put" {
		m.set(segments, p.Data)
		return true, nil
	}

	fields, ok := p.Data.(map[string]any)
	if !ok {
		return false, fmt.Errorf("patch payload is not an object")
	}
	for k, v := range fields {
		m.set(append(append([]string{}, segments...), splitPath(k)...), v)
	}
	return true, nil
}

func splitPath(p string) []string {
	var out []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (m *mirror) set(segments []string, value any) {
	if len(segments) == 0 {
		if obj, ok := value.(map[string]any); ok {
			m.root = obj
		} else {
			m.root = map[string]any{}
		}
		return
	}

	node := m.root
	for _, seg := range segments[:len(segments)-1] {
		child, ok := node[seg].(map[string]any)
		if !ok {
			if value == nil {
				return
			}
			child = map[string]any{}
			node[seg] = child
		}
		node = child
	}

	last := segments[len(segments)-1]
	if value == nil {
		delete(node, last)
	} else {
		node[last] = value
	}
}

func (m *mirror) leads(log zerolog.Logger) []models.Lead {
	ids := make([]string, 0, len(m.root))
	for id := range m.root {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]models.Lead, 0, len(ids))
	for _, id := range ids {
		raw, err := json.Marshal(m.root[id])
		if err != nil {
			continue
		}
		var lead models.Lead
		if err := json.Unmarshal(raw, &lead); err != nil {
			log.Debug().Err(err).Str("id", id).Msg("skipping undecodable remote record")
			continue
		}
		if lead.ID == "" {
			lead.ID = id
		}
		out = append(out, lead)
	}
	return out
}
