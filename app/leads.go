package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/harperreed/leadsync/export"
	"github.com/harperreed/leadsync/intake"
	"github.com/harperreed/leadsync/models"
	"github.com/harperreed/leadsync/places"
	"github.com/harperreed/leadsync/store"
	lsync "github.com/harperreed/leadsync/sync"
	"github.com/harperreed/leadsync/views"
)

// NoteTimeLayout prefixes quick notes.
const NoteTimeLayout = "1/2/2006 3:04 PM"

var (
	// ErrDuplicate is returned when a hand-entered lead matches an existing one.
	ErrDuplicate      = errors.New("a matching lead already exists")
	ErrEmptyNote      = errors.New("note is empty")
	ErrMissingOutcome = errors.New("call outcome is required")
)

type SearchRequest struct {
	Category string  `json:"category"`
	Text     string  `json:"text,omitempty"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	// Radius in meters; zero uses places.defaultRadius.
	Radius float64 `json:"radius,omitempty"`
}

type SearchResult struct {
	Found   int  `json:"found"`
	Added   int  `json:"added"`
	HasMore bool `json:"hasMore"`
}

// Search replaces the ephemeral results with a new area search. Leads anyone
// has interacted with are kept. Contact details are fetched in the background.
func (a *App) Search(ctx context.Context, req SearchRequest) (SearchResult, error) {
	if a.places == nil {
		return SearchResult{}, ErrSearchUnavailable
	}
	radius := req.Radius
	if radius <= 0 {
		radius = float64(a.cfg.Places.DefaultRadius)
	}
	q := places.Query{
		Category: strings.TrimSpace(req.Category),
		Text:     strings.TrimSpace(req.Text),
		Center:   places.LatLng{Lat: req.Lat, Lng: req.Lng},
		Radius:   radius,
		AddedBy:  a.viewer.Name,
	}

	a.searchMu.Lock()
	defer a.searchMu.Unlock()

	page, err := a.places.SearchArea(ctx, q)
	if err != nil {
		return SearchResult{}, err
	}
	added := a.store.ApplySearchResults(page.Leads)
	a.syncer.Changed()
	a.enqueueDetails(page.Leads)

	a.lastQuery = &q
	a.nextPage = page.NextPageToken
	return SearchResult{Found: len(page.Leads), Added: added, HasMore: page.NextPageToken != ""}, nil
}

// LoadMore appends the next page of the last search.
func (a *App) LoadMore(ctx context.Context) (SearchResult, error) {
	if a.places == nil {
		return SearchResult{}, ErrSearchUnavailable
	}
	a.searchMu.Lock()
	defer a.searchMu.Unlock()

	if a.lastQuery == nil || a.nextPage == "" {
		return SearchResult{}, ErrNoMorePages
	}
	q := *a.lastQuery
	q.PageToken = a.nextPage

	page, err := a.places.SearchArea(ctx, q)
	if err != nil {
		return SearchResult{}, err
	}
	added := a.store.AppendSearchResults(page.Leads)
	a.syncer.Changed()
	a.enqueueDetails(page.Leads)

	a.nextPage = page.NextPageToken
	return SearchResult{Found: len(page.Leads), Added: added, HasMore: page.NextPageToken != ""}, nil
}

func (a *App) enqueueDetails(leads []models.Lead) {
	if a.details == nil {
		return
	}
	if n := a.details.Enqueue(a.unenriched(leads)); n > 0 {
		a.log.Debug().Int("queued", n).Msg("fetching contact details")
	}
}

// Leads returns what the current user may see, filtered and sorted.
func (a *App) Leads(f views.Filters, sort views.Sort) []models.Lead {
	if f.Now.IsZero() {
		f.Now = a.now()
	}
	return views.Apply(a.store.All(), f, sort, a.viewer)
}

func (a *App) Lead(id string) (models.Lead, error) {
	l, ok := a.store.Get(id)
	if !ok {
		return models.Lead{}, store.ErrLeadNotFound
	}
	if !a.viewer.CanView(l) {
		return models.Lead{}, ErrForbidden
	}
	return l, nil
}

// Stats summarizes the leads visible to the current user.
func (a *App) Stats() views.Stats {
	now := a.now()
	return views.Summarize(views.Apply(a.store.All(), views.Filters{Now: now}, views.SortNewest, a.viewer), now)
}

// Update applies a patch and schedules sync and export.
func (a *App) Update(id string, p store.Patch) (models.Lead, error) {
	l, ok := a.store.Get(id)
	if !ok {
		return models.Lead{}, store.ErrLeadNotFound
	}
	if !a.viewer.CanEdit(l) {
		return models.Lead{}, ErrForbidden
	}

	change, err := a.store.Mutate(id, p)
	if err != nil {
		return models.Lead{}, err
	}
	a.syncer.Changed()

	if export.ShouldExport(change.Before, change.After) {
		action := export.ActionUpdate
		if !change.Before.IsLead {
			action = export.ActionAdd
		}
		a.exports.Dispatch(export.NewPayload(action, change.After, a.viewer.Name, a.now()))
	}
	return change.After, nil
}

func (a *App) SetStatus(id string, status models.Status) (models.Lead, error) {
	return a.Update(id, store.Patch{Status: &status})
}

func (a *App) ToggleLead(id string) (models.Lead, error) {
	return a.Update(id, store.Patch{ToggleLead: true})
}

func (a *App) SetLead(id string, marked bool) (models.Lead, error) {
	return a.Update(id, store.Patch{IsLead: &marked})
}

// AddNote appends a timestamped line to the lead's notes.
func (a *App) AddNote(id, text string) (models.Lead, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Lead{}, ErrEmptyNote
	}
	line := fmt.Sprintf("[%s] %s", a.now().Format(NoteTimeLayout), text)
	return a.Update(id, store.Patch{AppendNote: line})
}

// LogCall records a call attempt by the current user. Status is left alone.
func (a *App) LogCall(id, outcome, notes string) (models.Lead, error) {
	outcome = strings.TrimSpace(outcome)
	if outcome == "" {
		return models.Lead{}, ErrMissingOutcome
	}
	return a.Update(id, store.Patch{Call: &models.CallLog{
		Date:    a.now().UnixMilli(),
		User:    a.viewer.Name,
		Outcome: outcome,
		Notes:   strings.TrimSpace(notes),
	}})
}

// Assign hands the lead to a team member; empty unassigns.
func (a *App) Assign(id, member string) (models.Lead, error) {
	member = strings.TrimSpace(member)
	return a.Update(id, store.Patch{AssignedTo: &member})
}

// AddManual saves a quick-add lead and uploads it right away.
func (a *App) AddManual(ctx context.Context, in intake.Manual) (models.Lead, error) {
	l, err := intake.NewManualLead(in, a.viewer.Name, a.now())
	if err != nil {
		return models.Lead{}, err
	}
	return a.add(ctx, l)
}

// AddSocial saves a lead entered from a social-media post.
func (a *App) AddSocial(ctx context.Context, in intake.Social) (models.Lead, error) {
	l, err := intake.NewSocialLead(in, a.viewer.Name, a.now())
	if err != nil {
		return models.Lead{}, err
	}
	return a.add(ctx, l)
}

func (a *App) add(ctx context.Context, l models.Lead) (models.Lead, error) {
	matcher := lsync.NewLeadMatcher(a.store.All())
	if existing, ok := matcher.FindMatch(l); ok {
		return *existing, fmt.Errorf("%w: matches %s (%s)", ErrDuplicate, existing.Name, existing.ID)
	}

	saved, err := a.store.Add(l)
	if err != nil {
		return models.Lead{}, err
	}
	a.syncer.Changed()
	// a failed upload stays queued for the next flush
	if err := a.syncer.Flush(ctx); err != nil {
		a.log.Warn().Err(err).Str("lead_id", saved.ID).Msg("lead saved locally, upload pending")
	}

	a.exports.Dispatch(export.NewPayload(export.ActionAdd, saved, a.viewer.Name, a.now()))
	a.log.Info().Str("lead_id", saved.ID).Str("source", string(saved.Source)).Msg("lead added")
	return saved, nil
}

// Delete removes a lead everywhere. Unknown ids still issue the remote delete
// so a retry after a failure is harmless.
func (a *App) Delete(ctx context.Context, id string) error {
	l, known := a.store.Get(id)
	if known && !a.viewer.CanDelete(l) {
		return ErrForbidden
	}
	if err := a.syncer.Remove(ctx, id); err != nil {
		return err
	}
	if known && l.IsLead {
		a.exports.Dispatch(export.NewPayload(export.ActionDelete, l, a.viewer.Name, a.now()))
	}
	return nil
}

// BulkStatus sets status on every id the user may edit and returns how many changed.
func (a *App) BulkStatus(ids []string, status models.Status) (int, error) {
	return a.bulk(ids, func(id string) error {
		_, err := a.SetStatus(id, status)
		return err
	})
}

// BulkMark marks every id as a lead.
func (a *App) BulkMark(ids []string) (int, error) {
	return a.bulk(ids, func(id string) error {
		_, err := a.SetLead(id, true)
		return err
	})
}

func (a *App) BulkDelete(ctx context.Context, ids []string) (int, error) {
	return a.bulk(ids, func(id string) error {
		return a.Delete(ctx, id)
	})
}

func (a *App) bulk(ids []string, fn func(id string) error) (int, error) {
	var (
		done int
		errs []error
	)
	for _, id := range ids {
		if err := fn(id); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", id, err))
			continue
		}
		done++
	}
	return done, errors.Join(errs...)
}

// ClearAll deletes every lead. Admin only.
func (a *App) ClearAll(ctx context.Context) (int, error) {
	if !a.viewer.IsAdmin() {
		return 0, ErrForbidden
	}
	return a.BulkDelete(ctx, a.store.IDs())
}

// ExportCSV writes the visible marked leads, newest first.
func (a *App) ExportCSV(w io.Writer) (int, error) {
	leads := a.Leads(views.Filters{OnlyLeads: true}, views.SortNewest)
	return export.WriteCSV(w, leads, time.Local)
}

// ImportCSV adds the rows of an exported file as hand-entered leads.
// Rows without a name or matching an existing lead are skipped.
func (a *App) ImportCSV(ctx context.Context, r io.Reader) (imported, skipped int, err error) {
	rows, err := export.ReadCSV(r)
	if err != nil {
		return 0, 0, err
	}
	for _, row := range rows {
		in := intake.Manual{
			Name:         row.Name,
			Address:      row.Address,
			BusinessType: categoryValue(row.BusinessType),
			Notes:        row.Notes,
		}
		if row.Phone != "N/A" {
			in.Phone = row.Phone
		}
		if _, err := a.AddManual(ctx, in); err != nil {
			if errors.Is(err, ErrDuplicate) || errors.Is(err, intake.ErrMissingName) {
				skipped++
				continue
			}
			return imported, skipped, err
		}
		imported++
	}
	return imported, skipped, nil
}

// categoryValue maps an exported category label back to its place type.
func categoryValue(label string) string {
	for _, c := range places.Categories {
		if strings.EqualFold(c.Label, label) {
			return c.Value
		}
	}
	if label == "Unknown" {
		return ""
	}
	return label
}
