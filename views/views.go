// ABOUTME: Pure presentation layer over the lead list
// ABOUTME: Role-based visibility, search text, filters and sort orders
package views

import (
	"strings"
	"time"

	"github.com/harperreed/leadsync/config"
	"github.com/harperreed/leadsync/models"
)

// Viewer is the user a view is computed for.
type Viewer struct {
	Name string
	Role string
}

func (v Viewer) IsAdmin() bool {
	return v.Role == config.RoleAdmin
}

// CanView reports whether the viewer may see the lead. Admins see everything.
// Members see leads they added or were assigned, unassigned leads and search
// results nobody has touched yet.
func (v Viewer) CanView(l models.Lead) bool {
	if v.IsAdmin() {
		return true
	}
	if !l.Interacted() {
		return true
	}
	name := strings.TrimSpace(v.Name)
	if name != "" && (strings.EqualFold(l.AddedBy, name) || strings.EqualFold(l.AssignedTo, name)) {
		return true
	}
	return l.AssignedTo == ""
}

// CanEdit matches CanView: anything visible can be worked.
func (v Viewer) CanEdit(l models.Lead) bool {
	return v.CanView(l)
}

// CanDelete is restricted to admins and the member who added the lead.
func (v Viewer) CanDelete(l models.Lead) bool {
	if v.IsAdmin() {
		return true
	}
	return v.Name != "" && strings.EqualFold(l.AddedBy, v.Name)
}

// Activity narrows by call history.
type Activity string

const (
	ActivityAny         Activity = ""
	ActivityCalled      Activity = "called"
	ActivityNotCalled   Activity = "not-called"
	ActivityCalledToday Activity = "called-today"
)

// Period narrows by recent activity, either an update or a call.
type Period string

const (
	PeriodAll       Period = ""
	PeriodToday     Period = "today"
	PeriodYesterday Period = "yesterday"
	PeriodWeek      Period = "week"
	PeriodMonth     Period = "month"
)

// Range returns the [start, end) window in epoch ms for the period.
func (p Period) Range(now time.Time) (int64, int64) {
	today := startOfDay(now)
	switch p {
	case PeriodToday:
		return today.UnixMilli(), now.UnixMilli() + 1
	case PeriodYesterday:
		return today.AddDate(0, 0, -1).UnixMilli(), today.UnixMilli()
	case PeriodWeek:
		return now.Add(-7 * 24 * time.Hour).UnixMilli(), now.UnixMilli() + 1
	case PeriodMonth:
		return now.Add(-30 * 24 * time.Hour).UnixMilli(), now.UnixMilli() + 1
	}
	return 0, now.UnixMilli() + 1
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

type Filters struct {
	Search string

	NoWebsite bool
	NoPhone   bool
	NotCalled bool
	Status    models.Status
	// MaxReviews excludes leads with more reviews; zero disables it.
	MaxReviews int
	OnlyLeads  bool

	Member   string
	Activity Activity
	Period   Period

	// Now anchors the time-based filters; zero means time.Now.
	Now time.Time
}

// Apply returns the leads the viewer may see that pass every filter, sorted.
// The input slice is not modified.
func Apply(leads []models.Lead, f Filters, sortKey Sort, viewer Viewer) []models.Lead {
	now := f.Now
	if now.IsZero() {
		now = time.Now()
	}
	out := make([]models.Lead, 0, len(leads))
	for _, l := range leads {
		if viewer.CanView(l) && f.Match(l, now) {
			out = append(out, l)
		}
	}
	SortLeads(out, sortKey)
	return out
}

// Match reports whether l passes every filter.
func (f Filters) Match(l models.Lead, now time.Time) bool {
	if f.Search != "" && !matchesSearch(l, f.Search) {
		return false
	}
	// contact filters only apply once enrichment has run
	if f.NoWebsite && (l.Website != "" || !l.HasDetails()) {
		return false
	}
	if f.NoPhone && (l.Phone != "" || !l.HasDetails()) {
		return false
	}
	if f.NotCalled && l.Status != models.StatusNew {
		return false
	}
	if f.Status != "" && l.Status != f.Status {
		return false
	}
	if f.MaxReviews > 0 && l.UserRatingsTotal != nil && *l.UserRatingsTotal > f.MaxReviews {
		return false
	}
	if f.OnlyLeads && !l.IsLead {
		return false
	}
	if f.Member != "" && !involves(l, f.Member) {
		return false
	}
	switch f.Activity {
	case ActivityCalled:
		if len(l.CallHistory) == 0 {
			return false
		}
	case ActivityNotCalled:
		if len(l.CallHistory) > 0 {
			return false
		}
	case ActivityCalledToday:
		if CallsSince(l, startOfDay(now).UnixMilli()) == 0 {
			return false
		}
	}
	if f.Period != PeriodAll && !activeIn(l, f.Period, now) {
		return false
	}
	return true
}

func matchesSearch(l models.Lead, text string) bool {
	lower := strings.ToLower(text)
	return strings.Contains(strings.ToLower(l.Name), lower) ||
		strings.Contains(strings.ToLower(l.Address), lower) ||
		(l.Phone != "" && strings.Contains(l.Phone, text))
}

func involves(l models.Lead, member string) bool {
	if l.AddedBy == member || l.AssignedTo == member {
		return true
	}
	for _, c := range l.CallHistory {
		if c.User == member {
			return true
		}
	}
	return false
}

func activeIn(l models.Lead, p Period, now time.Time) bool {
	start, end := p.Range(now)
	if l.LastUpdated >= start && l.LastUpdated < end {
		return true
	}
	for _, c := range l.CallHistory {
		if c.Date >= start && c.Date < end {
			return true
		}
	}
	return false
}

// CallsSince counts calls logged at or after ms.
func CallsSince(l models.Lead, ms int64) int {
	n := 0
	for _, c := range l.CallHistory {
		if c.Date >= ms {
			n++
		}
	}
	return n
}

// Callable keeps leads with a phone number that are still worth dialing.
func Callable(leads []models.Lead) []models.Lead {
	var out []models.Lead
	for _, l := range leads {
		if l.Phone == "" || l.Status == models.StatusRejected || l.Status == models.StatusClosed {
			continue
		}
		out = append(out, l)
	}
	return out
}

// Marked returns the leads flagged as real prospects.
func Marked(leads []models.Lead) []models.Lead {
	var out []models.Lead
	for _, l := range leads {
		if l.IsLead {
			out = append(out, l)
		}
	}
	return out
}
