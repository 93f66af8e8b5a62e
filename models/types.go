// ABOUTME: Data models for sales leads
// ABOUTME: Defines Lead, CallLog, Status and Source plus the interacted-with predicate
package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Status is the pipeline position of a lead.
type Status string

const (
	StatusNew        Status = "NEW"
	StatusCalled     Status = "CALLED"
	StatusCallback   Status = "CALLBACK"
	StatusRejected   Status = "REJECTED"
	StatusInterested Status = "INTERESTED"
	StatusClosed     Status = "CLOSED"
)

// Statuses lists every status in pipeline order.
var Statuses = []Status{
	StatusNew,
	StatusCalled,
	StatusCallback,
	StatusInterested,
	StatusRejected,
	StatusClosed,
}

// ErrInvalidStatus is returned by ParseStatus for unknown values.
var ErrInvalidStatus = errors.New("invalid status")

// ParseStatus accepts a status name in any case.
func ParseStatus(s string) (Status, error) {
	candidate := Status(strings.ToUpper(strings.TrimSpace(s)))
	for _, st := range Statuses {
		if st == candidate {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// Label is the human-readable form used in exports and the TUI.
func (s Status) Label() string {
	switch s {
	case StatusNew:
		return "New"
	case StatusCalled:
		return "Called"
	case StatusCallback:
		return "Callback"
	case StatusRejected:
		return "Rejected"
	case StatusInterested:
		return "Interested"
	case StatusClosed:
		return "Closed"
	}
	return string(s)
}

// Source records where a lead came from.
type Source string

const (
	SourceSearch Source = "search_provider"
	SourceManual Source = "manual"
	SourceSocial Source = "social"
)

// CallLog is a single logged call attempt.
type CallLog struct {
	Date    int64  `json:"date"` // epoch ms
	User    string `json:"user"`
	Outcome string `json:"outcome"`
	Notes   string `json:"notes,omitempty"`
}

// Time returns the call date as a time.Time.
func (c CallLog) Time() time.Time {
	return time.UnixMilli(c.Date)
}

type Lead struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Address string   `json:"address"`
	Phone   string   `json:"phone,omitempty"`
	Website string   `json:"website,omitempty"`
	Email   *string  `json:"email,omitempty"`
	Lat     *float64 `json:"lat,omitempty"`
	Lng     *float64 `json:"lng,omitempty"`

	Status      Status    `json:"status"`
	IsLead      bool      `json:"isLead"`
	Source      Source    `json:"source,omitempty"`
	Notes       string    `json:"notes"`
	CallHistory []CallLog `json:"callHistory"`
	AddedBy     string    `json:"addedBy,omitempty"`
	AssignedTo  string    `json:"assignedTo,omitempty"`

	// DetailsFetched is nil for records written before detail enrichment existed.
	DetailsFetched   *bool    `json:"detailsFetched,omitempty"`
	Rating           *float64 `json:"rating,omitempty"`
	UserRatingsTotal *int     `json:"userRatingsTotal,omitempty"`

	BusinessType  string `json:"businessType,omitempty"`
	SearchKeyword string `json:"searchKeyword,omitempty"`
	SocialGroup   string `json:"socialGroup,omitempty"`
	SocialPostURL string `json:"socialPostUrl,omitempty"`

	AddedAt     int64 `json:"addedAt"`     // epoch ms
	LastUpdated int64 `json:"lastUpdated"` // epoch ms
}

// Interacted reports whether a user has touched the lead in any way.
// Interacted leads survive new searches and are the only ones synced remotely.
func (l *Lead) Interacted() bool {
	return l.IsLead ||
		strings.TrimSpace(l.Notes) != "" ||
		(l.Status != "" && l.Status != StatusNew) ||
		len(l.CallHistory) > 0
}

// HasDetails reports whether phone/website enrichment has completed.
// Legacy records (nil) are treated as enriched.
func (l *Lead) HasDetails() bool {
	return l.DetailsFetched == nil || *l.DetailsFetched
}

// Reviews returns the review count, zero when unknown.
func (l *Lead) Reviews() int {
	if l.UserRatingsTotal == nil {
		return 0
	}
	return *l.UserRatingsTotal
}

// RatingValue returns the rating, zero when unknown.
func (l *Lead) RatingValue() float64 {
	if l.Rating == nil {
		return 0
	}
	return *l.Rating
}

// Clone returns a deep copy so callers can mutate without aliasing store state.
func (l Lead) Clone() Lead {
	if l.CallHistory != nil {
		l.CallHistory = append([]CallLog(nil), l.CallHistory...)
	}
	if l.Email != nil {
		v := *l.Email
		l.Email = &v
	}
	if l.Lat != nil {
		v := *l.Lat
		l.Lat = &v
	}
	if l.Lng != nil {
		v := *l.Lng
		l.Lng = &v
	}
	if l.DetailsFetched != nil {
		v := *l.DetailsFetched
		l.DetailsFetched = &v
	}
	if l.Rating != nil {
		v := *l.Rating
		l.Rating = &v
	}
	if l.UserRatingsTotal != nil {
		v := *l.UserRatingsTotal
		l.UserRatingsTotal = &v
	}
	return l
}

// Ptr is a small helper for optional fields.
func Ptr[T any](v T) *T {
	return &v
}

// NowMillis returns t as epoch milliseconds.
func NowMillis(t time.Time) int64 {
	return t.UnixMilli()
}
