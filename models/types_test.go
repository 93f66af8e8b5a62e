// ABOUTME: Tests for lead data models
// ABOUTME: Validates the interacted-with predicate, status parsing and id formats
package models

import (
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInteracted(t *testing.T) {
	tests := []struct {
		name string
		lead Lead
		want bool
	}{
		{"fresh search hit", Lead{Status: StatusNew}, false},
		{"empty status", Lead{}, false},
		{"whitespace notes", Lead{Status: StatusNew, Notes: "   \n"}, false},
		{"marked lead", Lead{Status: StatusNew, IsLead: true}, true},
		{"has notes", Lead{Status: StatusNew, Notes: "call back friday"}, true},
		{"status changed", Lead{Status: StatusCalled}, true},
		{"has calls", Lead{Status: StatusNew, CallHistory: []CallLog{{Date: 1, User: "amy"}}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.lead.Interacted())
		})
	}
}

func TestParseStatus(t *testing.T) {
	st, err := ParseStatus("interested")
	require.NoError(t, err)
	assert.Equal(t, StatusInterested, st)

	st, err = ParseStatus(" Callback ")
	require.NoError(t, err)
	assert.Equal(t, StatusCallback, st)

	_, err = ParseStatus("maybe")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestHasDetails(t *testing.T) {
	legacy := Lead{}
	assert.True(t, legacy.HasDetails())

	pending := Lead{DetailsFetched: Ptr(false)}
	assert.False(t, pending.HasDetails())

	done := Lead{DetailsFetched: Ptr(true)}
	assert.True(t, done.HasDetails())
}

func TestCloneDoesNotAlias(t *testing.T) {
	orig := Lead{ID: "a", CallHistory: []CallLog{{Date: 1}}, Rating: Ptr(4.5)}
	c := orig.Clone()
	c.CallHistory[0].Date = 99
	*c.Rating = 1

	assert.Equal(t, int64(1), orig.CallHistory[0].Date)
	assert.Equal(t, 4.5, *orig.Rating)
}

func TestLeadJSONKeys(t *testing.T) {
	lead := Lead{
		ID:               "p1",
		Name:             "Joe's Plumbing",
		Status:           StatusNew,
		IsLead:           true,
		UserRatingsTotal: Ptr(12),
		LastUpdated:      1700000000000,
	}
	data, err := json.Marshal(lead)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, true, raw["isLead"])
	assert.Equal(t, float64(12), raw["userRatingsTotal"])
	assert.Equal(t, float64(1700000000000), raw["lastUpdated"])
	assert.NotContains(t, raw, "detailsFetched")
}

func TestGeneratedIDs(t *testing.T) {
	now := time.UnixMilli(1700000000123)

	manual := NewManualID(now)
	assert.Regexp(t, regexp.MustCompile(`^manual_1700000000123_[0-9a-f]{9}$`), manual)
	assert.True(t, IsHandEntered(manual))

	social := NewSocialID(now)
	assert.Regexp(t, regexp.MustCompile(`^fb_1700000000123_[0-9a-f]{9}$`), social)
	assert.NotEqual(t, social, NewSocialID(now))

	assert.False(t, IsHandEntered("ChIJN1t_tDeuEmsRUsoyG83frY4"))
	assert.Len(t, NewSessionID(), 26)
}
