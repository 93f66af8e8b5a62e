package sync

import (
	"testing"

	"github.com/harperreed/leadsync/models"
)

func TestMatchLeadByPhone(t *testing.T) {
	existing := []models.Lead{
		{ID: "p1", Name: "Joe's Plumbing", Phone: "(555) 010-0199"},
		{ID: "p2", Name: "Ace Electric", Phone: "555-010-0200"},
	}

	matcher := NewLeadMatcher(existing)

	match, found := matcher.FindMatch(models.Lead{Name: "Joes", Phone: "+1 555.010.0199"})
	if !found {
		t.Fatal("expected to find match by phone")
	}
	if match.ID != "p1" {
		t.Errorf("expected p1, got %s", match.ID)
	}

	_, found = matcher.FindMatch(models.Lead{Phone: "555-999-0000"})
	if found {
		t.Error("expected no match for unknown phone")
	}
}

func TestMatchLeadByNameAndAddress(t *testing.T) {
	matcher := NewLeadMatcher([]models.Lead{
		{ID: "p1", Name: "Joe's  Plumbing", Address: "12 Main St, Springfield"},
	})

	match, found := matcher.FindMatch(models.Lead{Name: "joe's plumbing", Address: "12 MAIN ST,  Springfield"})
	if !found || match.ID != "p1" {
		t.Fatalf("expected p1 by name and address, got %v %v", match, found)
	}

	if _, found := matcher.FindMatch(models.Lead{Name: "Joe's Plumbing"}); found {
		t.Error("name alone must not match")
	}
}

func TestAddLeadPreventsSessionDuplicates(t *testing.T) {
	matcher := NewLeadMatcher(nil)
	added := models.Lead{ID: "manual_1", Name: "Cafe", Phone: "5550100199"}
	matcher.AddLead(&added)

	match, found := matcher.FindMatch(models.Lead{Phone: "555 010 0199"})
	if !found || match.ID != "manual_1" {
		t.Errorf("expected manual_1, got %v", match)
	}
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"(555) 010-0199", "5550100199"},
		{"+1 555 010 0199", "5550100199"},
		{"N/A", ""},
		{"12345", ""},
		{"010-0199", "0100199"},
	}

	for _, tt := range tests {
		result := normalizePhone(tt.input)
		if result != tt.expected {
			t.Errorf("normalizePhone(%q) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}
