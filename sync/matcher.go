// ABOUTME: Lead deduplication and matching logic
// ABOUTME: Finds existing leads by phone number or name and address before hand-entered inserts
package sync

import (
	"strings"
	"unicode"

	"github.com/harperreed/leadsync/models"
)

type LeadMatcher struct {
	byPhone       map[string]*models.Lead
	byNameAddress map[string]*models.Lead
}

// NewLeadMatcher creates a matcher from existing leads.
func NewLeadMatcher(leads []models.Lead) *LeadMatcher {
	m := &LeadMatcher{
		byPhone:       make(map[string]*models.Lead),
		byNameAddress: make(map[string]*models.Lead),
	}

	for i := range leads {
		m.AddLead(&leads[i])
	}

	return m
}

// FindMatch looks for an existing lead with the same phone, falling back to
// the same name at the same address.
func (m *LeadMatcher) FindMatch(l models.Lead) (*models.Lead, bool) {
	if phone := normalizePhone(l.Phone); phone != "" {
		if found, ok := m.byPhone[phone]; ok {
			return found, true
		}
	}

	key := nameAddressKey(l.Name, l.Address)
	if key == "" {
		return nil, false
	}
	found, ok := m.byNameAddress[key]
	return found, ok
}

// AddLead adds a newly created lead to the matcher to prevent duplicates
// within the same intake session.
func (m *LeadMatcher) AddLead(l *models.Lead) {
	if phone := normalizePhone(l.Phone); phone != "" {
		m.byPhone[phone] = l
	}
	if key := nameAddressKey(l.Name, l.Address); key != "" {
		m.byNameAddress[key] = l
	}
}

// normalizePhone keeps the last ten digits so "+1 (555) 010-0199" and
// "555.010.0199" compare equal. Fewer than seven digits is not a phone.
func normalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) < 7 {
		return ""
	}
	if len(digits) > 10 {
		digits = digits[len(digits)-10:]
	}
	return digits
}

// nameAddressKey is empty unless both parts are present.
func nameAddressKey(name, address string) string {
	n := normalizeText(name)
	a := normalizeText(address)
	if n == "" || a == "" {
		return ""
	}
	return n + "|" + a
}

func normalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
