package views

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/harperreed/leadsync/models"
)

type Sort string

const (
	SortNewest      Sort = "newest"
	SortOldest      Sort = "oldest"
	SortName        Sort = "name"
	SortReviewsLow  Sort = "reviews-low"
	SortReviewsHigh Sort = "reviews-high"
	SortRatingLow   Sort = "rating-low"
	SortRatingHigh  Sort = "rating-high"
	SortScore       Sort = "score"
	SortLastUpdated Sort = "last-updated"
	SortCalls       Sort = "calls"
	SortStatus      Sort = "status"
	SortAddedBy     Sort = "added-by"
)

var Sorts = []Sort{
	SortNewest, SortOldest, SortName,
	SortReviewsLow, SortReviewsHigh,
	SortRatingLow, SortRatingHigh,
	SortScore, SortLastUpdated, SortCalls, SortStatus, SortAddedBy,
}

// ParseSort accepts any listed key; empty means newest.
func ParseSort(s string) (Sort, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return SortNewest, nil
	}
	for _, k := range Sorts {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown sort %q", s)
}

// SortLeads orders leads in place. Ties keep their input order.
func SortLeads(leads []models.Lead, key Sort) {
	slices.SortStableFunc(leads, comparator(key))
}

func comparator(key Sort) func(a, b models.Lead) int {
	switch key {
	case SortOldest:
		return func(a, b models.Lead) int { return cmp.Compare(a.AddedAt, b.AddedAt) }
	case SortName:
		return func(a, b models.Lead) int {
			return cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		}
	case SortReviewsLow:
		return func(a, b models.Lead) int { return cmp.Compare(a.Reviews(), b.Reviews()) }
	case SortReviewsHigh:
		return func(a, b models.Lead) int { return cmp.Compare(b.Reviews(), a.Reviews()) }
	case SortRatingLow:
		return func(a, b models.Lead) int { return cmp.Compare(a.RatingValue(), b.RatingValue()) }
	case SortRatingHigh:
		return func(a, b models.Lead) int { return cmp.Compare(b.RatingValue(), a.RatingValue()) }
	case SortScore:
		return func(a, b models.Lead) int { return cmp.Compare(LeadScore(b), LeadScore(a)) }
	case SortLastUpdated:
		return func(a, b models.Lead) int { return cmp.Compare(touched(b), touched(a)) }
	case SortCalls:
		return func(a, b models.Lead) int { return cmp.Compare(len(b.CallHistory), len(a.CallHistory)) }
	case SortStatus:
		return func(a, b models.Lead) int { return cmp.Compare(a.Status, b.Status) }
	case SortAddedBy:
		return func(a, b models.Lead) int { return cmp.Compare(a.AddedBy, b.AddedBy) }
	}
	return func(a, b models.Lead) int { return cmp.Compare(b.AddedAt, a.AddedAt) }
}

func touched(l models.Lead) int64 {
	if l.LastUpdated != 0 {
		return l.LastUpdated
	}
	return l.AddedAt
}
