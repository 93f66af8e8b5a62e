package views

import "github.com/harperreed/leadsync/models"

// LeadScore rates how promising a lead is, 0 to 100. A business without a
// website is the best prospect; unknown rating or review counts score neutral.
func LeadScore(l models.Lead) int {
	score := 50

	if l.Website == "" {
		score += 20
	}
	if l.Phone != "" {
		score += 10
	}

	if l.Rating != nil {
		switch r := *l.Rating; {
		case r >= 4.5:
			score += 10
		case r >= 4:
			score += 5
		case r > 0 && r < 3:
			score -= 10
		}
	}

	if l.UserRatingsTotal != nil {
		switch n := *l.UserRatingsTotal; {
		case n >= 100:
			score += 10
		case n >= 50:
			score += 5
		case n < 10:
			score -= 5
		}
	}

	switch l.Status {
	case models.StatusInterested:
		score += 15
	case models.StatusCallback:
		score += 10
	case models.StatusRejected:
		score -= 30
	}

	return max(0, min(100, score))
}
