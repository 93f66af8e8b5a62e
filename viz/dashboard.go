// ABOUTME: Terminal dashboard statistics and rendering
// ABOUTME: Provides an ASCII overview of the pipeline, team activity and overdue callbacks
package viz

import (
	"fmt"
	"strings"
	"time"

	"github.com/harperreed/leadsync/models"
	"github.com/harperreed/leadsync/views"
)

// StaleAfter is how long a callback can sit before it needs attention.
const StaleAfter = 3 * 24 * time.Hour

type DashboardStats struct {
	views.Stats

	HotLeads       []HotLead
	StaleCallbacks []StaleLead
}

type HotLead struct {
	Name  string
	Score int
}

type StaleLead struct {
	Name string
	// DaysSince is -1 when the lead was never called.
	DaysSince int
}

func GenerateDashboardStats(leads []models.Lead, now time.Time) *DashboardStats {
	stats := &DashboardStats{Stats: views.Summarize(leads, now)}

	ranked := append([]models.Lead(nil), leads...)
	views.SortLeads(ranked, views.SortScore)
	for _, l := range ranked {
		if len(stats.HotLeads) == 5 {
			break
		}
		if l.Status == models.StatusRejected || l.Status == models.StatusClosed {
			continue
		}
		stats.HotLeads = append(stats.HotLeads, HotLead{Name: l.Name, Score: views.LeadScore(l)})
	}

	for _, l := range leads {
		if l.Status != models.StatusCallback {
			continue
		}
		if len(l.CallHistory) == 0 {
			stats.StaleCallbacks = append(stats.StaleCallbacks, StaleLead{Name: l.Name, DaysSince: -1})
			continue
		}
		since := now.Sub(l.CallHistory[len(l.CallHistory)-1].Time())
		if since > StaleAfter {
			stats.StaleCallbacks = append(stats.StaleCallbacks, StaleLead{Name: l.Name, DaysSince: int(since.Hours() / 24)})
		}
	}
	return stats
}

func RenderDashboard(stats *DashboardStats) string {
	var out strings.Builder

	out.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	out.WriteString("  LEADSYNC DASHBOARD\n")
	out.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

	out.WriteString("PIPELINE OVERVIEW\n")
	renderPipeline(&out, stats.ByStatus)
	out.WriteString("\n")

	out.WriteString("STATS\n")
	fmt.Fprintf(&out, "  🏢 %d businesses  ⭐ %d leads  📞 %d calls (%d today)  ➕ %d added today\n\n",
		stats.Total, stats.Marked, stats.TotalCalls, stats.CallsToday, stats.AddedToday)

	if len(stats.Members) > 0 {
		out.WriteString("TEAM\n")
		for _, m := range stats.Members {
			fmt.Fprintf(&out, "  %-16s %3d calls (%d today)  %3d added  %3d assigned\n",
				m.Name, m.Calls, m.CallsToday, m.Added, m.Assigned)
		}
		out.WriteString("\n")
	}

	if len(stats.HotLeads) > 0 {
		out.WriteString("HOT LEADS\n")
		for _, h := range stats.HotLeads {
			fmt.Fprintf(&out, "  🔥 %3d  %s\n", h.Score, h.Name)
		}
		out.WriteString("\n")
	}

	if len(stats.StaleCallbacks) > 0 {
		out.WriteString("NEEDS ATTENTION\n")
		fmt.Fprintf(&out, "  ⚠️  %d callbacks waiting more than %d days\n", len(stats.StaleCallbacks), int(StaleAfter.Hours()/24))
	}

	return out.String()
}

func renderPipeline(out *strings.Builder, byStatus map[models.Status]int) {
	maxCount := 1
	for _, n := range byStatus {
		maxCount = max(maxCount, n)
	}

	for _, s := range models.Statuses {
		n := byStatus[s]
		barLength := (n * 10) / maxCount
		bar := strings.Repeat("█", barLength) + strings.Repeat("░", 10-barLength)
		fmt.Fprintf(out, "  %-11s %s  %3d\n", s.Label(), bar, n)
	}
}
