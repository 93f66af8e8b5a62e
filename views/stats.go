package views

import (
	"sort"
	"time"

	"github.com/harperreed/leadsync/models"
)

// MemberStats is one row of the team activity sheet.
type MemberStats struct {
	Name       string `json:"name"`
	Added      int    `json:"added"`
	Assigned   int    `json:"assigned"`
	Calls      int    `json:"calls"`
	CallsToday int    `json:"callsToday"`
}

type Stats struct {
	Total      int                   `json:"total"`
	Marked     int                   `json:"marked"`
	ByStatus   map[models.Status]int `json:"byStatus"`
	TotalCalls int                   `json:"totalCalls"`
	CallsToday int                   `json:"callsToday"`
	AddedToday int                   `json:"addedToday"`
	Members    []MemberStats         `json:"members"`
}

// Summarize computes dashboard counters. Members are sorted by calls, then name.
func Summarize(leads []models.Lead, now time.Time) Stats {
	today := startOfDay(now).UnixMilli()
	st := Stats{ByStatus: make(map[models.Status]int, len(models.Statuses))}
	for _, s := range models.Statuses {
		st.ByStatus[s] = 0
	}
	members := map[string]*MemberStats{}
	member := func(name string) *MemberStats {
		m, ok := members[name]
		if !ok {
			m = &MemberStats{Name: name}
			members[name] = m
		}
		return m
	}

	for _, l := range leads {
		st.Total++
		if l.IsLead {
			st.Marked++
		}
		status := l.Status
		if status == "" {
			status = models.StatusNew
		}
		st.ByStatus[status]++
		if l.AddedAt >= today {
			st.AddedToday++
		}
		if l.AddedBy != "" && l.Interacted() {
			member(l.AddedBy).Added++
		}
		if l.AssignedTo != "" {
			member(l.AssignedTo).Assigned++
		}
		for _, c := range l.CallHistory {
			st.TotalCalls++
			isToday := c.Date >= today
			if isToday {
				st.CallsToday++
			}
			if c.User != "" {
				m := member(c.User)
				m.Calls++
				if isToday {
					m.CallsToday++
				}
			}
		}
	}

	for _, m := range members {
		st.Members = append(st.Members, *m)
	}
	sort.Slice(st.Members, func(i, j int) bool {
		if st.Members[i].Calls != st.Members[j].Calls {
			return st.Members[i].Calls > st.Members[j].Calls
		}
		return st.Members[i].Name < st.Members[j].Name
	})
	return st
}
