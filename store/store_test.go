package store

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/leadsync/models"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *fakeClock {
	return &fakeClock{t: time.UnixMilli(1700000000000)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newStore(t *testing.T) (*Store, *fakeClock) {
	t.Helper()
	clk := newClock()
	return New(Options{Now: clk.Now}), clk
}

func lead(id string) models.Lead {
	return models.Lead{ID: id, Name: "Biz " + id, Status: models.StatusNew, CallHistory: []models.CallLog{}}
}

func markedLead(id string, updated int64) models.Lead {
	l := lead(id)
	l.IsLead = true
	l.LastUpdated = updated
	return l
}

func ids(leads []models.Lead) []string {
	out := make([]string, 0, len(leads))
	for _, l := range leads {
		out = append(out, l.ID)
	}
	return out
}

func TestApplySearchResultsKeepsInteracted(t *testing.T) {
	s, _ := newStore(t)

	s.ApplySearchResults([]models.Lead{lead("a"), lead("b"), lead("c")})
	_, err := s.Mutate("a", Patch{AppendNote: "call back tuesday"})
	require.NoError(t, err)
	status := models.StatusCalled
	_, err = s.Mutate("b", Patch{Status: &status})
	require.NoError(t, err)

	added := s.ApplySearchResults([]models.Lead{lead("a"), lead("d"), lead("d"), lead("e")})
	assert.Equal(t, 2, added)
	assert.Equal(t, []string{"a", "b", "d", "e"}, ids(s.All()))

	a, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, "call back tuesday", a.Notes, "retained lead wins over candidate")
}

func TestApplySearchResultsReplacesEphemeral(t *testing.T) {
	s, _ := newStore(t)
	s.ApplySearchResults([]models.Lead{lead("a"), lead("b")})
	s.ApplySearchResults([]models.Lead{lead("c")})
	assert.Equal(t, []string{"c"}, ids(s.All()))
	s.ApplySearchResults(nil)
	assert.Equal(t, 0, s.Len())
}

func TestNoLossMergeProperty(t *testing.T) {
	s, _ := newStore(t)
	var batch []models.Lead
	for i := 0; i < 50; i++ {
		batch = append(batch, lead(fmt.Sprintf("p%d", i)))
	}
	s.ApplySearchResults(batch)

	interacted := map[string]bool{}
	for i := 0; i < 50; i += 7 {
		id := fmt.Sprintf("p%d", i)
		_, err := s.Mutate(id, Patch{Call: &models.CallLog{Date: 1, User: "amy", Outcome: "voicemail"}})
		require.NoError(t, err)
		interacted[id] = true
	}

	var next []models.Lead
	for i := 25; i < 90; i++ {
		next = append(next, lead(fmt.Sprintf("p%d", i)))
	}
	s.ApplySearchResults(next)

	seen := map[string]int{}
	for _, l := range s.All() {
		seen[l.ID]++
	}
	for id := range interacted {
		assert.Equal(t, 1, seen[id], id)
	}
	for id, n := range seen {
		assert.Equal(t, 1, n, "duplicate %s", id)
	}
}

func TestAppendSearchResults(t *testing.T) {
	s, _ := newStore(t)
	s.ApplySearchResults([]models.Lead{lead("a")})
	assert.Equal(t, 1, s.AppendSearchResults([]models.Lead{lead("a"), lead("b"), {}}))
	assert.Equal(t, []string{"a", "b"}, ids(s.All()))
}

func TestMutateStampsLastUpdated(t *testing.T) {
	s, clk := newStore(t)
	s.ApplySearchResults([]models.Lead{lead("a")})

	c1, err := s.Mutate("a", Patch{ToggleLead: true})
	require.NoError(t, err)
	assert.False(t, c1.Before.IsLead)
	assert.True(t, c1.After.IsLead)
	assert.Equal(t, clk.Now().UnixMilli(), c1.After.LastUpdated)

	// same millisecond still moves forward
	c2, err := s.Mutate("a", Patch{AppendNote: "x"})
	require.NoError(t, err)
	assert.Greater(t, c2.After.LastUpdated, c1.After.LastUpdated)

	_, err = s.Mutate("missing", Patch{})
	assert.ErrorIs(t, err, ErrLeadNotFound)
}

func TestPatchApply(t *testing.T) {
	l := lead("a")
	l.Notes = "first"
	l.Phone = "555"

	Patch{
		AppendNote: "second",
		Details:    &Details{Website: "https://a.example"},
		AssignedTo: models.Ptr("bob"),
	}.apply(&l)

	assert.Equal(t, "first\nsecond", l.Notes)
	assert.Equal(t, "555", l.Phone, "empty detail does not clear")
	assert.Equal(t, "https://a.example", l.Website)
	assert.True(t, l.HasDetails())
	assert.Equal(t, "bob", l.AssignedTo)

	Patch{Email: models.Ptr("a@b.co")}.apply(&l)
	require.NotNil(t, l.Email)
	Patch{Email: models.Ptr("")}.apply(&l)
	assert.Nil(t, l.Email)
}

func TestAdd(t *testing.T) {
	s, clk := newStore(t)
	l, err := s.Add(models.Lead{ID: "manual_1", Name: "Joe"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusNew, l.Status)
	assert.NotNil(t, l.CallHistory)
	assert.Equal(t, clk.Now().UnixMilli(), l.AddedAt)

	_, err = s.Add(models.Lead{ID: "manual_1"})
	assert.ErrorIs(t, err, ErrDuplicateLead)
	_, err = s.Add(models.Lead{})
	assert.ErrorIs(t, err, ErrMissingID)
}

func TestRemoveTombstoneSuppressesSnapshot(t *testing.T) {
	s, clk := newStore(t)
	s.ApplyRemoteSnapshot([]models.Lead{markedLead("x", 10), markedLead("y", 10)}, nil)

	_, ok := s.Remove("x")
	require.True(t, ok)
	assert.True(t, s.IsTombstoned("x"))

	// a stale snapshot still carrying x arrives inside the grace window
	clk.Advance(4 * time.Second)
	s.ApplyRemoteSnapshot([]models.Lead{markedLead("x", 10), markedLead("y", 10)}, nil)
	assert.Equal(t, []string{"y"}, ids(s.All()))

	// after the window the id is accepted again
	clk.Advance(2 * time.Second)
	assert.False(t, s.IsTombstoned("x"))
	s.ApplyRemoteSnapshot([]models.Lead{markedLead("x", 10), markedLead("y", 10)}, nil)
	assert.ElementsMatch(t, []string{"x", "y"}, ids(s.All()))
}

func TestTombstoneRefreshAndClear(t *testing.T) {
	s, clk := newStore(t)
	s.Remove("x")
	clk.Advance(4 * time.Second)
	s.Tombstone("x")
	clk.Advance(4 * time.Second)
	assert.True(t, s.IsTombstoned("x"))

	s.ClearTombstone("x")
	assert.False(t, s.IsTombstoned("x"))
}

func TestRemoveIsIdempotent(t *testing.T) {
	s, _ := newStore(t)
	s.ApplySearchResults([]models.Lead{lead("a"), lead("b")})

	_, ok := s.Remove("a")
	assert.True(t, ok)
	before := ids(s.All())
	_, ok = s.Remove("a")
	assert.False(t, ok)
	assert.Equal(t, before, ids(s.All()))
}

func TestSnapshotFiltersAndUnions(t *testing.T) {
	s, _ := newStore(t)
	s.ApplySearchResults([]models.Lead{lead("eph1"), lead("eph2")})

	stale := lead("old-hit") // non-interacted record written by an older client
	s.ApplyRemoteSnapshot([]models.Lead{markedLead("r1", 5), stale, markedLead("eph2", 5)}, nil)

	got := ids(s.All())
	assert.ElementsMatch(t, []string{"r1", "eph2", "eph1"}, got)
	l, _ := s.Get("eph2")
	assert.True(t, l.IsLead, "remote interacted copy replaces the ephemeral one")
	assert.True(t, s.RemoteLoaded())
}

func TestSnapshotDropsInteractedMissingRemotely(t *testing.T) {
	s, _ := newStore(t)
	s.ApplyRemoteSnapshot([]models.Lead{markedLead("a", 5), markedLead("b", 5)}, nil)
	s.ApplyRemoteSnapshot([]models.Lead{markedLead("a", 5)}, nil)
	assert.Equal(t, []string{"a"}, ids(s.All()))
}

func TestSnapshotConflictRule(t *testing.T) {
	s, clk := newStore(t)
	s.ApplyRemoteSnapshot([]models.Lead{markedLead("a", 100)}, nil)

	clk.Advance(time.Second)
	c, err := s.Mutate("a", Patch{AppendNote: "local edit"})
	require.NoError(t, err)

	// local is newer and unpushed: keep it
	s.ApplyRemoteSnapshot([]models.Lead{markedLead("a", 100)}, nil)
	l, _ := s.Get("a")
	assert.Equal(t, "local edit", l.Notes)

	// handed out for upload but not yet echoed back: still kept
	s.SyncCandidates() // suppressed
	require.Len(t, s.SyncCandidates(), 1)
	s.ApplyRemoteSnapshot([]models.Lead{markedLead("a", 100)}, nil)
	l, _ = s.Get("a")
	assert.Equal(t, "local edit", l.Notes)
	assert.Equal(t, c.After.LastUpdated, l.LastUpdated)

	// the echo of the upload acknowledges it
	echo := c.After
	s.ApplyRemoteSnapshot([]models.Lead{echo}, nil)
	l, _ = s.Get("a")
	assert.Equal(t, "local edit", l.Notes)

	// pushed and acknowledged: a newer remote edit wins
	remote := markedLead("a", c.After.LastUpdated+50)
	remote.Notes = "remote edit"
	s.ApplyRemoteSnapshot([]models.Lead{remote}, nil)
	l, _ = s.Get("a")
	assert.Equal(t, "remote edit", l.Notes)
}

func TestSnapshotAfterAckAcceptsOlderRemote(t *testing.T) {
	s, clk := newStore(t)
	s.ApplyRemoteSnapshot([]models.Lead{markedLead("a", 100)}, nil)
	clk.Advance(time.Second)
	c, err := s.Mutate("a", Patch{AppendNote: "local edit"})
	require.NoError(t, err)
	s.ApplyRemoteSnapshot([]models.Lead{c.After}, nil)

	// a teammate restored an older version after ours landed
	s.ApplyRemoteSnapshot([]models.Lead{markedLead("a", 100)}, nil)
	l, _ := s.Get("a")
	assert.Empty(t, l.Notes)
}

func TestSnapshotKeepsUnackedUnmarking(t *testing.T) {
	s, clk := newStore(t)
	s.ApplyRemoteSnapshot([]models.Lead{markedLead("a", 100)}, nil)
	clk.Advance(time.Second)
	_, err := s.Mutate("a", Patch{ToggleLead: true})
	require.NoError(t, err)

	s.ApplyRemoteSnapshot([]models.Lead{markedLead("a", 100)}, nil)
	l, _ := s.Get("a")
	assert.False(t, l.IsLead)
}

func TestExpiredTombstonesArePurged(t *testing.T) {
	s, clk := newStore(t)
	s.Remove("x")
	s.Remove("y")
	assert.Equal(t, 2, s.Tombstones())

	clk.Advance(6 * time.Second)
	s.ApplyRemoteSnapshot(nil, nil)
	assert.Equal(t, 0, s.Tombstones())

	s.Remove("z")
	clk.Advance(6 * time.Second)
	s.Remove("w")
	assert.Equal(t, 1, s.Tombstones())
}

func TestSnapshotKeepsUnpushedNewLead(t *testing.T) {
	s, _ := newStore(t)
	s.ApplyRemoteSnapshot(nil, nil)
	_, err := s.Add(models.Lead{ID: "manual_1", Name: "Joe", IsLead: true})
	require.NoError(t, err)

	s.ApplyRemoteSnapshot(nil, nil)
	_, ok := s.Get("manual_1")
	assert.True(t, ok)
}

func TestSyncCandidatesGating(t *testing.T) {
	s, _ := newStore(t)
	s.ApplySearchResults([]models.Lead{lead("a"), lead("b")})
	_, err := s.Mutate("a", Patch{ToggleLead: true})
	require.NoError(t, err)

	assert.Empty(t, s.SyncCandidates(), "nothing before the first snapshot")

	s.ApplyRemoteSnapshot(nil, nil)
	assert.Empty(t, s.SyncCandidates(), "first call after a snapshot is skipped")

	got := s.SyncCandidates()
	assert.Equal(t, []string{"a"}, ids(got))
	assert.Empty(t, s.SyncCandidates(), "unchanged leads are not re-emitted")

	_, err = s.Mutate("a", Patch{AppendNote: "again"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids(s.SyncCandidates()))
}

func TestSyncCandidatesSnapshotLoopPrevention(t *testing.T) {
	s, _ := newStore(t)
	s.ApplyRemoteSnapshot([]models.Lead{markedLead("a", 10)}, nil)
	s.SyncCandidates()
	assert.Empty(t, s.SyncCandidates(), "records received remotely are not echoed back")
}

func TestSyncCandidatesPushesUnmarking(t *testing.T) {
	s, _ := newStore(t)
	s.ApplyRemoteSnapshot([]models.Lead{markedLead("a", 10)}, nil)
	s.SyncCandidates()

	c, err := s.Mutate("a", Patch{ToggleLead: true})
	require.NoError(t, err)
	require.False(t, c.After.Interacted())

	got := s.SyncCandidates()
	require.Len(t, got, 1)
	assert.False(t, got[0].IsLead)
}

func TestRestoreCountsAsSynced(t *testing.T) {
	s, _ := newStore(t)
	assert.Equal(t, 2, s.Restore([]models.Lead{markedLead("a", 1), markedLead("b", 1), markedLead("a", 2), {}}))

	s.ApplyRemoteSnapshot([]models.Lead{markedLead("a", 1), markedLead("b", 1)}, nil)
	s.SyncCandidates()
	assert.Empty(t, s.SyncCandidates())
}

func TestCopiesDoNotAlias(t *testing.T) {
	s, _ := newStore(t)
	in := lead("a")
	in.CallHistory = []models.CallLog{{User: "amy"}}
	s.ApplySearchResults([]models.Lead{in})
	in.CallHistory[0].User = "mutated"

	out, _ := s.Get("a")
	assert.Equal(t, "amy", out.CallHistory[0].User)
	out.CallHistory[0].User = "again"
	again, _ := s.Get("a")
	assert.Equal(t, "amy", again.CallHistory[0].User)
}

func TestConcurrentAccess(t *testing.T) {
	s, _ := newStore(t)
	s.ApplySearchResults([]models.Lead{lead("a")})
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Mutate("a", Patch{AppendNote: "n"})
			_ = s.All()
			s.ApplyRemoteSnapshot([]models.Lead{markedLead("r", 1)}, nil)
			_ = s.SyncCandidates()
		}()
	}
	wg.Wait()
	_, ok := s.Get("a")
	assert.True(t, ok)
}
