package matching

import (
	"sync"
	"time"

	"github.com/jobradar/jobradar/internal/model"
)

// runAccumulator aggregates per-candidate outcomes across workers. Candidate
// failures never abort a run; they only show up here and in the logs.
type runAccumulator struct {
	mu    sync.Mutex
	stats model.RunStats
}

func newRunAccumulator(mode string) *runAccumulator {
	return &runAccumulator{
		stats: model.RunStats{
			Mode:      mode,
			StartedAt: time.Now(),
		},
	}
}

func (a *runAccumulator) setUsers(n int) {
	a.mu.Lock()
	a.stats.Users = n
	a.mu.Unlock()
}

func (a *runAccumulator) addProfiles(n int) {
	a.mu.Lock()
	a.stats.Profiles += n
	a.mu.Unlock()
}

func (a *runAccumulator) addCandidate() {
	a.mu.Lock()
	a.stats.Candidates++
	a.mu.Unlock()
}

func (a *runAccumulator) addFiltered() {
	a.mu.Lock()
	a.stats.Filtered++
	a.mu.Unlock()
}

func (a *runAccumulator) addDuplicates(n int) {
	a.mu.Lock()
	a.stats.Duplicates += n
	a.mu.Unlock()
}

func (a *runAccumulator) addBelowThreshold() {
	a.mu.Lock()
	a.stats.BelowThreshold++
	a.mu.Unlock()
}

func (a *runAccumulator) addError() {
	a.mu.Lock()
	a.stats.Errors++
	a.mu.Unlock()
}

func (a *runAccumulator) addMatches(n int) {
	a.mu.Lock()
	a.stats.MatchesCreated += n
	a.mu.Unlock()
}

func (a *runAccumulator) addNotifyEligible() {
	a.mu.Lock()
	a.stats.NotifyEligible++
	a.mu.Unlock()
}

// finish stamps the end time and returns a copy safe to hand out.
func (a *runAccumulator) finish() *model.RunStats {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stats.FinishedAt = time.Now()
	snapshot := a.stats
	return &snapshot
}
