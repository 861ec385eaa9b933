package matching

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jobradar/jobradar/internal/logger"
	"github.com/jobradar/jobradar/internal/model"
	"github.com/jobradar/jobradar/internal/scoring"

	"go.uber.org/zap"
)

// Run modes recorded in run statistics.
const (
	ModeNewPostings = "new-postings"
	ModeRecompute   = "recompute"
)

const (
	defaultPublishThreshold = 70
	defaultNotifyThreshold  = 85
	defaultWorkers          = 8
	defaultRunTimeout       = 10 * time.Minute
	defaultRecomputeWindow  = 30 * 24 * time.Hour
	defaultRecomputeLimit   = 500
)

// ProfileSource is the read-only view of users and their search profiles.
type ProfileSource interface {
	ActiveUsers(ctx context.Context) ([]*model.User, error)
	UserByID(ctx context.Context, userID string) (*model.User, error)
	ActiveProfiles(ctx context.Context, userID string) ([]*model.SearchProfile, error)
}

// PostingSource reads candidate postings.
type PostingSource interface {
	ByIDs(ctx context.Context, ids []string) ([]*model.Posting, error)
	RecentWindow(ctx context.Context, since time.Time, limit int) ([]*model.Posting, error)
}

// MatchLedger is the durable, deduplicated store of match records. Exists is
// advisory (it saves scorer calls); CreateBatch is the authoritative
// uniqueness guard.
type MatchLedger interface {
	Exists(ctx context.Context, userID, profileID, postingID string) (bool, error)
	CreateBatch(ctx context.Context, records []*model.MatchRecord) ([]*model.MatchRecord, error)
}

// Notifier fires tiered alerts for freshly created match records. Its
// failures never propagate back into the run.
type Notifier interface {
	NotifyIfThreshold(ctx context.Context, user *model.User, posting *model.Posting, record *model.MatchRecord)
}

// RunRecorder persists aggregate run statistics. Optional.
type RunRecorder interface {
	SaveRun(ctx context.Context, stats *model.RunStats) error
}

// Config tunes the orchestrator.
type Config struct {
	// PublishThreshold is the minimum score required to persist a match.
	PublishThreshold int
	// NotifyThreshold is the minimum score required to fire notifications.
	// Must not be lower than PublishThreshold.
	NotifyThreshold int
	// Workers bounds the number of (user, profile) pairs evaluated in
	// parallel. Parallelism deepens the scorer queue, it does not raise the
	// provider call rate.
	Workers int
	// RunTimeout bounds one run's wall-clock time. Ledger writes committed
	// before the deadline remain valid.
	RunTimeout time.Duration
	// RecomputeWindow and RecomputeLimit bound the candidate set of
	// recompute mode to recent postings.
	RecomputeWindow time.Duration
	RecomputeLimit  int
}

func (c Config) withDefaults() Config {
	if c.PublishThreshold <= 0 {
		c.PublishThreshold = defaultPublishThreshold
	}
	if c.NotifyThreshold <= 0 {
		c.NotifyThreshold = defaultNotifyThreshold
	}
	if c.Workers <= 0 {
		c.Workers = defaultWorkers
	}
	if c.RunTimeout <= 0 {
		c.RunTimeout = defaultRunTimeout
	}
	if c.RecomputeWindow <= 0 {
		c.RecomputeWindow = defaultRecomputeWindow
	}
	if c.RecomputeLimit <= 0 {
		c.RecomputeLimit = defaultRecomputeLimit
	}
	return c
}

// Deps are the pipeline's collaborators, injected at construction.
type Deps struct {
	Profiles ProfileSource
	Postings PostingSource
	Ledger   MatchLedger
	Scorer   scoring.Scorer
	Notifier Notifier
	// Runs may be nil; run statistics are then only logged.
	Runs   RunRecorder
	Logger *zap.Logger
}

// Pipeline drives candidate filtering, scoring, ledger writes and
// notification dispatch. Stateless between runs; all state lives in the
// stores.
type Pipeline struct {
	cfg  Config
	deps Deps
	log  *zap.Logger
}

// New validates the dependencies and returns a ready pipeline.
func New(cfg Config, deps Deps) (*Pipeline, error) {
	if deps.Profiles == nil {
		return nil, errors.New("profile source is required")
	}
	if deps.Postings == nil {
		return nil, errors.New("posting source is required")
	}
	if deps.Ledger == nil {
		return nil, errors.New("match ledger is required")
	}
	if deps.Scorer == nil {
		return nil, errors.New("scorer is required")
	}
	if deps.Notifier == nil {
		return nil, errors.New("notifier is required")
	}

	cfg = cfg.withDefaults()
	if cfg.NotifyThreshold < cfg.PublishThreshold {
		return nil, fmt.Errorf("notify threshold %d is below publish threshold %d", cfg.NotifyThreshold, cfg.PublishThreshold)
	}

	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Pipeline{cfg: cfg, deps: deps, log: log}, nil
}

// workUnit is one (user, profile) pair evaluated against a posting set.
// Units are independent; they may complete in any order.
type workUnit struct {
	user     *model.User
	profile  *model.SearchProfile
	postings []*model.Posting
}

// MatchNewPostings evaluates a batch of freshly ingested postings against
// every active profile. Invoked by the ingestion trigger.
func (p *Pipeline) MatchNewPostings(ctx context.Context, postingIDs []string) (*model.RunStats, error) {
	acc := newRunAccumulator(ModeNewPostings)

	if len(postingIDs) == 0 {
		p.log.Info("no postings in batch, nothing to match")
		return acc.finish(), nil
	}

	postings, err := p.deps.Postings.ByIDs(ctx, postingIDs)
	if err != nil {
		return nil, fmt.Errorf("loading postings: %w", err)
	}

	if len(postings) < len(postingIDs) {
		p.log.Debug("some postings from the batch are gone",
			zap.Int("requested", len(postingIDs)),
			zap.Int("found", len(postings)),
		)
	}

	if len(postings) == 0 {
		p.log.Info("postings batch resolved to nothing, nothing to match")
		return p.finishRun(ctx, acc), nil
	}

	users, err := p.deps.Profiles.ActiveUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading active users: %w", err)
	}
	acc.setUsers(len(users))

	units := p.collectUnits(ctx, acc, users, postings, "")

	return p.run(ctx, acc, units)
}

// RecomputeProfile re-evaluates a bounded recent window of postings for one
// user after a profile edit. When profileID is empty every active profile of
// the user is recomputed.
func (p *Pipeline) RecomputeProfile(ctx context.Context, userID, profileID string) (*model.RunStats, error) {
	acc := newRunAccumulator(ModeRecompute)

	if userID == "" {
		return nil, errors.New("user id is required for recompute")
	}

	user, err := p.deps.Profiles.UserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading user %s: %w", userID, err)
	}

	if !user.Active {
		p.log.Info("skipping recompute for inactive user", zap.String(logger.FieldUser, userID))
		return acc.finish(), nil
	}
	acc.setUsers(1)

	since := time.Now().Add(-p.cfg.RecomputeWindow)
	postings, err := p.deps.Postings.RecentWindow(ctx, since, p.cfg.RecomputeLimit)
	if err != nil {
		return nil, fmt.Errorf("loading recent postings: %w", err)
	}

	if len(postings) == 0 {
		p.log.Info("no postings in the recompute window", zap.String(logger.FieldUser, userID))
		return p.finishRun(ctx, acc), nil
	}

	units := p.collectUnits(ctx, acc, []*model.User{user}, postings, profileID)

	if profileID != "" && len(units) == 0 {
		p.log.Info("profile not active, nothing to recompute",
			zap.String(logger.FieldUser, userID),
			zap.String(logger.FieldProfile, profileID),
		)
	}

	return p.run(ctx, acc, units)
}

// collectUnits expands users into (user, profile) work units, falling back to
// the implicit legacy profile for users without explicit ones. A non-empty
// onlyProfile restricts the expansion to that profile id.
func (p *Pipeline) collectUnits(ctx context.Context, acc *runAccumulator, users []*model.User, postings []*model.Posting, onlyProfile string) []*workUnit {
	units := make([]*workUnit, 0, len(users))

	for _, user := range users {
		profiles, err := p.deps.Profiles.ActiveProfiles(ctx, user.ID)
		if err != nil {
			acc.addError()
			p.log.Warn("loading profiles failed, skipping user",
				zap.String(logger.FieldUser, user.ID),
				zap.Error(err),
			)
			continue
		}

		if len(profiles) == 0 {
			if len(user.LegacyKeywords) == 0 {
				p.log.Debug("user has no profiles and no legacy preferences",
					zap.String(logger.FieldUser, user.ID),
				)
				continue
			}

			p.log.Info("falling back to implicit legacy profile",
				zap.String(logger.FieldUser, user.ID),
				zap.Int("legacy_keywords", len(user.LegacyKeywords)),
			)
			profiles = []*model.SearchProfile{model.ImplicitProfile(user)}
		}

		for _, profile := range profiles {
			if onlyProfile != "" && profile.ID != onlyProfile {
				continue
			}
			units = append(units, &workUnit{user: user, profile: profile, postings: postings})
		}
	}

	acc.addProfiles(len(units))
	return units
}

// run drains the work units through a bounded worker pool and reports the
// aggregated statistics.
func (p *Pipeline) run(ctx context.Context, acc *runAccumulator, units []*workUnit) (*model.RunStats, error) {
	runCtx, cancel := context.WithTimeout(ctx, p.cfg.RunTimeout)
	defer cancel()

	guard := &fatalGuard{cancel: cancel}

	tasks := make(chan *workUnit)
	var wg sync.WaitGroup

	for i := 0; i < p.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for unit := range tasks {
				p.evaluateUnit(runCtx, unit, acc, guard)
			}
		}()
	}

dispatch:
	for _, unit := range units {
		select {
		case tasks <- unit:
		case <-runCtx.Done():
			break dispatch
		}
	}
	close(tasks)
	wg.Wait()

	if err := guard.failure(); err != nil {
		stats := p.finishRun(ctx, acc)
		p.log.Error("run aborted", zap.String("mode", stats.Mode), zap.Error(err))
		return stats, err
	}

	if runCtx.Err() != nil && ctx.Err() == nil {
		// The run ceiling expired; committed writes stay valid.
		p.log.Warn("run stopped at its time ceiling", zap.Duration("ceiling", p.cfg.RunTimeout))
	}

	return p.finishRun(ctx, acc), nil
}

// evaluateUnit walks one (user, profile) pair over the posting set. The
// sequence per posting is strictly filter, scorer, ledger, notifier.
func (p *Pipeline) evaluateUnit(ctx context.Context, unit *workUnit, acc *runAccumulator, guard *fatalGuard) {
	pending := make([]*model.MatchRecord, 0)
	byPosting := make(map[string]*model.Posting, len(unit.postings))

	publishAt := p.cfg.PublishThreshold
	if unit.profile.MinScore > publishAt {
		publishAt = unit.profile.MinScore
	}

	for _, posting := range unit.postings {
		if ctx.Err() != nil {
			return
		}

		acc.addCandidate()
		log := logger.WithCandidateFields(p.log, unit.user.ID, unit.profile.ID, posting.ID)

		admitted, matched := Evaluate(unit.profile, posting)
		if !admitted {
			acc.addFiltered()
			log.Debug("candidate filtered out")
			continue
		}

		if AvoidsCompany(unit.profile, posting) {
			acc.addFiltered()
			log.Debug("candidate dropped by company avoid list", zap.String("company", posting.Company))
			continue
		}

		exists, err := p.deps.Ledger.Exists(ctx, unit.user.ID, unit.profile.ID, posting.ID)
		if err != nil {
			acc.addError()
			log.Warn("ledger existence check failed, skipping candidate", zap.Error(err))
			continue
		}
		if exists {
			acc.addDuplicates(1)
			log.Debug("match already in the ledger")
			continue
		}

		assessment, err := p.deps.Scorer.Score(ctx, unit.profile, posting)
		if err != nil {
			if errors.Is(err, scoring.ErrUnauthorized) {
				guard.abort(err)
				log.Error("scorer credentials rejected, aborting run", zap.Error(err))
				return
			}

			acc.addError()
			log.Warn("scoring failed, skipping candidate", zap.Error(err))
			continue
		}

		if assessment.Score < publishAt {
			acc.addBelowThreshold()
			log.Debug("score below publish threshold",
				zap.Int("score", assessment.Score),
				zap.Int("threshold", publishAt),
			)
			continue
		}

		byPosting[posting.ID] = posting
		pending = append(pending, &model.MatchRecord{
			UserID:          unit.user.ID,
			ProfileID:       unit.profile.ID,
			PostingID:       posting.ID,
			Score:           assessment.Score,
			Reasons:         assessment.Reasons,
			Weaknesses:      assessment.Weaknesses,
			Suggestions:     assessment.Suggestions,
			MatchedKeywords: matched,
			CreatedAt:       time.Now(),
		})
	}

	if len(pending) == 0 {
		return
	}

	created, err := p.deps.Ledger.CreateBatch(ctx, pending)
	if err != nil {
		acc.addError()
		p.log.Warn("ledger write failed",
			zap.String(logger.FieldUser, unit.user.ID),
			zap.Int("pending", len(pending)),
			zap.Int("created", len(created)),
			zap.Error(err),
		)
	} else {
		// Records rejected by the ledger's uniqueness guard are duplicates
		// the advisory existence check missed.
		acc.addDuplicates(len(pending) - len(created))
	}

	acc.addMatches(len(created))

	for _, record := range created {
		if record.Score >= p.cfg.NotifyThreshold {
			acc.addNotifyEligible()
		}
		p.deps.Notifier.NotifyIfThreshold(ctx, unit.user, byPosting[record.PostingID], record)
	}
}

// finishRun closes the accumulator, logs the summary and persists it when a
// run recorder is configured.
func (p *Pipeline) finishRun(ctx context.Context, acc *runAccumulator) *model.RunStats {
	stats := acc.finish()

	p.log.Info("run finished",
		zap.String("mode", stats.Mode),
		zap.Duration("took", stats.Duration()),
		zap.Int("users", stats.Users),
		zap.Int("profiles", stats.Profiles),
		zap.Int("candidates", stats.Candidates),
		zap.Int("filtered", stats.Filtered),
		zap.Int("duplicates", stats.Duplicates),
		zap.Int("below_threshold", stats.BelowThreshold),
		zap.Int("errors", stats.Errors),
		zap.Int("matches_created", stats.MatchesCreated),
		zap.Int("notify_eligible", stats.NotifyEligible),
	)

	if p.deps.Runs == nil {
		return stats
	}

	saveCtx := ctx
	if saveCtx.Err() != nil {
		// The run context may already be done; statistics are still worth
		// keeping.
		var cancel context.CancelFunc
		saveCtx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
	}

	if err := p.deps.Runs.SaveRun(saveCtx, stats); err != nil {
		p.log.Warn("saving run statistics failed", zap.Error(err))
	}

	return stats
}

// fatalGuard aborts the run once on the first fatal error; later candidate
// work observes the canceled context and unwinds.
type fatalGuard struct {
	mu     sync.Mutex
	err    error
	cancel context.CancelFunc
}

func (g *fatalGuard) abort(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return
	}
	g.err = err
	g.cancel()
}

func (g *fatalGuard) failure() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.err
}
