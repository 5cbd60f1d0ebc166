package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"github.com/mahin/bachelor-expenses-go/internal/domain"
	"github.com/mahin/bachelor-expenses-go/internal/infra/observability"
	"github.com/mahin/bachelor-expenses-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var coachTracer = otel.Tracer("service/coach")

// AnalysisRecord is a cached analysis tagged with the fingerprint of the
// month data it was computed from. A record whose fingerprint no longer
// matches the live data is treated as absent.
type AnalysisRecord struct {
	Fingerprint string
	Analysis    *domain.MonthlyAnalysis
	GeneratedAt time.Time
}

// CoachService orchestrates the advice generator: it assembles the
// profile/month context, dedupes identical requests through a
// fingerprinted cache, and debounces the mutation-triggered refresh so a
// burst of ledger writes produces one upstream call.
type CoachService struct {
	ledger  *LedgerService
	advisor port.AdviceGenerator
	cache   port.Cache[*AnalysisRecord]
	metrics *observability.Metrics
	logger  *zap.Logger

	debounce time.Duration
	now      func() time.Time

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewCoachService creates the coaching service.
func NewCoachService(
	ledger *LedgerService,
	advisor port.AdviceGenerator,
	cache port.Cache[*AnalysisRecord],
	metrics *observability.Metrics,
	logger *zap.Logger,
	debounce time.Duration,
) *CoachService {
	return &CoachService{
		ledger:   ledger,
		advisor:  advisor,
		cache:    cache,
		metrics:  metrics,
		logger:   logger,
		debounce: debounce,
		now:      time.Now,
		timers:   make(map[string]*time.Timer),
	}
}

// ============================================================
// Monthly analysis
// ============================================================

// RequestMonthlyAnalysis produces the coaching analysis for the current
// month. Identical month data returns the cached result without an
// upstream call. Every upstream failure collapses into
// ErrAdviceUnavailable; the ledger itself is never affected.
func (s *CoachService) RequestMonthlyAnalysis(ctx context.Context, accountID string, today time.Time) (*domain.MonthlyAnalysis, error) {
	ctx, span := coachTracer.Start(ctx, "CoachService.RequestMonthlyAnalysis")
	defer span.End()

	profile, current, previous, err := s.loadContext(ctx, accountID, today)
	if err != nil {
		return nil, err
	}

	fp := fingerprint(current)
	if rec, ok := s.cache.Get(accountID); ok && rec.Fingerprint == fp {
		s.metrics.IncrCacheHit("analysis")
		return rec.Analysis, nil
	}
	s.metrics.IncrCacheMiss("analysis")

	analysis, err := s.advisor.MonthlyAnalysis(ctx, &domain.AnalysisRequest{
		Profile:       profile,
		CurrentMonth:  current,
		PreviousMonth: previous,
	})
	if err != nil {
		s.metrics.IncrAdviceRequest("error")
		s.logger.Warn("monthly analysis failed",
			zap.String("account_id", accountID),
			zap.String("month_id", current.ID),
			zap.Error(err),
		)
		return nil, &domain.ErrAdviceUnavailable{Err: err}
	}
	s.metrics.IncrAdviceRequest("success")

	// The ledger may have moved on while the call was in flight. A stale
	// result is still returned to this caller but never cached, so the
	// next read reflects the newer data.
	if liveFP, err := s.liveFingerprint(ctx, accountID, current.ID); err == nil && liveFP == fp {
		s.cache.Set(accountID, &AnalysisRecord{
			Fingerprint: fp,
			Analysis:    analysis,
			GeneratedAt: s.now(),
		})
	} else {
		s.logger.Debug("analysis superseded by newer ledger data, not cached",
			zap.String("account_id", accountID),
			zap.String("month_id", current.ID),
		)
	}

	return analysis, nil
}

// CachedAnalysis returns the last analysis computed for the account's
// current month, if its fingerprint still matches the live data.
func (s *CoachService) CachedAnalysis(ctx context.Context, accountID string, today time.Time) (*domain.MonthlyAnalysis, bool) {
	rec, ok := s.cache.Get(accountID)
	if !ok {
		return nil, false
	}
	liveFP, err := s.liveFingerprint(ctx, accountID, domain.MonthID(today))
	if err != nil || liveFP != rec.Fingerprint {
		return nil, false
	}
	return rec.Analysis, true
}

// NotifyMutation schedules a background analysis refresh after the
// debounce window. Rapid successive mutations reset the window so only
// the final state is analyzed.
func (s *CoachService) NotifyMutation(accountID string, today time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if timer, ok := s.timers[accountID]; ok {
		timer.Stop()
	}
	s.timers[accountID] = time.AfterFunc(s.debounce, func() {
		s.mu.Lock()
		delete(s.timers, accountID)
		s.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := s.RequestMonthlyAnalysis(ctx, accountID, today); err != nil {
			s.logger.Debug("background analysis refresh failed",
				zap.String("account_id", accountID),
				zap.Error(err),
			)
		}
	})
}

// Close cancels any pending debounced refreshes. Called on shutdown.
func (s *CoachService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
}

// ============================================================
// Savings plan & gifts
// ============================================================

// RequestSavingsPlan asks for a realism assessment of a savings goal
// against the current month.
func (s *CoachService) RequestSavingsPlan(ctx context.Context, accountID string, today time.Time, goal domain.SavingsGoal) (*domain.SavingsPlan, error) {
	ctx, span := coachTracer.Start(ctx, "CoachService.RequestSavingsPlan")
	defer span.End()

	profile, current, _, err := s.loadContext(ctx, accountID, today)
	if err != nil {
		return nil, err
	}

	plan, err := s.advisor.SavingsPlan(ctx, &domain.SavingsPlanRequest{
		Profile:      profile,
		CurrentMonth: current,
		Goal:         goal,
	})
	if err != nil {
		s.metrics.IncrAdviceRequest("error")
		s.logger.Warn("savings plan failed",
			zap.String("account_id", accountID),
			zap.Error(err),
		)
		return nil, &domain.ErrAdviceUnavailable{Err: err}
	}
	s.metrics.IncrAdviceRequest("success")
	return plan, nil
}

// RequestGiftSuggestions asks for gift ideas within a budget. The
// profile is attached for tone; its absence is not an error.
func (s *CoachService) RequestGiftSuggestions(ctx context.Context, accountID string, req *domain.GiftRequest) ([]domain.GiftSuggestion, error) {
	ctx, span := coachTracer.Start(ctx, "CoachService.RequestGiftSuggestions")
	defer span.End()

	profile, err := s.ledger.Profile(ctx, accountID)
	if err != nil {
		return nil, err
	}
	req.Profile = profile

	gifts, err := s.advisor.GiftSuggestions(ctx, req)
	if err != nil {
		s.metrics.IncrAdviceRequest("error")
		s.logger.Warn("gift suggestions failed",
			zap.String("account_id", accountID),
			zap.Error(err),
		)
		return nil, &domain.ErrAdviceUnavailable{Err: err}
	}
	s.metrics.IncrAdviceRequest("success")
	return gifts, nil
}

// Snapshot returns the coaching usage metrics.
func (s *CoachService) Snapshot() *domain.CoachMetrics {
	return s.metrics.GetCoachSnapshot()
}

// ============================================================
// Internals
// ============================================================

// loadContext fetches the profile and month history concurrently and
// resolves today's month plus its predecessor.
func (s *CoachService) loadContext(ctx context.Context, accountID string, today time.Time) (*domain.Profile, *domain.Month, *domain.Month, error) {
	var (
		profile *domain.Profile
		history []domain.Month
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := s.ledger.Profile(gctx, accountID)
		if err != nil {
			return err
		}
		profile = p
		return nil
	})
	g.Go(func() error {
		h, err := s.ledger.History(gctx, accountID)
		if err != nil {
			return err
		}
		history = h
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, nil, err
	}

	monthID := domain.MonthID(today)
	for i := range history {
		if history[i].ID == monthID {
			current := history[i]
			var previous *domain.Month
			if i > 0 {
				prev := history[i-1]
				previous = &prev
			}
			return profile, &current, previous, nil
		}
	}
	return nil, nil, nil, &domain.ErrNotFound{Resource: "month", ID: monthID}
}

func (s *CoachService) liveFingerprint(ctx context.Context, accountID, monthID string) (string, error) {
	m, err := s.ledger.Month(ctx, accountID, monthID)
	if err != nil {
		return "", err
	}
	return fingerprint(m), nil
}

// fingerprint hashes the month's JSON form; any entry, goal or budget
// change yields a new value.
func fingerprint(m *domain.Month) string {
	raw, err := json.Marshal(m)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
