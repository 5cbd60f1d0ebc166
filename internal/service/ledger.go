// Package service — LedgerService owns the mapping from month-id to Month
// aggregate and every mutation of it. All state lives in the document
// store as four whole-object records per account.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mahin/bachelor-expenses-go/internal/domain"
	"github.com/mahin/bachelor-expenses-go/internal/infra/observability"
	"github.com/mahin/bachelor-expenses-go/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var ledgerTracer = otel.Tracer("service/ledger")

func profileKey(accountID string) string { return "profile:" + accountID }
func historyKey(accountID string) string { return "history:" + accountID }
func accountKey(accountID string) string { return "account:" + accountID }
func syncKey(accountID string) string    { return "lastsync:" + accountID }

// LedgerService exposes all ledger mutations and reads.
//
// Mutations are whole-document read-modify-write cycles, serialized by a
// single mutex so two concurrent HTTP requests cannot lose updates.
type LedgerService struct {
	store   port.DocumentStore
	metrics *observability.Metrics
	logger  *zap.Logger
	now     func() time.Time

	mu sync.Mutex
}

// NewLedgerService creates the ledger service.
func NewLedgerService(store port.DocumentStore, metrics *observability.Metrics, logger *zap.Logger) *LedgerService {
	return &LedgerService{
		store:   store,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// ============================================================
// Profile
// ============================================================

// Profile returns the account's profile, or nil when onboarding has not
// completed yet.
func (s *LedgerService) Profile(ctx context.Context, accountID string) (*domain.Profile, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.Profile")
	defer span.End()

	var p domain.Profile
	found, err := s.store.Load(ctx, profileKey(accountID), &p)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &p, nil
}

// SaveProfile replaces the profile wholesale.
func (s *LedgerService) SaveProfile(ctx context.Context, accountID string, p *domain.Profile) error {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.SaveProfile")
	defer span.End()

	if p.Name == "" {
		return &domain.ErrValidation{Field: "name", Message: "required"}
	}

	if err := s.store.Save(ctx, profileKey(accountID), p); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	s.metrics.IncrLedgerMutation("profile")
	return nil
}

// ============================================================
// Month history
// ============================================================

// History returns the full ordered month history, oldest first.
func (s *LedgerService) History(ctx context.Context, accountID string) ([]domain.Month, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.History")
	defer span.End()

	return s.loadHistory(ctx, accountID)
}

// Month returns one month by id.
func (s *LedgerService) Month(ctx context.Context, accountID, monthID string) (*domain.Month, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.Month")
	defer span.End()
	span.SetAttributes(attribute.String("month.id", monthID))

	history, err := s.loadHistory(ctx, accountID)
	if err != nil {
		return nil, err
	}
	for i := range history {
		if history[i].ID == monthID {
			m := history[i]
			return &m, nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "month", ID: monthID}
}

// PreviousMonth returns the history entry preceding monthID, or nil when
// monthID is the oldest (or unknown).
func (s *LedgerService) PreviousMonth(ctx context.Context, accountID, monthID string) (*domain.Month, error) {
	history, err := s.loadHistory(ctx, accountID)
	if err != nil {
		return nil, err
	}
	for i := range history {
		if history[i].ID == monthID && i > 0 {
			m := history[i-1]
			return &m, nil
		}
	}
	return nil, nil
}

// EnsureCurrentMonth computes the month-id for today and creates the
// Month lazily when absent. Idempotent: a second call in the same
// calendar month returns the existing record untouched.
func (s *LedgerService) EnsureCurrentMonth(ctx context.Context, accountID string, today time.Time) (*domain.Month, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.EnsureCurrentMonth")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	history, err := s.loadHistory(ctx, accountID)
	if err != nil {
		return nil, err
	}

	monthID := domain.MonthID(today)
	for i := range history {
		if history[i].ID == monthID {
			m := history[i]
			return &m, nil
		}
	}

	month := domain.Month{
		ID:         monthID,
		MonthName:  domain.MonthDisplayName(today),
		Incomes:    []domain.Income{},
		Expenses:   []domain.Expense{},
		BorrowLend: []domain.BorrowLendEntry{},
	}
	history = append(history, month)

	if err := s.store.Save(ctx, historyKey(accountID), history); err != nil {
		return nil, fmt.Errorf("save history: %w", err)
	}
	s.touchSync(ctx, accountID)
	s.metrics.IncrLedgerMutation("month_created")

	s.logger.Info("month created",
		zap.String("account_id", accountID),
		zap.String("month_id", monthID),
	)
	return &month, nil
}

// ============================================================
// Entry mutations
// ============================================================

// AppendExpense assigns a fresh id and appends the expense. An unknown
// monthID is a logged no-op (stale references must not crash the app);
// callers are expected to guarantee monthID validity and can detect the
// drop through the nil result.
func (s *LedgerService) AppendExpense(ctx context.Context, accountID, monthID string, e domain.Expense) (*domain.Expense, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.AppendExpense")
	defer span.End()
	span.SetAttributes(attribute.String("month.id", monthID))

	e.ID = uuid.New().String()
	if e.Date.IsZero() {
		e.Date = s.now()
	}

	found, err := s.mutateMonth(ctx, accountID, monthID, "expense", func(m *domain.Month) error {
		m.Expenses = append(m.Expenses, e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &e, nil
}

// AddIncome appends an income entry and increments the month's running
// total. Amount validation happens at the handler boundary; the store
// does not re-validate.
func (s *LedgerService) AddIncome(ctx context.Context, accountID, monthID string, in domain.Income) (*domain.Income, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.AddIncome")
	defer span.End()
	span.SetAttributes(attribute.String("month.id", monthID))

	in.ID = uuid.New().String()
	if in.Date.IsZero() {
		in.Date = s.now()
	}

	found, err := s.mutateMonth(ctx, accountID, monthID, "income", func(m *domain.Month) error {
		m.Incomes = append(m.Incomes, in)
		m.TotalIncome += in.Amount
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &in, nil
}

// AppendBorrowLend appends a borrow/lend entry with a generated id and
// resolved=false.
func (s *LedgerService) AppendBorrowLend(ctx context.Context, accountID, monthID string, e domain.BorrowLendEntry) (*domain.BorrowLendEntry, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.AppendBorrowLend")
	defer span.End()
	span.SetAttributes(attribute.String("month.id", monthID))

	e.ID = uuid.New().String()
	e.Resolved = false
	if e.Date.IsZero() {
		e.Date = s.now()
	}

	found, err := s.mutateMonth(ctx, accountID, monthID, "borrowlend", func(m *domain.Month) error {
		m.BorrowLend = append(m.BorrowLend, e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &e, nil
}

// ResolveBorrowLend marks an entry as settled so it drops out of the
// outstanding balances.
func (s *LedgerService) ResolveBorrowLend(ctx context.Context, accountID, monthID, entryID string) error {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.ResolveBorrowLend")
	defer span.End()
	span.SetAttributes(attribute.String("month.id", monthID))

	found, err := s.mutateMonth(ctx, accountID, monthID, "borrowlend_resolved", func(m *domain.Month) error {
		for i := range m.BorrowLend {
			if m.BorrowLend[i].ID == entryID {
				m.BorrowLend[i].Resolved = true
				return nil
			}
		}
		return &domain.ErrNotFound{Resource: "borrow/lend entry", ID: entryID}
	})
	if err != nil {
		return err
	}
	if !found {
		return &domain.ErrNotFound{Resource: "month", ID: monthID}
	}
	return nil
}

// SetSavingsGoal replaces any existing goal for the month.
func (s *LedgerService) SetSavingsGoal(ctx context.Context, accountID, monthID string, goal domain.SavingsGoal) error {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.SetSavingsGoal")
	defer span.End()
	span.SetAttributes(attribute.String("month.id", monthID))

	found, err := s.mutateMonth(ctx, accountID, monthID, "goal", func(m *domain.Month) error {
		m.SavingsGoal = &goal
		return nil
	})
	if err != nil {
		return err
	}
	if !found {
		return &domain.ErrNotFound{Resource: "month", ID: monthID}
	}
	return nil
}

// SetTargetBudget sets the month's cached target budget figure.
func (s *LedgerService) SetTargetBudget(ctx context.Context, accountID, monthID string, amount float64) error {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.SetTargetBudget")
	defer span.End()
	span.SetAttributes(attribute.String("month.id", monthID))

	found, err := s.mutateMonth(ctx, accountID, monthID, "budget", func(m *domain.Month) error {
		m.TargetBudget = amount
		return nil
	})
	if err != nil {
		return err
	}
	if !found {
		return &domain.ErrNotFound{Resource: "month", ID: monthID}
	}
	return nil
}

// ============================================================
// Sync timestamp & teardown
// ============================================================

// LastSync returns the local-write freshness timestamp, if any.
func (s *LedgerService) LastSync(ctx context.Context, accountID string) (time.Time, bool, error) {
	var stamp string
	found, err := s.store.Load(ctx, syncKey(accountID), &stamp)
	if err != nil || !found {
		return time.Time{}, false, err
	}
	t, err := time.Parse(time.RFC3339, stamp)
	if err != nil {
		return time.Time{}, false, nil
	}
	return t, true, nil
}

// ClearAll erases the account, profile, month history and sync records.
// Deletes run sequentially with no rollback; every key is attempted even
// if an earlier delete fails.
func (s *LedgerService) ClearAll(ctx context.Context, accountID string) error {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.ClearAll")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for _, key := range []string{
		accountKey(accountID),
		profileKey(accountID),
		historyKey(accountID),
		syncKey(accountID),
	} {
		if err := s.store.Delete(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("clear all: %w", err)
	}

	s.logger.Info("account data cleared", zap.String("account_id", accountID))
	return nil
}

// ============================================================
// Internals
// ============================================================

func (s *LedgerService) loadHistory(ctx context.Context, accountID string) ([]domain.Month, error) {
	var history []domain.Month
	if _, err := s.store.Load(ctx, historyKey(accountID), &history); err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return history, nil
}

// mutateMonth runs fn against the month inside a locked read-modify-write
// of the whole history document. The boolean is false when monthID does
// not resolve to a known month.
func (s *LedgerService) mutateMonth(ctx context.Context, accountID, monthID, kind string, fn func(*domain.Month) error) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history, err := s.loadHistory(ctx, accountID)
	if err != nil {
		return false, err
	}

	idx := -1
	for i := range history {
		if history[i].ID == monthID {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.logger.Warn("mutation on unknown month dropped",
			zap.String("account_id", accountID),
			zap.String("month_id", monthID),
			zap.String("kind", kind),
		)
		return false, nil
	}

	if err := fn(&history[idx]); err != nil {
		return true, err
	}

	if err := s.store.Save(ctx, historyKey(accountID), history); err != nil {
		return true, fmt.Errorf("save history: %w", err)
	}
	s.touchSync(ctx, accountID)
	s.metrics.IncrLedgerMutation(kind)
	return true, nil
}

// touchSync records the local-write timestamp read back by clients as a
// freshness indicator. Failures are logged, not fatal.
func (s *LedgerService) touchSync(ctx context.Context, accountID string) {
	stamp := s.now().UTC().Format(time.RFC3339)
	if err := s.store.Save(ctx, syncKey(accountID), stamp); err != nil {
		s.logger.Warn("failed to update sync timestamp",
			zap.String("account_id", accountID),
			zap.Error(err),
		)
	}
}
