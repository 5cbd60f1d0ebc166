package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/mahin/bachelor-expenses-go/internal/domain"
	"github.com/mahin/bachelor-expenses-go/internal/infra/observability"

	"go.uber.org/zap"
)

// memStore is an in-memory DocumentStore that round-trips through JSON the
// same way the sqlite store does.
type memStore struct {
	docs    map[string][]byte
	failOn  map[string]error
	deletes []string
}

func newMemStore() *memStore {
	return &memStore{docs: map[string][]byte{}, failOn: map[string]error{}}
}

func (s *memStore) Load(_ context.Context, key string, out any) (bool, error) {
	if err := s.failOn[key]; err != nil {
		return false, err
	}
	raw, ok := s.docs[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, out)
}

func (s *memStore) Save(_ context.Context, key string, doc any) error {
	if err := s.failOn[key]; err != nil {
		return err
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	s.docs[key] = raw
	return nil
}

func (s *memStore) Delete(_ context.Context, key string) error {
	if err := s.failOn[key]; err != nil {
		return err
	}
	s.deletes = append(s.deletes, key)
	delete(s.docs, key)
	return nil
}

func newTestLedger(store *memStore) *LedgerService {
	svc := NewLedgerService(store, observability.NewMetrics(), zap.NewNop())
	svc.now = func() time.Time {
		return time.Date(2026, time.June, 15, 12, 0, 0, 0, time.UTC)
	}
	return svc
}

const testAccount = "acct-1"

func TestEnsureCurrentMonth_CreatesOnce(t *testing.T) {
	store := newMemStore()
	svc := newTestLedger(store)
	today := time.Date(2026, time.June, 15, 0, 0, 0, 0, time.UTC)

	m1, err := svc.EnsureCurrentMonth(context.Background(), testAccount, today)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m1.ID != "2026-06" {
		t.Errorf("expected id 2026-06, got %s", m1.ID)
	}
	if m1.MonthName != "June 2026" {
		t.Errorf("expected name June 2026, got %s", m1.MonthName)
	}

	// Second call in the same month must not create a duplicate.
	if _, err := svc.EnsureCurrentMonth(context.Background(), testAccount, today.AddDate(0, 0, 5)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	history, err := svc.History(context.Background(), testAccount)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected 1 month, got %d", len(history))
	}
}

func TestEnsureCurrentMonth_PreservesOlderMonths(t *testing.T) {
	store := newMemStore()
	svc := newTestLedger(store)

	may := time.Date(2026, time.May, 3, 0, 0, 0, 0, time.UTC)
	june := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)

	if _, err := svc.EnsureCurrentMonth(context.Background(), testAccount, may); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.EnsureCurrentMonth(context.Background(), testAccount, june); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	history, _ := svc.History(context.Background(), testAccount)
	if len(history) != 2 {
		t.Fatalf("expected 2 months, got %d", len(history))
	}
	if history[0].ID != "2026-05" || history[1].ID != "2026-06" {
		t.Errorf("expected ordered history [2026-05 2026-06], got [%s %s]", history[0].ID, history[1].ID)
	}
}

func TestAppendExpense_AssignsIDAndPersists(t *testing.T) {
	store := newMemStore()
	svc := newTestLedger(store)
	today := time.Date(2026, time.June, 15, 0, 0, 0, 0, time.UTC)
	month, _ := svc.EnsureCurrentMonth(context.Background(), testAccount, today)

	e, err := svc.AppendExpense(context.Background(), testAccount, month.ID, domain.Expense{
		Amount:        350,
		Category:      "Food",
		Type:          domain.ExpenseNeed,
		PaymentMethod: domain.PayBkash,
		Mood:          domain.MoodNeutral,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e == nil || e.ID == "" {
		t.Fatal("expected expense with generated id")
	}
	if e.Date.IsZero() {
		t.Error("expected date to be defaulted")
	}

	got, err := svc.Month(context.Background(), testAccount, month.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Expenses) != 1 || got.Expenses[0].ID != e.ID {
		t.Errorf("expected persisted expense %s, got %+v", e.ID, got.Expenses)
	}
}

func TestAppendExpense_UnknownMonthIsNoOp(t *testing.T) {
	store := newMemStore()
	svc := newTestLedger(store)
	today := time.Date(2026, time.June, 15, 0, 0, 0, 0, time.UTC)
	month, _ := svc.EnsureCurrentMonth(context.Background(), testAccount, today)

	e, err := svc.AppendExpense(context.Background(), testAccount, "1999-01", domain.Expense{Amount: 100})
	if err != nil {
		t.Fatalf("expected silent no-op, got error: %v", err)
	}
	if e != nil {
		t.Errorf("expected nil expense for unknown month, got %+v", e)
	}

	got, _ := svc.Month(context.Background(), testAccount, month.ID)
	if len(got.Expenses) != 0 {
		t.Errorf("expected existing month untouched, got %d expenses", len(got.Expenses))
	}
}

func TestAddIncome_IncrementsTotal(t *testing.T) {
	store := newMemStore()
	svc := newTestLedger(store)
	today := time.Date(2026, time.June, 15, 0, 0, 0, 0, time.UTC)
	month, _ := svc.EnsureCurrentMonth(context.Background(), testAccount, today)

	if _, err := svc.AddIncome(context.Background(), testAccount, month.ID, domain.Income{Amount: 10000, Source: "Guardian Support"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.AddIncome(context.Background(), testAccount, month.ID, domain.Income{Amount: 2500, Source: "Job Salary"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, _ := svc.Month(context.Background(), testAccount, month.ID)
	if got.TotalIncome != 12500 {
		t.Errorf("expected total income 12500, got %.2f", got.TotalIncome)
	}
	if len(got.Incomes) != 2 {
		t.Errorf("expected 2 income entries, got %d", len(got.Incomes))
	}
}

func TestResolveBorrowLend(t *testing.T) {
	store := newMemStore()
	svc := newTestLedger(store)
	today := time.Date(2026, time.June, 15, 0, 0, 0, 0, time.UTC)
	month, _ := svc.EnsureCurrentMonth(context.Background(), testAccount, today)

	entry, err := svc.AppendBorrowLend(context.Background(), testAccount, month.ID, domain.BorrowLendEntry{
		Type:   domain.EntryBorrow,
		Amount: 500,
		Person: "Rafiq",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.Resolved {
		t.Error("expected new entry to be unresolved")
	}

	if err := svc.ResolveBorrowLend(context.Background(), testAccount, month.ID, entry.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, _ := svc.Month(context.Background(), testAccount, month.ID)
	if !got.BorrowLend[0].Resolved {
		t.Error("expected entry to be resolved")
	}
}

func TestResolveBorrowLend_UnknownEntry(t *testing.T) {
	store := newMemStore()
	svc := newTestLedger(store)
	today := time.Date(2026, time.June, 15, 0, 0, 0, 0, time.UTC)
	month, _ := svc.EnsureCurrentMonth(context.Background(), testAccount, today)

	err := svc.ResolveBorrowLend(context.Background(), testAccount, month.ID, "nope")
	var notFound *domain.ErrNotFound
	if !errors.As(err, &notFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSetSavingsGoal_Overwrites(t *testing.T) {
	store := newMemStore()
	svc := newTestLedger(store)
	today := time.Date(2026, time.June, 15, 0, 0, 0, 0, time.UTC)
	month, _ := svc.EnsureCurrentMonth(context.Background(), testAccount, today)

	first := domain.SavingsGoal{Amount: 2000, Purpose: "New phone", Flexibility: domain.SavingsFlexible}
	second := domain.SavingsGoal{Amount: 3000, Purpose: "Eid shopping", Flexibility: domain.SavingsStrict}

	if err := svc.SetSavingsGoal(context.Background(), testAccount, month.ID, first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.SetSavingsGoal(context.Background(), testAccount, month.ID, second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, _ := svc.Month(context.Background(), testAccount, month.ID)
	if got.SavingsGoal == nil || got.SavingsGoal.Purpose != "Eid shopping" {
		t.Errorf("expected goal replaced, got %+v", got.SavingsGoal)
	}
}

func TestSetTargetBudget_UnknownMonth(t *testing.T) {
	store := newMemStore()
	svc := newTestLedger(store)

	err := svc.SetTargetBudget(context.Background(), testAccount, "2026-06", 8000)
	var notFound *domain.ErrNotFound
	if !errors.As(err, &notFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveProfile_RequiresName(t *testing.T) {
	store := newMemStore()
	svc := newTestLedger(store)

	err := svc.SaveProfile(context.Background(), testAccount, &domain.Profile{})
	var validation *domain.ErrValidation
	if !errors.As(err, &validation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestProfile_AbsentReturnsNil(t *testing.T) {
	store := newMemStore()
	svc := newTestLedger(store)

	p, err := svc.Profile(context.Background(), testAccount)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p != nil {
		t.Errorf("expected nil profile before onboarding, got %+v", p)
	}
}

func TestMutation_TouchesSyncTimestamp(t *testing.T) {
	store := newMemStore()
	svc := newTestLedger(store)
	today := time.Date(2026, time.June, 15, 0, 0, 0, 0, time.UTC)

	if _, _, err := svc.LastSync(context.Background(), testAccount); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := svc.EnsureCurrentMonth(context.Background(), testAccount, today); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stamp, found, err := svc.LastSync(context.Background(), testAccount)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !found {
		t.Fatal("expected sync timestamp after mutation")
	}
	if !stamp.Equal(svc.now()) {
		t.Errorf("expected sync stamp %v, got %v", svc.now(), stamp)
	}
}

func TestClearAll_RemovesEveryRecord(t *testing.T) {
	store := newMemStore()
	svc := newTestLedger(store)
	today := time.Date(2026, time.June, 15, 0, 0, 0, 0, time.UTC)

	if err := svc.SaveProfile(context.Background(), testAccount, &domain.Profile{Name: "Mahin"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.EnsureCurrentMonth(context.Background(), testAccount, today); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := svc.ClearAll(context.Background(), testAccount); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(store.docs) != 0 {
		t.Errorf("expected empty store, still holds %v", store.docs)
	}
}

func TestClearAll_ContinuesPastFailures(t *testing.T) {
	store := newMemStore()
	svc := newTestLedger(store)
	today := time.Date(2026, time.June, 15, 0, 0, 0, 0, time.UTC)

	if _, err := svc.EnsureCurrentMonth(context.Background(), testAccount, today); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	store.failOn[profileKey(testAccount)] = errors.New("disk gone")

	err := svc.ClearAll(context.Background(), testAccount)
	if err == nil {
		t.Fatal("expected error from failed delete")
	}
	// All other keys must still have been attempted.
	for _, key := range []string{accountKey(testAccount), historyKey(testAccount), syncKey(testAccount)} {
		attempted := false
		for _, d := range store.deletes {
			if d == key {
				attempted = true
			}
		}
		if !attempted {
			t.Errorf("expected delete attempt on %s", key)
		}
	}
}
