package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/mahin/bachelor-expenses-go/internal/aggregate"
	"github.com/mahin/bachelor-expenses-go/internal/domain"
	"github.com/mahin/bachelor-expenses-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Profile
// ============================================================

func getProfileHandler(ledgerSvc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/profile")
		defer span.End()

		profile, err := ledgerSvc.Profile(ctx, AccountIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if profile == nil {
			writeError(w, http.StatusNotFound, "profile not set")
			return
		}
		writeJSON(w, http.StatusOK, profile)
	}
}

func putProfileHandler(ledgerSvc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/profile")
		defer span.End()

		var profile domain.Profile
		if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if err := ledgerSvc.SaveProfile(ctx, AccountIDFromContext(ctx), &profile); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, profile)
	}
}

func getCategoriesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, domain.CategoryGroups)
	}
}

// ============================================================
// Months
// ============================================================

func ensureCurrentMonthHandler(ledgerSvc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/months/current")
		defer span.End()

		month, err := ledgerSvc.EnsureCurrentMonth(ctx, AccountIDFromContext(ctx), time.Now())
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, month)
	}
}

func listMonthsHandler(ledgerSvc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/months")
		defer span.End()

		history, err := ledgerSvc.History(ctx, AccountIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if history == nil {
			history = []domain.Month{}
		}
		writeJSON(w, http.StatusOK, history)
	}
}

func getMonthHandler(ledgerSvc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/months/{monthId}")
		defer span.End()

		month, err := ledgerSvc.Month(ctx, AccountIDFromContext(ctx), chi.URLParam(r, "monthId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, month)
	}
}

func getMonthSummaryHandler(ledgerSvc *service.LedgerService, dailyFloor float64, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/months/{monthId}/summary")
		defer span.End()

		month, err := ledgerSvc.Month(ctx, AccountIDFromContext(ctx), chi.URLParam(r, "monthId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, aggregate.Summary(month, time.Now(), dailyFloor))
	}
}

// ============================================================
// Entries
// ============================================================

type expenseRequest struct {
	Amount        float64              `json:"amount"`
	Category      string               `json:"category"`
	SubCategory   string               `json:"subCategory"`
	Type          domain.ExpenseType   `json:"type"`
	PaymentMethod domain.PaymentMethod `json:"paymentMethod"`
	Mood          domain.Mood          `json:"mood"`
	Description   string               `json:"description"`
}

func (req *expenseRequest) validate() string {
	switch {
	case !validAmount(req.Amount):
		return "amount must be a positive number"
	case req.Category == "":
		return "category is required"
	case !domain.ValidExpenseType(req.Type):
		return "unknown expense type"
	case !domain.ValidPaymentMethod(req.PaymentMethod):
		return "unknown payment method"
	case !domain.ValidMood(req.Mood):
		return "unknown mood"
	}
	return ""
}

func addExpenseHandler(ledgerSvc *service.LedgerService, coachSvc *service.CoachService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/months/{monthId}/expenses")
		defer span.End()

		var req expenseRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if msg := req.validate(); msg != "" {
			writeError(w, http.StatusBadRequest, msg)
			return
		}

		accountID := AccountIDFromContext(ctx)
		expense, err := ledgerSvc.AppendExpense(ctx, accountID, chi.URLParam(r, "monthId"), domain.Expense{
			Amount:        req.Amount,
			Category:      req.Category,
			SubCategory:   req.SubCategory,
			Type:          req.Type,
			PaymentMethod: req.PaymentMethod,
			Mood:          req.Mood,
			Description:   req.Description,
		})
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if expense == nil {
			// Stale month reference: dropped, not an error.
			writeJSON(w, http.StatusOK, map[string]any{"applied": false})
			return
		}

		coachSvc.NotifyMutation(accountID, time.Now())
		writeJSON(w, http.StatusCreated, expense)
	}
}

type incomeRequest struct {
	Amount float64 `json:"amount"`
	Source string  `json:"source"`
}

func addIncomeHandler(ledgerSvc *service.LedgerService, coachSvc *service.CoachService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/months/{monthId}/income")
		defer span.End()

		var req incomeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if !validAmount(req.Amount) {
			writeError(w, http.StatusBadRequest, "amount must be a positive number")
			return
		}

		accountID := AccountIDFromContext(ctx)
		income, err := ledgerSvc.AddIncome(ctx, accountID, chi.URLParam(r, "monthId"), domain.Income{
			Amount: req.Amount,
			Source: req.Source,
		})
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if income == nil {
			writeJSON(w, http.StatusOK, map[string]any{"applied": false})
			return
		}

		coachSvc.NotifyMutation(accountID, time.Now())
		writeJSON(w, http.StatusCreated, income)
	}
}

type borrowLendRequest struct {
	Type   domain.BorrowLendType `json:"type"`
	Amount float64               `json:"amount"`
	Person string                `json:"person"`
}

func addBorrowLendHandler(ledgerSvc *service.LedgerService, coachSvc *service.CoachService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/months/{monthId}/borrowlend")
		defer span.End()

		var req borrowLendRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Type != domain.EntryBorrow && req.Type != domain.EntryLend {
			writeError(w, http.StatusBadRequest, "type must be borrow or lend")
			return
		}
		if !validAmount(req.Amount) {
			writeError(w, http.StatusBadRequest, "amount must be a positive number")
			return
		}
		if req.Person == "" {
			writeError(w, http.StatusBadRequest, "person is required")
			return
		}

		accountID := AccountIDFromContext(ctx)
		entry, err := ledgerSvc.AppendBorrowLend(ctx, accountID, chi.URLParam(r, "monthId"), domain.BorrowLendEntry{
			Type:   req.Type,
			Amount: req.Amount,
			Person: req.Person,
		})
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if entry == nil {
			writeJSON(w, http.StatusOK, map[string]any{"applied": false})
			return
		}

		coachSvc.NotifyMutation(accountID, time.Now())
		writeJSON(w, http.StatusCreated, entry)
	}
}

func resolveBorrowLendHandler(ledgerSvc *service.LedgerService, coachSvc *service.CoachService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/months/{monthId}/borrowlend/{entryId}/resolve")
		defer span.End()

		accountID := AccountIDFromContext(ctx)
		err := ledgerSvc.ResolveBorrowLend(ctx, accountID, chi.URLParam(r, "monthId"), chi.URLParam(r, "entryId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		coachSvc.NotifyMutation(accountID, time.Now())
		writeJSON(w, http.StatusOK, map[string]any{"resolved": true})
	}
}

// ============================================================
// Goal & budget
// ============================================================

type goalRequest struct {
	Amount      float64                   `json:"amount"`
	Purpose     string                    `json:"purpose"`
	Flexibility domain.SavingsFlexibility `json:"flexibility"`
}

func setSavingsGoalHandler(ledgerSvc *service.LedgerService, coachSvc *service.CoachService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/months/{monthId}/goal")
		defer span.End()

		var req goalRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if !validAmount(req.Amount) {
			writeError(w, http.StatusBadRequest, "amount must be a positive number")
			return
		}
		if req.Flexibility != domain.SavingsStrict && req.Flexibility != domain.SavingsFlexible {
			writeError(w, http.StatusBadRequest, "flexibility must be Strict or Flexible")
			return
		}

		accountID := AccountIDFromContext(ctx)
		goal := domain.SavingsGoal{Amount: req.Amount, Purpose: req.Purpose, Flexibility: req.Flexibility}
		if err := ledgerSvc.SetSavingsGoal(ctx, accountID, chi.URLParam(r, "monthId"), goal); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		coachSvc.NotifyMutation(accountID, time.Now())
		writeJSON(w, http.StatusOK, goal)
	}
}

type budgetRequest struct {
	Amount float64 `json:"amount"`
}

func setTargetBudgetHandler(ledgerSvc *service.LedgerService, coachSvc *service.CoachService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/months/{monthId}/budget")
		defer span.End()

		var req budgetRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if !validAmount(req.Amount) {
			writeError(w, http.StatusBadRequest, "amount must be a positive number")
			return
		}

		accountID := AccountIDFromContext(ctx)
		if err := ledgerSvc.SetTargetBudget(ctx, accountID, chi.URLParam(r, "monthId"), req.Amount); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		coachSvc.NotifyMutation(accountID, time.Now())
		writeJSON(w, http.StatusOK, map[string]float64{"targetBudget": req.Amount})
	}
}

// ============================================================
// Survival & sync
// ============================================================

func getSurvivalHandler(ledgerSvc *service.LedgerService, dailyFloor float64, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/survival")
		defer span.End()

		now := time.Now()
		month, err := ledgerSvc.Month(ctx, AccountIDFromContext(ctx), domain.MonthID(now))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, aggregate.Survival(month, now, dailyFloor))
	}
}

func getSyncHandler(ledgerSvc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/sync")
		defer span.End()

		stamp, found, err := ledgerSvc.LastSync(ctx, AccountIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if !found {
			writeJSON(w, http.StatusOK, map[string]any{"lastSync": nil})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"lastSync": stamp.Format(time.RFC3339)})
	}
}
