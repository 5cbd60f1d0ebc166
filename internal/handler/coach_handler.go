package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/mahin/bachelor-expenses-go/internal/domain"
	"github.com/mahin/bachelor-expenses-go/internal/service"

	"go.uber.org/zap"
)

// ============================================================
// Coaching
// ============================================================

// GET returns the cached analysis without going upstream; 204 when the
// cache is cold or stale.
func getAnalysisHandler(coachSvc *service.CoachService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/coach/analysis")
		defer span.End()

		analysis, ok := coachSvc.CachedAnalysis(ctx, AccountIDFromContext(ctx), time.Now())
		if !ok {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, analysis)
	}
}

func requestAnalysisHandler(coachSvc *service.CoachService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/coach/analysis")
		defer span.End()

		analysis, err := coachSvc.RequestMonthlyAnalysis(ctx, AccountIDFromContext(ctx), time.Now())
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, analysis)
	}
}

type savingsPlanRequest struct {
	Amount      float64                   `json:"amount"`
	Purpose     string                    `json:"purpose"`
	Flexibility domain.SavingsFlexibility `json:"flexibility"`
}

func requestSavingsPlanHandler(coachSvc *service.CoachService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/coach/savings-plan")
		defer span.End()

		var req savingsPlanRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if !validAmount(req.Amount) {
			writeError(w, http.StatusBadRequest, "amount must be a positive number")
			return
		}

		plan, err := coachSvc.RequestSavingsPlan(ctx, AccountIDFromContext(ctx), time.Now(), domain.SavingsGoal{
			Amount:      req.Amount,
			Purpose:     req.Purpose,
			Flexibility: req.Flexibility,
		})
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, plan)
	}
}

func requestGiftsHandler(coachSvc *service.CoachService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/coach/gifts")
		defer span.End()

		var req domain.GiftRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if !validAmount(req.Budget) {
			writeError(w, http.StatusBadRequest, "budget must be a positive number")
			return
		}

		gifts, err := coachSvc.RequestGiftSuggestions(ctx, AccountIDFromContext(ctx), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, gifts)
	}
}

func coachMetricsHandler(coachSvc *service.CoachService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "GET /v1/metrics/coach")
		defer span.End()

		writeJSON(w, http.StatusOK, coachSvc.Snapshot())
	}
}
