package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/mahin/bachelor-expenses-go/internal/infra/observability"
	"github.com/mahin/bachelor-expenses-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Pinger reports storage liveness for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(
	ledgerSvc *service.LedgerService,
	coachSvc *service.CoachService,
	authSvc *service.AuthService,
	store Pinger,
	metrics *observability.Metrics,
	dailyFloor float64,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(store))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {

		// =============================================
		// Authentication (public)
		// =============================================
		r.Post("/auth/register", authRegisterHandler(authSvc, logger))
		r.Post("/auth/login", authLoginHandler(authSvc, logger))
		r.Post("/auth/refresh", authRefreshHandler(authSvc, logger))

		// =============================================
		// Authenticated API
		// =============================================
		r.Group(func(r chi.Router) {
			r.Use(JWTAuthMiddleware(authSvc, logger))

			r.Post("/auth/logout", authLogoutHandler(authSvc, logger))

			// Profile & taxonomy
			r.Get("/profile", getProfileHandler(ledgerSvc, logger))
			r.Put("/profile", putProfileHandler(ledgerSvc, logger))
			r.Get("/categories", getCategoriesHandler())

			// Months
			r.Post("/months/current", ensureCurrentMonthHandler(ledgerSvc, logger))
			r.Get("/months", listMonthsHandler(ledgerSvc, logger))
			r.Get("/months/{monthId}", getMonthHandler(ledgerSvc, logger))
			r.Get("/months/{monthId}/summary", getMonthSummaryHandler(ledgerSvc, dailyFloor, logger))

			// Entries
			r.Post("/months/{monthId}/expenses", addExpenseHandler(ledgerSvc, coachSvc, logger))
			r.Post("/months/{monthId}/income", addIncomeHandler(ledgerSvc, coachSvc, logger))
			r.Post("/months/{monthId}/borrowlend", addBorrowLendHandler(ledgerSvc, coachSvc, logger))
			r.Post("/months/{monthId}/borrowlend/{entryId}/resolve", resolveBorrowLendHandler(ledgerSvc, coachSvc, logger))

			// Goal & budget
			r.Put("/months/{monthId}/goal", setSavingsGoalHandler(ledgerSvc, coachSvc, logger))
			r.Put("/months/{monthId}/budget", setTargetBudgetHandler(ledgerSvc, coachSvc, logger))

			// Derived views
			r.Get("/survival", getSurvivalHandler(ledgerSvc, dailyFloor, logger))
			r.Get("/sync", getSyncHandler(ledgerSvc, logger))

			// Coaching
			r.Get("/coach/analysis", getAnalysisHandler(coachSvc, logger))
			r.Post("/coach/analysis", requestAnalysisHandler(coachSvc, logger))
			r.Post("/coach/savings-plan", requestSavingsPlanHandler(coachSvc, logger))
			r.Post("/coach/gifts", requestGiftsHandler(coachSvc, logger))
			r.Get("/metrics/coach", coachMetricsHandler(coachSvc, logger))
		})
	})

	return r
}

// ============================================================
// Operational handlers
// ============================================================

func healthzHandler(store Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().Format(time.RFC3339)

		storageStatus := "healthy"
		if store != nil {
			if err := store.Ping(r.Context()); err != nil {
				storageStatus = "degraded"
			}
		}

		overall := "healthy"
		if storageStatus != "healthy" {
			overall = "degraded"
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"status":    overall,
			"storage":   storageStatus,
			"timestamp": now,
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
