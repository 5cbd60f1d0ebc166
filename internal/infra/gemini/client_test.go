package gemini_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mahin/bachelor-expenses-go/internal/domain"
	"github.com/mahin/bachelor-expenses-go/internal/infra/gemini"
	"github.com/mahin/bachelor-expenses-go/internal/infra/observability"
	"github.com/mahin/bachelor-expenses-go/internal/infra/resilience"

	"go.uber.org/zap"
)

func testProfile() *domain.Profile {
	return &domain.Profile{
		Name:      "Rafi",
		LifeMode:  domain.ModeStudent,
		LifeEvent: domain.EventNormal,
	}
}

func testMonth() *domain.Month {
	return &domain.Month{
		ID:          "2026-06",
		MonthName:   "June 2026",
		TotalIncome: 12000,
		Expenses: []domain.Expense{
			{ID: "e-1", Amount: 3000, Category: "House Rent", Type: domain.ExpenseNeed},
		},
	}
}

// candidateServer returns a generateContent-shaped response whose single
// candidate text is the given JSON document.
func candidateServer(t *testing.T, candidateJSON string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"candidates": []any{
				map[string]any{
					"content": map[string]any{
						"parts": []any{map[string]any{"text": candidateJSON}},
					},
				},
			},
			"usageMetadata": map[string]any{
				"promptTokenCount":     420,
				"candidatesTokenCount": 180,
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
}

func newTestClient(t *testing.T, baseURL string) *gemini.Client {
	t.Helper()
	return gemini.NewClient(
		&http.Client{Timeout: 5 * time.Second},
		baseURL, "test-key", "fast-model", "deep-model",
		resilience.NewCircuitBreaker("test"),
		resilience.Config{MaxRetries: 0, InitialBackoff: 10 * time.Millisecond, MaxConcurrency: 4},
		observability.NewMetrics(),
		zap.NewNop(),
	)
}

func TestMonthlyAnalysis_WellFormed(t *testing.T) {
	srv := candidateServer(t, `{
		"summary": "Bhai, June ta besh tight jacche.",
		"mentalHealthScore": 62,
		"mentalHealthCategory": "Pressured",
		"cashGapInsight": "Rent eats the first week's money.",
		"paydayStrategy": "Spend light in week one.",
		"predictionDays": 12,
		"spenderPersonality": "Conservative",
		"advice": "Cook at home more.",
		"status": "ok"
	}`)
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	analysis, err := c.MonthlyAnalysis(context.Background(), &domain.AnalysisRequest{
		Profile:      testProfile(),
		CurrentMonth: testMonth(),
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if analysis.MentalHealthScore != 62 {
		t.Errorf("expected score 62, got %v", analysis.MentalHealthScore)
	}
	if analysis.MentalHealthCategory != domain.MentalPressured {
		t.Errorf("expected Pressured, got %s", analysis.MentalHealthCategory)
	}
	if analysis.PredictionDays != 12 {
		t.Errorf("expected 12 prediction days, got %v", analysis.PredictionDays)
	}
}

func TestMonthlyAnalysis_MissingRequiredField(t *testing.T) {
	// No "summary" — must fail, never partial-succeed with defaults.
	srv := candidateServer(t, `{
		"mentalHealthScore": 50,
		"mentalHealthCategory": "Calm",
		"cashGapInsight": "x",
		"paydayStrategy": "x",
		"spenderPersonality": "x",
		"advice": "x",
		"status": "ok"
	}`)
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.MonthlyAnalysis(context.Background(), &domain.AnalysisRequest{
		Profile:      testProfile(),
		CurrentMonth: testMonth(),
	})
	if err == nil {
		t.Fatal("expected error for missing required field")
	}
}

func TestMonthlyAnalysis_ScoreOutOfRange(t *testing.T) {
	srv := candidateServer(t, `{
		"summary": "x",
		"mentalHealthScore": 140,
		"mentalHealthCategory": "Calm",
		"cashGapInsight": "x",
		"paydayStrategy": "x",
		"spenderPersonality": "x",
		"advice": "x",
		"status": "ok"
	}`)
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.MonthlyAnalysis(context.Background(), &domain.AnalysisRequest{
		Profile:      testProfile(),
		CurrentMonth: testMonth(),
	})
	if err == nil {
		t.Fatal("expected error for out-of-range score")
	}
}

func TestMonthlyAnalysis_MalformedCandidate(t *testing.T) {
	srv := candidateServer(t, `{"summary": `)
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.MonthlyAnalysis(context.Background(), &domain.AnalysisRequest{
		Profile:      testProfile(),
		CurrentMonth: testMonth(),
	})
	if err == nil {
		t.Fatal("expected error for malformed candidate JSON")
	}
}

func TestMonthlyAnalysis_ServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.MonthlyAnalysis(context.Background(), &domain.AnalysisRequest{
		Profile:      testProfile(),
		CurrentMonth: testMonth(),
	})
	if err == nil {
		t.Fatal("expected error for 503 response")
	}
}

func TestSavingsPlan_WellFormed(t *testing.T) {
	srv := candidateServer(t, `{
		"isRealistic": true,
		"explanation": "Goal ta manageable.",
		"microSavingsTips": ["Skip premium tea", "Round up bKash payments"],
		"dailyTarget": 100,
		"weeklyTarget": 700,
		"savingTips": ["Cook at home"],
		"extraDays": 8,
		"stressReduction": 25
	}`)
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	plan, err := c.SavingsPlan(context.Background(), &domain.SavingsPlanRequest{
		Profile:      testProfile(),
		CurrentMonth: testMonth(),
		Goal:         domain.SavingsGoal{Amount: 3000, Purpose: "New phone", Flexibility: domain.SavingsFlexible},
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if !plan.IsRealistic {
		t.Error("expected realistic verdict")
	}
	if len(plan.MicroSavingsTips) != 2 {
		t.Errorf("expected 2 micro tips, got %d", len(plan.MicroSavingsTips))
	}
	if plan.DailyTarget != 100 || plan.WeeklyTarget != 700 {
		t.Errorf("unexpected targets: %+v", plan)
	}
}

func TestSavingsPlan_MissingListField(t *testing.T) {
	srv := candidateServer(t, `{
		"isRealistic": false,
		"explanation": "x",
		"dailyTarget": 100,
		"weeklyTarget": 700,
		"savingTips": [],
		"extraDays": 1,
		"stressReduction": 10
	}`)
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.SavingsPlan(context.Background(), &domain.SavingsPlanRequest{
		Profile:      testProfile(),
		CurrentMonth: testMonth(),
		Goal:         domain.SavingsGoal{Amount: 3000, Purpose: "x", Flexibility: domain.SavingsStrict},
	})
	if err == nil {
		t.Fatal("expected error for missing microSavingsTips")
	}
}

func TestGiftSuggestions_WellFormed(t *testing.T) {
	srv := candidateServer(t, `[
		{"name": "Wrist watch", "price": 1200, "shop": "Daraz", "reason": "Classic and affordable"},
		{"name": "Book set", "price": 600, "shop": "Rokomari", "reason": "Thoughtful"}
	]`)
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	gifts, err := c.GiftSuggestions(context.Background(), &domain.GiftRequest{
		Budget:    1500,
		Occasion:  "Birthday",
		Recipient: "Girlfriend",
		Profile:   testProfile(),
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if len(gifts) != 2 {
		t.Fatalf("expected 2 suggestions, got %d", len(gifts))
	}
	if gifts[0].Name != "Wrist watch" || gifts[0].Price != 1200 {
		t.Errorf("unexpected first suggestion: %+v", gifts[0])
	}
}

func TestGiftSuggestions_NegativePrice(t *testing.T) {
	srv := candidateServer(t, `[{"name": "x", "price": -5, "shop": "y", "reason": "z"}]`)
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.GiftSuggestions(context.Background(), &domain.GiftRequest{
		Budget:    500,
		Occasion:  "Birthday",
		Recipient: "Friend",
		Profile:   testProfile(),
	})
	if err == nil {
		t.Fatal("expected error for negative price")
	}
}

// A user can record entries and ask for advice before ever completing
// onboarding, so every request type must work with a nil profile.
func TestAdvice_WithoutProfile(t *testing.T) {
	t.Run("analysis", func(t *testing.T) {
		srv := candidateServer(t, `{
			"summary": "Shuru ta valo hoyeche.",
			"mentalHealthScore": 75,
			"mentalHealthCategory": "Calm",
			"cashGapInsight": "x",
			"paydayStrategy": "x",
			"spenderPersonality": "x",
			"advice": "x",
			"status": "ok"
		}`)
		defer srv.Close()

		c := newTestClient(t, srv.URL)
		analysis, err := c.MonthlyAnalysis(context.Background(), &domain.AnalysisRequest{
			Profile:      nil,
			CurrentMonth: testMonth(),
		})
		if err != nil {
			t.Fatalf("expected success without profile, got %v", err)
		}
		if analysis.MentalHealthCategory != domain.MentalCalm {
			t.Errorf("expected Calm, got %s", analysis.MentalHealthCategory)
		}
	})

	t.Run("savings plan", func(t *testing.T) {
		srv := candidateServer(t, `{
			"isRealistic": true,
			"explanation": "x",
			"microSavingsTips": ["x"],
			"dailyTarget": 100,
			"weeklyTarget": 700,
			"savingTips": ["x"],
			"extraDays": 2,
			"stressReduction": 15
		}`)
		defer srv.Close()

		c := newTestClient(t, srv.URL)
		if _, err := c.SavingsPlan(context.Background(), &domain.SavingsPlanRequest{
			Profile:      nil,
			CurrentMonth: testMonth(),
			Goal:         domain.SavingsGoal{Amount: 2000, Purpose: "x", Flexibility: domain.SavingsFlexible},
		}); err != nil {
			t.Fatalf("expected success without profile, got %v", err)
		}
	})

	t.Run("gifts", func(t *testing.T) {
		srv := candidateServer(t, `[{"name": "Mug", "price": 300, "shop": "Daraz", "reason": "Safe pick"}]`)
		defer srv.Close()

		c := newTestClient(t, srv.URL)
		gifts, err := c.GiftSuggestions(context.Background(), &domain.GiftRequest{
			Budget:    500,
			Occasion:  "Birthday",
			Recipient: "Friend",
			Profile:   nil,
		})
		if err != nil {
			t.Fatalf("expected success without profile, got %v", err)
		}
		if len(gifts) != 1 {
			t.Fatalf("expected 1 suggestion, got %d", len(gifts))
		}
	})
}
