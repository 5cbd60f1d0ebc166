package domain

import "fmt"

// ============================================================
// Coaching request payloads
// ============================================================

// AnalysisRequest carries the context for a monthly analysis: profile,
// the full current month and (optionally) the previous one.
type AnalysisRequest struct {
	Profile       *Profile `json:"profile"`
	CurrentMonth  *Month   `json:"currentMonth"`
	PreviousMonth *Month   `json:"previousMonth,omitempty"`
}

// SavingsPlanRequest carries the context for a savings-goal assessment.
type SavingsPlanRequest struct {
	Profile      *Profile    `json:"profile"`
	CurrentMonth *Month      `json:"currentMonth"`
	Goal         SavingsGoal `json:"goal"`
}

// GiftRequest asks for gift ideas within a budget.
type GiftRequest struct {
	Budget    float64  `json:"budget"`
	Occasion  string   `json:"occasion"`
	Recipient string   `json:"recipient"`
	Profile   *Profile `json:"profile"`
}

// ============================================================
// Coaching responses
// ============================================================

// Mental health categories the advisor may return.
const (
	MentalCalm       = "Calm"
	MentalPressured  = "Pressured"
	MentalOverloaded = "Overloaded"
)

// MonthlyAnalysis is the structured advice for one month. Every field is
// required on the wire; a response missing any of them is rejected at the
// adapter boundary, never patched with defaults.
type MonthlyAnalysis struct {
	Summary              string  `json:"summary"`
	MentalHealthScore    float64 `json:"mentalHealthScore"`
	MentalHealthCategory string  `json:"mentalHealthCategory"`
	CashGapInsight       string  `json:"cashGapInsight"`
	PaydayStrategy       string  `json:"paydayStrategy"`
	PredictionDays       float64 `json:"predictionDays"`
	SpenderPersonality   string  `json:"spenderPersonality"`
	Advice               string  `json:"advice"`
	Status               string  `json:"status"`
}

// Validate checks structural sanity of an analysis.
func (a *MonthlyAnalysis) Validate() error {
	if a.Summary == "" {
		return &ErrValidation{Field: "summary", Message: "required"}
	}
	if a.MentalHealthScore < 0 || a.MentalHealthScore > 100 {
		return &ErrValidation{Field: "mentalHealthScore", Message: "must be 0-100"}
	}
	switch a.MentalHealthCategory {
	case MentalCalm, MentalPressured, MentalOverloaded:
	default:
		return &ErrValidation{
			Field:   "mentalHealthCategory",
			Message: fmt.Sprintf("unknown category %q", a.MentalHealthCategory),
		}
	}
	return nil
}

// SavingsPlan is the structured savings-goal assessment.
type SavingsPlan struct {
	IsRealistic      bool     `json:"isRealistic"`
	Explanation      string   `json:"explanation"`
	MicroSavingsTips []string `json:"microSavingsTips"`
	DailyTarget      float64  `json:"dailyTarget"`
	WeeklyTarget     float64  `json:"weeklyTarget"`
	SavingTips       []string `json:"savingTips"`
	ExtraDays        float64  `json:"extraDays"`
	StressReduction  float64  `json:"stressReduction"`
}

// Validate checks structural sanity of a savings plan.
func (p *SavingsPlan) Validate() error {
	if p.Explanation == "" {
		return &ErrValidation{Field: "explanation", Message: "required"}
	}
	if p.DailyTarget < 0 || p.WeeklyTarget < 0 {
		return &ErrValidation{Field: "dailyTarget", Message: "targets must be non-negative"}
	}
	if p.StressReduction < 0 || p.StressReduction > 100 {
		return &ErrValidation{Field: "stressReduction", Message: "must be 0-100"}
	}
	return nil
}

// GiftSuggestion is one gift idea.
type GiftSuggestion struct {
	Name   string  `json:"name"`
	Price  float64 `json:"price"`
	Shop   string  `json:"shop"`
	Reason string  `json:"reason"`
}

// CoachMetrics is the snapshot exposed by GET /v1/metrics/coach.
type CoachMetrics struct {
	TotalRequests       int64   `json:"total_requests"`
	ErrorRate           float64 `json:"error_rate"`
	AvgTokensPerRequest float64 `json:"avg_tokens_per_request"`
	EstimatedCostUSD    float64 `json:"estimated_cost_usd"`
	CacheHitRate        float64 `json:"cache_hit_rate"`
	Period              string  `json:"period"`
}
