package domain

// Derived, read-only views over a Month. Computed by the aggregate
// package; never persisted.

// CategoryTotal is one category's summed spend.
type CategoryTotal struct {
	Category string  `json:"category"`
	Total    float64 `json:"total"`
}

// Payday phase names. The month splits into a 7-day, a 14-day and a
// variable-length final window.
const (
	PhaseFirstWeek = "First-Week"
	PhaseMidMonth  = "Mid-Month"
	PhaseLastWeek  = "Last-Week"
)

// PaydayPhase classifies where in the month a day falls, with the
// fractional position inside the phase window expressed 0-100.
type PaydayPhase struct {
	Name     string  `json:"name"`
	Progress float64 `json:"progress"`
}

// SurvivalProjection forecasts whether remaining funds cover a minimum
// per-day subsistence floor for the rest of the month.
type SurvivalProjection struct {
	DaysRemaining int     `json:"daysRemaining"`
	DailyFloor    float64 `json:"dailyFloor"`
	RequiredFloor float64 `json:"requiredFloor"`
	Remaining     float64 `json:"remaining"`
	PerDay        float64 `json:"perDay"`
	Danger        bool    `json:"danger"`
}

// MonthSummary bundles every derived figure the dashboard needs.
type MonthSummary struct {
	MonthID             string                  `json:"monthId"`
	MonthName           string                  `json:"monthName"`
	TotalIncome         float64                 `json:"totalIncome"`
	TotalExpenses       float64                 `json:"totalExpenses"`
	NetRemaining        float64                 `json:"netRemaining"`
	OutstandingBorrowed float64                 `json:"outstandingBorrowed"`
	OutstandingLent     float64                 `json:"outstandingLent"`
	Categories          []CategoryTotal         `json:"categories"`
	TypeBreakdown       map[ExpenseType]float64 `json:"typeBreakdown"`
	MoodSpend           map[Mood]float64        `json:"moodSpend"`
	Phase               PaydayPhase             `json:"phase"`
	Survival            SurvivalProjection      `json:"survival"`
	TargetBudget        float64                 `json:"targetBudget"`
	SavingsGoal         *SavingsGoal            `json:"savingsGoal,omitempty"`
}
