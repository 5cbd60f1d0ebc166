// Package aggregate derives summary figures from a ledger month.
// Everything here is a pure function over domain.Month: no side effects,
// no persistence, no clock access beyond the "today" arguments.
package aggregate

import (
	"time"

	"github.com/mahin/bachelor-expenses-go/internal/domain"
)

// TotalExpenses sums all expense amounts in the month.
func TotalExpenses(m *domain.Month) float64 {
	var total float64
	for _, e := range m.Expenses {
		total += e.Amount
	}
	return total
}

// NetRemaining is income minus expenses. May be negative; callers that
// display a "budget cannot go below zero" figure must clamp themselves.
func NetRemaining(m *domain.Month) float64 {
	return m.TotalIncome - TotalExpenses(m)
}

// ClampRemaining is NetRemaining floored at zero, for display surfaces.
func ClampRemaining(m *domain.Month) float64 {
	if r := NetRemaining(m); r > 0 {
		return r
	}
	return 0
}

// OutstandingBorrowed sums unresolved borrow entries.
func OutstandingBorrowed(m *domain.Month) float64 {
	return outstanding(m, domain.EntryBorrow)
}

// OutstandingLent sums unresolved lend entries.
func OutstandingLent(m *domain.Month) float64 {
	return outstanding(m, domain.EntryLend)
}

func outstanding(m *domain.Month, t domain.BorrowLendType) float64 {
	var total float64
	for _, e := range m.BorrowLend {
		if e.Type == t && !e.Resolved {
			total += e.Amount
		}
	}
	return total
}

// CategoryBreakdown groups expenses by category, summing per category.
// Groups appear in first-occurrence insertion order.
func CategoryBreakdown(m *domain.Month) []domain.CategoryTotal {
	index := make(map[string]int, len(m.Expenses))
	breakdown := make([]domain.CategoryTotal, 0, len(m.Expenses))
	for _, e := range m.Expenses {
		if i, ok := index[e.Category]; ok {
			breakdown[i].Total += e.Amount
			continue
		}
		index[e.Category] = len(breakdown)
		breakdown = append(breakdown, domain.CategoryTotal{Category: e.Category, Total: e.Amount})
	}
	return breakdown
}

// TypeBreakdown sums spend by Need/Want/Emotional nature.
func TypeBreakdown(m *domain.Month) map[domain.ExpenseType]float64 {
	out := make(map[domain.ExpenseType]float64)
	for _, e := range m.Expenses {
		out[e.Type] += e.Amount
	}
	return out
}

// MoodSpend sums spend by mood at time of purchase.
func MoodSpend(m *domain.Month) map[domain.Mood]float64 {
	out := make(map[domain.Mood]float64)
	for _, e := range m.Expenses {
		out[e.Mood] += e.Amount
	}
	return out
}

// PhaseForDay classifies a day-of-month into the three payday phases.
// Days 1-7 are First-Week, 8-21 Mid-Month, 22 through the end Last-Week.
// Progress is the fractional position inside the phase window, 0-100.
// Total over day 1..daysInMonth; out-of-range days are clamped.
func PhaseForDay(day, daysInMonth int) domain.PaydayPhase {
	if day < 1 {
		day = 1
	}
	if day > daysInMonth {
		day = daysInMonth
	}

	switch {
	case day <= 7:
		return domain.PaydayPhase{
			Name:     domain.PhaseFirstWeek,
			Progress: float64(day) / 7 * 100,
		}
	case day <= 21:
		return domain.PaydayPhase{
			Name:     domain.PhaseMidMonth,
			Progress: float64(day-7) / 14 * 100,
		}
	default:
		window := daysInMonth - 21
		return domain.PaydayPhase{
			Name:     domain.PhaseLastWeek,
			Progress: float64(day-21) / float64(window) * 100,
		}
	}
}

// Phase classifies today within its calendar month.
func Phase(today time.Time) domain.PaydayPhase {
	return PhaseForDay(today.Day(), domain.DaysInMonth(today))
}

// Survival projects whether the month's remaining funds cover dailyFloor
// (the minimum subsistence cost) for every remaining day. The floor is a
// policy parameter supplied by configuration. Remaining is the raw net so
// a deficit stays visible as danger even on the last day, when the
// required floor is zero. The per-day figure is defined as zero on the
// last day rather than dividing by zero.
func Survival(m *domain.Month, today time.Time, dailyFloor float64) domain.SurvivalProjection {
	daysRemaining := domain.DaysInMonth(today) - today.Day()
	remaining := NetRemaining(m)
	required := dailyFloor * float64(daysRemaining)

	perDay := 0.0
	if daysRemaining > 0 {
		perDay = remaining / float64(daysRemaining)
	}

	return domain.SurvivalProjection{
		DaysRemaining: daysRemaining,
		DailyFloor:    dailyFloor,
		RequiredFloor: required,
		Remaining:     remaining,
		PerDay:        perDay,
		Danger:        remaining < required,
	}
}

// Summary composes every derived view over one month.
func Summary(m *domain.Month, today time.Time, dailyFloor float64) *domain.MonthSummary {
	return &domain.MonthSummary{
		MonthID:             m.ID,
		MonthName:           m.MonthName,
		TotalIncome:         m.TotalIncome,
		TotalExpenses:       TotalExpenses(m),
		NetRemaining:        NetRemaining(m),
		OutstandingBorrowed: OutstandingBorrowed(m),
		OutstandingLent:     OutstandingLent(m),
		Categories:          CategoryBreakdown(m),
		TypeBreakdown:       TypeBreakdown(m),
		MoodSpend:           MoodSpend(m),
		Phase:               Phase(today),
		Survival:            Survival(m, today, dailyFloor),
		TargetBudget:        m.TargetBudget,
		SavingsGoal:         m.SavingsGoal,
	}
}
