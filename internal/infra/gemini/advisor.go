package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mahin/bachelor-expenses-go/internal/aggregate"
	"github.com/mahin/bachelor-expenses-go/internal/domain"
)

// Response schemas declared to the model. Fields listed under "required"
// must be present in the reply or the whole call fails.

var analysisSchema = json.RawMessage(`{
	"type": "OBJECT",
	"properties": {
		"summary": {"type": "STRING"},
		"mentalHealthScore": {"type": "NUMBER"},
		"mentalHealthCategory": {"type": "STRING"},
		"cashGapInsight": {"type": "STRING"},
		"paydayStrategy": {"type": "STRING"},
		"predictionDays": {"type": "NUMBER"},
		"spenderPersonality": {"type": "STRING"},
		"advice": {"type": "STRING"},
		"status": {"type": "STRING"}
	},
	"required": ["summary", "mentalHealthScore", "mentalHealthCategory", "cashGapInsight", "paydayStrategy", "spenderPersonality", "advice", "status"]
}`)

var savingsSchema = json.RawMessage(`{
	"type": "OBJECT",
	"properties": {
		"isRealistic": {"type": "BOOLEAN"},
		"explanation": {"type": "STRING"},
		"microSavingsTips": {"type": "ARRAY", "items": {"type": "STRING"}},
		"dailyTarget": {"type": "NUMBER"},
		"weeklyTarget": {"type": "NUMBER"},
		"savingTips": {"type": "ARRAY", "items": {"type": "STRING"}},
		"extraDays": {"type": "NUMBER"},
		"stressReduction": {"type": "NUMBER"}
	},
	"required": ["isRealistic", "explanation", "microSavingsTips", "dailyTarget", "weeklyTarget", "savingTips", "extraDays", "stressReduction"]
}`)

var giftSchema = json.RawMessage(`{
	"type": "ARRAY",
	"items": {
		"type": "OBJECT",
		"properties": {
			"name": {"type": "STRING"},
			"price": {"type": "NUMBER"},
			"shop": {"type": "STRING"},
			"reason": {"type": "STRING"}
		},
		"required": ["name", "price", "shop", "reason"]
	}
}`)

// MonthlyAnalysis implements port.AdviceGenerator.
func (c *Client) MonthlyAnalysis(ctx context.Context, req *domain.AnalysisRequest) (*domain.MonthlyAnalysis, error) {
	ctx, span := tracer.Start(ctx, "Client.MonthlyAnalysis")
	defer span.End()

	raw, err := c.generate(ctx, c.fastModel, buildAnalysisPrompt(req), analysisSchema)
	if err != nil {
		return nil, err
	}
	return parseAnalysis(raw)
}

// SavingsPlan implements port.AdviceGenerator.
func (c *Client) SavingsPlan(ctx context.Context, req *domain.SavingsPlanRequest) (*domain.SavingsPlan, error) {
	ctx, span := tracer.Start(ctx, "Client.SavingsPlan")
	defer span.End()

	raw, err := c.generate(ctx, c.deepModel, buildSavingsPrompt(req), savingsSchema)
	if err != nil {
		return nil, err
	}
	return parseSavingsPlan(raw)
}

// GiftSuggestions implements port.AdviceGenerator.
func (c *Client) GiftSuggestions(ctx context.Context, req *domain.GiftRequest) ([]domain.GiftSuggestion, error) {
	ctx, span := tracer.Start(ctx, "Client.GiftSuggestions")
	defer span.End()

	raw, err := c.generate(ctx, c.fastModel, buildGiftPrompt(req), giftSchema)
	if err != nil {
		return nil, err
	}
	return parseGiftSuggestions(raw)
}

// ============================================================
// Prompt builders
// ============================================================

func buildAnalysisPrompt(req *domain.AnalysisRequest) string {
	currentJSON, _ := json.Marshal(req.CurrentMonth)

	previous := "No previous data"
	if req.PreviousMonth != nil {
		if b, err := json.Marshal(req.PreviousMonth); err == nil {
			previous = string(b)
		}
	}

	var b strings.Builder
	b.WriteString("As a wise elder sibling (Bhai/Apu) from Bangladesh, analyze these finances.\n")
	// Profile is nil until onboarding completes; advice still works
	// without it.
	if req.Profile != nil {
		profileJSON, _ := json.Marshal(req.Profile)
		fmt.Fprintf(&b, "User Profile: %s\n", profileJSON)
		fmt.Fprintf(&b, "Current Life Mode: %s\n", req.Profile.LifeMode)
		fmt.Fprintf(&b, "Current Life Event: %s\n", req.Profile.LifeEvent)
	} else {
		b.WriteString("User Profile: not provided yet\n")
	}
	fmt.Fprintf(&b, "Current Month Data: %s\n", currentJSON)
	fmt.Fprintf(&b, "Previous Month Data: %s\n", previous)
	b.WriteString(`
Provide:
1. A summary in Banglish (mix of Bengali and English).
2. Mental Health Score (0-100) based on deficit days, stress spending, and borrowing.
3. Mental Health Category (Calm, Pressured, or Overloaded).
4. "Cash Gap Detector": Why a recurring end-of-month crisis happens.
5. Payday Strategy: Suggestions for 3 phases (1st week, mid-month, last week).
6. Spender Personality (e.g., Emotional, Conservative, etc.).
7. Supportive advice.
`)
	return b.String()
}

func buildSavingsPrompt(req *domain.SavingsPlanRequest) string {
	spent := aggregate.TotalExpenses(req.CurrentMonth)

	var b strings.Builder
	b.WriteString("As a wise Apu/Bhai, help the user with their Savings Goal.\n")
	if req.Profile != nil {
		profileJSON, _ := json.Marshal(req.Profile)
		fmt.Fprintf(&b, "User Profile: %s\n", profileJSON)
	} else {
		b.WriteString("User Profile: not provided yet\n")
	}
	fmt.Fprintf(&b, "Goal: Save ৳%.0f for %q (Flexibility: %s).\n", req.Goal.Amount, req.Goal.Purpose, req.Goal.Flexibility)
	fmt.Fprintf(&b, "Current Income: ৳%.0f\n", req.CurrentMonth.TotalIncome)
	fmt.Fprintf(&b, "Total Spent so far: ৳%.0f\n", spent)
	if req.Profile != nil {
		fmt.Fprintf(&b, "Life Mode: %s\n", req.Profile.LifeMode)
		fmt.Fprintf(&b, "Life Event: %s\n", req.Profile.LifeEvent)
	}
	b.WriteString(`
Requirements:
- Analyze if the goal is realistic for a typical Bangladeshi bachelor/student/professional.
- Provide a "Micro-Savings Engine" plan: Round-ups, skipping small daily habits (like premium tea or extra smoking), and turning impulse avoids into savings.
- Calculate daily/weekly targets.
- Explain "Survival Impact": How many extra days of survival this saved money provides.
- Use a supportive, non-shaming Banglish tone.
`)
	return b.String()
}

func buildGiftPrompt(req *domain.GiftRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Suggest gifts for %s for %s available in Bangladesh (Daraz, AjkerDeal, etc). Budget: %.0f BDT.\n",
		req.Recipient, req.Occasion, req.Budget)
	if req.Profile != nil {
		fmt.Fprintf(&b, "Life Mode: %s.\n", req.Profile.LifeMode)
	}
	return b.String()
}

// ============================================================
// Response parsing — reject, never coerce
// ============================================================

type analysisPayload struct {
	Summary              *string  `json:"summary"`
	MentalHealthScore    *float64 `json:"mentalHealthScore"`
	MentalHealthCategory *string  `json:"mentalHealthCategory"`
	CashGapInsight       *string  `json:"cashGapInsight"`
	PaydayStrategy       *string  `json:"paydayStrategy"`
	PredictionDays       *float64 `json:"predictionDays"`
	SpenderPersonality   *string  `json:"spenderPersonality"`
	Advice               *string  `json:"advice"`
	Status               *string  `json:"status"`
}

func parseAnalysis(raw []byte) (*domain.MonthlyAnalysis, error) {
	var p analysisPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, &domain.ErrExternalService{Service: "gemini", Err: fmt.Errorf("malformed analysis payload: %w", err)}
	}

	missing := firstMissing(map[string]bool{
		"summary":              p.Summary == nil,
		"mentalHealthScore":    p.MentalHealthScore == nil,
		"mentalHealthCategory": p.MentalHealthCategory == nil,
		"cashGapInsight":       p.CashGapInsight == nil,
		"paydayStrategy":       p.PaydayStrategy == nil,
		"spenderPersonality":   p.SpenderPersonality == nil,
		"advice":               p.Advice == nil,
		"status":               p.Status == nil,
	})
	if missing != "" {
		return nil, &domain.ErrExternalService{
			Service: "gemini",
			Err:     fmt.Errorf("analysis response missing required field %q", missing),
		}
	}

	a := &domain.MonthlyAnalysis{
		Summary:              *p.Summary,
		MentalHealthScore:    *p.MentalHealthScore,
		MentalHealthCategory: *p.MentalHealthCategory,
		CashGapInsight:       *p.CashGapInsight,
		PaydayStrategy:       *p.PaydayStrategy,
		SpenderPersonality:   *p.SpenderPersonality,
		Advice:               *p.Advice,
		Status:               *p.Status,
	}
	if p.PredictionDays != nil {
		a.PredictionDays = *p.PredictionDays
	}

	if err := a.Validate(); err != nil {
		return nil, &domain.ErrExternalService{Service: "gemini", Err: err}
	}
	return a, nil
}

type savingsPayload struct {
	IsRealistic      *bool     `json:"isRealistic"`
	Explanation      *string   `json:"explanation"`
	MicroSavingsTips *[]string `json:"microSavingsTips"`
	DailyTarget      *float64  `json:"dailyTarget"`
	WeeklyTarget     *float64  `json:"weeklyTarget"`
	SavingTips       *[]string `json:"savingTips"`
	ExtraDays        *float64  `json:"extraDays"`
	StressReduction  *float64  `json:"stressReduction"`
}

func parseSavingsPlan(raw []byte) (*domain.SavingsPlan, error) {
	var p savingsPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, &domain.ErrExternalService{Service: "gemini", Err: fmt.Errorf("malformed savings payload: %w", err)}
	}

	missing := firstMissing(map[string]bool{
		"isRealistic":      p.IsRealistic == nil,
		"explanation":      p.Explanation == nil,
		"microSavingsTips": p.MicroSavingsTips == nil,
		"dailyTarget":      p.DailyTarget == nil,
		"weeklyTarget":     p.WeeklyTarget == nil,
		"savingTips":       p.SavingTips == nil,
		"extraDays":        p.ExtraDays == nil,
		"stressReduction":  p.StressReduction == nil,
	})
	if missing != "" {
		return nil, &domain.ErrExternalService{
			Service: "gemini",
			Err:     fmt.Errorf("savings response missing required field %q", missing),
		}
	}

	plan := &domain.SavingsPlan{
		IsRealistic:      *p.IsRealistic,
		Explanation:      *p.Explanation,
		MicroSavingsTips: *p.MicroSavingsTips,
		DailyTarget:      *p.DailyTarget,
		WeeklyTarget:     *p.WeeklyTarget,
		SavingTips:       *p.SavingTips,
		ExtraDays:        *p.ExtraDays,
		StressReduction:  *p.StressReduction,
	}
	if err := plan.Validate(); err != nil {
		return nil, &domain.ErrExternalService{Service: "gemini", Err: err}
	}
	return plan, nil
}

type giftPayload struct {
	Name   *string  `json:"name"`
	Price  *float64 `json:"price"`
	Shop   *string  `json:"shop"`
	Reason *string  `json:"reason"`
}

func parseGiftSuggestions(raw []byte) ([]domain.GiftSuggestion, error) {
	var items []giftPayload
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, &domain.ErrExternalService{Service: "gemini", Err: fmt.Errorf("malformed gift payload: %w", err)}
	}

	suggestions := make([]domain.GiftSuggestion, 0, len(items))
	for i, item := range items {
		missing := firstMissing(map[string]bool{
			"name":   item.Name == nil,
			"price":  item.Price == nil,
			"shop":   item.Shop == nil,
			"reason": item.Reason == nil,
		})
		if missing != "" {
			return nil, &domain.ErrExternalService{
				Service: "gemini",
				Err:     fmt.Errorf("gift suggestion %d missing required field %q", i, missing),
			}
		}
		if *item.Price < 0 {
			return nil, &domain.ErrExternalService{
				Service: "gemini",
				Err:     fmt.Errorf("gift suggestion %d has negative price", i),
			}
		}
		suggestions = append(suggestions, domain.GiftSuggestion{
			Name:   *item.Name,
			Price:  *item.Price,
			Shop:   *item.Shop,
			Reason: *item.Reason,
		})
	}
	return suggestions, nil
}

// firstMissing returns the name of one missing field, or "" if none are.
func firstMissing(fields map[string]bool) string {
	for name, absent := range fields {
		if absent {
			return name
		}
	}
	return ""
}
