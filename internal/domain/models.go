// Package domain holds the core types of the expense tracker:
// user profile, month aggregates, ledger entries and coaching payloads.
package domain

import (
	"fmt"
	"time"
)

// ============================================================
// Profile enumerations
// ============================================================

type Gender string

const (
	GenderMale        Gender = "Male"
	GenderFemale      Gender = "Female"
	GenderUnspecified Gender = "Prefer not to say"
)

type RelationshipStatus string

const (
	StatusSingle         RelationshipStatus = "Single"
	StatusInRelationship RelationshipStatus = "In a Relationship"
	StatusMarried        RelationshipStatus = "Married"
)

type PartnerType string

const (
	PartnerNone       PartnerType = "None"
	PartnerBoyfriend  PartnerType = "Boyfriend"
	PartnerGirlfriend PartnerType = "Girlfriend"
	PartnerHusband    PartnerType = "Husband"
	PartnerWife       PartnerType = "Wife"
)

type IncomeSource string

const (
	IncomeGuardian IncomeSource = "Guardian Support"
	IncomeJob      IncomeSource = "Job Salary"
	IncomeBoth     IncomeSource = "Both"
)

type LifeMode string

const (
	ModeStudent      LifeMode = "Student"
	ModeJobHolder    LifeMode = "Job Holder"
	ModeRelationship LifeMode = "Relationship Focus"
	ModeMarried      LifeMode = "Married Life"
)

type LifeEvent string

const (
	EventNormal     LifeEvent = "Normal Month"
	EventFestival   LifeEvent = "Festival/Eid Month"
	EventWedding    LifeEvent = "Wedding Season"
	EventExam       LifeEvent = "Exam Month"
	EventTransition LifeEvent = "Job Transition"
)

// ============================================================
// Ledger enumerations
// ============================================================

// ExpenseType is the Need/Want/Emotional nature of a spend.
type ExpenseType string

const (
	ExpenseNeed      ExpenseType = "Need"
	ExpenseWant      ExpenseType = "Want"
	ExpenseEmotional ExpenseType = "Emotional"
)

// ValidExpenseType reports whether t is one of the known natures.
func ValidExpenseType(t ExpenseType) bool {
	switch t {
	case ExpenseNeed, ExpenseWant, ExpenseEmotional:
		return true
	}
	return false
}

// PaymentMethod is the payment channel: cash or one of the local
// mobile/bank channels.
type PaymentMethod string

const (
	PayCash   PaymentMethod = "Cash"
	PayBkash  PaymentMethod = "bKash"
	PayNagad  PaymentMethod = "Nagad"
	PayRocket PaymentMethod = "Rocket"
	PayCard   PaymentMethod = "Bank Card"
)

// ValidPaymentMethod reports whether m is a known payment channel.
func ValidPaymentMethod(m PaymentMethod) bool {
	switch m {
	case PayCash, PayBkash, PayNagad, PayRocket, PayCard:
		return true
	}
	return false
}

// Mood is how the user felt at the time of the spend.
type Mood string

const (
	MoodHappy    Mood = "Happy"
	MoodNeutral  Mood = "Neutral"
	MoodStressed Mood = "Stressed"
)

// ValidMood reports whether m is a known mood.
func ValidMood(m Mood) bool {
	switch m {
	case MoodHappy, MoodNeutral, MoodStressed:
		return true
	}
	return false
}

// SavingsFlexibility is how strictly a savings goal should be enforced.
type SavingsFlexibility string

const (
	SavingsStrict   SavingsFlexibility = "Strict"
	SavingsFlexible SavingsFlexibility = "Flexible"
)

// BorrowLendType is the direction of a borrow/lend entry.
type BorrowLendType string

const (
	// EntryBorrow is money received as debt.
	EntryBorrow BorrowLendType = "borrow"
	// EntryLend is money given out as credit.
	EntryLend BorrowLendType = "lend"
)

// ============================================================
// Aggregates
// ============================================================

// Profile is the singleton per-user profile, mutated wholesale via settings.
type Profile struct {
	Name         string             `json:"name"`
	Gender       Gender             `json:"gender"`
	Status       RelationshipStatus `json:"status"`
	PartnerType  PartnerType        `json:"partnerType"`
	IncomeSource IncomeSource       `json:"incomeSource"`
	LifeMode     LifeMode           `json:"lifeMode"`
	LifeEvent    LifeEvent          `json:"lifeEvent"`
}

// Expense is immutable once created.
type Expense struct {
	ID            string        `json:"id"`
	Amount        float64       `json:"amount"`
	Category      string        `json:"category"`
	SubCategory   string        `json:"subCategory"`
	Type          ExpenseType   `json:"type"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
	Mood          Mood          `json:"mood"`
	Date          time.Time     `json:"date"`
	Description   string        `json:"description"`
}

// Income is a single money-in entry.
type Income struct {
	ID     string    `json:"id"`
	Amount float64   `json:"amount"`
	Source string    `json:"source"`
	Date   time.Time `json:"date"`
}

// BorrowLendEntry tracks money borrowed from or lent to a counterparty.
type BorrowLendEntry struct {
	ID       string         `json:"id"`
	Type     BorrowLendType `json:"type"`
	Amount   float64        `json:"amount"`
	Person   string         `json:"person"`
	Date     time.Time      `json:"date"`
	Resolved bool           `json:"resolved"`
}

// SavingsGoal is the at-most-one active goal per month.
// Setting a new goal overwrites the old one, never merges.
type SavingsGoal struct {
	Amount      float64            `json:"amount"`
	Purpose     string             `json:"purpose"`
	Flexibility SavingsFlexibility `json:"flexibility"`
}

// Month is one calendar month's ledger, keyed YYYY-MM.
// Entry lists are append-only.
type Month struct {
	ID           string            `json:"id"`
	MonthName    string            `json:"monthName"`
	TotalIncome  float64           `json:"totalIncome"`
	Incomes      []Income          `json:"incomes"`
	Expenses     []Expense         `json:"expenses"`
	BorrowLend   []BorrowLendEntry `json:"borrowLend"`
	TargetBudget float64           `json:"targetBudget"`
	SavingsGoal  *SavingsGoal      `json:"savingsGoal,omitempty"`
}

// Account is the authentication identity. Created on first successful
// registration, destroyed entirely on logout.
type Account struct {
	ID           string     `json:"id"`
	Email        string     `json:"email,omitempty"`
	Phone        string     `json:"phone,omitempty"`
	PasswordHash string     `json:"passwordHash"`
	CreatedAt    time.Time  `json:"createdAt"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty"`
}

// Session is the authenticated context passed to the ledger and coach
// services. Built on login, torn down on logout.
type Session struct {
	AccountID string
	Profile   *Profile
}

// ============================================================
// Month helpers
// ============================================================

// MonthID returns the YYYY-MM identifier for t.
func MonthID(t time.Time) string {
	return fmt.Sprintf("%04d-%02d", t.Year(), int(t.Month()))
}

// MonthDisplayName returns the human-readable name, e.g. "March 2026".
func MonthDisplayName(t time.Time) string {
	return t.Format("January 2006")
}

// DaysInMonth returns the number of days in t's calendar month.
func DaysInMonth(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
}

// CategoryGroups is the fixed expense taxonomy, grouped for the client.
var CategoryGroups = map[string][]string{
	"FIXED": {
		"House Rent",
		"Electricity/Gas/Water",
		"Internet/Mobile",
		"Tuition",
		"Subscriptions",
		"Food",
		"Transportation",
	},
	"DAILY": {
		"Food",
		"Smoking",
		"Tea/Snacks",
		"Entertainment",
		"Emergency",
	},
	"RELATIONSHIP": {
		"Birthday Treat",
		"Anniversary",
		"Gifts & Surprises",
		"Date/Outing",
		"Party Contribution",
		"Wedding Gift",
	},
	"SHOPPING": {
		"Clothing",
		"Cosmetics/Grooming",
		"Gadgets",
		"Online Shopping",
	},
	"FAMILY": {
		"Money to Parents",
		"Festival Shopping",
		"Family Emergency",
	},
}
