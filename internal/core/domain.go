package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	Checking   AccountType = "checking"
	Savings    AccountType = "savings"
	Investment AccountType = "investment"
	OtherAsset AccountType = "other"
	CreditCard AccountType = "creditcard"
	Loan       AccountType = "loan"
	Mortgage   AccountType = "mortgage"
	OtherDebt  AccountType = "otherdebt"
)

const (
	Expense TransactionType = "expense"
	Income  TransactionType = "income"
)

const (
	Monthly  IncomeFrequency = "monthly"
	Biweekly IncomeFrequency = "biweekly"
	Weekly   IncomeFrequency = "weekly"
)

// UncategorizedCategory is used for transactions saved without a category.
const UncategorizedCategory = "Uncategorized"

// SuggestedCategories is the fixed list offered when entering a transaction.
var SuggestedCategories = []string{
	"Food", "Transportation", "Housing", "Entertainment",
	"Shopping", "Utilities", "Healthcare", "Education",
	"Travel", "Personal", "Income", UncategorizedCategory,
}

type (
	AccountType     string
	TransactionType string
	IncomeFrequency string

	Account struct {
		ID           uuid.UUID       `json:"id"`
		Name         string          `json:"name"`
		Type         AccountType     `json:"type"`
		Balance      decimal.Decimal `json:"balance"`
		IsDebt       bool            `json:"is_debt"`
		InterestRate decimal.Decimal `json:"interest_rate"` // annual percent, debt only
		DueDate      *time.Time      `json:"due_date,omitempty"`
		Icon         string          `json:"icon,omitempty"`
		Notes        string          `json:"notes,omitempty"`
	}

	Transaction struct {
		ID        uuid.UUID       `json:"id"`
		Title     string          `json:"title"`
		Amount    decimal.Decimal `json:"amount"`
		Category  string          `json:"category"`
		Date      time.Time       `json:"date"`
		CreatedAt time.Time       `json:"created_at"`
		Type      TransactionType `json:"type"`
		Notes     string          `json:"notes,omitempty"`
		AccountID *uuid.UUID      `json:"account_id,omitempty"`
	}

	Budget struct {
		ID            uuid.UUID       `json:"id"`
		Amount        decimal.Decimal `json:"amount"`
		Month         string          `json:"month"` // two digits, "01".."12"
		Year          int             `json:"year"`
		Notes         string          `json:"notes,omitempty"`
		IncomeSources []IncomeSource  `json:"income_sources"`
	}

	IncomeSource struct {
		ID        uuid.UUID       `json:"id"`
		Name      string          `json:"name"`
		Amount    decimal.Decimal `json:"amount"`
		Frequency IncomeFrequency `json:"frequency"`
	}

	SavingsGoal struct {
		ID            uuid.UUID       `json:"id"`
		Name          string          `json:"name"`
		TargetAmount  decimal.Decimal `json:"target_amount"`
		CurrentAmount decimal.Decimal `json:"current_amount"`
		CreatedAt     time.Time       `json:"created_at"`
		Deadline      *time.Time      `json:"deadline,omitempty"`
		Notes         string          `json:"notes,omitempty"`
		AccountID     *uuid.UUID      `json:"account_id,omitempty"`
	}
)

// ErrValidation is matched by every input validation failure below.
var ErrValidation = errors.New("validation failed")

var (
	ErrEmptyName              = fmt.Errorf("%w: name is required", ErrValidation)
	ErrEmptyTitle             = fmt.Errorf("%w: title is required", ErrValidation)
	ErrInvalidAmount          = fmt.Errorf("%w: invalid amount", ErrValidation)
	ErrInvalidTarget          = fmt.Errorf("%w: target amount must be greater than zero", ErrValidation)
	ErrCurrentExceedsTarget   = fmt.Errorf("%w: current amount exceeds target", ErrValidation)
	ErrInvalidMonth           = fmt.Errorf("%w: invalid month", ErrValidation)
	ErrInvalidYear            = fmt.Errorf("%w: invalid year", ErrValidation)
	ErrInvalidDate            = fmt.Errorf("%w: invalid date", ErrValidation)
	ErrInvalidAccountType     = fmt.Errorf("%w: invalid account type", ErrValidation)
	ErrInvalidTransactionType = fmt.Errorf("%w: invalid transaction type", ErrValidation)
	ErrInvalidFrequency       = fmt.Errorf("%w: invalid income frequency", ErrValidation)
	ErrInvalidInterestRate    = fmt.Errorf("%w: invalid interest rate", ErrValidation)
	ErrDuplicateAccountName   = fmt.Errorf("%w: account name already exists", ErrValidation)
	ErrDebtFieldsOnAsset      = fmt.Errorf("%w: interest rate and due date apply to debt accounts only", ErrValidation)
)

const maxTextLength = 200

// IsDebt reports whether accounts of this type hold money owed.
func (t AccountType) IsDebt() bool {
	switch t {
	case CreditCard, Loan, Mortgage, OtherDebt:
		return true
	}
	return false
}

func (t AccountType) Valid() bool {
	switch t {
	case Checking, Savings, Investment, OtherAsset, CreditCard, Loan, Mortgage, OtherDebt:
		return true
	}
	return false
}

// ParseAccountType accepts the stored tag ("creditcard") as well as the
// display label ("Credit Card").
func ParseAccountType(s string) (AccountType, error) {
	t := AccountType(strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", "")))
	if !t.Valid() {
		return "", ErrInvalidAccountType
	}
	return t, nil
}

func (t TransactionType) Valid() bool {
	return t == Expense || t == Income
}

// Multiplier converts one payment at this frequency into a monthly equivalent.
// The factors are fixed approximations, not calendar-exact.
func (f IncomeFrequency) Multiplier() decimal.Decimal {
	switch f {
	case Biweekly:
		return decimal.RequireFromString("2.17")
	case Weekly:
		return decimal.RequireFromString("4.33")
	default:
		return decimal.NewFromInt(1)
	}
}

// ParseIncomeFrequency accepts "monthly", "biweekly", "weekly" and the
// legacy labels "Monthly", "Bi-weekly", "Weekly".
func ParseIncomeFrequency(s string) (IncomeFrequency, error) {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "-", "")) {
	case "monthly":
		return Monthly, nil
	case "biweekly":
		return Biweekly, nil
	case "weekly":
		return Weekly, nil
	}
	return "", ErrInvalidFrequency
}

// NormalizeAccountName returns the key used for case-insensitive name uniqueness.
func NormalizeAccountName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	if len(a.Name) > maxTextLength {
		return fmt.Errorf("%w: name too long (max %d characters)", ErrValidation, maxTextLength)
	}
	if !a.Type.Valid() {
		return ErrInvalidAccountType
	}
	if a.IsDebt != a.Type.IsDebt() {
		return ErrInvalidAccountType
	}
	if a.InterestRate.IsNegative() || a.InterestRate.GreaterThan(decimal.NewFromInt(100)) {
		return ErrInvalidInterestRate
	}
	if !a.IsDebt && (!a.InterestRate.IsZero() || a.DueDate != nil) {
		return ErrDebtFieldsOnAsset
	}
	return nil
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return ErrEmptyTitle
	}
	if len(t.Title) > maxTextLength {
		return fmt.Errorf("%w: title too long (max %d characters)", ErrValidation, maxTextLength)
	}
	if !t.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !t.Type.Valid() {
		return ErrInvalidTransactionType
	}
	if t.Date.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// CategoryOrDefault returns the grouping key used in spending breakdowns.
func (t Transaction) CategoryOrDefault() string {
	if c := strings.TrimSpace(t.Category); c != "" {
		return c
	}
	return UncategorizedCategory
}

func (b Budget) Validate() error {
	if _, err := b.MonthNumber(); err != nil {
		return err
	}
	if b.Year < 1900 || b.Year > 9999 {
		return ErrInvalidYear
	}
	if b.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	for _, src := range b.IncomeSources {
		if err := src.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// MonthNumber parses the two-digit month field.
func (b Budget) MonthNumber() (int, error) {
	if len(b.Month) != 2 {
		return 0, ErrInvalidMonth
	}
	m := int(b.Month[0]-'0')*10 + int(b.Month[1]-'0')
	if b.Month[0] < '0' || b.Month[0] > '9' || b.Month[1] < '0' || b.Month[1] > '9' || m < 1 || m > 12 {
		return 0, ErrInvalidMonth
	}
	return m, nil
}

// FormatMonth renders a month number in the stored two-digit form.
func FormatMonth(month int) string {
	return fmt.Sprintf("%02d", month)
}

func (s IncomeSource) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return ErrEmptyName
	}
	if s.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	switch s.Frequency {
	case Monthly, Biweekly, Weekly:
	default:
		return ErrInvalidFrequency
	}
	return nil
}

func (g SavingsGoal) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return ErrEmptyName
	}
	if len(g.Name) > maxTextLength {
		return fmt.Errorf("%w: name too long (max %d characters)", ErrValidation, maxTextLength)
	}
	if !g.TargetAmount.IsPositive() {
		return ErrInvalidTarget
	}
	if g.CurrentAmount.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}

// ValidateAmountUpdate checks a new current amount for the goal; the
// stored amount must stay within [0, target].
func (g SavingsGoal) ValidateAmountUpdate(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return ErrInvalidAmount
	}
	if amount.GreaterThan(g.TargetAmount) {
		return ErrCurrentExceedsTarget
	}
	return nil
}
