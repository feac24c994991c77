package finance

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"budget/internal/core"
)

// UnlinkedGoalsGroup names the group of goals without an account.
const UnlinkedGoalsGroup = "Unlinked Goals"

// GoalSort selects the ordering of a goal list.
type GoalSort string

const (
	SortByCreated   GoalSort = "created"
	SortByProgress  GoalSort = "progress"
	SortByDeadline  GoalSort = "deadline"
	SortByRemaining GoalSort = "remaining"
)

// GoalProgress is the derived state of one savings goal.
type GoalProgress struct {
	Goal            core.SavingsGoal `json:"goal"`
	ProgressRatio   decimal.Decimal  `json:"progress_ratio"`
	ProgressPercent decimal.Decimal  `json:"progress_percent"`
	IsComplete      bool             `json:"is_complete"`
	RemainingAmount decimal.Decimal  `json:"remaining_amount"`
	DaysRemaining   *int             `json:"days_remaining,omitempty"`
	IsPastDeadline  bool             `json:"is_past_deadline"`
	MonthsRemaining *int             `json:"months_remaining,omitempty"`
	// RequiredMonthlyContribution is set only for open goals with a future
	// deadline at least one whole month away.
	RequiredMonthlyContribution *decimal.Decimal `json:"required_monthly_contribution,omitempty"`
}

// TrackGoal derives progress for a goal as of now.
func TrackGoal(g core.SavingsGoal, now time.Time) GoalProgress {
	p := GoalProgress{
		Goal:            g,
		ProgressRatio:   decimal.Zero,
		IsComplete:      g.CurrentAmount.GreaterThanOrEqual(g.TargetAmount),
		RemainingAmount: decimal.Max(decimal.Zero, g.TargetAmount.Sub(g.CurrentAmount)),
	}
	if g.TargetAmount.IsPositive() {
		ratio := g.CurrentAmount.Div(g.TargetAmount)
		p.ProgressRatio = decimal.Min(decimal.Max(ratio, decimal.Zero), decimal.NewFromInt(1))
	}
	p.ProgressPercent = p.ProgressRatio.Mul(hundred).Round(1)

	if g.Deadline == nil {
		return p
	}
	days := core.DaysBetween(now, *g.Deadline)
	months := WholeMonthsBetween(now, *g.Deadline)
	p.DaysRemaining = &days
	p.MonthsRemaining = &months
	p.IsPastDeadline = days < 0

	if !p.IsComplete && days > 0 && months > 0 {
		c := p.RemainingAmount.Div(decimal.NewFromInt(int64(months))).Round(2)
		p.RequiredMonthlyContribution = &c
	}
	return p
}

// TrackGoals derives progress for every goal, preserving order.
func TrackGoals(goals []core.SavingsGoal, now time.Time) []GoalProgress {
	out := make([]GoalProgress, 0, len(goals))
	for _, g := range goals {
		out = append(out, TrackGoal(g, now))
	}
	return out
}

// WholeMonthsBetween counts complete calendar months from one date to another,
// ignoring the time of day. Negative when to is before from.
func WholeMonthsBetween(from, to time.Time) int {
	from = core.StartOfDay(from)
	to = core.StartOfDay(to.In(from.Location()))
	months := (to.Year()-from.Year())*12 + int(to.Month()-from.Month())
	switch {
	case months > 0 && core.AddMonths(from, months).After(to):
		months--
	case months < 0 && core.AddMonths(from, months).Before(to):
		months++
	}
	return months
}

// FilterGoals drops completed goals unless includeCompleted is set.
func FilterGoals(goals []GoalProgress, includeCompleted bool) []GoalProgress {
	if includeCompleted {
		return goals
	}
	out := make([]GoalProgress, 0, len(goals))
	for _, g := range goals {
		if !g.IsComplete {
			out = append(out, g)
		}
	}
	return out
}

// SortGoals orders goals in place. Newest first by default; goals without a
// deadline sort after those with one.
func SortGoals(goals []GoalProgress, by GoalSort) {
	sort.SliceStable(goals, func(i, j int) bool {
		a, b := goals[i], goals[j]
		switch by {
		case SortByProgress:
			return a.ProgressRatio.GreaterThan(b.ProgressRatio)
		case SortByRemaining:
			return a.RemainingAmount.LessThan(b.RemainingAmount)
		case SortByDeadline:
			if a.Goal.Deadline == nil || b.Goal.Deadline == nil {
				return a.Goal.Deadline != nil && b.Goal.Deadline == nil
			}
			return a.Goal.Deadline.Before(*b.Goal.Deadline)
		default:
			return a.Goal.CreatedAt.After(b.Goal.CreatedAt)
		}
	})
}

// GroupGoalsByAccount buckets goals under their account's name.
func GroupGoalsByAccount(goals []GoalProgress, accountNames map[uuid.UUID]string) map[string][]GoalProgress {
	groups := make(map[string][]GoalProgress)
	for _, g := range goals {
		key := UnlinkedGoalsGroup
		if g.Goal.AccountID != nil {
			if name, ok := accountNames[*g.Goal.AccountID]; ok {
				key = name
			}
		}
		groups[key] = append(groups[key], g)
	}
	return groups
}
