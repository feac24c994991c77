package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"budget/internal/core"
	"budget/internal/finance"
	"budget/internal/store"
)

const (
	// TrendMonths is the length of the monthly spending trend.
	TrendMonths        = 6
	recentTransactions = 5
)

// Snapshot is the ledger state a dashboard is computed from.
type Snapshot struct {
	Budget       *core.Budget
	Transactions []core.Transaction
	Accounts     []core.Account
	Goals        []core.SavingsGoal
	Settings     core.Settings
}

// AccountView adds the derived due-date and interest figures to an account.
type AccountView struct {
	core.Account
	MonthlyInterest decimal.Decimal `json:"monthly_interest"`
	DaysUntilDue    *int            `json:"days_until_due,omitempty"`
	IsPastDue       bool            `json:"is_past_due"`
}

// Trends holds the weekly and monthly spending series.
type Trends struct {
	Weekly  []finance.SpendingPoint `json:"weekly"`
	Monthly []finance.SpendingPoint `json:"monthly"`
}

// GoalsReport lists goal progress, also grouped by linked account name.
type GoalsReport struct {
	Goals  []finance.GoalProgress            `json:"goals"`
	Groups map[string][]finance.GoalProgress `json:"groups"`
}

// Dashboard is everything the overview screen shows for one month.
type Dashboard struct {
	Summary            finance.MonthSummary   `json:"summary"`
	NetWorth           finance.NetWorth       `json:"net_worth"`
	Accounts           []AccountView          `json:"accounts"`
	Goals              []finance.GoalProgress `json:"goals"`
	Trends             Trends                 `json:"trends"`
	RecentTransactions []core.Transaction     `json:"recent_transactions"`
	Settings           core.Settings          `json:"settings"`
	GeneratedAt        time.Time              `json:"generated_at"`
}

// DashboardService runs the finance engine over ledger snapshots.
type DashboardService struct {
	store    store.Store
	currency string
	now      func() time.Time
}

func NewDashboardService(st store.Store, currency string, loc *time.Location) *DashboardService {
	if loc == nil {
		loc = time.Local
	}
	return &DashboardService{
		store:    st,
		currency: currency,
		now:      func() time.Time { return time.Now().In(loc) },
	}
}

// LoadSnapshot reads the month's budget and the full ledger concurrently.
func (s *DashboardService) LoadSnapshot(ctx context.Context, year int, month time.Month) (Snapshot, error) {
	var snap Snapshot
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		b, err := s.store.GetBudget(gctx, year, int(month))
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get budget: %w", err)
		}
		snap.Budget = &b
		return nil
	})
	g.Go(func() error {
		txs, err := s.store.ListTransactions(gctx, store.TransactionFilter{})
		if err != nil {
			return fmt.Errorf("list transactions: %w", err)
		}
		snap.Transactions = txs
		return nil
	})
	g.Go(func() error {
		accounts, err := s.store.ListAccounts(gctx)
		if err != nil {
			return fmt.Errorf("list accounts: %w", err)
		}
		snap.Accounts = accounts
		return nil
	})
	g.Go(func() error {
		goals, err := s.store.ListGoals(gctx)
		if err != nil {
			return fmt.Errorf("list goals: %w", err)
		}
		snap.Goals = goals
		return nil
	})
	g.Go(func() error {
		settings, err := s.store.LoadSettings(gctx)
		if errors.Is(err, store.ErrNotFound) {
			settings = core.DefaultSettings(s.currency)
		} else if err != nil {
			return fmt.Errorf("load settings: %w", err)
		}
		snap.Settings = settings
		return nil
	})

	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// MonthSummary aggregates one month. A month without a budget still reports
// spending.
func (s *DashboardService) MonthSummary(ctx context.Context, year int, month time.Month) (finance.MonthSummary, error) {
	now := s.now()
	b, err := s.store.GetBudget(ctx, year, int(month))
	var budget *core.Budget
	switch {
	case err == nil:
		budget = &b
	case !errors.Is(err, store.ErrNotFound):
		return finance.MonthSummary{}, fmt.Errorf("get budget: %w", err)
	}

	from, to := finance.MonthBounds(year, month, now.Location())
	txs, err := s.store.ListTransactions(ctx, store.TransactionFilter{From: from, To: to})
	if err != nil {
		return finance.MonthSummary{}, fmt.Errorf("list transactions: %w", err)
	}
	return finance.SummarizeMonth(budget, txs, year, month, now), nil
}

// NetWorth totals account balances and estimates the prior month.
func (s *DashboardService) NetWorth(ctx context.Context) (finance.NetWorth, error) {
	g, gctx := errgroup.WithContext(ctx)
	var (
		accounts []core.Account
		txs      []core.Transaction
	)
	g.Go(func() (err error) {
		accounts, err = s.store.ListAccounts(gctx)
		return err
	})
	g.Go(func() (err error) {
		txs, err = s.store.ListTransactions(gctx, store.TransactionFilter{})
		return err
	})
	if err := g.Wait(); err != nil {
		return finance.NetWorth{}, fmt.Errorf("load net worth inputs: %w", err)
	}
	return finance.EstimateNetWorth(accounts, txs, s.now()), nil
}

// Goals tracks every goal, optionally hiding completed ones, in the given order.
func (s *DashboardService) Goals(ctx context.Context, includeCompleted bool, sortBy finance.GoalSort) (GoalsReport, error) {
	g, gctx := errgroup.WithContext(ctx)
	var (
		goals    []core.SavingsGoal
		accounts []core.Account
	)
	g.Go(func() (err error) {
		goals, err = s.store.ListGoals(gctx)
		return err
	})
	g.Go(func() (err error) {
		accounts, err = s.store.ListAccounts(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return GoalsReport{}, fmt.Errorf("load goals: %w", err)
	}

	progress := finance.FilterGoals(finance.TrackGoals(goals, s.now()), includeCompleted)
	finance.SortGoals(progress, sortBy)
	return GoalsReport{
		Goals:  progress,
		Groups: finance.GroupGoalsByAccount(progress, accountNames(accounts)),
	}, nil
}

// Trends returns the last seven days and the last TrendMonths months of spending.
func (s *DashboardService) Trends(ctx context.Context) (Trends, error) {
	now := s.now()
	txs, err := s.store.ListTransactions(ctx, store.TransactionFilter{
		From: finance.TrendWindowStart(now, TrendMonths),
		Type: core.Expense,
	})
	if err != nil {
		return Trends{}, fmt.Errorf("list transactions: %w", err)
	}
	return trendsFor(txs, now), nil
}

// Dashboard computes the full overview for one month.
func (s *DashboardService) Dashboard(ctx context.Context, year int, month time.Month) (Dashboard, error) {
	snap, err := s.LoadSnapshot(ctx, year, month)
	if err != nil {
		return Dashboard{}, err
	}
	now := s.now()
	d := BuildDashboard(snap, year, month, now)
	slog.DebugContext(ctx, "Dashboard computed",
		"year", year,
		"month", int(month),
		"transactions", len(snap.Transactions),
		"accounts", len(snap.Accounts),
		"goals", len(snap.Goals))
	return d, nil
}

// BuildDashboard runs every aggregation over snap as of now.
func BuildDashboard(snap Snapshot, year int, month time.Month, now time.Time) Dashboard {
	goals := finance.TrackGoals(snap.Goals, now)
	finance.SortGoals(goals, finance.SortByCreated)

	recent := snap.Transactions
	if len(recent) > recentTransactions {
		recent = recent[:recentTransactions]
	}

	return Dashboard{
		Summary:            finance.SummarizeMonth(snap.Budget, snap.Transactions, year, month, now),
		NetWorth:           finance.EstimateNetWorth(snap.Accounts, snap.Transactions, now),
		Accounts:           AccountViews(snap.Accounts, now),
		Goals:              goals,
		Trends:             trendsFor(snap.Transactions, now),
		RecentTransactions: append([]core.Transaction{}, recent...),
		Settings:           snap.Settings,
		GeneratedAt:        now,
	}
}

// AccountViews derives due-date and interest figures for each account.
func AccountViews(accounts []core.Account, now time.Time) []AccountView {
	views := make([]AccountView, 0, len(accounts))
	for _, a := range accounts {
		views = append(views, AccountView{
			Account:         a,
			MonthlyInterest: a.MonthlyInterestAmount(),
			DaysUntilDue:    a.DaysUntilDue(now),
			IsPastDue:       a.IsPastDue(now),
		})
	}
	return views
}

func trendsFor(txs []core.Transaction, now time.Time) Trends {
	return Trends{
		Weekly:  finance.WeeklySpending(txs, now),
		Monthly: finance.MonthlySpending(txs, now, TrendMonths),
	}
}

func accountNames(accounts []core.Account) map[uuid.UUID]string {
	names := make(map[uuid.UUID]string, len(accounts))
	for _, a := range accounts {
		names[a.ID] = a.Name
	}
	return names
}
