package http

import (
	"net/http"

	"golang.org/x/sync/errgroup"

	"budget/internal/core"
	"budget/internal/finance"
	"budget/internal/log"
	"budget/internal/services"
)

// Headline holds the formatted amounts shown at the top of the dashboard.
// Every amount is masked while privacy mode is on.
type Headline struct {
	Masked        bool   `json:"masked"`
	NetWorth      string `json:"net_worth"`
	TotalAssets   string `json:"total_assets"`
	TotalDebt     string `json:"total_debt"`
	TotalSpent    string `json:"total_spent"`
	MonthlyIncome string `json:"monthly_income"`
	Budget        string `json:"budget,omitempty"`
	Remaining     string `json:"remaining,omitempty"`
}

// BuildHeadline formats summary and net worth in the settings' currency.
func BuildHeadline(summary finance.MonthSummary, nw finance.NetWorth, settings core.Settings) Headline {
	cur, private := settings.CurrencyCode, settings.PrivacyMode
	h := Headline{
		Masked:        private,
		NetWorth:      moneyOrMask(nw.TotalNetWorth, cur, private),
		TotalAssets:   moneyOrMask(nw.TotalAssets, cur, private),
		TotalDebt:     moneyOrMask(nw.TotalDebt, cur, private),
		TotalSpent:    moneyOrMask(summary.TotalSpent, cur, private),
		MonthlyIncome: moneyOrMask(summary.TotalMonthlyIncome, cur, private),
	}
	if summary.BudgetAmount != nil {
		h.Budget = moneyOrMask(*summary.BudgetAmount, cur, private)
	}
	if summary.RemainingBudget != nil {
		h.Remaining = moneyOrMask(*summary.RemainingBudget, cur, private)
	}
	return h
}

type dashboardResponse struct {
	services.Dashboard
	Headline Headline `json:"headline"`
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	params, err := ParseMonthParams(r.URL.Query(), s.ledger.Now())
	if err != nil {
		writeError(w, r, log.OpParse, err)
		return
	}
	d, err := s.dashboard.Dashboard(r.Context(), params.Year, params.Month)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, dashboardResponse{
		Dashboard: d,
		Headline:  BuildHeadline(d.Summary, d.NetWorth, d.Settings),
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	params, err := ParseMonthParams(r.URL.Query(), s.ledger.Now())
	if err != nil {
		writeError(w, r, log.OpParse, err)
		return
	}
	summary, err := s.dashboard.MonthSummary(r.Context(), params.Year, params.Month)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleNetWorth(w http.ResponseWriter, r *http.Request) {
	nw, err := s.dashboard.NetWorth(r.Context())
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, nw)
}

func (s *Server) handleTrends(w http.ResponseWriter, r *http.Request) {
	trends, err := s.dashboard.Trends(r.Context())
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, trends)
}

func (s *Server) handleHeadline(w http.ResponseWriter, r *http.Request) {
	params, err := ParseMonthParams(r.URL.Query(), s.ledger.Now())
	if err != nil {
		writeError(w, r, log.OpParse, err)
		return
	}

	var (
		summary  finance.MonthSummary
		nw       finance.NetWorth
		settings core.Settings
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() (err error) {
		summary, err = s.dashboard.MonthSummary(ctx, params.Year, params.Month)
		return err
	})
	g.Go(func() (err error) {
		nw, err = s.dashboard.NetWorth(ctx)
		return err
	})
	g.Go(func() (err error) {
		settings, err = s.ledger.Settings(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, BuildHeadline(summary, nw, settings))
}
