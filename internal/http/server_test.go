package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"budget/internal/core"
	"budget/internal/finance"
	"budget/internal/log"
	"budget/internal/services"
	"budget/internal/store/memory"
)

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("parse decimal %q: %v", s, err)
	}
	return d
}

func newTestServer(t *testing.T, ready func(context.Context) error) *Server {
	t.Helper()
	st := memory.New()
	return NewServer(":0", Deps{
		Ledger:    services.NewLedgerService(st, nil, "USD", time.UTC),
		Dashboard: services.NewDashboardService(st, "USD", time.UTC),
		Backups:   services.NewBackupService(nil, t.TempDir()),
		Ready:     ready,
		Logger:    log.New(log.Config{Output: io.Discard, Component: log.ComponentHTTP}),
	})
}

func do(t *testing.T, srv *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func expectStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("status = %d, want %d; body: %s", rr.Code, want, rr.Body.String())
	}
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t, nil)
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(t, srv, http.MethodGet, path, "")
		expectStatus(t, rr, http.StatusOK)
	}

	failing := newTestServer(t, func(context.Context) error { return errors.New("db closed") })
	rr := do(t, failing, http.MethodGet, "/readyz", "")
	expectStatus(t, rr, http.StatusServiceUnavailable)
}

func TestMiddlewareHeaders(t *testing.T) {
	srv := newTestServer(t, nil)

	rr := do(t, srv, http.MethodGet, "/api/accounts", "")
	expectStatus(t, rr, http.StatusOK)
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing security headers")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/accounts/not-a-uuid", nil)
	req.Header.Set("X-Request-ID", "client-42")
	rr = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	expectStatus(t, rr, http.StatusBadRequest)
	body := decode[errorBody](t, rr)
	if body.RequestID != "client-42" {
		t.Errorf("request_id = %q, want client-42", body.RequestID)
	}
	if srv.Metrics().TotalRequests != 2 {
		t.Errorf("TotalRequests = %d, want 2", srv.Metrics().TotalRequests)
	}
}

func TestAccountsAPI(t *testing.T) {
	srv := newTestServer(t, nil)

	rr := do(t, srv, http.MethodPost, "/api/accounts", `{"name":"Visa","type":"Credit Card","balance":"1200","interest_rate":"19.99","due_date":"2025-01-31"}`)
	expectStatus(t, rr, http.StatusCreated)
	visa := decode[core.Account](t, rr)
	if !visa.IsDebt || visa.Type != core.CreditCard {
		t.Errorf("account = %+v, want debt credit card", visa)
	}

	tests := []struct {
		name string
		body string
		want int
	}{
		{"duplicate name ignores case", `{"name":"visa","type":"checking"}`, http.StatusConflict},
		{"unknown type", `{"name":"X","type":"piggybank"}`, http.StatusUnprocessableEntity},
		{"empty name", `{"name":"  ","type":"checking"}`, http.StatusUnprocessableEntity},
		{"debt fields on asset", `{"name":"Cash","type":"checking","interest_rate":"2"}`, http.StatusUnprocessableEntity},
		{"malformed json", `{"name":`, http.StatusBadRequest},
		{"unknown field", `{"name":"Y","type":"checking","colour":"red"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectStatus(t, do(t, srv, http.MethodPost, "/api/accounts", tt.body), tt.want)
		})
	}

	rr = do(t, srv, http.MethodPost, "/api/accounts/"+visa.ID.String()+"/advance-due-date", "")
	expectStatus(t, rr, http.StatusOK)
	advanced := decode[core.Account](t, rr)
	if advanced.DueDate == nil || advanced.DueDate.Month() != time.February || advanced.DueDate.Day() != 28 {
		t.Errorf("due date = %v, want end of February", advanced.DueDate)
	}

	rr = do(t, srv, http.MethodPost, "/api/accounts", `{"name":"Checking","type":"checking","balance":"-50"}`)
	expectStatus(t, rr, http.StatusCreated)
	checking := decode[core.Account](t, rr)
	expectStatus(t, do(t, srv, http.MethodPost, "/api/accounts/"+checking.ID.String()+"/advance-due-date", ""), http.StatusUnprocessableEntity)

	rr = do(t, srv, http.MethodPut, "/api/accounts/"+checking.ID.String(), `{"name":"Main Checking","type":"checking","balance":"75.25"}`)
	expectStatus(t, rr, http.StatusOK)

	accounts := decode[[]core.Account](t, do(t, srv, http.MethodGet, "/api/accounts", ""))
	if len(accounts) != 2 {
		t.Fatalf("got %d accounts, want 2", len(accounts))
	}

	expectStatus(t, do(t, srv, http.MethodDelete, "/api/accounts/"+checking.ID.String(), ""), http.StatusNoContent)
	expectStatus(t, do(t, srv, http.MethodGet, "/api/accounts/"+checking.ID.String(), ""), http.StatusNotFound)
}

func TestTransactionsAPI(t *testing.T) {
	srv := newTestServer(t, nil)

	rr := do(t, srv, http.MethodPost, "/api/accounts", `{"name":"Wallet","type":"checking"}`)
	expectStatus(t, rr, http.StatusCreated)
	wallet := decode[core.Account](t, rr)

	rr = do(t, srv, http.MethodPost, "/api/transactions",
		`{"title":"Lunch","amount":"12,50","category":"Food","date":"2024-03-10","account_id":"`+wallet.ID.String()+`","notes":"said \"hi\""}`)
	expectStatus(t, rr, http.StatusCreated)
	lunch := decode[core.Transaction](t, rr)
	if lunch.Type != core.Expense {
		t.Errorf("type = %q, want expense default", lunch.Type)
	}

	rr = do(t, srv, http.MethodPost, "/api/transactions", `{"title":"Pay","amount":2000,"type":"income","date":"2024-03-01"}`)
	expectStatus(t, rr, http.StatusCreated)
	pay := decode[core.Transaction](t, rr)
	if pay.Category != core.UncategorizedCategory {
		t.Errorf("category = %q, want default", pay.Category)
	}

	invalid := []struct {
		name string
		body string
		want int
	}{
		{"zero amount", `{"title":"Nothing","amount":"0","date":"2024-03-01"}`, http.StatusUnprocessableEntity},
		{"negative amount", `{"title":"Refund","amount":"-5","date":"2024-03-01"}`, http.StatusUnprocessableEntity},
		{"missing title", `{"amount":"5","date":"2024-03-01"}`, http.StatusUnprocessableEntity},
		{"bad date", `{"title":"x","amount":"5","date":"03/01/2024"}`, http.StatusUnprocessableEntity},
		{"bad type", `{"title":"x","amount":"5","type":"transfer"}`, http.StatusUnprocessableEntity},
		{"unknown account", `{"title":"x","amount":"5","account_id":"00000000-0000-0000-0000-000000000001"}`, http.StatusUnprocessableEntity},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			expectStatus(t, do(t, srv, http.MethodPost, "/api/transactions", tt.body), tt.want)
		})
	}

	march := decode[[]core.Transaction](t, do(t, srv, http.MethodGet, "/api/transactions?year=2024&month=3", ""))
	if len(march) != 2 {
		t.Fatalf("march has %d transactions, want 2", len(march))
	}
	expenses := decode[[]core.Transaction](t, do(t, srv, http.MethodGet, "/api/transactions?type=expense", ""))
	if len(expenses) != 1 || expenses[0].ID != lunch.ID {
		t.Errorf("expense filter = %+v", expenses)
	}
	april := decode[[]core.Transaction](t, do(t, srv, http.MethodGet, "/api/transactions?year=2024&month=4", ""))
	if len(april) != 0 {
		t.Errorf("april has %d transactions, want 0", len(april))
	}
	expectStatus(t, do(t, srv, http.MethodGet, "/api/transactions?month=13", ""), http.StatusBadRequest)

	rr = do(t, srv, http.MethodPut, "/api/transactions/"+lunch.ID.String(), `{"title":"Dinner","amount":"30","category":"Food","date":"2024-03-11"}`)
	expectStatus(t, rr, http.StatusOK)
	if got := decode[core.Transaction](t, rr); got.Title != "Dinner" || !got.CreatedAt.Equal(lunch.CreatedAt) {
		t.Errorf("updated = %+v", got)
	}

	summary := decode[finance.MonthSummary](t, do(t, srv, http.MethodGet, "/api/summary?year=2024&month=3", ""))
	if !summary.TotalSpent.Equal(mustDecimal(t, "30")) {
		t.Errorf("total spent = %s, want 30", summary.TotalSpent)
	}

	rr = do(t, srv, http.MethodGet, "/api/transactions/export.csv", "")
	expectStatus(t, rr, http.StatusOK)
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, "transactions_") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if !strings.HasPrefix(rr.Body.String(), "Date,Title,Amount,Category,Account,Notes\n") {
		t.Errorf("csv = %q", rr.Body.String())
	}

	expectStatus(t, do(t, srv, http.MethodDelete, "/api/transactions", ""), http.StatusBadRequest)
	rr = do(t, srv, http.MethodDelete, "/api/transactions?year=2024&month=3", "")
	expectStatus(t, rr, http.StatusOK)
	if got := decode[map[string]int](t, rr); got["deleted"] != 2 {
		t.Errorf("deleted = %d, want 2", got["deleted"])
	}
	expectStatus(t, do(t, srv, http.MethodGet, "/api/transactions/"+pay.ID.String(), ""), http.StatusNotFound)
	expectStatus(t, do(t, srv, http.MethodDelete, "/api/transactions/"+pay.ID.String(), ""), http.StatusNotFound)
}

func TestBudgetsAPI(t *testing.T) {
	srv := newTestServer(t, nil)
	base := "/api/budgets/2024/3"

	expectStatus(t, do(t, srv, http.MethodGet, base, ""), http.StatusNotFound)
	expectStatus(t, do(t, srv, http.MethodGet, "/api/budgets/2024/13", ""), http.StatusBadRequest)

	rr := do(t, srv, http.MethodPut, base, `{"amount":"2000","notes":"March","income_sources":[{"name":"Salary","amount":"3000","frequency":"monthly"}]}`)
	expectStatus(t, rr, http.StatusOK)
	saved := decode[core.Budget](t, rr)
	if saved.Month != "03" || saved.Year != 2024 || len(saved.IncomeSources) != 1 {
		t.Fatalf("saved = %+v", saved)
	}

	rr = do(t, srv, http.MethodPut, base, `{"amount":"2500","income_sources":[]}`)
	expectStatus(t, rr, http.StatusOK)
	if replaced := decode[core.Budget](t, rr); replaced.ID != saved.ID {
		t.Errorf("upsert changed id from %s to %s", saved.ID, replaced.ID)
	}
	expectStatus(t, do(t, srv, http.MethodPut, base, `{"amount":"-1"}`), http.StatusUnprocessableEntity)
	expectStatus(t, do(t, srv, http.MethodPut, base, `{"amount":"1","income_sources":[{"name":"X","amount":"1","frequency":"yearly"}]}`), http.StatusUnprocessableEntity)

	rr = do(t, srv, http.MethodPost, base+"/income-sources", `{"name":"Side gig","amount":"100","frequency":"Bi-weekly"}`)
	expectStatus(t, rr, http.StatusCreated)
	withSource := decode[core.Budget](t, rr)
	if len(withSource.IncomeSources) != 1 || withSource.IncomeSources[0].Frequency != core.Biweekly {
		t.Fatalf("income sources = %+v", withSource.IncomeSources)
	}

	rr = do(t, srv, http.MethodPost, "/api/budgets/2024/4/income-sources", `{"name":"Bonus","amount":"50","frequency":"monthly"}`)
	expectStatus(t, rr, http.StatusCreated)
	if created := decode[core.Budget](t, rr); !created.Amount.IsZero() {
		t.Errorf("implicit budget amount = %s, want 0", created.Amount)
	}

	rr = do(t, srv, http.MethodPost, base+"/zero", "")
	expectStatus(t, rr, http.StatusOK)
	zeroed := decode[core.Budget](t, rr)
	if !zeroed.Amount.IsZero() || !strings.Contains(zeroed.Notes, "Budget reset to 0") || len(zeroed.IncomeSources) != 1 {
		t.Errorf("zeroed = %+v", zeroed)
	}
	expectStatus(t, do(t, srv, http.MethodPost, "/api/budgets/2023/1/zero", ""), http.StatusNotFound)

	sourcePath := base + "/income-sources/" + withSource.IncomeSources[0].ID.String()
	rr = do(t, srv, http.MethodDelete, sourcePath, "")
	expectStatus(t, rr, http.StatusOK)
	if got := decode[core.Budget](t, rr); len(got.IncomeSources) != 0 {
		t.Errorf("income sources after remove = %d", len(got.IncomeSources))
	}
	expectStatus(t, do(t, srv, http.MethodDelete, sourcePath, ""), http.StatusNotFound)

	budgets := decode[[]core.Budget](t, do(t, srv, http.MethodGet, "/api/budgets", ""))
	if len(budgets) != 2 {
		t.Errorf("got %d budgets, want 2", len(budgets))
	}

	expectStatus(t, do(t, srv, http.MethodDelete, base, ""), http.StatusNoContent)
	expectStatus(t, do(t, srv, http.MethodGet, base, ""), http.StatusNotFound)
}

func TestGoalsAPI(t *testing.T) {
	srv := newTestServer(t, nil)

	rr := do(t, srv, http.MethodPost, "/api/goals", `{"name":"Trip","target_amount":"1000","current_amount":"100"}`)
	expectStatus(t, rr, http.StatusCreated)
	trip := decode[core.SavingsGoal](t, rr)

	expectStatus(t, do(t, srv, http.MethodPost, "/api/goals", `{"name":"Nothing","target_amount":"0"}`), http.StatusUnprocessableEntity)

	amountPath := "/api/goals/" + trip.ID.String() + "/amount"
	expectStatus(t, do(t, srv, http.MethodPost, amountPath, `{"amount":"2000"}`), http.StatusUnprocessableEntity)
	expectStatus(t, do(t, srv, http.MethodPost, amountPath, `{"amount":"-1"}`), http.StatusUnprocessableEntity)
	rr = do(t, srv, http.MethodPost, amountPath, `{"amount":"1000"}`)
	expectStatus(t, rr, http.StatusOK)
	if got := decode[core.SavingsGoal](t, rr); !got.CurrentAmount.Equal(mustDecimal(t, "1000")) {
		t.Errorf("current = %s, want 1000", got.CurrentAmount)
	}

	rr = do(t, srv, http.MethodPost, "/api/goals", `{"name":"Car","target_amount":"5000"}`)
	expectStatus(t, rr, http.StatusCreated)

	report := decode[services.GoalsReport](t, do(t, srv, http.MethodGet, "/api/goals/progress?sort=progress", ""))
	if len(report.Goals) != 2 || !report.Goals[0].IsComplete {
		t.Errorf("progress report = %+v", report.Goals)
	}
	open := decode[services.GoalsReport](t, do(t, srv, http.MethodGet, "/api/goals/progress?include_completed=false", ""))
	if len(open.Goals) != 1 || open.Goals[0].Goal.Name != "Car" {
		t.Errorf("open goals = %+v", open.Goals)
	}
	expectStatus(t, do(t, srv, http.MethodGet, "/api/goals/progress?sort=alphabet", ""), http.StatusBadRequest)

	expectStatus(t, do(t, srv, http.MethodDelete, "/api/goals/"+trip.ID.String(), ""), http.StatusNoContent)
	expectStatus(t, do(t, srv, http.MethodGet, "/api/goals/"+trip.ID.String(), ""), http.StatusNotFound)
}

func TestDashboardAndPrivacy(t *testing.T) {
	srv := newTestServer(t, nil)

	expectStatus(t, do(t, srv, http.MethodPost, "/api/accounts", `{"name":"Savings","type":"savings","balance":"1234.5"}`), http.StatusCreated)

	rr := do(t, srv, http.MethodGet, "/api/dashboard?year=2024&month=3", "")
	expectStatus(t, rr, http.StatusOK)
	var dash struct {
		Headline Headline `json:"headline"`
		Accounts []any    `json:"accounts"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &dash); err != nil {
		t.Fatalf("decode dashboard: %v", err)
	}
	if dash.Headline.NetWorth != "USD 1,234.50" || len(dash.Accounts) != 1 {
		t.Errorf("dashboard = %+v", dash)
	}

	rr = do(t, srv, http.MethodPut, "/api/settings", `{"privacy_mode":true}`)
	expectStatus(t, rr, http.StatusOK)
	if s := decode[core.Settings](t, rr); !s.PrivacyMode || s.CurrencyCode != "USD" {
		t.Errorf("settings = %+v", s)
	}

	headline := decode[Headline](t, do(t, srv, http.MethodGet, "/api/headline", ""))
	if !headline.Masked || headline.NetWorth != privacyMask || headline.TotalSpent != privacyMask {
		t.Errorf("headline = %+v, want masked", headline)
	}

	expectStatus(t, do(t, srv, http.MethodPut, "/api/settings", `{"start_day_of_month":31}`), http.StatusUnprocessableEntity)
	expectStatus(t, do(t, srv, http.MethodGet, "/api/net-worth", ""), http.StatusOK)
	expectStatus(t, do(t, srv, http.MethodGet, "/api/trends", ""), http.StatusOK)
}

func TestMaintenanceAPI(t *testing.T) {
	srv := newTestServer(t, nil)

	expectStatus(t, do(t, srv, http.MethodPost, "/api/backup", ""), http.StatusNotImplemented)
	backups := decode[[]backupView](t, do(t, srv, http.MethodGet, "/api/backups", ""))
	if len(backups) != 0 {
		t.Errorf("got %d backups, want 0", len(backups))
	}

	expectStatus(t, do(t, srv, http.MethodPost, "/api/accounts", `{"name":"Old","type":"checking"}`), http.StatusCreated)
	expectStatus(t, do(t, srv, http.MethodPost, "/api/reset", ""), http.StatusBadRequest)
	expectStatus(t, do(t, srv, http.MethodPost, "/api/reset?confirm=true", ""), http.StatusNoContent)

	accounts := decode[[]core.Account](t, do(t, srv, http.MethodGet, "/api/accounts", ""))
	for _, a := range accounts {
		if a.Name == "Old" {
			t.Error("reset kept a user account")
		}
		if !a.Balance.IsZero() {
			t.Errorf("account %s balance = %s, want 0", a.Name, a.Balance)
		}
	}
}

func TestWriteRateLimit(t *testing.T) {
	st := memory.New()
	srv := NewServer(":0", Deps{
		Ledger:     services.NewLedgerService(st, nil, "USD", time.UTC),
		Dashboard:  services.NewDashboardService(st, "USD", time.UTC),
		Backups:    services.NewBackupService(nil, t.TempDir()),
		WriteLimit: 1,
		Logger:     log.New(log.Config{Output: io.Discard, Component: log.ComponentHTTP}),
	})
	t.Cleanup(func() { srv.Shutdown(context.Background()) })

	expectStatus(t, do(t, srv, http.MethodPost, "/api/accounts", `{"name":"Cash","type":"checking","balance":"10"}`), http.StatusCreated)

	rr := do(t, srv, http.MethodPost, "/api/accounts", `{"name":"Wallet","type":"savings","balance":"5"}`)
	expectStatus(t, rr, http.StatusTooManyRequests)
	if rr.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}
	if body := decode[errorBody](t, rr); body.Error != "rate limit exceeded" || body.RequestID == "" {
		t.Errorf("unexpected body: %+v", body)
	}

	expectStatus(t, do(t, srv, http.MethodGet, "/api/accounts", ""), http.StatusOK)
	if got := srv.RateLimitMetrics().Rejected; got != 1 {
		t.Errorf("Rejected = %d, want 1", got)
	}
}
