package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"budget/internal/log"
	"budget/internal/middleware/ratelimit"
	"budget/internal/middleware/security"
	"budget/internal/middleware/trace"
	"budget/internal/services"
)

// Deps are the services the API is served from.
type Deps struct {
	Ledger    *services.LedgerService
	Dashboard *services.DashboardService
	Backups   *services.BackupService
	// Ready reports whether the backing store can serve requests. Nil
	// means always ready.
	Ready func(context.Context) error
	// WriteLimit caps mutating requests per client per minute. Zero
	// disables the limit.
	WriteLimit int
	Logger     *log.Logger
}

type Server struct {
	http.Server
	ledger    *services.LedgerService
	dashboard *services.DashboardService
	backups   *services.BackupService
	ready     func(context.Context) error
	trace     *trace.Middleware
	limiter   *ratelimit.Limiter

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.New(log.Config{Handler: slog.Default().Handler(), Component: log.ComponentHTTP})
	}
	clientIPs := security.NewClientIPResolver()

	s := &Server{
		ledger:    deps.Ledger,
		dashboard: deps.Dashboard,
		backups:   deps.Backups,
		ready:     deps.Ready,
		trace:     trace.NewMiddleware(clientIPs.ClientIP),
	}

	mux := http.NewServeMux()
	s.routes(mux)

	var handler http.Handler = mux
	if deps.WriteLimit > 0 {
		s.limiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: deps.WriteLimit})
		writes := []string{http.MethodPost, http.MethodPut, http.MethodDelete}
		handler = s.limiter.Middleware(writes, clientIPs.ClientIP, writeRateLimited)(handler)
	}
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = log.RequestIDMiddleware(trace.RequestIDFromRequest)(handler)
	handler = log.Middleware(logger)(handler)
	handler = s.trace.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/accounts", s.handleListAccounts)
	mux.HandleFunc("POST /api/accounts", s.handleCreateAccount)
	mux.HandleFunc("GET /api/accounts/{id}", s.handleGetAccount)
	mux.HandleFunc("PUT /api/accounts/{id}", s.handleUpdateAccount)
	mux.HandleFunc("DELETE /api/accounts/{id}", s.handleDeleteAccount)
	mux.HandleFunc("POST /api/accounts/{id}/advance-due-date", s.handleAdvanceDueDate)

	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("DELETE /api/transactions", s.handleDeleteTransactions)
	mux.HandleFunc("GET /api/transactions/export.csv", s.handleExportCSV)
	mux.HandleFunc("GET /api/transactions/{id}", s.handleGetTransaction)
	mux.HandleFunc("PUT /api/transactions/{id}", s.handleUpdateTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)

	mux.HandleFunc("GET /api/budgets", s.handleListBudgets)
	mux.HandleFunc("GET /api/budgets/{year}/{month}", s.handleGetBudget)
	mux.HandleFunc("PUT /api/budgets/{year}/{month}", s.handleSaveBudget)
	mux.HandleFunc("DELETE /api/budgets/{year}/{month}", s.handleDeleteBudget)
	mux.HandleFunc("POST /api/budgets/{year}/{month}/income-sources", s.handleAddIncomeSource)
	mux.HandleFunc("DELETE /api/budgets/{year}/{month}/income-sources/{id}", s.handleRemoveIncomeSource)
	mux.HandleFunc("POST /api/budgets/{year}/{month}/zero", s.handleZeroBudget)

	mux.HandleFunc("GET /api/goals", s.handleListGoals)
	mux.HandleFunc("POST /api/goals", s.handleCreateGoal)
	mux.HandleFunc("GET /api/goals/progress", s.handleGoalProgress)
	mux.HandleFunc("GET /api/goals/{id}", s.handleGetGoal)
	mux.HandleFunc("PUT /api/goals/{id}", s.handleUpdateGoal)
	mux.HandleFunc("DELETE /api/goals/{id}", s.handleDeleteGoal)
	mux.HandleFunc("POST /api/goals/{id}/amount", s.handleUpdateGoalAmount)

	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /api/net-worth", s.handleNetWorth)
	mux.HandleFunc("GET /api/trends", s.handleTrends)
	mux.HandleFunc("GET /api/headline", s.handleHeadline)

	mux.HandleFunc("GET /api/settings", s.handleGetSettings)
	mux.HandleFunc("PUT /api/settings", s.handleUpdateSettings)

	mux.HandleFunc("POST /api/backup", s.handleCreateBackup)
	mux.HandleFunc("GET /api/backups", s.handleListBackups)
	mux.HandleFunc("POST /api/reset", s.handleReset)
}

// Metrics returns request counters collected by the trace middleware.
func (s *Server) Metrics() trace.Metrics {
	return s.trace.GetMetrics()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.limiter != nil {
			s.limiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// RateLimitMetrics reports write throttling, or zero when no limit is set.
func (s *Server) RateLimitMetrics() ratelimit.Metrics {
	if s.limiter == nil {
		return ratelimit.Metrics{}
	}
	return s.limiter.GetMetrics()
}

func writeRateLimited(w http.ResponseWriter, r *http.Request, retryAfter time.Duration) {
	seconds := int(retryAfter.Round(time.Second).Seconds())
	if seconds < 1 {
		seconds = 1
	}
	ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded", trace.GetRequestID(r.Context())).
		Header("Retry-After", strconv.Itoa(seconds)).
		Write(w)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", "error", err)
			ErrorResponse(http.StatusServiceUnavailable, "not ready", trace.GetRequestID(r.Context())).Write(w)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
