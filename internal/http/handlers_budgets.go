package http

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"budget/internal/core"
	"budget/internal/log"
	"budget/internal/store"
)

type incomeSourceRequest struct {
	ID        *uuid.UUID  `json:"id"`
	Name      string      `json:"name"`
	Amount    AmountInput `json:"amount"`
	Frequency string      `json:"frequency"`
}

func (req incomeSourceRequest) toIncomeSource() (core.IncomeSource, error) {
	amount, err := req.Amount.Unsigned()
	if err != nil {
		return core.IncomeSource{}, err
	}
	freq, err := core.ParseIncomeFrequency(req.Frequency)
	if err != nil {
		return core.IncomeSource{}, err
	}
	src := core.NewIncomeSource(sanitizeInput(req.Name), amount, freq)
	if req.ID != nil {
		src.ID = *req.ID
	}
	return src, nil
}

type budgetRequest struct {
	Amount        AmountInput           `json:"amount"`
	Notes         string                `json:"notes"`
	IncomeSources []incomeSourceRequest `json:"income_sources"`
}

func (req budgetRequest) toBudget(params MonthParams) (core.Budget, error) {
	amount, err := req.Amount.Unsigned()
	if err != nil {
		return core.Budget{}, err
	}
	sources := make([]core.IncomeSource, 0, len(req.IncomeSources))
	for _, in := range req.IncomeSources {
		src, err := in.toIncomeSource()
		if err != nil {
			return core.Budget{}, err
		}
		sources = append(sources, src)
	}
	return core.Budget{
		Amount:        amount,
		Month:         core.FormatMonth(int(params.Month)),
		Year:          params.Year,
		Notes:         sanitizeInput(req.Notes),
		IncomeSources: sources,
	}, nil
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	budgets, err := s.ledger.ListBudgets(r.Context())
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, budgets)
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	params, err := PathMonth(r)
	if err != nil {
		writeError(w, r, log.OpParse, err)
		return
	}
	b, err := s.ledger.GetBudget(r.Context(), params.Year, params.Month)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	if b == nil {
		writeError(w, r, log.OpRead, fmt.Errorf("budget %d-%02d: %w", params.Year, params.Month, store.ErrNotFound))
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// handleSaveBudget creates or replaces the month's budget.
func (s *Server) handleSaveBudget(w http.ResponseWriter, r *http.Request) {
	params, err := PathMonth(r)
	if err != nil {
		writeError(w, r, log.OpParse, err)
		return
	}
	var req budgetRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpParse, err)
		return
	}
	b, err := req.toBudget(params)
	if err != nil {
		writeError(w, r, log.OpValidate, err)
		return
	}
	saved, err := s.ledger.SaveBudget(r.Context(), b)
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Budget saved",
		log.NewFields().
			WithPeriod(params.Year, int(params.Month)).
			ToSlice()...)
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	params, err := PathMonth(r)
	if err != nil {
		writeError(w, r, log.OpParse, err)
		return
	}
	if err := s.ledger.DeleteBudget(r.Context(), params.Year, params.Month); err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddIncomeSource(w http.ResponseWriter, r *http.Request) {
	params, err := PathMonth(r)
	if err != nil {
		writeError(w, r, log.OpParse, err)
		return
	}
	var req incomeSourceRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpParse, err)
		return
	}
	src, err := req.toIncomeSource()
	if err != nil {
		writeError(w, r, log.OpValidate, err)
		return
	}
	b, err := s.ledger.AddIncomeSource(r.Context(), params.Year, params.Month, src)
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (s *Server) handleRemoveIncomeSource(w http.ResponseWriter, r *http.Request) {
	params, err := PathMonth(r)
	if err != nil {
		writeError(w, r, log.OpParse, err)
		return
	}
	id, err := PathUUID(r, "id")
	if err != nil {
		writeError(w, r, log.OpParse, err)
		return
	}
	b, err := s.ledger.RemoveIncomeSource(r.Context(), params.Year, params.Month, id)
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleZeroBudget(w http.ResponseWriter, r *http.Request) {
	params, err := PathMonth(r)
	if err != nil {
		writeError(w, r, log.OpParse, err)
		return
	}
	b, err := s.ledger.ZeroBudget(r.Context(), params.Year, params.Month)
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}
