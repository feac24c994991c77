package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"budget/internal/core"
	"budget/internal/finance"
	"budget/internal/log"
)

type goalRequest struct {
	Name          string      `json:"name"`
	TargetAmount  AmountInput `json:"target_amount"`
	CurrentAmount AmountInput `json:"current_amount"`
	Deadline      *string     `json:"deadline"`
	Notes         string      `json:"notes"`
	AccountID     *uuid.UUID  `json:"account_id"`
}

func (req goalRequest) toGoal(id uuid.UUID, loc *time.Location) (core.SavingsGoal, error) {
	target, err := req.TargetAmount.Unsigned()
	if err != nil {
		return core.SavingsGoal{}, core.ErrInvalidTarget
	}
	current, err := req.CurrentAmount.Unsigned()
	if err != nil {
		return core.SavingsGoal{}, err
	}
	deadline, err := parseOptionalDate(req.Deadline, loc)
	if err != nil {
		return core.SavingsGoal{}, err
	}
	return core.SavingsGoal{
		ID:            id,
		Name:          sanitizeInput(req.Name),
		TargetAmount:  target,
		CurrentAmount: current,
		Deadline:      deadline,
		Notes:         sanitizeInput(req.Notes),
		AccountID:     req.AccountID,
	}, nil
}

type goalAmountRequest struct {
	Amount AmountInput `json:"amount"`
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := s.ledger.ListGoals(r.Context())
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, goals)
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpParse, err)
		return
	}
	g, err := req.toGoal(uuid.Nil, s.ledger.Now().Location())
	if err != nil {
		writeError(w, r, log.OpValidate, err)
		return
	}
	created, err := s.ledger.CreateGoal(r.Context(), g)
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Goal created", log.FieldGoalID, created.ID)
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetGoal(w http.ResponseWriter, r *http.Request) {
	id, err := PathUUID(r, "id")
	if err != nil {
		writeError(w, r, log.OpParse, err)
		return
	}
	g, err := s.ledger.GetGoal(r.Context(), id)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleUpdateGoal(w http.ResponseWriter, r *http.Request) {
	id, err := PathUUID(r, "id")
	if err != nil {
		writeError(w, r, log.OpParse, err)
		return
	}
	var req goalRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpParse, err)
		return
	}
	g, err := req.toGoal(id, s.ledger.Now().Location())
	if err != nil {
		writeError(w, r, log.OpValidate, err)
		return
	}
	updated, err := s.ledger.UpdateGoal(r.Context(), g)
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	id, err := PathUUID(r, "id")
	if err != nil {
		writeError(w, r, log.OpParse, err)
		return
	}
	if err := s.ledger.DeleteGoal(r.Context(), id); err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUpdateGoalAmount(w http.ResponseWriter, r *http.Request) {
	id, err := PathUUID(r, "id")
	if err != nil {
		writeError(w, r, log.OpParse, err)
		return
	}
	var req goalAmountRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpParse, err)
		return
	}
	// Negative input is rejected by the goal itself, so parse it signed.
	amount, err := req.Amount.Signed()
	if err != nil {
		writeError(w, r, log.OpValidate, err)
		return
	}
	g, err := s.ledger.UpdateGoalAmount(r.Context(), id, amount)
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleGoalProgress(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	includeCompleted, err := ParseBool(query, "include_completed", true)
	if err != nil {
		writeError(w, r, log.OpParse, err)
		return
	}
	sortBy := finance.GoalSort(strings.ToLower(strings.TrimSpace(query.Get("sort"))))
	switch sortBy {
	case "":
		sortBy = finance.SortByCreated
	case finance.SortByCreated, finance.SortByProgress, finance.SortByDeadline, finance.SortByRemaining:
	default:
		writeError(w, r, log.OpParse, badRequest("invalid sort %q", sortBy))
		return
	}
	report, err := s.dashboard.Goals(r.Context(), includeCompleted, sortBy)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
