package http

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"budget/internal/core"
	"budget/internal/log"
)

type accountRequest struct {
	Name         string      `json:"name"`
	Type         string      `json:"type"`
	Balance      AmountInput `json:"balance"`
	InterestRate AmountInput `json:"interest_rate"`
	DueDate      *string     `json:"due_date"`
	Icon         string      `json:"icon"`
	Notes        string      `json:"notes"`
}

func (req accountRequest) toAccount(id uuid.UUID, loc *time.Location) (core.Account, error) {
	typ, err := core.ParseAccountType(req.Type)
	if err != nil {
		return core.Account{}, err
	}
	balance, err := req.Balance.Signed()
	if err != nil {
		return core.Account{}, err
	}
	rate, err := req.InterestRate.Unsigned()
	if err != nil {
		return core.Account{}, core.ErrInvalidInterestRate
	}
	due, err := parseOptionalDate(req.DueDate, loc)
	if err != nil {
		return core.Account{}, err
	}
	return core.Account{
		ID:           id,
		Name:         sanitizeInput(req.Name),
		Type:         typ,
		Balance:      balance,
		InterestRate: rate,
		DueDate:      due,
		Icon:         sanitizeInput(req.Icon),
		Notes:        sanitizeInput(req.Notes),
	}, nil
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.ledger.ListAccounts(r.Context())
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpParse, err)
		return
	}
	a, err := req.toAccount(uuid.Nil, s.ledger.Now().Location())
	if err != nil {
		writeError(w, r, log.OpValidate, err)
		return
	}
	created, err := s.ledger.CreateAccount(r.Context(), a)
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Account created",
		log.FieldAccountID, created.ID,
		"type", created.Type)
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	id, err := PathUUID(r, "id")
	if err != nil {
		writeError(w, r, log.OpParse, err)
		return
	}
	a, err := s.ledger.GetAccount(r.Context(), id)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	id, err := PathUUID(r, "id")
	if err != nil {
		writeError(w, r, log.OpParse, err)
		return
	}
	var req accountRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpParse, err)
		return
	}
	a, err := req.toAccount(id, s.ledger.Now().Location())
	if err != nil {
		writeError(w, r, log.OpValidate, err)
		return
	}
	updated, err := s.ledger.UpdateAccount(r.Context(), a)
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	id, err := PathUUID(r, "id")
	if err != nil {
		writeError(w, r, log.OpParse, err)
		return
	}
	if err := s.ledger.DeleteAccount(r.Context(), id); err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAdvanceDueDate(w http.ResponseWriter, r *http.Request) {
	id, err := PathUUID(r, "id")
	if err != nil {
		writeError(w, r, log.OpParse, err)
		return
	}
	a, err := s.ledger.AdvanceDueDate(r.Context(), id)
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}
