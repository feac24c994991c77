package http

import (
	"bytes"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"budget/internal/core"
	"budget/internal/export"
	"budget/internal/log"
	"budget/internal/store"
)

type transactionRequest struct {
	Title     string      `json:"title"`
	Amount    AmountInput `json:"amount"`
	Category  string      `json:"category"`
	Date      string      `json:"date"`
	Type      string      `json:"type"`
	Notes     string      `json:"notes"`
	AccountID *uuid.UUID  `json:"account_id"`
}

// toTransaction builds the record to save. A missing date means today and a
// missing type means expense.
func (req transactionRequest) toTransaction(id uuid.UUID, now time.Time) (core.Transaction, error) {
	amount, err := req.Amount.Unsigned()
	if err != nil {
		return core.Transaction{}, err
	}
	date := now
	if strings.TrimSpace(req.Date) != "" {
		if date, err = ParseDate(req.Date, now.Location()); err != nil {
			return core.Transaction{}, err
		}
	}
	typ := core.TransactionType(strings.ToLower(strings.TrimSpace(req.Type)))
	if typ == "" {
		typ = core.Expense
	}
	return core.Transaction{
		ID:        id,
		Title:     sanitizeInput(req.Title),
		Amount:    amount,
		Category:  sanitizeInput(req.Category),
		Date:      date,
		Type:      typ,
		Notes:     sanitizeInput(req.Notes),
		AccountID: req.AccountID,
	}, nil
}

// transactionFilter reads the optional year/month, type and account_id
// query parameters.
func (s *Server) transactionFilter(r *http.Request) (store.TransactionFilter, bool, error) {
	query := r.URL.Query()
	params, hasMonth, err := ParseOptionalMonth(query, s.ledger.Now())
	if err != nil {
		return store.TransactionFilter{}, false, err
	}
	var f store.TransactionFilter
	if hasMonth {
		f = s.ledger.MonthFilter(params.Year, params.Month)
	}
	if v := strings.TrimSpace(query.Get("type")); v != "" {
		f.Type = core.TransactionType(strings.ToLower(v))
		if !f.Type.Valid() {
			return store.TransactionFilter{}, false, badRequest("invalid type %q", v)
		}
	}
	if v := strings.TrimSpace(query.Get("account_id")); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return store.TransactionFilter{}, false, badRequest("invalid account_id %q", v)
		}
		f.AccountID = &id
	}
	return f, hasMonth, nil
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	f, _, err := s.transactionFilter(r)
	if err != nil {
		writeError(w, r, log.OpParse, err)
		return
	}
	txs, err := s.ledger.ListTransactions(r.Context(), f)
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, txs)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpParse, err)
		return
	}
	tx, err := req.toTransaction(uuid.Nil, s.ledger.Now())
	if err != nil {
		writeError(w, r, log.OpValidate, err)
		return
	}
	created, err := s.ledger.CreateTransaction(r.Context(), tx)
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Transaction created",
		log.FieldTransactionID, created.ID,
		log.FieldAmount, created.Amount.StringFixed(2),
		log.FieldCategory, created.Category)
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := PathUUID(r, "id")
	if err != nil {
		writeError(w, r, log.OpParse, err)
		return
	}
	tx, err := s.ledger.GetTransaction(r.Context(), id)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := PathUUID(r, "id")
	if err != nil {
		writeError(w, r, log.OpParse, err)
		return
	}
	var req transactionRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpParse, err)
		return
	}
	tx, err := req.toTransaction(id, s.ledger.Now())
	if err != nil {
		writeError(w, r, log.OpValidate, err)
		return
	}
	updated, err := s.ledger.UpdateTransaction(r.Context(), tx)
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := PathUUID(r, "id")
	if err != nil {
		writeError(w, r, log.OpParse, err)
		return
	}
	if err := s.ledger.DeleteTransaction(r.Context(), id); err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleDeleteTransactions removes a month of transactions, or every
// transaction when all=true is passed without a month.
func (s *Server) handleDeleteTransactions(w http.ResponseWriter, r *http.Request) {
	f, hasMonth, err := s.transactionFilter(r)
	if err != nil {
		writeError(w, r, log.OpParse, err)
		return
	}
	all, err := ParseBool(r.URL.Query(), "all", false)
	if err != nil {
		writeError(w, r, log.OpParse, err)
		return
	}
	if !hasMonth && !all {
		writeError(w, r, log.OpParse, badRequest("year and month, or all=true, are required"))
		return
	}
	n, err := s.ledger.DeleteTransactions(r.Context(), f)
	if err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Transactions deleted", "count", n)
	writeJSON(w, http.StatusOK, map[string]int{"deleted": n})
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	f, _, err := s.transactionFilter(r)
	if err != nil {
		writeError(w, r, log.OpParse, err)
		return
	}
	txs, err := s.ledger.ListTransactions(r.Context(), f)
	if err != nil {
		writeError(w, r, log.OpExport, err)
		return
	}
	accounts, err := s.ledger.ListAccounts(r.Context())
	if err != nil {
		writeError(w, r, log.OpExport, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, export.RowsFor(txs, accounts)); err != nil {
		writeError(w, r, log.OpExport, err)
		return
	}
	NewResponse().
		Header("Content-Disposition", `attachment; filename="`+export.Filename(s.ledger.Now())+`"`).
		Body("text/csv; charset=utf-8", buf.Bytes()).
		Write(w)
}
