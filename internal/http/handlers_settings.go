package http

import (
	"net/http"

	"budget/internal/log"
)

// settingsPatch carries the fields a client wants to change; omitted
// fields keep their stored values.
type settingsPatch struct {
	CurrencyCode              *string `json:"currency_code"`
	StartDayOfMonth           *int    `json:"start_day_of_month"`
	SelectedTransactionFilter *string `json:"selected_transaction_filter"`
	SelectedTab               *int    `json:"selected_tab"`
	PrivacyMode               *bool   `json:"privacy_mode"`
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.ledger.Settings(r.Context())
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var patch settingsPatch
	if err := DecodeJSON(w, r, &patch); err != nil {
		writeError(w, r, log.OpParse, err)
		return
	}
	settings, err := s.ledger.Settings(r.Context())
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	if patch.CurrencyCode != nil {
		settings.CurrencyCode = *patch.CurrencyCode
	}
	if patch.StartDayOfMonth != nil {
		settings.StartDayOfMonth = *patch.StartDayOfMonth
	}
	if patch.SelectedTransactionFilter != nil {
		settings.SelectedTransactionFilter = *patch.SelectedTransactionFilter
	}
	if patch.SelectedTab != nil {
		settings.SelectedTab = *patch.SelectedTab
	}
	if patch.PrivacyMode != nil {
		settings.PrivacyMode = *patch.PrivacyMode
	}
	saved, err := s.ledger.SaveSettings(r.Context(), settings)
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}
