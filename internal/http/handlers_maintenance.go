package http

import (
	"net/http"

	"github.com/dustin/go-humanize"

	"budget/internal/log"
	"budget/internal/storage"
)

// backupView adds a human-readable size to a backup listing entry.
type backupView struct {
	storage.BackupInfo
	SizeHuman string `json:"size_human"`
}

func newBackupView(b storage.BackupInfo) backupView {
	return backupView{BackupInfo: b, SizeHuman: humanize.Bytes(uint64(max(b.Size, 0)))}
}

func (s *Server) handleCreateBackup(w http.ResponseWriter, r *http.Request) {
	info, err := s.backups.Create(r.Context())
	if err != nil {
		writeError(w, r, log.OpBackup, err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Backup created", "path", info.Path, "size", info.Size)
	writeJSON(w, http.StatusCreated, newBackupView(info))
}

func (s *Server) handleListBackups(w http.ResponseWriter, r *http.Request) {
	backups, err := s.backups.List(r.Context())
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	views := make([]backupView, 0, len(backups))
	for _, b := range backups {
		views = append(views, newBackupView(b))
	}
	writeJSON(w, http.StatusOK, views)
}

// handleReset wipes the ledger. It requires confirm=true.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	confirm, err := ParseBool(r.URL.Query(), "confirm", false)
	if err != nil {
		writeError(w, r, log.OpParse, err)
		return
	}
	if !confirm {
		writeError(w, r, log.OpReset, badRequest("reset requires confirm=true"))
		return
	}
	if err := s.ledger.ResetAll(r.Context()); err != nil {
		writeError(w, r, log.OpReset, err)
		return
	}
	log.FromContext(r.Context()).WarnContext(r.Context(), "Ledger reset via API")
	w.WriteHeader(http.StatusNoContent)
}
