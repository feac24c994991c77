package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	ports "budget/internal/sheets"
)

// Exporter keeps mirrored rows in memory in insertion order. It backs the
// worker when no spreadsheet is configured.
type Exporter struct {
	mu   sync.Mutex
	rows []ports.Row
}

var _ ports.TransactionExporter = (*Exporter)(nil)

func New() *Exporter {
	return &Exporter{}
}

// UpsertRow replaces the row with the same id in place or appends it.
func (e *Exporter) UpsertRow(_ context.Context, row ports.Row) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i := e.indexOf(row.ID); i >= 0 {
		e.rows[i] = row
		return nil
	}
	e.rows = append(e.rows, row)
	return nil
}

// DeleteRow removes the row if present.
func (e *Exporter) DeleteRow(_ context.Context, id uuid.UUID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i := e.indexOf(id); i >= 0 {
		e.rows = append(e.rows[:i], e.rows[i+1:]...)
	}
	return nil
}

// Rows returns a copy of the mirrored rows.
func (e *Exporter) Rows() []ports.Row {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]ports.Row(nil), e.rows...)
}

func (e *Exporter) indexOf(id uuid.UUID) int {
	for i, r := range e.rows {
		if r.ID == id {
			return i
		}
	}
	return -1
}
