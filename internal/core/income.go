package core

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// NewIncomeSource builds a source with a fresh id.
func NewIncomeSource(name string, amount decimal.Decimal, freq IncomeFrequency) IncomeSource {
	return IncomeSource{ID: uuid.New(), Name: name, Amount: amount, Frequency: freq}
}

// EncodeIncomeSources serializes the list stored inside a budget row.
func EncodeIncomeSources(sources []IncomeSource) (string, error) {
	if sources == nil {
		sources = []IncomeSource{}
	}
	b, err := json.Marshal(sources)
	if err != nil {
		return "", fmt.Errorf("encode income sources: %w", err)
	}
	return string(b), nil
}

// DecodeIncomeSources parses a stored list. Empty input yields an empty list.
// Frequencies written with the legacy labels are normalized.
func DecodeIncomeSources(data string) ([]IncomeSource, error) {
	if data == "" {
		return []IncomeSource{}, nil
	}
	var raw []struct {
		ID        uuid.UUID       `json:"id"`
		Name      string          `json:"name"`
		Amount    decimal.Decimal `json:"amount"`
		Frequency string          `json:"frequency"`
	}
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		return nil, fmt.Errorf("decode income sources: %w", err)
	}
	out := make([]IncomeSource, 0, len(raw))
	for _, r := range raw {
		freq, err := ParseIncomeFrequency(r.Frequency)
		if err != nil {
			return nil, fmt.Errorf("decode income source %q: %w", r.Name, err)
		}
		out = append(out, IncomeSource{ID: r.ID, Name: r.Name, Amount: r.Amount, Frequency: freq})
	}
	return out, nil
}
