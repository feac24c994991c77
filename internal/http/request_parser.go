// Package http provides the JSON API server and its handlers.
//
// This file implements utilities for parsing and validating request data:
// JSON bodies, month selectors in query strings, path identifiers and the
// amount and date fields clients send.
package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"budget/internal/core"
)

// ErrBadRequest marks malformed requests: unreadable bodies, bad query
// parameters and path identifiers.
var ErrBadRequest = errors.New("bad request")

const maxBodyBytes = 1 << 20

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrBadRequest, fmt.Sprintf(format, args...))
}

// MonthParams holds a parsed year/month selector.
type MonthParams struct {
	Year  int
	Month time.Month
}

// ParseMonthParams reads year and month from the query, defaulting each to
// now. Present but malformed values are rejected.
func ParseMonthParams(query url.Values, now time.Time) (MonthParams, error) {
	params := MonthParams{Year: now.Year(), Month: now.Month()}
	if v := strings.TrimSpace(query.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1 || y > 9999 {
			return MonthParams{}, badRequest("invalid year %q", v)
		}
		params.Year = y
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			return MonthParams{}, badRequest("invalid month %q", v)
		}
		params.Month = time.Month(m)
	}
	return params, nil
}

// ParseOptionalMonth is ParseMonthParams for listings that default to
// everything: ok is false when neither year nor month is given.
func ParseOptionalMonth(query url.Values, now time.Time) (params MonthParams, ok bool, err error) {
	hasYear := strings.TrimSpace(query.Get("year")) != ""
	hasMonth := strings.TrimSpace(query.Get("month")) != ""
	if !hasYear && !hasMonth {
		return MonthParams{}, false, nil
	}
	params, err = ParseMonthParams(query, now)
	return params, err == nil, err
}

// PathMonth parses the {year} and {month} path segments.
func PathMonth(r *http.Request) (MonthParams, error) {
	y, err := strconv.Atoi(r.PathValue("year"))
	if err != nil || y < 1 || y > 9999 {
		return MonthParams{}, badRequest("invalid year %q", r.PathValue("year"))
	}
	m, err := strconv.Atoi(r.PathValue("month"))
	if err != nil || m < 1 || m > 12 {
		return MonthParams{}, badRequest("invalid month %q", r.PathValue("month"))
	}
	return MonthParams{Year: y, Month: time.Month(m)}, nil
}

// PathUUID parses a path segment holding an identifier.
func PathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		return uuid.Nil, badRequest("invalid %s %q", name, r.PathValue(name))
	}
	return id, nil
}

// ParseBool reads an optional boolean query parameter.
func ParseBool(query url.Values, key string, def bool) (bool, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, badRequest("invalid %s %q", key, v)
	}
	return b, nil
}

// DecodeJSON reads one JSON object from the body into dst. Unknown fields
// and trailing data are rejected.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return badRequest("read body: %v", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return badRequest("empty body")
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return badRequest("invalid JSON: %v", err)
	}
	if dec.More() {
		return badRequest("invalid JSON: trailing data")
	}
	return nil
}

// AmountInput accepts an amount as a JSON string ("12,34") or number (12.34).
type AmountInput string

func (a *AmountInput) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = AmountInput(s)
		return nil
	}
	if bytes.Equal(data, []byte("null")) {
		*a = ""
		return nil
	}
	*a = AmountInput(data)
	return nil
}

// Unsigned parses a non-negative amount; empty means zero.
func (a AmountInput) Unsigned() (decimal.Decimal, error) {
	if strings.TrimSpace(string(a)) == "" {
		return decimal.Zero, nil
	}
	return core.ParseAmount(string(a))
}

// Signed parses an amount that may be negative; empty means zero.
func (a AmountInput) Signed() (decimal.Decimal, error) {
	if strings.TrimSpace(string(a)) == "" {
		return decimal.Zero, nil
	}
	return core.ParseSignedAmount(string(a))
}

// ParseDate accepts YYYY-MM-DD, interpreted in loc, or RFC 3339.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation(time.DateOnly, s, loc); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, core.ErrInvalidDate
	}
	return t.In(loc), nil
}

// parseOptionalDate returns nil for a missing or empty date.
func parseOptionalDate(s *string, loc *time.Location) (*time.Time, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	t, err := ParseDate(*s, loc)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
