package importer

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMalformedDate   = errors.New("malformed date")
	ErrMalformedAmount = errors.New("malformed amount")
	ErrMissingField    = errors.New("missing field")
	ErrMalformedRow    = errors.New("malformed row")
)

// HeaderError means the file does not carry the expected header set. No row
// of such a file is imported.
type HeaderError struct {
	Missing    []string
	Unknown    []string
	Duplicated []string
}

func (e *HeaderError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing columns: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Unknown) > 0 {
		parts = append(parts, "unknown columns: "+strings.Join(e.Unknown, ", "))
	}
	if len(e.Duplicated) > 0 {
		parts = append(parts, "duplicated columns: "+strings.Join(e.Duplicated, ", "))
	}
	return "invalid header: " + strings.Join(parts, "; ")
}

// RowError describes one rejected data row. Line is the 1-based line in the
// source file.
type RowError struct {
	Line   int
	Column string
	Err    error
}

func (e RowError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("line %d, column %q: %v", e.Line, e.Column, e.Err)
}

func (e RowError) Unwrap() error { return e.Err }

func (e RowError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Line   int    `json:"line"`
		Column string `json:"column,omitempty"`
		Reason string `json:"reason"`
	}{e.Line, e.Column, e.Err.Error()})
}
