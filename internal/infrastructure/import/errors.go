package csvimport

import (
	"fmt"
)

// RowError describes a failure tied to a single CSV row.
type RowError struct {
	Row     int    `json:"row"`
	Column  string `json:"column,omitempty"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *RowError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("row %d, column %q: %s", e.Row, e.Column, e.Message)
	}
	return fmt.Sprintf("row %d: %s", e.Row, e.Message)
}

// NewRowError creates a row-scoped error
func NewRowError(row int, column, message string) *RowError {
	return &RowError{Row: row, Column: column, Message: message}
}

// ErrorCollection accumulates row errors up to a fixed cap. Errors past the
// cap are counted but not retained, so a pathological file cannot blow up
// the job document.
type ErrorCollection struct {
	limit   int
	dropped int
	errors  []*RowError
}

// DefaultErrorLimit is the number of row errors retained per import.
const DefaultErrorLimit = 50

// NewErrorCollection creates a collection retaining at most limit errors.
// A non-positive limit falls back to DefaultErrorLimit.
func NewErrorCollection(limit int) *ErrorCollection {
	if limit <= 0 {
		limit = DefaultErrorLimit
	}
	return &ErrorCollection{limit: limit}
}

// Add records an error, dropping it when the cap is reached.
func (c *ErrorCollection) Add(err *RowError) {
	if len(c.errors) >= c.limit {
		c.dropped++
		return
	}
	c.errors = append(c.errors, err)
}

// Addf records a formatted error for the given row.
func (c *ErrorCollection) Addf(row int, column, format string, args ...interface{}) {
	c.Add(NewRowError(row, column, fmt.Sprintf(format, args...)))
}

// Errors returns the retained errors.
func (c *ErrorCollection) Errors() []*RowError {
	return c.errors
}

// Count returns the total number of errors recorded, including dropped ones.
func (c *ErrorCollection) Count() int {
	return len(c.errors) + c.dropped
}

// Dropped returns the number of errors discarded past the cap.
func (c *ErrorCollection) Dropped() int {
	return c.dropped
}

// HasErrors reports whether any error was recorded.
func (c *ErrorCollection) HasErrors() bool {
	return c.Count() > 0
}

// Messages renders the retained errors as plain strings.
func (c *ErrorCollection) Messages() []string {
	out := make([]string, 0, len(c.errors))
	for _, e := range c.errors {
		out = append(out, e.Error())
	}
	return out
}
