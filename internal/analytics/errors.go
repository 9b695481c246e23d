package analytics

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedRow is the only error the engine returns; missing data yields an
// empty result instead.
var ErrMalformedRow = errors.New("malformed option row")

// InvalidRow describes one rejected provider row.
type InvalidRow struct {
	Expiration string
	Kind       string // "call" or "put"
	Index      int
	Reason     string
}

// RowValidationError collects every malformed row found during aggregation.
type RowValidationError struct {
	Rows []InvalidRow
}

// HasErrors returns true if any row was rejected
func (e *RowValidationError) HasErrors() bool {
	return len(e.Rows) > 0
}

func (e *RowValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d malformed option rows:", len(e.Rows)))
	for _, r := range e.Rows {
		sb.WriteString(fmt.Sprintf("\n  - %s %s[%d]: %s", r.Expiration, r.Kind, r.Index, r.Reason))
	}
	return sb.String()
}

func (e *RowValidationError) Unwrap() error {
	return ErrMalformedRow
}
