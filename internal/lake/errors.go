// File path: internal/lake/errors.go
package lake

import (
	"errors"
	"fmt"
)

// ErrStop can be returned from a stream callback to end iteration early
// without reporting an error to the caller.
var ErrStop = errors.New("stop iteration")

// ValidationError reports a malformed or incomplete activity record. Appends
// that fail validation write nothing; malformed lines encountered while
// streaming are skipped and collected as diagnostics.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid activity: %s", e.Reason)
	}
	return fmt.Sprintf("invalid activity: field %q %s", e.Field, e.Reason)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ConsistencyError reports a violation of the append-only contract or the
// manifest uniqueness invariant. These block the run that produced them but
// never corrupt the stored index.
type ConsistencyError struct {
	Kind   string // "duplicate_id" or "shrunken_file"
	Detail string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("consistency violation (%s): %s", e.Kind, e.Detail)
}

// IsConsistency reports whether err is (or wraps) a ConsistencyError.
func IsConsistency(err error) bool {
	var ce *ConsistencyError
	return errors.As(err, &ce)
}
