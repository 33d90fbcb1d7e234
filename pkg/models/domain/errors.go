package domain

import (
	"errors"
	"fmt"
)

// ErrZeroActualCost marks a group whose actual spend sums to zero, leaving its
// percentage difference undefined.
var ErrZeroActualCost = errors.New("actual cost is zero")

// DataIntegrityError reports duplicate or contradictory rows in an input series.
type DataIntegrityError struct {
	Stage  string
	Key    string
	Month  Month
	Reason string
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("%s: data integrity violation for %s at %s: %s", e.Stage, e.Key, e.Month, e.Reason)
}

// MissingReferenceError reports a reference value (rolling price, lagged
// quantity, discount) that is undefined for a month the calculation needs.
type MissingReferenceError struct {
	Stage     string
	Key       string
	Month     Month
	Reference string
}

func (e *MissingReferenceError) Error() string {
	return fmt.Sprintf("%s: missing %s for %s at %s", e.Stage, e.Reference, e.Key, e.Month)
}

// ExternalQueryError reports an unreachable warehouse or a malformed result set.
type ExternalQueryError struct {
	Query string
	Err   error
}

func (e *ExternalQueryError) Error() string {
	return fmt.Sprintf("query %q failed: %v", e.Query, e.Err)
}

func (e *ExternalQueryError) Unwrap() error {
	return e.Err
}

// StageFailure is a recoverable problem recorded against the report instead of
// aborting the run.
type StageFailure struct {
	Stage string `json:"stage"`
	Key   string `json:"key"`
	// Month is YYYY-MM. Period holds any other period label, e.g. a
	// financial year such as 2020-21.
	Month  string `json:"month,omitempty"`
	Period string `json:"period,omitempty"`
	Error  string `json:"error"`
}

// FailuresFrom flattens a (possibly joined) error into stage failures.
func FailuresFrom(err error) []StageFailure {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var failures []StageFailure
		for _, e := range joined.Unwrap() {
			failures = append(failures, FailuresFrom(e)...)
		}
		return failures
	}

	var integrity *DataIntegrityError
	if errors.As(err, &integrity) {
		return []StageFailure{{Stage: integrity.Stage, Key: integrity.Key, Month: integrity.Month.String(), Error: err.Error()}}
	}
	var missing *MissingReferenceError
	if errors.As(err, &missing) {
		return []StageFailure{{Stage: missing.Stage, Key: missing.Key, Month: missing.Month.String(), Error: err.Error()}}
	}
	return []StageFailure{{Stage: "unknown", Error: err.Error()}}
}
