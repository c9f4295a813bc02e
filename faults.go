package main

import (
	"fmt"

	"github.com/pkg/errors"
)

// Fault taxonomy. Faults in the categorization decision or in persistence
// abort the run; enrichment faults are logged and swallowed at the call site.
var (
	errInput = errors.New("input fault: empty or unparseable source")
	errIO    = errors.New("io fault")
)

// MalformedDateError aborts aggregation: monthly bucketing has no fallback
// for a record without a parseable date.
type MalformedDateError struct {
	Key   string
	Value string
}

func (e *MalformedDateError) Error() string {
	return fmt.Sprintf("malformed date %q on txn %s", e.Value, e.Key)
}

// OracleError is fatal for the transaction it names. The run halts rather
// than guessing an account.
type OracleError struct {
	Key  string // transaction key, empty for non-txn calls
	Step string // classify, resolve, columns, receipt
	Err  error
}

func (e *OracleError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("oracle fault during %s: %v", e.Step, e.Err)
	}
	return fmt.Sprintf("oracle fault during %s for txn %s: %v", e.Step, e.Key, e.Err)
}

func (e *OracleError) Unwrap() error { return e.Err }

// EnrichmentError is recovered locally: the receipt field is recorded as
// null and categorization proceeds on the remaining fields.
type EnrichmentError struct {
	Key   string
	Field string
	Err   error
}

func (e *EnrichmentError) Error() string {
	return fmt.Sprintf("receipt enrichment failed for txn %s field %s: %v", e.Key, e.Field, e.Err)
}

func (e *EnrichmentError) Unwrap() error { return e.Err }
