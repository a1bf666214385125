package registration

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/crickyard/registration/go/internal/retry"
)

// ValidationError marks one caller-fixable problem with the submitted form,
// addressed by the offending field path (e.g. "player_0_role"). Never retried.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

// ValidationErrors collects every offending field so the caller can fix the
// whole submission in one round trip.
type ValidationErrors []*ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, ve := range e {
		msgs[i] = ve.Error()
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// First returns the first offending field, for the response's details block.
func (e ValidationErrors) First() *ValidationError {
	if len(e) == 0 {
		return nil
	}
	return e[0]
}

// ConstraintError is a permanent database rejection, e.g. a duplicate team
// name. Surfaced as a conflict, never retried.
type ConstraintError struct {
	Constraint string
	Err        error
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("constraint %s violated: %v", e.Constraint, e.Err)
}

func (e *ConstraintError) Unwrap() error {
	return e.Err
}

// classifyTxError tags errors from the transaction phase. Integrity and data
// errors will fail the same way on every attempt; connectivity, shutdown and
// serialization errors are worth another try.
func classifyTxError(err error) retry.Class {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		class := pqErr.Code.Class()
		switch class {
		case "22", "23": // data exception, integrity constraint violation
			return retry.ClassPermanent
		case "08", "40", "53", "57", "58": // connection, serialization, resources, operator intervention, system
			return retry.ClassTransient
		}
		return retry.ClassPermanent
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, context.DeadlineExceeded) {
		return retry.ClassTransient
	}
	var ve ValidationErrors
	if errors.As(err, &ve) {
		return retry.ClassPermanent
	}
	// Unknown driver/network errors: assume operational and retry.
	return retry.ClassTransient
}
