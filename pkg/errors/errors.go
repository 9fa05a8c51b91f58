// Package errors provides common domain error types for the Briefly engine.
//
// This package defines sentinel errors for the recoverable failure classes
// the engine distinguishes: a bad rule source, a malformed timestamp, or an
// invalid upstream value. Using typed errors enables consistent handling
// with errors.Is() checks. Every one of these is recovered locally with a
// safe default; none of them ever aborts batch processing.
//
// Usage:
//
//	import bferrors "github.com/brieflyhq/briefly/pkg/errors"
//
//	// Return a domain error
//	return nil, fmt.Errorf("due_date %q: %w", raw, bferrors.ErrParse)
//
//	// Check for domain errors
//	if bferrors.IsParse(err) {
//	    // fall back to "no temporal data"
//	}
package errors

import "errors"

// Domain errors - sentinel errors for the engine's failure taxonomy.
var (
	// ErrRuleSource indicates the guardrail rule source was missing or
	// unparseable. Handled fail-open: the matcher loads zero rules.
	ErrRuleSource = errors.New("guardrail rule source error")

	// ErrParse indicates a malformed temporal timestamp. Handled per
	// entity: the value is counted and treated as no temporal data.
	ErrParse = errors.New("temporal parse error")

	// ErrValidation indicates an unrecognized enum value from upstream.
	// Handled by coercing to the safe default and logging.
	ErrValidation = errors.New("validation error")
)

// IsRuleSource reports whether any error in err's chain is ErrRuleSource.
func IsRuleSource(err error) bool {
	return errors.Is(err, ErrRuleSource)
}

// IsParse reports whether any error in err's chain is ErrParse.
func IsParse(err error) bool {
	return errors.Is(err, ErrParse)
}

// IsValidation reports whether any error in err's chain is ErrValidation.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}
