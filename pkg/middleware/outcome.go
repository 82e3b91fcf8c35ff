package middleware

import (
	"errors"

	"github.com/vango-dev/navkit/pkg/kernel"
	"github.com/vango-dev/navkit/pkg/routeerr"
)

// Navigation outcomes used as metric labels and span attributes.
const (
	OutcomeCommitted  = "committed"
	OutcomeRejected   = "rejected"
	OutcomeTimeout    = "timeout"
	OutcomeSuperseded = "superseded"
	OutcomePlugin     = "plugin_error"
	OutcomeError      = "error"
)

// Outcome classifies the result of a navigation chain. It keeps label
// cardinality fixed regardless of error text.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeCommitted
	case errors.Is(err, kernel.ErrSuperseded):
		return OutcomeSuperseded
	case errors.Is(err, routeerr.ErrGuardTimeout):
		return OutcomeTimeout
	case errors.Is(err, routeerr.ErrGuardRejected):
		return OutcomeRejected
	case errors.Is(err, routeerr.ErrPluginError):
		return OutcomePlugin
	default:
		return OutcomeError
	}
}
