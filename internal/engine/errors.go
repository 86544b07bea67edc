// Typed engine errors. Every validation failure the engine reports carries a
// machine-readable code and matches the code's sentinel under errors.Is.
package engine

import (
	"errors"

	"github.com/talgya/trustfall/internal/agents"
	"github.com/talgya/trustfall/internal/economy"
)

// Code is a machine-readable error code.
type Code string

const (
	CodeEmptyPopulation              Code = "EMPTY_POPULATION"
	CodeInvalidMatchCount            Code = "INVALID_MATCH_COUNT"
	CodeUnknownStrategy              Code = "UNKNOWN_STRATEGY"
	CodeInvalidPayoutConfiguration   Code = "INVALID_PAYOUT_CONFIGURATION"
	CodeInvalidProtocolConfiguration Code = "INVALID_PROTOCOL_CONFIGURATION"
	CodeInvalidPlayer                Code = "INVALID_PLAYER"
	CodePlayerNotFound               Code = "PLAYER_NOT_FOUND"
	CodeInvalidSimulationMode        Code = "INVALID_SIMULATION_MODE"
	CodeInvalidGrant                 Code = "INVALID_GRANT"
)

// Error is an engine error with a code, a message for logs and an optional cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil && e.Message == "" {
		return e.Cause.Error()
	}
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

func newError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func wrapError(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// Sentinels for errors.Is.
var (
	ErrEmptyPopulation              = newError(CodeEmptyPopulation, "empty population")
	ErrInvalidMatchCount            = newError(CodeInvalidMatchCount, "invalid match count")
	ErrUnknownStrategy              = newError(CodeUnknownStrategy, "unknown strategy")
	ErrInvalidPayoutConfiguration   = newError(CodeInvalidPayoutConfiguration, "invalid payout configuration")
	ErrInvalidProtocolConfiguration = newError(CodeInvalidProtocolConfiguration, "invalid protocol configuration")
	ErrInvalidPlayer                = newError(CodeInvalidPlayer, "invalid player")
	ErrPlayerNotFound               = newError(CodePlayerNotFound, "player not found")
	ErrInvalidSimulationMode        = newError(CodeInvalidSimulationMode, "invalid simulation mode")
	ErrInvalidGrant                 = newError(CodeInvalidGrant, "invalid token grant")
)

// classify lifts a lower-level sentinel into a coded engine error. Errors that
// already carry a code, and unknown errors, pass through unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var coded *Error
	if errors.As(err, &coded) {
		return err
	}
	switch {
	case errors.Is(err, agents.ErrUnknownStrategy), errors.Is(err, agents.ErrInvalidTrustPercentage):
		return wrapError(CodeUnknownStrategy, "", err)
	case errors.Is(err, agents.ErrInvalidPlayer):
		return wrapError(CodeInvalidPlayer, "", err)
	case errors.Is(err, economy.ErrInvalidPayout):
		return wrapError(CodeInvalidPayoutConfiguration, "", err)
	case errors.Is(err, economy.ErrInvalidProtocol):
		return wrapError(CodeInvalidProtocolConfiguration, "", err)
	case errors.Is(err, economy.ErrInvalidGrant):
		return wrapError(CodeInvalidGrant, "", err)
	}
	return err
}
