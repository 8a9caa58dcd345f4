package internalerr

import "errors"

// Sentinel errors for common cases
var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrUnknownSymbol = errors.New("unknown symbol")
	ErrBadModel      = errors.New("malformed model")
)

// Numeric failures reported by the alignment and scoring core
var (
	// ErrEmptySequence is returned when one or both inputs to an alignment
	// have zero length.
	ErrEmptySequence = errors.New("empty sequence")

	// ErrUnderflow is returned when a probability or count reaches zero where
	// a non-zero value is required.
	ErrUnderflow = errors.New("numeric underflow")

	// ErrNonConvergence marks a training run that stopped at its epoch cap.
	// Training itself never returns it; see online.Result.Err.
	ErrNonConvergence = errors.New("training did not converge")
)
