package backtest

import "fmt"

// The simulation pipeline distinguishes four error kinds. All abort the
// single run they occur in; batch orchestrators (optimizer, validator) catch
// them at the trial boundary.

// DataError reports malformed or insufficient bar input.
type DataError struct {
	Reason string
}

func (e *DataError) Error() string { return "data error: " + e.Reason }

func dataErrorf(format string, args ...any) *DataError {
	return &DataError{Reason: fmt.Sprintf(format, args...)}
}

// ParameterError reports an invalid run configuration.
type ParameterError struct {
	Reason string
}

func (e *ParameterError) Error() string { return "parameter error: " + e.Reason }

func parameterErrorf(format string, args ...any) *ParameterError {
	return &ParameterError{Reason: fmt.Sprintf(format, args...)}
}

// SimulationError reports an internal invariant violation. Seeing one means
// a logic bug, not bad input.
type SimulationError struct {
	Reason string
}

func (e *SimulationError) Error() string { return "simulation error: " + e.Reason }

// ValidationError reports a validation call that cannot run, e.g. too few
// bars for the requested fold count or block size.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "validation error: " + e.Reason }

// NewValidationError builds a ValidationError from a format string.
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}
