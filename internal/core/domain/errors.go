package domain

import "fmt"

// ValidationError marks input problems that must halt a run before any
// side effect. Callers detect it with errors.As and report it distinctly
// from runtime failures.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// Validationf builds a ValidationError from a format string.
func Validationf(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}
