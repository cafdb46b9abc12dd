package errs

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSchema is returned when a required variable or column is absent.
	ErrSchema = errors.New("schema error")
	// ErrMalformedTimestamp is returned for time labels that are not HH:MM.
	ErrMalformedTimestamp = errors.New("malformed timestamp")
	// ErrOutOfHorizon is returned for times outside the 48 hour stay.
	ErrOutOfHorizon = errors.New("time outside stay horizon")
)

// StageError localises a failure to a pipeline stage, patient and variable.
type StageError struct {
	Stage     string
	PatientID string
	Variable  string
	Err       error
}

func (e *StageError) Error() string {
	parts := []string{e.Stage}
	if e.PatientID != "" {
		parts = append(parts, "patient="+e.PatientID)
	}
	if e.Variable != "" {
		parts = append(parts, "variable="+e.Variable)
	}
	return fmt.Sprintf("%s: %v", strings.Join(parts, " "), e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func Stage(stage, patientID, variable string, err error) error {
	return &StageError{Stage: stage, PatientID: patientID, Variable: variable, Err: err}
}

// Schema builds a StageError wrapping ErrSchema with a description of what is missing.
func Schema(stage, variable, format string, args ...interface{}) error {
	return &StageError{
		Stage:    stage,
		Variable: variable,
		Err:      fmt.Errorf("%w: %s", ErrSchema, fmt.Sprintf(format, args...)),
	}
}
