package ingestion

import (
	"errors"
	"fmt"
	"strings"

	"github.com/synaptica-ai/icu-features/pkg/common/models"
)

var (
	errEmptyBatch   = errors.New("batch has no events")
	errMissingField = errors.New("missing field")
	errTooLarge     = errors.New("batch too large")
)

type ValidationError struct {
	reason error
}

func (e ValidationError) Error() string {
	return e.reason.Error()
}

func (e ValidationError) Unwrap() error {
	return e.reason
}

func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

// Validator rejects structurally unusable batches before any feature work.
// Time labels are checked by the pipeline itself.
type Validator struct {
	maxEvents int
}

func NewValidator(maxEvents int) *Validator {
	return &Validator{maxEvents: maxEvents}
}

func (v *Validator) Validate(batch models.EventBatch) error {
	if v == nil {
		return ValidationError{reason: errors.New("validator not initialised")}
	}
	if len(batch.Events) == 0 {
		return ValidationError{reason: errEmptyBatch}
	}
	if v.maxEvents > 0 && len(batch.Events) > v.maxEvents {
		return ValidationError{reason: fmt.Errorf("%d events exceed limit %d: %w", len(batch.Events), v.maxEvents, errTooLarge)}
	}
	for i, e := range batch.Events {
		if strings.TrimSpace(e.PatientID) == "" {
			return ValidationError{reason: fmt.Errorf("event %d: patient_id required: %w", i, errMissingField)}
		}
		if strings.TrimSpace(e.Variable) == "" {
			return ValidationError{reason: fmt.Errorf("event %d: variable required: %w", i, errMissingField)}
		}
	}
	return nil
}
