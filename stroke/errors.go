package stroke

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidPayload covers an empty body, malformed JSON and non-object JSON.
var ErrInvalidPayload = errors.New("invalid or empty JSON payload")

type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return "missing fields in payload: " + strings.Join(e.Fields, ", ")
}

// EncodingError reports a categorical value the column's encoder cannot map.
type EncodingError struct {
	Column string
	Err    error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("error encoding %q: %v", e.Column, e.Err)
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

// NumericError reports a numeric column that is not a finite float.
type NumericError struct {
	Column string
	Err    error
}

func (e *NumericError) Error() string {
	return fmt.Sprintf("numeric feature %q must be convertible to float: %v", e.Column, e.Err)
}

func (e *NumericError) Unwrap() error {
	return e.Err
}

// PredictionError is an internal failure while scaling, assembling or running the model.
type PredictionError struct {
	Err error
}

func (e *PredictionError) Error() string {
	return "prediction error: " + e.Err.Error()
}

func (e *PredictionError) Unwrap() error {
	return e.Err
}

func predictionErrorf(format string, args ...any) error {
	return &PredictionError{Err: fmt.Errorf(format, args...)}
}
