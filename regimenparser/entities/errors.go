package entities

import "fmt"

// MalformedInputError signals that the input document is not a mapping, or
// that a record is structurally unusable (missing required course fields,
// a drug declaring both or neither administration shape).
type MalformedInputError struct {
	Reason string
}

func (e *MalformedInputError) Error() string {
	return "malformed regimen input: " + e.Reason
}

// MissingFieldError signals that a record lacks a field required by its
// shape at the moment the field is needed, naming both.
type MissingFieldError struct {
	Record string
	Field  string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("record %q is missing required field %q", e.Record, e.Field)
}

// InvalidRangeError signals a day value outside [1, cycle_length] or a
// non-positive cycle_length/cycles. A Max below Min means the field only
// has a lower bound.
type InvalidRangeError struct {
	Record string
	Field  string
	Value  int
	Min    int
	Max    int
}

func (e *InvalidRangeError) Error() string {
	if e.Max >= e.Min {
		return fmt.Sprintf("record %q: %s = %d out of range [%d, %d]", e.Record, e.Field, e.Value, e.Min, e.Max)
	}
	return fmt.Sprintf("record %q: %s must be at least %d, got %d", e.Record, e.Field, e.Min, e.Value)
}
