package tagseek

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hupe1980/tagseek/enzyme"
	"github.com/hupe1980/tagseek/resource"
	"github.com/hupe1980/tagseek/seqio"
	"github.com/hupe1980/tagseek/sketch"
)

var (
	// ErrNoUnits is returned when an operation receives no input units.
	ErrNoUnits = errors.New("no input units")
)

// ConfigurationError reports a parameter outside its supported range.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ConfigurationError struct {
	Param  string
	Value  string
	Reason string
	cause  error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Param, e.Value, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return e.cause }

// InputError reports an unreadable or malformed input unit.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type InputError struct {
	Unit  string
	cause error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("input %s: %v", e.Unit, e.cause)
}

func (e *InputError) Unwrap() error { return e.cause }

// IncompatibleSketchError reports sketches built with different
// extraction parameters.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type IncompatibleSketchError struct {
	Field string
	Want  string
	Got   string
	cause error
}

func (e *IncompatibleSketchError) Error() string {
	return fmt.Sprintf("incompatible sketches: %s is %s, want %s", e.Field, e.Got, e.Want)
}

func (e *IncompatibleSketchError) Unwrap() error { return e.cause }

// ResourceError reports an exhausted resource budget.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ResourceError struct {
	Op    string
	cause error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("%s: resource budget exhausted: %v", e.Op, e.cause)
}

func (e *ResourceError) Unwrap() error { return e.cause }

// UnitError pairs a failed input unit with its cause.
type UnitError struct {
	Unit string
	Err  error
}

func (e *UnitError) Error() string {
	return fmt.Sprintf("unit %s: %v", e.Unit, e.Err)
}

func (e *UnitError) Unwrap() error { return e.Err }

// UnitErrors summarizes the failed units of a batch. Batch operations
// return it alongside the results of the units that succeeded.
type UnitErrors []*UnitError

func (ue UnitErrors) Error() string {
	switch len(ue) {
	case 0:
		return "no unit errors"
	case 1:
		return ue[0].Error()
	}
	names := make([]string, len(ue))
	for i, e := range ue {
		names[i] = e.Unit
	}
	return fmt.Sprintf("%d units failed: %s", len(ue), strings.Join(names, ", "))
}

// Unwrap supports errors.Is/As across all unit failures.
func (ue UnitErrors) Unwrap() []error {
	errs := make([]error, len(ue))
	for i, e := range ue {
		errs[i] = e
	}
	return errs
}

// IsConfigurationError reports whether err wraps a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// IsInputError reports whether err wraps an InputError.
func IsInputError(err error) bool {
	var ie *InputError
	return errors.As(err, &ie)
}

// IsIncompatibleSketchError reports whether err wraps an
// IncompatibleSketchError.
func IsIncompatibleSketchError(err error) bool {
	var se *IncompatibleSketchError
	return errors.As(err, &se)
}

// IsResourceError reports whether err wraps a ResourceError.
func IsResourceError(err error) bool {
	var re *ResourceError
	return errors.As(err, &re)
}

func translateError(err error) error {
	if err == nil {
		return nil
	}
	if IsConfigurationError(err) || IsInputError(err) || IsIncompatibleSketchError(err) || IsResourceError(err) {
		return err
	}

	var inc *sketch.ErrIncompatible
	if errors.As(err, &inc) {
		return &IncompatibleSketchError{Field: inc.Field, Want: inc.Want, Got: inc.Got, cause: err}
	}

	var ue *enzyme.ErrUnknownEnzyme
	if errors.As(err, &ue) {
		return &ConfigurationError{Param: "enzyme", Value: ue.Name, Reason: "no registered profile", cause: err}
	}

	var mal *seqio.ErrMalformedRecord
	if errors.As(err, &mal) {
		return &InputError{Unit: mal.Path, cause: err}
	}
	var pm *seqio.ErrPairMismatch
	if errors.As(err, &pm) {
		return &InputError{Unit: pm.First, cause: err}
	}

	if errors.Is(err, resource.ErrMemoryLimit) {
		return &ResourceError{Op: "sketch", cause: err}
	}

	return err
}
