package query

import (
	"errors"
	"fmt"
	"time"

	"browser-query/internal/application/port/output"
	"browser-query/internal/domain/entity"
)

// NoLocatorError is returned when no registered locator claims a selector.
type NoLocatorError struct {
	Selector entity.Selector
}

func (e *NoLocatorError) Error() string {
	return fmt.Sprintf("No locator for %v", e.Selector)
}

// ConfigurationError reports a malformed filter or condition value.
type ConfigurationError struct {
	Key    string
	Value  any
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s %v: %s", e.Key, e.Value, e.Reason)
}

// UnknownConditionError is returned for a condition spec key nobody registered.
type UnknownConditionError struct {
	Name string
}

func (e *UnknownConditionError) Error() string {
	return fmt.Sprintf("no such condition: %s", e.Name)
}

// UnsupportedConditionError is returned when a value is neither a condition
// nor something a locator can claim.
type UnsupportedConditionError struct {
	Spec any
}

func (e *UnsupportedConditionError) Error() string {
	return fmt.Sprintf("Unsupported condition %v", e.Spec)
}

// NotFoundError means no element satisfied the locator and its filters.
type NotFoundError struct {
	Description string
}

func (e *NotFoundError) Error() string {
	return "No such element: " + e.Description
}

func (e *NotFoundError) Unwrap() error {
	return output.ErrNoSuchElement
}

// TimeoutError is returned when a wait stays pending past its deadline.
type TimeoutError struct {
	Description string
	Message     string
	Elapsed     time.Duration
}

func (e *TimeoutError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "Waiting " + e.Description
	}
	return fmt.Sprintf("%s\nWait timed out after %dms", msg, e.Elapsed.Milliseconds())
}

// UnlessViolation is raised by an unless guard once its inner condition holds.
type UnlessViolation struct {
	Description string
	Cause       any
}

func (e *UnlessViolation) Error() string {
	return "unless violated: " + e.Description
}

// IsNotFound reports whether err means "no element yet".
func IsNotFound(err error) bool {
	return errors.Is(err, output.ErrNoSuchElement)
}

// IsTimeout reports whether err is a wait timeout.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// IsConfiguration reports whether err was raised while building a query or
// condition, before any driver call.
func IsConfiguration(err error) bool {
	var (
		nl *NoLocatorError
		ce *ConfigurationError
		uc *UnknownConditionError
		us *UnsupportedConditionError
	)
	return errors.As(err, &nl) || errors.As(err, &ce) || errors.As(err, &uc) || errors.As(err, &us)
}

// pending errors mean "not yet satisfied" inside a polling loop.
func pending(err error) bool {
	return errors.Is(err, output.ErrNoSuchElement) || errors.Is(err, output.ErrStaleElement)
}
