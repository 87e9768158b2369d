// Package errors defines the failure taxonomy shared by the naming, descriptor,
// topology and provisioning layers.
package errors

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidIdentifier    = errors.New("invalid identifier")
	ErrConfiguration        = errors.New("configuration error")
	ErrExternalProvisioning = errors.New("external provisioning error")
)

// InvalidIdentifierError reports a name fragment that cannot be used to build
// a resource name.
type InvalidIdentifierError struct {
	Field  string
	Value  string
	Reason string
}

func (e *InvalidIdentifierError) Error() string {
	return fmt.Sprintf("invalid identifier %s=%q: %s", e.Field, e.Value, e.Reason)
}

func (e *InvalidIdentifierError) Is(target error) bool {
	return target == ErrInvalidIdentifier
}

// ConfigurationError reports a descriptor or account map that is structurally
// incomplete. Err carries the underlying cause, if any.
type ConfigurationError struct {
	Service string
	Field   string
	Reason  string
	Err     error
}

func (e *ConfigurationError) Error() string {
	msg := "configuration error"
	if e.Service != "" {
		msg += fmt.Sprintf(" in service %q", e.Service)
	}
	if e.Field != "" {
		msg += fmt.Sprintf(": %s", e.Field)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// ExternalProvisioningError wraps a failure reported by AWS. The cause is kept
// unchanged.
type ExternalProvisioningError struct {
	Op       string
	Resource string
	Err      error
}

func (e *ExternalProvisioningError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Resource, e.Err)
}

func (e *ExternalProvisioningError) Is(target error) bool {
	return target == ErrExternalProvisioning
}

func (e *ExternalProvisioningError) Unwrap() error {
	return e.Err
}

// Configuration is a shorthand for building a ConfigurationError.
func Configuration(service, field, reason string) error {
	return &ConfigurationError{Service: service, Field: field, Reason: reason}
}

// External wraps err as an ExternalProvisioningError. A nil err stays nil.
func External(op, resource string, err error) error {
	if err == nil {
		return nil
	}
	return &ExternalProvisioningError{Op: op, Resource: resource, Err: err}
}
