package streamforwarder

import (
	"errors"
	"fmt"
)

// ConfigurationError is returned when a handler or destination cannot be constructed.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

type SerializationError struct {
	RecordID string
	Err      error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("failed to serialize record %s: %v", e.RecordID, e.Err)
}

func (e *SerializationError) Unwrap() error {
	return e.Err
}

type FilterError struct {
	RecordID string
	Endpoint string
	Err      error
}

func (e *FilterError) Error() string {
	return fmt.Sprintf("message filter failed for record %s and %s: %v", e.RecordID, e.Endpoint, e.Err)
}

func (e *FilterError) Unwrap() error {
	return e.Err
}

type LogTransformError struct {
	RecordID string
	Err      error
}

func (e *LogTransformError) Error() string {
	return fmt.Sprintf("failed to transform record %s for logging: %v", e.RecordID, e.Err)
}

func (e *LogTransformError) Unwrap() error {
	return e.Err
}

type DeliveryError struct {
	RecordID string
	Endpoint string
	Err      error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("failed to deliver record %s to %s: %v", e.RecordID, e.Endpoint, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

func IsConfigurationError(err error) bool {
	var target *ConfigurationError
	return errors.As(err, &target)
}

func IsSerializationError(err error) bool {
	var target *SerializationError
	return errors.As(err, &target)
}

func IsDeliveryError(err error) bool {
	var target *DeliveryError
	return errors.As(err, &target)
}

func AsDeliveryError(err error) *DeliveryError {
	var target *DeliveryError
	if errors.As(err, &target) {
		return target
	}
	return nil
}
