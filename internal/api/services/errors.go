package services

import (
	"fmt"
	"strings"
)

// ValidationError rejects a request before anything is persisted.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// StorageInitiationError means the backend refused to open a resumable
// session after the File row was already durable. The row is marked error
// and the failure is reported per file, never hidden.
type StorageInitiationError struct {
	Filename string
	Err      error
}

func (e *StorageInitiationError) Error() string {
	return fmt.Sprintf("storage initiation failed for %q: %v", e.Filename, e.Err)
}

func (e *StorageInitiationError) Unwrap() error {
	return e.Err
}

// MalformedEventError means the notification envelope could not be decoded.
// Retrying the same envelope cannot succeed.
type MalformedEventError struct {
	Err error
}

func (e *MalformedEventError) Error() string {
	return fmt.Sprintf("malformed finalize event: %v", e.Err)
}

func (e *MalformedEventError) Unwrap() error {
	return e.Err
}

// MissingFieldsError means a decoded envelope lacks required fields.
// Like MalformedEventError it is non-retriable from the engine's side.
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return "missing required fields: " + strings.Join(e.Fields, ", ")
}

// DispatchError means the job enqueue did not complete. The finalize
// operation must fail so the transport redelivers the notification.
type DispatchError struct {
	Topic string
	Err   error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch to %q failed: %v", e.Topic, e.Err)
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}
