package models

import (
	"errors"
	"fmt"
)

// Error kinds of the reconciliation engine.
const (
	ErrKindStructuralInput  = "ERR_STRUCTURAL_INPUT"
	ErrKindMetadataNotFound = "ERR_METADATA_NOT_FOUND"
	ErrKindPersistence      = "ERR_PERSISTENCE"
)

// IngestError is a classified failure of one file's processing.
type IngestError struct {
	Kind    string
	Message string
	Err     error
}

func (e *IngestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *IngestError) Unwrap() error { return e.Err }

// StructuralInputError reports a missing header row or an unreadable workbook.
func StructuralInputError(message string, err error) *IngestError {
	return &IngestError{Kind: ErrKindStructuralInput, Message: message, Err: err}
}

// StructuralInputErrorf creates a structural error with formatting.
func StructuralInputErrorf(format string, a ...interface{}) *IngestError {
	return StructuralInputError(fmt.Sprintf(format, a...), nil)
}

// MetadataNotFoundError reports a file or sheet that maps to no metric stream.
func MetadataNotFoundError(name string) *IngestError {
	return &IngestError{Kind: ErrKindMetadataNotFound, Message: fmt.Sprintf("Error: %s metadata not found", name)}
}

// PersistenceError reports a store rejection of a lookup or write.
func PersistenceError(op string, err error) *IngestError {
	return &IngestError{Kind: ErrKindPersistence, Message: op, Err: err}
}

// ErrorKind returns the kind of a classified error, or "" when err is not one.
func ErrorKind(err error) string {
	var ie *IngestError
	if errors.As(err, &ie) {
		return ie.Kind
	}
	return ""
}

// IsMetadataNotFound reports whether err is (or wraps) a metadata-not-found error.
func IsMetadataNotFound(err error) bool {
	return ErrorKind(err) == ErrKindMetadataNotFound
}
