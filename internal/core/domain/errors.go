// Package domain defines the error taxonomy shared by the secure store.
package domain

import (
	"errors"
	"strings"
)

// Class groups error codes by who can fix them.
type Class int

const (
	ClassUnknown     Class = iota
	ClassData              // 4xxx: the stored bytes or the caller's value
	ClassEnvironment       // 5xxx: provider, derivation or backing store
)

func (c Class) String() string {
	switch c {
	case ClassData:
		return "data"
	case ClassEnvironment:
		return "environment"
	default:
		return "unknown"
	}
}

// DomainError carries a stable SS-<AREA>-<NNNN> code alongside a short
// message. Sentinels are never mutated; WithDetails and WithCause copy.
type DomainError struct {
	Code    string
	Message string
	Details string
	Cause   error
}

// NewDomainError returns a sentinel for code.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

func (e *DomainError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if e.Details != "" {
		b.WriteString(": ")
		b.WriteString(e.Details)
	}
	b.WriteString(" (")
	b.WriteString(e.Code)
	b.WriteByte(')')
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *DomainError) Unwrap() error { return e.Cause }

// Is matches any DomainError with the same code, so a detailed copy still
// satisfies errors.Is against its sentinel.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && t.Code == e.Code
}

// Class derives the error class from the numeric suffix of the code.
func (e *DomainError) Class() Class {
	i := strings.LastIndexByte(e.Code, '-')
	if i < 0 || i+1 >= len(e.Code) {
		return ClassUnknown
	}
	switch e.Code[i+1] {
	case '4':
		return ClassData
	case '5':
		return ClassEnvironment
	default:
		return ClassUnknown
	}
}

func (e *DomainError) WithDetails(details string) *DomainError {
	cp := *e
	cp.Details = details
	return &cp
}

func (e *DomainError) WithCause(cause error) *DomainError {
	cp := *e
	cp.Cause = cause
	return &cp
}

// GetErrorCode returns the code of the first DomainError in err's chain,
// or "" when there is none.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// ClassOf returns the class of the first DomainError in err's chain.
func ClassOf(err error) Class {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Class()
	}
	return ClassUnknown
}

// IsRecoverable reports whether err should send the caller down the next
// fallback rung instead of reporting an absent value. Storage failures are
// environmental too but are surfaced, not retried.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrProviderUnavailable) || errors.Is(err, ErrKeyDerivation)
}

var (
	ErrProviderUnavailable = NewDomainError("SS-PROV-5030", "crypto provider unavailable")
	ErrKeyDerivation       = NewDomainError("SS-KDF-5001", "key derivation failed")
	ErrStorageWrite        = NewDomainError("SS-STOR-5070", "storage write failed")

	// HMAC or AEAD tag mismatch.
	ErrIntegrityViolation = NewDomainError("SS-INTG-4220", "integrity check failed")
	// Stored bytes match no known envelope shape.
	ErrMalformedEnvelope = NewDomainError("SS-ENVL-4000", "malformed envelope")
	ErrSerialization     = NewDomainError("SS-SER-4001", "value is not JSON serializable")
)
