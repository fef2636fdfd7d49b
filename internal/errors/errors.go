// Package errors defines the typed error taxonomy shared by the Reef
// compiler and runtime: syntax and vocabulary errors carrying source
// spans, limit violations carrying the offending metric, and the
// runtime's contained load/hydration failures. Compile-time errors are
// batched through an ErrorCollector so an author sees every problem in
// one pass.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeSyntax           ErrorType = "syntax"
	ErrorTypeUnknownComponent ErrorType = "unknown_component"
	ErrorTypeLimit            ErrorType = "limit"
	ErrorTypeConfig           ErrorType = "config"
	ErrorTypeLoad             ErrorType = "load"
	ErrorTypeHydration        ErrorType = "hydration"
	ErrorTypeInternal         ErrorType = "internal"
)

// ReefError is a structured error with compile or runtime context.
type ReefError struct {
	Type        ErrorType
	Code        string
	Message     string
	Cause       error
	Context     map[string]any
	Component   string
	Line        int
	Column      int
	Recoverable bool
}

// Error implements the error interface.
func (e *ReefError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.Component != "" {
		parts = append(parts, "component:"+e.Component)
	}

	if e.Line > 0 {
		location := fmt.Sprintf("%d", e.Line)
		if e.Column > 0 {
			location += fmt.Sprintf(":%d", e.Column)
		}
		parts = append(parts, location)
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *ReefError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison by type and code.
func (e *ReefError) Is(target error) bool {
	var t *ReefError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *ReefError) WithContext(key string, value any) *ReefError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value

	return e
}

// WithLocation adds source location information.
func (e *ReefError) WithLocation(line, column int) *ReefError {
	e.Line = line
	e.Column = column

	return e
}

// WithComponent adds component context.
func (e *ReefError) WithComponent(component string) *ReefError {
	e.Component = component

	return e
}

// Error creation functions

// NewSyntaxError creates a parse-time syntax error.
func NewSyntaxError(code, message string) *ReefError {
	return &ReefError{
		Type:        ErrorTypeSyntax,
		Code:        code,
		Message:     message,
		Recoverable: true,
	}
}

// NewUnknownComponentError creates an error for a tag outside the
// closed vocabulary.
func NewUnknownComponentError(tag string) *ReefError {
	return &ReefError{
		Type:        ErrorTypeUnknownComponent,
		Code:        ErrCodeUnknownComponent,
		Message:     "unknown component: " + tag,
		Component:   tag,
		Recoverable: true,
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(code, message string) *ReefError {
	return &ReefError{
		Type:        ErrorTypeConfig,
		Code:        code,
		Message:     message,
		Recoverable: false,
	}
}

// NewLoadError creates a component load error. Load errors are
// contained: the registry logs them and degrades to a placeholder.
func NewLoadError(component string, cause error) *ReefError {
	return &ReefError{
		Type:        ErrorTypeLoad,
		Code:        ErrCodeLoadFailed,
		Message:     "failed to load component: " + component,
		Component:   component,
		Cause:       cause,
		Recoverable: true,
	}
}

// NewHydrationError creates a hydration error isolated to one island.
func NewHydrationError(islandID string, cause error) *ReefError {
	return &ReefError{
		Type:        ErrorTypeHydration,
		Code:        ErrCodeHydrationFailed,
		Message:     "hydration failed for island: " + islandID,
		Cause:       cause,
		Recoverable: true,
	}
}

// NewInternalError creates an internal error.
func NewInternalError(code, message string, cause error) *ReefError {
	return &ReefError{
		Type:        ErrorTypeInternal,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// IsRecoverable checks if an error is recoverable.
func IsRecoverable(err error) bool {
	var re *ReefError
	if errors.As(err, &re) {
		return re.Recoverable
	}

	return false
}

// IsSyntaxError checks if an error is a parse-time syntax error,
// including vocabulary rejections.
func IsSyntaxError(err error) bool {
	var re *ReefError
	if errors.As(err, &re) {
		return re.Type == ErrorTypeSyntax || re.Type == ErrorTypeUnknownComponent
	}

	return false
}

// IsHydrationError checks if an error is a contained hydration failure.
func IsHydrationError(err error) bool {
	var re *ReefError
	if errors.As(err, &re) {
		return re.Type == ErrorTypeHydration
	}

	return false
}

// Common error codes.
const (
	ErrCodeUnknownComponent = "ERR_UNKNOWN_COMPONENT"
	ErrCodeUnclosedTag      = "ERR_UNCLOSED_TAG"
	ErrCodeMismatchedTag    = "ERR_MISMATCHED_TAG"
	ErrCodeBadAttribute     = "ERR_BAD_ATTRIBUTE"
	ErrCodeBadExpression    = "ERR_BAD_EXPRESSION"
	ErrCodeLimitExceeded    = "ERR_LIMIT_EXCEEDED"
	ErrCodeConfigInvalid    = "ERR_CONFIG_INVALID"
	ErrCodeLoadFailed       = "ERR_LOAD_FAILED"
	ErrCodeHydrationFailed  = "ERR_HYDRATION_FAILED"
	ErrCodeScopeViolation   = "ERR_SCOPE_VIOLATION"
	ErrCodeInternalError    = "ERR_INTERNAL"
)
