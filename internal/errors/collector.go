package errors

import (
	"sync"
)

// ErrorCollector batches compile-time errors and warnings so a single
// parse or validation pass can report every problem at once instead of
// stopping at the first.
type ErrorCollector struct {
	errors   []*ReefError
	warnings []*ReefError
	mutex    sync.RWMutex
}

// NewErrorCollector creates a new error collector.
func NewErrorCollector() *ErrorCollector {
	return &ErrorCollector{
		errors:   make([]*ReefError, 0),
		warnings: make([]*ReefError, 0),
	}
}

// Add adds an error to the collector. Nil errors are ignored.
func (ec *ErrorCollector) Add(err *ReefError) {
	if err == nil {
		return
	}
	ec.mutex.Lock()
	defer ec.mutex.Unlock()
	ec.errors = append(ec.errors, err)
}

// AddWarning adds a non-fatal warning to the collector.
func (ec *ErrorCollector) AddWarning(err *ReefError) {
	if err == nil {
		return
	}
	ec.mutex.Lock()
	defer ec.mutex.Unlock()
	ec.warnings = append(ec.warnings, err)
}

// Errors returns a copy of all collected errors.
func (ec *ErrorCollector) Errors() []*ReefError {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	result := make([]*ReefError, len(ec.errors))
	copy(result, ec.errors)
	return result
}

// Warnings returns a copy of all collected warnings.
func (ec *ErrorCollector) Warnings() []*ReefError {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	result := make([]*ReefError, len(ec.warnings))
	copy(result, ec.warnings)
	return result
}

// HasErrors returns true if any fatal error was collected. Warnings do
// not count.
func (ec *ErrorCollector) HasErrors() bool {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	return len(ec.errors) > 0
}

// Clear removes all collected errors and warnings.
func (ec *ErrorCollector) Clear() {
	ec.mutex.Lock()
	defer ec.mutex.Unlock()
	ec.errors = ec.errors[:0]
	ec.warnings = ec.warnings[:0]
}

// AsError returns the collected errors as a plain error slice for
// callers that deal in error values.
func (ec *ErrorCollector) AsError() []error {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	if len(ec.errors) == 0 {
		return nil
	}
	result := make([]error, len(ec.errors))
	for i, err := range ec.errors {
		result[i] = err
	}
	return result
}
