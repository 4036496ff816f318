package apperrors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrUnknownDialect  = errors.New("unknown dialect")
	ErrEmptySelection  = errors.New("no nodes selected")
	ErrInjectionUnsafe = errors.New("value failed SQL injection screening")
)

// InvalidFormulaError reports a structural validation failure in a
// TotalFormula or FormulaGroup payload. RuleIndex identifies the offending
// child or rule entry (-1 when the failure is not tied to a single entry).
type InvalidFormulaError struct {
	HierarchyID string
	RuleIndex   int
	Reason      string
}

func (e *InvalidFormulaError) Error() string {
	if e.RuleIndex >= 0 {
		return fmt.Sprintf("invalid formula on %q: rule %d: %s", e.HierarchyID, e.RuleIndex, e.Reason)
	}
	return fmt.Sprintf("invalid formula on %q: %s", e.HierarchyID, e.Reason)
}

// CircularDependencyError carries the full reference cycle in traversal
// order so callers can highlight every participating node.
type CircularDependencyError struct {
	Cycle []string
}

func (e *CircularDependencyError) Error() string {
	return fmt.Sprintf("circular dependency: %s", strings.Join(e.Cycle, " -> "))
}

// DanglingReferenceError reports a formula referencing a hierarchy id that
// no longer exists in the project.
type DanglingReferenceError struct {
	HierarchyID string
	MissingID   string
}

func (e *DanglingReferenceError) Error() string {
	return fmt.Sprintf("formula on %q references missing hierarchy %q", e.HierarchyID, e.MissingID)
}

// UnsupportedOperationError reports an artifact/dialect combination the
// target dialect has no rendering for.
type UnsupportedOperationError struct {
	Dialect string
	Feature string
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("dialect %q does not support %s", e.Dialect, e.Feature)
}

// IsInvalidFormula reports whether err is (or wraps) an InvalidFormulaError.
func IsInvalidFormula(err error) bool {
	var target *InvalidFormulaError
	return errors.As(err, &target)
}

// IsCircularDependency reports whether err is (or wraps) a CircularDependencyError.
func IsCircularDependency(err error) bool {
	var target *CircularDependencyError
	return errors.As(err, &target)
}

// IsDanglingReference reports whether err is (or wraps) a DanglingReferenceError.
func IsDanglingReference(err error) bool {
	var target *DanglingReferenceError
	return errors.As(err, &target)
}

// IsUnsupportedOperation reports whether err is (or wraps) an UnsupportedOperationError.
func IsUnsupportedOperation(err error) bool {
	var target *UnsupportedOperationError
	return errors.As(err, &target)
}
