// Package sqlguard screens caller-supplied fragments (parameter references,
// external source and table names) before the compiler splices them into
// generated SQL. Hierarchy ids and names are always quoted as literals or
// identifiers, so only free-form reference strings pass through here.
package sqlguard

import (
	libinjection "github.com/corazawaf/libinjection-go"

	"github.com/finscale/hierarchy-engine/pkg/apperrors"
)

// CheckResult describes a detected SQL injection pattern.
type CheckResult struct {
	Field       string // Name of the formula field that failed the check
	Value       string // The value that was checked
	Fingerprint string // libinjection fingerprint of the detected pattern
}

// Check runs libinjection over one reference string. Returns nil when the
// value is clean.
func Check(field, value string) *CheckResult {
	if value == "" {
		return nil
	}
	isSQLi, fingerprint := libinjection.IsSQLi(value)
	if !isSQLi {
		return nil
	}
	return &CheckResult{
		Field:       field,
		Value:       value,
		Fingerprint: string(fingerprint),
	}
}

// Require returns ErrInjectionUnsafe when the value fails screening.
// Used by the compiler right before a reference is rendered.
func Require(field, value string) error {
	if result := Check(field, value); result != nil {
		return apperrors.ErrInjectionUnsafe
	}
	return nil
}
