package recurring

import (
	"fmt"
	"strings"

	"moneytracker/internal/core"
)

// TemplateError is the failure of a single template's apply unit.
type TemplateError struct {
	TemplateID int64
	Err        error
}

func (e TemplateError) Error() string {
	return fmt.Sprintf("template %d: %v", e.TemplateID, e.Err)
}

func (e TemplateError) Unwrap() error {
	return e.Err
}

// ApplyError collects the templates that failed during one Apply call. The other
// templates of the call were processed normally.
type ApplyError struct {
	MonthKey core.MonthKey
	Failures []TemplateError
}

func (e *ApplyError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = f.Error()
	}
	return fmt.Sprintf("apply %s: %d template(s) failed: %s", e.MonthKey, len(e.Failures), strings.Join(parts, "; "))
}

// Unwrap exposes each failure so errors.Is can find kinds such as core.ErrStorage.
func (e *ApplyError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f
	}
	return errs
}
