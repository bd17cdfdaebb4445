package core

import "errors"

// Error kinds. Concrete errors wrap one of these so callers can branch with errors.Is.
var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrStorage    = errors.New("storage error")
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrCategoryInUse = errors.New("category in use, delete related transactions first")
	ErrMonthNotEmpty = errors.New("month already has transactions")
)

// Kind returns the error kind err wraps, or nil when it wraps none of them.
func Kind(err error) error {
	for _, k := range []error{ErrValidation, ErrNotFound, ErrConflict, ErrStorage} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
