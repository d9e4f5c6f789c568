package snapshot

import (
	"errors"
	"fmt"
)

// ErrFatal marks failures that abort a whole operation without a partial result.
var ErrFatal = errors.New("fatal snapshot error")

// ErrNotSnapshot is returned for paths holding neither a manifest nor a category file.
var ErrNotSnapshot = errors.New("not a snapshot")

// CategoryError is a read or write failure of one category file. Other categories
// are unaffected.
type CategoryError struct {
	Category Category
	Op       string
	Err      error
}

func (e *CategoryError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Category.FileName(), e.Err)
}

func (e *CategoryError) Unwrap() error { return e.Err }

func fatalf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrFatal, fmt.Sprintf(format, args...))
}
