package loader

import (
	"errors"
	"fmt"
)

// ErrReadFile is returned when a table file exists but cannot be read.
var ErrReadFile = errors.New("read table file")

// SkippedRowError describes a malformed row that was dropped during loading.
type SkippedRowError struct {
	File   string
	Line   int
	Reason string
}

func (e *SkippedRowError) Error() string {
	return fmt.Sprintf("%s:%d: skipped row: %s", e.File, e.Line, e.Reason)
}

func skip(reason string, args ...any) error {
	return &SkippedRowError{Reason: fmt.Sprintf(reason, args...)}
}
