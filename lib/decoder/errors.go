package decoder

import (
	"errors"
	"fmt"
)

// ErrNoModeSelected is returned by Feed when the Reader has not been given
// a wire format yet.
var ErrNoModeSelected = errors.New("no decoder mode selected")

// FramingError is a hard loss of sync: the input no longer looks like the
// wire format the Reader is in. There is no resynchronisation; the caller
// decides whether to drop the connection or reset the stream.
type FramingError struct {
	Offset int
	Reason string
}

func (e *FramingError) Error() string {
	return fmt.Sprintf("lost sync at offset %d: %s", e.Offset, e.Reason)
}

func framingErr(offset int, format string, args ...interface{}) error {
	return &FramingError{Offset: offset, Reason: fmt.Sprintf(format, args...)}
}
