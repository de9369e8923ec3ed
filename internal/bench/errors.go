package bench

import (
	"fmt"
	"path/filepath"
	"runtime"
)

// ConsistencyError reports a trial whose sum differs from the reference.
// It is fatal to the whole benchmark.
type ConsistencyError struct {
	Strategy string
	Trial    int // negative for warm-up trials
	Expected uint32
	Actual   uint32
	Message  string
	File     string
	Line     int
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("%s But %d != %d, %s:%d", e.Message, e.Expected, e.Actual, e.File, e.Line)
}

// expectSame returns a *ConsistencyError when expected != actual, pointing at
// the caller's source line.
func expectSame(expected, actual uint32, message string) error {
	if expected == actual {
		return nil
	}
	_, file, line, ok := runtime.Caller(1)
	if !ok {
		file, line = "???", 0
	}
	return &ConsistencyError{
		Expected: expected,
		Actual:   actual,
		Message:  message,
		File:     filepath.Base(file),
		Line:     line,
	}
}
