package testsupport

import (
	"fmt"
	"sync/atomic"
	"time"
)

// SequentialIDs returns a generator of ascending UUID-shaped identifiers.
// Every generator starts at 1.
func SequentialIDs() func() (string, error) {
	var n atomic.Int64
	return func() (string, error) {
		return SequentialID(int(n.Add(1))), nil
	}
}

// SequentialID is the i-th identifier produced by SequentialIDs.
func SequentialID(i int) string {
	return fmt.Sprintf("0190a000-0000-7000-8000-%012d", i)
}

// FixedClock returns a clock frozen at t.
func FixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
