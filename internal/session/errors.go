package session

import (
	"fmt"
	"sort"
)

// AbortError ends a session that hit a storage or invariant failure. It
// reports how far persistence got.
type AbortError struct {
	Err           error
	Unflushed     []int64 // cards whose latest answer or plan is not stored
	LastPersisted int64   // 0 when nothing was stored
}

func (e *AbortError) Error() string {
	msg := fmt.Sprintf("session aborted: %v", e.Err)
	if e.LastPersisted != 0 {
		msg += fmt.Sprintf(" (last persisted card %d)", e.LastPersisted)
	}
	if len(e.Unflushed) > 0 {
		msg += fmt.Sprintf(" (unflushed cards %v)", e.Unflushed)
	}
	return msg
}

func (e *AbortError) Unwrap() error {
	return e.Err
}

func newAbortError(s *Session, err error) *AbortError {
	return &AbortError{
		Err:           err,
		Unflushed:     sortedKeys(s.unflushed),
		LastPersisted: s.lastPersisted,
	}
}

// sortedKeys returns the keys of m in ascending order (nil when m is empty).
// Stand-in for slices.Sorted(maps.Keys(m)), which needs Go 1.23.
func sortedKeys(m map[int64]bool) []int64 {
	var keys []int64
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
