package util

import "github.com/oklog/ulid/v2"

// NewULID returns a new lexicographically sortable identifier. ulid.Make is
// monotonic within a millisecond and safe for concurrent use.
func NewULID() string {
	return ulid.Make().String()
}
