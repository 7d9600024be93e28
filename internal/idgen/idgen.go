package idgen

import (
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// New returns a UUIDv7 identifier string, used for task, context, and
// message ids. If UUIDv7 generation fails, it falls back to a random UUIDv4.
func New() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Entry returns a lexically sortable ULID, used for append-only
// interaction-log entries so insertion order survives in the store.
func Entry() string {
	return ulid.Make().String()
}
