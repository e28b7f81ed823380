package core

import "github.com/google/uuid"

// newRequestID returns a short correlation id: the first 8 hex digits of a
// random UUID.
func newRequestID() string {
	return uuid.NewString()[:8]
}
