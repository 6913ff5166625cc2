package uptimer

import "github.com/google/uuid"

// NewID generates an opaque identifier for monitors and results.
func NewID() string {
	return uuid.NewString()
}
