package core

import "github.com/google/uuid"

// NewID returns a time-ordered identifier so that IDs sort by creation.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}
