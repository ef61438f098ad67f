package strix

import "fmt"

// ErrSessionNotFound is returned by stores when a session ID does not exist.
type ErrSessionNotFound struct {
	ID string
}

func (e *ErrSessionNotFound) Error() string {
	return "session not found: " + e.ID
}

// ErrToolTimeout marks a tool whose stdout read gap exceeded its timeout.
type ErrToolTimeout struct {
	Tool    string
	Seconds int
}

func (e *ErrToolTimeout) Error() string {
	return fmt.Sprintf("%s: timeout after %ds", e.Tool, e.Seconds)
}
