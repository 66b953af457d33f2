package registry

import "errors"

// Sentinel errors for registry operations.
var (
	// ErrRoomNotFound is returned when a room code resolves to nothing.
	ErrRoomNotFound = errors.New("room not found")

	// ErrNotJoined is returned when a connection posts to a room it is not
	// bound to.
	ErrNotJoined = errors.New("connection not joined to room")

	// ErrEmptyMessage is returned for empty or whitespace-only text. Callers
	// drop it silently; it never reaches the client as an error event.
	ErrEmptyMessage = errors.New("empty message")

	// ErrCodeSpaceExhausted is returned when code generation keeps colliding
	// even after falling back to a longer code.
	ErrCodeSpaceExhausted = errors.New("could not allocate a unique room code")
)
