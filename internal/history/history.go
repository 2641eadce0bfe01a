package history

import (
	"context"
	"errors"

	"modchat/internal/models"
)

var (
	// ErrRoomExists is returned by CreateRoom when the room already has
	// at least one message.
	ErrRoomExists = errors.New("room already exists")

	// ErrStoreUnavailable wraps transport or storage failures on the
	// write path. Callers must not assume a write landed unless Append
	// returned without error.
	ErrStoreUnavailable = errors.New("message store unavailable")
)

// Store is append-only ordered access to message history per room.
// A room exists once at least one message carries its roomId; there is
// no separate room record.
type Store interface {
	// RoomExists reports whether any message exists for roomID.
	RoomExists(ctx context.Context, roomID string) (bool, error)

	// CreateRoom seeds a new room with a single system message and
	// returns it. Fails with ErrRoomExists if the room already has
	// history.
	CreateRoom(ctx context.Context, roomID string) (*models.Message, error)

	// Append writes a message, assigns its ID and Timestamp, and
	// returns the stored record.
	Append(ctx context.Context, msg *models.Message) (*models.Message, error)

	// ListOrdered returns all messages for roomID sorted by timestamp
	// ascending (append sequence breaks ties). A room with no messages
	// yields an empty slice, not an error.
	ListOrdered(ctx context.Context, roomID string) ([]*models.Message, error)
}
