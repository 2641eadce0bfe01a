package history

import (
	"context"
	"sync"
	"time"

	"modchat/internal/models"
)

// MemoryStore keeps history in process memory. It backs development runs
// without a database and the test suite. Unlike the Postgres store its
// create-then-seed is fully atomic, so a duplicate seed race cannot occur.
type MemoryStore struct {
	mu       sync.Mutex
	nextID   int64
	messages []*models.Message
}

// NewMemoryStore returns an empty in-memory history store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: 1}
}

// RoomExists reports whether any message exists for roomID.
func (s *MemoryStore) RoomExists(_ context.Context, roomID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roomExistsLocked(roomID), nil
}

func (s *MemoryStore) roomExistsLocked(roomID string) bool {
	for _, msg := range s.messages {
		if msg.RoomID == roomID {
			return true
		}
	}
	return false
}

// CreateRoom seeds the room with a single system message.
func (s *MemoryStore) CreateRoom(_ context.Context, roomID string) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.roomExistsLocked(roomID) {
		return nil, ErrRoomExists
	}
	return s.appendLocked(&models.Message{RoomID: roomID, Body: models.SeedBody}), nil
}

// Append writes a message and returns it with an assigned ID and timestamp.
func (s *MemoryStore) Append(_ context.Context, msg *models.Message) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendLocked(msg), nil
}

func (s *MemoryStore) appendLocked(msg *models.Message) *models.Message {
	stored := *msg
	stored.ID = s.nextID
	s.nextID++
	stored.Timestamp = time.Now().UnixMilli()
	// Append order is the authoritative order; never let a coarse clock
	// move a later message before an earlier one.
	if n := len(s.messages); n > 0 && stored.Timestamp < s.messages[n-1].Timestamp {
		stored.Timestamp = s.messages[n-1].Timestamp
	}
	s.messages = append(s.messages, &stored)
	return &stored
}

// ListOrdered returns the room's full history in timestamp order.
func (s *MemoryStore) ListOrdered(_ context.Context, roomID string) ([]*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	messages := []*models.Message{}
	for _, msg := range s.messages {
		if msg.RoomID == roomID {
			copied := *msg
			messages = append(messages, &copied)
		}
	}
	return messages, nil
}
