package models

// Message is the unit of room history. Once a message is written to the
// store it is immutable; the store assigns ID and Timestamp at append time.
type Message struct {
	ID         int64       `json:"id"`
	RoomID     string      `json:"roomId"`
	Sender     string      `json:"sender,omitempty"` // empty for system messages
	Body       string      `json:"body,omitempty"`
	ImageLink  string      `json:"imageLink,omitempty"`
	Moderation *Prediction `json:"imageModerationResult,omitempty"`
	Timestamp  int64       `json:"timestamp"` // Unix ms
}

// Prediction is one label/score pair from the image classifier.
// The service carries predictions through unmodified; deciding what a
// score means is a display concern, not enforced here.
type Prediction struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// SeedBody is the body of the system message that establishes a room.
const SeedBody = "Chat Is Started"
