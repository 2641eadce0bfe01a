package moderation

import "errors"

var (
	// ErrInvalidSubmission means a required field was missing. No I/O has
	// happened when this is returned.
	ErrInvalidSubmission = errors.New("invalid submission")

	// ErrRoomNotFound means the target room has no history yet.
	ErrRoomNotFound = errors.New("room not found")

	// ErrFetch wraps a failure to retrieve the source image.
	ErrFetch = errors.New("image fetch failed")

	// ErrNormalize wraps a failure to decode or resize the image into the
	// classifier input shape.
	ErrNormalize = errors.New("image normalization failed")

	// ErrStoreUpload wraps a failure to upload the image to the object
	// store.
	ErrStoreUpload = errors.New("image upload failed")

	// ErrModerationDisabled means no classifier is configured; image
	// submissions are rejected outright rather than stored unscreened.
	ErrModerationDisabled = errors.New("image moderation is disabled")
)
