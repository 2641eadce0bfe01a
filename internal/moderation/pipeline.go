// Package moderation turns an inbound image URL into a classified, stored,
// persisted chat message, or fails cleanly. The pipeline is linear: first
// failure aborts the submission, nothing is retried or rolled back.
package moderation

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"time"

	"github.com/rs/zerolog"

	"modchat/internal/history"
	"modchat/internal/metrics"
	"modchat/internal/models"
	"modchat/internal/storage"
)

// Submission is one image post. It has no identity beyond the pipeline
// call that carries it; it either completes into a persisted message or is
// discarded.
type Submission struct {
	RoomID   string
	Sender   string
	ImageURL string
}

// Pipeline orchestrates fetch, normalize, classify, store, and persist for
// image submissions.
type Pipeline struct {
	store      history.Store
	fetcher    Fetcher
	classifier Classifier
	objects    storage.ObjectStore
	buffers    *BufferPool
	normalize  normalizeFunc
	log        zerolog.Logger
}

// NewPipeline wires the pipeline's collaborators together. A nil
// classifier disables moderation entirely: submissions are rejected with
// ErrModerationDisabled instead of passing unscreened images through.
func NewPipeline(store history.Store, fetcher Fetcher, classifier Classifier,
	objects storage.ObjectStore, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		store:      store,
		fetcher:    fetcher,
		classifier: classifier,
		objects:    objects,
		buffers:    NewBufferPool(),
		normalize:  normalizeImage,
		log:        logger.With().Str("component", "moderation").Logger(),
	}
}

// Submit runs the full pipeline and returns the persisted message together
// with the complete prediction ranking. A disconnecting sender does not
// cancel an in-flight submission; callers pass a context that outlives the
// connection.
func (p *Pipeline) Submit(ctx context.Context, sub Submission) (*models.Message, []models.Prediction, error) {
	start := time.Now()
	defer func() { metrics.PipelineDuration.Observe(time.Since(start).Seconds()) }()

	// Precondition: reject before any I/O.
	if p.classifier == nil {
		return p.fail("disabled", ErrModerationDisabled)
	}
	if sub.ImageURL == "" {
		return p.fail("invalid", fmt.Errorf("%w: missing image URL", ErrInvalidSubmission))
	}
	if sub.RoomID == "" || sub.Sender == "" {
		return p.fail("invalid", fmt.Errorf("%w: missing roomId or sender", ErrInvalidSubmission))
	}

	exists, err := p.store.RoomExists(ctx, sub.RoomID)
	if err != nil {
		return p.fail("room_check", err)
	}
	if !exists {
		return p.fail("room_check", fmt.Errorf("%w: create a room before starting the chat", ErrRoomNotFound))
	}

	data, contentType, err := p.fetcher.Get(ctx, sub.ImageURL)
	if err != nil {
		return p.fail("fetch", fmt.Errorf("%w: %v", ErrFetch, err))
	}

	predictions, err := p.classify(ctx, data)
	if err != nil {
		return nil, nil, err
	}

	key := objectKey(sub.ImageURL, time.Now())
	link, err := p.objects.Put(ctx, key, data, contentType)
	if err != nil {
		return p.fail("upload", fmt.Errorf("%w: %v", ErrStoreUpload, err))
	}

	msg := &models.Message{
		RoomID:     sub.RoomID,
		Sender:     sub.Sender,
		Body:       "Image uploaded",
		ImageLink:  link,
		Moderation: &predictions[0],
	}
	stored, err := p.store.Append(ctx, msg)
	if err != nil {
		// The object already landed in the bucket. Accepted as an
		// orphan; nothing references it, out-of-band GC can reap it.
		p.log.Warn().Str("key", key).Str("room", sub.RoomID).
			Msg("image persisted to bucket but message append failed, object orphaned")
		return p.fail("persist", err)
	}

	metrics.ImageSubmissions.WithLabelValues("ok").Inc()
	metrics.MessagesPosted.WithLabelValues("image").Inc()
	return stored, predictions, nil
}

// classify normalizes the raw bytes into a pooled tensor and scores it.
// The tensor is released on every exit path.
func (p *Pipeline) classify(ctx context.Context, data []byte) ([]models.Prediction, error) {
	tensor := p.buffers.Acquire()
	defer tensor.Release()

	if err := p.normalize(data, tensor); err != nil {
		metrics.ImageSubmissions.WithLabelValues("normalize").Inc()
		return nil, fmt.Errorf("%w: %v", ErrNormalize, err)
	}
	// Sanity guard against silent resizing bugs: the buffer must hold
	// exactly width*height*channels bytes before it reaches the model.
	if len(tensor.Pix) != TensorLen {
		metrics.ImageSubmissions.WithLabelValues("normalize").Inc()
		return nil, fmt.Errorf("%w: incorrect buffer size: expected %d, got %d",
			ErrNormalize, TensorLen, len(tensor.Pix))
	}

	predictions, err := p.classifier.Classify(ctx, tensor)
	if err != nil {
		metrics.ImageSubmissions.WithLabelValues("classify").Inc()
		return nil, fmt.Errorf("classification failed: %w", err)
	}
	if len(predictions) == 0 {
		metrics.ImageSubmissions.WithLabelValues("classify").Inc()
		return nil, fmt.Errorf("classification failed: empty prediction list")
	}
	return predictions, nil
}

func (p *Pipeline) fail(stage string, err error) (*models.Message, []models.Prediction, error) {
	metrics.ImageSubmissions.WithLabelValues(stage).Inc()
	return nil, nil, err
}

// objectKey builds the bucket key for an uploaded image from the
// submission time and the basename of the source URL.
func objectKey(imageURL string, now time.Time) string {
	base := "image"
	if u, err := url.Parse(imageURL); err == nil {
		if b := path.Base(u.Path); b != "" && b != "." && b != "/" {
			base = b
		}
	}
	return fmt.Sprintf("images/%d_%s", now.UnixMilli(), base)
}
