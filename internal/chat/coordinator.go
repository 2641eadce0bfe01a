package chat

import (
	"context"

	"github.com/rs/zerolog"

	"modchat/internal/history"
	"modchat/internal/metrics"
	"modchat/internal/models"
	"modchat/internal/moderation"
)

// Coordinator bridges connection lifecycle events to the registry, the
// history store, and the image pipeline.
type Coordinator struct {
	registry *Registry
	store    history.Store
	pipeline *moderation.Pipeline
	relay    *Relay

	// historyLimit caps how many messages are replayed on join; zero
	// replays everything.
	historyLimit int

	log zerolog.Logger
}

// NewCoordinator wires the session core together. relay may be nil for a
// single-instance deployment.
func NewCoordinator(registry *Registry, store history.Store, pipeline *moderation.Pipeline,
	relay *Relay, historyLimit int, logger zerolog.Logger) *Coordinator {
	return &Coordinator{
		registry:     registry,
		store:        store,
		pipeline:     pipeline,
		relay:        relay,
		historyLimit: historyLimit,
		log:          logger.With().Str("component", "coordinator").Logger(),
	}
}

// OnJoin registers the connection in the room and replays the room's
// history privately to it. A failed history read degrades to an empty
// replay rather than rejecting the join.
func (co *Coordinator) OnJoin(ctx context.Context, c *Client, roomID string) {
	if roomID == "" {
		c.deliver(errorEvent("missing roomId"))
		return
	}

	co.registry.Join(c, roomID)
	metrics.RoomJoins.Inc()

	messages, err := co.store.ListOrdered(ctx, roomID)
	if err != nil {
		co.log.Error().Err(err).Str("room", roomID).Msg("history load failed, replaying empty history")
		messages = nil
	}
	if co.historyLimit > 0 && len(messages) > co.historyLimit {
		messages = messages[len(messages)-co.historyLimit:]
	}
	c.deliver(historyEvent(messages))
}

// OnSendText persists the message and broadcasts it to the room, sender
// included. On a failed append nothing is broadcast and the sender gets a
// private failure notification.
func (co *Coordinator) OnSendText(ctx context.Context, c *Client, roomID, sender, body string) {
	if roomID == "" || sender == "" || body == "" {
		c.deliver(errorEvent("missing roomId, sender, or body"))
		return
	}

	stored, err := co.store.Append(ctx, &models.Message{RoomID: roomID, Sender: sender, Body: body})
	if err != nil {
		co.log.Error().Err(err).Str("room", roomID).Str("sender", sender).Msg("message append failed")
		c.deliver(errorEvent("failed to persist message"))
		return
	}

	metrics.MessagesPosted.WithLabelValues("text").Inc()
	co.broadcast(roomID, receiveEvent(stored))
}

// OnSendImage runs the moderation pipeline for a websocket image
// submission. The pipeline deliberately gets a fresh context: once started
// it runs to completion even if the sender disconnects.
func (co *Coordinator) OnSendImage(c *Client, roomID, sender, imageURL string) {
	_, _, err := co.SubmitImage(context.Background(), moderation.Submission{
		RoomID:   roomID,
		Sender:   sender,
		ImageURL: imageURL,
	})
	if err != nil {
		c.deliver(errorEvent(err.Error()))
	}
}

// SubmitImage is the synchronous entry point shared by the websocket and
// HTTP surfaces. On success the persisted message has already been
// broadcast to the room.
func (co *Coordinator) SubmitImage(ctx context.Context, sub moderation.Submission) (*models.Message, []models.Prediction, error) {
	msg, predictions, err := co.pipeline.Submit(ctx, sub)
	if err != nil {
		return nil, nil, err
	}
	co.broadcast(msg.RoomID, receiveEvent(msg))
	return msg, predictions, nil
}

// CreateRoom seeds a new room in the history store.
func (co *Coordinator) CreateRoom(ctx context.Context, roomID string) (*models.Message, error) {
	seed, err := co.store.CreateRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	metrics.MessagesPosted.WithLabelValues("seed").Inc()
	return seed, nil
}

// OnDisconnect deregisters all of the connection's memberships.
func (co *Coordinator) OnDisconnect(c *Client) {
	co.registry.Leave(c)
}

// broadcast fans an event out to the room. With a relay configured the
// event takes the round trip through Redis so every instance, this one
// included, delivers it to its local members.
func (co *Coordinator) broadcast(roomID string, payload []byte) {
	if co.relay != nil {
		if err := co.relay.Publish(context.Background(), roomID, payload); err != nil {
			co.log.Error().Err(err).Str("room", roomID).Msg("relay publish failed, delivering locally")
			co.registry.Broadcast(roomID, payload)
		}
		return
	}
	co.registry.Broadcast(roomID, payload)
}
