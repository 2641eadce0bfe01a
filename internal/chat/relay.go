package chat

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// relayChannel is the single Redis pub/sub channel all instances share.
// Events carry their room in the envelope rather than in the channel name.
const relayChannel = "modchat:rooms"

// Relay fans broadcasts out across server instances through Redis pub/sub.
// Publishing instances receive their own events back on the subscription,
// which is where local delivery happens.
type Relay struct {
	redis    *redis.Client
	registry *Registry
	log      zerolog.Logger
}

// NewRelay returns a relay bound to the local registry.
func NewRelay(redisClient *redis.Client, registry *Registry, logger zerolog.Logger) *Relay {
	return &Relay{
		redis:    redisClient,
		registry: registry,
		log:      logger.With().Str("component", "relay").Logger(),
	}
}

type relayEnvelope struct {
	RoomID  string          `json:"roomId"`
	Payload json.RawMessage `json:"payload"`
}

// Publish sends a room event to every instance.
func (r *Relay) Publish(ctx context.Context, roomID string, payload []byte) error {
	env, err := encodeEnvelope(roomID, payload)
	if err != nil {
		return err
	}
	return r.redis.Publish(ctx, relayChannel, env).Err()
}

func encodeEnvelope(roomID string, payload []byte) ([]byte, error) {
	return json.Marshal(relayEnvelope{RoomID: roomID, Payload: payload})
}

// dispatch decodes one relayed envelope and delivers it to the local
// members of its room. Malformed envelopes are dropped, a bad instance on
// the channel must not take the others down.
func (r *Relay) dispatch(raw []byte) {
	var env relayEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		r.log.Warn().Err(err).Msg("dropping malformed relay envelope")
		return
	}
	r.registry.Broadcast(env.RoomID, env.Payload)
}

// Run subscribes and delivers relayed events to local room members. Blocks
// until the context is cancelled; run it in its own goroutine.
func (r *Relay) Run(ctx context.Context) {
	pubsub := r.redis.Subscribe(ctx, relayChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			r.dispatch([]byte(msg.Payload))
		}
	}
}
