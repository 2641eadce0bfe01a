package chat

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
)

func newTestRelay() (*Relay, *Registry) {
	registry := NewRegistry()
	return NewRelay(nil, registry, zerolog.Nop()), registry
}

func TestRelayEnvelopeRoundTrip(t *testing.T) {
	relay, registry := newTestRelay()
	member := newTestClient()
	outsider := newTestClient()
	registry.Join(member, "room-1")
	registry.Join(outsider, "room-2")

	payload := []byte(`{"event":"receive_message","data":{"message":"hi"}}`)
	env, err := encodeEnvelope("room-1", payload)
	if err != nil {
		t.Fatalf("encode envelope: %v", err)
	}

	relay.dispatch(env)

	if queued(member) != 1 {
		t.Fatalf("expected one delivery to room member, got %d", queued(member))
	}
	if got := <-member.send; !bytes.Equal(got, payload) {
		t.Fatalf("payload must survive the relay unchanged, got %s", got)
	}
	if queued(outsider) != 0 {
		t.Fatalf("expected no cross-room delivery, got %d", queued(outsider))
	}
}

func TestRelayDispatchDropsMalformedEnvelope(t *testing.T) {
	relay, registry := newTestRelay()
	member := newTestClient()
	registry.Join(member, "room-1")

	relay.dispatch([]byte("{not json"))

	if queued(member) != 0 {
		t.Fatalf("malformed envelope must not be delivered, got %d", queued(member))
	}
}
