package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type fakeRedisPublisher struct {
	channel string
	payload []byte
	err     error
}

func (p *fakeRedisPublisher) Publish(_ context.Context, channel string, message interface{}) *redis.IntCmd {
	p.channel = channel
	p.payload, _ = message.([]byte)
	return redis.NewIntResult(1, p.err)
}

func TestRedisEventPublisher_Publish(t *testing.T) {
	client := &fakeRedisPublisher{}
	pub := NewRedisEventPublisher(client, "pairing-events")

	event := PairingEvent{
		Type:       EventRequestAccepted,
		RequestID:  uuid.New(),
		CoupleID:   uuid.New(),
		ActorID:    uuid.New(),
		TargetID:   uuid.New(),
		OccurredAt: time.Date(2026, 2, 14, 9, 0, 0, 0, time.UTC),
	}
	if err := pub.Publish(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.channel != "pairing-events" {
		t.Fatalf("unexpected channel %q", client.channel)
	}

	var decoded PairingEvent
	if err := json.Unmarshal(client.payload, &decoded); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if decoded.Type != EventRequestAccepted || decoded.CoupleID != event.CoupleID {
		t.Fatalf("unexpected payload %+v", decoded)
	}
}

func TestRedisEventPublisher_PublishError(t *testing.T) {
	client := &fakeRedisPublisher{err: errors.New("connection refused")}
	pub := NewRedisEventPublisher(client, "pairing-events")

	err := pub.Publish(context.Background(), PairingEvent{Type: EventCoupleEnded})
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, client.err) {
		t.Fatalf("expected wrapped client error, got %v", err)
	}
}

func TestRedisEventPublisher_IgnoresCallerCancellation(t *testing.T) {
	client := &fakeRedisPublisher{}
	pub := NewRedisEventPublisher(client, "pairing-events")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := pub.Publish(ctx, PairingEvent{Type: EventRequestSent}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
