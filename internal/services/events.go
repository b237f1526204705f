package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type EventType string

const (
	EventRequestSent      EventType = "request.sent"
	EventRequestCancelled EventType = "request.cancelled"
	EventRequestAccepted  EventType = "request.accepted"
	EventRequestRejected  EventType = "request.rejected"
	EventCoupleEnded      EventType = "couple.ended"
)

// PairingEvent describes a committed pairing state change. ActorID is the user
// who caused it and TargetID the other party.
type PairingEvent struct {
	Type       EventType `json:"type"`
	RequestID  uuid.UUID `json:"request_id"`
	CoupleID   uuid.UUID `json:"couple_id"`
	ActorID    uuid.UUID `json:"actor_id"`
	TargetID   uuid.UUID `json:"target_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

type EventPublisher interface {
	Publish(ctx context.Context, event PairingEvent) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, PairingEvent) error { return nil }

// redisPublisher is the part of *redis.Client the event publisher uses.
type redisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

type RedisEventPublisher struct {
	client  redisPublisher
	channel string
	timeout time.Duration
}

func NewRedisEventPublisher(client redisPublisher, channel string) *RedisEventPublisher {
	return &RedisEventPublisher{client: client, channel: channel, timeout: 2 * time.Second}
}

func (p *RedisEventPublisher) Publish(ctx context.Context, event PairingEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding pairing event: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("publishing %s to %s: %w", event.Type, p.channel, err)
	}
	return nil
}
