package event

import (
	"context"
	"time"
)

// Actions recorded on change events.
const (
	ActionCreate       = "create"
	ActionUpdate       = "update"
	ActionDelete       = "delete"
	ActionStatusToggle = "status_toggle"
)

// ChangeEvent describes one successful mutation of a coded entity. Events are
// advisory: consumers (UI refresh, audit sinks) must tolerate loss.
type ChangeEvent struct {
	Entity     string    `json:"entity"`
	Code       string    `json:"code"`
	Action     string    `json:"action"`
	ActorID    int64     `json:"actor_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Emitter publishes change events. Emission is fire-and-forget from the
// caller's point of view: implementations log failures, they never bubble
// them into request handling.
type Emitter interface {
	Emit(ctx context.Context, evt ChangeEvent)
}

// NopEmitter discards all events. Used in tests and redis-less deployments.
type NopEmitter struct{}

func (NopEmitter) Emit(context.Context, ChangeEvent) {}
