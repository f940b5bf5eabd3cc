package moderation

import (
	"context"
	"time"

	"eclipse-warden/model"
)

// Enforcer applies recorded state to the chat platform. The engine calls it
// only after the state is durable and never rolls back when it fails.
type Enforcer interface {
	// Apply puts a punitive state in place. until is nil for standing mutes.
	Apply(ctx context.Context, userID string, kind model.TimedActionKind, until *time.Time, reason string) error
	Revert(ctx context.Context, userID string, kind model.TimedActionKind) error
	// Expel removes the member from the community for kick and ban.
	Expel(ctx context.Context, userID string, action model.CaseAction, reason string) error
}

// NopEnforcer records state without touching any platform.
type NopEnforcer struct{}

func (NopEnforcer) Apply(context.Context, string, model.TimedActionKind, *time.Time, string) error {
	return nil
}

func (NopEnforcer) Revert(context.Context, string, model.TimedActionKind) error {
	return nil
}

func (NopEnforcer) Expel(context.Context, string, model.CaseAction, string) error {
	return nil
}
