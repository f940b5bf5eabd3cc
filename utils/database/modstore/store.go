// Package modstore persists moderation state: infractions, the case counter,
// pending timed actions, standing mutes and the case audit trail.
package modstore

import (
	"context"
	"fmt"
	"path/filepath"

	"eclipse-warden/model"
)

const (
	BackendSQLite = "sqlite"
	BackendJSON   = "json"
	BackendMemory = "memory"
)

// Store is the durable keyed store behind the moderation engine. Every write
// is atomic: it either fully lands or leaves the previous state untouched.
type Store interface {
	// Load returns the full persisted state. An empty or missing store yields
	// empty defaults, not an error.
	Load(ctx context.Context) (*model.Snapshot, error)
	SaveCaseCounter(ctx context.Context, n int64) error
	AppendInfraction(ctx context.Context, rec model.InfractionRecord) error
	// RemoveLastInfraction deletes the user's most recent infraction, if any.
	RemoveLastInfraction(ctx context.Context, userID string) error
	ClearInfractions(ctx context.Context, userID string) error
	SetPermanentMute(ctx context.Context, userID string, muted bool) error
	// SaveTimedAction inserts or replaces the action stored under a.Key().
	SaveTimedAction(ctx context.Context, a model.TimedAction) error
	DeleteTimedAction(ctx context.Context, key model.TimedActionKey) error
	AppendCase(ctx context.Context, c model.CaseEntry) error
	// Cases returns matching entries ordered by case id, newest first.
	Cases(ctx context.Context, filter model.CaseFilter) ([]model.CaseEntry, error)
	Close() error
}

// Open returns the store for backend rooted at dataDir.
func Open(backend, dataDir string) (Store, error) {
	switch backend {
	case BackendSQLite, "":
		return OpenSQLite(filepath.Join(dataDir, "moderation.db"))
	case BackendJSON:
		return OpenJSON(filepath.Join(dataDir, "moderation.json"))
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}

// Export reads the complete state of s, including the case log.
func Export(ctx context.Context, s Store) (*model.Snapshot, []model.CaseEntry, error) {
	snap, err := s.Load(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	cases, err := s.Cases(ctx, model.CaseFilter{})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read case log: %w", err)
	}
	return snap, cases, nil
}

// Import writes snap and cases into dst. dst is expected to be empty.
func Import(ctx context.Context, dst Store, snap *model.Snapshot, cases []model.CaseEntry) error {
	for userID, recs := range snap.Warnings {
		for _, rec := range recs {
			rec.TargetID = userID
			if err := dst.AppendInfraction(ctx, rec); err != nil {
				return fmt.Errorf("failed to import infraction for user %s: %w", userID, err)
			}
		}
	}
	for _, userID := range snap.PermanentMutes {
		if err := dst.SetPermanentMute(ctx, userID, true); err != nil {
			return fmt.Errorf("failed to import standing mute for user %s: %w", userID, err)
		}
	}
	for _, a := range snap.ScheduledActions {
		if err := dst.SaveTimedAction(ctx, a); err != nil {
			return fmt.Errorf("failed to import timed action %s: %w", a.Key(), err)
		}
	}
	// Oldest first so the destination log keeps its natural order.
	for i := len(cases) - 1; i >= 0; i-- {
		if err := dst.AppendCase(ctx, cases[i]); err != nil {
			return fmt.Errorf("failed to import case %d: %w", cases[i].CaseID, err)
		}
	}
	if err := dst.SaveCaseCounter(ctx, snap.CaseCounter); err != nil {
		return fmt.Errorf("failed to import case counter: %w", err)
	}
	return nil
}
