package modstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"eclipse-warden/model"
)

type jsonDocument struct {
	*model.Snapshot
	Cases []model.CaseEntry `json:"cases"`
}

// JSONStore keeps the whole state in one JSON document. Each write renders
// the next document to a temp file and renames it over the old one, so a
// failed write leaves the previous document in place. The context is checked
// before the write starts and again before the rename; a single fsync is not
// interruptible.
type JSONStore struct {
	mu    sync.Mutex
	path  string
	state *model.Snapshot
	cases []model.CaseEntry
}

// OpenJSON reads path if it exists. A missing file is an empty store.
func OpenJSON(path string) (*JSONStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	s := &JSONStore{path: path, state: model.NewSnapshot()}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(data) == 0 {
		return s, nil
	}

	doc := jsonDocument{Snapshot: model.NewSnapshot()}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if doc.Warnings == nil {
		doc.Warnings = make(map[string][]model.InfractionRecord)
	}
	for userID, recs := range doc.Warnings {
		for i := range recs {
			recs[i].TargetID = userID
		}
	}
	if doc.ScheduledActions == nil {
		doc.ScheduledActions = []model.TimedAction{}
	}
	if doc.PermanentMutes == nil {
		doc.PermanentMutes = []string{}
	}
	s.state = doc.Snapshot
	s.cases = doc.Cases
	return s, nil
}

func (s *JSONStore) Load(ctx context.Context) (*model.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneSnapshot(s.state), nil
}

// mutate applies fn to a copy of the state and commits the copy only once it
// is on disk.
func (s *JSONStore) mutate(ctx context.Context, fn func(next *model.Snapshot, cases []model.CaseEntry) []model.CaseEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	next := cloneSnapshot(s.state)
	cases := fn(next, append([]model.CaseEntry(nil), s.cases...))
	if err := s.write(ctx, next, cases); err != nil {
		return err
	}
	s.state = next
	s.cases = cases
	return nil
}

func (s *JSONStore) write(ctx context.Context, state *model.Snapshot, cases []model.CaseEntry) error {
	if cases == nil {
		cases = []model.CaseEntry{}
	}
	data, err := json.MarshalIndent(jsonDocument{Snapshot: state, Cases: cases}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode moderation state: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := ctx.Err(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", s.path, err)
	}
	return nil
}

func (s *JSONStore) SaveCaseCounter(ctx context.Context, n int64) error {
	return s.mutate(ctx, func(next *model.Snapshot, cases []model.CaseEntry) []model.CaseEntry {
		next.CaseCounter = n
		return cases
	})
}

func (s *JSONStore) AppendInfraction(ctx context.Context, rec model.InfractionRecord) error {
	return s.mutate(ctx, func(next *model.Snapshot, cases []model.CaseEntry) []model.CaseEntry {
		applyInfraction(next, rec)
		return cases
	})
}

func (s *JSONStore) RemoveLastInfraction(ctx context.Context, userID string) error {
	return s.mutate(ctx, func(next *model.Snapshot, cases []model.CaseEntry) []model.CaseEntry {
		removeLastInfraction(next, userID)
		return cases
	})
}

func (s *JSONStore) ClearInfractions(ctx context.Context, userID string) error {
	return s.mutate(ctx, func(next *model.Snapshot, cases []model.CaseEntry) []model.CaseEntry {
		delete(next.Warnings, userID)
		return cases
	})
}

func (s *JSONStore) SetPermanentMute(ctx context.Context, userID string, muted bool) error {
	return s.mutate(ctx, func(next *model.Snapshot, cases []model.CaseEntry) []model.CaseEntry {
		applyPermanentMute(next, userID, muted)
		return cases
	})
}

func (s *JSONStore) SaveTimedAction(ctx context.Context, a model.TimedAction) error {
	return s.mutate(ctx, func(next *model.Snapshot, cases []model.CaseEntry) []model.CaseEntry {
		applyTimedAction(next, a)
		return cases
	})
}

func (s *JSONStore) DeleteTimedAction(ctx context.Context, key model.TimedActionKey) error {
	return s.mutate(ctx, func(next *model.Snapshot, cases []model.CaseEntry) []model.CaseEntry {
		removeTimedAction(next, key)
		return cases
	})
}

func (s *JSONStore) AppendCase(ctx context.Context, c model.CaseEntry) error {
	return s.mutate(ctx, func(next *model.Snapshot, cases []model.CaseEntry) []model.CaseEntry {
		return append(cases, c)
	})
}

func (s *JSONStore) Cases(ctx context.Context, filter model.CaseFilter) ([]model.CaseEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return filterCases(s.cases, filter), nil
}

func (s *JSONStore) Close() error {
	return nil
}
