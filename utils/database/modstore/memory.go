package modstore

import (
	"context"
	"sort"
	"sync"

	"eclipse-warden/model"
)

// MemoryStore keeps everything in process memory. Used by tests and by the
// "memory" backend for throwaway runs.
type MemoryStore struct {
	mu    sync.RWMutex
	state *model.Snapshot
	cases []model.CaseEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: model.NewSnapshot()}
}

func (m *MemoryStore) Load(ctx context.Context) (*model.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneSnapshot(m.state), nil
}

func (m *MemoryStore) SaveCaseCounter(ctx context.Context, n int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.CaseCounter = n
	return nil
}

func (m *MemoryStore) AppendInfraction(ctx context.Context, rec model.InfractionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	applyInfraction(m.state, rec)
	return nil
}

func (m *MemoryStore) RemoveLastInfraction(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	removeLastInfraction(m.state, userID)
	return nil
}

func (m *MemoryStore) ClearInfractions(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.state.Warnings, userID)
	return nil
}

func (m *MemoryStore) SetPermanentMute(ctx context.Context, userID string, muted bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	applyPermanentMute(m.state, userID, muted)
	return nil
}

func (m *MemoryStore) SaveTimedAction(ctx context.Context, a model.TimedAction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	applyTimedAction(m.state, a)
	return nil
}

func (m *MemoryStore) DeleteTimedAction(ctx context.Context, key model.TimedActionKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	removeTimedAction(m.state, key)
	return nil
}

func (m *MemoryStore) AppendCase(ctx context.Context, c model.CaseEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cases = append(m.cases, c)
	return nil
}

func (m *MemoryStore) Cases(ctx context.Context, filter model.CaseFilter) ([]model.CaseEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return filterCases(m.cases, filter), nil
}

func (m *MemoryStore) Close() error {
	return nil
}

func applyInfraction(s *model.Snapshot, rec model.InfractionRecord) {
	s.Warnings[rec.TargetID] = append(s.Warnings[rec.TargetID], rec)
}

func removeLastInfraction(s *model.Snapshot, userID string) {
	recs := s.Warnings[userID]
	switch len(recs) {
	case 0:
	case 1:
		delete(s.Warnings, userID)
	default:
		s.Warnings[userID] = recs[:len(recs)-1]
	}
}

func applyPermanentMute(s *model.Snapshot, userID string, muted bool) {
	idx := -1
	for i, id := range s.PermanentMutes {
		if id == userID {
			idx = i
			break
		}
	}
	switch {
	case muted && idx < 0:
		s.PermanentMutes = append(s.PermanentMutes, userID)
	case !muted && idx >= 0:
		s.PermanentMutes = append(s.PermanentMutes[:idx], s.PermanentMutes[idx+1:]...)
	}
}

func applyTimedAction(s *model.Snapshot, a model.TimedAction) {
	for i := range s.ScheduledActions {
		if s.ScheduledActions[i].Key() == a.Key() {
			s.ScheduledActions[i] = a
			return
		}
	}
	s.ScheduledActions = append(s.ScheduledActions, a)
}

func removeTimedAction(s *model.Snapshot, key model.TimedActionKey) {
	for i := range s.ScheduledActions {
		if s.ScheduledActions[i].Key() == key {
			s.ScheduledActions = append(s.ScheduledActions[:i], s.ScheduledActions[i+1:]...)
			return
		}
	}
}

func filterCases(all []model.CaseEntry, filter model.CaseFilter) []model.CaseEntry {
	out := make([]model.CaseEntry, 0)
	for _, c := range all {
		if filter.Match(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CaseID > out[j].CaseID })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out
}

func cloneSnapshot(s *model.Snapshot) *model.Snapshot {
	out := model.NewSnapshot()
	out.CaseCounter = s.CaseCounter
	for userID, recs := range s.Warnings {
		cp := make([]model.InfractionRecord, len(recs))
		copy(cp, recs)
		for i := range cp {
			cp[i].TargetID = userID
		}
		out.Warnings[userID] = cp
	}
	out.ScheduledActions = append(out.ScheduledActions, s.ScheduledActions...)
	out.PermanentMutes = append(out.PermanentMutes, s.PermanentMutes...)
	return out
}
