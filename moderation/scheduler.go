package moderation

import (
	"context"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"eclipse-warden/model"
	"eclipse-warden/utils"
	"eclipse-warden/utils/database/modstore"

	"github.com/puzpuzpuz/xsync/v3"
)

// ReversalFunc undoes the punitive state of an expired action. It may run
// again for the same action after a crash, so it must be idempotent.
type ReversalFunc func(ctx context.Context, a model.TimedAction)

type scheduled struct {
	action model.TimedAction
	timer  Timer
	// done is guarded by the key lock.
	done bool
}

// Scheduler owns every pending timed action. Entries are written to the store
// before their timer is armed, so a restart rebuilds them from expiresAt.
type Scheduler struct {
	store   modstore.Store
	clock   Clock
	timeout time.Duration
	logger  *slog.Logger
	reverse ReversalFunc

	locks   *utils.KeyedMutex
	entries *xsync.MapOf[model.TimedActionKey, *scheduled]
	stopped atomic.Bool
}

func NewScheduler(store modstore.Store, clock Clock, timeout time.Duration, logger *slog.Logger, reverse ReversalFunc) *Scheduler {
	return &Scheduler{
		store:   store,
		clock:   clock,
		timeout: timeout,
		logger:  logger,
		reverse: reverse,
		locks:   utils.NewKeyedMutex(),
		entries: xsync.NewMapOf[model.TimedActionKey, *scheduled](),
	}
}

// Schedule registers a reversal d from now, replacing any pending entry for
// the same subject and kind. The replaced entry never fires.
func (s *Scheduler) Schedule(ctx context.Context, subjectID string, kind model.TimedActionKind, d time.Duration, reason string) (model.TimedAction, error) {
	if !kind.Valid() {
		return model.TimedAction{}, invalid("unknown timed action kind %q", kind)
	}
	if d <= 0 {
		return model.TimedAction{}, invalid("duration must be positive")
	}

	a := model.TimedAction{
		SubjectID: subjectID,
		Kind:      kind,
		ExpiresAt: s.clock.Now().UTC().Add(d),
		Reason:    reason,
	}
	key := a.Key()
	unlock := s.locks.Lock(key.String())
	defer unlock()

	err := persist(ctx, s.timeout, "save_timed_action", func(ctx context.Context) error {
		return s.store.SaveTimedAction(ctx, a)
	})
	if err != nil {
		return model.TimedAction{}, err
	}

	if old, ok := s.entries.Load(key); ok && !old.done {
		old.done = true
		old.timer.Stop()
	} else {
		timedActionsActive.WithLabelValues(string(kind)).Inc()
	}
	s.arm(a, d)
	return a, nil
}

// arm must be called with the key lock held. The timer is set before the
// entry is published, so Stop never finds an entry without one.
func (s *Scheduler) arm(a model.TimedAction, d time.Duration) *scheduled {
	e := &scheduled{action: a}
	e.timer = s.clock.AfterFunc(d, func() { s.fire(e) })
	s.entries.Store(a.Key(), e)
	return e
}

// fire runs the reversal for e unless e was replaced, cancelled or already
// fired. The store entry is removed only after the reversal ran.
func (s *Scheduler) fire(e *scheduled) bool {
	if s.stopped.Load() {
		return false
	}
	key := e.action.Key()
	unlock := s.locks.Lock(key.String())
	defer unlock()

	if e.done {
		return false
	}
	if cur, ok := s.entries.Load(key); !ok || cur != e {
		return false
	}
	e.done = true
	s.entries.Delete(key)
	timedActionsActive.WithLabelValues(string(key.Kind)).Dec()
	timedActionsFired.WithLabelValues(string(key.Kind)).Inc()

	ctx := context.Background()
	if s.reverse != nil {
		s.reverse(ctx, e.action)
	}
	err := persist(ctx, s.timeout, "delete_timed_action", func(ctx context.Context) error {
		return s.store.DeleteTimedAction(ctx, key)
	})
	if err != nil {
		// The entry stays in the store and fires again on the next restart.
		s.logger.Error("failed to remove expired timed action", "key", key.String(), "err", err)
		return true
	}
	s.logger.Info("timed action expired", "subject", key.SubjectID, "kind", key.Kind)
	return true
}

// Cancel removes a pending entry without running its reversal. It reports
// false when there was nothing pending, including when the entry already
// fired.
func (s *Scheduler) Cancel(ctx context.Context, subjectID string, kind model.TimedActionKind) (bool, error) {
	key := model.TimedActionKey{SubjectID: subjectID, Kind: kind}
	unlock := s.locks.Lock(key.String())
	defer unlock()

	e, ok := s.entries.Load(key)
	if !ok || e.done {
		s.logger.Debug("cancel found nothing pending", "key", key.String(), "err", ErrSchedulerRace)
		return false, nil
	}
	err := persist(ctx, s.timeout, "delete_timed_action", func(ctx context.Context) error {
		return s.store.DeleteTimedAction(ctx, key)
	})
	if err != nil {
		return false, err
	}
	e.done = true
	e.timer.Stop()
	s.entries.Delete(key)
	timedActionsActive.WithLabelValues(string(kind)).Dec()
	timedActionsCancelled.WithLabelValues(string(kind)).Inc()
	return true, nil
}

// Reinstate puts back an action that was cancelled by an operation that
// later failed. It keeps the original expiry.
func (s *Scheduler) Reinstate(ctx context.Context, a model.TimedAction) error {
	key := a.Key()
	unlock := s.locks.Lock(key.String())
	defer unlock()

	if cur, ok := s.entries.Load(key); ok && !cur.done {
		return nil
	}
	err := persist(ctx, s.timeout, "save_timed_action", func(ctx context.Context) error {
		return s.store.SaveTimedAction(ctx, a)
	})
	if err != nil {
		return err
	}
	d := a.ExpiresAt.Sub(s.clock.Now())
	if d <= 0 {
		d = time.Millisecond
	}
	timedActionsActive.WithLabelValues(string(a.Kind)).Inc()
	s.arm(a, d)
	return nil
}

// Get returns the pending action for subject and kind.
func (s *Scheduler) Get(subjectID string, kind model.TimedActionKind) (model.TimedAction, bool) {
	e, ok := s.entries.Load(model.TimedActionKey{SubjectID: subjectID, Kind: kind})
	if !ok {
		return model.TimedAction{}, false
	}
	return e.action, true
}

// Active lists every pending action ordered by expiry.
func (s *Scheduler) Active() []model.TimedAction {
	var out []model.TimedAction
	s.entries.Range(func(_ model.TimedActionKey, e *scheduled) bool {
		out = append(out, e.action)
		return true
	})
	sortByExpiry(out)
	return out
}

// ActiveFor lists the pending actions against one subject.
func (s *Scheduler) ActiveFor(subjectID string) []model.TimedAction {
	var out []model.TimedAction
	for _, kind := range []model.TimedActionKind{model.KindMute, model.KindTimeout, model.KindMuteActor} {
		if a, ok := s.Get(subjectID, kind); ok {
			out = append(out, a)
		}
	}
	sortByExpiry(out)
	return out
}

func sortByExpiry(actions []model.TimedAction) {
	sort.Slice(actions, func(i, j int) bool {
		return actions[i].ExpiresAt.Before(actions[j].ExpiresAt)
	})
}

// Restore re-arms persisted actions after a restart. Overdue actions fire
// before Restore returns.
func (s *Scheduler) Restore(actions []model.TimedAction) {
	now := s.clock.Now()
	var overdue []*scheduled
	for _, a := range actions {
		if !a.Kind.Valid() {
			s.logger.Warn("skipping persisted timed action with unknown kind", "key", a.Key().String())
			continue
		}
		unlock := s.locks.Lock(a.Key().String())
		if old, ok := s.entries.Load(a.Key()); ok && !old.done {
			old.done = true
			old.timer.Stop()
		} else {
			timedActionsActive.WithLabelValues(string(a.Kind)).Inc()
		}
		d := a.ExpiresAt.Sub(now)
		if d <= 0 {
			e := &scheduled{action: a, timer: noopTimer{}}
			s.entries.Store(a.Key(), e)
			overdue = append(overdue, e)
		} else {
			s.arm(a, d)
		}
		unlock()
	}
	for _, e := range overdue {
		s.fire(e)
	}
	if len(actions) > 0 {
		s.logger.Info("restored timed actions", "count", len(actions), "overdue", len(overdue))
	}
}

// Sweep fires every action whose expiry is at or before now. It catches
// timers that were lost, for example across a suspended host.
func (s *Scheduler) Sweep(now time.Time) int {
	var due []*scheduled
	s.entries.Range(func(_ model.TimedActionKey, e *scheduled) bool {
		if !e.action.ExpiresAt.After(now) {
			due = append(due, e)
		}
		return true
	})
	fired := 0
	for _, e := range due {
		if s.fire(e) {
			fired++
		}
	}
	return fired
}

// Stop disarms every timer. Pending actions stay in the store.
func (s *Scheduler) Stop() {
	s.stopped.Store(true)
	s.entries.Range(func(_ model.TimedActionKey, e *scheduled) bool {
		e.timer.Stop()
		return true
	})
}

type noopTimer struct{}

func (noopTimer) Stop() bool { return false }
