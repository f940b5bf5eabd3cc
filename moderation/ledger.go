package moderation

import (
	"context"
	"sort"
	"time"

	"eclipse-warden/model"
	"eclipse-warden/utils"
	"eclipse-warden/utils/database/modstore"

	"github.com/puzpuzpuz/xsync/v3"
)

// Ledger owns every user's infraction history. Records stay resident; each
// mutation is written through to the store before it becomes visible.
type Ledger struct {
	store   modstore.Store
	clock   Clock
	timeout time.Duration
	locks   *utils.KeyedMutex
	records *xsync.MapOf[string, []model.InfractionRecord]
}

func NewLedger(store modstore.Store, clock Clock, timeout time.Duration) *Ledger {
	return &Ledger{
		store:   store,
		clock:   clock,
		timeout: timeout,
		locks:   utils.NewKeyedMutex(),
		records: xsync.NewMapOf[string, []model.InfractionRecord](),
	}
}

func (l *Ledger) load(warnings map[string][]model.InfractionRecord) {
	l.records.Clear()
	for userID, recs := range warnings {
		if len(recs) == 0 {
			continue
		}
		cp := make([]model.InfractionRecord, len(recs))
		copy(cp, recs)
		l.records.Store(userID, cp)
	}
}

// Append records a warning and returns the user's new count.
func (l *Ledger) Append(ctx context.Context, userID, reason, issuerID string) (int, model.InfractionRecord, error) {
	unlock := l.locks.Lock(userID)
	defer unlock()

	rec := model.InfractionRecord{
		TargetID:  userID,
		Reason:    reason,
		IssuerID:  issuerID,
		Timestamp: l.clock.Now().UTC(),
	}
	err := persist(ctx, l.timeout, "append_infraction", func(ctx context.Context) error {
		return l.store.AppendInfraction(ctx, rec)
	})
	if err != nil {
		return 0, model.InfractionRecord{}, err
	}

	cur, _ := l.records.Load(userID)
	next := make([]model.InfractionRecord, len(cur), len(cur)+1)
	copy(next, cur)
	next = append(next, rec)
	l.records.Store(userID, next)
	return len(next), rec, nil
}

// RemoveLast withdraws the user's most recent warning.
func (l *Ledger) RemoveLast(ctx context.Context, userID string) error {
	unlock := l.locks.Lock(userID)
	defer unlock()

	cur, _ := l.records.Load(userID)
	if len(cur) == 0 {
		return nil
	}
	err := persist(ctx, l.timeout, "remove_infraction", func(ctx context.Context) error {
		return l.store.RemoveLastInfraction(ctx, userID)
	})
	if err != nil {
		return err
	}
	if len(cur) == 1 {
		l.records.Delete(userID)
		return nil
	}
	next := make([]model.InfractionRecord, len(cur)-1)
	copy(next, cur)
	l.records.Store(userID, next)
	return nil
}

func (l *Ledger) Count(userID string) int {
	recs, _ := l.records.Load(userID)
	return len(recs)
}

// Clear empties the user's history and returns how many records it held.
// Clearing an empty history touches nothing.
func (l *Ledger) Clear(ctx context.Context, userID string) (int, error) {
	unlock := l.locks.Lock(userID)
	defer unlock()

	cur, _ := l.records.Load(userID)
	if len(cur) == 0 {
		return 0, nil
	}
	err := persist(ctx, l.timeout, "clear_infractions", func(ctx context.Context) error {
		return l.store.ClearInfractions(ctx, userID)
	})
	if err != nil {
		return 0, err
	}
	l.records.Delete(userID)
	return len(cur), nil
}

// Records returns a copy of the user's history, oldest first.
func (l *Ledger) Records(userID string) []model.InfractionRecord {
	cur, _ := l.records.Load(userID)
	out := make([]model.InfractionRecord, len(cur))
	copy(out, cur)
	return out
}

// LedgerStats summarises the ledger for reports.
type LedgerStats struct {
	Users    int
	Warnings int
	Top      []UserCount
}

type UserCount struct {
	UserID string
	Count  int
}

// Stats returns totals and the n users with the most warnings.
func (l *Ledger) Stats(n int) LedgerStats {
	var st LedgerStats
	l.records.Range(func(userID string, recs []model.InfractionRecord) bool {
		st.Users++
		st.Warnings += len(recs)
		st.Top = append(st.Top, UserCount{UserID: userID, Count: len(recs)})
		return true
	})
	sort.Slice(st.Top, func(i, j int) bool {
		if st.Top[i].Count != st.Top[j].Count {
			return st.Top[i].Count > st.Top[j].Count
		}
		return st.Top[i].UserID < st.Top[j].UserID
	})
	if n >= 0 && len(st.Top) > n {
		st.Top = st.Top[:n]
	}
	return st
}
