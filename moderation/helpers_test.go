package moderation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"eclipse-warden/model"
	"eclipse-warden/utils/clock/clocktest"
	"eclipse-warden/utils/database/modstore"

	"github.com/stretchr/testify/require"
)

var errDiskFull = errors.New("disk full")

var epoch = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// faultyStore fails the named operations until they are healed.
type faultyStore struct {
	modstore.Store
	mu    sync.Mutex
	fails map[string]bool
}

func newFaultyStore() *faultyStore {
	return &faultyStore{Store: modstore.NewMemoryStore(), fails: make(map[string]bool)}
}

func (f *faultyStore) fail(op string, on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fails[op] = on
}

func (f *faultyStore) check(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fails[op] {
		return errDiskFull
	}
	return nil
}

func (f *faultyStore) SaveCaseCounter(ctx context.Context, n int64) error {
	if err := f.check("counter"); err != nil {
		return err
	}
	return f.Store.SaveCaseCounter(ctx, n)
}

func (f *faultyStore) AppendInfraction(ctx context.Context, rec model.InfractionRecord) error {
	if err := f.check("infraction"); err != nil {
		return err
	}
	return f.Store.AppendInfraction(ctx, rec)
}

func (f *faultyStore) ClearInfractions(ctx context.Context, userID string) error {
	if err := f.check("clear"); err != nil {
		return err
	}
	return f.Store.ClearInfractions(ctx, userID)
}

func (f *faultyStore) RemoveLastInfraction(ctx context.Context, userID string) error {
	if err := f.check("remove"); err != nil {
		return err
	}
	return f.Store.RemoveLastInfraction(ctx, userID)
}

func (f *faultyStore) SetPermanentMute(ctx context.Context, userID string, muted bool) error {
	if err := f.check("permanent"); err != nil {
		return err
	}
	return f.Store.SetPermanentMute(ctx, userID, muted)
}

func (f *faultyStore) SaveTimedAction(ctx context.Context, a model.TimedAction) error {
	if err := f.check("timed"); err != nil {
		return err
	}
	return f.Store.SaveTimedAction(ctx, a)
}

func (f *faultyStore) DeleteTimedAction(ctx context.Context, key model.TimedActionKey) error {
	if err := f.check("delete_timed"); err != nil {
		return err
	}
	return f.Store.DeleteTimedAction(ctx, key)
}

func (f *faultyStore) AppendCase(ctx context.Context, c model.CaseEntry) error {
	if err := f.check("case"); err != nil {
		return err
	}
	return f.Store.AppendCase(ctx, c)
}

// recordingEnforcer remembers every platform call.
type recordingEnforcer struct {
	mu      sync.Mutex
	applied []model.TimedAction
	reverts []model.TimedActionKey
	expels  []string
	err     error
}

func (r *recordingEnforcer) Apply(ctx context.Context, userID string, kind model.TimedActionKind, until *time.Time, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a := model.TimedAction{SubjectID: userID, Kind: kind, Reason: reason}
	if until != nil {
		a.ExpiresAt = *until
	}
	r.applied = append(r.applied, a)
	return r.err
}

func (r *recordingEnforcer) Revert(ctx context.Context, userID string, kind model.TimedActionKind) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reverts = append(r.reverts, model.TimedActionKey{SubjectID: userID, Kind: kind})
	return r.err
}

func (r *recordingEnforcer) Expel(ctx context.Context, userID string, action model.CaseAction, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.expels = append(r.expels, string(action)+":"+userID)
	return r.err
}

func (r *recordingEnforcer) revertCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.reverts)
}

type testEngine struct {
	*Engine
	store    *faultyStore
	clock    *clocktest.FakeClock
	enforcer *recordingEnforcer
}

func testConfig() model.ModerationConfig {
	cfg := model.DefaultModerationConfig()
	cfg.ProtectedRoles = []string{"Owner"}
	cfg.ModeratorRoles = []string{"Owner", "Moderator"}
	return cfg
}

func newTestEngine(t *testing.T, cfg model.ModerationConfig) *testEngine {
	return newTestEngineWith(t, cfg, newFaultyStore(), clocktest.NewFakeClock(epoch))
}

func newTestEngineWith(t *testing.T, cfg model.ModerationConfig, store *faultyStore, clock *clocktest.FakeClock) *testEngine {
	enf := &recordingEnforcer{}
	eng, err := New(Options{
		Store:    store,
		Config:   cfg,
		Clock:    clock,
		Logger:   quietLogger(),
		Enforcer: enf,
	})
	require.NoError(t, err)
	require.NoError(t, eng.Start(context.Background()))
	t.Cleanup(eng.Close)
	return &testEngine{Engine: eng, store: store, clock: clock, enforcer: enf}
}

var (
	mod       = Member{ID: "mod1", Roles: []string{"Moderator"}}
	mod2      = Member{ID: "mod2", Roles: []string{"moderator"}}
	owner     = Member{ID: "owner1", Roles: []string{"Owner"}}
	user      = Member{ID: "user1", Roles: []string{"Member"}}
	user2     = Member{ID: "user2"}
	bystander = Member{ID: "random", Roles: []string{"Member"}}
)
