package moderation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"eclipse-warden/model"
	"eclipse-warden/utils"
	"eclipse-warden/utils/database/modstore"

	"github.com/puzpuzpuz/xsync/v3"
)

const defaultReason = "No reason provided"

// Options configures an Engine. Store is required; the rest have defaults.
type Options struct {
	Store    modstore.Store
	Config   model.ModerationConfig
	Clock    Clock
	Logger   *slog.Logger
	Enforcer Enforcer
}

// Engine is the single entry point for moderation. It owns the ledger, the
// case sequencer and the timed action scheduler, and returns Outcomes for the
// caller to render.
type Engine struct {
	cfg      model.ModerationConfig
	store    modstore.Store
	clock    Clock
	logger   *slog.Logger
	enforcer Enforcer

	seq    *Sequencer
	ledger *Ledger
	guard  *Guard
	policy Policy
	sched  *Scheduler

	// locks serialises whole operations per subject.
	locks     *utils.KeyedMutex
	permanent *xsync.MapOf[string, struct{}]
}

func New(opts Options) (*Engine, error) {
	if opts.Store == nil {
		return nil, errors.New("moderation engine requires a store")
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Enforcer == nil {
		opts.Enforcer = NopEnforcer{}
	}
	if opts.Config.ActorMuteDuration <= 0 {
		opts.Config.ActorMuteDuration = 5 * time.Minute
	}

	e := &Engine{
		cfg:       opts.Config,
		store:     opts.Store,
		clock:     opts.Clock,
		logger:    opts.Logger.With("component", "moderation"),
		enforcer:  opts.Enforcer,
		guard:     NewGuard(opts.Config.ProtectedRoles, opts.Config.ModeratorRoles),
		policy:    NewPolicy(opts.Config),
		locks:     utils.NewKeyedMutex(),
		permanent: xsync.NewMapOf[string, struct{}](),
	}
	timeout := opts.Config.PersistTimeout
	e.seq = NewSequencer(opts.Store, timeout)
	e.ledger = NewLedger(opts.Store, opts.Clock, timeout)
	e.sched = NewScheduler(opts.Store, opts.Clock, timeout, e.logger, e.reverse)
	return e, nil
}

// Start loads persisted state and re-arms pending timed actions. Actions that
// expired while the process was down are reversed before Start returns.
func (e *Engine) Start(ctx context.Context) error {
	var snap *model.Snapshot
	err := persist(ctx, e.cfg.PersistTimeout, "load", func(ctx context.Context) error {
		var err error
		snap, err = e.store.Load(ctx)
		return err
	})
	if err != nil {
		return err
	}

	e.seq.resume(snap.CaseCounter)
	e.ledger.load(snap.Warnings)
	e.permanent.Clear()
	for _, userID := range snap.PermanentMutes {
		e.permanent.Store(userID, struct{}{})
	}
	e.sched.Restore(snap.ScheduledActions)

	e.logger.Info("moderation state loaded",
		"caseCounter", snap.CaseCounter,
		"users", len(snap.Warnings),
		"timedActions", len(snap.ScheduledActions),
		"standingMutes", len(snap.PermanentMutes))
	return nil
}

// Close disarms timers. Persisted state is left for the next Start.
func (e *Engine) Close() {
	e.sched.Stop()
}

func (e *Engine) Config() model.ModerationConfig {
	return e.cfg
}

func (e *Engine) Guard() *Guard {
	return e.guard
}

// reverse is the scheduler's expiry callback.
func (e *Engine) reverse(ctx context.Context, a model.TimedAction) {
	switch a.Kind {
	case model.KindMute, model.KindMuteActor:
		other := model.KindMuteActor
		if a.Kind == model.KindMuteActor {
			other = model.KindMute
		}
		if _, ok := e.permanent.Load(a.SubjectID); ok {
			return
		}
		if _, ok := e.sched.Get(a.SubjectID, other); ok {
			return
		}
	}
	e.enforce(ctx, "revert", a.SubjectID, func(ctx context.Context) error {
		return e.enforcer.Revert(ctx, a.SubjectID, a.Kind)
	})
}

func (e *Engine) enforce(ctx context.Context, op, userID string, fn func(ctx context.Context) error) bool {
	if err := fn(ctx); err != nil {
		enforcementErrors.WithLabelValues(op).Inc()
		e.logger.Warn("platform enforcement failed", "op", op, "user", userID, "err", err)
		return false
	}
	return true
}

func (e *Engine) authorize(action model.CaseAction, actor, target Member, needModerator bool) error {
	if target.ID == "" {
		return invalid("a target member is required")
	}
	if actor.ID == "" {
		return invalid("an acting member is required")
	}
	if !actor.System && actor.ID == target.ID {
		return invalid("you cannot %s yourself", action)
	}
	if needModerator && !e.guard.IsModerator(actor) {
		return forbidden("%s requires a moderator role", action)
	}
	return nil
}

func (e *Engine) issue(ctx context.Context, action model.CaseAction) (int64, error) {
	id, err := e.seq.Next(ctx)
	if err != nil {
		e.logger.Error("failed to issue case id", "action", action, "err", err)
		return 0, err
	}
	casesIssued.WithLabelValues(string(action)).Inc()
	return id, nil
}

// record appends the case to the audit trail. The trail is best-effort: the
// case id and the state change are already durable.
func (e *Engine) record(ctx context.Context, out *Outcome) {
	e.logger.Info("moderation case",
		"case", out.CaseID, "action", out.Action, "target", out.TargetID, "actor", out.ActorID)
	err := persist(ctx, e.cfg.PersistTimeout, "append_case", func(ctx context.Context) error {
		return e.store.AppendCase(ctx, out.caseEntry(e.clock.Now().UTC()))
	})
	if err != nil {
		e.logger.Error("failed to append case to audit trail", "case", out.CaseID, "err", err)
	}
}

func (e *Engine) newOutcome(id int64, action model.CaseAction, actor Member, targetID, reason string) *Outcome {
	return &Outcome{
		CaseID:       id,
		Action:       action,
		Status:       StatusApplied,
		TargetID:     targetID,
		ActorID:      actor.ID,
		Reason:       reason,
		WarningCount: e.ledger.Count(targetID),
		Enforced:     true,
	}
}

// blocked refuses action against a protected target and, unless the actor is
// protected too, mutes the actor for the attempt.
func (e *Engine) blocked(ctx context.Context, d GuardDecision, action model.CaseAction, actor Member, reason string) (*Outcome, error) {
	blockedAttempts.WithLabelValues(string(action)).Inc()
	e.logger.Warn("action against protected member refused", "action", action, "target", d.TargetID, "actor", d.ActorID)

	out := &Outcome{
		Action:       action,
		Status:       StatusBlocked,
		TargetID:     d.TargetID,
		ActorID:      d.ActorID,
		Reason:       reason,
		WarningCount: e.ledger.Count(d.TargetID),
	}
	if !d.CounterPunish {
		return out, nil
	}

	unlock := e.locks.Lock(actor.ID)
	defer unlock()
	cp, err := e.timed(ctx, model.ActionMuteActor, SystemActor, actor.ID, model.KindMuteActor,
		e.cfg.ActorMuteDuration, fmt.Sprintf("attempted %s on protected member %s", action, d.TargetID))
	if err != nil {
		return nil, err
	}
	out.CounterPunishment = cp
	return out, nil
}

// timed schedules a punitive state with an expiry. The caller holds the
// subject's lock.
func (e *Engine) timed(ctx context.Context, action model.CaseAction, actor Member, subjectID string, kind model.TimedActionKind, d time.Duration, reason string) (*Outcome, error) {
	id, err := e.issue(ctx, action)
	if err != nil {
		return nil, err
	}
	a, err := e.sched.Schedule(ctx, subjectID, kind, d, reason)
	if err != nil {
		return nil, err
	}
	if kind == model.KindMute {
		e.dropStandingMute(ctx, subjectID)
	}

	out := e.newOutcome(id, action, actor, subjectID, reason)
	out.Duration = d
	exp := a.ExpiresAt
	out.ExpiresAt = &exp
	out.Enforced = e.enforce(ctx, "apply", subjectID, func(ctx context.Context) error {
		return e.enforcer.Apply(ctx, subjectID, kind, &exp, reason)
	})
	e.record(ctx, out)
	return out, nil
}

// standing applies a mute with no expiry. The caller holds the subject's lock.
func (e *Engine) standing(ctx context.Context, actor Member, subjectID, reason string) (*Outcome, error) {
	id, err := e.issue(ctx, model.ActionMute)
	if err != nil {
		return nil, err
	}
	err = persist(ctx, e.cfg.PersistTimeout, "set_permanent_mute", func(ctx context.Context) error {
		return e.store.SetPermanentMute(ctx, subjectID, true)
	})
	if err != nil {
		return nil, err
	}
	e.permanent.Store(subjectID, struct{}{})
	if _, err := e.sched.Cancel(ctx, subjectID, model.KindMute); err != nil {
		// Harmless: the reversal is skipped while the standing mute exists.
		e.logger.Warn("failed to cancel timed mute replaced by standing mute", "user", subjectID, "err", err)
	}

	out := e.newOutcome(id, model.ActionMute, actor, subjectID, reason)
	out.Enforced = e.enforce(ctx, "apply", subjectID, func(ctx context.Context) error {
		return e.enforcer.Apply(ctx, subjectID, model.KindMute, nil, reason)
	})
	e.record(ctx, out)
	return out, nil
}

func (e *Engine) dropStandingMute(ctx context.Context, userID string) {
	if _, ok := e.permanent.Load(userID); !ok {
		return
	}
	err := persist(ctx, e.cfg.PersistTimeout, "set_permanent_mute", func(ctx context.Context) error {
		return e.store.SetPermanentMute(ctx, userID, false)
	})
	if err != nil {
		e.logger.Error("failed to lift standing mute", "user", userID, "err", err)
		return
	}
	e.permanent.Delete(userID)
}

func orDefault(reason string) string {
	if reason == "" {
		return defaultReason
	}
	return reason
}

// Warn records an infraction. The warning that reaches the threshold also
// triggers the configured automatic punishment, reported in
// Outcome.Escalation. If that punishment cannot be persisted the warning is
// withdrawn again, so a retry reaches the threshold once more.
func (e *Engine) Warn(ctx context.Context, actor, target Member, reason string) (*Outcome, error) {
	reason = orDefault(reason)
	if err := e.authorize(model.ActionWarn, actor, target, true); err != nil {
		return nil, err
	}
	if d := e.guard.Check(string(model.ActionWarn), actor, target); d.Verdict == Blocked {
		return e.blocked(ctx, d, model.ActionWarn, actor, reason)
	}

	unlock := e.locks.Lock(target.ID)
	defer unlock()

	id, err := e.issue(ctx, model.ActionWarn)
	if err != nil {
		return nil, err
	}
	count, _, err := e.ledger.Append(ctx, target.ID, reason, actor.ID)
	if err != nil {
		return nil, err
	}
	out := e.newOutcome(id, model.ActionWarn, actor, target.ID, reason)
	out.WarningCount = count

	esc := e.policy.Decide(count)
	if !esc.Punish {
		e.record(ctx, out)
		return out, nil
	}
	if e.cfg.EscalationRespectsProtection && e.guard.IsProtected(target) {
		e.logger.Info("escalation skipped for protected member", "target", target.ID, "count", count)
		e.record(ctx, out)
		return out, nil
	}

	escalationCount.WithLabelValues(string(esc.Kind)).Inc()
	escReason := fmt.Sprintf("Reached %d warnings", count)
	var auto *Outcome
	switch {
	case esc.Kind == model.KindMute && esc.Duration <= 0:
		auto, err = e.standing(ctx, SystemActor, target.ID, escReason)
	case esc.Kind == model.KindMute:
		auto, err = e.timed(ctx, model.ActionMute, SystemActor, target.ID, model.KindMute, esc.Duration, escReason)
	default:
		auto, err = e.timed(ctx, model.ActionTimeout, SystemActor, target.ID, model.KindTimeout, esc.Duration, escReason)
	}
	if err != nil {
		e.logger.Error("automatic punishment failed", "target", target.ID, "kind", esc.Kind, "err", err)
		if rerr := e.ledger.RemoveLast(ctx, target.ID); rerr != nil {
			e.logger.Error("failed to withdraw warning after failed escalation", "target", target.ID, "err", rerr)
			e.record(ctx, out)
			return out, fmt.Errorf("warning recorded but automatic punishment failed: %w", err)
		}
		return nil, err
	}
	out.Escalation = auto
	e.record(ctx, out)
	return out, nil
}

// ClearWarnings empties the target's infraction history. Punitive state is
// left alone. Clearing an empty history is a no-op that issues no case id.
func (e *Engine) ClearWarnings(ctx context.Context, actor, target Member, reason string) (*Outcome, error) {
	reason = orDefault(reason)
	if err := e.authorize(model.ActionClearWarnings, actor, target, true); err != nil {
		return nil, err
	}

	unlock := e.locks.Lock(target.ID)
	defer unlock()

	if e.ledger.Count(target.ID) == 0 {
		out := e.newOutcome(0, model.ActionClearWarnings, actor, target.ID, reason)
		out.Status = StatusNoop
		return out, nil
	}
	id, err := e.issue(ctx, model.ActionClearWarnings)
	if err != nil {
		return nil, err
	}
	prev, err := e.ledger.Clear(ctx, target.ID)
	if err != nil {
		return nil, err
	}
	out := e.newOutcome(id, model.ActionClearWarnings, actor, target.ID, reason)
	out.PreviousCount = prev
	e.record(ctx, out)
	return out, nil
}

// Mute applies the muted state for d, or a standing mute when d is zero.
// A new mute replaces any earlier one.
func (e *Engine) Mute(ctx context.Context, actor, target Member, d time.Duration, reason string) (*Outcome, error) {
	reason = orDefault(reason)
	if err := e.authorize(model.ActionMute, actor, target, true); err != nil {
		return nil, err
	}
	if d < 0 {
		return nil, invalid("mute duration cannot be negative")
	}
	if dec := e.guard.Check(string(model.ActionMute), actor, target); dec.Verdict == Blocked {
		return e.blocked(ctx, dec, model.ActionMute, actor, reason)
	}

	unlock := e.locks.Lock(target.ID)
	defer unlock()
	if d == 0 {
		return e.standing(ctx, actor, target.ID, reason)
	}
	return e.timed(ctx, model.ActionMute, actor, target.ID, model.KindMute, d, reason)
}

// Unmute lifts every mute on the target: timed, standing and the actor mute.
func (e *Engine) Unmute(ctx context.Context, actor, target Member, reason string) (*Outcome, error) {
	reason = orDefault(reason)
	if err := e.authorize(model.ActionUnmute, actor, target, true); err != nil {
		return nil, err
	}

	unlock := e.locks.Lock(target.ID)
	defer unlock()

	_, standing := e.permanent.Load(target.ID)
	_, timedMute := e.sched.Get(target.ID, model.KindMute)
	_, actorMute := e.sched.Get(target.ID, model.KindMuteActor)
	if !standing && !timedMute && !actorMute {
		return nil, invalid("member is not muted")
	}

	id, err := e.issue(ctx, model.ActionUnmute)
	if err != nil {
		return nil, err
	}
	// Timed entries go first and the standing mute last, so a failed write
	// can put back everything already lifted.
	var cancelled []model.TimedAction
	for _, kind := range []model.TimedActionKind{model.KindMute, model.KindMuteActor} {
		a, ok := e.sched.Get(target.ID, kind)
		if !ok {
			continue
		}
		if _, err := e.sched.Cancel(ctx, target.ID, kind); err != nil {
			e.reinstate(ctx, cancelled)
			return nil, err
		}
		cancelled = append(cancelled, a)
	}
	if standing {
		err := persist(ctx, e.cfg.PersistTimeout, "set_permanent_mute", func(ctx context.Context) error {
			return e.store.SetPermanentMute(ctx, target.ID, false)
		})
		if err != nil {
			e.reinstate(ctx, cancelled)
			return nil, err
		}
		e.permanent.Delete(target.ID)
	}

	out := e.newOutcome(id, model.ActionUnmute, actor, target.ID, reason)
	out.Enforced = e.enforce(ctx, "revert", target.ID, func(ctx context.Context) error {
		return e.enforcer.Revert(ctx, target.ID, model.KindMute)
	})
	e.record(ctx, out)
	return out, nil
}

func (e *Engine) reinstate(ctx context.Context, actions []model.TimedAction) {
	for _, a := range actions {
		if err := e.sched.Reinstate(ctx, a); err != nil {
			e.logger.Error("failed to reinstate timed action", "key", a.Key().String(), "err", err)
		}
	}
}

// Timeout applies a communication timeout for d.
func (e *Engine) Timeout(ctx context.Context, actor, target Member, d time.Duration, reason string) (*Outcome, error) {
	reason = orDefault(reason)
	if err := e.authorize(model.ActionTimeout, actor, target, true); err != nil {
		return nil, err
	}
	if d <= 0 {
		return nil, invalid("timeout duration must be positive")
	}
	if d > model.MaxTimeout {
		return nil, invalid("timeout cannot exceed %s", model.MaxTimeout)
	}
	if dec := e.guard.Check(string(model.ActionTimeout), actor, target); dec.Verdict == Blocked {
		return e.blocked(ctx, dec, model.ActionTimeout, actor, reason)
	}

	unlock := e.locks.Lock(target.ID)
	defer unlock()
	return e.timed(ctx, model.ActionTimeout, actor, target.ID, model.KindTimeout, d, reason)
}

// Untimeout lifts a pending timeout early.
func (e *Engine) Untimeout(ctx context.Context, actor, target Member, reason string) (*Outcome, error) {
	reason = orDefault(reason)
	if err := e.authorize(model.ActionUntimeout, actor, target, true); err != nil {
		return nil, err
	}

	unlock := e.locks.Lock(target.ID)
	defer unlock()

	if _, ok := e.sched.Get(target.ID, model.KindTimeout); !ok {
		return nil, invalid("member is not timed out")
	}
	id, err := e.issue(ctx, model.ActionUntimeout)
	if err != nil {
		return nil, err
	}
	if _, err := e.sched.Cancel(ctx, target.ID, model.KindTimeout); err != nil {
		return nil, err
	}

	out := e.newOutcome(id, model.ActionUntimeout, actor, target.ID, reason)
	out.Enforced = e.enforce(ctx, "revert", target.ID, func(ctx context.Context) error {
		return e.enforcer.Revert(ctx, target.ID, model.KindTimeout)
	})
	e.record(ctx, out)
	return out, nil
}

// CheckWarnings is a read. It issues no case id. Moderators may look up
// their own history.
func (e *Engine) CheckWarnings(ctx context.Context, actor, target Member) (*Outcome, error) {
	if target.ID == "" {
		return nil, invalid("a target member is required")
	}
	if !e.guard.IsModerator(actor) {
		return nil, forbidden("%s requires a moderator role", model.ActionCheckWarnings)
	}
	out := e.newOutcome(0, model.ActionCheckWarnings, actor, target.ID, "")
	out.Warnings = e.ledger.Records(target.ID)
	out.WarningCount = len(out.Warnings)
	return out, nil
}

// Kick removes the target from the community.
func (e *Engine) Kick(ctx context.Context, actor, target Member, reason string) (*Outcome, error) {
	return e.expel(ctx, model.ActionKick, actor, target, reason)
}

// Ban removes the target and bars them from rejoining.
func (e *Engine) Ban(ctx context.Context, actor, target Member, reason string) (*Outcome, error) {
	return e.expel(ctx, model.ActionBan, actor, target, reason)
}

func (e *Engine) expel(ctx context.Context, action model.CaseAction, actor, target Member, reason string) (*Outcome, error) {
	reason = orDefault(reason)
	if err := e.authorize(action, actor, target, true); err != nil {
		return nil, err
	}
	if dec := e.guard.Check(string(action), actor, target); dec.Verdict == Blocked {
		return e.blocked(ctx, dec, action, actor, reason)
	}

	unlock := e.locks.Lock(target.ID)
	defer unlock()

	id, err := e.issue(ctx, action)
	if err != nil {
		return nil, err
	}
	out := e.newOutcome(id, action, actor, target.ID, reason)
	out.Enforced = e.enforce(ctx, string(action), target.ID, func(ctx context.Context) error {
		return e.enforcer.Expel(ctx, target.ID, action, reason)
	})
	e.record(ctx, out)
	return out, nil
}

// Record returns everything known about userID. State is derived from the
// standing mute flag and pending timed actions, so it is never stale.
func (e *Engine) Record(userID string) model.ModerationRecord {
	rec := model.ModerationRecord{
		UserID:       userID,
		Infractions:  e.ledger.Records(userID),
		State:        model.StateNone,
		TimedActions: e.sched.ActiveFor(userID),
	}
	if _, ok := e.permanent.Load(userID); ok {
		rec.PermanentMute = true
		rec.State = model.StateMuted
		return rec
	}

	var muteExpiry, timeoutExpiry *time.Time
	for _, a := range rec.TimedActions {
		exp := a.ExpiresAt
		switch a.Kind {
		case model.KindMute, model.KindMuteActor:
			if muteExpiry == nil || exp.After(*muteExpiry) {
				muteExpiry = &exp
			}
		case model.KindTimeout:
			timeoutExpiry = &exp
		}
	}
	switch {
	case muteExpiry != nil:
		rec.State = model.StateMuted
		rec.Expiry = muteExpiry
	case timeoutExpiry != nil:
		rec.State = model.StateTimedOut
		rec.Expiry = timeoutExpiry
	}
	return rec
}

// Request is the inbound form of every operation, as produced by the command
// layer.
type Request struct {
	Action   model.CaseAction
	Actor    Member
	Target   Member
	Reason   string
	Duration time.Duration
}

// Invoke dispatches req to the matching operation.
func (e *Engine) Invoke(ctx context.Context, req Request) (*Outcome, error) {
	switch req.Action {
	case model.ActionWarn:
		return e.Warn(ctx, req.Actor, req.Target, req.Reason)
	case model.ActionClearWarnings:
		return e.ClearWarnings(ctx, req.Actor, req.Target, req.Reason)
	case model.ActionMute:
		return e.Mute(ctx, req.Actor, req.Target, req.Duration, req.Reason)
	case model.ActionUnmute:
		return e.Unmute(ctx, req.Actor, req.Target, req.Reason)
	case model.ActionTimeout:
		return e.Timeout(ctx, req.Actor, req.Target, req.Duration, req.Reason)
	case model.ActionUntimeout:
		return e.Untimeout(ctx, req.Actor, req.Target, req.Reason)
	case model.ActionCheckWarnings:
		return e.CheckWarnings(ctx, req.Actor, req.Target)
	case model.ActionKick:
		return e.Kick(ctx, req.Actor, req.Target, req.Reason)
	case model.ActionBan:
		return e.Ban(ctx, req.Actor, req.Target, req.Reason)
	default:
		return nil, invalid("unsupported action %q", req.Action)
	}
}

// Sweep fires timed actions that are due but whose timers did not run.
func (e *Engine) Sweep() int {
	return e.sched.Sweep(e.clock.Now())
}

// Cases queries the audit trail.
func (e *Engine) Cases(ctx context.Context, filter model.CaseFilter) ([]model.CaseEntry, error) {
	var out []model.CaseEntry
	err := persist(ctx, e.cfg.PersistTimeout, "query_cases", func(ctx context.Context) error {
		var err error
		out, err = e.store.Cases(ctx, filter)
		return err
	})
	return out, err
}

// Stats summarises engine state for reports and status pages.
type Stats struct {
	CaseCounter   int64
	TrackedUsers  int
	TotalWarnings int
	StandingMutes int
	ActiveTimed   map[model.TimedActionKind]int
	TopWarned     []UserCount
}

func (e *Engine) Stats(top int) Stats {
	ls := e.ledger.Stats(top)
	st := Stats{
		CaseCounter:   e.seq.Current(),
		TrackedUsers:  ls.Users,
		TotalWarnings: ls.Warnings,
		StandingMutes: e.permanent.Size(),
		ActiveTimed:   make(map[model.TimedActionKind]int),
		TopWarned:     ls.Top,
	}
	for _, a := range e.sched.Active() {
		st.ActiveTimed[a.Kind]++
	}
	return st
}
