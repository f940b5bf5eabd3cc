package modstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"eclipse-warden/model"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// Fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const schema = `
CREATE TABLE IF NOT EXISTS infractions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id TEXT NOT NULL,
    reason TEXT NOT NULL,
    issuer_id TEXT NOT NULL,
    created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_infractions_user ON infractions(user_id);

CREATE TABLE IF NOT EXISTS counters (
    name TEXT PRIMARY KEY,
    value INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS scheduled_actions (
    subject_id TEXT NOT NULL,
    kind TEXT NOT NULL,
    expires_at TEXT NOT NULL,
    reason TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (subject_id, kind)
);

CREATE TABLE IF NOT EXISTS permanent_mutes (
    user_id TEXT PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS cases (
    case_id INTEGER PRIMARY KEY,
    action TEXT NOT NULL,
    target_id TEXT NOT NULL,
    actor_id TEXT NOT NULL,
    reason TEXT NOT NULL DEFAULT '',
    duration_ns INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_cases_target ON cases(target_id);`

type infractionRow struct {
	UserID    string `db:"user_id"`
	Reason    string `db:"reason"`
	IssuerID  string `db:"issuer_id"`
	CreatedAt string `db:"created_at"`
}

type actionRow struct {
	SubjectID string `db:"subject_id"`
	Kind      string `db:"kind"`
	ExpiresAt string `db:"expires_at"`
	Reason    string `db:"reason"`
}

type caseRow struct {
	CaseID     int64  `db:"case_id"`
	Action     string `db:"action"`
	TargetID   string `db:"target_id"`
	ActorID    string `db:"actor_id"`
	Reason     string `db:"reason"`
	DurationNS int64  `db:"duration_ns"`
	CreatedAt  string `db:"created_at"`
}

// SQLiteStore keeps moderation state in a single sqlite file.
type SQLiteStore struct {
	db *sqlx.DB
}

// OpenSQLite connects to the database at dbPath and ensures the schema exists.
func OpenSQLite(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	db, err := sqlx.Connect("sqlite3", dbPath+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to connect to moderation database: %w", err)
	}
	// sqlite serialises writers anyway; one connection avoids SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create moderation tables: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// DB exposes the underlying handle for read-only reporting queries.
func (s *SQLiteStore) DB() *sqlx.DB {
	return s.db
}

func (s *SQLiteStore) Load(ctx context.Context) (*model.Snapshot, error) {
	snap := model.NewSnapshot()

	var infractions []infractionRow
	if err := s.db.SelectContext(ctx, &infractions,
		"SELECT user_id, reason, issuer_id, created_at FROM infractions ORDER BY id"); err != nil {
		return nil, fmt.Errorf("failed to load infractions: %w", err)
	}
	for _, r := range infractions {
		ts, err := time.Parse(timeLayout, r.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("corrupt infraction timestamp %q: %w", r.CreatedAt, err)
		}
		snap.Warnings[r.UserID] = append(snap.Warnings[r.UserID], model.InfractionRecord{
			TargetID:  r.UserID,
			Reason:    r.Reason,
			IssuerID:  r.IssuerID,
			Timestamp: ts,
		})
	}

	var counter int64
	err := s.db.GetContext(ctx, &counter, "SELECT COALESCE(MAX(value), 0) FROM counters WHERE name = 'case'")
	if err != nil {
		return nil, fmt.Errorf("failed to load case counter: %w", err)
	}
	snap.CaseCounter = counter

	var actions []actionRow
	if err := s.db.SelectContext(ctx, &actions,
		"SELECT subject_id, kind, expires_at, reason FROM scheduled_actions ORDER BY expires_at"); err != nil {
		return nil, fmt.Errorf("failed to load scheduled actions: %w", err)
	}
	for _, r := range actions {
		exp, err := time.Parse(timeLayout, r.ExpiresAt)
		if err != nil {
			return nil, fmt.Errorf("corrupt expiry %q for %s/%s: %w", r.ExpiresAt, r.SubjectID, r.Kind, err)
		}
		snap.ScheduledActions = append(snap.ScheduledActions, model.TimedAction{
			SubjectID: r.SubjectID,
			Kind:      model.TimedActionKind(r.Kind),
			ExpiresAt: exp,
			Reason:    r.Reason,
		})
	}

	if err := s.db.SelectContext(ctx, &snap.PermanentMutes,
		"SELECT user_id FROM permanent_mutes ORDER BY user_id"); err != nil {
		return nil, fmt.Errorf("failed to load standing mutes: %w", err)
	}
	if snap.PermanentMutes == nil {
		snap.PermanentMutes = []string{}
	}
	return snap, nil
}

func (s *SQLiteStore) SaveCaseCounter(ctx context.Context, n int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO counters (name, value) VALUES ('case', ?)
		 ON CONFLICT(name) DO UPDATE SET value = excluded.value`, n)
	if err != nil {
		return fmt.Errorf("failed to save case counter: %w", err)
	}
	return nil
}

func (s *SQLiteStore) AppendInfraction(ctx context.Context, rec model.InfractionRecord) error {
	row := infractionRow{
		UserID:    rec.TargetID,
		Reason:    rec.Reason,
		IssuerID:  rec.IssuerID,
		CreatedAt: rec.Timestamp.UTC().Format(timeLayout),
	}
	_, err := s.db.NamedExecContext(ctx,
		`INSERT INTO infractions (user_id, reason, issuer_id, created_at)
		 VALUES (:user_id, :reason, :issuer_id, :created_at)`, row)
	if err != nil {
		return fmt.Errorf("failed to insert infraction for user %s: %w", rec.TargetID, err)
	}
	return nil
}

func (s *SQLiteStore) RemoveLastInfraction(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM infractions WHERE id = (SELECT MAX(id) FROM infractions WHERE user_id = ?)", userID)
	if err != nil {
		return fmt.Errorf("failed to remove last infraction for user %s: %w", userID, err)
	}
	return nil
}

func (s *SQLiteStore) ClearInfractions(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM infractions WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("failed to clear infractions for user %s: %w", userID, err)
	}
	return nil
}

func (s *SQLiteStore) SetPermanentMute(ctx context.Context, userID string, muted bool) error {
	var err error
	if muted {
		_, err = s.db.ExecContext(ctx, "INSERT OR IGNORE INTO permanent_mutes (user_id) VALUES (?)", userID)
	} else {
		_, err = s.db.ExecContext(ctx, "DELETE FROM permanent_mutes WHERE user_id = ?", userID)
	}
	if err != nil {
		return fmt.Errorf("failed to update standing mute for user %s: %w", userID, err)
	}
	return nil
}

func (s *SQLiteStore) SaveTimedAction(ctx context.Context, a model.TimedAction) error {
	row := actionRow{
		SubjectID: a.SubjectID,
		Kind:      string(a.Kind),
		ExpiresAt: a.ExpiresAt.UTC().Format(timeLayout),
		Reason:    a.Reason,
	}
	_, err := s.db.NamedExecContext(ctx,
		`INSERT INTO scheduled_actions (subject_id, kind, expires_at, reason)
		 VALUES (:subject_id, :kind, :expires_at, :reason)
		 ON CONFLICT(subject_id, kind) DO UPDATE SET expires_at = excluded.expires_at, reason = excluded.reason`, row)
	if err != nil {
		return fmt.Errorf("failed to save timed action %s: %w", a.Key(), err)
	}
	return nil
}

func (s *SQLiteStore) DeleteTimedAction(ctx context.Context, key model.TimedActionKey) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM scheduled_actions WHERE subject_id = ? AND kind = ?", key.SubjectID, string(key.Kind))
	if err != nil {
		return fmt.Errorf("failed to delete timed action %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) AppendCase(ctx context.Context, c model.CaseEntry) error {
	row := caseRow{
		CaseID:     c.CaseID,
		Action:     string(c.Action),
		TargetID:   c.TargetID,
		ActorID:    c.ActorID,
		Reason:     c.Reason,
		DurationNS: int64(c.Duration),
		CreatedAt:  c.CreatedAt.UTC().Format(timeLayout),
	}
	_, err := s.db.NamedExecContext(ctx,
		`INSERT OR REPLACE INTO cases (case_id, action, target_id, actor_id, reason, duration_ns, created_at)
		 VALUES (:case_id, :action, :target_id, :actor_id, :reason, :duration_ns, :created_at)`, row)
	if err != nil {
		return fmt.Errorf("failed to append case %d: %w", c.CaseID, err)
	}
	return nil
}

func (s *SQLiteStore) Cases(ctx context.Context, filter model.CaseFilter) ([]model.CaseEntry, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.CaseID != 0 {
		where = append(where, "case_id = ?")
		args = append(args, filter.CaseID)
	}
	if filter.TargetID != "" {
		where = append(where, "target_id = ?")
		args = append(args, filter.TargetID)
	}
	if filter.ActorID != "" {
		where = append(where, "actor_id = ?")
		args = append(args, filter.ActorID)
	}
	if !filter.Since.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, filter.Since.UTC().Format(timeLayout))
	}

	query := "SELECT case_id, action, target_id, actor_id, reason, duration_ns, created_at FROM cases"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY case_id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	var rows []caseRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query cases: %w", err)
	}
	out := make([]model.CaseEntry, 0, len(rows))
	for _, r := range rows {
		ts, err := time.Parse(timeLayout, r.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("corrupt timestamp on case %d: %w", r.CaseID, err)
		}
		out = append(out, model.CaseEntry{
			CaseID:    r.CaseID,
			Action:    model.CaseAction(r.Action),
			TargetID:  r.TargetID,
			ActorID:   r.ActorID,
			Reason:    r.Reason,
			Duration:  time.Duration(r.DurationNS),
			CreatedAt: ts,
		})
	}
	return out, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
