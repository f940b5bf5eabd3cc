package main

import (
	"context"
	"testing"
	"time"

	"eclipse-warden/model"
	"eclipse-warden/utils/database/modstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func TestRecordFromSnapshot(t *testing.T) {
	snap := model.NewSnapshot()
	snap.Warnings["u1"] = []model.InfractionRecord{{Reason: "spam", IssuerID: "m1", Timestamp: now}}
	snap.ScheduledActions = []model.TimedAction{
		{SubjectID: "u1", Kind: model.KindTimeout, ExpiresAt: now.Add(2 * time.Hour)},
		{SubjectID: "u1", Kind: model.KindMute, ExpiresAt: now.Add(time.Hour)},
		{SubjectID: "u2", Kind: model.KindTimeout, ExpiresAt: now.Add(-time.Minute)},
	}
	snap.PermanentMutes = []string{"u3"}

	rec := recordFromSnapshot(snap, "u1", now)
	assert.Equal(t, 1, rec.WarningCount())
	assert.Equal(t, model.StateMuted, rec.State, "muted wins over timed out")
	require.NotNil(t, rec.Expiry)
	assert.Equal(t, now.Add(time.Hour), *rec.Expiry)
	assert.Len(t, rec.TimedActions, 2)

	rec = recordFromSnapshot(snap, "u2", now)
	assert.Equal(t, model.StateNone, rec.State, "expired actions do not count")
	assert.Empty(t, rec.Infractions)

	rec = recordFromSnapshot(snap, "u3", now)
	assert.Equal(t, model.StateMuted, rec.State)
	assert.True(t, rec.PermanentMute)
	assert.Nil(t, rec.Expiry)
}

func TestMigrateJSONToSQLite(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	src, err := modstore.Open(modstore.BackendJSON, dir)
	require.NoError(t, err)
	require.NoError(t, src.AppendInfraction(ctx, model.InfractionRecord{TargetID: "u1", Reason: "a", IssuerID: "m1", Timestamp: now}))
	require.NoError(t, src.SetPermanentMute(ctx, "u2", true))
	require.NoError(t, src.SaveTimedAction(ctx, model.TimedAction{SubjectID: "u1", Kind: model.KindTimeout, ExpiresAt: now.Add(time.Hour), Reason: "r"}))
	require.NoError(t, src.AppendCase(ctx, model.CaseEntry{CaseID: 1, Action: model.ActionWarn, TargetID: "u1", ActorID: "m1", Reason: "a", CreatedAt: now}))
	require.NoError(t, src.AppendCase(ctx, model.CaseEntry{CaseID: 2, Action: model.ActionMute, TargetID: "u2", ActorID: "m1", Reason: "b", CreatedAt: now}))
	require.NoError(t, src.SaveCaseCounter(ctx, 2))
	require.NoError(t, src.Close())

	require.NoError(t, migrate(ctx, modstore.BackendJSON, modstore.BackendSQLite, dir))

	dst, err := modstore.Open(modstore.BackendSQLite, dir)
	require.NoError(t, err)
	defer dst.Close()
	snap, cases, err := modstore.Export(ctx, dst)
	require.NoError(t, err)
	assert.Equal(t, int64(2), snap.CaseCounter)
	assert.Len(t, snap.Warnings["u1"], 1)
	assert.Equal(t, []string{"u2"}, snap.PermanentMutes)
	assert.Len(t, snap.ScheduledActions, 1)
	require.Len(t, cases, 2)
	assert.Equal(t, int64(2), cases[0].CaseID)

	err = migrate(ctx, modstore.BackendJSON, modstore.BackendSQLite, dir)
	assert.ErrorContains(t, err, "not empty")
}
