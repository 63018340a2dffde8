package audit

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEventJSONRoundTrip(t *testing.T) {
	b := NewBuilder(ActorCLI, "@jack", Context{SessionID: "s-1", Branch: "main", Commit: "abc1234"})
	ts := time.Date(2026, 2, 8, 14, 30, 0, 0, time.UTC)
	e := b.BuildAt(ts, EntityTask, "2.1", "009-02_audit-log", OpStatusChange, "pending", "in-progress", nil)

	raw, err := json.Marshal(e)
	require.NoError(t, err)
	require.Contains(t, string(raw), `"ts":"2026-02-08T14:30:00.000Z"`)
	require.NotContains(t, string(raw), `"meta"`)
	require.NotContains(t, string(raw), `"harness_session_id"`)

	var got Event
	require.NoError(t, json.Unmarshal(raw, &got))
	require.Equal(t, e.TS, got.TS)
	require.Equal(t, e, got)
}

func TestAppendAndReadAll(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "events.jsonl")

	b := NewBuilder(ActorCLI, "@jack", Context{SessionID: "s-1"})
	e1 := b.Build(EntityTask, "1.1", "scope", OpCreate, "", "pending", nil)
	e2 := b.Build(EntityTask, "1.1", "scope", OpStatusChange, "pending", "in-progress", nil)

	require.NoError(t, Append(path, e1))
	require.NoError(t, Append(path, e2))

	got, err := ReadAll(path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, OpCreate, got[0].Op)
	require.Equal(t, OpStatusChange, got[1].Op)
}

func TestReadAllMissingFile(t *testing.T) {
	got, err := ReadAll(filepath.Join(t.TempDir(), "nope.jsonl"))
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestMaterializeLatestWins(t *testing.T) {
	b := NewBuilder(ActorCLI, "@jack", Context{SessionID: "s-1"})
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	events := []Event{
		b.BuildAt(base, EntityTask, "1.1", "scope", OpCreate, "", "pending", nil),
		b.BuildAt(base.Add(time.Minute), EntityTask, "1.1", "scope", OpStatusChange, "pending", "in-progress", nil),
		b.BuildAt(base.Add(2*time.Minute), EntityTask, "1.1", "scope", OpStatusChange, "in-progress", "complete", nil),
	}
	state := Materialize(events)
	key := EntityKey{Entity: EntityTask, EntityID: "1.1", Scope: "scope"}
	require.Equal(t, "complete", state[key].Status)
}

func TestMaterializeOrderIndependent(t *testing.T) {
	b := NewBuilder(ActorCLI, "@jack", Context{SessionID: "s-1"})
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	e1 := b.BuildAt(base, EntityTask, "1.1", "scope", OpCreate, "", "pending", nil)
	e2 := b.BuildAt(base.Add(time.Minute), EntityTask, "1.1", "scope", OpStatusChange, "pending", "complete", nil)

	forward := Materialize([]Event{e1, e2})
	backward := Materialize([]Event{e2, e1})
	key := EntityKey{Entity: EntityTask, EntityID: "1.1", Scope: "scope"}
	require.Equal(t, forward[key], backward[key])
}

func TestDiffMissingDivergedExtra(t *testing.T) {
	key1 := EntityKey{Entity: EntityTask, EntityID: "1.1", Scope: "s"}
	key2 := EntityKey{Entity: EntityTask, EntityID: "1.2", Scope: "s"}
	key3 := EntityKey{Entity: EntityTask, EntityID: "1.3", Scope: "s"}

	log := map[EntityKey]State{
		key2: {Key: key2, Status: "pending"},
		key3: {Key: key3, Status: "complete"},
	}
	files := map[EntityKey]string{
		key1: "pending",
		key2: "complete",
	}

	drifts := Diff(log, files)
	require.Len(t, drifts, 3)
	require.Equal(t, Missing, drifts[0].Kind)
	require.Equal(t, "1.1", drifts[0].Key.EntityID)
	require.Equal(t, Diverged, drifts[1].Kind)
	require.Equal(t, "1.2", drifts[1].Key.EntityID)
	require.Equal(t, Extra, drifts[2].Kind)
	require.Equal(t, "1.3", drifts[2].Key.EntityID)
}

func TestDiffExtraOnlyForTaskEntity(t *testing.T) {
	key := EntityKey{Entity: EntityChange, EntityID: "001-01", Scope: ""}
	log := map[EntityKey]State{key: {Key: key, Status: "complete"}}
	drifts := Diff(log, map[EntityKey]string{})
	require.Empty(t, drifts)
}

func TestReconcileIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "events.jsonl")
	b := NewBuilder(ActorCLI, "@jack", Context{SessionID: "s-1"})

	require.NoError(t, Append(path, b.Build(EntityTask, "1.1", "s", OpCreate, "", "pending", nil)))

	key := EntityKey{Entity: EntityTask, EntityID: "1.1", Scope: "s"}
	fileState := map[EntityKey]string{key: "complete"}

	drifts, err := Reconcile(path, fileState, b)
	require.NoError(t, err)
	require.Len(t, drifts, 1)
	require.Equal(t, Diverged, drifts[0].Kind)

	drifts, err = Reconcile(path, fileState, b)
	require.NoError(t, err)
	require.Empty(t, drifts)
}
