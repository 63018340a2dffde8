package audit

import (
	"fmt"
	"sort"
)

// DriftKind classifies one unit of disagreement between the materialized
// audit log and on-disk state.
type DriftKind int

const (
	// Missing: on disk but absent from audit history.
	Missing DriftKind = iota
	// Diverged: both sides have a status and they disagree.
	Diverged
	// Extra: audited but absent from disk. Only ever reported for
	// entity == "task" (spec.md §4.6's Open Question resolution: other
	// entities may legitimately lack a filesystem twin).
	Extra
)

// Drift is one row of disagreement returned by Diff.
type Drift struct {
	Kind       DriftKind
	Key        EntityKey
	LogStatus  string
	FileStatus string
}

// Diff compares materialized audit state against fileState (current,
// authoritative on-disk status per entity) and returns drifts sorted
// deterministically by (entity, entity_id, scope).
//
// fileState should contain an entry for every entity currently observable
// on disk; Diff treats absence from fileState as "not on disk" and absence
// from log as "no audit history" and reports the symmetric differences.
func Diff(log map[EntityKey]State, fileState map[EntityKey]string) []Drift {
	var drifts []Drift

	for key, fileStatus := range fileState {
		logState, ok := log[key]
		switch {
		case !ok:
			drifts = append(drifts, Drift{Kind: Missing, Key: key, FileStatus: fileStatus})
		case logState.Status != fileStatus:
			drifts = append(drifts, Drift{Kind: Diverged, Key: key, LogStatus: logState.Status, FileStatus: fileStatus})
		}
	}

	for key, logState := range log {
		if key.Entity != EntityTask {
			continue
		}
		if _, ok := fileState[key]; !ok {
			drifts = append(drifts, Drift{Kind: Extra, Key: key, LogStatus: logState.Status})
		}
	}

	sort.Slice(drifts, func(i, j int) bool {
		a, b := drifts[i].Key, drifts[j].Key
		if a.Entity != b.Entity {
			return a.Entity < b.Entity
		}
		if a.EntityID != b.EntityID {
			return a.EntityID < b.EntityID
		}
		return a.Scope < b.Scope
	})
	return drifts
}

// CompensatingEvent builds the `reconciled` event that closes one drift, per
// spec.md §4.6: actor=reconcile, by=@reconcile, meta.reason is a
// human-readable explanation, and from/to follow the drift kind.
func CompensatingEvent(b Builder, d Drift) Event {
	reconcileBuilder := Builder{Actor: ActorReconcile, By: "@reconcile", Ctx: b.Ctx}

	var from, to, reason string
	switch d.Kind {
	case Missing:
		to = d.FileStatus
		reason = fmt.Sprintf("%s %s found on disk with status %q but absent from audit history", d.Key.Entity, d.Key.EntityID, d.FileStatus)
	case Diverged:
		from, to = d.LogStatus, d.FileStatus
		reason = fmt.Sprintf("%s %s audit history says %q but disk says %q", d.Key.Entity, d.Key.EntityID, d.LogStatus, d.FileStatus)
	case Extra:
		from = d.LogStatus
		reason = fmt.Sprintf("%s %s has audit history (status %q) but no longer exists on disk", d.Key.Entity, d.Key.EntityID, d.LogStatus)
	}

	return reconcileBuilder.Build(d.Key.Entity, d.Key.EntityID, d.Key.Scope, OpReconciled, from, to,
		map[string]any{"reason": reason})
}

// Reconcile reads the audit log at logPath, diffs it against fileState, and
// appends one compensating event per drift to the same log. It returns the
// drifts that were found (before compensation), so callers can report what
// changed. Reconciliation is idempotent: running it again immediately
// against the now-compensated log yields zero drifts.
func Reconcile(logPath string, fileState map[EntityKey]string, b Builder) ([]Drift, error) {
	events, err := ReadAll(logPath)
	if err != nil {
		return nil, fmt.Errorf("read audit log: %w", err)
	}
	materialized := Materialize(events)
	drifts := Diff(materialized, fileState)
	for _, d := range drifts {
		if err := Append(logPath, CompensatingEvent(b, d)); err != nil {
			return drifts, fmt.Errorf("append compensating event for %s %s: %w", d.Key.Entity, d.Key.EntityID, err)
		}
	}
	return drifts, nil
}
