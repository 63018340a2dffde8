// Package audit implements the append-only audit event model described in
// spec.md §3/§4.6: typed events, JSONL (de)serialization, a builder that
// fills in session/git context, materialization into latest-state, and the
// reconciler that diffs materialized state against on-disk task state.
package audit

import (
	"encoding/json"
	"fmt"
	"time"
)

// Entity is the kind of thing an event describes.
type Entity string

const (
	EntityTask     Entity = "task"
	EntityChange   Entity = "change"
	EntityModule   Entity = "module"
	EntityWave     Entity = "wave"
	EntityPlanning Entity = "planning"
	EntityConfig   Entity = "config"
)

// Actor identifies which subsystem produced an event.
type Actor string

const (
	ActorCLI       Actor = "cli"
	ActorReconcile Actor = "reconcile"
	ActorRalph     Actor = "ralph"
)

// Op is the fixed operation name recorded on an event. spec.md §3 fixes
// operation names per entity; this is not an exhaustive closed set, but the
// ones the core produces.
type Op string

const (
	OpCreate       Op = "create"
	OpStatusChange Op = "status_change"
	OpArchive      Op = "archive"
	OpReconciled   Op = "reconciled"
)

// Context is the per-event provenance bundle described in spec.md §3: a
// per-process session id, optional harness session id, current branch,
// worktree name (if not main), and short commit hash. Fields that could not
// be determined are left zero and omitted from JSON.
type Context struct {
	SessionID        string `json:"session_id"`
	HarnessSessionID string `json:"harness_session_id,omitempty"`
	Branch           string `json:"branch,omitempty"`
	Worktree         string `json:"worktree,omitempty"`
	Commit           string `json:"commit,omitempty"`
}

// Event is a single append-only audit record, schema version 1.
type Event struct {
	V        int            `json:"v"`
	TS       time.Time      `json:"ts"`
	Entity   Entity         `json:"entity"`
	EntityID string         `json:"entity_id"`
	Scope    string         `json:"scope,omitempty"`
	Op       Op             `json:"op"`
	From     string         `json:"from,omitempty"`
	To       string         `json:"to,omitempty"`
	Actor    Actor          `json:"actor"`
	By       string         `json:"by"`
	Meta     map[string]any `json:"meta,omitempty"`
	Ctx      Context        `json:"ctx"`
}

// tsLayout is UTC RFC3339 with millisecond precision, per spec.md §3.
const tsLayout = "2006-01-02T15:04:05.000Z07:00"

// MarshalJSON renders ts with millisecond precision and omits zero-value
// optional fields, matching the wire format in spec.md §6.
func (e Event) MarshalJSON() ([]byte, error) {
	type alias struct {
		V        int            `json:"v"`
		TS       string         `json:"ts"`
		Entity   Entity         `json:"entity"`
		EntityID string         `json:"entity_id"`
		Scope    string         `json:"scope,omitempty"`
		Op       Op             `json:"op"`
		From     string         `json:"from,omitempty"`
		To       string         `json:"to,omitempty"`
		Actor    Actor          `json:"actor"`
		By       string         `json:"by"`
		Meta     map[string]any `json:"meta,omitempty"`
		Ctx      Context        `json:"ctx"`
	}
	return json.Marshal(alias{
		V:        e.V,
		TS:       e.TS.UTC().Format(tsLayout),
		Entity:   e.Entity,
		EntityID: e.EntityID,
		Scope:    e.Scope,
		Op:       e.Op,
		From:     e.From,
		To:       e.To,
		Actor:    e.Actor,
		By:       e.By,
		Meta:     e.Meta,
		Ctx:      e.Ctx,
	})
}

// UnmarshalJSON parses the wire format back into an Event, including the
// millisecond-precision timestamp.
func (e *Event) UnmarshalJSON(data []byte) error {
	type alias struct {
		V        int            `json:"v"`
		TS       string         `json:"ts"`
		Entity   Entity         `json:"entity"`
		EntityID string         `json:"entity_id"`
		Scope    string         `json:"scope,omitempty"`
		Op       Op             `json:"op"`
		From     string         `json:"from,omitempty"`
		To       string         `json:"to,omitempty"`
		Actor    Actor          `json:"actor"`
		By       string         `json:"by"`
		Meta     map[string]any `json:"meta,omitempty"`
		Ctx      Context        `json:"ctx"`
	}
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	ts, err := time.Parse(time.RFC3339Nano, a.TS)
	if err != nil {
		return fmt.Errorf("parse ts %q: %w", a.TS, err)
	}
	*e = Event{
		V:        a.V,
		TS:       ts.UTC(),
		Entity:   a.Entity,
		EntityID: a.EntityID,
		Scope:    a.Scope,
		Op:       a.Op,
		From:     a.From,
		To:       a.To,
		Actor:    a.Actor,
		By:       a.By,
		Meta:     a.Meta,
		Ctx:      a.Ctx,
	}
	return nil
}

// EntityKey identifies the row in the materialized latest-state map that an
// event folds into.
type EntityKey struct {
	Entity   Entity
	EntityID string
	Scope    string
}

// Key returns the EntityKey this event folds into.
func (e Event) Key() EntityKey {
	return EntityKey{Entity: e.Entity, EntityID: e.EntityID, Scope: e.Scope}
}

// Builder constructs events for a single run, filling in the schema version
// and context on every event so callers only supply the entity-specific
// fields.
type Builder struct {
	Actor Actor
	By    string
	Ctx   Context
}

// NewBuilder returns a Builder that stamps every event with actor, by, and
// ctx.
func NewBuilder(actor Actor, by string, ctx Context) Builder {
	return Builder{Actor: actor, By: by, Ctx: ctx}
}

// Build constructs an Event with v=1 and now as its timestamp (callers that
// need a specific clock pass it via BuildAt).
func (b Builder) Build(entity Entity, entityID, scope string, op Op, from, to string, meta map[string]any) Event {
	return b.BuildAt(time.Now(), entity, entityID, scope, op, from, to, meta)
}

// BuildAt is Build with an explicit timestamp, used by tests and by callers
// that need deterministic ordering across a batch.
func (b Builder) BuildAt(ts time.Time, entity Entity, entityID, scope string, op Op, from, to string, meta map[string]any) Event {
	return Event{
		V:        1,
		TS:       ts.UTC(),
		Entity:   entity,
		EntityID: entityID,
		Scope:    scope,
		Op:       op,
		From:     from,
		To:       to,
		Actor:    b.Actor,
		By:       b.By,
		Meta:     meta,
		Ctx:      b.Ctx,
	}
}
