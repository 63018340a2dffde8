package audit

// WorktreeInfo tags the ephemeral or linked worktree an event was recorded
// in, so a materializer merging several worktrees' audit logs (spec.md
// §4.9's coordination git reservation can produce more than one) can
// attribute and order events correctly. Supplements spec.md's single-log
// model; drawn from `original_source/ito-rs`'s `WorktreeInfo`/
// `TaggedAuditEvent` idea.
type WorktreeInfo struct {
	Name string
	Path string
}

// TaggedEvent pairs an Event with the WorktreeInfo of the worktree its log
// was read from.
type TaggedEvent struct {
	Event    Event
	Worktree WorktreeInfo
}

// MaterializeTagged folds tagged events the same way Materialize does,
// ignoring the worktree tag for status computation (it exists purely for
// provenance/debugging in the caller, not for conflict resolution: ts order
// alone decides which event wins).
func MaterializeTagged(tagged []TaggedEvent) map[EntityKey]State {
	events := make([]Event, len(tagged))
	for i, t := range tagged {
		events[i] = t.Event
	}
	return Materialize(events)
}
