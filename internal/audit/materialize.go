package audit

import "sort"

// State is the materialized latest-known status of one entity, folded from
// its audit history.
type State struct {
	Key    EntityKey
	Status string // empty means the entity was removed by a reconciled event with no `to`.
}

// Materialize folds events, in ts-ascending order, into a map keyed by
// EntityKey where the latest event for each key wins, per spec.md §4.6:
//
//   - create        -> status = to (if present), else "pending"
//   - status_change -> status = to
//   - archive       -> status = to (if present), else "archived"
//   - reconciled    -> status = to (or removed, if to is absent: an Extra
//     drift's compensating event)
//   - any other op  -> status = to (if present), else unchanged
//
// Events are sorted by ts before folding so materialization is independent
// of read order; ties at the same millisecond preserve relative append
// order (a stable sort).
func Materialize(events []Event) map[EntityKey]State {
	sorted := make([]Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TS.Before(sorted[j].TS)
	})

	out := make(map[EntityKey]State)
	for _, e := range sorted {
		key := e.Key()
		switch e.Op {
		case OpCreate:
			status := e.To
			if status == "" {
				status = "pending"
			}
			out[key] = State{Key: key, Status: status}
		case OpStatusChange:
			out[key] = State{Key: key, Status: e.To}
		case OpArchive:
			status := e.To
			if status == "" {
				status = "archived"
			}
			out[key] = State{Key: key, Status: status}
		case OpReconciled:
			if e.To == "" {
				delete(out, key)
				continue
			}
			out[key] = State{Key: key, Status: e.To}
		default:
			if e.To != "" {
				out[key] = State{Key: key, Status: e.To}
			}
		}
	}
	return out
}
