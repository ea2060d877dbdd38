// Package patch applies change logs to trees.
//
// The interpreter keeps a cursor (State): the selected node, a flag saying
// whether its children are selected instead, and a stash of detached nodes
// keyed by address. Each operation is one transition on that cursor:
//
//	state := patch.NewState(root, mailbox)
//	err := patch.New(doc).Apply(state, ops)
//
// Operations run strictly in order. The first failure stops the log and is
// returned with the failing index in its path; earlier operations are not
// rolled back.
//
// # Listeners
//
// addEventListener binds a decoder to the selected element through a
// Dispatcher. The tree sees one listener per element, type and phase; on
// each event the dispatcher decodes the event object once per bound
// mailbox and sends the value. Registering again from the same mailbox
// replaces the decoder. A mailbox whose Send reports it closed is unbound
// on the next event.
//
// # Stash
//
// insertStashedNode and replaceWithStashedNode consume the entry they
// restore. discardStashedNode on an empty address is a no-op and
// stashNextSibling onto an occupied address replaces the entry with a
// warning, unless the Patcher is strict (WithStrictStash), in which case
// both are errors. Entries still present when a log ends are reported by
// State.Leaked and are kept for later logs.
package patch
