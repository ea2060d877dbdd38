package patch

import (
	"go.uber.org/zap"

	"github.com/wippyai/treepatch"
	"github.com/wippyai/treepatch/stash"
)

// State is the interpreter cursor: the selected node, whether its children
// are selected instead, and the nodes stashed by address. A State is
// mutated in place by every operation and belongs to one tree.
type State struct {
	Target           treepatch.Node
	ChildrenSelected bool
	Stash            *stash.Table[treepatch.Node]

	// Mailbox receives values decoded by listeners this state registers.
	// It may be nil when the logs never add listeners.
	Mailbox Mailbox
}

// NewState returns a cursor on root with an empty stash.
func NewState(root treepatch.Node, mailbox Mailbox) *State {
	s := &State{
		Target:  root,
		Stash:   stash.NewTable[treepatch.Node](),
		Mailbox: mailbox,
	}
	s.Stash.Subscribe(stashLog{})
	return s
}

type stashLog struct{}

func (stashLog) OnStashEvent(e stash.Event[treepatch.Node]) {
	if e.Type == stash.EventOverwritten {
		Logger().Warn("stash address overwritten; the previous node is lost",
			zap.Uint32("address", e.Address),
			zap.Stringer("node", nodeLabel{e.Value}))
		return
	}
	Logger().Debug("stash",
		zap.Stringer("event", e.Type),
		zap.Uint32("address", e.Address),
		zap.Stringer("node", nodeLabel{e.Value}))
}

// Leaked returns the stash addresses still occupied. After a complete
// change log these are nodes that were stashed and never restored or
// discarded.
func (s *State) Leaked() []uint32 {
	return s.Stash.Addresses()
}
