package patch

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/wippyai/treepatch"
	"github.com/wippyai/treepatch/errors"
	"github.com/wippyai/treepatch/result"
	"github.com/wippyai/treepatch/schema"
)

// Patcher applies change logs to trees created by one document.
type Patcher struct {
	doc         treepatch.Document
	dispatcher  *Dispatcher
	reader      *schema.Reader
	strictStash bool
}

// New returns a patcher with a private dispatcher and default limits.
func New(doc treepatch.Document) *Patcher {
	return &Patcher{
		doc:        doc,
		dispatcher: NewDispatcher(),
		reader:     schema.NewReader(schema.DefaultLimits()),
	}
}

// WithDispatcher shares d between patchers, so that listeners registered
// by one can be removed by another.
func (p *Patcher) WithDispatcher(d *Dispatcher) *Patcher {
	p.dispatcher = d
	return p
}

// WithLimits sets the limits used by ApplyBytes.
func (p *Patcher) WithLimits(l schema.Limits) *Patcher {
	p.reader = schema.NewReader(l)
	return p
}

// WithStrictStash makes stashing onto an occupied address and discarding
// an absent one errors instead of a warning and a no-op.
func (p *Patcher) WithStrictStash(strict bool) *Patcher {
	p.strictStash = strict
	return p
}

// Dispatcher returns the listener side table.
func (p *Patcher) Dispatcher() *Dispatcher {
	return p.dispatcher
}

// Apply runs ops in order against s. The first failing operation stops
// the log; operations before it stay applied. The error's path names the
// failing change, e.g. "changes[3]".
func (p *Patcher) Apply(s *State, ops []schema.Op) error {
	for i, op := range ops {
		if err := p.Step(s, op); err != nil {
			Logger().Debug("change log aborted",
				zap.Int("index", i),
				zap.Stringer("op", op),
				zap.Error(err))
			return withPath(err, fmt.Sprintf("changes[%d]", i))
		}
	}
	Logger().Debug("change log applied",
		zap.Int("changes", len(ops)),
		zap.Int("stashed", s.Stash.Len()))
	return nil
}

// ApplyBytes decodes buf and applies it. Nothing is applied when buf does
// not decode.
func (p *Patcher) ApplyBytes(s *State, buf []byte) error {
	ops, err := p.reader.Decode(buf)
	if err != nil {
		return err
	}
	return p.Apply(s, ops)
}

// ApplyResult is Apply with the outcome as a Result holding s.
func (p *Patcher) ApplyResult(s *State, ops []schema.Op) result.Result[*State] {
	return result.Of(s, p.Apply(s, ops))
}

// Step applies a single operation.
func (p *Patcher) Step(s *State, op schema.Op) error {
	if op == nil {
		return errors.InvalidInput(errors.PhaseApply, "nil operation")
	}
	err := p.step(s, op)
	if err != nil {
		return withOp(err, op.Kind().String())
	}
	if ce := Logger().Check(zap.DebugLevel, "applied"); ce != nil {
		ce.Write(
			zap.Stringer("op", op),
			zap.Stringer("target", nodeLabel{s.Target}),
			zap.Bool("children", s.ChildrenSelected))
	}
	return nil
}

func withPath(err error, path ...string) error {
	if e, ok := err.(*errors.Error); ok {
		return e.WithPath(path...)
	}
	return errors.Wrap(errors.PhaseApply, errors.KindInvalidState, err, "").WithPath(path...)
}

// withOp names the change-log operation on err. An error already naming a
// tree primitive becomes the cause of the returned error.
func withOp(err error, op string) error {
	e, ok := err.(*errors.Error)
	if !ok {
		return errors.New(errors.PhaseApply, errors.KindInvalidState).
			Op(op).
			Detail("tree rejected the change").
			Cause(err).
			Build()
	}
	switch e.Op {
	case op:
		return e
	case "":
		cp := *e
		cp.Op = op
		return &cp
	}
	cause := *e
	cause.Path = nil
	return errors.New(e.Phase, e.Kind).
		Op(op).
		Path(e.Path...).
		Cause(&cause).
		Build()
}

type nodeLabel struct {
	n treepatch.Node
}

func (l nodeLabel) String() string {
	switch n := l.n.(type) {
	case nil:
		return "<nil>"
	case treepatch.Element:
		return "<" + n.LocalName() + ">"
	}
	return "#" + l.n.NodeType().String()
}
