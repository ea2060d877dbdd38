package patch

import (
	"go.uber.org/zap"

	"github.com/wippyai/treepatch"
	"github.com/wippyai/treepatch/errors"
	"github.com/wippyai/treepatch/schema"
)

func (p *Patcher) step(s *State, op schema.Op) error {
	switch o := op.(type) {
	case schema.SelectChildren:
		if s.ChildrenSelected {
			return errors.InvalidState("", "children are already selected")
		}
		s.ChildrenSelected = true
		return nil

	case schema.SelectSibling:
		return selectSibling(s, o.Offset)

	case schema.SelectParent:
		if s.ChildrenSelected {
			s.ChildrenSelected = false
			return nil
		}
		parent, err := parentOf(s.Target)
		if err != nil {
			return err
		}
		s.Target = parent
		return nil

	case schema.RemoveNextSibling:
		parent, victim, err := nextSibling(s)
		if err != nil {
			return err
		}
		return parent.RemoveChild(victim)

	case schema.InsertComment:
		return p.insert(s, func() (treepatch.Node, error) { return p.doc.CreateComment(o.Data), nil })
	case schema.InsertText:
		return p.insert(s, func() (treepatch.Node, error) { return p.doc.CreateTextNode(o.Data), nil })
	case schema.InsertElement:
		return p.insert(s, func() (treepatch.Node, error) { return p.element(o.NamespaceURI, o.LocalName) })
	case schema.InsertStashedNode:
		if err := p.insert(s, func() (treepatch.Node, error) { return peekStashed(s, o.Address) }); err != nil {
			return err
		}
		s.Stash.Take(o.Address)
		return nil

	case schema.ReplaceWithComment:
		return p.replace(s, func() (treepatch.Node, error) { return p.doc.CreateComment(o.Data), nil })
	case schema.ReplaceWithText:
		return p.replace(s, func() (treepatch.Node, error) { return p.doc.CreateTextNode(o.Data), nil })
	case schema.ReplaceWithElement:
		return p.replace(s, func() (treepatch.Node, error) { return p.element(o.NamespaceURI, o.LocalName) })
	case schema.ReplaceWithStashedNode:
		if err := p.replace(s, func() (treepatch.Node, error) { return peekStashed(s, o.Address) }); err != nil {
			return err
		}
		s.Stash.Take(o.Address)
		return nil

	case schema.SetTextData:
		cd, err := characterData(s)
		if err != nil {
			return err
		}
		cd.SetData(o.Data)
		return nil

	case schema.EditTextData:
		cd, err := characterData(s)
		if err != nil {
			return err
		}
		data, err := editText(cd.Data(), o)
		if err != nil {
			return err
		}
		cd.SetData(data)
		return nil

	case schema.SetAttribute:
		return withElement(s, func(e treepatch.Element) { e.SetAttributeNS(o.NamespaceURI, o.Name, o.Value) })
	case schema.RemoveAttribute:
		return withElement(s, func(e treepatch.Element) { e.RemoveAttributeNS(o.NamespaceURI, o.Name) })
	case schema.AssignStringProperty:
		return withElement(s, func(e treepatch.Element) { e.SetProperty(o.Name, o.Value) })
	case schema.AssignBooleanProperty:
		return withElement(s, func(e treepatch.Element) { e.SetProperty(o.Name, o.Value) })
	case schema.AssignNumberProperty:
		return withElement(s, func(e treepatch.Element) { e.SetProperty(o.Name, o.Value) })
	case schema.AssignNullProperty:
		return withElement(s, func(e treepatch.Element) { e.SetProperty(o.Name, nil) })
	case schema.DeleteProperty:
		return withElement(s, func(e treepatch.Element) { e.DeleteProperty(o.Name) })
	case schema.SetStyleRule:
		return withElement(s, func(e treepatch.Element) { e.SetStyleProperty(o.Name, o.Value) })
	case schema.RemoveStyleRule:
		return withElement(s, func(e treepatch.Element) { e.RemoveStyleProperty(o.Name) })

	case schema.StashNextSibling:
		return p.stashNextSibling(s, o.Address)

	case schema.DiscardStashedNode:
		if s.Stash.Discard(o.Address) {
			return nil
		}
		if p.strictStash {
			return errors.NotFound(errors.PhaseApply, "stashed node", o.Address)
		}
		Logger().Debug("discarding empty stash address", zap.Uint32("address", o.Address))
		return nil

	case schema.ShiftSiblings:
		return shiftSiblings(s, o.Count)

	case schema.AddEventListener:
		if s.Mailbox == nil {
			return errors.InvalidState("", "state has no mailbox for listener values")
		}
		if o.Decoder == nil {
			return errors.FieldMissing(errors.PhaseApply, nil, "decoder")
		}
		return withElement(s, func(e treepatch.Element) {
			p.dispatcher.Add(e, o.Type, o.Capture, o.Decoder, s.Mailbox)
		})

	case schema.RemoveEventListener:
		if s.Mailbox == nil {
			return errors.InvalidState("", "state has no mailbox for listener values")
		}
		return withElement(s, func(e treepatch.Element) {
			p.dispatcher.Remove(e, o.Type, o.Capture, s.Mailbox)
		})
	}

	return errors.New(errors.PhaseApply, errors.KindUnknownOp).
		Op(op.Kind().String()).
		Detail("unsupported operation value %T", op).
		Build()
}

func siblingMissing() error {
	return errors.New(errors.PhaseApply, errors.KindNotFound).
		Detail("sibling does not exist").
		Build()
}

func parentOf(n treepatch.Node) (treepatch.Node, error) {
	parent := n.ParentNode()
	if parent == nil {
		return nil, errors.InvalidState("", "node has no parent")
	}
	return parent, nil
}

// walk follows n next-sibling links from start.
func walk(start treepatch.Node, n uint32) treepatch.Node {
	node := start
	for i := uint32(0); i < n && node != nil; i++ {
		node = node.NextSibling()
	}
	return node
}

func selectSibling(s *State, offset uint32) error {
	start := s.Target
	if s.ChildrenSelected {
		start = s.Target.FirstChild()
	}
	if start == nil {
		return siblingMissing()
	}
	node := walk(start, offset)
	if node == nil {
		return siblingMissing()
	}
	s.Target = node
	s.ChildrenSelected = false
	return nil
}

// nextSibling resolves the node following the cursor: the first child
// when children are selected, the next sibling otherwise.
func nextSibling(s *State) (parent, sibling treepatch.Node, err error) {
	if s.ChildrenSelected {
		parent = s.Target
		sibling = s.Target.FirstChild()
	} else {
		if parent, err = parentOf(s.Target); err != nil {
			return nil, nil, err
		}
		sibling = s.Target.NextSibling()
	}
	if sibling == nil {
		return nil, nil, siblingMissing()
	}
	return parent, sibling, nil
}

func (p *Patcher) element(namespaceURI, localName string) (treepatch.Node, error) {
	if namespaceURI == "" {
		return p.doc.CreateElement(localName)
	}
	return p.doc.CreateElementNS(namespaceURI, localName)
}

// peekStashed leaves the entry in place; callers take it once the tree
// has accepted the node.
func peekStashed(s *State, addr uint32) (treepatch.Node, error) {
	n, ok := s.Stash.Peek(addr)
	if !ok {
		return nil, errors.NotFound(errors.PhaseApply, "stashed node", addr)
	}
	return n, nil
}

// insert appends to the target's children when they are selected and
// inserts before the target otherwise. The cursor does not move.
func (p *Patcher) insert(s *State, create func() (treepatch.Node, error)) error {
	parent, ref := s.Target, treepatch.Node(nil)
	if !s.ChildrenSelected {
		var err error
		if parent, err = parentOf(s.Target); err != nil {
			return err
		}
		ref = s.Target
	}
	n, err := create()
	if err != nil {
		return err
	}
	return parent.InsertBefore(n, ref)
}

// replace substitutes a new node for the target and selects it.
func (p *Patcher) replace(s *State, create func() (treepatch.Node, error)) error {
	if s.ChildrenSelected {
		return errors.InvalidState("", "cannot replace while children are selected")
	}
	parent, err := parentOf(s.Target)
	if err != nil {
		return err
	}
	n, err := create()
	if err != nil {
		return err
	}
	if err := parent.ReplaceChild(n, s.Target); err != nil {
		return err
	}
	s.Target = n
	return nil
}

func characterData(s *State) (treepatch.CharacterData, error) {
	if s.ChildrenSelected {
		return nil, errors.InvalidState("", "cannot edit text while children are selected")
	}
	cd, ok := s.Target.(treepatch.CharacterData)
	if !ok {
		return nil, errors.TypeMismatch(errors.PhaseApply, nil, "text or comment node", s.Target.NodeType().String())
	}
	return cd, nil
}

// editText keeps data[start:len-end] and wraps it in prefix and suffix.
// Indices count runes.
func editText(data string, o schema.EditTextData) (string, error) {
	runes := []rune(data)
	n := uint64(len(runes))
	if uint64(o.Start)+uint64(o.End) > n {
		return "", errors.OutOfBounds(errors.PhaseApply, nil, int(uint64(o.Start)+uint64(o.End)), int(n))
	}
	mid := n - uint64(o.End)
	return string(runes[:o.Start]) + o.Prefix + string(runes[o.Start:mid]) + o.Suffix + string(runes[mid:]), nil
}

func withElement(s *State, fn func(treepatch.Element)) error {
	if s.ChildrenSelected {
		return errors.InvalidState("", "cannot modify an element while its children are selected")
	}
	e, ok := s.Target.(treepatch.Element)
	if !ok {
		return errors.TypeMismatch(errors.PhaseApply, nil, "element", s.Target.NodeType().String())
	}
	fn(e)
	return nil
}

func (p *Patcher) stashNextSibling(s *State, addr uint32) error {
	parent, sibling, err := nextSibling(s)
	if err != nil {
		return err
	}
	if _, occupied := s.Stash.Peek(addr); occupied && p.strictStash {
		return errors.InvalidState("", "stash address is occupied")
	}
	if err := parent.RemoveChild(sibling); err != nil {
		return err
	}
	_, err = s.Stash.Put(addr, sibling)
	return err
}

// shiftSiblings moves the node count positions after the cursor to the
// cursor: before the target, or before the first child when children are
// selected.
func shiftSiblings(s *State, count uint32) error {
	parent, anchor := treepatch.Node(nil), s.Target
	if s.ChildrenSelected {
		parent, anchor = s.Target, s.Target.FirstChild()
		if anchor == nil {
			return siblingMissing()
		}
	} else {
		var err error
		if parent, err = parentOf(s.Target); err != nil {
			return err
		}
	}
	moving := walk(anchor, count)
	if moving == nil {
		return siblingMissing()
	}
	if moving == anchor {
		return nil
	}
	return parent.InsertBefore(moving, anchor)
}
