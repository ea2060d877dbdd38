package dom

import (
	"github.com/wippyai/treepatch"
	"github.com/wippyai/treepatch/errors"
)

// node holds the tree links shared by every node kind. self is the
// concrete value the links are exposed as.
type node struct {
	self   treepatch.Node
	parent *node
	first  *node
	last   *node
	prev   *node
	next   *node
}

type linked interface {
	links() *node
}

func (n *node) links() *node { return n }

func (n *node) iface() treepatch.Node {
	if n == nil {
		return nil
	}
	return n.self
}

// ParentNode returns the parent or nil.
func (n *node) ParentNode() treepatch.Node { return n.parent.iface() }

// FirstChild returns the first child or nil.
func (n *node) FirstChild() treepatch.Node { return n.first.iface() }

// LastChild returns the last child or nil.
func (n *node) LastChild() treepatch.Node { return n.last.iface() }

// NextSibling returns the next sibling or nil.
func (n *node) NextSibling() treepatch.Node { return n.next.iface() }

// PreviousSibling returns the previous sibling or nil.
func (n *node) PreviousSibling() treepatch.Node { return n.prev.iface() }

// ChildNodes returns the children in order.
func (n *node) ChildNodes() []treepatch.Node {
	var out []treepatch.Node
	for c := n.first; c != nil; c = c.next {
		out = append(out, c.self)
	}
	return out
}

// AppendChild is InsertBefore with a nil reference.
func (n *node) AppendChild(child treepatch.Node) error {
	return n.InsertBefore(child, nil)
}

// InsertBefore inserts child before ref, moving it out of its current
// parent first.
func (n *node) InsertBefore(child, ref treepatch.Node) error {
	c, err := n.adopt("insertBefore", child)
	if err != nil {
		return err
	}
	var r *node
	if ref != nil {
		if r, err = n.own("insertBefore", ref); err != nil {
			return err
		}
	}
	if c == r {
		return nil
	}
	c.detach()
	n.link(c, r)
	return nil
}

// ReplaceChild substitutes newChild for oldChild.
func (n *node) ReplaceChild(newChild, oldChild treepatch.Node) error {
	c, err := n.adopt("replaceChild", newChild)
	if err != nil {
		return err
	}
	old, err := n.own("replaceChild", oldChild)
	if err != nil {
		return err
	}
	if c == old {
		return nil
	}
	ref := old.next
	if ref == c {
		ref = c.next
	}
	c.detach()
	old.detach()
	n.link(c, ref)
	return nil
}

// RemoveChild detaches child.
func (n *node) RemoveChild(child treepatch.Node) error {
	c, err := n.own("removeChild", child)
	if err != nil {
		return err
	}
	c.detach()
	return nil
}

// adopt validates that child can become a child of n.
func (n *node) adopt(op string, child treepatch.Node) (*node, error) {
	if child == nil {
		return nil, errors.InvalidInput(errors.PhaseApply, op+": nil child")
	}
	l, ok := child.(linked)
	if !ok {
		return nil, errors.TypeMismatch(errors.PhaseApply, nil, "dom node", typeName(child))
	}
	if !canHaveChildren(n.self) {
		return nil, errors.InvalidState(op, n.self.NodeType().String()+" nodes cannot have children")
	}
	if child.NodeType() == treepatch.DocumentNode {
		return nil, errors.InvalidState(op, "a document cannot be inserted")
	}
	c := l.links()
	for a := n; a != nil; a = a.parent {
		if a == c {
			return nil, errors.InvalidState(op, "node would become its own ancestor")
		}
	}
	return c, nil
}

// own resolves child and checks that n is its parent.
func (n *node) own(op string, child treepatch.Node) (*node, error) {
	l, ok := child.(linked)
	if !ok || l.links().parent != n {
		return nil, errors.New(errors.PhaseApply, errors.KindNotFound).
			Op(op).
			Detail("node is not a child of this node").
			Build()
	}
	return l.links(), nil
}

func (n *node) detach() {
	p := n.parent
	if p == nil {
		return
	}
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		p.first = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		p.last = n.prev
	}
	n.parent, n.prev, n.next = nil, nil, nil
}

// link inserts the detached c before ref, or last when ref is nil.
func (n *node) link(c, ref *node) {
	c.parent = n
	if ref == nil {
		c.prev = n.last
		if n.last != nil {
			n.last.next = c
		} else {
			n.first = c
		}
		n.last = c
		return
	}
	c.next = ref
	c.prev = ref.prev
	if ref.prev != nil {
		ref.prev.next = c
	} else {
		n.first = c
	}
	ref.prev = c
}

func canHaveChildren(n treepatch.Node) bool {
	switch n.NodeType() {
	case treepatch.ElementNode, treepatch.DocumentNode:
		return true
	}
	return false
}

// CharacterData is the shared implementation of Text and Comment.
type CharacterData struct {
	node
	data string
}

// Data returns the node's text.
func (c *CharacterData) Data() string { return c.data }

// SetData replaces the node's text.
func (c *CharacterData) SetData(data string) { c.data = data }

// Text is a text node.
type Text struct {
	CharacterData
}

// NodeType returns treepatch.TextNode.
func (*Text) NodeType() treepatch.NodeType { return treepatch.TextNode }

// Comment is a comment node.
type Comment struct {
	CharacterData
}

// NodeType returns treepatch.CommentNode.
func (*Comment) NodeType() treepatch.NodeType { return treepatch.CommentNode }

// NewText returns a detached text node.
func NewText(data string) *Text {
	t := &Text{CharacterData{data: data}}
	t.self = t
	return t
}

// NewComment returns a detached comment node.
func NewComment(data string) *Comment {
	c := &Comment{CharacterData{data: data}}
	c.self = c
	return c
}
