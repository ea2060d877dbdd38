package dom

import (
	"github.com/wippyai/treepatch"
	"github.com/wippyai/treepatch/errors"
)

// Document is the root of a tree and the factory for its nodes.
type Document struct {
	node
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	d := &Document{}
	d.self = d
	return d
}

// NodeType returns treepatch.DocumentNode.
func (*Document) NodeType() treepatch.NodeType { return treepatch.DocumentNode }

// CreateTextNode returns a detached text node.
func (d *Document) CreateTextNode(data string) treepatch.CharacterData {
	return NewText(data)
}

// CreateComment returns a detached comment node.
func (d *Document) CreateComment(data string) treepatch.CharacterData {
	return NewComment(data)
}

// CreateElement returns a detached element without a namespace.
func (d *Document) CreateElement(localName string) (treepatch.Element, error) {
	return d.CreateElementNS("", localName)
}

// CreateElementNS returns a detached element.
func (d *Document) CreateElementNS(namespaceURI, localName string) (treepatch.Element, error) {
	if !validName(localName) {
		return nil, errors.New(errors.PhaseApply, errors.KindInvalidInput).
			Value(localName).
			Detail("invalid element name %q", localName).
			Build()
	}
	return NewElement(namespaceURI, localName), nil
}

// DocumentElement returns the first element child or nil.
func (d *Document) DocumentElement() *Element {
	for c := d.first; c != nil; c = c.next {
		if e, ok := c.self.(*Element); ok {
			return e
		}
	}
	return nil
}

// validName accepts names that render unambiguously in markup.
func validName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		switch r {
		case ' ', '\t', '\n', '\r', '\f', '/', '>', '<', '"', '\'', '=':
			return false
		}
	}
	return true
}

var _ treepatch.Document = (*Document)(nil)
var _ treepatch.Element = (*Element)(nil)
var _ treepatch.CharacterData = (*Text)(nil)
var _ treepatch.CharacterData = (*Comment)(nil)
