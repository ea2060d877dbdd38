package treepatch

// NodeType identifies the kind of a tree node. Values match the DOM's
// nodeType numbers.
type NodeType uint16

const (
	ElementNode  NodeType = 1
	TextNode     NodeType = 3
	CommentNode  NodeType = 8
	DocumentNode NodeType = 9
)

func (t NodeType) String() string {
	switch t {
	case ElementNode:
		return "element"
	case TextNode:
		return "text"
	case CommentNode:
		return "comment"
	case DocumentNode:
		return "document"
	}
	return "unknown"
}

// Node is a position in a mutable tree. Navigation accessors return nil
// when the relative does not exist.
type Node interface {
	NodeType() NodeType
	ParentNode() Node
	FirstChild() Node
	NextSibling() Node

	// InsertBefore inserts child before ref. A nil ref appends. A child
	// that is already in a tree is moved.
	InsertBefore(child, ref Node) error

	// ReplaceChild substitutes newChild for oldChild.
	ReplaceChild(newChild, oldChild Node) error

	// RemoveChild detaches child.
	RemoveChild(child Node) error
}

// CharacterData is a text or comment node.
type CharacterData interface {
	Node
	Data() string
	SetData(data string)
}

// Element is a node with attributes, properties and style rules. An empty
// namespace URI means no namespace.
type Element interface {
	Node
	EventTarget

	NamespaceURI() string
	LocalName() string

	SetAttributeNS(namespaceURI, name, value string)
	RemoveAttributeNS(namespaceURI, name string)

	// SetProperty assigns a string, bool, float64 or nil value.
	SetProperty(name string, value any)
	DeleteProperty(name string)

	SetStyleProperty(name, value string)
	RemoveStyleProperty(name string)
}

// Listener receives events delivered to an EventTarget.
type Listener interface {
	HandleEvent(event any)
}

// EventTarget registers listeners by event type and phase. Registering the
// same listener twice for one type and phase has no effect.
type EventTarget interface {
	AddEventListener(eventType string, capture bool, l Listener)
	RemoveEventListener(eventType string, capture bool, l Listener)
}

// Document creates nodes that can be inserted into its tree.
type Document interface {
	Node
	CreateTextNode(data string) CharacterData
	CreateComment(data string) CharacterData
	CreateElement(localName string) (Element, error)
	CreateElementNS(namespaceURI, localName string) (Element, error)
}
