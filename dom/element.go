package dom

import (
	"fmt"
	"sort"

	"github.com/wippyai/treepatch"
)

// Attr is one attribute of an element.
type Attr struct {
	NamespaceURI string
	Name         string
	Value        string
}

// StyleRule is one inline style declaration.
type StyleRule struct {
	Name  string
	Value string
}

type listenerKey struct {
	eventType string
	capture   bool
}

// Element is an element node. Attributes and style rules keep insertion
// order; properties are an unordered bag separate from attributes.
type Element struct {
	node
	namespaceURI string
	localName    string
	attrs        []Attr
	props        map[string]any
	style        []StyleRule
	listeners    map[listenerKey][]treepatch.Listener
}

// NewElement returns a detached element. An empty namespaceURI means no
// namespace.
func NewElement(namespaceURI, localName string) *Element {
	e := &Element{
		namespaceURI: namespaceURI,
		localName:    localName,
		props:        make(map[string]any),
	}
	e.self = e
	return e
}

// NodeType returns treepatch.ElementNode.
func (*Element) NodeType() treepatch.NodeType { return treepatch.ElementNode }

func (e *Element) NamespaceURI() string { return e.namespaceURI }
func (e *Element) LocalName() string    { return e.localName }

func (e *Element) attrIndex(namespaceURI, name string) int {
	for i, a := range e.attrs {
		if a.NamespaceURI == namespaceURI && a.Name == name {
			return i
		}
	}
	return -1
}

// SetAttributeNS sets or replaces an attribute.
func (e *Element) SetAttributeNS(namespaceURI, name, value string) {
	if i := e.attrIndex(namespaceURI, name); i >= 0 {
		e.attrs[i].Value = value
		return
	}
	e.attrs = append(e.attrs, Attr{NamespaceURI: namespaceURI, Name: name, Value: value})
}

// SetAttribute sets an attribute without a namespace.
func (e *Element) SetAttribute(name, value string) {
	e.SetAttributeNS("", name, value)
}

// RemoveAttributeNS removes an attribute if present.
func (e *Element) RemoveAttributeNS(namespaceURI, name string) {
	if i := e.attrIndex(namespaceURI, name); i >= 0 {
		e.attrs = append(e.attrs[:i], e.attrs[i+1:]...)
	}
}

// GetAttributeNS returns an attribute's value.
func (e *Element) GetAttributeNS(namespaceURI, name string) (string, bool) {
	if i := e.attrIndex(namespaceURI, name); i >= 0 {
		return e.attrs[i].Value, true
	}
	return "", false
}

// GetAttribute returns the value of an attribute without a namespace.
func (e *Element) GetAttribute(name string) (string, bool) {
	return e.GetAttributeNS("", name)
}

// Attributes returns a copy of the attribute list.
func (e *Element) Attributes() []Attr {
	return append([]Attr(nil), e.attrs...)
}

// SetProperty assigns a property.
func (e *Element) SetProperty(name string, value any) {
	e.props[name] = value
}

// DeleteProperty removes a property.
func (e *Element) DeleteProperty(name string) {
	delete(e.props, name)
}

// Property returns a property's value.
func (e *Element) Property(name string) (any, bool) {
	v, ok := e.props[name]
	return v, ok
}

// SetStyleProperty sets or replaces a style rule.
func (e *Element) SetStyleProperty(name, value string) {
	for i := range e.style {
		if e.style[i].Name == name {
			e.style[i].Value = value
			return
		}
	}
	e.style = append(e.style, StyleRule{Name: name, Value: value})
}

// RemoveStyleProperty removes a style rule if present.
func (e *Element) RemoveStyleProperty(name string) {
	for i := range e.style {
		if e.style[i].Name == name {
			e.style = append(e.style[:i], e.style[i+1:]...)
			return
		}
	}
}

// StyleProperty returns a style rule's value.
func (e *Element) StyleProperty(name string) (string, bool) {
	for _, r := range e.style {
		if r.Name == name {
			return r.Value, true
		}
	}
	return "", false
}

// Style returns a copy of the style rules.
func (e *Element) Style() []StyleRule {
	return append([]StyleRule(nil), e.style...)
}

// AddEventListener registers l for eventType in the given phase. Listeners
// are compared with ==, so l must be a comparable value such as a pointer.
func (e *Element) AddEventListener(eventType string, capture bool, l treepatch.Listener) {
	if e.listeners == nil {
		e.listeners = make(map[listenerKey][]treepatch.Listener)
	}
	k := listenerKey{eventType, capture}
	for _, x := range e.listeners[k] {
		if x == l {
			return
		}
	}
	e.listeners[k] = append(e.listeners[k], l)
}

// RemoveEventListener unregisters l.
func (e *Element) RemoveEventListener(eventType string, capture bool, l treepatch.Listener) {
	k := listenerKey{eventType, capture}
	ls := e.listeners[k]
	for i, x := range ls {
		if x == l {
			ls = append(ls[:i:i], ls[i+1:]...)
			break
		}
	}
	if len(ls) == 0 {
		delete(e.listeners, k)
		return
	}
	e.listeners[k] = ls
}

// ListenerCount returns how many listeners are registered for eventType
// in the given phase.
func (e *Element) ListenerCount(eventType string, capture bool) int {
	return len(e.listeners[listenerKey{eventType, capture}])
}

func (e *Element) listenersFor(eventType string, capture bool) []treepatch.Listener {
	return append([]treepatch.Listener(nil), e.listeners[listenerKey{eventType, capture}]...)
}

// TextContent concatenates the data of all descendant text nodes.
func (e *Element) TextContent() string {
	return textContent(&e.node)
}

func textContent(n *node) string {
	var s string
	for c := n.first; c != nil; c = c.next {
		switch v := c.self.(type) {
		case *Text:
			s += v.data
		case *Element:
			s += textContent(&v.node)
		}
	}
	return s
}

var elementFields = []string{"childElementCount", "id", "localName", "namespaceURI", "nodeType", "tagName", "textContent"}

// Get implements decoder.Object. Properties shadow the built-in fields.
func (e *Element) Get(name string) (any, bool, error) {
	if v, ok := e.props[name]; ok {
		return v, true, nil
	}
	switch name {
	case "localName", "tagName":
		return e.localName, true, nil
	case "namespaceURI":
		if e.namespaceURI == "" {
			return nil, true, nil
		}
		return e.namespaceURI, true, nil
	case "nodeType":
		return int(treepatch.ElementNode), true, nil
	case "id":
		v, _ := e.GetAttribute("id")
		return v, true, nil
	case "textContent":
		return e.TextContent(), true, nil
	case "childElementCount":
		n := 0
		for c := e.first; c != nil; c = c.next {
			if _, ok := c.self.(*Element); ok {
				n++
			}
		}
		return n, true, nil
	}
	return nil, false, nil
}

// Keys implements decoder.Object.
func (e *Element) Keys() []string {
	keys := append([]string(nil), elementFields...)
	for k := range e.props {
		if i := sort.SearchStrings(elementFields, k); i == len(elementFields) || elementFields[i] != k {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func typeName(v any) string {
	return fmt.Sprintf("%T", v)
}
