package schema

import (
	"fmt"
	"strconv"

	"github.com/wippyai/treepatch/decoder"
	"github.com/wippyai/treepatch/errors"
)

// OpKind is the one-byte tag recorded in a Change. Values are stable wire
// tags; 0 means no operation.
type OpKind uint8

const (
	OpNone OpKind = iota
	OpSelectChildren
	OpSelectSibling
	OpSelectParent
	OpInsertComment
	OpInsertText
	OpInsertElement
	OpInsertStashedNode
	OpReplaceWithComment
	OpReplaceWithText
	OpReplaceWithElement
	OpReplaceWithStashedNode
	OpRemoveNextSibling
	OpSetTextData
	OpEditTextData
	OpSetAttribute
	OpRemoveAttribute
	OpAssignStringProperty
	OpAssignBooleanProperty
	OpAssignNumberProperty
	OpAssignNullProperty
	OpDeleteProperty
	OpSetStyleRule
	OpRemoveStyleRule
	OpStashNextSibling
	OpDiscardStashedNode
	OpShiftSiblings
	OpAddEventListener
	OpRemoveEventListener
)

// OpMax is the highest defined operation tag.
const OpMax = OpRemoveEventListener

var opNames = [...]string{
	OpNone:                   "none",
	OpSelectChildren:         "selectChildren",
	OpSelectSibling:          "selectSibling",
	OpSelectParent:           "selectParent",
	OpInsertComment:          "insertComment",
	OpInsertText:             "insertText",
	OpInsertElement:          "insertElement",
	OpInsertStashedNode:      "insertStashedNode",
	OpReplaceWithComment:     "replaceWithComment",
	OpReplaceWithText:        "replaceWithText",
	OpReplaceWithElement:     "replaceWithElement",
	OpReplaceWithStashedNode: "replaceWithStashedNode",
	OpRemoveNextSibling:      "removeNextSibling",
	OpSetTextData:            "setTextData",
	OpEditTextData:           "editTextData",
	OpSetAttribute:           "setAttribute",
	OpRemoveAttribute:        "removeAttribute",
	OpAssignStringProperty:   "assignStringProperty",
	OpAssignBooleanProperty:  "assignBooleanProperty",
	OpAssignNumberProperty:   "assignNumberProperty",
	OpAssignNullProperty:     "assignNullProperty",
	OpDeleteProperty:         "deleteProperty",
	OpSetStyleRule:           "setStyleRule",
	OpRemoveStyleRule:        "removeStyleRule",
	OpStashNextSibling:       "stashNextSibling",
	OpDiscardStashedNode:     "discardStashedNode",
	OpShiftSiblings:          "shiftSiblings",
	OpAddEventListener:       "addEventListener",
	OpRemoveEventListener:    "removeEventListener",
}

func (k OpKind) String() string {
	if int(k) < len(opNames) {
		return opNames[k]
	}
	return "op(" + strconv.Itoa(int(k)) + ")"
}

// ParseOpKind returns the kind with the given name.
func ParseOpKind(name string) (OpKind, bool) {
	for k, n := range opNames {
		if n == name && k != int(OpNone) {
			return OpKind(k), true
		}
	}
	return OpNone, false
}

// Op is one change-log entry.
type Op interface {
	Kind() OpKind
	String() string
}

type (
	SelectChildren struct{}

	SelectSibling struct {
		Offset uint32
	}

	SelectParent struct{}

	InsertComment struct {
		Data string
	}

	InsertText struct {
		Data string
	}

	// InsertElement creates an element; an empty NamespaceURI means none.
	InsertElement struct {
		NamespaceURI string
		LocalName    string
	}

	InsertStashedNode struct {
		Address uint32
	}

	ReplaceWithComment struct {
		Data string
	}

	ReplaceWithText struct {
		Data string
	}

	ReplaceWithElement struct {
		NamespaceURI string
		LocalName    string
	}

	ReplaceWithStashedNode struct {
		Address uint32
	}

	RemoveNextSibling struct{}

	SetTextData struct {
		Data string
	}

	// EditTextData keeps data[Start:len-End] and wraps it in Prefix and
	// Suffix. Indices count characters.
	EditTextData struct {
		Start  uint32
		End    uint32
		Prefix string
		Suffix string
	}

	SetAttribute struct {
		NamespaceURI string
		Name         string
		Value        string
	}

	RemoveAttribute struct {
		NamespaceURI string
		Name         string
	}

	AssignStringProperty struct {
		Name  string
		Value string
	}

	AssignBooleanProperty struct {
		Name  string
		Value bool
	}

	AssignNumberProperty struct {
		Name  string
		Value float64
	}

	AssignNullProperty struct {
		Name string
	}

	DeleteProperty struct {
		Name string
	}

	SetStyleRule struct {
		Name  string
		Value string
	}

	RemoveStyleRule struct {
		Name string
	}

	StashNextSibling struct {
		Address uint32
	}

	DiscardStashedNode struct {
		Address uint32
	}

	ShiftSiblings struct {
		Count uint32
	}

	// AddEventListener attaches Decoder to events of Type on the current
	// element; decoded payloads go to the applying state's mailbox.
	AddEventListener struct {
		Type    string
		Decoder decoder.Decoder
		Capture bool
	}

	RemoveEventListener struct {
		Type    string
		Decoder decoder.Decoder
		Capture bool
	}
)

func (SelectChildren) Kind() OpKind         { return OpSelectChildren }
func (SelectSibling) Kind() OpKind          { return OpSelectSibling }
func (SelectParent) Kind() OpKind           { return OpSelectParent }
func (InsertComment) Kind() OpKind          { return OpInsertComment }
func (InsertText) Kind() OpKind             { return OpInsertText }
func (InsertElement) Kind() OpKind          { return OpInsertElement }
func (InsertStashedNode) Kind() OpKind      { return OpInsertStashedNode }
func (ReplaceWithComment) Kind() OpKind     { return OpReplaceWithComment }
func (ReplaceWithText) Kind() OpKind        { return OpReplaceWithText }
func (ReplaceWithElement) Kind() OpKind     { return OpReplaceWithElement }
func (ReplaceWithStashedNode) Kind() OpKind { return OpReplaceWithStashedNode }
func (RemoveNextSibling) Kind() OpKind      { return OpRemoveNextSibling }
func (SetTextData) Kind() OpKind            { return OpSetTextData }
func (EditTextData) Kind() OpKind           { return OpEditTextData }
func (SetAttribute) Kind() OpKind           { return OpSetAttribute }
func (RemoveAttribute) Kind() OpKind        { return OpRemoveAttribute }
func (AssignStringProperty) Kind() OpKind   { return OpAssignStringProperty }
func (AssignBooleanProperty) Kind() OpKind  { return OpAssignBooleanProperty }
func (AssignNumberProperty) Kind() OpKind   { return OpAssignNumberProperty }
func (AssignNullProperty) Kind() OpKind     { return OpAssignNullProperty }
func (DeleteProperty) Kind() OpKind         { return OpDeleteProperty }
func (SetStyleRule) Kind() OpKind           { return OpSetStyleRule }
func (RemoveStyleRule) Kind() OpKind        { return OpRemoveStyleRule }
func (StashNextSibling) Kind() OpKind       { return OpStashNextSibling }
func (DiscardStashedNode) Kind() OpKind     { return OpDiscardStashedNode }
func (ShiftSiblings) Kind() OpKind          { return OpShiftSiblings }
func (AddEventListener) Kind() OpKind       { return OpAddEventListener }
func (RemoveEventListener) Kind() OpKind    { return OpRemoveEventListener }

func (SelectChildren) String() string    { return "selectChildren()" }
func (SelectParent) String() string      { return "selectParent()" }
func (RemoveNextSibling) String() string { return "removeNextSibling()" }

func (o SelectSibling) String() string { return fmt.Sprintf("selectSibling(%d)", o.Offset) }
func (o InsertComment) String() string { return fmt.Sprintf("insertComment(%q)", o.Data) }
func (o InsertText) String() string    { return fmt.Sprintf("insertText(%q)", o.Data) }
func (o SetTextData) String() string   { return fmt.Sprintf("setTextData(%q)", o.Data) }
func (o ShiftSiblings) String() string { return fmt.Sprintf("shiftSiblings(%d)", o.Count) }

func (o InsertElement) String() string {
	return fmt.Sprintf("insertElement(%s)", elementName(o.NamespaceURI, o.LocalName))
}

func (o ReplaceWithElement) String() string {
	return fmt.Sprintf("replaceWithElement(%s)", elementName(o.NamespaceURI, o.LocalName))
}

func (o InsertStashedNode) String() string {
	return fmt.Sprintf("insertStashedNode(%d)", o.Address)
}

func (o ReplaceWithComment) String() string {
	return fmt.Sprintf("replaceWithComment(%q)", o.Data)
}

func (o ReplaceWithText) String() string {
	return fmt.Sprintf("replaceWithText(%q)", o.Data)
}

func (o ReplaceWithStashedNode) String() string {
	return fmt.Sprintf("replaceWithStashedNode(%d)", o.Address)
}

func (o EditTextData) String() string {
	return fmt.Sprintf("editTextData(%d, %d, %q, %q)", o.Start, o.End, o.Prefix, o.Suffix)
}

func (o SetAttribute) String() string {
	return fmt.Sprintf("setAttribute(%s, %q)", elementName(o.NamespaceURI, o.Name), o.Value)
}

func (o RemoveAttribute) String() string {
	return fmt.Sprintf("removeAttribute(%s)", elementName(o.NamespaceURI, o.Name))
}

func (o AssignStringProperty) String() string {
	return fmt.Sprintf("assignProperty(%q, %q)", o.Name, o.Value)
}

func (o AssignBooleanProperty) String() string {
	return fmt.Sprintf("assignProperty(%q, %t)", o.Name, o.Value)
}

func (o AssignNumberProperty) String() string {
	return fmt.Sprintf("assignProperty(%q, %s)", o.Name, strconv.FormatFloat(o.Value, 'g', -1, 64))
}

func (o AssignNullProperty) String() string {
	return fmt.Sprintf("assignProperty(%q, null)", o.Name)
}

func (o DeleteProperty) String() string { return fmt.Sprintf("deleteProperty(%q)", o.Name) }

func (o SetStyleRule) String() string {
	return fmt.Sprintf("setStyleRule(%q, %q)", o.Name, o.Value)
}

func (o RemoveStyleRule) String() string { return fmt.Sprintf("removeStyleRule(%q)", o.Name) }

func (o StashNextSibling) String() string {
	return fmt.Sprintf("stashNextSibling(%d)", o.Address)
}

func (o DiscardStashedNode) String() string {
	return fmt.Sprintf("discardStashedNode(%d)", o.Address)
}

func (o AddEventListener) String() string {
	return fmt.Sprintf("addEventListener(%q, %s, %t)", o.Type, describe(o.Decoder), o.Capture)
}

func (o RemoveEventListener) String() string {
	return fmt.Sprintf("removeEventListener(%q, %s, %t)", o.Type, describe(o.Decoder), o.Capture)
}

func elementName(ns, name string) string {
	if ns == "" {
		return strconv.Quote(name)
	}
	return strconv.Quote(ns) + ", " + strconv.Quote(name)
}

func describe(d decoder.Decoder) string {
	if d == nil {
		return "<nil>"
	}
	return decoder.Describe(d)
}

// AssignProperty returns the typed assignment for value: string, bool,
// any numeric kind or nil. Other values are rejected.
func AssignProperty(name string, value any) (Op, error) {
	switch v := value.(type) {
	case nil:
		return AssignNullProperty{Name: name}, nil
	case string:
		return AssignStringProperty{Name: name, Value: v}, nil
	case bool:
		return AssignBooleanProperty{Name: name, Value: v}, nil
	case float64:
		return AssignNumberProperty{Name: name, Value: v}, nil
	case float32:
		return AssignNumberProperty{Name: name, Value: float64(v)}, nil
	case int:
		return AssignNumberProperty{Name: name, Value: float64(v)}, nil
	case int8:
		return AssignNumberProperty{Name: name, Value: float64(v)}, nil
	case int16:
		return AssignNumberProperty{Name: name, Value: float64(v)}, nil
	case int32:
		return AssignNumberProperty{Name: name, Value: float64(v)}, nil
	case int64:
		return AssignNumberProperty{Name: name, Value: float64(v)}, nil
	case uint:
		return AssignNumberProperty{Name: name, Value: float64(v)}, nil
	case uint8:
		return AssignNumberProperty{Name: name, Value: float64(v)}, nil
	case uint16:
		return AssignNumberProperty{Name: name, Value: float64(v)}, nil
	case uint32:
		return AssignNumberProperty{Name: name, Value: float64(v)}, nil
	case uint64:
		return AssignNumberProperty{Name: name, Value: float64(v)}, nil
	}
	return nil, errors.TypeMismatch(errors.PhaseEncode, []string{name}, "string, boolean, number or null", fmt.Sprintf("%T", value))
}
