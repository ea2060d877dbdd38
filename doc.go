// Package treepatch applies binary change logs to mutable trees.
//
// A change log is a flatbuffers-encoded sequence of cursor operations
// (select, insert, replace, remove, edit text, set attributes, properties
// and style rules, stash and restore subtrees, register event listeners).
// Producers encode logs with the schema package; consumers apply them with
// the patch package against any tree implementing the capability
// interfaces defined here.
//
// # Architecture Overview
//
//	treepatch/           Root package with the tree capability interfaces
//	├── flatbuf/         Backward-writing builder and bounds-checked table reader
//	├── decoder/         Decoder combinators for untrusted input values
//	├── schema/          Change-log operations and their wire encoding
//	├── patch/           Change-log interpreter and event listener dispatch
//	├── stash/           Address-keyed table of detached nodes
//	├── dom/             In-memory reference tree
//	├── result/          Generic Result type with combinators
//	└── errors/          Structured error types for debugging
//
// # Quick Start
//
// Encode a change log:
//
//	buf, err := schema.Encode([]schema.Op{
//	    schema.SelectChildren{},
//	    schema.InsertElement{LocalName: "div"},
//	    schema.SelectSibling{Offset: 0},
//	    schema.SetAttribute{Name: "id", Value: "a"},
//	})
//
// Apply it to a tree:
//
//	doc := dom.NewDocument()
//	state := patch.NewState(doc, nil)
//	if err := patch.New(doc).ApplyBytes(state, buf); err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(dom.Render(doc)) // <div id="a"></div>
//
// # Event Listeners
//
// addEventListener operations carry a decoder. When the tree delivers an
// event, the patch package decodes the live event object with that decoder
// and sends the result to the mailbox of the state that registered it:
//
//	mb := patch.NewMailbox(func(v any) { fmt.Println(v) })
//	state := patch.NewState(doc, mb)
//
// # Error Handling
//
// Wire and interpreter failures are *errors.Error values carrying a phase,
// a kind and a path such as "changes[3].setAttribute". Decoder failures are
// decoder.DecodeError values that render the access path into the input:
//
//	Expecting an integer at input["items"][2] but instead got: "x"
package treepatch
