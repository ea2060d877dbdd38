// Package dom is an in-memory tree implementing the treepatch capability
// interfaces.
//
// It models the parts of a browser DOM that change logs touch: elements
// with attributes, properties and inline style rules, text and comment
// nodes, and event listeners with capture and bubble phases. Elements and
// events implement decoder.Object, so listener decoders can read them the
// way they would read live browser objects.
//
//	doc := dom.NewDocument()
//	div := dom.NewElement("", "div")
//	doc.AppendChild(div)
//	div.SetAttribute("id", "a")
//	fmt.Println(dom.Render(doc)) // <div id="a"></div>
package dom
