package dom

import (
	"html"
	"strings"

	"github.com/wippyai/treepatch"
)

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true, "hr": true,
	"img": true, "input": true, "link": true, "meta": true, "source": true, "track": true, "wbr": true,
}

// Render returns markup for n and its descendants. A document renders as
// its children. Properties and listeners are not part of the output.
func Render(n treepatch.Node) string {
	var b strings.Builder
	render(&b, n)
	return b.String()
}

func render(b *strings.Builder, n treepatch.Node) {
	switch v := n.(type) {
	case *Text:
		b.WriteString(html.EscapeString(v.data))
	case *Comment:
		b.WriteString("<!--")
		b.WriteString(v.data)
		b.WriteString("-->")
	case *Element:
		b.WriteByte('<')
		b.WriteString(v.localName)
		for _, a := range v.attrs {
			b.WriteByte(' ')
			b.WriteString(a.Name)
			b.WriteString(`="`)
			b.WriteString(html.EscapeString(a.Value))
			b.WriteByte('"')
		}
		if len(v.style) > 0 {
			b.WriteString(` style="`)
			for i, r := range v.style {
				if i > 0 {
					b.WriteByte(' ')
				}
				b.WriteString(html.EscapeString(r.Name + ": " + r.Value + ";"))
			}
			b.WriteByte('"')
		}
		b.WriteByte('>')
		if v.first == nil && voidElements[v.localName] && v.namespaceURI == "" {
			return
		}
		renderChildren(b, &v.node)
		b.WriteString("</")
		b.WriteString(v.localName)
		b.WriteByte('>')
	case *Document:
		renderChildren(b, &v.node)
	}
}

func renderChildren(b *strings.Builder, n *node) {
	for c := n.first; c != nil; c = c.next {
		render(b, c.self)
	}
}

// Outline returns an indented one-node-per-line view of the tree rooted
// at n, marking cursor with "> ".
func Outline(n, cursor treepatch.Node) string {
	var b strings.Builder
	outline(&b, n, cursor, 0)
	return b.String()
}

func outline(b *strings.Builder, n, cursor treepatch.Node, depth int) {
	if n == cursor {
		b.WriteString("> ")
	} else {
		b.WriteString("  ")
	}
	b.WriteString(strings.Repeat("  ", depth))
	switch v := n.(type) {
	case *Text:
		b.WriteString("#text ")
		b.WriteString(quote(v.data))
	case *Comment:
		b.WriteString("#comment ")
		b.WriteString(quote(v.data))
	case *Element:
		var tag strings.Builder
		render(&tag, shallow(v))
		s := tag.String()
		b.WriteString(strings.TrimSuffix(s, "</"+v.localName+">"))
	case *Document:
		b.WriteString("#document")
	}
	b.WriteByte('\n')

	l, ok := n.(linked)
	if !ok {
		return
	}
	for c := l.links().first; c != nil; c = c.next {
		outline(b, c.self, cursor, depth+1)
	}
}

func shallow(e *Element) *Element {
	cp := NewElement(e.namespaceURI, e.localName)
	cp.attrs = e.attrs
	cp.style = e.style
	return cp
}

func quote(s string) string {
	if r := []rune(s); len(r) > 40 {
		s = string(r[:37]) + "..."
	}
	return `"` + strings.ReplaceAll(s, "\n", `\n`) + `"`
}
