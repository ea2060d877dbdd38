package patch_test

import (
	"reflect"
	"testing"

	"github.com/wippyai/treepatch/decoder"
	"github.com/wippyai/treepatch/dom"
	"github.com/wippyai/treepatch/patch"
	"github.com/wippyai/treepatch/schema"
)

func clickDecoder() decoder.Decoder {
	return decoder.Record(decoder.Fields{
		"type": decoder.String(),
		"x":    decoder.Float(),
	})
}

// listenerFixture selects the span of the standard fixture.
func listenerFixture(t *testing.T, mb patch.Mailbox) (*dom.Document, *dom.Element, *patch.State) {
	t.Helper()
	doc, body, state := fixture(t)
	state.Mailbox = mb
	span := body.LastChild().(*dom.Element)
	state.Target = span
	return doc, span, state
}

func TestListener_DecodeAndForward(t *testing.T) {
	var got []any
	mb := patch.NewMailbox(func(v any) { got = append(got, v) })
	doc, span, state := listenerFixture(t, mb)
	p := patch.New(doc)

	mustOK(t, p.Apply(state, []schema.Op{
		schema.AddEventListener{Type: "click", Decoder: clickDecoder()},
	}))

	dom.Dispatch(span, dom.NewEvent("click", map[string]any{"x": 3}))
	dom.Dispatch(span, dom.NewEvent("click", map[string]any{"x": "bad"}))
	dom.Dispatch(span, dom.NewEvent("keydown", map[string]any{"x": 1}))

	want := []any{map[string]any{"type": "click", "x": 3.0}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestListener_ReplaceAndRemove(t *testing.T) {
	var got []any
	mb := patch.NewMailbox(func(v any) { got = append(got, v) })
	doc, span, state := listenerFixture(t, mb)
	p := patch.New(doc)

	mustOK(t, p.Apply(state, []schema.Op{
		schema.AddEventListener{Type: "click", Decoder: decoder.Ok("first")},
		schema.AddEventListener{Type: "click", Decoder: decoder.Ok("second")},
		schema.AddEventListener{Type: "click", Decoder: decoder.Ok("capture"), Capture: true},
	}))
	if n := span.ListenerCount("click", false); n != 1 {
		t.Fatalf("bubble listeners = %d, want 1", n)
	}
	if n := p.Dispatcher().Len(); n != 2 {
		t.Fatalf("bindings = %d, want 2", n)
	}

	dom.Dispatch(span, dom.NewEvent("click", nil))
	if !reflect.DeepEqual(got, []any{"capture", "second"}) {
		t.Fatalf("got %v", got)
	}

	mustOK(t, p.Apply(state, []schema.Op{
		schema.RemoveEventListener{Type: "click", Decoder: decoder.Ok("second")},
		schema.RemoveEventListener{Type: "click", Decoder: decoder.Ok("capture"), Capture: true},
	}))
	if span.ListenerCount("click", false) != 0 || span.ListenerCount("click", true) != 0 {
		t.Fatal("tree listeners not removed")
	}
	if p.Dispatcher().Len() != 0 {
		t.Fatalf("bindings = %d, want 0", p.Dispatcher().Len())
	}
}

func TestListener_MultipleMailboxes(t *testing.T) {
	var got []string
	first := patch.NewMailbox(func(v any) { got = append(got, "first:"+v.(string)) })
	second := patch.NewMailbox(func(v any) { got = append(got, "second:"+v.(string)) })

	doc, span, state := listenerFixture(t, first)
	shared := patch.NewDispatcher()
	mustOK(t, patch.New(doc).WithDispatcher(shared).Apply(state, []schema.Op{
		schema.AddEventListener{Type: "input", Decoder: decoder.Field("type", decoder.String())},
	}))

	other := patch.NewState(span, second)
	mustOK(t, patch.New(doc).WithDispatcher(shared).Apply(other, []schema.Op{
		schema.AddEventListener{Type: "input", Decoder: decoder.Field("type", decoder.String())},
	}))

	if n := span.ListenerCount("input", false); n != 1 {
		t.Fatalf("tree listeners = %d, want 1", n)
	}
	dom.Dispatch(span, dom.NewEvent("input", nil))
	if !reflect.DeepEqual(got, []string{"first:input", "second:input"}) {
		t.Fatalf("got %v", got)
	}
}

func TestListener_ClosedMailboxDropped(t *testing.T) {
	calls := 0
	mb := patch.NewMailbox(func(any) { calls++ })
	doc, span, state := listenerFixture(t, mb)
	p := patch.New(doc)

	mustOK(t, p.Apply(state, []schema.Op{
		schema.AddEventListener{Type: "click", Decoder: decoder.Ok(nil)},
	}))
	mb.Close()
	dom.Dispatch(span, dom.NewEvent("click", nil))

	if calls != 0 {
		t.Fatalf("closed mailbox received %d values", calls)
	}
	if p.Dispatcher().Len() != 0 || span.ListenerCount("click", false) != 0 {
		t.Fatal("stale registration not dropped")
	}
}

func TestChanMailbox(t *testing.T) {
	ch := make(chan any, 1)
	mb := patch.NewChanMailbox(ch)

	if !mb.Send(1) || !mb.Send(2) {
		t.Fatal("open mailbox rejected a value")
	}
	if mb.Dropped() != 1 {
		t.Fatalf("Dropped = %d, want 1", mb.Dropped())
	}
	if v := <-ch; v != 1 {
		t.Fatalf("received %v", v)
	}

	mb.Close()
	mb.Close()
	if mb.Send(3) {
		t.Fatal("closed mailbox accepted a value")
	}
	if _, ok := <-ch; ok {
		t.Fatal("channel not closed")
	}
}

func TestMailbox_UniqueAddresses(t *testing.T) {
	a := patch.NewMailbox(func(any) {})
	b := patch.NewChanMailbox(make(chan any))
	if a.Address() == 0 || a.Address() == b.Address() {
		t.Fatalf("addresses %d and %d", a.Address(), b.Address())
	}
}
