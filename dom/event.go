package dom

import (
	"sort"

	"go.uber.org/zap"
)

// Phase is the dispatch phase an event is in.
type Phase uint8

const (
	PhaseNone Phase = iota
	PhaseCapturing
	PhaseAtTarget
	PhaseBubbling
)

// Event is a dispatched event. Detail entries are readable by decoders
// next to the built-in fields.
type Event struct {
	Type    string
	Bubbles bool
	Detail  map[string]any

	target           *Element
	currentTarget    *Element
	phase            Phase
	stopped          bool
	defaultPrevented bool
}

// NewEvent returns an event that bubbles.
func NewEvent(eventType string, detail map[string]any) *Event {
	return &Event{Type: eventType, Bubbles: true, Detail: detail}
}

// Target returns the element the event was dispatched to.
func (ev *Event) Target() *Element { return ev.target }

// CurrentTarget returns the element whose listeners are running.
func (ev *Event) CurrentTarget() *Element { return ev.currentTarget }

// EventPhase returns the current dispatch phase.
func (ev *Event) EventPhase() Phase { return ev.phase }

// StopPropagation prevents delivery to further elements.
func (ev *Event) StopPropagation() { ev.stopped = true }

// PreventDefault marks the event as handled.
func (ev *Event) PreventDefault() { ev.defaultPrevented = true }

// DefaultPrevented reports whether PreventDefault was called.
func (ev *Event) DefaultPrevented() bool { return ev.defaultPrevented }

var eventFields = map[string]bool{
	"bubbles": true, "currentTarget": true, "defaultPrevented": true, "eventPhase": true,
	"preventDefault": true, "stopPropagation": true, "target": true, "type": true,
}

// Get implements decoder.Object. The built-in fields shadow Detail.
func (ev *Event) Get(name string) (any, bool, error) {
	switch name {
	case "type":
		return ev.Type, true, nil
	case "bubbles":
		return ev.Bubbles, true, nil
	case "eventPhase":
		return int(ev.phase), true, nil
	case "defaultPrevented":
		return ev.defaultPrevented, true, nil
	case "target":
		if ev.target == nil {
			return nil, true, nil
		}
		return ev.target, true, nil
	case "currentTarget":
		if ev.currentTarget == nil {
			return nil, true, nil
		}
		return ev.currentTarget, true, nil
	case "stopPropagation":
		return func() any { ev.StopPropagation(); return nil }, true, nil
	case "preventDefault":
		return func() any { ev.PreventDefault(); return nil }, true, nil
	}
	v, ok := ev.Detail[name]
	return v, ok, nil
}

// Keys implements decoder.Object.
func (ev *Event) Keys() []string {
	keys := make([]string, 0, len(eventFields)+len(ev.Detail))
	for k := range eventFields {
		keys = append(keys, k)
	}
	for k := range ev.Detail {
		if !eventFields[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Dispatch delivers ev to target: capture listeners from the root down,
// then the target's own listeners, then bubble listeners back up when
// ev.Bubbles is set. It returns false if a listener prevented the default.
func Dispatch(target *Element, ev *Event) bool {
	ev.target = target
	ev.stopped = false

	var path []*Element
	for p := target.parent; p != nil; p = p.parent {
		if e, ok := p.self.(*Element); ok {
			path = append(path, e)
		}
	}

	Logger().Debug("dispatching event",
		zap.String("type", ev.Type),
		zap.String("target", target.localName),
		zap.Int("depth", len(path)))

	ev.phase = PhaseCapturing
	for i := len(path) - 1; i >= 0 && !ev.stopped; i-- {
		invoke(path[i], ev, true)
	}

	if !ev.stopped {
		ev.phase = PhaseAtTarget
		invoke(target, ev, true)
		invoke(target, ev, false)
	}

	if ev.Bubbles {
		ev.phase = PhaseBubbling
		for i := 0; i < len(path) && !ev.stopped; i++ {
			invoke(path[i], ev, false)
		}
	}

	ev.phase = PhaseNone
	ev.currentTarget = nil
	return !ev.defaultPrevented
}

func invoke(e *Element, ev *Event, capture bool) {
	ev.currentTarget = e
	for _, l := range e.listenersFor(ev.Type, capture) {
		l.HandleEvent(ev)
	}
}
