package patch

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/treepatch"
	"github.com/wippyai/treepatch/decoder"
)

type listenerKey struct {
	target    treepatch.EventTarget
	eventType string
	capture   bool
}

type binding struct {
	decoder decoder.Decoder
	mailbox Mailbox
}

// registration is the single tree listener installed per target, type and
// phase. It fans events out to every bound mailbox.
type registration struct {
	d        *Dispatcher
	key      listenerKey
	bindings map[uint64]binding
}

func (r *registration) HandleEvent(event any) {
	r.d.dispatch(r, event)
}

// Dispatcher is the side table of event decoders. Trees only ever see one
// listener per target, type and phase; the dispatcher decodes each event
// once per bound mailbox.
type Dispatcher struct {
	mu   sync.Mutex
	regs map[listenerKey]*registration
}

// NewDispatcher returns an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{regs: make(map[listenerKey]*registration)}
}

// Add binds d to target for eventType and phase, delivering to mb.
// Binding again with the same mailbox replaces the decoder.
func (ds *Dispatcher) Add(target treepatch.EventTarget, eventType string, capture bool, d decoder.Decoder, mb Mailbox) {
	key := listenerKey{target, eventType, capture}

	ds.mu.Lock()
	reg, ok := ds.regs[key]
	if !ok {
		reg = &registration{d: ds, key: key, bindings: make(map[uint64]binding)}
		ds.regs[key] = reg
	}
	_, replaced := reg.bindings[mb.Address()]
	reg.bindings[mb.Address()] = binding{decoder: d, mailbox: mb}
	ds.mu.Unlock()

	if !ok {
		target.AddEventListener(eventType, capture, reg)
	}

	Logger().Debug("listener registered",
		zap.String("type", eventType),
		zap.Bool("capture", capture),
		zap.Uint64("mailbox", mb.Address()),
		zap.Bool("replaced", replaced))
}

// Remove unbinds mb from target for eventType and phase. The tree listener
// is removed with the last binding. It reports whether a binding existed.
func (ds *Dispatcher) Remove(target treepatch.EventTarget, eventType string, capture bool, mb Mailbox) bool {
	key := listenerKey{target, eventType, capture}

	ds.mu.Lock()
	reg, ok := ds.regs[key]
	if !ok {
		ds.mu.Unlock()
		return false
	}
	_, existed := reg.bindings[mb.Address()]
	delete(reg.bindings, mb.Address())
	empty := len(reg.bindings) == 0
	if empty {
		delete(ds.regs, key)
	}
	ds.mu.Unlock()

	if empty {
		target.RemoveEventListener(eventType, capture, reg)
	}

	Logger().Debug("listener removed",
		zap.String("type", eventType),
		zap.Bool("capture", capture),
		zap.Uint64("mailbox", mb.Address()),
		zap.Bool("existed", existed))
	return existed
}

// Len returns the number of bindings across all targets.
func (ds *Dispatcher) Len() int {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	n := 0
	for _, reg := range ds.regs {
		n += len(reg.bindings)
	}
	return n
}

func (ds *Dispatcher) dispatch(reg *registration, event any) {
	ds.mu.Lock()
	addrs := make([]uint64, 0, len(reg.bindings))
	for a := range reg.bindings {
		addrs = append(addrs, a)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
	bound := make([]binding, len(addrs))
	for i, a := range addrs {
		bound[i] = reg.bindings[a]
	}
	ds.mu.Unlock()

	for _, b := range bound {
		v, err := decoder.Decode(b.decoder, event)
		if err != nil {
			Logger().Debug("event not decoded",
				zap.String("type", reg.key.eventType),
				zap.Uint64("mailbox", b.mailbox.Address()),
				zap.Error(err))
			continue
		}
		if !b.mailbox.Send(v) {
			Logger().Warn("dropping listener for closed mailbox",
				zap.String("type", reg.key.eventType),
				zap.Uint64("mailbox", b.mailbox.Address()))
			ds.Remove(reg.key.target, reg.key.eventType, reg.key.capture, b.mailbox)
		}
	}
}
