package stash

import (
	"sort"
	"sync"

	"github.com/wippyai/treepatch/errors"
)

// Table maps stash addresses to detached values. Entries are consumed by
// Take; an entry still present after a change log finishes is a leak the
// caller can report through Len and Each.
//
// A Table is safe for concurrent use. Observers and Drop run after the
// table lock is released.
type Table[T any] struct {
	mu        sync.Mutex
	entries   map[uint32]T
	closed    bool
	observers []Observer[T]
	obsMu     sync.RWMutex
}

// NewTable creates an empty table.
func NewTable[T any]() *Table[T] {
	return &Table[T]{entries: make(map[uint32]T)}
}

// Put stores value at addr. An existing entry at addr is replaced and
// dropped; replaced reports whether that happened.
func (t *Table[T]) Put(addr uint32, value T) (replaced bool, err error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return false, errors.InvalidState("stash", "table is closed")
	}
	old, replaced := t.entries[addr]
	t.entries[addr] = value
	t.mu.Unlock()

	if replaced {
		drop(old)
		t.notify(Event[T]{Type: EventOverwritten, Address: addr, Value: old})
	}
	t.notify(Event[T]{Type: EventStashed, Address: addr, Value: value})
	return replaced, nil
}

// Take removes and returns the entry at addr.
func (t *Table[T]) Take(addr uint32) (T, bool) {
	t.mu.Lock()
	value, ok := t.entries[addr]
	if ok {
		delete(t.entries, addr)
	}
	t.mu.Unlock()
	if !ok {
		return value, false
	}

	t.notify(Event[T]{Type: EventRestored, Address: addr, Value: value})
	return value, true
}

// Peek returns the entry at addr without consuming it.
func (t *Table[T]) Peek(addr uint32) (T, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	value, ok := t.entries[addr]
	return value, ok
}

// Discard drops the entry at addr. It reports whether an entry existed.
func (t *Table[T]) Discard(addr uint32) bool {
	t.mu.Lock()
	value, ok := t.entries[addr]
	if ok {
		delete(t.entries, addr)
	}
	t.mu.Unlock()
	if !ok {
		return false
	}

	drop(value)
	t.notify(Event[T]{Type: EventDiscarded, Address: addr, Value: value})
	return true
}

// Len returns the number of stashed entries.
func (t *Table[T]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Addresses returns the occupied addresses in ascending order.
func (t *Table[T]) Addresses() []uint32 {
	t.mu.Lock()
	addrs := make([]uint32, 0, len(t.entries))
	for a := range t.entries {
		addrs = append(addrs, a)
	}
	t.mu.Unlock()
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
	return addrs
}

// Each calls fn for every entry in ascending address order until fn
// returns false. It iterates over a snapshot, so fn may modify the table.
func (t *Table[T]) Each(fn func(addr uint32, value T) bool) {
	t.mu.Lock()
	addrs := make([]uint32, 0, len(t.entries))
	values := make(map[uint32]T, len(t.entries))
	for a, v := range t.entries {
		addrs = append(addrs, a)
		values[a] = v
	}
	t.mu.Unlock()

	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
	for _, a := range addrs {
		if !fn(a, values[a]) {
			return
		}
	}
}

// Clear discards all entries.
func (t *Table[T]) Clear() {
	for _, a := range t.Addresses() {
		t.Discard(a)
	}
}

// Close discards all entries and rejects further Put calls.
func (t *Table[T]) Close() error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()

	t.Clear()
	return nil
}

// Subscribe adds an observer for lifecycle events.
func (t *Table[T]) Subscribe(o Observer[T]) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.observers = append(t.observers, o)
}

// Unsubscribe removes an observer. The observer must be comparable.
func (t *Table[T]) Unsubscribe(o Observer[T]) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	for i, obs := range t.observers {
		if obs == o {
			t.observers = append(t.observers[:i], t.observers[i+1:]...)
			return
		}
	}
}

func (t *Table[T]) notify(e Event[T]) {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, o := range t.observers {
		o.OnStashEvent(e)
	}
}

func drop(v any) {
	if d, ok := v.(Dropper); ok {
		d.Drop()
	}
}
