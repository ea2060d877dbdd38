package patch

import (
	"sync"
	"sync/atomic"
)

// Mailbox receives decoded event values. Addresses are unique per process
// and key listener registrations, so registering again through the same
// mailbox replaces the earlier decoder.
type Mailbox interface {
	Address() uint64

	// Send delivers v. It returns false once the mailbox is closed; the
	// dispatcher then drops every registration that targets it.
	Send(v any) bool
}

var nextAddress atomic.Uint64

func newAddress() uint64 {
	return nextAddress.Add(1)
}

// FuncMailbox delivers values by calling a function.
type FuncMailbox struct {
	fn     func(any)
	addr   uint64
	closed atomic.Bool
}

// NewMailbox returns a mailbox that calls fn for every delivered value.
func NewMailbox(fn func(any)) *FuncMailbox {
	return &FuncMailbox{fn: fn, addr: newAddress()}
}

func (m *FuncMailbox) Address() uint64 { return m.addr }

func (m *FuncMailbox) Send(v any) bool {
	if m.closed.Load() {
		return false
	}
	m.fn(v)
	return true
}

// Close makes every later Send fail.
func (m *FuncMailbox) Close() {
	m.closed.Store(true)
}

// ChanMailbox delivers values to a channel without blocking. A value that
// does not fit in the channel's buffer is dropped.
type ChanMailbox struct {
	ch      chan<- any
	addr    uint64
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Uint64
}

// NewChanMailbox returns a mailbox writing to ch.
func NewChanMailbox(ch chan<- any) *ChanMailbox {
	return &ChanMailbox{ch: ch, addr: newAddress()}
}

func (m *ChanMailbox) Address() uint64 { return m.addr }

func (m *ChanMailbox) Send(v any) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return false
	}
	select {
	case m.ch <- v:
	default:
		m.dropped.Add(1)
	}
	return true
}

// Dropped returns how many values were dropped because the channel was
// full.
func (m *ChanMailbox) Dropped() uint64 {
	return m.dropped.Load()
}

// Close closes the channel. Later Send calls fail.
func (m *ChanMailbox) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.ch)
	}
}
