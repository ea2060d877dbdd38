package stash

// EventType identifies a stash lifecycle notification.
type EventType uint8

const (
	EventStashed EventType = iota
	EventRestored
	EventDiscarded
	EventOverwritten
)

var eventNames = [...]string{"stashed", "restored", "discarded", "overwritten"}

func (t EventType) String() string {
	if int(t) < len(eventNames) {
		return eventNames[t]
	}
	return "unknown"
}

// Event describes one change to a stash table. For EventOverwritten the
// value is the entry that was replaced.
type Event[T any] struct {
	Value   T
	Address uint32
	Type    EventType
}

// Observer receives notifications about stash lifecycle events.
type Observer[T any] interface {
	OnStashEvent(Event[T])
}

// Dropper is implemented by values that hold something to release when
// they leave the table without being restored.
type Dropper interface {
	Drop()
}
