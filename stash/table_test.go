package stash

import (
	"reflect"
	"sync"
	"testing"
)

type testObserver struct {
	events []Event[string]
}

func (o *testObserver) OnStashEvent(e Event[string]) {
	o.events = append(o.events, e)
}

func (o *testObserver) types() []EventType {
	out := make([]EventType, len(o.events))
	for i, e := range o.events {
		out[i] = e.Type
	}
	return out
}

func TestTable_PutTake(t *testing.T) {
	table := NewTable[string]()

	if _, err := table.Put(5, "node"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if v, ok := table.Peek(5); !ok || v != "node" {
		t.Fatalf("Peek = %q, %v", v, ok)
	}

	v, ok := table.Take(5)
	if !ok || v != "node" {
		t.Fatalf("Take = %q, %v", v, ok)
	}

	// Entries are consumed
	if _, ok := table.Take(5); ok {
		t.Fatal("second Take should fail")
	}
	if table.Len() != 0 {
		t.Fatalf("Expected Len() == 0, got %d", table.Len())
	}
}

func TestTable_Overwrite(t *testing.T) {
	table := NewTable[string]()
	obs := &testObserver{}
	table.Subscribe(obs)

	table.Put(1, "a")
	replaced, err := table.Put(1, "b")
	if err != nil {
		t.Fatal(err)
	}
	if !replaced {
		t.Fatal("Expected replaced == true")
	}
	if v, _ := table.Peek(1); v != "b" {
		t.Fatalf("Expected 'b', got %q", v)
	}

	want := []EventType{EventStashed, EventOverwritten, EventStashed}
	if got := obs.types(); !reflect.DeepEqual(got, want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	if obs.events[1].Value != "a" {
		t.Fatalf("overwritten event carries %q, want 'a'", obs.events[1].Value)
	}
}

func TestTable_Observer(t *testing.T) {
	table := NewTable[string]()
	obs := &testObserver{}
	table.Subscribe(obs)

	table.Put(1, "a")
	table.Put(2, "b")
	table.Take(1)
	table.Discard(2)
	table.Discard(3)

	want := []EventType{EventStashed, EventStashed, EventRestored, EventDiscarded}
	if got := obs.types(); !reflect.DeepEqual(got, want) {
		t.Fatalf("events = %v, want %v", got, want)
	}

	table.Unsubscribe(obs)
	table.Put(4, "c")
	if len(obs.events) != len(want) {
		t.Fatal("Should not receive events after Unsubscribe")
	}
}

func TestTable_EachOrdered(t *testing.T) {
	table := NewTable[string]()
	table.Put(30, "c")
	table.Put(10, "a")
	table.Put(20, "b")

	var seen []string
	table.Each(func(addr uint32, v string) bool {
		seen = append(seen, v)
		return true
	})
	if !reflect.DeepEqual(seen, []string{"a", "b", "c"}) {
		t.Fatalf("Each order = %v", seen)
	}

	seen = nil
	table.Each(func(addr uint32, v string) bool {
		seen = append(seen, v)
		return false
	})
	if len(seen) != 1 {
		t.Fatalf("Each should stop early, saw %v", seen)
	}

	if got := table.Addresses(); !reflect.DeepEqual(got, []uint32{10, 20, 30}) {
		t.Fatalf("Addresses = %v", got)
	}
}

func TestTable_ClearAndClose(t *testing.T) {
	table := NewTable[string]()
	table.Put(1, "a")
	table.Put(2, "b")

	table.Clear()
	if table.Len() != 0 {
		t.Fatal("Expected Len() == 0 after Clear")
	}

	table.Put(3, "c")
	if err := table.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if table.Len() != 0 {
		t.Fatal("Close should discard entries")
	}
	if _, err := table.Put(4, "d"); err == nil {
		t.Fatal("Expected Put to fail after Close")
	}
}

type dropCounter struct {
	count int
}

func (d *dropCounter) Drop() {
	d.count++
}

func TestTable_DropperInterface(t *testing.T) {
	table := NewTable[*dropCounter]()
	discarded := &dropCounter{}
	restored := &dropCounter{}
	overwritten := &dropCounter{}

	table.Put(1, discarded)
	table.Put(2, restored)
	table.Put(3, overwritten)
	table.Put(3, &dropCounter{})

	table.Discard(1)
	table.Take(2)

	if discarded.count != 1 {
		t.Fatalf("Expected Drop() on discard, called %d times", discarded.count)
	}
	if restored.count != 0 {
		t.Fatalf("Restored value must not be dropped, called %d times", restored.count)
	}
	if overwritten.count != 1 {
		t.Fatalf("Expected Drop() on overwrite, called %d times", overwritten.count)
	}
}

type countingObserver struct {
	mu     sync.Mutex
	counts map[EventType]int
}

func (o *countingObserver) OnStashEvent(e Event[int]) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.counts[e.Type]++
}

func TestTable_ConcurrentUse(t *testing.T) {
	const workers, perWorker = 8, 200

	table := NewTable[int]()
	obs := &countingObserver{counts: make(map[EventType]int)}
	table.Subscribe(obs)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				addr := uint32(w*perWorker + i)
				if _, err := table.Put(addr, i); err != nil {
					t.Errorf("Put(%d) failed: %v", addr, err)
					return
				}
				table.Peek(addr)
				table.Len()
				if i%2 == 0 {
					if v, ok := table.Take(addr); !ok || v != i {
						t.Errorf("Take(%d) = %d, %v", addr, v, ok)
						return
					}
				}
			}
		}(w)
	}
	wg.Wait()

	want := workers * perWorker / 2
	if got := table.Len(); got != want {
		t.Fatalf("Len = %d, want %d", got, want)
	}
	obs.mu.Lock()
	if obs.counts[EventStashed] != workers*perWorker || obs.counts[EventRestored] != want {
		t.Errorf("events = %v", obs.counts)
	}
	obs.mu.Unlock()

	wg.Add(2)
	go func() {
		defer wg.Done()
		table.Close()
	}()
	go func() {
		defer wg.Done()
		table.Each(func(uint32, int) bool { return true })
	}()
	wg.Wait()
	if table.Len() != 0 {
		t.Fatal("Close should discard entries")
	}
}
