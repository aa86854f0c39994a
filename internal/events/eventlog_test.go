package events

import (
	"sync"
	"testing"
)

type recordingPersister struct {
	mu     sync.Mutex
	events []SimEvent
}

func (p *recordingPersister) Append(e SimEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func TestAppendFillsIdentity(t *testing.T) {
	el := NewEventLog(10, nil)
	e := el.Append(SimEvent{Type: EventTypeRunStarted, RunID: "r1"})
	if e.ID == "" || e.Timestamp.IsZero() {
		t.Errorf("Expected ID and timestamp to be set, got %+v", e)
	}
	if el.Len() != 1 || len(el.Replay()) != 1 {
		t.Errorf("Expected one event, got %d", el.Len())
	}
}

func TestCapacityEvictsOldest(t *testing.T) {
	el := NewEventLog(3, nil)
	for i := int64(1); i <= 5; i++ {
		el.Append(SimEvent{Type: EventTypeGenerationAdvanced, Generation: i})
	}
	got := el.Replay()
	if len(got) != 3 || got[0].Generation != 3 || got[2].Generation != 5 {
		t.Fatalf("Expected generations 3..5, got %+v", got)
	}
	if el.Len() != 5 {
		t.Errorf("Expected Len to count evicted events, got %d", el.Len())
	}
}

func TestSinceCursor(t *testing.T) {
	el := NewEventLog(4, nil)
	el.Append(SimEvent{Generation: 1})
	el.Append(SimEvent{Generation: 2})

	batch, next := el.Since(0)
	if len(batch) != 2 || next != 2 {
		t.Fatalf("Expected 2 events and cursor 2, got %d/%d", len(batch), next)
	}

	batch, next = el.Since(next)
	if len(batch) != 0 || next != 2 {
		t.Fatalf("Expected no new events, got %d/%d", len(batch), next)
	}

	for g := int64(3); g <= 8; g++ {
		el.Append(SimEvent{Generation: g})
	}
	batch, next = el.Since(2)
	if next != 8 || len(batch) != 4 {
		t.Fatalf("Expected 4 events and cursor 8, got %d/%d", len(batch), next)
	}
	if batch[0].Generation != 5 {
		t.Errorf("Expected evicted cursor to resume at oldest retained (5), got %d", batch[0].Generation)
	}
}

func TestOnlyLifecycleEventsArePersisted(t *testing.T) {
	p := &recordingPersister{}
	el := NewEventLog(0, p)
	el.Append(SimEvent{Type: EventTypeRunStarted, RunID: "r"})
	el.Append(SimEvent{Type: EventTypeGenerationAdvanced, RunID: "r"})
	el.Append(SimEvent{Type: EventTypeRunStopped, RunID: "r"})

	if len(p.events) != 2 {
		t.Fatalf("Expected 2 persisted events, got %d", len(p.events))
	}
	if len(el.GetByType(EventTypeGenerationAdvanced)) != 1 || len(el.GetByRun("r")) != 3 {
		t.Error("Unexpected filtered results")
	}
}
