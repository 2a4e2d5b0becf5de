package bus

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmit_DeliversToMatchingReceiver(t *testing.T) {
	b := New()
	received := make(chan Event, 1)
	b.RegisterHandler(EventTypeCognitiveStep, "agent-1", func(e Event) {
		received <- e
	})

	b.Emit(Event{
		SenderID:   "agent-0",
		ReceiverID: "agent-1",
		Payload:    CognitiveStep{ChainID: "c1", StepNumber: 1},
	})

	select {
	case e := <-received:
		assert.Equal(t, "agent-0", e.SenderID)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for delivery")
	}
}

func TestEmit_BroadcastReachesEveryAgent(t *testing.T) {
	b := New()
	var count int32
	var mu sync.Mutex
	done := make(chan struct{}, 2)
	handler := func(Event) {
		mu.Lock()
		count++
		mu.Unlock()
		done <- struct{}{}
	}
	b.RegisterHandler(EventTypeAnalysis, "analyst-1", handler)
	b.RegisterHandler(EventTypeAnalysis, "analyst-2", handler)

	b.Emit(Event{ReceiverID: Broadcast, Payload: Analysis{ReasoningID: "r1"}})

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for broadcast delivery")
		}
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, int32(2), count)
}

func TestEmit_NonMatchingReceiverIsNotDelivered(t *testing.T) {
	b := New()
	received := false
	b.RegisterHandler(EventTypeFeedback, "reviewer", func(Event) { received = true })

	b.Emit(Event{ReceiverID: "someone-else", Payload: Feedback{LoopID: "l1"}})

	time.Sleep(20 * time.Millisecond)
	assert.False(t, received)
}

func TestEmit_PerSubscriberFIFO(t *testing.T) {
	b := New()
	var mu sync.Mutex
	var order []int
	done := make(chan struct{})
	count := 0
	b.RegisterHandler(EventTypeCognitiveStep, "agent-1", func(e Event) {
		step := e.Payload.(CognitiveStep)
		mu.Lock()
		order = append(order, step.StepNumber)
		count++
		if count == 5 {
			close(done)
		}
		mu.Unlock()
	})

	for i := 1; i <= 5; i++ {
		b.Emit(Event{ReceiverID: "agent-1", Payload: CognitiveStep{StepNumber: i}})
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for all deliveries")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, order, 5)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, order)
}

func TestDeregisterHandler_StopsFurtherDelivery(t *testing.T) {
	b := New()
	received := 0
	id := b.RegisterHandler(EventTypeRevision, "creator", func(Event) { received++ })
	b.DeregisterHandler(EventTypeRevision, id)

	b.Emit(Event{ReceiverID: "creator", Payload: Revision{LoopID: "l1"}})

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, received)
}

func TestHandlerPanic_IsIsolated(t *testing.T) {
	b := New()
	otherReceived := make(chan struct{}, 1)
	b.RegisterHandler(EventTypeTaskAssignment, "agent-panicky", func(Event) {
		panic("boom")
	})
	b.RegisterHandler(EventTypeTaskAssignment, "agent-fine", func(Event) {
		otherReceived <- struct{}{}
	})

	b.Emit(Event{ReceiverID: Broadcast, Payload: TaskAssignment{TaskID: "t1"}})

	select {
	case <-otherReceived:
	case <-time.After(time.Second):
		t.Fatal("panic in one handler should not prevent delivery to another")
	}
}
