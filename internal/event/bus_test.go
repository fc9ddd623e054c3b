package event

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestNewBus(t *testing.T) {
	bus := NewBus()
	if bus == nil {
		t.Fatal("NewBus() returned nil")
	}
}

func TestBus_StartStop(t *testing.T) {
	bus := NewBus()

	if err := bus.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	if !bus.IsRunning() {
		t.Error("expected bus to be running after Start()")
	}

	if err := bus.Start(); err != ErrBusAlreadyRunning {
		t.Errorf("expected ErrBusAlreadyRunning, got %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := bus.Stop(ctx); err != nil {
		t.Fatalf("Stop() failed: %v", err)
	}
	if bus.IsRunning() {
		t.Error("expected bus to not be running after Stop()")
	}

	if err := bus.Stop(ctx); err != ErrBusNotRunning {
		t.Errorf("expected ErrBusNotRunning, got %v", err)
	}
}

func TestBus_PublishNotRunning(t *testing.T) {
	bus := NewBus()
	if err := bus.Publish(context.Background(), TopicOverlayHide, nil); err != ErrBusNotRunning {
		t.Errorf("expected ErrBusNotRunning, got %v", err)
	}
}

func TestBus_SubscribeValidation(t *testing.T) {
	bus := NewBus()

	if _, err := bus.Subscribe(TopicTriggerSelection, nil); err != ErrNilHandler {
		t.Errorf("expected ErrNilHandler, got %v", err)
	}
	if _, err := bus.Subscribe("", func(context.Context, Envelope) {}); err != ErrInvalidTopic {
		t.Errorf("expected ErrInvalidTopic, got %v", err)
	}
}

func TestBus_PublishDelivers(t *testing.T) {
	bus := NewBus()
	bus.Start()
	defer bus.Stop(context.Background())

	done := make(chan Envelope, 1)
	_, err := bus.Subscribe(TopicTriggerSelection, func(_ context.Context, env Envelope) {
		done <- env
	})
	if err != nil {
		t.Fatalf("Subscribe() failed: %v", err)
	}

	payload := SelectionPayload{CapturedText: "hello"}
	if err := bus.Publish(context.Background(), TopicTriggerSelection, payload); err != nil {
		t.Fatalf("Publish() failed: %v", err)
	}

	select {
	case env := <-done:
		got, ok := env.Payload.(SelectionPayload)
		if !ok {
			t.Fatalf("payload type = %T, want SelectionPayload", env.Payload)
		}
		if got.CapturedText != "hello" {
			t.Errorf("CapturedText = %q, want %q", got.CapturedText, "hello")
		}
	case <-time.After(time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestBus_DeliveryOrder(t *testing.T) {
	bus := NewBus()
	bus.Start()
	defer bus.Stop(context.Background())

	var mu sync.Mutex
	var got []int
	done := make(chan struct{})

	bus.Subscribe(TopicTriggerSelection, func(_ context.Context, env Envelope) {
		mu.Lock()
		got = append(got, env.Payload.(int))
		n := len(got)
		mu.Unlock()
		if n == 10 {
			close(done)
		}
	})

	for i := 0; i < 10; i++ {
		if err := bus.Publish(context.Background(), TopicTriggerSelection, i); err != nil {
			t.Fatalf("Publish(%d) failed: %v", i, err)
		}
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for deliveries")
	}

	mu.Lock()
	defer mu.Unlock()
	for i, v := range got {
		if v != i {
			t.Fatalf("delivery order = %v, want ascending", got)
		}
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus()
	bus.Start()
	defer bus.Stop(context.Background())

	fired := make(chan struct{}, 1)
	sub, _ := bus.Subscribe(TopicOverlayHide, func(context.Context, Envelope) {
		fired <- struct{}{}
	})
	bus.Unsubscribe(sub)

	bus.Publish(context.Background(), TopicOverlayHide, nil)
	select {
	case <-fired:
		t.Error("handler fired after Unsubscribe()")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBus_HandlerPanicRecovered(t *testing.T) {
	bus := NewBus()
	bus.Start()
	defer bus.Stop(context.Background())

	done := make(chan struct{}, 1)
	bus.Subscribe(TopicOverlayHide, func(context.Context, Envelope) {
		panic("boom")
	})
	bus.Subscribe(TopicOverlayHide, func(context.Context, Envelope) {
		done <- struct{}{}
	})

	bus.Publish(context.Background(), TopicOverlayHide, nil)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("panic in one handler blocked the next")
	}
	if bus.Stats().Panics != 1 {
		t.Errorf("Panics = %d, want 1", bus.Stats().Panics)
	}
}

func TestBus_QueueFull(t *testing.T) {
	bus := NewBus(WithQueueSize(1))
	// Not started: the queue never drains, so the second publish must drop.
	bus.running.Store(true)

	if err := bus.Publish(context.Background(), TopicOverlayHide, nil); err != nil {
		t.Fatalf("first Publish() failed: %v", err)
	}
	if err := bus.Publish(context.Background(), TopicOverlayHide, nil); err != ErrQueueFull {
		t.Errorf("expected ErrQueueFull, got %v", err)
	}
	if bus.Stats().Dropped != 1 {
		t.Errorf("Dropped = %d, want 1", bus.Stats().Dropped)
	}
}
