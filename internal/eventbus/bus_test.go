package eventbus

import (
	"testing"
	"time"
)

func TestBus_PublishSubscribe(t *testing.T) {
	b := New()
	ch, cancel := b.Subscribe(TopicStateChanged, 4)
	defer cancel()

	b.Publish(TopicStateChanged, StateChangedPayload{PortID: "p1", EntityID: "e1"})

	select {
	case ev := <-ch:
		p, ok := ev.Payload.(StateChangedPayload)
		if !ok || p.EntityID != "e1" {
			t.Fatalf("got %+v, want StateChangedPayload{EntityID: e1}", ev.Payload)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestBus_MultipleSubscribersBothReceive(t *testing.T) {
	b := New()
	ch1, cancel1 := b.Subscribe(TopicCoreStarted, 1)
	ch2, cancel2 := b.Subscribe(TopicCoreStarted, 1)
	defer cancel1()
	defer cancel2()

	b.Publish(TopicCoreStarted, nil)

	for i, ch := range []<-chan Event{ch1, ch2} {
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d did not receive event", i)
		}
	}
}

func TestBus_DropOldestPolicy_NeverBlocks(t *testing.T) {
	b := New()
	ch, cancel := b.Subscribe(TopicRawData, 1)
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			b.Publish(TopicRawData, RawDataPayload{PortID: "p1"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("drop-oldest publisher blocked")
	}

	select {
	case <-ch:
	default:
		t.Fatal("expected at least one buffered event to remain")
	}
}

func TestBus_BlockPolicy_DeliversAllWhenDrained(t *testing.T) {
	b := New()
	ch, cancel := b.Subscribe(TopicStateChanged, 1)
	defer cancel()

	go func() {
		for i := 0; i < 3; i++ {
			b.Publish(TopicStateChanged, i)
		}
	}()

	seen := 0
	for seen < 3 {
		select {
		case <-ch:
			seen++
		case <-time.After(time.Second):
			t.Fatalf("only received %d/3 events", seen)
		}
	}
}

func TestBus_Unsubscribe_StopsDelivery(t *testing.T) {
	b := New()
	ch, cancel := b.Subscribe(TopicCoreStopped, 1)
	cancel()

	b.Publish(TopicCoreStopped, nil)

	if _, ok := <-ch; ok {
		t.Fatal("expected channel closed after cancel")
	}
}

func TestPolicyFor_UnknownTopicDefaultsToBlock(t *testing.T) {
	if policyFor("some:unlisted-topic") != PolicyBlock {
		t.Fatal("unlisted topics should default to PolicyBlock")
	}
}
