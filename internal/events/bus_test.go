/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package events

import "testing"

func TestBus_PublishSubscribe(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(EventQueueChanged)

	bus.Publish(EventQueueChanged, Payload{"size": 3})
	bus.Publish(EventMixChanged, Payload{"pan": 0.5})

	select {
	case p := <-sub:
		if p["size"] != 3 {
			t.Fatalf("payload = %v", p)
		}
	default:
		t.Fatal("expected a queue event")
	}

	select {
	case p := <-sub:
		t.Fatalf("unexpected event %v", p)
	default:
	}
}

func TestBus_PublishNeverBlocks(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(EventProgress)

	for i := 0; i < 100; i++ {
		bus.Publish(EventProgress, Payload{"i": i})
	}
	if len(sub) != cap(sub) {
		t.Fatalf("len = %d, want full buffer %d", len(sub), cap(sub))
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(EventPlayLogged)
	bus.Unsubscribe(EventPlayLogged, sub)

	if _, ok := <-sub; ok {
		t.Fatal("subscriber channel should be closed")
	}
	bus.Publish(EventPlayLogged, Payload{})
}
