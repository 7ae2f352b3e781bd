package hintbus

import (
	"testing"

	"github.com/briarlane/duscape/internal/node"
)

func TestPublishDeliversToAllSubscribers(t *testing.T) {
	b := New()
	var gotA, gotB Kind
	b.Subscribe(func(ev Event) { gotA = ev.Kind })
	b.Subscribe(func(ev Event) { gotB = ev.Kind })

	b.Publish(Event{Kind: ZoomChanged})

	if gotA != ZoomChanged || gotB != ZoomChanged {
		t.Fatalf("subscribers did not both receive event: %v %v", gotA, gotB)
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := New()
	count := 0
	sub := b.Subscribe(func(ev Event) { count++ })
	b.Unsubscribe(sub)

	b.Publish(Event{Kind: NewRoot})

	if count != 0 {
		t.Fatalf("expected no delivery after unsubscribe, got %d", count)
	}
}

func TestNodeRemovedCarriesPayload(t *testing.T) {
	b := New()
	n := node.New(node.KindFile, "f")
	var got *node.Node
	b.Subscribe(func(ev Event) {
		if ev.Kind == NodeRemoved {
			got = ev.Node
		}
	})

	b.Publish(Event{Kind: NodeRemoved, Node: n})

	if got != n {
		t.Fatal("expected NodeRemoved event to carry the removed node")
	}
}
