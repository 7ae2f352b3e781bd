// Package hintbus implements the invalidation event bus of C9 (§4.9):
// typed events that tell presenters (list, treemap, cushion renderer,
// derived views) to refresh, without ever handing them tree-mutation
// access from inside a handler.
package hintbus

import (
	"sync"

	"github.com/briarlane/duscape/internal/node"
)

// Kind identifies the event variants in §4.9.
type Kind int

const (
	NewRoot Kind = iota
	SelectionChanged
	SelectionStyleChanged
	ExtensionHighlightChanged
	TreemapStyleChanged
	ZoomChanged
	ListStyleChanged
	NodeRemoved
)

func (k Kind) String() string {
	switch k {
	case NewRoot:
		return "NewRoot"
	case SelectionChanged:
		return "SelectionChanged"
	case SelectionStyleChanged:
		return "SelectionStyleChanged"
	case ExtensionHighlightChanged:
		return "ExtensionHighlightChanged"
	case TreemapStyleChanged:
		return "TreemapStyleChanged"
	case ZoomChanged:
		return "ZoomChanged"
	case ListStyleChanged:
		return "ListStyleChanged"
	case NodeRemoved:
		return "NodeRemoved"
	default:
		return "Unknown"
	}
}

// Event is one hint-bus notification. Node is only populated for
// NodeRemoved; every other kind carries no payload (subscribers re-read
// whatever state they need from the tree themselves).
type Event struct {
	Kind Kind
	Node *node.Node
}

// Handler receives hint-bus events. Per §4.9, a Handler must not mutate
// the tree synchronously; it should post work to its own loop instead.
type Handler func(Event)

// Bus is a simple synchronous pub/sub dispatcher. Publish is expected to
// be called by the single writer (scanner/watcher/aggregator) after a
// mutation completes, never while holding the tree's write lock across
// a Handler call that might block.
type Bus struct {
	mu       sync.RWMutex
	handlers map[int]Handler
	nextID   int
}

// New returns an empty bus.
func New() *Bus {
	return &Bus{handlers: make(map[int]Handler)}
}

// Subscription identifies a registered handler for later Unsubscribe.
type Subscription int

// Subscribe registers h and returns a token to later Unsubscribe it.
func (b *Bus) Subscribe(h Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.handlers[id] = h
	return Subscription(id)
}

// Unsubscribe removes a previously registered handler.
func (b *Bus) Unsubscribe(s Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.handlers, int(s))
}

// Publish delivers ev to every current subscriber, in an unspecified
// order. Handlers run synchronously on the calling goroutine (the
// single writer), so a slow or blocking handler delays publication for
// the rest; handlers are expected to post work elsewhere rather than do
// it inline (§4.9).
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	snapshot := make([]Handler, 0, len(b.handlers))
	for _, h := range b.handlers {
		snapshot = append(snapshot, h)
	}
	b.mu.RUnlock()

	for _, h := range snapshot {
		h(ev)
	}
}
