// Package notifier fans graph revisions out to open editor streams.
package notifier

import "sync"

// Notifier broadcasts graph revisions to subscribed listeners. Each
// listener holds at most one pending revision; a newer broadcast replaces
// an unread one, so slow listeners skip straight to the latest graph.
type Notifier struct {
	mu        sync.Mutex
	listeners map[chan uint64]struct{}
	revision  uint64
}

// New creates a new Notifier instance.
func New() *Notifier {
	return &Notifier{
		listeners: make(map[chan uint64]struct{}),
	}
}

// Subscribe returns a channel that receives revisions as the graph changes.
// The caller must call Unsubscribe when done.
func (n *Notifier) Subscribe() chan uint64 {
	ch := make(chan uint64, 1)
	n.mu.Lock()
	n.listeners[ch] = struct{}{}
	n.mu.Unlock()
	return ch
}

// Unsubscribe removes a listener channel and closes it. Unknown channels
// are ignored.
func (n *Notifier) Unsubscribe(ch chan uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.listeners[ch]; !ok {
		return
	}
	delete(n.listeners, ch)
	close(ch)
}

// Broadcast bumps the revision and delivers it to every listener without
// blocking. It returns the new revision.
func (n *Notifier) Broadcast() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.revision++
	for ch := range n.listeners {
		// Only Broadcast sends, under mu, so after the drain there is room.
		select {
		case <-ch:
		default:
		}
		ch <- n.revision
	}
	return n.revision
}

// Revision returns the latest broadcast revision.
func (n *Notifier) Revision() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.revision
}

// Len returns the number of subscribed listeners.
func (n *Notifier) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.listeners)
}
