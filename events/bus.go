// Package events implements the engine's produced event stream (spec.md
// §6 "Produced -- Event stream"): a minimal typed pub/sub carrying
// SYNC_EXECUTION_VM_ERROR notifications to observers, grounded on the
// teacher's non-blocking toEngine channel-send idiom
// (examples/timestampchain/vm/mempool.go's Add method).
package events

import (
	"github.com/ava-labs/avalanchego/ids"
)

// Event is the type carried on the bus. Only VMErrorEvent exists today,
// matching spec.md's single produced event; the interface exists so the
// bus need not change shape if a future event type is added.
type Event interface {
	eventType() string
}

// VMErrorEvent is SYNC_EXECUTION_VM_ERROR: a fatal or backstep-triggering
// per-block VM failure, carrying the block that failed and the error the
// VM returned (spec.md §4.4, §7).
type VMErrorEvent struct {
	BlockHash ids.ID
	Err       error
}

func (VMErrorEvent) eventType() string { return "SYNC_EXECUTION_VM_ERROR" }

const subscriberBuffer = 64

// Bus is a fan-out publisher: every subscriber receives every published
// event on its own buffered channel. Publish never blocks on a slow or
// abandoned subscriber -- a full subscriber channel drops the event for
// that subscriber only, mirroring the teacher's toEngine non-blocking
// send (a full notification channel is not allowed to stall the caller).
type Bus struct {
	subscribers []chan Event
}

// NewBus builds an empty Bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a new listener and returns its receive-only
// channel. Subscribe is not safe to call concurrently with Publish, so
// observers must subscribe before the engine starts publishing.
func (b *Bus) Subscribe() <-chan Event {
	ch := make(chan Event, subscriberBuffer)
	b.subscribers = append(b.subscribers, ch)
	return ch
}

// Publish fans event out to every subscriber, dropping it for any
// subscriber whose buffer is full rather than blocking the caller (the
// run loop must never stall waiting on an observer).
func (b *Bus) Publish(event Event) {
	for _, ch := range b.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}
