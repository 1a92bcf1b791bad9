// Package events provides the notification side of the task store.
//
// The scheduler emits a TaskEvent after every task mutation (creation, retry,
// completion, failure). Handlers registered on an EventEmitter fan those
// events out: the Broker feeds server-sent event streams in this process, and
// the redis publisher forwards them to other processes. Events are
// notifications only; the task store remains the source of truth.
package events
