// Package events carries the notifications emitted by attest components once
// an operation has been committed: a HashStored event for every adapter
// submission and a RootFinalized event whenever the snapshotter completes a
// pass. Listeners never acknowledge events; emission cannot fail the operation
// that produced them.
package events

import (
	"github.com/mosaicnetworks/attest/src/crypto"
	"github.com/sirupsen/logrus"
)

// Topics under which events are published.
const (
	TopicHashStored    = "io.attest.hash_stored"
	TopicRootFinalized = "io.attest.root_finalized"
)

// Event is a notification produced by a committed operation.
type Event interface {
	Topic() string
	Fields() map[string]interface{}
}

// HashStored is emitted every time an adapter writes a hash record.
type HashStored struct {
	AdapterID crypto.Hash
	Domain    crypto.Hash
	ID        crypto.Hash
	Hash      crypto.Hash
}

// Topic implements the Event interface.
func (e HashStored) Topic() string { return TopicHashStored }

// Fields implements the Event interface.
func (e HashStored) Fields() map[string]interface{} {
	return map[string]interface{}{
		"adapter_id": e.AdapterID.Hex(),
		"domain":     e.Domain.Hex(),
		"id":         e.ID.Hex(),
		"hash":       e.Hash.Hex(),
	}
}

// RootFinalized is emitted when the last batch of a pass is accepted.
type RootFinalized struct {
	Domain crypto.Hash
	Nonce  uint64
	Root   crypto.Hash
}

// Topic implements the Event interface.
func (e RootFinalized) Topic() string { return TopicRootFinalized }

// Fields implements the Event interface.
func (e RootFinalized) Fields() map[string]interface{} {
	return map[string]interface{}{
		"domain": e.Domain.Hex(),
		"nonce":  e.Nonce,
		"root":   e.Root.Hex(),
	}
}

// Sink receives events.
type Sink interface {
	Emit(ev Event)
}

// NopSink drops every event.
type NopSink struct{}

// Emit implements the Sink interface.
func (NopSink) Emit(Event) {}

// LogSink writes events to a logger at debug level.
type LogSink struct {
	logger *logrus.Entry
}

// NewLogSink ...
func NewLogSink(logger *logrus.Entry) *LogSink {
	return &LogSink{logger: logger}
}

// Emit implements the Sink interface.
func (s *LogSink) Emit(ev Event) {
	s.logger.WithFields(ev.Fields()).Debug(ev.Topic())
}

// MultiSink fans events out to several sinks, in order.
type MultiSink []Sink

// Emit implements the Sink interface.
func (m MultiSink) Emit(ev Event) {
	for _, s := range m {
		s.Emit(ev)
	}
}
