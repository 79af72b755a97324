package client

import (
	"github.com/nettable-dev/nettable/pkg/protocol"
	"github.com/nettable-dev/nettable/pkg/table"
)

// eventSink implements table.Listener by buffering callbacks. Table
// mutations happen under the client mutex; buffered events are fired
// against the user handler after the mutex is released, so handlers may
// freely read the table.
type eventSink struct {
	fns []func(Handler)
}

func (s *eventSink) EntryAssigned(e table.Entry) {
	s.fns = append(s.fns, func(h Handler) { h.EntryAssigned(e) })
}

func (s *eventSink) EntryUpdated(e table.Entry, prev protocol.Value) {
	s.fns = append(s.fns, func(h Handler) { h.EntryUpdated(e, prev) })
}

func (s *eventSink) EntryFlagsUpdated(e table.Entry) {
	s.fns = append(s.fns, func(h Handler) { h.EntryFlagsUpdated(e) })
}

func (s *eventSink) EntryDeleted(id uint16, name string) {
	s.fns = append(s.fns, func(h Handler) { h.EntryDeleted(id, name) })
}

func (s *eventSink) EntriesCleared() {
	s.fns = append(s.fns, func(h Handler) { h.EntriesCleared() })
}

// drain returns the buffered events and resets the sink.
func (s *eventSink) drain() []func(Handler) {
	fns := s.fns
	s.fns = nil
	return fns
}
