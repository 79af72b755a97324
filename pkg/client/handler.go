package client

import (
	"github.com/nettable-dev/nettable/pkg/protocol"
	"github.com/nettable-dev/nettable/pkg/table"
)

// Handler observes client events. Callbacks run synchronously on the
// goroutine that produced the event: the connection loop for server
// traffic, the calling goroutine for SetPersistent, Delete, DeleteAll
// and Close. Callbacks from different goroutines may overlap. They must
// return promptly and must not call blocking client methods.
type Handler interface {
	// ConnStateChanged fires on every connection state transition.
	ConnStateChanged(state ConnState)

	// EntryAssigned fires when the server introduces or re-introduces
	// an entry. A local proposal's placeholder does not fire it.
	EntryAssigned(e table.Entry)

	// EntryUpdated fires when a server update changes an entry's value.
	// Local writes through Set do not fire it.
	EntryUpdated(e table.Entry, prev protocol.Value)

	// EntryFlagsUpdated fires when an entry's flags change.
	EntryFlagsUpdated(e table.Entry)

	// EntryDeleted fires when an entry is removed.
	EntryDeleted(id uint16, name string)

	// EntriesCleared fires when the whole table is cleared, by the
	// server or by DeleteAll.
	EntriesCleared()

	// RpcResponse fires for every matched RPC response, before the
	// pending call completes.
	RpcResponse(defID, uniqueID uint16, results []protocol.Value)
}

// BaseHandler is a no-op Handler for embedding; override the callbacks
// you need.
type BaseHandler struct{}

func (BaseHandler) ConnStateChanged(ConnState)                   {}
func (BaseHandler) EntryAssigned(table.Entry)                    {}
func (BaseHandler) EntryUpdated(table.Entry, protocol.Value)     {}
func (BaseHandler) EntryFlagsUpdated(table.Entry)                {}
func (BaseHandler) EntryDeleted(uint16, string)                  {}
func (BaseHandler) EntriesCleared()                              {}
func (BaseHandler) RpcResponse(uint16, uint16, []protocol.Value) {}
