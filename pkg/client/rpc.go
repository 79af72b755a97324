package client

import (
	"github.com/nettable-dev/nettable/pkg/protocol"
)

// rpcOutcome completes one pending RPC call.
type rpcOutcome struct {
	results []protocol.Value
	err     error
}

// rpcCall is one in-flight RPC execution.
type rpcCall struct {
	defID    uint16
	uniqueID uint16
	done     chan rpcOutcome // buffered, capacity 1
}

// rpcRegistry correlates outgoing RPC executions with server responses.
// Keys are (definition id, unique id). Guarded by the client mutex.
type rpcRegistry struct {
	calls map[uint32]*rpcCall
	next  map[uint16]uint16 // next unique id per definition
}

func newRpcRegistry() *rpcRegistry {
	return &rpcRegistry{
		calls: make(map[uint32]*rpcCall),
		next:  make(map[uint16]uint16),
	}
}

func rpcKey(defID, uniqueID uint16) uint32 {
	return uint32(defID)<<16 | uint32(uniqueID)
}

// register allocates a fresh unique id for defID and records the call.
// Unique ids advance monotonically modulo 2^16 per definition, skipping
// ids still pending.
func (r *rpcRegistry) register(defID uint16) *rpcCall {
	uid := r.next[defID]
	for {
		if _, inFlight := r.calls[rpcKey(defID, uid)]; !inFlight {
			break
		}
		uid++
	}
	r.next[defID] = uid + 1

	call := &rpcCall{
		defID:    defID,
		uniqueID: uid,
		done:     make(chan rpcOutcome, 1),
	}
	r.calls[rpcKey(defID, uid)] = call
	return call
}

// complete resolves a pending call with the server's results. Reports
// false if no call matches; a late or unsolicited response is the
// caller's to log and discard.
func (r *rpcRegistry) complete(defID, uniqueID uint16, results []protocol.Value) bool {
	key := rpcKey(defID, uniqueID)
	call, ok := r.calls[key]
	if !ok {
		return false
	}
	delete(r.calls, key)
	call.done <- rpcOutcome{results: results}
	return true
}

// remove drops a call without completing it (timeout or caller
// cancellation). Reports whether the call was still pending.
func (r *rpcRegistry) remove(call *rpcCall) bool {
	key := rpcKey(call.defID, call.uniqueID)
	if _, ok := r.calls[key]; !ok {
		return false
	}
	delete(r.calls, key)
	return true
}

// cancelAll completes every pending call with err. Used on session
// drop.
func (r *rpcRegistry) cancelAll(err error) {
	for key, call := range r.calls {
		delete(r.calls, key)
		call.done <- rpcOutcome{err: err}
	}
}
