package client

import "errors"

var (
	// ErrClosed is returned after Close has been called.
	ErrClosed = errors.New("nettable: client closed")

	// ErrTransportClosed is returned when an operation needs a live
	// connection and there is none.
	ErrTransportClosed = errors.New("nettable: transport closed")

	// ErrCancelled completes pending RPC calls when the session drops.
	ErrCancelled = errors.New("nettable: call cancelled")

	// ErrTimedOut completes an RPC call whose deadline expired. A late
	// response is silently discarded.
	ErrTimedOut = errors.New("nettable: call timed out")

	// ErrBackpressure is returned by non-blocking submissions when the
	// outbound queue is full.
	ErrBackpressure = errors.New("nettable: outbound queue full")

	// ErrUnsupportedProtocolVersion is surfaced when the server rejects
	// the client's protocol version. The client does not reconnect.
	ErrUnsupportedProtocolVersion = errors.New("nettable: server rejected protocol version")

	// ErrUnknownEntry is returned for operations on a name the table
	// does not hold.
	ErrUnknownEntry = errors.New("nettable: unknown entry")

	// ErrNotRpc is returned when an RPC call targets an entry that is
	// not an RPC definition or has no server-assigned id yet.
	ErrNotRpc = errors.New("nettable: entry is not a callable rpc definition")
)
