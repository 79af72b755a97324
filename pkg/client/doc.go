// Package client implements the nettable client: a persistent
// connection to a nettable server mirroring its entry table and
// invoking its remote procedures.
//
// A Client owns one connection loop goroutine. The loop reads bytes
// from the transport, parses messages incrementally, and applies them
// to the entry table in wire order; a writer goroutine drains a bounded
// outbound queue, and a keep-alive goroutine probes the link when it
// goes idle. On unexpected disconnect the loop reconnects with jittered
// exponential backoff (unless disabled), re-running the handshake; the
// server's initial assignment burst re-synchronizes the mirror.
//
// All exported methods are safe for concurrent use. Table reads return
// copies; writes are queued for the writer in submission order.
package client
