// Package protocol implements the binary wire protocol spoken between a
// nettable client and server.
//
// The protocol is a stream of self-delimiting messages over a persistent
// byte-oriented transport (TCP by default). Each message starts with a
// single type byte followed by a type-specific body. Multi-byte integers
// are big-endian; variable-length integers use unsigned LEB128; strings
// and raw blobs are LEB128 length-prefixed.
//
// The package provides three layers:
//
//   - Primitive codecs: LEB128 varints plus an append-only Encoder and a
//     positional Decoder for bytes, booleans, big-endian integers,
//     IEEE-754 doubles, and length-prefixed strings.
//
//   - Entry values: the eight typed value variants an entry may carry
//     (boolean, double, string, raw, three array forms, and RPC
//     definition), encoded and decoded by declared EntryType.
//
//   - Messages: the framed message variants, encoded with EncodeMessage
//     and decoded incrementally with ParseMessage. ParseMessage never
//     consumes a partial message: it either returns a complete message
//     with the new offset, ErrTruncated when the buffer ends mid-message
//     (recoverable; wait for more bytes), or a fatal decode error.
//
// Decoding RPC_EXECUTE and RPC_RESPONSE requires the RPC definition the
// message references, since argument values carry no type tags of their
// own. Callers supply an RpcDefs lookup (normally the entry table).
package protocol
