// Package table maintains the client-local mirror of the server's entry
// namespace.
//
// The table indexes entries by id (primary, once the server has
// assigned one) and by name. Server messages are applied through the
// Apply* methods, which enforce id arbitration and 16-bit wrap-around
// sequence ordering, and apply clear-all; the clear-all magic is checked
// by the protocol parser before the message reaches the table. Client-proposed
// entries sit at the unassigned id 0xFFFF until the server echoes an
// authoritative assignment for the same name.
//
// A Table is not safe for concurrent use; the owning connection loop
// serializes access and hands out copies via Snapshot, Get, and GetID.
package table
