package table

import (
	"errors"
	"sort"

	"github.com/nettable-dev/nettable/pkg/protocol"
)

// ErrServerUnassignedID is returned when the server sends an
// ENTRY_ASSIGNMENT carrying the unassigned sentinel id 0xFFFF. Only
// clients propose with 0xFFFF; receiving it is a protocol error.
var ErrServerUnassignedID = errors.New("table: server assignment with unassigned id")

// Entry is one named, typed, versioned value in the shared namespace.
type Entry struct {
	Name  string
	Type  protocol.EntryType
	ID    uint16
	Seq   uint16
	Flags uint8
	Value protocol.Value
}

// Persistent reports whether the entry's persist flag is set.
func (e *Entry) Persistent() bool {
	return e.Flags&protocol.FlagPersistent != 0
}

// Listener observes table mutations. Callbacks run synchronously on the
// goroutine applying the mutation and must not call back into the table.
type Listener interface {
	EntryAssigned(e Entry)
	EntryUpdated(e Entry, prev protocol.Value)
	EntryFlagsUpdated(e Entry)
	EntryDeleted(id uint16, name string)
	EntriesCleared()
}

// Table is the client-local mirror of the server's entry table.
type Table struct {
	byID   map[uint16]*Entry
	byName map[string]*Entry
	// pending holds client-proposed entries awaiting a server id,
	// keyed by name. They also appear in byName with ID 0xFFFF.
	pending  map[string]*Entry
	listener Listener
}

// New creates an empty table. listener may be nil.
func New(listener Listener) *Table {
	return &Table{
		byID:     make(map[uint16]*Entry),
		byName:   make(map[string]*Entry),
		pending:  make(map[string]*Entry),
		listener: listener,
	}
}

// Len returns the number of entries, pending proposals included.
func (t *Table) Len() int {
	return len(t.byName)
}

// Get returns a copy of the entry with the given name.
func (t *Table) Get(name string) (Entry, bool) {
	e, ok := t.byName[name]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// GetID returns a copy of the entry with the given server-assigned id.
func (t *Table) GetID(id uint16) (Entry, bool) {
	e, ok := t.byID[id]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Snapshot returns copies of all entries, sorted by name.
func (t *Table) Snapshot() []Entry {
	out := make([]Entry, 0, len(t.byName))
	for _, e := range t.byName {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// LookupRpc implements protocol.RpcDefs: it resolves the RPC definition
// stored under a server-assigned entry id.
func (t *Table) LookupRpc(id uint16) (*protocol.RpcDefinition, bool) {
	e, ok := t.byID[id]
	if !ok || e.Type != protocol.TypeRpc || e.Value.Rpc == nil {
		return nil, false
	}
	return e.Value.Rpc, true
}

// ApplyAssignment applies a server ENTRY_ASSIGNMENT.
//
// An assignment for a known id replaces the entry in place. An
// assignment whose name is already bound to a different id (a pending
// proposal included) wins: the stale binding is dropped and the name
// re-bound to the server's id.
func (t *Table) ApplyAssignment(m *protocol.EntryAssignment) error {
	if m.ID == protocol.UnassignedID {
		return ErrServerUnassignedID
	}

	e, ok := t.byID[m.ID]
	if !ok {
		if prev, collide := t.byName[m.Name]; collide {
			// Server re-assigned the name to a new id.
			delete(t.byID, prev.ID)
			delete(t.pending, m.Name)
		}
		e = &Entry{}
		t.byID[m.ID] = e
	} else if e.Name != m.Name {
		delete(t.byName, e.Name)
		if prev, collide := t.byName[m.Name]; collide && prev != e {
			delete(t.byID, prev.ID)
			delete(t.pending, m.Name)
		}
	}

	*e = Entry{
		Name:  m.Name,
		Type:  m.EntryType,
		ID:    m.ID,
		Seq:   m.Seq,
		Flags: m.Flags,
		Value: m.Value,
	}
	t.byName[m.Name] = e

	if t.listener != nil {
		t.listener.EntryAssigned(*e)
	}
	return nil
}

// ApplyUpdate applies a server ENTRY_UPDATE. Updates for unknown ids
// are ignored: the protocol allows a stale update to race a delete.
// Returns true if the update was accepted.
func (t *Table) ApplyUpdate(m *protocol.EntryUpdate) bool {
	e, ok := t.byID[m.ID]
	if !ok {
		return false
	}
	if !SeqNewer(m.Seq, e.Seq) {
		return false
	}

	prev := e.Value
	e.Type = m.EntryType
	e.Value = m.Value
	e.Seq = m.Seq

	if t.listener != nil {
		t.listener.EntryUpdated(*e, prev)
	}
	return true
}

// ApplyFlagsUpdate applies a server ENTRY_FLAGS_UPDATE. Seq is
// unchanged. Unknown ids are ignored.
func (t *Table) ApplyFlagsUpdate(m *protocol.EntryFlagsUpdate) bool {
	e, ok := t.byID[m.ID]
	if !ok {
		return false
	}
	e.Flags = m.Flags

	if t.listener != nil {
		t.listener.EntryFlagsUpdated(*e)
	}
	return true
}

// ApplyDelete applies a server ENTRY_DELETE. Unknown ids are ignored.
func (t *Table) ApplyDelete(m *protocol.EntryDelete) bool {
	e, ok := t.byID[m.ID]
	if !ok {
		return false
	}
	delete(t.byID, m.ID)
	delete(t.byName, e.Name)

	if t.listener != nil {
		t.listener.EntryDeleted(m.ID, e.Name)
	}
	return true
}

// ApplyClearAll removes every entry, pending proposals included.
// The caller has already validated the message's magic.
func (t *Table) ApplyClearAll() {
	t.byID = make(map[uint16]*Entry)
	t.byName = make(map[string]*Entry)
	t.pending = make(map[string]*Entry)

	if t.listener != nil {
		t.listener.EntriesCleared()
	}
}

// Propose inserts a placeholder for a client-proposed entry at the
// unassigned id. The placeholder is replaced when the server echoes an
// authoritative assignment for the name. Reports false if the name is
// already present.
func (t *Table) Propose(name string, typ protocol.EntryType, value protocol.Value, flags uint8) (Entry, bool) {
	if _, exists := t.byName[name]; exists {
		return Entry{}, false
	}
	e := &Entry{
		Name:  name,
		Type:  typ,
		ID:    protocol.UnassignedID,
		Seq:   1,
		Flags: flags,
		Value: value,
	}
	t.byName[name] = e
	t.pending[name] = e
	return *e, true
}

// LocalUpdate optimistically bumps a known entry's value and sequence
// number ahead of the server echo; the echo is reconciled through
// ApplyUpdate's sequence rule. Reports false if the name is unknown.
func (t *Table) LocalUpdate(name string, value protocol.Value) (Entry, bool) {
	e, ok := t.byName[name]
	if !ok {
		return Entry{}, false
	}
	e.Seq++
	e.Type = value.Type
	e.Value = value
	return *e, true
}

// SeqNewer reports whether incoming sequence number in supersedes
// stored cur under 16-bit wrap-around comparison: accepted iff
// (in - cur) mod 2^16 lies in [1, 2^15]. The half-range rule tolerates
// up to 2^15 lost or reordered steps without accepting stale data.
func SeqNewer(in, cur uint16) bool {
	diff := in - cur
	return diff != 0 && diff <= 0x8000
}
