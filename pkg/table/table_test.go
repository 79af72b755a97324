package table

import (
	"errors"
	"reflect"
	"testing"

	"github.com/nettable-dev/nettable/pkg/protocol"
)

func assign(name string, id, seq uint16, v protocol.Value) *protocol.EntryAssignment {
	return &protocol.EntryAssignment{
		Name:      name,
		EntryType: v.Type,
		ID:        id,
		Seq:       seq,
		Value:     v,
	}
}

func TestSeqNewer(t *testing.T) {
	tests := []struct {
		name   string
		stored uint16
		in     uint16
		accept bool
	}{
		{"wrap_forward", 65535, 0, true},
		{"wrap_backward", 0, 65535, false},
		{"equal", 100, 100, false},
		{"boundary_accept", 100, 32868, true}, // diff exactly 2^15
		{"boundary_reject", 100, 32869, false},
		{"plain_newer", 100, 101, true},
		{"plain_stale", 1000, 500, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := SeqNewer(tc.in, tc.stored); got != tc.accept {
				t.Errorf("SeqNewer(%d, %d) = %v, want %v", tc.in, tc.stored, got, tc.accept)
			}
		})
	}
}

func TestApplyAssignmentInsertAndReplace(t *testing.T) {
	tbl := New(nil)

	if err := tbl.ApplyAssignment(assign("a", 1, 1, protocol.DoubleValue(1))); err != nil {
		t.Fatalf("ApplyAssignment: %v", err)
	}
	e, ok := tbl.GetID(1)
	if !ok || e.Name != "a" || e.Value.Double != 1 {
		t.Fatalf("entry = %+v, %v", e, ok)
	}

	// Re-assignment of the same id replaces in place, name change included.
	if err := tbl.ApplyAssignment(assign("b", 1, 5, protocol.StringValue("x"))); err != nil {
		t.Fatalf("ApplyAssignment: %v", err)
	}
	if _, ok := tbl.Get("a"); ok {
		t.Error("old name still bound after re-assignment")
	}
	e, _ = tbl.GetID(1)
	if e.Name != "b" || e.Seq != 5 || e.Type != protocol.TypeString {
		t.Errorf("replaced entry = %+v", e)
	}
	if tbl.Len() != 1 {
		t.Errorf("Len() = %d, want 1", tbl.Len())
	}
}

func TestApplyAssignmentServerWinsNameCollision(t *testing.T) {
	tbl := New(nil)

	if err := tbl.ApplyAssignment(assign("x", 1, 1, protocol.BooleanValue(true))); err != nil {
		t.Fatal(err)
	}
	// The server re-binds the same name to a new id; the stale id
	// mapping must go away.
	if err := tbl.ApplyAssignment(assign("x", 2, 1, protocol.BooleanValue(false))); err != nil {
		t.Fatal(err)
	}

	if _, ok := tbl.GetID(1); ok {
		t.Error("stale id 1 still present")
	}
	e, ok := tbl.Get("x")
	if !ok || e.ID != 2 || e.Value.Boolean {
		t.Errorf("entry = %+v, %v; want id 2, false", e, ok)
	}
	if tbl.Len() != 1 {
		t.Errorf("Len() = %d, want 1", tbl.Len())
	}
}

func TestApplyAssignmentReplacesPendingProposal(t *testing.T) {
	tbl := New(nil)

	if _, ok := tbl.Propose("mine", protocol.TypeDouble, protocol.DoubleValue(7), 0); !ok {
		t.Fatal("Propose failed")
	}
	e, _ := tbl.Get("mine")
	if e.ID != protocol.UnassignedID {
		t.Fatalf("placeholder id = %d, want 0xFFFF", e.ID)
	}

	if err := tbl.ApplyAssignment(assign("mine", 12, 1, protocol.DoubleValue(7))); err != nil {
		t.Fatal(err)
	}
	e, _ = tbl.Get("mine")
	if e.ID != 12 {
		t.Errorf("id after echo = %d, want 12", e.ID)
	}
	if tbl.Len() != 1 {
		t.Errorf("Len() = %d, want 1", tbl.Len())
	}
}

func TestApplyAssignmentUnassignedIDFromServer(t *testing.T) {
	tbl := New(nil)
	err := tbl.ApplyAssignment(assign("bad", protocol.UnassignedID, 1, protocol.BooleanValue(true)))
	if !errors.Is(err, ErrServerUnassignedID) {
		t.Errorf("got %v, want ErrServerUnassignedID", err)
	}
	if tbl.Len() != 0 {
		t.Error("rejected assignment mutated the table")
	}
}

func TestApplyUpdateSeqOrdering(t *testing.T) {
	tbl := New(nil)
	if err := tbl.ApplyAssignment(assign("v", 7, 1000, protocol.DoubleValue(1))); err != nil {
		t.Fatal(err)
	}

	// Stale update is dropped and the value unchanged.
	if tbl.ApplyUpdate(&protocol.EntryUpdate{
		ID: 7, Seq: 500, EntryType: protocol.TypeDouble, Value: protocol.DoubleValue(99),
	}) {
		t.Error("stale update accepted")
	}
	e, _ := tbl.GetID(7)
	if e.Value.Double != 1 || e.Seq != 1000 {
		t.Errorf("entry after stale update = %+v", e)
	}

	// Newer update lands, and may retype the entry.
	if !tbl.ApplyUpdate(&protocol.EntryUpdate{
		ID: 7, Seq: 1001, EntryType: protocol.TypeString, Value: protocol.StringValue("s"),
	}) {
		t.Error("fresh update rejected")
	}
	e, _ = tbl.GetID(7)
	if e.Type != protocol.TypeString || e.Seq != 1001 {
		t.Errorf("entry after update = %+v", e)
	}
}

func TestApplyUpdateUnknownIDIgnored(t *testing.T) {
	tbl := New(nil)
	if tbl.ApplyUpdate(&protocol.EntryUpdate{
		ID: 9, Seq: 1, EntryType: protocol.TypeBoolean, Value: protocol.BooleanValue(true),
	}) {
		t.Error("update for unknown id accepted")
	}
}

func TestApplyFlagsUpdate(t *testing.T) {
	tbl := New(nil)
	if err := tbl.ApplyAssignment(assign("p", 3, 10, protocol.BooleanValue(true))); err != nil {
		t.Fatal(err)
	}

	if !tbl.ApplyFlagsUpdate(&protocol.EntryFlagsUpdate{ID: 3, Flags: protocol.FlagPersistent}) {
		t.Fatal("flags update for known id ignored")
	}
	e, _ := tbl.GetID(3)
	if !e.Persistent() {
		t.Error("persist flag not set")
	}
	if e.Seq != 10 {
		t.Errorf("flags update changed seq to %d", e.Seq)
	}

	if tbl.ApplyFlagsUpdate(&protocol.EntryFlagsUpdate{ID: 99, Flags: 0}) {
		t.Error("flags update for unknown id accepted")
	}
}

func TestApplyDeleteIdempotent(t *testing.T) {
	tbl := New(nil)
	if err := tbl.ApplyAssignment(assign("d", 5, 1, protocol.BooleanValue(true))); err != nil {
		t.Fatal(err)
	}

	if !tbl.ApplyDelete(&protocol.EntryDelete{ID: 5}) {
		t.Fatal("delete of known id ignored")
	}
	snap1 := tbl.Snapshot()

	// Second delete of the same id is a no-op with identical state.
	if tbl.ApplyDelete(&protocol.EntryDelete{ID: 5}) {
		t.Error("second delete reported as applied")
	}
	if !reflect.DeepEqual(snap1, tbl.Snapshot()) {
		t.Error("repeat delete changed table state")
	}
	if tbl.ApplyDelete(&protocol.EntryDelete{ID: 1234}) {
		t.Error("delete of never-known id reported as applied")
	}
}

func TestApplyClearAll(t *testing.T) {
	tbl := New(nil)
	if err := tbl.ApplyAssignment(assign("a", 1, 1, protocol.BooleanValue(true))); err != nil {
		t.Fatal(err)
	}
	if err := tbl.ApplyAssignment(assign("b", 2, 1, protocol.DoubleValue(2))); err != nil {
		t.Fatal(err)
	}
	tbl.Propose("pending", protocol.TypeString, protocol.StringValue("v"), 0)

	tbl.ApplyClearAll()

	if tbl.Len() != 0 {
		t.Errorf("Len() = %d after clear, want 0", tbl.Len())
	}
	// Pending proposals are discarded too: a fresh server assignment
	// for the proposed name must insert cleanly.
	if err := tbl.ApplyAssignment(assign("pending", 8, 1, protocol.StringValue("v"))); err != nil {
		t.Fatal(err)
	}
	if e, _ := tbl.Get("pending"); e.ID != 8 {
		t.Errorf("entry id = %d, want 8", e.ID)
	}
}

func TestProposeDuplicateName(t *testing.T) {
	tbl := New(nil)
	if _, ok := tbl.Propose("n", protocol.TypeBoolean, protocol.BooleanValue(true), 0); !ok {
		t.Fatal("first Propose failed")
	}
	if _, ok := tbl.Propose("n", protocol.TypeBoolean, protocol.BooleanValue(false), 0); ok {
		t.Error("second Propose for same name succeeded")
	}
}

func TestLocalUpdateBumpsSeq(t *testing.T) {
	tbl := New(nil)
	if err := tbl.ApplyAssignment(assign("u", 4, 41, protocol.DoubleValue(0))); err != nil {
		t.Fatal(err)
	}

	e, ok := tbl.LocalUpdate("u", protocol.DoubleValue(1.5))
	if !ok {
		t.Fatal("LocalUpdate for known name failed")
	}
	if e.Seq != 42 || e.Value.Double != 1.5 {
		t.Errorf("entry = %+v, want seq 42 value 1.5", e)
	}

	if _, ok := tbl.LocalUpdate("missing", protocol.DoubleValue(0)); ok {
		t.Error("LocalUpdate for unknown name succeeded")
	}
}

func TestLookupRpc(t *testing.T) {
	tbl := New(nil)
	def := &protocol.RpcDefinition{Name: "f"}
	if err := tbl.ApplyAssignment(assign("rpc", 30, 1, protocol.RpcValue(def))); err != nil {
		t.Fatal(err)
	}
	if err := tbl.ApplyAssignment(assign("plain", 31, 1, protocol.BooleanValue(true))); err != nil {
		t.Fatal(err)
	}

	got, ok := tbl.LookupRpc(30)
	if !ok || got.Name != "f" {
		t.Errorf("LookupRpc(30) = %v, %v", got, ok)
	}
	if _, ok := tbl.LookupRpc(31); ok {
		t.Error("non-rpc entry resolved as rpc")
	}
	if _, ok := tbl.LookupRpc(99); ok {
		t.Error("unknown id resolved as rpc")
	}
}

// recorder captures listener callbacks in order.
type recorder struct {
	events []string
}

func (r *recorder) EntryAssigned(e Entry)                  { r.events = append(r.events, "assign:"+e.Name) }
func (r *recorder) EntryUpdated(e Entry, _ protocol.Value) { r.events = append(r.events, "update:"+e.Name) }
func (r *recorder) EntryFlagsUpdated(e Entry)              { r.events = append(r.events, "flags:"+e.Name) }
func (r *recorder) EntryDeleted(_ uint16, name string)     { r.events = append(r.events, "delete:"+name) }
func (r *recorder) EntriesCleared()                        { r.events = append(r.events, "clear") }

func TestListenerEvents(t *testing.T) {
	rec := &recorder{}
	tbl := New(rec)

	tbl.ApplyAssignment(assign("e", 1, 1, protocol.DoubleValue(0)))
	tbl.ApplyUpdate(&protocol.EntryUpdate{ID: 1, Seq: 2, EntryType: protocol.TypeDouble, Value: protocol.DoubleValue(1)})
	tbl.ApplyUpdate(&protocol.EntryUpdate{ID: 1, Seq: 2, EntryType: protocol.TypeDouble, Value: protocol.DoubleValue(2)}) // rejected
	tbl.ApplyFlagsUpdate(&protocol.EntryFlagsUpdate{ID: 1, Flags: protocol.FlagPersistent})
	tbl.ApplyDelete(&protocol.EntryDelete{ID: 1})
	tbl.ApplyClearAll()

	want := []string{"assign:e", "update:e", "flags:e", "delete:e", "clear"}
	if !reflect.DeepEqual(rec.events, want) {
		t.Errorf("events = %v, want %v", rec.events, want)
	}
}
