package client

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/nettable-dev/nettable/pkg/protocol"
	"github.com/nettable-dev/nettable/pkg/table"
)

const waitFor = 2 * time.Second

// fakeTransport is a scripted in-memory transport. Tests push inbound
// chunks on in and receive each client write (one message per write)
// on writes.
type fakeTransport struct {
	in     chan []byte
	writes chan []byte
	closed chan struct{}
	once   sync.Once
	rest   []byte
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		in:     make(chan []byte, 64),
		writes: make(chan []byte, 64),
		closed: make(chan struct{}),
	}
}

func (t *fakeTransport) Read(p []byte) (int, error) {
	if len(t.rest) > 0 {
		n := copy(p, t.rest)
		t.rest = t.rest[n:]
		return n, nil
	}
	select {
	case b := <-t.in:
		n := copy(p, b)
		t.rest = b[n:]
		return n, nil
	case <-t.closed:
		return 0, io.EOF
	}
}

func (t *fakeTransport) Write(p []byte) (int, error) {
	select {
	case <-t.closed:
		return 0, io.ErrClosedPipe
	default:
	}
	b := make([]byte, len(p))
	copy(b, p)
	t.writes <- b
	return len(p), nil
}

func (t *fakeTransport) Close() error {
	t.once.Do(func() { close(t.closed) })
	return nil
}

// expectWrite asserts the next client write equals want.
func expectWrite(t *testing.T, ft *fakeTransport, want []byte) {
	t.Helper()
	select {
	case got := <-ft.writes:
		if !bytes.Equal(got, want) {
			t.Fatalf("write = % x, want % x", got, want)
		}
	case <-time.After(waitFor):
		t.Fatalf("timed out waiting for write % x", want)
	}
}

// nextWrite returns the next client write.
func nextWrite(t *testing.T, ft *fakeTransport) []byte {
	t.Helper()
	select {
	case got := <-ft.writes:
		return got
	case <-time.After(waitFor):
		t.Fatal("timed out waiting for a write")
		return nil
	}
}

// expectNoWrite asserts nothing is written within d.
func expectNoWrite(t *testing.T, ft *fakeTransport, d time.Duration) {
	t.Helper()
	select {
	case got := <-ft.writes:
		t.Fatalf("unexpected write % x", got)
	case <-time.After(d):
	}
}

// chanHandler exposes client events as channels.
type chanHandler struct {
	BaseHandler
	states  chan ConnState
	assigns chan table.Entry
	updates chan table.Entry
	deletes chan string
	cleared chan struct{}
}

func newChanHandler() *chanHandler {
	return &chanHandler{
		states:  make(chan ConnState, 64),
		assigns: make(chan table.Entry, 64),
		updates: make(chan table.Entry, 64),
		deletes: make(chan string, 64),
		cleared: make(chan struct{}, 64),
	}
}

func (h *chanHandler) ConnStateChanged(s ConnState) { h.states <- s }

func (h *chanHandler) EntryAssigned(e table.Entry) { h.assigns <- e }

func (h *chanHandler) EntryUpdated(e table.Entry, _ protocol.Value) { h.updates <- e }

func (h *chanHandler) EntryDeleted(_ uint16, name string) { h.deletes <- name }

func (h *chanHandler) EntriesCleared() { h.cleared <- struct{}{} }

func (h *chanHandler) awaitState(t *testing.T, want ConnState) {
	t.Helper()
	deadline := time.After(waitFor)
	for {
		select {
		case s := <-h.states:
			if s == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for state %s", want)
		}
	}
}

func (h *chanHandler) awaitAssign(t *testing.T) table.Entry {
	t.Helper()
	select {
	case e := <-h.assigns:
		return e
	case <-time.After(waitFor):
		t.Fatal("timed out waiting for assignment event")
		return table.Entry{}
	}
}

func (h *chanHandler) awaitUpdate(t *testing.T) table.Entry {
	t.Helper()
	select {
	case e := <-h.updates:
		return e
	case <-time.After(waitFor):
		t.Fatal("timed out waiting for update event")
		return table.Entry{}
	}
}

// harness wires a client to a queue of scripted transports.
type harness struct {
	dials   chan *fakeTransport
	handler *chanHandler
	client  *Client
}

func newHarness(t *testing.T, mutate func(*Config)) *harness {
	t.Helper()

	h := &harness{
		dials:   make(chan *fakeTransport, 4),
		handler: newChanHandler(),
	}

	cfg := DefaultConfig()
	cfg.Address = "scripted"
	cfg.Ident = ""
	cfg.KeepAliveInterval = time.Minute // keep probes out of write expectations
	cfg.Reconnect = false
	cfg.Backoff = BackoffConfig{Initial: 10 * time.Millisecond, Max: 20 * time.Millisecond, Factor: 2, Jitter: 0}
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg.Dial = func(ctx context.Context, addr string) (Transport, error) {
		select {
		case ft := <-h.dials:
			return ft, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if mutate != nil {
		mutate(&cfg)
	}

	h.client = New(cfg, h.handler)
	t.Cleanup(func() { h.client.Close() })
	return h
}

// encodeMsg encodes one message, failing the test on error.
func encodeMsg(t *testing.T, m protocol.Message) []byte {
	t.Helper()
	data, err := encodeMessage(m)
	if err != nil {
		t.Fatalf("encode %s: %v", m.MessageType(), err)
	}
	return data
}

// serverHandshake drives the scripted server's half of the handshake.
func serverHandshake(t *testing.T, ft *fakeTransport, identity string) {
	t.Helper()

	expectWrite(t, ft, []byte{0x01, 0x03, 0x00, 0x00})

	hello := encodeMsg(t, &protocol.ServerHello{Identity: identity})
	ft.in <- hello
	ft.in <- []byte{0x03} // SERVER_HELLO_COMPLETE
	expectWrite(t, ft, []byte{0x05})
}

// connectReady spins up a connected, Ready client on one transport.
func connectReady(t *testing.T, mutate func(*Config)) (*harness, *fakeTransport) {
	t.Helper()

	h := newHarness(t, mutate)
	ft := newFakeTransport()
	h.dials <- ft

	errCh := make(chan error, 1)
	go func() { errCh <- h.client.Connect(context.Background()) }()

	serverHandshake(t, ft, "scripted-server")

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Connect: %v", err)
		}
	case <-time.After(waitFor):
		t.Fatal("Connect did not return")
	}
	return h, ft
}

func shootDef() *protocol.RpcDefinition {
	return &protocol.RpcDefinition{
		Name: "shoot",
		Params: []protocol.RpcParam{
			{Type: protocol.TypeDouble, Name: "angle", Default: protocol.DoubleValue(45)},
			{Type: protocol.TypeBoolean, Name: "dryRun", Default: protocol.BooleanValue(false)},
		},
		Results: []protocol.RpcResult{
			{Type: protocol.TypeBoolean, Name: "ok"},
		},
	}
}
