package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/nettable-dev/nettable/pkg/protocol"
	"github.com/nettable-dev/nettable/pkg/table"
)

const tracerName = "nettable"

// errUnexpectedMessage is fatal: the server sent a message the current
// session state cannot accept.
var errUnexpectedMessage = errors.New("nettable: unexpected message from server")

// Stats is a snapshot of connection counters.
type Stats struct {
	BytesReceived    uint64
	BytesSent        uint64
	MessagesReceived uint64
	MessagesSent     uint64
	Reconnects       uint64
}

// Client is a nettable client. Create with New, start with Connect,
// stop with Close.
type Client struct {
	cfg     Config
	log     *slog.Logger
	handler Handler
	met     *metrics
	tracer  trace.Tracer

	mu    sync.Mutex
	tbl   *table.Table
	sink  *eventSink
	rpcs  *rpcRegistry
	state ConnState
	sess  *session

	serverIdentity string
	previouslySeen bool

	started bool
	closed  bool

	done    chan struct{} // closed by Close
	readyCh chan struct{} // closed on first Ready
	fatalCh chan error    // buffered; terminal no-reconnect error

	readyOnce sync.Once

	bytesIn    atomic.Uint64
	bytesOut   atomic.Uint64
	msgsIn     atomic.Uint64
	msgsOut    atomic.Uint64
	reconnects atomic.Uint64
}

// New creates a client. h may be nil.
func New(cfg Config, h Handler) *Client {
	cfg = cfg.withDefaults()
	if h == nil {
		h = BaseHandler{}
	}

	sink := &eventSink{}
	return &Client{
		cfg:     cfg,
		log:     cfg.Logger,
		handler: h,
		met:     newMetrics(cfg.Registry),
		tracer:  otel.Tracer(tracerName),
		tbl:     table.New(sink),
		sink:    sink,
		rpcs:    newRpcRegistry(),
		state:   StateDisconnected,
		done:    make(chan struct{}),
		readyCh: make(chan struct{}),
		fatalCh: make(chan error, 1),
	}
}

// session is one transport connection's worth of shared machinery.
type session struct {
	tr    Transport
	out   chan []byte
	flush chan struct{} // closed once the handshake completes
	done  chan struct{} // closed when the session ends

	endOnce   sync.Once
	flushOnce sync.Once
	lastSend  atomic.Int64 // unix nanos of the last transport write
}

func (s *session) end() {
	s.endOnce.Do(func() {
		close(s.done)
		s.tr.Close()
	})
}

func (s *session) markReady() {
	s.flushOnce.Do(func() { close(s.flush) })
}

// Connect starts the connection loop and blocks until the first session
// reaches Ready, a terminal error occurs (the server rejecting the
// protocol version does not reconnect), or ctx expires. On ctx expiry
// the client is closed.
func (c *Client) Connect(ctx context.Context) error {
	ctx, span := c.tracer.Start(ctx, "nettable.connect",
		trace.WithAttributes(attribute.String("server.address", c.cfg.Address)))
	defer span.End()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.started {
		c.mu.Unlock()
		return fmt.Errorf("nettable: Connect called twice")
	}
	c.started = true
	c.mu.Unlock()

	go c.run()

	select {
	case <-c.readyCh:
		return nil
	case err := <-c.fatalCh:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	case <-ctx.Done():
		c.Close()
		span.SetStatus(codes.Error, ctx.Err().Error())
		return ctx.Err()
	case <-c.done:
		return ErrClosed
	}
}

// Close tears down the connection and cancels all pending RPC calls.
// Safe to call more than once.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	s := c.sess
	c.mu.Unlock()

	if s != nil {
		c.setState(StateDisconnecting)
	}
	close(c.done)
	if s != nil {
		s.end()
	}
	return nil
}

// State returns the current connection state.
func (c *Client) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ServerIdentity returns the identity from the last SERVER_HELLO.
func (c *Client) ServerIdentity() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.serverIdentity
}

// PreviouslySeen reports whether the server remembered this client in
// the last handshake.
func (c *Client) PreviouslySeen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.previouslySeen
}

// Stats returns a snapshot of connection counters.
func (c *Client) Stats() Stats {
	return Stats{
		BytesReceived:    c.bytesIn.Load(),
		BytesSent:        c.bytesOut.Load(),
		MessagesReceived: c.msgsIn.Load(),
		MessagesSent:     c.msgsOut.Load(),
		Reconnects:       c.reconnects.Load(),
	}
}

// Entries returns a snapshot of the mirrored table, sorted by name.
func (c *Client) Entries() []table.Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tbl.Snapshot()
}

// GetEntry returns a copy of the named entry.
func (c *Client) GetEntry(name string) (table.Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tbl.Get(name)
}

// run is the reconnect loop. One instance per client.
func (c *Client) run() {
	bo := newBackoff(c.cfg.Backoff)

	for attempt := 0; ; attempt++ {
		select {
		case <-c.done:
			return
		default:
		}

		if attempt > 0 {
			if !c.cfg.Reconnect {
				return
			}
			c.reconnects.Add(1)
			c.met.reconnects.Inc()
			delay := bo.Next()
			c.log.Debug("reconnecting", "delay", delay)
			select {
			case <-time.After(delay):
			case <-c.done:
				return
			}
		}

		ready, err := c.runSession()
		if ready {
			bo.Reset()
		}

		select {
		case <-c.done:
			return
		default:
		}

		if errors.Is(err, ErrUnsupportedProtocolVersion) {
			// Version rejection is terminal: reconnecting would only
			// repeat it.
			c.log.Error("server rejected protocol version", "error", err)
			c.fatal(err)
			return
		}
		if err != nil {
			c.log.Warn("connection lost", "error", err)
			if !c.cfg.Reconnect {
				c.fatal(err)
				return
			}
		}
	}
}

func (c *Client) fatal(err error) {
	select {
	case c.fatalCh <- err:
	default:
	}
}

// runSession dials, handshakes, and pumps one connection until it ends.
// ready reports whether the session reached Ready at least once.
func (c *Client) runSession() (ready bool, err error) {
	c.setState(StateConnecting)

	dial, addr, err := dialerFor(c.cfg)
	if err != nil {
		c.setState(StateDisconnected)
		c.fatal(err)
		return false, err
	}

	dctx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-c.done:
			cancel()
		case <-dctx.Done():
		}
	}()
	tr, err := dial(dctx, addr)
	cancel()
	if err != nil {
		c.setState(StateDisconnected)
		return false, err
	}

	s := &session{
		tr:    tr,
		out:   make(chan []byte, c.cfg.OutboundQueue),
		flush: make(chan struct{}),
		done:  make(chan struct{}),
	}

	c.mu.Lock()
	c.sess = s
	c.mu.Unlock()

	defer func() {
		s.end()
		c.mu.Lock()
		c.sess = nil
		c.rpcs.cancelAll(ErrCancelled)
		c.mu.Unlock()
		c.setState(StateDisconnected)
	}()

	// End the session when the client closes.
	go func() {
		select {
		case <-c.done:
			s.end()
		case <-s.done:
		}
	}()

	go c.writeLoop(s)
	go c.keepAliveLoop(s)

	hello, err := encodeMessage(&protocol.ClientHello{
		Major:    protocol.ProtocolMajor,
		Minor:    protocol.ProtocolMinor,
		Identity: c.cfg.Ident,
	})
	if err != nil {
		return false, err
	}
	if err := c.write(s, hello); err != nil {
		return false, err
	}
	c.setState(StateAwaitingServerHello)

	return c.readLoop(s)
}

// readLoop feeds transport bytes through the incremental parser and
// dispatches each message in wire order. It returns when the transport
// fails or a fatal decode/dispatch error occurs.
func (c *Client) readLoop(s *session) (ready bool, err error) {
	buf := make([]byte, 0, 4096)
	tmp := make([]byte, 4096)
	off := 0

	for {
		n, rerr := s.tr.Read(tmp)
		if n > 0 {
			c.bytesIn.Add(uint64(n))
			c.met.bytesReceived.Add(float64(n))
			buf = append(buf, tmp[:n]...)

			for {
				msg, noff, perr := protocol.ParseMessage(buf, off, lockedDefs{c})
				if errors.Is(perr, protocol.ErrTruncated) {
					break
				}
				if perr != nil {
					return ready, perr
				}
				off = noff

				c.msgsIn.Add(1)
				c.met.messagesIn.WithLabelValues(msg.MessageType().String()).Inc()

				if err := c.dispatch(s, msg); err != nil {
					return ready, err
				}
				if c.State() == StateReady {
					ready = true
				}
			}

			if off > 0 {
				buf = append(buf[:0], buf[off:]...)
				off = 0
			}
		}
		if rerr != nil {
			return ready, fmt.Errorf("%w: %v", ErrTransportClosed, rerr)
		}
	}
}

// lockedDefs adapts the client's table to protocol.RpcDefs with the
// client mutex held per lookup.
type lockedDefs struct{ c *Client }

func (ld lockedDefs) LookupRpc(id uint16) (*protocol.RpcDefinition, bool) {
	ld.c.mu.Lock()
	defer ld.c.mu.Unlock()
	return ld.c.tbl.LookupRpc(id)
}

// dispatch applies one inbound message. A non-nil error tears the
// session down.
func (c *Client) dispatch(s *session, msg protocol.Message) error {
	state := c.State()

	switch m := msg.(type) {
	case *protocol.KeepAlive:
		// Liveness probe; nothing to do.
		return nil

	case *protocol.ServerHello:
		if state != StateAwaitingServerHello {
			return fmt.Errorf("%w: %s in %s", errUnexpectedMessage, msg.MessageType(), state)
		}
		c.mu.Lock()
		c.serverIdentity = m.Identity
		c.previouslySeen = m.PreviouslySeen()
		c.mu.Unlock()
		c.log.Debug("server hello",
			"identity", m.Identity,
			"previously_seen", m.PreviouslySeen())
		c.setState(StateReceivingInitialAssignments)
		return nil

	case *protocol.ProtoUnsupported:
		if state != StateAwaitingServerHello {
			return fmt.Errorf("%w: %s in %s", errUnexpectedMessage, msg.MessageType(), state)
		}
		return fmt.Errorf("%w: server speaks %d.%d", ErrUnsupportedProtocolVersion, m.Major, m.Minor)

	case *protocol.ServerHelloComplete:
		if state != StateReceivingInitialAssignments {
			return fmt.Errorf("%w: %s in %s", errUnexpectedMessage, msg.MessageType(), state)
		}
		done, err := encodeMessage(&protocol.ClientHelloComplete{})
		if err != nil {
			return err
		}
		if err := c.write(s, done); err != nil {
			return err
		}
		c.setState(StateReady)
		s.markReady()
		c.readyOnce.Do(func() { close(c.readyCh) })
		return nil

	case *protocol.EntryAssignment:
		if state != StateReceivingInitialAssignments && state != StateReady {
			return fmt.Errorf("%w: %s in %s", errUnexpectedMessage, msg.MessageType(), state)
		}
		return c.applyLocked(func() error { return c.tbl.ApplyAssignment(m) })

	case *protocol.EntryUpdate:
		if state != StateReceivingInitialAssignments && state != StateReady {
			return fmt.Errorf("%w: %s in %s", errUnexpectedMessage, msg.MessageType(), state)
		}
		return c.applyLocked(func() error { c.tbl.ApplyUpdate(m); return nil })

	case *protocol.EntryFlagsUpdate:
		if state != StateReceivingInitialAssignments && state != StateReady {
			return fmt.Errorf("%w: %s in %s", errUnexpectedMessage, msg.MessageType(), state)
		}
		return c.applyLocked(func() error { c.tbl.ApplyFlagsUpdate(m); return nil })

	case *protocol.EntryDelete:
		if state != StateReceivingInitialAssignments && state != StateReady {
			return fmt.Errorf("%w: %s in %s", errUnexpectedMessage, msg.MessageType(), state)
		}
		return c.applyLocked(func() error { c.tbl.ApplyDelete(m); return nil })

	case *protocol.ClearAllEntries:
		if state != StateReceivingInitialAssignments && state != StateReady {
			return fmt.Errorf("%w: %s in %s", errUnexpectedMessage, msg.MessageType(), state)
		}
		return c.applyLocked(func() error { c.tbl.ApplyClearAll(); return nil })

	case *protocol.RpcResponse:
		if state != StateReady {
			return fmt.Errorf("%w: %s in %s", errUnexpectedMessage, msg.MessageType(), state)
		}
		c.mu.Lock()
		_, pending := c.rpcs.calls[rpcKey(m.DefID, m.UniqueID)]
		c.mu.Unlock()
		if pending {
			c.handler.RpcResponse(m.DefID, m.UniqueID, m.Results)
		}
		c.mu.Lock()
		matched := c.rpcs.complete(m.DefID, m.UniqueID, m.Results)
		c.mu.Unlock()
		if !matched {
			c.log.Debug("unmatched rpc response",
				"def_id", m.DefID,
				"unique_id", m.UniqueID)
		}
		return nil

	case *protocol.RpcExecute:
		// Servers execute procedures, clients invoke them. A decoded
		// execute is well-formed traffic we have no use for.
		c.log.Warn("ignoring rpc execute from server", "def_id", m.DefID)
		return nil

	default:
		return fmt.Errorf("%w: %s", errUnexpectedMessage, msg.MessageType())
	}
}

// applyLocked runs a table mutation under the client mutex and fires
// the buffered listener events afterwards.
func (c *Client) applyLocked(apply func() error) error {
	c.mu.Lock()
	err := apply()
	fns := c.sink.drain()
	c.met.entries.Set(float64(c.tbl.Len()))
	c.mu.Unlock()

	if err != nil {
		return err
	}
	for _, fn := range fns {
		fn(c.handler)
	}
	return nil
}

// setState transitions the connection state and notifies the handler.
func (c *Client) setState(next ConnState) {
	c.mu.Lock()
	if c.state == next {
		c.mu.Unlock()
		return
	}
	prev := c.state
	c.state = next
	c.mu.Unlock()

	c.log.Debug("state changed", "from", prev, "to", next)
	c.handler.ConnStateChanged(next)
}

// writeLoop drains the outbound queue once the handshake completes.
// Queued messages submitted during the handshake flush in order after
// Ready.
func (c *Client) writeLoop(s *session) {
	select {
	case <-s.flush:
	case <-s.done:
		return
	}

	for {
		select {
		case data := <-s.out:
			if err := c.write(s, data); err != nil {
				c.log.Warn("write failed", "error", err)
				s.end()
				return
			}
		case <-s.done:
			return
		}
	}
}

// write sends one encoded message on the transport and accounts for it.
func (c *Client) write(s *session, data []byte) error {
	if _, err := s.tr.Write(data); err != nil {
		return fmt.Errorf("%w: %v", ErrTransportClosed, err)
	}
	s.lastSend.Store(time.Now().UnixNano())
	c.bytesOut.Add(uint64(len(data)))
	c.msgsOut.Add(1)
	c.met.bytesSent.Add(float64(len(data)))
	c.met.messagesOut.Inc()
	return nil
}

// keepAliveLoop probes the link when no outbound traffic has flowed for
// the configured idle interval.
func (c *Client) keepAliveLoop(s *session) {
	probe, err := encodeMessage(&protocol.KeepAlive{})
	if err != nil {
		return
	}

	interval := c.cfg.KeepAliveInterval
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			select {
			case <-s.flush:
			default:
				continue // still handshaking
			}
			idle := time.Since(time.Unix(0, s.lastSend.Load()))
			if idle < interval {
				continue
			}
			select {
			case s.out <- probe:
			default:
				// Queue full: real traffic is about to flow anyway.
			}
		case <-s.done:
			return
		}
	}
}

// send queues one encoded message for the writer. Blocks when the queue
// is full unless the client is configured NonBlocking.
func (c *Client) send(data []byte) error {
	c.mu.Lock()
	closed := c.closed
	s := c.sess
	c.mu.Unlock()

	if closed {
		return ErrClosed
	}
	if s == nil {
		return ErrTransportClosed
	}

	if c.cfg.NonBlocking {
		select {
		case s.out <- data:
			return nil
		case <-s.done:
			return ErrTransportClosed
		default:
			return ErrBackpressure
		}
	}

	select {
	case s.out <- data:
		return nil
	case <-s.done:
		return ErrTransportClosed
	case <-c.done:
		return ErrClosed
	}
}

func encodeMessage(m protocol.Message) ([]byte, error) {
	e := protocol.NewEncoder()
	if err := protocol.EncodeMessage(e, m); err != nil {
		return nil, err
	}
	out := make([]byte, e.Len())
	copy(out, e.Bytes())
	return out, nil
}
