package client

import (
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// Transport is a byte-oriented full-duplex connection to the server.
// It may close at any time; Read then returns an error and the client
// tears the session down.
type Transport interface {
	io.ReadWriteCloser
}

// Dialer opens a Transport to addr.
type Dialer func(ctx context.Context, addr string) (Transport, error)

// DialTCP opens a plain TCP transport. addr is host:port.
func DialTCP(ctx context.Context, addr string) (Transport, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		// The protocol is chatty with small messages.
		tc.SetNoDelay(true)
	}
	return conn, nil
}

// DialWebSocket tunnels the protocol over a WebSocket binary stream,
// for servers reachable only through HTTP infrastructure. addr is a
// ws:// or wss:// URL.
func DialWebSocket(ctx context.Context, addr string) (Transport, error) {
	d := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := d.DialContext(ctx, addr, nil)
	if err != nil {
		return nil, err
	}
	return &wsTransport{conn: conn}, nil
}

// IsWebSocketAddress reports whether addr selects the WebSocket
// transport.
func IsWebSocketAddress(addr string) bool {
	return strings.HasPrefix(addr, "ws://") || strings.HasPrefix(addr, "wss://")
}

// wsTransport adapts a WebSocket connection to the byte-stream
// Transport contract. Each Write becomes one binary message; Read
// drains binary messages in order.
type wsTransport struct {
	conn *websocket.Conn
	r    io.Reader // current message reader, nil when drained
}

func (t *wsTransport) Read(p []byte) (int, error) {
	for {
		if t.r == nil {
			mt, r, err := t.conn.NextReader()
			if err != nil {
				return 0, err
			}
			if mt != websocket.BinaryMessage {
				continue
			}
			t.r = r
		}
		n, err := t.r.Read(p)
		if err == io.EOF {
			t.r = nil
			if n == 0 {
				continue
			}
			return n, nil
		}
		return n, err
	}
}

func (t *wsTransport) Write(p []byte) (int, error) {
	if err := t.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (t *wsTransport) Close() error {
	return t.conn.Close()
}

// dialerFor resolves the dialer and dial address for cfg.
func dialerFor(cfg Config) (Dialer, string, error) {
	if cfg.Address == "" {
		return nil, "", fmt.Errorf("nettable: no server address configured")
	}
	if cfg.Dial != nil {
		return cfg.Dial, cfg.Address, nil
	}
	if IsWebSocketAddress(cfg.Address) {
		return DialWebSocket, cfg.Address, nil
	}
	return DialTCP, net.JoinHostPort(cfg.Address, fmt.Sprint(cfg.Port)), nil
}
