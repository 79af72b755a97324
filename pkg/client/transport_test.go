package client

import (
	"testing"
)

func TestIsWebSocketAddress(t *testing.T) {
	tests := []struct {
		addr string
		want bool
	}{
		{"ws://host/nt", true},
		{"wss://host:8080/nt", true},
		{"10.0.0.2", false},
		{"robot.local", false},
		{"", false},
	}
	for _, tc := range tests {
		if got := IsWebSocketAddress(tc.addr); got != tc.want {
			t.Errorf("IsWebSocketAddress(%q) = %v, want %v", tc.addr, got, tc.want)
		}
	}
}

func TestDialerFor(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Address = "robot.local"
	cfg.Port = 1735

	_, addr, err := dialerFor(cfg)
	if err != nil {
		t.Fatalf("dialerFor: %v", err)
	}
	if addr != "robot.local:1735" {
		t.Errorf("addr = %q, want robot.local:1735", addr)
	}

	cfg.Address = "wss://relay/nt"
	_, addr, err = dialerFor(cfg)
	if err != nil {
		t.Fatalf("dialerFor ws: %v", err)
	}
	if addr != "wss://relay/nt" {
		t.Errorf("ws addr = %q", addr)
	}

	cfg.Address = ""
	if _, _, err := dialerFor(cfg); err == nil {
		t.Error("empty address accepted")
	}
}
