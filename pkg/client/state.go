package client

// ConnState is the connection's lifecycle state.
type ConnState uint8

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateAwaitingServerHello
	StateReceivingInitialAssignments
	StateReady
	StateDisconnecting
)

// String returns the string representation of the connection state.
func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "Disconnected"
	case StateConnecting:
		return "Connecting"
	case StateAwaitingServerHello:
		return "AwaitingServerHello"
	case StateReceivingInitialAssignments:
		return "ReceivingInitialAssignments"
	case StateReady:
		return "Ready"
	case StateDisconnecting:
		return "Disconnecting"
	default:
		return "Unknown"
	}
}
