package protocol

import "fmt"

// Protocol version spoken by this implementation.
const (
	ProtocolMajor = 3
	ProtocolMinor = 0
)

// Wire sentinels.
const (
	// ClearAllMagic must accompany a CLEAR_ALL_ENTRIES message. It guards
	// against a stray type byte wiping the whole table.
	ClearAllMagic uint32 = 0xD06CB27A

	// UnassignedID marks a client-proposed entry awaiting a server id.
	UnassignedID uint16 = 0xFFFF
)

// Entry flag bits. Bits other than FlagPersistent are reserved: written
// as zero, ignored on read.
const FlagPersistent uint8 = 0x01

// MessageType identifies the type of a framed message.
// The assignments are fixed by wire compatibility.
type MessageType uint8

const (
	MsgKeepAlive           MessageType = 0x00
	MsgClientHello         MessageType = 0x01
	MsgProtoUnsupported    MessageType = 0x02
	MsgServerHelloComplete MessageType = 0x03
	MsgServerHello         MessageType = 0x04
	MsgClientHelloComplete MessageType = 0x05
	MsgEntryAssignment     MessageType = 0x10
	MsgEntryUpdate         MessageType = 0x11
	MsgEntryFlagsUpdate    MessageType = 0x12
	MsgEntryDelete         MessageType = 0x13
	MsgClearAllEntries     MessageType = 0x14
	MsgRpcExecute          MessageType = 0x20
	MsgRpcResponse         MessageType = 0x21
)

// String returns the string representation of the message type.
func (mt MessageType) String() string {
	switch mt {
	case MsgKeepAlive:
		return "KeepAlive"
	case MsgClientHello:
		return "ClientHello"
	case MsgProtoUnsupported:
		return "ProtoUnsupported"
	case MsgServerHelloComplete:
		return "ServerHelloComplete"
	case MsgServerHello:
		return "ServerHello"
	case MsgClientHelloComplete:
		return "ClientHelloComplete"
	case MsgEntryAssignment:
		return "EntryAssignment"
	case MsgEntryUpdate:
		return "EntryUpdate"
	case MsgEntryFlagsUpdate:
		return "EntryFlagsUpdate"
	case MsgEntryDelete:
		return "EntryDelete"
	case MsgClearAllEntries:
		return "ClearAllEntries"
	case MsgRpcExecute:
		return "RpcExecute"
	case MsgRpcResponse:
		return "RpcResponse"
	default:
		return "Unknown"
	}
}

// Message is one framed protocol message.
type Message interface {
	MessageType() MessageType
}

// KeepAlive is an empty liveness probe.
type KeepAlive struct{}

// ClientHello opens the handshake. Always version 3.0.
type ClientHello struct {
	Major    uint8
	Minor    uint8
	Identity string
}

// ProtoUnsupported rejects the client's protocol version and advertises
// the server's.
type ProtoUnsupported struct {
	Major uint8
	Minor uint8
}

// ServerHelloComplete ends the server's initial assignment burst.
type ServerHelloComplete struct{}

// ServerHello flag bits.
const ServerFlagSeenClient uint8 = 0x01

// ServerHello acknowledges a ClientHello.
type ServerHello struct {
	Flags    uint8
	Identity string
}

// PreviouslySeen reports whether the server remembers this client
// identity from an earlier session.
func (m *ServerHello) PreviouslySeen() bool {
	return m.Flags&ServerFlagSeenClient != 0
}

// ClientHelloComplete ends the client's side of the handshake.
type ClientHelloComplete struct{}

// EntryAssignment introduces or re-introduces an entry.
type EntryAssignment struct {
	Name      string
	EntryType EntryType
	ID        uint16
	Seq       uint16
	Flags     uint8
	Value     Value
}

// EntryUpdate changes the value of an existing entry, ordered by Seq.
type EntryUpdate struct {
	ID        uint16
	Seq       uint16
	EntryType EntryType
	Value     Value
}

// EntryFlagsUpdate changes an entry's flags. Seq is unaffected.
type EntryFlagsUpdate struct {
	ID    uint16
	Flags uint8
}

// EntryDelete removes an entry.
type EntryDelete struct {
	ID uint16
}

// ClearAllEntries removes every entry. Magic must be ClearAllMagic.
type ClearAllEntries struct {
	Magic uint32
}

// NewClearAllEntries returns a ClearAllEntries carrying the magic.
func NewClearAllEntries() *ClearAllEntries {
	return &ClearAllEntries{Magic: ClearAllMagic}
}

// RpcExecute invokes a server-defined procedure.
type RpcExecute struct {
	DefID    uint16
	UniqueID uint16
	Params   []Value
}

// RpcResponse carries the results of an RpcExecute.
type RpcResponse struct {
	DefID    uint16
	UniqueID uint16
	Results  []Value
}

func (*KeepAlive) MessageType() MessageType           { return MsgKeepAlive }
func (*ClientHello) MessageType() MessageType         { return MsgClientHello }
func (*ProtoUnsupported) MessageType() MessageType    { return MsgProtoUnsupported }
func (*ServerHelloComplete) MessageType() MessageType { return MsgServerHelloComplete }
func (*ServerHello) MessageType() MessageType         { return MsgServerHello }
func (*ClientHelloComplete) MessageType() MessageType { return MsgClientHelloComplete }
func (*EntryAssignment) MessageType() MessageType     { return MsgEntryAssignment }
func (*EntryUpdate) MessageType() MessageType         { return MsgEntryUpdate }
func (*EntryFlagsUpdate) MessageType() MessageType    { return MsgEntryFlagsUpdate }
func (*EntryDelete) MessageType() MessageType         { return MsgEntryDelete }
func (*ClearAllEntries) MessageType() MessageType     { return MsgClearAllEntries }
func (*RpcExecute) MessageType() MessageType          { return MsgRpcExecute }
func (*RpcResponse) MessageType() MessageType         { return MsgRpcResponse }

// EncodeMessage appends m's wire form, type byte included, to e.
// Encode errors indicate caller bugs (value/type disagreement); the
// encoder's buffer may hold a partial message afterwards and should be
// discarded.
func EncodeMessage(e *Encoder, m Message) error {
	e.WriteByte(byte(m.MessageType()))

	switch msg := m.(type) {
	case *KeepAlive, *ServerHelloComplete, *ClientHelloComplete:
		// Empty body.

	case *ClientHello:
		e.WriteByte(msg.Major)
		e.WriteByte(msg.Minor)
		e.WriteString(msg.Identity)

	case *ProtoUnsupported:
		e.WriteByte(msg.Major)
		e.WriteByte(msg.Minor)

	case *ServerHello:
		e.WriteByte(msg.Flags)
		e.WriteString(msg.Identity)

	case *EntryAssignment:
		e.WriteString(msg.Name)
		e.WriteByte(byte(msg.EntryType))
		e.WriteUint16(msg.ID)
		e.WriteUint16(msg.Seq)
		e.WriteByte(msg.Flags)
		if err := EncodeValue(e, msg.EntryType, msg.Value); err != nil {
			return err
		}

	case *EntryUpdate:
		e.WriteUint16(msg.ID)
		e.WriteUint16(msg.Seq)
		e.WriteByte(byte(msg.EntryType))
		if err := EncodeValue(e, msg.EntryType, msg.Value); err != nil {
			return err
		}

	case *EntryFlagsUpdate:
		e.WriteUint16(msg.ID)
		e.WriteByte(msg.Flags)

	case *EntryDelete:
		e.WriteUint16(msg.ID)

	case *ClearAllEntries:
		e.WriteUint32(msg.Magic)

	case *RpcExecute:
		e.WriteUint16(msg.DefID)
		e.WriteUint16(msg.UniqueID)
		e.WriteUleb128(uint64(len(msg.Params)))
		for _, v := range msg.Params {
			if err := EncodeValue(e, v.Type, v); err != nil {
				return err
			}
		}

	case *RpcResponse:
		e.WriteUint16(msg.DefID)
		e.WriteUint16(msg.UniqueID)
		e.WriteUleb128(uint64(len(msg.Results)))
		for _, v := range msg.Results {
			if err := EncodeValue(e, v.Type, v); err != nil {
				return err
			}
		}

	default:
		return fmt.Errorf("%w: %T", ErrInvalidMessageType, m)
	}

	return nil
}
