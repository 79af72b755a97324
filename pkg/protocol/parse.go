package protocol

import "fmt"

// RpcDefs resolves RPC definitions by entry id. The entry table
// implements it; decoding RPC_EXECUTE and RPC_RESPONSE needs it to type
// each argument.
type RpcDefs interface {
	LookupRpc(id uint16) (*RpcDefinition, bool)
}

// ParseMessage attempts to decode one complete message from buf at off.
//
// On success it returns the message and the offset of the first byte
// after it; newOffset-off is exactly the serialized length. If the
// buffer ends mid-message it returns ErrTruncated and the caller should
// retry once more bytes arrive; nothing is consumed. Any other error is
// fatal to the connection.
//
// defs may be nil when the stream cannot contain RPC traffic; an RPC
// message then fails with ErrUnknownRpcDefinition.
func ParseMessage(buf []byte, off int, defs RpcDefs) (Message, int, error) {
	d := NewDecoderAt(buf, off)

	tb, err := d.ReadByte()
	if err != nil {
		return nil, off, err
	}

	var m Message
	switch MessageType(tb) {
	case MsgKeepAlive:
		m = &KeepAlive{}

	case MsgClientHello:
		msg := &ClientHello{}
		if msg.Major, err = d.ReadByte(); err != nil {
			return nil, off, err
		}
		if msg.Minor, err = d.ReadByte(); err != nil {
			return nil, off, err
		}
		if msg.Identity, err = d.ReadString(); err != nil {
			return nil, off, err
		}
		m = msg

	case MsgProtoUnsupported:
		msg := &ProtoUnsupported{}
		if msg.Major, err = d.ReadByte(); err != nil {
			return nil, off, err
		}
		if msg.Minor, err = d.ReadByte(); err != nil {
			return nil, off, err
		}
		m = msg

	case MsgServerHelloComplete:
		m = &ServerHelloComplete{}

	case MsgServerHello:
		msg := &ServerHello{}
		if msg.Flags, err = d.ReadByte(); err != nil {
			return nil, off, err
		}
		if msg.Identity, err = d.ReadString(); err != nil {
			return nil, off, err
		}
		m = msg

	case MsgClientHelloComplete:
		m = &ClientHelloComplete{}

	case MsgEntryAssignment:
		msg := &EntryAssignment{}
		if msg.Name, err = d.ReadString(); err != nil {
			return nil, off, err
		}
		if msg.EntryType, err = readEntryType(d); err != nil {
			return nil, off, err
		}
		if msg.ID, err = d.ReadUint16(); err != nil {
			return nil, off, err
		}
		if msg.Seq, err = d.ReadUint16(); err != nil {
			return nil, off, err
		}
		if msg.Flags, err = d.ReadByte(); err != nil {
			return nil, off, err
		}
		if msg.Value, err = DecodeValue(d, msg.EntryType); err != nil {
			return nil, off, err
		}
		m = msg

	case MsgEntryUpdate:
		msg := &EntryUpdate{}
		if msg.ID, err = d.ReadUint16(); err != nil {
			return nil, off, err
		}
		if msg.Seq, err = d.ReadUint16(); err != nil {
			return nil, off, err
		}
		if msg.EntryType, err = readEntryType(d); err != nil {
			return nil, off, err
		}
		if msg.Value, err = DecodeValue(d, msg.EntryType); err != nil {
			return nil, off, err
		}
		m = msg

	case MsgEntryFlagsUpdate:
		msg := &EntryFlagsUpdate{}
		if msg.ID, err = d.ReadUint16(); err != nil {
			return nil, off, err
		}
		if msg.Flags, err = d.ReadByte(); err != nil {
			return nil, off, err
		}
		m = msg

	case MsgEntryDelete:
		msg := &EntryDelete{}
		if msg.ID, err = d.ReadUint16(); err != nil {
			return nil, off, err
		}
		m = msg

	case MsgClearAllEntries:
		msg := &ClearAllEntries{}
		if msg.Magic, err = d.ReadUint32(); err != nil {
			return nil, off, err
		}
		if msg.Magic != ClearAllMagic {
			return nil, off, fmt.Errorf("%w: 0x%08X", ErrInvalidMagic, msg.Magic)
		}
		m = msg

	case MsgRpcExecute:
		defID, uid, vals, err := parseRpcBody(d, defs, rpcParams)
		if err != nil {
			return nil, off, err
		}
		m = &RpcExecute{DefID: defID, UniqueID: uid, Params: vals}

	case MsgRpcResponse:
		defID, uid, vals, err := parseRpcBody(d, defs, rpcResults)
		if err != nil {
			return nil, off, err
		}
		m = &RpcResponse{DefID: defID, UniqueID: uid, Results: vals}

	default:
		return nil, off, fmt.Errorf("%w: 0x%02x", ErrInvalidMessageType, tb)
	}

	return m, d.Position(), nil
}

func readEntryType(d *Decoder) (EntryType, error) {
	tb, err := d.ReadByte()
	if err != nil {
		return 0, err
	}
	t := EntryType(tb)
	if !t.Valid() {
		return 0, fmt.Errorf("%w: 0x%02x", ErrInvalidType, tb)
	}
	return t, nil
}

type rpcSide uint8

const (
	rpcParams rpcSide = iota
	rpcResults
)

// parseRpcBody decodes the shared body of RPC_EXECUTE and RPC_RESPONSE:
// definition id, unique id, LEB128 value count, then each value typed by
// the definition's parameter (or result) specs.
func parseRpcBody(d *Decoder, defs RpcDefs, side rpcSide) (uint16, uint16, []Value, error) {
	defID, err := d.ReadUint16()
	if err != nil {
		return 0, 0, nil, err
	}
	uid, err := d.ReadUint16()
	if err != nil {
		return 0, 0, nil, err
	}
	count, err := d.ReadUleb128()
	if err != nil {
		return 0, 0, nil, err
	}

	var def *RpcDefinition
	if defs != nil {
		def, _ = defs.LookupRpc(defID)
	}
	if def == nil {
		return 0, 0, nil, fmt.Errorf("%w: id %d", ErrUnknownRpcDefinition, defID)
	}

	var types []EntryType
	if side == rpcParams {
		types = make([]EntryType, len(def.Params))
		for i, p := range def.Params {
			types[i] = p.Type
		}
	} else {
		types = make([]EntryType, len(def.Results))
		for i, r := range def.Results {
			types[i] = r.Type
		}
	}

	if count != uint64(len(types)) {
		return 0, 0, nil, fmt.Errorf("%w: %q got %d want %d",
			ErrRpcArityMismatch, def.Name, count, len(types))
	}

	vals := make([]Value, len(types))
	for i, t := range types {
		if vals[i], err = DecodeValue(d, t); err != nil {
			return 0, 0, nil, err
		}
	}
	return defID, uid, vals, nil
}
