package protocol

import (
	"errors"
	"fmt"
)

// RpcVersion is the only supported RPC definition format version.
const RpcVersion = 0x01

// RpcParam is one parameter of an RPC definition. Default carries a
// value of the parameter's type, used when a caller omits the argument.
type RpcParam struct {
	Type    EntryType
	Name    string
	Default Value
}

// RpcResult is one result of an RPC definition. Results carry no
// default value on the wire.
type RpcResult struct {
	Type EntryType
	Name string
}

// RpcDefinition is a typed procedure signature stored as an entry.
type RpcDefinition struct {
	Name    string
	Params  []RpcParam
	Results []RpcResult
}

// EncodeRpcDefinition encodes def's serialized block (without the outer
// LEB128 length prefix; that belongs to the enclosing RPC entry value).
func EncodeRpcDefinition(e *Encoder, def *RpcDefinition) {
	e.WriteByte(RpcVersion)
	e.WriteString(def.Name)

	e.WriteByte(byte(len(def.Params)))
	for _, p := range def.Params {
		e.WriteByte(byte(p.Type))
		e.WriteString(p.Name)
		// Parameter defaults are single-level: a default is never
		// itself an RPC, so this cannot recurse further.
		_ = EncodeValue(e, p.Type, p.Default)
	}

	e.WriteByte(byte(len(def.Results)))
	for _, r := range def.Results {
		e.WriteByte(byte(r.Type))
		e.WriteString(r.Name)
	}
}

// DecodeRpcDefinition decodes a serialized definition block.
//
// blob must be the complete block (the enclosing value's length prefix
// already consumed), so running out of bytes here means the peer lied
// about the length: it is reported as ErrMalformed, not ErrTruncated.
func DecodeRpcDefinition(blob []byte) (*RpcDefinition, error) {
	def, err := decodeRpcDefinition(NewDecoder(blob))
	if errors.Is(err, ErrTruncated) {
		return nil, fmt.Errorf("%w: short rpc definition", ErrMalformed)
	}
	return def, err
}

func decodeRpcDefinition(d *Decoder) (*RpcDefinition, error) {
	ver, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	if ver != RpcVersion {
		return nil, fmt.Errorf("%w: 0x%02x", ErrUnsupportedRpcVersion, ver)
	}

	def := &RpcDefinition{}
	if def.Name, err = d.ReadString(); err != nil {
		return nil, err
	}

	pcount, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	def.Params = make([]RpcParam, pcount)
	for i := range def.Params {
		tb, err := d.ReadByte()
		if err != nil {
			return nil, err
		}
		t := EntryType(tb)
		if !t.Valid() {
			return nil, fmt.Errorf("%w: 0x%02x", ErrInvalidType, tb)
		}
		name, err := d.ReadString()
		if err != nil {
			return nil, err
		}
		dv, err := DecodeValue(d, t)
		if err != nil {
			return nil, err
		}
		def.Params[i] = RpcParam{Type: t, Name: name, Default: dv}
	}

	rcount, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	def.Results = make([]RpcResult, rcount)
	for i := range def.Results {
		tb, err := d.ReadByte()
		if err != nil {
			return nil, err
		}
		t := EntryType(tb)
		if !t.Valid() {
			return nil, fmt.Errorf("%w: 0x%02x", ErrInvalidType, tb)
		}
		name, err := d.ReadString()
		if err != nil {
			return nil, err
		}
		// Result specs carry no default value on the wire.
		def.Results[i] = RpcResult{Type: t, Name: name}
	}

	return def, nil
}
