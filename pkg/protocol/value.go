package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

// EntryType identifies the type of an entry value.
type EntryType uint8

const (
	TypeBoolean      EntryType = 0x00
	TypeDouble       EntryType = 0x01
	TypeString       EntryType = 0x02
	TypeRaw          EntryType = 0x03
	TypeBooleanArray EntryType = 0x10
	TypeDoubleArray  EntryType = 0x11
	TypeStringArray  EntryType = 0x12
	TypeRpc          EntryType = 0x20
)

// Valid reports whether t is one of the eight recognized entry types.
func (t EntryType) Valid() bool {
	switch t {
	case TypeBoolean, TypeDouble, TypeString, TypeRaw,
		TypeBooleanArray, TypeDoubleArray, TypeStringArray, TypeRpc:
		return true
	}
	return false
}

// String returns the string representation of the entry type.
func (t EntryType) String() string {
	switch t {
	case TypeBoolean:
		return "Boolean"
	case TypeDouble:
		return "Double"
	case TypeString:
		return "String"
	case TypeRaw:
		return "Raw"
	case TypeBooleanArray:
		return "BooleanArray"
	case TypeDoubleArray:
		return "DoubleArray"
	case TypeStringArray:
		return "StringArray"
	case TypeRpc:
		return "Rpc"
	default:
		return "Unknown"
	}
}

// MaxArrayLen is the maximum element count of an array value.
// Array counts are encoded as a single byte.
const MaxArrayLen = 255

// Value is a tagged union holding one entry value variant.
// Only the field corresponding to Type is meaningful.
type Value struct {
	Type EntryType

	Boolean      bool
	Double       float64
	Str          string
	Raw          []byte
	BooleanArray []bool
	DoubleArray  []float64
	StringArray  []string
	Rpc          *RpcDefinition
}

// BooleanValue returns a Value holding a boolean.
func BooleanValue(b bool) Value { return Value{Type: TypeBoolean, Boolean: b} }

// DoubleValue returns a Value holding a double.
func DoubleValue(f float64) Value { return Value{Type: TypeDouble, Double: f} }

// StringValue returns a Value holding a string.
func StringValue(s string) Value { return Value{Type: TypeString, Str: s} }

// RawValue returns a Value holding opaque bytes.
func RawValue(b []byte) Value { return Value{Type: TypeRaw, Raw: b} }

// BooleanArrayValue returns a Value holding a boolean array.
func BooleanArrayValue(b []bool) Value { return Value{Type: TypeBooleanArray, BooleanArray: b} }

// DoubleArrayValue returns a Value holding a double array.
func DoubleArrayValue(f []float64) Value { return Value{Type: TypeDoubleArray, DoubleArray: f} }

// StringArrayValue returns a Value holding a string array.
func StringArrayValue(s []string) Value { return Value{Type: TypeStringArray, StringArray: s} }

// RpcValue returns a Value holding an RPC definition.
func RpcValue(def *RpcDefinition) Value { return Value{Type: TypeRpc, Rpc: def} }

// String renders the value for human consumption.
func (v Value) String() string {
	switch v.Type {
	case TypeBoolean:
		return strconv.FormatBool(v.Boolean)
	case TypeDouble:
		return strconv.FormatFloat(v.Double, 'g', -1, 64)
	case TypeString:
		return strconv.Quote(v.Str)
	case TypeRaw:
		return fmt.Sprintf("raw[%d]", len(v.Raw))
	case TypeBooleanArray:
		parts := make([]string, len(v.BooleanArray))
		for i, b := range v.BooleanArray {
			parts[i] = strconv.FormatBool(b)
		}
		return "[" + strings.Join(parts, " ") + "]"
	case TypeDoubleArray:
		parts := make([]string, len(v.DoubleArray))
		for i, f := range v.DoubleArray {
			parts[i] = strconv.FormatFloat(f, 'g', -1, 64)
		}
		return "[" + strings.Join(parts, " ") + "]"
	case TypeStringArray:
		parts := make([]string, len(v.StringArray))
		for i, s := range v.StringArray {
			parts[i] = strconv.Quote(s)
		}
		return "[" + strings.Join(parts, " ") + "]"
	case TypeRpc:
		if v.Rpc != nil {
			return "rpc " + v.Rpc.Name
		}
		return "rpc <nil>"
	default:
		return "invalid"
	}
}

// EncodeValue encodes v's payload as declared type t.
// Returns ErrTypeMismatch if v.Type != t (or the RPC payload is missing),
// and ErrArrayTooLong for arrays beyond MaxArrayLen.
// The type byte itself is not written; it belongs to the enclosing framing.
func EncodeValue(e *Encoder, t EntryType, v Value) error {
	if v.Type != t {
		return ErrTypeMismatch
	}

	switch t {
	case TypeBoolean:
		e.WriteBool(v.Boolean)

	case TypeDouble:
		e.WriteFloat64(v.Double)

	case TypeString:
		e.WriteString(v.Str)

	case TypeRaw:
		e.WriteLenBytes(v.Raw)

	case TypeBooleanArray:
		if len(v.BooleanArray) > MaxArrayLen {
			return ErrArrayTooLong
		}
		e.WriteByte(byte(len(v.BooleanArray)))
		for _, b := range v.BooleanArray {
			e.WriteBool(b)
		}

	case TypeDoubleArray:
		if len(v.DoubleArray) > MaxArrayLen {
			return ErrArrayTooLong
		}
		e.WriteByte(byte(len(v.DoubleArray)))
		for _, f := range v.DoubleArray {
			e.WriteFloat64(f)
		}

	case TypeStringArray:
		if len(v.StringArray) > MaxArrayLen {
			return ErrArrayTooLong
		}
		e.WriteByte(byte(len(v.StringArray)))
		for _, s := range v.StringArray {
			e.WriteString(s)
		}

	case TypeRpc:
		if v.Rpc == nil {
			return ErrTypeMismatch
		}
		inner := NewEncoder()
		EncodeRpcDefinition(inner, v.Rpc)
		e.WriteLenBytes(inner.Bytes())

	default:
		return ErrInvalidType
	}

	return nil
}

// DecodeValue decodes a value of declared type t from d.
func DecodeValue(d *Decoder, t EntryType) (Value, error) {
	switch t {
	case TypeBoolean:
		b, err := d.ReadBool()
		if err != nil {
			return Value{}, err
		}
		return BooleanValue(b), nil

	case TypeDouble:
		f, err := d.ReadFloat64()
		if err != nil {
			return Value{}, err
		}
		return DoubleValue(f), nil

	case TypeString:
		s, err := d.ReadString()
		if err != nil {
			return Value{}, err
		}
		return StringValue(s), nil

	case TypeRaw:
		b, err := d.ReadLenBytes()
		if err != nil {
			return Value{}, err
		}
		return RawValue(b), nil

	case TypeBooleanArray:
		n, err := d.ReadByte()
		if err != nil {
			return Value{}, err
		}
		arr := make([]bool, n)
		for i := range arr {
			if arr[i], err = d.ReadBool(); err != nil {
				return Value{}, err
			}
		}
		return BooleanArrayValue(arr), nil

	case TypeDoubleArray:
		n, err := d.ReadByte()
		if err != nil {
			return Value{}, err
		}
		arr := make([]float64, n)
		for i := range arr {
			if arr[i], err = d.ReadFloat64(); err != nil {
				return Value{}, err
			}
		}
		return DoubleArrayValue(arr), nil

	case TypeStringArray:
		n, err := d.ReadByte()
		if err != nil {
			return Value{}, err
		}
		arr := make([]string, n)
		for i := range arr {
			if arr[i], err = d.ReadString(); err != nil {
				return Value{}, err
			}
		}
		return StringArrayValue(arr), nil

	case TypeRpc:
		blob, err := d.ReadLenBytes()
		if err != nil {
			return Value{}, err
		}
		def, err := DecodeRpcDefinition(blob)
		if err != nil {
			return Value{}, err
		}
		return RpcValue(def), nil

	default:
		return Value{}, ErrInvalidType
	}
}
