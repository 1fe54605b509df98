package bencode

import (
	"bufio"
	"bytes"
	"fmt"
	"reflect"
)

//----------------------------------------------------------------------------
// Errors
//----------------------------------------------------------------------------
//
// None of these are exported. Every caller in this client (the metainfo
// loader, the tracker client) only ever checks Marshal/Unmarshal for
// err != nil and wraps the message; nothing type-switches on a decode
// failure kind, so there is no reason to carry a public error taxonomy.

// marshalTypeError is returned when a Go value has no bencode
// representation. A typical example is float32/float64.
type marshalTypeError struct {
	Type reflect.Type
}

func (e *marshalTypeError) Error() string {
	return "bencode: unsupported type: " + e.Type.String()
}

// unmarshalInvalidArgError reports that Unmarshal's argument was not a
// non-nil pointer.
type unmarshalInvalidArgError struct {
	Type reflect.Type
}

func (e *unmarshalInvalidArgError) Error() string {
	if e.Type == nil {
		return "bencode: Unmarshal(nil)"
	}
	if e.Type.Kind() != reflect.Ptr {
		return "bencode: Unmarshal(non-pointer " + e.Type.String() + ")"
	}
	return "bencode: Unmarshal(nil " + e.Type.String() + ")"
}

// unmarshalTypeError reports a decoded value that doesn't fit the target
// Go type.
type unmarshalTypeError struct {
	Value string
	Type  reflect.Type
}

func (e *unmarshalTypeError) Error() string {
	return "bencode: value (" + e.Value + ") is not appropriate for type: " +
		e.Type.String()
}

// unmarshalFieldError reports a dict key that maps to an unexported
// (therefore unwritable) struct field.
type unmarshalFieldError struct {
	Key   string
	Type  reflect.Type
	Field reflect.StructField
}

func (e *unmarshalFieldError) Error() string {
	return "bencode: key \"" + e.Key + "\" led to an unexported field \"" +
		e.Field.Name + "\" in type: " + e.Type.String()
}

// syntaxError reports malformed bencode input, found at the given byte
// offset.
type syntaxError struct {
	Offset int64
	What   error
}

func (e *syntaxError) Error() string {
	return fmt.Sprintf("bencode: syntax error (offset: %d): %s", e.Offset, e.What)
}

// marshalerError wraps a non-nil error returned by a type's
// MarshalBencode.
type marshalerError struct {
	Type reflect.Type
	Err  error
}

func (e *marshalerError) Error() string {
	return "bencode: error calling MarshalBencode for type " + e.Type.String() + ": " + e.Err.Error()
}

// unmarshalerError wraps a non-nil error returned by a type's
// UnmarshalBencode.
type unmarshalerError struct {
	Type reflect.Type
	Err  error
}

func (e *unmarshalerError) Error() string {
	return "bencode: error calling UnmarshalBencode for type " + e.Type.String() + ": " + e.Err.Error()
}

//----------------------------------------------------------------------------
// Interfaces
//----------------------------------------------------------------------------

// Marshaler is implemented by types that encode themselves to bencode.
// RawMessage is the only implementation this client needs: it lets the
// metainfo loader and the tracker client defer decoding the "info" and
// "peers" dict entries until the shape of each (a tagged variant in both
// cases) is known.
type Marshaler interface {
	MarshalBencode() ([]byte, error)
}

// Unmarshaler is implemented by types that decode themselves from
// bencode. See Marshaler.
type Unmarshaler interface {
	UnmarshalBencode([]byte) error
}

// Marshal returns the bencode encoding of v. Every value this client
// marshals (synthetic torrents and stub tracker responses in tests) is
// already a fully-built in-memory value, so there is no exported
// streaming encoder -- Marshal is the only entry point.
func Marshal(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := encoder{w: bufio.NewWriter(&buf)}
	if err := enc.encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal parses the bencode-encoded data and stores the result in the
// value pointed to by v. Every input this client decodes (a loaded
// .torrent file, a tracker's HTTP response body) is already fully
// buffered in memory, so Unmarshal is the only entry point.
func Unmarshal(data []byte, v interface{}) error {
	dec := decoder{r: bytes.NewReader(data)}
	return dec.decode(v)
}
