package bencode

import (
	"bufio"
	"reflect"
	"sort"
	"strconv"
)

// encoder writes a single value to an in-memory buffer in bencode form.
type encoder struct {
	w          *bufio.Writer
	scratch    [64]byte
	writeError error
}

// encode writes v, then flushes.
func (e *encoder) encode(v interface{}) error {
	e.writeError = nil
	e.encodeValue(reflect.ValueOf(v))
	if e.writeError != nil {
		return e.writeError
	}
	return e.w.Flush()
}

func (e *encoder) writeString(s string) {
	if e.writeError != nil {
		return
	}
	_, e.writeError = e.w.WriteString(s)
}

func (e *encoder) writeByte(b byte) {
	if e.writeError != nil {
		return
	}
	e.writeError = e.w.WriteByte(b)
}

func (e *encoder) writeBytes(b []byte) {
	if e.writeError != nil {
		return
	}
	_, e.writeError = e.w.Write(b)
}

func (e *encoder) encodeString(s string) {
	n := strconv.AppendInt(e.scratch[:0], int64(len(s)), 10)
	e.writeBytes(n)
	e.writeByte(':')
	e.writeString(s)
}

func (e *encoder) encodeBytes(b []byte) {
	n := strconv.AppendInt(e.scratch[:0], int64(len(b)), 10)
	e.writeBytes(n)
	e.writeByte(':')
	e.writeBytes(b)
}

func (e *encoder) encodeInt(n int64) {
	e.writeByte('i')
	e.writeBytes(strconv.AppendInt(e.scratch[:0], n, 10))
	e.writeByte('e')
}

func (e *encoder) encodeUint(n uint64) {
	e.writeByte('i')
	e.writeBytes(strconv.AppendUint(e.scratch[:0], n, 10))
	e.writeByte('e')
}

// encodeValue writes v in bencode form. Unsupported kinds (floats,
// channels, functions) set e.writeError instead of panicking -- unlike
// the decoder, the encoder never needs a recover wrapper since writeError
// is checked before every write.
func (e *encoder) encodeValue(v reflect.Value) {
	if e.writeError != nil {
		return
	}

	if !v.IsValid() {
		// nil interface{}: nothing to write.
		return
	}

	if m, ok := v.Interface().(Marshaler); ok {
		e.encodeMarshaler(v.Type(), m)
		return
	}
	if v.Kind() != reflect.Ptr && v.CanAddr() {
		if m, ok := v.Addr().Interface().(Marshaler); ok {
			e.encodeMarshaler(v.Type(), m)
			return
		}
	}

	switch v.Kind() {
	case reflect.Ptr:
		if v.IsNil() {
			e.encodeValue(reflect.ValueOf(""))
			return
		}
		e.encodeValue(v.Elem())
	case reflect.Interface:
		if v.IsNil() {
			return
		}
		e.encodeValue(v.Elem())
	case reflect.Bool:
		if v.Bool() {
			e.encodeInt(1)
		} else {
			e.encodeInt(0)
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		e.encodeInt(v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		e.encodeUint(v.Uint())
	case reflect.String:
		e.encodeString(v.String())
	case reflect.Slice:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			e.encodeBytes(v.Bytes())
			return
		}
		e.encodeList(v)
	case reflect.Array:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			b := make([]byte, v.Len())
			reflect.Copy(reflect.ValueOf(b), v)
			e.encodeBytes(b)
			return
		}
		e.encodeList(v)
	case reflect.Map:
		e.encodeMap(v)
	case reflect.Struct:
		e.encodeStruct(v)
	default:
		e.writeError = &marshalTypeError{v.Type()}
	}
}

func (e *encoder) encodeMarshaler(t reflect.Type, m Marshaler) {
	b, err := m.MarshalBencode()
	if err != nil {
		e.writeError = &marshalerError{t, err}
		return
	}
	e.writeBytes(b)
}

func (e *encoder) encodeList(v reflect.Value) {
	e.writeByte('l')
	for i := 0; i < v.Len(); i++ {
		e.encodeValue(v.Index(i))
	}
	e.writeByte('e')
}

type mapPair struct {
	key   string
	value reflect.Value
}

func (e *encoder) encodeMap(v reflect.Value) {
	if v.Type().Key().Kind() != reflect.String {
		e.writeError = &marshalTypeError{v.Type()}
		return
	}

	pairs := make([]mapPair, 0, v.Len())
	for _, k := range v.MapKeys() {
		pairs = append(pairs, mapPair{k.String(), v.MapIndex(k)})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].key < pairs[j].key })

	e.writeByte('d')
	for _, p := range pairs {
		e.encodeString(p.key)
		e.encodeValue(p.value)
	}
	e.writeByte('e')
}

type fieldPair struct {
	key   string
	value reflect.Value
}

func (e *encoder) encodeStruct(v reflect.Value) {
	t := v.Type()

	var pairs []fieldPair
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.PkgPath != "" {
			// Unexported field.
			continue
		}

		tag := f.Tag.Get("bencode")
		name, opts := parseFieldTag(tag)
		if name == "-" {
			continue
		}
		if name == "" {
			name = f.Name
		}

		fv := v.Field(i)
		if opts.contains("omitempty") && isEmptyValue(fv) {
			continue
		}

		pairs = append(pairs, fieldPair{name, fv})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].key < pairs[j].key })

	e.writeByte('d')
	for _, p := range pairs {
		e.encodeString(p.key)
		e.encodeValue(p.value)
	}
	e.writeByte('e')
}

func isEmptyValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint() == 0
	case reflect.Interface, reflect.Ptr:
		return v.IsNil()
	}
	return false
}
