package bencode

// RawMessage is a raw encoded bencode value. It implements Marshaler and
// Unmarshaler and can be used to delay bencode decoding or precompute a
// bencode encoding, exactly like encoding/json's json.RawMessage.
type RawMessage []byte

// MarshalBencode returns m as the raw bencode encoding.
func (m RawMessage) MarshalBencode() ([]byte, error) {
	if m == nil {
		return []byte("0:"), nil
	}
	return []byte(m), nil
}

// UnmarshalBencode stores a copy of data in m.
func (m *RawMessage) UnmarshalBencode(data []byte) error {
	*m = append((*m)[0:0], data...)
	return nil
}
