package peer

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
)

// Message IDs.
const (
	msgChoke         byte = 0
	msgUnchoke       byte = 1
	msgInterested    byte = 2
	msgNotInterested byte = 3
	msgHave          byte = 4
	msgBitfield      byte = 5
	msgRequest       byte = 6
	msgPiece         byte = 7
	msgCancel        byte = 8
	msgPort          byte = 9
)

// maxMessageSize bounds the length prefix of any message this client will
// accept, guarding against a malicious or buggy peer claiming an absurd
// payload size.
const maxMessageSize = 1 << 20

// message is a parsed wire message: a 1-byte ID plus its type-specific
// payload. A keep-alive (length-prefix 0) is represented as a nil message.
type message struct {
	id      byte
	payload []byte
}

func newMessage(id byte, payload []byte) *message {
	return &message{id: id, payload: payload}
}

// sendMessage writes msg in the <4-byte length><id><payload> wire framing.
// A nil msg sends a keep-alive (length 0, no body).
func sendMessage(nc net.Conn, msg *message) error {
	var data []byte
	if msg != nil {
		data = make([]byte, 1+len(msg.payload))
		data[0] = msg.id
		copy(data[1:], msg.payload)
	}

	if err := binary.Write(nc, binary.BigEndian, uint32(len(data))); err != nil {
		return fmt.Errorf("write message length: %s", err)
	}
	for len(data) > 0 {
		n, err := nc.Write(data)
		if err != nil {
			return fmt.Errorf("write message: %s", err)
		}
		data = data[n:]
	}
	return nil
}

// readMessage reads one length-prefixed message off nc. A length-prefix of
// 0 is a keep-alive and is returned as a nil message with no error.
func readMessage(nc net.Conn) (*message, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(nc, lenBuf[:]); err != nil {
		return nil, fmt.Errorf("read message length: %s", err)
	}
	length := binary.BigEndian.Uint32(lenBuf[:])
	if length == 0 {
		return nil, nil
	}
	if length > maxMessageSize {
		return nil, fmt.Errorf("message exceeds max size: %d > %d", length, maxMessageSize)
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(nc, data); err != nil {
		return nil, fmt.Errorf("read message body: %s", err)
	}
	return &message{id: data[0], payload: data[1:]}, nil
}

// encodeHave builds a have message payload: a single big-endian u32 piece
// index.
func encodeHave(index int) *message {
	payload := make([]byte, 4)
	binary.BigEndian.PutUint32(payload, uint32(index))
	return newMessage(msgHave, payload)
}

func decodeHave(payload []byte) (int, error) {
	if len(payload) != 4 {
		return 0, fmt.Errorf("%w: have payload length %d, want 4", ErrProtocol, len(payload))
	}
	return int(binary.BigEndian.Uint32(payload)), nil
}

// encodeRequest builds a request message payload: piece index, begin
// offset, and block length, all big-endian u32.
func encodeRequest(index, begin int, length int64) *message {
	payload := make([]byte, 12)
	binary.BigEndian.PutUint32(payload[0:4], uint32(index))
	binary.BigEndian.PutUint32(payload[4:8], uint32(begin))
	binary.BigEndian.PutUint32(payload[8:12], uint32(length))
	return newMessage(msgRequest, payload)
}

func decodePiece(payload []byte) (index, begin int, block []byte, err error) {
	if len(payload) < 8 {
		return 0, 0, nil, fmt.Errorf("%w: piece payload too short: %d bytes", ErrProtocol, len(payload))
	}
	index = int(binary.BigEndian.Uint32(payload[0:4]))
	begin = int(binary.BigEndian.Uint32(payload[4:8]))
	block = payload[8:]
	return index, begin, block, nil
}

var interestedMessage = newMessage(msgInterested, nil)
