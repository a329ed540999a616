package rpc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// MaxPayloadBytes bounds a single frame's payload. Oversized frames abort
// the connection; there is no way to resynchronize the stream after one.
const MaxPayloadBytes = 1 << 20

// ErrPayloadTooLarge is returned when a frame declares a payload above
// MaxPayloadBytes.
var ErrPayloadTooLarge = errors.New("rpc: payload too large")

// Message is one frame: a method id followed by an opaque payload.
//
// Wire layout: 4 method bytes, 4 big-endian payload length bytes, payload.
type Message struct {
	Method Method
	Data   []byte
}

// ReadMessage reads exactly one frame from r.
func ReadMessage(r io.Reader) (Message, error) {
	var header [8]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return Message{}, err
	}

	var m Message
	copy(m.Method[:], header[:4])

	size := binary.BigEndian.Uint32(header[4:])
	if size > MaxPayloadBytes {
		return Message{}, fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, size)
	}
	if size == 0 {
		return m, nil
	}

	m.Data = make([]byte, size)
	if _, err := io.ReadFull(r, m.Data); err != nil {
		return Message{}, err
	}
	return m, nil
}

// WriteMessage writes one frame to w.
func WriteMessage(w io.Writer, m Message) error {
	if len(m.Data) > MaxPayloadBytes {
		return fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, len(m.Data))
	}

	buf := make([]byte, 8+len(m.Data))
	copy(buf, m.Method[:])
	binary.BigEndian.PutUint32(buf[4:8], uint32(len(m.Data)))
	copy(buf[8:], m.Data)

	_, err := w.Write(buf)
	return err
}
