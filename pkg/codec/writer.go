package codec

import (
	"bytes"
	"encoding/binary"
	"math"
)

// writer appends big-endian fields to a buffer. The first failure sticks and
// later writes are skipped.
type writer struct {
	buf bytes.Buffer
	err error
}

func (w *writer) put(v any) {
	if w.err != nil {
		return
	}
	w.err = binary.Write(&w.buf, binary.BigEndian, v)
}

func (w *writer) int32(v int32) {
	w.put(v)
}

func (w *writer) int16(v int) {
	w.put(int16(v))
}

func (w *writer) uint16(v int) {
	w.put(uint16(v))
}

func (w *writer) int8(v uint8) {
	w.put(v)
}

func (w *writer) float32(v float32) {
	w.put(math.Float32bits(v))
}

// pstring writes a length-prefixed string. Callers check the length first.
func (w *writer) pstring(s string) {
	w.int8(uint8(len(s)))
	if w.err != nil {
		return
	}
	_, w.err = w.buf.WriteString(s)
}

func (w *writer) bytes() []byte {
	return w.buf.Bytes()
}
