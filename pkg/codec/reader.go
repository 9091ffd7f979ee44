package codec

import (
	"encoding/binary"
	"math"

	"github.com/dd0wney/synthgraph/pkg/synthdef"
)

// reader consumes big-endian fields and tracks the byte offset for errors
type reader struct {
	data []byte
	off  int
	def  string
}

func (r *reader) remaining() int {
	return len(r.data) - r.off
}

func (r *reader) formatError() *synthdef.ErrorBuilder {
	return synthdef.Format("decode").Definition(r.def)
}

func (r *reader) take(n int, what string) ([]byte, error) {
	if r.remaining() < n {
		return nil, r.formatError().Offset(r.off).
			Context("reading %s: need %d bytes, have %d", what, n, r.remaining()).
			Cause(synthdef.ErrTruncated).Err()
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *reader) int32(what string) (int32, error) {
	b, err := r.take(4, what)
	if err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(b)), nil
}

func (r *reader) int16(what string) (int, error) {
	b, err := r.take(2, what)
	if err != nil {
		return 0, err
	}
	return int(int16(binary.BigEndian.Uint16(b))), nil
}

func (r *reader) uint16(what string) (int, error) {
	b, err := r.take(2, what)
	if err != nil {
		return 0, err
	}
	return int(binary.BigEndian.Uint16(b)), nil
}

func (r *reader) int8(what string) (uint8, error) {
	b, err := r.take(1, what)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *reader) float32(what string) (float32, error) {
	b, err := r.take(4, what)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(binary.BigEndian.Uint32(b)), nil
}

func (r *reader) pstring(what string) (string, error) {
	n, err := r.int8(what + " length")
	if err != nil {
		return "", err
	}
	b, err := r.take(int(n), what)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
