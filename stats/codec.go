package stats

import (
	"encoding/binary"
	"math"

	"github.com/YuminosukeSato/decisionforest/pkg/errors"
)

type encoder struct {
	buf []byte
}

func (e *encoder) uint32(v int) { e.buf = binary.LittleEndian.AppendUint32(e.buf, uint32(v)) }
func (e *encoder) uint64(v int) { e.buf = binary.LittleEndian.AppendUint64(e.buf, uint64(v)) }
func (e *encoder) float(v float64) {
	e.buf = binary.LittleEndian.AppendUint64(e.buf, math.Float64bits(v))
}

func (e *encoder) floats(v []float64) {
	for _, x := range v {
		e.float(x)
	}
}

type decoder struct {
	op   string
	data []byte
	err  error
}

func (d *decoder) take(n int) []byte {
	if d.err != nil {
		return nil
	}
	if len(d.data) < n {
		d.err = errors.NewValueError(d.op, "payload too short")
		return nil
	}
	b := d.data[:n]
	d.data = d.data[n:]
	return b
}

func (d *decoder) uint32() int {
	if b := d.take(4); b != nil {
		return int(binary.LittleEndian.Uint32(b))
	}
	return 0
}

func (d *decoder) uint64() int {
	if b := d.take(8); b != nil {
		return int(binary.LittleEndian.Uint64(b))
	}
	return 0
}

func (d *decoder) float() float64 {
	if b := d.take(8); b != nil {
		return math.Float64frombits(binary.LittleEndian.Uint64(b))
	}
	return 0
}

func (d *decoder) floats(n int) []float64 {
	if d.err == nil && len(d.data) < 8*n {
		d.err = errors.NewValueError(d.op, "payload too short")
	}
	if d.err != nil {
		return nil
	}
	v := make([]float64, n)
	for i := range v {
		v[i] = d.float()
	}
	return v
}

func (d *decoder) finish() error {
	if d.err == nil && len(d.data) != 0 {
		d.err = errors.NewValueError(d.op, "trailing bytes in payload")
	}
	return d.err
}
