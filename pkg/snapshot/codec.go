package snapshot

import (
	"encoding/binary"
	"fmt"

	"github.com/orneryd/phenograph/pkg/ontology"
)

type writer struct {
	buf []byte
}

func (w *writer) u8(v uint8)   { w.buf = append(w.buf, v) }
func (w *writer) u32(v uint32) { w.buf = binary.BigEndian.AppendUint32(w.buf, v) }

func (w *writer) string(s string) {
	w.u32(uint32(len(s)))
	w.buf = append(w.buf, s...)
}

func (w *writer) terms(g ontology.Group) {
	w.u32(uint32(g.Len()))
	for id := range g.All() {
		w.u32(uint32(id))
	}
}

// reader records the first short read in err; later reads return zero values.
type reader struct {
	buf []byte
	pos int
	err error
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.pos+n > len(r.buf) {
		r.err = fmt.Errorf("%w: unexpected end of data at offset %d", ErrCorrupt, r.pos)
		return nil
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b
}

func (r *reader) u8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) u32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

func (r *reader) string() string {
	return string(r.take(int(r.u32())))
}

func (r *reader) terms() []ontology.TermID {
	n := int(r.u32())
	if n > (len(r.buf)-r.pos)/4 {
		r.take(n * 4) // records the error
		return nil
	}
	out := make([]ontology.TermID, n)
	for i := range out {
		out[i] = ontology.TermID(r.u32())
	}
	return out
}
