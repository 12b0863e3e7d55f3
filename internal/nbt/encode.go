package nbt

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Encoder writes named tags to an uncompressed stream.
type Encoder struct {
	w   *bufio.Writer
	err error
	buf [8]byte
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: bufio.NewWriterSize(w, 64*1024)}
}

// Encode writes nt to w and flushes.
func Encode(w io.Writer, nt NamedTag) error {
	return NewEncoder(w).Encode(nt)
}

// Marshal returns the uncompressed encoding of nt.
func Marshal(nt NamedTag) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, nt); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (e *Encoder) Encode(nt NamedTag) error {
	if nt.Tag == nil {
		return fmt.Errorf("nbt: encode nil root tag")
	}
	if nt.Tag.Type() == TypeEnd {
		return fmt.Errorf("nbt: End cannot be a document root")
	}
	e.writeByte(byte(nt.Tag.Type()))
	e.writeString(nt.Name)
	e.writePayload(nt.Tag, 0)
	if e.err != nil {
		return e.err
	}
	return e.w.Flush()
}

func (e *Encoder) fail(err error) {
	if e.err == nil {
		e.err = err
	}
}

func (e *Encoder) write(p []byte) {
	if e.err != nil {
		return
	}
	if _, err := e.w.Write(p); err != nil {
		e.err = err
	}
}

func (e *Encoder) writeByte(b byte) {
	if e.err != nil {
		return
	}
	if err := e.w.WriteByte(b); err != nil {
		e.err = err
	}
}

func (e *Encoder) writeUint16(v uint16) {
	binary.BigEndian.PutUint16(e.buf[:2], v)
	e.write(e.buf[:2])
}

func (e *Encoder) writeUint32(v uint32) {
	binary.BigEndian.PutUint32(e.buf[:4], v)
	e.write(e.buf[:4])
}

func (e *Encoder) writeUint64(v uint64) {
	binary.BigEndian.PutUint64(e.buf[:8], v)
	e.write(e.buf[:8])
}

func (e *Encoder) writeString(s string) {
	if len(s) > math.MaxUint16 {
		e.fail(fmt.Errorf("nbt: string of %d bytes exceeds %d", len(s), math.MaxUint16))
		return
	}
	e.writeUint16(uint16(len(s)))
	if e.err == nil {
		if _, err := e.w.WriteString(s); err != nil {
			e.err = err
		}
	}
}

func (e *Encoder) writeCount(n int) {
	if n > math.MaxInt32 {
		e.fail(fmt.Errorf("nbt: length %d exceeds %d", n, math.MaxInt32))
		return
	}
	e.writeUint32(uint32(n))
}

func (e *Encoder) writePayload(t Tag, depth int) {
	if e.err != nil {
		return
	}
	switch v := t.(type) {
	case Byte:
		e.writeByte(byte(v))
	case Short:
		e.writeUint16(uint16(v))
	case Int:
		e.writeUint32(uint32(v))
	case Long:
		e.writeUint64(uint64(v))
	case Float:
		e.writeUint32(math.Float32bits(float32(v)))
	case Double:
		e.writeUint64(math.Float64bits(float64(v)))
	case String:
		e.writeString(string(v))
	case ByteArray:
		e.writeCount(len(v))
		e.write(v)
	case IntArray:
		e.writeCount(len(v))
		for _, x := range v {
			e.writeUint32(uint32(x))
		}
	case LongArray:
		e.writeCount(len(v))
		for _, x := range v {
			e.writeUint64(uint64(x))
		}
	case *List:
		if depth+1 > MaxDepth {
			e.fail(fmt.Errorf("nbt: nesting deeper than %d", MaxDepth))
			return
		}
		e.writeByte(byte(v.elem))
		e.writeCount(len(v.items))
		for _, it := range v.items {
			e.writePayload(it, depth+1)
		}
	case *Compound:
		if depth+1 > MaxDepth {
			e.fail(fmt.Errorf("nbt: nesting deeper than %d", MaxDepth))
			return
		}
		for name, child := range v.All() {
			e.writeByte(byte(child.Type()))
			e.writeString(name)
			e.writePayload(child, depth+1)
		}
		e.writeByte(byte(TypeEnd))
	case End:
		e.fail(fmt.Errorf("nbt: End has no payload"))
	default:
		e.fail(fmt.Errorf("nbt: unhandled tag %T", t))
	}
}
