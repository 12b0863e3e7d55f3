package nbt

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// MaxDepth bounds compound/list nesting during both decode and encode.
const MaxDepth = 512

// maxPrealloc caps slice preallocation driven by untrusted counts.
const maxPrealloc = 1 << 12

// Decoder reads a single named tag from an uncompressed stream.
type Decoder struct {
	r   io.Reader
	off int64
	buf [8]byte
}

func NewDecoder(r io.Reader) *Decoder {
	if _, ok := r.(io.ByteReader); !ok {
		r = bufio.NewReaderSize(r, 64*1024)
	}
	return &Decoder{r: r}
}

// Decode reads one document from r. See Decoder.Decode.
func Decode(r io.Reader) (NamedTag, error) {
	return NewDecoder(r).Decode()
}

// Unmarshal decodes an uncompressed document held in memory. Bytes after the
// root tag are ignored.
func Unmarshal(b []byte) (NamedTag, error) {
	return Decode(bytes.NewReader(b))
}

// Decode reads the root named tag. Grammar violations come back as
// *FormatError; any other read error is returned unchanged.
func (d *Decoder) Decode() (NamedTag, error) {
	t, err := d.readType()
	if err != nil {
		return NamedTag{}, err
	}
	if t == TypeEnd {
		return NamedTag{}, d.formatErr("End tag at document root")
	}
	name, err := d.readString()
	if err != nil {
		return NamedTag{}, err
	}
	v, err := d.readPayload(t, 0)
	if err != nil {
		return NamedTag{}, err
	}
	return NamedTag{Name: name, Tag: v}, nil
}

func (d *Decoder) formatErr(format string, args ...any) error {
	return &FormatError{Offset: d.off, Msg: fmt.Sprintf(format, args...)}
}

func (d *Decoder) read(n int) ([]byte, error) {
	p := d.buf[:n]
	got, err := io.ReadFull(d.r, p)
	d.off += int64(got)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, d.formatErr("unexpected end of data")
		}
		return nil, err
	}
	return p, nil
}

func (d *Decoder) readType() (Type, error) {
	p, err := d.read(1)
	if err != nil {
		return 0, err
	}
	t := Type(p[0])
	if !t.Valid() {
		return 0, d.formatErr("unknown tag type %d", p[0])
	}
	return t, nil
}

func (d *Decoder) readUint16() (uint16, error) {
	p, err := d.read(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(p), nil
}

func (d *Decoder) readUint32() (uint32, error) {
	p, err := d.read(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(p), nil
}

func (d *Decoder) readUint64() (uint64, error) {
	p, err := d.read(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(p), nil
}

func (d *Decoder) readCount() (int, error) {
	v, err := d.readUint32()
	if err != nil {
		return 0, err
	}
	n := int32(v)
	if n < 0 {
		return 0, d.formatErr("negative length %d", n)
	}
	return int(n), nil
}

func (d *Decoder) readString() (string, error) {
	n, err := d.readUint16()
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", nil
	}
	p := make([]byte, n)
	got, err := io.ReadFull(d.r, p)
	d.off += int64(got)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return "", d.formatErr("unexpected end of data in string")
		}
		return "", err
	}
	return string(p), nil
}

func (d *Decoder) readPayload(t Type, depth int) (Tag, error) {
	switch t {
	case TypeByte:
		p, err := d.read(1)
		if err != nil {
			return nil, err
		}
		return Byte(int8(p[0])), nil
	case TypeShort:
		v, err := d.readUint16()
		if err != nil {
			return nil, err
		}
		return Short(int16(v)), nil
	case TypeInt:
		v, err := d.readUint32()
		if err != nil {
			return nil, err
		}
		return Int(int32(v)), nil
	case TypeLong:
		v, err := d.readUint64()
		if err != nil {
			return nil, err
		}
		return Long(int64(v)), nil
	case TypeFloat:
		v, err := d.readUint32()
		if err != nil {
			return nil, err
		}
		return Float(math.Float32frombits(v)), nil
	case TypeDouble:
		v, err := d.readUint64()
		if err != nil {
			return nil, err
		}
		return Double(math.Float64frombits(v)), nil
	case TypeString:
		s, err := d.readString()
		if err != nil {
			return nil, err
		}
		return String(s), nil
	case TypeByteArray:
		n, err := d.readCount()
		if err != nil {
			return nil, err
		}
		out := make(ByteArray, 0, min(n, maxPrealloc))
		for len(out) < n {
			chunk := min(n-len(out), maxPrealloc)
			start := len(out)
			out = append(out, make([]byte, chunk)...)
			got, err := io.ReadFull(d.r, out[start:])
			d.off += int64(got)
			if err != nil {
				if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
					return nil, d.formatErr("unexpected end of data in byte array")
				}
				return nil, err
			}
		}
		return out, nil
	case TypeIntArray:
		n, err := d.readCount()
		if err != nil {
			return nil, err
		}
		out := make(IntArray, 0, min(n, maxPrealloc))
		for i := 0; i < n; i++ {
			v, err := d.readUint32()
			if err != nil {
				return nil, err
			}
			out = append(out, int32(v))
		}
		return out, nil
	case TypeLongArray:
		n, err := d.readCount()
		if err != nil {
			return nil, err
		}
		out := make(LongArray, 0, min(n, maxPrealloc))
		for i := 0; i < n; i++ {
			v, err := d.readUint64()
			if err != nil {
				return nil, err
			}
			out = append(out, int64(v))
		}
		return out, nil
	case TypeList:
		if depth+1 > MaxDepth {
			return nil, d.formatErr("nesting deeper than %d", MaxDepth)
		}
		elem, err := d.readType()
		if err != nil {
			return nil, err
		}
		n, err := d.readCount()
		if err != nil {
			return nil, err
		}
		if elem == TypeEnd && n > 0 {
			return nil, d.formatErr("list of End with %d elements", n)
		}
		items := make([]Tag, 0, min(n, maxPrealloc))
		for i := 0; i < n; i++ {
			v, err := d.readPayload(elem, depth+1)
			if err != nil {
				return nil, err
			}
			items = append(items, v)
		}
		return &List{elem: elem, items: items}, nil
	case TypeCompound:
		if depth+1 > MaxDepth {
			return nil, d.formatErr("nesting deeper than %d", MaxDepth)
		}
		c := NewCompound()
		for {
			et, err := d.readType()
			if err != nil {
				return nil, err
			}
			if et == TypeEnd {
				return c, nil
			}
			name, err := d.readString()
			if err != nil {
				return nil, err
			}
			v, err := d.readPayload(et, depth+1)
			if err != nil {
				return nil, err
			}
			c.Put(name, v)
		}
	default:
		// TypeEnd only reaches here as a list element type, which is
		// rejected above for non-empty lists.
		return nil, d.formatErr("unexpected %s payload", t)
	}
}
