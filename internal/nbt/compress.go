package nbt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// Compression selects the envelope wrapped around an encoded document. The
// envelope is orthogonal to the tag grammar.
type Compression int

const (
	None Compression = iota
	Gzip
	Zlib
	Zstd
)

func (c Compression) String() string {
	switch c {
	case None:
		return "none"
	case Gzip:
		return "gzip"
	case Zlib:
		return "zlib"
	case Zstd:
		return "zstd"
	default:
		return fmt.Sprintf("Compression(%d)", int(c))
	}
}

func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "raw":
		return None, nil
	case "gzip", "gz":
		return Gzip, nil
	case "zlib", "deflate":
		return Zlib, nil
	case "zstd", "zst":
		return Zstd, nil
	}
	return None, fmt.Errorf("unknown compression %q", s)
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// NewWriter wraps w in the envelope c. Close must be called to flush the
// envelope trailer; it does not close w.
func NewWriter(w io.Writer, c Compression) (io.WriteCloser, error) {
	switch c {
	case None:
		return nopWriteCloser{w}, nil
	case Gzip:
		return gzip.NewWriter(w), nil
	case Zlib:
		return zlib.NewWriter(w), nil
	case Zstd:
		return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	}
	return nil, fmt.Errorf("unknown compression %d", int(c))
}

// NewReader unwraps the envelope c from r.
func NewReader(r io.Reader, c Compression) (io.ReadCloser, error) {
	switch c {
	case None:
		return io.NopCloser(r), nil
	case Gzip:
		return gzip.NewReader(r)
	case Zlib:
		return zlib.NewReader(r)
	case Zstd:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return dec.IOReadCloser(), nil
	}
	return nil, fmt.Errorf("unknown compression %d", int(c))
}

// DetectCompression sniffs the envelope from the first bytes of br without
// consuming them. Streams too short to carry a magic number are reported as
// uncompressed and left for the decoder to reject.
func DetectCompression(br *bufio.Reader) (Compression, error) {
	p, err := br.Peek(4)
	if err != nil && !errors.Is(err, io.EOF) {
		return None, err
	}
	switch {
	case len(p) >= 2 && p[0] == 0x1f && p[1] == 0x8b:
		return Gzip, nil
	case len(p) >= 4 && p[0] == 0x28 && p[1] == 0xb5 && p[2] == 0x2f && p[3] == 0xfd:
		return Zstd, nil
	case len(p) >= 2 && p[0]&0x0f == 8 && (uint16(p[0])<<8|uint16(p[1]))%31 == 0:
		return Zlib, nil
	}
	return None, nil
}

// Write encodes nt inside envelope c.
func Write(w io.Writer, nt NamedTag, c Compression) error {
	cw, err := NewWriter(w, c)
	if err != nil {
		return err
	}
	if err := Encode(cw, nt); err != nil {
		_ = cw.Close()
		return err
	}
	return cw.Close()
}

// Read decodes one document from r, detecting the envelope.
func Read(r io.Reader) (NamedTag, Compression, error) {
	br := bufio.NewReaderSize(r, 64*1024)
	c, err := DetectCompression(br)
	if err != nil {
		return NamedTag{}, None, err
	}
	cr, err := NewReader(br, c)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return NamedTag{}, c, &FormatError{Msg: fmt.Sprintf("truncated %s envelope", c)}
		}
		return NamedTag{}, c, fmt.Errorf("open %s envelope: %w", c, err)
	}
	defer cr.Close()
	nt, err := Decode(cr)
	return nt, c, err
}
