// Package structfile reads and writes structure documents on disk.
package structfile

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"voxelstruct/internal/nbt"
	"voxelstruct/internal/structcodec"
	"voxelstruct/internal/structure"
)

// Info describes a written file.
type Info struct {
	Path        string
	Compression nbt.Compression
	Bytes       int64
	SHA256      string
	Stats       structcodec.Stats
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// WriteFile serializes s to path. The document goes to a temporary file in
// the same directory which is renamed over path once fully written, so
// readers never see a partial file.
func WriteFile(path string, s structure.Structure, opts structcodec.EncodeOptions, c nbt.Compression) (Info, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Info{}, err
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return Info{}, err
	}
	tmp := f.Name()
	defer func() {
		if tmp != "" {
			_ = f.Close()
			_ = os.Remove(tmp)
		}
	}()

	sum := sha256.New()
	cw := &countingWriter{w: io.MultiWriter(f, sum)}
	bw := bufio.NewWriterSize(cw, 256*1024)
	if err := structcodec.Write(bw, s, opts, c); err != nil {
		return Info{}, fmt.Errorf("encode %s: %w", path, err)
	}
	if err := bw.Flush(); err != nil {
		return Info{}, err
	}
	if err := f.Sync(); err != nil {
		return Info{}, err
	}
	if err := f.Close(); err != nil {
		return Info{}, err
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		return Info{}, err
	}
	if err := os.Rename(tmp, path); err != nil {
		return Info{}, err
	}
	tmp = ""

	return Info{
		Path:        path,
		Compression: c,
		Bytes:       cw.n,
		SHA256:      hex.EncodeToString(sum.Sum(nil)),
		Stats:       structcodec.DocumentStats(s),
	}, nil
}

// ReadFile decodes the structure document at path. The envelope is detected
// from the file contents, not the extension.
func ReadFile(path string, opts structcodec.DecodeOptions) (*structcodec.Document, nbt.Compression, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nbt.None, err
	}
	defer f.Close()

	doc, c, err := structcodec.Read(f, opts)
	if err != nil {
		return nil, c, fmt.Errorf("read %s: %w", path, err)
	}
	return doc, c, nil
}
