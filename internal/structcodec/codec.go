// Package structcodec converts block structures to and from the structure
// document: a root compound holding a palette of block keys and a sparse list
// of occupied cells that index into it.
package structcodec

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"voxelstruct/internal/block"
	"voxelstruct/internal/nbt"
	"voxelstruct/internal/structure"
)

// DataVersion is the only document version this package reads or writes.
const DataVersion = 1631

// Document field names.
const (
	fieldDataVersion = "DataVersion"
	fieldAuthor      = "author"
	fieldSize        = "size"
	fieldPalette     = "palette"
	fieldBlocks      = "blocks"
	fieldName        = "Name"
	fieldProperties  = "Properties"
	fieldState       = "state"
	fieldPos         = "pos"
	fieldNBT         = "nbt"
)

// SyntaxError reports a well-formed tag tree that is not a valid structure
// document.
type SyntaxError struct {
	Path string // e.g. "blocks[3].pos"
	Msg  string
	Err  error
}

func (e *SyntaxError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("structcodec: %s: %s: %v", e.Path, e.Msg, e.Err)
	}
	return fmt.Sprintf("structcodec: %s: %s", e.Path, e.Msg)
}

func (e *SyntaxError) Unwrap() error { return e.Err }

// VersionError reports a document whose DataVersion is not DataVersion.
type VersionError struct {
	Got int32
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("structcodec: unsupported DataVersion %d (want %d)", e.Got, DataVersion)
}

func syntaxErr(path, format string, args ...any) error {
	return &SyntaxError{Path: path, Msg: fmt.Sprintf(format, args...)}
}

type EncodeOptions struct {
	Author string
	// RootName names the document root. Usually empty.
	RootName string
}

type DecodeOptions struct {
	// New builds the target structure. Nil means a structure.HashMap with the
	// default registry, which keeps every key verbatim.
	New func(structure.Size) (structure.Structure, error)
}

func (o DecodeOptions) build(size structure.Size) (structure.Structure, error) {
	if o.New != nil {
		return o.New(size)
	}
	return structure.NewHashMap(size, nil)
}

// Document is a decoded structure with its header fields.
type Document struct {
	Author      string
	DataVersion int32
	Palette     []block.Key
	Structure   structure.Structure
}

// Stats summarizes a structure for reporting.
type Stats struct {
	Size     structure.Size
	Palette  int
	Blocks   int
	Metadata int
}

// DocumentStats counts the palette entries, occupied cells and metadata
// compounds Serialize would emit for s.
func DocumentStats(s structure.Structure) Stats {
	st := Stats{Size: s.Size()}
	pal := block.NewPalette()
	for p, k := range s.Blocks() {
		pal.Add(k)
		st.Blocks++
		if _, ok := s.Meta(p); ok {
			st.Metadata++
		}
	}
	st.Palette = pal.Len()
	return st
}

// Serialize builds the structure document for s. Cells are emitted in
// (Y, Z, X) order and the palette in first-seen order.
func Serialize(s structure.Structure, opts EncodeOptions) (nbt.NamedTag, error) {
	pal := block.NewPalette()
	var cells []nbt.Tag
	for p, k := range s.Blocks() {
		cell := nbt.NewCompound()
		cell.Put(fieldState, nbt.Int(pal.Add(k)))
		cell.Put(fieldPos, intList(p.X, p.Y, p.Z))
		if meta, ok := s.Meta(p); ok {
			cell.Put(fieldNBT, meta)
		}
		cells = append(cells, cell)
	}

	entries := make([]nbt.Tag, 0, pal.Len())
	for _, k := range pal.Keys() {
		entries = append(entries, paletteEntry(k))
	}

	size := s.Size()
	root := nbt.NewCompound()
	root.Put(fieldDataVersion, nbt.Int(DataVersion))
	root.Put(fieldAuthor, nbt.String(opts.Author))
	root.Put(fieldSize, intList(size.X, size.Y, size.Z))
	palList, err := compoundList(entries)
	if err != nil {
		return nbt.NamedTag{}, fmt.Errorf("structcodec: palette: %w", err)
	}
	root.Put(fieldPalette, palList)
	blockList, err := compoundList(cells)
	if err != nil {
		return nbt.NamedTag{}, fmt.Errorf("structcodec: blocks: %w", err)
	}
	root.Put(fieldBlocks, blockList)
	return nbt.NamedTag{Name: opts.RootName, Tag: root}, nil
}

func paletteEntry(k block.Key) *nbt.Compound {
	c := nbt.NewCompound()
	c.Put(fieldName, nbt.String(k.Name()))
	if k.HasState() {
		state := k.State()
		props := nbt.NewCompound()
		for _, n := range slices.Sorted(maps.Keys(state)) {
			props.Put(n, nbt.String(state[n]))
		}
		c.Put(fieldProperties, props)
	}
	return c
}

func intList(vs ...int) *nbt.List {
	items := make([]nbt.Tag, len(vs))
	for i, v := range vs {
		items[i] = nbt.Int(v)
	}
	l, _ := nbt.NewList(nbt.TypeInt, items...)
	return l
}

func compoundList(items []nbt.Tag) (*nbt.List, error) {
	if len(items) == 0 {
		return nbt.EmptyList(), nil
	}
	return nbt.NewList(nbt.TypeCompound, items...)
}

// Deserialize validates root and rebuilds the structure it describes. It
// fails on the first problem and never returns a partial structure.
func Deserialize(root nbt.NamedTag, opts DecodeOptions) (*Document, error) {
	c, ok := root.Tag.(*nbt.Compound)
	if !ok {
		return nil, syntaxErr("root", "want Compound, got %s", typeOf(root.Tag))
	}

	v, err := field[nbt.Int](c, "", fieldDataVersion)
	if err != nil {
		return nil, err
	}
	if v != DataVersion {
		return nil, &VersionError{Got: int32(v)}
	}

	doc := &Document{DataVersion: int32(v)}
	if t, ok := c.Get(fieldAuthor); ok {
		a, ok := t.(nbt.String)
		if !ok {
			return nil, syntaxErr(fieldAuthor, "want String, got %s", t.Type())
		}
		doc.Author = string(a)
	}

	size, err := readSize(c)
	if err != nil {
		return nil, err
	}
	palette, err := readPalette(c)
	if err != nil {
		return nil, err
	}
	doc.Palette = palette

	s, err := opts.build(size)
	if err != nil {
		return nil, fmt.Errorf("structcodec: build %s structure: %w", size, err)
	}
	if s.Size() != size {
		return nil, fmt.Errorf("structcodec: builder returned size %s, want %s", s.Size(), size)
	}
	if err := readBlocks(c, palette, s); err != nil {
		return nil, err
	}
	doc.Structure = s
	return doc, nil
}

func field[T nbt.Tag](c *nbt.Compound, parent, name string) (T, error) {
	var zero T
	path := name
	if parent != "" {
		path = parent + "." + name
	}
	t, ok := c.Get(name)
	if !ok {
		return zero, syntaxErr(path, "missing")
	}
	v, ok := t.(T)
	if !ok {
		return zero, syntaxErr(path, "want %s, got %s", zero.Type(), t.Type())
	}
	return v, nil
}

func typeOf(t nbt.Tag) string {
	if t == nil {
		return "nothing"
	}
	return t.Type().String()
}

// readInts accepts a three-element List<Int> or an IntArray.
func readInts(t nbt.Tag, path string) ([3]int, error) {
	var out [3]int
	switch v := t.(type) {
	case *nbt.List:
		if v.Len() != 3 {
			return out, syntaxErr(path, "want 3 elements, got %d", v.Len())
		}
		if v.ElemType() != nbt.TypeInt {
			return out, syntaxErr(path, "want List of Int, got List of %s", v.ElemType())
		}
		for i, e := range v.All() {
			out[i] = int(e.(nbt.Int))
		}
	case nbt.IntArray:
		if len(v) != 3 {
			return out, syntaxErr(path, "want 3 elements, got %d", len(v))
		}
		for i, e := range v {
			out[i] = int(e)
		}
	default:
		return out, syntaxErr(path, "want List of Int or IntArray, got %s", typeOf(t))
	}
	return out, nil
}

func readSize(c *nbt.Compound) (structure.Size, error) {
	t, ok := c.Get(fieldSize)
	if !ok {
		return structure.Size{}, syntaxErr(fieldSize, "missing")
	}
	xyz, err := readInts(t, fieldSize)
	if err != nil {
		return structure.Size{}, err
	}
	size := structure.Size{X: xyz[0], Y: xyz[1], Z: xyz[2]}
	if size.X <= 0 || size.Y <= 0 || size.Z <= 0 {
		return structure.Size{}, syntaxErr(fieldSize, "dimensions must be positive, got %s", size)
	}
	return size, nil
}

// compoundItems returns the compounds held by list field name. An empty
// list of any element type is accepted.
func compoundItems(c *nbt.Compound, name string) ([]*nbt.Compound, error) {
	l, err := field[*nbt.List](c, "", name)
	if err != nil {
		return nil, err
	}
	if l.Len() == 0 {
		return nil, nil
	}
	if l.ElemType() != nbt.TypeCompound {
		return nil, syntaxErr(name, "want List of Compound, got List of %s", l.ElemType())
	}
	out := make([]*nbt.Compound, 0, l.Len())
	for _, t := range l.All() {
		out = append(out, t.(*nbt.Compound))
	}
	return out, nil
}

func readPalette(c *nbt.Compound) ([]block.Key, error) {
	entries, err := compoundItems(c, fieldPalette)
	if err != nil {
		return nil, err
	}
	seen := block.NewPalette()
	keys := make([]block.Key, 0, len(entries))
	for i, e := range entries {
		path := fmt.Sprintf("%s[%d]", fieldPalette, i)
		k, err := readPaletteEntry(e, path)
		if err != nil {
			return nil, err
		}
		if j, dup := seen.Index(k); dup {
			return nil, syntaxErr(path, "duplicate of %s[%d] (%s)", fieldPalette, j, k)
		}
		seen.Add(k)
		keys = append(keys, k)
	}
	return keys, nil
}

func readPaletteEntry(e *nbt.Compound, path string) (block.Key, error) {
	name, err := field[nbt.String](e, path, fieldName)
	if err != nil {
		return block.Key{}, err
	}
	ns, id, ok := strings.Cut(string(name), ":")
	if !ok {
		ns, id = block.DefaultNamespace, string(name)
	}
	var state map[string]string
	if t, ok := e.Get(fieldProperties); ok {
		props, ok := t.(*nbt.Compound)
		if !ok {
			return block.Key{}, syntaxErr(path+"."+fieldProperties, "want Compound, got %s", t.Type())
		}
		state = make(map[string]string, props.Len())
		for n, v := range props.All() {
			s, ok := v.(nbt.String)
			if !ok {
				return block.Key{}, syntaxErr(path+"."+fieldProperties+"."+n, "want String, got %s", v.Type())
			}
			state[n] = string(s)
		}
	}
	k, err := block.NewKey(ns, id, state)
	if err != nil {
		return block.Key{}, &SyntaxError{Path: path + "." + fieldName, Msg: "invalid block key", Err: err}
	}
	return k, nil
}

func readBlocks(c *nbt.Compound, palette []block.Key, s structure.Structure) error {
	cells, err := compoundItems(c, fieldBlocks)
	if err != nil {
		return err
	}
	size := s.Size()
	for i, cell := range cells {
		path := fmt.Sprintf("%s[%d]", fieldBlocks, i)
		st, err := field[nbt.Int](cell, path, fieldState)
		if err != nil {
			return err
		}
		if st < 0 || int(st) >= len(palette) {
			return syntaxErr(path+"."+fieldState, "palette index %d out of range [0,%d)", st, len(palette))
		}
		pt, ok := cell.Get(fieldPos)
		if !ok {
			return syntaxErr(path+"."+fieldPos, "missing")
		}
		xyz, err := readInts(pt, path+"."+fieldPos)
		if err != nil {
			return err
		}
		p := structure.Pos{X: xyz[0], Y: xyz[1], Z: xyz[2]}
		if !size.Contains(p) {
			return syntaxErr(path+"."+fieldPos, "%s outside %s", p, size)
		}

		var meta *nbt.Compound
		if t, ok := cell.Get(fieldNBT); ok {
			if meta, ok = t.(*nbt.Compound); !ok {
				return syntaxErr(path+"."+fieldNBT, "want Compound, got %s", t.Type())
			}
		}

		if err := s.SetBlock(p, palette[st]); err != nil {
			if errors.Is(err, block.ErrUnmappedBlock) {
				return &SyntaxError{Path: path, Msg: "block not representable by this backend", Err: err}
			}
			return fmt.Errorf("structcodec: %s: %w", path, err)
		}
		if meta != nil {
			if err := s.SetMeta(p, meta); err != nil {
				return &SyntaxError{Path: path + "." + fieldNBT, Msg: "metadata on an empty cell", Err: err}
			}
		}
	}
	return nil
}
