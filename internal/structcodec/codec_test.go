package structcodec

import (
	"bytes"
	"errors"
	"testing"

	"voxelstruct/internal/block"
	"voxelstruct/internal/nbt"
	"voxelstruct/internal/structure"
)

func mustHashMap(t *testing.T, size structure.Size) *structure.HashMap {
	t.Helper()
	s, err := structure.NewHashMap(size, nil)
	if err != nil {
		t.Fatalf("NewHashMap: %v", err)
	}
	return s
}

func rootCompound(t *testing.T, nt nbt.NamedTag) *nbt.Compound {
	t.Helper()
	c, ok := nt.Tag.(*nbt.Compound)
	if !ok {
		t.Fatalf("root is %T", nt.Tag)
	}
	return c
}

func listField(t *testing.T, c *nbt.Compound, name string) *nbt.List {
	t.Helper()
	l, ok := nbt.Lookup[*nbt.List](c, name)
	if !ok {
		t.Fatalf("%s: missing or not a list", name)
	}
	return l
}

func TestSerialize_TwoBlockStructure(t *testing.T) {
	s := mustHashMap(t, structure.Size{X: 2, Y: 1, Z: 1})
	if err := s.SetBlock(structure.Pos{}, block.MustParse("minecraft:stone")); err != nil {
		t.Fatalf("SetBlock: %v", err)
	}
	if err := s.SetBlock(structure.Pos{X: 1}, block.MustParse("minecraft:oak_log[axis=y]")); err != nil {
		t.Fatalf("SetBlock: %v", err)
	}

	nt, err := Serialize(s, EncodeOptions{Author: "builder"})
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	root := rootCompound(t, nt)
	if got := root.Names(); len(got) != 5 || got[0] != "DataVersion" || got[4] != "blocks" {
		t.Fatalf("root field order: %v", got)
	}
	if v, _ := nbt.Lookup[nbt.Int](root, "DataVersion"); v != DataVersion {
		t.Fatalf("DataVersion: got %d", v)
	}

	pal := listField(t, root, "palette")
	if pal.Len() != 2 {
		t.Fatalf("palette: got %d entries", pal.Len())
	}
	logEntry := pal.At(1).(*nbt.Compound)
	if name, _ := nbt.Lookup[nbt.String](logEntry, "Name"); name != "minecraft:oak_log" {
		t.Fatalf("palette[1].Name: got %q", name)
	}
	props, ok := nbt.Lookup[*nbt.Compound](logEntry, "Properties")
	if !ok {
		t.Fatalf("palette[1].Properties missing")
	}
	if axis, _ := nbt.Lookup[nbt.String](props, "axis"); axis != "y" {
		t.Fatalf("axis: got %q", axis)
	}
	if _, ok := pal.At(0).(*nbt.Compound).Get("Properties"); ok {
		t.Fatalf("stateless palette entry carries Properties")
	}

	blocks := listField(t, root, "blocks")
	if blocks.Len() != 2 {
		t.Fatalf("blocks: got %d", blocks.Len())
	}
	for i := 0; i < 2; i++ {
		st, _ := nbt.Lookup[nbt.Int](blocks.At(i).(*nbt.Compound), "state")
		if int(st) != i {
			t.Fatalf("blocks[%d].state: got %d", i, st)
		}
	}

	doc, err := Deserialize(nt, DecodeOptions{})
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if doc.Author != "builder" || len(doc.Palette) != 2 {
		t.Fatalf("doc header: %+v", doc)
	}
	n := 0
	for p, k := range doc.Structure.Blocks() {
		want, _ := s.Block(p)
		if !k.Equal(want) {
			t.Fatalf("%s: got %s want %s", p, k, want)
		}
		n++
	}
	if n != 2 {
		t.Fatalf("occupied cells: got %d want 2", n)
	}
}

func TestRoundTrip_AllBackendsWithMetadata(t *testing.T) {
	size := structure.Size{X: 9, Y: 4, Z: 6}
	keys := []block.Key{
		block.MustParse("minecraft:stone"),
		block.MustParse("minecraft:red_wool"),
		block.MustParse("minecraft:furnace[facing=west,lit=false]"),
		block.MustParse("legacy:201[data=9]"),
	}
	for _, kind := range []structure.Kind{structure.KindDense, structure.KindHashMap, structure.KindOctree} {
		src, err := structure.New(kind, size, nil, structure.Options{})
		if err != nil {
			t.Fatalf("New(%s): %v", kind, err)
		}
		for i := 0; i < 60; i++ {
			p := structure.Pos{X: (i * 7) % size.X, Y: (i * 3) % size.Y, Z: (i * 5) % size.Z}
			if err := src.SetBlock(p, keys[i%len(keys)]); err != nil {
				t.Fatalf("%s SetBlock: %v", kind, err)
			}
		}
		sign := nbt.NewCompound()
		sign.Put("Text1", nbt.String("north"))
		sign.Put("Lines", nbt.IntArray{1, 2, 3})
		if err := src.SetMeta(structure.Pos{X: 7, Y: 1, Z: 5}, sign); err != nil {
			t.Fatalf("%s SetMeta: %v", kind, err)
		}

		var buf bytes.Buffer
		if err := Write(&buf, src, EncodeOptions{Author: "a"}, nbt.Gzip); err != nil {
			t.Fatalf("%s Write: %v", kind, err)
		}
		doc, c, err := Read(&buf, DecodeOptions{New: func(sz structure.Size) (structure.Structure, error) {
			return structure.New(kind, sz, nil, structure.Options{})
		}})
		if err != nil {
			t.Fatalf("%s Read: %v", kind, err)
		}
		if c != nbt.Gzip {
			t.Fatalf("%s compression: got %s", kind, c)
		}
		dst := doc.Structure
		err = src.ForEachPosition(func(p structure.Pos) error {
			a, _ := src.Block(p)
			b, _ := dst.Block(p)
			if !a.Equal(b) {
				t.Fatalf("%s %s: got %s want %s", kind, p, b, a)
			}
			return nil
		})
		if err != nil {
			t.Fatalf("ForEachPosition: %v", err)
		}
		got, ok := dst.Meta(structure.Pos{X: 7, Y: 1, Z: 5})
		if !ok || !nbt.Equal(got, sign) {
			t.Fatalf("%s: metadata lost", kind)
		}
		if st := DocumentStats(dst); st.Metadata != 1 || st.Palette != len(keys) {
			t.Fatalf("%s stats: %+v", kind, st)
		}
	}
}

func TestSerialize_PaletteIsCompact(t *testing.T) {
	s := mustHashMap(t, structure.Size{X: 10, Y: 10, Z: 10})
	stone := block.MustParse("minecraft:stone")
	err := s.ForEachPosition(func(p structure.Pos) error { return s.SetBlock(p, stone) })
	if err != nil {
		t.Fatalf("fill: %v", err)
	}
	nt, err := Serialize(s, EncodeOptions{})
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	root := rootCompound(t, nt)
	if n := listField(t, root, "palette").Len(); n != 1 {
		t.Fatalf("palette: got %d entries want 1", n)
	}
	if n := listField(t, root, "blocks").Len(); n != 1000 {
		t.Fatalf("blocks: got %d want 1000", n)
	}
}

func TestSerialize_EmptyStructure(t *testing.T) {
	s := mustHashMap(t, structure.Size{X: 3, Y: 3, Z: 3})
	nt, err := Serialize(s, EncodeOptions{})
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	doc, err := Deserialize(nt, DecodeOptions{})
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if doc.Structure.Size() != s.Size() || len(doc.Palette) != 0 {
		t.Fatalf("doc: %+v", doc)
	}
}

// document builds a minimal valid root that tests then break.
func document(t *testing.T, size [3]int32, palette []string, blocks ...*nbt.Compound) *nbt.Compound {
	t.Helper()
	root := nbt.NewCompound()
	root.Put("DataVersion", nbt.Int(DataVersion))
	root.Put("author", nbt.String(""))
	sz, _ := nbt.NewList(nbt.TypeInt, nbt.Int(size[0]), nbt.Int(size[1]), nbt.Int(size[2]))
	root.Put("size", sz)
	var entries []nbt.Tag
	for _, name := range palette {
		e := nbt.NewCompound()
		e.Put("Name", nbt.String(name))
		entries = append(entries, e)
	}
	pl, err := compoundList(entries)
	if err != nil {
		t.Fatalf("palette list: %v", err)
	}
	root.Put("palette", pl)
	var items []nbt.Tag
	for _, b := range blocks {
		items = append(items, b)
	}
	bl, err := compoundList(items)
	if err != nil {
		t.Fatalf("blocks list: %v", err)
	}
	root.Put("blocks", bl)
	return root
}

func cell(state int32, x, y, z int32) *nbt.Compound {
	c := nbt.NewCompound()
	c.Put("state", nbt.Int(state))
	c.Put("pos", nbt.IntArray{x, y, z})
	return c
}

func TestDeserialize_Bounds(t *testing.T) {
	pal := []string{"minecraft:stone", "minecraft:dirt", "minecraft:glass"}
	cases := []struct {
		name string
		root *nbt.Compound
	}{
		{"pos beyond size", document(t, [3]int32{5, 5, 5}, pal, cell(0, 10, 0, 0))},
		{"negative pos", document(t, [3]int32{5, 5, 5}, pal, cell(0, 0, -1, 0))},
		{"state beyond palette", document(t, [3]int32{5, 5, 5}, pal, cell(7, 0, 0, 0))},
		{"negative state", document(t, [3]int32{5, 5, 5}, pal, cell(-1, 0, 0, 0))},
		{"zero size", document(t, [3]int32{5, 0, 5}, pal)},
	}
	for _, tc := range cases {
		_, err := Deserialize(nbt.NamedTag{Tag: tc.root}, DecodeOptions{})
		var se *SyntaxError
		if !errors.As(err, &se) {
			t.Fatalf("%s: got %v, want *SyntaxError", tc.name, err)
		}
	}
}

func TestDeserialize_VersionGate(t *testing.T) {
	for _, v := range []int32{100, DataVersion - 1, DataVersion + 1, 9999} {
		root := document(t, [3]int32{1, 1, 1}, nil)
		root.Put("DataVersion", nbt.Int(v))
		_, err := Deserialize(nbt.NamedTag{Tag: root}, DecodeOptions{})
		var ve *VersionError
		if !errors.As(err, &ve) || ve.Got != v {
			t.Fatalf("DataVersion %d: got %v", v, err)
		}
	}
}

func TestDeserialize_MissingOrMistypedFields(t *testing.T) {
	mutations := map[string]func(c *nbt.Compound){
		"size of bytes":    func(c *nbt.Compound) { c.Put("size", nbt.ByteArray{1, 1, 1}) },
		"size of two":      func(c *nbt.Compound) { c.Put("size", nbt.IntArray{1, 1}) },
		"author not text":  func(c *nbt.Compound) { c.Put("author", nbt.Int(3)) },
		"version as long":  func(c *nbt.Compound) { c.Put("DataVersion", nbt.Long(DataVersion)) },
		"palette as array": func(c *nbt.Compound) { c.Put("palette", nbt.IntArray{}) },
		"palette of ints": func(c *nbt.Compound) {
			l, _ := nbt.NewList(nbt.TypeInt, nbt.Int(1))
			c.Put("palette", l)
		},
		"palette entry without Name": func(c *nbt.Compound) {
			l, _ := nbt.NewList(nbt.TypeCompound, nbt.NewCompound())
			c.Put("palette", l)
		},
		"property not text": func(c *nbt.Compound) {
			e := nbt.NewCompound()
			e.Put("Name", nbt.String("minecraft:oak_log"))
			props := nbt.NewCompound()
			props.Put("axis", nbt.Byte(1))
			e.Put("Properties", props)
			l, _ := nbt.NewList(nbt.TypeCompound, e)
			c.Put("palette", l)
		},
		"bad key": func(c *nbt.Compound) {
			e := nbt.NewCompound()
			e.Put("Name", nbt.String("minecraft:"))
			l, _ := nbt.NewList(nbt.TypeCompound, e)
			c.Put("palette", l)
		},
		"block without pos": func(c *nbt.Compound) {
			b := nbt.NewCompound()
			b.Put("state", nbt.Int(0))
			l, _ := nbt.NewList(nbt.TypeCompound, b)
			c.Put("blocks", l)
		},
		"nbt not compound": func(c *nbt.Compound) {
			b := cell(0, 0, 0, 0)
			b.Put("nbt", nbt.String("x"))
			l, _ := nbt.NewList(nbt.TypeCompound, b)
			c.Put("blocks", l)
		},
	}
	for name, mutate := range mutations {
		root := document(t, [3]int32{2, 2, 2}, []string{"minecraft:stone"})
		mutate(root)
		_, err := Deserialize(nbt.NamedTag{Tag: root}, DecodeOptions{})
		var se *SyntaxError
		if !errors.As(err, &se) {
			t.Fatalf("%s: got %v, want *SyntaxError", name, err)
		}
	}

	for _, name := range []string{"DataVersion", "size", "palette", "blocks"} {
		root := dropField(document(t, [3]int32{2, 2, 2}, nil), name)
		_, err := Deserialize(nbt.NamedTag{Tag: root}, DecodeOptions{})
		var se *SyntaxError
		if !errors.As(err, &se) {
			t.Fatalf("without %s: got %v, want *SyntaxError", name, err)
		}
	}

	if _, err := Deserialize(nbt.NamedTag{Tag: nbt.Int(1)}, DecodeOptions{}); err == nil {
		t.Fatalf("non-compound root accepted")
	}
}

func dropField(c *nbt.Compound, name string) *nbt.Compound {
	out := nbt.NewCompound()
	for n, t := range c.All() {
		if n != name {
			out.Put(n, t)
		}
	}
	return out
}

func TestDeserialize_NameWithoutNamespace(t *testing.T) {
	root := document(t, [3]int32{1, 1, 1}, []string{"stone"}, cell(0, 0, 0, 0))
	doc, err := Deserialize(nbt.NamedTag{Tag: root}, DecodeOptions{})
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if k := doc.Palette[0]; k.Namespace() != block.DefaultNamespace || k.ID() != "stone" {
		t.Fatalf("palette[0]: %s", k)
	}
}

func TestDeserialize_UnmappedKeyOnDense(t *testing.T) {
	root := document(t, [3]int32{1, 1, 1}, []string{"mymod:widget"}, cell(0, 0, 0, 0))
	_, err := Deserialize(nbt.NamedTag{Tag: root}, DecodeOptions{New: func(sz structure.Size) (structure.Structure, error) {
		return structure.NewDense(sz, nil, 0)
	}})
	var se *SyntaxError
	if !errors.As(err, &se) || !errors.Is(err, block.ErrUnmappedBlock) {
		t.Fatalf("got %v", err)
	}
}

func TestDeserialize_OversizedOctreeIsRejected(t *testing.T) {
	const huge = 1<<31 - 1
	root := document(t, [3]int32{huge, huge, huge}, []string{"minecraft:stone"}, cell(0, 0, 0, 0))
	_, err := Deserialize(nbt.NamedTag{Tag: root}, DecodeOptions{New: func(sz structure.Size) (structure.Structure, error) {
		return structure.NewOctree(sz, nil, structure.OctreeOptions{})
	}})
	if !errors.Is(err, structure.ErrInvalidSize) {
		t.Fatalf("got %v, want ErrInvalidSize", err)
	}
}

func TestDeserialize_DuplicatePaletteEntry(t *testing.T) {
	root := document(t, [3]int32{2, 1, 1}, []string{"minecraft:stone", "minecraft:glass", "stone"},
		cell(0, 0, 0, 0), cell(2, 1, 0, 0))
	_, err := Deserialize(nbt.NamedTag{Tag: root}, DecodeOptions{})
	var se *SyntaxError
	if !errors.As(err, &se) || se.Path != "palette[2]" {
		t.Fatalf("got %v, want SyntaxError at palette[2]", err)
	}
}

func TestRead_FormatErrorBubbles(t *testing.T) {
	_, _, err := Read(bytes.NewReader([]byte{10, 0, 0, 3, 0}), DecodeOptions{})
	var fe *nbt.FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("got %v, want *nbt.FormatError", err)
	}
}
