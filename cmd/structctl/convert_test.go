package main

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"voxelstruct/internal/block"
	"voxelstruct/internal/config"
	"voxelstruct/internal/nbt"
	"voxelstruct/internal/persistence/indexdb"
	"voxelstruct/internal/persistence/structfile"
	"voxelstruct/internal/structcodec"
	"voxelstruct/internal/structure"
)

func writeSample(t *testing.T, path string) {
	t.Helper()
	s, err := structure.NewHashMap(structure.Size{X: 3, Y: 3, Z: 3}, nil)
	if err != nil {
		t.Fatalf("NewHashMap: %v", err)
	}
	for i, k := range []string{"minecraft:stone", "minecraft:glass", "minecraft:oak_log[axis=z]"} {
		if err := s.SetBlock(structure.Pos{X: i, Y: i, Z: i}, block.MustParse(k)); err != nil {
			t.Fatalf("SetBlock: %v", err)
		}
	}
	if _, err := structfile.WriteFile(path, s, structcodec.EncodeOptions{Author: "orig"}, nbt.None); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestConverter_RunIndexesOutputs(t *testing.T) {
	dir := t.TempDir()
	inputs := []string{filepath.Join(dir, "in", "a.nbt"), filepath.Join(dir, "in", "b.schem")}
	for _, in := range inputs {
		writeSample(t, in)
	}
	broken := filepath.Join(dir, "in", "broken.nbt")
	if err := os.WriteFile(broken, []byte{10, 0}, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	idx, err := indexdb.OpenSQLite(filepath.Join(dir, "index.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer idx.Close()

	c := &converter{
		outDir:      filepath.Join(dir, "out"),
		kind:        structure.KindOctree,
		opts:        structure.Options{Octree: structure.OctreeOptions{MinRes: 2, MaxRes: 4}},
		compression: nbt.Zstd,
		reg:         block.DefaultRegistry(),
		idx:         idx,
	}
	logger := log.New(io.Discard, "", 0)
	if err := c.run(context.Background(), append(inputs, broken), 2, logger); err != nil {
		t.Fatalf("run: %v", err)
	}
	if c.converted.Load() != 2 || c.failed.Load() != 1 {
		t.Fatalf("converted=%d failed=%d", c.converted.Load(), c.failed.Load())
	}

	for _, name := range []string{"a.nbt", "b.nbt"} {
		doc, comp, err := structfile.ReadFile(filepath.Join(dir, "out", name), structcodec.DecodeOptions{})
		if err != nil {
			t.Fatalf("ReadFile %s: %v", name, err)
		}
		if comp != nbt.Zstd || doc.Author != "orig" {
			t.Fatalf("%s: compression=%s author=%q", name, comp, doc.Author)
		}
		k, _ := doc.Structure.Block(structure.Pos{X: 2, Y: 2, Z: 2})
		if k.String() != "minecraft:oak_log[axis=z]" {
			t.Fatalf("%s: block (2,2,2) = %s", name, k)
		}
	}

	rows, err := idx.ListStructures(context.Background())
	if err != nil {
		t.Fatalf("ListStructures: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("index rows: %d want 2", len(rows))
	}
	for _, r := range rows {
		if r.Backend != "octree" || r.Compression != "zstd" || r.Blocks != 3 || r.Palette != 3 || r.SHA256 == "" {
			t.Fatalf("row: %+v", r)
		}
	}
}

func TestApplyOverrides(t *testing.T) {
	cfg := config.Defaults()
	if err := applyOverrides(&cfg, "zlib", "Dense", "x", 3, "", ""); err != nil {
		t.Fatalf("applyOverrides: %v", err)
	}
	if cfg.CompressionMode() != nbt.Zlib || cfg.Kind() != structure.KindDense || cfg.Workers != 3 || cfg.Author != "x" {
		t.Fatalf("cfg: %+v", cfg)
	}
	if err := applyOverrides(&cfg, "lz4", "", "", 0, "", ""); err == nil {
		t.Fatalf("expected error for unknown compression")
	}
}

func TestOutputPath(t *testing.T) {
	c := &converter{outDir: "/out"}
	if got := c.outputPath("/in/house.schematic"); got != filepath.Join("/out", "house.nbt") {
		t.Fatalf("outputPath: %s", got)
	}
}
