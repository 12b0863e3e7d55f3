package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"voxelstruct/internal/block"
	"voxelstruct/internal/nbt"
	"voxelstruct/internal/structure"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "structctl.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoad_EmptyPathGivesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Kind() != structure.KindHashMap || cfg.CompressionMode() != nbt.Gzip || cfg.Workers != 4 {
		t.Fatalf("defaults: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults do not validate: %v", err)
	}
}

func TestLoad_FullFile(t *testing.T) {
	path := writeConfig(t, `
author: builder
compression: zstd
backend: octree
capabilities: [biome]
octree:
  min_res: 4
  max_res: 32
workers: 8
index_db: /tmp/idx.db
log_dir: /tmp/logs
blocks:
  - key: "mymod:widget[color=red]"
    id: 210
    data: 3
  - key: mymod:gadget
    id: 211
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Author != "builder" || cfg.CompressionMode() != nbt.Zstd || cfg.Kind() != structure.KindOctree {
		t.Fatalf("cfg: %+v", cfg)
	}
	opts := cfg.StructureOptions()
	if opts.Capabilities != structure.CapBiome || opts.Octree.MinRes != 4 || opts.Octree.MaxRes != 32 {
		t.Fatalf("options: %+v", opts)
	}

	reg, err := cfg.Registry()
	if err != nil {
		t.Fatalf("Registry: %v", err)
	}
	l, err := reg.Lookup(block.MustParse("mymod:widget[color=red]"))
	if err != nil || l != (block.Legacy{ID: 210, Data: 3}) {
		t.Fatalf("widget: %v, %v", l, err)
	}
	if k := reg.Key(block.Legacy{ID: 211}); k.String() != "mymod:gadget" {
		t.Fatalf("reverse gadget: %s", k)
	}
	if _, err := reg.Lookup(block.MustParse("minecraft:stone")); err != nil {
		t.Fatalf("built-in entries lost: %v", err)
	}
}

func TestLoad_SchemaRejects(t *testing.T) {
	cases := map[string]string{
		"unknown field":       "colour: blue\n",
		"bad compression":     "compression: brotli\n",
		"bad backend":         "backend: btree\n",
		"id out of range":     "blocks:\n  - key: a:b\n    id: 300\n",
		"data out of range":   "blocks:\n  - key: a:b\n    id: 3\n    data: 16\n",
		"missing id":          "blocks:\n  - key: a:b\n",
		"workers zero":        "workers: 0\n",
		"unknown capability":  "capabilities: [sound]\n",
		"octree unknown knob": "octree:\n  depth: 3\n",
	}
	for name, body := range cases {
		if _, err := Load(writeConfig(t, body)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestLoad_ValidateRejects(t *testing.T) {
	cases := map[string]string{
		"octree not pow2":  "octree:\n  min_res: 6\n",
		"octree inverted":  "octree:\n  min_res: 32\n  max_res: 8\n",
		"bad block key":    "blocks:\n  - key: \"a:b[\"\n    id: 3\n",
		"legacy namespace": "blocks:\n  - key: legacy:5\n    id: 3\n",
	}
	for name, body := range cases {
		_, err := Load(writeConfig(t, body))
		if err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}

	_, err := Load(writeConfig(t, "blocks:\n  - key: \"a:b[\"\n    id: 3\n"))
	var se *block.SyntaxError
	if !errors.As(err, &se) {
		t.Fatalf("bad key error: %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("got %v", err)
	}
}

func TestLoad_EmptyFileKeepsDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "# nothing here\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !strings.EqualFold(cfg.Backend, "hashmap") {
		t.Fatalf("backend: %q", cfg.Backend)
	}
}

func TestLoad_RepoConfig(t *testing.T) {
	cfg, err := Load("../../configs/structctl.yaml")
	if err != nil {
		t.Fatalf("load structctl.yaml: %v", err)
	}
	reg, err := cfg.Registry()
	if err != nil {
		t.Fatalf("Registry: %v", err)
	}
	l, err := reg.Lookup(block.MustParse("minecraft:chest[facing=north]"))
	if err != nil || l != (block.Legacy{ID: 54, Data: 2}) {
		t.Fatalf("chest: %v, %v", l, err)
	}
}
