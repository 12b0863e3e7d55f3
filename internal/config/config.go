// Package config loads the structctl YAML configuration.
package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"voxelstruct/internal/block"
	"voxelstruct/internal/nbt"
	"voxelstruct/internal/structure"
)

//go:embed config.schema.json
var schemaJSON []byte

const schemaURL = "https://voxelstruct.local/config.schema.json"

type Config struct {
	Author       string         `yaml:"author" json:"author"`
	Compression  string         `yaml:"compression" json:"compression"`
	Backend      string         `yaml:"backend" json:"backend"`
	Capabilities []string       `yaml:"capabilities,omitempty" json:"capabilities,omitempty"`
	Octree       OctreeSettings `yaml:"octree" json:"octree"`
	Workers      int            `yaml:"workers" json:"workers"`
	IndexDB      string         `yaml:"index_db,omitempty" json:"index_db,omitempty"`
	LogDir       string         `yaml:"log_dir,omitempty" json:"log_dir,omitempty"`
	Blocks       []BlockEntry   `yaml:"blocks,omitempty" json:"blocks,omitempty"`
}

type OctreeSettings struct {
	MinRes int `yaml:"min_res" json:"min_res"`
	MaxRes int `yaml:"max_res" json:"max_res"`
}

// BlockEntry adds a key to the legacy id table on top of the built-in one.
type BlockEntry struct {
	Key  string `yaml:"key" json:"key"`
	ID   int    `yaml:"id" json:"id"`
	Data int    `yaml:"data,omitempty" json:"data,omitempty"`
}

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		if err := c.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
			schemaErr = err
			return
		}
		schema, schemaErr = c.Compile(schemaURL)
	})
	return schema, schemaErr
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if strings.TrimSpace(path) == "" {
		cfg.Normalize()
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := checkSchema(b); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// checkSchema validates raw YAML against the embedded JSON schema. The
// document goes through JSON first so the validator sees JSON value types.
func checkSchema(b []byte) error {
	var doc any
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return err
	}
	if doc == nil {
		return nil
	}
	j, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("config is not representable as JSON: %w", err)
	}
	var v any
	if err := json.Unmarshal(j, &v); err != nil {
		return err
	}
	s, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}
	return s.Validate(v)
}

func Defaults() Config {
	return Config{
		Compression: "gzip",
		Backend:     "hashmap",
		Octree: OctreeSettings{
			MinRes: structure.DefaultOctreeMinRes,
			MaxRes: structure.DefaultOctreeMaxRes,
		},
		Workers: 4,
	}
}

func (c *Config) Normalize() {
	if c == nil {
		return
	}
	c.Compression = strings.ToLower(strings.TrimSpace(c.Compression))
	if c.Compression == "" {
		c.Compression = "gzip"
	}
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	if c.Backend == "" {
		c.Backend = "hashmap"
	}
	for i := range c.Capabilities {
		c.Capabilities[i] = strings.ToLower(strings.TrimSpace(c.Capabilities[i]))
	}
	if c.Octree.MinRes <= 0 {
		c.Octree.MinRes = structure.DefaultOctreeMinRes
	}
	if c.Octree.MaxRes <= 0 {
		c.Octree.MaxRes = max(structure.DefaultOctreeMaxRes, c.Octree.MinRes)
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	for i := range c.Blocks {
		c.Blocks[i].Key = strings.TrimSpace(c.Blocks[i].Key)
	}
}

func (c Config) Validate() error {
	c.Normalize()
	if _, err := nbt.ParseCompression(c.Compression); err != nil {
		return err
	}
	if _, err := structure.ParseKind(c.Backend); err != nil {
		return err
	}
	if _, err := c.capabilities(); err != nil {
		return err
	}
	if err := (structure.OctreeOptions{MinRes: c.Octree.MinRes, MaxRes: c.Octree.MaxRes}).Validate(); err != nil {
		return err
	}
	if c.Workers > 256 {
		return fmt.Errorf("workers must be <= 256, got %d", c.Workers)
	}
	if _, err := c.Registry(); err != nil {
		return err
	}
	return nil
}

func (c Config) capabilities() (structure.Capability, error) {
	var caps structure.Capability
	for _, name := range c.Capabilities {
		switch name {
		case "biome":
			caps |= structure.CapBiome
		case "light":
			caps |= structure.CapLight
		default:
			return 0, fmt.Errorf("unknown capability %q", name)
		}
	}
	return caps, nil
}

// Registry returns the built-in registry extended with the configured
// blocks. Configured entries are registered after the built-in ones, so a
// built-in key keeps its reverse mapping.
func (c Config) Registry() (*block.Registry, error) {
	reg := block.DefaultRegistry()
	for i, e := range c.Blocks {
		k, err := block.Parse(e.Key)
		if err != nil {
			return nil, fmt.Errorf("blocks[%d]: %w", i, err)
		}
		if e.ID < 1 || e.ID > 255 || e.Data < 0 || e.Data > 15 {
			return nil, fmt.Errorf("blocks[%d]: %s id %d:%d out of range", i, k, e.ID, e.Data)
		}
		if err := reg.Register(k, block.Legacy{ID: byte(e.ID), Data: byte(e.Data)}); err != nil {
			return nil, fmt.Errorf("blocks[%d]: %w", i, err)
		}
	}
	return reg, nil
}

func (c Config) Kind() structure.Kind {
	k, err := structure.ParseKind(c.Backend)
	if err != nil {
		return structure.KindHashMap
	}
	return k
}

func (c Config) CompressionMode() nbt.Compression {
	m, err := nbt.ParseCompression(c.Compression)
	if err != nil {
		return nbt.Gzip
	}
	return m
}

// StructureOptions maps the backend settings onto structure.Options.
func (c Config) StructureOptions() structure.Options {
	caps, _ := c.capabilities()
	return structure.Options{
		Capabilities: caps,
		Octree:       structure.OctreeOptions{MinRes: c.Octree.MinRes, MaxRes: c.Octree.MaxRes},
	}
}
