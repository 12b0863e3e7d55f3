// Package structure stores fixed-size 3D grids of blocks. Dense, HashMap and
// Octree implement the same Structure contract with different memory and
// speed tradeoffs.
package structure

import (
	"errors"
	"fmt"
	"iter"
	"strings"

	"voxelstruct/internal/block"
	"voxelstruct/internal/nbt"
)

var (
	ErrOutOfBounds           = errors.New("structure: position out of bounds")
	ErrUnsupportedCapability = errors.New("structure: capability not supported by backend")
	ErrEmptyCell             = errors.New("structure: cell is empty")
	ErrInvalidSize           = errors.New("structure: invalid size")
)

type Pos struct {
	X, Y, Z int
}

func (p Pos) String() string { return fmt.Sprintf("(%d,%d,%d)", p.X, p.Y, p.Z) }

type Size struct {
	X, Y, Z int
}

func (s Size) String() string { return fmt.Sprintf("%dx%dx%d", s.X, s.Y, s.Z) }

func (s Size) Volume() int { return s.X * s.Y * s.Z }

func (s Size) Contains(p Pos) bool {
	return p.X >= 0 && p.X < s.X && p.Y >= 0 && p.Y < s.Y && p.Z >= 0 && p.Z < s.Z
}

func (s Size) validate() error {
	if s.X <= 0 || s.Y <= 0 || s.Z <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidSize, s)
	}
	return nil
}

// Structure is a fixed-size grid mapping each position to air or a block
// key, with an optional metadata compound per occupied cell.
//
// Writing air (id 0 or block.Air) empties the cell and drops its metadata.
// Blocks yields occupied cells in ascending (Y, Z, X) order on every
// backend, so serialization output does not depend on the backend.
type Structure interface {
	Size() Size
	Registry() *block.Registry

	ID(p Pos) (byte, error)
	Data(p Pos) (byte, error)
	Block(p Pos) (block.Key, error)
	Has(p Pos) bool

	SetID(p Pos, id byte) error
	SetData(p Pos, data byte) error
	SetBlock(p Pos, k block.Key) error
	SetLegacy(p Pos, l block.Legacy) error
	Remove(p Pos) error

	ForEachPosition(fn func(Pos) error) error
	Blocks() iter.Seq2[Pos, block.Key]

	Meta(p Pos) (*nbt.Compound, bool)
	SetMeta(p Pos, c *nbt.Compound) error
}

// Capability selects optional per-backend storage.
type Capability uint8

const (
	CapBiome Capability = 1 << iota
	CapLight
)

// BiomeStore keeps one biome byte per (x, z) column.
type BiomeStore interface {
	Biome(x, z int) (byte, error)
	SetBiome(x, z int, biome byte) error
}

// LightStore keeps one light byte per cell.
type LightStore interface {
	Light(p Pos) (byte, error)
	SetLight(p Pos, level byte) error
}

type capable interface {
	Capabilities() Capability
}

func hasCapability(s Structure, c Capability) bool {
	cs, ok := s.(capable)
	return ok && cs.Capabilities()&c != 0
}

// AsBiomeStore returns s's biome storage, or ErrUnsupportedCapability.
func AsBiomeStore(s Structure) (BiomeStore, error) {
	bs, ok := s.(BiomeStore)
	if !ok || !hasCapability(s, CapBiome) {
		return nil, fmt.Errorf("%w: biome on %T", ErrUnsupportedCapability, s)
	}
	return bs, nil
}

// AsLightStore returns s's light storage, or ErrUnsupportedCapability.
func AsLightStore(s Structure) (LightStore, error) {
	ls, ok := s.(LightStore)
	if !ok || !hasCapability(s, CapLight) {
		return nil, fmt.Errorf("%w: light on %T", ErrUnsupportedCapability, s)
	}
	return ls, nil
}

// Kind names a backend for configuration-driven construction.
type Kind string

const (
	KindDense   Kind = "dense"
	KindHashMap Kind = "hashmap"
	KindOctree  Kind = "octree"
)

func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindDense, KindHashMap, KindOctree:
		return k, nil
	case "":
		return KindHashMap, nil
	case "map", "hash":
		return KindHashMap, nil
	case "tree":
		return KindOctree, nil
	}
	return "", fmt.Errorf("unknown structure backend %q", s)
}

type Options struct {
	Capabilities Capability // dense only
	Octree       OctreeOptions
}

// New constructs a backend of the given kind. A nil registry means
// block.DefaultRegistry().
func New(kind Kind, size Size, reg *block.Registry, opts Options) (Structure, error) {
	switch kind {
	case KindDense:
		return NewDense(size, reg, opts.Capabilities)
	case KindHashMap:
		return NewHashMap(size, reg)
	case KindOctree:
		return NewOctree(size, reg, opts.Octree)
	}
	return nil, fmt.Errorf("unknown structure backend %q", kind)
}
