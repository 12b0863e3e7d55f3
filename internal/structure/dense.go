package structure

import (
	"fmt"
	"iter"

	"voxelstruct/internal/block"
	"voxelstruct/internal/nbt"
)

// MaxDenseVolume caps the cell count of a Dense structure.
const MaxDenseVolume = 1 << 30

// Dense keeps one id byte and one data nibble per cell in flat arrays. Access
// is O(1); memory is O(volume) whatever the occupancy.
type Dense struct {
	frame
	caps   Capability
	ids    []byte
	data   []byte
	biomes []byte // one per (x, z) column, CapBiome only
	light  []byte // one per cell, CapLight only
}

func NewDense(size Size, reg *block.Registry, caps Capability) (*Dense, error) {
	f, err := newFrame(size, reg)
	if err != nil {
		return nil, err
	}
	if size.X > MaxDenseVolume/size.Y || size.X*size.Y > MaxDenseVolume/size.Z {
		return nil, fmt.Errorf("%w: %s exceeds dense limit of %d cells", ErrInvalidSize, size, MaxDenseVolume)
	}
	vol := size.Volume()
	d := &Dense{
		frame: f,
		caps:  caps,
		ids:   make([]byte, vol),
		data:  make([]byte, (vol+1)/2),
	}
	if caps&CapBiome != 0 {
		d.biomes = make([]byte, size.X*size.Z)
	}
	if caps&CapLight != 0 {
		d.light = make([]byte, vol)
	}
	return d, nil
}

func (d *Dense) Capabilities() Capability { return d.caps }

func (d *Dense) ID(p Pos) (byte, error) {
	if err := d.check(p); err != nil {
		return 0, err
	}
	return d.ids[d.index(p)], nil
}

func (d *Dense) Data(p Pos) (byte, error) {
	if err := d.check(p); err != nil {
		return 0, err
	}
	i := d.index(p)
	if d.ids[i] == 0 {
		return 0, nil
	}
	return getNibble(d.data, i), nil
}

func (d *Dense) Block(p Pos) (block.Key, error) {
	if err := d.check(p); err != nil {
		return block.Key{}, err
	}
	i := d.index(p)
	return d.reg.Key(block.Legacy{ID: d.ids[i], Data: getNibble(d.data, i)}), nil
}

func (d *Dense) Has(p Pos) bool {
	return d.size.Contains(p) && d.ids[d.index(p)] != 0
}

func (d *Dense) SetID(p Pos, id byte) error {
	if err := d.check(p); err != nil {
		return err
	}
	if id == 0 {
		return d.Remove(p)
	}
	d.ids[d.index(p)] = id
	return nil
}

func (d *Dense) SetData(p Pos, data byte) error {
	if err := d.check(p); err != nil {
		return err
	}
	if err := checkNibble(data); err != nil {
		return err
	}
	i := d.index(p)
	if d.ids[i] == 0 {
		return nil
	}
	setNibble(d.data, i, data)
	return nil
}

func (d *Dense) SetBlock(p Pos, k block.Key) error {
	if err := d.check(p); err != nil {
		return err
	}
	l, err := keyToLegacy(d.reg, k)
	if err != nil {
		return err
	}
	return d.SetLegacy(p, l)
}

func (d *Dense) SetLegacy(p Pos, l block.Legacy) error {
	if err := d.check(p); err != nil {
		return err
	}
	if err := checkNibble(l.Data); err != nil {
		return err
	}
	if l.ID == 0 {
		return d.Remove(p)
	}
	i := d.index(p)
	d.ids[i] = l.ID
	setNibble(d.data, i, l.Data)
	return nil
}

func (d *Dense) Remove(p Pos) error {
	if err := d.check(p); err != nil {
		return err
	}
	i := d.index(p)
	d.ids[i] = 0
	setNibble(d.data, i, 0)
	d.clearMeta(p)
	return nil
}

func (d *Dense) SetMeta(p Pos, c *nbt.Compound) error {
	return d.setMeta(p, d.Has(p), c)
}

func (d *Dense) Blocks() iter.Seq2[Pos, block.Key] {
	return func(yield func(Pos, block.Key) bool) {
		sx, sz := d.size.X, d.size.Z
		for i, id := range d.ids {
			if id == 0 {
				continue
			}
			p := Pos{X: i % sx, Z: (i / sx) % sz, Y: i / (sx * sz)}
			if !yield(p, d.reg.Key(block.Legacy{ID: id, Data: getNibble(d.data, i)})) {
				return
			}
		}
	}
}

func (d *Dense) Biome(x, z int) (byte, error) {
	i, err := d.columnIndex(x, z)
	if err != nil {
		return 0, err
	}
	return d.biomes[i], nil
}

func (d *Dense) SetBiome(x, z int, biome byte) error {
	i, err := d.columnIndex(x, z)
	if err != nil {
		return err
	}
	d.biomes[i] = biome
	return nil
}

func (d *Dense) columnIndex(x, z int) (int, error) {
	if d.caps&CapBiome == 0 {
		return 0, fmt.Errorf("%w: dense structure built without biomes", ErrUnsupportedCapability)
	}
	if x < 0 || x >= d.size.X || z < 0 || z >= d.size.Z {
		return 0, fmt.Errorf("%w: column (%d,%d) in %s", ErrOutOfBounds, x, z, d.size)
	}
	return z*d.size.X + x, nil
}

func (d *Dense) Light(p Pos) (byte, error) {
	if d.caps&CapLight == 0 {
		return 0, fmt.Errorf("%w: dense structure built without light", ErrUnsupportedCapability)
	}
	if err := d.check(p); err != nil {
		return 0, err
	}
	return d.light[d.index(p)], nil
}

func (d *Dense) SetLight(p Pos, level byte) error {
	if d.caps&CapLight == 0 {
		return fmt.Errorf("%w: dense structure built without light", ErrUnsupportedCapability)
	}
	if err := d.check(p); err != nil {
		return err
	}
	d.light[d.index(p)] = level
	return nil
}
