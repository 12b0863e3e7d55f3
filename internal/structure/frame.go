package structure

import (
	"cmp"
	"fmt"

	"voxelstruct/internal/block"
	"voxelstruct/internal/nbt"
)

// frame holds what every backend shares: bounds, the registry and the
// metadata side channel.
type frame struct {
	size Size
	reg  *block.Registry
	meta map[Pos]*nbt.Compound
}

func newFrame(size Size, reg *block.Registry) (frame, error) {
	if err := size.validate(); err != nil {
		return frame{}, err
	}
	if reg == nil {
		reg = block.DefaultRegistry()
	}
	return frame{size: size, reg: reg, meta: map[Pos]*nbt.Compound{}}, nil
}

func (f *frame) Size() Size                { return f.size }
func (f *frame) Registry() *block.Registry { return f.reg }

func (f *frame) check(p Pos) error {
	if !f.size.Contains(p) {
		return fmt.Errorf("%w: %s in %s", ErrOutOfBounds, p, f.size)
	}
	return nil
}

func (f *frame) Meta(p Pos) (*nbt.Compound, bool) {
	c, ok := f.meta[p]
	return c, ok
}

func (f *frame) setMeta(p Pos, occupied bool, c *nbt.Compound) error {
	if err := f.check(p); err != nil {
		return err
	}
	if c == nil {
		delete(f.meta, p)
		return nil
	}
	if !occupied {
		return fmt.Errorf("%w: metadata at %s", ErrEmptyCell, p)
	}
	f.meta[p] = c
	return nil
}

func (f *frame) clearMeta(p Pos) { delete(f.meta, p) }

// ForEachPosition calls fn for every position in (Y, Z, X) order and stops
// at the first error.
func (f *frame) ForEachPosition(fn func(Pos) error) error {
	for y := 0; y < f.size.Y; y++ {
		for z := 0; z < f.size.Z; z++ {
			for x := 0; x < f.size.X; x++ {
				if err := fn(Pos{X: x, Y: y, Z: z}); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// index is the row-major cell offset shared by the array backends.
func (f *frame) index(p Pos) int {
	return (p.Y*f.size.Z+p.Z)*f.size.X + p.X
}

func comparePos(a, b Pos) int {
	if c := cmp.Compare(a.Y, b.Y); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Z, b.Z); c != 0 {
		return c
	}
	return cmp.Compare(a.X, b.X)
}

func getNibble(arr []byte, i int) byte {
	b := arr[i>>1]
	if i&1 == 0 {
		return b & 0x0f
	}
	return b >> 4
}

func setNibble(arr []byte, i int, v byte) {
	v &= 0x0f
	if i&1 == 0 {
		arr[i>>1] = arr[i>>1]&0xf0 | v
	} else {
		arr[i>>1] = arr[i>>1]&0x0f | v<<4
	}
}

func checkNibble(data byte) error {
	if data > 0x0f {
		return fmt.Errorf("structure: data %d exceeds a nibble", data)
	}
	return nil
}

// keyToLegacy resolves k for the array backends. Invalid zero keys are
// rejected rather than treated as air.
func keyToLegacy(reg *block.Registry, k block.Key) (block.Legacy, error) {
	if k.IsZero() {
		return block.Legacy{}, fmt.Errorf("structure: zero block key")
	}
	return reg.Lookup(k)
}
