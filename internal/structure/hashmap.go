package structure

import (
	"fmt"
	"iter"
	"maps"
	"slices"

	"voxelstruct/internal/block"
	"voxelstruct/internal/nbt"
)

// HashMap stores only occupied cells. Memory is O(occupied cells). Keys the
// registry cannot map are kept verbatim; their ID and Data report
// block.ErrUnmappedBlock.
type HashMap struct {
	frame
	cells map[Pos]block.Key
}

func NewHashMap(size Size, reg *block.Registry) (*HashMap, error) {
	f, err := newFrame(size, reg)
	if err != nil {
		return nil, err
	}
	return &HashMap{frame: f, cells: map[Pos]block.Key{}}, nil
}

// Len is the number of occupied cells.
func (h *HashMap) Len() int { return len(h.cells) }

func (h *HashMap) legacy(p Pos) (block.Legacy, bool, error) {
	k, ok := h.cells[p]
	if !ok {
		return block.Legacy{}, false, nil
	}
	l, err := h.reg.Lookup(k)
	if err != nil {
		return block.Legacy{}, true, fmt.Errorf("%s: %w", p, err)
	}
	return l, true, nil
}

func (h *HashMap) ID(p Pos) (byte, error) {
	if err := h.check(p); err != nil {
		return 0, err
	}
	l, _, err := h.legacy(p)
	return l.ID, err
}

func (h *HashMap) Data(p Pos) (byte, error) {
	if err := h.check(p); err != nil {
		return 0, err
	}
	l, _, err := h.legacy(p)
	return l.Data, err
}

func (h *HashMap) Block(p Pos) (block.Key, error) {
	if err := h.check(p); err != nil {
		return block.Key{}, err
	}
	if k, ok := h.cells[p]; ok {
		return k, nil
	}
	return block.Air, nil
}

func (h *HashMap) Has(p Pos) bool {
	_, ok := h.cells[p]
	return ok
}

func (h *HashMap) SetID(p Pos, id byte) error {
	if err := h.check(p); err != nil {
		return err
	}
	if id == 0 {
		return h.Remove(p)
	}
	l, _, err := h.legacy(p)
	if err != nil {
		return err
	}
	l.ID = id
	return h.SetLegacy(p, l)
}

func (h *HashMap) SetData(p Pos, data byte) error {
	if err := h.check(p); err != nil {
		return err
	}
	if err := checkNibble(data); err != nil {
		return err
	}
	l, occupied, err := h.legacy(p)
	if err != nil || !occupied {
		return err
	}
	l.Data = data
	return h.SetLegacy(p, l)
}

func (h *HashMap) SetBlock(p Pos, k block.Key) error {
	if err := h.check(p); err != nil {
		return err
	}
	if k.IsZero() {
		return fmt.Errorf("structure: zero block key")
	}
	// Mappable keys are stored in the form the array backends report.
	if c, err := h.reg.Canonical(k); err == nil {
		k = c
	} else if k.Namespace() == block.LegacyNamespace {
		return err
	}
	if k.IsAir() {
		return h.Remove(p)
	}
	h.cells[p] = k
	return nil
}

func (h *HashMap) SetLegacy(p Pos, l block.Legacy) error {
	if err := h.check(p); err != nil {
		return err
	}
	if err := checkNibble(l.Data); err != nil {
		return err
	}
	if l.ID == 0 {
		return h.Remove(p)
	}
	h.cells[p] = h.reg.Key(l)
	return nil
}

func (h *HashMap) Remove(p Pos) error {
	if err := h.check(p); err != nil {
		return err
	}
	delete(h.cells, p)
	h.clearMeta(p)
	return nil
}

func (h *HashMap) SetMeta(p Pos, c *nbt.Compound) error {
	return h.setMeta(p, h.Has(p), c)
}

func (h *HashMap) Blocks() iter.Seq2[Pos, block.Key] {
	return func(yield func(Pos, block.Key) bool) {
		for _, p := range slices.SortedFunc(maps.Keys(h.cells), comparePos) {
			if !yield(p, h.cells[p]) {
				return
			}
		}
	}
}
