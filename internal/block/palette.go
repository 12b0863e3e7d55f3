package block

// Palette assigns dense zero-based indices to distinct keys in the order
// they are first added.
type Palette struct {
	keys  []Key
	index *KeyMap[int]
}

func NewPalette() *Palette {
	return &Palette{index: NewKeyMap[int]()}
}

// Add returns the index of k, appending it when unseen.
func (p *Palette) Add(k Key) int {
	if i, ok := p.index.Get(k); ok {
		return i
	}
	i := len(p.keys)
	p.keys = append(p.keys, k)
	p.index.Put(k, i)
	return i
}

func (p *Palette) Index(k Key) (int, bool) { return p.index.Get(k) }

func (p *Palette) At(i int) Key { return p.keys[i] }

func (p *Palette) Len() int { return len(p.keys) }

// Keys returns the entries in index order.
func (p *Palette) Keys() []Key {
	out := make([]Key, len(p.keys))
	copy(out, p.keys)
	return out
}
