package structure

import (
	"fmt"
	"iter"
	"math/bits"
	"slices"

	"voxelstruct/internal/block"
	"voxelstruct/internal/nbt"
)

const (
	DefaultOctreeMinRes = 8
	DefaultOctreeMaxRes = 64

	// MaxOctreeRoots caps the top-level root grid of an Octree.
	MaxOctreeRoots = 1 << 20

	noNode int32 = -1
)

// OctreeOptions bounds the octree resolution. Zero values select the
// defaults; both must be powers of two with MinRes <= MaxRes.
type OctreeOptions struct {
	MinRes int // leaf edge
	MaxRes int // upper bound on the root edge
}

// Validate reports whether o, after defaults, describes a usable tree.
func (o OctreeOptions) Validate() error {
	_, err := o.withDefaults()
	return err
}

func (o OctreeOptions) withDefaults() (OctreeOptions, error) {
	if o.MinRes == 0 {
		o.MinRes = DefaultOctreeMinRes
	}
	if o.MaxRes == 0 {
		o.MaxRes = max(DefaultOctreeMaxRes, o.MinRes)
	}
	if o.MinRes < 1 || bits.OnesCount(uint(o.MinRes)) != 1 {
		return o, fmt.Errorf("structure: octree min_res %d is not a power of two", o.MinRes)
	}
	if o.MaxRes < o.MinRes || bits.OnesCount(uint(o.MaxRes)) != 1 {
		return o, fmt.Errorf("structure: octree max_res %d must be a power of two >= min_res %d", o.MaxRes, o.MinRes)
	}
	return o, nil
}

type octNode struct {
	edge     int32
	leaf     int32 // index into Octree.leaves; noNode for internal nodes
	children [8]int32
}

type octLeaf struct {
	ids  []byte
	data []byte
}

// Octree keeps a grid of lazily allocated root cubes. Internal nodes split
// into up to eight lazily allocated children until the leaf edge, where ids
// and data nibbles are stored flat.
//
// Nodes live in an arena and refer to each other by index. Allocation only
// ever grows: writing air does not free or prune nodes. That keeps clustered
// writes cheap and wastes memory on scattered clear-then-reuse patterns.
type Octree struct {
	frame
	minRes     int
	minShift   int
	res        int // root edge
	gx, gy, gz int // roots per axis
	roots      []int32
	nodes      []octNode
	leaves     []octLeaf
}

// OctreeStats is computed by walking the tree.
type OctreeStats struct {
	Resolution      int // root edge
	LeafResolution  int
	Roots           int
	Nodes           int
	Leaves          int
	AllocatedVolume int // cells backed by leaf storage
}

func NewOctree(size Size, reg *block.Registry, opts OctreeOptions) (*Octree, error) {
	f, err := newFrame(size, reg)
	if err != nil {
		return nil, err
	}
	opts, err = opts.withDefaults()
	if err != nil {
		return nil, err
	}
	res := nextPow2(max(size.X, size.Y, size.Z))
	res = max(min(res, opts.MaxRes), opts.MinRes)

	gx, gy, gz := ceilDiv(size.X, res), ceilDiv(size.Y, res), ceilDiv(size.Z, res)
	if gx > MaxOctreeRoots/gy || gx*gy > MaxOctreeRoots/gz {
		return nil, fmt.Errorf("%w: %s needs more than %d octree roots at resolution %d", ErrInvalidSize, size, MaxOctreeRoots, res)
	}

	o := &Octree{
		frame:    f,
		minRes:   opts.MinRes,
		minShift: bits.TrailingZeros(uint(opts.MinRes)),
		res:      res,
		gx:       gx,
		gy:       gy,
		gz:       gz,
	}
	o.roots = make([]int32, o.gx*o.gy*o.gz)
	for i := range o.roots {
		o.roots[i] = noNode
	}
	return o, nil
}

func nextPow2(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

func ceilDiv(a, b int) int { return (a + b - 1) / b }

// Resolution is the root edge length.
func (o *Octree) Resolution() int { return o.res }

func (o *Octree) rootIndex(p Pos) int {
	return ((p.Y/o.res)*o.gz+p.Z/o.res)*o.gx + p.X/o.res
}

func (o *Octree) newNode(edge int) int32 {
	n := octNode{edge: int32(edge), leaf: noNode}
	for i := range n.children {
		n.children[i] = noNode
	}
	if edge == o.minRes {
		vol := o.minRes * o.minRes * o.minRes
		o.leaves = append(o.leaves, octLeaf{
			ids:  make([]byte, vol),
			data: make([]byte, (vol+1)/2),
		})
		n.leaf = int32(len(o.leaves) - 1)
	}
	o.nodes = append(o.nodes, n)
	return int32(len(o.nodes) - 1)
}

func childIndex(lx, ly, lz, half int) int {
	s := bits.TrailingZeros(uint(half))
	return (lx>>s)&1 | ((ly>>s)&1)<<1 | ((lz>>s)&1)<<2
}

func (o *Octree) leafIndex(p Pos) int {
	m := o.minRes - 1
	return (p.Y&m)<<(2*o.minShift) | (p.Z&m)<<o.minShift | p.X&m
}

// find locates the leaf cell for p without allocating. It returns noNode
// when any node on the path is absent.
func (o *Octree) find(p Pos) (int32, int) {
	n := o.roots[o.rootIndex(p)]
	lx, ly, lz := p.X&(o.res-1), p.Y&(o.res-1), p.Z&(o.res-1)
	for n != noNode {
		node := &o.nodes[n]
		if node.leaf != noNode {
			return node.leaf, o.leafIndex(p)
		}
		n = node.children[childIndex(lx, ly, lz, int(node.edge>>1))]
	}
	return noNode, 0
}

// findOrAlloc is find that allocates missing nodes along the path.
func (o *Octree) findOrAlloc(p Pos) (int32, int) {
	ri := o.rootIndex(p)
	if o.roots[ri] == noNode {
		o.roots[ri] = o.newNode(o.res)
	}
	n := o.roots[ri]
	lx, ly, lz := p.X&(o.res-1), p.Y&(o.res-1), p.Z&(o.res-1)
	for {
		if leaf := o.nodes[n].leaf; leaf != noNode {
			return leaf, o.leafIndex(p)
		}
		half := int(o.nodes[n].edge >> 1)
		c := childIndex(lx, ly, lz, half)
		child := o.nodes[n].children[c]
		if child == noNode {
			// newNode may grow the arena; index o.nodes again afterwards.
			child = o.newNode(half)
			o.nodes[n].children[c] = child
		}
		n = child
	}
}

func (o *Octree) get(p Pos) block.Legacy {
	leaf, i := o.find(p)
	if leaf == noNode {
		return block.Legacy{}
	}
	l := &o.leaves[leaf]
	return block.Legacy{ID: l.ids[i], Data: getNibble(l.data, i)}
}

func (o *Octree) ID(p Pos) (byte, error) {
	if err := o.check(p); err != nil {
		return 0, err
	}
	return o.get(p).ID, nil
}

func (o *Octree) Data(p Pos) (byte, error) {
	if err := o.check(p); err != nil {
		return 0, err
	}
	l := o.get(p)
	if l.ID == 0 {
		return 0, nil
	}
	return l.Data, nil
}

func (o *Octree) Block(p Pos) (block.Key, error) {
	if err := o.check(p); err != nil {
		return block.Key{}, err
	}
	return o.reg.Key(o.get(p)), nil
}

func (o *Octree) Has(p Pos) bool {
	return o.size.Contains(p) && o.get(p).ID != 0
}

func (o *Octree) SetID(p Pos, id byte) error {
	if err := o.check(p); err != nil {
		return err
	}
	if id == 0 {
		return o.Remove(p)
	}
	leaf, i := o.findOrAlloc(p)
	o.leaves[leaf].ids[i] = id
	return nil
}

func (o *Octree) SetData(p Pos, data byte) error {
	if err := o.check(p); err != nil {
		return err
	}
	if err := checkNibble(data); err != nil {
		return err
	}
	leaf, i := o.find(p)
	if leaf == noNode || o.leaves[leaf].ids[i] == 0 {
		return nil
	}
	setNibble(o.leaves[leaf].data, i, data)
	return nil
}

func (o *Octree) SetBlock(p Pos, k block.Key) error {
	if err := o.check(p); err != nil {
		return err
	}
	l, err := keyToLegacy(o.reg, k)
	if err != nil {
		return err
	}
	return o.SetLegacy(p, l)
}

func (o *Octree) SetLegacy(p Pos, l block.Legacy) error {
	if err := o.check(p); err != nil {
		return err
	}
	if err := checkNibble(l.Data); err != nil {
		return err
	}
	if l.ID == 0 {
		return o.Remove(p)
	}
	leaf, i := o.findOrAlloc(p)
	o.leaves[leaf].ids[i] = l.ID
	setNibble(o.leaves[leaf].data, i, l.Data)
	return nil
}

// Remove empties the cell. Nodes stay allocated, and absent nodes are not
// created just to store air.
func (o *Octree) Remove(p Pos) error {
	if err := o.check(p); err != nil {
		return err
	}
	o.clearMeta(p)
	leaf, i := o.find(p)
	if leaf == noNode {
		return nil
	}
	o.leaves[leaf].ids[i] = 0
	setNibble(o.leaves[leaf].data, i, 0)
	return nil
}

func (o *Octree) SetMeta(p Pos, c *nbt.Compound) error {
	return o.setMeta(p, o.Has(p), c)
}

func (o *Octree) rootOrigin(ri int) Pos {
	return Pos{
		X: (ri % o.gx) * o.res,
		Z: (ri / o.gx % o.gz) * o.res,
		Y: ri / (o.gx * o.gz) * o.res,
	}
}

// walk visits every allocated node depth-first with its origin.
func (o *Octree) walk(fn func(n int32, origin Pos)) {
	var visit func(n int32, origin Pos)
	visit = func(n int32, origin Pos) {
		fn(n, origin)
		node := &o.nodes[n]
		if node.leaf != noNode {
			return
		}
		half := int(node.edge >> 1)
		for c, child := range node.children {
			if child == noNode {
				continue
			}
			visit(child, Pos{
				X: origin.X + half*(c&1),
				Y: origin.Y + half*(c>>1&1),
				Z: origin.Z + half*(c>>2&1),
			})
		}
	}
	for ri, r := range o.roots {
		if r != noNode {
			visit(r, o.rootOrigin(ri))
		}
	}
}

func (o *Octree) Blocks() iter.Seq2[Pos, block.Key] {
	return func(yield func(Pos, block.Key) bool) {
		type cell struct {
			p Pos
			l block.Legacy
		}
		var cells []cell
		m := o.minRes
		o.walk(func(n int32, origin Pos) {
			li := o.nodes[n].leaf
			if li == noNode {
				return
			}
			leaf := &o.leaves[li]
			for i, id := range leaf.ids {
				if id == 0 {
					continue
				}
				cells = append(cells, cell{
					p: Pos{X: origin.X + i%m, Z: origin.Z + i/m%m, Y: origin.Y + i/(m*m)},
					l: block.Legacy{ID: id, Data: getNibble(leaf.data, i)},
				})
			}
		})
		slices.SortFunc(cells, func(a, b cell) int { return comparePos(a.p, b.p) })
		for _, c := range cells {
			if !yield(c.p, o.reg.Key(c.l)) {
				return
			}
		}
	}
}

// Stats walks the tree and reports its allocation.
func (o *Octree) Stats() OctreeStats {
	s := OctreeStats{Resolution: o.res, LeafResolution: o.minRes}
	leafVol := o.minRes * o.minRes * o.minRes
	for _, r := range o.roots {
		if r != noNode {
			s.Roots++
		}
	}
	o.walk(func(n int32, _ Pos) {
		s.Nodes++
		if o.nodes[n].leaf != noNode {
			s.Leaves++
			s.AllocatedVolume += leafVol
		}
	})
	return s
}
