// Package nbt implements the named binary tag format: an immutable tree of
// typed values and the big-endian codec that reads and writes it.
package nbt

import (
	"fmt"
	"iter"
	"slices"
)

// Type is the one-byte tag type id used on the wire.
type Type byte

const (
	TypeEnd Type = iota
	TypeByte
	TypeShort
	TypeInt
	TypeLong
	TypeFloat
	TypeDouble
	TypeByteArray
	TypeString
	TypeList
	TypeCompound
	TypeIntArray
	TypeLongArray
)

var typeNames = [...]string{
	TypeEnd:       "End",
	TypeByte:      "Byte",
	TypeShort:     "Short",
	TypeInt:       "Int",
	TypeLong:      "Long",
	TypeFloat:     "Float",
	TypeDouble:    "Double",
	TypeByteArray: "ByteArray",
	TypeString:    "String",
	TypeList:      "List",
	TypeCompound:  "Compound",
	TypeIntArray:  "IntArray",
	TypeLongArray: "LongArray",
}

func (t Type) String() string {
	if t.Valid() {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", byte(t))
}

// Valid reports whether t is a known type id.
func (t Type) Valid() bool { return t <= TypeLongArray }

// Tag is a closed sum type; only the types in this package implement it.
type Tag interface {
	Type() Type
	isTag()
}

type (
	End       struct{}
	Byte      int8
	Short     int16
	Int       int32
	Long      int64
	Float     float32
	Double    float64
	ByteArray []byte
	String    string
	IntArray  []int32
	LongArray []int64
)

func (End) Type() Type       { return TypeEnd }
func (Byte) Type() Type      { return TypeByte }
func (Short) Type() Type     { return TypeShort }
func (Int) Type() Type       { return TypeInt }
func (Long) Type() Type      { return TypeLong }
func (Float) Type() Type     { return TypeFloat }
func (Double) Type() Type    { return TypeDouble }
func (ByteArray) Type() Type { return TypeByteArray }
func (String) Type() Type    { return TypeString }
func (IntArray) Type() Type  { return TypeIntArray }
func (LongArray) Type() Type { return TypeLongArray }
func (*List) Type() Type     { return TypeList }
func (*Compound) Type() Type { return TypeCompound }

func (End) isTag()       {}
func (Byte) isTag()      {}
func (Short) isTag()     {}
func (Int) isTag()       {}
func (Long) isTag()      {}
func (Float) isTag()     {}
func (Double) isTag()    {}
func (ByteArray) isTag() {}
func (String) isTag()    {}
func (IntArray) isTag()  {}
func (LongArray) isTag() {}
func (*List) isTag()     {}
func (*Compound) isTag() {}

// NamedTag pairs a tag with its name. Only the document root and compound
// entries carry names.
type NamedTag struct {
	Name string
	Tag  Tag
}

// List is a homogeneous ordered sequence of unnamed tags. It cannot be
// modified after construction.
type List struct {
	elem  Type
	items []Tag
}

// NewList builds a list whose items all have type elem. End is never a legal
// element; an empty list may still declare End as its element type.
func NewList(elem Type, items ...Tag) (*List, error) {
	if !elem.Valid() {
		return nil, fmt.Errorf("nbt: list element type %d is unknown", byte(elem))
	}
	if elem == TypeEnd && len(items) > 0 {
		return nil, fmt.Errorf("nbt: list of End cannot hold %d elements", len(items))
	}
	for i, it := range items {
		if isNil(it) {
			return nil, fmt.Errorf("nbt: list element %d is nil", i)
		}
		if it.Type() != elem {
			return nil, fmt.Errorf("nbt: list element %d is %s, want %s", i, it.Type(), elem)
		}
	}
	return &List{elem: elem, items: slices.Clone(items)}, nil
}

// isNil also catches a nil *List or *Compound stored in the interface.
func isNil(t Tag) bool {
	switch v := t.(type) {
	case nil:
		return true
	case *List:
		return v == nil
	case *Compound:
		return v == nil
	}
	return false
}

// EmptyList returns a list with no items and End as its element type.
func EmptyList() *List { return &List{elem: TypeEnd} }

func (l *List) ElemType() Type { return l.elem }
func (l *List) Len() int       { return len(l.items) }
func (l *List) At(i int) Tag   { return l.items[i] }

// All yields the list items in order.
func (l *List) All() iter.Seq2[int, Tag] {
	return func(yield func(int, Tag) bool) {
		for i, t := range l.items {
			if !yield(i, t) {
				return
			}
		}
	}
}

// Compound maps unique names to tags and remembers insertion order. Put on an
// existing name replaces the value in place, so the later of two duplicate
// entries wins while the first position is kept.
type Compound struct {
	names   []string
	entries map[string]Tag
}

func NewCompound() *Compound {
	return &Compound{entries: map[string]Tag{}}
}

// Put stores t under name. t must not be nil or End.
func (c *Compound) Put(name string, t Tag) {
	if isNil(t) {
		panic("nbt: Put of nil tag")
	}
	if t.Type() == TypeEnd {
		panic("nbt: Put of End tag")
	}
	if c.entries == nil {
		c.entries = map[string]Tag{}
	}
	if _, ok := c.entries[name]; !ok {
		c.names = append(c.names, name)
	}
	c.entries[name] = t
}

func (c *Compound) Get(name string) (Tag, bool) {
	t, ok := c.entries[name]
	return t, ok
}

func (c *Compound) Len() int { return len(c.names) }

// Names returns the entry names in insertion order.
func (c *Compound) Names() []string { return slices.Clone(c.names) }

// All yields the entries in insertion order.
func (c *Compound) All() iter.Seq2[string, Tag] {
	return func(yield func(string, Tag) bool) {
		for _, n := range c.names {
			if !yield(n, c.entries[n]) {
				return
			}
		}
	}
}

// Lookup fetches name from c and reports whether it is present with type T.
func Lookup[T Tag](c *Compound, name string) (T, bool) {
	var zero T
	t, ok := c.Get(name)
	if !ok {
		return zero, false
	}
	v, ok := t.(T)
	return v, ok
}

// Equal reports whether a and b are the same tree. Compound entry order is
// not significant; list order is.
func Equal(a, b Tag) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Type() != b.Type() {
		return false
	}
	switch av := a.(type) {
	case End:
		return true
	case Byte, Short, Int, Long, Float, Double, String:
		return a == b
	case ByteArray:
		return slices.Equal(av, b.(ByteArray))
	case IntArray:
		return slices.Equal(av, b.(IntArray))
	case LongArray:
		return slices.Equal(av, b.(LongArray))
	case *List:
		bv := b.(*List)
		if av.elem != bv.elem || len(av.items) != len(bv.items) {
			return false
		}
		for i := range av.items {
			if !Equal(av.items[i], bv.items[i]) {
				return false
			}
		}
		return true
	case *Compound:
		bv := b.(*Compound)
		if av.Len() != bv.Len() {
			return false
		}
		for n, t := range av.entries {
			o, ok := bv.entries[n]
			if !ok || !Equal(t, o) {
				return false
			}
		}
		return true
	default:
		panic(fmt.Sprintf("nbt: unhandled tag %T", a))
	}
}
