package nbt

import (
	"regexp"
	"strconv"
	"strings"
)

var bareName = regexp.MustCompile(`^[A-Za-z0-9._+\-]+$`)

// Stringify renders t as stringified NBT, e.g. {Name:"minecraft:stone",pos:[0,1,2]}.
// The output is meant for people; there is no parser for it.
func Stringify(t Tag) string {
	var b strings.Builder
	writeSNBT(&b, t)
	return b.String()
}

func writeSNBT(b *strings.Builder, t Tag) {
	switch v := t.(type) {
	case End:
		b.WriteString("END")
	case Byte:
		b.WriteString(strconv.Itoa(int(v)))
		b.WriteByte('b')
	case Short:
		b.WriteString(strconv.Itoa(int(v)))
		b.WriteByte('s')
	case Int:
		b.WriteString(strconv.Itoa(int(v)))
	case Long:
		b.WriteString(strconv.FormatInt(int64(v), 10))
		b.WriteByte('L')
	case Float:
		b.WriteString(strconv.FormatFloat(float64(v), 'g', -1, 32))
		b.WriteByte('f')
	case Double:
		b.WriteString(strconv.FormatFloat(float64(v), 'g', -1, 64))
		b.WriteByte('d')
	case String:
		b.WriteString(strconv.Quote(string(v)))
	case ByteArray:
		b.WriteString("[B;")
		for i, x := range v {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.Itoa(int(int8(x))))
			b.WriteByte('B')
		}
		b.WriteByte(']')
	case IntArray:
		b.WriteString("[I;")
		for i, x := range v {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.Itoa(int(x)))
		}
		b.WriteByte(']')
	case LongArray:
		b.WriteString("[L;")
		for i, x := range v {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.FormatInt(x, 10))
			b.WriteByte('L')
		}
		b.WriteByte(']')
	case *List:
		b.WriteByte('[')
		for i, it := range v.All() {
			if i > 0 {
				b.WriteByte(',')
			}
			writeSNBT(b, it)
		}
		b.WriteByte(']')
	case *Compound:
		b.WriteByte('{')
		first := true
		for name, child := range v.All() {
			if !first {
				b.WriteByte(',')
			}
			first = false
			if bareName.MatchString(name) {
				b.WriteString(name)
			} else {
				b.WriteString(strconv.Quote(name))
			}
			b.WriteByte(':')
			writeSNBT(b, child)
		}
		b.WriteByte('}')
	}
}
