package block

import (
	"errors"
	"testing"
)

func TestRegistry_LookupAndKey(t *testing.T) {
	r := DefaultRegistry()
	cases := []struct {
		key  string
		want Legacy
	}{
		{"minecraft:air", Legacy{0, 0}},
		{"minecraft:stone", Legacy{1, 0}},
		{"minecraft:oak_log[axis=y]", Legacy{17, 0}},
		{"minecraft:oak_log[axis=z]", Legacy{17, 8}},
		{"minecraft:oak_log", Legacy{17, 0}},
		{"minecraft:stone[weird=1]", Legacy{1, 0}},
		{"minecraft:red_wool", Legacy{35, 14}},
	}
	for _, c := range cases {
		got, err := r.Lookup(MustParse(c.key))
		if err != nil || got != c.want {
			t.Fatalf("Lookup(%s): got %v,%v want %v", c.key, got, err, c.want)
		}
	}

	if k := r.Key(Legacy{17, 0}); !k.Equal(MustParse("minecraft:oak_log[axis=y]")) {
		t.Fatalf("Key(17:0): got %s", k)
	}
	if k := r.Key(Legacy{0, 9}); !k.IsAir() {
		t.Fatalf("Key(0:9): got %s", k)
	}
}

func TestRegistry_Unmapped(t *testing.T) {
	r := DefaultRegistry()
	_, err := r.Lookup(MustParse("mymod:thing"))
	if !errors.Is(err, ErrUnmappedBlock) {
		t.Fatalf("got %v, want ErrUnmappedBlock", err)
	}
}

func TestRegistry_LegacyKeysRoundTrip(t *testing.T) {
	r := NewRegistry()
	for id := 1; id < 256; id += 17 {
		for data := 0; data < 16; data += 5 {
			l := Legacy{ID: byte(id), Data: byte(data)}
			k := r.Key(l)
			if k.Namespace() != LegacyNamespace {
				t.Fatalf("Key(%v): got %s", l, k)
			}
			back, err := r.Lookup(k)
			if err != nil || back != l {
				t.Fatalf("Lookup(%s): got %v,%v want %v", k, back, err, l)
			}
			reparsed, err := Parse(k.String())
			if err != nil || !reparsed.Equal(k) {
				t.Fatalf("Parse(%s): %v", k, err)
			}
		}
	}
	if _, err := r.Lookup(MustParse("legacy:300")); !errors.Is(err, ErrUnmappedBlock) {
		t.Fatalf("legacy:300: got %v", err)
	}
	if _, err := r.Lookup(MustParse("legacy:3[data=16]")); !errors.Is(err, ErrUnmappedBlock) {
		t.Fatalf("legacy:3[data=16]: got %v", err)
	}
}

func TestRegistry_RegisterValidation(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(MustParse("mymod:a"), Legacy{ID: 200, Data: 16}); err == nil {
		t.Fatalf("expected nibble overflow error")
	}
	if err := r.Register(MustParse("mymod:a"), Legacy{ID: 0}); err == nil {
		t.Fatalf("expected id 0 error")
	}
	if err := r.Register(MustParse("legacy:5"), Legacy{ID: 5}); err == nil {
		t.Fatalf("expected reserved namespace error")
	}
	if err := r.Register(MustParse("mymod:a"), Legacy{ID: 200, Data: 3}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if k := r.Key(Legacy{200, 3}); !k.Equal(MustParse("mymod:a")) {
		t.Fatalf("Key: got %s", k)
	}
}

func TestRegistry_Canonical(t *testing.T) {
	r := DefaultRegistry()
	k, err := r.Canonical(MustParse("minecraft:oak_log"))
	if err != nil {
		t.Fatalf("Canonical: %v", err)
	}
	if !k.Equal(MustParse("minecraft:oak_log[axis=y]")) {
		t.Fatalf("got %s", k)
	}
}
