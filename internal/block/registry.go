package block

import (
	"errors"
	"fmt"
	"strconv"
)

// LegacyNamespace holds keys synthesized for (id, data) pairs that have no
// registered name, e.g. "legacy:213[data=3]".
const LegacyNamespace = "legacy"

// ErrUnmappedBlock is returned when a key has no legacy id.
var ErrUnmappedBlock = errors.New("block: no legacy id for key")

// Legacy is the numeric identity stored by array-backed structures: an id
// byte and a 4-bit data value.
type Legacy struct {
	ID   byte
	Data byte
}

func (l Legacy) String() string { return fmt.Sprintf("%d:%d", l.ID, l.Data) }

// Registry converts between keys and legacy ids. Air is always 0:0.
type Registry struct {
	byKey    *KeyMap[Legacy]
	byLegacy map[Legacy]Key
}

func NewRegistry() *Registry {
	r := &Registry{
		byKey:    NewKeyMap[Legacy](),
		byLegacy: map[Legacy]Key{},
	}
	r.byKey.Put(Air, Legacy{})
	r.byLegacy[Legacy{}] = Air
	return r
}

// Register maps k to l. The first key registered for a legacy pair is the one
// Key returns for it.
func (r *Registry) Register(k Key, l Legacy) error {
	if l.Data > 0x0f {
		return fmt.Errorf("block: data %d for %s exceeds a nibble", l.Data, k)
	}
	if k.namespace == LegacyNamespace {
		return fmt.Errorf("block: cannot register %s in the reserved %q namespace", k, LegacyNamespace)
	}
	if l.ID == 0 && !k.IsAir() {
		return fmt.Errorf("block: id 0 is reserved for air, got %s", k)
	}
	r.byKey.Put(k, l)
	if _, ok := r.byLegacy[l]; !ok {
		r.byLegacy[l] = k
	}
	return nil
}

// Len is the number of registered keys, air included.
func (r *Registry) Len() int { return r.byKey.Len() }

// Lookup resolves k to its legacy pair. A stateful key without an exact entry
// falls back to its stateless entry.
func (r *Registry) Lookup(k Key) (Legacy, error) {
	if k.namespace == LegacyNamespace {
		return parseLegacyKey(k)
	}
	if l, ok := r.byKey.Get(k); ok {
		return l, nil
	}
	if k.HasState() {
		if l, ok := r.byKey.Get(k.WithoutState()); ok {
			return l, nil
		}
	}
	return Legacy{}, fmt.Errorf("%w: %s", ErrUnmappedBlock, k)
}

// Key resolves a legacy pair. Id 0 is always Air; unregistered pairs get a
// synthesized key in LegacyNamespace that Lookup maps back.
func (r *Registry) Key(l Legacy) Key {
	if l.ID == 0 {
		return Air
	}
	if k, ok := r.byLegacy[l]; ok {
		return k
	}
	k := Key{namespace: LegacyNamespace, id: strconv.Itoa(int(l.ID))}
	if l.Data != 0 {
		k.state = map[string]string{"data": strconv.Itoa(int(l.Data))}
	}
	return k
}

// Canonical maps k through its legacy pair and back, yielding the key every
// structure backend reports for it.
func (r *Registry) Canonical(k Key) (Key, error) {
	l, err := r.Lookup(k)
	if err != nil {
		return Key{}, err
	}
	return r.Key(l), nil
}

func parseLegacyKey(k Key) (Legacy, error) {
	id, err := strconv.ParseUint(k.id, 10, 8)
	if err != nil {
		return Legacy{}, fmt.Errorf("%w: %s", ErrUnmappedBlock, k)
	}
	var data uint64
	for name, v := range k.state {
		if name != "data" {
			return Legacy{}, fmt.Errorf("%w: %s", ErrUnmappedBlock, k)
		}
		data, err = strconv.ParseUint(v, 10, 4)
		if err != nil {
			return Legacy{}, fmt.Errorf("%w: %s", ErrUnmappedBlock, k)
		}
	}
	return Legacy{ID: byte(id), Data: byte(data)}, nil
}
