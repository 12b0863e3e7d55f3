package block

import (
	"errors"
	"fmt"
	"slices"
)

// ErrMissingStateKey is returned by KeyMap.GetStrict when the query lacks a
// state key that a candidate branch requires.
var ErrMissingStateKey = errors.New("block: query is missing a state key")

type baseKey struct {
	namespace string
	id        string
}

type branch[T any] struct {
	pairs []string
	value T
}

type keyNode[T any] struct {
	root     T
	hasRoot  bool
	branches []branch[T]
}

// KeyMap is a two-level dictionary keyed by Key. The outer level groups by
// namespace+id; each group holds an optional value for the stateless key and
// an ordered list of state branches.
type KeyMap[T any] struct {
	nodes map[baseKey]*keyNode[T]
	n     int
}

func NewKeyMap[T any]() *KeyMap[T] {
	return &KeyMap[T]{nodes: map[baseKey]*keyNode[T]{}}
}

// Len is the number of stored values.
func (m *KeyMap[T]) Len() int { return m.n }

// Put stores v under k, replacing any value stored under an equal key.
func (m *KeyMap[T]) Put(k Key, v T) {
	if m.nodes == nil {
		m.nodes = map[baseKey]*keyNode[T]{}
	}
	bk := baseKey{k.namespace, k.id}
	node := m.nodes[bk]
	if node == nil {
		node = &keyNode[T]{}
		m.nodes[bk] = node
	}
	if !k.HasState() {
		if !node.hasRoot {
			m.n++
		}
		node.root, node.hasRoot = v, true
		return
	}
	pairs := k.flatten()
	for i := range node.branches {
		if slices.Equal(node.branches[i].pairs, pairs) {
			node.branches[i].value = v
			return
		}
	}
	node.branches = append(node.branches, branch[T]{pairs: pairs, value: v})
	m.n++
}

// Get returns the value stored under a key equal to k. A stateful query
// matches a branch only when both carry exactly the same state.
func (m *KeyMap[T]) Get(k Key) (T, bool) {
	var zero T
	node := m.nodes[baseKey{k.namespace, k.id}]
	if node == nil {
		return zero, false
	}
	if !k.HasState() {
		return node.root, node.hasRoot
	}
	for _, b := range node.branches {
		if len(b.pairs) != 2*len(k.state) {
			continue
		}
		match := true
		for i := 0; i < len(b.pairs); i += 2 {
			if v, ok := k.state[b.pairs[i]]; !ok || v != b.pairs[i+1] {
				match = false
				break
			}
		}
		if match {
			return b.value, true
		}
	}
	return zero, false
}

// GetStrict scans branches in insertion order and returns the first one whose
// every pair is present and equal in k's state. Extra query keys are
// ignored. A query that lacks a key some scanned branch requires fails with
// ErrMissingStateKey rather than moving on to the next branch.
func (m *KeyMap[T]) GetStrict(k Key) (T, bool, error) {
	var zero T
	node := m.nodes[baseKey{k.namespace, k.id}]
	if node == nil {
		return zero, false, nil
	}
	if !k.HasState() {
		return node.root, node.hasRoot, nil
	}
	for _, b := range node.branches {
		match := true
		for i := 0; i < len(b.pairs); i += 2 {
			v, ok := k.state[b.pairs[i]]
			if !ok {
				return zero, false, fmt.Errorf("%w: %q looking up %s", ErrMissingStateKey, b.pairs[i], k)
			}
			if v != b.pairs[i+1] {
				match = false
				break
			}
		}
		if match {
			return b.value, true, nil
		}
	}
	return zero, false, nil
}
