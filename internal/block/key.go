// Package block identifies block kinds: namespaced ids with an optional
// key/value blockstate, plus the lookup structures built on top of them.
package block

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// DefaultNamespace is assumed when a key string has no "namespace:" prefix.
const DefaultNamespace = "minecraft"

// Air is the implicit content of every empty cell.
var Air = Key{namespace: DefaultNamespace, id: "air"}

// Key is an immutable block identity. Two keys are equal when namespace, id
// and the full state set match; state order is not significant.
type Key struct {
	namespace string
	id        string
	state     map[string]string
}

// SyntaxError reports a malformed block key.
type SyntaxError struct {
	Input string
	Msg   string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("block: invalid key %q: %s", e.Input, e.Msg)
}

// NewKey validates and builds a key. state is copied.
func NewKey(namespace, id string, state map[string]string) (Key, error) {
	k := Key{namespace: namespace, id: id}
	if len(state) > 0 {
		k.state = maps.Clone(state)
	}
	if err := k.validate(); err != nil {
		return Key{}, &SyntaxError{Input: k.String(), Msg: err.Error()}
	}
	return k, nil
}

// MustParse is Parse for literals; it panics on error.
func MustParse(s string) Key {
	k, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return k
}

// Parse reads the form produced by Key.String: "namespace:id[k=v,...]".
// The namespace defaults to DefaultNamespace.
func Parse(s string) (Key, error) {
	fail := func(msg string) (Key, error) { return Key{}, &SyntaxError{Input: s, Msg: msg} }

	head := s
	var body string
	hasState := false
	if i := strings.IndexByte(s, '['); i >= 0 {
		if !strings.HasSuffix(s, "]") {
			return fail("state is not terminated by ']'")
		}
		head, body = s[:i], s[i+1:len(s)-1]
		hasState = true
	} else if strings.IndexByte(s, ']') >= 0 {
		return fail("unexpected ']'")
	}

	k := Key{namespace: DefaultNamespace, id: head}
	if ns, id, ok := strings.Cut(head, ":"); ok {
		k.namespace, k.id = ns, id
	}

	if hasState && body != "" {
		k.state = map[string]string{}
		for _, seg := range strings.Split(body, ",") {
			name, value, ok := strings.Cut(seg, "=")
			if !ok {
				return fail(fmt.Sprintf("state entry %q has no '='", seg))
			}
			if _, dup := k.state[name]; dup {
				return fail(fmt.Sprintf("duplicate state key %q", name))
			}
			k.state[name] = value
		}
	}
	if err := k.validate(); err != nil {
		return fail(err.Error())
	}
	return k, nil
}

func (k Key) validate() error {
	if k.namespace == "" {
		return fmt.Errorf("empty namespace")
	}
	if strings.ContainsAny(k.namespace, ":[],=") {
		return fmt.Errorf("namespace %q contains a reserved character", k.namespace)
	}
	if k.id == "" {
		return fmt.Errorf("empty id")
	}
	if strings.ContainsAny(k.id, "[],=") {
		return fmt.Errorf("id %q contains a reserved character", k.id)
	}
	for name, value := range k.state {
		if name == "" {
			return fmt.Errorf("empty state key")
		}
		if strings.ContainsAny(name, "[],=") {
			return fmt.Errorf("state key %q contains a reserved character", name)
		}
		if strings.ContainsAny(value, "[],") {
			return fmt.Errorf("state value %q contains a reserved character", value)
		}
	}
	return nil
}

func (k Key) Namespace() string { return k.namespace }
func (k Key) ID() string        { return k.id }

// Name is "namespace:id" without state.
func (k Key) Name() string { return k.namespace + ":" + k.id }

// State returns a copy of the blockstate.
func (k Key) State() map[string]string { return maps.Clone(k.state) }

func (k Key) StateValue(name string) (string, bool) {
	v, ok := k.state[name]
	return v, ok
}

func (k Key) HasState() bool { return len(k.state) > 0 }

// WithoutState returns the namespace+id key used for grouping.
func (k Key) WithoutState() Key { return Key{namespace: k.namespace, id: k.id} }

func (k Key) IsAir() bool { return k.Equal(Air) }

// IsZero reports whether k is the zero Key, which names no block.
func (k Key) IsZero() bool { return k.namespace == "" && k.id == "" }

func (k Key) Equal(o Key) bool {
	return k.namespace == o.namespace && k.id == o.id && maps.Equal(k.state, o.state)
}

// String renders "namespace:id[k=v,...]" with state keys sorted.
func (k Key) String() string {
	if len(k.state) == 0 {
		return k.Name()
	}
	var b strings.Builder
	b.WriteString(k.Name())
	b.WriteByte('[')
	for i, name := range slices.Sorted(maps.Keys(k.state)) {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(k.state[name])
	}
	b.WriteByte(']')
	return b.String()
}

// flatten returns the state as sorted name/value pairs: [n0, v0, n1, v1, ...].
func (k Key) flatten() []string {
	out := make([]string, 0, 2*len(k.state))
	for _, name := range slices.Sorted(maps.Keys(k.state)) {
		out = append(out, name, k.state[name])
	}
	return out
}
