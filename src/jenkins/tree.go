package jenkins

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/Jeffail/gabs"
)

// Kind tags the shape of a Tree node.
type Kind int

const (
	KindAbsent Kind = iota
	KindScalar
	KindList
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return "absent"
	}
}

// Tree is a read-only view over metadata returned by the Jenkins API: a
// scalar, an ordered list or a map of further trees.
type Tree struct {
	c *gabs.Container
}

// ParseTree parses a JSON document. An empty or whitespace-only document is
// an error, as is anything that does not decode to an object or list.
func ParseTree(data []byte) (*Tree, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, fmt.Errorf("empty response")
	}
	c, err := gabs.ParseJSON(data)
	if err != nil {
		return nil, fmt.Errorf("malformed response: %w", err)
	}
	t := &Tree{c: c}
	if k := t.Kind(); k != KindMap && k != KindList {
		return nil, fmt.Errorf("malformed response: top level is %s", k)
	}
	return t, nil
}

// NewTree wraps an already decoded value (maps, slices and scalars as
// produced by encoding/json).
func NewTree(v interface{}) (*Tree, error) {
	c, err := gabs.Consume(v)
	if err != nil {
		return nil, err
	}
	return &Tree{c: c}, nil
}

// Data returns the raw decoded value.
func (t *Tree) Data() interface{} {
	if t == nil || t.c == nil {
		return nil
	}
	return t.c.Data()
}

// Kind reports the node shape.
func (t *Tree) Kind() Kind {
	switch t.Data().(type) {
	case nil:
		return KindAbsent
	case []interface{}:
		return KindList
	case map[string]interface{}:
		return KindMap
	default:
		return KindScalar
	}
}

// String returns the node as a string when it is a string scalar.
func (t *Tree) String() (string, bool) {
	s, ok := t.Data().(string)
	return s, ok
}

// Int returns integral numeric scalars, including numeric strings.
func (t *Tree) Int() (int, bool) {
	switch v := t.Data().(type) {
	case float64:
		if v != float64(int(v)) {
			return 0, false
		}
		return int(v), true
	case json.Number:
		n, err := v.Int64()
		return int(n), err == nil
	case string:
		n, err := strconv.Atoi(v)
		return n, err == nil
	}
	return 0, false
}

// List returns the children of a list node in order, or nil.
func (t *Tree) List() []*Tree {
	items, ok := t.Data().([]interface{})
	if !ok {
		return nil
	}
	out := make([]*Tree, 0, len(items))
	for i := range items {
		out = append(out, &Tree{c: t.c.Index(i)})
	}
	return out
}

// Keys returns the keys of a map node in sorted order, or nil.
func (t *Tree) Keys() []string {
	m, ok := t.Data().(map[string]interface{})
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Format renders scalars as plain text and containers as compact JSON.
func (t *Tree) Format() string {
	switch v := t.Data().(type) {
	case nil:
		return "None"
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return t.c.String()
	}
}

// GetElement walks path, split on "/", through nested maps (and lists, by
// non-negative integer index). It reports absence when any step is missing
// or holds an empty value: nil, false, zero, "", an empty list or an empty
// map. A present but empty value is therefore indistinguishable from a
// missing one.
func GetElement(t *Tree, path string) (*Tree, bool) {
	if t == nil || t.c == nil {
		return nil, false
	}
	cur := t.c
	for _, key := range strings.Split(path, "/") {
		switch node := cur.Data().(type) {
		case map[string]interface{}:
			if _, ok := node[key]; !ok {
				return nil, false
			}
			cur = cur.Search(key)
		case []interface{}:
			i, err := strconv.Atoi(key)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			cur = cur.Index(i)
		default:
			return nil, false
		}
		if cur == nil || !truthy(cur.Data()) {
			return nil, false
		}
	}
	return &Tree{c: cur}, true
}

func truthy(v interface{}) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case float64:
		return x != 0
	case json.Number:
		return x.String() != "0" && x.String() != "0.0"
	case string:
		return x != ""
	case []interface{}:
		return len(x) > 0
	case map[string]interface{}:
		return len(x) > 0
	}
	return true
}
