// Package tree implements the ordered, keyed tree a configuration file is
// parsed into. Each line of the file becomes one Element; options of a line
// live in a nested Tree. Keys may repeat, and a key carrying the collection
// suffix "[]" is a member of a repeatable collection even when it is the
// only instance left.
package tree

import (
	"strings"

	"github.com/google/uuid"
)

const (
	// CollectionSuffix marks a key as a member of a repeatable collection
	CollectionSuffix = "[]"

	// CommentKey is the key of a comment, standalone or attached to a line
	CommentKey = "#comment"

	// BlankKey is the key of an empty line kept for round-tripping
	BlankKey = "#blank"
)

// Value is the payload of an Element: a Scalar, a *TreeValue, a *Tree, or
// nil for a valueless flag.
type Value interface {
	isValue()
}

// Scalar is a plain string value
type Scalar string

func (Scalar) isValue() {}

// TreeValue pairs a primary scalar value with a sub-tree of options, e.g. a
// server address followed by its iburst/minpoll tokens.
type TreeValue struct {
	Tree  *Tree
	Value string
}

func (*TreeValue) isValue() {}

// Element is a single keyed entry of a Tree
type Element struct {
	// ID is stable for the lifetime of the element, across clones
	ID uuid.UUID

	Key   string
	Value Value

	// Block holds a multi-line comment that travels with the entry in
	// memory. It is lowered into standalone comment lines on save.
	Block []string

	text        string
	fingerprint string
}

// NewElement creates an element with a fresh ID
func NewElement(key string, value Value) *Element {
	return &Element{
		ID:    uuid.New(),
		Key:   key,
		Value: value,
	}
}

// SetSource records the original line text and the canonical rendering it
// had when parsed. Serializers emit the original text while the canonical
// rendering is unchanged.
func (e *Element) SetSource(text, fingerprint string) {
	e.text = text
	e.fingerprint = fingerprint
}

// Source returns what SetSource recorded
func (e *Element) Source() (text, fingerprint string) {
	return e.text, e.fingerprint
}

// Clone deep-copies the element, keeping its ID
func (e *Element) Clone() *Element {
	c := &Element{
		ID:          e.ID,
		Key:         e.Key,
		Value:       CloneValue(e.Value),
		text:        e.text,
		fingerprint: e.fingerprint,
	}
	if len(e.Block) > 0 {
		c.Block = append([]string(nil), e.Block...)
	}
	return c
}

// Tree is an ordered sequence of elements
type Tree struct {
	elements []*Element
}

func (*Tree) isValue() {}

// New creates an empty tree
func New() *Tree {
	return &Tree{}
}

// Len returns the number of top-level elements
func (t *Tree) Len() int {
	return len(t.elements)
}

// Elements returns the top-level elements in order. The slice is a copy;
// the elements are shared.
func (t *Tree) Elements() []*Element {
	return append([]*Element(nil), t.elements...)
}

// Select returns every top-level element accepted by m, in order
func (t *Tree) Select(m Matcher) []*Element {
	var out []*Element
	for _, e := range t.elements {
		if m(e) {
			out = append(out, e)
		}
	}
	return out
}

// First returns the first element accepted by m, or nil
func (t *Tree) First(m Matcher) *Element {
	for _, e := range t.elements {
		if m(e) {
			return e
		}
	}
	return nil
}

// Last returns the last element accepted by m, or nil
func (t *Tree) Last(m Matcher) *Element {
	for i := len(t.elements) - 1; i >= 0; i-- {
		if m(t.elements[i]) {
			return t.elements[i]
		}
	}
	return nil
}

// Get returns the value of the first element whose base key is key
func (t *Tree) Get(key string) (Value, bool) {
	e := t.First(MatchBase(key))
	if e == nil {
		return nil, false
	}
	return e.Value, true
}

// Has reports whether an element with the base key exists
func (t *Tree) Has(key string) bool {
	return t.First(MatchBase(key)) != nil
}

// Set replaces the value of the first element with the base key, or appends
// a new element when none exists.
func (t *Tree) Set(key string, value Value) *Element {
	if e := t.First(MatchBase(key)); e != nil {
		e.Value = value
		return e
	}
	return t.Add(key, value, nil)
}

// Add creates an element and inserts it at the position chosen by p. A nil
// placer appends.
func (t *Tree) Add(key string, value Value, p Placer) *Element {
	e := NewElement(key, value)
	t.Insert(e, p)
	return e
}

// Insert places an existing element at the position chosen by p
func (t *Tree) Insert(e *Element, p Placer) {
	if p == nil {
		p = AppendPlacer{}
	}
	i := p.Index(t)
	if i < 0 || i > len(t.elements) {
		i = len(t.elements)
	}
	t.elements = append(t.elements, nil)
	copy(t.elements[i+1:], t.elements[i:])
	t.elements[i] = e
}

// Delete removes every element accepted by m and returns how many went
func (t *Tree) Delete(m Matcher) int {
	kept := t.elements[:0]
	removed := 0
	for _, e := range t.elements {
		if m(e) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	for i := len(kept); i < len(t.elements); i++ {
		t.elements[i] = nil
	}
	t.elements = kept
	return removed
}

// DeleteElement removes exactly e
func (t *Tree) DeleteElement(e *Element) bool {
	return t.Delete(MatchElement(e)) > 0
}

// Index returns the position of e, or -1
func (t *Tree) Index(e *Element) int {
	for i, el := range t.elements {
		if el == e {
			return i
		}
	}
	return -1
}

// FindID returns the top-level element carrying id, or nil
func (t *Tree) FindID(id uuid.UUID) *Element {
	for _, e := range t.elements {
		if e.ID == id {
			return e
		}
	}
	return nil
}

// Clone deep-copies the tree. Element IDs are preserved.
func (t *Tree) Clone() *Tree {
	if t == nil {
		return nil
	}
	c := &Tree{elements: make([]*Element, len(t.elements))}
	for i, e := range t.elements {
		c.elements[i] = e.Clone()
	}
	return c
}

// MarkCollections walks the tree and adds the collection suffix to every key
// whose base name is in keys, including keys of nested option trees.
func (t *Tree) MarkCollections(keys []string) {
	set := make(map[string]bool, len(keys))
	for _, k := range keys {
		set[BaseKey(k)] = true
	}
	t.markCollections(set)
}

func (t *Tree) markCollections(set map[string]bool) {
	for _, e := range t.elements {
		if set[e.Key] {
			e.Key = CollectionKey(e.Key)
		}
		switch v := e.Value.(type) {
		case *TreeValue:
			if v.Tree != nil {
				v.Tree.markCollections(set)
			}
		case *Tree:
			v.markCollections(set)
		}
	}
}

// BaseKey strips the collection suffix
func BaseKey(key string) string {
	return strings.TrimSuffix(key, CollectionSuffix)
}

// CollectionKey returns key with the collection suffix
func CollectionKey(key string) string {
	if IsCollection(key) {
		return key
	}
	return key + CollectionSuffix
}

// IsCollection reports whether key carries the collection suffix
func IsCollection(key string) bool {
	return strings.HasSuffix(key, CollectionSuffix)
}

// ValueString returns the primary scalar of v, or "" for trees and flags
func ValueString(v Value) string {
	switch val := v.(type) {
	case Scalar:
		return string(val)
	case *TreeValue:
		return val.Value
	default:
		return ""
	}
}

// Options returns the option sub-tree of v, or nil
func Options(v Value) *Tree {
	switch val := v.(type) {
	case *TreeValue:
		return val.Tree
	case *Tree:
		return val
	default:
		return nil
	}
}

// CloneValue deep-copies a value
func CloneValue(v Value) Value {
	switch val := v.(type) {
	case *TreeValue:
		return &TreeValue{Tree: val.Tree.Clone(), Value: val.Value}
	case *Tree:
		return val.Clone()
	default:
		return v
	}
}
