package conffile

import (
	"github.com/google/uuid"

	"github.com/davidroman0O/ntpconf/lens"
	"github.com/davidroman0O/ntpconf/tree"
)

// Collection is an ordered, filtered view over the records of a tree. The
// record list is computed lazily and cached until the collection mutates
// the tree or Invalidate is called.
type Collection struct {
	tree        *tree.Tree
	grammar     *lens.Lens
	kinds       map[Kind]bool
	collections map[string]bool

	cache []*Record
	valid bool
}

func newCollection(t *tree.Tree, grammar *lens.Lens, kinds []Kind, collectionKeys []string) *Collection {
	c := &Collection{
		tree:        t,
		grammar:     grammar,
		kinds:       make(map[Kind]bool, len(kinds)),
		collections: make(map[string]bool, len(collectionKeys)),
	}
	for _, k := range kinds {
		c.kinds[k] = true
	}
	for _, k := range collectionKeys {
		c.collections[tree.BaseKey(k)] = true
	}
	return c
}

// Invalidate drops the cached record list
func (c *Collection) Invalidate() {
	c.valid = false
	c.cache = nil
}

func (c *Collection) load() []*Record {
	if c.valid {
		return c.cache
	}
	var out []*Record
	for _, e := range c.tree.Elements() {
		r, err := newRecordFromElement(e, c.grammar)
		if err != nil || !c.kinds[r.kind] {
			continue
		}
		out = append(out, r)
	}
	c.cache = out
	c.valid = true
	return out
}

// All returns the records in file order
func (c *Collection) All() []*Record {
	return append([]*Record(nil), c.load()...)
}

// Len returns the number of records
func (c *Collection) Len() int {
	return len(c.load())
}

// OfKind returns the records of the given kinds in file order
func (c *Collection) OfKind(kinds ...Kind) []*Record {
	want := make(map[Kind]bool, len(kinds))
	for _, k := range kinds {
		want[k] = true
	}
	var out []*Record
	for _, r := range c.load() {
		if want[r.kind] {
			out = append(out, r)
		}
	}
	return out
}

// Find returns the record backed by the element with the same ID
func (c *Collection) Find(r *Record) *Record {
	return c.FindID(r.element.ID)
}

// FindID returns the record backed by the element carrying id, or nil
func (c *Collection) FindID(id uuid.UUID) *Record {
	for _, rec := range c.load() {
		if rec.element.ID == id {
			return rec
		}
	}
	return nil
}

// DeleteID removes the element carrying id
func (c *Collection) DeleteID(id uuid.UUID) bool {
	e := c.tree.FindID(id)
	if e == nil {
		return false
	}
	c.tree.DeleteElement(e)
	c.Invalidate()
	return true
}

// Last returns the last record, or nil
func (c *Collection) Last() *Record {
	recs := c.load()
	if len(recs) == 0 {
		return nil
	}
	return recs[len(recs)-1]
}

// Empty reports whether the collection has no records
func (c *Collection) Empty() bool {
	return len(c.load()) == 0
}

// Equal compares two collections record by record
func (c *Collection) Equal(other *Collection) bool {
	a, b := c.load(), other.load()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

func (c *Collection) keyFor(kind Kind) string {
	name := kind.String()
	if c.collections[name] {
		return tree.CollectionKey(name)
	}
	return name
}

// Add inserts a copy of r into the tree at the position chosen by p (nil
// appends) and returns the live copy. r itself stays detached. A record of a
// kind the collection does not hold is not inserted and Add returns nil.
func (c *Collection) Add(r *Record, p tree.Placer) *Record {
	e := r.detachedCopy(c.keyFor(r.kind))
	rec, err := newRecordFromElement(e, c.grammar)
	if err != nil || !c.kinds[rec.kind] {
		return nil
	}
	c.tree.Insert(e, p)
	c.Invalidate()
	return rec
}

// Delete removes the entry backing r. Detached records remove the first
// entry with the same key and value. Nothing happens when no entry matches.
func (c *Collection) Delete(r *Record) bool {
	if c.DeleteID(r.element.ID) {
		return true
	}
	for _, rec := range c.load() {
		if rec.kind == r.kind && tree.ValueString(rec.element.Value) == tree.ValueString(r.element.Value) {
			c.tree.DeleteElement(rec.element)
			c.Invalidate()
			return true
		}
	}
	return false
}

// DeleteIf removes every record accepted by pred and returns the count.
// Matches are collected first so the collection is not mutated while it is
// iterated.
func (c *Collection) DeleteIf(pred func(*Record) bool) int {
	var doomed []*Record
	for _, r := range c.load() {
		if pred(r) {
			doomed = append(doomed, r)
		}
	}
	for _, r := range doomed {
		c.Delete(r)
	}
	return len(doomed)
}
