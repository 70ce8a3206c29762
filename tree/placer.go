package tree

// Placer decides where a new element is inserted
type Placer interface {
	// Index returns the insertion position in t
	Index(t *Tree) int
}

// AppendPlacer inserts at the end of the tree
type AppendPlacer struct{}

// Index implements Placer
func (AppendPlacer) Index(t *Tree) int {
	return t.Len()
}

// BeforePlacer inserts right before the first element accepted by Matcher,
// or appends when nothing matches.
type BeforePlacer struct {
	Matcher Matcher
}

// Index implements Placer
func (p BeforePlacer) Index(t *Tree) int {
	for i, e := range t.elements {
		if p.Matcher(e) {
			return i
		}
	}
	return t.Len()
}

// AfterPlacer inserts right after the first element accepted by Matcher,
// or appends when nothing matches.
type AfterPlacer struct {
	Matcher Matcher
}

// Index implements Placer
func (p AfterPlacer) Index(t *Tree) int {
	for i, e := range t.elements {
		if p.Matcher(e) {
			return i + 1
		}
	}
	return t.Len()
}
