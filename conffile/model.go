// Package conffile is the data model of ntp.conf and chrony.conf: typed
// records over a parsed tree, filtered record collections, and the file
// models that load, edit and save them.
package conffile

import (
	"context"

	"github.com/davidroman0O/ntpconf/errors"
	"github.com/davidroman0O/ntpconf/lens"
	"github.com/davidroman0O/ntpconf/target"
	"github.com/davidroman0O/ntpconf/tree"
)

// model binds a tree to a file and a grammar. NtpConf and ChronyConf embed
// it and add their own helpers.
type model struct {
	path           string
	fs             target.FS
	grammar        *lens.Lens
	kinds          []Kind
	collectionKeys []string

	tree    *tree.Tree
	records *Collection
	loaded  string
}

func newModel(fs target.FS, path string, grammar *lens.Lens, kinds []Kind, collectionKeys []string) model {
	m := model{
		path:           path,
		fs:             fs,
		grammar:        grammar,
		kinds:          kinds,
		collectionKeys: collectionKeys,
	}
	m.replace(tree.New(), "")
	return m
}

func (m *model) replace(t *tree.Tree, text string) {
	m.tree = t
	m.records = newCollection(t, m.grammar, m.kinds, m.collectionKeys)
	m.loaded = text
}

// Path returns the file the model is bound to
func (m *model) Path() string {
	return m.path
}

// Load reads and parses the file. On failure the model keeps its previous
// content.
func (m *model) Load(ctx context.Context) error {
	data, err := m.fs.ReadFile(ctx, m.path)
	if err != nil {
		return errors.WithContext(
			errors.WithOp(errors.Wrap(err, errors.ErrParse, "failed to read configuration"), "load"),
			map[string]interface{}{"path": m.path, "location": m.fs.Location()},
		)
	}
	if err := m.LoadString(string(data)); err != nil {
		return errors.WithOp(err, "load")
	}
	return nil
}

// LoadString parses text as the file content
func (m *model) LoadString(text string) error {
	t, err := m.grammar.Parse(text)
	if err != nil {
		if errors.GetCode(err) != errors.ErrParse {
			err = errors.Wrap(err, errors.ErrParse, "failed to parse configuration")
		}
		return errors.WithContext(err, map[string]interface{}{"path": m.path})
	}
	t.MarkCollections(m.collectionKeys)
	m.replace(t, text)
	return nil
}

// String renders the current tree as file text
func (m *model) String() string {
	text, err := m.grammar.Serialize(LowerAnnotations(m.tree))
	if err != nil {
		return ""
	}
	return text
}

// Changed reports whether saving would write something different from
// what was loaded.
func (m *model) Changed() bool {
	return m.String() != m.loaded
}

// Save serializes the tree and writes it to the file
func (m *model) Save(ctx context.Context) error {
	text, err := m.grammar.Serialize(LowerAnnotations(m.tree))
	if err != nil {
		return errors.WithOp(errors.Wrap(err, errors.ErrWrite, "failed to serialize configuration"), "save")
	}
	if err := m.fs.WriteFile(ctx, m.path, []byte(text), 0644); err != nil {
		return errors.WithContext(
			errors.WithOp(errors.Wrap(err, errors.ErrWrite, "failed to write configuration"), "save"),
			map[string]interface{}{"path": m.path, "location": m.fs.Location()},
		)
	}
	m.loaded = text
	return nil
}

// Tree exposes the parsed tree
func (m *model) Tree() *tree.Tree {
	return m.tree
}

// Records returns the collection of recognized directives
func (m *model) Records() *Collection {
	return m.records
}

// RecordsOf returns the records of the given kinds in file order
func (m *model) RecordsOf(kinds ...Kind) []*Record {
	return m.records.OfKind(kinds...)
}

// NewRecord creates a detached record using the model grammar
func (m *model) NewRecord(kind Kind, value string) *Record {
	r := NewRecord(kind, value)
	r.grammar = m.grammar
	return r
}

// LowerAnnotations returns a copy of t in which every multi-line comment
// block is written out as standalone comment elements directly above the
// element carrying it. t is not modified.
func LowerAnnotations(t *tree.Tree) *tree.Tree {
	out := t.Clone()
	for _, e := range out.Elements() {
		if len(e.Block) == 0 {
			continue
		}
		before := tree.BeforePlacer{Matcher: tree.MatchElement(e)}
		for _, line := range e.Block {
			out.Insert(tree.NewElement(tree.CollectionKey(tree.CommentKey), tree.Scalar(line)), before)
		}
		e.Block = nil
	}
	return out
}
