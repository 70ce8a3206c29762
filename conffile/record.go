package conffile

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/davidroman0O/ntpconf/errors"
	"github.com/davidroman0O/ntpconf/lens"
	"github.com/davidroman0O/ntpconf/tree"
)

// Record is a typed view of one tree element. Every mutation writes through
// to the element immediately.
type Record struct {
	kind    Kind
	element *tree.Element
	grammar *lens.Lens
}

// Annotation is the comment attached to a record: an inline tail comment and
// an optional block of lines written above the directive.
type Annotation struct {
	Inline string
	Block  []string
}

// NewRecord creates a detached record. It becomes part of a file only when
// added to a Collection.
func NewRecord(kind Kind, value string) *Record {
	var v tree.Value
	switch {
	case kind.shape() == optionsPairs:
		v = tree.New()
	case value != "":
		v = tree.Scalar(value)
	}
	return &Record{kind: kind, element: tree.NewElement(kind.String(), v), grammar: lens.NTP}
}

// NewRecordFromElement wraps an existing element rendered with grammar.
// Keys outside the recognized kinds are an ErrUnsupportedEntry error.
func NewRecordFromElement(e *tree.Element, grammar *lens.Lens) (*Record, error) {
	if grammar == nil {
		return nil, errors.New(errors.ErrValidation, "record needs a grammar")
	}
	return newRecordFromElement(e, grammar)
}

func newRecordFromElement(e *tree.Element, grammar *lens.Lens) (*Record, error) {
	kind, ok := ParseKind(e.Key)
	if !ok {
		return nil, errors.WithContext(
			errors.Newf(errors.ErrUnsupportedEntry, "unsupported entry %q", tree.BaseKey(e.Key)),
			map[string]interface{}{"key": e.Key},
		)
	}
	return &Record{kind: kind, element: e, grammar: grammar}, nil
}

// Kind returns the directive type
func (r *Record) Kind() Kind {
	return r.kind
}

// ID identifies the backing element
func (r *Record) ID() uuid.UUID {
	return r.element.ID
}

// Key returns the tree key, collection suffix included
func (r *Record) Key() string {
	return r.element.Key
}

// String renders the record as a configuration line
func (r *Record) String() string {
	return r.grammar.Render(r.element)
}

// legacyIPVersion detects restrict elements of the older encoding where the
// IP version flag was stored as the primary value.
func (r *Record) legacyIPVersion() (string, bool) {
	if r.kind != KindRestrict {
		return "", false
	}
	switch tree.ValueString(r.element.Value) {
	case "-4":
		return lens.IPv4Key, true
	case "-6":
		return lens.IPv6Key, true
	}
	return "", false
}

// Value returns the primary address or identifier
func (r *Record) Value() string {
	if _, legacy := r.legacyIPVersion(); legacy {
		if opts := tree.Options(r.element.Value); opts != nil {
			if first := opts.First(tree.MatchBase(lens.ActionKey)); first != nil {
				return tree.ValueString(first.Value)
			}
		}
		return ""
	}
	return tree.ValueString(r.element.Value)
}

// SetValue replaces the primary value, keeping options and comments
func (r *Record) SetValue(value string) {
	if r.kind.shape() == optionsPairs {
		return
	}
	r.normalizeRestrict()
	switch v := r.element.Value.(type) {
	case *tree.TreeValue:
		v.Value = value
	case *tree.Tree:
		r.element.Value = &tree.TreeValue{Tree: v, Value: value}
	default:
		r.element.Value = tree.Scalar(value)
	}
}

// Normalize rewrites a record stored in an older encoding into the current
// one. The rendered line does not change.
func (r *Record) Normalize() {
	r.normalizeRestrict()
}

// normalizeRestrict rewrites the legacy restrict encoding into the current
// one: the address as value and the IP version as a flag option.
func (r *Record) normalizeRestrict() {
	ipKey, legacy := r.legacyIPVersion()
	if !legacy {
		return
	}
	address := r.Value()
	opts := tree.Options(r.element.Value)
	if opts == nil {
		opts = tree.New()
	}
	if first := opts.First(tree.MatchBase(lens.ActionKey)); first != nil {
		opts.DeleteElement(first)
	}
	front := tree.BeforePlacer{Matcher: func(*tree.Element) bool { return true }}
	opts.Insert(tree.NewElement(ipKey, nil), front)
	r.element.Value = &tree.TreeValue{Tree: opts, Value: address}
}

// optionTree returns the option sub-tree, creating it when create is set
func (r *Record) optionTree(create bool) *tree.Tree {
	switch v := r.element.Value.(type) {
	case *tree.TreeValue:
		if v.Tree == nil && create {
			v.Tree = tree.New()
		}
		return v.Tree
	case *tree.Tree:
		return v
	case tree.Scalar:
		if !create {
			return nil
		}
		t := tree.New()
		r.element.Value = &tree.TreeValue{Tree: t, Value: string(v)}
		return t
	default:
		if !create {
			return nil
		}
		t := tree.New()
		r.element.Value = t
		return t
	}
}

// Options returns the record options. Restrict records list ipv4/ipv6
// first, followed by their action flags; the mask is available via Mask.
func (r *Record) Options() Options {
	switch r.kind.shape() {
	case optionsNone:
		return nil
	case optionsRestrict:
		return r.restrictOptions()
	default:
		return optionsFromTree(r.optionTree(false))
	}
}

func (r *Record) restrictOptions() Options {
	opts := r.optionTree(false)
	var out Options
	ipKey, legacy := r.legacyIPVersion()
	if legacy {
		out = append(out, Flag(ipKey))
	}
	if opts == nil {
		return out
	}
	if !legacy {
		for _, k := range []string{lens.IPv4Key, lens.IPv6Key} {
			if opts.Has(k) {
				out = append(out, Flag(k))
			}
		}
	}
	for i, a := range opts.Select(tree.MatchBase(lens.ActionKey)) {
		if legacy && i == 0 {
			continue
		}
		out = append(out, Flag(tree.ValueString(a.Value)))
	}
	return out
}

// SetOptions replaces all options, keeping comments
func (r *Record) SetOptions(o Options) {
	switch r.kind.shape() {
	case optionsNone:
		return
	case optionsRestrict:
		r.setRestrictOptions(o)
		return
	}
	t := r.optionTree(true)
	t.Delete(notComment)
	beforeComments := tree.BeforePlacer{Matcher: tree.MatchBase(tree.CommentKey)}
	for _, opt := range o {
		var v tree.Value
		if opt.Value != "" {
			v = tree.Scalar(opt.Value)
		}
		t.Insert(tree.NewElement(opt.Name, v), beforeComments)
	}
}

func notComment(e *tree.Element) bool {
	return tree.BaseKey(e.Key) != tree.CommentKey
}

func (r *Record) setRestrictOptions(o Options) {
	r.normalizeRestrict()
	mask := r.Mask()
	t := r.optionTree(true)
	comments := t.Select(tree.MatchBase(tree.CommentKey))
	t.Delete(func(*tree.Element) bool { return true })

	var actions []string
	for _, opt := range o {
		switch opt.Name {
		case lens.IPv4Key, "-4":
			t.Add(lens.IPv4Key, nil, nil)
		case lens.IPv6Key, "-6":
			t.Add(lens.IPv6Key, nil, nil)
		case lens.MaskKey:
			if opt.Value != "" {
				mask = opt.Value
			}
		default:
			actions = append(actions, opt.Name)
		}
	}
	if mask != "" {
		t.Add(lens.MaskKey, tree.Scalar(mask), nil)
	}
	for _, a := range actions {
		t.Add(tree.CollectionKey(lens.ActionKey), tree.Scalar(a), nil)
	}
	for _, c := range comments {
		t.Insert(c, nil)
	}
}

// Mask returns the netmask of a restrict record
func (r *Record) Mask() string {
	if r.kind != KindRestrict {
		return ""
	}
	if opts := r.optionTree(false); opts != nil {
		if v, ok := opts.Get(lens.MaskKey); ok {
			return tree.ValueString(v)
		}
	}
	return ""
}

// SetMask sets or, when empty, removes the netmask of a restrict record
func (r *Record) SetMask(mask string) {
	if r.kind != KindRestrict {
		return
	}
	r.normalizeRestrict()
	if mask == "" {
		if opts := r.optionTree(false); opts != nil {
			opts.Delete(tree.MatchBase(lens.MaskKey))
		}
		return
	}
	t := r.optionTree(true)
	if e := t.First(tree.MatchBase(lens.MaskKey)); e != nil {
		e.Value = tree.Scalar(mask)
		return
	}
	var p tree.Placer = tree.BeforePlacer{Matcher: func(*tree.Element) bool { return true }}
	if t.Has(lens.IPv4Key) || t.Has(lens.IPv6Key) {
		p = tree.AfterPlacer{Matcher: tree.MatchAny(tree.MatchBase(lens.IPv4Key), tree.MatchBase(lens.IPv6Key))}
	}
	t.Insert(tree.NewElement(lens.MaskKey, tree.Scalar(mask)), p)
}

// RawOptions serializes the options as space separated tokens
func (r *Record) RawOptions() string {
	return r.Options().String()
}

// SetRawOptions parses a space separated option string
func (r *Record) SetRawOptions(raw string) {
	var takesValue func(string) bool
	switch r.kind.shape() {
	case optionsNone:
		return
	case optionsFudge, optionsPairs:
		takesValue = func(string) bool { return true }
	case optionsRestrict:
		takesValue = func(name string) bool { return name == lens.MaskKey }
	default:
		name := r.kind.String()
		takesValue = func(opt string) bool { return r.grammar.TakesValue(name, opt) }
	}
	r.SetOptions(ParseOptions(raw, takesValue))
}

var fudgeOrder = []string{"time1", "time2", "stratum", "refid", "mode", "flag1", "flag2", "flag3", "flag4"}

// FudgeOptions returns fudge parameters keyed by name
func (r *Record) FudgeOptions() map[string]string {
	return r.Options().Map()
}

// SetFudgeOptions replaces the fudge parameters. Known parameters are
// written in the ntpd documentation order, the rest alphabetically.
func (r *Record) SetFudgeOptions(m map[string]string) {
	var opts Options
	seen := make(map[string]bool, len(m))
	for _, name := range fudgeOrder {
		if v, ok := m[name]; ok {
			opts = append(opts, Pair(name, v))
			seen[name] = true
		}
	}
	rest := make([]string, 0, len(m))
	for name := range m {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	for _, name := range rest {
		opts = append(opts, Pair(name, m[name]))
	}
	r.SetOptions(opts)
}

// Annotation returns the inline and block comments
func (r *Record) Annotation() Annotation {
	a := Annotation{Block: append([]string(nil), r.element.Block...)}
	if opts := r.optionTree(false); opts != nil {
		var inline []string
		for _, c := range opts.Select(tree.MatchBase(tree.CommentKey)) {
			inline = append(inline, tree.ValueString(c.Value))
		}
		a.Inline = strings.Join(inline, " ")
	}
	return a
}

// Comment returns the comment as text; block lines come first, one per line
func (r *Record) Comment() string {
	a := r.Annotation()
	lines := a.Block
	if a.Inline != "" {
		lines = append(lines, a.Inline)
	}
	return strings.Join(lines, "\n")
}

// SetComment replaces the comment. A single line is stored inline; several
// lines become a block written above the directive on save. An empty
// comment removes both.
func (r *Record) SetComment(comment string) {
	if opts := r.optionTree(false); opts != nil {
		opts.Delete(tree.MatchBase(tree.CommentKey))
	}
	r.element.Block = nil

	var lines []string
	for _, l := range strings.Split(strings.Trim(comment, "\n"), "\n") {
		l = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(l), "#"))
		if l != "" {
			lines = append(lines, l)
		}
	}
	switch len(lines) {
	case 0:
		return
	case 1:
		r.optionTree(true).Add(tree.CommentKey, tree.Scalar(lines[0]), nil)
	default:
		r.element.Block = lines
	}
}

// Equal reports whether both records have the same kind and value
func (r *Record) Equal(other *Record) bool {
	if r == nil || other == nil {
		return r == other
	}
	return r.kind == other.kind && r.Value() == other.Value()
}

// detachedCopy returns a fresh element with the same key, value and block
func (r *Record) detachedCopy(key string) *tree.Element {
	e := tree.NewElement(key, tree.CloneValue(r.element.Value))
	if len(r.element.Block) > 0 {
		e.Block = append([]string(nil), r.element.Block...)
	}
	return e
}
