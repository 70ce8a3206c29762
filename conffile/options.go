package conffile

import (
	"strings"

	"github.com/davidroman0O/ntpconf/tree"
)

// Option is one token of a directive line. Flags have an empty Value.
type Option struct {
	Name  string `yaml:"name" json:"name"`
	Value string `yaml:"value,omitempty" json:"value,omitempty"`
}

// Flag returns a valueless option
func Flag(name string) Option {
	return Option{Name: name}
}

// Pair returns a key/value option
func Pair(name, value string) Option {
	return Option{Name: name, Value: value}
}

// Options is an ordered option list
type Options []Option

// Get returns the value of the first option with the name
func (o Options) Get(name string) (string, bool) {
	for _, opt := range o {
		if opt.Name == name {
			return opt.Value, true
		}
	}
	return "", false
}

// Has reports whether an option with the name is present
func (o Options) Has(name string) bool {
	_, ok := o.Get(name)
	return ok
}

// Tokens flattens the options into line tokens
func (o Options) Tokens() []string {
	out := make([]string, 0, len(o)*2)
	for _, opt := range o {
		out = append(out, opt.Name)
		if opt.Value != "" {
			out = append(out, opt.Value)
		}
	}
	return out
}

// String joins the tokens with single spaces
func (o Options) String() string {
	return strings.Join(o.Tokens(), " ")
}

// Map returns the options keyed by name; flags map to ""
func (o Options) Map() map[string]string {
	m := make(map[string]string, len(o))
	for _, opt := range o {
		m[opt.Name] = opt.Value
	}
	return m
}

// ParseOptions splits a raw options string. takesValue decides whether a
// name consumes the following token; a trailing value-taking name without
// value is kept as a flag.
func ParseOptions(raw string, takesValue func(name string) bool) Options {
	tokens := strings.Fields(raw)
	out := make(Options, 0, len(tokens))
	for i := 0; i < len(tokens); i++ {
		name := tokens[i]
		if takesValue(name) && i+1 < len(tokens) {
			out = append(out, Pair(name, tokens[i+1]))
			i++
			continue
		}
		out = append(out, Flag(name))
	}
	return out
}

func (o Options) toTree() *tree.Tree {
	t := tree.New()
	for _, opt := range o {
		var v tree.Value
		if opt.Value != "" {
			v = tree.Scalar(opt.Value)
		}
		t.Add(opt.Name, v, nil)
	}
	return t
}

func optionsFromTree(t *tree.Tree) Options {
	if t == nil {
		return nil
	}
	var out Options
	for _, e := range t.Elements() {
		name := tree.BaseKey(e.Key)
		if name == tree.CommentKey {
			continue
		}
		out = append(out, Option{Name: name, Value: tree.ValueString(e.Value)})
	}
	return out
}
