package lens

import (
	"strings"

	"github.com/davidroman0O/ntpconf/tree"
)

// Serialize renders a tree as configuration text. Elements whose canonical
// rendering still equals the one recorded at parse time are emitted with
// their original text. Multi-line comment blocks are not rendered here; the
// caller lowers them into comment elements first.
func (l *Lens) Serialize(t *tree.Tree) (string, error) {
	var b strings.Builder
	for _, e := range t.Elements() {
		line := l.render(e)
		if text, fingerprint := e.Source(); fingerprint != "" && fingerprint == line {
			line = text
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String(), nil
}

// Render returns the canonical line for a single element
func (l *Lens) Render(e *tree.Element) string {
	return l.render(e)
}

func (l *Lens) render(e *tree.Element) string {
	key := tree.BaseKey(e.Key)
	switch key {
	case tree.BlankKey:
		return ""
	case tree.CommentKey:
		text := tree.ValueString(e.Value)
		if text == "" {
			return "#"
		}
		return "# " + text
	}

	restrict := l.shapeOf(key) == shapeRestrict
	parts := []string{key}
	var opts *tree.Tree

	switch v := e.Value.(type) {
	case tree.Scalar:
		if v != "" {
			parts = append(parts, string(v))
		}
	case *tree.TreeValue:
		opts = v.Tree
		if restrict {
			parts = append(parts, ipVersionFlags(opts)...)
		}
		if v.Value != "" {
			parts = append(parts, v.Value)
		}
	case *tree.Tree:
		opts = v
	}

	var comment []string
	if opts != nil {
		for _, o := range opts.Elements() {
			name := tree.BaseKey(o.Key)
			switch {
			case name == tree.CommentKey:
				comment = append(comment, tree.ValueString(o.Value))
				continue
			case restrict && (name == IPv4Key || name == IPv6Key):
				continue
			case restrict && name == ActionKey:
				parts = append(parts, tree.ValueString(o.Value))
				continue
			}
			parts = append(parts, name)
			if s := tree.ValueString(o.Value); s != "" {
				parts = append(parts, s)
			}
		}
	}

	line := strings.Join(parts, " ")
	if len(comment) > 0 {
		line += " # " + strings.Join(comment, " ")
	}
	return line
}

func ipVersionFlags(opts *tree.Tree) []string {
	if opts == nil {
		return nil
	}
	var out []string
	if opts.Has(IPv4Key) {
		out = append(out, "-4")
	}
	if opts.Has(IPv6Key) {
		out = append(out, "-6")
	}
	return out
}
