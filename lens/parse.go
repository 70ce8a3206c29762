package lens

import (
	"strings"

	"github.com/davidroman0O/ntpconf/errors"
	"github.com/davidroman0O/ntpconf/tree"
)

// Parse turns configuration text into a tree. It fails on the first line
// that does not fit the grammar; no partial tree is returned.
func (l *Lens) Parse(text string) (*tree.Tree, error) {
	t := tree.New()
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	for i, line := range lines {
		e, err := l.parseLine(line)
		if err != nil {
			return nil, errors.WithContext(errors.WithOp(err, l.name+" lens"), map[string]interface{}{
				"line": i + 1,
				"text": line,
			})
		}
		e.SetSource(line, l.render(e))
		t.Insert(e, nil)
	}
	return t, nil
}

func (l *Lens) parseLine(line string) (*tree.Element, error) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return tree.NewElement(tree.BlankKey, nil), nil
	}
	if strings.HasPrefix(trimmed, "#") {
		return tree.NewElement(tree.CommentKey, tree.Scalar(commentText(trimmed))), nil
	}

	body, comment, hasComment := strings.Cut(trimmed, "#")
	fields := strings.Fields(body)
	key, args := fields[0], fields[1:]

	var (
		value tree.Value
		err   error
	)
	switch l.shapeOf(key) {
	case shapeCommand:
		value, err = l.parseCommand(key, args)
	case shapeFlags:
		value, err = l.parseFlags(key, args)
	case shapeFudge:
		value, err = parseFudge(key, args)
	case shapePairs:
		value, err = parsePairs(key, args)
	case shapeRestrict:
		value, err = parseRestrict(args)
	case shapeRefclock:
		value, err = l.parseRefclock(key, args)
	default:
		if len(args) > 0 {
			value = tree.Scalar(strings.Join(args, " "))
		}
	}
	if err != nil {
		return nil, err
	}

	if hasComment {
		value = attachComment(value, commentText("#"+comment))
	}
	return tree.NewElement(key, value), nil
}

func commentText(s string) string {
	return strings.TrimSpace(strings.TrimPrefix(s, "#"))
}

// attachComment stores an inline comment as a #comment option, promoting
// scalars and flags to values that can carry options.
func attachComment(v tree.Value, text string) tree.Value {
	switch val := v.(type) {
	case nil:
		opts := tree.New()
		opts.Add(tree.CommentKey, tree.Scalar(text), nil)
		return opts
	case tree.Scalar:
		opts := tree.New()
		opts.Add(tree.CommentKey, tree.Scalar(text), nil)
		return &tree.TreeValue{Tree: opts, Value: string(val)}
	case *tree.TreeValue:
		if val.Tree == nil {
			val.Tree = tree.New()
		}
		val.Tree.Add(tree.CommentKey, tree.Scalar(text), nil)
		return val
	case *tree.Tree:
		val.Add(tree.CommentKey, tree.Scalar(text), nil)
		return val
	}
	return v
}

func (l *Lens) parseOptions(directive string, tokens []string) (*tree.Tree, error) {
	opts := tree.New()
	for i := 0; i < len(tokens); i++ {
		name := tokens[i]
		if !l.TakesValue(directive, name) {
			opts.Add(name, nil, nil)
			continue
		}
		if i+1 >= len(tokens) {
			return nil, errors.Newf(errors.ErrParse, "%s: option %q requires a value", directive, name)
		}
		opts.Add(name, tree.Scalar(tokens[i+1]), nil)
		i++
	}
	return opts, nil
}

func withOptions(value string, opts *tree.Tree) tree.Value {
	if opts == nil || opts.Len() == 0 {
		return tree.Scalar(value)
	}
	return &tree.TreeValue{Tree: opts, Value: value}
}

func (l *Lens) parseCommand(key string, args []string) (tree.Value, error) {
	if len(args) == 0 {
		return nil, errors.Newf(errors.ErrParse, "%s: missing address", key)
	}
	opts, err := l.parseOptions(key, args[1:])
	if err != nil {
		return nil, err
	}
	return withOptions(args[0], opts), nil
}

func (l *Lens) parseFlags(key string, args []string) (tree.Value, error) {
	if len(args) == 0 {
		return nil, nil
	}
	opts, err := l.parseOptions(key, args)
	if err != nil {
		return nil, err
	}
	return opts, nil
}

func pairs(key string, tokens []string) (*tree.Tree, error) {
	if len(tokens)%2 != 0 {
		return nil, errors.Newf(errors.ErrParse, "%s: option %q requires a value", key, tokens[len(tokens)-1])
	}
	opts := tree.New()
	for i := 0; i < len(tokens); i += 2 {
		opts.Add(tokens[i], tree.Scalar(tokens[i+1]), nil)
	}
	return opts, nil
}

func parseFudge(key string, args []string) (tree.Value, error) {
	if len(args) == 0 {
		return nil, errors.Newf(errors.ErrParse, "%s: missing clock address", key)
	}
	opts, err := pairs(key, args[1:])
	if err != nil {
		return nil, err
	}
	return withOptions(args[0], opts), nil
}

func parsePairs(key string, args []string) (tree.Value, error) {
	if len(args) == 0 {
		return nil, errors.Newf(errors.ErrParse, "%s: missing parameters", key)
	}
	return pairs(key, args)
}

func parseRestrict(args []string) (tree.Value, error) {
	opts := tree.New()
	if len(args) > 0 {
		switch args[0] {
		case "-4":
			opts.Add(IPv4Key, nil, nil)
			args = args[1:]
		case "-6":
			opts.Add(IPv6Key, nil, nil)
			args = args[1:]
		}
	}
	if len(args) == 0 {
		return nil, errors.New(errors.ErrParse, "restrict: missing address")
	}
	address, rest := args[0], args[1:]
	for i := 0; i < len(rest); i++ {
		if rest[i] == MaskKey {
			if i+1 >= len(rest) {
				return nil, errors.New(errors.ErrParse, "restrict: mask requires a value")
			}
			opts.Add(MaskKey, tree.Scalar(rest[i+1]), nil)
			i++
			continue
		}
		opts.Add(ActionKey, tree.Scalar(rest[i]), nil)
	}
	return withOptions(address, opts), nil
}

func (l *Lens) parseRefclock(key string, args []string) (tree.Value, error) {
	if len(args) < 2 {
		return nil, errors.Newf(errors.ErrParse, "%s: expected driver and parameter", key)
	}
	opts, err := l.parseOptions(key, args[2:])
	if err != nil {
		return nil, err
	}
	return withOptions(args[0]+" "+args[1], opts), nil
}
