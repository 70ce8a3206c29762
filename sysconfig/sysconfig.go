// Package sysconfig reads and edits /etc/sysconfig style files: shell
// variable assignments of the form KEY="value" between comment lines.
// Editing a variable rewrites only its own line.
package sysconfig

import (
	"context"
	"regexp"
	"strings"

	"github.com/davidroman0O/ntpconf/errors"
	"github.com/davidroman0O/ntpconf/target"
)

var assignment = regexp.MustCompile(`^\s*([A-Za-z_][A-Za-z0-9_]*)=(.*)$`)

type line struct {
	text  string
	key   string
	value string
}

// File is a parsed sysconfig file
type File struct {
	path  string
	lines []*line
	dirty bool
}

// Parse reads sysconfig text
func Parse(path, text string) *File {
	f := &File{path: path}
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return f
	}
	for _, raw := range strings.Split(text, "\n") {
		l := &line{text: raw}
		if m := assignment.FindStringSubmatch(raw); m != nil {
			l.key = m[1]
			l.value = unquote(strings.TrimSpace(m[2]))
		}
		f.lines = append(f.lines, l)
	}
	return f
}

// Load reads path from fs. A missing file yields an empty File.
func Load(ctx context.Context, fs target.FS, path string) (*File, error) {
	exists, err := fs.Exists(ctx, path)
	if err != nil {
		return nil, errors.WithContext(errors.Wrap(err, errors.ErrParse, "failed to stat sysconfig file"), map[string]interface{}{"path": path})
	}
	if !exists {
		return &File{path: path}, nil
	}
	data, err := fs.ReadFile(ctx, path)
	if err != nil {
		return nil, errors.WithContext(errors.Wrap(err, errors.ErrParse, "failed to read sysconfig file"), map[string]interface{}{"path": path})
	}
	return Parse(path, string(data)), nil
}

// Path returns the file location
func (f *File) Path() string {
	return f.path
}

// Get returns the unquoted value of key
func (f *File) Get(key string) (string, bool) {
	for _, l := range f.lines {
		if l.key == key {
			return l.value, true
		}
	}
	return "", false
}

// GetDefault returns the value of key, or def when unset
func (f *File) GetDefault(key, def string) string {
	if v, ok := f.Get(key); ok {
		return v
	}
	return def
}

// Set assigns key. An existing assignment is rewritten in place; a new one
// is appended.
func (f *File) Set(key, value string) {
	for _, l := range f.lines {
		if l.key == key {
			if l.value != value {
				l.value = value
				l.text = key + "=" + quote(value)
				f.dirty = true
			}
			return
		}
	}
	f.lines = append(f.lines, &line{text: key + "=" + quote(value), key: key, value: value})
	f.dirty = true
}

// Changed reports whether Set modified the file since it was loaded or saved
func (f *File) Changed() bool {
	return f.dirty
}

// String renders the file
func (f *File) String() string {
	if len(f.lines) == 0 {
		return ""
	}
	var b strings.Builder
	for _, l := range f.lines {
		b.WriteString(l.text)
		b.WriteByte('\n')
	}
	return b.String()
}

// Save writes the file when it changed
func (f *File) Save(ctx context.Context, fs target.FS) error {
	if !f.dirty {
		return nil
	}
	if err := fs.WriteFile(ctx, f.path, []byte(f.String()), 0644); err != nil {
		return errors.WithContext(errors.Wrap(err, errors.ErrWrite, "failed to write sysconfig file"), map[string]interface{}{"path": f.path})
	}
	f.dirty = false
	return nil
}

func unquote(v string) string {
	if len(v) >= 2 {
		switch {
		case v[0] == '"' && v[len(v)-1] == '"':
			r := strings.NewReplacer(`\"`, `"`, `\\`, `\`, `\$`, `$`, "\\`", "`")
			return r.Replace(v[1 : len(v)-1])
		case v[0] == '\'' && v[len(v)-1] == '\'':
			return v[1 : len(v)-1]
		}
	}
	return v
}

func quote(v string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, `$`, `\$`, "`", "\\`")
	return `"` + r.Replace(v) + `"`
}

// Bool interprets a yes/no sysconfig value
func Bool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "yes", "true", "1", "on":
		return true
	}
	return false
}

// YesNo renders b as a sysconfig yes/no value
func YesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
