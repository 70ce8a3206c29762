package conffile

import (
	"context"

	"github.com/davidroman0O/ntpconf/errors"
	"github.com/davidroman0O/ntpconf/target"
)

// Layered combines the system chrony.conf with the installation fragment
// that carries the configured pools. Sources are read from both files; new
// sources go to the fragment when it exists. Content of either file that is
// not a source is left alone.
type Layered struct {
	System   *ChronyConf
	Fragment *ChronyConf

	fs             target.FS
	fragmentExists bool
}

// NewLayered binds both files on fs. Empty paths select the defaults.
func NewLayered(fs target.FS, systemPath, fragmentPath string) *Layered {
	if fragmentPath == "" {
		fragmentPath = DefaultPoolFragmentPath
	}
	return &Layered{
		System:   NewChronyConf(fs, systemPath),
		Fragment: NewChronyConf(fs, fragmentPath),
		fs:       fs,
	}
}

// Load reads the system file and, when present, the fragment
func (l *Layered) Load(ctx context.Context) error {
	if err := l.System.Load(ctx); err != nil {
		return err
	}
	exists, err := l.fs.Exists(ctx, l.Fragment.Path())
	if err != nil {
		return errors.WithContext(
			errors.WithOp(errors.Wrap(err, errors.ErrParse, "failed to stat fragment"), "load"),
			map[string]interface{}{"path": l.Fragment.Path()},
		)
	}
	l.fragmentExists = exists
	if !exists {
		return l.Fragment.LoadString("")
	}
	return l.Fragment.Load(ctx)
}

// FragmentExists reports whether the fragment was found on Load
func (l *Layered) FragmentExists() bool {
	return l.fragmentExists
}

func (l *Layered) primary() *ChronyConf {
	if l.fragmentExists {
		return l.Fragment
	}
	return l.System
}

// Pools returns the union of both files; the fragment wins on duplicates
func (l *Layered) Pools() map[string]Options {
	return merge(l.System.Pools(), l.Fragment.Pools())
}

// Servers returns the union of both files; the fragment wins on duplicates
func (l *Layered) Servers() map[string]Options {
	return merge(l.System.Servers(), l.Fragment.Servers())
}

func merge(base, over map[string]Options) map[string]Options {
	out := make(map[string]Options, len(base)+len(over))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range over {
		out[k] = v
	}
	return out
}

// AddPool adds the pool to the fragment, or to the system file when there
// is no fragment
func (l *Layered) AddPool(address string, options Options) error {
	return l.primary().AddPool(address, options)
}

// AddServer adds the server like AddPool
func (l *Layered) AddServer(address string, options Options) error {
	return l.primary().AddServer(address, options)
}

// ModifyPool edits the pool in whichever file holds it
func (l *Layered) ModifyPool(original, address string, options Options) error {
	if held := l.holding(KindPool, original); len(held) > 0 {
		return held[0].ModifyPool(original, address, options)
	}
	return l.AddPool(address, options)
}

// ModifyServer edits the server in whichever file holds it
func (l *Layered) ModifyServer(original, address string, options Options) error {
	if held := l.holding(KindServer, original); len(held) > 0 {
		return held[0].ModifyServer(original, address, options)
	}
	return l.AddServer(address, options)
}

// DeletePool removes the pool from both files
func (l *Layered) DeletePool(address string) {
	for _, c := range l.holding(KindPool, address) {
		c.DeletePool(address)
	}
}

// DeleteServer removes the server from both files
func (l *Layered) DeleteServer(address string) {
	for _, c := range l.holding(KindServer, address) {
		c.DeleteServer(address)
	}
}

// ClearSources removes pools, servers and peers from both files
func (l *Layered) ClearSources() {
	l.System.ClearSources()
	l.Fragment.ClearSources()
}

// HardwareClock reports whether either file configures a refclock
func (l *Layered) HardwareClock() bool {
	return l.System.HardwareClock() || l.Fragment.HardwareClock()
}

// holding returns the files with a source of kind at address, fragment first
func (l *Layered) holding(kind Kind, address string) []*ChronyConf {
	var out []*ChronyConf
	for _, c := range []*ChronyConf{l.Fragment, l.System} {
		for _, r := range c.RecordsOf(kind) {
			if r.Value() == address {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// Save writes the files whose content changed. A fragment that did not exist
// is only created when it received content.
func (l *Layered) Save(ctx context.Context) error {
	if l.System.Changed() {
		if err := l.System.Save(ctx); err != nil {
			return err
		}
	}
	if l.Fragment.Changed() {
		if err := l.Fragment.Save(ctx); err != nil {
			return err
		}
		l.fragmentExists = true
	}
	return nil
}
