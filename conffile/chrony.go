package conffile

import (
	"regexp"

	"github.com/davidroman0O/ntpconf/lens"
	"github.com/davidroman0O/ntpconf/target"
	"github.com/davidroman0O/ntpconf/tree"
)

const (
	// DefaultChronyConfPath is where chronyd reads its configuration
	DefaultChronyConfPath = "/etc/chrony.conf"

	// DefaultPoolFragmentPath holds the pools configured at installation
	DefaultPoolFragmentPath = "/etc/chrony.d/pool.conf"
)

// sourceListComment marks the comment above the source list in the stock
// chrony.conf
var sourceListComment = regexp.MustCompile(`pool\.ntp\.org`)

var chronyCollectionKeys = []string{
	"pool",
	"server",
	"peer",
	"refclock",
	"allow",
	"deny",
	"#comment",
}

var chronyKinds = []Kind{
	KindServer,
	KindPeer,
	KindPool,
	KindRefclock,
	KindDriftfile,
	KindLogfile,
	KindKeys,
}

// DefaultPoolOptions are used for pools added without options
func DefaultPoolOptions() Options {
	return Options{Flag("iburst")}
}

// ParseSourceOptions splits the options of a source directive the way
// chronyd reads them
func ParseSourceOptions(kind Kind, raw string) Options {
	return ParseOptions(raw, func(opt string) bool {
		return lens.Chrony.TakesValue(kind.String(), opt)
	})
}

// ChronyConf is the model of a chrony configuration file
type ChronyConf struct {
	model
}

// NewChronyConf binds an empty model to path on fs. An empty path selects
// DefaultChronyConfPath. Call Load to read the file.
func NewChronyConf(fs target.FS, path string) *ChronyConf {
	if path == "" {
		path = DefaultChronyConfPath
	}
	return &ChronyConf{model: newModel(fs, path, lens.Chrony, chronyKinds, chronyCollectionKeys)}
}

// placerFor picks where a new source of kind goes: after the last entry of
// the same kind, else after the source list comment, else at the end.
func (c *ChronyConf) placerFor(kind Kind) tree.Placer {
	if last := c.tree.Last(tree.MatchBase(kind.String())); last != nil {
		return tree.AfterPlacer{Matcher: tree.MatchElement(last)}
	}
	if c.tree.First(tree.MatchComment(sourceListComment)) != nil {
		return tree.AfterPlacer{Matcher: tree.MatchComment(sourceListComment)}
	}
	return tree.AppendPlacer{}
}

func (c *ChronyConf) add(kind Kind, address string, options Options, p tree.Placer) *Record {
	r := c.NewRecord(kind, address)
	if len(options) > 0 {
		r.SetOptions(options)
	}
	return c.records.Add(r, p)
}

// AddPool adds a pool directive following the placement policy. An invalid
// address or option is an ErrValidation error and leaves the file as it was.
func (c *ChronyConf) AddPool(address string, options Options) error {
	if err := validateSource(KindPool, address, options); err != nil {
		return err
	}
	c.add(KindPool, address, options, c.placerFor(KindPool))
	return nil
}

// AddServer adds a server directive following the placement policy
func (c *ChronyConf) AddServer(address string, options Options) error {
	if err := validateSource(KindServer, address, options); err != nil {
		return err
	}
	c.add(KindServer, address, options, c.placerFor(KindServer))
	return nil
}

// ModifyPool replaces the pool original in place. When original is not
// configured the pool is added like AddPool.
func (c *ChronyConf) ModifyPool(original, address string, options Options) error {
	return c.modify(KindPool, original, address, options)
}

// ModifyServer replaces the server original in place
func (c *ChronyConf) ModifyServer(original, address string, options Options) error {
	return c.modify(KindServer, original, address, options)
}

func (c *ChronyConf) modify(kind Kind, original, address string, options Options) error {
	if err := validateSource(kind, address, options); err != nil {
		return err
	}
	old := c.tree.First(tree.MatchValue(kind.String(), original))
	if old == nil {
		c.add(kind, address, options, c.placerFor(kind))
		return nil
	}
	c.add(kind, address, options, tree.AfterPlacer{Matcher: tree.MatchElement(old)})
	c.tree.DeleteElement(old)
	c.records.Invalidate()
	return nil
}

// DeletePool removes every pool with the address
func (c *ChronyConf) DeletePool(address string) {
	c.deleteSource(KindPool, address)
}

// DeleteServer removes every server with the address
func (c *ChronyConf) DeleteServer(address string) {
	c.deleteSource(KindServer, address)
}

func (c *ChronyConf) deleteSource(kind Kind, address string) {
	c.records.DeleteIf(func(r *Record) bool {
		return r.Kind() == kind && r.Value() == address
	})
}

// ClearPools removes all pool directives
func (c *ChronyConf) ClearPools() {
	c.clear(KindPool)
}

// ClearServers removes all server directives
func (c *ChronyConf) ClearServers() {
	c.clear(KindServer)
}

// ClearSources removes pools, servers and peers
func (c *ChronyConf) ClearSources() {
	c.clear(KindPool, KindServer, KindPeer)
}

func (c *ChronyConf) clear(kinds ...Kind) {
	set := make(map[Kind]bool, len(kinds))
	for _, k := range kinds {
		set[k] = true
	}
	c.records.DeleteIf(func(r *Record) bool { return set[r.Kind()] })
}

// Pools maps every pool address to its options
func (c *ChronyConf) Pools() map[string]Options {
	return c.sources(KindPool)
}

// Servers maps every server address to its options
func (c *ChronyConf) Servers() map[string]Options {
	return c.sources(KindServer)
}

func (c *ChronyConf) sources(kind Kind) map[string]Options {
	out := make(map[string]Options)
	for _, r := range c.records.OfKind(kind) {
		out[r.Value()] = r.Options()
	}
	return out
}

// HardwareClock reports whether a refclock is configured
func (c *ChronyConf) HardwareClock() bool {
	return len(c.records.OfKind(KindRefclock)) > 0
}
