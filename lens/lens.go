// Package lens translates ntp.conf and chrony.conf text into a tree.Tree and
// back. Each line becomes one element; trailing tokens of a directive become
// its option sub-tree. Lines that were not modified since parsing are written
// back byte for byte.
package lens

import (
	"strings"

	"github.com/davidroman0O/ntpconf/errors"
	"github.com/davidroman0O/ntpconf/tree"
)

// shape describes how the arguments of a directive map onto the tree
type shape int

const (
	// rest of the line as a single scalar
	shapeScalar shape = iota
	// address followed by flag and key/value options
	shapeCommand
	// flag options only, no address
	shapeFlags
	// address followed by key/value pairs
	shapeFudge
	// key/value pairs with no address, stored as a nested tree
	shapePairs
	// [-4|-6] address [mask M] actions...
	shapeRestrict
	// driver and parameter, then options
	shapeRefclock
)

// Option keys used by restrict lines
const (
	IPv4Key   = "ipv4"
	IPv6Key   = "ipv6"
	MaskKey   = "mask"
	ActionKey = "action"
)

// Lens is the grammar of one configuration flavour
type Lens struct {
	name      string
	shapes    map[string]shape
	values    map[string]map[string]bool
	defaultKV map[string]bool
}

// Name identifies the flavour ("ntp" or "chrony")
func (l *Lens) Name() string {
	return l.name
}

// TakesValue reports whether option consumes the following token when it
// appears on a directive line.
func (l *Lens) TakesValue(directive, option string) bool {
	directive = tree.BaseKey(directive)
	if set, ok := l.values[directive]; ok {
		return set[option]
	}
	return l.defaultKV[option]
}

func (l *Lens) shapeOf(key string) shape {
	if s, ok := l.shapes[key]; ok {
		return s
	}
	return shapeScalar
}

func set(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

var ntpValueOptions = []string{"ident", "key", "minpoll", "maxpoll", "mode", "ttl", "version"}

// NTP is the grammar of /etc/ntp.conf
var NTP = newNTP()

func newNTP() *Lens {
	kv := set(ntpValueOptions...)
	return &Lens{
		name: "ntp",
		shapes: map[string]shape{
			"server":          shapeCommand,
			"peer":            shapeCommand,
			"broadcast":       shapeCommand,
			"manycastclient":  shapeCommand,
			"multicastclient": shapeCommand,
			"pool":            shapeCommand,
			"broadcastclient": shapeFlags,
			"fudge":           shapeFudge,
			"tinker":          shapePairs,
			"restrict":        shapeRestrict,
		},
		values:    map[string]map[string]bool{},
		defaultKV: kv,
	}
}

// Chrony is the grammar of /etc/chrony.conf and its fragments
var Chrony = newChrony()

func newChrony() *Lens {
	kv := set(append([]string{
		"maxsources", "minstratum", "polltarget", "port", "presend",
		"maxdelay", "maxdelayratio", "maxdelaydevratio", "mindelay",
		"asymmetry", "offset", "filter", "maxsamples", "minsamples",
		"certset", "extfield", "ntsport",
	}, ntpValueOptions...)...)
	refclock := set("refid", "poll", "dpoll", "filter", "rate", "offset",
		"delay", "precision", "maxdispersion", "maxlockage", "stratum", "lock", "width")
	return &Lens{
		name: "chrony",
		shapes: map[string]shape{
			"server":   shapeCommand,
			"pool":     shapeCommand,
			"peer":     shapeCommand,
			"refclock": shapeRefclock,
		},
		values:    map[string]map[string]bool{"refclock": refclock},
		defaultKV: kv,
	}
}

// ForName returns the grammar for "ntp" or "chrony"
func ForName(name string) (*Lens, error) {
	switch strings.ToLower(name) {
	case "ntp", "ntpd":
		return NTP, nil
	case "chrony", "chronyd":
		return Chrony, nil
	}
	return nil, errors.Newf(errors.ErrConfiguration, "unknown configuration flavour %q", name)
}
