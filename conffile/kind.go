package conffile

import "github.com/davidroman0O/ntpconf/tree"

// Kind is the closed set of directive types a Record can represent
type Kind int

const (
	KindUnknown Kind = iota
	KindServer
	KindPeer
	KindBroadcast
	KindBroadcastClient
	KindFudge
	KindRestrict
	KindPool
	KindRefclock
	KindDriftfile
	KindLogfile
	KindKeys
	KindTrustedKey
	KindRequestKey
	KindControlKey
	KindTinker
	KindAction
)

// optionShape is the payload layout of a kind
type optionShape int

const (
	optionsCommand optionShape = iota
	optionsFudge
	optionsRestrict
	optionsPairs
	optionsNone
)

type kindInfo struct {
	name  string
	shape optionShape
}

var kinds = map[Kind]kindInfo{
	KindServer:          {"server", optionsCommand},
	KindPeer:            {"peer", optionsCommand},
	KindBroadcast:       {"broadcast", optionsCommand},
	KindBroadcastClient: {"broadcastclient", optionsCommand},
	KindFudge:           {"fudge", optionsFudge},
	KindRestrict:        {"restrict", optionsRestrict},
	KindPool:            {"pool", optionsCommand},
	KindRefclock:        {"refclock", optionsCommand},
	KindDriftfile:       {"driftfile", optionsNone},
	KindLogfile:         {"logfile", optionsNone},
	KindKeys:            {"keys", optionsNone},
	KindTrustedKey:      {"trustedkey", optionsNone},
	KindRequestKey:      {"requestkey", optionsNone},
	KindControlKey:      {"controlkey", optionsNone},
	KindTinker:          {"tinker", optionsPairs},
	KindAction:          {"action", optionsNone},
}

var kindsByName = func() map[string]Kind {
	m := make(map[string]Kind, len(kinds))
	for k, info := range kinds {
		m[info.name] = k
	}
	return m
}()

// String returns the directive name
func (k Kind) String() string {
	if info, ok := kinds[k]; ok {
		return info.name
	}
	return "unknown"
}

func (k Kind) shape() optionShape {
	return kinds[k].shape
}

// ParseKind maps a tree key, with or without collection suffix, to a Kind
func ParseKind(key string) (Kind, bool) {
	k, ok := kindsByName[tree.BaseKey(key)]
	return k, ok
}

// AllKinds returns every recognized kind in declaration order
func AllKinds() []Kind {
	out := make([]Kind, 0, len(kinds))
	for k := KindServer; k <= KindAction; k++ {
		out = append(out, k)
	}
	return out
}
