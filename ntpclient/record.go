package ntpclient

import (
	"strings"

	"github.com/google/uuid"

	"github.com/davidroman0O/ntpconf/conffile"
	"github.com/davidroman0O/ntpconf/errors"
	"github.com/davidroman0O/ntpconf/lens"
)

// Sync record types. TypeClock is a local reference clock: it is stored as
// a server line whose address is in 127.127.0.0/16.
const (
	TypeServer          = "server"
	TypePeer            = "peer"
	TypePool            = "pool"
	TypeBroadcast       = "broadcast"
	TypeBroadcastClient = "broadcastclient"
	TypeClock           = "__clock"
)

var syncKinds = map[string]conffile.Kind{
	TypeServer:          conffile.KindServer,
	TypePeer:            conffile.KindPeer,
	TypePool:            conffile.KindPool,
	TypeBroadcast:       conffile.KindBroadcast,
	TypeBroadcastClient: conffile.KindBroadcastClient,
	TypeClock:           conffile.KindServer,
}

// RecordHandle refers to the configuration line a record was read from or
// last written to. The zero handle is unbound.
type RecordHandle struct {
	id uuid.UUID
}

// Bound reports whether the handle refers to a line
func (h RecordHandle) Bound() bool {
	return h.id != uuid.Nil
}

func handleOf(r *conffile.Record) RecordHandle {
	if r == nil {
		return RecordHandle{}
	}
	return RecordHandle{id: r.ID()}
}

// SyncRecord is one time source as presented to the user interface. Only the
// exported fields are part of a profile.
type SyncRecord struct {
	Type    string `yaml:"type" json:"type" jsonschema:"enum=server,enum=peer,enum=pool,enum=broadcast,enum=broadcastclient,enum=__clock"`
	Address string `yaml:"address,omitempty" json:"address,omitempty"`
	Options string `yaml:"options,omitempty" json:"options,omitempty"`
	Comment string `yaml:"comment,omitempty" json:"comment,omitempty"`

	// Local clocks only
	FudgeOptions string `yaml:"fudge_options,omitempty" json:"fudge_options,omitempty"`
	FudgeComment string `yaml:"fudge_comment,omitempty" json:"fudge_comment,omitempty"`

	handle      RecordHandle
	fudgeHandle RecordHandle
}

// Handle returns the line the record is bound to
func (r SyncRecord) Handle() RecordHandle {
	return r.handle
}

// Validate checks the record before it replaces the selection
func (r SyncRecord) Validate() error {
	if _, ok := syncKinds[r.Type]; !ok {
		return errors.WithContext(
			errors.Newf(errors.ErrValidation, "unknown sync record type %q", r.Type),
			map[string]interface{}{"type": r.Type},
		)
	}
	switch r.Type {
	case TypeBroadcastClient:
		return nil
	case TypeClock:
		if !IsLocalClock(r.Address) {
			return errors.WithContext(
				errors.Newf(errors.ErrValidation, "%q is not a local clock address", r.Address),
				map[string]interface{}{"address": r.Address},
			)
		}
		return nil
	}
	return ValidateAddress(r.Address)
}

// RestrictEntry is one access rule. Options carries the ipv4/ipv6 marker
// and the action flags.
type RestrictEntry struct {
	Address string `yaml:"address" json:"address"`
	Mask    string `yaml:"mask,omitempty" json:"mask,omitempty"`
	Options string `yaml:"options,omitempty" json:"options,omitempty"`
	Comment string `yaml:"comment,omitempty" json:"comment,omitempty"`
}

// Key identifies the entry in the restrict map: the address, prefixed by
// -4 or -6 when the rule is limited to one IP version.
func (e RestrictEntry) Key() string {
	for _, opt := range strings.Fields(e.Options) {
		switch opt {
		case lens.IPv4Key, "-4":
			return "-4 " + e.Address
		case lens.IPv6Key, "-6":
			return "-6 " + e.Address
		}
	}
	return e.Address
}

// Validate checks the address and mask
func (e RestrictEntry) Validate() error {
	if e.Address != "default" {
		if err := ValidateAddress(e.Address); err != nil {
			return err
		}
	}
	if e.Mask != "" {
		if err := ValidateAddress(e.Mask); err != nil {
			return errors.WithContext(err, map[string]interface{}{"mask": e.Mask})
		}
	}
	return nil
}

func restrictFromRecord(r *conffile.Record) RestrictEntry {
	return RestrictEntry{
		Address: r.Value(),
		Mask:    r.Mask(),
		Options: r.RawOptions(),
		Comment: r.Comment(),
	}
}

func applyRestrict(r *conffile.Record, e RestrictEntry) {
	if r.Value() != e.Address {
		r.SetValue(e.Address)
	}
	if r.Mask() != e.Mask {
		r.SetMask(e.Mask)
	}
	if r.RawOptions() != normalizeRestrictOptions(e.Options) {
		r.SetRawOptions(e.Options)
	}
	if r.Comment() != e.Comment {
		r.SetComment(e.Comment)
	}
}

func normalizeRestrictOptions(raw string) string {
	var ip, actions []string
	for _, opt := range strings.Fields(raw) {
		switch opt {
		case "-4", lens.IPv4Key:
			ip = append(ip, lens.IPv4Key)
		case "-6", lens.IPv6Key:
			ip = append(ip, lens.IPv6Key)
		default:
			actions = append(actions, opt)
		}
	}
	return strings.Join(append(ip, actions...), " ")
}
