package ntpclient

import (
	"context"
	"sort"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"

	"github.com/davidroman0O/ntpconf/errors"
)

// Profile is the portable form of a session, used for unattended
// installation and for cloning a configuration. Record handles are not part
// of it. A nil Restricts leaves the access rules alone on Import; an empty
// one removes them all.
type Profile struct {
	Peers     []SyncRecord    `yaml:"peers" json:"peers"`
	Restricts []RestrictEntry `yaml:"restricts,omitempty" json:"restricts,omitempty"`
	Settings  `yaml:",inline" json:",inline"`
}

// Export returns the session as a profile. Restricts are sorted by key.
func (s *Session) Export() Profile {
	p := Profile{Settings: s.settings}
	for _, r := range s.records {
		r.handle = RecordHandle{}
		r.fudgeHandle = RecordHandle{}
		p.Peers = append(p.Peers, r)
	}

	keys := make([]string, 0, len(s.restrictMap))
	for k := range s.restrictMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		p.Restricts = append(p.Restricts, s.restrictMap[k])
	}
	return p
}

// Validate checks every record and rule of the profile
func (p Profile) Validate() error {
	for i, r := range p.Peers {
		if err := r.Validate(); err != nil {
			return errors.WithContext(err, map[string]interface{}{"peer": i})
		}
	}
	for i, e := range p.Restricts {
		if err := e.Validate(); err != nil {
			return errors.WithContext(err, map[string]interface{}{"restrict": i})
		}
	}
	return p.Settings.Validate()
}

// Import replaces the sources, restrict rules and settings with the
// profile. The files are read first when needed; the current sources are
// deleted on Write. Nothing changes when the profile is invalid.
func (s *Session) Import(ctx context.Context, p Profile) error {
	if err := p.Validate(); err != nil {
		s.lastErr = err
		return err
	}
	if err := s.ProcessNtpConf(ctx); err != nil {
		return err
	}
	if !s.settingsRead {
		if err := s.readSettings(ctx); err != nil {
			return err
		}
	}

	for _, r := range s.records {
		s.addToDeleted(r)
	}
	s.records = nil
	for _, r := range p.Peers {
		r.handle = RecordHandle{}
		r.fudgeHandle = RecordHandle{}
		s.records = append(s.records, r)
	}

	if p.Restricts != nil {
		s.restrictMap = make(map[string]RestrictEntry, len(p.Restricts))
		for _, e := range p.Restricts {
			s.restrictMap[e.Key()] = e
		}
	}

	st := p.Settings
	if st.NetconfigPolicy == "" {
		st.NetconfigPolicy = s.settings.NetconfigPolicy
	}
	s.settings = st
	s.selectedIndex = -1
	s.selected = SyncRecord{}
	s.modified = true
	s.log.Info("Imported %d sync records and %d restrict rules", len(s.records), len(s.restrictMap))
	return nil
}

// MarshalProfile encodes p as YAML
func MarshalProfile(p Profile) ([]byte, error) {
	return yaml.Marshal(p)
}

// UnmarshalProfile decodes a YAML (or JSON) profile
func UnmarshalProfile(data []byte) (Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Profile{}, errors.Wrap(err, errors.ErrParse, "failed to parse profile")
	}
	return p, nil
}

// ProfileFromMap builds a profile from loosely typed data such as a decoded
// XML or JSON document, where numbers and booleans may arrive as strings.
func ProfileFromMap(m map[string]interface{}) (Profile, error) {
	var p Profile
	var err error

	if v, ok := m["start_in_chroot"]; ok {
		if p.RunChrooted, err = cast.ToBoolE(v); err != nil {
			return Profile{}, profileFieldError("start_in_chroot", err)
		}
	}
	if v, ok := m["ntp_policy"]; ok {
		if p.NetconfigPolicy, err = cast.ToStringE(v); err != nil {
			return Profile{}, profileFieldError("ntp_policy", err)
		}
	}
	if v, ok := m["sync_interval"]; ok {
		if p.SyncInterval, err = cast.ToIntE(v); err != nil {
			return Profile{}, profileFieldError("sync_interval", err)
		}
	}

	peers, err := mapList(m, "peers")
	if err != nil {
		return Profile{}, err
	}
	for _, item := range peers {
		p.Peers = append(p.Peers, SyncRecord{
			Type:         cast.ToString(item["type"]),
			Address:      cast.ToString(item["address"]),
			Options:      cast.ToString(item["options"]),
			Comment:      cast.ToString(item["comment"]),
			FudgeOptions: cast.ToString(item["fudge_options"]),
			FudgeComment: cast.ToString(item["fudge_comment"]),
		})
	}

	restricts, err := mapList(m, "restricts")
	if err != nil {
		return Profile{}, err
	}
	if restricts != nil {
		p.Restricts = make([]RestrictEntry, 0, len(restricts))
	}
	for _, item := range restricts {
		p.Restricts = append(p.Restricts, RestrictEntry{
			Address: cast.ToString(item["address"]),
			Mask:    cast.ToString(item["mask"]),
			Options: cast.ToString(item["options"]),
			Comment: cast.ToString(item["comment"]),
		})
	}
	return p, nil
}

func mapList(m map[string]interface{}, key string) ([]map[string]interface{}, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, nil
	}
	items, err := cast.ToSliceE(v)
	if err != nil {
		return nil, profileFieldError(key, err)
	}
	out := make([]map[string]interface{}, 0, len(items))
	for _, item := range items {
		entry, err := cast.ToStringMapE(item)
		if err != nil {
			return nil, profileFieldError(key, err)
		}
		out = append(out, entry)
	}
	return out, nil
}

func profileFieldError(field string, err error) error {
	return errors.WithContext(
		errors.Wrap(err, errors.ErrValidation, "invalid profile value"),
		map[string]interface{}{"field": field},
	)
}

// ProfileSchema returns the JSON schema of Profile
func ProfileSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		ExpandedStruct: true,
	}
	return reflector.Reflect(&Profile{})
}
