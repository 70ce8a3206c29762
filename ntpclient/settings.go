package ntpclient

import (
	"context"

	"github.com/davidroman0O/ntpconf/errors"
	"github.com/davidroman0O/ntpconf/sysconfig"
)

const (
	keyRunChrooted     = "NTPD_RUN_CHROOTED"
	keyNetconfigPolicy = "NETCONFIG_NTP_POLICY"

	// DefaultNetconfigPolicy merges static and DHCP provided servers
	DefaultNetconfigPolicy = "auto"
)

// Settings are the values kept outside ntp.conf
type Settings struct {
	// RunChrooted runs ntpd in its chroot jail
	RunChrooted bool `yaml:"start_in_chroot" json:"start_in_chroot"`
	// NetconfigPolicy decides how DHCP provided servers are merged
	NetconfigPolicy string `yaml:"ntp_policy,omitempty" json:"ntp_policy,omitempty"`
	// SyncInterval runs a one-shot synchronization every N minutes; 0 disables it
	SyncInterval int `yaml:"sync_interval,omitempty" json:"sync_interval,omitempty"`
}

// Validate checks the sync interval
func (st Settings) Validate() error {
	if st.SyncInterval == 0 {
		return nil
	}
	return Schedule{IntervalMinutes: st.SyncInterval}.Validate()
}

// Settings returns the current settings
func (s *Session) Settings() Settings {
	return s.settings
}

// SetSettings replaces the settings
func (s *Session) SetSettings(st Settings) error {
	if err := st.Validate(); err != nil {
		s.lastErr = err
		return err
	}
	if st != s.settings {
		s.settings = st
		s.modified = true
	}
	return nil
}

func (s *Session) readSettings(ctx context.Context) error {
	sysNtp, err := sysconfig.Load(ctx, s.fs, s.paths.SysconfigNtp)
	if err != nil {
		return err
	}
	sysNetwork, err := sysconfig.Load(ctx, s.fs, s.paths.SysconfigNetwork)
	if err != nil {
		return err
	}

	st := Settings{
		RunChrooted:     sysconfig.Bool(sysNtp.GetDefault(keyRunChrooted, "yes")),
		NetconfigPolicy: sysNetwork.GetDefault(keyNetconfigPolicy, DefaultNetconfigPolicy),
	}

	s.cronPresent, err = s.fs.Exists(ctx, s.paths.CronFile)
	if err != nil {
		return errors.WithContext(errors.Wrap(err, errors.ErrParse, "failed to stat cron file"), map[string]interface{}{"path": s.paths.CronFile})
	}
	if s.cronPresent {
		data, err := s.fs.ReadFile(ctx, s.paths.CronFile)
		if err != nil {
			return errors.WithContext(errors.Wrap(err, errors.ErrParse, "failed to read cron file"), map[string]interface{}{"path": s.paths.CronFile})
		}
		if sched, err := ParseSchedule(string(data)); err == nil {
			st.SyncInterval = sched.IntervalMinutes
		} else {
			s.log.Warn("Ignoring %s: %v", s.paths.CronFile, err)
		}
	}

	s.sysNtp, s.sysNetwork = sysNtp, sysNetwork
	s.settings, s.loaded = st, st
	s.settingsRead = true
	return nil
}

// writeSettings saves the settings that changed since they were read
func (s *Session) writeSettings(ctx context.Context) error {
	if !s.settingsRead || s.settings == s.loaded {
		return nil
	}
	st := s.settings

	if st.RunChrooted != s.loaded.RunChrooted {
		s.sysNtp.Set(keyRunChrooted, sysconfig.YesNo(st.RunChrooted))
		if err := s.sysNtp.Save(ctx, s.fs); err != nil {
			return err
		}
	}
	if st.NetconfigPolicy != s.loaded.NetconfigPolicy {
		s.sysNetwork.Set(keyNetconfigPolicy, st.NetconfigPolicy)
		if err := s.sysNetwork.Save(ctx, s.fs); err != nil {
			return err
		}
	}
	if st.SyncInterval != s.loaded.SyncInterval {
		if err := s.writeSchedule(ctx, st.SyncInterval); err != nil {
			return err
		}
	}
	s.loaded = st
	return nil
}

func (s *Session) writeSchedule(ctx context.Context, interval int) error {
	if interval == 0 {
		if !s.cronPresent {
			return nil
		}
		if err := s.fs.Remove(ctx, s.paths.CronFile); err != nil {
			return errors.WithContext(errors.Wrap(err, errors.ErrWrite, "failed to remove cron file"), map[string]interface{}{"path": s.paths.CronFile})
		}
		s.cronPresent = false
		return nil
	}
	line := Schedule{IntervalMinutes: interval}.Line() + "\n"
	if err := s.fs.WriteFile(ctx, s.paths.CronFile, []byte(line), 0644); err != nil {
		return errors.WithContext(errors.Wrap(err, errors.ErrWrite, "failed to write cron file"), map[string]interface{}{"path": s.paths.CronFile})
	}
	s.cronPresent = true
	return nil
}
