package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/davidroman0O/ntpconf/errors"
)

// Default file locations
const (
	DefaultNtpConf          = "/etc/ntp.conf"
	DefaultChronyConf       = "/etc/chrony.conf"
	DefaultPoolFragment     = "/etc/chrony.d/pool.conf"
	DefaultSysconfigNtp     = "/etc/sysconfig/ntp"
	DefaultSysconfigNetwork = "/etc/sysconfig/network/config"
	DefaultCronFile         = "/etc/cron.d/suse-ntp_synchronize"
)

// Default returns the configuration used when no file is given
func Default() *ConfigFile {
	config := &ConfigFile{}
	config.ApplyDefaults()
	return config
}

// LoadConfigFile loads a configuration file and returns the parsed ConfigFile struct
func LoadConfigFile(path string) (*ConfigFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithContext(errors.Wrap(err, errors.ErrConfiguration, "failed to read config file"), map[string]interface{}{"path": path})
	}

	config := &ConfigFile{}
	ext := filepath.Ext(path)

	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, errors.WithContext(errors.Wrap(err, errors.ErrParse, "failed to parse YAML config"), map[string]interface{}{"path": path})
		}
	case ".json":
		if err := json.Unmarshal(data, config); err != nil {
			return nil, errors.WithContext(errors.Wrap(err, errors.ErrParse, "failed to parse JSON config"), map[string]interface{}{"path": path})
		}
	default:
		return nil, errors.WithContext(errors.Newf(errors.ErrConfiguration, "unsupported config file format: %s", ext), map[string]interface{}{"path": path})
	}

	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// ApplyDefaults fills every empty field
func (c *ConfigFile) ApplyDefaults() {
	if c.Backend == "" {
		c.Backend = BackendNTP
	}
	if c.Target.Root == "" {
		c.Target.Root = "/"
	}
	if c.Target.SSH != nil && c.Target.SSH.Port == 0 {
		c.Target.SSH.Port = 22
	}

	f := &c.Files
	setDefault(&f.NtpConf, DefaultNtpConf)
	setDefault(&f.ChronyConf, DefaultChronyConf)
	setDefault(&f.PoolFragment, DefaultPoolFragment)
	setDefault(&f.SysconfigNtp, DefaultSysconfigNtp)
	setDefault(&f.SysconfigNetwork, DefaultSysconfigNetwork)
	setDefault(&f.CronFile, DefaultCronFile)
}

func setDefault(field *string, value string) {
	if *field == "" {
		*field = value
	}
}

// Validate checks the values that cannot be defaulted
func (c *ConfigFile) Validate() error {
	switch c.Backend {
	case BackendNTP, BackendChrony:
	default:
		return errors.Newf(errors.ErrConfiguration, "unsupported backend %q", c.Backend)
	}
	if ssh := c.Target.SSH; ssh != nil {
		if ssh.Host == "" || ssh.User == "" {
			return errors.New(errors.ErrConfiguration, "ssh target needs host and user")
		}
		if ssh.Password == "" && ssh.KeyFile == "" {
			return errors.New(errors.ErrConfiguration, "ssh target needs a password or a key file")
		}
	}
	return nil
}
