// Package config provides configuration structures and loading utilities
package config

// Backend names the time daemon whose configuration is edited
type Backend string

const (
	BackendNTP    Backend = "ntp"
	BackendChrony Backend = "chrony"
)

// SSHConfig contains SSH connection details for a remote target
type SSHConfig struct {
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port,omitempty" json:"port,omitempty"`
	User     string `yaml:"user" json:"user"`
	Password string `yaml:"password,omitempty" json:"password,omitempty"`
	KeyFile  string `yaml:"keyFile,omitempty" json:"keyFile,omitempty"`

	// KnownHostsFile verifies the host key; unset accepts any key
	KnownHostsFile string `yaml:"knownHostsFile,omitempty" json:"knownHostsFile,omitempty"`
}

// TargetConfig selects the system whose files are edited
type TargetConfig struct {
	// Root prefixes every local path, like an installation target root
	Root string `yaml:"root,omitempty" json:"root,omitempty"`
	// SSH edits a remote host instead; Root is ignored when set
	SSH *SSHConfig `yaml:"ssh,omitempty" json:"ssh,omitempty"`
}

// FilesConfig contains the paths of every file the tool reads or writes
type FilesConfig struct {
	NtpConf          string `yaml:"ntpConf,omitempty" json:"ntpConf,omitempty"`
	ChronyConf       string `yaml:"chronyConf,omitempty" json:"chronyConf,omitempty"`
	PoolFragment     string `yaml:"poolFragment,omitempty" json:"poolFragment,omitempty"`
	SysconfigNtp     string `yaml:"sysconfigNtp,omitempty" json:"sysconfigNtp,omitempty"`
	SysconfigNetwork string `yaml:"sysconfigNetwork,omitempty" json:"sysconfigNetwork,omitempty"`
	CronFile         string `yaml:"cronFile,omitempty" json:"cronFile,omitempty"`
}

// ConfigFile represents the top-level configuration file structure
type ConfigFile struct {
	Backend Backend      `yaml:"backend,omitempty" json:"backend,omitempty"`
	Target  TargetConfig `yaml:"target,omitempty" json:"target,omitempty"`
	Files   FilesConfig  `yaml:"files,omitempty" json:"files,omitempty"`
	// WriteOnly skips the service restart after writing
	WriteOnly bool `yaml:"writeOnly,omitempty" json:"writeOnly,omitempty"`
}
