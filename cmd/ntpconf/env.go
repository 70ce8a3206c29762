package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/davidroman0O/ntpconf/conffile"
	"github.com/davidroman0O/ntpconf/config"
	"github.com/davidroman0O/ntpconf/logging"
	"github.com/davidroman0O/ntpconf/ntpclient"
	"github.com/davidroman0O/ntpconf/target"
)

// environment is what every command works with: the effective
// configuration, the file system of the target and a logger
type environment struct {
	config *config.ConfigFile
	fs     target.FS
	remote *target.SFTP
	log    logging.Logger
}

func loadEnvironment() (*environment, error) {
	cfg := config.Default()
	if configFile != "" {
		loaded, err := config.LoadConfigFile(configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if rootDir != "" {
		cfg.Target.Root = rootDir
	}
	if backendName != "" {
		cfg.Backend = config.Backend(backendName)
	}
	if writeOnly {
		cfg.WriteOnly = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level := slog.LevelWarn
	if verboseMode {
		level = slog.LevelDebug
	}
	log := logging.NewTextLogger(os.Stderr, level)

	env := &environment{config: cfg, log: log}
	if ssh := cfg.Target.SSH; ssh != nil {
		remote, err := target.NewSFTP(target.SSHConfig{
			Host:           ssh.Host,
			Port:           ssh.Port,
			User:           ssh.User,
			Password:       ssh.Password,
			KeyFile:        ssh.KeyFile,
			KnownHostsFile: ssh.KnownHostsFile,
		}, log)
		if err != nil {
			return nil, err
		}
		env.fs, env.remote = remote, remote
	} else {
		env.fs = target.NewLocal(cfg.Target.Root)
	}
	return env, nil
}

// Close releases the remote connection, if any
func (e *environment) Close() {
	if e.remote != nil {
		e.remote.Close()
	}
}

func (e *environment) session(ctx context.Context) (*ntpclient.Session, error) {
	if e.config.Backend != config.BackendNTP {
		return nil, fmt.Errorf("this command edits ntp.conf; the configured backend is %s", e.config.Backend)
	}
	files := e.config.Files
	opts := []ntpclient.Option{
		ntpclient.WithLogger(e.log),
		ntpclient.WithWriteOnly(e.config.WriteOnly),
		ntpclient.WithPaths(ntpclient.Paths{
			NtpConf:          files.NtpConf,
			SysconfigNtp:     files.SysconfigNtp,
			SysconfigNetwork: files.SysconfigNetwork,
			CronFile:         files.CronFile,
		}),
	}
	if svc := e.service("ntpd.service"); svc != nil {
		opts = append(opts, ntpclient.WithServiceController(svc))
	}

	s := ntpclient.NewSession(e.fs, opts...)
	if err := s.Read(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (e *environment) layered(ctx context.Context) (*conffile.Layered, error) {
	if e.config.Backend != config.BackendChrony {
		return nil, fmt.Errorf("this command edits chrony.conf; the configured backend is %s", e.config.Backend)
	}
	l := conffile.NewLayered(e.fs, e.config.Files.ChronyConf, e.config.Files.PoolFragment)
	if err := l.Load(ctx); err != nil {
		return nil, err
	}
	return l, nil
}

// saveLayered writes the chrony files and restarts chronyd
func (e *environment) saveLayered(ctx context.Context, l *conffile.Layered) error {
	if err := l.Save(ctx); err != nil {
		return err
	}
	if e.config.WriteOnly {
		return nil
	}
	if svc := e.service("chronyd.service"); svc != nil {
		return svc.Restart(ctx)
	}
	return nil
}

// service returns the restart hook for unit. A target below another root is
// not running, so it has none.
func (e *environment) service(unit string) ntpclient.ServiceController {
	switch {
	case e.remote != nil:
		return remoteService{remote: e.remote, unit: unit}
	case e.config.Target.Root == "" || e.config.Target.Root == "/":
		return localService{unit: unit}
	}
	return nil
}

type localService struct {
	unit string
}

func (l localService) Restart(ctx context.Context) error {
	output, err := exec.CommandContext(ctx, "systemctl", "try-restart", l.unit).CombinedOutput()
	if err != nil {
		return fmt.Errorf("failed to restart %s: %w: %s", l.unit, err, strings.TrimSpace(string(output)))
	}
	return nil
}

type remoteService struct {
	remote *target.SFTP
	unit   string
}

func (r remoteService) Restart(ctx context.Context) error {
	return r.remote.Run(ctx, "systemctl try-restart "+r.unit)
}

// writeSession saves the session and turns a failure into an error
func writeSession(ctx context.Context, s *ntpclient.Session) error {
	if !s.Write(ctx) {
		return s.LastError()
	}
	return nil
}
