// Package main implements the ntpconf CLI tool
package main

import (
	"os"

	"github.com/spf13/cobra"
)

// Global flags
var (
	configFile  string
	rootDir     string
	backendName string
	writeOnly   bool
	verboseMode bool
)

// newRootCommand builds the command tree and binds the global flags
func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ntpconf",
		Short: "Edit NTP and chrony configuration files",
		Long: `ntpconf reads and edits the time synchronization configuration of a
system: the sources and access rules of ntp.conf, the pools of chrony.conf
and its pool fragment, and the related sysconfig and cron settings.
Unchanged lines are written back byte for byte.

The files may live on the local system, below an alternative root such as
an installation target, or on a remote host reached over SSH.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to config file (YAML or JSON)")
	rootCmd.PersistentFlags().StringVar(&rootDir, "root", "", "Edit the files below this directory instead of /")
	rootCmd.PersistentFlags().StringVarP(&backendName, "backend", "b", "", "Time service to configure (ntp or chrony)")
	rootCmd.PersistentFlags().BoolVar(&writeOnly, "write-only", false, "Write the files without restarting the service")
	rootCmd.PersistentFlags().BoolVarP(&verboseMode, "verbose", "v", false, "Enable verbose output")

	rootCmd.AddCommand(newListCommand())
	rootCmd.AddCommand(newAddCommand())
	rootCmd.AddCommand(newModifyCommand())
	rootCmd.AddCommand(newDeleteCommand())
	rootCmd.AddCommand(newRestrictCommand())
	rootCmd.AddCommand(newSettingsCommand())
	rootCmd.AddCommand(newChronySourceCommand(poolSources))
	rootCmd.AddCommand(newChronySourceCommand(serverSources))
	rootCmd.AddCommand(newExportCommand())
	rootCmd.AddCommand(newImportCommand())
	rootCmd.AddCommand(newSchemaCommand())
	return rootCmd
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
