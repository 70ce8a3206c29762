package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/davidroman0O/ntpconf/ntpclient"
)

// Settings command
func newSettingsCommand() *cobra.Command {
	var (
		chroot   bool
		policy   string
		interval int
	)

	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change the sysconfig and cron settings",
		Long: `Without flags the current settings are printed. --chroot, --policy and
--interval change the ntpd chroot jail, the netconfig NTP policy and the
periodic one-shot synchronization (0 disables it).`,
		Args: cobra.NoArgs,
		RunE: runSession(func(cmd *cobra.Command, s *ntpclient.Session, args []string) error {
			ctx := cmd.Context()
			st := s.Settings()
			changed := cmd.Flags().Changed
			if !changed("chroot") && !changed("policy") && !changed("interval") {
				fmt.Fprintf(cmd.OutOrStdout(), "Run chrooted:     %v\n", st.RunChrooted)
				fmt.Fprintf(cmd.OutOrStdout(), "Netconfig policy: %s\n", st.NetconfigPolicy)
				if st.SyncInterval == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Sync interval:    disabled")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Sync interval:    every %d minutes\n", st.SyncInterval)
				if next, err := (ntpclient.Schedule{IntervalMinutes: st.SyncInterval}).Next(time.Now()); err == nil {
					fmt.Fprintf(cmd.OutOrStdout(), "Next sync:        %s\n", next.Format(time.RFC3339))
				}
				return nil
			}

			if changed("chroot") {
				st.RunChrooted = chroot
			}
			if changed("policy") {
				st.NetconfigPolicy = policy
			}
			if changed("interval") {
				st.SyncInterval = interval
			}
			if err := s.SetSettings(st); err != nil {
				return err
			}
			return writeSession(ctx, s)
		}),
	}

	cmd.Flags().BoolVar(&chroot, "chroot", true, "Run ntpd in its chroot jail")
	cmd.Flags().StringVar(&policy, "policy", "", "Netconfig NTP policy, e.g. \"auto\"")
	cmd.Flags().IntVar(&interval, "interval", 0, "Minutes between one-shot synchronizations (0 disables)")

	return cmd
}
