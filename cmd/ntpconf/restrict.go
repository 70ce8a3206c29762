package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/davidroman0O/ntpconf/ntpclient"
)

// Restrict command
func newRestrictCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restrict",
		Short: "Manage the restrict access rules of ntp.conf",
	}
	cmd.AddCommand(newRestrictListCommand())
	cmd.AddCommand(newRestrictSetCommand())
	cmd.AddCommand(newRestrictDeleteCommand())
	return cmd
}

func newRestrictListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the restrict rules by key",
		Args:  cobra.NoArgs,
		RunE: runSession(func(cmd *cobra.Command, s *ntpclient.Session, args []string) error {
			rules := s.RestrictMap()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "KEY\tMASK\tOPTIONS\tCOMMENT")
			for _, key := range sortedKeys(rules) {
				e := rules[key]
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", key, e.Mask, e.Options, e.Comment)
			}
			return w.Flush()
		}),
	}
}

func newRestrictSetCommand() *cobra.Command {
	var entry ntpclient.RestrictEntry

	cmd := &cobra.Command{
		Use:   "set [address]",
		Short: "Add or replace a restrict rule",
		Long: `Add or replace the rule for address. Use "default" for the default rule
and put ipv4 or ipv6 in the options to limit it to one IP version.`,
		Args: cobra.ExactArgs(1),
		RunE: runSession(func(cmd *cobra.Command, s *ntpclient.Session, args []string) error {
			ctx := cmd.Context()
			entry.Address = args[0]
			if err := s.SetRestrict(entry); err != nil {
				return err
			}
			return writeSession(ctx, s)
		}),
	}

	cmd.Flags().StringVarP(&entry.Mask, "mask", "m", "", "Network mask")
	cmd.Flags().StringVarP(&entry.Options, "options", "o", "", "Options, e.g. \"ipv4 notrap nomodify\"")
	cmd.Flags().StringVar(&entry.Comment, "comment", "", "Comment written next to the line")

	return cmd
}

func newRestrictDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [key]",
		Short: "Delete the restrict rule with key, as shown by restrict list",
		Args:  cobra.ExactArgs(1),
		RunE: runSession(func(cmd *cobra.Command, s *ntpclient.Session, args []string) error {
			ctx := cmd.Context()
			if !s.DeleteRestrict(args[0]) {
				return s.LastError()
			}
			return writeSession(ctx, s)
		}),
	}
}
