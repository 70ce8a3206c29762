package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/davidroman0O/ntpconf/config"
	"github.com/davidroman0O/ntpconf/errors"
	"github.com/davidroman0O/ntpconf/ntpclient"
)

// runSession loads the ntp session and hands it to fn
func runSession(fn func(cmd *cobra.Command, s *ntpclient.Session, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		env, err := loadEnvironment()
		if err != nil {
			return err
		}
		defer env.Close()

		s, err := env.session(cmd.Context())
		if err != nil {
			return err
		}
		return fn(cmd, s, args)
	}
}

func parseIndex(arg string) (int, error) {
	index, err := strconv.Atoi(arg)
	if err != nil {
		return 0, errors.WithContext(errors.Newf(errors.ErrIndex, "invalid record index %q", arg), map[string]interface{}{"index": arg})
	}
	return index, nil
}

// List command
func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the configured time sources",
		Long:  "List the sync records of ntp.conf, or the pools and servers of chrony",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnvironment()
			if err != nil {
				return err
			}
			defer env.Close()

			if env.config.Backend == config.BackendChrony {
				l, err := env.layered(cmd.Context())
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "TYPE\tADDRESS\tOPTIONS")
				for _, kind := range []chronySources{poolSources, serverSources} {
					sources := kind.list(l)
					for _, addr := range sortedKeys(sources) {
						fmt.Fprintf(w, "%s\t%s\t%s\n", kind.kind, addr, sources[addr])
					}
				}
				return w.Flush()
			}

			s, err := env.session(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "INDEX\tTYPE\tADDRESS\tOPTIONS\tCOMMENT")
			for i, r := range s.GetSyncRecords() {
				options := r.Options
				if r.Type == ntpclient.TypeClock && r.FudgeOptions != "" {
					options = strings.TrimSpace(options + " [fudge " + r.FudgeOptions + "]")
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", i, r.Type, r.Address, options, strings.ReplaceAll(r.Comment, "\n", " / "))
			}
			return w.Flush()
		},
	}
}

// Add command
func newAddCommand() *cobra.Command {
	var (
		record      ntpclient.SyncRecord
		clockDriver int
		clockUnit   int
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a time source to ntp.conf",
		Long: `Add a server, peer, pool, broadcast or broadcastclient line. A local
reference clock is added with --clock-driver, which writes a server line for
the driver pseudo address and an optional fudge line.`,
		Args: cobra.NoArgs,
		RunE: runSession(func(cmd *cobra.Command, s *ntpclient.Session, args []string) error {
			ctx := cmd.Context()
			if clockDriver >= 0 {
				record.Type = ntpclient.TypeClock
				record.Address = ntpclient.ClockAddress(clockDriver, clockUnit)
			}
			s.SelectSyncRecord(-1)
			if err := s.SetSelected(record); err != nil {
				return err
			}
			if !s.StoreSyncRecord() {
				return s.LastError()
			}
			if err := writeSession(ctx, s); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s %s as record %d\n", record.Type, record.Address, s.SelectedIndex())
			return nil
		}),
	}

	cmd.Flags().StringVarP(&record.Type, "type", "t", ntpclient.TypeServer, "Record type (server, peer, pool, broadcast, broadcastclient, __clock)")
	cmd.Flags().StringVarP(&record.Address, "address", "a", "", "Host name or IP address")
	cmd.Flags().StringVarP(&record.Options, "options", "o", "", "Options, e.g. \"iburst prefer\"")
	cmd.Flags().StringVar(&record.Comment, "comment", "", "Comment written next to the line")
	cmd.Flags().StringVar(&record.FudgeOptions, "fudge-options", "", "Fudge options of a local clock, e.g. \"stratum 10\"")
	cmd.Flags().IntVar(&clockDriver, "clock-driver", -1, "Reference clock driver number (adds a local clock)")
	cmd.Flags().IntVar(&clockUnit, "clock-unit", 0, "Reference clock unit number")

	return cmd
}

// Modify command
func newModifyCommand() *cobra.Command {
	var assignments []string

	cmd := &cobra.Command{
		Use:   "modify [index]",
		Short: "Change fields of a time source",
		Long: `Change fields of the record at index, as shown by list. Fields are set
with --set Field=value, for example --set Options="iburst prefer".`,
		Args: cobra.ExactArgs(1),
		RunE: runSession(func(cmd *cobra.Command, s *ntpclient.Session, args []string) error {
			ctx := cmd.Context()
			index, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			if !s.SelectSyncRecord(index) {
				return s.LastError()
			}
			for _, a := range assignments {
				field, value, ok := strings.Cut(a, "=")
				if !ok {
					return fmt.Errorf("invalid assignment %q, expected Field=value", a)
				}
				if err := s.UpdateSelectedField(strings.TrimSpace(field), value); err != nil {
					return err
				}
			}
			if !s.StoreSyncRecord() {
				return s.LastError()
			}
			return writeSession(ctx, s)
		}),
	}

	cmd.Flags().StringArrayVar(&assignments, "set", nil, "Field assignment, repeatable (Type, Address, Options, Comment, FudgeOptions, FudgeComment)")
	cmd.MarkFlagRequired("set")

	return cmd
}

// Delete command
func newDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [index]",
		Short: "Delete a time source",
		Long:  "Delete the record at index together with the fudge line of a local clock",
		Args:  cobra.ExactArgs(1),
		RunE: runSession(func(cmd *cobra.Command, s *ntpclient.Session, args []string) error {
			ctx := cmd.Context()
			index, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			if !s.DeleteSyncRecord(index) {
				return s.LastError()
			}
			return writeSession(ctx, s)
		}),
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
