package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/davidroman0O/ntpconf/conffile"
	"github.com/davidroman0O/ntpconf/errors"
)

// chronySources binds a command group to one source kind of the layered
// chrony configuration
type chronySources struct {
	use    string
	kind   conffile.Kind
	list   func(*conffile.Layered) map[string]conffile.Options
	add    func(l *conffile.Layered, address string, options conffile.Options) error
	modify func(l *conffile.Layered, original, address string, options conffile.Options) error
	remove func(l *conffile.Layered, address string)
	clear  func(*conffile.Layered)
}

var poolSources = chronySources{
	use:    "pools",
	kind:   conffile.KindPool,
	list:   (*conffile.Layered).Pools,
	add:    (*conffile.Layered).AddPool,
	modify: (*conffile.Layered).ModifyPool,
	remove: (*conffile.Layered).DeletePool,
	clear: func(l *conffile.Layered) {
		l.System.ClearPools()
		l.Fragment.ClearPools()
	},
}

var serverSources = chronySources{
	use:    "servers",
	kind:   conffile.KindServer,
	list:   (*conffile.Layered).Servers,
	add:    (*conffile.Layered).AddServer,
	modify: (*conffile.Layered).ModifyServer,
	remove: (*conffile.Layered).DeleteServer,
	clear: func(l *conffile.Layered) {
		l.System.ClearServers()
		l.Fragment.ClearServers()
	},
}

// runLayered loads chrony.conf and the pool fragment, hands them to fn and
// saves them when fn reports a change
func runLayered(fn func(cmd *cobra.Command, l *conffile.Layered, args []string) (bool, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		env, err := loadEnvironment()
		if err != nil {
			return err
		}
		defer env.Close()

		ctx := cmd.Context()
		l, err := env.layered(ctx)
		if err != nil {
			return err
		}
		changed, err := fn(cmd, l, args)
		if err != nil || !changed {
			return err
		}
		return env.saveLayered(ctx, l)
	}
}

// Pools and servers commands
func newChronySourceCommand(src chronySources) *cobra.Command {
	cmd := &cobra.Command{
		Use:   src.use,
		Short: fmt.Sprintf("Manage the chrony %s directives", src.kind),
		Long: fmt.Sprintf(`Manage the %s directives of chrony.conf and the pool fragment in
chrony.d. New entries go to the fragment when it exists; entries are
listed from both files, the fragment winning on duplicates.`, src.kind),
	}

	var options string
	parse := func() conffile.Options {
		if options == "" && src.kind == conffile.KindPool {
			return conffile.DefaultPoolOptions()
		}
		return conffile.ParseSourceOptions(src.kind, options)
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: fmt.Sprintf("List the %s", src.use),
		Args:  cobra.NoArgs,
		RunE: runLayered(func(cmd *cobra.Command, l *conffile.Layered, args []string) (bool, error) {
			sources := src.list(l)
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ADDRESS\tOPTIONS")
			for _, addr := range sortedKeys(sources) {
				fmt.Fprintf(w, "%s\t%s\n", addr, sources[addr])
			}
			return false, w.Flush()
		}),
	}

	addCmd := &cobra.Command{
		Use:   "add [address]",
		Short: fmt.Sprintf("Add a %s directive", src.kind),
		Args:  cobra.ExactArgs(1),
		RunE: runLayered(func(cmd *cobra.Command, l *conffile.Layered, args []string) (bool, error) {
			if err := src.add(l, args[0], parse()); err != nil {
				return false, err
			}
			return true, nil
		}),
	}
	addCmd.Flags().StringVarP(&options, "options", "o", "", "Options, e.g. \"iburst maxsources 4\"")

	modifyCmd := &cobra.Command{
		Use:   "modify [original] [address]",
		Short: fmt.Sprintf("Replace a %s directive in place", src.kind),
		Args:  cobra.ExactArgs(2),
		RunE: runLayered(func(cmd *cobra.Command, l *conffile.Layered, args []string) (bool, error) {
			if _, ok := src.list(l)[args[0]]; !ok {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s %s is not configured, adding %s\n", src.kind, args[0], args[1])
			}
			if err := src.modify(l, args[0], args[1], parse()); err != nil {
				return false, err
			}
			return true, nil
		}),
	}
	modifyCmd.Flags().StringVarP(&options, "options", "o", "", "Options of the new entry")

	deleteCmd := &cobra.Command{
		Use:   "delete [address]",
		Short: fmt.Sprintf("Delete a %s directive from both files", src.kind),
		Args:  cobra.ExactArgs(1),
		RunE: runLayered(func(cmd *cobra.Command, l *conffile.Layered, args []string) (bool, error) {
			if _, ok := src.list(l)[args[0]]; !ok {
				return false, errors.Newf(errors.ErrNotFound, "%s %s is not configured", src.kind, args[0])
			}
			src.remove(l, args[0])
			return true, nil
		}),
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: fmt.Sprintf("Delete every %s directive", src.kind),
		Args:  cobra.NoArgs,
		RunE: runLayered(func(cmd *cobra.Command, l *conffile.Layered, args []string) (bool, error) {
			src.clear(l)
			return true, nil
		}),
	}

	cmd.AddCommand(listCmd, addCmd, modifyCmd, deleteCmd, clearCmd)
	return cmd
}
