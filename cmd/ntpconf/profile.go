package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/davidroman0O/ntpconf/ntpclient"
)

// Export command
func newExportCommand() *cobra.Command {
	var (
		outputFile string
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export sources, restrict rules and settings as a profile",
		Args:  cobra.NoArgs,
		RunE: runSession(func(cmd *cobra.Command, s *ntpclient.Session, args []string) error {
			p := s.Export()

			var data []byte
			var err error
			if asJSON {
				data, err = json.MarshalIndent(p, "", "  ")
				data = append(data, '\n')
			} else {
				data, err = ntpclient.MarshalProfile(p)
			}
			if err != nil {
				return fmt.Errorf("failed to encode profile: %w", err)
			}

			if outputFile == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(outputFile, data, 0644); err != nil {
				return fmt.Errorf("failed to write profile: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Profile written to %s\n", outputFile)
			return nil
		}),
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Write the profile to a file instead of stdout")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Encode as JSON instead of YAML")

	return cmd
}

// Import command
func newImportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import [file]",
		Short: "Replace the configuration with a profile",
		Long: `Replace the sources, restrict rules and settings with a YAML or JSON
profile. JSON documents may carry numbers and booleans as strings.`,
		Args: cobra.ExactArgs(1),
		RunE: runSession(func(cmd *cobra.Command, s *ntpclient.Session, args []string) error {
			p, err := readProfile(args[0])
			if err != nil {
				return err
			}
			if err := s.Import(cmd.Context(), p); err != nil {
				return err
			}
			if err := writeSession(cmd.Context(), s); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d sources, %d restrict rules configured\n", len(p.Peers), len(s.RestrictMap()))
			return nil
		}),
	}
}

func readProfile(path string) (ntpclient.Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ntpclient.Profile{}, fmt.Errorf("failed to read profile: %w", err)
	}
	if filepath.Ext(path) != ".json" {
		return ntpclient.UnmarshalProfile(data)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return ntpclient.Profile{}, fmt.Errorf("failed to parse JSON profile: %w", err)
	}
	return ntpclient.ProfileFromMap(m)
}

// Schema command
func newSchemaCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema of profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := json.MarshalIndent(ntpclient.ProfileSchema(), "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}
