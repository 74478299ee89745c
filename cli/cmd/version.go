package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/linkerd/outbound-policy/pkg/version"
	"github.com/spf13/cobra"
)

type versionOptions struct {
	shortVersion bool
	output       string
}

func newVersionOptions() *versionOptions {
	return &versionOptions{
		shortVersion: false,
		output:       tableOutput,
	}
}

func newCmdVersion() *cobra.Command {
	options := newVersionOptions()

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return configureAndRunVersion(options, cmd.OutOrStdout(), version.Get())
		},
	}

	cmd.Flags().BoolVar(&options.shortVersion, "short", options.shortVersion, "Print the version number(s) only, with no additional output")
	cmd.Flags().StringVarP(&options.output, "output", "o", options.output, "Output format; one of: table, json")
	return cmd
}

func configureAndRunVersion(options *versionOptions, stdout io.Writer, info version.Info) error {
	if options.shortVersion {
		fmt.Fprintln(stdout, info.Version)
		return nil
	}

	switch options.output {
	case tableOutput:
		fmt.Fprintf(stdout, "Version: %s\n", info.Version)
		if info.Channel != "" {
			fmt.Fprintf(stdout, "Channel: %s\n", info.Channel)
		}
		fmt.Fprintf(stdout, "Go version: %s\n", info.GoVersion)
		return nil
	case jsonOutput:
		output, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%s\n", output)
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", options.output)
	}
}
