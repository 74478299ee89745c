package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

type getOptions struct {
	output          string
	sourceNamespace string
}

func newGetOptions() *getOptions {
	return &getOptions{output: tableOutput}
}

func newCmdGet(root *rootOptions) *cobra.Command {
	options := newGetOptions()

	cmd := &cobra.Command{
		Use:   "get [flags] SERVICE[.NAMESPACE] PORT",
		Short: "Display the outbound policy of a service port",
		Long: `Display the outbound policy of a service port.

The policy is computed from the manifests given with --file. A service
without a namespace is looked up in the default namespace.`,
		Example: `  # Show the policy of port 8080 of the web service in the emojivoto namespace
  outbound-policy -f emojivoto.yml get web.emojivoto 8080

  # Same as above, as YAML, read from stdin
  cat emojivoto.yml | outbound-policy -f - get web.emojivoto 8080 -o yaml`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(options.output); err != nil {
				return err
			}
			target, err := parseTarget(args[0], args[1], options.sourceNamespace)
			if err != nil {
				return err
			}

			idx, server, err := root.load()
			if err != nil {
				return err
			}
			defer idx.Stop()

			policy, err := server.GetOutboundPolicy(cmd.Context(), target)
			if err != nil {
				return err
			}
			if policy == nil {
				return fmt.Errorf("no outbound policy for %s", target)
			}
			return writePolicy(cmd.OutOrStdout(), policy, options.output)
		},
	}

	cmd.Flags().StringVarP(&options.output, "output", "o", options.output, "Output format; one of: table, yaml, json")
	cmd.Flags().StringVar(&options.sourceNamespace, "source-namespace", "", "Namespace of the client; defaults to the service's namespace")
	return cmd
}
