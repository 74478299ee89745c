package cmd

import (
	"fmt"
	"net/netip"

	"github.com/spf13/cobra"
	corev1 "k8s.io/api/core/v1"
)

type lookupOptions struct {
	sourceNamespace string
}

func newCmdLookup(root *rootOptions) *cobra.Command {
	options := &lookupOptions{sourceNamespace: corev1.NamespaceDefault}

	cmd := &cobra.Command{
		Use:   "lookup [flags] IP PORT",
		Short: "Resolve a cluster IP to the service port it belongs to",
		Long: `Resolve a cluster IP to the service port it belongs to.

Services that are not exported to the source namespace are not resolved.`,
		Example: `  # Which service does 10.96.0.12:8080 belong to, seen from the emojivoto namespace?
  outbound-policy -f emojivoto.yml lookup 10.96.0.12 8080 --source-namespace emojivoto`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := netip.ParseAddr(args[0])
			if err != nil {
				return fmt.Errorf("invalid IP %q: %w", args[0], err)
			}
			port, err := parsePort(args[1])
			if err != nil {
				return err
			}

			idx, server, err := root.load()
			if err != nil {
				return err
			}
			defer idx.Stop()

			target, ok := server.LookupIP(addr, port, options.sourceNamespace)
			if !ok {
				return fmt.Errorf("no service at %s visible from namespace %s",
					netip.AddrPortFrom(addr, port), options.sourceNamespace)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s.%s %d\n", target.ServiceName, target.ServiceNamespace, target.ServicePort)
			return nil
		},
	}

	cmd.Flags().StringVar(&options.sourceNamespace, "source-namespace", options.sourceNamespace, "Namespace of the client")
	return cmd
}
