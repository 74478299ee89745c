package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/linkerd/outbound-policy/controller/api/outbound/srv"
	"github.com/linkerd/outbound-policy/pkg/admin"
	"github.com/linkerd/outbound-policy/pkg/filewatcher"
	policy "github.com/linkerd/outbound-policy/pkg/outbound"
	"github.com/mattn/go-isatty"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type watchOptions struct {
	output          string
	sourceNamespace string
	adminAddr       string
}

func newWatchOptions() *watchOptions {
	return &watchOptions{output: yamlOutput}
}

func newCmdWatch(root *rootOptions) *cobra.Command {
	options := newWatchOptions()

	cmd := &cobra.Command{
		Use:   "watch [flags] SERVICE[.NAMESPACE] PORT",
		Short: "Stream the outbound policy of a service port as the manifests change",
		Long: `Stream the outbound policy of a service port as the manifests change.

The manifest files are re-read whenever they change on disk and a new policy
is printed every time the effective policy changes. The stream ends when the
service port disappears from the manifests.`,
		Example: `  # Follow the policy of web.emojivoto:8080 and serve metrics on :9990
  outbound-policy -f emojivoto.yml watch web.emojivoto 8080 --admin-addr :9990`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(options.output); err != nil {
				return err
			}
			target, err := parseTarget(args[0], args[1], options.sourceNamespace)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			idx, server, err := root.load()
			if err != nil {
				return err
			}
			defer idx.Stop()

			if options.adminAddr != "" {
				adminServer := admin.NewServer(options.adminAddr)
				adminServer.Mount(srv.PathPrefix, srv.NewHandler(server))
				adminServer.Start()
				adminServer.SetReady(true)
				defer adminServer.Shutdown(context.Background())
			}

			stream, err := server.WatchOutboundPolicy(ctx, target)
			if err != nil {
				return err
			}
			if stream == nil {
				return fmt.Errorf("no outbound policy for %s", target)
			}
			defer stream.Close()

			for _, file := range root.files {
				if file == stdinFile {
					continue
				}
				file := file
				go func() {
					err := filewatcher.WatchFileChanges(ctx, file, func() error {
						_, err := root.apply(idx)
						return err
					})
					if err != nil {
						log.Errorf("Stopped watching %s: %s", file, err)
					}
				}()
			}

			var spin *spinner.Spinner
			if isatty.IsTerminal(os.Stderr.Fd()) {
				spin = spinner.New(spinner.CharSets[9], 100*time.Millisecond)
				spin.Writer = cmd.ErrOrStderr()
				spin.Suffix = " Waiting for policy updates"
			}
			return streamPolicies(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), stream, options.output, spin)
		},
	}

	cmd.Flags().StringVarP(&options.output, "output", "o", options.output, "Output format; one of: table, yaml, json")
	cmd.Flags().StringVar(&options.sourceNamespace, "source-namespace", "", "Namespace of the client; defaults to the service's namespace")
	cmd.Flags().StringVar(&options.adminAddr, "admin-addr", "", "Address to serve metrics, readiness and the policy API on; disabled when empty")
	return cmd
}

// streamPolicies writes every snapshot received on stream until the stream
// ends or ctx is done. spin, if set, runs while waiting for updates.
func streamPolicies(
	ctx context.Context,
	wout, werr io.Writer,
	stream policy.OutboundPolicyStream,
	format string,
	spin *spinner.Spinner,
) error {
	first := true
	for {
		if spin != nil {
			spin.Start()
		}
		select {
		case p, ok := <-stream.Updates():
			if spin != nil {
				spin.Stop()
			}
			if !ok {
				if ctx.Err() == nil {
					fmt.Fprintln(werr, "Policy removed")
				}
				return nil
			}
			if !first {
				writeSeparator(wout, format)
			}
			first = false
			if err := writePolicy(wout, p, format); err != nil {
				return err
			}
		case <-ctx.Done():
			if spin != nil {
				spin.Stop()
			}
			return nil
		}
	}
}

func writeSeparator(w io.Writer, format string) {
	switch format {
	case yamlOutput:
		fmt.Fprintln(w, "---")
	case tableOutput:
		fmt.Fprintln(w)
	}
}
