package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/linkerd/outbound-policy/controller/api/outbound"
	"github.com/linkerd/outbound-policy/controller/api/outbound/index"
	"github.com/linkerd/outbound-policy/controller/api/outbound/watcher"
	"github.com/linkerd/outbound-policy/pkg/flags"
	"github.com/linkerd/outbound-policy/pkg/k8s"
	"github.com/linkerd/outbound-policy/pkg/util"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	corev1 "k8s.io/api/core/v1"
)

const stdinFile = "-"

type rootOptions struct {
	files              []string
	clusterDomain      string
	defaultOpaquePorts string
	noColor            bool
	log                *flags.LogOptions

	stdin io.Reader
}

// NewRootCmd returns the outbound-policy command with all subcommands.
func NewRootCmd() *cobra.Command {
	return newRootCmd(os.Stdin)
}

func newRootCmd(stdin io.Reader) *cobra.Command {
	options := &rootOptions{
		clusterDomain: k8s.DefaultClusterDomain,
		stdin:         stdin,
	}

	root := &cobra.Command{
		Use:   "outbound-policy",
		Short: "outbound-policy computes outbound traffic policy from Kubernetes manifests",
		Long: `outbound-policy computes the outbound traffic policy of service ports from
Kubernetes manifests containing Services, Namespaces and Gateway API HTTPRoutes.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if options.noColor {
				color.NoColor = true
			}
			return options.log.Apply()
		},
	}

	pf := root.PersistentFlags()
	pf.StringSliceVarP(&options.files, "file", "f", nil, "Manifest files to index; use - to read from stdin")
	pf.StringVar(&options.clusterDomain, "cluster-domain", options.clusterDomain, "Cluster domain used to build service authorities")
	pf.StringVar(&options.defaultOpaquePorts, "default-opaque-ports", "", "Ports and port ranges that are opaque unless overridden by an annotation")
	pf.BoolVar(&options.noColor, "no-color", false, "Disable colorized output")
	options.log = flags.AddLogFlags(pf)

	root.AddCommand(newCmdGet(options))
	root.AddCommand(newCmdWatch(options))
	root.AddCommand(newCmdLookup(options))
	root.AddCommand(newCmdVersion())
	return root
}

// load builds an index from the manifest files and returns it together with
// the server that reads from it. Callers must Stop the index.
func (o *rootOptions) load() (*index.Index, *outbound.Server, error) {
	if len(o.files) == 0 {
		return nil, nil, fmt.Errorf("no manifests given; use --file")
	}

	entry := log.WithField("cmd", "outbound-policy")
	policies := watcher.NewPolicyWatcher(entry)
	idx := index.NewIndex(policies, o.clusterDomain, util.ParsePorts(o.defaultOpaquePorts), entry)
	if _, err := o.apply(idx); err != nil {
		idx.Stop()
		return nil, nil, err
	}
	return idx, outbound.NewServer(policies, 0, entry), nil
}

// apply reads the manifest files and applies them to idx.
func (o *rootOptions) apply(idx *index.Index) (index.Stats, error) {
	manifest, err := o.readManifest()
	if err != nil {
		return index.Stats{}, err
	}

	stats, err := idx.Apply(manifest)
	if err != nil {
		return stats, err
	}
	log.Debugf("Indexed %d services into %d policies with %d routes (%d skipped, %d deleted)",
		stats.Services, stats.Policies, stats.Routes, stats.SkippedRoutes, stats.Deleted)
	return stats, nil
}

func (o *rootOptions) readManifest() (*k8s.Manifest, error) {
	manifest := &k8s.Manifest{}
	for _, file := range o.files {
		var (
			m   *k8s.Manifest
			err error
		)
		if file == stdinFile {
			m, err = k8s.ReadManifest(o.stdin)
		} else {
			m, err = k8s.ReadManifestFile(file)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read manifests: %w", err)
		}
		manifest.Merge(m)
	}
	manifest.DefaultNamespaces(corev1.NamespaceDefault)
	return manifest, nil
}
