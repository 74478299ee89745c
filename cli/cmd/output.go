package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/linkerd/outbound-policy/cli/table"
	"github.com/linkerd/outbound-policy/controller/api/outbound/view"
	policy "github.com/linkerd/outbound-policy/pkg/outbound"
	"github.com/linkerd/outbound-policy/pkg/util"
	"sigs.k8s.io/yaml"
)

const (
	tableOutput = "table"
	yamlOutput  = "yaml"
	jsonOutput  = "json"
)

var (
	outputFormats = []string{tableOutput, yamlOutput, jsonOutput}

	warnColor = color.New(color.FgYellow, color.Bold)
)

func validateOutput(format string) error {
	if !util.ContainsString(format, outputFormats) {
		return fmt.Errorf("--output must be one of: %s", strings.Join(outputFormats, ", "))
	}
	return nil
}

func writePolicy(w io.Writer, p *policy.OutboundPolicy, format string) error {
	v := view.FromPolicy(p)
	switch format {
	case tableOutput:
		renderPolicy(w, v)
		return nil
	case yamlOutput:
		output, err := yaml.Marshal(v)
		if err != nil {
			return err
		}
		_, err = w.Write(output)
		return err
	case jsonOutput:
		output, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\n", output)
		return err
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}

func renderPolicy(w io.Writer, v view.Policy) {
	fmt.Fprintf(w, "AUTHORITY  %s\n", v.Authority)
	fmt.Fprintf(w, "OPAQUE     %t\n", v.Opaque)
	fmt.Fprintf(w, "ACCRUAL    %s\n", accrualString(v.FailureAccrual))

	if len(v.HTTPRoutes) == 0 {
		fmt.Fprintln(w, "\nNo routes")
		return
	}

	rows := []table.Row{}
	warnings := []string{}
	for _, route := range v.HTTPRoutes {
		for i, rule := range route.Rules {
			matches := make([]string, 0, len(rule.Matches))
			for _, m := range rule.Matches {
				matches = append(matches, matchString(m))
			}
			for _, b := range rule.Backends {
				if w := backendWarning(b); w != "" {
					warnings = append(warnings, fmt.Sprintf("%s rule %d: %s", route.Name, i, w))
				}
				rows = append(rows, table.Row{
					route.Name,
					strconv.Itoa(i),
					strings.Join(matches, ", "),
					backendString(b),
					strconv.FormatUint(uint64(b.Weight), 10),
				})
			}
		}
	}

	fmt.Fprintln(w)
	t := table.NewTable([]table.Column{
		{Header: "ROUTE", Flexible: true, LeftAlign: true},
		{Header: "RULE", Flexible: true},
		{Header: "MATCHES", Flexible: true, LeftAlign: true},
		{Header: "BACKEND", Flexible: true, LeftAlign: true},
		{Header: "WEIGHT", Flexible: true},
	}, rows)
	t.Render(w)

	if len(warnings) > 0 {
		fmt.Fprintln(w)
		for _, warning := range warnings {
			fmt.Fprintf(w, "%s %s\n", warnColor.Sprint("\u203C"), warning) // ‼
		}
	}
}

func accrualString(a *view.Accrual) string {
	if a == nil || a.ConsecutiveFailures == nil {
		return "none"
	}
	cf := a.ConsecutiveFailures
	return fmt.Sprintf("consecutive failures=%d penalty=%s-%s jitter=%g",
		cf.MaxFailures, cf.MinPenalty, cf.MaxPenalty, cf.Jitter)
}

func matchString(m view.Match) string {
	parts := []string{}
	if m.Method != "" {
		parts = append(parts, m.Method)
	}
	if m.Path != nil {
		parts = append(parts, fmt.Sprintf("%s:%s", strings.ToLower(m.Path.Type), m.Path.Value))
	}
	for _, h := range m.Headers {
		parts = append(parts, fmt.Sprintf("header:%s%s%s", h.Name, operator(h.Type), h.Value))
	}
	for _, q := range m.QueryParams {
		parts = append(parts, fmt.Sprintf("query:%s%s%s", q.Name, operator(q.Type), q.Value))
	}
	if len(parts) == 0 {
		return "*"
	}
	return strings.Join(parts, " ")
}

func operator(matchType string) string {
	if matchType == "Regex" {
		return "~"
	}
	return "="
}

func backendString(b view.Backend) string {
	switch {
	case b.Service != nil:
		return b.Service.Authority
	case b.Addr != "":
		return b.Addr
	default:
		return "-"
	}
}

// backendWarning describes a backend that cannot serve requests.
func backendWarning(b view.Backend) string {
	switch {
	case b.Service != nil && !b.Service.Exists:
		return fmt.Sprintf("backend %s not found", b.Service.Authority)
	case b.Service == nil && b.Addr == "":
		return fmt.Sprintf("invalid backend: %s", b.Invalid)
	default:
		return ""
	}
}
