package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/agentflow/internal/agent"
)

func newAgentsCmd(flags *globalFlags) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "agents",
		Short: "List catalog agents and probe remote ones",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup(cmd, flags)
			if err != nil {
				return err
			}
			defer a.close(cmd.Context())

			out := cmd.OutOrStdout()
			fallback := ""
			if fb, ok := a.roster.Registry.Fallback(); ok {
				fallback = fb.Name
			}
			for _, d := range a.roster.Registry.Descriptors() {
				marker := "  "
				if d.Name == fallback {
					marker = "* "
				}
				fmt.Fprintf(out, "%s%-24s %s\n", marker, d.Name, d.Description)
			}
			fmt.Fprintf(out, "\nsynthesizer: %s\n", a.roster.Synthesizer.Name)
			if len(a.roster.Parallel) > 0 {
				fmt.Fprintf(out, "parallel:    %s\n", joinNames(a.roster.Parallel, ", "))
			}
			if len(a.roster.Chain) > 0 {
				fmt.Fprintf(out, "chain:       %s\n", joinNames(a.roster.Chain, " -> "))
			}

			if len(a.roster.Remotes) == 0 {
				return nil
			}
			fmt.Fprintln(out, "\nremote agents:")
			for _, r := range agent.Probe(cmd.Context(), a.client, a.roster.Remotes, timeout) {
				if r.Healthy() {
					fmt.Fprintf(out, "  [ok]   %-24s %s (%s)\n", r.Name, r.Endpoint, r.Latency.Round(time.Millisecond))
				} else {
					fmt.Fprintf(out, "  [down] %-24s %s: %v\n", r.Name, r.Endpoint, r.Err)
				}
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", agent.DefaultProbeTimeout, "per-agent probe timeout")
	return cmd
}

func joinNames(descs []agent.Descriptor, sep string) string {
	out := make([]string, len(descs))
	for i, d := range descs {
		out[i] = d.Name
	}
	return strings.Join(out, sep)
}
