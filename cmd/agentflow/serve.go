package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/agentflow/internal/agent"
	"github.com/dusk-indust/agentflow/internal/mcptools"
)

func newServeMCPCmd(flags *globalFlags) *cobra.Command {
	var httpAddr string
	cmd := &cobra.Command{
		Use:   "serve-mcp",
		Short: "Expose the patterns as MCP tools over stdio or streamable HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup(cmd, flags)
			if err != nil {
				return err
			}
			defer a.close(cmd.Context())

			mcptools.Version = version
			opts, done := a.options()
			defer done()
			server := mcptools.NewMCPServer(
				mcptools.NewService(a.oracle, a.roster, a.cfg.Refine.ApprovalToken, a.logger, opts...),
			)

			if httpAddr != "" {
				a.logger.Info("serving MCP over HTTP", "addr", httpAddr)
				return mcptools.RunHTTP(cmd.Context(), server, httpAddr)
			}
			return mcptools.RunStdio(cmd.Context(), server)
		},
	}
	cmd.Flags().StringVar(&httpAddr, "http", "", "serve streamable HTTP on this address instead of stdio")
	return cmd
}

func newServeAgentsCmd(flags *globalFlags) *cobra.Command {
	var (
		host     string
		basePort int
	)
	cmd := &cobra.Command{
		Use:   "serve-agents",
		Short: "Serve every local catalog agent over A2A on consecutive ports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup(cmd, flags)
			if err != nil {
				return err
			}
			defer a.close(cmd.Context())

			remote := make(map[string]bool, len(a.roster.Remotes))
			for _, r := range a.roster.Remotes {
				remote[r.Name] = true
			}
			var local []agent.Descriptor
			for _, d := range a.roster.Registry.Descriptors() {
				if !remote[d.Name] {
					local = append(local, d)
				}
			}
			local = append(local, a.roster.Synthesizer)

			fleet, err := agent.ServeAll(cmd.Context(), local, host, basePort, a.logger)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, s := range fleet.Servers() {
				fmt.Fprintf(out, "%-24s http://%s\n", s.Name(), s.Addr())
			}

			<-cmd.Context().Done()
			return fleet.Stop(context.WithoutCancel(cmd.Context()))
		},
	}
	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "listen host")
	cmd.Flags().IntVar(&basePort, "port", 9100, "first port; agents get consecutive ports (0 picks free ports)")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "agentflow version %s\n", version)
		},
	}
}
