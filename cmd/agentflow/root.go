package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/agentflow/internal/a2a"
	"github.com/dusk-indust/agentflow/internal/agent"
	"github.com/dusk-indust/agentflow/internal/config"
	"github.com/dusk-indust/agentflow/internal/domain"
	"github.com/dusk-indust/agentflow/internal/export"
	"github.com/dusk-indust/agentflow/internal/logging"
	"github.com/dusk-indust/agentflow/internal/oracle"
	"github.com/dusk-indust/agentflow/internal/orchestrator"
	"github.com/dusk-indust/agentflow/internal/tracing"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	ConfigPath string
	AgentsPath string
	Format     string
	Verbose    bool
}

// newOracle builds the oracle stack. Tests replace it.
var newOracle = func(ctx context.Context, cfg config.OracleConfig, logger *slog.Logger) (oracle.Client, error) {
	return oracle.New(ctx, cfg, logger)
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "agentflow",
		Short: "Multi-agent orchestration patterns over an LLM oracle",
		Long: `agentflow runs a task through one of five orchestration patterns:

  route     classify the task and hand it to one agent
  plan      decompose into typed subtasks, run each on a worker, synthesize
  parallel  run independent specialists concurrently, then synthesize
  refine    generate and revise against a checklist until approved
  chain     feed each agent's output to the next

Agents come from a YAML catalog (--agents) or the built-in one.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.ConfigPath, "config", "", "config file (default: ./agentflow.yaml or ~/.config/agentflow/agentflow.yaml)")
	pf.StringVar(&flags.AgentsPath, "agents", "", "agent catalog YAML (default: built-in catalog)")
	pf.StringVar(&flags.Format, "format", "text", "output format: text, json or mermaid")
	pf.BoolVarP(&flags.Verbose, "verbose", "v", false, "debug logging and progress on stderr")

	root.AddCommand(
		newRouteCmd(flags),
		newPlanCmd(flags),
		newParallelCmd(flags),
		newRefineCmd(flags),
		newChainCmd(flags),
		newAgentsCmd(flags),
		newServeMCPCmd(flags),
		newServeAgentsCmd(flags),
		newVersionCmd(),
	)
	return root
}

// app is the wired runtime for one command invocation.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	oracle   oracle.Client
	client   a2a.Client
	roster   *agent.Roster
	format   export.Format
	verbose  bool
	stderr   io.Writer
	closers  []func() error
	shutdown func(context.Context) error
}

func setup(cmd *cobra.Command, flags *globalFlags) (*app, error) {
	ctx := cmd.Context()

	format, err := export.ParseFormat(flags.Format)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(flags.ConfigPath)
	if err != nil {
		return nil, err
	}
	if flags.Verbose {
		cfg.Log.Level = "debug"
	}

	logger, closer, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	a := &app{
		cfg:     cfg,
		logger:  logger,
		format:  format,
		verbose: flags.Verbose,
		stderr:  cmd.ErrOrStderr(),
		closers: []func() error{closer},
	}

	a.shutdown, err = tracing.Setup(ctx, cfg.Tracing)
	if err != nil {
		a.close(ctx)
		return nil, fmt.Errorf("tracing: %w", err)
	}

	a.oracle, err = newOracle(ctx, cfg.Oracle, logger)
	if err != nil {
		a.close(ctx)
		return nil, fmt.Errorf("oracle: %w", err)
	}
	a.client = a2a.NewHTTPClient()

	catalogPath := cfg.AgentsFile
	if flags.AgentsPath != "" {
		catalogPath = flags.AgentsPath
	}
	var catalog *agent.Catalog
	if catalogPath != "" {
		catalog, err = agent.LoadCatalog(catalogPath)
	} else {
		catalog, err = agent.DefaultCatalog()
	}
	if err != nil {
		a.close(ctx)
		return nil, err
	}
	a.roster, err = catalog.Build(a.oracle, a.client, logger)
	if err != nil {
		a.close(ctx)
		return nil, fmt.Errorf("build agents: %w", err)
	}

	logger.Debug("agentflow ready",
		"provider", cfg.Oracle.Provider,
		"model", cfg.Oracle.Model,
		"agents", a.roster.Registry.Len(),
	)
	return a, nil
}

// options returns the pattern options from configuration plus a progress
// printer when verbose. The returned func drains the printer.
func (a *app) options() ([]orchestrator.Option, func()) {
	opts := []orchestrator.Option{
		orchestrator.WithLogger(a.logger),
		orchestrator.WithClassifyRetries(a.cfg.Router.ClassifyRetries),
		orchestrator.WithMaxAttempts(a.cfg.Refine.MaxAttempts),
		orchestrator.WithSpecialistTimeout(a.cfg.FanOut.SpecialistTimeout),
	}
	if !a.verbose {
		return opts, func() {}
	}

	reporter := orchestrator.NewProgressReporter()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for ev := range reporter.Subscribe() {
			fmt.Fprintln(a.stderr, orchestrator.FormatProgress(ev))
		}
	}()
	opts = append(opts, orchestrator.WithProgress(reporter.Emit))
	return opts, func() {
		reporter.Close()
		wg.Wait()
	}
}

func (a *app) close(ctx context.Context) {
	if a.shutdown != nil {
		if err := a.shutdown(context.WithoutCancel(ctx)); err != nil {
			a.logger.Warn("tracing shutdown", "error", err)
		}
	}
	for _, c := range a.closers {
		if c != nil {
			_ = c()
		}
	}
}

// render writes v to the command's stdout in the selected format.
func (a *app) render(cmd *cobra.Command, v any) error {
	return export.Write(cmd.OutOrStdout(), a.format, v)
}

// readTask joins args into the instruction. A single "-" reads stdin.
func readTask(cmd *cobra.Command, args []string) (string, error) {
	var text string
	if len(args) == 1 && args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		text = string(data)
	} else {
		text = strings.Join(args, " ")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: task is empty", domain.ErrInvalidInput)
	}
	return text, nil
}

// lookupAll resolves agent names against the registry.
func lookupAll(reg *agent.Registry, names []string) ([]agent.Descriptor, error) {
	out := make([]agent.Descriptor, 0, len(names))
	for _, n := range names {
		d, ok := reg.Lookup(n)
		if !ok {
			return nil, fmt.Errorf("%w: %q", domain.ErrUnknownAgent, n)
		}
		out = append(out, d)
	}
	return out, nil
}
