package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/agentflow/internal/domain"
	"github.com/dusk-indust/agentflow/internal/orchestrator"
)

func newRouteCmd(flags *globalFlags) *cobra.Command {
	var taskCtx map[string]string
	cmd := &cobra.Command{
		Use:   "route <task...>",
		Short: "Classify a task and hand it to one agent",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readTask(cmd, args)
			if err != nil {
				return err
			}
			a, err := setup(cmd, flags)
			if err != nil {
				return err
			}
			defer a.close(cmd.Context())

			opts, done := a.options()
			routed, err := orchestrator.NewRouter(a.oracle, a.roster.Registry, opts...).
				Route(cmd.Context(), domain.Task{Instruction: text, Context: taskCtx})
			done()
			if err != nil {
				return err
			}
			return a.render(cmd, &routed)
		},
	}
	cmd.Flags().StringToStringVar(&taskCtx, "context", nil, "prior results as key=value, forwarded to the agent")
	return cmd
}

func newPlanCmd(flags *globalFlags) *cobra.Command {
	var (
		taskCtx     map[string]string
		planOnly    bool
		noSynthesis bool
	)
	cmd := &cobra.Command{
		Use:   "plan <task...>",
		Short: "Decompose a task, run each subtask on a worker, then synthesize",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readTask(cmd, args)
			if err != nil {
				return err
			}
			a, err := setup(cmd, flags)
			if err != nil {
				return err
			}
			defer a.close(cmd.Context())

			synth := a.roster.Synthesizer
			if noSynthesis {
				synth.Invoke = nil
			}
			opts, done := a.options()
			o := orchestrator.New(a.oracle, a.roster.Registry, synth, opts...)
			task := domain.Task{Instruction: text, Context: taskCtx}

			if planOnly {
				plan, err := o.Plan(cmd.Context(), task)
				done()
				if err != nil {
					return err
				}
				// Render the unexecuted plan as a report with no results.
				return a.render(cmd, &orchestrator.Report{
					Task:     task,
					Analysis: plan.Analysis,
					Subtasks: plan.Subtasks,
					Warnings: plan.Warnings,
				})
			}

			report, err := o.Execute(cmd.Context(), task)
			done()
			if report != nil {
				if rerr := a.render(cmd, report); rerr != nil && err == nil {
					err = rerr
				}
			}
			if err == nil && report.Failures() > 0 {
				a.logger.Warn("some subtasks failed", "failures", report.Failures(), "subtasks", len(report.Subtasks))
			}
			return err
		},
	}
	cmd.Flags().StringToStringVar(&taskCtx, "context", nil, "prior results as key=value, available to the planner and workers")
	cmd.Flags().BoolVar(&planOnly, "plan-only", false, "print the decomposition without dispatching it")
	cmd.Flags().BoolVar(&noSynthesis, "no-synthesis", false, "skip the synthesis step")
	return cmd
}

func newParallelCmd(flags *globalFlags) *cobra.Command {
	var names []string
	cmd := &cobra.Command{
		Use:   "parallel <task...>",
		Short: "Run independent specialists concurrently, then synthesize",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readTask(cmd, args)
			if err != nil {
				return err
			}
			a, err := setup(cmd, flags)
			if err != nil {
				return err
			}
			defer a.close(cmd.Context())

			descs := a.roster.Parallel
			if len(names) > 0 {
				if descs, err = lookupAll(a.roster.Registry, names); err != nil {
					return err
				}
			}
			if len(descs) == 0 {
				return fmt.Errorf("%w: no specialists; pass --specialist or set parallel in the catalog", domain.ErrInvalidInput)
			}

			opts, done := a.options()
			report, err := orchestrator.NewFanOut(a.roster.Synthesizer, opts...).
				Run(cmd.Context(), domain.Task{Instruction: text}, orchestrator.Specialists(descs...))
			done()
			if report != nil {
				if rerr := a.render(cmd, report); rerr != nil && err == nil {
					err = rerr
				}
			}
			return err
		},
	}
	cmd.Flags().StringSliceVar(&names, "specialist", nil, "agent names to fan out to (default: the catalog's parallel set)")
	return cmd
}

func newRefineCmd(flags *globalFlags) *cobra.Command {
	var (
		checklist   []string
		maxAttempts int
	)
	cmd := &cobra.Command{
		Use:   "refine <request...>",
		Short: "Generate and revise against a checklist until approved",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readTask(cmd, args)
			if err != nil {
				return err
			}
			a, err := setup(cmd, flags)
			if err != nil {
				return err
			}
			defer a.close(cmd.Context())

			opts, done := a.options()
			if maxAttempts > 0 {
				opts = append(opts, orchestrator.WithMaxAttempts(maxAttempts))
			}
			out, err := orchestrator.NewOracleRefiner(a.oracle, checklist, a.cfg.Refine.ApprovalToken, opts...).
				Refine(cmd.Context(), text)
			done()
			if out != nil {
				if rerr := a.render(cmd, out); rerr != nil && err == nil {
					err = rerr
				}
			}
			return err
		},
	}
	cmd.Flags().StringArrayVar(&checklist, "check", nil, "evaluation criterion (repeatable)")
	cmd.Flags().IntVar(&maxAttempts, "max-attempts", 0, "attempt budget (default: refine.max_attempts)")
	return cmd
}

func newChainCmd(flags *globalFlags) *cobra.Command {
	var names []string
	cmd := &cobra.Command{
		Use:   "chain <task...>",
		Short: "Run agents in sequence, feeding each output to the next",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readTask(cmd, args)
			if err != nil {
				return err
			}
			a, err := setup(cmd, flags)
			if err != nil {
				return err
			}
			defer a.close(cmd.Context())

			steps := a.roster.Chain
			if len(names) > 0 {
				if steps, err = lookupAll(a.roster.Registry, names); err != nil {
					return err
				}
			}
			opts, done := a.options()
			chain, err := orchestrator.NewChain(steps, opts...)
			if err != nil {
				done()
				return err
			}
			report, err := chain.Run(cmd.Context(), domain.Task{Instruction: text})
			done()
			if report != nil && len(report.Steps) > 0 {
				if rerr := a.render(cmd, report); rerr != nil && err == nil {
					err = rerr
				}
			}
			return err
		},
	}
	cmd.Flags().StringSliceVar(&names, "step", nil, "agent names in order (default: the catalog's chain)")
	return cmd
}
