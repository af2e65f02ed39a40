package main

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tjfontaine/clockwork-muse/internal/crew"
)

// runIDLayout formats the id shared by every topic of one invocation.
const runIDLayout = "20060102-150405"

type runOptions struct {
	topics        []string
	channels      []string
	stage         string
	skipPreflight bool
	crewFile      string
}

func newRunCmd(root *rootOptions) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the content plan for one or more topics",
		Long: "Runs the selected stage for each topic in turn. Every topic shares one run id. " +
			"Stages that include research check the search API first unless --skip-preflight is set.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(cmd, root, opts)
		},
	}

	cmd.Flags().StringSliceVar(&opts.topics, "topics", nil, "one or more topics")
	cmd.Flags().StringSliceVar(&opts.channels, "channels", []string{"yt_shorts"}, "output channels")
	cmd.Flags().StringVar(&opts.stage, "stage", crew.StageAll, "stage to run: "+strings.Join(crew.Stages(), ", "))
	cmd.Flags().BoolVar(&opts.skipPreflight, "skip-preflight", false, "skip the search connectivity check")
	cmd.Flags().StringVarP(&opts.crewFile, "config", "c", "crew.yaml", "path to the agent and task definitions")
	_ = cmd.MarkFlagRequired("topics")
	return cmd
}

func runPlan(cmd *cobra.Command, root *rootOptions, opts *runOptions) error {
	if !slices.Contains(crew.Stages(), opts.stage) {
		return fmt.Errorf("unknown stage %q (want one of %s)", opts.stage, strings.Join(crew.Stages(), ", "))
	}

	defs, err := crew.Load(opts.crewFile)
	if err != nil {
		return err
	}

	a, err := newApp(root, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	client, err := a.llmClient()
	if err != nil {
		return err
	}

	runnerOpts := []crew.RunnerOption{
		crew.WithSearcher(a.search),
		crew.WithLogger(a.logger),
	}
	if videos := a.videos(); videos != nil {
		runnerOpts = append(runnerOpts, crew.WithVideoSearcher(videos))
	}
	runner := crew.NewRunner(defs, client, runnerOpts...)

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	runID := time.Now().Format(runIDLayout)

	for _, topic := range opts.topics {
		fmt.Fprintf(out, "\n=== Running topic: %s ===\n", topic)

		if crew.IncludesResearch(opts.stage) && !opts.skipPreflight {
			if err := a.checker().Preflight(ctx); err != nil {
				return fmt.Errorf("preflight: %w", err)
			}
		}

		in := crew.Inputs{
			Topic:    topic,
			Topics:   []string{topic},
			Channels: opts.channels,
			RunID:    runID,
		}
		state, err := runner.Run(ctx, opts.stage, in)
		if err != nil {
			a.logger.Error("run failed",
				slog.String("topic", topic),
				slog.String("error", err.Error()))
			return &exitError{code: 2, err: fmt.Errorf("topic %q: %w", topic, err)}
		}

		if plan := crew.Plan(opts.stage); len(plan) > 0 {
			fmt.Fprintln(out, state.Outputs[plan[len(plan)-1]])
		}
	}

	stats := a.stats(ctx)
	a.logger.Info("run complete",
		slog.String("run_id", runID),
		slog.Int("llm_calls", stats.LLMCalls),
		slog.Int("searches", stats.Searches),
		slog.Int("failed", stats.Failed))
	fmt.Fprintf(out, "\n=== DONE === llm_calls=%d searches=%d failed=%d\n", stats.LLMCalls, stats.Searches, stats.Failed)
	return nil
}
