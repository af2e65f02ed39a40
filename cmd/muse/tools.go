package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tjfontaine/clockwork-muse/internal/diagnostics"
	"github.com/tjfontaine/clockwork-muse/internal/domain"
	"github.com/tjfontaine/clockwork-muse/internal/sources"
	"github.com/tjfontaine/clockwork-muse/internal/trace"
)

// probeOutputChars bounds what probe-search prints.
const probeOutputChars = 600

func newProbeSearchCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "probe-search [query]",
		Short: "Run one unfiltered search and print the start of the result",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(root, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			if a.cfg.Search.APIKey == "" {
				return &exitError{code: 2, err: domain.ErrAuth("SERPER_API_KEY not set")}
			}

			q := diagnostics.PreflightQuery
			if len(args) == 1 && strings.TrimSpace(args[0]) != "" {
				q = args[0]
			}
			res, err := a.search.Raw(cmd.Context(), q, domain.DefaultSearchLimit)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), trace.Truncate(res.Render(), probeOutputChars))
			return nil
		},
	}
}

func newValidateSourcesCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate-sources <file>",
		Short: "Check the source URLs in a research file and keep the live ones",
		Long:  "Reads the JSON block of a research markdown file, probes every sources[].url and writes the live sources to <file>.validated.json.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v := sources.NewValidator(sources.WithLogger(root.logger))
			report, dest, err := v.ValidateFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "kept %d, dropped %d -> %s\n", len(report.Sources), report.Dropped, dest)
			return nil
		},
	}
}
