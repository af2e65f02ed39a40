package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tjfontaine/clockwork-muse/internal/diagnostics"
)

func newSelftestCmd(root *rootOptions) *cobra.Command {
	var (
		strict     bool
		dnsHost    string
		networkURL string
	)

	cmd := &cobra.Command{
		Use:   "selftest",
		Short: "Check network, search API and LLM server reachability",
		Long:  "Prints one [OK], [FAIL] or [WARN] line per check followed by a JSON summary. With --strict any failure exits non-zero.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(root, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			checker := a.checker(diagnostics.WithNetworkTargets(dnsHost, networkURL))
			checks := checker.SelfTest(cmd.Context())

			out := cmd.OutOrStdout()
			for _, c := range checks {
				fmt.Fprintf(out, "[%s] %s: %s\n", c.Status(), c.Name, c.Detail)
			}
			summary := diagnostics.Summarize(checks)
			data, err := json.Marshal(summary)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "[SUMMARY] %s\n", data)

			if strict && len(summary.Failed) > 0 {
				return fmt.Errorf("self-test failed: %v", summary.Failed)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "exit non-zero when any check fails")
	cmd.Flags().StringVar(&dnsHost, "dns-host", diagnostics.DefaultDNSHost, "host resolved by the network check")
	cmd.Flags().StringVar(&networkURL, "network-url", diagnostics.DefaultNetworkURL, "URL fetched by the network check")
	_ = cmd.Flags().MarkHidden("dns-host")
	_ = cmd.Flags().MarkHidden("network-url")
	return cmd
}

func newDiagnoseCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "diagnose",
		Short: "Send a raw \"say ok\" to the LLM server",
		Long:  "Probes chat/completions when the base URL ends in /v1, otherwise /api/chat with /api/generate on 404, and prints each status and body.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(root, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			llm := a.cfg.LLM
			fmt.Fprintf(out, "BASE=%s STYLE=%s MODEL=%s\n", llm.BaseURL, styleLabel(llm.APIStyle), llm.Model)
			for _, res := range a.checker().ProbeLLM(cmd.Context()) {
				fmt.Fprintf(out, "Trying %s...\n", res.Endpoint)
				if res.Err != nil {
					fmt.Fprintf(out, "error: %v\n", res.Err)
					continue
				}
				fmt.Fprintf(out, "%d %s\n", res.Status, res.Body)
			}
			return nil
		},
	}
}

func styleLabel(style string) string {
	if style == "" {
		return "auto"
	}
	return style
}
