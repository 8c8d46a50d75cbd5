package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/aleister1102/designdiff/internal/config"
	"github.com/spf13/cobra"
)

type verifyOptions struct {
	jsonOutput bool
}

type verifyPayload struct {
	Design    config.DesignConfigReport `json:"design"`
	Scenarios []config.ScenarioConfig   `json:"scenarios"`
	Workers   int                       `json:"workers"`
	Retries   int                       `json:"retries"`
}

func newVerifyConfigCmd(rootFlags *rootFlags) *cobra.Command {
	opts := &verifyOptions{}

	cmd := &cobra.Command{
		Use:   "verify-config",
		Short: "Validate the config and show which design reference would be used",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(rootFlags, "")
			if err != nil {
				return err
			}

			workers, retries := app.cfg.RunnerConfig.Effective(config.IsCI(app.env))
			payload := verifyPayload{
				Design:    config.DescribeDesignConfig(app.env, config.DesignDefaultsFrom(app.cfg.FigmaConfig), app.cfg.BaseURL),
				Scenarios: app.cfg.EffectiveScenarios(),
				Workers:   workers,
				Retries:   retries,
			}

			if opts.jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(payload)
			}
			renderVerify(cmd, payload)
			if !payload.Design.TokenPresent {
				return &exitError{code: 1, message: config.EnvFigmaAccessToken + " is not set: design baselines cannot be fetched"}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output in JSON format")
	return cmd
}

func renderVerify(cmd *cobra.Command, p verifyPayload) {
	out := cmd.OutOrStdout()
	token := "missing"
	if p.Design.TokenPresent {
		token = fmt.Sprintf("%s (from %s)", p.Design.MaskedToken, p.Design.TokenSource)
	}

	fmt.Fprintln(out, "base url:   ", p.Design.BaseURL)
	fmt.Fprintln(out, "token:      ", token)
	fmt.Fprintln(out, "file key:   ", withDefaultMarker(p.Design.FileKey, p.Design.FileKeyDefault))
	fmt.Fprintln(out, "node id:    ", withDefaultMarker(p.Design.NodeID, p.Design.NodeIDDefault))
	fmt.Fprintln(out, "design url: ", p.Design.DesignURL)
	fmt.Fprintf(out, "ci:          %t (workers %d, retries %d)\n\n", p.Design.CI, p.Workers, p.Retries)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SCENARIO\tKIND\tBASELINE\tTARGET")
	for _, sc := range p.Scenarios {
		target := sc.Selector
		if sc.FullPage {
			target = "(full page)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", sc.Name, sc.Kind, sc.Baseline, target)
	}
	_ = tw.Flush()
}

func withDefaultMarker(value string, isDefault bool) string {
	if isDefault {
		return value + " (default)"
	}
	return value
}
