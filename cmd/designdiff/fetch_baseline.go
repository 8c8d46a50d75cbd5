package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aleister1102/designdiff/internal/config"
	"github.com/aleister1102/designdiff/internal/figma"
	"github.com/aleister1102/designdiff/internal/orchestrator"
	"github.com/spf13/cobra"
)

func newFetchBaselineCmd(rootFlags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch-baseline",
		Short: "Download the design baselines without running the suite",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(rootFlags, "")
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			client, err := figma.NewClient(app.cfg.FigmaConfig, app.logger)
			if err != nil {
				return err
			}

			// pages and runner are not needed for the setup phase
			setup := orchestrator.NewOrchestrator(app.cfg, app.env, nil, client, nil, app.logger).Setup(ctx)

			out := cmd.OutOrStdout()
			if setup.Reference.FileKey != "" {
				fmt.Fprintln(out, "design:", setup.Reference.DesignURL())
			}
			for _, b := range setup.Baselines {
				state := "fetched"
				if b.Stale {
					state = "stale"
				}
				fmt.Fprintf(out, "%-8s %s (%dx%d, node %s)\n", state, b.Path, b.Width, b.Height, b.NodeID)
			}
			for _, w := range setup.Warnings {
				fmt.Fprintln(out, "warning:", w)
			}

			if !setup.TokenPresent {
				return &exitError{code: 1, message: config.EnvFigmaAccessToken + " is not set"}
			}
			if len(setup.Warnings) > 0 {
				return &exitError{code: 1, message: "some baselines could not be fetched"}
			}
			return nil
		},
	}
}
