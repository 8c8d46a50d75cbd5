package main

import (
	"fmt"

	"github.com/aleister1102/designdiff/internal/common"
	"github.com/aleister1102/designdiff/internal/config"
	"github.com/aleister1102/designdiff/internal/imagediff"
	"github.com/spf13/cobra"
)

const maxCompareImageSize = 64 * 1024 * 1024

type compareOptions struct {
	maxDiffPixels int
	maxDiffRatio  float64
	threshold     float64
	diffPath      string
	scale         bool
}

func newCompareCmd(rootFlags *rootFlags) *cobra.Command {
	opts := &compareOptions{}

	cmd := &cobra.Command{
		Use:   "compare <baseline> <candidate>",
		Short: "Compare two image files with the suite's tolerance rules",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(rootFlags, "")
			if err != nil {
				return err
			}

			fm := common.NewFileManager(app.logger)
			baseline, err := fm.ReadFile(args[0], maxCompareImageSize)
			if err != nil {
				return err
			}
			candidate, err := fm.ReadFile(args[1], maxCompareImageSize)
			if err != nil {
				return err
			}

			tol := app.cfg.ComparisonConfig.DefaultTolerance
			if cmd.Flags().Changed("max-diff-pixels") {
				tol.MaxDiffPixels = opts.maxDiffPixels
			}
			if cmd.Flags().Changed("max-diff-ratio") {
				tol.MaxDiffPixelRatio = opts.maxDiffRatio
			}
			if cmd.Flags().Changed("threshold") {
				tol.Threshold = opts.threshold
			}

			compareOpts := imagediff.OptionsFrom(app.cfg.ComparisonConfig)
			if opts.scale {
				compareOpts.DimensionPolicy = config.DimensionPolicyScale
			}
			result, diffPNG, err := imagediff.NewComparator(compareOpts, app.logger).Compare(baseline, candidate, tol)
			if err != nil {
				return &exitError{code: 1, message: err.Error()}
			}

			if opts.diffPath != "" && !result.Passed {
				if err := fm.WriteBytesAtomic(opts.diffPath, diffPNG); err != nil {
					return err
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%dx%d: %d of %d pixels differ (ratio %.4f, allowed %d), phash distance %d\n",
				result.Width, result.Height, result.DiffPixels, result.TotalPixels, result.DiffRatio,
				result.MaxDiffPixels, result.PerceptualHashDistance)
			if !result.Passed {
				return &exitError{code: 1, message: "images differ beyond tolerance"}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.maxDiffPixels, "max-diff-pixels", 0, "Maximum number of differing pixels")
	cmd.Flags().Float64Var(&opts.maxDiffRatio, "max-diff-ratio", 0, "Maximum ratio of differing pixels (0 disables)")
	cmd.Flags().Float64Var(&opts.threshold, "threshold", 0, "Per-pixel color threshold in [0,1]")
	cmd.Flags().StringVarP(&opts.diffPath, "diff", "o", "", "Write the diff image here when the images differ")
	cmd.Flags().BoolVar(&opts.scale, "scale", false, "Scale the candidate to the baseline size instead of failing on mismatch")

	return cmd
}
