package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/crimson-sun/commentguard/internal/moderation"
	"github.com/crimson-sun/commentguard/internal/pipeline"
	"github.com/crimson-sun/commentguard/internal/source/seed"
)

func newSeedCmd(a *app) *cobra.Command {
	var emit bool

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Moderate the built-in sample posts and comments",
		Long: `Run the built-in sample posts and comments through moderation and
report how many were flagged. Moderated comments go to the configured output
file and webhook; --emit also prints them to stdout.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := seed.New()
			if err != nil {
				return err
			}

			eng, err := a.newEngine()
			if err != nil {
				return err
			}
			defer eng.Close()

			var w io.Writer
			if emit {
				w = cmd.OutOrStdout()
			}
			out, err := a.newOutput(w)
			if err != nil {
				return err
			}

			p := pipeline.New(src, moderation.New(eng), out)
			sum, runErr := p.Run(cmd.Context())
			if err := p.Close(); err != nil && runErr == nil {
				runErr = err
			}
			if runErr != nil {
				return runErr
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Successfully created: %d posts, %d comments (%d flagged)\n",
				sum.Posts, sum.Comments, sum.Flagged)
			return nil
		},
	}

	cmd.Flags().BoolVar(&emit, "emit", false, "print moderated comments as JSON lines before the summary")
	return cmd
}
