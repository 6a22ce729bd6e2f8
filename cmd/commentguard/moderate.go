package main

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/crimson-sun/commentguard/internal/moderation"
	"github.com/crimson-sun/commentguard/internal/pipeline"
	"github.com/crimson-sun/commentguard/internal/source"
	_ "github.com/crimson-sun/commentguard/internal/source/lines"
	_ "github.com/crimson-sun/commentguard/internal/source/remote"
)

func newModerateCmd(a *app) *cobra.Command {
	var (
		postID int64
		title  string
		author string
		from   string
	)

	cmd := &cobra.Command{
		Use:   "moderate",
		Short: "Moderate submitted comments and print them as JSON",
		Long: `Moderate comments and print each moderated comment as one JSON line.

With --from lines (the default) every non-blank stdin line is one comment on
--post by --author. With --from remote comments are paged from the comment
API at --endpoint.`,
		Annotations: map[string]string{annotationNDJSON: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if from == "lines" && !cmd.Flags().Changed("post") {
				return errors.New("--post is required when reading comments from stdin")
			}

			src, err := source.Open(from, source.Config{
				Input:     cmd.InOrStdin(),
				PostID:    postID,
				PostTitle: title,
				Author:    author,
				Endpoint:  a.cfg.Source.Endpoint,
				Token:     a.cfg.Source.Token,
				PageSize:  a.cfg.Source.PageSize,
			})
			if err != nil {
				return err
			}

			eng, err := a.newEngine()
			if err != nil {
				return err
			}
			defer eng.Close()

			out, err := a.newOutput(cmd.OutOrStdout())
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

			slog.Info("moderation finished",
				"backend", eng.Backend(), "posts", sum.Posts, "comments", sum.Comments,
				"flagged", sum.Flagged, "skipped", sum.Skipped)
			return nil
		},
	}

	f := cmd.Flags()
	f.Int64Var(&postID, "post", 0, "post id the stdin comments belong to")
	f.StringVar(&title, "title", "", "post title, for reporting")
	f.StringVar(&author, "author", "anonymous", "comment author for stdin comments")
	f.StringVar(&from, "from", "lines", `comment source ("lines", "remote")`)
	f.String("endpoint", "", "comment API base URL for --from remote")
	return cmd
}
