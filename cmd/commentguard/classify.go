package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newClassifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "classify [text...]",
		Short: "Classify texts and print one JSON result per line",
		Long: `Classify each argument, or each non-blank line of stdin when no
arguments are given, and print one JSON result per input in input order.`,
		Annotations: map[string]string{annotationNDJSON: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := a.newEngine()
			if err != nil {
				return err
			}
			defer eng.Close()

			enc := json.NewEncoder(cmd.OutOrStdout())
			if a.cfg.Output.Pretty {
				enc.SetIndent("", "  ")
			}

			ctx := cmd.Context()
			if len(args) > 0 {
				for _, r := range eng.ClassifyBatch(ctx, args) {
					if err := enc.Encode(r); err != nil {
						return err
					}
				}
				return nil
			}

			sc := bufio.NewScanner(cmd.InOrStdin())
			sc.Buffer(make([]byte, 64*1024), 1<<20)
			for sc.Scan() {
				line := strings.TrimSuffix(sc.Text(), "\r")
				if strings.TrimSpace(line) == "" {
					continue
				}
				if err := enc.Encode(eng.Classify(ctx, line)); err != nil {
					return err
				}
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			if err := sc.Err(); err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}
			return nil
		},
	}
}
