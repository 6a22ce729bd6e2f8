package main

import (
	"github.com/spf13/cobra"

	"github.com/crimson-sun/commentguard/internal/config"
	"github.com/crimson-sun/commentguard/internal/logging"
)

// annotationNDJSON marks commands that stream JSON results on stdout. Their
// logs are JSON as well.
const annotationNDJSON = "ndjson"

// newRootCmd builds the command tree. Each call returns an independent tree
// so tests can run commands in isolation.
func newRootCmd() *cobra.Command {
	var (
		cfgFile string
		a       = &app{}
	)

	cmd := &cobra.Command{
		Use:   "commentguard",
		Short: "Rule-based and model-assisted comment moderation",
		Long: `commentguard flags blog comments that need human review.

Every comment is checked against a rule table of keywords, spam patterns,
length limits and punctuation density. A local ONNX toxicity model or a
remote moderation endpoint can be layered on top; when the model is
unavailable the rules alone decide.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd, cfgFile)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			logging.Init(cmd.Annotations[annotationNDJSON] == "true", cfg.Log.Level)
			return a.start(cmd.Context(), cfg)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.stop()
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is ./commentguard.yaml or $XDG_CONFIG_HOME/commentguard/commentguard.yaml)")
	pf.String("log-level", "info", `log level ("debug", "info", "warn", "error")`)
	pf.String("backend", "rules", `classifier backend ("rules", "onnx", "openai")`)
	pf.String("metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")
	pf.String("rules", "", "rule table YAML file (default: built-in rules)")
	pf.String("verbosity", "standard", `comment output detail ("minimal", "standard", "full")`)
	pf.Bool("pretty", false, "indent JSON output")
	pf.String("output-file", "", "also append moderated comments to this NDJSON file")
	pf.String("webhook-url", "", "POST flagged comments to this URL in batches")
	pf.Int("workers", 4, "concurrent classifications for batch input")

	cmd.AddCommand(
		newClassifyCmd(a),
		newModerateCmd(a),
		newSeedCmd(a),
		newRulesCmd(a),
	)
	return cmd
}
