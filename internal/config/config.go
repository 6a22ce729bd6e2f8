package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Config holds all commentguard configuration.
type Config struct {
	Log     LogConfig     `mapstructure:"log"`
	Rules   RulesConfig   `mapstructure:"rules"`
	Engine  EngineConfig  `mapstructure:"engine"`
	ONNX    ONNXConfig    `mapstructure:"onnx"`
	OpenAI  OpenAIConfig  `mapstructure:"openai"`
	Output  OutputConfig  `mapstructure:"output"`
	Source  SourceConfig  `mapstructure:"source"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// RulesConfig selects the rule table. Zero overrides keep the table's values.
type RulesConfig struct {
	File             string  `mapstructure:"file"`
	MinLength        int     `mapstructure:"min_length"`
	MaxLength        int     `mapstructure:"max_length"`
	PunctuationRatio float64 `mapstructure:"punctuation_ratio"`
}

// EngineConfig holds classification engine settings.
type EngineConfig struct {
	Backend   string        `mapstructure:"backend"` // "rules", "onnx", "openai"
	Threshold float64       `mapstructure:"threshold"`
	Timeout   time.Duration `mapstructure:"timeout"`
	Workers   int           `mapstructure:"workers"`
}

// ONNXConfig locates the local model files.
type ONNXConfig struct {
	ModelPath   string `mapstructure:"model_path"`
	VocabPath   string `mapstructure:"vocab_path"`
	LabelsPath  string `mapstructure:"labels_path"`
	LibraryPath string `mapstructure:"library_path"`
	SafeLabel   string `mapstructure:"safe_label"`
	Activation  string `mapstructure:"activation"` // "sigmoid", "softmax"
	MaxSeqLen   int    `mapstructure:"max_seq_len"`
	Threads     int    `mapstructure:"threads"` // 0 leaves the runtime default
}

// OpenAIConfig holds moderation endpoint settings.
type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

// OutputConfig holds output destination settings.
type OutputConfig struct {
	Verbosity string `mapstructure:"verbosity"` // "minimal", "standard", "full"
	Pretty    bool   `mapstructure:"pretty"`
	File      string `mapstructure:"file"`

	// WebhookURL receives batches of moderated comments. Only flagged
	// comments are sent unless WebhookAll is set.
	WebhookURL string `mapstructure:"webhook_url"`
	WebhookAll bool   `mapstructure:"webhook_all"`
}

// SourceConfig locates the remote comment API used by the "remote" source.
type SourceConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Token    string `mapstructure:"token"`
	PageSize int    `mapstructure:"page_size"`
}

// MetricsConfig holds the Prometheus listener address. Empty disables it.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// EnvPrefix prefixes every environment variable, e.g. COMMENTGUARD_ENGINE_BACKEND.
const EnvPrefix = "commentguard"

// Defaults returns the default value of every key.
func Defaults() map[string]any {
	return map[string]any{
		"log.level":               "info",
		"rules.file":              "",
		"rules.min_length":        0,
		"rules.max_length":        0,
		"rules.punctuation_ratio": 0.0,
		"engine.backend":          "rules",
		"engine.threshold":        0.5,
		"engine.timeout":          "2s",
		"engine.workers":          4,
		"onnx.model_path":         "models/model_quantized.onnx",
		"onnx.vocab_path":         "models/vocab.txt",
		"onnx.labels_path":        "models/labels.txt",
		"onnx.library_path":       "",
		"onnx.safe_label":         "non-toxic",
		"onnx.activation":         "sigmoid",
		"onnx.max_seq_len":        256,
		"onnx.threads":            4,
		"openai.api_key":          "",
		"openai.model":            "omni-moderation-latest",
		"openai.base_url":         "",
		"output.verbosity":        "standard",
		"output.pretty":           false,
		"output.file":             "",
		"output.webhook_url":      "",
		"output.webhook_all":      false,
		"source.endpoint":         "",
		"source.token":            "",
		"source.page_size":        100,
		"metrics.addr":            "",
	}
}

// flagKeys maps CLI flag names to config keys.
var flagKeys = map[string]string{
	"log-level":    "log.level",
	"backend":      "engine.backend",
	"metrics-addr": "metrics.addr",
	"rules":        "rules.file",
	"verbosity":    "output.verbosity",
	"pretty":       "output.pretty",
	"output-file":  "output.file",
	"workers":      "engine.workers",
	"webhook-url":  "output.webhook_url",
	"endpoint":     "source.endpoint",
}

// Load resolves configuration from, in increasing precedence: defaults, a
// commentguard.yaml config file, COMMENTGUARD_* environment variables and
// flags set on cmd. configFile, when non-empty, must exist. cmd may be nil.
func Load(cmd *cobra.Command, configFile string) (Config, error) {
	var c Config
	v := viper.New()

	for key, value := range Defaults() {
		v.SetDefault(key, value)
	}

	v.SetConfigName("commentguard")
	v.SetConfigType("yaml")
	if configFile != "" {
		v.SetConfigFile(configFile)
	}
	if dir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(dir, "commentguard"))
	}
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return c, fmt.Errorf("config: read config file: %w", err)
		}
	}

	v.AutomaticEnv()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if cmd != nil {
		for name, key := range flagKeys {
			if f := cmd.Flag(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return c, fmt.Errorf("config: bind flag %s: %w", name, err)
				}
			}
		}
	}

	if err := v.Unmarshal(&c); err != nil {
		return c, fmt.Errorf("config: %w", err)
	}
	return c, nil
}

// Validate checks the configuration for errors that would prevent startup.
// Returns all problems at once via errors.Join.
func (c Config) Validate() error {
	var errs []error

	switch c.Engine.Backend {
	case "rules":
	case "onnx":
		if c.ONNX.Activation != "sigmoid" && c.ONNX.Activation != "softmax" {
			errs = append(errs, fmt.Errorf("invalid onnx activation %q (must be sigmoid or softmax)", c.ONNX.Activation))
		}
		if c.ONNX.MaxSeqLen < 3 {
			errs = append(errs, fmt.Errorf("onnx max_seq_len must be at least 3, got %d", c.ONNX.MaxSeqLen))
		}
		if c.ONNX.Threads < 0 {
			errs = append(errs, fmt.Errorf("onnx threads must not be negative, got %d", c.ONNX.Threads))
		}
	case "openai":
		if c.OpenAI.APIKey == "" {
			errs = append(errs, fmt.Errorf("COMMENTGUARD_OPENAI_API_KEY is required for the openai backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid engine backend %q (must be rules, onnx, or openai)", c.Engine.Backend))
	}

	if c.Engine.Threshold < 0 || c.Engine.Threshold > 1 {
		errs = append(errs, fmt.Errorf("engine threshold must be between 0 and 1, got %v", c.Engine.Threshold))
	}
	if c.Engine.Timeout < 0 {
		errs = append(errs, fmt.Errorf("engine timeout must be non-negative, got %v", c.Engine.Timeout))
	}
	if c.Engine.Workers < 1 {
		errs = append(errs, fmt.Errorf("engine workers must be at least 1, got %d", c.Engine.Workers))
	}

	if c.Rules.MinLength < 0 || c.Rules.MaxLength < 0 {
		errs = append(errs, fmt.Errorf("rule length overrides must be non-negative"))
	}
	if c.Rules.PunctuationRatio < 0 || c.Rules.PunctuationRatio > 1 {
		errs = append(errs, fmt.Errorf("punctuation ratio override must be between 0 and 1, got %v", c.Rules.PunctuationRatio))
	}

	switch c.Output.Verbosity {
	case "minimal", "standard", "full":
	default:
		errs = append(errs, fmt.Errorf("invalid verbosity %q (must be minimal, standard, or full)", c.Output.Verbosity))
	}

	if c.Output.WebhookURL != "" {
		if u, err := url.Parse(c.Output.WebhookURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			errs = append(errs, fmt.Errorf("invalid webhook url %q (must be http or https)", c.Output.WebhookURL))
		}
	}
	if c.Source.Endpoint != "" && c.Source.PageSize < 1 {
		errs = append(errs, fmt.Errorf("source page size must be at least 1, got %d", c.Source.PageSize))
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("invalid log level %q", c.Log.Level))
	}

	return errors.Join(errs...)
}
