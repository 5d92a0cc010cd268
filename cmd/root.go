package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"marketing-export/infrastructure/config"

	"github.com/spf13/cobra"
)

// OutputWriter allows capturing output in tests
type OutputWriter interface {
	Write(p []byte) (n int, err error)
}

var (
	cfgFile   string
	logLevel  string
	logFormat string
	cfg       *config.Config
	cfgErr    error
	logger    = slog.Default()
)

var rootCmd = &cobra.Command{
	Use:   "marketing-export",
	Short: "Generate marketing copy and export it to Google Drive",
	Long: `marketing-export turns a product description into marketing copy and
saves it to a Google Drive folder:

  - Generate copy with an LLM in a Professional, Casual or Exciting tone
  - Edit it before export
  - Upload it as a text file to a folder in My Drive or a shared drive
  - Serve the same workflow as a web form

Example:
  marketing-export generate --product "PragyanAI" --audience "Engineering students"
  marketing-export serve --address :8080`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./"+config.DefaultPath+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error (overrides logging.level)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: text or json (overrides logging.format)")
}

func initConfig() {
	if cfgFile == "" {
		cfgFile = config.DefaultPath
	}

	// A missing file falls back to defaults so help and setup still work.
	// Commands that need a complete config call requireConfig.
	cfg, cfgErr = config.LoadOrDefault(cfgFile)

	level, format := logLevel, logFormat
	if cfg != nil {
		if level == "" {
			level = cfg.Logging.Level
		}
		if format == "" {
			format = cfg.Logging.Format
		}
	}
	logger = newLogger(os.Stderr, level, format)
	slog.SetDefault(logger)
}

// newLogger builds a slog logger for the given level and format
func newLogger(w io.Writer, level, format string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// GetConfig returns the loaded configuration
func GetConfig() *config.Config {
	return cfg
}

// requireConfig returns the loaded configuration. With llm set every
// section is validated, otherwise only the Google and Drive sections.
func requireConfig(llm bool) (*config.Config, error) {
	if cfgErr != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", cfgErr)
	}
	if cfg == nil {
		return nil, fmt.Errorf("configuration not loaded; run 'marketing-export setup' first")
	}
	validate := cfg.ValidateGoogle
	if llm {
		validate = cfg.Validate
	}
	if err := validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
