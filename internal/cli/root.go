package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ppiankov/takeoff/internal/logging"
	"github.com/ppiankov/takeoff/internal/model"
)

// Version is the release version reported by `takeoff version`
var Version = "v0.1.0"

// Exit codes of the takeoff binary
const (
	ExitOK         = 0
	ExitFailure    = 1
	ExitNoElements = 2
)

var (
	cfgFile string
	verbose bool

	// set by setup before any command runs
	runConfig = model.DefaultConfig()
	logger    = zap.NewNop()
)

// rootCmd takes off a single model
var rootCmd = &cobra.Command{
	Use:   "takeoff <model file> <output file>",
	Short: "takeoff - BIM quantity take-off and Bill of Quantities generation",
	Long: `takeoff reads a building information model export, extracts volumes, areas,
lengths and counts for the selected element types and writes an aggregated
Bill of Quantities.

Each quantity is taken from the element's quantity sets when present, then
from quantity-like property sets, and finally computed from its geometry.

The output format follows the output file extension:
  .xlsx (default), .json, .pdf, .html, .arrow

Example:
  takeoff tower.ifc.yaml boq.xlsx
  takeoff tower.ifc.yaml boq.json --grouping storey
  takeoff tower.ifc.yaml boq.pdf --cost --rates rates.json --workers 8`,
	Args:              cobra.ExactArgs(2),
	SilenceErrors:     true,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	RunE:              runTakeoff,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with a cancellable context
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// ExitCode maps a command error to the process exit code
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, model.ErrNoElements):
		return ExitNoElements
	default:
		return ExitFailure
	}
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "takeoff %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	defaults := model.DefaultConfig()
	flags := rootCmd.PersistentFlags()

	// Global flags
	flags.StringVar(&cfgFile, "config", "", "config file (default: $HOME/.takeoff/config.yaml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	flags.String("log-format", defaults.Log.Format, "log encoding (console, json)")

	// Take-off flags, shared with batch
	flags.String("grouping", defaults.Grouping, "grouping level (type, storey, material, all)")
	flags.StringSlice("types", defaults.Elements.Types, "element types to take off")
	flags.Int("workers", defaults.Extraction.Workers, "extraction workers per model (1 = sequential, 0 = one per CPU)")
	flags.Duration("geometry-timeout", defaults.Geometry.Timeout, "geometry computation timeout per element (0 = none)")
	flags.Bool("cost", defaults.Cost.Enabled, "estimate costs from a rate book")
	flags.String("rates", defaults.Cost.RatesPath, "rate book JSON file (implies --cost)")
	flags.String("currency", defaults.Cost.Currency, "currency label for cost totals")
	flags.Int("precision", defaults.Output.Precision, "decimals shown in human-readable reports")
	flags.String("metrics-file", defaults.Output.MetricsFile, "write Prometheus metrics to this textfile after the run")

	bindings := map[string]string{
		"output.verbose":      "verbose",
		"log.format":          "log-format",
		"grouping":            "grouping",
		"elements.types":      "types",
		"extraction.workers":  "workers",
		"geometry.timeout":    "geometry-timeout",
		"cost.enabled":        "cost",
		"cost.rates":          "rates",
		"cost.currency":       "currency",
		"output.precision":    "precision",
		"output.metrics_file": "metrics-file",
	}
	for key, flag := range bindings {
		_ = viper.BindPFlag(key, flags.Lookup(flag))
	}

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	v := viper.GetViper()
	setDefaults(v)

	if cfgFile != "" {
		// Use config file from the flag
		v.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		// Search for config in home directory
		v.AddConfigPath(filepath.Join(home, ".takeoff"))
		v.SetConfigType("yaml")
		v.SetConfigName("config")
	}

	// Read in environment variables that match TAKEOFF_*
	v.SetEnvPrefix("TAKEOFF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// If a config file is found, read it in
	if err := v.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", v.ConfigFileUsed())
	}
}

// setDefaults registers every configuration key so that env vars and
// config files can override any of them
func setDefaults(v *viper.Viper) {
	d := model.DefaultConfig()
	v.SetDefault("grouping", d.Grouping)
	v.SetDefault("elements.types", d.Elements.Types)
	v.SetDefault("extraction.workers", d.Extraction.Workers)
	v.SetDefault("extraction.quantity_markers", d.Extraction.QuantityMarkers)
	v.SetDefault("extraction.default_unit_scale", d.Extraction.DefaultUnitScale)
	v.SetDefault("geometry.timeout", d.Geometry.Timeout)
	v.SetDefault("geometry.max_per_second", d.Geometry.MaxPerSecond)
	v.SetDefault("geometry.burst", d.Geometry.Burst)
	v.SetDefault("geometry.cache_ttl", d.Geometry.CacheTTL)
	v.SetDefault("geometry.cache_disabled", d.Geometry.CacheDisabled)
	v.SetDefault("cost.enabled", d.Cost.Enabled)
	v.SetDefault("cost.rates", d.Cost.RatesPath)
	v.SetDefault("cost.currency", d.Cost.Currency)
	v.SetDefault("output.precision", d.Output.Precision)
	v.SetDefault("output.metrics_file", d.Output.MetricsFile)
	v.SetDefault("output.verbose", d.Output.Verbose)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// loadConfig resolves the effective configuration: flags, then TAKEOFF_* env
// vars, then the config file, then built-in defaults
func loadConfig(v *viper.Viper) (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, &model.ConfigurationError{Key: "config", Err: err}
	}

	if cfg.Extraction.Workers <= 0 {
		cfg.Extraction.Workers = runtime.NumCPU()
	}
	if cfg.Output.Precision < 0 {
		return nil, &model.ConfigurationError{
			Key: "precision",
			Err: fmt.Errorf("must not be negative, got %d", cfg.Output.Precision),
		}
	}
	return cfg, nil
}

// setup loads the configuration and builds the logger for every command
func setup(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	if f := cmd.Flags().Lookup("rates"); f != nil && f.Changed {
		cfg.Cost.Enabled = true
	}
	runConfig = cfg

	l, err := logging.New(logging.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Verbose: cfg.Output.Verbose,
	})
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	logger = l
	return nil
}
