package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"lisstat/internal/config"
	"lisstat/internal/infrastructure"
	"lisstat/internal/lis"
	"lisstat/internal/validation"
	"lisstat/pkg/contracts"
)

// cli holds the state shared by every subcommand
type cli struct {
	configFile string
	logLevel   string
	jsonOutput bool

	cfg       *config.Config
	logger    *slog.Logger
	extractor *lis.Extractor
	validator *validation.FileValidator
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "lisstat",
		Short: "Extract statistical tables from ATP list reports",
		Long: `lisstat reads the ".lis" list reports written by ATP/EMTP statistical
switching studies and extracts the peak voltage and current distribution
tables, the peak shot listing and the random switching times.

Run "lisstat serve" to expose the same operations over HTTP.`,
		Version:           contracts.GetFullVersionString(),
		SilenceUsage:      true,
		PersistentPreRunE: c.setup,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.configFile, "config", "", "YAML config file (default $LIS_CONFIG_FILE or lisstat.yaml)")
	flags.StringVar(&c.logLevel, "log-level", "", "override the configured log level (debug, info, warn, error)")
	flags.BoolVar(&c.jsonOutput, "json", false, "print results as JSON")

	root.AddCommand(
		c.newNamesCmd(),
		c.newShotsCmd(),
		c.newSwitchingCmd(),
		c.newSectionsCmd(),
		c.newTableCmd(),
		c.newExportCmd(),
		c.newPlotCmd(),
		c.newScanDirCmd(),
		c.newServeCmd(),
	)
	return root
}

// setup loads configuration and builds the logger and extractor.
func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	var err error
	if c.configFile != "" {
		c.cfg, err = config.LoadFile(c.configFile)
	} else {
		c.cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if c.logLevel != "" {
		c.cfg.Logging.Level = c.logLevel
	}

	c.logger = infrastructure.NewLogger(c.cfg.Logging, cmd.ErrOrStderr())
	c.validator = validation.NewFileValidator(c.logger)
	c.extractor = lis.NewExtractor(
		lis.WithLogger(c.logger),
		lis.WithConcurrency(c.cfg.Scan.MaxConcurrent),
	)
	return nil
}

// reportSource validates a report path given on the command line
func (c *cli) reportSource(path string) (lis.Source, error) {
	if err := c.validator.ValidateReportFile(path); err != nil {
		return nil, err
	}
	return lis.FileSource(path), nil
}

// print writes v as indented JSON when --json is set and through text otherwise.
func (c *cli) print(w io.Writer, v interface{}, text func(io.Writer) error) error {
	if c.jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	return text(w)
}
