package commands

import (
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/warp/contribution-engine/config"
	"github.com/warp/contribution-engine/logging"
	"github.com/warp/contribution-engine/tables"
)

var (
	// Global flags
	tablesPath string
	logLevel   string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "contrib",
	Short: "Social-insurance contribution calculator",
	Long: `Contribution engine CLI

Calculates social-insurance contributions owed over declared employment
periods, under the pre-2020 and post-2020 regimes, from statutory tables.

Usage:
  contrib [command]

Examples:
  contrib serve
  contrib calc --periods periods.json
  contrib calc --periods periods.yaml --confirm --output json
  contrib validate --periods periods.json`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&tablesPath, "tables", "", "statutory tables file (default TABLES_PATH or tables.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug|info|warn|error)")
}

// setup loads configuration, applies global flag overrides, builds the
// logger writing to logOut and loads the tables every command needs.
func setup(logOut io.Writer) (*config.Config, zerolog.Logger, *tables.Set, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), nil, err
	}
	if tablesPath != "" {
		cfg.TablesPath = tablesPath
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	log := logging.NewWithWriter(cfg, logOut)

	set, err := tables.LoadFile(cfg.TablesPath)
	if err != nil {
		return nil, log, nil, err
	}
	log.Debug().Str("tables", cfg.TablesPath).Int("loaded", len(set.Summary())).Msg("tables loaded")
	return cfg, log, set, nil
}
