package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/lazypower/lumine/internal/config"
	"github.com/lazypower/lumine/internal/review"
	"github.com/lazypower/lumine/internal/store"
)

var (
	configFile string
	logLevel   string
	pretty     bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "lumine",
	Short: "Notes with spaced-repetition review",
	Long:  "Lumine keeps study notes, schedules them for review with SM-2 and serves them over a JSON API.",

	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configFile)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("log-level") {
			loaded.Log.Level = logLevel
		}
		if cmd.Flags().Changed("pretty") {
			loaded.Log.Pretty = pretty
		}
		if err := setupLogging(loaded.Log); err != nil {
			return err
		}
		cfg = loaded
		return nil
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default ./config.yaml or ~/.lumine/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: trace, debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&pretty, "pretty", false, "human-readable log output")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(dueCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(reviewCmd)
}

func setupLogging(lc config.LogConfig) error {
	level, err := zerolog.ParseLevel(lc.Level)
	if err != nil {
		return fmt.Errorf("parse log level: %w", err)
	}
	zerolog.SetGlobalLevel(level)
	if lc.Pretty || isatty.IsTerminal(os.Stderr.Fd()) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
	// services log through log.Ctx; give them the global logger outside requests
	zerolog.DefaultContextLogger = &log.Logger
	return nil
}

// openStore opens the configured database, creating it on first use.
func openStore() (*store.DB, error) {
	path := cfg.Database.Path
	if path == "" {
		var err error
		path, err = store.DefaultDBPath()
		if err != nil {
			return nil, fmt.Errorf("resolve db path: %w", err)
		}
	}
	db, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

func newReviewService(db *store.DB) (*review.Service, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	return review.New(db, review.Options{
		SessionSize:     cfg.Review.SessionSize,
		InitialInterval: cfg.Review.InitialInterval,
		Location:        loc,
	}), nil
}
