package cmd

import (
	"clipwatch/config"
	"clipwatch/database"
	"clipwatch/logger"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile          string
	dbPath           string
	appLogPathFlag   string
	proxyLogPathFlag string
	logLevelFlag     string
)

var rootCmd = &cobra.Command{
	Use:   "clipwatch",
	Short: "Watch proxied HTTP traffic and copy values matched by your rules",
	Long: `clipwatch is an intercepting HTTP(S) proxy. Rules describe which requests
to watch and what to extract from their URL, headers, query parameters or body.
Matched values are copied to the clipboard, kept in a short history and shown
as notifications in connected pages.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Init(cfgFile, appLogPathFlag, proxyLogPathFlag, logLevelFlag); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		finalDBPath := config.AppConfig.Database.Path
		if dbPath != "" {
			finalDBPath = config.ExpandTilde(dbPath)
			logger.Info("Using database path from --dbpath flag: '%s'", finalDBPath)
		}
		if finalDBPath == "" {
			logger.Error("Database path is empty after checking flag and config! Falling back to 'clipwatch.db' in CWD.")
			finalDBPath = "clipwatch.db"
		}

		if err := database.InitDB(finalDBPath); err != nil {
			return fmt.Errorf("failed to initialize database at %s: %w", finalDBPath, err)
		}
		logger.Debug("Database initialized at: %s", finalDBPath)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if err := database.CloseDB(); err != nil {
			logger.Error("Closing database: %v", err)
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/clipwatch/config.yaml or ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "dbpath", "", "path to SQLite database file (overrides config/default)")
	rootCmd.PersistentFlags().StringVar(&appLogPathFlag, "app-log", "", "path for the application log file (overrides config/default)")
	rootCmd.PersistentFlags().StringVar(&proxyLogPathFlag, "proxy-log", "", "path for the proxy log file (overrides config/default)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "log level: DEBUG, INFO, WARN, ERROR (overrides config/default)")
}
