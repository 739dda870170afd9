package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	sqliteadapter "github.com/ericfisherdev/reviewdesk/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/reviewdesk/internal/config"
)

// Shared state, opened in PersistentPreRunE and closed in PersistentPostRunE.
var (
	dbPath string
	db     *sqliteadapter.DB
	logger = slog.Default()
)

var rootCmd = &cobra.Command{
	Use:           "reviewdesk-admin",
	Short:         "Administer a reviewdesk database",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return openDB()
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if db == nil {
			return nil
		}
		return db.Close()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Database path (default from REVIEWDESK_DB_PATH)")

	rootCmd.AddCommand(userCmd, groupCmd, repoCmd, localSiteCmd, siteConfigCmd, reindexCmd)
}

// openDB opens the configured database and brings its schema up to date.
func openDB() error {
	path := dbPath
	if path == "" {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		path = cfg.DBPath
	}

	var err error
	db, err = sqliteadapter.NewDB(path)
	if err != nil {
		return err
	}
	return sqliteadapter.RunMigrations(db.Writer)
}
