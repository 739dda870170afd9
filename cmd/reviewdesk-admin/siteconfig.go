package main

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/spf13/cobra"

	sqliteadapter "github.com/ericfisherdev/reviewdesk/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/reviewdesk/internal/application"
	"github.com/ericfisherdev/reviewdesk/internal/domain/model"
	"github.com/ericfisherdev/reviewdesk/internal/domain/port/driven"
)

var siteConfigCmd = &cobra.Command{
	Use:   "siteconfig",
	Short: "Show or change site configuration",
}

var siteConfigShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print every setting, including defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		return siteConfigShowRun(cmd)
	},
}

var siteConfigSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Store a setting",
	Long:  "Store a setting. Values that parse as booleans or integers are stored as such.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return siteConfigSetRun(cmd, args[0], args[1])
	},
}

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the search index",
	RunE: func(cmd *cobra.Command, args []string) error {
		search := application.NewSearchService(
			sqliteadapter.NewSiteConfigRepo(db),
			sqliteadapter.NewSearchIndex(db),
			sqliteadapter.NewReviewRequestRepo(db),
			sqliteadapter.NewUserRepo(db),
			sqliteadapter.NewGroupRepo(db),
			logger,
		)
		n, err := search.Reindex(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "indexed %d documents\n", n)
		return nil
	},
}

func init() {
	siteConfigCmd.AddCommand(siteConfigShowCmd, siteConfigSetCmd)
}

func loadSiteConfig(cmd *cobra.Command) (model.SiteConfig, error) {
	return driven.CurrentSiteConfig(cmd.Context(), sqliteadapter.NewSiteConfigRepo(db))
}

func siteConfigShowRun(cmd *cobra.Command) error {
	cfg, err := loadSiteConfig(cmd)
	if err != nil {
		return err
	}

	settings := model.DefaultSiteSettings()
	for k, v := range cfg.Settings {
		settings[k] = v
	}

	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, k := range keys {
		fmt.Fprintf(cmd.OutOrStdout(), "%s = %v\n", k, settings[k])
	}
	return nil
}

func siteConfigSetRun(cmd *cobra.Command, key, raw string) error {
	cfg, err := loadSiteConfig(cmd)
	if err != nil {
		return err
	}

	cfg.Set(key, parseSettingValue(raw))
	if err := sqliteadapter.NewSiteConfigRepo(db).Save(cmd.Context(), cfg); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s = %v\n", key, cfg.Settings[key])
	return nil
}

func parseSettingValue(raw string) any {
	if n, err := strconv.Atoi(raw); err == nil {
		return n
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	return raw
}
