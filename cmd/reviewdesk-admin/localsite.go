package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	sqliteadapter "github.com/ericfisherdev/reviewdesk/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/reviewdesk/internal/application"
)

var localSiteCmd = &cobra.Command{
	Use:   "localsite",
	Short: "Manage local sites",
}

var localSiteAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a local site",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		site, err := sqliteadapter.NewGroupRepo(db).CreateLocalSite(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created local site %s (id %d)\n", site.Name, site.ID)
		return nil
	},
}

var localSiteAddUserCmd = &cobra.Command{
	Use:   "adduser <site> <username>",
	Short: "Make a user a member of a local site",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return localSiteAddUserRun(cmd, args[0], args[1])
	},
}

func init() {
	localSiteCmd.AddCommand(localSiteAddCmd, localSiteAddUserCmd)
}

func localSiteAddUserRun(cmd *cobra.Command, siteName, username string) error {
	ctx := cmd.Context()
	groups := sqliteadapter.NewGroupRepo(db)

	site, err := application.NewGroupService(groups, logger).LocalSite(ctx, siteName)
	if err != nil {
		return err
	}
	if site == nil {
		return errors.New("a local site name is required")
	}

	user, err := sqliteadapter.NewUserRepo(db).GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	if user == nil {
		return errors.New("no such user: " + username)
	}

	if err := groups.AddLocalSiteUser(ctx, site.ID, user.ID); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "added %s to local site %s\n", username, site.Name)
	return nil
}
