package main

import (
	"fmt"

	"github.com/spf13/cobra"

	sqliteadapter "github.com/ericfisherdev/reviewdesk/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/reviewdesk/internal/application"
	"github.com/ericfisherdev/reviewdesk/internal/domain/model"
)

var (
	groupDisplayName string
	groupLocalSite   string
	groupInvisible   bool
	groupInviteOnly  bool
)

var groupCmd = &cobra.Command{
	Use:   "group",
	Short: "Manage review groups",
}

var groupAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a review group",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return groupAddRun(cmd, args[0])
	},
}

func init() {
	groupAddCmd.Flags().StringVar(&groupDisplayName, "display-name", "", "Display name (defaults to the name)")
	groupAddCmd.Flags().StringVar(&groupLocalSite, "local-site", "", "Local site the group belongs to")
	groupAddCmd.Flags().BoolVar(&groupInvisible, "invisible", false, "Hide the group from group lists")
	groupAddCmd.Flags().BoolVar(&groupInviteOnly, "invite-only", false, "Only allow members to be added by administrators")

	groupCmd.AddCommand(groupAddCmd)
}

func groupAddRun(cmd *cobra.Command, name string) error {
	ctx := cmd.Context()
	groups := sqliteadapter.NewGroupRepo(db)

	site, err := application.NewGroupService(groups, logger).LocalSite(ctx, groupLocalSite)
	if err != nil {
		return err
	}

	displayName := groupDisplayName
	if displayName == "" {
		displayName = name
	}

	group := model.Group{
		Name:        name,
		DisplayName: displayName,
		Visible:     !groupInvisible,
		InviteOnly:  groupInviteOnly,
	}
	if site != nil {
		group.LocalSiteID = &site.ID
		group.LocalSite = site.Name
	}

	created, err := groups.Create(ctx, group)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "created group %s (id %d)\n", created.Name, created.ID)
	return nil
}
