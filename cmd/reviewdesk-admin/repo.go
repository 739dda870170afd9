package main

import (
	"fmt"

	"github.com/spf13/cobra"

	sqliteadapter "github.com/ericfisherdev/reviewdesk/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/reviewdesk/internal/application"
	"github.com/ericfisherdev/reviewdesk/internal/domain/model"
)

var (
	repoTool        string
	repoBugTracker  string
	repoHostingRepo string
	repoLocalSite   string
)

var repoCmd = &cobra.Command{
	Use:   "repo",
	Short: "Manage repositories",
}

var repoAddCmd = &cobra.Command{
	Use:   "add <name> <path>",
	Short: "Register a repository",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return repoAddRun(cmd, args[0], args[1])
	},
}

var repoListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List repositories",
	RunE: func(cmd *cobra.Command, args []string) error {
		return repoListRun(cmd)
	},
}

func init() {
	repoAddCmd.Flags().StringVar(&repoTool, "tool", "git", "Version control tool")
	repoAddCmd.Flags().StringVar(&repoBugTracker, "bug-tracker", "", "Bug URL template with a single %s for the bug id")
	repoAddCmd.Flags().StringVar(&repoHostingRepo, "github", "", "owner/name on GitHub, used to check pending changesets")
	repoAddCmd.Flags().StringVar(&repoLocalSite, "local-site", "", "Local site the repository belongs to")

	repoCmd.AddCommand(repoAddCmd, repoListCmd)
}

func repoAddRun(cmd *cobra.Command, name, path string) error {
	ctx := cmd.Context()

	site, err := application.NewGroupService(sqliteadapter.NewGroupRepo(db), logger).LocalSite(ctx, repoLocalSite)
	if err != nil {
		return err
	}

	repo := model.Repository{
		Name:        name,
		Path:        path,
		Tool:        repoTool,
		BugTracker:  repoBugTracker,
		HostingRepo: repoHostingRepo,
	}
	if site != nil {
		repo.LocalSiteID = &site.ID
	}

	created, err := sqliteadapter.NewRepositoryRepo(db).Create(ctx, repo)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "added repository %s (id %d)\n", created.Name, created.ID)
	return nil
}

func repoListRun(cmd *cobra.Command) error {
	repos, err := sqliteadapter.NewRepositoryRepo(db).ListAll(cmd.Context())
	if err != nil {
		return err
	}

	for _, r := range repos {
		fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\t%s\n", r.ID, r.Name, r.Tool, r.Path)
	}
	return nil
}
