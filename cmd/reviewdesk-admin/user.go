package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/reviewdesk/internal/adapter/driven/auth"
	sqliteadapter "github.com/ericfisherdev/reviewdesk/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/reviewdesk/internal/application"
	"github.com/ericfisherdev/reviewdesk/internal/domain/model"
)

var (
	userPassword  string
	userEmail     string
	userFirstName string
	userLastName  string
	userStaff     bool
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage user accounts",
}

var userCreateCmd = &cobra.Command{
	Use:   "create <username>",
	Short: "Create a user account",
	Long:  "Create a user account. Without --password the account cannot log in through the builtin backend.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return userCreateRun(cmd, args[0])
	},
}

var userSetPasswordCmd = &cobra.Command{
	Use:   "set-password <username>",
	Short: "Set a user's password",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return userSetPasswordRun(cmd, args[0])
	},
}

func init() {
	userCreateCmd.Flags().StringVar(&userPassword, "password", "", "Initial password")
	userCreateCmd.Flags().StringVar(&userEmail, "email", "", "E-mail address")
	userCreateCmd.Flags().StringVar(&userFirstName, "first-name", "", "First name")
	userCreateCmd.Flags().StringVar(&userLastName, "last-name", "", "Last name")
	userCreateCmd.Flags().BoolVar(&userStaff, "staff", false, "Grant staff privileges")

	userSetPasswordCmd.Flags().StringVar(&userPassword, "password", "", "New password")
	_ = userSetPasswordCmd.MarkFlagRequired("password")

	userCmd.AddCommand(userCreateCmd, userSetPasswordCmd)
}

func userCreateRun(cmd *cobra.Command, username string) error {
	ctx := cmd.Context()

	user := model.User{
		Username:  username,
		FirstName: userFirstName,
		LastName:  userLastName,
		Email:     userEmail,
		IsActive:  true,
		IsStaff:   userStaff,
	}
	if userPassword != "" {
		hash, err := auth.HashPassword(userPassword)
		if err != nil {
			return err
		}
		user.PasswordHash = hash
	}

	users := sqliteadapter.NewUserRepo(db)
	created, err := users.Create(ctx, user)
	if err != nil {
		return err
	}

	signals := application.NewSignalProcessor(sqliteadapter.NewSiteConfigRepo(db), sqliteadapter.NewGroupRepo(db), sqliteadapter.NewSearchIndex(db), logger)
	signals.UserSaved(ctx, created)

	fmt.Fprintf(cmd.OutOrStdout(), "created user %s (id %d)\n", created.Username, created.ID)
	return nil
}

func userSetPasswordRun(cmd *cobra.Command, username string) error {
	ctx := cmd.Context()
	users := sqliteadapter.NewUserRepo(db)

	user, err := users.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	if user == nil {
		return errors.New("no such user: " + username)
	}

	user.PasswordHash, err = auth.HashPassword(userPassword)
	if err != nil {
		return err
	}
	if err := users.Update(ctx, *user); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "password updated for %s\n", username)
	return nil
}
