package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newUsersCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage admin api users",
	}
	cmd.AddCommand(newUsersAddCmd(c), newUsersListCmd(c), newUsersDeleteCmd(c))
	return cmd
}

func newUsersAddCmd(c *cli) *cobra.Command {
	var password, displayName string
	cmd := &cobra.Command{
		Use:   "add USERNAME",
		Short: "Add an admin api user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				return errors.New("a password is required")
			}
			backs, err := c.storage()
			if err != nil {
				return err
			}
			u, err := backs.Users.Create(args[0], password, displayName)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "created user %s\n", u.Username)
			return err
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "the password of the user")
	cmd.Flags().StringVar(&displayName, "display-name", "", "the display name of the user")
	return cmd
}

func newUsersListCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List admin api users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			backs, err := c.storage()
			if err != nil {
				return err
			}
			users, err := backs.Users.List()
			if err != nil {
				return err
			}
			for _, u := range users {
				status := ""
				if u.Disabled {
					status = " (disabled)"
				}
				if _, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s%s\n", u.Username, u.DisplayName, status); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newUsersDeleteCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "delete USERNAME",
		Short: "Delete an admin api user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			backs, err := c.storage()
			if err != nil {
				return err
			}
			if err = backs.Users.Delete(args[0]); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "deleted user %s\n", args[0])
			return err
		},
	}
}
