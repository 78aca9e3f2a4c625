package main

import (
	"errors"
	"fmt"
	"os"

	"cellarbook/frontend/login"
	"cellarbook/infrastructure/rbac"

	"github.com/spf13/cobra"
)

const adminPasswordEnv = "CELLARBOOK_ADMIN_PASSWORD"

func newSeedAdminCmd(opts *rootOptions) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Create the admin user or reset its password",
		Long: `Create an admin user, or reset the password and role of an existing one.

The password is read from --password or $` + adminPasswordEnv + ` and must
satisfy the password policy.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				password = os.Getenv(adminPasswordEnv)
			}
			if password == "" {
				return errors.New("a password is required (--password or $" + adminPasswordEnv + ")")
			}
			_, db, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			if err := login.UpsertUserPasswordHash(cmd.Context(), db, username, rbac.RoleAdmin, password); err != nil {
				return fmt.Errorf("seed admin: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded admin user (username=%s)\n", username)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "admin", "admin username")
	cmd.Flags().StringVar(&password, "password", "", "admin password")
	return cmd
}
