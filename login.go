package main

import (
	"fmt"
	"os"

	"github.com/cloudfinch-harshad/rampart/config"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

const passwordEnv = "RAMPART_PASSWORD"

func newLoginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:         "login",
		Short:       "Log in to the api and keep the session token for later commands",
		Annotations: map[string]string{annotationOutput: "text"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv(passwordEnv)
			}
			if email == "" || password == "" {
				return errors.New("--email and --password (or " + passwordEnv + ") are required")
			}
			c, closeStore, err := newClient(config.Get().Client)
			if err != nil {
				return err
			}
			defer closeStore()
			resp, err := c.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", resp.Data.Email, resp.Data.CompanyName)
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "logout",
		Short:       "End the api session and forget the stored token",
		Annotations: map[string]string{annotationOutput: "text"},
		RunE: func(cmd *cobra.Command, args []string) error {
			c, closeStore, err := newClient(config.Get().Client)
			if err != nil {
				return err
			}
			defer closeStore()
			if err := c.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}
