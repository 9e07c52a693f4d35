package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teemow/gmail-file-downloader/internal/google"
)

func newAuthCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize access to Gmail and store the token",
		Long: `Run the OAuth bootstrap without downloading anything.

A valid stored token is kept, an expired one is refreshed. Without a token, or
with --force, the authorization URL is printed and the verification code is
read from stdin. Run this once interactively before scheduling unattended
downloads.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.resolveConfig(cmd, nil)
			if err != nil {
				return err
			}

			authorizer, err := a.newAuthorizer(cfg)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if !force && google.HasToken(authorizer.TokenPath()) {
				a.logger.Info("found stored token", "token_file", authorizer.TokenPath())
			}
			if force {
				_, err = authorizer.Reauthorize(ctx)
			} else {
				_, err = authorizer.Token(ctx)
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Authorized, token stored in %s\n", authorizer.TokenPath())
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Ignore the stored token and authorize again")
	return cmd
}
