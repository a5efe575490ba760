package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"eventory/api/internal/repository"
	jwtpkg "eventory/api/pkg/jwt"
)

// newTokenCommand issues an access token for an existing user, for operators
// and local testing.
func newTokenCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "token <user-id>",
		Short: "Print an access token for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || userID <= 0 {
				return fmt.Errorf("invalid user id %q", args[0])
			}

			db, err := opts.openDB()
			if err != nil {
				return err
			}
			if _, err := repository.NewPGStore(db).Users().GetByID(cmd.Context(), userID); err != nil {
				return fmt.Errorf("find user %d: %w", userID, err)
			}

			cfg := opts.cfg.JWT
			manager := jwtpkg.NewManager(cfg.SigningKey, cfg.Issuer, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
			token, err := manager.GenerateAccessToken(userID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
}
