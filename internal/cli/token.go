package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/lazypower/lumine/internal/auth"
)

var (
	tokenUser string
	tokenTTL  time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a bearer token for local development",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Auth.JWTSecret == "" {
			return errors.New("auth.jwt_secret (or JWT_SECRET) must be set to mint tokens")
		}
		ttl := tokenTTL
		if ttl <= 0 {
			ttl = cfg.Auth.TokenTTL
		}
		token, err := auth.IssueToken([]byte(cfg.Auth.JWTSecret), cfg.Auth.Issuer, tokenUser, ttl, time.Now())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUser, "user", "", "user id to put in the token subject")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "token lifetime (default auth.token_ttl)")
	tokenCmd.MarkFlagRequired("user")
}
