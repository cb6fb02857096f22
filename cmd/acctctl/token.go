package main

import (
	"time"

	"github.com/erp/acct/internal/infrastructure/auth"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type tokenOutput struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func newTokenCmd(c *cli) *cobra.Command {
	var (
		in    auth.IssueInput
		perms []string
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed access token",
		Example: `  acctctl token --user ops --perms billing:run,ledger:read
  acctctl token --user admin --perms '*' --ttl 1h`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in.Permissions = perms
			if in.Username == "" {
				in.Username = in.UserID
			}
			token, expiresAt, err := auth.NewJWTService(c.cfg.JWT).Issue(in)
			if err != nil {
				return err
			}
			c.log.Info("Token issued",
				zap.String("user_id", in.UserID),
				zap.Strings("permissions", in.Permissions),
				zap.Time("expires_at", expiresAt),
			)
			return printJSON(cmd.OutOrStdout(), tokenOutput{Token: token, ExpiresAt: expiresAt})
		},
	}
	cmd.Flags().StringVar(&in.UserID, "user", "", "User ID stored in the token subject")
	cmd.Flags().StringVar(&in.Username, "username", "", "Display name (default: the user ID)")
	cmd.Flags().StringSliceVar(&perms, "perms", nil, "Comma separated permissions")
	cmd.Flags().DurationVar(&in.TTL, "ttl", 0, "Token lifetime (default: jwt.access_token_expiration)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
