package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/supportops/triage-gateway/pkg/auth"
)

var (
	tokenReviewer string
	tokenTTL      time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a reviewer token for the approval endpoints",
	Long: `Mints a signed reviewer token accepted by the gateway's approval
endpoints as "Authorization: Bearer <token>". The signing secret must match
the gateway's REVIEWER_JWT_SECRET.`,
	RunE: runToken,
}

var hashSecretCmd = &cobra.Command{
	Use:   "hash-secret <secret>",
	Short: "Hash an approval secret for APPROVE_SECRET_HASH",
	Args:  cobra.ExactArgs(1),
	RunE:  runHashSecret,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenReviewer, "reviewer", "", "Reviewer identity embedded in the token")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", auth.DefaultReviewerTokenTTL, "Token lifetime")
	tokenCmd.MarkFlagRequired("reviewer")
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(hashSecretCmd)
}

func runToken(cmd *cobra.Command, args []string) error {
	secret := viper.GetString("api.reviewer_jwt_secret")
	if secret == "" {
		return fmt.Errorf("reviewer JWT secret not configured (set api.reviewer_jwt_secret in the config file)")
	}

	token, err := auth.IssueReviewerToken(secret, tokenReviewer, tokenTTL)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

func runHashSecret(cmd *cobra.Command, args []string) error {
	hash, err := auth.HashApproveSecret(args[0])
	if err != nil {
		return err
	}
	fmt.Println(hash)
	return nil
}
