package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/supportops/triage-gateway/internal/cli"
)

var pendingCmd = &cobra.Command{
	Use:   "pending <pending-id>",
	Short: "Inspect a pending decision without resolving it",
	Args:  cobra.ExactArgs(1),
	RunE:  runPending,
}

func init() {
	rootCmd.AddCommand(pendingCmd)
}

func runPending(cmd *cobra.Command, args []string) error {
	client := cli.NewClient(viper.GetString("api.url"), viper.GetString("api.approve_secret"))

	decision, err := client.GetPending(args[0])
	if err != nil {
		return err
	}

	if outputJSON {
		return json.NewEncoder(os.Stdout).Encode(decision)
	}

	fmt.Printf("Pending:  %s\n", decision.PendingID)
	fmt.Printf("Reason:   %s\n", decision.Reason)
	fmt.Printf("Action:   %s\n", decision.Action.Tool)
	fmt.Printf("Expires:  %s\n", decision.ExpiresAt.Format(time.RFC3339))
	fmt.Printf("Draft:    %s\n", decision.DraftResponse)
	return nil
}
