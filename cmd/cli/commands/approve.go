package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/supportops/triage-gateway/internal/cli"
)

var (
	approveReviewer string
	approveReject   bool
)

var approveCmd = &cobra.Command{
	Use:   "approve <pending-id>",
	Short: "Resolve a pending decision",
	Long: `Approves a pending decision, executing its deferred action on behalf of
the original requester, or rejects it with --reject.`,
	Args: cobra.ExactArgs(1),
	RunE: runApprove,
}

func init() {
	approveCmd.Flags().StringVar(&approveReviewer, "reviewer", "", "Reviewer identity recorded in the audit trail")
	approveCmd.Flags().BoolVar(&approveReject, "reject", false, "Reject instead of approving")
	rootCmd.AddCommand(approveCmd)
}

func runApprove(cmd *cobra.Command, args []string) error {
	client := cli.NewClient(viper.GetString("api.url"), viper.GetString("api.approve_secret"))

	result, err := client.Approve(args[0], approveReviewer, !approveReject)
	if err != nil {
		return err
	}

	if outputJSON {
		return json.NewEncoder(os.Stdout).Encode(result)
	}

	fmt.Printf("Status:  %s\n", result.Status)
	fmt.Printf("Pending: %s\n", result.PendingID)
	if result.Result != nil {
		pretty, _ := json.MarshalIndent(result.Result, "", "  ")
		fmt.Printf("Result:\n%s\n", pretty)
	}
	return nil
}
