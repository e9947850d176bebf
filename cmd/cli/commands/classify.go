package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/supportops/triage-gateway/internal/triage"
)

var classifyUserID string

var classifyCmd = &cobra.Command{
	Use:   "classify <text>",
	Short: "Classify a support request with the local rule engine",
	Long: `Runs the deterministic rule-based triager locally, without a running
gateway or any LLM credentials, and prints the classification and the
extracted entities.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runClassify,
}

func init() {
	classifyCmd.Flags().StringVar(&classifyUserID, "user-id", "", "User identifier to merge into the extraction")
	rootCmd.AddCommand(classifyCmd)
}

func runClassify(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")

	triager := triage.NewRulesTriager()
	result, err := triager.Triage(context.Background(), text, classifyUserID)
	if err != nil {
		return fmt.Errorf("classification failed: %w", err)
	}

	if outputJSON {
		return json.NewEncoder(os.Stdout).Encode(result)
	}

	fmt.Printf("Category:   %s\n", result.Classification.Category)
	fmt.Printf("Urgency:    %s\n", result.Classification.Urgency)
	fmt.Printf("Confidence: %.2f\n", result.Classification.Confidence)
	if result.Extracted.TransactionID != "" {
		fmt.Printf("Transaction: %s\n", result.Extracted.TransactionID)
	}
	if result.Extracted.ErrorCode != "" {
		fmt.Printf("Error code:  %s\n", result.Extracted.ErrorCode)
	}
	if result.Extracted.ReportedUsername != "" {
		fmt.Printf("Reported:    @%s\n", result.Extracted.ReportedUsername)
	}
	if result.Extracted.Platform != "unknown" {
		fmt.Printf("Platform:    %s\n", result.Extracted.Platform)
	}
	if len(result.Extracted.Keywords) > 0 {
		fmt.Printf("Keywords:    %s\n", strings.Join(result.Extracted.Keywords, ", "))
	}
	return nil
}
