package commands

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/supportops/triage-gateway/internal/triage"
)

// evalCase is one golden classification case, one JSON object per line
type evalCase struct {
	Text     string `json:"text"`
	Category string `json:"category"`
	Urgency  string `json:"urgency,omitempty"`
}

var evalCmd = &cobra.Command{
	Use:   "eval <cases.jsonl>",
	Short: "Score the rule engine against golden classification cases",
	Long: `Reads JSONL golden cases ({"text": ..., "category": ..., "urgency": ...})
and reports per-category accuracy of the local rule-based triager.`,
	Args: cobra.ExactArgs(1),
	RunE: runEval,
}

func init() {
	rootCmd.AddCommand(evalCmd)
}

func runEval(cmd *cobra.Command, args []string) error {
	file, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open cases file: %w", err)
	}
	defer file.Close()

	triager := triage.NewRulesTriager()

	var total, categoryHits, urgencyHits, urgencyTotal int
	perCategory := make(map[string][2]int) // hits, total

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var c evalCase
		if err := json.Unmarshal(line, &c); err != nil {
			return fmt.Errorf("malformed case on line %d: %w", total+1, err)
		}

		result, err := triager.Triage(context.Background(), c.Text, "")
		if err != nil {
			return fmt.Errorf("classification failed: %w", err)
		}

		total++
		counts := perCategory[c.Category]
		counts[1]++
		if string(result.Classification.Category) == c.Category {
			categoryHits++
			counts[0]++
		}
		perCategory[c.Category] = counts

		if c.Urgency != "" {
			urgencyTotal++
			if string(result.Classification.Urgency) == c.Urgency {
				urgencyHits++
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read cases file: %w", err)
	}
	if total == 0 {
		return fmt.Errorf("no cases found in %s", args[0])
	}

	if outputJSON {
		report := map[string]any{
			"cases":             total,
			"category_accuracy": float64(categoryHits) / float64(total),
		}
		if urgencyTotal > 0 {
			report["urgency_accuracy"] = float64(urgencyHits) / float64(urgencyTotal)
		}
		return json.NewEncoder(os.Stdout).Encode(report)
	}

	fmt.Printf("Cases:             %d\n", total)
	fmt.Printf("Category accuracy: %.1f%% (%d/%d)\n", 100*float64(categoryHits)/float64(total), categoryHits, total)
	if urgencyTotal > 0 {
		fmt.Printf("Urgency accuracy:  %.1f%% (%d/%d)\n", 100*float64(urgencyHits)/float64(urgencyTotal), urgencyHits, urgencyTotal)
	}
	fmt.Println("\nPer category:")
	for category, counts := range perCategory {
		fmt.Printf("  %-18s %d/%d\n", category, counts[0], counts[1])
	}
	return nil
}
