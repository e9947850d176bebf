package triage

import "github.com/supportops/triage-gateway/internal/models"

// Per-million token prices in USD, used for audit cost accounting.
// Unknown models cost zero rather than failing the pipeline.
var modelPricing = map[string]struct{ in, out float64 }{
	"claude-3-5-sonnet-20241022": {3.0, 15.0},
	"claude-3-5-haiku-20241022":  {0.8, 4.0},
	"claude-3-opus-20240229":     {15.0, 75.0},
	"gpt-4o":                     {2.5, 10.0},
	"gpt-4o-mini":                {0.15, 0.6},
}

// costUSD converts accumulated token usage for a model into dollars
func costUSD(model string, usage models.TokenUsage) float64 {
	price, ok := modelPricing[model]
	if !ok {
		return 0
	}
	return float64(usage.InputTokens)/1e6*price.in + float64(usage.OutputTokens)/1e6*price.out
}
