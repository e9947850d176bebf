package triage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supportops/triage-gateway/internal/models"
)

func TestRulesTriagerClassification(t *testing.T) {
	triager := NewRulesTriager()

	cases := []struct {
		name     string
		text     string
		category models.Category
		urgency  models.Urgency
	}{
		{
			name:     "billing refund",
			text:     "I was charged twice and want a refund for this purchase",
			category: models.CategoryBilling,
			urgency:  models.UrgencyMedium,
		},
		{
			name:     "account lockout high urgency",
			text:     "I can't access my account, it says wrong password, urgent",
			category: models.CategoryAccountAccess,
			urgency:  models.UrgencyHigh,
		},
		{
			name:     "hacked account critical",
			text:     "my account was hacked and my password changed",
			category: models.CategoryAccountAccess,
			urgency:  models.UrgencyCritical,
		},
		{
			name:     "cheater report",
			text:     "there is a cheater using aimbot in ranked",
			category: models.CategoryCheaterReport,
			urgency:  models.UrgencyMedium,
		},
		{
			name:     "bug report",
			text:     "the game crashes on startup, total freeze",
			category: models.CategoryBugReport,
			urgency:  models.UrgencyMedium,
		},
		{
			name:     "gameplay question",
			text:     "how do i unlock the second quest line",
			category: models.CategoryGameplay,
			urgency:  models.UrgencyMedium,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := triager.Triage(context.Background(), tc.text, "")
			require.NoError(t, err)
			assert.Equal(t, tc.category, result.Classification.Category)
			assert.Equal(t, tc.urgency, result.Classification.Urgency)
			assert.Greater(t, result.Classification.Confidence, 0.0)
		})
	}
}

func TestRulesTriagerNoSignalReturnsDefaults(t *testing.T) {
	triager := NewRulesTriager()

	result, err := triager.Triage(context.Background(), "hello there", "user-9")
	require.NoError(t, err)

	assert.Equal(t, models.CategoryOther, result.Classification.Category)
	assert.Equal(t, models.UrgencyLow, result.Classification.Urgency)
	assert.Equal(t, 0.0, result.Classification.Confidence)
	assert.Equal(t, "user-9", result.Extracted.UserID)
	assert.Equal(t, "unknown", result.Extracted.Platform)
	assert.Empty(t, result.Extracted.Keywords)
}

func TestRulesTriagerConfidenceScalesWithHits(t *testing.T) {
	triager := NewRulesTriager()

	one, err := triager.Triage(context.Background(), "I want a refund", "")
	require.NoError(t, err)
	many, err := triager.Triage(context.Background(), "refund for a payment I was charged on my invoice", "")
	require.NoError(t, err)

	assert.Equal(t, 0.6, one.Classification.Confidence)
	assert.Greater(t, many.Classification.Confidence, one.Classification.Confidence)
	assert.LessOrEqual(t, many.Classification.Confidence, 0.9)
}

func TestRulesTriagerExtraction(t *testing.T) {
	triager := NewRulesTriager()

	result, err := triager.Triage(context.Background(),
		"Refund please, txn-9931 failed with ERR-4102 on my iPhone, reported by @GrieferX",
		"user-123",
	)
	require.NoError(t, err)

	assert.Equal(t, "user-123", result.Extracted.UserID)
	assert.Equal(t, "txn-9931", result.Extracted.TransactionID)
	assert.Equal(t, "ERR-4102", result.Extracted.ErrorCode)
	assert.Equal(t, "GrieferX", result.Extracted.ReportedUsername)
	assert.Equal(t, "iOS", result.Extracted.Platform)
	assert.Contains(t, result.Extracted.Keywords, "refund")
}

func TestRulesTriagerPlatformWordBoundary(t *testing.T) {
	triager := NewRulesTriager()

	result, err := triager.Triage(context.Background(), "my topcoat skin is missing", "")
	require.NoError(t, err)
	assert.Equal(t, "unknown", result.Extracted.Platform)

	result, err = triager.Triage(context.Background(), "the game is broken on pc since the patch", "")
	require.NoError(t, err)
	assert.Equal(t, "PC", result.Extracted.Platform)
}
