package triage

import (
	"context"
	"regexp"
	"strings"

	"github.com/supportops/triage-gateway/internal/models"
)

var (
	transactionPattern = regexp.MustCompile(`(?i)\b(?:txn|transaction)[-_ ]?([A-Za-z0-9]{4,})\b`)
	errorCodePattern   = regexp.MustCompile(`(?i)\b(?:ERR[-_ ]?\d{3,}|E[-_]\d{4,})\b`)
	usernamePattern    = regexp.MustCompile(`@([A-Za-z0-9_]{3,32})`)
)

// categoryKeywords drives rule-based classification. First category whose
// keywords score highest wins; ties resolve in this declaration order.
var categoryKeywords = []struct {
	category models.Category
	words    []string
}{
	{models.CategoryBilling, []string{"refund", "charged", "charge", "payment", "purchase", "billing", "invoice", "transaction", "double-charged"}},
	{models.CategoryAccountAccess, []string{"locked", "log in", "login", "password", "account access", "2fa", "sign in", "recover my account"}},
	{models.CategoryCheaterReport, []string{"cheater", "cheating", "hacker", "aimbot", "wallhack", "exploiting", "speedhack"}},
	{models.CategoryBugReport, []string{"bug", "crash", "crashes", "broken", "freeze", "glitch", "error code"}},
	{models.CategoryGameplay, []string{"how do i", "how to", "quest", "unlock", "strategy", "tutorial"}},
}

var platformKeywords = []struct {
	platform string
	words    []string
}{
	{"iOS", []string{"ios", "iphone", "ipad"}},
	{"Android", []string{"android"}},
	{"PS5", []string{"ps5", "playstation"}},
	{"Xbox", []string{"xbox"}},
	{"PC", []string{"pc", "windows", "steam"}},
}

// RulesTriager is the deterministic keyword matcher. It is the eval
// baseline and the default provider: same contract as the LLM loop, zero
// cost, stable output for identical input.
type RulesTriager struct{}

// NewRulesTriager creates the rule-based triager
func NewRulesTriager() *RulesTriager {
	return &RulesTriager{}
}

// Triage classifies and extracts using keyword tables and fixed patterns
func (t *RulesTriager) Triage(_ context.Context, text, userID string) (*models.TriageResult, error) {
	lowered := strings.ToLower(text)

	classification := classify(lowered)
	extracted := extract(text, lowered, userID)

	return &models.TriageResult{
		Classification: classification,
		Extracted:      extracted,
	}, nil
}

func classify(lowered string) models.ClassificationResult {
	best := models.DefaultClassification()
	bestHits := 0

	for _, entry := range categoryKeywords {
		hits := 0
		for _, word := range entry.words {
			if strings.Contains(lowered, word) {
				hits++
			}
		}
		if hits > bestHits {
			bestHits = hits
			best.Category = entry.category
		}
	}

	if bestHits == 0 {
		return best
	}

	// One keyword is a weak signal; each additional distinct hit raises
	// confidence up to a cap below certainty.
	best.Confidence = 0.6 + 0.1*float64(bestHits-1)
	if best.Confidence > 0.9 {
		best.Confidence = 0.9
	}
	best.Urgency = urgencyOf(lowered, best.Category)
	return best
}

func urgencyOf(lowered string, category models.Category) models.Urgency {
	for _, word := range []string{"hacked", "stolen", "unauthorized", "compromised"} {
		if strings.Contains(lowered, word) {
			return models.UrgencyCritical
		}
	}
	for _, word := range []string{"urgent", "immediately", "asap", "can't access", "cannot access"} {
		if strings.Contains(lowered, word) {
			return models.UrgencyHigh
		}
	}
	if category == models.CategoryOther {
		return models.UrgencyLow
	}
	return models.UrgencyMedium
}

func extract(text, lowered, userID string) models.ExtractedFields {
	extracted := models.DefaultExtractedFields(userID)

	for _, entry := range platformKeywords {
		for _, word := range entry.words {
			if containsWord(lowered, word) {
				extracted.Platform = entry.platform
				break
			}
		}
		if extracted.Platform != "unknown" {
			break
		}
	}

	if m := transactionPattern.FindString(text); m != "" {
		extracted.TransactionID = m
	}
	if m := errorCodePattern.FindString(text); m != "" {
		extracted.ErrorCode = m
	}
	if m := usernamePattern.FindStringSubmatch(text); m != nil {
		extracted.ReportedUsername = m[1]
	}

	for _, entry := range categoryKeywords {
		for _, word := range entry.words {
			if strings.Contains(lowered, word) {
				extracted.Keywords = append(extracted.Keywords, word)
			}
		}
	}

	return extracted
}

// containsWord matches a keyword on word boundaries so that "pc" does not
// fire inside words like "topcoat"
func containsWord(lowered, word string) bool {
	idx := 0
	for {
		i := strings.Index(lowered[idx:], word)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(word)
		beforeOK := start == 0 || !isAlnum(lowered[start-1])
		afterOK := end == len(lowered) || !isAlnum(lowered[end])
		if beforeOK && afterOK {
			return true
		}
		idx = end
	}
}

func isAlnum(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9')
}
