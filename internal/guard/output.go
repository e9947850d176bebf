package guard

import (
	"errors"
	"net/url"
	"regexp"
	"strings"

	"github.com/supportops/triage-gateway/internal/models"
	"github.com/supportops/triage-gateway/pkg/config"
)

// ErrOutputBlocked marks drafts the output guard refused to release. The
// reason must stay internal; callers return a generic error upstream.
var ErrOutputBlocked = errors.New("output blocked")

// ToolFlagForHuman is the mandatory-human-review tool substituted when
// classification confidence is below the safety floor
const ToolFlagForHuman = "flag_for_human"

// confidenceFloor is the fixed threshold below which the guard forces
// human review regardless of the proposer's own thresholds
const confidenceFloor = 0.5

var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`sk-ant-[a-zA-Z0-9\-]{20,}`),
	regexp.MustCompile(`lin_api_[a-zA-Z0-9]{20,}`),
	regexp.MustCompile(`Bearer\s+[a-zA-Z0-9+/=]{20,}`),
}

var urlPattern = regexp.MustCompile(`https?://[^\s'"<>]+`)

// Result is the outcome of an output guard scan. ActionOverride, when set,
// must be substituted for the scanned action by the caller; the original
// action value is never modified so components holding it keep a stable
// record of what was originally proposed.
type Result struct {
	Blocked        bool
	RedactedDraft  string
	Reason         string
	ActionOverride *models.ProposedAction
}

// OutputGuard scans drafted replies for secrets, disallowed URLs and
// low-confidence classifications
type OutputGuard struct {
	enabled      bool
	allowedHosts map[string]struct{}
	urlBehavior  string
}

// NewOutputGuard builds the output guard from configuration
func NewOutputGuard(cfg *config.GuardConfig) *OutputGuard {
	allowed := make(map[string]struct{}, len(cfg.URLAllowlist))
	for _, host := range cfg.URLAllowlist {
		allowed[strings.ToLower(host)] = struct{}{}
	}
	return &OutputGuard{
		enabled:      cfg.OutputGuardEnabled,
		allowedHosts: allowed,
		urlBehavior:  cfg.URLBehavior,
	}
}

// Scan checks a draft reply against the output policy.
//
// A secret-token match blocks the response entirely: a credential cannot be
// partially disclosed, so there is no redaction path for secrets. URLs with
// hosts off the allowlist are stripped or cause a block depending on the
// configured behavior. A confidence below the floor yields an override
// action pointing at the human-review tool.
func (g *OutputGuard) Scan(draft string, confidence float64, action models.ProposedAction) Result {
	if !g.enabled {
		return Result{RedactedDraft: draft}
	}

	for _, pattern := range secretPatterns {
		if pattern.MatchString(draft) {
			return Result{Blocked: true, RedactedDraft: "", Reason: "secret pattern matched"}
		}
	}

	redacted := draft
	for _, raw := range urlPattern.FindAllString(draft, -1) {
		host := hostOf(raw)
		if _, ok := g.allowedHosts[host]; ok {
			continue
		}
		if g.urlBehavior == "reject" {
			return Result{Blocked: true, RedactedDraft: "", Reason: "disallowed url"}
		}
		redacted = strings.TrimSpace(strings.ReplaceAll(redacted, raw, ""))
	}

	result := Result{RedactedDraft: redacted}
	if confidence < confidenceFloor {
		override := action.WithOverride(ToolFlagForHuman, "confidence below safety floor")
		result.ActionOverride = &override
	}
	return result
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
