package guard

import (
	"errors"
	"fmt"
	"strings"

	"github.com/supportops/triage-gateway/pkg/config"
)

// ErrInputRejected marks user-caused guard failures. Callers surface the
// wrapped reason as a client error; no state mutation happens before the
// guard passes.
var ErrInputRejected = errors.New("input rejected")

// InputGuard validates inbound text before any processing
type InputGuard struct {
	maxLength  int
	signatures []string
}

// NewInputGuard builds the input guard from configuration. Signatures are
// matched lower-cased; the list is policy, the matching is not.
func NewInputGuard(cfg *config.GuardConfig) *InputGuard {
	signatures := make([]string, 0, len(cfg.InjectionSignatures))
	for _, sig := range cfg.InjectionSignatures {
		if s := strings.ToLower(strings.TrimSpace(sig)); s != "" {
			signatures = append(signatures, s)
		}
	}
	return &InputGuard{
		maxLength:  cfg.MaxInputLength,
		signatures: signatures,
	}
}

// Check returns ErrInputRejected when the text exceeds the length cap or
// contains a prompt-injection signature. Substring matching is deliberately
// blunt; tune the signature table, not this logic.
func (g *InputGuard) Check(text string) error {
	if len(text) > g.maxLength {
		return fmt.Errorf("%w: input exceeds max length (%d)", ErrInputRejected, g.maxLength)
	}

	lowered := strings.ToLower(text)
	for _, sig := range g.signatures {
		if strings.Contains(lowered, sig) {
			return fmt.Errorf("%w: injection signature matched", ErrInputRejected)
		}
	}
	return nil
}
