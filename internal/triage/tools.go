package triage

import (
	"fmt"
	"strings"

	"github.com/supportops/triage-gateway/internal/models"
)

// Tool names exposed to the model
const (
	toolClassifyRequest = "classify_request"
	toolExtractEntities = "extract_entities"
	toolLookupFAQ       = "lookup_faq"
	toolDraftReply      = "draft_reply"
	toolFlagForHuman    = "flag_for_human"
)

// toolSchemas is the structured tool surface offered to the model. The
// payload stays schema-driven rather than hard-typed because this is the
// one genuinely extensible part of the action surface.
func toolSchemas() []toolSchema {
	return []toolSchema{
		{
			Name:        toolClassifyRequest,
			Description: "Classifies support request into category and sets urgency",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"category": map[string]any{
						"type": "string",
						"enum": []string{"bug_report", "billing", "account_access", "cheater_report", "gameplay_question", "other"},
					},
					"urgency": map[string]any{
						"type": "string",
						"enum": []string{"low", "medium", "high", "critical"},
					},
					"confidence": map[string]any{"type": "number", "minimum": 0, "maximum": 1},
				},
				"required": []string{"category", "urgency", "confidence"},
			},
		},
		{
			Name:        toolExtractEntities,
			Description: "Extracts structured entities from the message",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"user_id": map[string]any{"type": "string"},
					"platform": map[string]any{
						"type": "string",
						"enum": []string{"iOS", "Android", "PC", "PS5", "Xbox", "unknown"},
					},
					"game_title":        map[string]any{"type": "string"},
					"transaction_id":    map[string]any{"type": "string"},
					"error_code":        map[string]any{"type": "string"},
					"reported_username": map[string]any{"type": "string"},
					"keywords":          map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				},
			},
		},
		{
			Name:        toolLookupFAQ,
			Description: "Looks up top-3 relevant KB articles by keywords",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"keywords": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				},
				"required": []string{"keywords"},
			},
		},
		{
			Name:        toolDraftReply,
			Description: "Drafts a polite, helpful reply to the user",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"tone": map[string]any{
						"type": "string",
						"enum": []string{"empathetic", "informational", "escalation"},
					},
					"include_faq_links": map[string]any{"type": "boolean"},
					"draft_text":        map[string]any{"type": "string"},
				},
				"required": []string{"tone", "draft_text"},
			},
		},
		{
			Name:        toolFlagForHuman,
			Description: "Flags request for mandatory human review before any action",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"reason":     map[string]any{"type": "string"},
					"risk_level": map[string]any{"type": "string", "enum": []string{"medium", "high", "critical"}},
				},
				"required": []string{"reason", "risk_level"},
			},
		},
	}
}

type toolSchema struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// dispatchTool runs the local handler for one model tool call and returns
// the tool result the model sees. Invalid tool input degrades to defaults
// instead of failing the loop.
func dispatchTool(name string, input map[string]any, userID, kbBaseURL string) map[string]any {
	switch name {
	case toolClassifyRequest:
		c := classificationFromTool(input)
		return map[string]any{
			"category":   string(c.Category),
			"urgency":    string(c.Urgency),
			"confidence": c.Confidence,
		}

	case toolExtractEntities:
		e := extractionFromTool(input, userID)
		return map[string]any{
			"user_id":           e.UserID,
			"platform":          e.Platform,
			"game_title":        e.GameTitle,
			"transaction_id":    e.TransactionID,
			"error_code":        e.ErrorCode,
			"reported_username": e.ReportedUsername,
			"keywords":          e.Keywords,
		}

	case toolLookupFAQ:
		keywords := stringSlice(input["keywords"])
		if len(keywords) > 3 {
			keywords = keywords[:3]
		}
		articles := make([]map[string]any, 0, len(keywords))
		for _, kw := range keywords {
			articles = append(articles, map[string]any{
				"title": fmt.Sprintf("FAQ: %s", kw),
				"url":   fmt.Sprintf("%s/%s", kbBaseURL, kw),
			})
		}
		return map[string]any{"articles": articles}

	case toolDraftReply:
		tone := stringOr(input["tone"], "informational")
		draft := strings.TrimSpace(stringOr(input["draft_text"], ""))
		if draft == "" {
			draft = "Thanks for contacting support. We have logged your request."
		}
		include, _ := input["include_faq_links"].(bool)
		return map[string]any{
			"tone":              tone,
			"include_faq_links": include,
			"draft_text":        draft,
		}

	case toolFlagForHuman:
		reason := stringOr(input["reason"], "manual approval required")
		riskLevel := stringOr(input["risk_level"], "medium")
		switch riskLevel {
		case "medium", "high", "critical":
		default:
			riskLevel = "medium"
		}
		return map[string]any{"reason": reason, "risk_level": riskLevel}
	}

	return map[string]any{"ignored_tool": name}
}

// classificationFromTool validates model-provided classification input,
// falling back to the deterministic default when anything is off
func classificationFromTool(input map[string]any) models.ClassificationResult {
	category := models.Category(stringOr(input["category"], ""))
	urgency := models.Urgency(stringOr(input["urgency"], ""))
	confidence, ok := floatValue(input["confidence"])
	if !category.Valid() || !urgency.Valid() || !ok || confidence < 0 || confidence > 1 {
		return models.DefaultClassification()
	}
	return models.ClassificationResult{
		Category:   category,
		Urgency:    urgency,
		Confidence: confidence,
	}
}

// extractionFromTool merges model-provided entities with the request user
// id and normalizes the error code against the known shapes
func extractionFromTool(input map[string]any, userID string) models.ExtractedFields {
	extracted := models.DefaultExtractedFields(userID)

	if v := stringOr(input["user_id"], ""); v != "" {
		extracted.UserID = v
	}
	if v := stringOr(input["platform"], ""); v != "" {
		extracted.Platform = v
	}
	extracted.GameTitle = stringOr(input["game_title"], "")
	extracted.TransactionID = stringOr(input["transaction_id"], "")
	extracted.ReportedUsername = stringOr(input["reported_username"], "")
	extracted.Keywords = stringSlice(input["keywords"])
	if extracted.Keywords == nil {
		extracted.Keywords = []string{}
	}

	if raw := strings.TrimSpace(stringOr(input["error_code"], "")); raw != "" {
		extracted.ErrorCode = errorCodePattern.FindString(raw)
	}

	return extracted
}

func stringOr(v any, fallback string) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return fallback
}

func stringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func floatValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}
