// Package integrations holds the outbound collaborator clients. Each
// client owns its HTTP error mapping so upstream status codes never leak
// past this package.
package integrations

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/supportops/triage-gateway/pkg/logger"
)

// ErrUnavailable indicates the upstream rejected the call for load
// reasons and the operation may succeed later
var ErrUnavailable = errors.New("upstream service unavailable")

const defaultLinearEndpoint = "https://api.linear.app/graphql"

// TicketResult is the normalized outcome of a ticket creation
type TicketResult struct {
	TicketID string `json:"ticket_id"`
	URL      string `json:"url"`
	Status   string `json:"status"`
}

// LinearClient creates issues through the Linear GraphQL API
type LinearClient struct {
	endpoint string
	apiKey   string
	teamID   string
	client   *http.Client
	logger   *logger.Logger
}

// NewLinearClient creates a ticketing client. An empty endpoint selects
// the production API.
func NewLinearClient(endpoint, apiKey, teamID string, log *logger.Logger) *LinearClient {
	if endpoint == "" {
		endpoint = defaultLinearEndpoint
	}
	return &LinearClient{
		endpoint: endpoint,
		apiKey:   apiKey,
		teamID:   teamID,
		client:   &http.Client{Timeout: 15 * time.Second},
		logger:   log,
	}
}

const issueCreateMutation = `mutation IssueCreate($input: IssueCreateInput!) {
  issueCreate(input: $input) {
    success
    issue { id identifier url }
  }
}`

type linearResponse struct {
	Data struct {
		IssueCreate struct {
			Success bool `json:"success"`
			Issue   struct {
				ID         string `json:"id"`
				Identifier string `json:"identifier"`
				URL        string `json:"url"`
			} `json:"issue"`
		} `json:"issueCreate"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// CreateTicket creates a Linear issue and returns the normalized ticket.
// A 429 maps to ErrUnavailable; any other non-2xx status is a generic
// internal failure with the upstream detail logged, never returned.
func (c *LinearClient) CreateTicket(ctx context.Context, title, description string) (*TicketResult, error) {
	body, err := json.Marshal(map[string]any{
		"query": issueCreateMutation,
		"variables": map[string]any{
			"input": map[string]any{
				"teamId":      c.teamID,
				"title":       title,
				"description": description,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode ticket request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build ticket request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ticket request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("%w: ticketing rate limited", ErrUnavailable)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("ticket creation rejected",
			logger.Int("status", resp.StatusCode),
		)
		return nil, errors.New("ticket creation failed")
	}

	var parsed linearResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode ticket response: %w", err)
	}
	if len(parsed.Errors) > 0 || !parsed.Data.IssueCreate.Success {
		c.logger.Error("ticket creation returned errors",
			logger.Any("errors", parsed.Errors),
		)
		return nil, errors.New("ticket creation failed")
	}

	issue := parsed.Data.IssueCreate.Issue
	ticketID := issue.Identifier
	if ticketID == "" {
		ticketID = issue.ID
	}
	return &TicketResult{
		TicketID: ticketID,
		URL:      issue.URL,
		Status:   "created",
	}, nil
}
