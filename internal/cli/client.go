// Package cli holds the API client used by the operator CLI.
package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/supportops/triage-gateway/internal/models"
)

type Client struct {
	baseURL       string
	approveSecret string
	httpClient    *http.Client
}

func NewClient(baseURL, approveSecret string) *Client {
	return &Client{
		baseURL:       baseURL,
		approveSecret: approveSecret,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) doRequest(method, path string, body interface{}) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.approveSecret != "" {
		req.Header.Set("X-Approve-Secret", c.approveSecret)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}

	return resp, nil
}

// GetPending retrieves a pending decision without consuming it
func (c *Client) GetPending(id string) (*models.PendingDecision, error) {
	resp, err := c.doRequest("GET", "/pending/"+id, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("failed to get pending decision: %s (status: %d)", string(body), resp.StatusCode)
	}

	var decision models.PendingDecision
	if err := json.NewDecoder(resp.Body).Decode(&decision); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &decision, nil
}

// Approve resolves a pending decision
func (c *Client) Approve(id, reviewer string, approved bool) (*models.ApproveResponse, error) {
	req := &models.ApproveRequest{
		PendingID: id,
		Approved:  &approved,
		Reviewer:  reviewer,
	}

	resp, err := c.doRequest("POST", "/approve", req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("failed to resolve pending decision: %s (status: %d)", string(body), resp.StatusCode)
	}

	var result models.ApproveResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &result, nil
}

// SendWebhook submits a support request to the gateway
func (c *Client) SendWebhook(req *models.WebhookRequest) (*models.WebhookResponse, error) {
	resp, err := c.doRequest("POST", "/webhook", req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("webhook rejected: %s (status: %d)", string(body), resp.StatusCode)
	}

	var result models.WebhookResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &result, nil
}

// HealthCheck checks if the API is healthy
func (c *Client) HealthCheck() error {
	resp, err := c.doRequest("GET", "/health", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API is not healthy (status: %d)", resp.StatusCode)
	}

	return nil
}
