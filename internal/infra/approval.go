package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// ApprovalClient delegates reopen-authorization checks to the external
// approval policy service. The token stays opaque to this backend — the
// policy service owns its meaning.
type ApprovalClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewApprovalClient(baseURL string) *ApprovalClient {
	return &ApprovalClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type approvalRequest struct {
	Token  string `json:"token"`
	Action string `json:"action"`
}

type approvalResponse struct {
	Approved bool   `json:"approved"`
	Reason   string `json:"reason"`
}

// Authorize asks the policy service whether the supplied token permits the
// session reopen. Satisfies service.ReopenAuthorizer.
func (c *ApprovalClient) Authorize(ctx context.Context, token string) error {
	body, err := json.Marshal(approvalRequest{Token: token, Action: "session_reopen"})
	if err != nil {
		return fmt.Errorf("approval: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/authorize", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("approval: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("approval: service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("approval: service returned %d", resp.StatusCode)
	}

	var result approvalResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("approval: decode response: %w", err)
	}
	if !result.Approved {
		return fmt.Errorf("approval: denied: %s", result.Reason)
	}
	return nil
}
