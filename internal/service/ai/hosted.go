package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// DefaultHostedReply is used when the hosted API omits its reply field.
const DefaultHostedReply = "Lumi is here for you. Take your time. 💙"

type hostedRequest struct {
	QueryResult struct {
		QueryText string `json:"queryText"`
	} `json:"queryResult"`
	Session string `json:"session"`
}

type hostedResponse struct {
	FulfillmentText *string `json:"fulfillmentText"`
}

// HostedClient calls a dialogflow-style webhook that classifies and replies
// in one round trip.
type HostedClient struct {
	client       *http.Client
	url          string
	session      string
	defaultReply string
}

// NewHostedClient builds a client. When session is empty each call uses the
// caller's session id.
func NewHostedClient(url, session, defaultReply string, httpClient *http.Client) *HostedClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultCompletionTimeout}
	}
	if defaultReply == "" {
		defaultReply = DefaultHostedReply
	}
	return &HostedClient{client: httpClient, url: url, session: session, defaultReply: defaultReply}
}

// Respond implements Responder.
func (c *HostedClient) Respond(ctx context.Context, sessionID, text string) (string, error) {
	var payload hostedRequest
	payload.QueryResult.QueryText = text
	payload.Session = sessionID
	if c.session != "" {
		payload.Session = c.session
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", &TransportError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &TransportError{Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return "", &UpstreamError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var decoded hostedResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", &UpstreamError{StatusCode: resp.StatusCode, Body: "malformed hosted payload"}
	}
	if decoded.FulfillmentText == nil || strings.TrimSpace(*decoded.FulfillmentText) == "" {
		return c.defaultReply, nil
	}
	return strings.TrimSpace(*decoded.FulfillmentText), nil
}
