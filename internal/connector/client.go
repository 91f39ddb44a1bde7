// Package connector posts activities to the channel service REST API.
package connector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/ziadkadry99/echo-agent/internal/activity"
)

// ResourceResponse is returned by the channel service for a created activity.
type ResourceResponse struct {
	ID string `json:"id"`
}

// APIError is a non-2xx response from the channel service.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("channel service returned %d: %s", e.StatusCode, e.Body)
}

// Client talks to one channel service endpoint.
type Client struct {
	serviceURL string
	httpClient *http.Client
}

// NewClient creates a Client for serviceURL. httpClient is expected to add
// authorization to outgoing requests.
func NewClient(serviceURL string, httpClient *http.Client) *Client {
	return &Client{
		serviceURL: strings.TrimRight(serviceURL, "/"),
		httpClient: httpClient,
	}
}

// ReplyToActivity posts a as a reply to activityID in the conversation.
func (c *Client) ReplyToActivity(ctx context.Context, conversationID, activityID string, a *activity.Activity) (*ResourceResponse, error) {
	path := "/v3/conversations/" + url.PathEscape(conversationID) + "/activities/" + url.PathEscape(activityID)
	return c.post(ctx, path, a)
}

// SendToConversation posts a to the end of the conversation.
func (c *Client) SendToConversation(ctx context.Context, conversationID string, a *activity.Activity) (*ResourceResponse, error) {
	path := "/v3/conversations/" + url.PathEscape(conversationID) + "/activities"
	return c.post(ctx, path, a)
}

// Send replies when a carries a replyToId and appends to the conversation
// otherwise. It returns the id assigned by the channel service.
func (c *Client) Send(ctx context.Context, a *activity.Activity) (string, error) {
	var (
		resp *ResourceResponse
		err  error
	)
	if a.ReplyToID != "" {
		resp, err = c.ReplyToActivity(ctx, a.Conversation.ID, a.ReplyToID, a)
	} else {
		resp, err = c.SendToConversation(ctx, a.Conversation.ID, a)
	}
	if err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (c *Client) post(ctx context.Context, path string, a *activity.Activity) (*ResourceResponse, error) {
	body, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshalling activity: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.serviceURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("posting activity: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	var rr ResourceResponse
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, &rr); err != nil {
			return nil, fmt.Errorf("decoding resource response: %w", err)
		}
	}
	return &rr, nil
}
