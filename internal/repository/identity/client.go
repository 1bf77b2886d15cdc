package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client calls the upstream identity provider's session verification endpoint.
// The provider's login flow and session issuance are opaque to this service;
// all we ask is whether a claimed (session, user) pair is currently valid.
type Client struct {
	verifyURL  string
	httpClient *http.Client
}

func NewClient(verifyURL string) *Client {
	return &Client{
		verifyURL: verifyURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type verifyRequest struct {
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId"`
}

type verifyResponse struct {
	Valid bool `json:"valid"`
}

// VerifySession reports whether sessionID denotes an active upstream session
// belonging to userID. A 401/403 from the provider is a clean "no", not an
// error; anything else unexpected is a transport/internal failure.
func (c *Client) VerifySession(ctx context.Context, sessionID, userID string) (bool, error) {
	payload, err := json.Marshal(verifyRequest{SessionID: sessionID, UserID: userID})
	if err != nil {
		return false, fmt.Errorf("failed to encode verify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.verifyURL, bytes.NewReader(payload))
	if err != nil {
		return false, fmt.Errorf("failed to build verify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("identity provider unreachable: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return false, nil
	case resp.StatusCode != http.StatusOK:
		return false, fmt.Errorf("identity provider returned status %d", resp.StatusCode)
	}

	var out verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, fmt.Errorf("failed to decode verify response: %w", err)
	}

	return out.Valid, nil
}
