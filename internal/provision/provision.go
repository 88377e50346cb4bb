// Package provision obtains the short-lived session credential used to
// authenticate the WebRTC signaling exchange.
package provision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Error reports a failed provisioning call: a non-2xx response or a response
// body missing the ephemeral credential.
type Error struct {
	StatusCode int // 0 when the request itself failed
	Reason     string
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("provisioning failed: status %d: %s", e.StatusCode, e.Reason)
	}
	return fmt.Sprintf("provisioning failed: %s", e.Reason)
}

// sessionResponse mirrors the part of the provisioning response the console
// cares about.
type sessionResponse struct {
	ClientSecret struct {
		Value string `json:"value"`
	} `json:"client_secret"`
}

// Provisioner issues a single request to the session endpoint per session.
// No retries, no caching.
type Provisioner struct {
	Endpoint string // sessions URL
	APIKey   string
	Client   *http.Client // nil means http.DefaultClient
}

// Fetch requests an ephemeral credential for the given model and voice
// preset. The credential is returned to the caller and never stored.
func (p *Provisioner) Fetch(ctx context.Context, model, voice string) (string, error) {
	body, err := json.Marshal(map[string]string{
		"model": model,
		"voice": voice,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode session request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build session request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.APIKey)
	req.Header.Set("Content-Type", "application/json")

	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", &Error{Reason: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &Error{StatusCode: resp.StatusCode, Reason: string(msg)}
	}

	var session sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return "", &Error{StatusCode: resp.StatusCode, Reason: fmt.Sprintf("malformed session response: %v", err)}
	}
	if session.ClientSecret.Value == "" {
		return "", &Error{StatusCode: resp.StatusCode, Reason: "session response missing client_secret.value"}
	}

	return session.ClientSecret.Value, nil
}
