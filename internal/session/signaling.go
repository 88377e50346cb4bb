package session

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// SignalingError reports a failed SDP exchange with the realtime endpoint.
type SignalingError struct {
	StatusCode int // 0 when the request itself failed
	Body       string
}

func (e *SignalingError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("signaling failed: status %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("signaling failed: %s", e.Body)
}

// exchangeSDP POSTs the raw local offer to the realtime endpoint,
// authenticated with the ephemeral credential, and returns the raw answer
// SDP from the response body.
func exchangeSDP(ctx context.Context, client *http.Client, realtimeURL, model, secret, offerSDP string) (string, error) {
	endpoint := realtimeURL + "?model=" + url.QueryEscape(model)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(offerSDP))
	if err != nil {
		return "", fmt.Errorf("failed to build signaling request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+secret)
	req.Header.Set("Content-Type", "application/sdp")

	resp, err := client.Do(req)
	if err != nil {
		return "", &SignalingError{Body: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &SignalingError{StatusCode: resp.StatusCode, Body: err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &SignalingError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	return string(body), nil
}
