package adapters

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"
)

const (
	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/138.0.0.0 Safari/537.36"
	maxResponseBytes = 4 << 20
)

func newHTTPClient(timeout time.Duration) *http.Client {
	jar, _ := cookiejar.New(nil)
	return &http.Client{Timeout: timeout, Jar: jar}
}

// send performs the request and reads the body. Transport failures are remote
// call failures; 401/403 are authentication failures; other non-2xx statuses are
// remote call failures carrying the status.
func send(ctx context.Context, client *http.Client, platform string, req *http.Request) (*http.Response, []byte, error) {
	resp, err := client.Do(req.WithContext(ctx))
	if err != nil {
		return nil, nil, remoteError(platform, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp, nil, remoteError(platform, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return resp, body, authError(platform, resp.Status)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return resp, body, newAdapterError(ErrRemoteCall, platform, resp.Status, nil)
	}
	return resp, body, nil
}

// bookingFailure classifies a reservation the platform did not confirm. A 2xx
// answer reporting failure or a 4xx business status is a rejection; 5xx and
// other statuses stay remote call failures, keeping the platform's message.
func bookingFailure(platform string, resp *http.Response, sendErr error, payload map[string]any) error {
	msg := firstString(payload, "error", "message", "msg")
	if sendErr != nil && (resp == nil || resp.StatusCode < 400 || resp.StatusCode > 499) {
		if msg == "" {
			return sendErr
		}
		return newAdapterError(ErrRemoteCall, platform, msg, nil)
	}
	if msg == "" {
		msg = "Booking failed"
	}
	return rejectedError(platform, msg)
}
