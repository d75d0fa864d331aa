package email

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// mailgunClient is the concrete Sender backed by the Mailgun messages API.
type mailgunClient struct {
	apiKey     string
	domain     string // sending domain, e.g. "mg.sablemail.com"
	apiBase    string // "https://api.mailgun.net" unless overridden (EU region, tests)
	httpClient *http.Client
}

// NewMailgunClient returns a Sender that delivers templated email via
// Mailgun. apiBase may be empty, in which case the US endpoint is used.
func NewMailgunClient(apiKey, domain, apiBase string) Sender {
	if apiBase == "" {
		apiBase = "https://api.mailgun.net"
	}
	return &mailgunClient{
		apiKey:  apiKey,
		domain:  domain,
		apiBase: strings.TrimRight(apiBase, "/"),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// ─── MAILGUN API SHAPES ──────────────────────────────────────────────────────

type mailgunResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// ─── SENDER IMPLEMENTATION ───────────────────────────────────────────────────

// SendTemplate posts one message to /v3/{domain}/messages. The DocID travels
// as the v:docId user variable so webhook events can be correlated back to
// the sent record.
func (c *mailgunClient) SendTemplate(ctx context.Context, p SendTemplateParams) (string, error) {
	to := p.To
	if p.Name != "" {
		to = fmt.Sprintf("%s <%s>", p.Name, p.To)
	}

	form := url.Values{}
	form.Set("from", p.From)
	form.Set("to", to)
	form.Set("template", p.Template)
	form.Set("v:docId", p.DocID)
	if p.Name != "" {
		form.Set("v:name", p.Name)
	}

	endpoint := fmt.Sprintf("%s/v3/%s/messages", c.apiBase, c.domain)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("email: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth("api", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("email: http request: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return "", fmt.Errorf("email: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("email: Mailgun status %d: %.200s", resp.StatusCode, string(respBytes))
	}

	var parsed mailgunResponse
	if err := json.Unmarshal(respBytes, &parsed); err != nil {
		return "", fmt.Errorf("email: unmarshal response (status %d): %w", resp.StatusCode, err)
	}
	if parsed.ID == "" {
		return "", fmt.Errorf("email: Mailgun accepted without an id: %.200s", string(respBytes))
	}

	return parsed.ID, nil
}
