package messenger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// EmailSender delivers one email.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// SMSSender delivers one SMS.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// HTTPEmailClient posts emails to a JSON relay endpoint.
type HTTPEmailClient struct {
	providerURL string
	apiKey      string
	from        string
	httpClient  *http.Client
}

// NewHTTPEmailClient creates an email client for the given provider
// endpoint.
func NewHTTPEmailClient(providerURL, apiKey, from string) *HTTPEmailClient {
	return &HTTPEmailClient{
		providerURL: providerURL,
		apiKey:      apiKey,
		from:        from,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
	}
}

type emailRequest struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func (c *HTTPEmailClient) SendEmail(ctx context.Context, to, subject, body string) error {
	payload, err := json.Marshal(emailRequest{
		From:    c.from,
		To:      to,
		Subject: subject,
		Body:    body,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal email request: %w", err)
	}

	return postJSON(ctx, c.httpClient, c.providerURL, c.apiKey, payload)
}

// HTTPSMSClient posts SMS messages to a JSON gateway endpoint.
type HTTPSMSClient struct {
	providerURL string
	apiKey      string
	sender      string
	httpClient  *http.Client
}

// NewHTTPSMSClient creates an SMS client for the given gateway endpoint.
// sender is the registered outbound number.
func NewHTTPSMSClient(providerURL, apiKey, sender string) *HTTPSMSClient {
	return &HTTPSMSClient{
		providerURL: providerURL,
		apiKey:      apiKey,
		sender:      sender,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
	}
}

type smsRequest struct {
	Sender string `json:"sender"`
	To     string `json:"to"`
	Body   string `json:"body"`
}

func (c *HTTPSMSClient) SendSMS(ctx context.Context, to, body string) error {
	payload, err := json.Marshal(smsRequest{
		Sender: c.sender,
		To:     to,
		Body:   body,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal sms request: %w", err)
	}

	return postJSON(ctx, c.httpClient, c.providerURL, c.apiKey, payload)
}

func postJSON(ctx context.Context, client *http.Client, url, apiKey string, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("provider returned status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
