// Package notify delivers a day's summary to a chat webhook.
package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// ErrNoWebhook is returned when no webhook URL is configured.
var ErrNoWebhook = errors.New("no webhook URL configured")

// Config configures a Feishu sender.
type Config struct {
	WebhookURL string
	// InsecureSkipVerify disables TLS certificate checks. Only for local
	// debugging behind intercepting proxies.
	InsecureSkipVerify bool
	Timeout            time.Duration
}

// Feishu posts text messages to a Feishu (Lark) bot webhook.
type Feishu struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

type feishuMessage struct {
	MsgType string        `json:"msg_type"`
	Content feishuContent `json:"content"`
}

type feishuContent struct {
	Msg string `json:"msg"`
}

// NewFeishu creates a sender.
func NewFeishu(cfg Config, logger *slog.Logger) (*Feishu, error) {
	if strings.TrimSpace(cfg.WebhookURL) == "" {
		return nil, ErrNoWebhook
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	// Requests go straight to the webhook, never through an environment
	// proxy.
	transport := &http.Transport{Proxy: nil}
	if cfg.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		logger.Warn("TLS certificate verification is disabled for the webhook")
	}

	return &Feishu{
		url:    cfg.WebhookURL,
		client: &http.Client{Timeout: cfg.Timeout, Transport: transport},
		logger: logger,
	}, nil
}

// Send posts text as a single message and returns the webhook's response
// body. There is no retry; a failed send is retried by the next scheduled
// run.
func (f *Feishu) Send(ctx context.Context, text string) (string, error) {
	body, err := json.Marshal(feishuMessage{
		MsgType: "text",
		Content: feishuContent{Msg: text},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("webhook returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	f.logger.Info("sent message to webhook", "bytes", len(text), "status", resp.StatusCode)
	return string(respBody), nil
}
