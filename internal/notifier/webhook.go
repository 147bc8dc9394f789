package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rxtech-lab/trendbox/internal/types"
	"github.com/rxtech-lab/trendbox/pkg/errors"
)

const defaultWebhookTimeout = 10 * time.Second

// WebhookConfig configures the webhook notifier.
type WebhookConfig struct {
	// URL is the webhook endpoint.
	URL string `yaml:"url" validate:"required,url"`
	// Token authenticates against the endpoint, sent in the request body.
	Token string `yaml:"token"`
	// Timeout bounds a single delivery attempt.
	Timeout types.Duration `yaml:"timeout"`
}

// webhookPayload is the JSON body the endpoint expects.
type webhookPayload struct {
	Token    string `json:"token,omitempty"`
	Title    string `json:"title"`
	Content  string `json:"content"`
	Template string `json:"template"`
}

// webhookResponse is the endpoint's answer envelope.
type webhookResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// WebhookNotifier posts events as JSON to a configured HTTP endpoint.
type WebhookNotifier struct {
	cfg    WebhookConfig
	client *resty.Client
}

// NewWebhookNotifier creates a webhook notifier.
func NewWebhookNotifier(cfg WebhookConfig) *WebhookNotifier {
	timeout := cfg.Timeout.Std()
	if timeout <= 0 {
		timeout = defaultWebhookTimeout
	}

	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(2).
		SetHeader("Content-Type", "application/json")

	return &WebhookNotifier{cfg: cfg, client: client}
}

// Notify posts the event. Non-2xx responses and endpoint-level error codes
// are returned as errors so the caller can log the failed delivery.
func (n *WebhookNotifier) Notify(ctx context.Context, event Event) error {
	payload := webhookPayload{
		Token:    n.cfg.Token,
		Title:    fmt.Sprintf("[%s] %s", event.Kind, event.Title),
		Content:  event.Message,
		Template: "json",
	}

	var result webhookResponse

	resp, err := n.client.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(&result).
		Post(n.cfg.URL)
	if err != nil {
		return errors.Wrap(errors.ErrCodeUnknown, "failed to deliver notification", err)
	}

	if resp.IsError() {
		return errors.Newf(errors.ErrCodeUnknown, "notification endpoint returned %s", resp.Status())
	}

	if result.Code != 0 && result.Code != 200 {
		return errors.Newf(errors.ErrCodeUnknown, "notification endpoint error %d: %s", result.Code, result.Msg)
	}

	return nil
}

var _ Notifier = (*WebhookNotifier)(nil)
