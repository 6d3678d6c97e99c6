package notification

import (
	"context"
	"time"

	"CareCompanion/pkg/errors"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// WebhookConfig 自动化平台（n8n）Webhook 配置
type WebhookConfig struct {
	URL        string
	Timeout    time.Duration
	RetryCount int
}

// Webhook posts {event, ...payload} as JSON to an automation workflow.
type Webhook struct {
	url    string
	client *resty.Client
	logger *zap.Logger
}

func NewWebhook(cfg WebhookConfig, logger *zap.Logger) *Webhook {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(3 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500
		}).
		SetHeader("Content-Type", "application/json")
	return &Webhook{url: cfg.URL, client: client, logger: logger}
}

func (w *Webhook) SendEvent(ctx context.Context, event string, payload map[string]any) error {
	body := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		body[k] = v
	}
	body["event"] = event
	return w.post(ctx, event, body)
}

func (w *Webhook) SendReport(ctx context.Context, event string, report Report) error {
	return w.post(ctx, event, map[string]any{
		"event":     event,
		"userId":    report.SubjectID,
		"email":     report.Recipient,
		"subject":   report.Subject,
		"report":    report.Body,
		"timestamp": report.Timestamp,
	})
}

func (w *Webhook) post(ctx context.Context, event string, body map[string]any) error {
	if w.url == "" {
		return errors.NotConfigured("n8n webhook url")
	}
	resp, err := w.client.R().
		SetContext(ctx).
		SetBody(body).
		Post(w.url)
	if err != nil {
		return errors.Upstream(err, "n8n webhook")
	}
	if resp.IsError() {
		return errors.WithCodef(errors.CodeUpstream, "n8n webhook returned %d for %s", resp.StatusCode(), event)
	}
	w.logger.Info("triggered n8n webhook", zap.String("event", event))
	return nil
}
