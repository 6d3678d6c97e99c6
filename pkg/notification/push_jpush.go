package notification

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"CareCompanion/pkg/errors"

	"github.com/go-resty/resty/v2"
)

const defaultJPushURL = "https://api.jpush.cn"

type JPushConfig struct {
	AppKey       string
	MasterSecret string
	BaseURL      string
}

// JPushClient 便于替换/注入的推送接口
type JPushClient interface {
	Push(ctx context.Context, title, content string, audience map[string]interface{}, extras map[string]interface{}) error
}

// jpushHTTP 调用 JPush REST v3 推送接口
type jpushHTTP struct {
	client *resty.Client
}

// NewJPushClient returns nil when the app key or secret is missing.
func NewJPushClient(cfg JPushConfig) JPushClient {
	if cfg.AppKey == "" || cfg.MasterSecret == "" {
		return nil
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultJPushURL
	}
	c := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetBasicAuth(cfg.AppKey, cfg.MasterSecret).
		SetTimeout(10 * time.Second).
		SetHeader("Content-Type", "application/json")
	return &jpushHTTP{client: c}
}

func (j *jpushHTTP) Push(ctx context.Context, title, content string, audience map[string]interface{}, extras map[string]interface{}) error {
	body := map[string]interface{}{
		"platform": "all",
		"audience": audience,
		"notification": map[string]interface{}{
			"alert":   content,
			"android": map[string]interface{}{"title": title, "alert": content, "extras": extras},
			"ios":     map[string]interface{}{"alert": map[string]string{"title": title, "body": content}, "sound": "default", "extras": extras},
		},
	}
	resp, err := j.client.R().SetContext(ctx).SetBody(body).Post("/v3/push")
	if err != nil {
		return errors.Upstream(err, "jpush")
	}
	if resp.IsError() {
		return errors.WithCodef(errors.CodeUpstream, "jpush returned %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

// CaregiverPush sends events to the care circle's app. Caregiver devices
// register under the alias care_<subject>.
type CaregiverPush struct {
	cli JPushClient
}

func NewCaregiverPush(cli JPushClient) *CaregiverPush { return &CaregiverPush{cli: cli} }

func CaregiverAlias(subject string) string { return "care_" + subject }

var pushTitles = map[string]string{
	"emergency_alert":  "Emergency alert",
	"emergency_report": "Emergency report",
	"safety_concern":   "Wellness concern",
	"mood_alert":       "Mood check-in",
}

func (p *CaregiverPush) SendEvent(ctx context.Context, event string, payload map[string]any) error {
	subject := subjectOf(payload)
	title := pushTitles[event]
	if title == "" {
		title = event
	}
	content := fmt.Sprintf("%s for %s", title, subject)
	if detected, ok := payload["detected"].([]string); ok && len(detected) > 0 {
		content += ": " + strings.Join(detected, ", ")
	}
	extras := map[string]interface{}{"event": event, "userId": subject}
	if lvl, ok := payload["level"]; ok {
		extras["level"] = fmt.Sprint(lvl)
	}
	return p.push(ctx, subject, title, content, extras)
}

func (p *CaregiverPush) SendReport(ctx context.Context, event string, report Report) error {
	return p.push(ctx, report.SubjectID, report.Subject, truncate(report.Body, 200),
		map[string]interface{}{"event": event, "userId": report.SubjectID})
}

func (p *CaregiverPush) push(ctx context.Context, subject, title, content string, extras map[string]interface{}) error {
	if p.cli == nil {
		return errors.NotConfigured("jpush client")
	}
	if subject == "" {
		return errors.WithCode(errors.CodeInvalidInput, "caregiver push without subject")
	}
	aud := map[string]interface{}{"alias": []string{CaregiverAlias(subject)}}
	return p.cli.Push(ctx, title, content, aud, extras)
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}
