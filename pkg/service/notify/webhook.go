package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/slack-go/slack"

	"github.com/secmon-lab/tradescout/pkg/domain/interfaces"
	"github.com/secmon-lab/tradescout/pkg/domain/model"
	"github.com/secmon-lab/tradescout/pkg/utils/logging"
	"github.com/secmon-lab/tradescout/pkg/utils/safe"
)

// Format selects the payload shape of a webhook
type Format string

const (
	// FormatAuto picks Slack for hooks.slack.com URLs and embeds otherwise
	FormatAuto Format = "auto"
	// FormatEmbed posts {"content", "embeds"} documents
	FormatEmbed Format = "embed"
	// FormatSlack posts Slack incoming-webhook attachments
	FormatSlack Format = "slack"
)

// ErrDeliveryFailed is returned when the webhook answers with a non-2xx status
var ErrDeliveryFailed = goerr.New("webhook delivery failed")

var (
	markdownBold = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	markdownLink = regexp.MustCompile(`\[([^\]]+)\]\(([^)\s]+)\)`)
)

// Webhook posts notifications to an incoming webhook. Deliveries are not retried.
type Webhook struct {
	url        string
	format     Format
	httpClient *http.Client
}

var _ interfaces.Notifier = (*Webhook)(nil)

// Option configures a Webhook
type Option func(*Webhook)

// WithFormat forces a payload format
func WithFormat(f Format) Option {
	return func(w *Webhook) {
		w.format = f
	}
}

// WithHTTPClient replaces the HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(w *Webhook) {
		w.httpClient = c
	}
}

// NewWebhook creates a Webhook notifier
func NewWebhook(hookURL string, opts ...Option) (*Webhook, error) {
	if hookURL == "" {
		return nil, goerr.New("webhook URL is required")
	}
	u, err := url.Parse(hookURL)
	if err != nil {
		return nil, goerr.Wrap(err, "invalid webhook URL")
	}

	w := &Webhook{
		url:        hookURL,
		format:     FormatAuto,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.format == FormatAuto || w.format == "" {
		w.format = FormatEmbed
		if u.Host == "hooks.slack.com" {
			w.format = FormatSlack
		}
	}
	return w, nil
}

// Notify delivers n
func (w *Webhook) Notify(ctx context.Context, n *model.Notification) error {
	if n == nil {
		return nil
	}
	if w.format == FormatSlack {
		if err := slack.PostWebhookCustomHTTPContext(ctx, w.url, w.httpClient, toSlackMessage(n)); err != nil {
			return goerr.Wrap(ErrDeliveryFailed, "slack webhook rejected the message", goerr.V("error", err.Error()))
		}
		return nil
	}
	return w.postEmbed(ctx, n)
}

type embedPayload struct {
	Content string        `json:"content,omitempty"`
	Embeds  []embedObject `json:"embeds,omitempty"`
}

type embedObject struct {
	Title       string          `json:"title,omitempty"`
	Description string          `json:"description,omitempty"`
	Color       int             `json:"color"`
	Thumbnail   *embedThumbnail `json:"thumbnail,omitempty"`
	Timestamp   string          `json:"timestamp,omitempty"`
}

type embedThumbnail struct {
	URL string `json:"url"`
}

func toEmbedPayload(n *model.Notification) embedPayload {
	p := embedPayload{Content: n.Content}
	if e := n.Embed; e != nil {
		obj := embedObject{
			Title:       e.Title,
			Description: e.Description,
			Color:       e.Color,
		}
		if e.ThumbnailURL != "" {
			obj.Thumbnail = &embedThumbnail{URL: e.ThumbnailURL}
		}
		if !e.Timestamp.IsZero() {
			obj.Timestamp = e.Timestamp.UTC().Format(time.RFC3339)
		}
		p.Embeds = []embedObject{obj}
	}
	return p
}

func (w *Webhook) postEmbed(ctx context.Context, n *model.Notification) error {
	body, err := json.Marshal(toEmbedPayload(n))
	if err != nil {
		return goerr.Wrap(err, "failed to encode webhook payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return goerr.Wrap(err, "failed to build webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return goerr.Wrap(err, "webhook request failed")
	}
	defer safe.DrainClose(ctx, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return goerr.Wrap(ErrDeliveryFailed, "webhook returned non-2xx",
			goerr.V("status", resp.StatusCode), goerr.V("body", string(snippet)))
	}
	return nil
}

func toSlackMessage(n *model.Notification) *slack.WebhookMessage {
	msg := &slack.WebhookMessage{Text: slackMarkdown(n.Content)}
	if e := n.Embed; e != nil {
		att := slack.Attachment{
			Title:    e.Title,
			Text:     slackMarkdown(e.Description),
			Color:    fmt.Sprintf("#%06x", e.Color),
			ThumbURL: e.ThumbnailURL,
		}
		if !e.Timestamp.IsZero() {
			att.Ts = json.Number(strconv.FormatInt(e.Timestamp.Unix(), 10))
		}
		msg.Attachments = []slack.Attachment{att}
	}
	return msg
}

// slackMarkdown rewrites the embed flavour of markdown into Slack mrkdwn
func slackMarkdown(s string) string {
	s = markdownBold.ReplaceAllString(s, "*$1*")
	s = markdownLink.ReplaceAllString(s, "<$2|$1>")
	return strings.TrimSpace(s)
}

// Log writes notifications to the logger instead of delivering them. It backs
// dry runs and setups without a webhook.
type Log struct{}

var _ interfaces.Notifier = Log{}

// Notify logs n
func (Log) Notify(ctx context.Context, n *model.Notification) error {
	if n == nil {
		return nil
	}
	args := []any{"content", n.Content}
	if n.Embed != nil {
		args = append(args, "title", n.Embed.Title, "description", n.Embed.Description)
	}
	logging.From(ctx).Info("notification (not delivered)", args...)
	return nil
}
