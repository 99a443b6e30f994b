package notify_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/secmon-lab/tradescout/pkg/domain/model"
	"github.com/secmon-lab/tradescout/pkg/service/notify"
)

type captured struct {
	calls atomic.Int32
	body  atomic.Value
}

func captureServer(t *testing.T, status int) (*httptest.Server, *captured) {
	t.Helper()
	c := &captured{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.calls.Add(1)
		gt.Value(t, r.Method).Equal(http.MethodPost)
		body, err := io.ReadAll(r.Body)
		gt.NoError(t, err)
		c.body.Store(body)
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, c
}

func TestWebhook_Embed(t *testing.T) {
	srv, got := captureServer(t, http.StatusNoContent)
	ts := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	w, err := notify.NewWebhook(srv.URL)
	gt.NoError(t, err).Required()

	n := &model.Notification{Embed: &model.Embed{
		Title:        "Trade Ads Trader",
		Description:  "**builder**",
		Color:        model.NotificationColor,
		ThumbnailURL: "https://example.com/a.png",
		Timestamp:    ts,
	}}
	gt.NoError(t, w.Notify(context.Background(), n)).Required()

	var payload map[string]any
	gt.NoError(t, json.Unmarshal(got.body.Load().([]byte), &payload)).Required()
	embeds := payload["embeds"].([]any)
	gt.Array(t, embeds).Length(1).Required()
	embed := embeds[0].(map[string]any)
	gt.Value(t, embed["title"]).Equal("Trade Ads Trader")
	gt.Value(t, embed["description"]).Equal("**builder**")
	gt.Value(t, embed["color"]).Equal(float64(0x00ff00))
	gt.Value(t, embed["timestamp"]).Equal("2024-06-01T12:00:00Z")
	gt.Value(t, embed["thumbnail"].(map[string]any)["url"]).Equal("https://example.com/a.png")
	_, hasContent := payload["content"]
	gt.Bool(t, hasContent).False()
}

func TestWebhook_Content(t *testing.T) {
	srv, got := captureServer(t, http.StatusOK)

	w, err := notify.NewWebhook(srv.URL)
	gt.NoError(t, err).Required()
	gt.NoError(t, w.Notify(context.Background(), model.NewItemScanDoneNotification("1818"))).Required()

	var payload map[string]any
	gt.NoError(t, json.Unmarshal(got.body.Load().([]byte), &payload)).Required()
	gt.String(t, payload["content"].(string)).Contains("Done scanning item 1818")
	_, hasEmbeds := payload["embeds"]
	gt.Bool(t, hasEmbeds).False()
}

func TestWebhook_FailureNotRetried(t *testing.T) {
	srv, got := captureServer(t, http.StatusBadRequest)

	w, err := notify.NewWebhook(srv.URL)
	gt.NoError(t, err).Required()

	err = w.Notify(context.Background(), &model.Notification{Content: "x"})
	gt.Error(t, err).Is(notify.ErrDeliveryFailed)
	gt.Value(t, got.calls.Load()).Equal(int32(1))
}

func TestWebhook_Slack(t *testing.T) {
	srv, got := captureServer(t, http.StatusOK)

	w, err := notify.NewWebhook(srv.URL, notify.WithFormat(notify.FormatSlack))
	gt.NoError(t, err).Required()

	n := model.NewLeadNotification(model.Lead{
		ReportedName: "alice",
		PlayerID:     "42",
		Message:      "w/l",
		MessageURL:   "https://slack.com/archives/C1/p1",
	}, time.Unix(1700000000, 0))
	gt.NoError(t, w.Notify(context.Background(), n)).Required()

	var payload struct {
		Attachments []struct {
			Text     string      `json:"text"`
			Color    string      `json:"color"`
			ThumbURL string      `json:"thumb_url"`
			Ts       json.Number `json:"ts"`
		} `json:"attachments"`
	}
	gt.NoError(t, json.Unmarshal(got.body.Load().([]byte), &payload)).Required()
	gt.Array(t, payload.Attachments).Length(1).Required()
	att := payload.Attachments[0]
	gt.Value(t, att.Color).Equal("#00ff00")
	gt.String(t, att.Text).Contains("*alice* • RAP: *N/A*")
	gt.String(t, att.Text).Contains("<https://slack.com/archives/C1/p1|Jump to Message>")
	gt.Value(t, att.Ts.String()).Equal("1700000000")
}

func TestWebhook_Slack_Failure(t *testing.T) {
	srv, _ := captureServer(t, http.StatusInternalServerError)

	w, err := notify.NewWebhook(srv.URL, notify.WithFormat(notify.FormatSlack))
	gt.NoError(t, err).Required()
	gt.Error(t, w.Notify(context.Background(), &model.Notification{Content: "x"})).Is(notify.ErrDeliveryFailed)
}

func TestNewWebhook(t *testing.T) {
	_, err := notify.NewWebhook("")
	gt.Value(t, err).NotNil()
}

func TestLog(t *testing.T) {
	gt.NoError(t, notify.Log{}.Notify(context.Background(), model.NewItemScanDoneNotification("1")))
}
