package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/tradescout/pkg/domain/model"
	slackmodel "github.com/secmon-lab/tradescout/pkg/domain/model/slack"
	"github.com/secmon-lab/tradescout/pkg/utils/async"
	"github.com/secmon-lab/tradescout/pkg/utils/errutil"
	"github.com/secmon-lab/tradescout/pkg/utils/logging"
	"github.com/secmon-lab/tradescout/pkg/utils/safe"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
)

// verifySlackSignature checks the v0 signature Slack attaches to each request.
// Requests older than five minutes are rejected as replays.
func verifySlackSignature(signingSecret string, header http.Header, body []byte) error {
	sv, err := slack.NewSecretsVerifier(header, signingSecret)
	if err != nil {
		return goerr.Wrap(err, "invalid signature headers",
			goerr.V("timestamp", header.Get("X-Slack-Request-Timestamp")))
	}
	if _, err := sv.Write(body); err != nil {
		return goerr.Wrap(err, "failed to hash request body")
	}
	if err := sv.Ensure(); err != nil {
		return goerr.Wrap(err, "signature mismatch")
	}
	return nil
}

// SlackSignatureMiddleware rejects requests without a valid Slack signature. The
// body is buffered and handed on unchanged.
func SlackSignatureMiddleware(signingSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			body, err := io.ReadAll(r.Body)
			safe.Close(ctx, r.Body)
			if err != nil {
				errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to read request body"), http.StatusBadRequest)
				return
			}

			if err := verifySlackSignature(signingSecret, r.Header, body); err != nil {
				errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "slack signature verification failed"), http.StatusUnauthorized)
				return
			}

			r.Body = io.NopCloser(bytes.NewReader(body))
			next.ServeHTTP(w, r)
		})
	}
}

// MessageHandler consumes chat messages delivered by the Events API
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg *model.ChatMessage) error
}

// SlackWebhookHandler handles Slack Events API webhook requests. Every message
// event is passed to each handler in order. Events are processed one at a time in
// the order their requests arrived, so a lookup request is always registered
// before a reply that arrives after it.
type SlackWebhookHandler struct {
	handlers []MessageHandler

	mu   sync.Mutex
	tail chan struct{}
}

// NewSlackWebhookHandler creates a new Slack webhook handler
func NewSlackWebhookHandler(handlers ...MessageHandler) *SlackWebhookHandler {
	return &SlackWebhookHandler{
		handlers: handlers,
	}
}

// ServeHTTP handles Slack webhook requests
func (h *SlackWebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// already verified by middleware
	body, err := io.ReadAll(r.Body)
	if err != nil {
		errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to read request body"), http.StatusBadRequest)
		return
	}

	eventsAPIEvent, err := slackevents.ParseEvent(json.RawMessage(body), slackevents.OptionNoVerifyToken())
	if err != nil {
		errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to parse slack event"), http.StatusBadRequest)
		return
	}

	switch eventsAPIEvent.Type {
	case slackevents.URLVerification:
		var challenge slackevents.ChallengeResponse
		if err := json.Unmarshal(body, &challenge); err != nil {
			errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to unmarshal challenge"), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(challenge.Challenge)); err != nil {
			logging.From(ctx).Error("failed to write challenge response", "error", err)
		}
		return

	case slackevents.CallbackEvent:
		// Slack retries unless it sees 200 within 3 seconds
		w.WriteHeader(http.StatusOK)

		msg := slackmodel.NewChatMessage(ctx, &eventsAPIEvent)
		if msg == nil {
			return
		}

		prev, done := h.enqueue()
		async.Dispatch(ctx, func(ctx context.Context) error {
			defer close(done)
			if prev != nil {
				<-prev
			}

			logging.From(ctx).Debug("processing slack message",
				"channel", msg.ChannelID,
				"user", msg.UserID,
				"ts", msg.ID,
			)

			for _, handler := range h.handlers {
				if err := handler.HandleMessage(ctx, msg); err != nil {
					_ = errutil.Handle(ctx, goerr.Wrap(err, "failed to handle slack message",
						goerr.V("channel", msg.ChannelID),
						goerr.V("ts", msg.ID)), "message handler failed")
				}
			}
			return nil
		})

	default:
		logging.From(ctx).Warn("unknown slack event type", "type", eventsAPIEvent.Type)
		w.WriteHeader(http.StatusOK)
	}
}

// enqueue returns the completion channel of the previous event, nil when there
// is none, and the channel to close when the new event is done
func (h *SlackWebhookHandler) enqueue() (prev <-chan struct{}, done chan struct{}) {
	h.mu.Lock()
	defer h.mu.Unlock()

	prev, done = h.tail, make(chan struct{})
	h.tail = done
	return prev, done
}
