package http_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/m-mizutani/gt"
	httpctrl "github.com/secmon-lab/tradescout/pkg/controller/http"
)

func TestHealth(t *testing.T) {
	t.Run("without reporter", func(t *testing.T) {
		rec := httptest.NewRecorder()
		httpctrl.New().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		gt.Value(t, rec.Code).Equal(http.StatusOK)
		gt.Value(t, rec.Header().Get("Content-Type")).Equal("application/json")

		var body map[string]any
		gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		gt.Value(t, body["status"]).Equal(any("ok"))
	})

	t.Run("with reporter", func(t *testing.T) {
		reporter := httpctrl.HealthFunc(func() httpctrl.Health {
			return httpctrl.Health{Members: 12, PendingLookups: 2, ReportedLeads: 7, Autoclaim: true}
		})
		rec := httptest.NewRecorder()
		httpctrl.New(httpctrl.WithHealthReporter(reporter)).
			ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		var body struct {
			Status         string `json:"status"`
			Members        int    `json:"members"`
			PendingLookups int    `json:"pending_lookups"`
			ReportedLeads  int    `json:"reported_leads"`
			Autoclaim      bool   `json:"autoclaim"`
		}
		gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		gt.Value(t, body.Status).Equal("ok")
		gt.Value(t, body.Members).Equal(12)
		gt.Value(t, body.PendingLookups).Equal(2)
		gt.Value(t, body.ReportedLeads).Equal(7)
		gt.Bool(t, body.Autoclaim).True()
	})
}

func TestSlackRouteDisabledWithoutWebhook(t *testing.T) {
	rec := httptest.NewRecorder()
	httpctrl.New().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/hooks/slack/event", nil))
	gt.Value(t, rec.Code).Equal(http.StatusNotFound)
}
