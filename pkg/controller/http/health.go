package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/tradescout/pkg/utils/errutil"
)

// HealthReporter exposes the counters shown on the health endpoint
type HealthReporter interface {
	Health() Health
}

// Health is the body of GET /health
type Health struct {
	Members            int       `json:"members"`
	DirectoryUpdatedAt time.Time `json:"directory_updated_at"`
	PendingLookups     int       `json:"pending_lookups"`
	ReportedLeads      int       `json:"reported_leads"`
	ReportedTraders    int       `json:"reported_traders"`
	Autoclaim          bool      `json:"autoclaim"`
}

type healthResponse struct {
	Status string `json:"status"`
	*Health
}

func healthHandler(reporter HealthReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok"}
		if reporter != nil {
			h := reporter.Health()
			resp.Health = &h
		}

		data, err := json.Marshal(resp)
		if err != nil {
			errutil.HandleHTTP(r.Context(), w, goerr.Wrap(err, "failed to marshal health response"), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(data) //nolint:errcheck // header already committed
	}
}

// HealthFunc adapts a function to HealthReporter
type HealthFunc func() Health

func (f HealthFunc) Health() Health {
	return f()
}
