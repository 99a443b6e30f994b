package roblox_test

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/secmon-lab/tradescout/pkg/service/fetch"
	"github.com/secmon-lab/tradescout/pkg/service/roblox"
	"github.com/secmon-lab/tradescout/pkg/utils/logging"
)

var now = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func newClient(srv *httptest.Server) *roblox.Client {
	return roblox.New(
		roblox.WithBaseURLs(srv.URL+"/inventory", srv.URL+"/users"),
		roblox.WithClock(func() time.Time { return now }),
	)
}

func inventoryServer(t *testing.T, pages map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/inventory/v1/users/42/assets/collectibles") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		gt.Value(t, r.URL.Query().Get("sortOrder")).Equal("Asc")
		gt.Value(t, r.URL.Query().Get("limit")).Equal("100")

		body, ok := pages[r.URL.Query().Get("cursor")]
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, body)
	}))
}

func TestCollectibleValue(t *testing.T) {
	srv := inventoryServer(t, map[string]string{
		"":   `{"data":[{"assetId":1,"recentAveragePrice":150000},{"assetId":2,"recentAveragePrice":null}],"nextPageCursor":"p2"}`,
		"p2": `{"data":[{"assetId":3,"recentAveragePrice":60000.7},{"assetId":4,"recentAveragePrice":-5}],"nextPageCursor":null}`,
	})
	defer srv.Close()

	v := newClient(srv).CollectibleValue(context.Background(), "42")
	gt.Value(t, v).NotNil().Required()
	gt.Value(t, *v).Equal(int64(210000))
}

func TestCollectibleValue_NoData(t *testing.T) {
	t.Run("empty inventory", func(t *testing.T) {
		srv := inventoryServer(t, map[string]string{"": `{"data":[],"nextPageCursor":null}`})
		defer srv.Close()
		gt.Value(t, newClient(srv).CollectibleValue(context.Background(), "42")).Nil()
	})

	t.Run("private inventory", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer srv.Close()
		gt.Value(t, newClient(srv).CollectibleValue(context.Background(), "42")).Nil()
	})

	t.Run("later page fails", func(t *testing.T) {
		srv := inventoryServer(t, map[string]string{
			"": `{"data":[{"recentAveragePrice":1000}],"nextPageCursor":"broken"}`,
		})
		defer srv.Close()
		v := newClient(srv).CollectibleValue(context.Background(), "42")
		gt.Value(t, v).NotNil().Required()
		gt.Value(t, *v).Equal(int64(1000))
	})
}

func TestCollectibleValue_Throttled(t *testing.T) {
	// throttledServer answers 429 the first `times` requests for cursor
	throttledServer := func(cursor string, times int32) (*httptest.Server, *atomic.Int32) {
		pages := map[string]string{
			"":   `{"data":[{"recentAveragePrice":150000}],"nextPageCursor":"p2"}`,
			"p2": `{"data":[{"recentAveragePrice":100000}],"nextPageCursor":null}`,
		}
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c := r.URL.Query().Get("cursor")
			if c == cursor && hits.Add(1) <= times {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			fmt.Fprint(w, pages[c])
		}))
		return srv, &hits
	}
	newThrottledClient := func(srv *httptest.Server) *roblox.Client {
		return roblox.New(
			roblox.WithBaseURLs(srv.URL+"/inventory", srv.URL+"/users"),
			roblox.WithFetcher(fetch.New(
				fetch.WithMaxAttempts(3),
				fetch.WithSleeper(func(context.Context, time.Duration) error { return nil }),
			)),
		)
	}

	t.Run("first page retried", func(t *testing.T) {
		srv, hits := throttledServer("", 1)
		defer srv.Close()

		v := newThrottledClient(srv).CollectibleValue(context.Background(), "42")
		gt.Value(t, v).NotNil().Required()
		gt.Value(t, *v).Equal(int64(250000))
		gt.Value(t, hits.Load()).Equal(int32(2))
	})

	t.Run("later page retried", func(t *testing.T) {
		srv, hits := throttledServer("p2", 1)
		defer srv.Close()

		v := newThrottledClient(srv).CollectibleValue(context.Background(), "42")
		gt.Value(t, v).NotNil().Required()
		gt.Value(t, *v).Equal(int64(250000))
		gt.Value(t, hits.Load()).Equal(int32(2))
	})

	t.Run("later page never recovers", func(t *testing.T) {
		srv, hits := throttledServer("p2", 100)
		defer srv.Close()

		gt.Value(t, newThrottledClient(srv).CollectibleValue(context.Background(), "42")).Nil()
		gt.Value(t, hits.Load()).Equal(int32(3))
	})
}

func TestOldestOwnedDays(t *testing.T) {
	srv := inventoryServer(t, map[string]string{
		"":  `{"data":[{"assetId":1,"created":"2024-03-01T00:00:00.123Z"},{"assetId":2,"updated":null,"addTime":1709251200}],"nextPageCursor":"b"}`,
		"b": `{"data":[{"assetId":3,"created":"2024-05-01T00:00:00Z"}]}`,
	})
	defer srv.Close()

	days := newClient(srv).OldestOwnedDays(context.Background(), "42")
	gt.Value(t, days).NotNil().Required()
	// 1709251200 is 2024-03-01T00:00:00Z
	gt.Value(t, *days).Equal(92)
}

func TestOldestOwnedDays_NoDatesWarnsOnce(t *testing.T) {
	srv := inventoryServer(t, map[string]string{
		"": `{"data":[{"assetId":1,"name":"Fedora","serialNumber":null}]}`,
	})
	defer srv.Close()

	var buf bytes.Buffer
	ctx := logging.With(context.Background(), slog.New(slog.NewTextHandler(&buf, nil)))
	c := newClient(srv)

	gt.Value(t, c.OldestOwnedDays(ctx, "42")).Nil()
	gt.Value(t, c.OldestOwnedDays(ctx, "42")).Nil()
	gt.Value(t, strings.Count(buf.String(), "no date fields")).Equal(1)
	gt.String(t, buf.String()).Contains("serialNumber")
}

func TestItemOwnedDays(t *testing.T) {
	srv := inventoryServer(t, map[string]string{
		"":  `{"data":[{"assetId":1818,"created":"2024-01-01T00:00:00Z"}],"nextPageCursor":"b"}`,
		"b": `{"data":[{"assetId":1029025,"created":"2023-06-02T00:00:00Z"},{"id":"77"}],"nextPageCursor":"c"}`,
	})
	defer srv.Close()

	ctx := context.Background()
	c := newClient(srv)

	days := c.ItemOwnedDays(ctx, "42", "1029025")
	gt.Value(t, days).NotNil().Required()
	gt.Value(t, *days).Equal(365)

	// owned without a date
	gt.Value(t, c.ItemOwnedDays(ctx, "42", "77")).Nil()
}

func TestItemOwnedDays_NotOwned(t *testing.T) {
	srv := inventoryServer(t, map[string]string{
		"": `{"data":[{"assetId":1818,"created":"2024-01-01T00:00:00Z"}]}`,
	})
	defer srv.Close()

	gt.Value(t, newClient(srv).ItemOwnedDays(context.Background(), "42", "1029025")).Nil()
}

func TestBio(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/users/v1/users/42", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":42,"name":"builder","description":"  trading on blue app  "}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newClient(srv)
	gt.Value(t, c.Bio(context.Background(), "42")).Equal("trading on blue app")
	gt.Value(t, c.Bio(context.Background(), "43")).Equal("")
}
