package slack_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/secmon-lab/tradescout/pkg/domain/types"
	"github.com/secmon-lab/tradescout/pkg/service/slack"
)

func TestNew(t *testing.T) {
	t.Run("returns error when token is empty", func(t *testing.T) {
		_, err := slack.New("")
		gt.Value(t, err).NotNil()
	})

	t.Run("creates service when token is provided", func(t *testing.T) {
		svc, err := slack.New("test-token")
		gt.NoError(t, err).Required()
		gt.Value(t, svc).NotNil()
	})
}

type fakeAPI struct {
	userInfoCalls atomic.Int32
	posted        atomic.Value
}

func (f *fakeAPI) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/chat.postMessage", func(w http.ResponseWriter, r *http.Request) {
		gt.NoError(t, r.ParseForm())
		f.posted.Store(r.Form.Get("channel") + ":" + r.Form.Get("text"))
		fmt.Fprint(w, `{"ok":true,"channel":"CLOOKUP","ts":"1700000000.000100"}`)
	})
	mux.HandleFunc("/users.info", func(w http.ResponseWriter, r *http.Request) {
		f.userInfoCalls.Add(1)
		fmt.Fprint(w, `{"ok":true,"user":{"id":"U1","name":"alice","real_name":"Alice A","profile":{"display_name":"ally"}}}`)
	})
	mux.HandleFunc("/users.list", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ok":true,"members":[
			{"id":"U1","name":"alice","real_name":"Alice A","profile":{"display_name":"ally"}},
			{"id":"U2","name":"gone","deleted":true},
			{"id":"B1","name":"lookup","is_bot":true}
		],"response_metadata":{"next_cursor":""}}`)
	})
	mux.HandleFunc("/usergroups.list", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ok":true,"usergroups":[
			{"id":"S1","handle":"novice","name":"Novice","users":["U1"],"date_delete":0},
			{"id":"S2","handle":"old","name":"Old","users":[],"date_delete":1700000000}
		]}`)
	})
	mux.HandleFunc("/conversations.history", func(w http.ResponseWriter, r *http.Request) {
		gt.NoError(t, r.ParseForm())
		gt.Value(t, r.Form.Get("limit")).Equal("20")
		fmt.Fprint(w, `{"ok":true,"has_more":false,"messages":[
			{"type":"message","user":"U9","text":"c","ts":"1700000002.000000"},
			{"type":"message","subtype":"bot_message","bot_id":"B2","text":"","ts":"1700000001.000000",
			 "attachments":[{"id":1,"text":"**alice** • RAP: **250,000**"}]}
		]}`)
	})
	return mux
}

func newTestService(t *testing.T) (slack.Service, *fakeAPI) {
	t.Helper()
	api := &fakeAPI{}
	srv := httptest.NewServer(api.handler(t))
	t.Cleanup(srv.Close)

	svc, err := slack.New("xoxb-test", slack.WithAPIURL(srv.URL+"/"), slack.WithCacheTTL(time.Minute))
	gt.NoError(t, err).Required()
	return svc, api
}

func TestPostMessage(t *testing.T) {
	svc, api := newTestService(t)

	ts, err := svc.PostMessage(context.Background(), "CLOOKUP", "whois <@U1>")
	gt.NoError(t, err).Required()
	gt.Value(t, ts).Equal("1700000000.000100")
	gt.Value(t, api.posted.Load()).Equal("CLOOKUP:whois <@U1>")
}

func TestGetUserInfo_Cached(t *testing.T) {
	svc, api := newTestService(t)
	ctx := context.Background()

	u, err := svc.GetUserInfo(ctx, "U1")
	gt.NoError(t, err).Required()
	gt.Value(t, u.Name).Equal("alice")
	gt.Value(t, u.DisplayName).Equal("ally")

	_, err = svc.GetUserInfo(ctx, "U1")
	gt.NoError(t, err).Required()
	gt.Value(t, api.userInfoCalls.Load()).Equal(int32(1))
}

func TestListUsers(t *testing.T) {
	svc, _ := newTestService(t)

	users, err := svc.ListUsers(context.Background())
	gt.NoError(t, err).Required()
	gt.Array(t, users).Length(1).Required()
	gt.Value(t, users[0].ID).Equal("U1")
	gt.Value(t, users[0].RealName).Equal("Alice A")
}

func TestListUserGroups(t *testing.T) {
	svc, _ := newTestService(t)

	groups, err := svc.ListUserGroups(context.Background())
	gt.NoError(t, err).Required()
	gt.Array(t, groups).Length(1).Required()
	gt.Value(t, groups[0].Handle).Equal("novice")
	gt.Value(t, groups[0].Users).Equal([]string{"U1"})
}

func TestGetConversationHistory(t *testing.T) {
	svc, _ := newTestService(t)

	msgs, err := svc.GetConversationHistory(context.Background(), "CCLAIM", 20)
	gt.NoError(t, err).Required()
	gt.Array(t, msgs).Length(2).Required()
	gt.Value(t, msgs[0].UserID).Equal(types.UserID("U9"))
	gt.Bool(t, msgs[1].IsBot).True()
	gt.Array(t, msgs[1].Attachments).Length(1).Required()
	gt.Value(t, msgs[1].Attachments[0].Text).Equal("**alice** • RAP: **250,000**")
}

func TestIntegration(t *testing.T) {
	token := os.Getenv("TEST_SLACK_BOT_TOKEN")
	if token == "" {
		t.Skip("TEST_SLACK_BOT_TOKEN is not set")
	}

	svc, err := slack.New(token)
	gt.NoError(t, err).Required()

	users, err := svc.ListUsers(context.Background())
	gt.NoError(t, err).Required()
	for _, u := range users {
		gt.String(t, u.ID).NotEqual("")
	}

	_, err = svc.ListUserGroups(context.Background())
	gt.NoError(t, err).Required()
}
