package mail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"mailvoice/internal/domain"
)

func TestBuildQuery(t *testing.T) {
	tests := []struct {
		name  string
		slots domain.Slots
		want  string
	}{
		{"empty", domain.Slots{}, ""},
		{"sender and date", domain.Slots{domain.SlotSender: "alice", domain.SlotAfterDate: "2024-01-01"}, "from:alice after:2024/01/01"},
		{"subject", domain.Slots{domain.SlotSubject: "invoice"}, "subject:invoice"},
		{"terms", domain.Slots{domain.SlotSearchTerms: "quarterly report"}, "quarterly report"},
		{"blank ignored", domain.Slots{domain.SlotSender: ""}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildQuery(tt.slots))
		})
	}
}

func TestDescribe(t *testing.T) {
	m := domain.Message{Headers: map[string]string{"subject": "Board Meeting", "From": "Ann <ann@example.com>"}}
	assert.Equal(t, "Board Meeting from Ann <ann@example.com>", Describe(m))
	assert.Equal(t, "(no subject)", Describe(domain.Message{}))
}

func TestCompose(t *testing.T) {
	raw, err := Compose(Draft{To: "bob@example.com", Subject: "lunch", Body: "see you\nat noon"})
	require.NoError(t, err)
	s := string(raw)
	assert.Contains(t, s, "To: <bob@example.com>\r\n")
	assert.Contains(t, s, "Subject: lunch\r\n")
	assert.True(t, strings.HasSuffix(s, "\r\n\r\nsee you\r\nat noon"))

	_, err = Compose(Draft{To: "bob"})
	require.Error(t, err)
}

func TestKind(t *testing.T) {
	assert.Equal(t, domain.FailureNotFound, Kind(fmt.Errorf("get: %w", ErrNotFound)))
	assert.Equal(t, domain.FailureAuth, Kind(fmt.Errorf("list: %w", &googleapi.Error{Code: 401})))
	assert.Equal(t, domain.FailureAuth, Kind(&oauth2.RetrieveError{}))
	assert.Equal(t, domain.FailureUnavailable, Kind(gobreaker.ErrOpenState))
	assert.Equal(t, domain.FailureTransport, Kind(errors.New("connection reset")))
	assert.Equal(t, domain.FailureKind(""), Kind(nil))
}

type flakyService struct {
	Service
	err   error
	calls int
}

func (f *flakyService) Trash(context.Context, string) error {
	f.calls++
	return f.err
}

type opRecorder struct{ events []string }

func (o *opRecorder) ObserveMailOp(op, status string) { o.events = append(o.events, op+":"+status) }

func TestGuardedTripsOnTransportErrors(t *testing.T) {
	next := &flakyService{err: errors.New("connection reset")}
	obs := &opRecorder{}
	g := NewGuarded(next, DefaultBreakerConfig(), zap.NewNop(), obs)

	for i := 0; i < 3; i++ {
		require.Error(t, g.Trash(context.Background(), "m1"))
	}
	assert.Equal(t, gobreaker.StateOpen, g.State())

	err := g.Trash(context.Background(), "m1")
	require.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 3, next.calls)
	assert.Equal(t, "trash:unavailable", obs.events[len(obs.events)-1])
}

func TestGuardedIgnoresNotFound(t *testing.T) {
	next := &flakyService{err: ErrNotFound}
	g := NewGuarded(next, DefaultBreakerConfig(), zap.NewNop(), nil)

	for i := 0; i < 5; i++ {
		require.ErrorIs(t, g.Trash(context.Background(), "gone"), ErrNotFound)
	}
	assert.Equal(t, gobreaker.StateClosed, g.State())
	assert.Equal(t, 5, next.calls)
}

func newTestGmail(t *testing.T, h http.Handler) *Gmail {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	g, err := NewGmail(context.Background(),
		oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "test"}),
		option.WithHTTPClient(srv.Client()),
		option.WithEndpoint(srv.URL+"/"),
	)
	require.NoError(t, err)
	return g
}

func TestGmailListAndGet(t *testing.T) {
	body := base64.URLEncoding.EncodeToString([]byte("Agenda attached."))
	mux := http.NewServeMux()
	mux.HandleFunc("/gmail/v1/users/me/messages", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "from:alice", r.URL.Query().Get("q"))
		assert.Equal(t, "1", r.URL.Query().Get("maxResults"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"messages": []map[string]string{{"id": "m1", "threadId": "t1"}},
		})
	})
	mux.HandleFunc("/gmail/v1/users/me/messages/m1", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":       "m1",
			"threadId": "t1",
			"labelIds": []string{"INBOX", "UNREAD"},
			"payload": map[string]any{
				"mimeType": "multipart/alternative",
				"headers":  []map[string]string{{"name": "Subject", "value": "Board Meeting"}},
				"parts": []map[string]any{
					{"mimeType": "text/html", "body": map[string]string{"data": "PGI-"}},
					{"mimeType": "text/plain", "body": map[string]string{"data": body}},
				},
			},
		})
	})
	mux.HandleFunc("/gmail/v1/users/me/messages/missing", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":404,"message":"Requested entity was not found."}}`))
	})
	g := newTestGmail(t, mux)

	list, err := g.List(context.Background(), "from:alice", 1)
	require.NoError(t, err)
	require.Equal(t, []domain.MessageSummary{{ID: "m1", ThreadID: "t1"}}, list)

	msg, err := g.Get(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, "Board Meeting", msg.Subject())
	assert.Equal(t, "Agenda attached.", msg.Body)
	assert.Equal(t, []string{"INBOX", "UNREAD"}, msg.LabelIDs)

	_, err = g.Get(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, domain.FailureNotFound, Kind(err))
}

func TestGmailSendAndModify(t *testing.T) {
	var sentRaw string
	var modify map[string][]string
	mux := http.NewServeMux()
	mux.HandleFunc("/gmail/v1/users/me/messages/send", func(w http.ResponseWriter, r *http.Request) {
		var m map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&m))
		sentRaw = m["raw"]
		_, _ = w.Write([]byte(`{"id":"sent-1"}`))
	})
	mux.HandleFunc("/gmail/v1/users/me/messages/m1/modify", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&modify))
		_, _ = w.Write([]byte(`{"id":"m1"}`))
	})
	g := newTestGmail(t, mux)

	id, err := g.Send(context.Background(), []byte("To: bob@example.com\r\n\r\nhi"))
	require.NoError(t, err)
	assert.Equal(t, "sent-1", id)
	decoded, err := base64.URLEncoding.DecodeString(sentRaw)
	require.NoError(t, err)
	assert.Equal(t, "To: bob@example.com\r\n\r\nhi", string(decoded))

	require.NoError(t, g.ModifyLabels(context.Background(), "m1", []string{LabelUnread}, nil))
	assert.Equal(t, []string{LabelUnread}, modify["removeLabelIds"])
}
