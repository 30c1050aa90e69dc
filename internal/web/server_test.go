package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tosachii/ryosa/internal/core"
	"github.com/tosachii/ryosa/internal/service/brain"
	"github.com/tosachii/ryosa/internal/storage/memstore"
)

type stubDecider struct {
	result   brain.Result
	gotEvent core.ChatEvent
}

func (s *stubDecider) Handle(_ context.Context, event core.ChatEvent) brain.Result {
	s.gotEvent = event
	return s.result
}

func newTestServer(decider *stubDecider, store core.Store) *Server {
	return NewServer(":0", decider, store, NewMetrics())
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(&stubDecider{}, memstore.New())

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestStatus(t *testing.T) {
	srv := newTestServer(&stubDecider{}, memstore.New())

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), core.BotName)
}

func TestChat_RoutesThroughEngine(t *testing.T) {
	decider := &stubDecider{result: brain.Result{
		Outcome: brain.OutcomeResponded, Reply: "hi alice!", Reason: "command",
	}}
	srv := newTestServer(decider, memstore.New())

	body := `{"user_id":"Alice","display_name":"Alice","text":"!ryosa hello"}`
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp chatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "responded", resp.Outcome)
	assert.Equal(t, "hi alice!", resp.Reply)

	assert.Equal(t, core.PlatformWeb, decider.gotEvent.Platform)
	assert.Equal(t, "web", decider.gotEvent.Channel, "channel defaults when omitted")
}

func TestChat_RejectsEmptyInput(t *testing.T) {
	srv := newTestServer(&stubDecider{}, memstore.New())

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader(`{"user_id":"alice"}`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetUser(t *testing.T) {
	store := memstore.New()
	now := time.Now().UTC()
	require.NoError(t, store.UpsertUser(context.Background(), core.UserProfile{
		UserID: "alice", DisplayName: "Alice", Platform: core.PlatformTwitch,
		FirstSeen: now, LastSeen: now, InteractionCount: 42,
		Notes: []string{"likes platformers"},
	}))
	srv := newTestServer(&stubDecider{}, store)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/users/Alice", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp userResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "alice", resp.UserID)
	assert.Equal(t, 42, resp.InteractionCount)
	assert.Equal(t, "regular", resp.Affinity)
	assert.Equal(t, []string{"likes platformers"}, resp.Notes)
}

func TestGetUser_NotFound(t *testing.T) {
	srv := newTestServer(&stubDecider{}, memstore.New())

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/users/ghost", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsEndpointExposesDecisions(t *testing.T) {
	metrics := NewMetrics()
	metrics.RecordOutcome(core.PlatformTwitch, brain.OutcomeResponded)

	srv := NewServer(":0", &stubDecider{}, memstore.New(), metrics)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ryosa_decisions_total")
}
