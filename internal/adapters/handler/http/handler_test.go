package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	notifymemory "github.com/vncsmyrnk/rushvote/internal/adapters/notify/memory"
	"github.com/vncsmyrnk/rushvote/internal/adapters/repository/memory"
	"github.com/vncsmyrnk/rushvote/internal/core/domain"
	"github.com/vncsmyrnk/rushvote/internal/core/ports"
	"github.com/vncsmyrnk/rushvote/internal/core/services"
)

const testSecret = "test-secret"

type testApp struct {
	server *httptest.Server
	store  *memory.Store
	admin  string
	voter  string
}

func setupTestApp(t *testing.T) *testApp {
	t.Helper()
	store := memory.NewStore()
	bus := notifymemory.NewBus()
	t.Cleanup(func() { bus.Close() })

	stats := services.NewStatsService(store, store, store, 5)
	handler := NewHandler(Handlers{
		Rounds:       NewRoundHandler(services.NewRoundService(store, bus, 0)),
		Deliberation: NewDeliberationHandler(services.NewDeliberationService(store, store, bus)),
		Votes:        NewVoteHandler(services.NewVoteService(store, store, store, bus)),
		Stats:        NewStatsHandler(stats, services.NewStandingsService(store, stats)),
		Events:       NewEventsHandler(bus),
	}, NewAuthenticator(testSecret))

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return &testApp{
		server: server,
		store:  store,
		admin:  mintToken(t, uuid.New(), "admin"),
		voter:  mintToken(t, uuid.New(), "member"),
	}
}

func mintToken(t *testing.T, sub uuid.UUID, role string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":  sub.String(),
		"role": role,
		"exp":  time.Now().Add(15 * time.Minute).Unix(),
		"iat":  time.Now().Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func (a *testApp) do(t *testing.T, token, method, path string, body any) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, a.server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.AddCookie(&http.Cookie{Name: "access_token", Value: token})
	}
	resp, err := a.server.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func (a *testApp) createRound(t *testing.T, name string, archetype domain.Archetype, open bool) domain.Round {
	t.Helper()
	resp := a.do(t, a.admin, http.MethodPost, "/api/rounds?confirm=true", map[string]any{
		"name": name, "archetype": archetype, "open": open,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[domain.Round](t, resp)
}

func TestAuth(t *testing.T) {
	app := setupTestApp(t)

	resp := app.do(t, "", http.MethodGet, "/api/rounds", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = app.do(t, "not-a-token", http.MethodGet, "/api/rounds", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, app.server.URL+"/api/rounds", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+app.voter)
	bearer, err := app.server.Client().Do(req)
	require.NoError(t, err)
	defer bearer.Body.Close()
	assert.Equal(t, http.StatusOK, bearer.StatusCode)
}

func TestRoundLifecycle(t *testing.T) {
	app := setupTestApp(t)

	resp := app.do(t, app.voter, http.MethodPost, "/api/rounds", map[string]any{"name": "Day 1", "archetype": "scored"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = app.do(t, app.admin, http.MethodPost, "/api/rounds", map[string]any{"name": "Day 1", "archetype": "ranked"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	a := app.createRound(t, "Day 1", domain.ArchetypeScored, true)
	assert.Equal(t, domain.RoundOpen, a.Status)
	b := app.createRound(t, "Day 2", domain.ArchetypeScored, false)

	resp = app.do(t, app.admin, http.MethodPost, "/api/rounds/"+b.ID.String()+"/open", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = app.do(t, app.admin, http.MethodPost, "/api/rounds/"+b.ID.String()+"/open?confirm=true", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, domain.RoundOpen, decode[domain.Round](t, resp).Status)

	resp = app.do(t, app.voter, http.MethodGet, "/api/rounds/current", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, b.ID, decode[domain.Round](t, resp).ID)

	resp = app.do(t, app.admin, http.MethodPost, "/api/rounds/"+a.ID.String()+"/close", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = app.do(t, app.admin, http.MethodPost, "/api/rounds/"+a.ID.String()+"/reopen?confirm=true", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = app.do(t, app.voter, http.MethodGet, "/api/rounds", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rounds := decode[[]domain.Round](t, resp)
	require.Len(t, rounds, 2)

	resp = app.do(t, app.admin, http.MethodDelete, "/api/rounds/"+b.ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = app.do(t, app.voter, http.MethodGet, "/api/rounds/"+b.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = app.do(t, app.voter, http.MethodGet, "/api/rounds/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestVotingAndStats(t *testing.T) {
	app := setupTestApp(t)
	pnm := uuid.New()
	app.store.AddCandidates(pnm)
	r := app.createRound(t, "Day 1", domain.ArchetypeScored, true)

	resp := app.do(t, app.voter, http.MethodPost, "/api/votes", map[string]any{"pnmId": pnm, "roundId": r.ID, "score": 7})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = app.do(t, app.voter, http.MethodPost, "/api/votes", map[string]any{"pnmId": pnm, "roundId": r.ID, "score": 4})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = app.do(t, app.voter, http.MethodPost, "/api/interactions", map[string]any{"pnmId": pnm, "roundId": r.ID, "interacted": true})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = app.do(t, app.voter, http.MethodGet, "/api/pnms/"+pnm.String()+"/stats", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	stats := decode[domain.VoteStats](t, resp)
	assert.Equal(t, 1, stats.Count)
	assert.InDelta(t, 4.0, stats.Average, 1e-9)
	assert.Contains(t, stats.RoundStats, "Day 1")

	resp = app.do(t, app.voter, http.MethodGet, "/api/pnms/"+pnm.String()+"/interaction-stats", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = app.do(t, app.voter, http.MethodGet, "/api/standings", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	standings := decode[[]domain.Standing](t, resp)
	require.Len(t, standings, 1)
	assert.Equal(t, 1, standings[0].Rank)
}

func TestDeliberationFlow(t *testing.T) {
	app := setupTestApp(t)
	pnm := uuid.New()
	app.store.AddCandidates(pnm)
	r := app.createRound(t, "Bids", domain.ArchetypeDeliberation, true)
	candidate := fmt.Sprintf("/api/rounds/%s/pnms/%s", r.ID, pnm)

	resp := app.do(t, app.voter, http.MethodPatch, "/api/round-control", map[string]any{"roundId": r.ID, "votingOpen": true})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = app.do(t, app.admin, http.MethodPatch, "/api/round-control", map[string]any{
		"roundId": r.ID, "votingOpen": true, "currentPnmId": pnm,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	for _, token := range []string{app.voter, app.admin} {
		resp = app.do(t, token, http.MethodPost, candidate+"/decision", map[string]any{"decision": true})
		require.Equal(t, http.StatusNoContent, resp.StatusCode)
	}

	resp = app.do(t, app.voter, http.MethodGet, candidate+"/result", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	hidden := decode[ports.CandidateResult](t, resp)
	assert.False(t, hidden.Visible)
	assert.Nil(t, hidden.Tally)

	resp = app.do(t, app.voter, http.MethodGet, candidate+"/tally", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp = app.do(t, app.voter, http.MethodGet, candidate+"/decisions", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = app.do(t, app.admin, http.MethodGet, candidate+"/tally", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, domain.NewTally(2, 0), decode[domain.Tally](t, resp))

	resp = app.do(t, app.admin, http.MethodPost, candidate+"/seal", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	sealed := decode[domain.Round](t, resp)
	require.NotNil(t, sealed.Deliberation)
	assert.True(t, sealed.Deliberation.IsSealed(pnm))

	resp = app.do(t, app.admin, http.MethodPatch, "/api/round-control", map[string]any{"roundId": r.ID, "resultsRevealed": true})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = app.do(t, app.voter, http.MethodGet, candidate+"/result", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	revealed := decode[ports.CandidateResult](t, resp)
	assert.True(t, revealed.Visible)
	assert.True(t, revealed.Sealed)
	require.NotNil(t, revealed.Tally)
	assert.Equal(t, 2, revealed.Tally.Yes)

	resp = app.do(t, app.admin, http.MethodDelete, candidate+"/seal", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	other := uuid.New()
	app.store.AddCandidates(other)
	resp = app.do(t, app.admin, http.MethodPost, fmt.Sprintf("/api/rounds/%s/pnms/%s/seal", r.ID, other), nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp = app.do(t, app.voter, http.MethodPost, fmt.Sprintf("/api/rounds/%s/pnms/%s/decision", r.ID, other), map[string]any{"decision": true})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestEventStream(t *testing.T) {
	app := setupTestApp(t)
	r := app.createRound(t, "Day 1", domain.ArchetypeScored, false)

	resp := app.do(t, app.voter, http.MethodGet, "/api/events?topic=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, app.server.URL+"/api/events?topic="+domain.TopicRounds, nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: app.voter})
	stream, err := app.server.Client().Do(req)
	require.NoError(t, err)
	defer stream.Body.Close()
	require.Equal(t, http.StatusOK, stream.StatusCode)
	assert.Contains(t, stream.Header.Get("Content-Type"), "text/event-stream")

	resp = app.do(t, app.admin, http.MethodPost, "/api/rounds/"+r.ID.String()+"/open", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	scanner := bufio.NewScanner(stream.Body)
	var eventLine, dataLine string
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "event: ") {
			eventLine = line
		}
		if strings.HasPrefix(line, "data: ") {
			dataLine = line
			break
		}
	}
	assert.Equal(t, "event: "+string(domain.EventRoundStatusChange), eventLine)

	var ev domain.Event
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(dataLine, "data: ")), &ev))
	require.NotNil(t, ev.RoundID)
	assert.Equal(t, r.ID, *ev.RoundID)
}
