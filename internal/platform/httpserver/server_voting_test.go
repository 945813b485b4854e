package httpserver

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	voteengine "pollstream/contexts/polling/vote-engine"
	"pollstream/contexts/polling/vote-engine/domain/entities"
	votinghttp "pollstream/contexts/polling/vote-engine/transport/http"
	"pollstream/internal/platform/realtime"
)

func seedPoll() entities.Poll {
	now := time.Now().UTC()
	return entities.Poll{
		PollID:   "poll-1",
		Question: "Which release should we ship first?",
		PollType: entities.PollTypeSingle,
		Status:   entities.PollStatusActive,
		Options: []entities.Option{
			{OptionID: "opt-a", Text: "Alpha"},
			{OptionID: "opt-b", Text: "Beta"},
		},
		ExpiresAt: now.Add(time.Hour),
		CreatedAt: now.Add(-time.Hour),
		Version:   1,
	}
}

func newTestServer() *Server {
	hub := realtime.NewHub(8, nil)
	module := voteengine.NewInMemoryModule([]entities.Poll{seedPoll()}, hub, nil)
	return New(module, hub, nil, ":0")
}

func doJSON(t *testing.T, s *Server, method string, path string, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if userID != "" {
		req.Header.Set("X-User-Id", userID)
	}
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	return rec
}

func TestCreatePollEndpoint(t *testing.T) {
	s := newTestServer()

	rec := doJSON(t, s, http.MethodPost, "/api/polls", "creator-1", votinghttp.CreatePollRequest{
		Question:  "Which feature should we build next quarter?",
		Options:   []string{"Dark mode", "Offline sync"},
		ExpiresAt: time.Now().UTC().Add(24 * time.Hour),
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var view votinghttp.PollView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if view.PollID == "" || view.Status != "active" || len(view.Options) != 2 {
		t.Fatalf("unexpected poll view: %+v", view)
	}

	rec = doJSON(t, s, http.MethodPost, "/api/polls", "", votinghttp.CreatePollRequest{})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing identity header: expected 401, got %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodPost, "/api/polls", "creator-1", votinghttp.CreatePollRequest{
		Question:  "Too short",
		Options:   []string{"a", "b"},
		ExpiresAt: time.Now().UTC().Add(time.Hour),
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid question: expected 400, got %d", rec.Code)
	}
}

func TestVoteEndpoints(t *testing.T) {
	s := newTestServer()

	rec := doJSON(t, s, http.MethodPost, "/api/votes/poll-1", "user-1", votinghttp.SubmitVoteRequest{
		OptionIDs: []string{"opt-a"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("submit: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var voteResp votinghttp.VoteResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &voteResp); err != nil {
		t.Fatalf("decode vote response: %v", err)
	}
	if voteResp.Poll.TotalVotes != 1 {
		t.Fatalf("expected total votes 1, got %d", voteResp.Poll.TotalVotes)
	}
	if voteResp.Results[0].Percentage != 100.0 {
		t.Fatalf("expected 100%% for opt-a, got %v", voteResp.Results[0].Percentage)
	}

	rec = doJSON(t, s, http.MethodPost, "/api/votes/poll-1", "user-1", votinghttp.SubmitVoteRequest{
		OptionIDs: []string{"opt-b"},
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate vote: expected 409, got %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/votes/poll-1/status", "user-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: expected 200, got %d", rec.Code)
	}
	var status votinghttp.VoteStatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if !status.HasVoted || len(status.SelectedOptions) != 1 {
		t.Fatalf("unexpected status: %+v", status)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/votes/poll-1/results", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("results: expected 200, got %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodDelete, "/api/votes/poll-1", "user-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("retract: expected 200, got %d", rec.Code)
	}
	var retractResp votinghttp.ResultsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &retractResp); err != nil {
		t.Fatalf("decode retract response: %v", err)
	}
	if retractResp.Poll.TotalVotes != 0 {
		t.Fatalf("expected total votes back to 0, got %d", retractResp.Poll.TotalVotes)
	}

	rec = doJSON(t, s, http.MethodDelete, "/api/votes/poll-1", "user-1", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("double retract: expected 404, got %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodPost, "/api/votes/missing", "user-1", votinghttp.SubmitVoteRequest{
		OptionIDs: []string{"opt-a"},
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown poll: expected 404, got %d", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	s := newTestServer()
	rec := doJSON(t, s, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestPollLiveStream(t *testing.T) {
	s := newTestServer()
	ts := httptest.NewServer(s.mux)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/polls/poll-1/live")
	if err != nil {
		t.Fatalf("open live stream: %v", err)
	}
	defer resp.Body.Close()

	if got := resp.Header.Get("Content-Type"); got != "text/event-stream" {
		t.Fatalf("expected event-stream content type, got %q", got)
	}

	// Headers arrive only after the handler is subscribed, so a ballot
	// committing while the opening snapshot is read still reaches this viewer.
	if count := s.hub.SubscriberCount("poll-1"); count != 1 {
		t.Fatalf("expected 1 live subscriber once headers arrive, got %d", count)
	}

	scanner := bufio.NewScanner(resp.Body)
	readEvent := func() votinghttp.TallyEvent {
		t.Helper()
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			var event votinghttp.TallyEvent
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event); err != nil {
				t.Fatalf("decode tally event: %v", err)
			}
			return event
		}
		t.Fatalf("stream ended before event: %v", scanner.Err())
		return votinghttp.TallyEvent{}
	}

	snapshot := readEvent()
	if snapshot.PollID != "poll-1" || snapshot.Poll.TotalVotes != 0 {
		t.Fatalf("unexpected snapshot event: %+v", snapshot)
	}

	submit, err := http.NewRequest(http.MethodPost, ts.URL+"/api/votes/poll-1",
		strings.NewReader(`{"option_ids":["opt-a"]}`))
	if err != nil {
		t.Fatalf("build submit request: %v", err)
	}
	submit.Header.Set("X-User-Id", "user-1")
	submitResp, err := http.DefaultClient.Do(submit)
	if err != nil {
		t.Fatalf("submit vote: %v", err)
	}
	submitResp.Body.Close()
	if submitResp.StatusCode != http.StatusOK {
		t.Fatalf("submit vote: expected 200, got %d", submitResp.StatusCode)
	}

	update := readEvent()
	if update.Poll.TotalVotes != 1 {
		t.Fatalf("expected live update with total 1, got %+v", update)
	}
	if update.Results[0].Votes != 1 {
		t.Fatalf("expected opt-a at 1 vote in live update, got %+v", update.Results)
	}
}

func TestPollLiveUnknownPoll(t *testing.T) {
	s := newTestServer()
	rec := doJSON(t, s, http.MethodGet, "/api/polls/missing/live", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before stream starts, got %d", rec.Code)
	}
}
