package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	httpadapter "pollstream/contexts/polling/vote-engine/adapters/http"
	votingerrors "pollstream/contexts/polling/vote-engine/domain/errors"
	votinghttp "pollstream/contexts/polling/vote-engine/transport/http"
	"pollstream/contexts/polling/vote-engine/ports"
)

func (s *Server) handleCreatePoll(w http.ResponseWriter, r *http.Request) {
	userID := requireUserID(w, r)
	if userID == "" {
		return
	}

	var req votinghttp.CreatePollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeVotingError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.voting.Handler.CreatePollHandler(r.Context(), userID, req)
	if err != nil {
		writeVotingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleGetPoll(w http.ResponseWriter, r *http.Request) {
	resp, err := s.voting.Handler.ResultsHandler(r.Context(), r.PathValue("poll_id"))
	if err != nil {
		writeVotingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSubmitVote(w http.ResponseWriter, r *http.Request) {
	userID := requireUserID(w, r)
	if userID == "" {
		return
	}

	var req votinghttp.SubmitVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeVotingError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.voting.Handler.SubmitVoteHandler(
		r.Context(),
		r.PathValue("poll_id"),
		userID,
		resolveClientIP(r),
		r.UserAgent(),
		req,
	)
	if err != nil {
		writeVotingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRetractVote(w http.ResponseWriter, r *http.Request) {
	userID := requireUserID(w, r)
	if userID == "" {
		return
	}

	resp, err := s.voting.Handler.RetractVoteHandler(r.Context(), r.PathValue("poll_id"), userID)
	if err != nil {
		writeVotingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleVoteStatus(w http.ResponseWriter, r *http.Request) {
	userID := requireUserID(w, r)
	if userID == "" {
		return
	}

	resp, err := s.voting.Handler.VoteStatusHandler(r.Context(), r.PathValue("poll_id"), userID)
	if err != nil {
		writeVotingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	resp, err := s.voting.Handler.ResultsHandler(r.Context(), r.PathValue("poll_id"))
	if err != nil {
		writeVotingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handlePollLive streams tally updates for one poll over server-sent events.
// The first event is the current snapshot; every later event is a committed
// ballot mutation fanned out through the hub. The subscription lasts exactly
// as long as the request.
func (s *Server) handlePollLive(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeVotingError(w, http.StatusInternalServerError, "streaming_unsupported", "response writer does not support streaming")
		return
	}

	pollID := r.PathValue("poll_id")
	// Subscribe before reading the snapshot: a ballot committing while the
	// snapshot is read must still reach this viewer.
	sub := s.hub.Subscribe(pollID)
	defer s.hub.Unsubscribe(sub)

	snapshot, err := s.voting.Handler.ResultsHandler(r.Context(), pollID)
	if err != nil {
		writeVotingDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	writeTallyEvent(w, votinghttp.TallyEvent{
		PollID:  pollID,
		Poll:    snapshot.Poll,
		Results: snapshot.Results,
	})
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case update, open := <-sub.Updates():
			if !open {
				return
			}
			writeTallyEvent(w, tallyEventFromUpdate(update))
			flusher.Flush()
		}
	}
}

func writeTallyEvent(w http.ResponseWriter, event votinghttp.TallyEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: voteUpdate\ndata: %s\n\n", payload)
}

func tallyEventFromUpdate(update ports.TallyUpdate) votinghttp.TallyEvent {
	return votinghttp.TallyEvent{
		PollID:  update.PollID,
		Poll:    httpadapter.PollViewFromEntity(update.Poll),
		Results: httpadapter.ResultViewsFromEntities(update.Results),
	}
}

func requireUserID(w http.ResponseWriter, r *http.Request) string {
	userID := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if userID == "" {
		writeVotingError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
	}
	return userID
}

func writeVotingDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, votingerrors.ErrInvalidPollInput),
		errors.Is(err, votingerrors.ErrInvalidSelection),
		errors.Is(err, votingerrors.ErrTooManySelections),
		errors.Is(err, votingerrors.ErrInvalidOption):
		writeVotingError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, votingerrors.ErrPollNotFound):
		writeVotingError(w, http.StatusNotFound, "poll_not_found", err.Error())
	case errors.Is(err, votingerrors.ErrBallotNotFound):
		writeVotingError(w, http.StatusNotFound, "ballot_not_found", err.Error())
	case errors.Is(err, votingerrors.ErrPollClosed):
		writeVotingError(w, http.StatusConflict, "poll_closed", err.Error())
	case errors.Is(err, votingerrors.ErrAlreadyVoted):
		writeVotingError(w, http.StatusConflict, "already_voted", err.Error())
	case errors.Is(err, votingerrors.ErrConflict),
		errors.Is(err, votingerrors.ErrStorageUnavailable):
		writeVotingError(w, http.StatusServiceUnavailable, "storage_unavailable", err.Error())
	default:
		writeVotingError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeVotingError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, votinghttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}
