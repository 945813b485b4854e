package http

import "time"

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type CreatePollRequest struct {
	Question    string    `json:"question"`
	Description string    `json:"description,omitempty"`
	Options     []string  `json:"options"`
	PollType    string    `json:"poll_type,omitempty"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type OptionView struct {
	OptionID string `json:"option_id"`
	Text     string `json:"text"`
	Votes    int    `json:"votes"`
}

type PollView struct {
	PollID      string       `json:"poll_id"`
	Question    string       `json:"question"`
	Description string       `json:"description,omitempty"`
	PollType    string       `json:"poll_type"`
	Status      string       `json:"status"`
	Options     []OptionView `json:"options"`
	TotalVotes  int          `json:"total_votes"`
	CreatedBy   string       `json:"created_by,omitempty"`
	ExpiresAt   time.Time    `json:"expires_at"`
	CreatedAt   time.Time    `json:"created_at"`
	Version     int64        `json:"version"`
}

type OptionResultView struct {
	OptionID   string  `json:"option_id"`
	Text       string  `json:"text"`
	Votes      int     `json:"votes"`
	Percentage float64 `json:"percentage"`
}

type SubmitVoteRequest struct {
	OptionIDs []string `json:"option_ids"`
}

type VoteResponse struct {
	Poll     PollView           `json:"poll"`
	Results  []OptionResultView `json:"results"`
	UserVote []string           `json:"user_vote"`
}

type VoteStatusResponse struct {
	HasVoted        bool     `json:"has_voted"`
	SelectedOptions []string `json:"selected_options"`
}

type ResultsResponse struct {
	Poll    PollView           `json:"poll"`
	Results []OptionResultView `json:"results"`
}

// TallyEvent is the payload fanned out to live viewers of a poll after every
// committed ballot mutation.
type TallyEvent struct {
	PollID  string             `json:"poll_id"`
	Poll    PollView           `json:"poll"`
	Results []OptionResultView `json:"results"`
}
