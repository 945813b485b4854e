package httpadapter

import (
	"context"
	"log/slog"

	"pollstream/contexts/polling/vote-engine/application/commands"
	"pollstream/contexts/polling/vote-engine/application/queries"
	"pollstream/contexts/polling/vote-engine/domain/entities"
	httptransport "pollstream/contexts/polling/vote-engine/transport/http"
)

type Handler struct {
	Ballots commands.BallotUseCase
	Polls   commands.PollUseCase
	Results queries.ResultsUseCase
	Logger  *slog.Logger
}

func (h Handler) CreatePollHandler(
	ctx context.Context,
	userID string,
	req httptransport.CreatePollRequest,
) (httptransport.PollView, error) {
	poll, err := h.Polls.CreatePoll(ctx, commands.CreatePollCommand{
		Question:    req.Question,
		Description: req.Description,
		OptionTexts: req.Options,
		PollType:    entities.PollType(req.PollType),
		CreatedBy:   userID,
		ExpiresAt:   req.ExpiresAt,
	})
	if err != nil {
		return httptransport.PollView{}, err
	}
	return PollViewFromEntity(poll), nil
}

func (h Handler) SubmitVoteHandler(
	ctx context.Context,
	pollID string,
	userID string,
	origin string,
	userAgent string,
	req httptransport.SubmitVoteRequest,
) (httptransport.VoteResponse, error) {
	result, err := h.Ballots.SubmitBallot(ctx, commands.SubmitBallotCommand{
		PollID:            pollID,
		UserID:            userID,
		SelectedOptionIDs: req.OptionIDs,
		Origin:            origin,
		UserAgent:         userAgent,
	})
	if err != nil {
		return httptransport.VoteResponse{}, err
	}
	return httptransport.VoteResponse{
		Poll:     PollViewFromEntity(result.Poll),
		Results:  ResultViewsFromEntities(result.Results),
		UserVote: result.UserVote,
	}, nil
}

func (h Handler) RetractVoteHandler(
	ctx context.Context,
	pollID string,
	userID string,
) (httptransport.ResultsResponse, error) {
	result, err := h.Ballots.RetractBallot(ctx, commands.RetractBallotCommand{
		PollID: pollID,
		UserID: userID,
	})
	if err != nil {
		return httptransport.ResultsResponse{}, err
	}
	return httptransport.ResultsResponse{
		Poll:    PollViewFromEntity(result.Poll),
		Results: ResultViewsFromEntities(result.Results),
	}, nil
}

func (h Handler) VoteStatusHandler(
	ctx context.Context,
	pollID string,
	userID string,
) (httptransport.VoteStatusResponse, error) {
	status, err := h.Results.VoteStatus(ctx, pollID, userID)
	if err != nil {
		return httptransport.VoteStatusResponse{}, err
	}
	return httptransport.VoteStatusResponse{
		HasVoted:        status.HasVoted,
		SelectedOptions: status.SelectedOptionIDs,
	}, nil
}

func (h Handler) ResultsHandler(ctx context.Context, pollID string) (httptransport.ResultsResponse, error) {
	view, err := h.Results.Results(ctx, pollID)
	if err != nil {
		return httptransport.ResultsResponse{}, err
	}
	poll := PollViewFromEntity(view.Poll)
	poll.Status = string(view.Status)
	return httptransport.ResultsResponse{
		Poll:    poll,
		Results: ResultViewsFromEntities(view.Results),
	}, nil
}

// PollViewFromEntity omits voter identities: option vote counts are public,
// the per-option voter sets are not.
func PollViewFromEntity(poll entities.Poll) httptransport.PollView {
	options := make([]httptransport.OptionView, 0, len(poll.Options))
	for _, option := range poll.Options {
		options = append(options, httptransport.OptionView{
			OptionID: option.OptionID,
			Text:     option.Text,
			Votes:    option.Votes,
		})
	}
	return httptransport.PollView{
		PollID:      poll.PollID,
		Question:    poll.Question,
		Description: poll.Description,
		PollType:    string(poll.PollType),
		Status:      string(poll.Status),
		Options:     options,
		TotalVotes:  poll.TotalVotes,
		CreatedBy:   poll.CreatedBy,
		ExpiresAt:   poll.ExpiresAt,
		CreatedAt:   poll.CreatedAt,
		Version:     poll.Version,
	}
}

func ResultViewsFromEntities(results []entities.OptionResult) []httptransport.OptionResultView {
	views := make([]httptransport.OptionResultView, 0, len(results))
	for _, result := range results {
		views = append(views, httptransport.OptionResultView{
			OptionID:   result.OptionID,
			Text:       result.Text,
			Votes:      result.Votes,
			Percentage: result.Percentage,
		})
	}
	return views
}
