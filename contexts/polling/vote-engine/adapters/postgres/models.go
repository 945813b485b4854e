package postgresadapter

import (
	"encoding/json"
	"time"

	"pollstream/contexts/polling/vote-engine/domain/entities"
)

type pollModel struct {
	ID          string    `gorm:"column:id;primaryKey"`
	Question    string    `gorm:"column:question"`
	Description string    `gorm:"column:description"`
	PollType    string    `gorm:"column:poll_type"`
	Status      string    `gorm:"column:status"`
	Options     []byte    `gorm:"column:options;type:jsonb"`
	TotalVotes  int       `gorm:"column:total_votes"`
	CreatedBy   string    `gorm:"column:created_by"`
	ExpiresAt   time.Time `gorm:"column:expires_at"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
	Version     int64     `gorm:"column:version"`
}

func (pollModel) TableName() string { return "polls" }

// optionDoc is the jsonb shape of one option inside the poll document. Options
// have no table of their own: the poll exclusively owns them, and keeping them
// in the document makes the version-guarded UPDATE cover the whole invariant.
type optionDoc struct {
	OptionID string   `json:"option_id"`
	Text     string   `json:"text"`
	Votes    int      `json:"votes"`
	Voters   []string `json:"voters"`
}

type ballotModel struct {
	PollID            string    `gorm:"column:poll_id;primaryKey"`
	UserID            string    `gorm:"column:user_id;primaryKey"`
	SelectedOptionIDs []byte    `gorm:"column:selected_option_ids;type:jsonb"`
	Origin            string    `gorm:"column:origin"`
	UserAgent         string    `gorm:"column:user_agent"`
	CreatedAt         time.Time `gorm:"column:created_at"`
}

func (ballotModel) TableName() string { return "ballots" }

type outboxModel struct {
	ID           string     `gorm:"column:id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload;type:jsonb"`
	Status       string     `gorm:"column:status"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string { return "ballot_outbox" }

func pollModelFromEntity(poll entities.Poll) (pollModel, error) {
	options, err := marshalOptions(poll.Options)
	if err != nil {
		return pollModel{}, err
	}
	return pollModel{
		ID:          poll.PollID,
		Question:    poll.Question,
		Description: poll.Description,
		PollType:    string(poll.PollType),
		Status:      string(poll.Status),
		Options:     options,
		TotalVotes:  poll.TotalVotes,
		CreatedBy:   poll.CreatedBy,
		ExpiresAt:   poll.ExpiresAt.UTC(),
		CreatedAt:   poll.CreatedAt.UTC(),
		UpdatedAt:   poll.UpdatedAt.UTC(),
		Version:     poll.Version,
	}, nil
}

func (m pollModel) toEntity() (entities.Poll, error) {
	var docs []optionDoc
	if len(m.Options) > 0 {
		if err := json.Unmarshal(m.Options, &docs); err != nil {
			return entities.Poll{}, err
		}
	}
	options := make([]entities.Option, 0, len(docs))
	for _, doc := range docs {
		options = append(options, entities.Option{
			OptionID: doc.OptionID,
			Text:     doc.Text,
			Votes:    doc.Votes,
			Voters:   doc.Voters,
		})
	}
	return entities.Poll{
		PollID:      m.ID,
		Question:    m.Question,
		Description: m.Description,
		PollType:    entities.PollType(m.PollType),
		Status:      entities.PollStatus(m.Status),
		Options:     options,
		TotalVotes:  m.TotalVotes,
		CreatedBy:   m.CreatedBy,
		ExpiresAt:   m.ExpiresAt,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
		Version:     m.Version,
	}, nil
}

func marshalOptions(options []entities.Option) ([]byte, error) {
	docs := make([]optionDoc, 0, len(options))
	for _, option := range options {
		docs = append(docs, optionDoc{
			OptionID: option.OptionID,
			Text:     option.Text,
			Votes:    option.Votes,
			Voters:   option.Voters,
		})
	}
	return json.Marshal(docs)
}

func ballotModelFromEntity(ballot entities.Ballot) (ballotModel, error) {
	selected, err := json.Marshal(ballot.SelectedOptionIDs)
	if err != nil {
		return ballotModel{}, err
	}
	return ballotModel{
		PollID:            ballot.PollID,
		UserID:            ballot.UserID,
		SelectedOptionIDs: selected,
		Origin:            ballot.Origin,
		UserAgent:         ballot.UserAgent,
		CreatedAt:         ballot.CreatedAt.UTC(),
	}, nil
}

func (m ballotModel) toEntity() (entities.Ballot, error) {
	var selected []string
	if len(m.SelectedOptionIDs) > 0 {
		if err := json.Unmarshal(m.SelectedOptionIDs, &selected); err != nil {
			return entities.Ballot{}, err
		}
	}
	return entities.Ballot{
		PollID:            m.PollID,
		UserID:            m.UserID,
		SelectedOptionIDs: selected,
		Origin:            m.Origin,
		UserAgent:         m.UserAgent,
		CreatedAt:         m.CreatedAt,
	}, nil
}
