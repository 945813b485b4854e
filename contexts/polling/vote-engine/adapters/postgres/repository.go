package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"pollstream/contexts/polling/vote-engine/domain/entities"
	domainerrors "pollstream/contexts/polling/vote-engine/domain/errors"
	"pollstream/contexts/polling/vote-engine/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"
)

// Repository is the durable adapter behind PollRepository, BallotLedger and
// the outbox ports. The ballot table's composite primary key (poll_id,
// user_id) is the uniqueness gate; the poll table's version column backs
// CompareAndUpdatePoll through a version-guarded UPDATE.
type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

func (r *Repository) CreatePoll(ctx context.Context, poll entities.Poll) error {
	row, err := pollModelFromEntity(poll)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrConflict
		}
		return r.failure("polling_repo_create_poll_failed", err, "poll_id", strings.TrimSpace(poll.PollID))
	}
	return nil
}

func (r *Repository) GetPoll(ctx context.Context, pollID string) (entities.Poll, error) {
	var row pollModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(pollID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Poll{}, domainerrors.ErrPollNotFound
		}
		return entities.Poll{}, r.failure("polling_repo_get_poll_failed", err, "poll_id", strings.TrimSpace(pollID))
	}
	return row.toEntity()
}

// CompareAndUpdatePoll commits the poll document only if the stored version
// still matches expectedVersion. Zero affected rows means either the poll is
// gone or another writer committed first; the follow-up existence probe tells
// the two apart.
func (r *Repository) CompareAndUpdatePoll(
	ctx context.Context,
	expectedVersion int64,
	poll entities.Poll,
) (entities.Poll, error) {
	pollID := strings.TrimSpace(poll.PollID)
	options, err := marshalOptions(poll.Options)
	if err != nil {
		return entities.Poll{}, err
	}

	update := r.db.WithContext(ctx).Model(&pollModel{}).
		Where("id = ? AND version = ?", pollID, expectedVersion).
		Updates(map[string]any{
			"status":      string(poll.Status),
			"options":     options,
			"total_votes": poll.TotalVotes,
			"updated_at":  poll.UpdatedAt.UTC(),
			"version":     expectedVersion + 1,
		})
	if update.Error != nil {
		return entities.Poll{}, r.failure("polling_repo_cas_poll_failed", update.Error,
			"poll_id", pollID,
			"expected_version", expectedVersion,
		)
	}
	if update.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&pollModel{}).
			Where("id = ?", pollID).
			Count(&count).Error; err != nil {
			return entities.Poll{}, r.failure("polling_repo_cas_probe_failed", err, "poll_id", pollID)
		}
		if count == 0 {
			return entities.Poll{}, domainerrors.ErrPollNotFound
		}
		return entities.Poll{}, domainerrors.ErrConflict
	}

	committed := poll.Clone()
	committed.Version = expectedVersion + 1
	return committed, nil
}

func (r *Repository) ListExpiredActive(ctx context.Context, now time.Time, limit int) ([]entities.Poll, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []pollModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at < ?", string(entities.PollStatusActive), now.UTC()).
		Order("expires_at ASC").
		Limit(limit).
		Find(&rows).
		Error
	if err != nil {
		return nil, r.failure("polling_repo_list_expired_failed", err)
	}
	items := make([]entities.Poll, 0, len(rows))
	for _, row := range rows {
		poll, err := row.toEntity()
		if err != nil {
			return nil, err
		}
		items = append(items, poll)
	}
	return items, nil
}

func (r *Repository) RecordBallot(ctx context.Context, ballot entities.Ballot) error {
	row, err := ballotModelFromEntity(ballot)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrAlreadyVoted
		}
		return r.failure("polling_repo_record_ballot_failed", err,
			"poll_id", strings.TrimSpace(ballot.PollID),
			"user_id", strings.TrimSpace(ballot.UserID),
		)
	}
	return nil
}

func (r *Repository) FindBallot(ctx context.Context, pollID string, userID string) (entities.Ballot, bool, error) {
	var row ballotModel
	err := r.db.WithContext(ctx).
		Where("poll_id = ? AND user_id = ?", strings.TrimSpace(pollID), strings.TrimSpace(userID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Ballot{}, false, nil
		}
		return entities.Ballot{}, false, r.failure("polling_repo_find_ballot_failed", err,
			"poll_id", strings.TrimSpace(pollID),
			"user_id", strings.TrimSpace(userID),
		)
	}
	ballot, err := row.toEntity()
	if err != nil {
		return entities.Ballot{}, false, err
	}
	return ballot, true, nil
}

func (r *Repository) RemoveBallot(ctx context.Context, pollID string, userID string) error {
	del := r.db.WithContext(ctx).
		Where("poll_id = ? AND user_id = ?", strings.TrimSpace(pollID), strings.TrimSpace(userID)).
		Delete(&ballotModel{})
	if del.Error != nil {
		return r.failure("polling_repo_remove_ballot_failed", del.Error,
			"poll_id", strings.TrimSpace(pollID),
			"user_id", strings.TrimSpace(userID),
		)
	}
	if del.RowsAffected == 0 {
		return domainerrors.ErrBallotNotFound
	}
	return nil
}

func (r *Repository) AppendOutbox(ctx context.Context, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	outboxID := strings.TrimSpace(envelope.EventID)
	if outboxID == "" {
		outboxID = uuid.NewString()
	}
	createdAt := envelope.OccurredAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	row := outboxModel{
		ID:           outboxID,
		EventType:    strings.TrimSpace(envelope.EventType),
		PartitionKey: strings.TrimSpace(envelope.PartitionKey),
		Payload:      payload,
		Status:       outboxStatusPending,
		CreatedAt:    createdAt,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return nil
		}
		return r.failure("polling_repo_append_outbox_failed", err, "outbox_id", outboxID)
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).
		Error
	if err != nil {
		return nil, r.failure("polling_repo_list_outbox_failed", err)
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:     row.ID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      row.Payload,
			CreatedAt:    row.CreatedAt,
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	err := r.db.WithContext(ctx).Model(&outboxModel{}).
		Where("id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outboxStatusPublished,
			"published_at": publishedAt.UTC(),
		}).Error
	if err != nil {
		return r.failure("polling_repo_mark_outbox_failed", err, "outbox_id", strings.TrimSpace(outboxID))
	}
	return nil
}

// failure logs the driver error and surfaces it as a retriable storage fault;
// the caller owns the retry policy.
func (r *Repository) failure(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "polling/vote-engine",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("polling repository operation failed", fields...)
	return fmt.Errorf("%w: %v", domainerrors.ErrStorageUnavailable, err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// SystemClock satisfies ports.Clock with wall-clock time.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// UUIDGenerator satisfies ports.IDGenerator.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}
