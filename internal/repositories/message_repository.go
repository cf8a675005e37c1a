package repositories

import (
	"context"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"inbox-service/internal/inbox"
	"inbox-service/internal/models"
)

// MessageRepository defines interactions for direct messages.
type MessageRepository interface {
	ListMessages(ctx context.Context, userA, userB int, limit, offset int) ([]models.Message, error)
	ListMessagesForUser(ctx context.Context, userID int) ([]models.Message, error)
	CreateMessage(ctx context.Context, senderID, receiverID int, content string) (models.Message, error)
	MarkRead(ctx context.Context, senderID, receiverID int) (int64, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

func listMessagesQuery(userA, userB int, limit, offset int) squirrel.SelectBuilder {
	q := psql.Select(messageColumns...).
		From("messages").
		Where(betweenPair(userA, userB)).
		OrderBy("created_at ASC", "id ASC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	if offset > 0 {
		q = q.Offset(uint64(offset))
	}
	return q
}

// ListMessages returns one ascending page of the conversation between two users.
func (r *MessageRepo) ListMessages(ctx context.Context, userA, userB int, limit, offset int) ([]models.Message, error) {
	query, args, err := listMessagesQuery(userA, userB, limit, offset).ToSql()
	if err != nil {
		return nil, err
	}
	msgs := []models.Message{}
	if err := r.db.SelectContext(ctx, &msgs, query, args...); err != nil {
		return nil, inbox.Unavailable("list messages", err)
	}
	return msgs, nil
}

// ListMessagesForUser returns every message the user sent or received, newest first.
func (r *MessageRepo) ListMessagesForUser(ctx context.Context, userID int) ([]models.Message, error) {
	query, args, err := psql.Select(messageColumns...).
		From("messages").
		Where(squirrel.Or{squirrel.Eq{"sender_id": userID}, squirrel.Eq{"receiver_id": userID}}).
		OrderBy("created_at DESC", "id DESC").
		ToSql()
	if err != nil {
		return nil, err
	}
	msgs := []models.Message{}
	if err := r.db.SelectContext(ctx, &msgs, query, args...); err != nil {
		return nil, inbox.Unavailable("list user messages", err)
	}
	return msgs, nil
}

// CreateMessage stores an unread message.
func (r *MessageRepo) CreateMessage(ctx context.Context, senderID, receiverID int, content string) (models.Message, error) {
	query, args, err := psql.Insert("messages").
		Columns("sender_id", "receiver_id", "content", "is_read").
		Values(senderID, receiverID, content, false).
		Suffix("RETURNING id, sender_id, receiver_id, content, is_read, created_at").
		ToSql()
	if err != nil {
		return models.Message{}, err
	}
	var msg models.Message
	if err := r.db.QueryRowxContext(ctx, query, args...).StructScan(&msg); err != nil {
		return models.Message{}, inbox.Unavailable("create message", err)
	}
	return msg, nil
}

func markReadQuery(senderID, receiverID int) squirrel.UpdateBuilder {
	return psql.Update("messages").
		Set("is_read", true).
		Where(squirrel.Eq{"sender_id": senderID, "receiver_id": receiverID, "is_read": false})
}

// MarkRead flips every unread message from sender to receiver and reports
// how many rows changed.
func (r *MessageRepo) MarkRead(ctx context.Context, senderID, receiverID int) (int64, error) {
	query, args, err := markReadQuery(senderID, receiverID).ToSql()
	if err != nil {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, inbox.Unavailable("mark read", err)
	}
	count, err := res.RowsAffected()
	if err != nil {
		return 0, inbox.Unavailable("mark read", err)
	}
	return count, nil
}
