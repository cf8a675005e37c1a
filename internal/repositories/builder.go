package repositories

import "github.com/Masterminds/squirrel"

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

var (
	userColumns    = []string{"id", "name", "image", "bio", "address", "phone_number"}
	messageColumns = []string{"id", "sender_id", "receiver_id", "content", "is_read", "created_at"}
)

// betweenPair matches messages exchanged between a and b in either direction.
func betweenPair(a, b int) squirrel.Or {
	return squirrel.Or{
		squirrel.Eq{"sender_id": a, "receiver_id": b},
		squirrel.Eq{"sender_id": b, "receiver_id": a},
	}
}
