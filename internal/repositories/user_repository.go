package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"inbox-service/internal/inbox"
	"inbox-service/internal/models"
)

// UserRepository abstracts user persistence.
type UserRepository interface {
	ListOtherUsers(ctx context.Context, currentUserID int) ([]models.User, error)
	GetUser(ctx context.Context, userID int) (models.User, error)
	UpdateProfile(ctx context.Context, userID int, update models.ProfileUpdate) (models.User, error)
}

// UserRepo is a sqlx implementation of UserRepository.
type UserRepo struct {
	db *sqlx.DB
}

// NewUserRepo constructs a UserRepo.
func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

// ListOtherUsers returns every user except the current one.
func (r *UserRepo) ListOtherUsers(ctx context.Context, currentUserID int) ([]models.User, error) {
	query, args, err := psql.Select(userColumns...).
		From("users").
		Where(squirrel.NotEq{"id": currentUserID}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, err
	}
	users := []models.User{}
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, inbox.Unavailable("list users", err)
	}
	return users, nil
}

// GetUser fetches a user by id.
func (r *UserRepo) GetUser(ctx context.Context, userID int) (models.User, error) {
	query, args, err := psql.Select(userColumns...).From("users").Where(squirrel.Eq{"id": userID}).ToSql()
	if err != nil {
		return models.User{}, err
	}
	var user models.User
	err = r.db.GetContext(ctx, &user, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, inbox.ErrNotFound
	}
	if err != nil {
		return models.User{}, inbox.Unavailable("get user", err)
	}
	return user, nil
}

func updateProfileQuery(userID int, update models.ProfileUpdate) (squirrel.UpdateBuilder, error) {
	if update.Empty() {
		return squirrel.UpdateBuilder{}, &inbox.ValidationError{Reason: "nothing to update"}
	}
	q := psql.Update("users").Where(squirrel.Eq{"id": userID})
	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return squirrel.UpdateBuilder{}, &inbox.ValidationError{Reason: "name is required"}
		}
		q = q.Set("name", name)
	}
	if update.Image != nil {
		q = q.Set("image", *update.Image)
	}
	if update.Bio != nil {
		q = q.Set("bio", *update.Bio)
	}
	if update.Address != nil {
		q = q.Set("address", *update.Address)
	}
	if update.PhoneNumber != nil {
		q = q.Set("phone_number", *update.PhoneNumber)
	}
	return q.Suffix("RETURNING " + strings.Join(userColumns, ", ")), nil
}

// UpdateProfile applies the non-nil fields of update.
func (r *UserRepo) UpdateProfile(ctx context.Context, userID int, update models.ProfileUpdate) (models.User, error) {
	builder, err := updateProfileQuery(userID, update)
	if err != nil {
		return models.User{}, err
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return models.User{}, err
	}
	var user models.User
	err = r.db.QueryRowxContext(ctx, query, args...).StructScan(&user)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, inbox.ErrNotFound
	}
	if err != nil {
		return models.User{}, inbox.Unavailable("update profile", err)
	}
	return user, nil
}
