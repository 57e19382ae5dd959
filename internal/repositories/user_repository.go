package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"cypher-service/internal/domain"
	"cypher-service/internal/models"
)

// UserRepository abstracts identity persistence.
type UserRepository interface {
	Create(ctx context.Context, user models.User) error
	GetByID(ctx context.Context, id string) (models.User, error)
	GetByTag(ctx context.Context, cypherTag string) (models.User, error)
	UpdateProfile(ctx context.Context, id, bio, avatar string, notificationsEnabled bool) error
	Search(ctx context.Context, prefix string, limit int) ([]models.User, error)
	SetOnline(ctx context.Context, id string, online bool) error
	SetRole(ctx context.Context, id string, role models.UserRole) error
	SetGrants(ctx context.Context, id string, freeChannels, freeGroups int) error
	ConsumeFreeGrant(ctx context.Context, id string, kind models.ConversationType) (bool, error)
	FilterNotifiable(ctx context.Context, ids []string) ([]string, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

// UserRepo is the sqlx implementation of UserRepository.
type UserRepo struct {
	db *sqlx.DB
}

// NewUserRepo constructs a UserRepo.
func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

const userColumns = `id, cypher_tag, password_hash, role, bio, avatar,
    notifications_enabled, online, free_channels, free_groups,
    channel_payment_verified, group_payment_verified, created_at, updated_at`

// Create inserts a new user; a duplicate cypherTag is a Conflict.
func (r *UserRepo) Create(ctx context.Context, user models.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, cypher_tag, password_hash, role) VALUES ($1, $2, $3, $4)`,
		user.ID, user.CypherTag, user.PasswordHash, user.Role)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, domain.ErrNotFound
	}
	return user, err
}

// GetByTag fetches a user by their unique cypherTag.
func (r *UserRepo) GetByTag(ctx context.Context, cypherTag string) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE cypher_tag=$1`, cypherTag)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, domain.ErrNotFound
	}
	return user, err
}

// UpdateProfile replaces the mutable profile fields.
func (r *UserRepo) UpdateProfile(ctx context.Context, id, bio, avatar string, notificationsEnabled bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET bio=$2, avatar=$3, notifications_enabled=$4, updated_at=NOW() WHERE id=$1`,
		id, bio, avatar, notificationsEnabled)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// Search performs incremental cypherTag prefix search.
func (r *UserRepo) Search(ctx context.Context, prefix string, limit int) ([]models.User, error) {
	var users []models.User
	pattern := strings.ReplaceAll(strings.ReplaceAll(prefix, "%", `\%`), "_", `\_`) + "%"
	err := r.db.SelectContext(ctx, &users,
		`SELECT `+userColumns+` FROM users WHERE cypher_tag ILIKE $1 ORDER BY cypher_tag ASC LIMIT $2`,
		pattern, limit)
	return users, err
}

// SetOnline updates the online-status flag.
func (r *UserRepo) SetOnline(ctx context.Context, id string, online bool) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET online=$2 WHERE id=$1`, id, online)
	return err
}

// SetRole changes the platform role; employee operation.
func (r *UserRepo) SetRole(ctx context.Context, id string, role models.UserRole) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET role=$2, updated_at=NOW() WHERE id=$1`, id, role)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// SetGrants sets the free-tier creation counters; employee operation.
func (r *UserRepo) SetGrants(ctx context.Context, id string, freeChannels, freeGroups int) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET free_channels=$2, free_groups=$3, updated_at=NOW() WHERE id=$1`,
		id, freeChannels, freeGroups)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// ConsumeFreeGrant atomically decrements the matching grant counter and
// reports whether a grant was available.
func (r *UserRepo) ConsumeFreeGrant(ctx context.Context, id string, kind models.ConversationType) (bool, error) {
	var query string
	switch kind {
	case models.ConversationChannel:
		query = `UPDATE users SET free_channels = free_channels - 1 WHERE id=$1 AND free_channels > 0`
	case models.ConversationGroup:
		query = `UPDATE users SET free_groups = free_groups - 1 WHERE id=$1 AND free_groups > 0`
	default:
		return false, nil
	}
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// FilterNotifiable returns the subset of ids whose users opted in to
// notifications.
func (r *UserRepo) FilterNotifiable(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var out []string
	err := r.db.SelectContext(ctx, &out,
		`SELECT id FROM users WHERE id = ANY($1) AND notifications_enabled = TRUE`,
		pq.Array(ids))
	return out, err
}

// Delete removes a user record; employee operation.
func (r *UserRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id=$1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// Count returns the total number of users.
func (r *UserRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM users`)
	return count, err
}
