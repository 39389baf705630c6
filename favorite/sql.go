package favorite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/semanticallynull/carpool-backend/internal/apperr"
	"github.com/semanticallynull/carpool-backend/internal/database"
)

var (
	ErrNotFound  = apperr.New(apperr.NotFound, "FAVORITE_NOT_FOUND", "Favorite search not found")
	ErrNotOwner  = apperr.New(apperr.Authorization, "NOT_FAVORITE_OWNER", "You can only manage your own favorite searches")
	ErrDuplicate = apperr.New(apperr.Conflict, "DUPLICATE_FAVORITE", "You already saved a favorite for this route")
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

const columns = `id, user_id, label, origin, destination, preferred_time, created_at, updated_at`

func (r *Repository) Create(ctx context.Context, userID string, n NewFavorite) (Favorite, error) {
	if err := n.Validate(); err != nil {
		return Favorite{}, err
	}

	var preferred *string
	if n.PreferredTime != "" {
		preferred = &n.PreferredTime
	}

	var f Favorite
	err := r.db.GetContext(ctx, &f, createQuery, uuid.New(), userID,
		strings.TrimSpace(n.Label), strings.TrimSpace(n.Origin), strings.TrimSpace(n.Destination), preferred)
	if database.IsUniqueViolation(err) {
		return Favorite{}, ErrDuplicate.Wrap(err)
	}
	if err != nil {
		return Favorite{}, fmt.Errorf("create favorite: %w", err)
	}
	return f, nil
}

const createQuery = `
INSERT INTO favorite_searches (id, user_id, label, origin, destination, preferred_time)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + columns

func (r *Repository) ListByUser(ctx context.Context, userID string) ([]Favorite, error) {
	favorites := []Favorite{}
	if err := r.db.SelectContext(ctx, &favorites, listByUserQuery, userID); err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	return favorites, nil
}

const listByUserQuery = `SELECT ` + columns + ` FROM favorite_searches WHERE user_id = $1 ORDER BY created_at DESC`

// Get returns the favorite id if it belongs to userID.
func (r *Repository) Get(ctx context.Context, id uuid.UUID, userID string) (Favorite, error) {
	var f Favorite
	err := r.db.GetContext(ctx, &f, getByIDQuery, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Favorite{}, ErrNotFound
	}
	if err != nil {
		return Favorite{}, fmt.Errorf("get favorite: %w", err)
	}
	if f.UserID != userID {
		return Favorite{}, ErrNotOwner
	}
	return f, nil
}

const getByIDQuery = `SELECT ` + columns + ` FROM favorite_searches WHERE id = $1`

func (r *Repository) Delete(ctx context.Context, id uuid.UUID, userID string) error {
	if _, err := r.Get(ctx, id, userID); err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, deleteQuery, id, userID); err != nil {
		return fmt.Errorf("delete favorite: %w", err)
	}
	return nil
}

const deleteQuery = `DELETE FROM favorite_searches WHERE id = $1 AND user_id = $2`
