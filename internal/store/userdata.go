package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vlearn/apiserver/types"
)

// Interaction-state list columns of the user_data table.
const (
	columnBookmarks = "bookmarks"
	columnCompleted = "completed"
	columnTodo      = "todo"
)

// UserDataRepository handles persistence for per-user interaction state.
//
// Every mutation is a single conditional UPDATE against the jsonb list
// columns, so concurrent requests for the same user never lose each other's
// writes and the completed/todo pair always changes atomically.
type UserDataRepository struct {
	db *sql.DB
}

func NewUserDataRepository(db *sql.DB) *UserDataRepository {
	return &UserDataRepository{db: db}
}

// Get returns the interaction state for userKey, creating an empty row on
// first access.
func (r *UserDataRepository) Get(ctx context.Context, userKey string) (types.UserData, error) {
	if err := r.ensure(ctx, userKey); err != nil {
		return types.UserData{}, err
	}

	const query = `
		SELECT id, user_id, bookmarks, completed, todo, updated_at
		FROM user_data
		WHERE user_id = $1`
	var data types.UserData
	var bookmarksJSON, completedJSON, todoJSON []byte
	err := r.db.QueryRowContext(ctx, query, userKey).Scan(
		&data.ID,
		&data.UserKey,
		&bookmarksJSON,
		&completedJSON,
		&todoJSON,
		&data.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.UserData{}, ErrNotFound
		}
		return types.UserData{}, err
	}

	data.Bookmarks = decodeIDList(bookmarksJSON)
	data.Completed = decodeIDList(completedJSON)
	data.Todo = decodeIDList(todoJSON)
	return data, nil
}

// AddBookmark appends itemID to the bookmark set. No-op when present.
func (r *UserDataRepository) AddBookmark(ctx context.Context, userKey string, itemID int) error {
	return r.addToList(ctx, userKey, columnBookmarks, itemID)
}

// RemoveBookmark removes itemID from the bookmark set. No-op when absent.
func (r *UserDataRepository) RemoveBookmark(ctx context.Context, userKey string, itemID int) error {
	return r.removeFromList(ctx, userKey, columnBookmarks, itemID)
}

// AddCompleted appends itemID to the completed set and removes it from the
// todo set in one statement: a reader never observes the completed add
// without the todo removal.
func (r *UserDataRepository) AddCompleted(ctx context.Context, userKey string, itemID int) error {
	if err := r.ensure(ctx, userKey); err != nil {
		return err
	}

	const query = `
		UPDATE user_data
		SET completed = CASE WHEN completed @> to_jsonb($2::int)
		                     THEN completed
		                     ELSE completed || to_jsonb($2::int) END,
		    todo = COALESCE((
		        SELECT jsonb_agg(elem)
		        FROM jsonb_array_elements(todo) elem
		        WHERE elem <> to_jsonb($2::int)
		    ), '[]'::jsonb),
		    updated_at = NOW()
		WHERE user_id = $1`
	_, err := r.db.ExecContext(ctx, query, userKey, itemID)
	return err
}

// RemoveCompleted removes itemID from the completed set. No-op when absent.
func (r *UserDataRepository) RemoveCompleted(ctx context.Context, userKey string, itemID int) error {
	return r.removeFromList(ctx, userKey, columnCompleted, itemID)
}

// AddTodo appends itemID to the todo set. It deliberately leaves the
// completed set alone, so an item completed earlier can sit on both lists.
func (r *UserDataRepository) AddTodo(ctx context.Context, userKey string, itemID int) error {
	return r.addToList(ctx, userKey, columnTodo, itemID)
}

// RemoveTodo removes itemID from the todo set. No-op when absent.
func (r *UserDataRepository) RemoveTodo(ctx context.Context, userKey string, itemID int) error {
	return r.removeFromList(ctx, userKey, columnTodo, itemID)
}

// Reset empties all three sets for userKey.
func (r *UserDataRepository) Reset(ctx context.Context, userKey string) error {
	if err := r.ensure(ctx, userKey); err != nil {
		return err
	}

	const query = `
		UPDATE user_data
		SET bookmarks = '[]'::jsonb,
		    completed = '[]'::jsonb,
		    todo = '[]'::jsonb,
		    updated_at = NOW()
		WHERE user_id = $1`
	_, err := r.db.ExecContext(ctx, query, userKey)
	return err
}

// ensure creates the user's row with empty lists on first use.
func (r *UserDataRepository) ensure(ctx context.Context, userKey string) error {
	const query = `
		INSERT INTO user_data (user_id, bookmarks, completed, todo, updated_at)
		VALUES ($1, '[]'::jsonb, '[]'::jsonb, '[]'::jsonb, NOW())
		ON CONFLICT (user_id) DO NOTHING`
	_, err := r.db.ExecContext(ctx, query, userKey)
	return err
}

// addToList appends itemID to one list column when absent. The membership
// check lives in the WHERE clause, so the append is atomic and idempotent.
func (r *UserDataRepository) addToList(ctx context.Context, userKey, column string, itemID int) error {
	if err := r.ensure(ctx, userKey); err != nil {
		return err
	}

	query := fmt.Sprintf(`
		UPDATE user_data
		SET %[1]s = %[1]s || to_jsonb($2::int),
		    updated_at = NOW()
		WHERE user_id = $1 AND NOT %[1]s @> to_jsonb($2::int)`, column)
	_, err := r.db.ExecContext(ctx, query, userKey, itemID)
	return err
}

// removeFromList drops itemID from one list column when present.
func (r *UserDataRepository) removeFromList(ctx context.Context, userKey, column string, itemID int) error {
	if err := r.ensure(ctx, userKey); err != nil {
		return err
	}

	query := fmt.Sprintf(`
		UPDATE user_data
		SET %[1]s = COALESCE((
		        SELECT jsonb_agg(elem)
		        FROM jsonb_array_elements(%[1]s) elem
		        WHERE elem <> to_jsonb($2::int)
		    ), '[]'::jsonb),
		    updated_at = NOW()
		WHERE user_id = $1 AND %[1]s @> to_jsonb($2::int)`, column)
	_, err := r.db.ExecContext(ctx, query, userKey, itemID)
	return err
}

func decodeIDList(raw []byte) []int {
	ids := []int{}
	_ = json.Unmarshal(raw, &ids)
	return ids
}
