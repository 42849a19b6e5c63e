package services

import (
	"context"
	"fmt"

	"github.com/vlearn/apiserver/types"
)

// UserDataRepository defines persistence operations for interaction state.
// Implementations must make each mutation atomic: AddCompleted's completed
// insert and todo removal either both happen or neither does.
type UserDataRepository interface {
	Get(ctx context.Context, userKey string) (types.UserData, error)
	AddBookmark(ctx context.Context, userKey string, itemID int) error
	RemoveBookmark(ctx context.Context, userKey string, itemID int) error
	AddCompleted(ctx context.Context, userKey string, itemID int) error
	RemoveCompleted(ctx context.Context, userKey string, itemID int) error
	AddTodo(ctx context.Context, userKey string, itemID int) error
	RemoveTodo(ctx context.Context, userKey string, itemID int) error
	Reset(ctx context.Context, userKey string) error
}

// UserDataService encapsulates the interaction-state transitions. All
// operations are idempotent: adding a present item or removing an absent
// one is a no-op, never an error.
//
// The lists obey two rules carried over from the original platform:
// completing an item removes it from todo, but adding an item to todo does
// not remove it from completed. Bookmarks are independent of both.
type UserDataService struct {
	repo UserDataRepository
}

func NewUserDataService(repo UserDataRepository) *UserDataService {
	return &UserDataService{repo: repo}
}

// Get returns the current interaction-state snapshot for userKey, creating
// empty state on first access.
func (s *UserDataService) Get(ctx context.Context, userKey string) (types.UserData, error) {
	return s.repo.Get(ctx, userKey)
}

func (s *UserDataService) AddBookmark(ctx context.Context, userKey string, itemID int) error {
	if err := validateItemID(itemID); err != nil {
		return err
	}
	return s.repo.AddBookmark(ctx, userKey, itemID)
}

func (s *UserDataService) RemoveBookmark(ctx context.Context, userKey string, itemID int) error {
	if err := validateItemID(itemID); err != nil {
		return err
	}
	return s.repo.RemoveBookmark(ctx, userKey, itemID)
}

func (s *UserDataService) AddCompleted(ctx context.Context, userKey string, itemID int) error {
	if err := validateItemID(itemID); err != nil {
		return err
	}
	return s.repo.AddCompleted(ctx, userKey, itemID)
}

func (s *UserDataService) RemoveCompleted(ctx context.Context, userKey string, itemID int) error {
	if err := validateItemID(itemID); err != nil {
		return err
	}
	return s.repo.RemoveCompleted(ctx, userKey, itemID)
}

func (s *UserDataService) AddTodo(ctx context.Context, userKey string, itemID int) error {
	if err := validateItemID(itemID); err != nil {
		return err
	}
	return s.repo.AddTodo(ctx, userKey, itemID)
}

func (s *UserDataService) RemoveTodo(ctx context.Context, userKey string, itemID int) error {
	if err := validateItemID(itemID); err != nil {
		return err
	}
	return s.repo.RemoveTodo(ctx, userKey, itemID)
}

// Reset empties all three lists. Authorization is the caller's concern.
func (s *UserDataService) Reset(ctx context.Context, userKey string) error {
	return s.repo.Reset(ctx, userKey)
}

func validateItemID(itemID int) error {
	if itemID < 1 {
		return fmt.Errorf("%w: item id must be positive", ErrValidation)
	}
	return nil
}
