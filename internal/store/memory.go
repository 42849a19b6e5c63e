package store

import (
	"context"
	"sync"
	"time"

	"github.com/vlearn/apiserver/types"
)

// MemoryUserDataRepository is an in-memory implementation of the user-data
// repository with the same transition semantics as the SQL one. It backs
// tests and single-process demo deployments that run without Postgres.
type MemoryUserDataRepository struct {
	mu     sync.Mutex
	nextID int
	states map[string]*types.UserData
}

func NewMemoryUserDataRepository() *MemoryUserDataRepository {
	return &MemoryUserDataRepository{
		nextID: 1,
		states: make(map[string]*types.UserData),
	}
}

func (r *MemoryUserDataRepository) Get(ctx context.Context, userKey string) (types.UserData, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state := r.ensure(userKey)
	snapshot := types.UserData{
		ID:        state.ID,
		UserKey:   state.UserKey,
		Bookmarks: append([]int{}, state.Bookmarks...),
		Completed: append([]int{}, state.Completed...),
		Todo:      append([]int{}, state.Todo...),
		UpdatedAt: state.UpdatedAt,
	}
	return snapshot, nil
}

func (r *MemoryUserDataRepository) AddBookmark(ctx context.Context, userKey string, itemID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	state := r.ensure(userKey)
	state.Bookmarks = appendAbsent(state.Bookmarks, itemID)
	state.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryUserDataRepository) RemoveBookmark(ctx context.Context, userKey string, itemID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	state := r.ensure(userKey)
	state.Bookmarks = removePresent(state.Bookmarks, itemID)
	state.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryUserDataRepository) AddCompleted(ctx context.Context, userKey string, itemID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Both changes happen under one lock hold, matching the SQL
	// implementation's single-statement atomicity.
	state := r.ensure(userKey)
	state.Completed = appendAbsent(state.Completed, itemID)
	state.Todo = removePresent(state.Todo, itemID)
	state.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryUserDataRepository) RemoveCompleted(ctx context.Context, userKey string, itemID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	state := r.ensure(userKey)
	state.Completed = removePresent(state.Completed, itemID)
	state.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryUserDataRepository) AddTodo(ctx context.Context, userKey string, itemID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Deliberately leaves the completed list alone.
	state := r.ensure(userKey)
	state.Todo = appendAbsent(state.Todo, itemID)
	state.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryUserDataRepository) RemoveTodo(ctx context.Context, userKey string, itemID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	state := r.ensure(userKey)
	state.Todo = removePresent(state.Todo, itemID)
	state.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryUserDataRepository) Reset(ctx context.Context, userKey string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	state := r.ensure(userKey)
	state.Bookmarks = []int{}
	state.Completed = []int{}
	state.Todo = []int{}
	state.UpdatedAt = time.Now()
	return nil
}

// ensure must be called with the lock held.
func (r *MemoryUserDataRepository) ensure(userKey string) *types.UserData {
	if state, ok := r.states[userKey]; ok {
		return state
	}
	state := &types.UserData{
		ID:        r.nextID,
		UserKey:   userKey,
		Bookmarks: []int{},
		Completed: []int{},
		Todo:      []int{},
		UpdatedAt: time.Now(),
	}
	r.nextID++
	r.states[userKey] = state
	return state
}

func appendAbsent(list []int, itemID int) []int {
	for _, id := range list {
		if id == itemID {
			return list
		}
	}
	return append(list, itemID)
}

func removePresent(list []int, itemID int) []int {
	for i, id := range list {
		if id == itemID {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}
