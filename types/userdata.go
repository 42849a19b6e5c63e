package types

import "time"

// DefaultUserKey is the sentinel identity used for interaction state when
// no authenticated user is resolved. Anonymous reads and writes are keyed
// against it rather than rejected.
const DefaultUserKey = "default_user"

// UserData is the per-user interaction state: which catalog items the user
// has bookmarked, completed, or queued as todo.
//
// The three lists are sets of catalog-item IDs in insertion order. An ID
// never appears twice within a list. Completing an item removes it from the
// todo list; adding an item to todo does NOT remove it from completed, so an
// item can be on both lists when todo was added after completion. Bookmarks
// are independent of the other two lists.
//
// Item IDs reference catalog rows weakly: deleting a catalog item leaves its
// ID behind here, and readers skip IDs whose catalog lookup fails.
type UserData struct {
	// ID is the unique identifier of the row.
	ID int `json:"-" db:"id"`

	// UserKey is the username the state belongs to, or DefaultUserKey for
	// the anonymous sentinel. One row per key, created lazily on first use.
	UserKey string `json:"user_key" db:"user_id"`

	// Bookmarks is the set of bookmarked catalog-item IDs.
	Bookmarks []int `json:"bookmarks" db:"bookmarks"`

	// Completed is the set of completed catalog-item IDs.
	Completed []int `json:"completed" db:"completed"`

	// Todo is the set of queued catalog-item IDs.
	Todo []int `json:"todo" db:"todo"`

	// UpdatedAt is the timestamp of the most recent mutation.
	UpdatedAt time.Time `json:"-" db:"updated_at"`
}
