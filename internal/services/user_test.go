package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vlearn/apiserver/internal/services"
	"github.com/vlearn/apiserver/internal/store"
	"github.com/vlearn/apiserver/types"
)

// fakeUserRepo is an in-memory services.UserRepository.
type fakeUserRepo struct {
	mu     sync.Mutex
	nextID int
	users  map[int]types.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{nextID: 1, users: make(map[int]types.User)}
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id int) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (r *fakeUserRepo) GetByUsername(ctx context.Context, username string) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Username == username {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *fakeUserRepo) List(ctx context.Context) ([]types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	users := make([]types.User, 0, len(r.users))
	for id := 1; id < r.nextID; id++ {
		if user, ok := r.users[id]; ok {
			users = append(users, user)
		}
	}
	return users, nil
}

func (r *fakeUserRepo) Create(ctx context.Context, user types.User) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return types.User{}, store.ErrDuplicate
		}
	}
	user.ID = r.nextID
	user.CreatedAt = time.Now()
	r.nextID++
	r.users[user.ID] = user
	return user, nil
}

func (r *fakeUserRepo) UpdateLastLogin(ctx context.Context, id int, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return store.ErrNotFound
	}
	user.LastLogin = &at
	r.users[id] = user
	return nil
}

func (r *fakeUserRepo) UpdateProfile(ctx context.Context, id int, email, fullName string) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	if email != "" {
		user.Email = email
	}
	if fullName != "" {
		user.FullName = fullName
	}
	r.users[id] = user
	return user, nil
}

func (r *fakeUserRepo) UpdatePasswordHash(ctx context.Context, id int, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return store.ErrNotFound
	}
	user.PasswordHash = passwordHash
	r.users[id] = user
	return nil
}

func TestRegisterAndDuplicate(t *testing.T) {
	svc := services.NewUserService(newFakeUserRepo())
	ctx := context.Background()

	user, err := svc.Register(ctx, "alice", "a@x.com", "secret1", "Alice")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.ID == 0 {
		t.Fatalf("expected assigned user ID")
	}
	if user.IsAdmin {
		t.Fatalf("new users must not be admin")
	}

	if _, err := svc.Register(ctx, "alice", "other@x.com", "secret2", ""); !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("duplicate username = %v, want ErrDuplicate", err)
	}
	if _, err := svc.Register(ctx, "alice2", "a@x.com", "secret2", ""); !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("duplicate email = %v, want ErrDuplicate", err)
	}
}

func TestRegisterRequiresFields(t *testing.T) {
	svc := services.NewUserService(newFakeUserRepo())
	ctx := context.Background()

	cases := []struct {
		name     string
		username string
		email    string
		password string
	}{
		{"missing username", "", "a@x.com", "secret1"},
		{"missing email", "alice", "", "secret1"},
		{"missing password", "alice", "a@x.com", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Register(ctx, tc.username, tc.email, tc.password, ""); !errors.Is(err, services.ErrValidation) {
				t.Fatalf("register = %v, want validation error", err)
			}
		})
	}
}

func TestDefaultAdminAuthentication(t *testing.T) {
	repo := newFakeUserRepo()
	svc := services.NewUserService(repo)
	ctx := context.Background()

	if err := svc.EnsureDefaultAdmin(ctx); err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	// Seeding twice must not create a second account.
	if err := svc.EnsureDefaultAdmin(ctx); err != nil {
		t.Fatalf("seed admin again: %v", err)
	}
	users, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(users) != 1 {
		t.Fatalf("got %d users after double seed, want 1", len(users))
	}

	admin, err := svc.Authenticate(ctx, "admin", "admin123")
	if err != nil {
		t.Fatalf("authenticate admin: %v", err)
	}
	if !admin.IsAdmin {
		t.Fatalf("seeded admin must have admin flag")
	}
	if admin.LastLogin == nil {
		t.Fatalf("authenticate must record last login")
	}

	if _, err := svc.Authenticate(ctx, "admin", "wrong"); !errors.Is(err, services.ErrInvalidCredentials) {
		t.Fatalf("wrong password = %v, want ErrInvalidCredentials", err)
	}
	if _, err := svc.Authenticate(ctx, "nobody", "admin123"); !errors.Is(err, services.ErrInvalidCredentials) {
		t.Fatalf("unknown user = %v, want ErrInvalidCredentials", err)
	}
}

func TestChangePassword(t *testing.T) {
	svc := services.NewUserService(newFakeUserRepo())
	ctx := context.Background()

	user, err := svc.Register(ctx, "alice", "a@x.com", "secret1", "Alice")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := svc.ChangePassword(ctx, user.ID, "wrong", "secret2"); !errors.Is(err, services.ErrInvalidCredentials) {
		t.Fatalf("change with wrong password = %v, want ErrInvalidCredentials", err)
	}
	if err := svc.ChangePassword(ctx, user.ID, "secret1", "secret2"); err != nil {
		t.Fatalf("change password: %v", err)
	}

	if _, err := svc.Authenticate(ctx, "alice", "secret1"); !errors.Is(err, services.ErrInvalidCredentials) {
		t.Fatalf("old password still valid")
	}
	if _, err := svc.Authenticate(ctx, "alice", "secret2"); err != nil {
		t.Fatalf("authenticate with new password: %v", err)
	}
}

func TestUpdateProfileKeepsUnsetFields(t *testing.T) {
	svc := services.NewUserService(newFakeUserRepo())
	ctx := context.Background()

	user, err := svc.Register(ctx, "alice", "a@x.com", "secret1", "Alice")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	updated, err := svc.UpdateProfile(ctx, user.ID, "", "Alice Liddell")
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if updated.Email != "a@x.com" {
		t.Fatalf("email = %q, want unchanged", updated.Email)
	}
	if updated.FullName != "Alice Liddell" {
		t.Fatalf("full name = %q", updated.FullName)
	}
}
