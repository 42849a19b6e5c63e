package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/vlearn/apiserver/internal/services"
	"github.com/vlearn/apiserver/internal/store"
	"github.com/vlearn/apiserver/types"
)

// UserDataHandler is the access facade for per-user interaction state. It
// resolves the current user from the request context and forwards to the
// user-data service; callers never pass a user key themselves.
type UserDataHandler struct {
	userDataService *services.UserDataService
	userService     *services.UserService
}

// NewUserDataHandler constructs a handler with the provided dependencies.
func NewUserDataHandler(userDataService *services.UserDataService, userService *services.UserService) *UserDataHandler {
	return &UserDataHandler{
		userDataService: userDataService,
		userService:     userService,
	}
}

// UserDataRouter registers interaction-state routes on the given router.
// The router must be mounted behind OptionalAuth: anonymous requests resolve
// to the sentinel user instead of failing.
func UserDataRouter(r chi.Router, userDataService *services.UserDataService, userService *services.UserService) {
	handler := NewUserDataHandler(userDataService, userService)

	r.Get("/data", handler.GetData)
	r.Route("/bookmarks/{itemID}", func(r chi.Router) {
		r.Put("/", handler.AddBookmark)
		r.Delete("/", handler.RemoveBookmark)
	})
	r.Route("/completed/{itemID}", func(r chi.Router) {
		r.Put("/", handler.AddCompleted)
		r.Delete("/", handler.RemoveCompleted)
	})
	r.Route("/todo/{itemID}", func(r chi.Router) {
		r.Put("/", handler.AddTodo)
		r.Delete("/", handler.RemoveTodo)
	})
}

// AdminRouter registers administrative routes: user listing and per-user
// interaction-state reset. Mount behind RequireAuth.
func AdminRouter(r chi.Router, userDataService *services.UserDataService, userService *services.UserService) {
	handler := NewUserDataHandler(userDataService, userService)

	r.With(handler.requireAdmin).Get("/users", handler.ListUsers)
	r.With(handler.requireAdmin).Delete("/users/{username}/data", handler.ResetData)
}

// GetData returns the interaction-state snapshot for the resolved user.
func (h *UserDataHandler) GetData(w http.ResponseWriter, r *http.Request) {
	userKey := h.resolveUserKey(r.Context())

	data, err := h.userDataService.Get(r.Context(), userKey)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load user data")
		return
	}

	writeJSON(w, http.StatusOK, data)
}

func (h *UserDataHandler) AddBookmark(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.userDataService.AddBookmark)
}

func (h *UserDataHandler) RemoveBookmark(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.userDataService.RemoveBookmark)
}

func (h *UserDataHandler) AddCompleted(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.userDataService.AddCompleted)
}

func (h *UserDataHandler) RemoveCompleted(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.userDataService.RemoveCompleted)
}

func (h *UserDataHandler) AddTodo(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.userDataService.AddTodo)
}

func (h *UserDataHandler) RemoveTodo(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.userDataService.RemoveTodo)
}

// ListUsers returns all accounts. Admin only.
func (h *UserDataHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list users")
		return
	}
	if users == nil {
		users = []types.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

// ResetData empties all three interaction-state lists for the named user.
// Admin only.
func (h *UserDataHandler) ResetData(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(chi.URLParam(r, "username"))
	if username == "" {
		writeError(w, http.StatusBadRequest, "invalid username")
		return
	}

	if err := h.userDataService.Reset(r.Context(), username); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to reset user data")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *UserDataHandler) mutate(w http.ResponseWriter, r *http.Request, op func(context.Context, string, int) error) {
	itemID, err := parseIDParam(r, "itemID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	userKey := h.resolveUserKey(r.Context())
	if err := op(r.Context(), userKey, itemID); err != nil {
		if errors.Is(err, services.ErrValidation) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update user data")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// resolveUserKey maps the request to an interaction-state key. A missing or
// unresolvable identity falls back to the sentinel user rather than failing.
func (h *UserDataHandler) resolveUserKey(ctx context.Context) string {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return types.DefaultUserKey
	}

	user, err := h.userService.GetByID(ctx, userID)
	if err != nil {
		return types.DefaultUserKey
	}
	return user.Username
}

func (h *UserDataHandler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := userIDFromContext(r.Context())
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		user, err := h.userService.GetByID(r.Context(), userID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			writeError(w, http.StatusInternalServerError, "failed to load user")
			return
		}

		if !user.IsAdmin {
			writeError(w, http.StatusForbidden, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
