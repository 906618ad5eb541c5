package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	apperrors "github.com/tendant/simple-usermgmt/pkg/errors"
	"github.com/tendant/simple-usermgmt/pkg/store"
	"github.com/tendant/simple-usermgmt/pkg/user"
	"github.com/tendant/simple-usermgmt/pkg/utils"
)

// User is the public view of a user. It never carries the password hash.
type User struct {
	ID          uuid.UUID `json:"id"`
	FirstName   string    `json:"firstName"`
	LastName    string    `json:"lastName"`
	Email       string    `json:"email"`
	PhoneNumber string    `json:"phoneNumber"`
}

type CreateUserRequest struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
	Password    string `json:"password"`
}

type UpdateUserRequest struct {
	ID          string `json:"id" validate:"required,uuid"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
}

type ChangePasswordRequest struct {
	UserID      string `json:"userId" validate:"required,uuid"`
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type AssignRolesRequest struct {
	UserID  string   `json:"userId" validate:"required,uuid"`
	RoleIDs []string `json:"roleIds" validate:"dive,uuid"`
}

type Handle struct {
	userService *user.UserService
}

func NewHandle(userService *user.UserService) *Handle {
	return &Handle{userService: userService}
}

// RegisterRoutes registers the user routes. Reads are open to any caller that
// reaches the router; writes additionally pass through admin.
func (h *Handle) RegisterRoutes(r chi.Router, admin ...func(http.Handler) http.Handler) {
	r.Route("/users", func(r chi.Router) {
		r.Get("/", h.ListUsers)
		r.Get("/{id}", h.GetUser)
		r.Get("/{id}/roles", h.GetUserRoles)

		r.Group(func(r chi.Router) {
			r.Use(admin...)
			r.Post("/", h.CreateUser)
			r.Patch("/", h.UpdateUser)
			r.Post("/change-password", h.ChangePassword)
			r.Patch("/assign-roles", h.AssignRoles)
			r.Delete("/{id}", h.DeleteUser)
		})
	})
}

func (h *Handle) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]User, 0, len(users))
	copier.Copy(&out, &users)
	render.JSON(w, r, out)
}

func (h *Handle) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	u, err := h.userService.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, toUser(u))
}

// GetUserRoles returns the names of the roles the user holds
func (h *Handle) GetUserRoles(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	names, err := h.userService.RolesOf(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, names)
}

func (h *Handle) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if !decode(w, r, &req) {
		return
	}

	var profile user.Profile
	copier.Copy(&profile, &req)
	if _, err := h.userService.Create(r.Context(), profile, req.Password); err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, apperrors.Ok())
}

func (h *Handle) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req UpdateUserRequest
	if !decode(w, r, &req) {
		return
	}

	var profile user.Profile
	copier.Copy(&profile, &req)
	if _, err := h.userService.Update(r.Context(), uuid.MustParse(req.ID), profile); err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, apperrors.Ok())
}

func (h *Handle) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if !decode(w, r, &req) {
		return
	}

	err := h.userService.ChangePassword(r.Context(), uuid.MustParse(req.UserID), req.OldPassword, req.NewPassword)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, apperrors.Ok())
}

func (h *Handle) AssignRoles(w http.ResponseWriter, r *http.Request) {
	var req AssignRolesRequest
	if !decode(w, r, &req) {
		return
	}

	roleIDs := make([]uuid.UUID, 0, len(req.RoleIDs))
	for _, s := range req.RoleIDs {
		roleIDs = append(roleIDs, uuid.MustParse(s))
	}

	if _, err := h.userService.AssignRoles(r.Context(), uuid.MustParse(req.UserID), roleIDs); err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, apperrors.Ok())
}

func (h *Handle) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.userService.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, apperrors.Ok())
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := render.DecodeJSON(r.Body, v); err != nil {
		slog.Warn("Failed to decode request body", "path", r.URL.Path, "error", err)
		writeError(w, r, apperrors.ValidationFailed("Invalid request body"))
		return false
	}
	if msgs := utils.ValidateStruct(v); msgs != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, apperrors.Result{Success: false, Errors: msgs})
		return false
	}
	return true
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, apperrors.ValidationFailed("Invalid user id"))
		return uuid.Nil, false
	}
	return id, true
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.StatusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Error("User request failed", "path", r.URL.Path, "error", err)
	}
	render.Status(r, status)
	render.JSON(w, r, apperrors.ResultFrom(err))
}

func toUser(u store.User) User {
	var out User
	copier.Copy(&out, &u)
	return out
}
