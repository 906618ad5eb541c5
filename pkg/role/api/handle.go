package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	apperrors "github.com/tendant/simple-usermgmt/pkg/errors"
	"github.com/tendant/simple-usermgmt/pkg/role"
	"github.com/tendant/simple-usermgmt/pkg/store"
	"github.com/tendant/simple-usermgmt/pkg/utils"
)

type Role struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// User is the member view of a user. It never carries the password hash.
type User struct {
	ID          uuid.UUID `json:"id"`
	FirstName   string    `json:"firstName"`
	LastName    string    `json:"lastName"`
	Email       string    `json:"email"`
	PhoneNumber string    `json:"phoneNumber"`
}

type RoleDetailResponse struct {
	Success bool   `json:"success"`
	Role    Role   `json:"role"`
	Users   []User `json:"users"`
}

type CreateRoleRequest struct {
	Name string `json:"name"`
}

type RenameRoleRequest struct {
	ID   string `json:"id" validate:"required,uuid"`
	Name string `json:"name"`
}

// Handle serves the role registry over HTTP
type Handle struct {
	roleService *role.RoleService
}

func NewHandle(roleService *role.RoleService) *Handle {
	return &Handle{roleService: roleService}
}

// RegisterRoutes registers the role routes
func (h *Handle) RegisterRoutes(r chi.Router) {
	r.Route("/roles", func(r chi.Router) {
		r.Get("/", h.ListRoles)
		r.Post("/", h.CreateRole)
		r.Patch("/", h.RenameRole)
		r.Get("/users-in-roles/{id}", h.UsersInRole)
		r.Get("/{id}", h.GetRole)
		r.Delete("/{id}", h.DeleteRole)
	})
}

func (h *Handle) ListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.roleService.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, toRoles(roles))
}

// GetRole returns the role along with its members
func (h *Handle) GetRole(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	found, err := h.roleService.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	members, err := h.roleService.Members(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := RoleDetailResponse{Success: true, Users: toUsers(members)}
	copier.Copy(&resp.Role, &found)
	render.JSON(w, r, resp)
}

func (h *Handle) UsersInRole(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	members, err := h.roleService.Members(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, toUsers(members))
}

func (h *Handle) CreateRole(w http.ResponseWriter, r *http.Request) {
	var req CreateRoleRequest
	if !decode(w, r, &req) {
		return
	}

	if _, err := h.roleService.Create(r.Context(), req.Name); err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, apperrors.Ok())
}

func (h *Handle) RenameRole(w http.ResponseWriter, r *http.Request) {
	var req RenameRoleRequest
	if !decode(w, r, &req) {
		return
	}

	if _, err := h.roleService.Rename(r.Context(), uuid.MustParse(req.ID), req.Name); err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, apperrors.Ok())
}

func (h *Handle) DeleteRole(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.roleService.Delete(r.Context(), id); err != nil {
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
		writeError(w, r, apperrors.ValidationFailed("Invalid role id"))
		return uuid.Nil, false
	}
	return id, true
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.StatusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Error("Role request failed", "path", r.URL.Path, "error", err)
	}
	render.Status(r, status)
	render.JSON(w, r, apperrors.ResultFrom(err))
}

func toRoles(roles []store.Role) []Role {
	out := make([]Role, 0, len(roles))
	copier.Copy(&out, &roles)
	return out
}

func toUsers(users []store.User) []User {
	out := make([]User, 0, len(users))
	copier.Copy(&out, &users)
	return out
}
