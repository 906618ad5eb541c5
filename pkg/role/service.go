package role

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	apperrors "github.com/tendant/simple-usermgmt/pkg/errors"
	"github.com/tendant/simple-usermgmt/pkg/events"
	"github.com/tendant/simple-usermgmt/pkg/membership"
	"github.com/tendant/simple-usermgmt/pkg/metrics"
	"github.com/tendant/simple-usermgmt/pkg/store"
)

// RoleService provides methods for role management
type RoleService struct {
	store       store.Store
	coordinator *membership.Coordinator
	publisher   events.Publisher
}

type Option func(*RoleService)

// WithPublisher sets the lifecycle event publisher
func WithPublisher(p events.Publisher) Option {
	return func(s *RoleService) {
		s.publisher = p
	}
}

func NewRoleService(s store.Store, coordinator *membership.Coordinator, opts ...Option) *RoleService {
	svc := &RoleService{
		store:       s,
		coordinator: coordinator,
		publisher:   events.NoopPublisher{},
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func (s *RoleService) List(ctx context.Context) ([]store.Role, error) {
	roles, err := s.store.ListRoles(ctx)
	if err != nil {
		return nil, apperrors.OperationFailed(err, "Could not list roles")
	}
	return roles, nil
}

func (s *RoleService) Get(ctx context.Context, id uuid.UUID) (store.Role, error) {
	role, err := s.store.GetRole(ctx, id)
	if err != nil {
		return store.Role{}, roleError(err, id, "Could not load role")
	}
	return role, nil
}

// Members returns the users currently holding the role
func (s *RoleService) Members(ctx context.Context, id uuid.UUID) ([]store.User, error) {
	users, err := s.store.UsersInRole(ctx, id)
	if err != nil {
		return nil, roleError(err, id, "Could not load role members")
	}
	return users, nil
}

// Create adds a new role. Names are unique regardless of case.
func (s *RoleService) Create(ctx context.Context, name string) (role store.Role, err error) {
	defer func() { record("create", err) }()

	name = strings.TrimSpace(name)
	if name == "" {
		return store.Role{}, apperrors.ValidationFailed("You need to provide a name for the role.")
	}

	if err := s.ensureNameFree(ctx, name, uuid.Nil); err != nil {
		return store.Role{}, err
	}

	role, err = s.store.CreateRole(ctx, name)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return store.Role{}, apperrors.Conflict("There is already a role with that name.")
		}
		return store.Role{}, apperrors.OperationFailed(err, "An error occurred while creating the role.")
	}

	slog.Info("Role created", "roleId", role.ID, "name", role.Name)
	events.Emit(ctx, s.publisher, events.New(events.RoleCreated, role.ID, map[string]string{"name": role.Name}))
	return role, nil
}

// Rename changes the name of an existing role in place
func (s *RoleService) Rename(ctx context.Context, id uuid.UUID, newName string) (role store.Role, err error) {
	defer func() { record("rename", err) }()

	existing, err := s.store.GetRole(ctx, id)
	if err != nil {
		return store.Role{}, roleError(err, id, "Could not update the role")
	}

	newName = strings.TrimSpace(newName)
	if newName == "" {
		return store.Role{}, apperrors.ValidationFailed("You need to provide a name for the role.")
	}

	if err := s.ensureNameFree(ctx, newName, id); err != nil {
		return store.Role{}, err
	}

	role, err = s.store.UpdateRole(ctx, store.Role{ID: id, Name: newName})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return store.Role{}, apperrors.Conflict("There is already a role with that name.")
		}
		return store.Role{}, roleError(err, id, "Could not update the role")
	}

	slog.Info("Role renamed", "roleId", id, "from", existing.Name, "to", role.Name)
	events.Emit(ctx, s.publisher, events.New(events.RoleRenamed, id, map[string]string{
		"old_name": existing.Name,
		"name":     role.Name,
	}))
	return role, nil
}

// Delete removes every membership referencing the role and then the role itself.
// If the cascade fails the role is kept.
func (s *RoleService) Delete(ctx context.Context, id uuid.UUID) (err error) {
	defer func() { record("delete", err) }()

	role, err := s.store.GetRole(ctx, id)
	if err != nil {
		return roleError(err, id, "Could not delete role")
	}

	err = s.store.WithTx(ctx, func(tx store.Store) error {
		if err := s.coordinator.In(tx).RemoveAllForRole(ctx, id); err != nil {
			return err
		}
		if err := tx.DeleteRole(ctx, id); err != nil {
			return roleError(err, id, "Could not delete role")
		}
		return nil
	})
	if err != nil {
		slog.Error("Failed to delete role", "roleId", id, "error", err)
		return err
	}

	slog.Info("Role deleted", "roleId", id, "name", role.Name)
	events.Emit(ctx, s.publisher, events.New(events.RoleDeleted, id, map[string]string{"name": role.Name}))
	return nil
}

func (s *RoleService) ensureNameFree(ctx context.Context, name string, self uuid.UUID) error {
	existing, err := s.store.FindRoleByName(ctx, name)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil
	case err != nil:
		return apperrors.OperationFailed(err, "Could not check role name")
	case existing.ID != self:
		return apperrors.Conflict("There is already a role with that name.")
	}
	return nil
}

// roleError maps store errors onto the error taxonomy.
func roleError(err error, id uuid.UUID, message string) error {
	var appErr *apperrors.Error
	switch {
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, store.ErrNotFound):
		return apperrors.NotFound("role", id.String())
	default:
		return apperrors.OperationFailed(err, message)
	}
}

func record(operation string, err error) {
	metrics.RegistryOperationsTotal.WithLabelValues("role", operation, metrics.Result(err)).Inc()
}
