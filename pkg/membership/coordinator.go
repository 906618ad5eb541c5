// Package membership is the only writer of user/role membership edges.
//
// It replaces a user's whole role set and performs the cascade cleanup that
// must run before a user or role is deleted, so no membership ever references
// a missing entity.
package membership

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	apperrors "github.com/tendant/simple-usermgmt/pkg/errors"
	"github.com/tendant/simple-usermgmt/pkg/metrics"
	"github.com/tendant/simple-usermgmt/pkg/store"
)

type Coordinator struct {
	store store.Store
}

func NewCoordinator(s store.Store) *Coordinator {
	return &Coordinator{store: s}
}

// In returns a coordinator bound to tx, for use inside Store.WithTx.
func (c *Coordinator) In(tx store.Store) *Coordinator {
	return &Coordinator{store: tx}
}

// ReplaceRoles removes every role the user holds and assigns the roles in
// roleIDs. Ids that match no role are ignored. It returns the roles assigned.
//
// The sequence runs in a store transaction when the store has one, holding the
// user's lock so concurrent calls never merge their sets. Without
// transactions, a failure while removing leaves the original set intact and a
// failure while adding leaves the user with no roles; both are reported as
// OPERATION_FAILED.
func (c *Coordinator) ReplaceRoles(ctx context.Context, userID uuid.UUID, roleIDs []uuid.UUID) ([]store.Role, error) {
	var assigned []store.Role
	err := c.store.WithTx(ctx, func(tx store.Store) error {
		var err error
		assigned, err = c.In(tx).replaceRoles(ctx, userID, roleIDs)
		return err
	})
	metrics.MembershipOperationsTotal.WithLabelValues("replace", metrics.Result(err)).Inc()
	if err != nil {
		return nil, err
	}
	return assigned, nil
}

func (c *Coordinator) replaceRoles(ctx context.Context, userID uuid.UUID, roleIDs []uuid.UUID) ([]store.Role, error) {
	// The lock makes concurrent replacements for one user apply one after the other.
	if _, err := c.store.LockUser(ctx, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NotFound("user", userID.String())
		}
		return nil, apperrors.OperationFailed(err, "Could not load user")
	}

	current, err := c.store.RolesOfUser(ctx, userID)
	if err != nil {
		return nil, apperrors.OperationFailed(err, "Could not read user roles")
	}

	for _, role := range current {
		if err := c.store.RemoveMembership(ctx, userID, role.ID); err != nil {
			slog.Error("Failed to remove user from role", "userId", userID, "roleId", role.ID, "error", err)
			return nil, apperrors.OperationFailed(err, "Could not remove user from roles")
		}
		metrics.MembershipEdgesRemovedTotal.Inc()
	}

	resolved, err := c.resolveRoles(ctx, roleIDs)
	if err != nil {
		slog.Warn("Role replacement aborted after removal", "userId", userID, "error", err)
		return nil, err
	}

	slog.Info("Assigning roles to user", "userId", userID, "roleIds", roleIDs, "resolved", len(resolved))
	for _, role := range resolved {
		if err := c.store.AddMembership(ctx, userID, role.ID); err != nil {
			slog.Error("Failed to assign role", "userId", userID, "roleId", role.ID, "error", err)
			return nil, apperrors.OperationFailed(err, "Could not add user to roles.")
		}
	}

	return resolved, nil
}

// resolveRoles looks up each id once, skipping ids with no matching role.
func (c *Coordinator) resolveRoles(ctx context.Context, roleIDs []uuid.UUID) ([]store.Role, error) {
	seen := make(map[uuid.UUID]bool, len(roleIDs))
	resolved := make([]store.Role, 0, len(roleIDs))

	for _, id := range roleIDs {
		if seen[id] {
			continue
		}
		seen[id] = true

		role, err := c.store.GetRole(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			slog.Debug("Ignoring unknown role id", "roleId", id)
			continue
		}
		if err != nil {
			return nil, apperrors.OperationFailed(err, "Could not resolve roles")
		}
		resolved = append(resolved, role)
	}
	return resolved, nil
}

// RemoveAllForUser deletes every membership held by the user. The first
// failed removal aborts the cascade.
func (c *Coordinator) RemoveAllForUser(ctx context.Context, userID uuid.UUID) error {
	err := c.removeAllForUser(ctx, userID)
	metrics.MembershipOperationsTotal.WithLabelValues("remove_all_for_user", metrics.Result(err)).Inc()
	return err
}

func (c *Coordinator) removeAllForUser(ctx context.Context, userID uuid.UUID) error {
	roles, err := c.store.RolesOfUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperrors.NotFound("user", userID.String())
		}
		return apperrors.OperationFailed(err, "Could not read user roles")
	}

	for _, role := range roles {
		if err := c.store.RemoveMembership(ctx, userID, role.ID); err != nil {
			slog.Error("Cascade removal failed", "userId", userID, "roleId", role.ID, "error", err)
			return apperrors.OperationFailed(err, "Could not remove user from roles")
		}
		metrics.MembershipEdgesRemovedTotal.Inc()
	}
	return nil
}

// RemoveAllForRole deletes every membership referencing the role. The first
// failed removal aborts the cascade.
func (c *Coordinator) RemoveAllForRole(ctx context.Context, roleID uuid.UUID) error {
	err := c.removeAllForRole(ctx, roleID)
	metrics.MembershipOperationsTotal.WithLabelValues("remove_all_for_role", metrics.Result(err)).Inc()
	return err
}

func (c *Coordinator) removeAllForRole(ctx context.Context, roleID uuid.UUID) error {
	users, err := c.store.UsersInRole(ctx, roleID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperrors.NotFound("role", roleID.String())
		}
		return apperrors.OperationFailed(err, "Could not read role members")
	}

	for _, u := range users {
		if err := c.store.RemoveMembership(ctx, u.ID, roleID); err != nil {
			slog.Error("Cascade removal failed", "userId", u.ID, "roleId", roleID, "error", err)
			return apperrors.OperationFailed(err, "Could not remove users from role")
		}
		metrics.MembershipEdgesRemovedTotal.Inc()
	}
	return nil
}
