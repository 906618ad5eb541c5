// Package bootstrap seeds a fresh installation with a default user holding the
// admin role, so the first operator can sign in.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/tendant/simple-usermgmt/pkg/metrics"
	"github.com/tendant/simple-usermgmt/pkg/role"
	"github.com/tendant/simple-usermgmt/pkg/store"
	"github.com/tendant/simple-usermgmt/pkg/user"
)

// Config describes the default user and the role it receives.
type Config struct {
	FirstName     string
	LastName      string
	Email         string
	PhoneNumber   string
	Password      string
	AdminRoleName string
}

func DefaultConfig() Config {
	return Config{
		FirstName:     "Default",
		LastName:      "User",
		Email:         "defaultuser@itam.com",
		PhoneNumber:   "00000000",
		Password:      "Start1234!",
		AdminRoleName: "Admin",
	}
}

// SeedResult records what a run did.
type SeedResult struct {
	Skipped      bool
	Locked       bool
	UserCreated  bool
	RoleCreated  bool
	RoleAssigned bool
	UserID       uuid.UUID
	RoleID       uuid.UUID
	Errors       []string
}

func (r *SeedResult) fail(step string, err error) {
	r.Errors = append(r.Errors, fmt.Sprintf("%s: %v", step, err))
}

// Outcome classifies the run for metrics and logs.
func (r *SeedResult) Outcome() string {
	switch {
	case r.Locked:
		return "locked"
	case r.Skipped:
		return "skipped"
	case len(r.Errors) > 0:
		return "partial"
	default:
		return "seeded"
	}
}

type Seeder struct {
	cfg    Config
	store  store.Store
	users  *user.UserService
	roles  *role.RoleService
	locker Locker
}

type Option func(*Seeder)

func WithLocker(l Locker) Option {
	return func(s *Seeder) {
		s.locker = l
	}
}

func NewSeeder(cfg Config, s store.Store, users *user.UserService, roles *role.RoleService, opts ...Option) *Seeder {
	seeder := &Seeder{
		cfg:    cfg,
		store:  s,
		users:  users,
		roles:  roles,
		locker: NoopLocker{},
	}
	for _, opt := range opts {
		opt(seeder)
	}
	return seeder
}

// Run seeds the store when it holds no users. Step failures are logged and
// recorded in the result. The returned error is only set when the store could
// not be inspected at all; callers log it and keep starting.
func (s *Seeder) Run(ctx context.Context) (result *SeedResult, err error) {
	result = &SeedResult{}
	defer func() {
		metrics.BootstrapRunsTotal.WithLabelValues(result.Outcome()).Inc()
	}()

	release, acquired, err := s.locker.Acquire(ctx)
	if err != nil {
		slog.Warn("Could not take bootstrap lock, seeding without it", "error", err)
		release, acquired = nil, true
	}
	if !acquired {
		slog.Info("Bootstrap lock held by another instance, skipping seeding")
		result.Locked = true
		return result, nil
	}
	if release != nil {
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				slog.Warn("Failed to release bootstrap lock", "error", err)
			}
		}()
	}

	count, err := s.store.CountUsers(ctx)
	if err != nil {
		slog.Error("Could not count users, skipping seeding", "error", err)
		result.fail("count users", err)
		return result, fmt.Errorf("bootstrap: count users: %w", err)
	}
	if count > 0 {
		slog.Info("Users already exist, skipping seeding", "users", count)
		result.Skipped = true
		return result, nil
	}

	slog.Info("No users exist, seeding default user", "email", s.cfg.Email, "role", s.cfg.AdminRoleName)

	created, err := s.users.Create(ctx, user.Profile{
		FirstName:   s.cfg.FirstName,
		LastName:    s.cfg.LastName,
		Email:       s.cfg.Email,
		PhoneNumber: s.cfg.PhoneNumber,
	}, s.cfg.Password)
	if err != nil {
		// Without the user the store stays empty, so the next start retries both steps.
		slog.Error("Failed to create default user, skipping admin role", "email", s.cfg.Email, "error", err)
		result.fail("create user", err)
		return result, nil
	}
	slog.Info("Default user created", "userId", created.ID, "email", created.Email)
	result.UserCreated = true
	result.UserID = created.ID

	adminRole, err := s.roles.Create(ctx, s.cfg.AdminRoleName)
	if err != nil {
		slog.Error("Failed to create admin role, skipping role assignment", "role", s.cfg.AdminRoleName, "error", err)
		result.fail("create role", err)
		return result, nil
	}
	slog.Info("Admin role created", "roleId", adminRole.ID, "role", adminRole.Name)
	result.RoleCreated = true
	result.RoleID = adminRole.ID

	if _, err := s.users.AssignRoles(ctx, result.UserID, []uuid.UUID{adminRole.ID}); err != nil {
		slog.Error("Failed to assign admin role", "userId", result.UserID, "role", adminRole.Name, "error", err)
		result.fail("assign role", err)
		return result, nil
	}
	slog.Info("Default user assigned to admin role", "userId", result.UserID, "role", adminRole.Name)
	result.RoleAssigned = true

	return result, nil
}
