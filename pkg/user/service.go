package user

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
	"github.com/tendant/simple-usermgmt/pkg/password"
	"github.com/tendant/simple-usermgmt/pkg/store"
	"github.com/tendant/simple-usermgmt/pkg/utils"
)

// Profile holds the editable user fields. Username always follows Email.
type Profile struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email" validate:"required,email"`
	PhoneNumber string `json:"phoneNumber"`
}

type UserService struct {
	store       store.Store
	coordinator *membership.Coordinator
	policy      *password.PolicyChecker
	publisher   events.Publisher
}

type Option func(*UserService)

func WithPolicy(policy *password.Policy) Option {
	return func(s *UserService) {
		s.policy = password.NewPolicyChecker(policy)
	}
}

func WithPublisher(p events.Publisher) Option {
	return func(s *UserService) {
		s.publisher = p
	}
}

func NewUserService(s store.Store, coordinator *membership.Coordinator, opts ...Option) *UserService {
	svc := &UserService{
		store:       s,
		coordinator: coordinator,
		policy:      password.NewPolicyChecker(password.DefaultPolicy()),
		publisher:   events.NoopPublisher{},
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func (s *UserService) List(ctx context.Context) ([]store.User, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, apperrors.OperationFailed(err, "Could not list users")
	}
	return users, nil
}

func (s *UserService) Get(ctx context.Context, id uuid.UUID) (store.User, error) {
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return store.User{}, userError(err, id, "Could not load user")
	}
	return u, nil
}

// Create registers a new user with the given plaintext password.
func (s *UserService) Create(ctx context.Context, profile Profile, plaintext string) (created store.User, err error) {
	defer func() { record("create", err) }()

	profile = normalize(profile)
	if profile.Email == "" || plaintext == "" {
		return store.User{}, apperrors.ValidationFailed("You need to provide email and password")
	}
	if err := validateProfile(profile); err != nil {
		return store.User{}, err
	}
	if err := s.checkPolicy(plaintext); err != nil {
		return store.User{}, err
	}
	if err := s.ensureEmailFree(ctx, profile.Email, uuid.Nil); err != nil {
		return store.User{}, err
	}

	created, err = s.store.CreateUser(ctx, toUser(uuid.Nil, profile), plaintext)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return store.User{}, apperrors.Conflict("Email already in use")
		}
		slog.Error("Failed to create user", "email", profile.Email, "error", err)
		return store.User{}, apperrors.OperationFailed(err, "Could not create user")
	}

	slog.Info("User created", "userId", created.ID, "email", created.Email)
	events.Emit(ctx, s.publisher, events.New(events.UserCreated, created.ID, map[string]string{"email": created.Email}))
	return created, nil
}

// Update overwrites the profile of an existing user.
func (s *UserService) Update(ctx context.Context, id uuid.UUID, profile Profile) (updated store.User, err error) {
	defer func() { record("update", err) }()

	if _, err := s.store.GetUser(ctx, id); err != nil {
		return store.User{}, userError(err, id, "Could not update user")
	}

	profile = normalize(profile)
	if err := validateProfile(profile); err != nil {
		return store.User{}, err
	}
	if err := s.ensureEmailFree(ctx, profile.Email, id); err != nil {
		return store.User{}, err
	}

	updated, err = s.store.UpdateUser(ctx, toUser(id, profile))
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return store.User{}, apperrors.Conflict("Email already in use")
		}
		return store.User{}, userError(err, id, "Could not update user")
	}

	slog.Info("User updated", "userId", id)
	events.Emit(ctx, s.publisher, events.New(events.UserUpdated, id, map[string]string{"email": updated.Email}))
	return updated, nil
}

// ChangePassword replaces the password after verifying the current one.
func (s *UserService) ChangePassword(ctx context.Context, id uuid.UUID, oldPassword, newPassword string) (err error) {
	defer func() { record("change_password", err) }()

	if _, err := s.store.GetUser(ctx, id); err != nil {
		return userError(err, id, "Could not update password")
	}

	ok, err := s.store.VerifyPassword(ctx, id, oldPassword)
	if err != nil {
		return userError(err, id, "Could not update password")
	}
	if !ok {
		slog.Warn("Password change rejected", "userId", id)
		return apperrors.InvalidCredential("Incorrect password.")
	}

	if err := s.checkPolicy(newPassword); err != nil {
		return err
	}

	if err := s.store.SetPassword(ctx, id, newPassword); err != nil {
		return userError(err, id, "Could not update password")
	}

	slog.Info("Password changed", "userId", id)
	events.Emit(ctx, s.publisher, events.New(events.UserPasswordChanged, id, nil))
	return nil
}

// Delete removes the user's memberships and then the user. If the cascade
// fails the user is kept.
func (s *UserService) Delete(ctx context.Context, id uuid.UUID) (err error) {
	defer func() { record("delete", err) }()

	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return userError(err, id, "Could not delete user")
	}

	err = s.store.WithTx(ctx, func(tx store.Store) error {
		if err := s.coordinator.In(tx).RemoveAllForUser(ctx, id); err != nil {
			return err
		}
		if err := tx.DeleteUser(ctx, id); err != nil {
			return userError(err, id, "Could not delete user")
		}
		return nil
	})
	if err != nil {
		slog.Error("Failed to delete user", "userId", id, "error", err)
		return err
	}

	slog.Info("User deleted", "userId", id)
	events.Emit(ctx, s.publisher, events.New(events.UserDeleted, id, map[string]string{"email": u.Email}))
	return nil
}

// RolesOf returns the names of the roles the user holds.
func (s *UserService) RolesOf(ctx context.Context, id uuid.UUID) ([]string, error) {
	roles, err := s.store.RolesOfUser(ctx, id)
	if err != nil {
		return nil, userError(err, id, "Could not load user roles")
	}
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, r.Name)
	}
	return names, nil
}

// AssignRoles replaces the user's role set. Unknown role ids are ignored.
func (s *UserService) AssignRoles(ctx context.Context, id uuid.UUID, roleIDs []uuid.UUID) ([]store.Role, error) {
	assigned, err := s.coordinator.ReplaceRoles(ctx, id, roleIDs)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(assigned))
	for _, r := range assigned {
		names = append(names, r.Name)
	}
	events.Emit(ctx, s.publisher, events.New(events.UserRolesReplaced, id, map[string]string{
		"roles": strings.Join(names, ","),
	}))
	return assigned, nil
}

func (s *UserService) checkPolicy(plaintext string) error {
	violations := s.policy.Violations(plaintext)
	if len(violations) == 0 {
		return nil
	}
	return apperrors.ValidationFailed("Password does not meet requirements").WithDetail("violations", violations)
}

func (s *UserService) ensureEmailFree(ctx context.Context, email string, self uuid.UUID) error {
	existing, err := s.store.FindUserByEmail(ctx, email)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil
	case err != nil:
		return apperrors.OperationFailed(err, "Could not check email")
	case existing.ID != self:
		return apperrors.Conflict("Email already in use")
	}
	return nil
}

func validateProfile(p Profile) error {
	if msgs := utils.ValidateStruct(p); msgs != nil {
		return apperrors.ValidationFailed("Invalid user details").WithDetail("violations", msgs)
	}
	return nil
}

func normalize(p Profile) Profile {
	p.FirstName = strings.TrimSpace(p.FirstName)
	p.LastName = strings.TrimSpace(p.LastName)
	p.Email = strings.TrimSpace(p.Email)
	p.PhoneNumber = strings.TrimSpace(p.PhoneNumber)
	return p
}

func toUser(id uuid.UUID, p Profile) store.User {
	return store.User{
		ID:          id,
		Email:       p.Email,
		Username:    p.Email,
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		PhoneNumber: p.PhoneNumber,
	}
}

func userError(err error, id uuid.UUID, message string) error {
	var appErr *apperrors.Error
	switch {
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, store.ErrNotFound):
		return apperrors.NotFound("user", id.String())
	default:
		return apperrors.OperationFailed(err, message)
	}
}

func record(operation string, err error) {
	metrics.RegistryOperationsTotal.WithLabelValues("user", operation, metrics.Result(err)).Inc()
}
