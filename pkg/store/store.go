package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a user, role or membership end does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a case-insensitive unique key is already taken.
	ErrDuplicate = errors.New("duplicate record")
	// ErrHasMemberships is returned when deleting a user or role that still has membership edges.
	ErrHasMemberships = errors.New("record still referenced by memberships")
)

// User is a persisted user record. PasswordHash is owned by the store.
type User struct {
	ID             uuid.UUID `json:"id"`
	Email          string    `json:"email"`
	Username       string    `json:"username"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	PhoneNumber    string    `json:"phone_number"`
	PasswordHash   string    `json:"password_hash,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	LastModifiedAt time.Time `json:"last_modified_at"`
}

// Role is a persisted role record.
type Role struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type UserStore interface {
	ListUsers(ctx context.Context) ([]User, error)
	GetUser(ctx context.Context, id uuid.UUID) (User, error)
	// LockUser reads the user and, inside WithTx, holds it exclusively until the
	// transaction ends. Concurrent membership changes for the user queue behind it.
	LockUser(ctx context.Context, id uuid.UUID) (User, error)
	// FindUserByEmail matches case-insensitively.
	FindUserByEmail(ctx context.Context, email string) (User, error)
	CountUsers(ctx context.Context) (int64, error)
	// CreateUser hashes password and persists the user. A nil ID is replaced with a new one.
	CreateUser(ctx context.Context, user User, password string) (User, error)
	// UpdateUser overwrites the profile columns. The password hash is left untouched.
	UpdateUser(ctx context.Context, user User) (User, error)
	SetPassword(ctx context.Context, id uuid.UUID, password string) error
	VerifyPassword(ctx context.Context, id uuid.UUID, password string) (bool, error)
	DeleteUser(ctx context.Context, id uuid.UUID) error
}

type RoleStore interface {
	ListRoles(ctx context.Context) ([]Role, error)
	GetRole(ctx context.Context, id uuid.UUID) (Role, error)
	// FindRoleByName matches case-insensitively.
	FindRoleByName(ctx context.Context, name string) (Role, error)
	CreateRole(ctx context.Context, name string) (Role, error)
	UpdateRole(ctx context.Context, role Role) (Role, error)
	DeleteRole(ctx context.Context, id uuid.UUID) error
}

type MembershipStore interface {
	// AddMembership is a no-op when the edge already exists.
	AddMembership(ctx context.Context, userID, roleID uuid.UUID) error
	// RemoveMembership is a no-op when the edge does not exist.
	RemoveMembership(ctx context.Context, userID, roleID uuid.UUID) error
	RolesOfUser(ctx context.Context, userID uuid.UUID) ([]Role, error)
	UsersInRole(ctx context.Context, roleID uuid.UUID) ([]User, error)
}

// Store is the credential store consumed by the registries and the membership coordinator.
type Store interface {
	UserStore
	RoleStore
	MembershipStore

	// WithTx runs fn against a transactional view of the store. Stores without
	// transactions run fn directly against themselves, so partial writes stay
	// visible when fn fails.
	WithTx(ctx context.Context, fn func(tx Store) error) error
}
