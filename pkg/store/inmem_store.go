package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/simple-usermgmt/pkg/password"
)

// memData holds every record of an in-memory or file-backed store.
type memData struct {
	Users     map[uuid.UUID]User        `json:"users"`
	Roles     map[uuid.UUID]Role        `json:"roles"`
	UserRoles map[uuid.UUID][]uuid.UUID `json:"user_roles"` // user ID -> role IDs
}

func newMemData() *memData {
	return &memData{
		Users:     make(map[uuid.UUID]User),
		Roles:     make(map[uuid.UUID]Role),
		UserRoles: make(map[uuid.UUID][]uuid.UUID),
	}
}

func (d *memData) clone() *memData {
	c := newMemData()
	for k, v := range d.Users {
		c.Users[k] = v
	}
	for k, v := range d.Roles {
		c.Roles[k] = v
	}
	for k, v := range d.UserRoles {
		c.UserRoles[k] = append([]uuid.UUID(nil), v...)
	}
	return c
}

// InMemoryStore implements Store using in-memory maps. It has no transactions:
// WithTx runs the callback directly, so a failed multi-step operation leaves
// its completed steps in place. WithTx calls are serialized and must not nest.
type InMemoryStore struct {
	mu     sync.RWMutex
	txMu   sync.Mutex
	data   *memData
	hasher password.Hasher

	// persist is called under the write lock after every mutation.
	// When it fails the mutation is rolled back.
	persist func(*memData) error
}

// NewInMemoryStore creates a new in-memory store. A nil hasher defaults to bcrypt.
func NewInMemoryStore(hasher password.Hasher) *InMemoryStore {
	if hasher == nil {
		hasher = password.NewBcryptHasher()
	}
	return &InMemoryStore{
		data:   newMemData(),
		hasher: hasher,
	}
}

// mutate applies fn under the write lock and persists the result.
func (s *InMemoryStore) mutate(fn func(d *memData) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var snapshot *memData
	if s.persist != nil {
		snapshot = s.data.clone()
	}

	if err := fn(s.data); err != nil {
		return err
	}

	if s.persist != nil {
		if err := s.persist(s.data); err != nil {
			s.data = snapshot
			return fmt.Errorf("failed to save: %w", err)
		}
	}
	return nil
}

func (s *InMemoryStore) WithTx(ctx context.Context, fn func(tx Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return fn(s)
}

func (s *InMemoryStore) ListUsers(ctx context.Context) ([]User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]User, 0, len(s.data.Users))
	for _, u := range s.data.Users {
		users = append(users, u)
	}
	sortUsers(users)
	return users, nil
}

func (s *InMemoryStore) GetUser(ctx context.Context, id uuid.UUID) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.data.Users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

// LockUser is GetUser. Exclusion comes from WithTx being serialized.
func (s *InMemoryStore) LockUser(ctx context.Context, id uuid.UUID) (User, error) {
	return s.GetUser(ctx, id)
}

func (s *InMemoryStore) FindUserByEmail(ctx context.Context, email string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.data.Users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (s *InMemoryStore) CountUsers(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.data.Users)), nil
}

func (s *InMemoryStore) CreateUser(ctx context.Context, user User, plaintext string) (User, error) {
	hashed, err := s.hasher.Hash(plaintext)
	if err != nil {
		return User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := time.Now().UTC()
	user.PasswordHash = hashed
	user.CreatedAt = now
	user.LastModifiedAt = now

	err = s.mutate(func(d *memData) error {
		if _, exists := d.Users[user.ID]; exists {
			return fmt.Errorf("%w: user id %s", ErrDuplicate, user.ID)
		}
		if emailTaken(d, user.Email, uuid.Nil) {
			return fmt.Errorf("%w: email %s", ErrDuplicate, user.Email)
		}
		d.Users[user.ID] = user
		return nil
	})
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *InMemoryStore) UpdateUser(ctx context.Context, user User) (User, error) {
	var updated User
	err := s.mutate(func(d *memData) error {
		existing, ok := d.Users[user.ID]
		if !ok {
			return ErrNotFound
		}
		if emailTaken(d, user.Email, user.ID) {
			return fmt.Errorf("%w: email %s", ErrDuplicate, user.Email)
		}
		existing.Email = user.Email
		existing.Username = user.Username
		existing.FirstName = user.FirstName
		existing.LastName = user.LastName
		existing.PhoneNumber = user.PhoneNumber
		existing.LastModifiedAt = time.Now().UTC()
		d.Users[user.ID] = existing
		updated = existing
		return nil
	})
	return updated, err
}

func (s *InMemoryStore) SetPassword(ctx context.Context, id uuid.UUID, plaintext string) error {
	hashed, err := s.hasher.Hash(plaintext)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return s.mutate(func(d *memData) error {
		u, ok := d.Users[id]
		if !ok {
			return ErrNotFound
		}
		u.PasswordHash = hashed
		u.LastModifiedAt = time.Now().UTC()
		d.Users[id] = u
		return nil
	})
}

func (s *InMemoryStore) VerifyPassword(ctx context.Context, id uuid.UUID, plaintext string) (bool, error) {
	u, err := s.GetUser(ctx, id)
	if err != nil {
		return false, err
	}
	return s.hasher.Verify(plaintext, u.PasswordHash)
}

func (s *InMemoryStore) DeleteUser(ctx context.Context, id uuid.UUID) error {
	return s.mutate(func(d *memData) error {
		if _, ok := d.Users[id]; !ok {
			return ErrNotFound
		}
		if len(d.UserRoles[id]) > 0 {
			return fmt.Errorf("%w: user %s", ErrHasMemberships, id)
		}
		delete(d.Users, id)
		delete(d.UserRoles, id)
		return nil
	})
}

func (s *InMemoryStore) ListRoles(ctx context.Context) ([]Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	roles := make([]Role, 0, len(s.data.Roles))
	for _, r := range s.data.Roles {
		roles = append(roles, r)
	}
	sortRoles(roles)
	return roles, nil
}

func (s *InMemoryStore) GetRole(ctx context.Context, id uuid.UUID) (Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.data.Roles[id]
	if !ok {
		return Role{}, ErrNotFound
	}
	return r, nil
}

func (s *InMemoryStore) FindRoleByName(ctx context.Context, name string) (Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.data.Roles {
		if strings.EqualFold(r.Name, name) {
			return r, nil
		}
	}
	return Role{}, ErrNotFound
}

func (s *InMemoryStore) CreateRole(ctx context.Context, name string) (Role, error) {
	role := Role{ID: uuid.New(), Name: name}
	err := s.mutate(func(d *memData) error {
		if roleNameTaken(d, name, uuid.Nil) {
			return fmt.Errorf("%w: role %s", ErrDuplicate, name)
		}
		d.Roles[role.ID] = role
		return nil
	})
	if err != nil {
		return Role{}, err
	}
	return role, nil
}

func (s *InMemoryStore) UpdateRole(ctx context.Context, role Role) (Role, error) {
	err := s.mutate(func(d *memData) error {
		if _, ok := d.Roles[role.ID]; !ok {
			return ErrNotFound
		}
		if roleNameTaken(d, role.Name, role.ID) {
			return fmt.Errorf("%w: role %s", ErrDuplicate, role.Name)
		}
		d.Roles[role.ID] = role
		return nil
	})
	if err != nil {
		return Role{}, err
	}
	return role, nil
}

func (s *InMemoryStore) DeleteRole(ctx context.Context, id uuid.UUID) error {
	return s.mutate(func(d *memData) error {
		if _, ok := d.Roles[id]; !ok {
			return ErrNotFound
		}
		for _, roleIDs := range d.UserRoles {
			if containsID(roleIDs, id) {
				return fmt.Errorf("%w: role %s", ErrHasMemberships, id)
			}
		}
		delete(d.Roles, id)
		return nil
	})
}

func (s *InMemoryStore) AddMembership(ctx context.Context, userID, roleID uuid.UUID) error {
	return s.mutate(func(d *memData) error {
		if _, ok := d.Users[userID]; !ok {
			return fmt.Errorf("%w: user %s", ErrNotFound, userID)
		}
		if _, ok := d.Roles[roleID]; !ok {
			return fmt.Errorf("%w: role %s", ErrNotFound, roleID)
		}
		if containsID(d.UserRoles[userID], roleID) {
			return nil
		}
		d.UserRoles[userID] = append(d.UserRoles[userID], roleID)
		return nil
	})
}

func (s *InMemoryStore) RemoveMembership(ctx context.Context, userID, roleID uuid.UUID) error {
	return s.mutate(func(d *memData) error {
		current := d.UserRoles[userID]
		kept := current[:0:0]
		for _, id := range current {
			if id != roleID {
				kept = append(kept, id)
			}
		}
		if len(kept) == 0 {
			delete(d.UserRoles, userID)
		} else {
			d.UserRoles[userID] = kept
		}
		return nil
	})
}

func (s *InMemoryStore) RolesOfUser(ctx context.Context, userID uuid.UUID) ([]Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.data.Users[userID]; !ok {
		return nil, ErrNotFound
	}

	var roles []Role
	for _, roleID := range s.data.UserRoles[userID] {
		if r, ok := s.data.Roles[roleID]; ok {
			roles = append(roles, r)
		}
	}
	sortRoles(roles)
	return roles, nil
}

func (s *InMemoryStore) UsersInRole(ctx context.Context, roleID uuid.UUID) ([]User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.data.Roles[roleID]; !ok {
		return nil, ErrNotFound
	}

	var users []User
	for userID, roleIDs := range s.data.UserRoles {
		if !containsID(roleIDs, roleID) {
			continue
		}
		if u, ok := s.data.Users[userID]; ok {
			users = append(users, u)
		}
	}
	sortUsers(users)
	return users, nil
}

func emailTaken(d *memData, email string, except uuid.UUID) bool {
	for id, u := range d.Users {
		if id != except && strings.EqualFold(u.Email, email) {
			return true
		}
	}
	return false
}

func roleNameTaken(d *memData, name string, except uuid.UUID) bool {
	for id, r := range d.Roles {
		if id != except && strings.EqualFold(r.Name, name) {
			return true
		}
	}
	return false
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func sortUsers(users []User) {
	sort.Slice(users, func(i, j int) bool {
		return strings.ToLower(users[i].Email) < strings.ToLower(users[j].Email)
	})
}

func sortRoles(roles []Role) {
	sort.Slice(roles, func(i, j int) bool {
		return strings.ToLower(roles[i].Name) < strings.ToLower(roles[j].Name)
	})
}
