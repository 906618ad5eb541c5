// Package storetest provides store doubles for tests.
package storetest

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/tendant/simple-usermgmt/pkg/store"
)

// ErrInjected is returned by FaultyStore for methods set to fail.
var ErrInjected = errors.New("injected store failure")

// FaultyStore wraps a Store and fails selected methods. It has no transactions:
// WithTx runs the callback against the FaultyStore itself.
type FaultyStore struct {
	store.Store

	mu     sync.Mutex
	failOn map[string]int // method -> call number that fails (1-based), 0 = every call
	calls  map[string]int
}

func NewFaultyStore(inner store.Store) *FaultyStore {
	return &FaultyStore{
		Store:  inner,
		failOn: make(map[string]int),
		calls:  make(map[string]int),
	}
}

// Fail makes every call to method fail.
func (f *FaultyStore) Fail(method string) *FaultyStore {
	return f.FailOnCall(method, 0)
}

// FailOnCall makes only the nth call (1-based) to method fail.
func (f *FaultyStore) FailOnCall(method string, n int) *FaultyStore {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failOn[method] = n
	return f
}

// Reset clears every injected failure.
func (f *FaultyStore) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failOn = make(map[string]int)
	f.calls = make(map[string]int)
}

func (f *FaultyStore) check(method string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[method]++
	n, ok := f.failOn[method]
	if !ok {
		return nil
	}
	if n == 0 || n == f.calls[method] {
		return ErrInjected
	}
	return nil
}

func (f *FaultyStore) WithTx(ctx context.Context, fn func(tx store.Store) error) error {
	return fn(f)
}

func (f *FaultyStore) GetUser(ctx context.Context, id uuid.UUID) (store.User, error) {
	if err := f.check("GetUser"); err != nil {
		return store.User{}, err
	}
	return f.Store.GetUser(ctx, id)
}

func (f *FaultyStore) LockUser(ctx context.Context, id uuid.UUID) (store.User, error) {
	if err := f.check("LockUser"); err != nil {
		return store.User{}, err
	}
	return f.Store.LockUser(ctx, id)
}

func (f *FaultyStore) FindUserByEmail(ctx context.Context, email string) (store.User, error) {
	if err := f.check("FindUserByEmail"); err != nil {
		return store.User{}, err
	}
	return f.Store.FindUserByEmail(ctx, email)
}

func (f *FaultyStore) CountUsers(ctx context.Context) (int64, error) {
	if err := f.check("CountUsers"); err != nil {
		return 0, err
	}
	return f.Store.CountUsers(ctx)
}

func (f *FaultyStore) CreateUser(ctx context.Context, user store.User, password string) (store.User, error) {
	if err := f.check("CreateUser"); err != nil {
		return store.User{}, err
	}
	return f.Store.CreateUser(ctx, user, password)
}

func (f *FaultyStore) UpdateUser(ctx context.Context, user store.User) (store.User, error) {
	if err := f.check("UpdateUser"); err != nil {
		return store.User{}, err
	}
	return f.Store.UpdateUser(ctx, user)
}

func (f *FaultyStore) SetPassword(ctx context.Context, id uuid.UUID, password string) error {
	if err := f.check("SetPassword"); err != nil {
		return err
	}
	return f.Store.SetPassword(ctx, id, password)
}

func (f *FaultyStore) DeleteUser(ctx context.Context, id uuid.UUID) error {
	if err := f.check("DeleteUser"); err != nil {
		return err
	}
	return f.Store.DeleteUser(ctx, id)
}

func (f *FaultyStore) GetRole(ctx context.Context, id uuid.UUID) (store.Role, error) {
	if err := f.check("GetRole"); err != nil {
		return store.Role{}, err
	}
	return f.Store.GetRole(ctx, id)
}

func (f *FaultyStore) CreateRole(ctx context.Context, name string) (store.Role, error) {
	if err := f.check("CreateRole"); err != nil {
		return store.Role{}, err
	}
	return f.Store.CreateRole(ctx, name)
}

func (f *FaultyStore) UpdateRole(ctx context.Context, role store.Role) (store.Role, error) {
	if err := f.check("UpdateRole"); err != nil {
		return store.Role{}, err
	}
	return f.Store.UpdateRole(ctx, role)
}

func (f *FaultyStore) DeleteRole(ctx context.Context, id uuid.UUID) error {
	if err := f.check("DeleteRole"); err != nil {
		return err
	}
	return f.Store.DeleteRole(ctx, id)
}

func (f *FaultyStore) AddMembership(ctx context.Context, userID, roleID uuid.UUID) error {
	if err := f.check("AddMembership"); err != nil {
		return err
	}
	return f.Store.AddMembership(ctx, userID, roleID)
}

func (f *FaultyStore) RemoveMembership(ctx context.Context, userID, roleID uuid.UUID) error {
	if err := f.check("RemoveMembership"); err != nil {
		return err
	}
	return f.Store.RemoveMembership(ctx, userID, roleID)
}

func (f *FaultyStore) RolesOfUser(ctx context.Context, userID uuid.UUID) ([]store.Role, error) {
	if err := f.check("RolesOfUser"); err != nil {
		return nil, err
	}
	return f.Store.RolesOfUser(ctx, userID)
}

func (f *FaultyStore) UsersInRole(ctx context.Context, roleID uuid.UUID) ([]store.User, error) {
	if err := f.check("UsersInRole"); err != nil {
		return nil, err
	}
	return f.Store.UsersInRole(ctx, roleID)
}
