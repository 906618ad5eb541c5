package user

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/tendant/simple-usermgmt/pkg/errors"
	"github.com/tendant/simple-usermgmt/pkg/events"
	"github.com/tendant/simple-usermgmt/pkg/membership"
	"github.com/tendant/simple-usermgmt/pkg/password"
	"github.com/tendant/simple-usermgmt/pkg/store"
	"github.com/tendant/simple-usermgmt/pkg/store/storetest"
	"golang.org/x/crypto/bcrypt"
)

const goodPassword = "Start1234!"

type fixture struct {
	svc    *UserService
	store  *storetest.FaultyStore
	events *events.RecordingPublisher
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	inner := store.NewInMemoryStore(&password.BcryptHasher{Cost: bcrypt.MinCost})
	faulty := storetest.NewFaultyStore(inner)
	rec := &events.RecordingPublisher{}
	svc := NewUserService(faulty, membership.NewCoordinator(faulty),
		WithPolicy(password.DefaultPolicy()),
		WithPublisher(rec),
	)
	return fixture{svc: svc, store: faulty, events: rec}
}

func (f fixture) mustCreate(t *testing.T, email string) store.User {
	t.Helper()
	u, err := f.svc.Create(context.Background(), Profile{Email: email, FirstName: "Test"}, goodPassword)
	require.NoError(t, err)
	return u
}

func (f fixture) mustRole(t *testing.T, name string) store.Role {
	t.Helper()
	r, err := f.store.CreateRole(context.Background(), name)
	require.NoError(t, err)
	return r
}

func TestCreate(t *testing.T) {
	tests := []struct {
		name     string
		existing string
		profile  Profile
		password string
		wantCode apperrors.ErrorCode
	}{
		{name: "valid", profile: Profile{Email: "alice@example.com", FirstName: "Alice", LastName: "Smith"}, password: goodPassword},
		{name: "email only", profile: Profile{Email: "bob@example.com"}, password: goodPassword},
		{name: "missing email", profile: Profile{FirstName: "Alice"}, password: goodPassword, wantCode: apperrors.ErrCodeValidationFailed},
		{name: "missing password", profile: Profile{Email: "alice@example.com"}, wantCode: apperrors.ErrCodeValidationFailed},
		{name: "malformed email", profile: Profile{Email: "not-an-email"}, password: goodPassword, wantCode: apperrors.ErrCodeValidationFailed},
		{name: "weak password", profile: Profile{Email: "alice@example.com"}, password: "abc", wantCode: apperrors.ErrCodeValidationFailed},
		{name: "duplicate email", existing: "alice@example.com", profile: Profile{Email: "alice@example.com"}, password: goodPassword, wantCode: apperrors.ErrCodeConflict},
		{name: "duplicate email other case", existing: "alice@example.com", profile: Profile{Email: "ALICE@Example.com"}, password: goodPassword, wantCode: apperrors.ErrCodeConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.existing != "" {
				f.mustCreate(t, tt.existing)
			}

			u, err := f.svc.Create(context.Background(), tt.profile, tt.password)
			if tt.wantCode != "" {
				assert.True(t, apperrors.IsCode(err, tt.wantCode), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.NotEqual(t, uuid.Nil, u.ID)
			assert.Equal(t, tt.profile.Email, u.Username)
			assert.NotEqual(t, tt.password, u.PasswordHash)
			assert.Equal(t, []string{events.UserCreated}, f.events.Types())
		})
	}
}

func TestCreateWeakPasswordListsViolations(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), Profile{Email: "alice@example.com"}, "abcdef")

	res := apperrors.ResultFrom(err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Errors, "password must contain at least one uppercase letter")
	assert.Contains(t, res.Errors, "password must contain at least one digit")
}

func TestOverlongPasswordIsValidationFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	long := "Aa1" + strings.Repeat("x", 80)

	_, err := f.svc.Create(ctx, Profile{Email: "long@example.com"}, long)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidationFailed), "got %v", err)

	alice := f.mustCreate(t, "alice@example.com")
	err = f.svc.ChangePassword(ctx, alice.ID, goodPassword, long)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidationFailed), "got %v", err)
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.mustCreate(t, "alice@example.com")
	f.mustCreate(t, "bob@example.com")

	t.Run("overwrites profile and username", func(t *testing.T) {
		u, err := f.svc.Update(ctx, alice.ID, Profile{
			FirstName: "Alice", LastName: "Jones", Email: "alice.jones@example.com", PhoneNumber: "555",
		})
		require.NoError(t, err)
		assert.Equal(t, "alice.jones@example.com", u.Username)
		assert.Equal(t, "Jones", u.LastName)
		assert.Equal(t, "555", u.PhoneNumber)
	})

	t.Run("own email in other case", func(t *testing.T) {
		_, err := f.svc.Update(ctx, alice.ID, Profile{Email: "ALICE.JONES@example.com"})
		assert.NoError(t, err)
	})

	t.Run("email held by another user", func(t *testing.T) {
		_, err := f.svc.Update(ctx, alice.ID, Profile{Email: "Bob@example.com"})
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeConflict))
	})

	t.Run("missing email", func(t *testing.T) {
		_, err := f.svc.Update(ctx, alice.ID, Profile{FirstName: "Alice"})
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidationFailed))
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := f.svc.Update(ctx, uuid.New(), Profile{Email: "x@example.com"})
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotFound))
	})

	t.Run("store failure", func(t *testing.T) {
		f.store.Fail("UpdateUser")
		defer f.store.Reset()
		_, err := f.svc.Update(ctx, alice.ID, Profile{Email: "alice@example.com"})
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeOperationFailed))
	})
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		userID   func(store.User) uuid.UUID
		old      string
		new      string
		wantCode apperrors.ErrorCode
	}{
		{name: "success", old: goodPassword, new: "Start5678!"},
		{name: "wrong old password", old: "wrong", new: "Start5678!", wantCode: apperrors.ErrCodeInvalidCredential},
		{name: "weak new password", old: goodPassword, new: "short", wantCode: apperrors.ErrCodeValidationFailed},
		{
			name:     "unknown user",
			userID:   func(store.User) uuid.UUID { return uuid.New() },
			old:      goodPassword,
			new:      "Start5678!",
			wantCode: apperrors.ErrCodeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			u := f.mustCreate(t, "alice@example.com")
			id := u.ID
			if tt.userID != nil {
				id = tt.userID(u)
			}

			err := f.svc.ChangePassword(ctx, id, tt.old, tt.new)
			if tt.wantCode != "" {
				assert.True(t, apperrors.IsCode(err, tt.wantCode), "got %v", err)
				ok, verr := f.store.VerifyPassword(ctx, u.ID, goodPassword)
				require.NoError(t, verr)
				assert.True(t, ok, "password must be unchanged")
				return
			}
			require.NoError(t, err)
			ok, err := f.store.VerifyPassword(ctx, u.ID, tt.new)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Contains(t, f.events.Types(), events.UserPasswordChanged)
		})
	}
}

func TestDeleteCascades(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.mustCreate(t, "alice@example.com")
	admin := f.mustRole(t, "Admin")
	editor := f.mustRole(t, "Editor")

	_, err := f.svc.AssignRoles(ctx, alice.ID, []uuid.UUID{admin.ID, editor.ID})
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, alice.ID))

	_, err = f.svc.Get(ctx, alice.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotFound))

	members, err := f.store.UsersInRole(ctx, admin.ID)
	require.NoError(t, err)
	assert.Empty(t, members)

	err = f.svc.Delete(ctx, alice.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotFound))
}

func TestDeleteCascadeFailureKeepsUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.mustCreate(t, "alice@example.com")
	admin := f.mustRole(t, "Admin")
	_, err := f.svc.AssignRoles(ctx, alice.ID, []uuid.UUID{admin.ID})
	require.NoError(t, err)

	f.store.Fail("RemoveMembership")
	err = f.svc.Delete(ctx, alice.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeOperationFailed))

	f.store.Reset()
	_, err = f.svc.Get(ctx, alice.ID)
	assert.NoError(t, err)
	names, err := f.svc.RolesOf(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Admin"}, names)
}

func TestAssignRolesAndRolesOf(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.mustCreate(t, "alice@example.com")
	admin := f.mustRole(t, "Admin")
	viewer := f.mustRole(t, "Viewer")

	assigned, err := f.svc.AssignRoles(ctx, alice.ID, []uuid.UUID{admin.ID, uuid.New(), admin.ID})
	require.NoError(t, err)
	require.Len(t, assigned, 1)

	names, err := f.svc.RolesOf(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Admin"}, names)

	_, err = f.svc.AssignRoles(ctx, alice.ID, []uuid.UUID{viewer.ID})
	require.NoError(t, err)
	names, err = f.svc.RolesOf(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Viewer"}, names)

	_, err = f.svc.AssignRoles(ctx, alice.ID, nil)
	require.NoError(t, err)
	names, err = f.svc.RolesOf(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, names)

	_, err = f.svc.RolesOf(ctx, uuid.New())
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotFound))

	_, err = f.svc.AssignRoles(ctx, uuid.New(), []uuid.UUID{admin.ID})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotFound))

	assert.Contains(t, f.events.Types(), events.UserRolesReplaced)
}
