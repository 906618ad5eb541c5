package store

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-usermgmt/pkg/password"
	"golang.org/x/crypto/bcrypt"
)

func testHasher() password.Hasher {
	return &password.BcryptHasher{Cost: bcrypt.MinCost}
}

// runStoreContract checks the behavior every Store implementation must share.
func runStoreContract(t *testing.T, s Store) {
	ctx := context.Background()

	alice, err := s.CreateUser(ctx, User{
		Email:     "alice@example.com",
		Username:  "alice@example.com",
		FirstName: "Alice",
		LastName:  "Smith",
	}, "Start1234!")
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, alice.ID)
	assert.NotEqual(t, "Start1234!", alice.PasswordHash)

	t.Run("email uniqueness is case-insensitive", func(t *testing.T) {
		_, err := s.CreateUser(ctx, User{Email: "ALICE@example.com", Username: "ALICE@example.com"}, "Start1234!")
		assert.True(t, errors.Is(err, ErrDuplicate), "got %v", err)
	})

	t.Run("find user by email ignores case", func(t *testing.T) {
		found, err := s.FindUserByEmail(ctx, "Alice@Example.com")
		require.NoError(t, err)
		assert.Equal(t, alice.ID, found.ID)

		_, err = s.FindUserByEmail(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("verify and set password", func(t *testing.T) {
		ok, err := s.VerifyPassword(ctx, alice.ID, "Start1234!")
		require.NoError(t, err)
		assert.True(t, ok)

		require.NoError(t, s.SetPassword(ctx, alice.ID, "Start5678!"))
		ok, err = s.VerifyPassword(ctx, alice.ID, "Start1234!")
		require.NoError(t, err)
		assert.False(t, ok)
		ok, err = s.VerifyPassword(ctx, alice.ID, "Start5678!")
		require.NoError(t, err)
		assert.True(t, ok)

		assert.ErrorIs(t, s.SetPassword(ctx, uuid.New(), "Start5678!"), ErrNotFound)
	})

	t.Run("lock user inside a transaction", func(t *testing.T) {
		err := s.WithTx(ctx, func(tx Store) error {
			locked, err := tx.LockUser(ctx, alice.ID)
			require.NoError(t, err)
			assert.Equal(t, alice.ID, locked.ID)

			_, err = tx.LockUser(ctx, uuid.New())
			assert.ErrorIs(t, err, ErrNotFound)
			return nil
		})
		require.NoError(t, err)
	})

	admin, err := s.CreateRole(ctx, "Admin")
	require.NoError(t, err)
	editor, err := s.CreateRole(ctx, "Editor")
	require.NoError(t, err)

	t.Run("role name uniqueness is case-insensitive", func(t *testing.T) {
		_, err := s.CreateRole(ctx, "admin")
		assert.ErrorIs(t, err, ErrDuplicate)

		_, err = s.UpdateRole(ctx, Role{ID: editor.ID, Name: "ADMIN"})
		assert.ErrorIs(t, err, ErrDuplicate)

		found, err := s.FindRoleByName(ctx, "aDmIn")
		require.NoError(t, err)
		assert.Equal(t, admin.ID, found.ID)
	})

	t.Run("memberships", func(t *testing.T) {
		require.NoError(t, s.AddMembership(ctx, alice.ID, admin.ID))
		require.NoError(t, s.AddMembership(ctx, alice.ID, admin.ID), "adding twice is a no-op")
		require.NoError(t, s.AddMembership(ctx, alice.ID, editor.ID))

		roles, err := s.RolesOfUser(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, []Role{admin, editor}, roles)

		users, err := s.UsersInRole(ctx, admin.ID)
		require.NoError(t, err)
		require.Len(t, users, 1)
		assert.Equal(t, alice.ID, users[0].ID)

		assert.ErrorIs(t, s.AddMembership(ctx, alice.ID, uuid.New()), ErrNotFound)
		_, err = s.RolesOfUser(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("delete with memberships is refused", func(t *testing.T) {
		assert.ErrorIs(t, s.DeleteRole(ctx, admin.ID), ErrHasMemberships)
		assert.ErrorIs(t, s.DeleteUser(ctx, alice.ID), ErrHasMemberships)
	})

	t.Run("delete after removing memberships", func(t *testing.T) {
		require.NoError(t, s.RemoveMembership(ctx, alice.ID, admin.ID))
		require.NoError(t, s.RemoveMembership(ctx, alice.ID, admin.ID), "removing twice is a no-op")
		require.NoError(t, s.DeleteRole(ctx, admin.ID))

		_, err := s.GetRole(ctx, admin.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, s.DeleteRole(ctx, admin.ID), ErrNotFound)

		require.NoError(t, s.RemoveMembership(ctx, alice.ID, editor.ID))
		require.NoError(t, s.DeleteUser(ctx, alice.ID))

		count, err := s.CountUsers(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(0), count)
	})

	t.Run("update profile keeps password", func(t *testing.T) {
		bob, err := s.CreateUser(ctx, User{Email: "bob@example.com", Username: "bob@example.com"}, "Start1234!")
		require.NoError(t, err)

		bob.Email = "robert@example.com"
		bob.Username = "robert@example.com"
		bob.PhoneNumber = "555"
		updated, err := s.UpdateUser(ctx, bob)
		require.NoError(t, err)
		assert.Equal(t, "robert@example.com", updated.Email)
		assert.Equal(t, "555", updated.PhoneNumber)

		ok, err := s.VerifyPassword(ctx, bob.ID, "Start1234!")
		require.NoError(t, err)
		assert.True(t, ok)

		_, err = s.UpdateUser(ctx, User{ID: uuid.New(), Email: "x@example.com"})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
