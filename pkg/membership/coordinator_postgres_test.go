package membership

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-usermgmt/pkg/password"
	"github.com/tendant/simple-usermgmt/pkg/store"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/crypto/bcrypt"
)

func setupTestDatabase(t *testing.T) *pgxpool.Pool {
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithInitScripts(filepath.Join("..", "..", "migrations", "000001_init.up.sql")),
		postgres.WithDatabase("usermgmt_db"),
		postgres.WithUsername("usermgmt"),
		postgres.WithPassword("pwd"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	connString, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	pool, err := pgxpool.New(ctx, connString)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func TestReplaceRolesConcurrentPostgres(t *testing.T) {
	pool := setupTestDatabase(t)
	ctx := context.Background()
	s := store.NewPostgresStore(pool, &password.BcryptHasher{Cost: bcrypt.MinCost})

	alice, err := s.CreateUser(ctx, store.User{Email: "alice@example.com", Username: "alice@example.com"}, "Start1234!")
	require.NoError(t, err)
	admin, err := s.CreateRole(ctx, "Admin")
	require.NoError(t, err)
	editor, err := s.CreateRole(ctx, "Editor")
	require.NoError(t, err)
	viewer, err := s.CreateRole(ctx, "Viewer")
	require.NoError(t, err)

	assertConcurrentReplaceIsExclusive(t, s, alice.ID, admin, editor, viewer)
}
