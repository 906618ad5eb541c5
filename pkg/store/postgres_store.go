package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-usermgmt/pkg/password"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// PostgresStore implements Store on top of pgx. Uniqueness and referential
// integrity are enforced by the schema in migrations/.
type PostgresStore struct {
	pool   *pgxpool.Pool
	db     DBTX
	hasher password.Hasher
}

// NewPostgresStore creates a new PostgreSQL-backed store
func NewPostgresStore(pool *pgxpool.Pool, hasher password.Hasher) *PostgresStore {
	if hasher == nil {
		hasher = password.NewBcryptHasher()
	}
	return &PostgresStore{pool: pool, db: pool, hasher: hasher}
}

// WithTx runs fn inside a single database transaction. Nested calls reuse the
// outer transaction.
func (s *PostgresStore) WithTx(ctx context.Context, fn func(tx Store) error) error {
	if s.pool == nil {
		return fn(s)
	}
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(&PostgresStore{db: tx, hasher: s.hasher})
	})
}

const userColumns = `id, email, username, first_name, last_name, phone_number, password_hash, created_at, last_modified_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.FirstName, &u.LastName, &u.PhoneNumber,
		&u.PasswordHash, &u.CreatedAt, &u.LastModifiedAt)
	return u, err
}

func (s *PostgresStore) queryUsers(ctx context.Context, query string, args ...interface{}) ([]User, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, mapError(rows.Err())
}

func (s *PostgresStore) ListUsers(ctx context.Context) ([]User, error) {
	return s.queryUsers(ctx, `SELECT `+userColumns+` FROM users ORDER BY lower(email)`)
}

func (s *PostgresStore) GetUser(ctx context.Context, id uuid.UUID) (User, error) {
	u, err := scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	return u, mapError(err)
}

func (s *PostgresStore) LockUser(ctx context.Context, id uuid.UUID) (User, error) {
	u, err := scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id))
	return u, mapError(err)
}

func (s *PostgresStore) FindUserByEmail(ctx context.Context, email string) (User, error) {
	u, err := scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email))
	return u, mapError(err)
}

func (s *PostgresStore) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRow(ctx, `SELECT count(*) FROM users`).Scan(&n)
	if err != nil {
		return 0, mapError(err)
	}
	return n, nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, user User, plaintext string) (User, error) {
	hashed, err := s.hasher.Hash(plaintext)
	if err != nil {
		return User{}, fmt.Errorf("failed to hash password: %w", err)
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}

	query := `
		INSERT INTO users (id, email, username, first_name, last_name, phone_number, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + userColumns
	created, err := scanUser(s.db.QueryRow(ctx, query,
		user.ID, user.Email, user.Username, user.FirstName, user.LastName, user.PhoneNumber, hashed))
	if err != nil {
		return User{}, mapError(err)
	}
	return created, nil
}

func (s *PostgresStore) UpdateUser(ctx context.Context, user User) (User, error) {
	query := `
		UPDATE users
		SET email = $2, username = $3, first_name = $4, last_name = $5, phone_number = $6,
		    last_modified_at = now()
		WHERE id = $1
		RETURNING ` + userColumns
	updated, err := scanUser(s.db.QueryRow(ctx, query,
		user.ID, user.Email, user.Username, user.FirstName, user.LastName, user.PhoneNumber))
	if err != nil {
		return User{}, mapError(err)
	}
	return updated, nil
}

func (s *PostgresStore) SetPassword(ctx context.Context, id uuid.UUID, plaintext string) error {
	hashed, err := s.hasher.Hash(plaintext)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	tag, err := s.db.Exec(ctx,
		`UPDATE users SET password_hash = $2, last_modified_at = now() WHERE id = $1`, id, hashed)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) VerifyPassword(ctx context.Context, id uuid.UUID, plaintext string) (bool, error) {
	var hashed string
	if err := s.db.QueryRow(ctx, `SELECT password_hash FROM users WHERE id = $1`, id).Scan(&hashed); err != nil {
		return false, mapError(err)
	}
	return s.hasher.Verify(plaintext, hashed)
}

func (s *PostgresStore) DeleteUser(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) queryRoles(ctx context.Context, query string, args ...interface{}) ([]Role, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var roles []Role
	for rows.Next() {
		var r Role
		if err := rows.Scan(&r.ID, &r.Name); err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, r)
	}
	return roles, mapError(rows.Err())
}

func (s *PostgresStore) ListRoles(ctx context.Context) ([]Role, error) {
	return s.queryRoles(ctx, `SELECT id, name FROM roles ORDER BY lower(name)`)
}

func (s *PostgresStore) GetRole(ctx context.Context, id uuid.UUID) (Role, error) {
	var r Role
	err := s.db.QueryRow(ctx, `SELECT id, name FROM roles WHERE id = $1`, id).Scan(&r.ID, &r.Name)
	return r, mapError(err)
}

func (s *PostgresStore) FindRoleByName(ctx context.Context, name string) (Role, error) {
	var r Role
	err := s.db.QueryRow(ctx, `SELECT id, name FROM roles WHERE lower(name) = lower($1)`, name).Scan(&r.ID, &r.Name)
	return r, mapError(err)
}

func (s *PostgresStore) CreateRole(ctx context.Context, name string) (Role, error) {
	r := Role{ID: uuid.New(), Name: name}
	if _, err := s.db.Exec(ctx, `INSERT INTO roles (id, name) VALUES ($1, $2)`, r.ID, r.Name); err != nil {
		return Role{}, mapError(err)
	}
	return r, nil
}

func (s *PostgresStore) UpdateRole(ctx context.Context, role Role) (Role, error) {
	tag, err := s.db.Exec(ctx, `UPDATE roles SET name = $2 WHERE id = $1`, role.ID, role.Name)
	if err != nil {
		return Role{}, mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return Role{}, ErrNotFound
	}
	return role, nil
}

func (s *PostgresStore) DeleteRole(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) AddMembership(ctx context.Context, userID, roleID uuid.UUID) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, userID, roleID)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
		return fmt.Errorf("%w: %s", ErrNotFound, pgErr.ConstraintName)
	}
	return mapError(err)
}

func (s *PostgresStore) RemoveMembership(ctx context.Context, userID, roleID uuid.UUID) error {
	_, err := s.db.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1 AND role_id = $2`, userID, roleID)
	return mapError(err)
}

func (s *PostgresStore) RolesOfUser(ctx context.Context, userID uuid.UUID) ([]Role, error) {
	if _, err := s.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.queryRoles(ctx, `
		SELECT r.id, r.name
		FROM roles r
		JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = $1
		ORDER BY lower(r.name)`, userID)
}

func (s *PostgresStore) UsersInRole(ctx context.Context, roleID uuid.UUID) ([]User, error) {
	if _, err := s.GetRole(ctx, roleID); err != nil {
		return nil, err
	}
	return s.queryUsers(ctx, `
		SELECT u.id, u.email, u.username, u.first_name, u.last_name, u.phone_number,
		       u.password_hash, u.created_at, u.last_modified_at
		FROM users u
		JOIN user_roles ur ON ur.user_id = u.id
		WHERE ur.role_id = $1
		ORDER BY lower(u.email)`, roleID)
}

// mapError translates driver errors into the store sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
		case pgForeignKeyViolation:
			return fmt.Errorf("%w: %s", ErrHasMemberships, pgErr.ConstraintName)
		}
	}
	return err
}
