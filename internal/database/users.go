package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const createUser = `
INSERT INTO users (email, hashed_password, full_name, role, phone)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, email, hashed_password, full_name, role, phone, created_at, updated_at
`

type CreateUserParams struct {
	Email          string
	HashedPassword string
	FullName       string
	Role           string
	Phone          pgtype.Text
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	var u User
	err := q.db.QueryRow(ctx, createUser,
		arg.Email, arg.HashedPassword, arg.FullName, arg.Role, arg.Phone,
	).Scan(
		&u.ID, &u.Email, &u.HashedPassword, &u.FullName, &u.Role, &u.Phone,
		&u.CreatedAt, &u.UpdatedAt,
	)
	return u, err
}

const getUser = `
SELECT id, email, hashed_password, full_name, role, phone, created_at, updated_at
FROM users
WHERE id = $1
`

func (q *Queries) GetUser(ctx context.Context, id uuid.UUID) (User, error) {
	var u User
	err := q.db.QueryRow(ctx, getUser, id).Scan(
		&u.ID, &u.Email, &u.HashedPassword, &u.FullName, &u.Role, &u.Phone,
		&u.CreatedAt, &u.UpdatedAt,
	)
	return u, err
}

const getUserByEmail = `
SELECT id, email, hashed_password, full_name, role, phone, created_at, updated_at
FROM users
WHERE email = $1
`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var u User
	err := q.db.QueryRow(ctx, getUserByEmail, email).Scan(
		&u.ID, &u.Email, &u.HashedPassword, &u.FullName, &u.Role, &u.Phone,
		&u.CreatedAt, &u.UpdatedAt,
	)
	return u, err
}

const updateUserProfile = `
UPDATE users
SET email = $2, full_name = $3, phone = $4, updated_at = now()
WHERE id = $1
RETURNING id, email, hashed_password, full_name, role, phone, created_at, updated_at
`

// UpdateUserProfileParams deliberately excludes role: it is fixed at creation.
type UpdateUserProfileParams struct {
	ID       uuid.UUID
	Email    string
	FullName string
	Phone    pgtype.Text
}

func (q *Queries) UpdateUserProfile(ctx context.Context, arg UpdateUserProfileParams) (User, error) {
	var u User
	err := q.db.QueryRow(ctx, updateUserProfile,
		arg.ID, arg.Email, arg.FullName, arg.Phone,
	).Scan(
		&u.ID, &u.Email, &u.HashedPassword, &u.FullName, &u.Role, &u.Phone,
		&u.CreatedAt, &u.UpdatedAt,
	)
	return u, err
}

const updateUserPassword = `
UPDATE users
SET hashed_password = $2, updated_at = now()
WHERE id = $1
RETURNING id
`

type UpdateUserPasswordParams struct {
	ID             uuid.UUID
	HashedPassword string
}

func (q *Queries) UpdateUserPassword(ctx context.Context, arg UpdateUserPasswordParams) (uuid.UUID, error) {
	var id uuid.UUID
	err := q.db.QueryRow(ctx, updateUserPassword, arg.ID, arg.HashedPassword).Scan(&id)
	return id, err
}

const countUsers = `
SELECT count(*) FROM users
`

// CountUsers backs the first-run seeding guard.
func (q *Queries) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countUsers).Scan(&n)
	return n, err
}
