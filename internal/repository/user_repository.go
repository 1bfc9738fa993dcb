package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/orderme/internal/domain"
)

// ErrPhoneNumberTaken is returned by Create when an active user already owns
// the phone number.
var ErrPhoneNumberTaken = errors.New("phone number already registered")

const uniqueViolation = "23505"

// UserRepository defines persistence access for application users.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByPhoneNumber(ctx context.Context, phone string) (*domain.User, error)
	ExistsByPhoneNumber(ctx context.Context, phone string) (bool, error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

const userColumns = `internal_id, id, name, phone_number, birth_date, password_hash, gender, created_at, is_deleted`

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (id, name, phone_number, birth_date, password_hash, gender)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING internal_id, created_at`

	err := r.pool.QueryRow(ctx, query,
		user.ID,
		user.Name,
		user.PhoneNumber,
		user.BirthDate,
		user.PasswordHash,
		user.Gender,
	).Scan(&user.InternalID, &user.CreatedAt)
	return mapUserWriteError(err)
}

func mapUserWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == "users_phone_number_active_idx" {
		return ErrPhoneNumberTaken
	}
	return err
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id=$1 AND NOT is_deleted`
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

func (r *userRepository) GetByPhoneNumber(ctx context.Context, phone string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE phone_number=$1 AND NOT is_deleted`
	return scanUser(r.pool.QueryRow(ctx, query, phone))
}

func (r *userRepository) ExistsByPhoneNumber(ctx context.Context, phone string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM users WHERE phone_number=$1 AND NOT is_deleted)`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, phone).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.InternalID,
		&user.ID,
		&user.Name,
		&user.PhoneNumber,
		&user.BirthDate,
		&user.PasswordHash,
		&user.Gender,
		&user.CreatedAt,
		&user.Deleted,
	); err != nil {
		return nil, err
	}
	return &user, nil
}
