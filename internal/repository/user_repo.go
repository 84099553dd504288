package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"user-auth/internal/apperr"
	"user-auth/internal/domain"
)

// UserRepository define el contrato de persistencia para usuarios.
type UserRepository interface {
	Store(ctx context.Context, user domain.User) (domain.User, error)
	ConsultByUsername(ctx context.Context, username string) (domain.User, error)
	ConsultByID(ctx context.Context, id string) (domain.User, error)
	ConsultByEmail(ctx context.Context, email string) (domain.User, error)
	StoreUpdate(ctx context.Context, id string, patch domain.UserPatch) error
	Delete(ctx context.Context, id string) error
}

var (
	errUserNotFound = apperr.NewNotFound("User not found")
	errUserConflict = apperr.NewAlreadyExists("Username or email already in use")
)

// PgUserRepository implementa UserRepository usando pgxpool.
type PgUserRepository struct {
	pool pgxPool
}

func NewPgUserRepository(pool pgxPool) *PgUserRepository {
	return &PgUserRepository{pool: pool}
}

const userColumns = `id, username, email, password, activated, blocked, created_at`

func (r *PgUserRepository) Store(ctx context.Context, user domain.User) (domain.User, error) {
	const query = `
		INSERT INTO users (id, username, email, password)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + userColumns

	row := r.pool.QueryRow(ctx, query,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
	)
	stored, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.User{}, errUserConflict
		}
		return domain.User{}, apperr.NewInternal("could not store user",
			oops.With("operation", "insert user").With("id", user.ID).Wrap(err))
	}
	return stored, nil
}

func (r *PgUserRepository) ConsultByUsername(ctx context.Context, username string) (domain.User, error) {
	return r.consult(ctx, "username", `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

func (r *PgUserRepository) ConsultByID(ctx context.Context, id string) (domain.User, error) {
	return r.consult(ctx, "id", `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *PgUserRepository) ConsultByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.consult(ctx, "email", `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *PgUserRepository) consult(ctx context.Context, field, query, value string) (domain.User, error) {
	user, err := scanUser(r.pool.QueryRow(ctx, query, value))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, errUserNotFound
	}
	if err != nil {
		return domain.User{}, apperr.NewInternal("could not consult user",
			oops.With("operation", "get user by "+field).With(field, value).Wrap(err))
	}
	return user, nil
}

// StoreUpdate aplica un patch parcial: COALESCE mantiene las columnas cuyo parametro es NULL.
func (r *PgUserRepository) StoreUpdate(ctx context.Context, id string, patch domain.UserPatch) error {
	const query = `
		UPDATE users SET
			username = COALESCE($2, username),
			email = COALESCE($3, email),
			password = COALESCE($4, password),
			activated = COALESCE($5, activated)
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query,
		id,
		patch.Username,
		patch.Email,
		patch.PasswordHash,
		patch.Activated,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return errUserConflict
		}
		return apperr.NewInternal("could not update user",
			oops.With("operation", "update user").With("id", id).Wrap(err))
	}
	if tag.RowsAffected() == 0 {
		return errUserNotFound
	}
	return nil
}

func (r *PgUserRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return apperr.NewInternal("could not delete user",
			oops.With("operation", "delete user").With("id", id).Wrap(err))
	}
	if tag.RowsAffected() == 0 {
		return errUserNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&u.Activated,
		&u.Blocked,
		&u.CreatedAt,
	)
	return u, err
}
