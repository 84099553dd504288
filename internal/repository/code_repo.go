package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"user-auth/internal/apperr"
	"user-auth/internal/domain"
)

// UserCodeRepository define el contrato de persistencia para codigos de un solo uso.
// Get no valida la expiracion: esa regla pertenece al modelo.
type UserCodeRepository interface {
	Store(ctx context.Context, code domain.OneTimeCode) error
	Get(ctx context.Context, userID, code string) (domain.OneTimeCode, error)
	Delete(ctx context.Context, userID string) error
}

var errCodeNotFound = apperr.NewNotFound("Code not found")

// PgUserCodeRepository guarda los codigos con una columna expire_at explicita.
// Las filas vencidas no se eliminan.
type PgUserCodeRepository struct {
	pool pgxPool
}

func NewPgUserCodeRepository(pool pgxPool) *PgUserCodeRepository {
	return &PgUserCodeRepository{pool: pool}
}

func (r *PgUserCodeRepository) Store(ctx context.Context, code domain.OneTimeCode) error {
	const query = `
		INSERT INTO users_code (code, expire_at, user_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, code) DO UPDATE SET expire_at = EXCLUDED.expire_at
	`
	_, err := r.pool.Exec(ctx, query, code.Code, code.ExpireAt, code.UserID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return errUserNotFound
		}
		return apperr.NewInternal("could not store code",
			oops.With("operation", "insert code").With("user_id", code.UserID).Wrap(err))
	}
	return nil
}

func (r *PgUserCodeRepository) Get(ctx context.Context, userID, code string) (domain.OneTimeCode, error) {
	const query = `
		SELECT code, user_id, expire_at
		FROM users_code
		WHERE code = $1 AND user_id = $2
	`
	var c domain.OneTimeCode
	err := r.pool.QueryRow(ctx, query, code, userID).Scan(&c.Code, &c.UserID, &c.ExpireAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.OneTimeCode{}, errCodeNotFound
	}
	if err != nil {
		return domain.OneTimeCode{}, apperr.NewInternal("could not get code",
			oops.With("operation", "get code").With("user_id", userID).Wrap(err))
	}
	return c, nil
}

func (r *PgUserCodeRepository) Delete(ctx context.Context, userID string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM users_code WHERE user_id = $1`, userID); err != nil {
		return apperr.NewInternal("could not delete codes",
			oops.With("operation", "delete codes").With("user_id", userID).Wrap(err))
	}
	return nil
}
