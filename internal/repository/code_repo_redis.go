package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"user-auth/internal/apperr"
	"user-auth/internal/domain"
)

const (
	codeKeyPrefix = "users_code:"

	// defaultCodeRetention es cuanto sobrevive la clave despues de expire_at.
	defaultCodeRetention = 24 * time.Hour
)

// RedisUserCodeRepository guarda los codigos con expiracion nativa en milisegundos.
// La clave vive hasta expire_at + retention, asi un codigo vencido o consumido
// se sigue leyendo con su expire_at y el modelo lo rechaza igual que en Postgres.
type RedisUserCodeRepository struct {
	client    redis.Cmdable
	prefix    string
	retention time.Duration
	now       func() time.Time
}

type RedisCodeOption func(*RedisUserCodeRepository)

// WithCodeRetention cambia el tiempo que se conserva un codigo ya vencido.
func WithCodeRetention(d time.Duration) RedisCodeOption {
	return func(r *RedisUserCodeRepository) {
		if d >= 0 {
			r.retention = d
		}
	}
}

// WithCodeClock reemplaza el reloj usado para reconstruir expire_at desde el PTTL.
func WithCodeClock(now func() time.Time) RedisCodeOption {
	return func(r *RedisUserCodeRepository) { r.now = now }
}

func NewRedisUserCodeRepository(client redis.Cmdable, opts ...RedisCodeOption) *RedisUserCodeRepository {
	r := &RedisUserCodeRepository{
		client:    client,
		prefix:    codeKeyPrefix,
		retention: defaultCodeRetention,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *RedisUserCodeRepository) key(userID, code string) string {
	return r.prefix + userID + ":" + code
}

func (r *RedisUserCodeRepository) Store(ctx context.Context, code domain.OneTimeCode) error {
	key := r.key(code.UserID, code.Code)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, code.Code, 0)
		pipe.PExpireAt(ctx, key, code.ExpireAt.Add(r.retention))
		return nil
	})
	if err != nil {
		return apperr.NewInternal("could not store code",
			oops.With("operation", "set code").With("user_id", code.UserID).Wrap(err))
	}
	return nil
}

func (r *RedisUserCodeRepository) Get(ctx context.Context, userID, code string) (domain.OneTimeCode, error) {
	key := r.key(userID, code)

	var (
		getCmd *redis.StringCmd
		ttlCmd *redis.DurationCmd
	)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		getCmd = pipe.Get(ctx, key)
		ttlCmd = pipe.PTTL(ctx, key)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return domain.OneTimeCode{}, apperr.NewInternal("could not get code",
			oops.With("operation", "get code").With("user_id", userID).Wrap(err))
	}

	stored, err := getCmd.Result()
	if errors.Is(err, redis.Nil) {
		return domain.OneTimeCode{}, errCodeNotFound
	}
	if err != nil {
		return domain.OneTimeCode{}, apperr.NewInternal("could not get code",
			oops.With("operation", "get code").With("user_id", userID).Wrap(err))
	}
	if stored != code {
		return domain.OneTimeCode{}, errCodeNotFound
	}

	// PTTL negativo: la clave expiro entre GET y PTTL o no tiene expiracion.
	ttl := ttlCmd.Val()
	if ttl < 0 {
		return domain.OneTimeCode{}, errCodeNotFound
	}

	return domain.OneTimeCode{
		Code:     code,
		UserID:   userID,
		ExpireAt: r.now().Add(ttl - r.retention),
	}, nil
}

func (r *RedisUserCodeRepository) Delete(ctx context.Context, userID string) error {
	pattern := r.prefix + escapeGlob(userID) + ":*"
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return apperr.NewInternal("could not delete codes",
				oops.With("operation", "scan codes").With("user_id", userID).Wrap(err))
		}
		if len(keys) > 0 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				return apperr.NewInternal("could not delete codes",
					oops.With("operation", "delete codes").With("user_id", userID).Wrap(err))
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

var globEscaper = strings.NewReplacer(
	`\`, `\\`,
	`*`, `\*`,
	`?`, `\?`,
	`[`, `\[`,
	`]`, `\]`,
)

// escapeGlob neutraliza los metacaracteres de MATCH para que el id se compare literal.
func escapeGlob(s string) string {
	return globEscaper.Replace(s)
}
