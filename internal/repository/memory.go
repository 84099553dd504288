package repository

import (
	"context"
	"sync"
	"time"

	"user-auth/internal/domain"
)

// MemoryUserRepository es un UserRepository en memoria, util para tests y desarrollo local.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]domain.User
	now   func() time.Time
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		users: make(map[string]domain.User),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (r *MemoryUserRepository) Store(_ context.Context, user domain.User) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[user.ID]; ok {
		return domain.User{}, errUserConflict
	}
	if r.takenLocked(user.ID, user.Username, user.Email) {
		return domain.User{}, errUserConflict
	}
	user.Activated = false
	user.Blocked = false
	user.CreatedAt = r.now()
	r.users[user.ID] = user
	return user, nil
}

func (r *MemoryUserRepository) ConsultByUsername(_ context.Context, username string) (domain.User, error) {
	return r.find(func(u domain.User) bool { return u.Username == username })
}

func (r *MemoryUserRepository) ConsultByID(_ context.Context, id string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return domain.User{}, errUserNotFound
	}
	return u, nil
}

func (r *MemoryUserRepository) ConsultByEmail(_ context.Context, email string) (domain.User, error) {
	return r.find(func(u domain.User) bool { return u.Email == email })
}

func (r *MemoryUserRepository) StoreUpdate(_ context.Context, id string, patch domain.UserPatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return errUserNotFound
	}
	username, email := "", ""
	if patch.Username != nil {
		username = *patch.Username
	}
	if patch.Email != nil {
		email = *patch.Email
	}
	if r.takenLocked(id, username, email) {
		return errUserConflict
	}

	if patch.Username != nil {
		u.Username = *patch.Username
	}
	if patch.Email != nil {
		u.Email = *patch.Email
	}
	if patch.PasswordHash != nil {
		u.PasswordHash = *patch.PasswordHash
	}
	if patch.Activated != nil {
		u.Activated = *patch.Activated
	}
	r.users[id] = u
	return nil
}

func (r *MemoryUserRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return errUserNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *MemoryUserRepository) find(match func(domain.User) bool) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if match(u) {
			return u, nil
		}
	}
	return domain.User{}, errUserNotFound
}

// takenLocked indica si otro usuario ya usa username o email. Requiere r.mu tomado.
func (r *MemoryUserRepository) takenLocked(selfID, username, email string) bool {
	for id, u := range r.users {
		if id == selfID {
			continue
		}
		if (username != "" && u.Username == username) || (email != "" && u.Email == email) {
			return true
		}
	}
	return false
}

type codeKey struct {
	userID string
	code   string
}

// MemoryUserCodeRepository es un UserCodeRepository en memoria con la misma semantica que Postgres:
// conserva los codigos vencidos y Store sobreescribe la expiracion de un par existente.
type MemoryUserCodeRepository struct {
	mu    sync.Mutex
	codes map[codeKey]domain.OneTimeCode
	users UserRepository
}

// NewMemoryUserCodeRepository recibe opcionalmente el repo de usuarios para validar la referencia.
func NewMemoryUserCodeRepository(users UserRepository) *MemoryUserCodeRepository {
	return &MemoryUserCodeRepository{
		codes: make(map[codeKey]domain.OneTimeCode),
		users: users,
	}
}

func (r *MemoryUserCodeRepository) Store(ctx context.Context, code domain.OneTimeCode) error {
	if r.users != nil {
		if _, err := r.users.ConsultByID(ctx, code.UserID); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codes[codeKey{userID: code.UserID, code: code.Code}] = code
	return nil
}

func (r *MemoryUserCodeRepository) Get(_ context.Context, userID, code string) (domain.OneTimeCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.codes[codeKey{userID: userID, code: code}]
	if !ok {
		return domain.OneTimeCode{}, errCodeNotFound
	}
	return c, nil
}

func (r *MemoryUserCodeRepository) Delete(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k := range r.codes {
		if k.userID == userID {
			delete(r.codes, k)
		}
	}
	return nil
}

// Len devuelve la cantidad de codigos guardados.
func (r *MemoryUserCodeRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.codes)
}
