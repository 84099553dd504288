package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"user-auth/internal/apperr"
	"user-auth/internal/domain"
	"user-auth/internal/repository"
)

const codeTTL = 30 * time.Minute

const (
	msgUserUpdated     = "User updated"
	msgPasswordUpdated = "Password updated"
	msgUserActivated   = "User activated"
	msgUserDeleted     = "User deleted successfully"
)

// AuthenticationModel concentra las reglas del ciclo de vida de una identidad:
// registro, credenciales, activacion y recuperacion con codigos de un solo uso.
type AuthenticationModel struct {
	logger   *zap.Logger
	users    repository.UserRepository
	codes    repository.UserCodeRepository
	hasher   PasswordHasher
	verifier PasswordVerifier
	codeGen  CodeGenerator
	idGen    IDGenerator
	now      func() time.Time
}

type ModelOption func(*AuthenticationModel)

func WithPasswordHasher(h PasswordHasher) ModelOption {
	return func(m *AuthenticationModel) { m.hasher = h }
}

func WithPasswordVerifier(v PasswordVerifier) ModelOption {
	return func(m *AuthenticationModel) { m.verifier = v }
}

func WithCodeGenerator(g CodeGenerator) ModelOption {
	return func(m *AuthenticationModel) { m.codeGen = g }
}

func WithIDGenerator(g IDGenerator) ModelOption {
	return func(m *AuthenticationModel) { m.idGen = g }
}

// WithClock reemplaza el reloj usado para calcular y validar expiraciones.
func WithClock(now func() time.Time) ModelOption {
	return func(m *AuthenticationModel) { m.now = now }
}

func NewAuthenticationModel(logger *zap.Logger, users repository.UserRepository, codes repository.UserCodeRepository, opts ...ModelOption) *AuthenticationModel {
	if logger == nil {
		logger = zap.NewNop()
	}
	bcryptHasher := NewBcryptHasher()
	m := &AuthenticationModel{
		logger:   logger,
		users:    users,
		codes:    codes,
		hasher:   bcryptHasher,
		verifier: bcryptHasher,
		codeGen:  AlphanumericCodeGenerator{Length: codeLength},
		idGen:    UUIDGenerator{},
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// UpdateInput lleva los campos opcionales de Update. nil deja el valor actual.
type UpdateInput struct {
	Username *string
	Email    *string
}

// Create registra un usuario nuevo con la password hasheada.
func (m *AuthenticationModel) Create(ctx context.Context, username, email, password string) (domain.UserProfile, error) {
	hash, err := m.hashPassword(password)
	if err != nil {
		return domain.UserProfile{}, err
	}
	user, err := m.users.Store(ctx, domain.User{
		ID:           m.idGen.NewID(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	})
	if err != nil {
		m.logInternal("store user failed", err)
		return domain.UserProfile{}, err
	}
	return user.Profile(), nil
}

// LoginVerification valida credenciales. NotFound para usuarios desconocidos,
// Unauthenticated cuando la password no coincide.
func (m *AuthenticationModel) LoginVerification(ctx context.Context, username, password string) (domain.UserProfile, error) {
	user, err := m.users.ConsultByUsername(ctx, username)
	if err != nil {
		m.logInternal("consult user failed", err)
		return domain.UserProfile{}, err
	}
	ok, err := m.verifier.Verify(user.PasswordHash, password)
	if err != nil {
		m.logger.Warn("password verify failed", zap.String("user_id", user.ID), zap.Error(err))
		return domain.UserProfile{}, apperr.NewInternal("could not verify password", err)
	}
	if !ok {
		return domain.UserProfile{}, apperr.NewUnauthenticated("Incorrect password")
	}
	return user.Profile(), nil
}

func (m *AuthenticationModel) RecoverUserData(ctx context.Context, id string) (domain.UserData, error) {
	user, err := m.users.ConsultByID(ctx, id)
	if err != nil {
		m.logInternal("consult user failed", err, zap.String("user_id", id))
		return domain.UserData{}, err
	}
	return user.Data(), nil
}

// Update aplica un patch parcial sobre username y email.
func (m *AuthenticationModel) Update(ctx context.Context, id string, input UpdateInput) (string, error) {
	patch := domain.UserPatch{Username: input.Username, Email: input.Email}
	if patch.IsEmpty() {
		if _, err := m.users.ConsultByID(ctx, id); err != nil {
			m.logInternal("consult user failed", err, zap.String("user_id", id))
			return "", err
		}
		return msgUserUpdated, nil
	}
	if err := m.users.StoreUpdate(ctx, id, patch); err != nil {
		m.logInternal("update user failed", err, zap.String("user_id", id))
		return "", err
	}
	return msgUserUpdated, nil
}

// UpdatePassword exige la password actual antes de guardar la nueva.
func (m *AuthenticationModel) UpdatePassword(ctx context.Context, id, newPassword, oldPassword string) (string, error) {
	user, err := m.users.ConsultByID(ctx, id)
	if err != nil {
		m.logInternal("consult user failed", err, zap.String("user_id", id))
		return "", err
	}
	ok, err := m.verifier.Verify(user.PasswordHash, oldPassword)
	if err != nil {
		m.logger.Warn("password verify failed", zap.String("user_id", id), zap.Error(err))
		return "", apperr.NewInternal("could not verify password", err)
	}
	if !ok {
		return "", apperr.NewInvalidArgument("Old password is invalid")
	}
	if err := m.storePassword(ctx, id, newPassword); err != nil {
		return "", err
	}
	return msgPasswordUpdated, nil
}

// CreateCodeByUserID genera y guarda un codigo valido por codeTTL.
func (m *AuthenticationModel) CreateCodeByUserID(ctx context.Context, userID string) (string, error) {
	user, err := m.users.ConsultByID(ctx, userID)
	if err != nil {
		m.logInternal("consult user failed", err, zap.String("user_id", userID))
		return "", err
	}
	return m.issueCode(ctx, user.ID)
}

func (m *AuthenticationModel) CreateCodeByEmail(ctx context.Context, email string) (string, error) {
	user, err := m.users.ConsultByEmail(ctx, email)
	if err != nil {
		m.logInternal("consult user failed", err)
		return "", err
	}
	return m.issueCode(ctx, user.ID)
}

// ActivateUser marca la cuenta como activada si el codigo existe y no expiro.
func (m *AuthenticationModel) ActivateUser(ctx context.Context, userID, code string) (string, error) {
	stored, err := m.validCode(ctx, userID, code)
	if err != nil {
		return "", err
	}
	activated := true
	if err := m.users.StoreUpdate(ctx, userID, domain.UserPatch{Activated: &activated}); err != nil {
		m.logInternal("activate user failed", err, zap.String("user_id", userID))
		return "", err
	}
	m.consumeCode(ctx, stored)
	return msgUserActivated, nil
}

// RecoverUserPassword reemplaza la password del usuario dueño del email usando un codigo vigente.
func (m *AuthenticationModel) RecoverUserPassword(ctx context.Context, email, newPassword, code string) (string, error) {
	user, err := m.users.ConsultByEmail(ctx, email)
	if err != nil {
		m.logInternal("consult user failed", err)
		return "", err
	}
	stored, err := m.validCode(ctx, user.ID, code)
	if err != nil {
		return "", err
	}
	if err := m.storePassword(ctx, user.ID, newPassword); err != nil {
		return "", err
	}
	m.consumeCode(ctx, stored)
	return msgPasswordUpdated, nil
}

// DeleteUser elimina los codigos del usuario y despues el registro.
func (m *AuthenticationModel) DeleteUser(ctx context.Context, userID string) (string, error) {
	if err := m.codes.Delete(ctx, userID); err != nil {
		m.logInternal("delete codes failed", err, zap.String("user_id", userID))
		return "", err
	}
	if err := m.users.Delete(ctx, userID); err != nil {
		m.logInternal("delete user failed", err, zap.String("user_id", userID))
		return "", err
	}
	return msgUserDeleted, nil
}

func (m *AuthenticationModel) issueCode(ctx context.Context, userID string) (string, error) {
	code, err := m.codeGen.Generate()
	if err != nil {
		m.logger.Warn("generate code failed", zap.String("user_id", userID), zap.Error(err))
		return "", apperr.NewInternal("could not generate code", err)
	}
	err = m.codes.Store(ctx, domain.OneTimeCode{
		Code:     code,
		UserID:   userID,
		ExpireAt: m.now().Add(codeTTL),
	})
	if err != nil {
		m.logInternal("store code failed", err, zap.String("user_id", userID))
		return "", err
	}
	return code, nil
}

// validCode busca el codigo y verifica la expiracion contra el reloj del modelo.
func (m *AuthenticationModel) validCode(ctx context.Context, userID, code string) (domain.OneTimeCode, error) {
	stored, err := m.codes.Get(ctx, userID, code)
	if err != nil {
		if apperr.IsKind(err, apperr.NotFound) {
			return domain.OneTimeCode{}, apperr.NewNotFound("Code not found")
		}
		m.logger.Warn("get code failed", zap.String("user_id", userID), zap.Error(err))
		return domain.OneTimeCode{}, apperr.NewInternal("could not get code", err)
	}
	if stored.ExpiredAt(m.now()) {
		return domain.OneTimeCode{}, apperr.NewInvalidArgument("Code expired")
	}
	return stored, nil
}

// consumeCode vence el codigo ya usado. Una falla aca no revierte la operacion.
func (m *AuthenticationModel) consumeCode(ctx context.Context, code domain.OneTimeCode) {
	code.ExpireAt = m.now().Add(-time.Second)
	if err := m.codes.Store(ctx, code); err != nil {
		m.logger.Warn("consume code failed", zap.String("user_id", code.UserID), zap.Error(err))
	}
}

func (m *AuthenticationModel) storePassword(ctx context.Context, userID, password string) error {
	hash, err := m.hashPassword(password)
	if err != nil {
		return err
	}
	if err := m.users.StoreUpdate(ctx, userID, domain.UserPatch{PasswordHash: &hash}); err != nil {
		m.logInternal("update password failed", err, zap.String("user_id", userID))
		return err
	}
	return nil
}

func (m *AuthenticationModel) hashPassword(password string) (string, error) {
	hash, err := m.hasher.Hash(password)
	if err != nil {
		m.logger.Warn("hash password failed", zap.Error(err))
		return "", apperr.NewInternal("could not hash password", err)
	}
	return hash, nil
}

func (m *AuthenticationModel) logInternal(msg string, err error, fields ...zap.Field) {
	if apperr.KindOf(err) != apperr.Internal {
		return
	}
	m.logger.Warn(msg, append(fields, zap.Error(err))...)
}
