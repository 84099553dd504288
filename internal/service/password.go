package service

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher transforma una password en texto plano en un hash opaco.
type PasswordHasher interface {
	Hash(password string) (string, error)
}

// PasswordVerifier compara una password en texto plano contra un hash guardado.
type PasswordVerifier interface {
	Verify(hash, password string) (bool, error)
}

type PasswordHasherFunc func(password string) (string, error)

func (f PasswordHasherFunc) Hash(password string) (string, error) { return f(password) }

type PasswordVerifierFunc func(hash, password string) (bool, error)

func (f PasswordVerifierFunc) Verify(hash, password string) (bool, error) { return f(hash, password) }

// BcryptHasher implementa PasswordHasher y PasswordVerifier con bcrypt.
type BcryptHasher struct {
	Cost int
}

func NewBcryptHasher() BcryptHasher {
	return BcryptHasher{Cost: bcrypt.DefaultCost}
}

func (h BcryptHasher) Hash(password string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hashBytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashBytes), nil
}

// Verify devuelve false sin error cuando la password no coincide.
func (h BcryptHasher) Verify(hash, password string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
