// Package sanitize normaliza la entrada de usuario antes de llegar al modelo.
package sanitize

import (
	"strings"
	"unicode"

	"user-auth/internal/apperr"
)

// UserInput aplica las reglas de limpieza de username, email y password.
type UserInput struct{}

// Username recorta espacios y deja solo letras y digitos.
func (UserInput) Username(raw string) (string, error) {
	return clean("Username", raw, func(s string) string {
		return strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				return r
			}
			return -1
		}, strings.TrimSpace(s))
	})
}

// Email recorta espacios y pasa a minusculas.
func (UserInput) Email(raw string) (string, error) {
	return clean("Email", raw, func(s string) string {
		return strings.ToLower(strings.TrimSpace(s))
	})
}

// Password solo recorta espacios en los extremos.
func (UserInput) Password(raw string) (string, error) {
	return clean("Password", raw, strings.TrimSpace)
}

func clean(field, raw string, rule func(string) string) (string, error) {
	if raw == "" {
		return "", apperr.NewInvalidArgument(field + " is empty")
	}
	out := rule(raw)
	if out == "" {
		return "", apperr.NewInvalidArgument(field + " is empty after sanitize")
	}
	return out, nil
}
