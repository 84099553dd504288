package domain

import "time"

// OneTimeCode es un codigo de corta duracion ligado a un usuario.
// Es unico solo en combinacion con UserID.
type OneTimeCode struct {
	Code     string    `json:"code"`
	UserID   string    `json:"user_id"`
	ExpireAt time.Time `json:"expire_at"`
}

// ExpiredAt indica si el codigo ya no es valido en el instante now.
func (c OneTimeCode) ExpiredAt(now time.Time) bool {
	return c.ExpireAt.Before(now)
}
