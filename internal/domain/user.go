package domain

import "time"

// User es el registro de identidad persistido.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Activated    bool      `json:"activated"`
	Blocked      bool      `json:"blocked"`
	CreatedAt    time.Time `json:"created_at"`
}

// UserData es la proyeccion de solo lectura de un usuario.
type UserData struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Activated bool   `json:"activated"`
	Blocked   bool   `json:"blocked"`
}

// UserProfile agrega el id a UserData.
type UserProfile struct {
	ID string `json:"id"`
	UserData
}

// Profile proyecta el usuario sin el hash de la password.
func (u User) Profile() UserProfile {
	return UserProfile{ID: u.ID, UserData: u.Data()}
}

func (u User) Data() UserData {
	return UserData{
		Username:  u.Username,
		Email:     u.Email,
		Activated: u.Activated,
		Blocked:   u.Blocked,
	}
}

// UserPatch describe una actualizacion parcial: los campos nil no se tocan.
// Blocked no forma parte del patch; lo administra un proceso externo.
type UserPatch struct {
	Username     *string
	Email        *string
	PasswordHash *string
	Activated    *bool
}

// IsEmpty indica si el patch no modifica ningun campo.
func (p UserPatch) IsEmpty() bool {
	return p.Username == nil && p.Email == nil && p.PasswordHash == nil && p.Activated == nil
}
