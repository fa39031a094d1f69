package models

import "time"

// User is a row of the users table. PasswordHash holds a bcrypt hash and is
// never serialized.
type User struct {
	ID           int64      `db:"id"`
	Email        string     `db:"email"`
	UserName     string     `db:"username"`
	PasswordHash string     `db:"password"`
	IsActive     bool       `db:"is_active"`
	LastLogin    *time.Time `db:"last_login"`
	CreatedAt    time.Time  `db:"created_at"`
}

// PublicUser is the projection of a user that may leave the server.
type PublicUser struct {
	ID       int64  `json:"id"`
	UserName string `json:"username"`
	Email    string `json:"email"`
}

// Public returns the externally visible part of u.
func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, UserName: u.UserName, Email: u.Email}
}
