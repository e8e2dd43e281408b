package users

import "time"

// User is the item stored in the users table. PasswordHash never leaves
// this package's callers; Public() is what handlers may return.
type User struct {
	Email        string    `dynamodbav:"email"` // PK
	UserID       string    `dynamodbav:"user_id"`
	Name         string    `dynamodbav:"name"`
	PasswordHash string    `dynamodbav:"password_hash"`
	Role         string    `dynamodbav:"role"` // user | admin
	CreatedAt    time.Time `dynamodbav:"created_at"`
	UpdatedAt    time.Time `dynamodbav:"updated_at"`
}

// PublicUser is the client-safe projection of a User.
type PublicUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Public strips the credential fields.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:    u.UserID,
		Name:  u.Name,
		Email: u.Email,
		Role:  u.Role,
	}
}
