package model

import (
	"time"
)

// User is an administrator of the admin API
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Username     string `gorm:"uniqueIndex;size:255" json:"username"`
	PasswordHash string `json:"-"`
	DisplayName  string `json:"displayName"`
	Disabled     bool   `json:"disabled"`
}

// UsersStore abstracts CRUD and authentication for admin users
type UsersStore interface {
	Count() (int64, error)
	List() ([]User, error)
	Get(username string) (*User, error)
	// Create creates a user; the implementation hashes the password
	Create(username, password, displayName string) (*User, error)
	Update(username string, displayName, newPassword *string, disabled *bool) (*User, error)
	Delete(username string) error
	// Authenticate checks a username/password combination
	Authenticate(username, password string) (*User, error)
}
