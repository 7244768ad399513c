package domain

import "time"

// User models any account known to the service: customers, support staff
// and administrators, distinguished by Role.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	CompanyID    *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AsActor converts the user into an operation actor.
func (u *User) AsActor() Actor {
	return Actor{ID: u.ID, Name: u.Name, Role: u.Role}
}
