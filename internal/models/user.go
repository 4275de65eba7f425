package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Name is a user's display name.
type Name struct {
	First string `bson:"first" json:"first"`
	Last  string `bson:"last" json:"last"`
}

// User is an application account. Local users log in with username and
// password; users federated through Keycloak carry their OIDC subject in Sub.
type User struct {
	ID           string    `bson:"_id,omitempty" json:"id"`
	Sub          string    `bson:"sub,omitempty" json:"sub,omitempty"`
	Username     string    `bson:"username" json:"username"`
	Email        string    `bson:"email" json:"email"`
	Name         Name      `bson:"name" json:"name"`
	Internal     bool      `bson:"internal" json:"internal"`
	Root         bool      `bson:"root" json:"root"`
	Groups       []string  `bson:"groups" json:"groups"`
	PasswordHash string    `bson:"passwordHash,omitempty" json:"-"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt" json:"updatedAt"`
}

// PublicUser is the view of a user returned by the API and embedded in
// populated references (department chairs, action actors).
type PublicUser struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Name     Name     `json:"name"`
	Internal bool     `json:"internal"`
	Root     bool     `json:"root"`
	Groups   []string `json:"groups"`
}

func (u *User) Public() PublicUser {
	groups := u.Groups
	if groups == nil {
		groups = []string{}
	}
	return PublicUser{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Name:     u.Name,
		Internal: u.Internal,
		Root:     u.Root,
		Groups:   groups,
	}
}

// InGroup reports whether the user belongs to group.
func (u *User) InGroup(group string) bool {
	for _, g := range u.Groups {
		if g == group {
			return true
		}
	}
	return false
}

// SetPassword stores the bcrypt hash of password using cost rounds.
func (u *User) SetPassword(password string, cost int) error {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(h)
	return nil
}

// ComparePassword reports whether password matches the stored hash.
// Users without a local password never match.
func (u *User) ComparePassword(password string) bool {
	if u.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}
