package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/rpattn/candh/internal/candh"
)

// User is an application account.
type User struct {
	ID         uuid.UUID  `json:"id" yaml:"id"`
	Username   string     `json:"username" yaml:"username"`
	Email      string     `json:"email" yaml:"email"`
	Firstname  string     `json:"firstname" yaml:"firstname"`
	Lastname   string     `json:"lastname" yaml:"lastname"`
	LastAccess *time.Time `json:"last_access,omitempty" yaml:"lastAccess,omitempty"`
	Created    time.Time  `json:"created" yaml:"created"`
	LastUpdate time.Time  `json:"last_update" yaml:"lastUpdate"`
}

// IdentityKey implements candh.Identifiable.
func (u *User) IdentityKey() (string, bool) {
	if u == nil || u.ID == uuid.Nil {
		return "", false
	}
	return u.ID.String(), true
}

// UserSchema describes the walked properties of User.
func UserSchema() *candh.Schema {
	return candh.NewSchema[User]("User",
		candh.Field("id",
			func(u *User) uuid.UUID { return u.ID },
			func(u *User, v uuid.UUID) { u.ID = v },
			candh.Identity()),
		candh.Field("username",
			func(u *User) string { return u.Username },
			func(u *User, v string) { u.Username = v }),
		candh.Field("email",
			func(u *User) string { return u.Email },
			func(u *User, v string) { u.Email = v }),
		candh.Field("firstname",
			func(u *User) string { return u.Firstname },
			func(u *User, v string) { u.Firstname = v }),
		candh.Field("lastname",
			func(u *User) string { return u.Lastname },
			func(u *User, v string) { u.Lastname = v }),
		candh.Field("lastAccess",
			func(u *User) *time.Time { return u.LastAccess },
			func(u *User, v *time.Time) { u.LastAccess = v },
			candh.Minor()),
		candh.Field("created",
			func(u *User) time.Time { return u.Created },
			func(u *User, v time.Time) { u.Created = v },
			candh.Created()),
		candh.Field("lastUpdate",
			func(u *User) time.Time { return u.LastUpdate },
			func(u *User, v time.Time) { u.LastUpdate = v },
			candh.LastUpdate()),
	)
}
