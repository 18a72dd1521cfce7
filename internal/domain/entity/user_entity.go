package entity

import (
	"time"
)

// User is the aggregate root for the membership domain.
// LoginCount and RecommendCount are maintained by other systems; the upgrade
// batch only reads them and advances Level.
//
// Name and Password are carried through untouched.
type User struct {
	ID             string
	Name           string
	Password       string
	Email          string
	Level          Level
	LoginCount     int
	RecommendCount int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Clone returns a detached copy, used by stores that must not share state with callers.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
