package models

import (
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// User roles.
const (
	RoleVisitor   = 0
	RoleLibrarian = 1
)

type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           int       `bun:",pk,nullzero" json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Email        string    `bun:",notnull" json:"email"`
	FirstName    string    `bun:",notnull" json:"first_name"`
	MiddleName   string    `bun:",notnull" json:"middle_name"`
	LastName     string    `bun:",notnull" json:"last_name"`
	PasswordHash string    `bun:",notnull" json:"-"` // Never expose password hash
	Role         int       `bun:",notnull" json:"role"`
	IsActive     bool      `bun:",notnull" json:"is_active"`
}

func (u *User) IsLibrarian() bool {
	return u.Role == RoleLibrarian
}

func (u *User) String() string {
	return fmt.Sprintf("User(id=%d)", u.ID)
}
