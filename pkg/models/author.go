package models

import (
	"fmt"

	"github.com/uptrace/bun"
)

// AuthorNameMaxLength bounds name, surname and patronymic.
const AuthorNameMaxLength = 20

type Author struct {
	bun.BaseModel `bun:"table:authors,alias:a"`

	ID         int    `bun:",pk,nullzero" json:"id"`
	Name       string `bun:",notnull" json:"name"`
	Surname    string `bun:",notnull" json:"surname"`
	Patronymic string `bun:",notnull" json:"patronymic"`
}

func (a *Author) String() string {
	return fmt.Sprintf("Author(id=%d)", a.ID)
}
