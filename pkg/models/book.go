package models

import (
	"fmt"

	"github.com/segmentio/encoding/json"
	"github.com/uptrace/bun"
)

const (
	BookNameMaxLength = 128
	// DefaultBookCount is the number of copies a book gets when none is given.
	DefaultBookCount = 10
)

type Book struct {
	bun.BaseModel `bun:"table:books,alias:b"`

	ID          int       `bun:",pk,nullzero"`
	Name        string    `bun:",notnull"`
	Description string    `bun:",notnull"`
	Count       int       `bun:",notnull"`
	Authors     []*Author `bun:"m2m:book_authors,join:Book=Author"`
}

// BookAuthor is the join row of the many-to-many relation between books and
// authors.
type BookAuthor struct {
	bun.BaseModel `bun:"table:book_authors,alias:ba"`

	BookID   int     `bun:",pk"`
	Book     *Book   `bun:"rel:belongs-to,join:book_id=id"`
	AuthorID int     `bun:",pk"`
	Author   *Author `bun:"rel:belongs-to,join:author_id=id"`
}

// AuthorIDs returns the IDs of the loaded authors, in load order.
func (b *Book) AuthorIDs() []int {
	ids := make([]int, 0, len(b.Authors))
	for _, a := range b.Authors {
		ids = append(ids, a.ID)
	}
	return ids
}

func (b *Book) String() string {
	return fmt.Sprintf("Book(id=%d)", b.ID)
}

// MarshalJSON renders the authors as a list of IDs.
func (b *Book) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID          int    `json:"id"`
		Name        string `json:"name"`
		Description string `json:"description"`
		Count       int    `json:"count"`
		Authors     []int  `json:"authors"`
	}{b.ID, b.Name, b.Description, b.Count, b.AuthorIDs()})
}
