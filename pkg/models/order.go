package models

import (
	"fmt"
	"time"

	"github.com/segmentio/encoding/json"
	"github.com/uptrace/bun"
)

// Order is a loan of a book to a user. EndAt stays NULL until the book is
// returned; PlatedEndAt is the due date.
type Order struct {
	bun.BaseModel `bun:"table:orders,alias:o"`

	ID          int        `bun:",pk,nullzero"`
	UserID      int        `bun:",notnull"`
	User        *User      `bun:"rel:belongs-to,join:user_id=id"`
	BookID      int        `bun:",notnull"`
	Book        *Book      `bun:"rel:belongs-to,join:book_id=id"`
	CreatedAt   time.Time  `bun:",notnull"`
	EndAt       *time.Time `bun:"end_at"`
	PlatedEndAt time.Time  `bun:",notnull"`
}

func (o *Order) IsReturned() bool {
	return o.EndAt != nil
}

func (o *Order) String() string {
	return fmt.Sprintf("Order(id=%d)", o.ID)
}

// MarshalJSON renders timestamps as unix seconds and the user and book as
// their IDs.
func (o *Order) MarshalJSON() ([]byte, error) {
	var endAt *int64
	if o.EndAt != nil {
		ts := o.EndAt.Unix()
		endAt = &ts
	}

	return json.Marshal(struct {
		ID          int    `json:"id"`
		User        int    `json:"user"`
		Book        int    `json:"book"`
		CreatedAt   int64  `json:"created_at"`
		EndAt       *int64 `json:"end_at"`
		PlatedEndAt int64  `json:"plated_end_at"`
	}{o.ID, o.UserID, o.BookID, o.CreatedAt.Unix(), endAt, o.PlatedEndAt.Unix()})
}
