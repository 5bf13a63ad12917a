package orders

type ListOrdersQuery struct {
	Limit       *int `query:"limit" json:"limit,omitempty" validate:"omitempty,min=1,max=500"`
	Offset      *int `query:"offset" json:"offset,omitempty" validate:"omitempty,min=0"`
	UserID      *int `query:"user_id" json:"user_id,omitempty" validate:"omitempty,min=1"`
	BookID      *int `query:"book_id" json:"book_id,omitempty" validate:"omitempty,min=1"`
	NotReturned bool `query:"not_returned" json:"not_returned,omitempty"`
}

// CreateOrderPayload uses the same field names as the order JSON; timestamps
// are unix seconds.
type CreateOrderPayload struct {
	User        int   `json:"user" validate:"required,gt=0"`
	Book        int   `json:"book" validate:"required,gt=0"`
	PlatedEndAt int64 `json:"plated_end_at" validate:"required,unixtime"`
}

type UpdateOrderPayload struct {
	PlatedEndAt *int64 `json:"plated_end_at,omitempty" validate:"omitempty,unixtime"`
	EndAt       *int64 `json:"end_at,omitempty" validate:"omitempty,unixtime"`
}
