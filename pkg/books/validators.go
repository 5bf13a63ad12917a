package books

type ListBooksQuery struct {
	Limit    *int `query:"limit" json:"limit,omitempty" validate:"omitempty,min=1,max=500"`
	Offset   *int `query:"offset" json:"offset,omitempty" validate:"omitempty,min=0"`
	AuthorID *int `query:"author_id" json:"author_id,omitempty" validate:"omitempty,min=1"`
}

type CreateBookPayload struct {
	Name        string `json:"name" mod:"trim" validate:"required,max=128"`
	Description string `json:"description" mod:"trim"`
	Count       *int   `json:"count" default:"10" validate:"min=0"`
	Authors     []int  `json:"authors" validate:"unique,dive,gt=0"`
}

type UpdateBookPayload struct {
	Name        *string `json:"name,omitempty" mod:"trim" validate:"omitempty,min=1,max=128"`
	Description *string `json:"description,omitempty" mod:"trim"`
	Count       *int    `json:"count,omitempty" validate:"omitempty,min=0"`
}

// AuthorIDsPayload is the body of POST /books/:id/authors and the query of
// DELETE /books/:id/authors.
type AuthorIDsPayload struct {
	AuthorIDs []int `query:"author_ids" json:"author_ids" validate:"required,min=1,unique,dive,gt=0"`
}
