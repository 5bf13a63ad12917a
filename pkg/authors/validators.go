package authors

type ListAuthorsQuery struct {
	Limit  *int `query:"limit" json:"limit,omitempty" validate:"omitempty,min=1,max=500"`
	Offset *int `query:"offset" json:"offset,omitempty" validate:"omitempty,min=0"`
	BookID *int `query:"book_id" json:"book_id,omitempty" validate:"omitempty,min=1"`
}

type CreateAuthorPayload struct {
	Name       string `json:"name" mod:"trim" validate:"required,max=20"`
	Surname    string `json:"surname" mod:"trim" validate:"max=20"`
	Patronymic string `json:"patronymic" mod:"trim" validate:"max=20"`
}

type UpdateAuthorPayload struct {
	Name       *string `json:"name,omitempty" mod:"trim" validate:"omitempty,min=1,max=20"`
	Surname    *string `json:"surname,omitempty" mod:"trim" validate:"omitempty,max=20"`
	Patronymic *string `json:"patronymic,omitempty" mod:"trim" validate:"omitempty,max=20"`
}
