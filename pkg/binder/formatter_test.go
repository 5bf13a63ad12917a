package binder

import (
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatValidationError(t *testing.T) {
	b, err := New()
	require.NoError(t, err)

	limit := 501
	cases := []struct {
		name    string
		payload interface{}
		msg     string
	}{
		{
			"missing author name",
			&struct {
				Name string `json:"name" validate:"required,max=20"`
			}{},
			`"name" is required`,
		},
		{
			"author name too long",
			&struct {
				Name string `json:"name" validate:"required,max=20"`
			}{Name: strings.Repeat("a", 21)},
			`"name" length must be less than or equal to 20 characters`,
		},
		{
			"short password",
			&struct {
				Password string `json:"password" validate:"required,min=8"`
			}{Password: "secret"},
			`"password" length must be greater than or equal to 8 characters`,
		},
		{
			"bad email",
			&struct {
				Email string `json:"email" validate:"required,email"`
			}{Email: "librarian"},
			`"email" is not a valid email`,
		},
		{
			"unknown role",
			&struct {
				Role int `json:"role" validate:"oneof=0 1"`
			}{Role: 2},
			`"role" must be one of the following: "0", "1"`,
		},
		{
			"negative book count",
			&struct {
				Count int `json:"count" validate:"min=0"`
			}{Count: -1},
			`"count" must be greater than or equal to 0`,
		},
		{
			"limit over the cap",
			&struct {
				Limit *int `json:"limit" validate:"omitempty,min=1,max=500"`
			}{Limit: &limit},
			`"limit" must be less than or equal to 500`,
		},
		{
			"no author ids",
			&struct {
				AuthorIDs []int `json:"author_ids" validate:"required,min=1,unique,dive,gt=0"`
			}{AuthorIDs: []int{}},
			`"author_ids" length must be greater than or equal to 1 element`,
		},
		{
			"repeated authors",
			&struct {
				Authors []int `json:"authors" validate:"unique,dive,gt=0"`
			}{Authors: []int{3, 3}},
			`"authors" must not contain duplicates`,
		},
		{
			"zero author id",
			&struct {
				Authors []int `json:"authors" validate:"unique,dive,gt=0"`
			}{Authors: []int{0}},
			`"authors[0]" must be greater than 0`,
		},
		{
			"negative user id",
			&struct {
				User int `json:"user" validate:"required,gt=0"`
			}{User: -4},
			`"user" must be greater than 0`,
		},
		{
			"due date before the epoch",
			&struct {
				PlatedEndAt int64 `json:"plated_end_at" validate:"required,unixtime"`
			}{PlatedEndAt: -1},
			`"plated_end_at" must be a unix timestamp in seconds`,
		},
		{
			"tag without a message",
			&struct {
				Token string `json:"token" validate:"uuid"`
			}{Token: "nope"},
			`"token" is invalid`,
		},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			err := b.validate.Struct(tt.payload)
			require.Error(t, err)
			var errs validator.ValidationErrors
			require.ErrorAs(t, err, &errs)
			assert.Equal(t, tt.msg, formatValidationError(errs[0]))
		})
	}
}
